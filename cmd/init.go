package cmd

import (
	"github.com/spf13/cobra"
	"github.com/ziadkadry99/qnagen/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize qnagen configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to choose the provider, tier models and search settings, and writes a .qnagen.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
