package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/qnagen/internal/config"
	"github.com/ziadkadry99/qnagen/internal/logging"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "qnagen",
	Short: "AI-powered marketing Q&A and conversation generator",
	Long: `qnagen writes marketing content for a product: a customer question, an
advisor answer, and optionally a multi-turn customer/advisor conversation.
Cheap model tiers write the customer side and premium tiers the advisor side,
with automatic fallback when a tier is over quota. Every run is priced and
recorded in a local usage log.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := "info"
		if verbose {
			level = "debug"
		}
		logging.Init(os.Stderr, level, "text")
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
