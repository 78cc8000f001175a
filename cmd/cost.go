package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/qnagen/internal/db"
	"github.com/ziadkadry99/qnagen/internal/usagelog"
)

var costCmd = &cobra.Command{
	Use:   "cost",
	Short: "Report recorded token usage and API cost",
	Long: `Reads the local usage log and prints calls, tokens and estimated cost per
requested step. Costs are recorded in the configured currency; pass --krw to
convert them explicitly with --krw-rate (or conversion.krw_per_usd).`,
	RunE: runCost,
}

func init() {
	costCmd.Flags().String("step", "", "only include runs of this step")
	costCmd.Flags().Duration("since", 0, "only include runs newer than this (e.g. 24h)")
	costCmd.Flags().Bool("krw", false, "convert costs to KRW")
	costCmd.Flags().Float64("krw-rate", 0, "KRW per unit of the recorded currency (overrides config)")
	costCmd.Flags().Int("runs", 0, "also list the most recent N runs")
	costCmd.Flags().Duration("prune", 0, "delete entries older than this before reporting")
	costCmd.Flags().Bool("json", false, "print the summary as JSON")
	rootCmd.AddCommand(costCmd)
}

func runCost(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	database, err := db.Open(cfg.UsageDBPath())
	if err != nil {
		return fmt.Errorf("opening usage log: %w", err)
	}
	defer database.Close()
	store := usagelog.NewStore(database)

	if prune, _ := cmd.Flags().GetDuration("prune"); prune > 0 {
		n, err := store.DeleteBefore(ctx, time.Now().Add(-prune))
		if err != nil {
			return fmt.Errorf("pruning usage log: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Pruned %d entries older than %s\n", n, prune)
	}

	filter := usagelog.QueryFilter{}
	filter.Step, _ = cmd.Flags().GetString("step")
	if since, _ := cmd.Flags().GetDuration("since"); since > 0 {
		t := time.Now().Add(-since)
		filter.Since = &t
	}

	summary, err := store.Summarize(ctx, filter)
	if err != nil {
		return fmt.Errorf("summarizing usage: %w", err)
	}

	if toKRW, _ := cmd.Flags().GetBool("krw"); toKRW {
		rate := cfg.Conversion.KRWPerUSD
		if cmd.Flags().Changed("krw-rate") {
			rate, _ = cmd.Flags().GetFloat64("krw-rate")
		}
		converted, err := summary.Convert("KRW", rate)
		if err != nil {
			return err
		}
		summary = &converted
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	if summary.Total.Runs == 0 {
		fmt.Println("No runs recorded yet. Run `qnagen generate` first.")
		return nil
	}

	fmt.Println("Usage Summary")
	fmt.Println("=============")
	fmt.Print(usagelog.FormatSummary(summary))

	if n, _ := cmd.Flags().GetInt("runs"); n > 0 {
		filter.Limit = n
		entries, err := store.Query(ctx, filter)
		if err != nil {
			return fmt.Errorf("listing runs: %w", err)
		}
		fmt.Println()
		printRuns(entries)
	}
	return nil
}

func printRuns(entries []usagelog.Entry) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tRUN\tSTEP\tSTATUS\tCALLS\tTOKENS\tCOST")
	for _, e := range entries {
		cost := "-"
		if e.Cost != nil {
			cost = fmt.Sprintf("%.4f %s", *e.Cost, e.Currency)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			e.CreatedAt.Local().Format("2006-01-02 15:04"), e.RunID, e.Step, e.Status, e.Calls, e.TotalTokens, cost)
	}
	w.Flush()
}
