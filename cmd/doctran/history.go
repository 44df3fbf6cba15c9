package main

import (
	"fmt"

	"github.com/oukeidos/doctran/internal/cleanup"
	"github.com/oukeidos/doctran/internal/history"
	"github.com/oukeidos/doctran/internal/logger"
	"github.com/oukeidos/doctran/internal/prompt"
	"github.com/spf13/cobra"
)

type historyOptions struct {
	historyPath string
	limit       int
	yes         bool
}

func newHistoryCmd() *cobra.Command {
	opts := historyOptions{}
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the edit history ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryList(cmd, &opts)
		},
		SilenceUsage: true,
	}

	cmd.SetUsageTemplate(groupUsageTemplate)
	cmd.PersistentFlags().StringVar(&opts.historyPath, "history-path", "", "Edit history database (default: ~/.doctran/history.db)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Show recent records (default if no action given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryList(cmd, &opts)
		},
		SilenceUsage: true,
	}
	listCmd.SetUsageTemplate(subcommandUsageTemplate)
	listCmd.Flags().IntVarP(&opts.limit, "number", "n", 20, "Number of records to show")
	cmd.Flags().IntVarP(&opts.limit, "number", "n", 20, "Number of records to show")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show ledger aggregates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryStats(cmd, &opts)
		},
		SilenceUsage: true,
	}
	statsCmd.SetUsageTemplate(subcommandUsageTemplate)

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all history records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryClear(cmd, &opts)
		},
		SilenceUsage: true,
	}
	clearCmd.SetUsageTemplate(subcommandUsageTemplate)
	clearCmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Clear without asking")

	cmd.AddCommand(listCmd, statsCmd, clearCmd)
	return cmd
}

func openLedger(opts *historyOptions) (*history.Store, error) {
	logger.Init(logger.LevelInfo, nil)
	ledger, err := openHistory(opts.historyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	cleanup.Register(ledger.Close)
	return ledger, nil
}

func runHistoryList(cmd *cobra.Command, opts *historyOptions) error {
	ledger, err := openLedger(opts)
	if err != nil {
		return err
	}
	records, err := ledger.Recent(opts.limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "History is empty.")
		return nil
	}
	for _, rec := range records {
		fmt.Fprintf(cmd.OutOrStdout(), "[%s] %-9s %s (%s->%s): %q -> %q\n",
			rec.Timestamp.Local().Format("2006-01-02 15:04"),
			rec.Operation, rec.EntityID, rec.SourceLang, rec.TargetLang,
			rec.OriginalText, rec.TranslatedText)
	}
	return nil
}

func runHistoryStats(cmd *cobra.Command, opts *historyOptions) error {
	ledger, err := openLedger(opts)
	if err != nil {
		return err
	}
	stats, err := ledger.Stats()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Total records: %d\n", stats.Total)
	if stats.Total == 0 {
		return nil
	}
	fmt.Fprintf(out, "Today: %d\n", stats.Today)
	fmt.Fprintf(out, "First record: %s\n", stats.FirstRecord.Local().Format("2006-01-02 15:04"))
	if len(stats.TopPairs) > 0 {
		fmt.Fprintln(out, "Top language pairs:")
		for _, pair := range stats.TopPairs {
			fmt.Fprintf(out, "  %s -> %s: %d\n", pair.SourceLang, pair.TargetLang, pair.Count)
		}
	}
	return nil
}

func runHistoryClear(cmd *cobra.Command, opts *historyOptions) error {
	ledger, err := openLedger(opts)
	if err != nil {
		return err
	}
	confirmed, err := prompt.DefaultConfirmer().ConfirmDestructive("clear the edit history", opts.yes)
	if err != nil {
		return err
	}
	if !confirmed {
		fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
		return nil
	}
	if err := ledger.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
	return nil
}
