package main

import (
	"fmt"
	"time"

	"github.com/oukeidos/doctran/internal/cachestore"
	"github.com/oukeidos/doctran/internal/cleanup"
	"github.com/oukeidos/doctran/internal/logger"
	"github.com/oukeidos/doctran/internal/prompt"
	"github.com/spf13/cobra"
)

type cacheOptions struct {
	cachePath string
	ttl       time.Duration
	yes       bool
}

func newCacheCmd() *cobra.Command {
	opts := cacheOptions{}
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the translation cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheStats(cmd, &opts)
		},
		SilenceUsage: true,
	}

	cmd.SetUsageTemplate(groupUsageTemplate)
	cmd.PersistentFlags().StringVar(&opts.cachePath, "cache-path", "", "Translation cache database (default: ~/.doctran/cache.db)")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache counters (default if no action given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheStats(cmd, &opts)
		},
		SilenceUsage: true,
	}
	statsCmd.SetUsageTemplate(subcommandUsageTemplate)

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "Remove entries not accessed within the TTL",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheSweep(cmd, &opts)
		},
		SilenceUsage: true,
	}
	sweepCmd.SetUsageTemplate(subcommandUsageTemplate)
	sweepCmd.Flags().DurationVar(&opts.ttl, "ttl", 90*24*time.Hour, "Expire entries older than this")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all cached translations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheClear(cmd, &opts)
		},
		SilenceUsage: true,
	}
	clearCmd.SetUsageTemplate(subcommandUsageTemplate)
	clearCmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Clear without asking")

	cmd.AddCommand(statsCmd, sweepCmd, clearCmd)
	return cmd
}

func openCacheOrFail(opts *cacheOptions) (*cachestore.Store, error) {
	logger.Init(logger.LevelInfo, nil)
	path := opts.cachePath
	if path == "" {
		path = cachestore.DefaultPath()
	}
	cache, err := cachestore.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	cleanup.Register(cache.Close)
	return cache, nil
}

func runCacheStats(cmd *cobra.Command, opts *cacheOptions) error {
	cache, err := openCacheOrFail(opts)
	if err != nil {
		return err
	}
	stats := cache.Stats()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Path: %s\n", cache.Path())
	fmt.Fprintf(out, "Entries: %d\n", stats.Entries)
	return nil
}

func runCacheSweep(cmd *cobra.Command, opts *cacheOptions) error {
	cache, err := openCacheOrFail(opts)
	if err != nil {
		return err
	}
	removed, err := cache.SweepExpired(opts.ttl)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired entries.\n", removed)
	return nil
}

func runCacheClear(cmd *cobra.Command, opts *cacheOptions) error {
	cache, err := openCacheOrFail(opts)
	if err != nil {
		return err
	}
	confirmed, err := prompt.DefaultConfirmer().ConfirmDestructive("clear the translation cache", opts.yes)
	if err != nil {
		return err
	}
	if !confirmed {
		fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
		return nil
	}
	if err := cache.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared.")
	return nil
}
