package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oukeidos/doctran/internal/apperrors"
	"github.com/oukeidos/doctran/internal/cachestore"
	"github.com/oukeidos/doctran/internal/cleanup"
	"github.com/oukeidos/doctran/internal/document/jsondoc"
	"github.com/oukeidos/doctran/internal/files"
	"github.com/oukeidos/doctran/internal/gemini"
	"github.com/oukeidos/doctran/internal/logger"
	"github.com/oukeidos/doctran/internal/pipeline"
	"github.com/oukeidos/doctran/internal/translator"
	"github.com/spf13/cobra"
)

type translateOptions struct {
	modelName      string
	chunkSize      int
	concurrency    int
	sourceLangCode string
	targetLangCode string
	selector       string
	glossaryPath   string
	cachePath      string
	historyPath    string
	logFilePath    string
	dryRun         bool
	noCache        bool
	allowEnv       bool
	envOnly        bool
	debug          bool
}

func newTranslateCmd() *cobra.Command {
	opts := translateOptions{}
	cmd := &cobra.Command{
		Use:   "translate <document.json>",
		Short: "Translate document strings using Gemini",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 {
				_ = cmd.Usage()
				return fmt.Errorf("a document file is required")
			}
			return runTranslate(cmd, args, &opts)
		},
		SilenceUsage: true,
	}

	cmd.SetUsageTemplate(subcommandUsageTemplate)
	addTranslateFlags(cmd, &opts)
	return cmd
}

func addTranslateFlags(cmd *cobra.Command, opts *translateOptions) {
	cmd.Flags().StringVar(&opts.modelName, "model", "gemini-3-flash-preview", "Gemini model name")
	cmd.Flags().IntVar(&opts.chunkSize, "chunk-size", pipeline.DefaultChunkSize, "Number of unique strings per request")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", pipeline.DefaultConcurrency, "Number of concurrent API requests (1-8)")
	cmd.Flags().StringVar(&opts.sourceLangCode, "source", "zh", "Source language code (default: zh)")
	cmd.Flags().StringVar(&opts.targetLangCode, "target", "en", "Target language code (default: en)")
	cmd.Flags().StringVar(&opts.selector, "selector", "", "Only translate entities with this container tag")
	cmd.Flags().StringVar(&opts.glossaryPath, "glossary", "", "Path to forced term mapping JSON file")
	cmd.Flags().StringVar(&opts.cachePath, "cache-path", "", "Translation cache database (default: ~/.doctran/cache.db)")
	cmd.Flags().StringVar(&opts.historyPath, "history-path", "", "Edit history database (default: ~/.doctran/history.db)")
	cmd.Flags().StringVar(&opts.logFilePath, "log-file", "", "Path to save machine-readable JSONL logs")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Show what would change without writing the document")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "Bypass the translation cache entirely")
	cmd.Flags().BoolVar(&opts.allowEnv, "allow-env", false, "Allow reading API key from environment variables")
	cmd.Flags().BoolVar(&opts.envOnly, "env-only", false, "Use only environment variables for API keys")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
}

func runTranslate(cmd *cobra.Command, args []string, opts *translateOptions) error {
	if len(args) < 1 {
		return fmt.Errorf("a document file is required")
	}
	docPath := args[0]
	if len(args) > 1 {
		fmt.Fprintf(os.Stderr, "Warning: expected 1 argument but got %d. Did you forget quotes around the file path?\n", len(args))
		fmt.Fprintf(os.Stderr, "  Using document: %s\n", docPath)
	}
	if err := validateDocumentExtension(docPath); err != nil {
		return err
	}

	logLevel := logger.LevelInfo
	if opts.debug {
		logLevel = logger.LevelDebug
	}
	var logFileW io.Writer
	if opts.logFilePath != "" {
		if err := files.RejectSymlinkPath(opts.logFilePath); err != nil {
			return err
		}
		f, err := os.OpenFile(opts.logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		cleanup.Register(f.Close)
		logFileW = f
	}
	logger.Init(logLevel, logFileW)

	startTime := time.Now()

	src, err := resolveLanguage(opts.sourceLangCode)
	if err != nil {
		return err
	}
	tgt, err := resolveLanguage(opts.targetLangCode)
	if err != nil {
		return err
	}
	if src.Code == tgt.Code {
		return fmt.Errorf("source and target language are both %s", src.Code)
	}

	actualKey, source, err := resolveAPIKey(opts.allowEnv, opts.envOnly)
	if err != nil {
		return err
	}
	logger.Info("Using API Key", "source", source)

	var glossary map[string]string
	if opts.glossaryPath != "" {
		glossary, err = loadGlossary(opts.glossaryPath)
		if err != nil {
			return err
		}
	}

	store, err := jsondoc.Open(docPath)
	if err != nil {
		return err
	}
	entities, err := store.Enumerate(opts.selector)
	if err != nil {
		return err
	}
	if len(entities) == 0 {
		logger.Info("No matching entities in document", "path", docPath, "selector", opts.selector)
		return nil
	}
	texts := make([]string, len(entities))
	for i, ent := range entities {
		texts[i] = ent.Text()
	}

	ctx, stop := signalContext()
	defer stop()

	client, err := gemini.NewClient(ctx, actualKey, opts.modelName)
	if err != nil {
		return fmt.Errorf("failed to create Gemini client: %w", err)
	}
	cleanup.Register(client.Close)

	cfg := pipeline.Config{ChunkSize: opts.chunkSize, Concurrency: opts.concurrency}
	cfg.Normalize()
	batch, err := translator.NewBatch(client, cfg.ChunkSize, cfg.Concurrency)
	if err != nil {
		return err
	}
	if len(glossary) > 0 {
		batch.SetGlossary(glossary)
	}

	var cache *cachestore.Store
	if !opts.noCache {
		cache = openCache(opts.cachePath)
	}
	if cache != nil {
		cleanup.Register(cache.Close)
	}
	ledger, err := openHistory(opts.historyPath)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	cleanup.Register(ledger.Close)

	svc, err := pipeline.NewService(cache, ledger, batch)
	if err != nil {
		return err
	}

	out, err := svc.Translate(ctx, texts, src, tgt, pipeline.TranslateOptions{
		OnProgress: func(p pipeline.Progress) {
			logger.Info("Progress", "percent", fmt.Sprintf("%.0f%%", p.Percent),
				"hits", p.CacheHits, "chunks", fmt.Sprintf("%d/%d", p.CompletedChunks, p.TotalChunks))
		},
	})
	canceled := err != nil && ctx.Err() != nil
	if err != nil && !canceled {
		printUsageStats(batch.GetUsage(), time.Since(startTime), opts.modelName)
		return err
	}
	if canceled {
		logger.Warn("Translation canceled; applying completed results only")
	}

	edits := make(map[string]string, len(entities))
	for i, ent := range entities {
		if out.OK[i] && out.Texts[i] != ent.Text() {
			edits[ent.ID()] = out.Texts[i]
		}
	}

	if opts.dryRun {
		for i, ent := range entities {
			if newText, ok := edits[ent.ID()]; ok {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %q -> %q\n", ent.ID(), texts[i], newText)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Dry run: %d of %d strings would change (failed: %d)\n",
			len(edits), len(entities), out.FailureCount)
		printUsageStats(batch.GetUsage(), time.Since(startTime), opts.modelName)
		return nil
	}

	result, err := svc.ApplyAndRecord(store, edits, pipeline.ApplyMeta{
		SourceLang: src.Code,
		TargetLang: tgt.Code,
	})
	if err != nil {
		if kind, ok := apperrors.KindOf(err); ok && kind == apperrors.KindHistoryAppend {
			logger.Warn("Document updated but history is incomplete", "error", err)
		} else {
			printUsageStats(batch.GetUsage(), time.Since(startTime), opts.modelName)
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Summary: translated=%d skipped=%d failed=%d\n",
		result.SuccessCount(), result.SkippedCount(), out.FailureCount)
	printUsageStats(batch.GetUsage(), time.Since(startTime), opts.modelName)
	return nil
}

func validateDocumentExtension(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".json" {
		return nil
	}
	if ext == "" {
		ext = "(none)"
	}
	return fmt.Errorf("unsupported document extension %q (supported: .json)", ext)
}
