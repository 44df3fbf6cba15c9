package main

import (
	"fmt"

	"github.com/oukeidos/doctran/internal/apperrors"
	"github.com/oukeidos/doctran/internal/cleanup"
	"github.com/oukeidos/doctran/internal/document/jsondoc"
	"github.com/oukeidos/doctran/internal/logger"
	"github.com/oukeidos/doctran/internal/pipeline"
	"github.com/spf13/cobra"
)

type undoOptions struct {
	historyPath string
	list        bool
}

func newUndoCmd() *cobra.Command {
	opts := undoOptions{}
	cmd := &cobra.Command{
		Use:   "undo <document.json>",
		Short: "Restore the most recently translated string",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUndo(cmd, args, &opts)
		},
		SilenceUsage: true,
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	cmd.Flags().StringVar(&opts.historyPath, "history-path", "", "Edit history database (default: ~/.doctran/history.db)")
	cmd.Flags().BoolVar(&opts.list, "list", false, "Show undo candidates without restoring anything")
	return cmd
}

func runUndo(cmd *cobra.Command, args []string, opts *undoOptions) error {
	logger.Init(logger.LevelInfo, nil)

	ledger, err := openHistory(opts.historyPath)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	cleanup.Register(ledger.Close)

	if opts.list {
		candidates, err := ledger.UndoCandidates(0)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing to undo.")
			return nil
		}
		for i, rec := range candidates {
			fmt.Fprintf(cmd.OutOrStdout(), "%2d. [%s] %s: %q -> %q\n",
				i+1, rec.Timestamp.Local().Format("2006-01-02 15:04"), rec.EntityID, rec.OriginalText, rec.TranslatedText)
		}
		return nil
	}

	if len(args) < 1 {
		_ = cmd.Usage()
		return fmt.Errorf("a document file is required")
	}
	if err := validateDocumentExtension(args[0]); err != nil {
		return err
	}
	store, err := jsondoc.Open(args[0])
	if err != nil {
		return err
	}

	svc, err := pipeline.NewService(nil, ledger, noRemote{})
	if err != nil {
		return err
	}
	rec, err := svc.Undo(store)
	if err != nil {
		if apperrors.IsEntityGone(err) {
			return fmt.Errorf("cannot undo: no recent edit's entity still exists in the document")
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Restored %s: %q -> %q\n", rec.EntityID, rec.OriginalText, rec.TranslatedText)
	return nil
}
