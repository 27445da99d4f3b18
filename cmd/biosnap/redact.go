package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/biosnap/internal/config"
	"github.com/nao1215/biosnap/internal/database"
	"github.com/nao1215/biosnap/internal/model"
	"github.com/nao1215/biosnap/internal/pipeline"
	"github.com/nao1215/biosnap/internal/redact"
)

// redactedSuffix replaces the extension of a redacted document.
const redactedSuffix = ".redacted.pdf"

var (
	// ErrOutputWithBatch is returned when --output is combined with several inputs.
	ErrOutputWithBatch = errors.New("--output can only be used with a single document")

	// ErrOutputIsInput is returned when the output would overwrite the input.
	ErrOutputIsInput = errors.New("output path is the input document")
)

// redactOutcome describes one redacted document.
type redactOutcome struct {
	output  string
	marks   int
	dropped int
}

// NewRedactCmd creates the redact command.
func NewRedactCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "redact <file.pdf>...",
		Short: "Black out identifying details in medical PDFs",
		Long: `Redact covers patient names, birth dates, identifiers and provider
branding in medical PDFs with opaque boxes and removes identifying
document metadata. The input file is never modified.

Document kinds:
  physician   physician-authored reports with a labeled patient header
  diagnostic  provider-generated summaries with footer branding; names
              listed in the denylist file are redacted on every page

Each document is written next to its input as <name>.redacted.pdf unless
--output is given. Running redact again on its own output adds nothing.

Examples:
  # Redact an imaging report
  biosnap redact --kind physician scan.pdf

  # Redact many summaries with a custom name list
  biosnap redact --kind diagnostic --denylist names.txt results/*.pdf`,
		Args: cobra.ArbitraryArgs,
		RunE: runRedactCmd,
	}

	cmd.Flags().StringP("kind", "k", "", "Document kind: physician or diagnostic (required)")
	cmd.Flags().String("denylist", config.DefaultDenylistFile, "File of names to redact, one per line")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize, "Number of documents processed concurrently")
	cmd.Flags().StringP("output", "o", "", "Output path (single document only)")
	cmd.Flags().Bool("no-history", false, "Do not record this run in the history ledger")
	_ = cmd.MarkFlagRequired("kind") //nolint:errcheck // flag is defined above

	return cmd
}

// runRedactCmd executes the redact command.
func runRedactCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	kindFlag, err := cmd.Flags().GetString("kind")
	if err != nil {
		return err
	}
	kind, err := redact.ParseKind(kindFlag)
	if err != nil {
		return err
	}
	if cfg.DenylistFile, err = cmd.Flags().GetString("denylist"); err != nil {
		return err
	}
	if cfg.BatchSize, err = cmd.Flags().GetInt("batch"); err != nil {
		return err
	}
	if cfg.OutputPath, err = cmd.Flags().GetString("output"); err != nil {
		return err
	}
	noHistory, err := cmd.Flags().GetBool("no-history")
	if err != nil {
		return err
	}
	cfg.SaveHistory = !noHistory

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd)
	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	return userError(runRedact(ctx, cmd, cfg, logger, kind, args))
}

// newRedactEngine builds the engine with the configured names and patterns.
func newRedactEngine(cfg *config.Config, logger *slog.Logger) *redact.Engine {
	opts := []redact.Option{
		redact.WithLogger(logger),
		redact.WithDenylistFile(cfg.DenylistFile),
	}
	if cfg.Portals != nil {
		opts = append(opts,
			redact.WithExtraNames(cfg.Portals.Redaction.ExtraNames),
			redact.WithExtraPatterns(cfg.Portals.Redaction.ExtraPatterns),
		)
	}
	return redact.NewEngine(opts...)
}

// redactedPath returns the default output path for input.
func redactedPath(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + redactedSuffix
}

// outputPathFor returns where the redacted copy of input is written.
func outputPathFor(cfg *config.Config, input string) (string, error) {
	output := cfg.OutputPath
	if output == "" {
		output = redactedPath(input)
	}
	if filepath.Clean(output) == filepath.Clean(input) {
		return "", fmt.Errorf("%w: %s", ErrOutputIsInput, input)
	}
	return output, nil
}

// runRedact redacts every document concurrently. Each document is recorded
// in the ledger on its own.
func runRedact(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, kind redact.Kind, inputs []string) error {
	if len(inputs) == 0 {
		return ErrNoInputs
	}
	if cfg.OutputPath != "" && len(inputs) > 1 {
		return ErrOutputWithBatch
	}

	ledger := openLedger(cfg, logger)
	if ledger != nil {
		defer ledger.Close()
	}
	engine := newRedactEngine(cfg, logger)

	handler := func(ctx context.Context, input string) (redactOutcome, error) {
		var outcome redactOutcome
		err := record(ctx, ledger, logger, database.KindRedact, filepath.Base(input), func() (runOutcome, error) {
			output, err := outputPathFor(cfg, input)
			if err != nil {
				return runOutcome{}, err
			}
			data, err := os.ReadFile(input) //nolint:gosec // User-provided document path is intentional
			if err != nil {
				return runOutcome{}, &model.DocumentError{Op: "read", Err: err}
			}

			res, err := engine.Run(ctx, data, kind)
			if err != nil {
				return runOutcome{}, err
			}
			if err := writePrivateFile(output, res.Data); err != nil {
				return runOutcome{}, err
			}

			outcome = redactOutcome{output: output, marks: res.Marks, dropped: res.DroppedPages}
			return runOutcome{rows: res.Marks, output: res.Data}, nil
		})
		return outcome, err
	}

	results, err := pipeline.NewBatchProcessor(handler,
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	).ProcessBatch(ctx, inputs)
	if err != nil {
		return err
	}

	var failed int
	var firstErr error
	out := cmd.OutOrStdout()
	for _, r := range results {
		if r.Err != nil {
			failed++
			if firstErr == nil {
				firstErr = r.Err
			}
			if len(results) > 1 {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", filepath.Base(r.Input), model.UserMessage(r.Err))
			}
			continue
		}
		fmt.Fprintf(out, "%s -> %s (%d marks", r.Input, r.Value.output, r.Value.marks)
		if r.Value.dropped > 0 {
			fmt.Fprintf(out, ", %d cover page removed", r.Value.dropped)
		}
		fmt.Fprintln(out, ")")
	}

	switch {
	case failed == 0:
		return nil
	case len(inputs) == 1:
		return firstErr
	default:
		return fmt.Errorf("%w: %d of %d", ErrDocumentsFailed, failed, len(inputs))
	}
}
