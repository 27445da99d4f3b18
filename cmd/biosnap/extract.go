package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/biosnap/internal/config"
	"github.com/nao1215/biosnap/internal/database"
	"github.com/nao1215/biosnap/internal/labparse"
	"github.com/nao1215/biosnap/internal/model"
	"github.com/nao1215/biosnap/internal/pipeline"
)

// sourceColumn is prepended to the lab columns when several documents are extracted.
const sourceColumn = "Source"

// NewExtractCmd creates the extract command.
func NewExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <file.pdf>...",
		Short: "Extract test results from lab report PDFs",
		Long: `Extract reads lab report PDFs and writes one row per test result with
its name, desired range and observed value.

Documents are processed concurrently. A document that cannot be read is
reported and skipped; the others are still written. With several
documents a Source column names the file each row came from.

Examples:
  # Extract a single report as CSV
  biosnap extract labs.pdf

  # Extract many reports into one Markdown table
  biosnap extract -f markdown reports/*.pdf -o results.md`,
		Args: cobra.ArbitraryArgs,
		RunE: runExtractCmd,
	}

	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize, "Number of documents processed concurrently")
	addOutputFlags(cmd, "Write rows to file path instead of stdout")

	return cmd
}

// runExtractCmd executes the extract command.
func runExtractCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.BatchSize, err = cmd.Flags().GetInt("batch"); err != nil {
		return err
	}
	if err := applyOutputFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd)
	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	return userError(runExtract(ctx, cmd, cfg, logger, args))
}

// extractDocument reads and parses one lab report.
func extractDocument(_ context.Context, path string) ([]model.LabResultRecord, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided document path is intentional
	if err != nil {
		return nil, &model.DocumentError{Op: "read", Err: err}
	}
	return labparse.Extract(data)
}

// runExtract extracts every document and writes the combined table.
// Unreadable documents are reported and skipped; the run fails only when
// every document failed, and exits non-zero when some did.
func runExtract(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, inputs []string) error {
	if len(inputs) == 0 {
		return ErrNoInputs
	}

	ledger := openLedger(cfg, logger)
	if ledger != nil {
		defer ledger.Close()
	}

	bp := pipeline.NewBatchProcessor(extractDocument,
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	var failed int
	err := record(ctx, ledger, logger, database.KindExtract, batchSource(inputs), func() (runOutcome, error) {
		results, err := bp.ProcessBatch(ctx, inputs)
		if err != nil {
			return runOutcome{}, err
		}

		var firstErr error
		for _, r := range results {
			if r.Err == nil {
				continue
			}
			failed++
			if firstErr == nil {
				firstErr = r.Err
			}
			if len(results) > 1 {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", filepath.Base(r.Input), model.UserMessage(r.Err))
			}
		}
		if failed == len(results) {
			return runOutcome{}, firstErr
		}

		table := labTable(results)
		if table.Len() == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), model.NoDataMessage)
			return runOutcome{}, nil
		}

		data, err := renderTable(cfg, table)
		if err != nil {
			return runOutcome{}, err
		}
		if err := writeOutput(cfg, cmd.OutOrStdout(), data); err != nil {
			return runOutcome{}, err
		}
		return runOutcome{rows: table.Len(), output: data}, nil
	})
	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrDocumentsFailed, failed, len(inputs))
	}
	return nil
}

// labTable combines the records of successful results in input order.
// A Source column is added when more than one document was given.
func labTable(results []pipeline.Result[[]model.LabResultRecord]) model.Table {
	if len(results) == 1 {
		return model.NewLabTable(results[0].Value)
	}

	columns := append([]string{sourceColumn}, model.LabColumns...)
	var rows [][]string
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		source := filepath.Base(r.Input)
		for _, row := range model.NewLabTable(r.Value).Rows {
			rows = append(rows, append([]string{source}, row...))
		}
	}
	return model.Table{Columns: columns, Rows: rows}
}

// batchSource names the inputs of a document run for the ledger.
// Only base names are recorded; directories often carry the patient's name.
func batchSource(inputs []string) string {
	if len(inputs) == 1 {
		return filepath.Base(inputs[0])
	}
	return fmt.Sprintf("%d documents", len(inputs))
}
