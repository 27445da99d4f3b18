package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nao1215/biosnap/internal/config"
	"github.com/nao1215/biosnap/internal/database"
	"github.com/nao1215/biosnap/internal/model"
)

// defaultHistoryLimit is the number of runs shown without --limit.
const defaultHistoryLimit = 20

// digestPrefix is how much of the output digest is shown.
const digestPrefix = 12

// historyColumns are the columns of the history table.
var historyColumns = []string{"Started", "Age", "Kind", "Source", "Status", "Rows", "Elapsed", "Digest", "Error"}

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent imports, extractions and redactions",
		Long: `History lists recent runs from the local ledger, newest first.

The ledger stores when a run happened, what it read, how many rows it
wrote and the SHA3-256 digest of its output. Compare the digest with
"sha3sum -a 256 <file>" to tie an output file to its run.

Examples:
  # Show the last 20 runs
  biosnap history

  # Show the last 5 runs as Markdown
  biosnap history -n 5 -f markdown`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", defaultHistoryLimit, "Number of runs to show (0 for all)")
	cmd.Flags().StringP("format", "f", config.FormatMarkdown, "Output format: csv, markdown, json")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.OutputFormat, err = cmd.Flags().GetString("format"); err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	return runHistory(cmd.Context(), cmd, cfg, limit, time.Now())
}

// runHistory writes the last limit runs. A missing ledger means no history yet.
func runHistory(ctx context.Context, cmd *cobra.Command, cfg *config.Config, limit int, now time.Time) error {
	ledger, err := database.Open(cfg.DBDir, database.Options{CreateIfNotExists: false})
	if errors.Is(err, database.ErrDatabaseNotFound) {
		fmt.Fprintln(cmd.OutOrStdout(), "No history yet.")
		return nil
	}
	if err != nil {
		return err
	}
	defer ledger.Close()

	runs, err := ledger.List(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No history yet.")
		return nil
	}

	data, err := renderTable(cfg, historyTable(runs, now))
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

// historyTable renders runs with start times in the local zone.
func historyTable(runs []database.Run, now time.Time) model.Table {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		elapsed := ""
		if d := r.Elapsed(); d > 0 {
			elapsed = d.Round(time.Millisecond).String()
		}
		rows = append(rows, []string{
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			humanize.RelTime(r.StartedAt, now, "ago", "from now"),
			string(r.Kind),
			r.Source,
			string(r.Status),
			strconv.Itoa(r.RowCount),
			elapsed,
			r.Digest[:min(digestPrefix, len(r.Digest))],
			r.Error,
		})
	}
	return model.Table{Columns: historyColumns, Rows: rows}
}
