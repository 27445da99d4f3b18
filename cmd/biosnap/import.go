package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/biosnap/internal/config"
	"github.com/nao1215/biosnap/internal/database"
	"github.com/nao1215/biosnap/internal/model"
	"github.com/nao1215/biosnap/internal/normalize"
	"github.com/nao1215/biosnap/internal/pipeline"
)

// NewImportCmd creates the import command.
func NewImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a gut health report from a lab portal",
		Long: `Import logs into a lab portal with a headless browser, downloads the
report data and writes one row per category and microbe.

Reports are selected by their date in the reference timezone
(America/Los_Angeles by default). Without --date the most recent report
is imported. Use "biosnap tests" to list the available dates.

The password is read from BIOSNAP_PASSWORD or, with --password-stdin,
from the first line of stdin. It is erased from memory right after login.

Examples:
  # Import the latest report as CSV
  BIOSNAP_PASSWORD=secret biosnap import --email you@example.com

  # Import the report of a given day as Markdown
  biosnap import -e you@example.com --date 03/14/2025 -f markdown < pass.txt --password-stdin

  # Write JSON to a file
  biosnap import -e you@example.com -f json -o gut.json`,
		Args: cobra.NoArgs,
		RunE: runImportCmd,
	}

	addPortalFlags(cmd, config.PortalThorne)
	cmd.Flags().StringP("date", "d", "", "Report date as MM/DD/YYYY (default: latest)")
	addOutputFlags(cmd, "Write rows to file path instead of stdout")

	return cmd
}

// runImportCmd executes the import command.
func runImportCmd(cmd *cobra.Command, _ []string) error {
	run, err := preparePortalRun(cmd, sourceDataAPI)
	if err != nil {
		return err
	}
	date, err := cmd.Flags().GetString("date")
	if err != nil {
		return err
	}

	cred, err := readCredential(cmd, run.opts.email, run.opts.fromStdin)
	if err != nil {
		return err
	}
	defer cred.Erase()

	ctx, cancel := signalContext(cmd.Context(), run.logger)
	defer cancel()

	deps, err := newPortalDeps(ctx, run.cfg, run.portalCfg, run.logger, run.status)
	if err != nil {
		return err
	}

	return userError(runImport(ctx, cmd, run, deps, cred, date))
}

// runImport executes the import pipeline and writes the normalized rows.
func runImport(ctx context.Context, cmd *cobra.Command, run *portalRun, deps portalDeps, cred *model.Credential, date string) error {
	ledger := openLedger(run.cfg, run.logger)
	if ledger != nil {
		defer ledger.Close()
	}

	p := pipeline.ImportPipeline(deps.acquirer, deps.fetcher, run.portalCfg, run.loc,
		pipeline.WithLogger(run.logger))
	job := model.NewImportJob(run.opts.portal, cred, date)

	return record(ctx, ledger, run.logger, database.KindImport, run.opts.portal, func() (runOutcome, error) {
		if err := pipeline.ExecuteExclusive(ctx, p, importGuard, job); err != nil {
			return runOutcome{}, err
		}

		table := normalize.Table(job.Rows)
		data, err := renderTable(run.cfg, table)
		if err != nil {
			return runOutcome{}, err
		}
		if err := writeOutput(run.cfg, cmd.OutOrStdout(), data); err != nil {
			return runOutcome{}, err
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "Imported %s report of %s (%d rows)\n",
			run.portalCfg.Name, job.SelectedDate, len(job.Rows))
		return runOutcome{rows: len(job.Rows), output: data}, nil
	})
}
