package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/biosnap/internal/config"
	"github.com/nao1215/biosnap/internal/database"
	"github.com/nao1215/biosnap/internal/model"
	"github.com/nao1215/biosnap/internal/pipeline"
	"github.com/nao1215/biosnap/internal/portal"
)

// testColumns are the columns of the available tests table.
var testColumns = []string{"ID", "Test", "Date", "Created"}

// NewTestsCmd creates the tests command.
func NewTestsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tests",
		Short: "List the reports available on a lab portal",
		Long: `Tests logs into a lab portal and lists the available reports, newest
first. The Date column is the value accepted by "biosnap import --date".

Examples:
  BIOSNAP_PASSWORD=secret biosnap tests --email you@example.com`,
		Args: cobra.NoArgs,
		RunE: runTestsCmd,
	}

	addPortalFlags(cmd, config.PortalThorne)
	addOutputFlags(cmd, "Write the list to file path instead of stdout")

	return cmd
}

// runTestsCmd executes the tests command.
func runTestsCmd(cmd *cobra.Command, _ []string) error {
	run, err := preparePortalRun(cmd, sourceDataAPI)
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

	return userError(runTests(ctx, cmd, run, deps, cred))
}

// runTests fetches the report snapshot and writes the selection list.
func runTests(ctx context.Context, cmd *cobra.Command, run *portalRun, deps portalDeps, cred *model.Credential) error {
	ledger := openLedger(run.cfg, run.logger)
	if ledger != nil {
		defer ledger.Close()
	}

	p := pipeline.SessionPipeline(deps.acquirer, deps.fetcher, run.portalCfg,
		pipeline.WithLogger(run.logger))
	job := model.NewImportJob(run.opts.portal, cred, "")

	return record(ctx, ledger, run.logger, database.KindTests, run.opts.portal, func() (runOutcome, error) {
		if err := pipeline.ExecuteExclusive(ctx, p, importGuard, job); err != nil {
			return runOutcome{}, err
		}

		tests := portal.AvailableTests(job.Reports, run.loc, run.portalCfg.TestLabel)
		if len(tests) == 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "No reports available on %s.\n", run.portalCfg.Name)
		}

		data, err := renderTable(run.cfg, testsTable(tests, run.loc))
		if err != nil {
			return runOutcome{}, err
		}
		if err := writeOutput(run.cfg, cmd.OutOrStdout(), data); err != nil {
			return runOutcome{}, err
		}
		return runOutcome{rows: len(tests), output: data}, nil
	})
}

// testsTable renders the selection list.
func testsTable(tests []model.AvailableTest, loc *time.Location) model.Table {
	rows := make([][]string, 0, len(tests))
	for _, t := range tests {
		created := t.RawDate
		if !t.CreatedAt.IsZero() {
			created = t.CreatedAt.In(loc).Format("2006-01-02 15:04 MST")
		}
		rows = append(rows, []string{t.ID, t.Label, t.LocalDate, created})
	}
	return model.Table{Columns: testColumns, Rows: rows}
}
