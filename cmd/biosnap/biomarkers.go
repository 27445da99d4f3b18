package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/biosnap/internal/config"
	"github.com/nao1215/biosnap/internal/database"
	"github.com/nao1215/biosnap/internal/model"
	"github.com/nao1215/biosnap/internal/pipeline"
)

// NewBiomarkersCmd creates the biomarkers command.
func NewBiomarkersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "biomarkers",
		Short: "Import blood biomarker results from a lab portal",
		Long: `Biomarkers logs into a lab portal with a headless browser, opens its
results page and writes one row per biomarker: the category it is listed
under, its name, status, value and units.

The portal is read from the rendered page, so its selectors can be
overridden under "scrape" in the config file when the markup changes.

The password is read from BIOSNAP_PASSWORD or, with --password-stdin,
from the first line of stdin. It is erased from memory right after login.

Examples:
  # Import Function Health results as CSV
  BIOSNAP_PASSWORD=secret biosnap biomarkers --email you@example.com

  # Write Markdown to a file
  biosnap biomarkers -e you@example.com -f markdown -o blood.md --password-stdin < pass.txt`,
		Args: cobra.NoArgs,
		RunE: runBiomarkersCmd,
	}

	addPortalFlags(cmd, config.PortalFunctionHealth)
	addOutputFlags(cmd, "Write rows to file path instead of stdout")

	return cmd
}

// runBiomarkersCmd executes the biomarkers command.
func runBiomarkersCmd(cmd *cobra.Command, _ []string) error {
	run, err := preparePortalRun(cmd, sourceResultsPage)
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

	return userError(runBiomarkers(ctx, cmd, run, deps, cred))
}

// runBiomarkers scrapes the results page and writes the biomarker table.
func runBiomarkers(ctx context.Context, cmd *cobra.Command, run *portalRun, deps portalDeps, cred *model.Credential) error {
	ledger := openLedger(run.cfg, run.logger)
	if ledger != nil {
		defer ledger.Close()
	}

	p := pipeline.BiomarkerPipeline(deps.scraper, run.portalCfg, pipeline.WithLogger(run.logger))
	job := model.NewImportJob(run.opts.portal, cred, "")

	return record(ctx, ledger, run.logger, database.KindBiomarkers, run.opts.portal, func() (runOutcome, error) {
		if err := pipeline.ExecuteExclusive(ctx, p, importGuard, job); err != nil {
			return runOutcome{}, err
		}

		if len(job.Biomarkers) == 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "No biomarker results found on %s.\n", run.portalCfg.Name)
		}

		data, err := renderTable(run.cfg, model.NewBiomarkerTable(job.Biomarkers))
		if err != nil {
			return runOutcome{}, err
		}
		if err := writeOutput(run.cfg, cmd.OutOrStdout(), data); err != nil {
			return runOutcome{}, err
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "Imported %d biomarkers from %s\n", len(job.Biomarkers), run.portalCfg.Name)
		return runOutcome{rows: len(job.Biomarkers), output: data}, nil
	})
}
