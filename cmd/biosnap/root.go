package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for biosnap.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "biosnap",
		Short: "Import, extract and redact personal health reports",
		Long: `biosnap collects personal health data into plain tables.

It logs into lab portals with a headless browser to import gut health
reports, extracts test results from lab report PDFs, and redacts patient
identifying details from medical documents before they are shared.

Every run is recorded in a local ledger (see "biosnap history"). The
ledger stores run metadata and output digests, never report contents.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .biosnap in current or home directory)")

	// Add subcommands
	cmd.AddCommand(NewImportCmd())
	cmd.AddCommand(NewTestsCmd())
	cmd.AddCommand(NewBiomarkersCmd())
	cmd.AddCommand(NewExtractCmd())
	cmd.AddCommand(NewRedactCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
