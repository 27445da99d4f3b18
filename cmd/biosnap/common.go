package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/biosnap/internal/config"
	"github.com/nao1215/biosnap/internal/database"
	"github.com/nao1215/biosnap/internal/log"
	"github.com/nao1215/biosnap/internal/model"
	"github.com/nao1215/biosnap/internal/report"
)

// Environment variables read by portal commands.
const (
	envEmail    = "BIOSNAP_EMAIL"
	envPassword = "BIOSNAP_PASSWORD"
)

var (
	// ErrNoEmail is returned when no portal account was given.
	ErrNoEmail = errors.New("no email given (use --email or " + envEmail + ")")

	// ErrNoPassword is returned when no portal password was given.
	ErrNoPassword = errors.New("no password given (set " + envPassword + " or use --password-stdin)")

	// ErrNoInputs is returned when a document command has no arguments.
	ErrNoInputs = errors.New("no input documents given")

	// ErrDocumentsFailed is returned when some documents of a batch failed.
	ErrDocumentsFailed = errors.New("some documents failed")
)

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	return getRootBool(cmd, "verbose")
}

// getRootBool retrieves a global bool flag from the command or the root.
func getRootBool(cmd *cobra.Command, name string) bool {
	value, err := cmd.Flags().GetBool(name)
	if err != nil {
		value, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return value
}

// getRootString retrieves a global string flag from the command or the root.
func getRootString(cmd *cobra.Command, name string) string {
	value, err := cmd.Flags().GetString(name)
	if err != nil {
		value, err = cmd.Root().PersistentFlags().GetString(name)
		if err != nil {
			return ""
		}
	}
	return value
}

// setupLogger creates the secure logger for a command.
// Credentials, cookies and e-mail addresses are masked in every record.
func setupLogger(cmd *cobra.Command) *slog.Logger {
	verbose := getVerboseFlag(cmd)
	if getRootBool(cmd, "log-json") {
		return log.NewSecureJSONLogger(cmd.ErrOrStderr(), verbose)
	}
	return log.NewSecureLogger(cmd.ErrOrStderr(), verbose)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// loadConfig creates a Config with the configuration file applied.
// If the user explicitly named a config file, a missing file is an error;
// otherwise built-in settings are used.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error
	cfg.ConfigFilePath = getRootString(cmd, "config")
	cfg.Verbose = getVerboseFlag(cmd)

	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.Portals, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.Portals = config.NewFile()
	}

	return cfg, nil
}

// applyOutputFlags copies the --format, --output and --no-history flags into cfg.
func applyOutputFlags(cmd *cobra.Command, cfg *config.Config) error {
	var err error
	if cfg.OutputFormat, err = cmd.Flags().GetString("format"); err != nil {
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
	return nil
}

// addOutputFlags registers the flags read by applyOutputFlags.
func addOutputFlags(cmd *cobra.Command, outputUsage string) {
	cmd.Flags().StringP("format", "f", config.FormatCSV,
		"Output format: "+strings.Join(config.SupportedFormats, ", "))
	cmd.Flags().StringP("output", "o", "", outputUsage)
	cmd.Flags().Bool("no-history", false, "Do not record this run in the history ledger")
}

// renderTable renders table in the configured format.
func renderTable(cfg *config.Config, table model.Table) ([]byte, error) {
	var buf bytes.Buffer
	w, err := report.NewWriter(cfg.OutputFormat, &buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(table); err != nil {
		return nil, fmt.Errorf("failed to render table: %w", err)
	}
	return buf.Bytes(), nil
}

// writeOutput writes data to cfg.OutputPath, or to stdout when no path is set.
func writeOutput(cfg *config.Config, stdout io.Writer, data []byte) error {
	if cfg.OutputPath == "" {
		_, err := stdout.Write(data)
		return err
	}
	return writePrivateFile(cfg.OutputPath, data)
}

// writePrivateFile creates or truncates path with owner-only permissions,
// creating parent directories as needed. Health data should only be readable by the owner.
func writePrivateFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// readCredential builds the portal credential from flags and the environment.
// The password comes from stdin when fromStdin is set, otherwise from
// BIOSNAP_PASSWORD. It is never accepted as a flag value.
func readCredential(cmd *cobra.Command, email string, fromStdin bool) (*model.Credential, error) {
	if email == "" {
		email = os.Getenv(envEmail)
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, ErrNoEmail
	}

	var secret []byte
	if fromStdin {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to read password: %w", err)
		}
		secret = bytes.TrimRight(line, "\r\n")
	} else {
		secret = []byte(os.Getenv(envPassword))
	}
	if len(secret) == 0 {
		return nil, ErrNoPassword
	}

	return model.NewCredential(email, secret), nil
}

// statusPrinter writes progress lines to w.
func statusPrinter(w io.Writer) model.StatusFunc {
	return func(msg string) {
		fmt.Fprintf(w, "%s...\n", msg)
	}
}

// openLedger opens the history ledger, or returns nil when history is disabled.
// A ledger that cannot be opened is logged and skipped: history never blocks a run.
func openLedger(cfg *config.Config, logger *slog.Logger) *database.Ledger {
	if !cfg.SaveHistory {
		return nil
	}
	ledger, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		logger.Warn("history ledger unavailable", "dir", cfg.DBDir, "error", err)
		return nil
	}
	return ledger
}

// runOutcome is what a recorded run produced.
type runOutcome struct {
	rows   int
	output []byte
}

// record runs fn and stores its outcome in ledger. A nil ledger runs fn only.
// Ledger failures are logged and never replace fn's result.
func record(ctx context.Context, ledger *database.Ledger, logger *slog.Logger, kind database.Kind, source string, fn func() (runOutcome, error)) error {
	if ledger == nil {
		_, err := fn()
		return err
	}

	run, err := ledger.Begin(ctx, kind, source)
	if err != nil {
		logger.Warn("failed to record run", "kind", kind, "error", err)
		_, err := fn()
		return err
	}

	outcome, runErr := fn()
	// The run is recorded even when ctx was cancelled.
	if err := ledger.Finish(context.WithoutCancel(ctx), run, outcome.rows, outcome.output, runErr); err != nil {
		logger.Warn("failed to finish run", "id", run.ID, "error", err)
	}
	logger.Debug("run recorded", "id", run.ID, "kind", kind, "status", run.Status)
	return runErr
}

// displayError carries a user-facing message for a typed fault while keeping
// the original error for errors.Is and errors.As.
type displayError struct {
	msg string
	err error
}

func (e *displayError) Error() string { return e.msg }
func (e *displayError) Unwrap() error { return e.err }

// userError replaces the text of typed faults with guidance from
// model.UserMessage. Other errors are returned unchanged.
func userError(err error) error {
	var (
		authErr     *model.AuthenticationError
		notFoundErr *model.NotFoundError
		autoErr     *model.AutomationError
		docErr      *model.DocumentError
	)
	switch {
	case err == nil:
		return nil
	case errors.As(err, &authErr), errors.As(err, &notFoundErr),
		errors.As(err, &autoErr), errors.As(err, &docErr):
		return &displayError{msg: model.UserMessage(err), err: err}
	default:
		return err
	}
}
