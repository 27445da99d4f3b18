package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/nao1215/biosnap/internal/config"
	"github.com/nao1215/biosnap/internal/database"
	"github.com/nao1215/biosnap/internal/model"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

// newTestCmd returns a command with captured stdout and stderr.
func newTestCmd(stdin string) (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	cmd := &cobra.Command{}
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	return cmd, &out, &errOut
}

// newTestConfig returns a validated config whose ledger lives in a temp dir.
func newTestConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.NewConfig()
	cfg.DBDir = t.TempDir()
	cfg.Portals = config.NewFile()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("invalid test config: %v", err)
	}
	return cfg
}

// listRuns returns the runs recorded in cfg's ledger.
func listRuns(t *testing.T, cfg *config.Config) []database.Run {
	t.Helper()

	ledger, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open ledger: %v", err)
	}
	defer ledger.Close()

	runs, err := ledger.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	return runs
}

func TestReadCredential(t *testing.T) {
	t.Run("reads password from stdin", func(t *testing.T) {
		t.Setenv(envPassword, "from-env")

		cmd, _, _ := newTestCmd("s3cret\r\nignored\n")
		cred, err := readCredential(cmd, " jane@example.com ", true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cred.Email != "jane@example.com" || cred.Secret() != "s3cret" {
			t.Errorf("unexpected credential %q", cred.Email)
		}
	})

	t.Run("reads password without trailing newline", func(t *testing.T) {
		cmd, _, _ := newTestCmd("s3cret")
		cred, err := readCredential(cmd, "jane@example.com", true)
		if err != nil || cred.Secret() != "s3cret" {
			t.Errorf("unexpected result: %v", err)
		}
	})

	t.Run("reads password and email from environment", func(t *testing.T) {
		t.Setenv(envEmail, "env@example.com")
		t.Setenv(envPassword, "from-env")

		cmd, _, _ := newTestCmd("")
		cred, err := readCredential(cmd, "", false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cred.Email != "env@example.com" || cred.Secret() != "from-env" {
			t.Errorf("unexpected credential %q", cred.Email)
		}
	})

	t.Run("requires an email", func(t *testing.T) {
		t.Setenv(envEmail, "")

		cmd, _, _ := newTestCmd("pw\n")
		if _, err := readCredential(cmd, "", true); !errors.Is(err, ErrNoEmail) {
			t.Errorf("expected ErrNoEmail, got %v", err)
		}
	})

	t.Run("requires a password", func(t *testing.T) {
		t.Setenv(envPassword, "")

		cmd, _, _ := newTestCmd("\n")
		if _, err := readCredential(cmd, "jane@example.com", true); !errors.Is(err, ErrNoPassword) {
			t.Errorf("expected ErrNoPassword from empty stdin, got %v", err)
		}
		if _, err := readCredential(cmd, "jane@example.com", false); !errors.Is(err, ErrNoPassword) {
			t.Errorf("expected ErrNoPassword from empty env, got %v", err)
		}
	})
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	t.Run("fails for explicit missing file", func(t *testing.T) {
		t.Parallel()

		cmd := NewRootCmd()
		if err := cmd.PersistentFlags().Set("config", filepath.Join(t.TempDir(), "missing.yaml")); err != nil {
			t.Fatal(err)
		}
		if _, err := loadConfig(cmd); !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("loads explicit file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "biosnap.yaml")
		content := "redaction:\n  extraNames:\n    - Jane Example\n"
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		cmd := NewRootCmd()
		if err := cmd.PersistentFlags().Set("config", path); err != nil {
			t.Fatal(err)
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(cfg.Portals.Redaction.ExtraNames) != 1 {
			t.Errorf("unexpected redaction config %+v", cfg.Portals.Redaction)
		}
	})
}

func TestWriteOutput(t *testing.T) {
	t.Parallel()

	t.Run("writes to stdout without a path", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		cfg := config.NewConfig()
		if err := writeOutput(cfg, &out, []byte("a,b\n")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.String() != "a,b\n" {
			t.Errorf("unexpected output %q", out.String())
		}
	})

	t.Run("writes owner-only file with parents", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.OutputPath = filepath.Join(t.TempDir(), "nested", "rows.csv")
		if err := writeOutput(cfg, &bytes.Buffer{}, []byte("a,b\n")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		info, err := os.Stat(cfg.OutputPath)
		if err != nil {
			t.Fatalf("stat: %v", err)
		}
		if info.Mode().Perm()&0o077 != 0 {
			t.Errorf("expected owner-only permissions, got %o", info.Mode().Perm())
		}
	})
}

func TestRecord(t *testing.T) {
	t.Parallel()

	t.Run("records success with digest", func(t *testing.T) {
		t.Parallel()

		cfg := newTestConfig(t)
		ledger := openLedger(cfg, quietLogger())
		err := record(context.Background(), ledger, quietLogger(), database.KindExtract, "labs.pdf", func() (runOutcome, error) {
			return runOutcome{rows: 3, output: []byte("rows")}, nil
		})
		_ = ledger.Close()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		runs := listRuns(t, cfg)
		if len(runs) != 1 || runs[0].Status != database.StatusSucceeded || runs[0].Digest != database.Digest([]byte("rows")) {
			t.Errorf("unexpected runs %+v", runs)
		}
	})

	t.Run("returns the run error and records failure", func(t *testing.T) {
		t.Parallel()

		cfg := newTestConfig(t)
		ledger := openLedger(cfg, quietLogger())
		docErr := &model.DocumentError{Op: "extract", Err: errors.New("broken xref")}
		err := record(context.Background(), ledger, quietLogger(), database.KindExtract, "labs.pdf", func() (runOutcome, error) {
			return runOutcome{}, docErr
		})
		_ = ledger.Close()
		if !errors.Is(err, docErr) {
			t.Fatalf("expected document error, got %v", err)
		}

		runs := listRuns(t, cfg)
		if len(runs) != 1 || runs[0].Status != database.StatusFailed {
			t.Errorf("unexpected runs %+v", runs)
		}
		if strings.Contains(runs[0].Error, "broken xref") {
			t.Error("expected only the user message to be stored")
		}
	})

	t.Run("runs without a ledger", func(t *testing.T) {
		t.Parallel()

		called := false
		err := record(context.Background(), nil, quietLogger(), database.KindRedact, "x.pdf", func() (runOutcome, error) {
			called = true
			return runOutcome{}, nil
		})
		if err != nil || !called {
			t.Errorf("expected fn to run, err %v", err)
		}
	})

	t.Run("history disabled opens no ledger", func(t *testing.T) {
		t.Parallel()

		cfg := newTestConfig(t)
		cfg.SaveHistory = false
		if openLedger(cfg, quietLogger()) != nil {
			t.Error("expected nil ledger")
		}
	})
}

func TestUserError(t *testing.T) {
	t.Parallel()

	authErr := &model.AuthenticationError{Portal: "Thorne"}
	plain := errors.New("configuration error")

	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "returns nil for nil", err: nil, want: ""},
		{name: "rewrites authentication error", err: authErr, want: "Login failed, please check your Thorne credentials."},
		{
			name: "rewrites wrapped not found error",
			err:  &model.NotFoundError{Requested: "01/01/2025", Available: []string{"03/14/2025"}},
			want: "No report found for 01/01/2025. Available dates: 03/14/2025",
		},
		{name: "keeps plain errors", err: plain, want: "configuration error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := userError(tt.err)
			if tt.err == nil {
				if got != nil {
					t.Errorf("expected nil, got %v", got)
				}
				return
			}
			if got.Error() != tt.want {
				t.Errorf("got %q, want %q", got.Error(), tt.want)
			}
			if !errors.Is(got, tt.err) {
				t.Error("expected the original error to stay reachable")
			}
		})
	}
}
