package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/biosnap/internal/config"
	"github.com/nao1215/biosnap/internal/database"
)

func TestRunHistory(t *testing.T) {
	t.Parallel()

	t.Run("reports empty history without creating a ledger", func(t *testing.T) {
		t.Parallel()

		cfg := newTestConfig(t)
		cmd, out, _ := newTestCmd("")
		if err := runHistory(context.Background(), cmd, cfg, 10, time.Now()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.TrimSpace(out.String()) != "No history yet." {
			t.Errorf("unexpected output %q", out.String())
		}
	})

	t.Run("lists recorded runs newest first", func(t *testing.T) {
		t.Parallel()

		cfg := newTestConfig(t)
		cfg.OutputFormat = config.FormatCSV
		ledger, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open ledger: %v", err)
		}
		ctx := context.Background()
		for _, source := range []string{"thorne", "labs.pdf"} {
			run, err := ledger.Begin(ctx, database.KindImport, source)
			if err != nil {
				t.Fatal(err)
			}
			if err := ledger.Finish(ctx, run, 4, []byte(source), nil); err != nil {
				t.Fatal(err)
			}
			time.Sleep(2 * time.Millisecond)
		}
		_ = ledger.Close()

		cmd, out, _ := newTestCmd("")
		if err := runHistory(ctx, cmd, cfg, 1, time.Now()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		if len(lines) != 2 {
			t.Fatalf("expected header and 1 row, got %q", out.String())
		}
		if !strings.HasPrefix(lines[0], "Started,Age,Kind,Source,Status") {
			t.Errorf("unexpected header %q", lines[0])
		}
		if !strings.Contains(lines[1], "labs.pdf") || !strings.Contains(lines[1], "succeeded") {
			t.Errorf("expected the newest run, got %q", lines[1])
		}
	})
}

func TestHistoryTable(t *testing.T) {
	t.Parallel()

	started := time.Date(2025, 3, 14, 18, 0, 0, 0, time.UTC)
	runs := []database.Run{
		{
			Kind: database.KindRedact, Source: "scan.pdf", Status: database.StatusSucceeded,
			StartedAt: started, FinishedAt: started.Add(1500 * time.Millisecond),
			RowCount: 7, Digest: strings.Repeat("ab", 32),
		},
		{Kind: database.KindImport, Source: "thorne", Status: database.StatusRunning, StartedAt: started},
	}

	table := historyTable(runs, started.Add(3*time.Hour))
	if len(table.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(table.Rows))
	}

	first := table.Rows[0]
	if first[1] != "3 hours ago" {
		t.Errorf("unexpected age %q", first[1])
	}
	if first[6] != "1.5s" || first[7] != "abababababab" {
		t.Errorf("unexpected elapsed/digest %q %q", first[6], first[7])
	}
	if table.Rows[1][6] != "" || table.Rows[1][7] != "" {
		t.Errorf("running entry should have no elapsed or digest, got %v", table.Rows[1])
	}
}
