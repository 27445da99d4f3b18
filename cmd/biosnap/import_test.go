package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/biosnap/internal/config"
	"github.com/nao1215/biosnap/internal/database"
	"github.com/nao1215/biosnap/internal/model"
	"github.com/nao1215/biosnap/internal/portal"
)

// reportSnapshot is a data API response with two reports on different days.
const reportSnapshot = `[
  {"id":"r-old","createdAt":"2025-01-02T18:00:00Z","bodySections":[
    {"title":"Digestion","results":[{"title":"Bifidobacterium","valueNumeric":0.4,"riskClassification":"NEEDS_SUPPORT"}]}]},
  {"id":"r-new","createdAt":"2025-03-14T18:00:00Z","bodySections":[
    {"title":"Digestion","results":[{"title":"Akkermansia","valueNumeric":1.5,"riskClassification":"OPTIMAL"}]}]}
]`

// fakeAcquirer returns a fixed session without a browser.
type fakeAcquirer struct {
	err error
}

func (f *fakeAcquirer) Acquire(_ context.Context, _ *model.Credential, _ config.PortalConfig, _ ...string) (model.SessionToken, error) {
	if f.err != nil {
		return model.SessionToken{}, f.err
	}
	return model.NewSessionToken(map[string]string{"sid": "s1"}), nil
}

// newDataServer serves reportSnapshot to requests carrying the session cookie.
func newDataServer(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("sid"); err != nil || c.Value != "s1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(reportSnapshot))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// newTestPortalRun returns a portal run against srv.
func newTestPortalRun(t *testing.T, srv *httptest.Server, email string) (*portalRun, portalDeps) {
	t.Helper()

	cfg := newTestConfig(t)
	portalCfg := config.BuiltinPortals()[config.PortalThorne]
	portalCfg.DataURL = srv.URL

	loc, err := cfg.Location()
	if err != nil {
		t.Fatalf("failed to load timezone: %v", err)
	}

	run := &portalRun{
		cfg:       cfg,
		opts:      portalOptions{portal: config.PortalThorne, email: email},
		portalCfg: portalCfg,
		loc:       loc,
		logger:    quietLogger(),
	}
	deps := portalDeps{
		acquirer: &fakeAcquirer{},
		fetcher:  portal.NewFetcher(portalCfg, portal.WithHTTPClient(srv.Client()), portal.WithLogger(quietLogger())),
	}
	return run, deps
}

func TestRunImport(t *testing.T) {
	t.Parallel()

	t.Run("writes the latest report and records the run", func(t *testing.T) {
		t.Parallel()

		run, deps := newTestPortalRun(t, newDataServer(t), "latest@example.com")
		cmd, out, errOut := newTestCmd("")
		cred := model.NewCredential("latest@example.com", []byte("pw"))

		if err := runImport(context.Background(), cmd, run, deps, cred, ""); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := out.String()
		if !strings.HasPrefix(output, "Category,Microbe,Score,Risk,Summary,Insights\n") {
			t.Errorf("unexpected header in %q", output)
		}
		if !strings.Contains(output, "Akkermansia") || strings.Contains(output, "Bifidobacterium") {
			t.Errorf("expected only the latest report, got %q", output)
		}
		if !strings.Contains(errOut.String(), "03/14/2025") {
			t.Errorf("expected summary with selected date, got %q", errOut.String())
		}
		if !cred.Erased() {
			t.Error("expected credential erased")
		}

		runs := listRuns(t, run.cfg)
		if len(runs) != 1 {
			t.Fatalf("expected 1 run, got %d", len(runs))
		}
		if runs[0].Kind != database.KindImport || runs[0].Status != database.StatusSucceeded ||
			runs[0].RowCount != 2 || runs[0].Digest != database.Digest(out.Bytes()) {
			t.Errorf("unexpected run %+v", runs[0])
		}
	})

	t.Run("selects report by date", func(t *testing.T) {
		t.Parallel()

		run, deps := newTestPortalRun(t, newDataServer(t), "bydate@example.com")
		run.cfg.OutputFormat = config.FormatJSON
		cmd, out, _ := newTestCmd("")
		cred := model.NewCredential("bydate@example.com", []byte("pw"))

		if err := runImport(context.Background(), cmd, run, deps, cred, "01/02/2025"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out.String(), `"Microbe": "Bifidobacterium"`) {
			t.Errorf("expected the January report as JSON, got %q", out.String())
		}
	})

	t.Run("unknown date lists available dates", func(t *testing.T) {
		t.Parallel()

		run, deps := newTestPortalRun(t, newDataServer(t), "missing@example.com")
		cmd, out, _ := newTestCmd("")
		cred := model.NewCredential("missing@example.com", []byte("pw"))

		err := runImport(context.Background(), cmd, run, deps, cred, "13/45/2099")
		var notFound *model.NotFoundError
		if !errors.As(err, &notFound) {
			t.Fatalf("expected NotFoundError, got %v", err)
		}
		if strings.Join(notFound.Available, ",") != "01/02/2025,03/14/2025" {
			t.Errorf("unexpected available dates %v", notFound.Available)
		}
		if out.Len() != 0 {
			t.Error("expected no output")
		}

		runs := listRuns(t, run.cfg)
		if len(runs) != 1 || runs[0].Status != database.StatusFailed || runs[0].Error != model.UserMessage(err) {
			t.Errorf("unexpected runs %+v", runs)
		}
	})

	t.Run("failed login is an authentication error", func(t *testing.T) {
		t.Parallel()

		run, deps := newTestPortalRun(t, newDataServer(t), "denied@example.com")
		deps.acquirer = &fakeAcquirer{err: &model.AuthenticationError{Portal: "Thorne"}}
		cmd, _, _ := newTestCmd("")
		cred := model.NewCredential("denied@example.com", []byte("wrong"))

		err := runImport(context.Background(), cmd, run, deps, cred, "")
		var authErr *model.AuthenticationError
		if !errors.As(err, &authErr) {
			t.Fatalf("expected AuthenticationError, got %v", err)
		}
		if !cred.Erased() {
			t.Error("expected credential erased after failed login")
		}
		if got := userError(err).Error(); got != "Login failed, please check your Thorne credentials." {
			t.Errorf("unexpected user message %q", got)
		}
	})

	t.Run("writes to output file", func(t *testing.T) {
		t.Parallel()

		run, deps := newTestPortalRun(t, newDataServer(t), "file@example.com")
		run.cfg.OutputPath = t.TempDir() + "/gut.csv"
		run.cfg.SaveHistory = false
		cmd, out, _ := newTestCmd("")
		cred := model.NewCredential("file@example.com", []byte("pw"))

		if err := runImport(context.Background(), cmd, run, deps, cred, ""); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.Len() != 0 {
			t.Error("expected nothing on stdout")
		}
	})
}

func TestRunTests(t *testing.T) {
	t.Parallel()

	run, deps := newTestPortalRun(t, newDataServer(t), "list@example.com")
	cmd, out, _ := newTestCmd("")
	cred := model.NewCredential("list@example.com", []byte("pw"))

	if err := runTests(context.Background(), cmd, run, deps, cred); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got %q", out.String())
	}
	if lines[0] != "ID,Test,Date,Created" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "r-new,Gut Health Test,03/14/2025,") {
		t.Errorf("expected newest first, got %q", lines[1])
	}

	runs := listRuns(t, run.cfg)
	if len(runs) != 1 || runs[0].Kind != database.KindTests || runs[0].RowCount != 2 {
		t.Errorf("unexpected runs %+v", runs)
	}
}

func TestTestsTable(t *testing.T) {
	t.Parallel()

	loc := time.UTC
	table := testsTable([]model.AvailableTest{
		{ID: "a", Label: "Gut Health Test", RawDate: "garbled", LocalDate: ""},
		{ID: "b", Label: "Gut Health Test", RawDate: "2025-03-14T18:00:00Z", LocalDate: "03/14/2025",
			CreatedAt: time.Date(2025, 3, 14, 18, 0, 0, 0, time.UTC)},
	}, loc)

	if table.Rows[0][3] != "garbled" {
		t.Errorf("expected raw date fallback, got %q", table.Rows[0][3])
	}
	if table.Rows[1][3] != "2025-03-14 18:00 UTC" {
		t.Errorf("unexpected created column %q", table.Rows[1][3])
	}
}

func TestNewImportCmd(t *testing.T) {
	t.Parallel()

	cmd := NewImportCmd()
	for _, name := range []string{"portal", "email", "password-stdin", "date", "format", "output", "no-history", "proxy", "timezone"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected %s flag", name)
		}
	}
	if cmd.Flags().Lookup("password") != nil {
		t.Error("password must not be accepted as a flag")
	}
}
