package model

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"testing"
)

// TestCredential tests secret handling.
func TestCredential(t *testing.T) {
	t.Parallel()

	t.Run("copies the secret", func(t *testing.T) {
		t.Parallel()

		secret := []byte("hunter2")
		cred := NewCredential("jane@example.com", secret)
		secret[0] = 'X'
		if cred.Secret() != "hunter2" {
			t.Errorf("expected credential to own its copy, got %q", cred.Secret())
		}
	})

	t.Run("Erase zeroes the secret", func(t *testing.T) {
		t.Parallel()

		cred := NewCredential("jane@example.com", []byte("hunter2"))
		backing := cred.secret
		cred.Erase()

		if !cred.Erased() {
			t.Error("expected credential to be erased")
		}
		if cred.Email != "" || cred.Secret() != "" {
			t.Error("expected e-mail and secret to be cleared")
		}
		if !bytes.Equal(backing, make([]byte, len(backing))) {
			t.Errorf("expected backing array zeroed, got %q", backing)
		}
	})

	t.Run("never formats the secret", func(t *testing.T) {
		t.Parallel()

		cred := NewCredential("jane@example.com", []byte("hunter2"))
		if s := fmt.Sprint(cred); strings.Contains(s, "hunter2") {
			t.Errorf("secret leaked through fmt: %s", s)
		}

		var buf bytes.Buffer
		slog.New(slog.NewTextHandler(&buf, nil)).Info("login", "cred", cred)
		if strings.Contains(buf.String(), "hunter2") || strings.Contains(buf.String(), "jane@") {
			t.Errorf("credential leaked through slog: %s", buf.String())
		}
	})
}

// TestSessionToken tests cookie set handling.
func TestSessionToken(t *testing.T) {
	t.Parallel()

	src := map[string]string{"sid": "abc", "csrf": "def"}
	tok := NewSessionToken(src)
	src["sid"] = "changed"

	if tok.Cookies()["sid"] != "abc" {
		t.Error("expected token to own its cookies")
	}
	if tok.Len() != 2 {
		t.Errorf("expected 2 cookies, got %d", tok.Len())
	}
	if names := tok.Names(); names[0] != "csrf" || names[1] != "sid" {
		t.Errorf("expected sorted names, got %v", names)
	}

	var buf bytes.Buffer
	slog.New(slog.NewTextHandler(&buf, nil)).Info("session", "token", tok)
	if strings.Contains(buf.String(), "abc") {
		t.Errorf("cookie value leaked through slog: %s", buf.String())
	}
}

// TestStatusFunc tests nil-safe progress reporting.
func TestStatusFunc(t *testing.T) {
	t.Parallel()

	var nilFunc StatusFunc
	nilFunc.Report("ignored")

	var got []string
	f := StatusFunc(func(m string) { got = append(got, m) })
	f.Report("a")
	f.Report("b")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("unexpected messages %v", got)
	}
}

// TestTableRecords tests column-keyed rows.
func TestTableRecords(t *testing.T) {
	t.Parallel()

	table := NewLabTable([]LabResultRecord{{TestName: "Glucose", DesiredRange: "70-99", Result: "85"}})
	table.Rows = append(table.Rows, []string{"short"})

	recs := table.Records()
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0]["Result"] != "85" {
		t.Errorf("unexpected record %v", recs[0])
	}
	if v, ok := recs[1]["Desired Range"]; !ok || v != "" {
		t.Errorf("expected missing cells as empty strings, got %v", recs[1])
	}
}
