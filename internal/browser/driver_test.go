package browser

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestChromeDriver_BeforeLaunch(t *testing.T) {
	t.Parallel()

	d := NewChromeDriver(ChromeOptions{Headless: true})

	if err := d.Navigate(context.Background(), "https://example.com"); !errors.Is(err, ErrNotLaunched) {
		t.Errorf("Navigate: expected ErrNotLaunched, got %v", err)
	}
	if _, err := d.Location(context.Background()); !errors.Is(err, ErrNotLaunched) {
		t.Errorf("Location: expected ErrNotLaunched, got %v", err)
	}
	if _, err := d.Cookies(context.Background()); !errors.Is(err, ErrNotLaunched) {
		t.Errorf("Cookies: expected ErrNotLaunched, got %v", err)
	}
	if _, err := d.Extract(context.Background(), "h4", nil); !errors.Is(err, ErrNotLaunched) {
		t.Errorf("Extract: expected ErrNotLaunched, got %v", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("Close before Launch should be a no-op, got %v", err)
	}
}

func TestChromeDriver_AllocatorOptions(t *testing.T) {
	t.Parallel()

	base := len(NewChromeDriver(ChromeOptions{}).allocatorOptions())
	full := len(NewChromeDriver(ChromeOptions{
		ExecPath:     "/usr/bin/chromium",
		UserAgent:    "biosnap-test",
		StartTimeout: time.Second,
	}).allocatorOptions())

	if full != base+2 {
		t.Errorf("expected exec path and user agent options, got %d vs %d", full, base)
	}
}

func TestButtonXPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "plain text", text: "Got it", want: `//button[contains(., 'Got it')]`},
		{name: "close symbol", text: "×", want: `//button[contains(., '×')]`},
		{name: "apostrophe", text: "Don't show", want: `//button[contains(., "Don't show")]`},
		{name: "both quotes", text: `It's "ok"`, want: `//button[contains(., concat('It', "'", 's "ok"'))]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := buttonXPath(tt.text); got != tt.want {
				t.Errorf("buttonXPath(%q) = %s, want %s", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtractScript(t *testing.T) {
	t.Parallel()

	t.Run("embeds selectors as string literals", func(t *testing.T) {
		t.Parallel()

		script := extractScript(`h4, div[class*='Result']`, []string{"[class^='Name']", `a[title="x"]`})
		for _, want := range []string{
			`document.querySelectorAll("h4, div[class*='Result']")`,
			`["[class^='Name']","a[title=\"x\"]"].map(`,
		} {
			if !strings.Contains(script, want) {
				t.Errorf("expected %s in script:\n%s", want, script)
			}
		}
	})

	t.Run("nil fields become an empty list", func(t *testing.T) {
		t.Parallel()

		if script := extractScript("h4", nil); !strings.Contains(script, "[].map(") {
			t.Errorf("expected empty field list, got:\n%s", script)
		}
	})
}
