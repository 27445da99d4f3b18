package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"github.com/nao1215/biosnap/internal/model"
)

// Driver is the remote-controlled browser used by an Acquirer.
// All methods except Launch and Close act on the current page and must return
// once ctx is done.
type Driver interface {
	// Launch starts the browser. It lives until Close, or until ctx is cancelled.
	Launch(ctx context.Context) error

	// Navigate opens url and waits for the page load.
	Navigate(ctx context.Context, url string) error

	// WaitVisible waits until the CSS selector matches a visible element.
	WaitVisible(ctx context.Context, selector string) error

	// SendKeys types text into the element matching the CSS selector.
	SendKeys(ctx context.Context, selector, text string) error

	// Submit submits the form of the element matching the CSS selector.
	Submit(ctx context.Context, selector string) error

	// ClickButton clicks the first button whose text contains text.
	ClickButton(ctx context.Context, text string) error

	// Location returns the current page URL.
	Location(ctx context.Context) (string, error)

	// Cookies returns the browser's cookies by name.
	Cookies(ctx context.Context) (map[string]string, error)

	// Extract returns the elements matching the CSS selector in document order.
	// For each element, every field selector is matched against its descendants
	// and their rendered texts are returned in the same order as fields.
	Extract(ctx context.Context, selector string, fields []string) ([]model.PageElement, error)

	// Close stops the browser. It is safe to call more than once.
	Close() error
}

// ChromeOptions configures a ChromeDriver.
type ChromeOptions struct {
	// Headless runs Chrome without a window.
	Headless bool

	// ExecPath is the Chrome or Chromium executable. Empty lets chromedp search.
	ExecPath string

	// UserAgent overrides the browser user agent when set.
	UserAgent string

	// StartTimeout bounds the browser start in Launch.
	StartTimeout time.Duration
}

// ChromeDriver is a Driver backed by a local Chrome over the DevTools protocol.
type ChromeDriver struct {
	opts ChromeOptions

	ctx         context.Context
	cancelAlloc context.CancelFunc
	cancelTab   context.CancelFunc
}

// NewChromeDriver creates a driver. No process is started until Launch.
func NewChromeDriver(opts ChromeOptions) *ChromeDriver {
	return &ChromeDriver{opts: opts}
}

// allocatorOptions returns the exec allocator flags for the configured options.
func (d *ChromeDriver) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", d.opts.Headless),
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1920, 1080),
	)
	if d.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(d.opts.ExecPath))
	}
	if d.opts.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(d.opts.UserAgent))
	}
	return opts
}

// Launch implements Driver.
func (d *ChromeDriver) Launch(ctx context.Context) error {
	if d.ctx != nil {
		return nil
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, d.allocatorOptions()...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	d.ctx, d.cancelAlloc, d.cancelTab = tabCtx, cancelAlloc, cancelTab

	// The first Run allocates the browser and must use the tab context itself:
	// cancelling a context derived for it would stop the whole browser.
	// A slow start is aborted by cancelling the tab instead.
	var timedOut atomic.Bool
	if d.opts.StartTimeout > 0 {
		timer := time.AfterFunc(d.opts.StartTimeout, func() {
			timedOut.Store(true)
			cancelTab()
		})
		defer timer.Stop()
	}

	if err := chromedp.Run(tabCtx); err != nil {
		_ = d.Close()
		if timedOut.Load() {
			return fmt.Errorf("failed to start browser: %w", context.DeadlineExceeded)
		}
		return fmt.Errorf("failed to start browser: %w", err)
	}
	return nil
}

// run executes actions on the browser tab, bounded by ctx.
// The tab context outlives ctx, so a finished step never closes the browser.
func (d *ChromeDriver) run(ctx context.Context, actions ...chromedp.Action) error {
	if d.ctx == nil {
		return ErrNotLaunched
	}

	runCtx, cancel := context.WithCancel(d.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// Navigate implements Driver.
func (d *ChromeDriver) Navigate(ctx context.Context, url string) error {
	return d.run(ctx, chromedp.Navigate(url))
}

// WaitVisible implements Driver.
func (d *ChromeDriver) WaitVisible(ctx context.Context, selector string) error {
	return d.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

// SendKeys implements Driver.
func (d *ChromeDriver) SendKeys(ctx context.Context, selector, text string) error {
	return d.run(ctx, chromedp.SendKeys(selector, text, chromedp.ByQuery))
}

// Submit implements Driver. It presses Enter in the field, which is how the
// login forms we target expect to be sent.
func (d *ChromeDriver) Submit(ctx context.Context, selector string) error {
	return d.run(ctx, chromedp.SendKeys(selector, kb.Enter, chromedp.ByQuery))
}

// ClickButton implements Driver.
func (d *ChromeDriver) ClickButton(ctx context.Context, text string) error {
	return d.run(ctx, chromedp.Click(buttonXPath(text), chromedp.BySearch))
}

// Location implements Driver.
func (d *ChromeDriver) Location(ctx context.Context) (string, error) {
	var url string
	if err := d.run(ctx, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

// Cookies implements Driver.
func (d *ChromeDriver) Cookies(ctx context.Context) (map[string]string, error) {
	cookies := make(map[string]string)
	err := d.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		got, err := network.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		for _, c := range got {
			cookies[c.Name] = c.Value
		}
		return nil
	}))
	if err != nil {
		return nil, err
	}
	return cookies, nil
}

// Extract implements Driver. The page is read in a single evaluation, so the
// result is one consistent snapshot of the DOM.
func (d *ChromeDriver) Extract(ctx context.Context, selector string, fields []string) ([]model.PageElement, error) {
	var elements []model.PageElement
	if err := d.run(ctx, chromedp.Evaluate(extractScript(selector, fields), &elements)); err != nil {
		return nil, err
	}
	return elements, nil
}

// Close implements Driver.
func (d *ChromeDriver) Close() error {
	if d.ctx == nil {
		return nil
	}
	var err error
	if c := chromedp.FromContext(d.ctx); c != nil && c.Browser != nil {
		err = chromedp.Cancel(d.ctx)
	}
	d.cancelTab()
	d.cancelAlloc()
	d.ctx, d.cancelTab, d.cancelAlloc = nil, nil, nil
	return err
}

// extractScript returns the JavaScript expression evaluated by Extract.
// Selectors are embedded as JSON string literals, which JavaScript reads verbatim.
func extractScript(selector string, fields []string) string {
	if fields == nil {
		fields = []string{}
	}
	sel, _ := json.Marshal(selector)
	fs, _ := json.Marshal(fields)
	return fmt.Sprintf(`Array.from(document.querySelectorAll(%s)).map(el => ({
  tag: el.tagName.toLowerCase(),
  text: (el.innerText || "").trim(),
  fields: %s.map(f => f ? Array.from(el.querySelectorAll(f)).map(x => (x.innerText || "").trim()) : [])
}))`, sel, fs)
}

// buttonXPath returns an XPath matching buttons whose text contains text.
func buttonXPath(text string) string {
	return "//button[contains(., " + xpathLiteral(text) + ")]"
}

// xpathLiteral quotes s as an XPath 1.0 string literal.
// XPath has no escape sequences, so a value holding both quote kinds is built with concat().
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, 0, 2*len(parts))
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		quoted = append(quoted, "'"+p+"'")
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}
