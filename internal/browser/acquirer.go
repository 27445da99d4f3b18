package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nao1215/biosnap/internal/config"
	"github.com/nao1215/biosnap/internal/model"
)

// popupTimeout bounds each best-effort popup dismissal.
// Most pages show no popup at all, so this is kept far below the step timeout.
const popupTimeout = 2 * time.Second

// defaultLoginMarker is used when a portal does not name its login URL fragment.
const defaultLoginMarker = "/login"

// Acquirer logs into a portal with a remote-controlled browser and captures the
// resulting session cookies.
type Acquirer struct {
	newDriver    func() Driver
	logger       *slog.Logger
	status       model.StatusFunc
	stepTimeout  time.Duration
	pollInterval time.Duration
	pollAttempts int
}

// Option configures an Acquirer.
type Option func(*Acquirer)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Acquirer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithStatus sets the progress callback.
func WithStatus(status model.StatusFunc) Option {
	return func(a *Acquirer) {
		a.status = status
	}
}

// WithStepTimeout bounds every single browser wait.
func WithStepTimeout(d time.Duration) Option {
	return func(a *Acquirer) {
		if d > 0 {
			a.stepTimeout = d
		}
	}
}

// WithAuthPolling sets how the post-login URL is polled.
func WithAuthPolling(interval time.Duration, attempts int) Option {
	return func(a *Acquirer) {
		if interval > 0 {
			a.pollInterval = interval
		}
		if attempts > 0 {
			a.pollAttempts = attempts
		}
	}
}

// NewAcquirer creates an Acquirer. newDriver is called once per acquisition,
// so every login runs in a fresh browser.
func NewAcquirer(newDriver func() Driver, opts ...Option) *Acquirer {
	a := &Acquirer{
		newDriver:    newDriver,
		logger:       slog.Default(),
		stepTimeout:  config.DefaultStepTimeout,
		pollInterval: config.DefaultAuthPollInterval,
		pollAttempts: config.DefaultAuthPollAttempts,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewChromeAcquirer creates an Acquirer driving Chrome with the settings in cfg.
func NewChromeAcquirer(cfg *config.Config, opts ...Option) *Acquirer {
	chrome := ChromeOptions{
		Headless:     cfg.Headless,
		ExecPath:     cfg.BrowserPath,
		UserAgent:    cfg.UserAgent,
		StartTimeout: cfg.StepTimeout,
	}
	base := []Option{
		WithStepTimeout(cfg.StepTimeout),
		WithAuthPolling(cfg.AuthPollInterval, cfg.AuthPollAttempts),
	}
	return NewAcquirer(func() Driver { return NewChromeDriver(chrome) }, append(base, opts...)...)
}

// session tracks one acquisition.
type session struct {
	a      *Acquirer
	driver Driver
	portal config.PortalConfig
	state  State
}

// Acquire logs into portal with cred, opens each target page and returns the
// session cookies. With no targets, the portal's TargetPages are opened.
//
// A login that never leaves the login page is an *model.AuthenticationError.
// Every other browser fault or timeout is an *model.AutomationError whose Stage is
// the last state reached. The browser is closed on every path; a close failure is
// only returned when nothing failed before it.
//
// Acquire does not erase cred. Callers erase it as soon as Acquire returns.
func (a *Acquirer) Acquire(ctx context.Context, cred *model.Credential, portal config.PortalConfig, targets ...string) (model.SessionToken, error) {
	if len(targets) == 0 {
		targets = portal.TargetPages
	}

	var token model.SessionToken
	err := a.withSession(ctx, cred, portal, func(s *session) error {
		for _, target := range targets {
			if err := s.open(ctx, target); err != nil {
				return err
			}
		}
		s.advance(StateNavigated)

		a.status.Report("Extracting session data")
		var cookies map[string]string
		if err := s.step(ctx, func(ctx context.Context) error {
			var err error
			cookies, err = s.driver.Cookies(ctx)
			return err
		}); err != nil {
			return s.fault(err)
		}
		s.advance(StateSessionExtracted)

		token = model.NewSessionToken(cookies)
		a.logger.Info("session acquired", "portal", portal.Name, "cookies", token.Len())
		return nil
	})
	if err != nil {
		return model.SessionToken{}, err
	}
	return token, nil
}

// Scrape logs into portal with cred, opens its results page and returns the
// elements matched by the portal's scrape settings, in document order.
// Errors and browser cleanup are as for Acquire; cred is not erased.
func (a *Acquirer) Scrape(ctx context.Context, cred *model.Credential, portal config.PortalConfig) ([]model.PageElement, error) {
	sc := portal.Scrape
	if !sc.Enabled() {
		return nil, fmt.Errorf("%w: %s has no results page", ErrIncompletePortal, portal.Name)
	}

	var elements []model.PageElement
	err := a.withSession(ctx, cred, portal, func(s *session) error {
		if err := s.open(ctx, sc.URL); err != nil {
			return err
		}
		if sc.Ready != "" {
			if err := s.step(ctx, func(ctx context.Context) error { return s.driver.WaitVisible(ctx, sc.Ready) }); err != nil {
				return s.fault(err)
			}
		}
		s.advance(StateNavigated)

		a.status.Report("Reading results")
		if err := s.step(ctx, func(ctx context.Context) error {
			var err error
			elements, err = s.driver.Extract(ctx, sc.Items, sc.Fields())
			return err
		}); err != nil {
			return s.fault(err)
		}
		s.advance(StateContentExtracted)

		a.logger.Info("results page read", "portal", portal.Name, "elements", len(elements))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return elements, nil
}

// withSession launches a browser, logs in with cred and runs fn once the login
// is verified. The browser is closed when withSession returns.
func (a *Acquirer) withSession(ctx context.Context, cred *model.Credential, portal config.PortalConfig, fn func(*session) error) (err error) {
	if cred == nil || cred.Erased() {
		return ErrNoCredential
	}
	if portal.LoginURL == "" || portal.EmailSelector == "" || portal.PasswordSelector == "" {
		return fmt.Errorf("%w: %s", ErrIncompletePortal, portal.Name)
	}

	s := &session{a: a, driver: a.newDriver(), portal: portal, state: StateIdle}

	defer func() {
		a.status.Report("Closing remote browser")
		closeErr := s.driver.Close()
		if closeErr == nil {
			s.advance(StateBrowserClosed)
			return
		}
		if err != nil {
			a.logger.Warn("failed to close browser", "portal", portal.Name, "error", closeErr)
			return
		}
		err = &model.AutomationError{Stage: StateBrowserClosed.String(), Err: closeErr}
	}()

	a.status.Report("Launching remote browser")
	if err := s.driver.Launch(ctx); err != nil {
		return s.fault(err)
	}
	s.advance(StateBrowserLaunched)

	a.status.Report("Logging into " + portal.Name)
	if err := s.login(ctx, cred); err != nil {
		return err
	}
	if err := s.verify(ctx); err != nil {
		return err
	}
	return fn(s)
}

// open navigates to url and dismisses the portal's popups.
func (s *session) open(ctx context.Context, url string) error {
	s.a.status.Report("Opening " + url)
	if err := s.step(ctx, func(ctx context.Context) error { return s.driver.Navigate(ctx, url) }); err != nil {
		return s.fault(err)
	}
	s.dismissPopups(ctx)
	return nil
}

// advance moves the state machine forward.
func (s *session) advance(next State) {
	s.a.logger.Debug("browser state", "portal", s.portal.Name, "from", s.state.String(), "to", next.String())
	s.state = next
}

// fault wraps err as an AutomationError at the current state.
// Cancellation by the caller is returned as is.
func (s *session) fault(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &model.AutomationError{Stage: s.state.String(), Err: err}
}

// step runs fn bounded by the step timeout.
func (s *session) step(ctx context.Context, fn func(context.Context) error) error {
	stepCtx, cancel := context.WithTimeout(ctx, s.a.stepTimeout)
	defer cancel()
	return fn(stepCtx)
}

// login opens the login page, fills the form and submits it.
func (s *session) login(ctx context.Context, cred *model.Credential) error {
	p := s.portal
	actions := []func(context.Context) error{
		func(ctx context.Context) error { return s.driver.Navigate(ctx, p.LoginURL) },
		func(ctx context.Context) error { return s.driver.WaitVisible(ctx, p.EmailSelector) },
		func(ctx context.Context) error { return s.driver.SendKeys(ctx, p.EmailSelector, cred.Email) },
		func(ctx context.Context) error { return s.driver.WaitVisible(ctx, p.PasswordSelector) },
		func(ctx context.Context) error { return s.driver.SendKeys(ctx, p.PasswordSelector, cred.Secret()) },
		func(ctx context.Context) error { return s.driver.Submit(ctx, p.PasswordSelector) },
	}
	for _, fn := range actions {
		if err := s.step(ctx, fn); err != nil {
			return s.fault(err)
		}
	}
	s.advance(StateCredentialsSubmitted)
	return nil
}

// verify polls the page URL until it leaves the login page.
// The attempt count bounds the wait, so a rejected login fails in bounded time.
func (s *session) verify(ctx context.Context) error {
	marker := s.portal.LoginMarker
	if marker == "" {
		marker = defaultLoginMarker
	}

	var url string
	for attempt := range s.a.pollAttempts {
		if attempt > 0 {
			timer := time.NewTimer(s.a.pollInterval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return s.fault(ctx.Err())
			case <-timer.C:
			}
		}

		if err := s.step(ctx, func(ctx context.Context) error {
			var err error
			url, err = s.driver.Location(ctx)
			return err
		}); err != nil {
			return s.fault(err)
		}
		if !strings.Contains(url, marker) {
			s.advance(StateAuthenticationVerified)
			return nil
		}
	}

	s.a.logger.Debug("login not accepted", "portal", s.portal.Name, "attempts", s.a.pollAttempts)
	return &model.AuthenticationError{Portal: s.portal.Name, URL: url}
}

// dismissPopups clicks the portal's popup buttons. Failures are ignored.
func (s *session) dismissPopups(ctx context.Context) {
	for _, text := range s.portal.DismissButtons {
		popupCtx, cancel := context.WithTimeout(ctx, min(popupTimeout, s.a.stepTimeout))
		if err := s.driver.ClickButton(popupCtx, text); err == nil {
			s.a.logger.Debug("popup dismissed", "portal", s.portal.Name, "button", text)
		}
		cancel()
	}
}
