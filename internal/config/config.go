package config

import (
	"fmt"
	"net"
	"path/filepath"
	"slices"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// Browser timings are sized for consumer portals that render with client-side
// frameworks, where the first paint after login can take several seconds.
const (
	// DefaultTimezone is the reference timezone used to bucket reports by local date.
	// Portal timestamps are UTC; the calendar date a user sees depends on this zone.
	DefaultTimezone = "America/Los_Angeles"

	// DefaultDateLayout is the Go layout of a local date label, e.g. "03/14/2025".
	DefaultDateLayout = "01/02/2006"

	// DefaultStepTimeout bounds every single wait inside the browser session:
	// launch, navigation, element visibility and cookie extraction.
	DefaultStepTimeout = 15 * time.Second

	// DefaultAuthPollInterval is the delay between checks of the post-login URL.
	DefaultAuthPollInterval = 500 * time.Millisecond

	// DefaultAuthPollAttempts is the number of post-login URL checks before the
	// login is declared failed. With the default interval this is 15 seconds.
	DefaultAuthPollAttempts = 30

	// DefaultHTTPTimeout bounds one request to a portal data API.
	DefaultHTTPTimeout = 60 * time.Second

	// DefaultMaxBodySize limits the data API response size.
	// A full report with embedded narrative HTML is well under 2MB.
	DefaultMaxBodySize = 20 * 1024 * 1024 // 20MB

	// DefaultBatchSize is the number of documents processed concurrently by
	// extract and redact. PDF rewriting is memory heavy, so this stays small.
	DefaultBatchSize = 4

	// DefaultDenylistFile is the supplemental name list for diagnostic redaction.
	DefaultDenylistFile = "redact_names.txt"

	// DefaultUserAgent is sent by the browser and by the data API client.
	// Portals serve a degraded page to unknown agents, so this mimics a desktop browser.
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

	// AppName is the application name used for XDG directory paths.
	AppName = "biosnap"
)

// Output formats accepted by Config.OutputFormat.
const (
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// SupportedFormats lists the accepted output formats.
var SupportedFormats = []string{FormatCSV, FormatMarkdown, FormatJSON}

// Config holds all configuration options for biosnap.
// It is populated from CLI flags and the optional .biosnap file, then passed
// through the application rather than kept as global state.
//
// Design decision: a single flat struct, as the option count is manageable.
// Portal-specific settings live in Portals because they vary per portal.
type Config struct {
	// Timezone is the IANA name of the reference timezone for date labels.
	Timezone string

	// StepTimeout bounds each wait inside the browser session.
	StepTimeout time.Duration

	// AuthPollInterval is the delay between post-login URL checks.
	AuthPollInterval time.Duration

	// AuthPollAttempts is the number of post-login URL checks.
	AuthPollAttempts int

	// Headless runs the browser without a window.
	Headless bool

	// BrowserPath is the Chrome or Chromium executable. Empty lets chromedp find one.
	BrowserPath string

	// UserAgent is sent by the browser and the data API client.
	UserAgent string

	// HTTPTimeout bounds a single data API request.
	HTTPTimeout time.Duration

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" form for data API egress.
	ProxyAddress string

	// MaxBodySize is the maximum data API response size in bytes.
	// Set to 0 to use the default (20MB).
	MaxBodySize int64

	// BatchSize is the number of documents processed concurrently.
	BatchSize int

	// DenylistFile is the path of the supplemental redaction name list.
	// A missing file is not an error; redaction proceeds without extra names.
	DenylistFile string

	// OutputFormat is one of SupportedFormats.
	OutputFormat string

	// OutputPath is where tables or redacted documents are written.
	// Empty means stdout for tables and "<name>.redacted.pdf" next to the input for documents.
	OutputPath string

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is an explicit path to the configuration file.
	ConfigFilePath string

	// DBDir is the directory holding the import ledger.
	// Defaults to the XDG data directory (~/.local/share/biosnap on Linux).
	DBDir string

	// SaveHistory records each run in the import ledger.
	SaveHistory bool

	// Portals holds portal and redaction settings loaded from the config file.
	// Nil means built-in portal settings only.
	Portals *File
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Timezone:         DefaultTimezone,
		StepTimeout:      DefaultStepTimeout,
		AuthPollInterval: DefaultAuthPollInterval,
		AuthPollAttempts: DefaultAuthPollAttempts,
		Headless:         true,
		UserAgent:        DefaultUserAgent,
		HTTPTimeout:      DefaultHTTPTimeout,
		MaxBodySize:      DefaultMaxBodySize,
		BatchSize:        DefaultBatchSize,
		DenylistFile:     DefaultDenylistFile,
		OutputFormat:     FormatCSV,
		DBDir:            XDGDataDir(),
		SaveHistory:      true,
	}
}

// XDGDataDir returns the XDG data directory for biosnap.
// On Linux: ~/.local/share/biosnap
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for biosnap.
// On Linux: ~/.config/biosnap
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Location loads the reference timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, c.Timezone)
	}
	return loc, nil
}

// Portal returns the merged settings for a portal key.
// Built-in settings are overlaid with the config file's defaults and then with
// the file's entry for the portal.
func (c *Config) Portal(key string) (PortalConfig, error) {
	file := c.Portals
	if file == nil {
		file = NewFile()
	}
	return file.GetPortalConfig(key)
}

// Validate checks if the configuration is valid.
// It returns the first problem found as a sentinel error.
//
// Design decision: we validate once after CLI parsing so that a bad flag fails
// before a browser is launched or a document is opened.
func (c *Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}

	if c.StepTimeout <= 0 {
		return ErrInvalidStepTimeout
	}

	if c.AuthPollInterval <= 0 || c.AuthPollAttempts <= 0 {
		return ErrInvalidAuthPolling
	}

	if c.HTTPTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if !slices.Contains(SupportedFormats, c.OutputFormat) {
		return fmt.Errorf("%w: %q", ErrInvalidOutputFormat, c.OutputFormat)
	}

	if c.ProxyAddress != "" {
		if _, _, err := net.SplitHostPort(c.ProxyAddress); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidProxyAddress, c.ProxyAddress)
		}
	}

	return nil
}
