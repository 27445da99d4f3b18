package config

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
)

// Built-in portal keys.
const (
	// PortalThorne is the Thorne gut health portal, read through its data API.
	PortalThorne = "thorne"
	// PortalFunctionHealth is the Function Health blood panel portal, read from
	// its rendered biomarker page.
	PortalFunctionHealth = "functionhealth"
)

// PortalConfig describes how to log into a portal and where its report data lives.
// Every field can be overridden from the config file because third-party markup and
// URLs drift without notice.
type PortalConfig struct {
	// Name is the display name used in status and error messages.
	Name string `yaml:"name,omitempty"`

	// LoginURL is the page holding the login form.
	LoginURL string `yaml:"loginURL,omitempty"`

	// EmailSelector and PasswordSelector are CSS selectors of the login inputs.
	EmailSelector    string `yaml:"emailSelector,omitempty"`
	PasswordSelector string `yaml:"passwordSelector,omitempty"`

	// LoginMarker is a URL fragment present only while on the login page.
	// The login is verified once the browser URL no longer contains it.
	LoginMarker string `yaml:"loginMarker,omitempty"`

	// TargetPages are opened after login so the portal issues page-scoped cookies.
	TargetPages []string `yaml:"targetPages,omitempty"`

	// DismissButtons are button texts clicked, best-effort, to close popups.
	DismissButtons []string `yaml:"dismissButtons,omitempty"`

	// DataURL is the JSON data API returning one report or a list of reports.
	DataURL string `yaml:"dataURL,omitempty"`

	// TestLabel is the display label of a report in the selection list.
	TestLabel string `yaml:"testLabel,omitempty"`

	// Headers are extra HTTP headers sent to the data API.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Scrape locates results in a rendered page, for portals without a data API.
	Scrape ScrapeConfig `yaml:"scrape,omitempty"`
}

// ScrapeConfig describes a results page read from the browser after login.
// Category headers and result containers are matched by one selector so that
// they come back in document order; each result belongs to the header above it.
type ScrapeConfig struct {
	// URL is the results page.
	URL string `yaml:"url,omitempty"`

	// Ready is a CSS selector that matches once the results have rendered.
	Ready string `yaml:"ready,omitempty"`

	// Items matches both category headers and result containers.
	Items string `yaml:"items,omitempty"`

	// HeaderTag is the tag name of category headers among Items, e.g. "h4".
	HeaderTag string `yaml:"headerTag,omitempty"`

	// Name, Values and Units are CSS selectors read inside each result container.
	// Values yields status, value and units, or a prefix of them.
	Name   string `yaml:"name,omitempty"`
	Values string `yaml:"values,omitempty"`
	Units  string `yaml:"units,omitempty"`
}

// Enabled reports whether the page can be scraped.
func (sc ScrapeConfig) Enabled() bool {
	return sc.URL != "" && sc.Items != "" && sc.Name != ""
}

// Fields returns the per-result selectors in the order Name, Values, Units.
func (sc ScrapeConfig) Fields() []string {
	return []string{sc.Name, sc.Values, sc.Units}
}

// PatternConfig is a user-supplied redaction pattern.
type PatternConfig struct {
	// Name identifies the pattern in logs.
	Name string `yaml:"name"`

	// Regexp is a Go regular expression matched against page text.
	Regexp string `yaml:"regexp"`

	// Kind limits the pattern to "physician" or "diagnostic" documents. Empty means both.
	Kind string `yaml:"kind,omitempty"`

	// FirstPages limits the pattern to the first N pages. Zero means every page.
	FirstPages int `yaml:"firstPages,omitempty"`

	// Block redacts the whole text block containing a match instead of the match only.
	Block bool `yaml:"block,omitempty"`
}

// RedactionConfig holds supplemental redaction settings.
type RedactionConfig struct {
	// ExtraNames are redacted on every page of diagnostic documents,
	// in addition to the names in the denylist file.
	ExtraNames []string `yaml:"extraNames,omitempty"`

	// ExtraPatterns are appended to the built-in pattern profiles.
	ExtraPatterns []PatternConfig `yaml:"extraPatterns,omitempty"`
}

// File represents the structure of the .biosnap configuration file.
type File struct {
	// Defaults are applied to every portal unless overridden per portal.
	Defaults PortalConfig `yaml:"defaults,omitempty"`

	// Portals maps portal keys to their settings.
	Portals map[string]PortalConfig `yaml:"portals,omitempty"`

	// Redaction holds supplemental redaction settings.
	Redaction RedactionConfig `yaml:"redaction,omitempty"`
}

// NewFile returns an empty File.
func NewFile() *File {
	return &File{Portals: make(map[string]PortalConfig)}
}

// BuiltinPortals returns the portals biosnap knows without a config file.
func BuiltinPortals() map[string]PortalConfig {
	return map[string]PortalConfig{
		PortalThorne: {
			Name:             "Thorne",
			LoginURL:         "https://www.thorne.com/login",
			EmailSelector:    "input[name=email]",
			PasswordSelector: "input[name=password]",
			LoginMarker:      "/login",
			TargetPages:      []string{"https://www.thorne.com/account/tests"},
			DismissButtons:   []string{"×", "Got it"},
			DataURL:          "https://www.thorne.com/account/data/tests/reports/GUTHEALTH/details",
			TestLabel:        "Gut Health Test",
		},
		PortalFunctionHealth: {
			Name:             "Function Health",
			LoginURL:         "https://my.functionhealth.com/",
			EmailSelector:    "#email",
			PasswordSelector: "#password",
			LoginMarker:      "login",
			TestLabel:        "Biomarkers",
			Scrape: ScrapeConfig{
				URL:       "https://my.functionhealth.com/biomarkers",
				Ready:     "[class^='biomarkerResultRow-styled__BiomarkerName']",
				Items:     "h4, div[class*='biomarkerResult-styled__ResultContainer']",
				HeaderTag: "h4",
				Name:      "[class^='biomarkerResultRow-styled__BiomarkerName']",
				Values:    "[class*='biomarkerChart-styled__ResultValue']",
				Units:     "[class^='biomarkerChart-styled__UnitValue']",
			},
		},
	}
}

// PortalKeys returns the built-in and configured portal keys in sorted order.
func (cf *File) PortalKeys() []string {
	keys := maps.Keys(BuiltinPortals())
	all := slices.Collect(keys)
	for k := range cf.Portals {
		if !slices.Contains(all, k) {
			all = append(all, k)
		}
	}
	slices.Sort(all)
	return all
}

// GetPortalConfig returns the merged settings for a portal key.
// Built-in settings come first, then the file's defaults, then the portal entry.
func (cf *File) GetPortalConfig(key string) (PortalConfig, error) {
	builtin, known := BuiltinPortals()[key]
	specific, configured := cf.Portals[key]
	if !known && !configured {
		return PortalConfig{}, fmt.Errorf("%w: %q", ErrUnknownPortal, key)
	}

	result := overlay(builtin, cf.Defaults)
	if configured {
		result = overlay(result, specific)
	}
	if result.Name == "" {
		result.Name = key
	}

	if result.LoginURL == "" || (result.DataURL == "" && !result.Scrape.Enabled()) {
		return PortalConfig{}, fmt.Errorf("%w: %q", ErrIncompletePortal, key)
	}
	return result, nil
}

// overlay returns base with every non-empty field of override applied.
func overlay(base, override PortalConfig) PortalConfig {
	result := base
	if override.Name != "" {
		result.Name = override.Name
	}
	if override.LoginURL != "" {
		result.LoginURL = override.LoginURL
	}
	if override.EmailSelector != "" {
		result.EmailSelector = override.EmailSelector
	}
	if override.PasswordSelector != "" {
		result.PasswordSelector = override.PasswordSelector
	}
	if override.LoginMarker != "" {
		result.LoginMarker = override.LoginMarker
	}
	if len(override.TargetPages) > 0 {
		result.TargetPages = slices.Clone(override.TargetPages)
	}
	if len(override.DismissButtons) > 0 {
		result.DismissButtons = slices.Clone(override.DismissButtons)
	}
	if override.DataURL != "" {
		result.DataURL = override.DataURL
	}
	if override.TestLabel != "" {
		result.TestLabel = override.TestLabel
	}
	if len(override.Headers) > 0 {
		headers := maps.Clone(base.Headers)
		if headers == nil {
			headers = make(map[string]string)
		}
		maps.Copy(headers, override.Headers)
		result.Headers = headers
	}
	result.Scrape = overlayScrape(result.Scrape, override.Scrape)
	return result
}

func overlayScrape(base, override ScrapeConfig) ScrapeConfig {
	return ScrapeConfig{
		URL:       cmp.Or(override.URL, base.URL),
		Ready:     cmp.Or(override.Ready, base.Ready),
		Items:     cmp.Or(override.Items, base.Items),
		HeaderTag: cmp.Or(override.HeaderTag, base.HeaderTag),
		Name:      cmp.Or(override.Name, base.Name),
		Values:    cmp.Or(override.Values, base.Values),
		Units:     cmp.Or(override.Units, base.Units),
	}
}
