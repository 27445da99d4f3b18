package config

import "errors"

// Configuration validation errors.
// These are returned by Config.Validate and File.GetPortalConfig and can be
// matched with errors.Is.
var (
	// ErrInvalidTimezone is returned when Timezone is not a loadable IANA zone.
	ErrInvalidTimezone = errors.New("invalid timezone")

	// ErrInvalidStepTimeout is returned when the browser step timeout is not positive.
	// A zero timeout would fail every wait immediately.
	ErrInvalidStepTimeout = errors.New("invalid step timeout: must be positive")

	// ErrInvalidAuthPolling is returned when the login poll interval or attempt
	// count is not positive.
	ErrInvalidAuthPolling = errors.New("invalid login polling: interval and attempts must be positive")

	// ErrInvalidTimeout is returned when the HTTP timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// Use 0 to select the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidOutputFormat is returned for an output format other than csv, markdown or json.
	ErrInvalidOutputFormat = errors.New("invalid output format: must be csv, markdown or json")

	// ErrInvalidProxyAddress is returned when the proxy address is not "host:port".
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrUnknownPortal is returned for a portal key with neither built-in nor file settings.
	ErrUnknownPortal = errors.New("unknown portal")

	// ErrIncompletePortal is returned when a portal lacks a login URL, or has
	// neither a data API URL nor a scrape page.
	ErrIncompletePortal = errors.New("incomplete portal settings: loginURL and one of dataURL or scrape are required")

	// ErrNoDataAPI is returned when a command needs the data API of a portal
	// that is only read from its rendered page.
	ErrNoDataAPI = errors.New("portal has no data API")

	// ErrNoScrapePage is returned when a command needs the results page of a
	// portal that has no scrape settings.
	ErrNoScrapePage = errors.New("portal has no scrape page")
)
