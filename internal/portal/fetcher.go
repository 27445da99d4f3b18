package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/nao1215/biosnap/internal/config"
	"github.com/nao1215/biosnap/internal/model"
)

// Fetcher downloads the report snapshot of one portal with an authenticated session.
type Fetcher struct {
	portal      config.PortalConfig
	client      *http.Client
	logger      *slog.Logger
	status      model.StatusFunc
	maxBodySize int64
	userAgent   string
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient sets the HTTP client. The client's transport is wrapped, not replaced.
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithStatus sets the progress callback.
func WithStatus(status model.StatusFunc) FetcherOption {
	return func(f *Fetcher) {
		f.status = status
	}
}

// WithMaxBodySize caps the response size. Zero or negative selects the default.
func WithMaxBodySize(n int64) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBodySize = n
		}
	}
}

// WithUserAgent sets the User-Agent header of data API requests.
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// NewFetcher creates a Fetcher for the given portal.
func NewFetcher(portal config.PortalConfig, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		portal:      portal,
		client:      &http.Client{Timeout: config.DefaultHTTPTimeout},
		logger:      slog.Default(),
		maxBodySize: config.DefaultMaxBodySize,
		userAgent:   config.DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchAll retrieves every report the session can see.
// The portal may answer with a single report object or a list of them.
// Transport and status faults are AutomationErrors; a payload of any other
// shape fails with ErrUnexpectedPayload.
func (f *Fetcher) FetchAll(ctx context.Context, session model.SessionToken) ([]model.RawReport, error) {
	if f.portal.DataURL == "" {
		return nil, ErrNoDataURL
	}

	f.status.Report("Fetching report data")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.portal.DataURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	start := time.Now()
	resp, err := withSession(f.client, session, f.portal.Headers).Do(req)
	if err != nil {
		return nil, &model.AutomationError{Stage: "fetch", Err: err}
	}
	defer resp.Body.Close()

	f.logger.Debug("portal data fetched",
		"portal", f.portal.Name,
		"status", resp.StatusCode,
		"cookies", session.Len(),
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &model.AutomationError{
			Stage: "fetch",
			Err:   fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode),
		}
	}

	// Read one extra byte to tell "exactly at the cap" from "over the cap".
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return nil, &model.AutomationError{Stage: "fetch", Err: err}
	}
	if int64(len(body)) > f.maxBodySize {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrBodyTooLarge, f.maxBodySize)
	}

	f.status.Report("Cleaning data")

	reports, err := DecodeReports(body)
	if err != nil {
		return nil, err
	}
	f.logger.Info("portal reports received", "portal", f.portal.Name, "count", len(reports))
	return reports, nil
}

// DecodeReports decodes a data API payload holding one report object or a list.
func DecodeReports(body []byte) ([]model.RawReport, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrUnexpectedPayload)
	}

	switch trimmed[0] {
	case '[':
		var reports []model.RawReport
		if err := json.Unmarshal(trimmed, &reports); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnexpectedPayload, err)
		}
		return reports, nil
	case '{':
		var report model.RawReport
		if err := json.Unmarshal(trimmed, &report); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnexpectedPayload, err)
		}
		return []model.RawReport{report}, nil
	default:
		var syntaxErr *json.SyntaxError
		if err := json.Unmarshal(trimmed, new(any)); errors.As(err, &syntaxErr) {
			return nil, fmt.Errorf("%w: %w", ErrUnexpectedPayload, err)
		}
		return nil, fmt.Errorf("%w: neither an object nor a list", ErrUnexpectedPayload)
	}
}
