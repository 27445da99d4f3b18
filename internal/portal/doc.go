// Package portal fetches raw reports from a health portal's data API and selects
// the report to import.
//
// A fetch sends the session cookies captured by the browser package with every
// request; cookies are attached per call by a RoundTripper and never stored in a
// jar. Data API traffic may leave through a SOCKS5 proxy.
//
// Selection buckets reports by calendar date in a reference timezone. It is a pure
// function of the fetched snapshot:
//
//	reports, err := fetcher.FetchAll(ctx, session)
//	report, label, err := portal.Select(reports, "03/14/2025", loc)
//
// An unknown date yields a *model.NotFoundError listing the dates that exist.
package portal
