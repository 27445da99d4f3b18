// Package report writes tables of normalized portal rows or extracted lab
// results.
//
// This package contains writers for different output formats:
//   - CSVWriter: RFC 4180 CSV with a header row (the default)
//   - MarkdownWriter: a Markdown table for notes and sharing
//   - JSONWriter: an array of column-keyed objects for tool integration
//
// Design decision: We separate table writing from the row types (which are in
// the model package) so new output formats need no change to the data.
package report
