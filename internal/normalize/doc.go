// Package normalize flattens nested portal reports into display rows.
//
// A portal report is a list of sections, each holding scored results. Somewhere
// among a section's results there is usually a section-level "composite" score,
// identified heuristically by IsCompositeLike, and a snippet describing the
// reference range, chosen by PickSectionSummary. Both are exported so their rules
// can be tested and revised without touching row emission in Normalize.
//
// Portals without a data API are read from their rendered results page instead;
// Biomarkers turns those page elements into rows.
package normalize
