// Package redact blacks out identifying content in PDF documents.
//
// Redaction runs in two phases. BuildPlan lays out each page's text with
// internal/pdftext and runs an ordered list of patterns over it, producing
// rectangles ("marks") for the matched text or for whole text blocks. No page
// is touched until every page has been planned. Each marked page's content
// stream is then rewritten with pdfcpu: glyphs whose centers fall inside a mark
// are removed from the text-showing operators, the remaining glyphs keep their
// positions, and the marks are drawn as opaque fills. The output is read back
// and rejected if any text is still found beneath a mark, so running redact
// again on its own output finds nothing to redact.
//
// Two document kinds are supported:
//
//   - physician: imaging reports with a labeled patient header. A patient name
//     found on the first pages is redacted wherever it occurs.
//   - diagnostic: provider summaries. A near-empty cover page is dropped, the
//     first page's demographics and name block are redacted, and footers naming
//     the provider are redacted on every page. Names from an optional denylist
//     file are redacted everywhere.
//
// Only the page content streams are rewritten. Text drawn inside form XObjects
// is covered by the fills but stays in the XObject.
package redact
