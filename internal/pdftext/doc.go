// Package pdftext flattens PDF pages into positioned lines and blocks.
//
// Glyphs are read with github.com/ledongthuc/pdf and grouped by baseline into
// lines, which are whitespace-collapsed. Lines that sit directly above one another
// and overlap horizontally form a block, similar to a paragraph. Every byte of a
// page's text can be mapped back to the rectangles of the glyphs that produced it,
// which the redaction engine uses to place its marks.
package pdftext
