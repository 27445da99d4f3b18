// Package pdftexttest builds small, valid PDF documents for tests.
//
// The documents use the standard Helvetica font with an explicit monospaced
// width table, so glyph positions reported by readers are predictable:
// every character advances 0.6 x font size.
package pdftexttest

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// GlyphAdvance is the advance of one character as a fraction of the font size.
const GlyphAdvance = 0.6

// Line is one line of text placed at (X, Y) in default user space.
type Line struct {
	X, Y float64
	Size float64
	Text string
}

// Page is the list of lines on one page.
type Page []Line

// Stack returns lines placed top to bottom, starting at y=720 with 14pt spacing.
// Empty strings leave a gap without emitting a line.
func Stack(texts ...string) Page {
	page := make(Page, 0, len(texts))
	y := 720.0
	for _, t := range texts {
		if t != "" {
			page = append(page, Line{X: 72, Y: y, Size: 10, Text: t})
		}
		y -= 14
	}
	return page
}

// Build returns a PDF with one page per argument. Pages are US Letter.
func Build(pages ...Page) []byte {
	return BuildWithInfo(nil, pages...)
}

// BuildWithInfo is Build with a document information dictionary,
// e.g. {"Author": "Jane Doe"}. Entries are written in key order.
func BuildWithInfo(info map[string]string, pages ...Page) []byte {
	var objects []string

	// 1: catalog, 2: page tree, 3: font. Pages follow as (page, content) pairs.
	objects = append(objects, "<< /Type /Catalog /Pages 2 0 R >>")

	kids := make([]string, 0, len(pages))
	for i := range pages {
		kids = append(kids, fmt.Sprintf("%d 0 R", 4+2*i))
	}
	objects = append(objects, fmt.Sprintf(
		"<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 612 792] >>",
		strings.Join(kids, " "), len(pages)))

	widths := make([]string, 0, 95)
	for range 95 {
		widths = append(widths, fmt.Sprintf("%d", int(GlyphAdvance*1000)))
	}
	objects = append(objects, fmt.Sprintf(
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding "+
			"/FirstChar 32 /LastChar 126 /Widths [%s] >>", strings.Join(widths, " ")))

	for i, page := range pages {
		content := contentStream(page)
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}

	trailerInfo := ""
	if len(info) > 0 {
		keys := slices.Sorted(maps.Keys(info))
		entries := make([]string, 0, len(keys))
		for _, k := range keys {
			entries = append(entries, fmt.Sprintf("/%s (%s)", k, escape(info[k])))
		}
		objects = append(objects, "<< "+strings.Join(entries, " ")+" >>")
		trailerInfo = fmt.Sprintf(" /Info %d 0 R", len(objects))
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R%s >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, trailerInfo, xref)
	return buf.Bytes()
}

func contentStream(page Page) string {
	var sb strings.Builder
	for _, line := range page {
		size := line.Size
		if size == 0 {
			size = 10
		}
		fmt.Fprintf(&sb, "BT /F1 %g Tf 1 0 0 1 %g %g Tm (%s) Tj ET\n", size, line.X, line.Y, escape(line.Text))
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
