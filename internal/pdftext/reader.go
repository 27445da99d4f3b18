package pdftext

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// ErrEmptyDocument is returned for zero-length input.
var ErrEmptyDocument = errors.New("empty document")

// Document is the text layout of a whole PDF.
type Document struct {
	Pages []Page
}

// Read parses a PDF and lays out the text of every page.
// Pages without content are kept as empty pages so page numbers stay aligned.
//
// The underlying reader panics on some malformed inputs; those panics are
// converted into errors.
func Read(data []byte) (doc *Document, err error) {
	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}

	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("read pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	n := reader.NumPage()
	doc = &Document{Pages: make([]Page, 0, n)}
	for i := 1; i <= n; i++ {
		p := reader.Page(i)
		if p.V.IsNull() {
			doc.Pages = append(doc.Pages, Layout(i, nil))
			continue
		}
		doc.Pages = append(doc.Pages, Layout(i, glyphs(p)))
	}
	return doc, nil
}

func glyphs(p pdf.Page) []Glyph {
	content := p.Content()
	out := make([]Glyph, 0, len(content.Text))
	for _, t := range content.Text {
		out = append(out, Glyph{X: t.X, Y: t.Y, W: t.W, Size: t.FontSize, S: t.S})
	}
	return out
}

// Lines returns the text of every line in document order.
// Page boundaries are not marked.
func (d *Document) Lines() []string {
	var lines []string
	for _, p := range d.Pages {
		for _, l := range p.Lines {
			lines = append(lines, l.Text)
		}
	}
	return lines
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int { return len(d.Pages) }
