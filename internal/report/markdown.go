package report

import (
	"io"
	"strings"

	"github.com/nao1215/markdown"

	"github.com/nao1215/biosnap/internal/model"
)

// MarkdownWriter outputs tables in Markdown format.
// This format is designed for notes and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation so that table alignment and escaping stay consistent.
type MarkdownWriter struct {
	baseWriter

	// title is written as a level-1 heading when set.
	title string
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithTitle adds a heading above the table.
func WithTitle(title string) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.title = title
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the table in Markdown format.
// An empty table is written as a "No data found." line instead of a bare header.
func (w *MarkdownWriter) Write(table model.Table) (int, error) {
	md := markdown.NewMarkdown(w.output)

	if w.title != "" {
		md.H1(w.title)
		md.PlainText("")
	}

	if table.Len() == 0 {
		md.PlainText(model.NoDataMessage)
		return len(md.String()), md.Build()
	}

	rows := make([][]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		cells := make([]string, len(table.Columns))
		for i := range cells {
			if i < len(row) {
				cells[i] = escapeCell(row[i])
			}
		}
		rows = append(rows, cells)
	}

	md.Table(markdown.TableSet{
		Header: table.Columns,
		Rows:   rows,
	})

	return len(md.String()), md.Build()
}

// cellReplacer keeps a cell on one table line.
var cellReplacer = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ", "\r", " ")

// escapeCell makes s safe inside a Markdown table cell.
func escapeCell(s string) string {
	return cellReplacer.Replace(s)
}
