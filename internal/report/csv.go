package report

import (
	"encoding/csv"
	"io"

	"github.com/nao1215/biosnap/internal/model"
)

// CSVWriter outputs tables as RFC 4180 CSV with a header row.
// This is the default format, suited to spreadsheets and the storage layer
// that consumes imported rows.
type CSVWriter struct {
	baseWriter

	// comma is the field delimiter.
	comma rune
}

// CSVWriterOption configures a CSVWriter.
type CSVWriterOption func(*CSVWriter)

// WithDelimiter sets the field delimiter, e.g. '\t' for TSV.
func WithDelimiter(r rune) CSVWriterOption {
	return func(w *CSVWriter) {
		w.comma = r
	}
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer, opts ...CSVWriterOption) *CSVWriter {
	w := &CSVWriter{
		baseWriter: newBaseWriter(output),
		comma:      ',',
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the table. Short rows are padded to the column count.
func (w *CSVWriter) Write(table model.Table) (int, error) {
	counter := &countingWriter{w: w.output}
	cw := csv.NewWriter(counter)
	cw.Comma = w.comma

	if err := cw.Write(table.Columns); err != nil {
		return counter.n, err
	}
	for _, row := range table.Rows {
		record := make([]string, len(table.Columns))
		copy(record, row)
		if err := cw.Write(record); err != nil {
			return counter.n, err
		}
	}
	cw.Flush()
	return counter.n, cw.Error()
}
