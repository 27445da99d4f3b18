package report

import (
	"errors"
	"fmt"
	"io"

	"github.com/nao1215/biosnap/internal/config"
	"github.com/nao1215/biosnap/internal/model"
)

// ErrUnsupportedFormat is returned by NewWriter for an unknown format name.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// Writer defines the interface for table output.
// Implementations write normalized or extracted rows in various formats.
//
// Design decision: We use an interface to allow different output formats
// and destinations. This enables writing to files or stdout with the same API.
type Writer interface {
	// Write outputs the table to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(table model.Table) (int, error)
}

// NewWriter returns the Writer for a config.SupportedFormats name.
func NewWriter(format string, output io.Writer) (Writer, error) {
	switch format {
	case config.FormatCSV:
		return NewCSVWriter(output), nil
	case config.FormatMarkdown:
		return NewMarkdownWriter(output), nil
	case config.FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint()), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// baseWriter provides common functionality for table writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// countingWriter counts bytes passed to the wrapped writer.
type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}
