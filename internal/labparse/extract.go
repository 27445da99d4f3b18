package labparse

import (
	"github.com/nao1215/biosnap/internal/model"
	"github.com/nao1215/biosnap/internal/pdftext"
)

// Extract reads a lab report PDF and returns its test results.
// A document that cannot be read fails with *model.DocumentError.
// A readable document without any result block returns no records and no error.
func Extract(pdfBytes []byte) ([]model.LabResultRecord, error) {
	doc, err := pdftext.Read(pdfBytes)
	if err != nil {
		return nil, &model.DocumentError{Op: "extract", Err: err}
	}
	return Parse(doc.Lines()), nil
}
