// Package labparse reconstructs lab test results from the text of a PDF report.
//
// Lab portals export "simple report" PDFs in which every test is laid out as a
// repeating block:
//
//	Result
//	Glucose
//	Desired Range: 70-99 mg/dL
//	85
//	HIGH
//
// Parse walks the flattened lines with a small state machine and emits one
// model.LabResultRecord per complete block. Demographic headers that happen to
// follow a "Result" line are recognized and skipped, and a block interrupted by
// the next header is abandoned without losing that header.
package labparse
