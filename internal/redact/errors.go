package redact

import "errors"

var (
	// ErrUnknownKind is returned for a document kind without a profile.
	ErrUnknownKind = errors.New("unknown document kind")

	// ErrPageMismatch is returned when the writer sees a different page count than the reader.
	ErrPageMismatch = errors.New("page count mismatch between text layout and document")

	// ErrMissingPage is returned when a page dictionary cannot be found.
	ErrMissingPage = errors.New("page dictionary not found")

	// ErrContentSyntax is returned for a page content stream that cannot be tokenized.
	ErrContentSyntax = errors.New("malformed content stream")

	// ErrTextRemains is returned when redacted output still has text beneath a mark.
	ErrTextRemains = errors.New("text remains beneath redaction mark")

	// ErrMetadataRemains is returned when redacted output still carries identifying metadata.
	ErrMetadataRemains = errors.New("identifying metadata remains")
)
