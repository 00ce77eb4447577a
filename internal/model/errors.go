package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for the processing pipeline and its call surface.
var (
	// ErrUnsupportedFormat means the declared file type is not one of the
	// supported kinds.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrAlreadyProcessing means a run is active for the document id.
	// Returned synchronously to the duplicate caller; never published.
	ErrAlreadyProcessing = errors.New("document is already processing")

	// ErrNoContentExtracted means every page failed; there is nothing to
	// summarize.
	ErrNoContentExtracted = errors.New("no content extracted from any page")

	// ErrNotFound means the requested document does not exist.
	ErrNotFound = errors.New("document not found")
)

// ExtractionError is a whole-document OCR failure. Extraction is atomic:
// either all pages come back or the document fails.
type ExtractionError struct {
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("extraction failed: %s", e.Reason)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// TransformationError is a per-page LLM failure. It is recorded on the page
// and does not abort the run.
type TransformationError struct {
	Mode   string
	Reason string
	Err    error
}

func (e *TransformationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transformation (%s) failed: %s: %v", e.Mode, e.Reason, e.Err)
	}
	return fmt.Sprintf("transformation (%s) failed: %s", e.Mode, e.Reason)
}

func (e *TransformationError) Unwrap() error { return e.Err }
