// Package extract turns an uploaded source file into ordered per-page text.
//
// Extraction is atomic per document: either every page comes back or the
// whole document fails. Per-page OCR quality problems are not failures;
// weak pages simply carry weak text into the later stages.
package extract

import (
	"context"

	"github.com/mkandasamy/deedflow/internal/model"
)

// PageText is one page's extracted text, 1-based and ordered.
type PageText struct {
	PageNumber int
	Text       string
}

// Extractor converts a source file into an ordered sequence of page texts.
type Extractor interface {
	// Extract OCRs the file at path. It fails with *model.ExtractionError
	// for the whole document; it never fails for a single page.
	Extract(ctx context.Context, path string, fileType model.FileType) ([]PageText, error)
}
