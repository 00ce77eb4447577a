package extract

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/mkandasamy/deedflow/internal/model"
)

// Fake is an Extractor for testing. It returns scripted pages or a scripted
// failure without touching the filesystem.
type Fake struct {
	// Pages to return on success. If nil, PageCount synthetic pages are
	// generated ("page N text").
	Pages []PageText

	// PageCount controls synthetic page generation when Pages is nil.
	PageCount int

	// FailReason, when non-empty, makes Extract fail with an
	// ExtractionError carrying this reason.
	FailReason string

	calls atomic.Int64
}

var _ Extractor = (*Fake)(nil)

// Extract returns the scripted result.
func (f *Fake) Extract(ctx context.Context, path string, fileType model.FileType) ([]PageText, error) {
	f.calls.Add(1)

	if f.FailReason != "" {
		return nil, &model.ExtractionError{Reason: f.FailReason}
	}

	if f.Pages != nil {
		return append([]PageText(nil), f.Pages...), nil
	}

	pages := make([]PageText, 0, f.PageCount)
	for i := 1; i <= f.PageCount; i++ {
		pages = append(pages, PageText{PageNumber: i, Text: fmt.Sprintf("page %d text", i)})
	}
	return pages, nil
}

// Calls returns the number of Extract invocations.
func (f *Fake) Calls() int64 { return f.calls.Load() }
