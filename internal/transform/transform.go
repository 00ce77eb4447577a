// Package transform renders page text through staged language-model calls:
// raw OCR text to formal legal English, legal English to simple English,
// and a cross-page document summary.
package transform

import "context"

// Mode selects the transformation applied to the input text.
type Mode string

const (
	// ModeLegalEnglish renders raw Tamil OCR text as formal legal English.
	ModeLegalEnglish Mode = "legal-english"

	// ModeSimpleEnglish simplifies legal English for lay readers.
	ModeSimpleEnglish Mode = "simple-english"

	// ModeSummary produces a whole-document summary from concatenated
	// per-page legal English.
	ModeSummary Mode = "summary"
)

// Valid reports whether m is a defined mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeLegalEnglish, ModeSimpleEnglish, ModeSummary:
		return true
	}
	return false
}

// Request is one transformation call.
type Request struct {
	Mode Mode
	Text string
	// PageNumber is informational context for page-scoped modes; zero for
	// summary.
	PageNumber int
}

// Transformer produces derived text from page text. Implementations are
// fallible and rate-limited; retry policy belongs to the caller.
type Transformer interface {
	// Transform runs one request. Failures are *model.TransformationError.
	Transform(ctx context.Context, req Request) (string, error)

	// Name returns the implementation identifier (e.g. "openai").
	Name() string
}
