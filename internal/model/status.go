package model

// Status tracks a document or page through the processing stages.
type Status string

const (
	StatusUploaded                Status = "uploaded"
	StatusOCRStarted              Status = "ocr_started"
	StatusOCRCompleted            Status = "ocr_completed"
	StatusTranslationStarted      Status = "translation_started"
	StatusTranslationCompleted    Status = "translation_completed"
	StatusSimplificationStarted   Status = "simplification_started"
	StatusSimplificationCompleted Status = "simplification_completed"
	StatusCompleted               Status = "completed"
	StatusFailed                  Status = "failed"
)

// statusRank orders the non-terminal progression. Failed is handled
// separately since it is reachable from any state.
var statusRank = map[Status]int{
	StatusUploaded:                0,
	StatusOCRStarted:              1,
	StatusOCRCompleted:            2,
	StatusTranslationStarted:      3,
	StatusTranslationCompleted:    4,
	StatusSimplificationStarted:   5,
	StatusSimplificationCompleted: 6,
	StatusCompleted:               7,
}

// Valid reports whether s is one of the defined status values.
func (s Status) Valid() bool {
	if s == StatusFailed {
		return true
	}
	_, ok := statusRank[s]
	return ok
}

// Rank returns the position of s in the stage order. Failed ranks after
// completed so terminal states always compare as progress.
func (s Status) Rank() int {
	if s == StatusFailed {
		return statusRank[StatusCompleted] + 1
	}
	return statusRank[s]
}

// Terminal reports whether s is an end state for a processing run.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanAdvance reports whether a transition from s to next is legal:
// strictly forward in stage order, or to failed from any non-terminal
// state. A retry resets to uploaded explicitly and is the only sanctioned
// regression.
func (s Status) CanAdvance(next Status) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if s.Terminal() {
		return false
	}
	if next == StatusFailed {
		return true
	}
	return next.Rank() > s.Rank()
}
