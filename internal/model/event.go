package model

import "time"

// Event type values published by the orchestrator.
const (
	EventPagesExtracted    = "pages_extracted"
	EventPageStatus        = "page_status"
	EventPageFailed        = "page_failed"
	EventSummaryStarted    = "summary_started"
	EventDocumentCompleted = "document_completed"
	EventDocumentFailed    = "document_failed"
)

// ProgressEvent is an immutable progress record for one document. Events
// are never persisted; they exist only on the bus and are lost when no
// subscriber is listening at emission time.
type ProgressEvent struct {
	DocumentID string         `json:"document_id"`
	Type       string         `json:"event_type"`
	Payload    map[string]any `json:"data"`
	Timestamp  time.Time      `json:"timestamp"`
}

// NewProgressEvent stamps a progress event with the current time.
func NewProgressEvent(documentID, eventType string, payload map[string]any) ProgressEvent {
	return ProgressEvent{
		DocumentID: documentID,
		Type:       eventType,
		Payload:    payload,
		Timestamp:  time.Now().UTC(),
	}
}
