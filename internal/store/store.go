// Package store defines the persistence gateway for documents and pages.
//
// The gateway is the system of record after a processing run; during a run
// the orchestrator exclusively owns document and page mutation. All
// operations are idempotent on identical input and keyed by opaque ids.
package store

import (
	"context"

	"github.com/mkandasamy/deedflow/internal/model"
)

// Gateway abstracts durable storage for documents and their pages.
//
// The default implementation (mongo.Store) persists to MongoDB. A Memory
// implementation is provided for unit tests and single-process use.
type Gateway interface {
	// CreateDocument stores a new document record.
	CreateDocument(ctx context.Context, doc *model.Document) error

	// UpdateDocumentStatus sets the document-level status.
	UpdateDocumentStatus(ctx context.Context, id string, status model.Status) error

	// SetDocumentSummary stores the whole-document summary.
	SetDocumentSummary(ctx context.Context, id string, summary string) error

	// SetTotalPages records the page count once extraction completes.
	SetTotalPages(ctx context.Context, id string, total int) error

	// CreatePage adds a page to a document.
	CreatePage(ctx context.Context, documentID string, page model.Page) error

	// UpdatePage replaces a page's fields, matched by page number.
	UpdatePage(ctx context.Context, documentID string, page model.Page) error

	// GetDocument returns a document with its pages, or model.ErrNotFound.
	GetDocument(ctx context.Context, id string) (*model.Document, error)

	// ListPages returns a document's pages ordered by page number.
	ListPages(ctx context.Context, documentID string) ([]model.Page, error)

	// DeleteDocument removes a document and its pages.
	DeleteDocument(ctx context.Context, id string) error

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error
}
