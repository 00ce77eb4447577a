package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mkandasamy/deedflow/internal/model"
)

// Memory implements Gateway with in-memory storage. It backs unit tests and
// the --store memory serve mode. Error injection fields let tests exercise
// persistence-failure paths.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]*model.Document

	// writes counts every mutating call, for test assertions on
	// persist-then-publish ordering.
	writes int

	// ErrOnWrite, when non-nil, is returned by every mutating operation.
	ErrOnWrite error
}

// NewMemory creates an empty in-memory gateway.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string]*model.Document)}
}

var _ Gateway = (*Memory)(nil)

func (m *Memory) CreateDocument(ctx context.Context, doc *model.Document) error {
	if m.ErrOnWrite != nil {
		return m.ErrOnWrite
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *doc
	cp.Pages = append([]model.Page(nil), doc.Pages...)
	m.docs[doc.ID] = &cp
	m.writes++
	return nil
}

func (m *Memory) UpdateDocumentStatus(ctx context.Context, id string, status model.Status) error {
	if m.ErrOnWrite != nil {
		return m.ErrOnWrite
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return model.ErrNotFound
	}
	doc.Status = status
	doc.UpdatedAt = time.Now().UTC()
	m.writes++
	return nil
}

func (m *Memory) SetDocumentSummary(ctx context.Context, id string, summary string) error {
	if m.ErrOnWrite != nil {
		return m.ErrOnWrite
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return model.ErrNotFound
	}
	doc.Summary = summary
	doc.UpdatedAt = time.Now().UTC()
	m.writes++
	return nil
}

func (m *Memory) SetTotalPages(ctx context.Context, id string, total int) error {
	if m.ErrOnWrite != nil {
		return m.ErrOnWrite
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return model.ErrNotFound
	}
	doc.TotalPages = total
	doc.UpdatedAt = time.Now().UTC()
	m.writes++
	return nil
}

func (m *Memory) CreatePage(ctx context.Context, documentID string, page model.Page) error {
	if m.ErrOnWrite != nil {
		return m.ErrOnWrite
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[documentID]
	if !ok {
		return model.ErrNotFound
	}
	for i, p := range doc.Pages {
		if p.PageNumber == page.PageNumber {
			doc.Pages[i] = page // idempotent re-create
			m.writes++
			return nil
		}
	}
	doc.Pages = append(doc.Pages, page)
	sort.Slice(doc.Pages, func(i, j int) bool {
		return doc.Pages[i].PageNumber < doc.Pages[j].PageNumber
	})
	m.writes++
	return nil
}

func (m *Memory) UpdatePage(ctx context.Context, documentID string, page model.Page) error {
	if m.ErrOnWrite != nil {
		return m.ErrOnWrite
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[documentID]
	if !ok {
		return model.ErrNotFound
	}
	for i, p := range doc.Pages {
		if p.PageNumber == page.PageNumber {
			doc.Pages[i] = page
			doc.UpdatedAt = time.Now().UTC()
			m.writes++
			return nil
		}
	}
	return model.ErrNotFound
}

func (m *Memory) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *doc
	cp.Pages = append([]model.Page(nil), doc.Pages...)
	return &cp, nil
}

func (m *Memory) ListPages(ctx context.Context, documentID string) ([]model.Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[documentID]
	if !ok {
		return nil, model.ErrNotFound
	}
	return append([]model.Page(nil), doc.Pages...), nil
}

func (m *Memory) DeleteDocument(ctx context.Context, id string) error {
	if m.ErrOnWrite != nil {
		return m.ErrOnWrite
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return model.ErrNotFound
	}
	delete(m.docs, id)
	m.writes++
	return nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

// WriteCount returns the number of mutating operations performed.
func (m *Memory) WriteCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}
