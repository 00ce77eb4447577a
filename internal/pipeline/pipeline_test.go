package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mkandasamy/deedflow/internal/bus"
	"github.com/mkandasamy/deedflow/internal/extract"
	"github.com/mkandasamy/deedflow/internal/model"
	"github.com/mkandasamy/deedflow/internal/store"
	"github.com/mkandasamy/deedflow/internal/transform"
)

func newTestDoc(t *testing.T, m *store.Memory) *model.Document {
	t.Helper()
	doc := &model.Document{
		ID:       "doc-1",
		FileName: "deed.pdf",
		FileType: model.FileTypePDF,
		Status:   model.StatusUploaded,
	}
	if err := m.CreateDocument(context.Background(), doc); err != nil {
		t.Fatalf("CreateDocument() error = %v", err)
	}
	return doc
}

func fastConfig(gw store.Gateway, ex extract.Extractor, tr transform.Transformer, b *bus.Bus) Config {
	return Config{
		Store:       gw,
		Extractor:   ex,
		Transformer: tr,
		Bus:         b,
		Attempts:    1,
		RetryDelay:  time.Millisecond,
	}
}

func drainEvents(sub *bus.Subscription) []model.ProgressEvent {
	var events []model.ProgressEvent
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-time.After(200 * time.Millisecond):
			return events
		}
	}
}

func eventTypes(events []model.ProgressEvent) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.Type
	}
	return out
}

func TestOrchestrator_HappyPath(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	doc := newTestDoc(t, m)
	b := bus.New(bus.Config{Buffer: 64})
	sub := b.Subscribe(doc.ID)
	mock := &transform.Mock{}

	o := New(fastConfig(m, &extract.Fake{PageCount: 3}, mock, b))

	if err := o.Process(ctx, doc); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	got, err := m.GetDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetDocument() error = %v", err)
	}
	if got.Status != model.StatusCompleted {
		t.Errorf("document status = %q, want %q", got.Status, model.StatusCompleted)
	}
	if got.TotalPages != 3 {
		t.Errorf("TotalPages = %d, want 3", got.TotalPages)
	}
	if got.Summary != `{"summary":"mock summary"}` {
		t.Errorf("Summary = %q, want mock summary JSON", got.Summary)
	}
	for _, p := range got.Pages {
		if p.Status != model.StatusCompleted {
			t.Errorf("page %d status = %q, want %q", p.PageNumber, p.Status, model.StatusCompleted)
		}
		if p.LegalEnglish == "" || p.SimpleEnglish == "" {
			t.Errorf("page %d missing transformed text", p.PageNumber)
		}
	}

	if got := mock.CallCount(transform.ModeLegalEnglish); got != 3 {
		t.Errorf("legal-english calls = %d, want 3", got)
	}
	if got := mock.CallCount(transform.ModeSimpleEnglish); got != 3 {
		t.Errorf("simple-english calls = %d, want 3", got)
	}
	if got := mock.CallCount(transform.ModeSummary); got != 1 {
		t.Errorf("summary calls = %d, want 1", got)
	}

	events := drainEvents(sub)
	types := eventTypes(events)
	var sawExtracted, sawSummary, sawCompleted bool
	for _, typ := range types {
		switch typ {
		case model.EventPagesExtracted:
			sawExtracted = true
		case model.EventSummaryStarted:
			sawSummary = true
		case model.EventDocumentCompleted:
			sawCompleted = true
		case model.EventDocumentFailed, model.EventPageFailed:
			t.Errorf("unexpected event %q in happy path", typ)
		}
	}
	if !sawExtracted || !sawSummary || !sawCompleted {
		t.Errorf("event types = %v, missing lifecycle events", types)
	}

	last := events[len(events)-1]
	if last.Type != model.EventDocumentCompleted {
		t.Errorf("last event = %q, want %q", last.Type, model.EventDocumentCompleted)
	}
	if last.Payload["succeeded_pages"] != 3 || last.Payload["failed_pages"] != 0 {
		t.Errorf("completion payload = %v, want 3 succeeded, 0 failed", last.Payload)
	}
}

func TestOrchestrator_PartialPageFailure(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	doc := newTestDoc(t, m)
	b := bus.New(bus.Config{Buffer: 64})
	sub := b.Subscribe(doc.ID)
	mock := &transform.Mock{
		FailPages:  map[int]bool{2: true},
		FailReason: "model refused",
	}

	o := New(fastConfig(m, &extract.Fake{PageCount: 3}, mock, b))

	if err := o.Process(ctx, doc); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	got, _ := m.GetDocument(ctx, doc.ID)
	if got.Status != model.StatusCompleted {
		t.Errorf("document status = %q, want %q", got.Status, model.StatusCompleted)
	}
	if got.Summary == "" {
		t.Error("summary missing despite surviving pages")
	}
	for _, p := range got.Pages {
		switch p.PageNumber {
		case 2:
			if p.Status != model.StatusFailed {
				t.Errorf("page 2 status = %q, want %q", p.Status, model.StatusFailed)
			}
			if !strings.Contains(p.FailureReason, "model refused") {
				t.Errorf("page 2 failure reason = %q, want model refused", p.FailureReason)
			}
		default:
			if p.Status != model.StatusCompleted {
				t.Errorf("page %d status = %q, want %q", p.PageNumber, p.Status, model.StatusCompleted)
			}
		}
	}

	// The failed page is skipped by the simplification stage.
	for _, call := range mock.Calls() {
		if call.Mode == transform.ModeSimpleEnglish && call.PageNumber == 2 {
			t.Error("failed page re-entered later stage")
		}
	}

	// The summary only covers surviving pages.
	for _, call := range mock.Calls() {
		if call.Mode == transform.ModeSummary {
			if strings.Contains(call.Text, "Page 2:") {
				t.Error("summary input contains failed page")
			}
			if !strings.Contains(call.Text, "Page 1:") || !strings.Contains(call.Text, "Page 3:") {
				t.Errorf("summary input missing surviving pages: %q", call.Text)
			}
		}
	}

	events := drainEvents(sub)
	var failedEvents int
	for _, ev := range events {
		if ev.Type == model.EventPageFailed {
			failedEvents++
			if ev.Payload["page_number"] != 2 {
				t.Errorf("page_failed payload = %v, want page 2", ev.Payload)
			}
		}
	}
	if failedEvents != 1 {
		t.Errorf("page_failed events = %d, want 1", failedEvents)
	}
	last := events[len(events)-1]
	if last.Type != model.EventDocumentCompleted {
		t.Fatalf("last event = %q, want %q", last.Type, model.EventDocumentCompleted)
	}
	if last.Payload["succeeded_pages"] != 2 || last.Payload["failed_pages"] != 1 {
		t.Errorf("completion payload = %v, want 2 succeeded, 1 failed", last.Payload)
	}
}

func TestOrchestrator_UnsupportedFileType(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	doc := &model.Document{
		ID:       "doc-1",
		FileName: "deed.docx",
		FileType: model.FileType("docx"),
		Status:   model.StatusUploaded,
	}
	if err := m.CreateDocument(ctx, doc); err != nil {
		t.Fatalf("CreateDocument() error = %v", err)
	}

	fake := &extract.Fake{PageCount: 1}
	o := New(fastConfig(m, fake, &transform.Mock{}, nil))

	err := o.Process(ctx, doc)
	if !errors.Is(err, model.ErrUnsupportedFormat) {
		t.Fatalf("Process() error = %v, want ErrUnsupportedFormat", err)
	}
	if got := fake.Calls(); got != 0 {
		t.Errorf("extractor calls = %d, want 0", got)
	}
	if o.Active(doc.ID) {
		t.Error("Active() = true after rejected run")
	}
}

// pageWriteFailingStore fails every UpdatePage while letting all other
// operations through.
type pageWriteFailingStore struct {
	*store.Memory
	err error
}

func (s *pageWriteFailingStore) UpdatePage(ctx context.Context, documentID string, page model.Page) error {
	return s.err
}

func TestOrchestrator_NoPublishWithoutPersist(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	doc := newTestDoc(t, m)
	b := bus.New(bus.Config{Buffer: 64})
	sub := b.Subscribe(doc.ID)

	failing := &pageWriteFailingStore{Memory: m, err: errors.New("disk full")}
	o := New(fastConfig(failing, &extract.Fake{PageCount: 2}, &transform.Mock{}, b))

	if err := o.Process(ctx, doc); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	// No page transition was durable, so no page event may be observed.
	for _, ev := range drainEvents(sub) {
		if ev.Type == model.EventPageStatus || ev.Type == model.EventPageFailed {
			t.Errorf("observed %q event for a transition the store rejected", ev.Type)
		}
	}

	// The store still holds the pages as extraction left them.
	pages, err := m.ListPages(ctx, doc.ID)
	if err != nil {
		t.Fatalf("ListPages() error = %v", err)
	}
	for _, p := range pages {
		if p.Status != model.StatusOCRCompleted {
			t.Errorf("page %d status = %q, want %q", p.PageNumber, p.Status, model.StatusOCRCompleted)
		}
	}
}

func TestOrchestrator_ExtractionFailure(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	doc := newTestDoc(t, m)
	b := bus.New(bus.Config{Buffer: 64})
	sub := b.Subscribe(doc.ID)
	mock := &transform.Mock{}

	o := New(fastConfig(m, &extract.Fake{FailReason: "unreadable scan"}, mock, b))

	err := o.Process(ctx, doc)
	var exErr *model.ExtractionError
	if !errors.As(err, &exErr) {
		t.Fatalf("Process() error = %v, want ExtractionError", err)
	}

	got, _ := m.GetDocument(ctx, doc.ID)
	if got.Status != model.StatusFailed {
		t.Errorf("document status = %q, want %q", got.Status, model.StatusFailed)
	}
	if got := mock.CallCount(transform.ModeLegalEnglish); got != 0 {
		t.Errorf("transformation calls after extraction failure = %d, want 0", got)
	}

	events := drainEvents(sub)
	if len(events) == 0 {
		t.Fatal("no events published")
	}
	last := events[len(events)-1]
	if last.Type != model.EventDocumentFailed {
		t.Errorf("last event = %q, want %q", last.Type, model.EventDocumentFailed)
	}
	if reason, _ := last.Payload["reason"].(string); !strings.Contains(reason, "unreadable scan") {
		t.Errorf("failure reason = %q, want unreadable scan", reason)
	}
}

func TestOrchestrator_NoContentExtracted(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	doc := newTestDoc(t, m)

	o := New(fastConfig(m, &extract.Fake{PageCount: 0}, &transform.Mock{}, nil))

	err := o.Process(ctx, doc)
	if !errors.Is(err, model.ErrNoContentExtracted) {
		t.Fatalf("Process() error = %v, want ErrNoContentExtracted", err)
	}

	got, _ := m.GetDocument(ctx, doc.ID)
	if got.Status != model.StatusFailed {
		t.Errorf("document status = %q, want %q", got.Status, model.StatusFailed)
	}
}

func TestOrchestrator_AllPagesFailed(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	doc := newTestDoc(t, m)
	b := bus.New(bus.Config{Buffer: 64})
	sub := b.Subscribe(doc.ID)

	o := New(fastConfig(m, &extract.Fake{PageCount: 2}, &transform.Mock{
		FailMode: transform.ModeLegalEnglish,
	}, b))

	err := o.Process(ctx, doc)
	if !errors.Is(err, model.ErrNoContentExtracted) {
		t.Fatalf("Process() error = %v, want ErrNoContentExtracted", err)
	}

	got, _ := m.GetDocument(ctx, doc.ID)
	if got.Status != model.StatusFailed {
		t.Errorf("document status = %q, want %q", got.Status, model.StatusFailed)
	}
	if got.Summary != "" {
		t.Errorf("Summary = %q, want empty", got.Summary)
	}

	events := drainEvents(sub)
	last := events[len(events)-1]
	if last.Type != model.EventDocumentFailed {
		t.Errorf("last event = %q, want %q", last.Type, model.EventDocumentFailed)
	}
}

// blockingTransformer parks every call until released, to hold a run open.
type blockingTransformer struct {
	started  chan struct{}
	release  chan struct{}
	delegate transform.Mock
}

func (b *blockingTransformer) Name() string { return "blocking" }

func (b *blockingTransformer) Transform(ctx context.Context, req transform.Request) (string, error) {
	select {
	case b.started <- struct{}{}:
	default:
	}
	select {
	case <-b.release:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return b.delegate.Transform(ctx, req)
}

func TestOrchestrator_AlreadyProcessing(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	doc := newTestDoc(t, m)

	blocking := &blockingTransformer{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	o := New(fastConfig(m, &extract.Fake{PageCount: 1}, blocking, nil))

	done := make(chan error, 1)
	go func() { done <- o.Process(ctx, doc) }()

	select {
	case <-blocking.started:
	case <-time.After(time.Second):
		t.Fatal("first run never reached transformation")
	}

	if !o.Active(doc.ID) {
		t.Error("Active() = false during run, want true")
	}
	if err := o.Process(ctx, doc); !errors.Is(err, model.ErrAlreadyProcessing) {
		t.Errorf("concurrent Process() error = %v, want ErrAlreadyProcessing", err)
	}

	close(blocking.release)
	if err := <-done; err != nil {
		t.Fatalf("first Process() error = %v", err)
	}
	if o.Active(doc.ID) {
		t.Error("Active() = true after run, want false")
	}

	// The lock is released; a fresh run is accepted again.
	if err := o.Process(ctx, doc); err != nil {
		t.Errorf("second Process() error = %v", err)
	}
}

func TestOrchestrator_PersistBeforePublish(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	doc := newTestDoc(t, m)
	b := bus.New(bus.Config{Buffer: 64})
	sub := b.Subscribe(doc.ID)

	o := New(fastConfig(m, &extract.Fake{PageCount: 1}, &transform.Mock{}, b))
	if err := o.Process(ctx, doc); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	// By the time document_completed is observable, the store already holds
	// the final state.
	for _, ev := range drainEvents(sub) {
		if ev.Type == model.EventDocumentCompleted {
			got, _ := m.GetDocument(ctx, doc.ID)
			if got.Status != model.StatusCompleted {
				t.Errorf("store status at completion event = %q, want %q", got.Status, model.StatusCompleted)
			}
			if got.Summary == "" {
				t.Error("summary missing at completion event")
			}
		}
	}
}

func TestOrchestrator_RetriesTransientFailures(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	doc := newTestDoc(t, m)

	tr := &flakyTransformer{failures: 2}
	o := New(Config{
		Store:       m,
		Extractor:   &extract.Fake{PageCount: 1},
		Transformer: tr,
		Attempts:    3,
		RetryDelay:  time.Millisecond,
		PageWorkers: 1,
	})

	if err := o.Process(ctx, doc); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	got, _ := m.GetDocument(ctx, doc.ID)
	if got.Status != model.StatusCompleted {
		t.Errorf("document status = %q, want %q", got.Status, model.StatusCompleted)
	}
}

// flakyTransformer fails the first N calls, then behaves like the mock.
type flakyTransformer struct {
	failures int
	delegate transform.Mock
}

func (f *flakyTransformer) Name() string { return "flaky" }

func (f *flakyTransformer) Transform(ctx context.Context, req transform.Request) (string, error) {
	if f.failures > 0 {
		f.failures--
		return "", &model.TransformationError{Mode: string(req.Mode), Reason: "transient"}
	}
	return f.delegate.Transform(ctx, req)
}
