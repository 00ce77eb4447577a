package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/sync/errgroup"

	"github.com/mkandasamy/deedflow/internal/bus"
	"github.com/mkandasamy/deedflow/internal/extract"
	"github.com/mkandasamy/deedflow/internal/model"
	"github.com/mkandasamy/deedflow/internal/store"
	"github.com/mkandasamy/deedflow/internal/transform"
)

const (
	DefaultPageWorkers = 4
	DefaultAttempts    = 3
	DefaultRetryDelay  = 2 * time.Second
)

// Config holds orchestrator settings.
type Config struct {
	Store       store.Gateway
	Extractor   extract.Extractor
	Transformer transform.Transformer
	Bus         *bus.Bus
	Logger      *slog.Logger

	// PageWorkers bounds concurrent model calls within one document.
	PageWorkers int
	// Attempts is the per-call retry budget for transformation calls.
	Attempts uint
	// RetryDelay is the base delay between attempts (exponential backoff).
	RetryDelay time.Duration
}

// Orchestrator drives a document through extraction, translation,
// simplification and summarization. One run per document at a time; progress
// is persisted before it is published.
type Orchestrator struct {
	store       store.Gateway
	extractor   extract.Extractor
	transformer transform.Transformer
	bus         *bus.Bus
	logger      *slog.Logger

	pageWorkers int
	attempts    uint
	retryDelay  time.Duration

	mu     sync.Mutex
	active map[string]struct{}
}

// New creates an orchestrator with defaults applied.
func New(cfg Config) *Orchestrator {
	if cfg.PageWorkers <= 0 {
		cfg.PageWorkers = DefaultPageWorkers
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = DefaultAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Orchestrator{
		store:       cfg.Store,
		extractor:   cfg.Extractor,
		transformer: cfg.Transformer,
		bus:         cfg.Bus,
		logger:      cfg.Logger,
		pageWorkers: cfg.PageWorkers,
		attempts:    cfg.Attempts,
		retryDelay:  cfg.RetryDelay,
		active:      make(map[string]struct{}),
	}
}

// Active reports whether a run is in flight for the document.
func (o *Orchestrator) Active(documentID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.active[documentID]
	return ok
}

func (o *Orchestrator) acquire(documentID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.active[documentID]; ok {
		return false
	}
	o.active[documentID] = struct{}{}
	return true
}

func (o *Orchestrator) release(documentID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.active, documentID)
}

// Process runs the full pipeline for a document record that has already been
// persisted. It returns model.ErrUnsupportedFormat for a file type the
// extractor cannot handle and model.ErrAlreadyProcessing when a run for the
// same document is in flight.
func (o *Orchestrator) Process(ctx context.Context, doc *model.Document) (err error) {
	switch doc.FileType {
	case model.FileTypePDF, model.FileTypeImage:
	default:
		return fmt.Errorf("document %s: file type %q: %w", doc.ID, doc.FileType, model.ErrUnsupportedFormat)
	}

	if !o.acquire(doc.ID) {
		return fmt.Errorf("document %s: %w", doc.ID, model.ErrAlreadyProcessing)
	}
	defer o.release(doc.ID)

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("pipeline panic", "document_id", doc.ID, "panic", r)
			o.failDocument(context.WithoutCancel(ctx), doc.ID, fmt.Sprintf("internal error: %v", r))
			err = fmt.Errorf("pipeline panic: %v", r)
		}
	}()

	log := o.logger.With("document_id", doc.ID, "file", doc.FileName)
	log.Info("pipeline started", "file_type", doc.FileType)

	pages, err := o.runExtraction(ctx, doc, log)
	if err != nil {
		return err
	}

	o.runStage(ctx, doc, pages, transform.ModeLegalEnglish, log)
	o.runStage(ctx, doc, pages, transform.ModeSimpleEnglish, log)

	return o.runSummary(ctx, doc, pages, log)
}

// runExtraction performs OCR and persists the extracted pages.
func (o *Orchestrator) runExtraction(ctx context.Context, doc *model.Document, log *slog.Logger) ([]model.Page, error) {
	if err := o.setStatus(ctx, doc.ID, model.StatusOCRStarted); err != nil {
		return nil, err
	}

	texts, err := o.extractor.Extract(ctx, doc.FilePath, doc.FileType)
	if err != nil {
		log.Error("extraction failed", "error", err)
		o.failDocument(ctx, doc.ID, err.Error())
		return nil, err
	}
	if len(texts) == 0 {
		log.Warn("no content extracted")
		o.failDocument(ctx, doc.ID, "no content extracted")
		return nil, fmt.Errorf("document %s: %w", doc.ID, model.ErrNoContentExtracted)
	}

	pages := make([]model.Page, 0, len(texts))
	for _, pt := range texts {
		page := model.Page{
			PageNumber:   pt.PageNumber,
			OriginalText: pt.Text,
			Status:       model.StatusOCRCompleted,
		}
		if createErr := o.store.CreatePage(ctx, doc.ID, page); createErr != nil {
			o.failDocument(ctx, doc.ID, "failed to persist extracted pages")
			return nil, fmt.Errorf("create page %d: %w", pt.PageNumber, createErr)
		}
		pages = append(pages, page)
	}
	if err := o.store.SetTotalPages(ctx, doc.ID, len(pages)); err != nil {
		o.failDocument(ctx, doc.ID, "failed to persist page count")
		return nil, fmt.Errorf("set total pages: %w", err)
	}
	if err := o.setStatus(ctx, doc.ID, model.StatusOCRCompleted); err != nil {
		return nil, err
	}

	o.publish(doc.ID, model.EventPagesExtracted, map[string]any{"total_pages": len(pages)})
	log.Info("extraction completed", "pages", len(pages))
	return pages, nil
}

// runStage applies one transformation mode across all eligible pages with a
// bounded worker pool. A failed page is recorded and skipped by later stages;
// it never aborts the run.
func (o *Orchestrator) runStage(ctx context.Context, doc *model.Document, pages []model.Page, mode transform.Mode, log *slog.Logger) {
	processing, completed := stageStatuses(mode)

	if err := o.setStatus(ctx, doc.ID, processing); err != nil {
		log.Error("failed to persist stage status", "stage", mode, "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.pageWorkers)

	for i := range pages {
		page := &pages[i]
		if page.Status == model.StatusFailed {
			continue
		}
		g.Go(func() error {
			o.transformPage(gctx, doc.ID, page, mode, processing, completed, log)
			return nil
		})
	}
	_ = g.Wait()

	if err := o.setStatus(ctx, doc.ID, completed); err != nil {
		log.Error("failed to persist stage status", "stage", mode, "error", err)
	}
	log.Info("stage completed", "stage", mode)
}

func (o *Orchestrator) transformPage(ctx context.Context, documentID string, page *model.Page, mode transform.Mode, processing, completed model.Status, log *slog.Logger) {
	page.Status = processing
	if err := o.persistPage(ctx, documentID, *page, log); err == nil {
		o.publish(documentID, model.EventPageStatus, map[string]any{
			"page_number": page.PageNumber,
			"status":      string(processing),
		})
	}

	input := page.OriginalText
	if mode == transform.ModeSimpleEnglish {
		input = page.LegalEnglish
	}

	result, err := o.transformWithRetry(ctx, transform.Request{
		Mode:       mode,
		Text:       input,
		PageNumber: page.PageNumber,
	})
	if err != nil {
		log.Warn("page transformation failed", "page", page.PageNumber, "stage", mode, "error", err)
		page.Status = model.StatusFailed
		page.FailureReason = err.Error()
		if persistErr := o.persistPage(ctx, documentID, *page, log); persistErr == nil {
			o.publish(documentID, model.EventPageFailed, map[string]any{
				"page_number": page.PageNumber,
				"reason":      page.FailureReason,
			})
		}
		return
	}

	switch mode {
	case transform.ModeLegalEnglish:
		page.LegalEnglish = result
	case transform.ModeSimpleEnglish:
		page.SimpleEnglish = result
	}
	page.Status = completed
	if err := o.persistPage(ctx, documentID, *page, log); err == nil {
		o.publish(documentID, model.EventPageStatus, map[string]any{
			"page_number": page.PageNumber,
			"status":      string(completed),
		})
	}
}

// runSummary summarizes the surviving pages and finalizes the document.
func (o *Orchestrator) runSummary(ctx context.Context, doc *model.Document, pages []model.Page, log *slog.Logger) error {
	var survivors []*model.Page
	for i := range pages {
		if pages[i].Status == model.StatusSimplificationCompleted {
			survivors = append(survivors, &pages[i])
		}
	}
	if len(survivors) == 0 {
		log.Error("all pages failed")
		o.failDocument(ctx, doc.ID, "no pages could be processed")
		return fmt.Errorf("document %s: %w", doc.ID, model.ErrNoContentExtracted)
	}

	o.publish(doc.ID, model.EventSummaryStarted, map[string]any{
		"pages": len(survivors),
	})

	var combined strings.Builder
	for _, page := range survivors {
		fmt.Fprintf(&combined, "Page %d:\n%s\n\n", page.PageNumber, page.LegalEnglish)
	}

	summary, err := o.transformWithRetry(ctx, transform.Request{
		Mode: transform.ModeSummary,
		Text: combined.String(),
	})
	if err != nil {
		log.Error("summarization failed", "error", err)
		o.failDocument(ctx, doc.ID, "summarization failed")
		return err
	}

	if err := o.store.SetDocumentSummary(ctx, doc.ID, summary); err != nil {
		o.failDocument(ctx, doc.ID, "failed to persist summary")
		return fmt.Errorf("set summary: %w", err)
	}
	for _, page := range survivors {
		page.Status = model.StatusCompleted
		o.persistPage(ctx, doc.ID, *page, log)
	}
	if err := o.setStatus(ctx, doc.ID, model.StatusCompleted); err != nil {
		return err
	}

	failed := len(pages) - len(survivors)
	o.publish(doc.ID, model.EventDocumentCompleted, map[string]any{
		"status":          string(model.StatusCompleted),
		"total_pages":     len(pages),
		"succeeded_pages": len(survivors),
		"failed_pages":    failed,
	})
	log.Info("pipeline completed", "total_pages", len(pages), "failed_pages", failed)
	return nil
}

func (o *Orchestrator) transformWithRetry(ctx context.Context, req transform.Request) (string, error) {
	return retry.DoWithData(
		func() (string, error) {
			return o.transformer.Transform(ctx, req)
		},
		retry.Context(ctx),
		retry.Attempts(o.attempts),
		retry.Delay(o.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
}

// setStatus persists a document status transition.
func (o *Orchestrator) setStatus(ctx context.Context, documentID string, status model.Status) error {
	if err := o.store.UpdateDocumentStatus(ctx, documentID, status); err != nil {
		return fmt.Errorf("update status to %s: %w", status, err)
	}
	return nil
}

// persistPage stores a page transition. Callers must not publish the
// corresponding event when the persist fails: subscribers only ever see
// state the store already holds.
func (o *Orchestrator) persistPage(ctx context.Context, documentID string, page model.Page, log *slog.Logger) error {
	if err := o.store.UpdatePage(ctx, documentID, page); err != nil {
		log.Error("failed to persist page", "page", page.PageNumber, "error", err)
		return err
	}
	return nil
}

// failDocument marks the document failed and then notifies subscribers.
func (o *Orchestrator) failDocument(ctx context.Context, documentID, reason string) {
	if err := o.store.UpdateDocumentStatus(ctx, documentID, model.StatusFailed); err != nil {
		o.logger.Error("failed to persist failure", "document_id", documentID, "error", err)
	}
	o.publish(documentID, model.EventDocumentFailed, map[string]any{
		"status": string(model.StatusFailed),
		"reason": reason,
	})
}

func (o *Orchestrator) publish(documentID, eventType string, payload map[string]any) {
	if o.bus == nil {
		return
	}
	o.bus.Publish(documentID, eventType, payload)
}

func stageStatuses(mode transform.Mode) (processing, completed model.Status) {
	if mode == transform.ModeSimpleEnglish {
		return model.StatusSimplificationStarted, model.StatusSimplificationCompleted
	}
	return model.StatusTranslationStarted, model.StatusTranslationCompleted
}
