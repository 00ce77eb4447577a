// Package bus fans out document progress events to live subscribers.
//
// The bus keeps one topic per document id, each with its own lock and
// subscriber set, so unrelated documents never contend. Delivery is
// best-effort and at-most-once: publishing with no subscribers discards the
// event, and a subscriber that cannot keep up is dropped rather than
// allowed to stall the publisher. Progress is recoverable through status
// polling, not event replay.
package bus

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mkandasamy/deedflow/internal/model"
)

const (
	// DefaultKeepAlive is the idle interval after which a streaming
	// consumer receives a keepalive frame.
	DefaultKeepAlive = 60 * time.Second

	// DefaultBuffer is the per-subscriber event queue depth. A subscriber
	// further behind than this is considered dead and dropped.
	DefaultBuffer = 16
)

// Config holds bus configuration.
type Config struct {
	// KeepAlive is the idle timeout before a keepalive frame (default 60s).
	KeepAlive time.Duration
	// Buffer is the per-subscription channel depth (default 16).
	Buffer int
	// Logger is the structured logger to use.
	Logger *slog.Logger
}

// Bus is a per-document multi-subscriber broadcast channel.
type Bus struct {
	mu     sync.RWMutex
	topics map[string]*topic

	keepAlive time.Duration
	buffer    int
	logger    *slog.Logger
}

// topic is the subscriber set for one document id. It has its own lock so
// publishes for one document never block subscribes for another.
type topic struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// Subscription is one consumer's registration for a document's events.
type Subscription struct {
	id         string
	documentID string
	events     chan model.ProgressEvent
	closed     bool // guarded by the owning topic's lock
}

// ID returns the unique subscription identifier.
func (s *Subscription) ID() string { return s.id }

// DocumentID returns the document id this subscription follows.
func (s *Subscription) DocumentID() string { return s.documentID }

// Events exposes the raw event channel. The channel is closed when the
// subscription is removed, whether by Unsubscribe or by a dropped delivery.
func (s *Subscription) Events() <-chan model.ProgressEvent { return s.events }

// New creates a Bus with the given configuration.
func New(cfg Config) *Bus {
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = DefaultKeepAlive
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = DefaultBuffer
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Bus{
		topics:    make(map[string]*topic),
		keepAlive: cfg.KeepAlive,
		buffer:    cfg.Buffer,
		logger:    cfg.Logger,
	}
}

// Subscribe registers a new consumer for the document id. The subscription
// receives every event published after this call; events published before
// it are not replayed.
func (b *Bus) Subscribe(documentID string) *Subscription {
	sub := &Subscription{
		id:         uuid.New().String(),
		documentID: documentID,
		events:     make(chan model.ProgressEvent, b.buffer),
	}

	// The add happens while still holding the bus lock so a concurrent
	// reapIfEmpty cannot delete the topic between lookup and registration,
	// which would leave the subscription on an orphaned topic.
	b.mu.Lock()
	t, ok := b.topics[documentID]
	if !ok {
		t = &topic{subs: make(map[*Subscription]struct{})}
		b.topics[documentID] = t
	}
	t.mu.Lock()
	t.subs[sub] = struct{}{}
	t.mu.Unlock()
	b.mu.Unlock()

	b.logger.Debug("subscriber added", "document_id", documentID, "subscription", sub.id)
	return sub
}

// Unsubscribe removes the subscription and closes its channel. Once the
// last subscription for a document is removed, the topic is reclaimed.
// Safe to call more than once.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.RLock()
	t := b.topics[sub.documentID]
	b.mu.RUnlock()
	if t == nil {
		return
	}

	t.mu.Lock()
	removed := b.removeLocked(t, sub)
	empty := len(t.subs) == 0
	t.mu.Unlock()

	if empty {
		b.reapIfEmpty(sub.documentID)
	}
	if removed {
		b.logger.Debug("subscriber removed", "document_id", sub.documentID, "subscription", sub.id)
	}
}

// Publish delivers the event to every current subscriber of the document.
// A subscriber whose queue is full is dropped from the set; delivery to one
// subscriber never blocks delivery to another. With zero subscribers the
// event is discarded.
func (b *Bus) Publish(documentID, eventType string, payload map[string]any) {
	b.mu.RLock()
	t := b.topics[documentID]
	b.mu.RUnlock()
	if t == nil {
		return
	}

	ev := model.NewProgressEvent(documentID, eventType, payload)

	t.mu.Lock()
	var dropped int
	for sub := range t.subs {
		select {
		case sub.events <- ev:
		default:
			b.removeLocked(t, sub)
			dropped++
		}
	}
	empty := len(t.subs) == 0
	t.mu.Unlock()

	if dropped > 0 {
		b.logger.Warn("dropped slow subscribers", "document_id", documentID, "count", dropped)
	}
	if empty {
		b.reapIfEmpty(documentID)
	}
}

// SubscriberCount returns the number of live subscriptions for a document.
func (b *Bus) SubscriberCount(documentID string) int {
	b.mu.RLock()
	t := b.topics[documentID]
	b.mu.RUnlock()
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// TopicCount returns the number of documents with at least one subscriber.
func (b *Bus) TopicCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics)
}

// removeLocked deletes sub from the topic and closes its channel. The
// caller must hold t.mu. Returns false if the sub was already gone.
func (b *Bus) removeLocked(t *topic, sub *Subscription) bool {
	if _, ok := t.subs[sub]; !ok {
		return false
	}
	delete(t.subs, sub)
	if !sub.closed {
		sub.closed = true
		close(sub.events)
	}
	return true
}

// reapIfEmpty deletes the topic entry if its subscriber set is empty,
// re-checking under the write lock since a new subscriber may have arrived.
func (b *Bus) reapIfEmpty(documentID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.topics[documentID]
	if !ok {
		return
	}
	t.mu.Lock()
	empty := len(t.subs) == 0
	t.mu.Unlock()
	if empty {
		delete(b.topics, documentID)
	}
}

// Stream turns a subscription into a sequence of wire-ready SSE frames.
// Real events arrive as event frames; after an idle keepalive interval with
// no event, a single keepalive comment frame is emitted. The returned
// channel closes, and the subscription is released, when ctx is cancelled
// or the subscription's channel closes.
func (b *Bus) Stream(ctx context.Context, sub *Subscription) <-chan string {
	frames := make(chan string)

	go func() {
		defer close(frames)
		defer b.Unsubscribe(sub)

		timer := time.NewTimer(b.keepAlive)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub.events:
				if !ok {
					return
				}
				select {
				case frames <- EventFrame(ev):
				case <-ctx.Done():
					return
				}
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(b.keepAlive)
			case <-timer.C:
				select {
				case frames <- KeepAliveFrame:
				case <-ctx.Done():
					return
				}
				timer.Reset(b.keepAlive)
			}
		}
	}()

	return frames
}
