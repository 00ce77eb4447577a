package bus

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestBus_PublishWithoutSubscribers(t *testing.T) {
	b := New(Config{})

	// Must not panic or retain anything.
	b.Publish("doc-1", "page_status", map[string]any{"page_number": 1})

	if got := b.TopicCount(); got != 0 {
		t.Errorf("TopicCount() = %d, want 0", got)
	}
}

func TestBus_FanOut(t *testing.T) {
	b := New(Config{})

	sub1 := b.Subscribe("doc-1")
	sub2 := b.Subscribe("doc-1")
	other := b.Subscribe("doc-2")

	b.Publish("doc-1", "pages_extracted", map[string]any{"total_pages": 3})

	for i, sub := range []*Subscription{sub1, sub2} {
		select {
		case ev := <-sub.Events():
			if ev.Type != "pages_extracted" {
				t.Errorf("sub%d event type = %q, want pages_extracted", i+1, ev.Type)
			}
			if ev.DocumentID != "doc-1" {
				t.Errorf("sub%d document id = %q, want doc-1", i+1, ev.DocumentID)
			}
		case <-time.After(time.Second):
			t.Fatalf("sub%d did not receive event", i+1)
		}
	}

	select {
	case ev := <-other.Events():
		t.Errorf("doc-2 subscriber received %q for doc-1", ev.Type)
	default:
	}
}

func TestBus_NoReplay(t *testing.T) {
	b := New(Config{})

	// Published before anyone subscribes; must be lost.
	b.Publish("doc-1", "pages_extracted", nil)

	sub := b.Subscribe("doc-1")
	select {
	case ev := <-sub.Events():
		t.Errorf("received replayed event %q", ev.Type)
	default:
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	b := New(Config{})

	sub := b.Subscribe("doc-1")
	if got := b.SubscriberCount("doc-1"); got != 1 {
		t.Fatalf("SubscriberCount() = %d, want 1", got)
	}

	b.Unsubscribe(sub)
	if got := b.SubscriberCount("doc-1"); got != 0 {
		t.Errorf("SubscriberCount() = %d, want 0", got)
	}
	if got := b.TopicCount(); got != 0 {
		t.Errorf("TopicCount() = %d, want 0 after last unsubscribe", got)
	}

	// Channel is closed.
	if _, ok := <-sub.Events(); ok {
		t.Error("events channel still open after unsubscribe")
	}

	// Second unsubscribe is a no-op.
	b.Unsubscribe(sub)
}

func TestBus_SubscribeDuringTopicReap(t *testing.T) {
	b := New(Config{})

	// An unsubscribe of the last remaining subscription reaps the topic. A
	// subscription registered concurrently must land on a live topic and
	// still receive later publishes.
	for i := 0; i < 500; i++ {
		old := b.Subscribe("doc-1")

		done := make(chan struct{})
		go func() {
			b.Unsubscribe(old)
			close(done)
		}()
		fresh := b.Subscribe("doc-1")
		<-done

		b.Publish("doc-1", "page_status", map[string]any{"page_number": 1})
		select {
		case _, ok := <-fresh.Events():
			if !ok {
				t.Fatalf("iteration %d: fresh subscription closed", i)
			}
		default:
			t.Fatalf("iteration %d: fresh subscription missed publish", i)
		}
		b.Unsubscribe(fresh)
	}
}

func TestBus_SlowSubscriberDropped(t *testing.T) {
	b := New(Config{Buffer: 1})

	slow := b.Subscribe("doc-1")
	healthy := b.Subscribe("doc-1")

	// Fill the slow subscriber's buffer, then overflow it. The healthy
	// subscriber drains as it goes.
	b.Publish("doc-1", "page_status", map[string]any{"page_number": 1})
	<-healthy.Events()
	b.Publish("doc-1", "page_status", map[string]any{"page_number": 2})
	<-healthy.Events()

	if got := b.SubscriberCount("doc-1"); got != 1 {
		t.Errorf("SubscriberCount() = %d, want 1 after slow subscriber dropped", got)
	}

	// The slow subscriber keeps its buffered event, then sees the close.
	if ev, ok := <-slow.Events(); !ok || ev.Payload["page_number"] != 1 {
		t.Errorf("slow subscriber first receive = (%v, %v), want buffered event", ev, ok)
	}
	if _, ok := <-slow.Events(); ok {
		t.Error("slow subscriber channel still open after drop")
	}

	// The healthy subscriber still receives.
	b.Publish("doc-1", "page_status", map[string]any{"page_number": 3})
	select {
	case <-healthy.Events():
	case <-time.After(time.Second):
		t.Fatal("healthy subscriber did not receive after slow one was dropped")
	}
}

func TestBus_StreamEmitsEventFrames(t *testing.T) {
	b := New(Config{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := b.Subscribe("doc-1")
	frames := b.Stream(ctx, sub)

	b.Publish("doc-1", "document_completed", map[string]any{"status": "completed"})

	select {
	case frame := <-frames:
		if !strings.HasPrefix(frame, "event: document_completed\n") {
			t.Errorf("frame = %q, want event: document_completed prefix", frame)
		}
		if !strings.Contains(frame, `"document_id":"doc-1"`) {
			t.Errorf("frame = %q, missing document id in data", frame)
		}
		if !strings.HasSuffix(frame, "\n\n") {
			t.Errorf("frame = %q, missing terminating blank line", frame)
		}
	case <-time.After(time.Second):
		t.Fatal("no frame received")
	}
}

func TestBus_StreamKeepAlive(t *testing.T) {
	b := New(Config{KeepAlive: 100 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := b.Subscribe("doc-1")
	frames := b.Stream(ctx, sub)

	select {
	case frame := <-frames:
		if frame != KeepAliveFrame {
			t.Errorf("frame = %q, want keepalive comment", frame)
		}
	case <-time.After(time.Second):
		t.Fatal("no keepalive frame received")
	}

	// One frame per idle window: nothing else arrives until the next
	// interval elapses.
	select {
	case frame := <-frames:
		t.Errorf("frame %q arrived before the idle interval elapsed", frame)
	case <-time.After(50 * time.Millisecond):
	}

	select {
	case frame := <-frames:
		if frame != KeepAliveFrame {
			t.Errorf("frame = %q, want second keepalive", frame)
		}
	case <-time.After(time.Second):
		t.Fatal("no second keepalive frame received")
	}
}

func TestBus_StreamCancelReleasesSubscription(t *testing.T) {
	b := New(Config{})

	ctx, cancel := context.WithCancel(context.Background())
	sub := b.Subscribe("doc-1")
	frames := b.Stream(ctx, sub)

	cancel()

	select {
	case _, ok := <-frames:
		if ok {
			t.Error("frames channel delivered after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("frames channel did not close after cancel")
	}

	deadline := time.Now().Add(time.Second)
	for b.SubscriberCount("doc-1") != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription not released after cancel")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
