package transform

import (
	"context"
	"fmt"
	"sync"

	"github.com/mkandasamy/deedflow/internal/model"
)

// Mock is a scriptable Transformer for tests. Outputs are derived from the
// mode and page number unless overridden; failures can be injected per mode
// or per page.
type Mock struct {
	mu sync.Mutex

	// Outputs maps a mode to a fixed response. When unset, a synthetic
	// response is generated.
	Outputs map[Mode]string

	// FailMode makes every call with the given mode fail.
	FailMode Mode

	// FailPages makes calls for specific page numbers fail (any mode).
	FailPages map[int]bool

	// FailReason is attached to injected failures.
	FailReason string

	calls []Request
}

var _ Transformer = (*Mock)(nil)

func (m *Mock) Name() string { return "mock" }

func (m *Mock) Transform(_ context.Context, req Request) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	failMode := m.FailMode
	failPage := m.FailPages[req.PageNumber]
	reason := m.FailReason
	out, scripted := m.Outputs[req.Mode]
	m.mu.Unlock()

	if (failMode != "" && failMode == req.Mode) || failPage {
		if reason == "" {
			reason = "injected failure"
		}
		return "", &model.TransformationError{Mode: string(req.Mode), Reason: reason}
	}

	if scripted {
		return out, nil
	}
	if req.Mode == ModeSummary {
		return `{"summary":"mock summary"}`, nil
	}
	return fmt.Sprintf("%s page %d", req.Mode, req.PageNumber), nil
}

// Calls returns a copy of all recorded requests.
func (m *Mock) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of calls made with the given mode.
func (m *Mock) CallCount(mode Mode) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Mode == mode {
			n++
		}
	}
	return n
}
