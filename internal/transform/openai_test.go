package transform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mkandasamy/deedflow/internal/model"
)

// chatRequest captures the fields of a completion request the tests care
// about.
type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

func chatCompletionResponse(content string) string {
	data, _ := json.Marshal(map[string]any{
		"id":     "chatcmpl-test",
		"object": "chat.completion",
		"model":  "gpt-4o-mini",
		"choices": []map[string]any{
			{
				"index":         0,
				"finish_reason": "stop",
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
				},
			},
		},
	})
	return string(data)
}

func newTestOpenAI(t *testing.T, handler http.HandlerFunc) (*OpenAI, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewOpenAI(OpenAIConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
	})
	return c, srv
}

func TestOpenAI_TransformLegalEnglish(t *testing.T) {
	var captured chatRequest
	c, _ := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, chatCompletionResponse("This deed conveys the land."))
	})

	got, err := c.Transform(context.Background(), Request{
		Mode:       ModeLegalEnglish,
		Text:       "tamil deed text",
		PageNumber: 1,
	})
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if got != "This deed conveys the land." {
		t.Errorf("Transform() = %q, want completion content", got)
	}

	if captured.Model != "gpt-4o-mini" {
		t.Errorf("request model = %q, want gpt-4o-mini", captured.Model)
	}
	if len(captured.Messages) != 2 {
		t.Fatalf("request messages = %d, want system + user", len(captured.Messages))
	}
	if captured.Messages[0].Role != "system" || captured.Messages[1].Role != "user" {
		t.Errorf("message roles = %q, %q", captured.Messages[0].Role, captured.Messages[1].Role)
	}
	if captured.ResponseFormat != nil {
		t.Error("response_format set for a page-text mode")
	}
}

func TestOpenAI_TransformSummary(t *testing.T) {
	var captured chatRequest
	c, _ := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, chatCompletionResponse(`{"summary": "Sale deed for farmland.", "document_type": "sale deed"}`))
	})

	got, err := c.Transform(context.Background(), Request{
		Mode: ModeSummary,
		Text: "Page 1:\nSimple text\n\n",
	})
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}

	var parsed struct {
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal([]byte(got), &parsed); err != nil {
		t.Fatalf("result not valid JSON: %v", err)
	}
	if parsed.Summary != "Sale deed for farmland." {
		t.Errorf("summary = %q", parsed.Summary)
	}

	if captured.ResponseFormat == nil || captured.ResponseFormat.Type != "json_object" {
		t.Errorf("response_format = %+v, want json_object", captured.ResponseFormat)
	}
}

func TestOpenAI_TransformSummaryInvalidPayload(t *testing.T) {
	c, _ := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, chatCompletionResponse(`{"document_type": "sale deed"}`))
	})

	_, err := c.Transform(context.Background(), Request{Mode: ModeSummary, Text: "text"})
	var trErr *model.TransformationError
	if !errors.As(err, &trErr) {
		t.Fatalf("Transform() error = %v, want TransformationError", err)
	}
	if trErr.Mode != string(ModeSummary) {
		t.Errorf("error mode = %q, want summary", trErr.Mode)
	}
}

func TestOpenAI_RateLimited(t *testing.T) {
	c, _ := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error": {"message": "rate limited", "type": "rate_limit_error"}}`)
	})

	_, err := c.Transform(context.Background(), Request{
		Mode: ModeLegalEnglish,
		Text: "text",
	})
	var trErr *model.TransformationError
	if !errors.As(err, &trErr) {
		t.Fatalf("Transform() error = %v, want TransformationError", err)
	}

	st := c.Limiter().Status()
	if st.Last429Time.IsZero() {
		t.Error("limiter did not record the 429")
	}
	if st.TokensAvailable > 1 {
		t.Errorf("TokensAvailable = %d, want drained bucket", st.TokensAvailable)
	}
}

func TestOpenAI_InputValidation(t *testing.T) {
	c := NewOpenAI(OpenAIConfig{APIKey: "test-key"})

	t.Run("unknown mode", func(t *testing.T) {
		_, err := c.Transform(context.Background(), Request{Mode: "shouting", Text: "x"})
		var trErr *model.TransformationError
		if !errors.As(err, &trErr) {
			t.Fatalf("Transform() error = %v, want TransformationError", err)
		}
	})

	t.Run("empty text", func(t *testing.T) {
		_, err := c.Transform(context.Background(), Request{Mode: ModeLegalEnglish, Text: "   "})
		var trErr *model.TransformationError
		if !errors.As(err, &trErr) {
			t.Fatalf("Transform() error = %v, want TransformationError", err)
		}
	})
}

func TestOpenAI_EmptyCompletion(t *testing.T) {
	c, _ := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, chatCompletionResponse(""))
	})

	_, err := c.Transform(context.Background(), Request{Mode: ModeLegalEnglish, Text: "text"})
	var trErr *model.TransformationError
	if !errors.As(err, &trErr) {
		t.Fatalf("Transform() error = %v, want TransformationError", err)
	}
}

func TestMock_Scripting(t *testing.T) {
	m := &Mock{
		Outputs:   map[Mode]string{ModeLegalEnglish: "scripted"},
		FailPages: map[int]bool{3: true},
	}

	got, err := m.Transform(context.Background(), Request{Mode: ModeLegalEnglish, Text: "x", PageNumber: 1})
	if err != nil || got != "scripted" {
		t.Errorf("Transform() = (%q, %v), want scripted output", got, err)
	}

	if _, err := m.Transform(context.Background(), Request{Mode: ModeLegalEnglish, Text: "x", PageNumber: 3}); err == nil {
		t.Error("Transform() for failing page succeeded")
	}

	if got := m.CallCount(ModeLegalEnglish); got != 2 {
		t.Errorf("CallCount() = %d, want 2", got)
	}
}
