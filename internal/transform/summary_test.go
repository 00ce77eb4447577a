package transform

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseSummary(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{
			name:    "plain object",
			content: `{"summary": "Sale deed between two parties.", "document_type": "sale deed"}`,
		},
		{
			name: "code fenced",
			content: "```json\n" +
				`{"summary": "Lease agreement for farmland.", "parties": ["Raman", "Selvi"]}` +
				"\n```",
		},
		{
			name:    "prose wrapped",
			content: `Here is the summary: {"summary": "Gift deed transferring house."} Hope this helps.`,
		},
		{
			name:    "missing summary field",
			content: `{"document_type": "sale deed"}`,
			wantErr: true,
		},
		{
			name:    "empty summary field",
			content: `{"summary": ""}`,
			wantErr: true,
		},
		{
			name:    "not json",
			content: "The document is a sale deed.",
			wantErr: true,
		},
		{
			name:    "empty",
			content: "   ",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSummary(tt.content)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseSummary() = %q, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseSummary() error = %v", err)
			}

			// The result is normalized JSON with the required field.
			var parsed struct {
				Summary string `json:"summary"`
			}
			if err := json.Unmarshal([]byte(got), &parsed); err != nil {
				t.Fatalf("result not valid JSON: %v", err)
			}
			if parsed.Summary == "" {
				t.Errorf("result %q has empty summary", got)
			}
		})
	}
}

func TestStripCodeFences(t *testing.T) {
	got := stripCodeFences("```json\n{\"a\": 1}\n```")
	if got != `{"a": 1}` {
		t.Errorf("stripCodeFences() = %q, want object body", got)
	}

	if got := stripCodeFences(`{"a": 1}`); got != "" {
		t.Errorf("stripCodeFences() on unfenced input = %q, want empty", got)
	}
}

func TestExtractObjectCandidate(t *testing.T) {
	got := extractObjectCandidate(`noise {"summary": "x"} trailing`)
	if !strings.HasPrefix(got, "{") || !strings.HasSuffix(got, "}") {
		t.Errorf("extractObjectCandidate() = %q, want braced object", got)
	}

	if got := extractObjectCandidate("no braces here"); got != "" {
		t.Errorf("extractObjectCandidate() = %q, want empty", got)
	}
}
