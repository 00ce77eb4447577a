package transform

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// summarySchemaJSON is the shape the summary stage must return. The model is
// asked for a JSON object; validation happens locally against this schema.
const summarySchemaJSON = `{
  "type": "object",
  "properties": {
    "summary": {"type": "string", "minLength": 1},
    "document_type": {"type": "string"},
    "parties": {"type": "array", "items": {"type": "string"}},
    "key_details": {"type": "array", "items": {"type": "string"}}
  },
  "required": ["summary"]
}`

var (
	summarySchemaOnce sync.Once
	summarySchema     *jsonschema.Schema
	summarySchemaErr  error
)

func compiledSummarySchema() (*jsonschema.Schema, error) {
	summarySchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("summary.json", strings.NewReader(summarySchemaJSON)); err != nil {
			summarySchemaErr = fmt.Errorf("failed to load summary schema: %w", err)
			return
		}
		summarySchema, summarySchemaErr = compiler.Compile("summary.json")
	})
	return summarySchema, summarySchemaErr
}

// parseSummary parses and validates a summary completion, returning the
// normalized JSON document. Markdown code fences and surrounding prose are
// tolerated; the payload itself must match the summary schema.
func parseSummary(content string) (string, error) {
	raw, err := extractSummaryJSON(content)
	if err != nil {
		return "", err
	}

	schema, err := compiledSummarySchema()
	if err != nil {
		return "", err
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", fmt.Errorf("failed to decode summary for validation: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return "", fmt.Errorf("summary does not match schema: %w", err)
	}

	return string(raw), nil
}

// extractSummaryJSON pulls a JSON object out of model output, with lightweight
// recovery for markdown code fences and surrounding text.
func extractSummaryJSON(content string) (json.RawMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("empty summary output")
	}

	candidates := []string{content}
	if stripped := stripCodeFences(content); stripped != "" && stripped != content {
		candidates = append(candidates, stripped)
	}
	if extracted := extractObjectCandidate(content); extracted != "" && extracted != content {
		candidates = append(candidates, extracted)
	}

	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		var parsed any
		if err := json.Unmarshal([]byte(candidate), &parsed); err == nil {
			normalized, mErr := json.Marshal(parsed)
			if mErr != nil {
				return nil, fmt.Errorf("failed to normalize summary output: %w", mErr)
			}
			return normalized, nil
		}
	}

	return nil, fmt.Errorf("failed to parse summary JSON")
}

func stripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return ""
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return ""
	}

	// Drop first fence line.
	lines = lines[1:]
	// Drop trailing fence if present.
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func extractObjectCandidate(content string) string {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	if start < 0 {
		return ""
	}
	end := strings.LastIndex(trimmed, "}")
	if end < start {
		return ""
	}
	return strings.TrimSpace(trimmed[start : end+1])
}
