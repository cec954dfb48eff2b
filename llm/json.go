package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseError reports that no parseable JSON object could be located in
// a model response. It is the typed failure mode of the one extraction
// boundary every node parses LLM output through.
type ParseError struct {
	Reason  string
	Snippet string
}

func (e *ParseError) Error() string {
	if e.Snippet != "" {
		return fmt.Sprintf("llm: unparseable response (%s): %q", e.Reason, e.Snippet)
	}
	return fmt.Sprintf("llm: unparseable response (%s)", e.Reason)
}

// ExtractJSON locates the first '{' through the last '}' in a model
// response and returns that span when it is valid JSON. Models wrap
// JSON in prose and code fences; this is the de facto wire contract
// with them.
func ExtractJSON(text string) (json.RawMessage, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end == -1 || end < start {
		return nil, &ParseError{Reason: "no JSON object found", Snippet: snippet(cleaned)}
	}

	candidate := cleaned[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return nil, &ParseError{Reason: "invalid JSON", Snippet: snippet(candidate)}
	}
	return json.RawMessage(candidate), nil
}

// ExtractJSONInto extracts and unmarshals in one step.
func ExtractJSONInto(text string, v any) error {
	raw, err := ExtractJSON(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &ParseError{Reason: err.Error(), Snippet: snippet(string(raw))}
	}
	return nil
}

func snippet(s string) string {
	const max = 120
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
