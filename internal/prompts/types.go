package prompts

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// InputPlaceholder is the substitution token a template carries for user input
const InputPlaceholder = "{{INPUT}}"

// StarterTemplates returns the built-in templates seeded into a fresh
// library so the tool is usable before anything has been created
func StarterTemplates() []PromptTemplate {
	now := time.Now().Unix()
	return []PromptTemplate{
		{
			Name:        "Quick Summary",
			Description: "Condense the input into 2-3 bullet points",
			PromptText:  "Summarize the following text in 2-3 bullet points:\n\n{{INPUT}}",
			Category:    "summary",
			CreatedAt:   now,
			IsFavorite:  true,
		},
		{
			Name:        "Explain Simply",
			Description: "Explain the input for a general audience",
			PromptText:  "Explain the following to a general audience in plain language:\n\n{{INPUT}}",
			Category:    "writing",
			CreatedAt:   now,
			IsFavorite:  true,
		},
		{
			Name:        "Pros and Cons",
			Description: "List arguments for and against",
			PromptText:  "List the strongest pros and cons of the following proposal:\n\n{{INPUT}}",
			Category:    "analysis",
			CreatedAt:   now,
		},
		{
			Name:        "Improve Writing",
			Description: "Tighten and clarify the text",
			PromptText:  "Rewrite the following text to be clearer and more concise while keeping its meaning:\n\n{{INPUT}}",
			Category:    "writing",
			CreatedAt:   now,
		},
	}
}

// PromptTemplate represents a stored prompt template
type PromptTemplate struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	PromptText  string `json:"prompt_text"`
	Category    string `json:"category"`
	CreatedAt   int64  `json:"created_at"`
	IsFavorite  bool   `json:"is_favorite"`
	UsageCount  int    `json:"usage_count"`
}

// HasPlaceholder reports whether the template text contains the input placeholder
func (t *PromptTemplate) HasPlaceholder() bool {
	return strings.Contains(t.PromptText, InputPlaceholder)
}

// Substitute replaces the input placeholder with the literal user input.
// The input is not escaped and is never re-scanned for further placeholders.
func (t *PromptTemplate) Substitute(input string) string {
	return strings.ReplaceAll(t.PromptText, InputPlaceholder, input)
}

// LogEntry is one diagnostic entry attached to a run result
type LogEntry struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// PromptResult represents the outcome of a single run
type PromptResult struct {
	RunIndex   int        `json:"run_index"`
	Response   any        `json:"response"`
	Prompt     string     `json:"prompt,omitempty"`
	Logs       []LogEntry `json:"logs,omitempty"`
	DurationMs int64      `json:"duration_ms"`
	Timestamp  time.Time  `json:"timestamp"`
}

// ResponseText renders the response for display. Plain strings pass through;
// structured values are marshaled as indented JSON, falling back to fmt
// formatting when marshaling fails, so rendering never panics.
func (r *PromptResult) ResponseText() string {
	switch v := r.Response.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}

// MultiplePromptResults represents the outcome of one handler execution
type MultiplePromptResults struct {
	ExecutionID     string         `json:"execution_id"`
	PromptTemplate  string         `json:"prompt_template"`
	UserInput       string         `json:"user_input"`
	TotalDurationMs int64          `json:"total_duration_ms"`
	Results         []PromptResult `json:"results"`
}
