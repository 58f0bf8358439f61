package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Provider defines a generic LLM interface
type Provider interface {
	Name() string
	// Generate sends a prompt and returns free-form generated text
	Generate(ctx context.Context, prompt string) (string, error)
	// GenerateObject sends a prompt and returns a structured object
	// satisfying the given schema, or an error when the model's output
	// cannot be made to satisfy it
	GenerateObject(ctx context.Context, prompt string, schema Schema) (map[string]any, error)
}

// Property describes one field of a structured-output schema
type Property struct {
	Type        string    `json:"type"`
	Description string    `json:"description,omitempty"`
	Items       *Property `json:"items,omitempty"`
}

// Schema declares the required fields of a structured generation result
type Schema struct {
	Name        string
	Description string
	Properties  map[string]Property
	Required    []string
}

// JSONMap renders the schema as a JSON Schema object suitable for
// providers with native structured-output support
func (s Schema) JSONMap() map[string]any {
	props := make(map[string]any, len(s.Properties))
	for name, p := range s.Properties {
		props[name] = propertyMap(p)
	}
	m := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(s.Required) > 0 {
		m["required"] = s.Required
	}
	return m
}

func propertyMap(p Property) map[string]any {
	m := map[string]any{"type": p.Type}
	if p.Description != "" {
		m["description"] = p.Description
	}
	if p.Items != nil {
		m["items"] = propertyMap(*p.Items)
	}
	return m
}

// Validate checks a decoded object against the schema's required fields
// and declared property types
func (s Schema) Validate(obj map[string]any) error {
	for _, field := range s.Required {
		v, ok := obj[field]
		if !ok || v == nil {
			return fmt.Errorf("schema %q: missing required field %q", s.Name, field)
		}
		prop, declared := s.Properties[field]
		if !declared {
			continue
		}
		if err := checkType(v, prop.Type); err != nil {
			return fmt.Errorf("schema %q: field %q: %w", s.Name, field, err)
		}
	}
	return nil
}

func checkType(v any, want string) error {
	switch want {
	case "string":
		if _, ok := v.(string); !ok {
			return fmt.Errorf("expected string, got %T", v)
		}
	case "number", "integer":
		if _, ok := v.(float64); !ok {
			return fmt.Errorf("expected %s, got %T", want, v)
		}
	case "boolean":
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("expected boolean, got %T", v)
		}
	case "array":
		if _, ok := v.([]any); !ok {
			return fmt.Errorf("expected array, got %T", v)
		}
	case "object":
		if _, ok := v.(map[string]any); !ok {
			return fmt.Errorf("expected object, got %T", v)
		}
	}
	return nil
}

var jsonFence = regexp.MustCompile("(?s)```(?:json)?\n?(.*?)\n?```")

// extractJSON attempts to find and return a JSON object within a larger
// text block, stripping markdown fences the model may have added
func extractJSON(input string) string {
	input = strings.TrimSpace(input)
	if strings.Contains(input, "```") {
		if match := jsonFence.FindStringSubmatch(input); len(match) > 1 {
			input = strings.TrimSpace(match[1])
		}
	}
	start := strings.Index(input, "{")
	end := strings.LastIndex(input, "}")
	if start != -1 && end != -1 && end > start {
		return input[start : end+1]
	}
	return input
}
