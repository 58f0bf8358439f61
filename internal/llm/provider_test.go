package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testSchema() Schema {
	return Schema{
		Name:        "test_schema",
		Description: "schema used across tests",
		Properties: map[string]Property{
			"summary": {Type: "string", Description: "one line"},
			"points":  {Type: "array", Items: &Property{Type: "string"}},
			"score":   {Type: "number"},
		},
		Required: []string{"summary", "points"},
	}
}

func TestSchema_Validate(t *testing.T) {
	schema := testSchema()

	valid := map[string]any{
		"summary": "short",
		"points":  []any{"a", "b"},
	}
	assert.NoError(t, schema.Validate(valid))

	missing := map[string]any{"summary": "short"}
	err := schema.Validate(missing)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), `missing required field "points"`)

	nilValue := map[string]any{"summary": nil, "points": []any{}}
	assert.Error(t, schema.Validate(nilValue))

	wrongType := map[string]any{"summary": 12.5, "points": []any{}}
	err = schema.Validate(wrongType)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "expected string")

	notArray := map[string]any{"summary": "ok", "points": "a, b"}
	err = schema.Validate(notArray)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "expected array")
}

func TestSchema_Validate_OptionalFieldsIgnored(t *testing.T) {
	schema := testSchema()

	// score is declared but not required; its absence and even a wrong
	// type do not fail validation
	obj := map[string]any{
		"summary": "ok",
		"points":  []any{},
		"extra":   true,
	}
	assert.NoError(t, schema.Validate(obj))
}

func TestSchema_JSONMap(t *testing.T) {
	m := testSchema().JSONMap()

	assert.Equal(t, "object", m["type"])
	assert.Equal(t, []string{"summary", "points"}, m["required"])

	props, ok := m["properties"].(map[string]any)
	assert.True(t, ok)

	summary, ok := props["summary"].(map[string]any)
	assert.True(t, ok)
	assert.Equal(t, "string", summary["type"])
	assert.Equal(t, "one line", summary["description"])

	points, ok := props["points"].(map[string]any)
	assert.True(t, ok)
	items, ok := points["items"].(map[string]any)
	assert.True(t, ok)
	assert.Equal(t, "string", items["type"])
}

func TestSchema_JSONMap_NoRequired(t *testing.T) {
	m := Schema{Properties: map[string]Property{"a": {Type: "string"}}}.JSONMap()
	_, ok := m["required"]
	assert.False(t, ok)
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`},
		{"surrounding whitespace", "  {\"a\": 1}\n", `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"plain fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"prose around object", `Here you go: {"a": 1} hope that helps`, `{"a": 1}`},
		{"prose around fence", "Sure!\n```json\n{\"a\": 1}\n```\nLet me know.", `{"a": 1}`},
		{"no object at all", "no json here", "no json here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSON(tt.input))
		})
	}
}
