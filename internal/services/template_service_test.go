package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"promptlab/internal/prompts"
)

// Tests for guard behavior without a store dependency

func TestTemplateServiceImpl_ListTemplates_NilStore(t *testing.T) {
	service := NewTemplateService(nil)
	_, err := service.ListTemplates(context.Background(), "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "template store not available")
}

func TestTemplateServiceImpl_GetTemplate_NilStore(t *testing.T) {
	service := NewTemplateService(nil)
	_, err := service.GetTemplate(context.Background(), 1)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "template store not available")
}

func TestTemplateServiceImpl_CreateTemplate_NilStore(t *testing.T) {
	service := NewTemplateService(nil)
	_, err := service.CreateTemplate(context.Background(), "Name", "", "text {{INPUT}}", "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "template store not available")
}

func TestTemplateServiceImpl_ImportDirectory_NilStore(t *testing.T) {
	service := NewTemplateService(nil)
	_, err := service.ImportDirectory(context.Background(), t.TempDir())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "template store not available")
}

// Front matter parsing

func TestParseFrontMatter_Valid(t *testing.T) {
	content := `---
name: Test Template
description: A template for testing
category: testing
favorite: true
---

Summarize this: {{INPUT}}
Keep it short.`

	meta, body, err := parseFrontMatter(content)

	assert.NoError(t, err)
	assert.Equal(t, "Test Template", meta.Name)
	assert.Equal(t, "A template for testing", meta.Description)
	assert.Equal(t, "testing", meta.Category)
	assert.True(t, meta.Favorite)
	assert.Equal(t, "Summarize this: {{INPUT}}\nKeep it short.", body)
}

func TestParseFrontMatter_CRLF(t *testing.T) {
	content := "---\r\nname: Windows File\r\n---\r\n\r\nBody text"

	meta, body, err := parseFrontMatter(content)

	assert.NoError(t, err)
	assert.Equal(t, "Windows File", meta.Name)
	assert.Equal(t, "Body text", body)
}

func TestParseFrontMatter_NoHeader(t *testing.T) {
	_, _, err := parseFrontMatter("Just a prompt with no header")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "front matter")
}

func TestParseFrontMatter_Unterminated(t *testing.T) {
	_, _, err := parseFrontMatter("---\nname: Broken\n\nNo closing fence")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not terminated")
}

func TestParseFrontMatter_InvalidYAML(t *testing.T) {
	_, _, err := parseFrontMatter("---\nname: [unclosed\n---\n\nBody")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "YAML")
}

func TestBuildMarkdownContent_RoundTrip(t *testing.T) {
	original := &prompts.PromptTemplate{
		Name:        "Round Trip",
		Description: "goes out and comes back",
		PromptText:  "Do this with {{INPUT}} please",
		Category:    "testing",
		IsFavorite:  true,
	}

	content, err := buildMarkdownContent(original)
	assert.NoError(t, err)

	meta, body, err := parseFrontMatter(content)
	assert.NoError(t, err)
	assert.Equal(t, original.Name, meta.Name)
	assert.Equal(t, original.Description, meta.Description)
	assert.Equal(t, original.Category, meta.Category)
	assert.True(t, meta.Favorite)
	assert.Equal(t, original.PromptText, body)
}

// File import and export against the in-memory service

func writeTemplateFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestMemoryTemplateService_CreateFromFile(t *testing.T) {
	dir := t.TempDir()
	path := writeTemplateFile(t, dir, "summarize.md", `---
name: Summarize
description: Short summary
category: summary
favorite: true
---

Summarize: {{INPUT}}`)

	mem := NewMemoryTemplateService()
	id, err := mem.CreateFromFile(context.Background(), path)
	assert.NoError(t, err)

	tmpl, err := mem.GetTemplate(context.Background(), id)
	assert.NoError(t, err)
	assert.Equal(t, "Summarize", tmpl.Name)
	assert.Equal(t, "Short summary", tmpl.Description)
	assert.Equal(t, "summary", tmpl.Category)
	assert.Equal(t, "Summarize: {{INPUT}}", tmpl.PromptText)
	assert.True(t, tmpl.IsFavorite)
}

func TestMemoryTemplateService_CreateFromFile_NameFallsBackToFileName(t *testing.T) {
	dir := t.TempDir()
	path := writeTemplateFile(t, dir, "unnamed-template.md", "---\ncategory: general\n---\n\nText: {{INPUT}}")

	mem := NewMemoryTemplateService()
	id, err := mem.CreateFromFile(context.Background(), path)
	assert.NoError(t, err)

	tmpl, err := mem.GetTemplate(context.Background(), id)
	assert.NoError(t, err)
	assert.Equal(t, "unnamed-template", tmpl.Name)
}

func TestMemoryTemplateService_ImportDirectory_SkipsBadFiles(t *testing.T) {
	dir := t.TempDir()
	writeTemplateFile(t, dir, "good-one.md", "---\nname: Good One\n---\n\nA: {{INPUT}}")
	writeTemplateFile(t, dir, "good-two.md", "---\nname: Good Two\n---\n\nB: {{INPUT}}")
	writeTemplateFile(t, dir, "broken.md", "no front matter at all")
	writeTemplateFile(t, dir, "notes.txt", "not a markdown file")

	mem := NewMemoryTemplateService()
	imported, err := mem.ImportDirectory(context.Background(), dir)

	assert.NoError(t, err, "a bad file is skipped, not fatal")
	assert.Equal(t, 2, imported)

	templates, err := mem.ListTemplates(context.Background(), "")
	assert.NoError(t, err)
	assert.Len(t, templates, 2)
}

func TestMemoryTemplateService_ImportDirectory_MissingDir(t *testing.T) {
	mem := NewMemoryTemplateService()
	_, err := mem.ImportDirectory(context.Background(), filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, err)
}

func TestMemoryTemplateService_ExportToFile(t *testing.T) {
	mem := NewMemoryTemplateService()
	id, err := mem.CreateTemplate(context.Background(), "Exported", "demo", "E: {{INPUT}}", "general")
	assert.NoError(t, err)

	path := filepath.Join(t.TempDir(), "exported.md")
	assert.NoError(t, mem.ExportToFile(context.Background(), id, path))

	data, err := os.ReadFile(path)
	assert.NoError(t, err)

	meta, body, err := parseFrontMatter(string(data))
	assert.NoError(t, err)
	assert.Equal(t, "Exported", meta.Name)
	assert.Equal(t, "E: {{INPUT}}", body)
}
