package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"promptlab/internal/db"
	"promptlab/internal/errors"
	"promptlab/internal/logger"
	"promptlab/internal/prompts"
)

// TemplateServiceImpl implements TemplateService on the SQLite store
type TemplateServiceImpl struct {
	store *db.TemplateStore
}

// NewTemplateService creates a new template service
func NewTemplateService(store *db.TemplateStore) *TemplateServiceImpl {
	return &TemplateServiceImpl{store: store}
}

func (s *TemplateServiceImpl) ListTemplates(ctx context.Context, category string) ([]*PromptTemplate, error) {
	if s.store == nil {
		return nil, fmt.Errorf("template store not available")
	}
	return s.store.ListTemplates(ctx, category)
}

func (s *TemplateServiceImpl) GetTemplate(ctx context.Context, id int) (*PromptTemplate, error) {
	if s.store == nil {
		return nil, fmt.Errorf("template store not available")
	}
	t, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrTemplateNotFound) {
			return nil, errors.Wrapf(ErrTemplateNotFound, "id %d", id)
		}
		return nil, err
	}
	return t, nil
}

func (s *TemplateServiceImpl) FindTemplateByName(ctx context.Context, name string) (*PromptTemplate, error) {
	if s.store == nil {
		return nil, fmt.Errorf("template store not available")
	}
	t, err := s.store.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, db.ErrTemplateNotFound) {
			return nil, errors.Wrapf(ErrTemplateNotFound, "name %q", name)
		}
		return nil, err
	}
	return t, nil
}

func (s *TemplateServiceImpl) IncrementUsage(ctx context.Context, id int) error {
	if s.store == nil {
		return fmt.Errorf("template store not available")
	}
	return s.store.IncrementUsage(ctx, id)
}

func (s *TemplateServiceImpl) GetUsageStats(ctx context.Context) (*UsageStats, error) {
	if s.store == nil {
		return nil, fmt.Errorf("template store not available")
	}
	return s.store.GetUsageStats(ctx)
}

func (s *TemplateServiceImpl) CreateTemplate(ctx context.Context, name, description, promptText, category string) (int, error) {
	if s.store == nil {
		return 0, fmt.Errorf("template store not available")
	}
	if strings.TrimSpace(name) == "" {
		return 0, errors.Wrap(ErrInvalidInput, "template name is required")
	}
	if strings.TrimSpace(promptText) == "" {
		return 0, errors.Wrap(ErrInvalidInput, "template text is required")
	}
	if category == "" {
		category = "general"
	}
	if !strings.Contains(promptText, prompts.InputPlaceholder) {
		logger.Warnf("template %q has no %s placeholder and will fail at execution time", name, prompts.InputPlaceholder)
	}

	return s.store.CreateTemplate(ctx, &prompts.PromptTemplate{
		Name:        name,
		Description: description,
		PromptText:  promptText,
		Category:    category,
		CreatedAt:   time.Now().Unix(),
	})
}

func (s *TemplateServiceImpl) UpdateTemplate(ctx context.Context, id int, name, description, promptText, category string) error {
	if s.store == nil {
		return fmt.Errorf("template store not available")
	}
	existing, err := s.GetTemplate(ctx, id)
	if err != nil {
		return err
	}
	if name != "" {
		existing.Name = name
	}
	if description != "" {
		existing.Description = description
	}
	if promptText != "" {
		existing.PromptText = promptText
	}
	if category != "" {
		existing.Category = category
	}
	if err := s.store.UpdateTemplate(ctx, existing); err != nil {
		if errors.Is(err, db.ErrTemplateNotFound) {
			return errors.Wrapf(ErrTemplateNotFound, "id %d", id)
		}
		return err
	}
	return nil
}

func (s *TemplateServiceImpl) DeleteTemplate(ctx context.Context, id int) error {
	if s.store == nil {
		return fmt.Errorf("template store not available")
	}
	if err := s.store.DeleteTemplate(ctx, id); err != nil {
		if errors.Is(err, db.ErrTemplateNotFound) {
			return errors.Wrapf(ErrTemplateNotFound, "id %d", id)
		}
		return err
	}
	return nil
}

// templateFrontMatter is the YAML header of a template markdown file
type templateFrontMatter struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Category    string `yaml:"category"`
	Favorite    bool   `yaml:"favorite"`
}

// parseFrontMatter splits a markdown file into its YAML front matter and
// body. The file must start with a "---" line and contain a closing one.
func parseFrontMatter(content string) (templateFrontMatter, string, error) {
	var meta templateFrontMatter

	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	if !strings.HasPrefix(normalized, "---\n") {
		return meta, "", fmt.Errorf("file has no front matter header")
	}
	rest := normalized[len("---\n"):]
	idx := strings.Index(rest, "\n---")
	if idx < 0 {
		return meta, "", fmt.Errorf("front matter is not terminated")
	}

	header := rest[:idx]
	body := rest[idx+len("\n---"):]
	body = strings.TrimPrefix(body, "\n")

	if err := yaml.Unmarshal([]byte(header), &meta); err != nil {
		return meta, "", fmt.Errorf("invalid YAML in front matter: %w", err)
	}
	return meta, strings.TrimSpace(body), nil
}

// CreateFromFile imports a single template from a markdown file with
// YAML front matter. The body becomes the prompt text; a missing name
// falls back to the file name.
func (s *TemplateServiceImpl) CreateFromFile(ctx context.Context, filePath string) (int, error) {
	if s.store == nil {
		return 0, fmt.Errorf("template store not available")
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return 0, fmt.Errorf("read template file: %w", err)
	}

	meta, body, err := parseFrontMatter(string(data))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", filepath.Base(filePath), err)
	}
	if meta.Name == "" {
		meta.Name = strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	}

	id, err := s.CreateTemplate(ctx, meta.Name, meta.Description, body, meta.Category)
	if err != nil {
		return 0, err
	}
	if meta.Favorite {
		t, err := s.GetTemplate(ctx, id)
		if err == nil {
			t.IsFavorite = true
			_ = s.store.UpdateTemplate(ctx, t)
		}
	}
	return id, nil
}

// ImportDirectory imports every markdown file in a directory, a few
// files at a time. A file that fails to parse is logged and skipped; it
// never aborts the rest of the import.
func (s *TemplateServiceImpl) ImportDirectory(ctx context.Context, dirPath string) (int, error) {
	if s.store == nil {
		return 0, fmt.Errorf("template store not available")
	}

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return 0, fmt.Errorf("read template dir: %w", err)
	}

	var mu sync.Mutex
	imported := 0

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		path := filepath.Join(dirPath, entry.Name())
		g.Go(func() error {
			if _, err := s.CreateFromFile(ctx, path); err != nil {
				logger.Warnf("skipping %s: %v", filepath.Base(path), err)
				return nil
			}
			mu.Lock()
			imported++
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return imported, err
	}
	return imported, nil
}

// buildMarkdownContent renders a template as a markdown file with YAML
// front matter, the inverse of parseFrontMatter
func buildMarkdownContent(t *prompts.PromptTemplate) (string, error) {
	header, err := yaml.Marshal(templateFrontMatter{
		Name:        t.Name,
		Description: t.Description,
		Category:    t.Category,
		Favorite:    t.IsFavorite,
	})
	if err != nil {
		return "", fmt.Errorf("marshal front matter: %w", err)
	}
	return fmt.Sprintf("---\n%s---\n\n%s\n", header, t.PromptText), nil
}

// ExportToFile writes a template to a markdown file with front matter
func (s *TemplateServiceImpl) ExportToFile(ctx context.Context, id int, filePath string) error {
	t, err := s.GetTemplate(ctx, id)
	if err != nil {
		return err
	}
	content, err := buildMarkdownContent(t)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filePath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write template file: %w", err)
	}
	return nil
}
