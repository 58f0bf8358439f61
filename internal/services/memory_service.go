package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"promptlab/internal/db"
	"promptlab/internal/errors"
	"promptlab/internal/logger"
	"promptlab/internal/prompts"
)

// MemoryTemplateService implements TemplateService without persistent
// storage. It backs database-less runs and tests.
type MemoryTemplateService struct {
	mu        sync.RWMutex
	templates map[int]*prompts.PromptTemplate
	nextID    int
}

// NewMemoryTemplateService creates an empty in-memory template library
func NewMemoryTemplateService() *MemoryTemplateService {
	return &MemoryTemplateService{
		templates: make(map[int]*prompts.PromptTemplate),
		nextID:    1,
	}
}

// SeedStarters loads the built-in starter templates
func (s *MemoryTemplateService) SeedStarters() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range prompts.StarterTemplates() {
		tt := t
		tt.ID = s.nextID
		s.nextID++
		s.templates[tt.ID] = &tt
	}
}

func (s *MemoryTemplateService) ListTemplates(ctx context.Context, category string) ([]*PromptTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*prompts.PromptTemplate
	for _, t := range s.templates {
		if category != "" && t.Category != category {
			continue
		}
		tt := *t
		out = append(out, &tt)
	}
	// Same ordering as the SQLite store: favorites first, then usage,
	// then name
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsFavorite != out[j].IsFavorite {
			return out[i].IsFavorite
		}
		if out[i].UsageCount != out[j].UsageCount {
			return out[i].UsageCount > out[j].UsageCount
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *MemoryTemplateService) GetTemplate(ctx context.Context, id int) (*PromptTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.templates[id]
	if !ok {
		return nil, errors.Wrapf(ErrTemplateNotFound, "id %d", id)
	}
	tt := *t
	return &tt, nil
}

func (s *MemoryTemplateService) FindTemplateByName(ctx context.Context, name string) (*PromptTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *prompts.PromptTemplate
	for _, t := range s.templates {
		if !strings.EqualFold(t.Name, name) {
			continue
		}
		if best == nil || t.UsageCount > best.UsageCount {
			best = t
		}
	}
	if best == nil {
		return nil, errors.Wrapf(ErrTemplateNotFound, "name %q", name)
	}
	tt := *best
	return &tt, nil
}

func (s *MemoryTemplateService) IncrementUsage(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.templates[id]; ok {
		t.UsageCount++
	}
	return nil
}

func (s *MemoryTemplateService) GetUsageStats(ctx context.Context) (*UsageStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &UsageStats{TotalTemplates: len(s.templates)}
	for _, t := range s.templates {
		if t.UsageCount == 0 {
			continue
		}
		stats.TotalUsage += t.UsageCount
		stats.MostUsed = append(stats.MostUsed, db.TemplateUsageStat{
			ID:         t.ID,
			Name:       t.Name,
			Category:   t.Category,
			UsageCount: t.UsageCount,
		})
	}
	sort.Slice(stats.MostUsed, func(i, j int) bool {
		if stats.MostUsed[i].UsageCount != stats.MostUsed[j].UsageCount {
			return stats.MostUsed[i].UsageCount > stats.MostUsed[j].UsageCount
		}
		return stats.MostUsed[i].Name < stats.MostUsed[j].Name
	})
	if len(stats.MostUsed) > 5 {
		stats.MostUsed = stats.MostUsed[:5]
	}
	return stats, nil
}

func (s *MemoryTemplateService) CreateTemplate(ctx context.Context, name, description, promptText, category string) (int, error) {
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

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.templates {
		if strings.EqualFold(t.Name, name) {
			return 0, errors.Wrapf(ErrInvalidInput, "template %q already exists", name)
		}
	}

	id := s.nextID
	s.nextID++
	s.templates[id] = &prompts.PromptTemplate{
		ID:          id,
		Name:        name,
		Description: description,
		PromptText:  promptText,
		Category:    category,
		CreatedAt:   time.Now().Unix(),
	}
	return id, nil
}

func (s *MemoryTemplateService) UpdateTemplate(ctx context.Context, id int, name, description, promptText, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.templates[id]
	if !ok {
		return errors.Wrapf(ErrTemplateNotFound, "id %d", id)
	}
	if name != "" {
		t.Name = name
	}
	if description != "" {
		t.Description = description
	}
	if promptText != "" {
		t.PromptText = promptText
	}
	if category != "" {
		t.Category = category
	}
	return nil
}

func (s *MemoryTemplateService) DeleteTemplate(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.templates[id]; !ok {
		return errors.Wrapf(ErrTemplateNotFound, "id %d", id)
	}
	delete(s.templates, id)
	return nil
}

func (s *MemoryTemplateService) CreateFromFile(ctx context.Context, filePath string) (int, error) {
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
		s.mu.Lock()
		if t, ok := s.templates[id]; ok {
			t.IsFavorite = true
		}
		s.mu.Unlock()
	}
	return id, nil
}

func (s *MemoryTemplateService) ImportDirectory(ctx context.Context, dirPath string) (int, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return 0, fmt.Errorf("read template dir: %w", err)
	}

	imported := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		path := filepath.Join(dirPath, entry.Name())
		if _, err := s.CreateFromFile(ctx, path); err != nil {
			logger.Warnf("skipping %s: %v", filepath.Base(path), err)
			continue
		}
		imported++
	}
	return imported, nil
}

func (s *MemoryTemplateService) ExportToFile(ctx context.Context, id int, filePath string) error {
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
