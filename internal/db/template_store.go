package db

import (
	"context"
	"database/sql"
	"fmt"

	"promptlab/internal/errors"
	"promptlab/internal/prompts"
)

// ErrTemplateNotFound is returned when a template lookup matches no row
var ErrTemplateNotFound = errors.New("prompt template not found")

// TemplateStore handles prompt template operations
type TemplateStore struct {
	db *sql.DB
}

// NewTemplateStore creates a template store backed by the given database
func NewTemplateStore(store *Store) *TemplateStore {
	if store == nil {
		return &TemplateStore{}
	}
	return &TemplateStore{db: store.DB()}
}

// ListTemplates returns templates, optionally filtered by category.
// Favorites sort first, then by usage, then by name.
func (ts *TemplateStore) ListTemplates(ctx context.Context, category string) ([]*prompts.PromptTemplate, error) {
	if ts == nil || ts.db == nil {
		return nil, fmt.Errorf("template store not initialized")
	}

	query := `
		SELECT id, name, description, prompt_text, category, created_at, is_favorite, usage_count
		FROM prompt_templates
	`
	var args []interface{}
	if category != "" {
		query += " WHERE category = ?"
		args = append(args, category)
	}
	query += " ORDER BY is_favorite DESC, usage_count DESC, name ASC"

	rows, err := ts.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query templates: %w", err)
	}
	defer rows.Close()

	var templates []*prompts.PromptTemplate
	for rows.Next() {
		var t prompts.PromptTemplate
		var description sql.NullString
		if err := rows.Scan(&t.ID, &t.Name, &description, &t.PromptText, &t.Category, &t.CreatedAt, &t.IsFavorite, &t.UsageCount); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		t.Description = description.String
		templates = append(templates, &t)
	}
	return templates, rows.Err()
}

// GetTemplate returns a single template by ID
func (ts *TemplateStore) GetTemplate(ctx context.Context, id int) (*prompts.PromptTemplate, error) {
	if ts == nil || ts.db == nil {
		return nil, fmt.Errorf("template store not initialized")
	}

	var t prompts.PromptTemplate
	var description sql.NullString
	err := ts.db.QueryRowContext(ctx, `
		SELECT id, name, description, prompt_text, category, created_at, is_favorite, usage_count
		FROM prompt_templates
		WHERE id = ?
	`, id).Scan(&t.ID, &t.Name, &description, &t.PromptText, &t.Category, &t.CreatedAt, &t.IsFavorite, &t.UsageCount)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(ErrTemplateNotFound, "id %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	t.Description = description.String
	return &t, nil
}

// FindByName returns the first template whose name matches (case-insensitive)
func (ts *TemplateStore) FindByName(ctx context.Context, name string) (*prompts.PromptTemplate, error) {
	if ts == nil || ts.db == nil {
		return nil, fmt.Errorf("template store not initialized")
	}

	var t prompts.PromptTemplate
	var description sql.NullString
	err := ts.db.QueryRowContext(ctx, `
		SELECT id, name, description, prompt_text, category, created_at, is_favorite, usage_count
		FROM prompt_templates
		WHERE name LIKE ? COLLATE NOCASE
		ORDER BY usage_count DESC
		LIMIT 1
	`, name).Scan(&t.ID, &t.Name, &description, &t.PromptText, &t.Category, &t.CreatedAt, &t.IsFavorite, &t.UsageCount)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(ErrTemplateNotFound, "name %q", name)
	}
	if err != nil {
		return nil, fmt.Errorf("find template: %w", err)
	}
	t.Description = description.String
	return &t, nil
}

// CreateTemplate inserts a new template and returns its ID
func (ts *TemplateStore) CreateTemplate(ctx context.Context, t *prompts.PromptTemplate) (int, error) {
	if ts == nil || ts.db == nil {
		return 0, fmt.Errorf("template store not initialized")
	}
	if t == nil {
		return 0, fmt.Errorf("nil template")
	}

	res, err := ts.db.ExecContext(ctx, `
		INSERT INTO prompt_templates (name, description, prompt_text, category, created_at, is_favorite)
		VALUES (?, ?, ?, ?, ?, ?)
	`, t.Name, t.Description, t.PromptText, t.Category, t.CreatedAt, t.IsFavorite)
	if err != nil {
		return 0, fmt.Errorf("insert template: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert template id: %w", err)
	}
	return int(id), nil
}

// UpdateTemplate updates an existing template
func (ts *TemplateStore) UpdateTemplate(ctx context.Context, t *prompts.PromptTemplate) error {
	if ts == nil || ts.db == nil {
		return fmt.Errorf("template store not initialized")
	}
	if t == nil {
		return fmt.Errorf("nil template")
	}

	res, err := ts.db.ExecContext(ctx, `
		UPDATE prompt_templates
		SET name = ?, description = ?, prompt_text = ?, category = ?, is_favorite = ?
		WHERE id = ?
	`, t.Name, t.Description, t.PromptText, t.Category, t.IsFavorite, t.ID)
	if err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	if n == 0 {
		return errors.Wrapf(ErrTemplateNotFound, "id %d", t.ID)
	}
	return nil
}

// DeleteTemplate removes a template by ID
func (ts *TemplateStore) DeleteTemplate(ctx context.Context, id int) error {
	if ts == nil || ts.db == nil {
		return fmt.Errorf("template store not initialized")
	}

	res, err := ts.db.ExecContext(ctx, "DELETE FROM prompt_templates WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	if n == 0 {
		return errors.Wrapf(ErrTemplateNotFound, "id %d", id)
	}
	return nil
}

// IncrementUsage bumps the usage counter for a template
func (ts *TemplateStore) IncrementUsage(ctx context.Context, id int) error {
	if ts == nil || ts.db == nil {
		return fmt.Errorf("template store not initialized")
	}
	_, err := ts.db.ExecContext(ctx, "UPDATE prompt_templates SET usage_count = usage_count + 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("increment usage: %w", err)
	}
	return nil
}

// TemplateUsageStat describes how often one template has been used
type TemplateUsageStat struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	UsageCount int    `json:"usage_count"`
}

// UsageStats summarizes library size and usage
type UsageStats struct {
	TotalTemplates int                 `json:"total_templates"`
	TotalUsage     int                 `json:"total_usage"`
	MostUsed       []TemplateUsageStat `json:"most_used"`
}

// GetUsageStats returns aggregate usage information for the template library
func (ts *TemplateStore) GetUsageStats(ctx context.Context) (*UsageStats, error) {
	if ts == nil || ts.db == nil {
		return nil, fmt.Errorf("template store not initialized")
	}

	stats := &UsageStats{}
	err := ts.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(usage_count), 0) FROM prompt_templates
	`).Scan(&stats.TotalTemplates, &stats.TotalUsage)
	if err != nil {
		return nil, fmt.Errorf("usage totals: %w", err)
	}

	rows, err := ts.db.QueryContext(ctx, `
		SELECT id, name, category, usage_count
		FROM prompt_templates
		WHERE usage_count > 0
		ORDER BY usage_count DESC, name ASC
		LIMIT 5
	`)
	if err != nil {
		return nil, fmt.Errorf("usage ranking: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s TemplateUsageStat
		if err := rows.Scan(&s.ID, &s.Name, &s.Category, &s.UsageCount); err != nil {
			return nil, fmt.Errorf("scan usage stat: %w", err)
		}
		stats.MostUsed = append(stats.MostUsed, s)
	}
	return stats, rows.Err()
}
