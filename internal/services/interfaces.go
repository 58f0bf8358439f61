package services

import (
	"context"

	"promptlab/internal/db"
	"promptlab/internal/prompts"
)

// TemplateService handles prompt template operations
type TemplateService interface {
	ListTemplates(ctx context.Context, category string) ([]*PromptTemplate, error)
	GetTemplate(ctx context.Context, id int) (*PromptTemplate, error)
	FindTemplateByName(ctx context.Context, name string) (*PromptTemplate, error)
	IncrementUsage(ctx context.Context, id int) error
	GetUsageStats(ctx context.Context) (*UsageStats, error)

	// CRUD operations for prompt templates
	CreateTemplate(ctx context.Context, name, description, promptText, category string) (int, error)
	UpdateTemplate(ctx context.Context, id int, name, description, promptText, category string) error
	DeleteTemplate(ctx context.Context, id int) error

	// File operations for prompt templates
	CreateFromFile(ctx context.Context, filePath string) (int, error)
	ImportDirectory(ctx context.Context, dirPath string) (int, error)
	ExportToFile(ctx context.Context, id int, filePath string) error
}

// HandlerCategory groups handlers by how their prompt is produced
type HandlerCategory string

const (
	CategoryBasic    HandlerCategory = "basic"
	CategoryAdvanced HandlerCategory = "advanced"
)

// Handler executes a prompt one or more times against an input
type Handler interface {
	ID() string
	Name() string
	Description() string
	Category() HandlerCategory
	Execute(ctx context.Context, req ExecuteRequest) (*MultiplePromptResults, error)
}

// ExecuteRequest carries the user input and run settings for one execution
type ExecuteRequest struct {
	Input    string           `json:"input"`
	RunCount int              `json:"run_count"`
	Policy   *ExecutionPolicy `json:"policy,omitempty"`
}

// RunOutput is what a single run produces before it is wrapped in a
// PromptResult by the executor
type RunOutput struct {
	Response any
	Prompt   string
	Logs     []prompts.LogEntry
}

// RunFunc performs one run. The executor calls it once per run and
// turns its output (or error) into a PromptResult.
type RunFunc func(ctx context.Context, input string) (*RunOutput, error)

// HandlerInfo is the wire representation of a handler for listings
type HandlerInfo struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Category    HandlerCategory `json:"category"`
}

// Type aliases for domain types
type PromptTemplate = prompts.PromptTemplate
type PromptResult = prompts.PromptResult
type MultiplePromptResults = prompts.MultiplePromptResults
type LogEntry = prompts.LogEntry
type UsageStats = db.UsageStats
type TemplateUsageStat = db.TemplateUsageStat
