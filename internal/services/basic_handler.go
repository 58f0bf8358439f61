package services

import (
	"context"
	"fmt"

	"promptlab/internal/errors"
	"promptlab/internal/llm"
	"promptlab/internal/logger"
	"promptlab/internal/prompts"
)

// NewBasicHandler creates a handler backed by a stored template. Its ID
// follows the "db-<templateID>" convention so template handlers can never
// collide with advanced handler IDs.
//
// The template is re-resolved on every execution. The handler may outlive
// the template it was built from, so a deleted template surfaces as
// ErrTemplateNotFound at execution time rather than a stale prompt.
func NewBasicHandler(templates TemplateService, provider llm.Provider, exec *Executor, t *prompts.PromptTemplate, policy ExecutionPolicy) Handler {
	if exec == nil {
		exec = NewExecutor()
	}
	templateID := t.ID

	h := &promptHandler{
		id:          fmt.Sprintf("db-%d", templateID),
		name:        t.Name,
		description: t.Description,
		category:    CategoryBasic,
		policy:      policy,
		exec:        exec,
	}

	h.prepare = func(ctx context.Context, input string) (RunFunc, string, error) {
		if templates == nil {
			return nil, "", errors.Wrap(ErrTemplateNotFound, "template service not available")
		}
		fresh, err := templates.GetTemplate(ctx, templateID)
		if err != nil {
			return nil, "", errors.Wrapf(err, "resolve template %d", templateID)
		}
		if !fresh.HasPlaceholder() {
			return nil, "", errors.Wrapf(ErrMissingPlaceholder, "template %q", fresh.Name)
		}

		// The prompt is fixed for the whole execution; every run sends
		// the same substituted text.
		prompt := fresh.Substitute(input)
		fn := func(ctx context.Context, _ string) (*RunOutput, error) {
			if provider == nil {
				return nil, errors.Wrap(ErrProviderUnavailable, "no provider configured")
			}
			text, err := provider.Generate(ctx, prompt)
			if err != nil {
				return nil, err
			}
			return &RunOutput{Response: text, Prompt: prompt}, nil
		}
		return fn, fresh.PromptText, nil
	}

	h.afterRun = func(ctx context.Context) {
		if err := templates.IncrementUsage(ctx, templateID); err != nil {
			logger.Warnf("failed to record usage for template %d: %v", templateID, err)
		}
	}

	return h
}
