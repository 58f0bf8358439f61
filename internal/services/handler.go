package services

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"promptlab/internal/errors"
	"promptlab/internal/llm"
	"promptlab/internal/prompts"
)

// prepareFunc resolves everything a handler needs before its runs start:
// the per-run function and the raw template text (empty when the handler
// is not template-backed). Errors returned here are configuration errors
// and reject the whole execution.
type prepareFunc func(ctx context.Context, input string) (RunFunc, string, error)

// promptHandler is the single concrete Handler implementation. Basic and
// advanced handlers differ only in how prepare builds the run function.
type promptHandler struct {
	id          string
	name        string
	description string
	category    HandlerCategory
	policy      ExecutionPolicy
	exec        *Executor
	prepare     prepareFunc
	afterRun    func(ctx context.Context)
}

func (h *promptHandler) ID() string                { return h.id }
func (h *promptHandler) Name() string              { return h.name }
func (h *promptHandler) Description() string       { return h.description }
func (h *promptHandler) Category() HandlerCategory { return h.category }

// Execute resolves the handler's run function, executes it the requested
// number of times and assembles the aggregate result. Only configuration
// problems return an error; per-run failures are folded into the results.
func (h *promptHandler) Execute(ctx context.Context, req ExecuteRequest) (*MultiplePromptResults, error) {
	if req.RunCount < 1 {
		return nil, errors.Wrapf(ErrInvalidRunCount, "got %d", req.RunCount)
	}

	fn, promptTemplate, err := h.prepare(ctx, req.Input)
	if err != nil {
		return nil, err
	}

	policy := h.policy
	if req.Policy != nil {
		policy = *req.Policy
	}

	results, totalMs, err := h.exec.Run(ctx, fn, req.Input, req.RunCount, policy)
	if err != nil {
		return nil, err
	}
	if h.afterRun != nil {
		h.afterRun(ctx)
	}

	return &prompts.MultiplePromptResults{
		ExecutionID:     uuid.NewString(),
		PromptTemplate:  promptTemplate,
		UserInput:       req.Input,
		TotalDurationMs: totalMs,
		Results:         results,
	}, nil
}

// BuildHandlers constructs the full handler set for a session: one basic
// handler per stored template plus the given advanced handlers. It fails
// fast if any two handlers would share an ID. basicPolicy is the default
// execution policy for the template-backed handlers; advanced handlers
// carry their own in their config.
func BuildHandlers(templates []*PromptTemplate, configs []AdvancedHandlerConfig, templateService TemplateService, provider llm.Provider, basicPolicy ExecutionPolicy) ([]Handler, error) {
	exec := NewExecutor()
	seen := make(map[string]bool)
	handlers := make([]Handler, 0, len(templates)+len(configs))

	for _, t := range templates {
		h := NewBasicHandler(templateService, provider, exec, t, basicPolicy)
		if seen[h.ID()] {
			return nil, errors.Wrapf(ErrDuplicateHandlerID, "%q", h.ID())
		}
		seen[h.ID()] = true
		handlers = append(handlers, h)
	}
	for _, cfg := range configs {
		h, err := NewAdvancedHandler(exec, cfg)
		if err != nil {
			return nil, err
		}
		if seen[h.ID()] {
			return nil, errors.Wrapf(ErrDuplicateHandlerID, "%q", h.ID())
		}
		seen[h.ID()] = true
		handlers = append(handlers, h)
	}
	return handlers, nil
}

// HandlerRegistry holds the constructed handler set, preserving order for
// listings and providing ID lookup for execution requests
type HandlerRegistry struct {
	order []Handler
	byID  map[string]Handler
}

// NewHandlerRegistry indexes a handler set, rejecting duplicate IDs
func NewHandlerRegistry(handlers []Handler) (*HandlerRegistry, error) {
	r := &HandlerRegistry{
		order: make([]Handler, 0, len(handlers)),
		byID:  make(map[string]Handler, len(handlers)),
	}
	for _, h := range handlers {
		if _, ok := r.byID[h.ID()]; ok {
			return nil, errors.Wrapf(ErrDuplicateHandlerID, "%q", h.ID())
		}
		r.byID[h.ID()] = h
		r.order = append(r.order, h)
	}
	return r, nil
}

// Get returns the handler with the given ID
func (r *HandlerRegistry) Get(id string) (Handler, error) {
	if r == nil {
		return nil, errors.Wrapf(ErrHandlerNotFound, "%q", id)
	}
	h, ok := r.byID[id]
	if !ok {
		return nil, errors.Wrapf(ErrHandlerNotFound, "%q", id)
	}
	return h, nil
}

// List returns handler metadata grouped basic-first, preserving
// construction order within each category
func (r *HandlerRegistry) List() []HandlerInfo {
	if r == nil {
		return nil
	}
	infos := make([]HandlerInfo, 0, len(r.order))
	for _, h := range r.order {
		infos = append(infos, HandlerInfo{
			ID:          h.ID(),
			Name:        h.Name(),
			Description: h.Description(),
			Category:    h.Category(),
		})
	}
	sort.SliceStable(infos, func(i, j int) bool {
		return infos[i].Category == CategoryBasic && infos[j].Category != CategoryBasic
	})
	return infos
}
