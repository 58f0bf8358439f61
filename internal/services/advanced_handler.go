package services

import (
	"context"

	"promptlab/internal/errors"
)

// AdvancedHandlerConfig describes a handler around an arbitrary run
// function. The function is fully self-contained: it receives the user
// input and may call the LLM provider zero, one, or many times.
type AdvancedHandlerConfig struct {
	ID          string
	Name        string
	Description string
	Run         RunFunc
	// Policy is the default execution policy for this handler. Nil means
	// serial. A policy on the execution request overrides it.
	Policy *ExecutionPolicy
}

// NewAdvancedHandler creates a handler that delegates each run to the
// configured function
func NewAdvancedHandler(exec *Executor, cfg AdvancedHandlerConfig) (Handler, error) {
	if cfg.ID == "" {
		return nil, errors.Wrap(ErrInvalidInput, "advanced handler needs an ID")
	}
	if cfg.Run == nil {
		return nil, errors.Wrapf(ErrInvalidInput, "advanced handler %q needs a run function", cfg.ID)
	}
	if exec == nil {
		exec = NewExecutor()
	}

	var policy ExecutionPolicy
	if cfg.Policy != nil {
		policy = *cfg.Policy
	}

	run := cfg.Run
	return &promptHandler{
		id:          cfg.ID,
		name:        cfg.Name,
		description: cfg.Description,
		category:    CategoryAdvanced,
		policy:      policy,
		exec:        exec,
		prepare: func(ctx context.Context, input string) (RunFunc, string, error) {
			return run, "", nil
		},
	}, nil
}
