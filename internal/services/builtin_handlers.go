package services

import (
	"context"
	"fmt"
	"strings"

	"promptlab/internal/errors"
	"promptlab/internal/llm"
	"promptlab/internal/prompts"
)

// BuiltinHandlerConfigs returns the advanced handlers that ship with the
// tool. They double as worked examples of the three handler shapes: a
// multi-stage pipeline, a structured (non-text) response, and a handler
// that runs its repetitions in parallel by default.
func BuiltinHandlerConfigs(provider llm.Provider) []AdvancedHandlerConfig {
	return []AdvancedHandlerConfig{
		PlanThenWriteConfig(provider),
		KeyPointsConfig(provider),
		BrainstormConfig(provider),
	}
}

// PlanThenWriteConfig builds a two-stage handler: a schema-constrained
// call decomposes the task into ordered steps, then a free-text call
// writes the final answer following those steps.
func PlanThenWriteConfig(provider llm.Provider) AdvancedHandlerConfig {
	schema := llm.Schema{
		Name:        "writing_plan",
		Description: "Decomposition of a writing task into ordered steps",
		Properties: map[string]llm.Property{
			"steps": {
				Type:        "array",
				Description: "Between three and five ordered steps covering the task",
				Items:       &llm.Property{Type: "string"},
			},
		},
		Required: []string{"steps"},
	}

	run := func(ctx context.Context, input string) (*RunOutput, error) {
		planPrompt := "Break the following task into three to five ordered steps. Keep each step to one sentence.\n\nTask: " + input
		obj, err := provider.GenerateObject(ctx, planPrompt, schema)
		if err != nil {
			return nil, errors.Wrap(err, "plan stage")
		}

		steps, _ := obj["steps"].([]any)
		var plan strings.Builder
		for i, s := range steps {
			fmt.Fprintf(&plan, "%d. %v\n", i+1, s)
		}

		writePrompt := fmt.Sprintf("Complete the following task.\n\nTask: %s\n\nFollow this plan:\n%s", input, plan.String())
		text, err := provider.Generate(ctx, writePrompt)
		if err != nil {
			return nil, errors.Wrap(err, "write stage")
		}

		return &RunOutput{
			Response: text,
			Prompt:   writePrompt,
			Logs: []prompts.LogEntry{
				{Label: "Plan", Text: strings.TrimRight(plan.String(), "\n")},
			},
		}, nil
	}

	return AdvancedHandlerConfig{
		ID:          "plan-then-write",
		Name:        "Plan Then Write",
		Description: "Decomposes the task into steps, then writes the answer following the plan",
		Run:         run,
	}
}

// KeyPointsConfig builds a handler whose response is the structured
// object itself rather than free text
func KeyPointsConfig(provider llm.Provider) AdvancedHandlerConfig {
	schema := llm.Schema{
		Name:        "key_points",
		Description: "A short summary with its supporting key points",
		Properties: map[string]llm.Property{
			"summary": {
				Type:        "string",
				Description: "One-sentence summary of the input",
			},
			"key_points": {
				Type:        "array",
				Description: "The most important points, most significant first",
				Items:       &llm.Property{Type: "string"},
			},
		},
		Required: []string{"summary", "key_points"},
	}

	run := func(ctx context.Context, input string) (*RunOutput, error) {
		prompt := "Extract the key points from the following text:\n\n" + input
		obj, err := provider.GenerateObject(ctx, prompt, schema)
		if err != nil {
			return nil, err
		}
		return &RunOutput{Response: obj, Prompt: prompt}, nil
	}

	return AdvancedHandlerConfig{
		ID:          "key-points",
		Name:        "Key Points",
		Description: "Returns a structured summary with key points instead of free text",
		Run:         run,
	}
}

// BrainstormConfig builds a handler meant to be executed several times,
// one distinct idea per run. It defaults to the parallel mode so the
// variants generate concurrently.
func BrainstormConfig(provider llm.Provider) AdvancedHandlerConfig {
	run := func(ctx context.Context, input string) (*RunOutput, error) {
		prompt := "Propose one concise, distinctive idea for the following. Do not repeat obvious angles.\n\n" + input
		text, err := provider.Generate(ctx, prompt)
		if err != nil {
			return nil, err
		}
		return &RunOutput{Response: text, Prompt: prompt}, nil
	}

	return AdvancedHandlerConfig{
		ID:          "brainstorm",
		Name:        "Brainstorm Variants",
		Description: "Generates an independent idea per run, concurrently",
		Run:         run,
		Policy:      &ExecutionPolicy{Mode: ModeParallel},
	}
}
