package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"promptlab/internal/errors"
	"promptlab/internal/logger"
	"promptlab/internal/prompts"
)

// ExecutionMode selects how the runs of one execution are scheduled
type ExecutionMode string

const (
	ModeSerial   ExecutionMode = "serial"
	ModeParallel ExecutionMode = "parallel"
)

// DefaultRunTimeoutMs bounds a single run under the parallel mode
const DefaultRunTimeoutMs = 30000

// ExecutionPolicy controls scheduling of the runs within one execution.
// Zero values mean "use the default": serial mode, max concurrency equal
// to the run count, 30s per-run timeout.
type ExecutionPolicy struct {
	Mode           ExecutionMode `json:"mode,omitempty"`
	MaxConcurrency int           `json:"max_concurrency,omitempty"`
	TimeoutMs      int64         `json:"timeout_ms,omitempty"`
}

func (p ExecutionPolicy) normalized(runCount int) (ExecutionPolicy, error) {
	out := p
	switch p.Mode {
	case "", ModeSerial:
		out.Mode = ModeSerial
	case ModeParallel:
		out.Mode = ModeParallel
	default:
		return out, errors.Wrapf(ErrInvalidPolicy, "unknown mode %q", p.Mode)
	}
	if p.MaxConcurrency < 0 {
		return out, errors.Wrapf(ErrInvalidPolicy, "negative max concurrency %d", p.MaxConcurrency)
	}
	if p.TimeoutMs < 0 {
		return out, errors.Wrapf(ErrInvalidPolicy, "negative timeout %d", p.TimeoutMs)
	}
	if out.Mode == ModeParallel {
		if out.MaxConcurrency == 0 || out.MaxConcurrency > runCount {
			out.MaxConcurrency = runCount
		}
		if out.TimeoutMs == 0 {
			out.TimeoutMs = DefaultRunTimeoutMs
		}
	}
	return out, nil
}

// Validate reports whether the policy is usable at all, independent of
// any particular run count
func (p ExecutionPolicy) Validate() error {
	_, err := p.normalized(1)
	return err
}

func (p ExecutionPolicy) runTimeout() time.Duration {
	return time.Duration(p.TimeoutMs) * time.Millisecond
}

// Executor runs a unit of work a fixed number of times and folds every
// outcome, including failures and timeouts, into one result per run.
// Results are always returned in run-index order.
type Executor struct{}

// NewExecutor creates a run executor
func NewExecutor() *Executor {
	return &Executor{}
}

// Run executes fn runCount times under the given policy. It returns one
// PromptResult per run plus the aggregate duration in milliseconds: the
// sum of run durations under serial mode, wall-clock elapsed time under
// parallel mode. Per-run failures never abort the batch; only invalid
// arguments produce an error, before any run starts.
func (e *Executor) Run(ctx context.Context, fn RunFunc, input string, runCount int, policy ExecutionPolicy) ([]prompts.PromptResult, int64, error) {
	if fn == nil {
		return nil, 0, errors.Wrap(ErrInvalidPolicy, "nil run function")
	}
	if runCount < 1 {
		return nil, 0, errors.Wrapf(ErrInvalidRunCount, "got %d", runCount)
	}
	norm, err := policy.normalized(runCount)
	if err != nil {
		return nil, 0, err
	}

	logger.Debugw("executing runs",
		"run_count", runCount,
		"mode", norm.Mode,
		"max_concurrency", norm.MaxConcurrency,
		"timeout_ms", norm.TimeoutMs,
	)

	if norm.Mode == ModeParallel {
		return e.runParallel(ctx, fn, input, runCount, norm)
	}
	return e.runSerial(ctx, fn, input, runCount)
}

func (e *Executor) runSerial(ctx context.Context, fn RunFunc, input string, runCount int) ([]prompts.PromptResult, int64, error) {
	results := make([]prompts.PromptResult, runCount)
	var total int64
	for i := 0; i < runCount; i++ {
		results[i] = e.runOnce(ctx, fn, input, i, 0)
		total += results[i].DurationMs
	}
	return results, total, nil
}

func (e *Executor) runParallel(ctx context.Context, fn RunFunc, input string, runCount int, policy ExecutionPolicy) ([]prompts.PromptResult, int64, error) {
	results := make([]prompts.PromptResult, runCount)
	timeout := policy.runTimeout()

	// Rolling window: at most MaxConcurrency runs in flight, the next
	// run starts as soon as any slot frees. Each goroutine writes only
	// its own index, so no lock is needed.
	sem := make(chan struct{}, policy.MaxConcurrency)
	var wg sync.WaitGroup

	start := time.Now()
	for i := 0; i < runCount; i++ {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			results[i] = failedResult(i, ctx.Err())
			continue
		}
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()
			results[idx] = e.runOnce(ctx, fn, input, idx, timeout)
		}(i)
	}
	wg.Wait()

	return results, time.Since(start).Milliseconds(), nil
}

type runReply struct {
	out *RunOutput
	err error
}

// runOnce performs a single run and converts its outcome into a
// PromptResult. With a positive timeout the run is raced against it;
// losing the race yields a timeout-flavored result and the underlying
// call is canceled through its context, its late result discarded.
func (e *Executor) runOnce(ctx context.Context, fn RunFunc, input string, idx int, timeout time.Duration) prompts.PromptResult {
	start := time.Now()
	res := prompts.PromptResult{RunIndex: idx, Timestamp: start}

	if err := ctx.Err(); err != nil {
		return failedResult(idx, err)
	}

	if timeout <= 0 {
		out, err := callRun(ctx, fn, input)
		res.DurationMs = time.Since(start).Milliseconds()
		e.finishRun(&res, out, err, timeout)
		return res
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan runReply, 1)
	go func() {
		out, err := callRun(runCtx, fn, input)
		done <- runReply{out: out, err: err}
	}()

	select {
	case r := <-done:
		res.DurationMs = time.Since(start).Milliseconds()
		e.finishRun(&res, r.out, r.err, timeout)
	case <-runCtx.Done():
		res.DurationMs = time.Since(start).Milliseconds()
		e.finishRun(&res, nil, runCtx.Err(), timeout)
	}
	return res
}

func (e *Executor) finishRun(res *prompts.PromptResult, out *RunOutput, err error, timeout time.Duration) {
	switch {
	case err == nil:
		res.Response = out.Response
		res.Prompt = out.Prompt
		res.Logs = out.Logs
	case timeout > 0 && errors.Is(err, context.DeadlineExceeded):
		msg := fmt.Sprintf("Timeout: run did not complete within %s", timeout)
		res.Response = msg
		res.Logs = []prompts.LogEntry{{Label: "Timeout", Text: msg}}
		logger.Debugw("run timed out", "index", res.RunIndex, "timeout", timeout.String())
	default:
		res.Response = "Error: " + err.Error()
		res.Logs = []prompts.LogEntry{{Label: "Execution Error", Text: err.Error()}}
		logger.Debugw("run failed", "index", res.RunIndex, "error", err.Error())
	}
}

func failedResult(idx int, err error) prompts.PromptResult {
	return prompts.PromptResult{
		RunIndex:  idx,
		Response:  "Error: " + err.Error(),
		Logs:      []prompts.LogEntry{{Label: "Execution Error", Text: err.Error()}},
		Timestamp: time.Now(),
	}
}

// callRun invokes fn, recovering panics into errors so a misbehaving
// run can never take down its siblings
func callRun(ctx context.Context, fn RunFunc, input string) (out *RunOutput, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = errors.Newf("run panicked: %v", r)
		}
	}()
	out, err = fn(ctx, input)
	if out == nil && err == nil {
		err = errors.New("run returned no output")
	}
	return out, err
}
