package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"promptlab/internal/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// countingRun returns "<n>" for the n-th call, in call order
func countingRun() RunFunc {
	var mu sync.Mutex
	calls := 0
	return func(ctx context.Context, _ string) (*RunOutput, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		return &RunOutput{Response: fmt.Sprintf("<%d>", n)}, nil
	}
}

// sleepRun sleeps for d honoring cancellation, then returns resp
func sleepRun(d time.Duration, resp string) RunFunc {
	return func(ctx context.Context, _ string) (*RunOutput, error) {
		select {
		case <-time.After(d):
			return &RunOutput{Response: resp}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func TestExecutor_Serial_RunCountAndOrder(t *testing.T) {
	exec := NewExecutor()

	results, total, err := exec.Run(context.Background(), countingRun(), "in", 3, ExecutionPolicy{})

	assert.NoError(t, err)
	assert.Len(t, results, 3)
	var sum int64
	for i, r := range results {
		assert.Equal(t, i, r.RunIndex)
		assert.Equal(t, fmt.Sprintf("<%d>", i+1), r.Response)
		assert.GreaterOrEqual(t, r.DurationMs, int64(0))
		assert.False(t, r.Timestamp.IsZero())
		sum += r.DurationMs
	}
	assert.Equal(t, sum, total)
}

func TestExecutor_Serial_ErrorsDoNotAbortBatch(t *testing.T) {
	exec := NewExecutor()
	fn := func(ctx context.Context, _ string) (*RunOutput, error) {
		return nil, errors.New("boom")
	}

	results, _, err := exec.Run(context.Background(), fn, "in", 2, ExecutionPolicy{})

	assert.NoError(t, err, "per-run failures must not reject the execution")
	assert.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, "Error: boom", r.Response)
		if assert.NotEmpty(t, r.Logs) {
			assert.Equal(t, "Execution Error", r.Logs[0].Label)
			assert.Contains(t, r.Logs[0].Text, "boom")
		}
	}
}

func TestExecutor_Serial_ErrorsAndSuccessesMix(t *testing.T) {
	exec := NewExecutor()
	var mu sync.Mutex
	calls := 0
	fn := func(ctx context.Context, _ string) (*RunOutput, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 2 {
			return nil, errors.New("middle run failed")
		}
		return &RunOutput{Response: "ok"}, nil
	}

	results, _, err := exec.Run(context.Background(), fn, "in", 3, ExecutionPolicy{})

	assert.NoError(t, err)
	assert.Len(t, results, 3)
	assert.Equal(t, "ok", results[0].Response)
	assert.Equal(t, "Error: middle run failed", results[1].Response)
	assert.Equal(t, "ok", results[2].Response, "runs after a failure must still execute")
}

func TestExecutor_Parallel_WallClockTotal(t *testing.T) {
	exec := NewExecutor()
	policy := ExecutionPolicy{Mode: ModeParallel}

	results, total, err := exec.Run(context.Background(), sleepRun(30*time.Millisecond, "ok"), "in", 4, policy)

	assert.NoError(t, err)
	assert.Len(t, results, 4)

	var sum, max int64
	for i, r := range results {
		assert.Equal(t, i, r.RunIndex)
		assert.Equal(t, "ok", r.Response)
		sum += r.DurationMs
		if r.DurationMs > max {
			max = r.DurationMs
		}
	}
	// Overlapping runs: wall clock is less than the per-run sum but must
	// cover the longest run
	assert.Less(t, total, sum)
	assert.GreaterOrEqual(t, total, max)
}

func TestExecutor_Parallel_BoundsConcurrency(t *testing.T) {
	exec := NewExecutor()

	var mu sync.Mutex
	current, peak := 0, 0
	fn := func(ctx context.Context, _ string) (*RunOutput, error) {
		mu.Lock()
		current++
		if current > peak {
			peak = current
		}
		mu.Unlock()

		time.Sleep(20 * time.Millisecond)

		mu.Lock()
		current--
		mu.Unlock()
		return &RunOutput{Response: "ok"}, nil
	}

	results, _, err := exec.Run(context.Background(), fn, "in", 6, ExecutionPolicy{Mode: ModeParallel, MaxConcurrency: 2})

	assert.NoError(t, err)
	assert.Len(t, results, 6)
	assert.LessOrEqual(t, peak, 2, "rolling window must keep at most MaxConcurrency runs in flight")
}

func TestExecutor_Parallel_WindowOfOneRunsInOrder(t *testing.T) {
	exec := NewExecutor()

	results, _, err := exec.Run(context.Background(), countingRun(), "in", 3, ExecutionPolicy{Mode: ModeParallel, MaxConcurrency: 1})

	assert.NoError(t, err)
	assert.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, fmt.Sprintf("<%d>", i+1), r.Response)
	}
}

func TestExecutor_Parallel_TimeoutIsDistinctFromError(t *testing.T) {
	exec := NewExecutor()
	policy := ExecutionPolicy{Mode: ModeParallel, TimeoutMs: 10}

	start := time.Now()
	results, _, err := exec.Run(context.Background(), sleepRun(300*time.Millisecond, "late"), "in", 1, policy)
	elapsed := time.Since(start)

	assert.NoError(t, err)
	assert.Len(t, results, 1)

	resp, ok := results[0].Response.(string)
	assert.True(t, ok)
	assert.True(t, strings.HasPrefix(resp, "Timeout"), "got %q", resp)
	assert.False(t, strings.HasPrefix(resp, "Error"), "timeouts must not look like generic errors")
	if assert.NotEmpty(t, results[0].Logs) {
		assert.Equal(t, "Timeout", results[0].Logs[0].Label)
	}
	// The run is cut at the timeout, not at the function's own duration
	assert.Less(t, elapsed, 200*time.Millisecond)
}

func TestExecutor_Parallel_GenerousTimeoutSucceeds(t *testing.T) {
	exec := NewExecutor()
	policy := ExecutionPolicy{Mode: ModeParallel, TimeoutMs: 500}

	results, _, err := exec.Run(context.Background(), sleepRun(10*time.Millisecond, "made it"), "in", 1, policy)

	assert.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, "made it", results[0].Response)
}

func TestExecutor_Parallel_TimeoutNeverShortensResults(t *testing.T) {
	exec := NewExecutor()

	var mu sync.Mutex
	calls := 0
	fn := func(ctx context.Context, _ string) (*RunOutput, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 2 {
			return sleepRun(80*time.Millisecond, "late")(ctx, "")
		}
		return &RunOutput{Response: "fast"}, nil
	}

	results, _, err := exec.Run(context.Background(), fn, "in", 3, ExecutionPolicy{Mode: ModeParallel, TimeoutMs: 20})

	assert.NoError(t, err)
	assert.Len(t, results, 3)

	timeouts, successes := 0, 0
	for _, r := range results {
		resp := r.Response.(string)
		switch {
		case strings.HasPrefix(resp, "Timeout"):
			timeouts++
		case resp == "fast":
			successes++
		}
	}
	assert.Equal(t, 1, timeouts)
	assert.Equal(t, 2, successes)
}

func TestExecutor_RecoversPanics(t *testing.T) {
	exec := NewExecutor()
	fn := func(ctx context.Context, _ string) (*RunOutput, error) {
		panic("unexpected state")
	}

	results, _, err := exec.Run(context.Background(), fn, "in", 2, ExecutionPolicy{})

	assert.NoError(t, err)
	assert.Len(t, results, 2)
	for _, r := range results {
		assert.Contains(t, r.Response, "Error: run panicked")
	}
}

func TestExecutor_RejectsBadArguments(t *testing.T) {
	exec := NewExecutor()
	ok := func(ctx context.Context, _ string) (*RunOutput, error) {
		return &RunOutput{Response: "ok"}, nil
	}

	tests := []struct {
		name     string
		fn       RunFunc
		runCount int
		policy   ExecutionPolicy
		wantErr  error
	}{
		{"zero runs", ok, 0, ExecutionPolicy{}, ErrInvalidRunCount},
		{"negative runs", ok, -1, ExecutionPolicy{}, ErrInvalidRunCount},
		{"nil function", nil, 1, ExecutionPolicy{}, ErrInvalidPolicy},
		{"unknown mode", ok, 1, ExecutionPolicy{Mode: "sideways"}, ErrInvalidPolicy},
		{"negative concurrency", ok, 1, ExecutionPolicy{Mode: ModeParallel, MaxConcurrency: -2}, ErrInvalidPolicy},
		{"negative timeout", ok, 1, ExecutionPolicy{Mode: ModeParallel, TimeoutMs: -5}, ErrInvalidPolicy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, _, err := exec.Run(context.Background(), tt.fn, "in", tt.runCount, tt.policy)
			assert.Nil(t, results)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestExecutionPolicy_Validate(t *testing.T) {
	assert.NoError(t, ExecutionPolicy{}.Validate())
	assert.NoError(t, ExecutionPolicy{Mode: ModeSerial}.Validate())
	assert.NoError(t, ExecutionPolicy{Mode: ModeParallel, MaxConcurrency: 4, TimeoutMs: 100}.Validate())
	assert.Error(t, ExecutionPolicy{Mode: "bogus"}.Validate())
	assert.Error(t, ExecutionPolicy{TimeoutMs: -1}.Validate())
}

func TestExecutor_CanceledContextFailsRemainingRuns(t *testing.T) {
	exec := NewExecutor()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, _, err := exec.Run(ctx, countingRun(), "in", 3, ExecutionPolicy{})

	assert.NoError(t, err)
	assert.Len(t, results, 3, "cancellation must not shorten the results")
	for _, r := range results {
		assert.Contains(t, r.Response, "Error: context canceled")
	}
}
