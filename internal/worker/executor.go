package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hivelab/hive/internal/task"
)

// Executor performs a single microtask. Implementations must honor
// context cancellation and return promptly when the context ends; the
// pool enforces the time budget through the context deadline.
type Executor interface {
	Execute(ctx context.Context, mt task.MicroTask) (task.Result, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, mt task.MicroTask) (task.Result, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, mt task.MicroTask) (task.Result, error) {
	return f(ctx, mt)
}

// SimulatedExecutor fakes execution by sleeping in proportion to the
// microtask's estimated minutes. Failures can be injected per microtask
// ID. Used by dry runs and tests.
type SimulatedExecutor struct {
	mu sync.Mutex

	// PerMinute is the simulated wall time charged per estimated minute.
	perMinute time.Duration

	// failures maps microtask IDs to the number of times they should
	// still fail.
	failures map[string]int
}

// SimOption configures a SimulatedExecutor.
type SimOption func(*SimulatedExecutor)

// WithPerMinute sets the simulated wall time per estimated minute.
func WithPerMinute(d time.Duration) SimOption {
	return func(e *SimulatedExecutor) { e.perMinute = d }
}

// NewSimulatedExecutor creates a SimulatedExecutor. By default each
// estimated minute costs one millisecond of wall time.
func NewSimulatedExecutor(opts ...SimOption) *SimulatedExecutor {
	e := &SimulatedExecutor{
		perMinute: time.Millisecond,
		failures:  make(map[string]int),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FailNext makes the next n executions of the given microtask fail.
func (e *SimulatedExecutor) FailNext(microTaskID string, n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures[microTaskID] = n
}

// Execute sleeps for the simulated duration, honoring cancellation.
func (e *SimulatedExecutor) Execute(ctx context.Context, mt task.MicroTask) (task.Result, error) {
	start := time.Now()

	cost := time.Duration(mt.EstimatedMinutes) * e.perMinute
	if cost > 0 {
		timer := time.NewTimer(cost)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return task.Result{
				MicroTaskID: mt.ID,
				WorkerID:    mt.AssignedWorker,
				Success:     false,
				Err:         ctx.Err().Error(),
				Elapsed:     time.Since(start),
			}, ctx.Err()
		case <-timer.C:
		}
	}

	e.mu.Lock()
	remaining := e.failures[mt.ID]
	if remaining > 0 {
		e.failures[mt.ID] = remaining - 1
	}
	e.mu.Unlock()

	if remaining > 0 {
		return task.Result{
			MicroTaskID: mt.ID,
			WorkerID:    mt.AssignedWorker,
			Success:     false,
			Err:         "simulated failure",
			Elapsed:     time.Since(start),
		}, nil
	}

	return task.Result{
		MicroTaskID: mt.ID,
		WorkerID:    mt.AssignedWorker,
		Success:     true,
		Output:      fmt.Sprintf("simulated: %s", mt.Description),
		Elapsed:     time.Since(start),
	}, nil
}
