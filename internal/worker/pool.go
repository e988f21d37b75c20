package worker

import (
	"context"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/hivelab/hive/internal/errors"
	"github.com/hivelab/hive/internal/logging"
	"github.com/hivelab/hive/internal/task"
)

const (
	defaultPoolSize     = 5
	defaultResultBuffer = 64
)

// Job is a microtask dispatched to the pool with its booked worker and
// time budget.
type Job struct {
	MicroTask task.MicroTask
	WorkerID  string
	Budget    time.Duration
}

// Outcome pairs a finished job with its result. Err is non-nil when the
// job did not produce a usable result: a budget timeout carries a
// TimeoutError, a cancelled run carries the context error.
type Outcome struct {
	Job    Job
	Result task.Result
	Err    error
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithSize sets the number of concurrent execution slots.
func WithSize(n int) PoolOption {
	return func(p *Pool) {
		if n > 0 {
			p.size = n
		}
	}
}

// WithPoolLogger sets the logger. Defaults to a no-op logger.
func WithPoolLogger(logger *logging.Logger) PoolOption {
	return func(p *Pool) { p.logger = logger }
}

// Pool runs jobs on a fixed number of goroutines, enforcing each job's
// time budget. Timed-out executions are abandoned: the executor
// goroutine is left to finish on its own and its result is discarded.
type Pool struct {
	executor Executor
	size     int
	logger   *logging.Logger

	jobs    chan Job
	results chan Outcome
	wg      *conc.WaitGroup
}

// NewPool creates a Pool over the given executor.
func NewPool(executor Executor, opts ...PoolOption) *Pool {
	p := &Pool{
		executor: executor,
		size:     defaultPoolSize,
		logger:   logging.NopLogger(),
		wg:       conc.NewWaitGroup(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.jobs = make(chan Job, p.size)
	p.results = make(chan Outcome, defaultResultBuffer)
	return p
}

// Start launches the execution slots. They run until ctx is cancelled
// and the jobs channel drains.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.size; i++ {
		p.wg.Go(func() { p.runSlot(ctx) })
	}
}

// Submit queues a job. It blocks while all slots are busy and the
// buffer is full, and fails only when ctx ends first.
func (p *Pool) Submit(ctx context.Context, job Job) error {
	select {
	case p.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Results returns the channel of finished outcomes.
func (p *Pool) Results() <-chan Outcome {
	return p.results
}

// Wait blocks until every slot has exited. Call after cancelling the
// context passed to Start.
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) runSlot(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-p.jobs:
			p.execute(ctx, job)
		}
	}
}

// execute runs one job under its budget. The executor runs in its own
// goroutine so a budget overrun never wedges the slot.
func (p *Pool) execute(ctx context.Context, job Job) {
	runCtx := ctx
	cancel := context.CancelFunc(func() {})
	if job.Budget > 0 {
		runCtx, cancel = context.WithTimeout(ctx, job.Budget)
	}
	defer cancel()

	done := make(chan Outcome, 1)
	mt := job.MicroTask
	go func() {
		result, err := p.executor.Execute(runCtx, mt)
		done <- Outcome{Job: job, Result: result, Err: err}
	}()

	select {
	case out := <-done:
		if out.Err != nil && errors.Is(out.Err, context.DeadlineExceeded) {
			out.Err = errors.NewTimeoutError(mt.ID, job.Budget)
		}
		p.deliver(ctx, out)

	case <-runCtx.Done():
		var err error
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			err = errors.NewTimeoutError(mt.ID, job.Budget)
			p.logger.WithWorker(job.WorkerID).Warn("microtask exceeded budget, abandoning",
				"microtask_id", mt.ID, "budget", job.Budget.String())
		} else {
			err = runCtx.Err()
		}
		p.deliver(ctx, Outcome{
			Job: job,
			Result: task.Result{
				MicroTaskID: mt.ID,
				WorkerID:    job.WorkerID,
				Success:     false,
				Err:         err.Error(),
			},
			Err: err,
		})
	}
}

func (p *Pool) deliver(ctx context.Context, out Outcome) {
	select {
	case p.results <- out:
	case <-ctx.Done():
		// Shutting down, drop the outcome.
	}
}
