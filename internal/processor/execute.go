package processor

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hivelab/hive/internal/errors"
	"github.com/hivelab/hive/internal/event"
	"github.com/hivelab/hive/internal/task"
	"github.com/hivelab/hive/internal/worker"
)

// executeItem runs one item's microtasks. Sequence-dependent microtasks
// run in index order; consecutive parallel-safe ones fan out together.
// A failed stage skips everything after it since later stages depend on
// its output.
func (p *Processor) executeItem(ctx context.Context, run *itemRun) {
	stages := buildStages(run.microtasks)

	for i, stage := range stages {
		if ctx.Err() != nil || run.isCancelled() {
			cancelRemaining(stages[i:])
			return
		}

		var g errgroup.Group
		for _, mt := range stage {
			mt := mt
			g.Go(func() error {
				p.runMicroTask(ctx, run, mt)
				return nil
			})
		}
		_ = g.Wait()

		for _, mt := range stage {
			if mt.Status == task.MicroFailed {
				cancelRemaining(stages[i+1:])
				return
			}
		}
	}
}

// buildStages groups microtasks into execution stages: a run of
// consecutive parallel-safe microtasks forms one stage, everything else
// is a stage of its own.
func buildStages(mts []*task.MicroTask) [][]*task.MicroTask {
	var stages [][]*task.MicroTask
	var parallel []*task.MicroTask

	flush := func() {
		if len(parallel) > 0 {
			stages = append(stages, parallel)
			parallel = nil
		}
	}

	for _, mt := range mts {
		if mt.ParallelSafe {
			parallel = append(parallel, mt)
			continue
		}
		flush()
		stages = append(stages, []*task.MicroTask{mt})
	}
	flush()
	return stages
}

func cancelRemaining(stages [][]*task.MicroTask) {
	for _, stage := range stages {
		for _, mt := range stage {
			if !mt.Status.IsTerminal() && mt.Status != task.MicroRunning {
				mt.Status = task.MicroCancelled
			}
		}
	}
}

// runMicroTask drives one microtask to a terminal status: find a
// worker, book the assignment, dispatch to the pool, and fold the
// outcome back. A first budget timeout requeues the microtask; a second
// fails it.
func (p *Processor) runMicroTask(ctx context.Context, run *itemRun, mt *task.MicroTask) {
	for {
		if run.isCancelled() {
			mt.Status = task.MicroCancelled
			return
		}

		w := p.coord.FindWorker(mt, run.complexity)
		if w == nil {
			if !p.coord.HasCoverage(mt.RequiredCapabilities) {
				p.logger.WithItem(mt.ParentID).Warn("no worker covers required capabilities",
					"microtask_id", mt.ID, "capabilities", mt.RequiredCapabilities)
				mt.Status = task.MicroFailed
				return
			}
			// Every qualified worker is at capacity; wait for a slot.
			select {
			case <-ctx.Done():
				mt.Status = task.MicroCancelled
				return
			case <-time.After(findWorkerRetryDelay):
			}
			continue
		}

		if err := p.coord.Assign(w.ID, mt); err != nil {
			if errors.IsConflict(err) {
				// Lost the slot to a concurrent booking; pick again.
				p.logger.Debug("assignment conflict, retrying",
					"microtask_id", mt.ID, "worker_id", w.ID)
				continue
			}
			p.logger.Warn("assignment failed", "microtask_id", mt.ID, "error", err)
			continue
		}

		if p.dispatch(ctx, run, mt, w.ID) {
			return
		}
	}
}

// dispatch submits the booked microtask to the pool and waits for its
// outcome. It reports true when the microtask reached a terminal
// status, false when it was requeued for another attempt.
func (p *Processor) dispatch(ctx context.Context, run *itemRun, mt *task.MicroTask, workerID string) bool {
	ch := p.registerWaiter(mt.ID)
	mt.Status = task.MicroRunning

	job := worker.Job{MicroTask: *mt, WorkerID: workerID, Budget: p.taskTimeout}
	if err := p.pool.Submit(ctx, job); err != nil {
		p.unregisterWaiter(mt.ID)
		_ = p.coord.ReleaseAssignment(mt.ID)
		mt.Status = task.MicroCancelled
		return true
	}

	select {
	case <-ctx.Done():
		p.unregisterWaiter(mt.ID)
		_ = p.coord.ReleaseAssignment(mt.ID)
		mt.Status = task.MicroCancelled
		return true

	case out := <-ch:
		p.unregisterWaiter(mt.ID)

		success := out.Err == nil && out.Result.Success
		p.coord.ReportResult(mt.ID, workerID, success)

		if run.isCancelled() {
			// The worker finished but the parent was cancelled; the
			// result is discarded.
			mt.Status = task.MicroCancelled
			return true
		}

		if success {
			mt.Status = task.MicroCompleted
			p.publish(event.NewMicroTaskCompletedEvent(mt.ID, mt.ParentID, workerID, true))
			return true
		}

		if out.Err != nil && errors.Is(out.Err, errors.ErrExecutionTimeout) {
			mt.TimeoutCount++
			if mt.TimeoutCount == 1 {
				mt.Status = task.MicroPending
				mt.AssignedWorker = ""
				p.publish(event.NewMicroTaskRequeuedEvent(mt.ID, mt.ParentID, "execution timeout"))
				p.logger.WithItem(mt.ParentID).Warn("microtask timed out, requeuing",
					"microtask_id", mt.ID)
				return false
			}
			p.logger.WithItem(mt.ParentID).Warn("microtask timed out twice, failing",
				"microtask_id", mt.ID)
		}

		mt.Status = task.MicroFailed
		p.publish(event.NewMicroTaskCompletedEvent(mt.ID, mt.ParentID, workerID, false))
		return true
	}
}

// collect routes pool outcomes to the dispatch waiting on each
// microtask. Outcomes without a waiter belong to abandoned dispatches
// and are dropped.
func (p *Processor) collect(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case out := <-p.pool.Results():
			p.mu.Lock()
			ch, ok := p.waiters[out.Job.MicroTask.ID]
			p.mu.Unlock()
			if !ok {
				p.logger.Debug("dropping outcome without waiter",
					"microtask_id", out.Job.MicroTask.ID)
				continue
			}
			select {
			case ch <- out:
			default:
			}
		}
	}
}

func (p *Processor) registerWaiter(microTaskID string) chan worker.Outcome {
	ch := make(chan worker.Outcome, 1)
	p.mu.Lock()
	p.waiters[microTaskID] = ch
	p.mu.Unlock()
	return ch
}

func (p *Processor) unregisterWaiter(microTaskID string) {
	p.mu.Lock()
	delete(p.waiters, microTaskID)
	p.mu.Unlock()
}
