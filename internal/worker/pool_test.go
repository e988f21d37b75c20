package worker

import (
	"context"
	"testing"
	"time"

	"github.com/hivelab/hive/internal/errors"
	"github.com/hivelab/hive/internal/task"
)

func poolJob(id string, minutes int, budget time.Duration) Job {
	return Job{
		MicroTask: task.MicroTask{
			ID:               id,
			ParentID:         "item-1",
			Description:      "job " + id,
			EstimatedMinutes: minutes,
			Status:           task.MicroRunning,
		},
		WorkerID: "worker-a",
		Budget:   budget,
	}
}

func TestPoolDeliversSuccess(t *testing.T) {
	executor := NewSimulatedExecutor(WithPerMinute(10 * time.Microsecond))
	pool := NewPool(executor, WithSize(2))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	if err := pool.Submit(ctx, poolJob("mt-1", 5, time.Second)); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	select {
	case out := <-pool.Results():
		if out.Err != nil {
			t.Fatalf("unexpected error: %v", out.Err)
		}
		if !out.Result.Success || out.Result.MicroTaskID != "mt-1" {
			t.Errorf("unexpected result: %+v", out.Result)
		}
	case <-time.After(time.Second):
		t.Fatal("no outcome delivered")
	}
}

func TestPoolBudgetTimeout(t *testing.T) {
	// 10 simulated minutes cost 100ms against a 10ms budget.
	executor := NewSimulatedExecutor(WithPerMinute(10 * time.Millisecond))
	pool := NewPool(executor, WithSize(1))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	if err := pool.Submit(ctx, poolJob("mt-1", 10, 10*time.Millisecond)); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	select {
	case out := <-pool.Results():
		if !errors.Is(out.Err, errors.ErrExecutionTimeout) {
			t.Fatalf("expected ErrExecutionTimeout, got %v", out.Err)
		}
		var te *errors.TimeoutError
		if !errors.As(out.Err, &te) {
			t.Fatalf("expected a TimeoutError, got %T", out.Err)
		}
		if out.Result.Success {
			t.Error("timed-out job should not report success")
		}
	case <-time.After(time.Second):
		t.Fatal("no outcome delivered")
	}
}

// TestPoolDeliversOnePerJob verifies a timed-out job still produces
// exactly one outcome even though its executor goroutine finishes later.
func TestPoolDeliversOnePerJob(t *testing.T) {
	executor := NewSimulatedExecutor(WithPerMinute(5 * time.Millisecond))
	pool := NewPool(executor, WithSize(1))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	if err := pool.Submit(ctx, poolJob("mt-1", 10, 5*time.Millisecond)); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	select {
	case <-pool.Results():
	case <-time.After(time.Second):
		t.Fatal("no outcome delivered")
	}

	// Give the abandoned executor goroutine time to finish; nothing more
	// may arrive.
	select {
	case out := <-pool.Results():
		t.Fatalf("unexpected second outcome: %+v", out)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPoolSubmitFailsAfterCancel(t *testing.T) {
	pool := NewPool(NewSimulatedExecutor(), WithSize(1))

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)
	cancel()
	pool.Wait()

	// Slots are gone and the buffer may fill; a cancelled ctx must fail
	// the submit rather than block forever.
	var err error
	for i := 0; i < cap(pool.jobs)+1; i++ {
		err = pool.Submit(ctx, poolJob("mt-overflow", 1, time.Second))
		if err != nil {
			break
		}
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSimulatedExecutorFailNext(t *testing.T) {
	executor := NewSimulatedExecutor(WithPerMinute(0))
	executor.FailNext("mt-1", 2)

	mt := task.MicroTask{ID: "mt-1", EstimatedMinutes: 1}
	for i := 0; i < 2; i++ {
		result, err := executor.Execute(context.Background(), mt)
		if err != nil {
			t.Fatalf("Execute %d: %v", i+1, err)
		}
		if result.Success {
			t.Fatalf("execution %d should have failed", i+1)
		}
	}

	result, err := executor.Execute(context.Background(), mt)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.Success {
		t.Error("injected failures exhausted, execution should succeed")
	}
}

func TestSimulatedExecutorHonorsCancellation(t *testing.T) {
	executor := NewSimulatedExecutor(WithPerMinute(time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := executor.Execute(ctx, task.MicroTask{ID: "mt-1", EstimatedMinutes: 10})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result.Success {
		t.Error("cancelled execution should not succeed")
	}
}
