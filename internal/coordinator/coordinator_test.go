package coordinator

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hivelab/hive/internal/errors"
	"github.com/hivelab/hive/internal/task"
)

func makeMicroTask(id string, capabilities ...string) *task.MicroTask {
	return &task.MicroTask{
		ID:                   id,
		ParentID:             "item-1",
		Description:          "microtask " + id,
		EstimatedMinutes:     15,
		Status:               task.MicroPending,
		RequiredCapabilities: capabilities,
	}
}

func TestRegisterWorkerDefaults(t *testing.T) {
	c := New()
	w := c.RegisterWorker("worker-a", []string{"api.*"}, 3)

	if w.Status != task.WorkerIdle {
		t.Errorf("new worker should be idle, got %s", w.Status)
	}
	if w.PerformanceScore != 1.0 {
		t.Errorf("new worker score should be 1.0, got %f", w.PerformanceScore)
	}
	if w.Capacity != 3 || w.CurrentLoad != 0 {
		t.Errorf("unexpected capacity state: %+v", w)
	}
}

func TestFindWorkerCapabilityMatching(t *testing.T) {
	tests := []struct {
		name         string
		capabilities []string
		required     []string
		wantFound    bool
	}{
		{"exact match", []string{"api.rest"}, []string{"api.rest"}, true},
		{"glob covers", []string{"api.*"}, []string{"api.rest"}, true},
		{"star covers everything", []string{"*"}, []string{"db.sql", "go"}, true},
		{"missing capability", []string{"api.rest"}, []string{"db.sql"}, false},
		{"partial coverage is not enough", []string{"api.*"}, []string{"api.rest", "db.sql"}, false},
		{"no requirements", []string{"api.rest"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			c.RegisterWorker("worker-a", tt.capabilities, 2)

			got := c.FindWorker(makeMicroTask("mt-1", tt.required...), task.ComplexityMedium)
			if (got != nil) != tt.wantFound {
				t.Errorf("FindWorker found=%v, want %v", got != nil, tt.wantFound)
			}
		})
	}
}

func TestFindWorkerPrefersScoreThenLoad(t *testing.T) {
	c := New()
	c.RegisterWorker("worker-low", []string{"*"}, 3)
	c.RegisterWorker("worker-high", []string{"*"}, 3)

	// Degrade worker-low's score with a failure.
	mt := makeMicroTask("mt-0")
	if err := c.Assign("worker-low", mt); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	c.ReportResult("mt-0", "worker-low", false)

	got := c.FindWorker(makeMicroTask("mt-1"), task.ComplexityMedium)
	if got == nil || got.ID != "worker-high" {
		t.Fatalf("expected worker-high (better score), got %+v", got)
	}
}

func TestFindWorkerSkipsFailedAndFull(t *testing.T) {
	c := New(WithMaxConsecutiveErrors(1))
	c.RegisterWorker("worker-a", []string{"*"}, 1)

	mt := makeMicroTask("mt-1")
	if err := c.Assign("worker-a", mt); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if got := c.FindWorker(makeMicroTask("mt-2"), task.ComplexityLow); got != nil {
		t.Errorf("worker at capacity should not be found, got %s", got.ID)
	}

	c.ReportResult("mt-1", "worker-a", false) // one error fails the worker
	if got := c.FindWorker(makeMicroTask("mt-3"), task.ComplexityLow); got != nil {
		t.Errorf("failed worker should not be found, got %s", got.ID)
	}
}

func TestAssignCapacityAndDoubleBooking(t *testing.T) {
	c := New()
	c.RegisterWorker("worker-a", []string{"*"}, 1)
	c.RegisterWorker("worker-b", []string{"*"}, 1)

	mt := makeMicroTask("mt-1")
	if err := c.Assign("worker-a", mt); err != nil {
		t.Fatalf("first Assign: %v", err)
	}
	if mt.Status != task.MicroAssigned || mt.AssignedWorker != "worker-a" {
		t.Errorf("microtask not updated on assign: %+v", mt)
	}

	// Same microtask to another worker.
	err := c.Assign("worker-b", makeMicroTask("mt-1"))
	if !errors.Is(err, errors.ErrAlreadyAssigned) {
		t.Fatalf("expected ErrAlreadyAssigned, got %v", err)
	}

	// Worker at capacity.
	err = c.Assign("worker-a", makeMicroTask("mt-2"))
	if !errors.Is(err, errors.ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}

	// Unknown worker.
	err = c.Assign("worker-x", makeMicroTask("mt-3"))
	if !errors.Is(err, errors.ErrWorkerNotFound) {
		t.Fatalf("expected ErrWorkerNotFound, got %v", err)
	}
}

// TestAssignConcurrentSingleWinner races many bookings against one
// capacity slot and requires exactly one to win.
func TestAssignConcurrentSingleWinner(t *testing.T) {
	c := New()
	c.RegisterWorker("worker-a", []string{"*"}, 1)

	const contenders = 16
	var wg sync.WaitGroup
	results := make([]error, contenders)

	for i := 0; i < contenders; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = c.Assign("worker-a", makeMicroTask(fmt.Sprintf("mt-%d", i)))
		}()
	}
	wg.Wait()

	winners := 0
	for _, err := range results {
		if err == nil {
			winners++
			continue
		}
		if !errors.IsConflict(err) {
			t.Errorf("loser got non-conflict error: %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly 1 winner, got %d", winners)
	}
	if w := c.Worker("worker-a"); w.CurrentLoad != 1 {
		t.Errorf("expected load 1, got %d", w.CurrentLoad)
	}
}

func TestReportResultUpdatesScoreAndLoad(t *testing.T) {
	c := New()
	c.RegisterWorker("worker-a", []string{"*"}, 2)

	mt := makeMicroTask("mt-1")
	if err := c.Assign("worker-a", mt); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	c.ReportResult("mt-1", "worker-a", true)

	w := c.Worker("worker-a")
	if w.CurrentLoad != 0 {
		t.Errorf("load not released, got %d", w.CurrentLoad)
	}
	if w.PerformanceScore != 1.0 {
		t.Errorf("success should keep a perfect score at 1.0, got %f", w.PerformanceScore)
	}
	if w.ConsecutiveErrors != 0 {
		t.Errorf("consecutive errors should be 0, got %d", w.ConsecutiveErrors)
	}

	// A failure moves the score down by the EWMA step.
	mt2 := makeMicroTask("mt-2")
	_ = c.Assign("worker-a", mt2)
	c.ReportResult("mt-2", "worker-a", false)

	w = c.Worker("worker-a")
	if w.PerformanceScore >= 1.0 {
		t.Errorf("failure should lower the score, got %f", w.PerformanceScore)
	}
	if w.ConsecutiveErrors != 1 {
		t.Errorf("expected 1 consecutive error, got %d", w.ConsecutiveErrors)
	}
}

func TestConsecutiveErrorsFailWorker(t *testing.T) {
	c := New(WithMaxConsecutiveErrors(2))
	c.RegisterWorker("worker-a", []string{"*"}, 3)

	for i := 1; i <= 2; i++ {
		mt := makeMicroTask(fmt.Sprintf("mt-%d", i))
		if err := c.Assign("worker-a", mt); err != nil {
			t.Fatalf("Assign %d: %v", i, err)
		}
		c.ReportResult(mt.ID, "worker-a", false)
	}

	w := c.Worker("worker-a")
	if w.Status != task.WorkerFailed {
		t.Fatalf("expected failed worker after 2 errors, got %s", w.Status)
	}

	// A heartbeat restores the worker to the pool.
	if err := c.Heartbeat("worker-a"); err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}
	w = c.Worker("worker-a")
	if w.Status != task.WorkerIdle || w.ConsecutiveErrors != 0 {
		t.Errorf("heartbeat should revive the worker, got %+v", w)
	}
}

func TestSweepFailedReleasesAssignments(t *testing.T) {
	c := New(WithHeartbeatTimeout(time.Minute))
	current := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }

	c.RegisterWorker("worker-a", []string{"*"}, 2)
	c.RegisterWorker("worker-b", []string{"*"}, 2)

	mtA := makeMicroTask("mt-a")
	if err := c.Assign("worker-a", mtA); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	// worker-b stays fresh; worker-a goes silent.
	current = current.Add(2 * time.Minute)
	if err := c.Heartbeat("worker-b"); err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}

	released := c.SweepFailed()
	if len(released) != 1 || released[0] != "mt-a" {
		t.Fatalf("expected [mt-a] released, got %v", released)
	}
	if w := c.Worker("worker-a"); w.Status != task.WorkerFailed || w.CurrentLoad != 0 {
		t.Errorf("silent worker not failed: %+v", w)
	}
	if w := c.Worker("worker-b"); w.Status != task.WorkerIdle {
		t.Errorf("fresh worker should stay idle: %+v", w)
	}
	if holder := c.AssignedWorker("mt-a"); holder != "" {
		t.Errorf("assignment not released, still held by %s", holder)
	}
}

func TestHasCoverage(t *testing.T) {
	c := New(WithMaxConsecutiveErrors(1))
	c.RegisterWorker("worker-a", []string{"api.*"}, 1)

	if !c.HasCoverage([]string{"api.rest"}) {
		t.Error("expected coverage for api.rest")
	}
	if c.HasCoverage([]string{"db.sql"}) {
		t.Error("expected no coverage for db.sql")
	}

	// A busy worker still provides coverage.
	if err := c.Assign("worker-a", makeMicroTask("mt-1", "api.rest")); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if !c.HasCoverage([]string{"api.rest"}) {
		t.Error("busy worker should still count as coverage")
	}

	// A failed worker does not.
	c.ReportResult("mt-1", "worker-a", false)
	if c.HasCoverage([]string{"api.rest"}) {
		t.Error("failed worker should not count as coverage")
	}
}
