package coordinator

import (
	"testing"
	"time"

	"github.com/hivelab/hive/internal/task"
)

func TestRebalanceShiftsTowardLargestBacklog(t *testing.T) {
	c := New(WithRebalanceCooldown(0))
	for _, id := range []string{"worker-a", "worker-b", "worker-c", "worker-d"} {
		c.RegisterWorker(id, []string{"*"}, 2)
	}

	ran := c.Rebalance(map[task.Complexity]int{
		task.ComplexityHigh: 3,
		task.ComplexityLow:  1,
	})
	if !ran {
		t.Fatal("expected a rebalance pass to run")
	}

	counts := map[task.Complexity]int{}
	for _, id := range []string{"worker-a", "worker-b", "worker-c", "worker-d"} {
		counts[c.TierOf(id)]++
	}
	if counts[task.ComplexityHigh] != 3 || counts[task.ComplexityLow] != 1 {
		t.Errorf("tier allocation = %v, want 3 high / 1 low", counts)
	}
}

func TestRebalanceCooldownGatesPasses(t *testing.T) {
	c := New()
	current := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }
	c.RegisterWorker("worker-a", []string{"*"}, 2)

	backlog := map[task.Complexity]int{task.ComplexityMedium: 5}

	if !c.Rebalance(backlog) {
		t.Fatal("first pass should run")
	}
	if c.Rebalance(backlog) {
		t.Fatal("second pass inside the cooldown should be skipped")
	}

	current = current.Add(defaultRebalanceCooldown + time.Second)
	if !c.Rebalance(backlog) {
		t.Fatal("pass after the cooldown should run")
	}
}

func TestRebalanceNoBacklogIsANoOp(t *testing.T) {
	c := New(WithRebalanceCooldown(0))
	c.RegisterWorker("worker-a", []string{"*"}, 2)

	if c.Rebalance(nil) {
		t.Error("nil backlog should not trigger a pass")
	}
	if c.Rebalance(map[task.Complexity]int{task.ComplexityLow: 0}) {
		t.Error("zero backlog should not trigger a pass")
	}
}

func TestRebalanceLeavesBusyWorkersAlone(t *testing.T) {
	c := New(WithRebalanceCooldown(0))
	c.RegisterWorker("worker-busy", []string{"*"}, 1)
	c.RegisterWorker("worker-idle", []string{"*"}, 1)

	// Pin worker-busy to a tier, then saturate it.
	if !c.Rebalance(map[task.Complexity]int{task.ComplexityLow: 1}) {
		t.Fatal("seed pass should run")
	}
	if err := c.Assign("worker-busy", makeMicroTask("mt-1")); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	before := c.TierOf("worker-busy")

	if !c.Rebalance(map[task.Complexity]int{task.ComplexityCritical: 4}) {
		t.Fatal("second pass should run")
	}
	if got := c.TierOf("worker-busy"); got != before {
		t.Errorf("busy worker tier changed from %s to %s", before, got)
	}
	if got := c.TierOf("worker-idle"); got != task.ComplexityCritical {
		t.Errorf("idle worker tier = %s, want critical", got)
	}
}

func TestFindWorkerPrefersMatchingTier(t *testing.T) {
	c := New(WithRebalanceCooldown(0))
	c.RegisterWorker("worker-a", []string{"*"}, 2)
	c.RegisterWorker("worker-b", []string{"*"}, 2)

	// Both idle with equal scores; the tier preference is the only signal.
	c.mu.Lock()
	c.tiers["worker-b"] = task.ComplexityHigh
	c.mu.Unlock()

	got := c.FindWorker(makeMicroTask("mt-1"), task.ComplexityHigh)
	if got == nil || got.ID != "worker-b" {
		t.Fatalf("expected tier-matched worker-b, got %+v", got)
	}
}
