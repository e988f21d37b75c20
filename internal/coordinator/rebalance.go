package coordinator

import (
	"sort"
	"sync"
	"time"

	"github.com/hivelab/hive/internal/task"
)

// defaultRebalanceCooldown is the minimum time between rebalance
// decisions, preventing allocation thrash when backlogs oscillate.
const defaultRebalanceCooldown = 30 * time.Second

// rebalancePolicy gates how often tier allocation may change.
type rebalancePolicy struct {
	mu               sync.Mutex
	cooldown         time.Duration
	lastDecisionTime time.Time
}

func newRebalancePolicy() *rebalancePolicy {
	return &rebalancePolicy{cooldown: defaultRebalanceCooldown}
}

// allow reports whether enough time has passed since the last decision.
func (p *rebalancePolicy) allow(now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.lastDecisionTime.IsZero() && now.Sub(p.lastDecisionTime) < p.cooldown {
		return false
	}
	p.lastDecisionTime = now
	return true
}

// WithRebalanceCooldown sets the minimum time between rebalance decisions.
func WithRebalanceCooldown(d time.Duration) Option {
	return func(c *Coordinator) { c.policy.cooldown = d }
}

// tierOrder fixes the iteration order over complexity tiers so allocation
// is deterministic.
var tierOrder = []task.Complexity{
	task.ComplexityCritical,
	task.ComplexityHigh,
	task.ComplexityMedium,
	task.ComplexityLow,
}

// Rebalance recomputes the preferred-tier allocation of workers
// proportional to the aggregate backlog per complexity tier, shifting
// idle workers toward the tier with the largest queue. The allocation
// only biases FindWorker's tiebreak; it never revokes an in-flight
// assignment. Returns true when an allocation pass ran, false while the
// cooldown is active or there is no backlog.
func (c *Coordinator) Rebalance(backlog map[task.Complexity]int) bool {
	if !c.policy.allow(c.now()) {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	total := 0
	for _, n := range backlog {
		if n > 0 {
			total += n
		}
	}
	if total == 0 || len(c.workers) == 0 {
		return false
	}

	// Idle workers are movable; busy workers keep their current tier so
	// in-flight work keeps its affinity.
	movable := make([]string, 0, len(c.workers))
	for id, w := range c.workers {
		if w.Status == task.WorkerIdle {
			movable = append(movable, id)
		}
	}
	sort.Strings(movable)
	if len(movable) == 0 {
		return false
	}

	// Proportional shares, largest backlog first. Rounding leftovers go
	// to the largest tier.
	type share struct {
		tier  task.Complexity
		count int
	}
	shares := make([]share, 0, len(tierOrder))
	assigned := 0
	for _, tier := range tierOrder {
		n := backlog[tier]
		if n <= 0 {
			continue
		}
		cnt := len(movable) * n / total
		assigned += cnt
		shares = append(shares, share{tier: tier, count: cnt})
	}
	if len(shares) == 0 {
		return false
	}
	sort.SliceStable(shares, func(i, j int) bool {
		return backlog[shares[i].tier] > backlog[shares[j].tier]
	})
	shares[0].count += len(movable) - assigned

	idx := 0
	for _, s := range shares {
		for i := 0; i < s.count && idx < len(movable); i++ {
			c.tiers[movable[idx]] = s.tier
			idx++
		}
	}

	c.logger.Debug("rebalanced worker tiers",
		"movable", len(movable), "total_backlog", total)
	return true
}

// TierOf returns the preferred complexity tier of the worker, or empty
// when the worker has no tier preference yet.
func (c *Coordinator) TierOf(workerID string) task.Complexity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tiers[workerID]
}
