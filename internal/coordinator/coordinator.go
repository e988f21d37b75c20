package coordinator

import (
	"sort"
	"sync"
	"time"

	"github.com/gobwas/glob"

	"github.com/hivelab/hive/internal/errors"
	"github.com/hivelab/hive/internal/event"
	"github.com/hivelab/hive/internal/logging"
	"github.com/hivelab/hive/internal/task"
)

// Default registry limits.
const (
	defaultMaxConsecutiveErrors = 3
	defaultHeartbeatTimeout     = 90 * time.Second

	// performanceAlpha weights the most recent outcome in the EWMA
	// performance score update.
	performanceAlpha = 0.2
)

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithMaxConsecutiveErrors sets how many consecutive errors mark a worker
// failed.
func WithMaxConsecutiveErrors(n int) Option {
	return func(c *Coordinator) { c.maxConsecutiveErrors = n }
}

// WithHeartbeatTimeout sets the window after which a silent worker is
// marked failed by the sweep.
func WithHeartbeatTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.heartbeatTimeout = d }
}

// WithBus sets the event bus for worker and conflict events.
func WithBus(bus *event.Bus) Option {
	return func(c *Coordinator) { c.bus = bus }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *logging.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

// Coordinator owns the worker registry and all assignment state.
// All methods are safe for concurrent use via an internal mutex; the
// registry lock is what makes Assign atomic.
type Coordinator struct {
	mu          sync.Mutex
	workers     map[string]*task.Worker
	assignments map[string]string            // microtaskID -> workerID
	claims      map[string]map[string]*claim // itemID -> holder -> claim
	tiers       map[string]task.Complexity   // workerID -> preferred tier
	globs       map[string]glob.Glob         // compiled capability patterns

	policy *rebalancePolicy
	bus    *event.Bus
	logger *logging.Logger

	maxConsecutiveErrors int
	heartbeatTimeout     time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// New creates a Coordinator with the given options.
func New(opts ...Option) *Coordinator {
	c := &Coordinator{
		workers:              make(map[string]*task.Worker),
		assignments:          make(map[string]string),
		claims:               make(map[string]map[string]*claim),
		tiers:                make(map[string]task.Complexity),
		globs:                make(map[string]glob.Glob),
		policy:               newRebalancePolicy(),
		logger:               logging.NopLogger(),
		maxConsecutiveErrors: defaultMaxConsecutiveErrors,
		heartbeatTimeout:     defaultHeartbeatTimeout,
		now:                  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RegisterWorker adds a worker to the registry. A re-registered worker ID
// resets the previous registration.
func (c *Coordinator) RegisterWorker(id string, capabilities []string, capacity int) *task.Worker {
	c.mu.Lock()
	defer c.mu.Unlock()

	caps := make([]string, len(capabilities))
	copy(caps, capabilities)

	w := &task.Worker{
		ID:               id,
		Capabilities:     caps,
		Capacity:         capacity,
		Status:           task.WorkerIdle,
		PerformanceScore: 1.0,
		LastHeartbeat:    c.now(),
	}
	c.workers[id] = w

	c.publish(event.NewWorkerRegisteredEvent(id, caps, capacity))

	cp := *w
	return &cp
}

// FindWorker selects a worker for the microtask, or nil when none
// qualifies. Qualification requires idle status (spare capacity) and a
// capability set covering every required capability; glob patterns in
// worker capabilities are honored ("api.*" covers "api.rest"). Ties break
// by tier preference, then highest performance score, then lowest current
// load, then ID for determinism.
func (c *Coordinator) FindWorker(mt *task.MicroTask, parentComplexity task.Complexity) *task.Worker {
	c.mu.Lock()
	defer c.mu.Unlock()

	var candidates []*task.Worker
	for _, w := range c.workers {
		if w.Status == task.WorkerFailed || w.CurrentLoad >= w.Capacity {
			continue
		}
		if !c.coversLocked(w, mt.RequiredCapabilities) {
			continue
		}
		candidates = append(candidates, w)
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		wi, wj := candidates[i], candidates[j]
		ti := c.tiers[wi.ID] == parentComplexity
		tj := c.tiers[wj.ID] == parentComplexity
		if ti != tj {
			return ti
		}
		if wi.PerformanceScore != wj.PerformanceScore {
			return wi.PerformanceScore > wj.PerformanceScore
		}
		if wi.CurrentLoad != wj.CurrentLoad {
			return wi.CurrentLoad < wj.CurrentLoad
		}
		return wi.ID < wj.ID
	})

	cp := *candidates[0]
	return &cp
}

// HasCoverage reports whether any non-failed worker's capability set
// covers the required capabilities, regardless of its current load.
// Distinguishes "every qualified worker is busy" from "no worker will
// ever qualify".
func (c *Coordinator) HasCoverage(required []string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, w := range c.workers {
		if w.Status == task.WorkerFailed {
			continue
		}
		if c.coversLocked(w, required) {
			return true
		}
	}
	return false
}

// coversLocked reports whether the worker's capabilities cover every
// required capability. Caller must hold c.mu.
func (c *Coordinator) coversLocked(w *task.Worker, required []string) bool {
	for _, req := range required {
		matched := false
		for _, cap := range w.Capabilities {
			if cap == req {
				matched = true
				break
			}
			g, ok := c.globs[cap]
			if !ok {
				compiled, err := glob.Compile(cap)
				if err != nil {
					// Unparseable pattern only ever matches literally.
					continue
				}
				c.globs[cap] = compiled
				g = compiled
			}
			if g.Match(req) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// Assign atomically books the microtask onto the worker. It fails with a
// ConflictError when the worker's load would exceed its capacity or the
// microtask is already assigned. Two concurrent Assign calls for the same
// idle slot therefore resolve to exactly one winner.
func (c *Coordinator) Assign(workerID string, mt *task.MicroTask) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	w, ok := c.workers[workerID]
	if !ok {
		return errors.NewConflictError(workerID, mt.ID, errors.ErrWorkerNotFound)
	}
	if w.Status == task.WorkerFailed {
		return errors.NewConflictError(workerID, mt.ID, errors.ErrWorkerFailed)
	}
	if holder, taken := c.assignments[mt.ID]; taken {
		c.logger.Warn("rejected double assignment",
			"microtask_id", mt.ID, "held_by", holder, "requested_by", workerID)
		return errors.NewConflictError(workerID, mt.ID, errors.ErrAlreadyAssigned)
	}
	if w.CurrentLoad+1 > w.Capacity {
		return errors.NewConflictError(workerID, mt.ID, errors.ErrCapacityExceeded)
	}

	c.assignments[mt.ID] = workerID
	w.CurrentLoad++
	if w.CurrentLoad >= w.Capacity {
		w.Status = task.WorkerBusy
	}

	mt.Status = task.MicroAssigned
	mt.AssignedWorker = workerID

	c.publish(event.NewMicroTaskAssignedEvent(mt.ID, mt.ParentID, workerID))
	return nil
}

// ReleaseAssignment returns a booked microtask to the unassigned state,
// decrementing the holder's load. Only the coordinator's own conflict and
// failure paths call this; workers never self-unassign.
func (c *Coordinator) ReleaseAssignment(microTaskID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.releaseAssignmentLocked(microTaskID)
}

func (c *Coordinator) releaseAssignmentLocked(microTaskID string) error {
	workerID, ok := c.assignments[microTaskID]
	if !ok {
		return errors.ErrItemNotFound
	}
	delete(c.assignments, microTaskID)

	if w, ok := c.workers[workerID]; ok {
		if w.CurrentLoad > 0 {
			w.CurrentLoad--
		}
		if w.Status == task.WorkerBusy && w.CurrentLoad < w.Capacity {
			w.Status = task.WorkerIdle
		}
	}
	return nil
}

// ReportResult records the outcome of an executed microtask: the worker's
// load decrements, its performance score moves by EWMA toward the outcome,
// and consecutive errors accumulate until the worker is marked failed.
func (c *Coordinator) ReportResult(microTaskID, workerID string, success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if holder, ok := c.assignments[microTaskID]; ok && holder == workerID {
		_ = c.releaseAssignmentLocked(microTaskID)
	}

	w, ok := c.workers[workerID]
	if !ok {
		return
	}

	outcome := 0.0
	if success {
		outcome = 1.0
		w.ConsecutiveErrors = 0
	} else {
		w.ConsecutiveErrors++
	}
	w.PerformanceScore = (1-performanceAlpha)*w.PerformanceScore + performanceAlpha*outcome

	if !success && w.ConsecutiveErrors >= c.maxConsecutiveErrors {
		c.failWorkerLocked(w, "consecutive error limit reached")
	}
}

// Heartbeat records liveness for the worker. A heartbeat from a failed
// worker restores it to the pool with its error count reset.
func (c *Coordinator) Heartbeat(workerID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	w, ok := c.workers[workerID]
	if !ok {
		return errors.ErrWorkerNotFound
	}
	w.LastHeartbeat = c.now()
	if w.Status == task.WorkerFailed {
		w.Status = task.WorkerIdle
		w.ConsecutiveErrors = 0
		if w.CurrentLoad >= w.Capacity {
			w.Status = task.WorkerBusy
		}
	}
	return nil
}

// SweepFailed marks workers failed whose last heartbeat is older than the
// heartbeat timeout, releasing their assignments. Returns the IDs of
// microtasks that were released and need requeuing.
func (c *Coordinator) SweepFailed() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Add(-c.heartbeatTimeout)
	var released []string

	for _, w := range c.workers {
		if w.Status == task.WorkerFailed || !w.LastHeartbeat.Before(cutoff) {
			continue
		}
		released = append(released, c.failWorkerLocked(w, "missed heartbeat")...)
	}
	return released
}

// failWorkerLocked marks the worker failed and releases everything it
// holds. Returns the released microtask IDs. Caller must hold c.mu.
func (c *Coordinator) failWorkerLocked(w *task.Worker, reason string) []string {
	w.Status = task.WorkerFailed

	var released []string
	for mtID, holder := range c.assignments {
		if holder == w.ID {
			released = append(released, mtID)
		}
	}
	for _, mtID := range released {
		delete(c.assignments, mtID)
	}
	w.CurrentLoad = 0

	c.logger.WithWorker(w.ID).Warn("worker marked failed",
		"reason", reason, "released_microtasks", len(released))
	c.publish(event.NewWorkerFailedEvent(w.ID, reason))
	sort.Strings(released)
	return released
}

// Worker returns a copy of the worker with the given ID, or nil.
func (c *Coordinator) Worker(id string) *task.Worker {
	c.mu.Lock()
	defer c.mu.Unlock()

	w, ok := c.workers[id]
	if !ok {
		return nil
	}
	cp := *w
	return &cp
}

// Workers returns copies of all registered workers, ordered by ID.
func (c *Coordinator) Workers() []task.Worker {
	c.mu.Lock()
	defer c.mu.Unlock()

	workers := make([]task.Worker, 0, len(c.workers))
	for _, w := range c.workers {
		workers = append(workers, *w)
	}
	sort.Slice(workers, func(i, j int) bool { return workers[i].ID < workers[j].ID })
	return workers
}

// ActiveWorkers returns the number of workers currently holding at least
// one assignment.
func (c *Coordinator) ActiveWorkers() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	active := make(map[string]struct{})
	for _, workerID := range c.assignments {
		active[workerID] = struct{}{}
	}
	return len(active)
}

// AssignedWorker returns the worker currently holding the microtask, or
// empty when unassigned.
func (c *Coordinator) AssignedWorker(microTaskID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.assignments[microTaskID]
}

func (c *Coordinator) publish(ev event.Event) {
	if c.bus != nil {
		c.bus.Publish(ev)
	}
}
