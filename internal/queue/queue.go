package queue

import (
	"sort"
	"sync"
	"time"

	"github.com/hivelab/hive/internal/errors"
	"github.com/hivelab/hive/internal/task"
)

// Default admission bounds.
const (
	defaultMinThreshold = 5
	defaultMaxThreshold = 10
	defaultBatchCap     = 10
	defaultWaitTimeout  = 30 * time.Second
)

// State is a snapshot of the queue's admission state.
type State struct {
	MinThreshold int `json:"min_threshold"`
	MaxThreshold int `json:"max_threshold"`
	ActiveCount  int `json:"active_count"`
	Completed    int `json:"completed"`
	Failed       int `json:"failed"`
}

// Option configures a Manager.
type Option func(*Manager)

// WithMinThreshold sets the candidate count required before a batch admits.
func WithMinThreshold(n int) Option {
	return func(m *Manager) { m.minThreshold = n }
}

// WithMaxThreshold sets the maximum number of simultaneously active items.
func WithMaxThreshold(n int) Option {
	return func(m *Manager) { m.maxThreshold = n }
}

// WithBatchCap sets the maximum number of items admitted per cycle.
func WithBatchCap(n int) Option {
	return func(m *Manager) { m.batchCap = n }
}

// WithWaitTimeout sets how long the queue waits below the minimum
// threshold before admitting a partial batch anyway.
func WithWaitTimeout(d time.Duration) Option {
	return func(m *Manager) { m.waitTimeout = d }
}

// Manager performs admission control over pending work items.
// All methods are safe for concurrent use via an internal mutex.
type Manager struct {
	mu           sync.Mutex
	active       map[string]*task.WorkItem // itemID -> admitted item
	minThreshold int
	maxThreshold int
	batchCap     int
	waitTimeout  time.Duration

	// waitingSince marks when the queue first saw a sub-threshold
	// candidate set. Zero while the threshold is met.
	waitingSince time.Time

	completed int
	failed    int

	// now is swappable for tests.
	now func() time.Time
}

// NewManager creates a Manager with the given options.
// Unset options use defaults.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		active:       make(map[string]*task.WorkItem),
		minThreshold: defaultMinThreshold,
		maxThreshold: defaultMaxThreshold,
		batchCap:     defaultBatchCap,
		waitTimeout:  defaultWaitTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Admit selects the subset of candidates to process this cycle.
//
// Candidates already active are ignored. The remainder is ordered by
// priority descending, ties broken by age (oldest first), and the batch is
// bounded by both the free active slots and the batch cap.
//
// When fewer than the minimum threshold of candidates are available, Admit
// returns an empty batch with ErrAdmissionWait until the wait timeout
// elapses; the timeout admits the partial batch to keep small backlogs
// moving. ErrAdmissionWait is a normal wait state, not a failure.
func (m *Manager) Admit(candidates []task.WorkItem) ([]task.WorkItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	eligible := make([]task.WorkItem, 0, len(candidates))
	for _, item := range candidates {
		if _, ok := m.active[item.ID]; ok {
			continue
		}
		eligible = append(eligible, item)
	}

	if len(eligible) == 0 {
		m.waitingSince = time.Time{}
		return nil, nil
	}

	if len(eligible) < m.minThreshold {
		now := m.now()
		if m.waitingSince.IsZero() {
			m.waitingSince = now
		}
		if now.Sub(m.waitingSince) < m.waitTimeout {
			return nil, errors.ErrAdmissionWait
		}
		// Wait timeout elapsed: admit the partial batch.
	}
	m.waitingSince = time.Time{}

	slots := m.maxThreshold - len(m.active)
	if slots <= 0 {
		return nil, errors.ErrQueueFull
	}

	sortCandidates(eligible)

	batch := slots
	if batch > m.batchCap {
		batch = m.batchCap
	}
	if batch > len(eligible) {
		batch = len(eligible)
	}

	admitted := make([]task.WorkItem, 0, batch)
	for _, item := range eligible[:batch] {
		item.Status = task.ItemInProgress
		cp := item
		m.active[item.ID] = &cp
		admitted = append(admitted, item)
	}
	return admitted, nil
}

// sortCandidates orders candidates by priority descending, ties broken by
// age (oldest CreatedAt first), then by ID for determinism.
func sortCandidates(items []task.WorkItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Priority != items[j].Priority {
			return items[i].Priority > items[j].Priority
		}
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
}

// Release removes an item from the active set on completion or failure,
// decrementing the active count.
func (m *Manager) Release(itemID string, succeeded bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.active[itemID]; !ok {
		return errors.NewQueueError(itemID, errors.ErrItemNotFound)
	}
	delete(m.active, itemID)
	if succeeded {
		m.completed++
	} else {
		m.failed++
	}
	return nil
}

// Requeue removes an item from the active set without recording an
// outcome. The item becomes eligible for a later admission.
func (m *Manager) Requeue(itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.active[itemID]; !ok {
		return errors.NewQueueError(itemID, errors.ErrItemNotFound)
	}
	delete(m.active, itemID)
	return nil
}

// ReleaseStale drains the entire active set and returns the released
// items, status reset to pending, ordered by ID. A manager restored
// from a checkpoint carries the previous process's admissions; no cycle
// in this process owns them, so they must be released before the first
// scan or they pin queue slots until restart.
func (m *Manager) ReleaseStale() []task.WorkItem {
	m.mu.Lock()
	defer m.mu.Unlock()

	released := make([]task.WorkItem, 0, len(m.active))
	for id, item := range m.active {
		cp := *item
		cp.Status = task.ItemPending
		released = append(released, cp)
		delete(m.active, id)
	}
	sort.Slice(released, func(i, j int) bool { return released[i].ID < released[j].ID })
	return released
}

// Contains reports whether the item is currently active.
func (m *Manager) Contains(itemID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.active[itemID]
	return ok
}

// ActiveCount returns the number of items currently admitted.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// ActiveItems returns copies of all currently admitted items.
func (m *Manager) ActiveItems() []task.WorkItem {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := make([]task.WorkItem, 0, len(m.active))
	for _, item := range m.active {
		items = append(items, *item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}

// Status returns a snapshot of the current admission state.
func (m *Manager) Status() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return State{
		MinThreshold: m.minThreshold,
		MaxThreshold: m.maxThreshold,
		ActiveCount:  len(m.active),
		Completed:    m.completed,
		Failed:       m.failed,
	}
}
