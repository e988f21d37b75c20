package task

import (
	"time"
)

// Complexity buckets a work item by how much decomposition it needs.
type Complexity string

const (
	// ComplexityLow items fit in a single microtask.
	ComplexityLow Complexity = "low"

	// ComplexityMedium items are chunked with coarse phase labels.
	ComplexityMedium Complexity = "medium"

	// ComplexityHigh items are decomposed with a category pattern.
	ComplexityHigh Complexity = "high"

	// ComplexityCritical items are decomposed like high-complexity items
	// and sorted to the front of every queue they enter.
	ComplexityCritical Complexity = "critical"
)

// String returns the string representation of the complexity.
func (c Complexity) String() string {
	return string(c)
}

// NeedsDecomposition reports whether items of this complexity are broken
// into pattern-based microtasks rather than processed whole.
func (c Complexity) NeedsDecomposition() bool {
	return c == ComplexityHigh || c == ComplexityCritical
}

// Priority orders work items for admission. Higher values admit first.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

// String returns a human-readable name for the priority.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "LOW"
	case PriorityMedium:
		return "MEDIUM"
	case PriorityHigh:
		return "HIGH"
	case PriorityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ParsePriority converts a priority name to a Priority.
// Unrecognized names map to PriorityMedium.
func ParsePriority(s string) Priority {
	switch s {
	case "LOW":
		return PriorityLow
	case "MEDIUM":
		return PriorityMedium
	case "HIGH":
		return PriorityHigh
	case "CRITICAL":
		return PriorityCritical
	default:
		return PriorityMedium
	}
}

// ItemStatus represents the lifecycle state of a work item.
type ItemStatus string

const (
	// ItemPending indicates the item is waiting in the ledger.
	ItemPending ItemStatus = "pending"

	// ItemInProgress indicates the item has been admitted and its
	// microtasks are being executed.
	ItemInProgress ItemStatus = "in_progress"

	// ItemCompleted indicates every microtask of the item succeeded.
	ItemCompleted ItemStatus = "completed"

	// ItemFailed indicates at least one microtask permanently failed.
	ItemFailed ItemStatus = "failed"
)

// String returns the string representation of the item status.
func (s ItemStatus) String() string {
	return string(s)
}

// IsTerminal returns true if this status represents a final state.
func (s ItemStatus) IsTerminal() bool {
	return s == ItemCompleted || s == ItemFailed
}

// WorkItem is a unit of work pulled from the ledger before decomposition.
// At most one worker holds the assignment while the item is in progress.
type WorkItem struct {
	ID                   string        `json:"id" yaml:"id"`
	Title                string        `json:"title" yaml:"title"`
	Description          string        `json:"description" yaml:"description"`
	Complexity           Complexity    `json:"complexity,omitempty" yaml:"complexity,omitempty"`
	Priority             Priority      `json:"priority" yaml:"priority"`
	EstimatedDuration    time.Duration `json:"estimated_duration" yaml:"estimated_duration"`
	RequiredCapabilities []string      `json:"required_capabilities,omitempty" yaml:"required_capabilities,omitempty"`
	Status               ItemStatus    `json:"status" yaml:"status"`
	CreatedAt            time.Time     `json:"created_at" yaml:"created_at"`
	AssignedWorker       string        `json:"assigned_worker,omitempty" yaml:"assigned_worker,omitempty"`
	SourceLocator        string        `json:"source_locator,omitempty" yaml:"source_locator,omitempty"`
	Notes                string        `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// MicroTaskStatus represents the execution state of a microtask.
type MicroTaskStatus string

const (
	// MicroPending indicates the microtask is waiting for assignment.
	MicroPending MicroTaskStatus = "pending"

	// MicroAssigned indicates a worker holds the microtask but has not
	// started executing it.
	MicroAssigned MicroTaskStatus = "assigned"

	// MicroRunning indicates the microtask is actively being executed.
	MicroRunning MicroTaskStatus = "running"

	// MicroCompleted indicates the microtask finished successfully.
	MicroCompleted MicroTaskStatus = "completed"

	// MicroFailed indicates the microtask failed and exhausted its retry.
	MicroFailed MicroTaskStatus = "failed"

	// MicroCancelled indicates the parent item was cancelled before the
	// microtask reached a terminal state.
	MicroCancelled MicroTaskStatus = "cancelled"
)

// String returns the string representation of the microtask status.
func (s MicroTaskStatus) String() string {
	return string(s)
}

// IsTerminal returns true if this status represents a final state.
func (s MicroTaskStatus) IsTerminal() bool {
	return s == MicroCompleted || s == MicroFailed || s == MicroCancelled
}

// MicroTask is a bounded-duration, independently assignable unit produced
// by decomposing a WorkItem. Sequence-ordered microtasks of one parent
// execute in SequenceIndex order unless ParallelSafe is set.
type MicroTask struct {
	ID                   string          `json:"id"`
	ParentID             string          `json:"parent_id"`
	SequenceIndex        int             `json:"sequence_index"`
	Description          string          `json:"description"`
	EstimatedMinutes     int             `json:"estimated_minutes"`
	ParallelSafe         bool            `json:"parallel_safe"`
	Status               MicroTaskStatus `json:"status"`
	RequiredCapabilities []string        `json:"required_capabilities,omitempty"`
	AssignedWorker       string          `json:"assigned_worker,omitempty"`
	TimeoutCount         int             `json:"timeout_count"`
}

// WorkerStatus represents the availability of a registered worker.
type WorkerStatus string

const (
	// WorkerIdle indicates the worker has spare capacity.
	WorkerIdle WorkerStatus = "idle"

	// WorkerBusy indicates the worker is at capacity.
	WorkerBusy WorkerStatus = "busy"

	// WorkerFailed indicates the worker missed a heartbeat or exceeded
	// its consecutive error limit and no longer receives assignments.
	WorkerFailed WorkerStatus = "failed"
)

// String returns the string representation of the worker status.
func (s WorkerStatus) String() string {
	return string(s)
}

// Worker is a registered execution slot with a declared capability set.
// Capabilities may be glob patterns ("api.*" covers "api.rest").
type Worker struct {
	ID                string       `json:"id"`
	Capabilities      []string     `json:"capabilities"`
	Capacity          int          `json:"capacity"`
	CurrentLoad       int          `json:"current_load"`
	Status            WorkerStatus `json:"status"`
	PerformanceScore  float64      `json:"performance_score"`
	ConsecutiveErrors int          `json:"consecutive_errors"`
	LastHeartbeat     time.Time    `json:"last_heartbeat"`
}

// Result is the outcome of executing a single microtask.
type Result struct {
	MicroTaskID string        `json:"microtask_id"`
	WorkerID    string        `json:"worker_id"`
	Success     bool          `json:"success"`
	Output      string        `json:"output,omitempty"`
	Err         string        `json:"error,omitempty"`
	Elapsed     time.Duration `json:"elapsed"`
}
