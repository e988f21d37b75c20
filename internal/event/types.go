package event

import "time"

// Event is the interface that all events must implement.
// It provides a common way to identify and timestamp events.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "item.admitted", "cache.hit")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Work Item Events
// -----------------------------------------------------------------------------

// ItemAdmittedEvent is emitted when a work item is admitted for processing.
type ItemAdmittedEvent struct {
	baseEvent
	ItemID   string // Work item identifier
	Priority string // Priority label at admission time
}

// NewItemAdmittedEvent creates an ItemAdmittedEvent.
func NewItemAdmittedEvent(itemID, priority string) ItemAdmittedEvent {
	return ItemAdmittedEvent{
		baseEvent: newBaseEvent("item.admitted"),
		ItemID:    itemID,
		Priority:  priority,
	}
}

// ItemCompletedEvent is emitted when every microtask of an item succeeded.
type ItemCompletedEvent struct {
	baseEvent
	ItemID     string // Work item identifier
	MicroTasks int    // Number of microtasks the item was decomposed into
}

// NewItemCompletedEvent creates an ItemCompletedEvent.
func NewItemCompletedEvent(itemID string, microTasks int) ItemCompletedEvent {
	return ItemCompletedEvent{
		baseEvent:  newBaseEvent("item.completed"),
		ItemID:     itemID,
		MicroTasks: microTasks,
	}
}

// ItemFailedEvent is emitted when an item is recorded as failed.
type ItemFailedEvent struct {
	baseEvent
	ItemID      string // Work item identifier
	FailedSteps []int  // Sequence indices of the microtasks that failed
	Reason      string // Human-readable failure summary
}

// NewItemFailedEvent creates an ItemFailedEvent.
func NewItemFailedEvent(itemID string, failedSteps []int, reason string) ItemFailedEvent {
	return ItemFailedEvent{
		baseEvent:   newBaseEvent("item.failed"),
		ItemID:      itemID,
		FailedSteps: failedSteps,
		Reason:      reason,
	}
}

// ItemCancelledEvent is emitted when a parent item is cancelled and its
// remaining microtasks are being torn down.
type ItemCancelledEvent struct {
	baseEvent
	ItemID string // Work item identifier
}

// NewItemCancelledEvent creates an ItemCancelledEvent.
func NewItemCancelledEvent(itemID string) ItemCancelledEvent {
	return ItemCancelledEvent{
		baseEvent: newBaseEvent("item.cancelled"),
		ItemID:    itemID,
	}
}

// -----------------------------------------------------------------------------
// MicroTask Events
// -----------------------------------------------------------------------------

// MicroTaskAssignedEvent is emitted when a microtask is assigned to a worker.
type MicroTaskAssignedEvent struct {
	baseEvent
	MicroTaskID string // Microtask identifier
	ParentID    string // Parent work item identifier
	WorkerID    string // Worker that received the assignment
}

// NewMicroTaskAssignedEvent creates a MicroTaskAssignedEvent.
func NewMicroTaskAssignedEvent(microTaskID, parentID, workerID string) MicroTaskAssignedEvent {
	return MicroTaskAssignedEvent{
		baseEvent:   newBaseEvent("microtask.assigned"),
		MicroTaskID: microTaskID,
		ParentID:    parentID,
		WorkerID:    workerID,
	}
}

// MicroTaskCompletedEvent is emitted when a microtask reaches a terminal state.
type MicroTaskCompletedEvent struct {
	baseEvent
	MicroTaskID string // Microtask identifier
	ParentID    string // Parent work item identifier
	WorkerID    string // Worker that executed the microtask
	Success     bool   // Whether execution succeeded
}

// NewMicroTaskCompletedEvent creates a MicroTaskCompletedEvent.
func NewMicroTaskCompletedEvent(microTaskID, parentID, workerID string, success bool) MicroTaskCompletedEvent {
	return MicroTaskCompletedEvent{
		baseEvent:   newBaseEvent("microtask.completed"),
		MicroTaskID: microTaskID,
		ParentID:    parentID,
		WorkerID:    workerID,
		Success:     success,
	}
}

// MicroTaskRequeuedEvent is emitted when a timed-out microtask is returned
// to the pending state for one retry.
type MicroTaskRequeuedEvent struct {
	baseEvent
	MicroTaskID string // Microtask identifier
	ParentID    string // Parent work item identifier
	Reason      string // Why the microtask was requeued (e.g., "timeout")
}

// NewMicroTaskRequeuedEvent creates a MicroTaskRequeuedEvent.
func NewMicroTaskRequeuedEvent(microTaskID, parentID, reason string) MicroTaskRequeuedEvent {
	return MicroTaskRequeuedEvent{
		baseEvent:   newBaseEvent("microtask.requeued"),
		MicroTaskID: microTaskID,
		ParentID:    parentID,
		Reason:      reason,
	}
}

// -----------------------------------------------------------------------------
// Queue Events
// -----------------------------------------------------------------------------

// QueueDepthChangedEvent is emitted when the number of active items changes.
type QueueDepthChangedEvent struct {
	baseEvent
	Active    int // Items currently admitted
	Pending   int // Candidates waiting for admission
	Completed int // Items completed this session
	Failed    int // Items failed this session
}

// NewQueueDepthChangedEvent creates a QueueDepthChangedEvent.
func NewQueueDepthChangedEvent(active, pending, completed, failed int) QueueDepthChangedEvent {
	return QueueDepthChangedEvent{
		baseEvent: newBaseEvent("queue.depth_changed"),
		Active:    active,
		Pending:   pending,
		Completed: completed,
		Failed:    failed,
	}
}

// -----------------------------------------------------------------------------
// Worker Events
// -----------------------------------------------------------------------------

// WorkerRegisteredEvent is emitted when a worker joins the pool.
type WorkerRegisteredEvent struct {
	baseEvent
	WorkerID     string   // Worker identifier
	Capabilities []string // Declared capability set
	Capacity     int      // Declared concurrent task capacity
}

// NewWorkerRegisteredEvent creates a WorkerRegisteredEvent.
func NewWorkerRegisteredEvent(workerID string, capabilities []string, capacity int) WorkerRegisteredEvent {
	return WorkerRegisteredEvent{
		baseEvent:    newBaseEvent("worker.registered"),
		WorkerID:     workerID,
		Capabilities: capabilities,
		Capacity:     capacity,
	}
}

// WorkerFailedEvent is emitted when a worker is marked failed after a
// missed heartbeat or too many consecutive errors.
type WorkerFailedEvent struct {
	baseEvent
	WorkerID string // Worker identifier
	Reason   string // Why the worker was failed
}

// NewWorkerFailedEvent creates a WorkerFailedEvent.
func NewWorkerFailedEvent(workerID, reason string) WorkerFailedEvent {
	return WorkerFailedEvent{
		baseEvent: newBaseEvent("worker.failed"),
		WorkerID:  workerID,
		Reason:    reason,
	}
}

// -----------------------------------------------------------------------------
// Conflict Events
// -----------------------------------------------------------------------------

// ConflictResolvedEvent is emitted when the conflict detector resolves a
// double claim in favor of the higher-priority holder.
type ConflictResolvedEvent struct {
	baseEvent
	ItemID string // Contested work item
	Winner string // Holder that kept the claim
	Loser  string // Holder whose claim was released and requeued
}

// NewConflictResolvedEvent creates a ConflictResolvedEvent.
func NewConflictResolvedEvent(itemID, winner, loser string) ConflictResolvedEvent {
	return ConflictResolvedEvent{
		baseEvent: newBaseEvent("conflict.resolved"),
		ItemID:    itemID,
		Winner:    winner,
		Loser:     loser,
	}
}

// -----------------------------------------------------------------------------
// Cache Events
// -----------------------------------------------------------------------------

// CacheHitEvent is emitted when a breakdown is served from the cache.
type CacheHitEvent struct {
	baseEvent
	Key string // Content hash that was found
}

// NewCacheHitEvent creates a CacheHitEvent.
func NewCacheHitEvent(key string) CacheHitEvent {
	return CacheHitEvent{
		baseEvent: newBaseEvent("cache.hit"),
		Key:       key,
	}
}

// CacheMissEvent is emitted when a breakdown had to be computed.
type CacheMissEvent struct {
	baseEvent
	Key string // Content hash that was absent
}

// NewCacheMissEvent creates a CacheMissEvent.
func NewCacheMissEvent(key string) CacheMissEvent {
	return CacheMissEvent{
		baseEvent: newBaseEvent("cache.miss"),
		Key:       key,
	}
}

// -----------------------------------------------------------------------------
// Phase Events
// -----------------------------------------------------------------------------

// PhaseChangedEvent is emitted when the processor transitions between phases.
type PhaseChangedEvent struct {
	baseEvent
	From string // Previous phase
	To   string // New phase
}

// NewPhaseChangedEvent creates a PhaseChangedEvent.
func NewPhaseChangedEvent(from, to string) PhaseChangedEvent {
	return PhaseChangedEvent{
		baseEvent: newBaseEvent("phase.changed"),
		From:      from,
		To:        to,
	}
}
