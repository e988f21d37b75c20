// Package errors provides centralized error definitions and error handling
// utilities for the hive engine. It defines domain-specific errors, semantic
// error types, error constructors with context wrapping, and classification
// helpers.
//
// # Error Types
//
// Domain-specific errors represent errors from specific subsystems:
//   - QueueError: errors related to admission and release
//   - AdapterError: errors related to ledger reads and writes
//
// Semantic errors represent common error conditions:
//   - ConflictError: two simultaneous claims over the same worker or item
//   - TimeoutError: a microtask exceeded its execution budget
//
// # Usage
//
// Creating errors:
//
//	err := errors.NewConflictError("worker-3", "mt-7", errors.ErrCapacityExceeded)
//	err := errors.NewAdapterError("mark completed", baseErr)
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrAdmissionWait) { ... }
//
//	var conflict *errors.ConflictError
//	if errors.As(err, &conflict) { ... }
//
//	if errors.IsRetryable(err) { ... }
//
// # Classification
//
// Errors carry a severity and a retryable flag. Item-local errors are never
// fatal to the orchestration loop; only a persistent adapter read failure
// surfaces to the operator.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityInfo is for conditions that are part of normal operation.
	SeverityInfo Severity = iota
	// SeverityWarning is for conditions that might indicate a problem
	// but do not stop processing.
	SeverityWarning
	// SeverityError is for errors that fail an individual item or task.
	SeverityError
	// SeverityCritical is for errors that halt the orchestration loop.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Queue-related sentinel errors
var (
	// ErrAdmissionWait indicates the queue is deliberately waiting for more
	// candidates before admitting a batch. A normal wait state, not a failure.
	ErrAdmissionWait = New("admission thresholds unmet")
	// ErrItemNotFound indicates that a work item could not be found.
	ErrItemNotFound = New("work item not found")
	// ErrInvalidTransition indicates an illegal status transition.
	ErrInvalidTransition = New("invalid status transition")
	// ErrQueueFull indicates active items already reached the maximum threshold.
	ErrQueueFull = New("queue at maximum threshold")
)

// Coordinator-related sentinel errors
var (
	// ErrWorkerNotFound indicates that a worker could not be found.
	ErrWorkerNotFound = New("worker not found")
	// ErrWorkerFailed indicates the worker is marked failed and cannot
	// receive assignments.
	ErrWorkerFailed = New("worker is marked failed")
	// ErrNoCapableWorker indicates no idle worker covers the required
	// capabilities.
	ErrNoCapableWorker = New("no capable worker available")
	// ErrCapacityExceeded indicates an assignment would push a worker past
	// its declared capacity.
	ErrCapacityExceeded = New("worker capacity exceeded")
	// ErrAlreadyAssigned indicates the microtask is already held by a worker.
	ErrAlreadyAssigned = New("microtask already assigned")
)

// Processor-related sentinel errors
var (
	// ErrExecutionTimeout indicates a microtask exceeded its time budget.
	ErrExecutionTimeout = New("microtask execution timed out")
	// ErrItemCancelled indicates the parent work item was cancelled.
	ErrItemCancelled = New("work item cancelled")
	// ErrProcessorStopped indicates the orchestration loop has shut down.
	ErrProcessorStopped = New("processor stopped")
)

// Adapter-related sentinel errors
var (
	// ErrLedgerUnreadable indicates the ledger cannot be read at all.
	// This is the only error fatal to the orchestration loop.
	ErrLedgerUnreadable = New("ledger unreadable")
	// ErrLedgerWrite indicates a ledger status update failed.
	ErrLedgerWrite = New("ledger write failed")
)

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message   string
	cause     error
	severity  Severity
	retryable bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// -----------------------------------------------------------------------------
// Conflict Errors
// -----------------------------------------------------------------------------

// ConflictError indicates two simultaneous claims over the same worker or
// work item. Conflicts are auto-resolved by the coordinator and logged, so
// they are warnings rather than failures.
type ConflictError struct {
	baseError
	WorkerID    string
	MicroTaskID string
}

// NewConflictError creates a ConflictError for the given worker and microtask.
func NewConflictError(workerID, microTaskID string, cause error) *ConflictError {
	return &ConflictError{
		baseError: baseError{
			message:   fmt.Sprintf("assignment conflict on worker %s", workerID),
			cause:     cause,
			severity:  SeverityWarning,
			retryable: true,
		},
		WorkerID:    workerID,
		MicroTaskID: microTaskID,
	}
}

// -----------------------------------------------------------------------------
// Timeout Errors
// -----------------------------------------------------------------------------

// TimeoutError indicates a microtask exceeded its per-task execution budget.
// The first timeout requeues the microtask; the second fails it.
type TimeoutError struct {
	baseError
	MicroTaskID string
	Budget      time.Duration
}

// NewTimeoutError creates a TimeoutError for the given microtask.
func NewTimeoutError(microTaskID string, budget time.Duration) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{
			message:   fmt.Sprintf("microtask %s exceeded budget %s", microTaskID, budget),
			cause:     ErrExecutionTimeout,
			severity:  SeverityError,
			retryable: true,
		},
		MicroTaskID: microTaskID,
		Budget:      budget,
	}
}

// -----------------------------------------------------------------------------
// Adapter Errors
// -----------------------------------------------------------------------------

// AdapterError indicates a ledger operation failed. Writes are retried with
// backoff and then logged as warnings; in-memory state stays authoritative.
type AdapterError struct {
	baseError
	Op string
}

// NewAdapterError creates an AdapterError for the given ledger operation.
func NewAdapterError(op string, cause error) *AdapterError {
	return &AdapterError{
		baseError: baseError{
			message:   fmt.Sprintf("ledger %s failed", op),
			cause:     cause,
			severity:  SeverityWarning,
			retryable: true,
		},
		Op: op,
	}
}

// -----------------------------------------------------------------------------
// Queue Errors
// -----------------------------------------------------------------------------

// QueueError indicates an admission or release operation failed.
type QueueError struct {
	baseError
	ItemID string
}

// NewQueueError creates a QueueError for the given item.
func NewQueueError(itemID string, cause error) *QueueError {
	return &QueueError{
		baseError: baseError{
			message:   fmt.Sprintf("queue operation on item %s failed", itemID),
			cause:     cause,
			severity:  SeverityError,
			retryable: false,
		},
		ItemID: itemID,
	}
}

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

// classifiable is implemented by all error types in this package.
type classifiable interface {
	Severity() Severity
	IsRetryable() bool
}

// IsRetryable returns true if the error is transient and the operation may
// succeed on retry. Unknown errors are treated as not retryable.
func IsRetryable(err error) bool {
	var c classifiable
	if errors.As(err, &c) {
		return c.IsRetryable()
	}
	return errors.Is(err, ErrExecutionTimeout) || errors.Is(err, ErrLedgerWrite)
}

// IsConflict returns true if the error is an assignment conflict.
func IsConflict(err error) bool {
	var conflict *ConflictError
	return errors.As(err, &conflict)
}

// IsFatal returns true for errors that must halt the orchestration loop.
// Only persistent adapter-level read failure qualifies.
func IsFatal(err error) bool {
	return errors.Is(err, ErrLedgerUnreadable)
}

// SeverityOf returns the severity of the error, defaulting to SeverityError
// for errors that do not carry a classification.
func SeverityOf(err error) Severity {
	var c classifiable
	if errors.As(err, &c) {
		return c.Severity()
	}
	if errors.Is(err, ErrAdmissionWait) {
		return SeverityInfo
	}
	if errors.Is(err, ErrLedgerUnreadable) {
		return SeverityCritical
	}
	return SeverityError
}
