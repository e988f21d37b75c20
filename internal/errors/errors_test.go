package errors

import (
	"fmt"
	"testing"
	"time"
)

func TestTypedErrorsUnwrapToSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"conflict wraps capacity", NewConflictError("worker-1", "mt-1", ErrCapacityExceeded), ErrCapacityExceeded},
		{"conflict wraps already assigned", NewConflictError("worker-1", "mt-1", ErrAlreadyAssigned), ErrAlreadyAssigned},
		{"timeout wraps execution timeout", NewTimeoutError("mt-1", time.Minute), ErrExecutionTimeout},
		{"adapter wraps ledger write", NewAdapterError("mark completed", ErrLedgerWrite), ErrLedgerWrite},
		{"queue wraps not found", NewQueueError("item-1", ErrItemNotFound), ErrItemNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !Is(tt.err, tt.sentinel) {
				t.Errorf("Is(%v, %v) = false", tt.err, tt.sentinel)
			}
		})
	}
}

func TestAsExtractsTypedErrors(t *testing.T) {
	wrapped := fmt.Errorf("cycle failed: %w", NewConflictError("worker-1", "mt-7", ErrCapacityExceeded))

	var conflict *ConflictError
	if !As(wrapped, &conflict) {
		t.Fatal("As should find the ConflictError through wrapping")
	}
	if conflict.WorkerID != "worker-1" || conflict.MicroTaskID != "mt-7" {
		t.Errorf("unexpected fields: %+v", conflict)
	}

	var timeout *TimeoutError
	if As(wrapped, &timeout) {
		t.Error("As should not match a different type")
	}
}

func TestIsConflict(t *testing.T) {
	if !IsConflict(NewConflictError("worker-1", "mt-1", ErrCapacityExceeded)) {
		t.Error("ConflictError should classify as conflict")
	}
	if IsConflict(NewTimeoutError("mt-1", time.Second)) {
		t.Error("TimeoutError should not classify as conflict")
	}
	if IsConflict(nil) {
		t.Error("nil should not classify as conflict")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"conflict", NewConflictError("worker-1", "mt-1", ErrCapacityExceeded), true},
		{"timeout", NewTimeoutError("mt-1", time.Second), true},
		{"adapter write", NewAdapterError("mark failed", ErrLedgerWrite), true},
		{"queue", NewQueueError("item-1", ErrItemNotFound), false},
		{"bare execution timeout", ErrExecutionTimeout, true},
		{"bare ledger write", ErrLedgerWrite, true},
		{"unknown", New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsFatal(t *testing.T) {
	if !IsFatal(ErrLedgerUnreadable) {
		t.Error("ledger unreadable should be fatal")
	}
	if !IsFatal(fmt.Errorf("scan: %w", ErrLedgerUnreadable)) {
		t.Error("wrapped ledger unreadable should be fatal")
	}
	if IsFatal(ErrLedgerWrite) {
		t.Error("ledger write should not be fatal")
	}
	if IsFatal(NewTimeoutError("mt-1", time.Second)) {
		t.Error("timeout should not be fatal")
	}
}

func TestSeverityOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Severity
	}{
		{"admission wait is info", ErrAdmissionWait, SeverityInfo},
		{"conflict is warning", NewConflictError("worker-1", "mt-1", ErrCapacityExceeded), SeverityWarning},
		{"adapter is warning", NewAdapterError("mark completed", ErrLedgerWrite), SeverityWarning},
		{"timeout is error", NewTimeoutError("mt-1", time.Second), SeverityError},
		{"queue is error", NewQueueError("item-1", ErrItemNotFound), SeverityError},
		{"ledger unreadable is critical", ErrLedgerUnreadable, SeverityCritical},
		{"unknown is error", New("boom"), SeverityError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SeverityOf(tt.err); got != tt.want {
				t.Errorf("SeverityOf(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}

func TestErrorMessageIncludesCause(t *testing.T) {
	err := NewConflictError("worker-3", "mt-7", ErrCapacityExceeded)
	want := "assignment conflict on worker worker-3: worker capacity exceeded"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestSeverityString(t *testing.T) {
	tests := []struct {
		severity Severity
		want     string
	}{
		{SeverityInfo, "info"},
		{SeverityWarning, "warning"},
		{SeverityError, "error"},
		{SeverityCritical, "critical"},
		{Severity(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.severity.String(); got != tt.want {
			t.Errorf("Severity(%d).String() = %q, want %q", tt.severity, got, tt.want)
		}
	}
}
