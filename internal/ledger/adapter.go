package ledger

import (
	"context"

	"github.com/hivelab/hive/internal/task"
)

// Adapter abstracts the external task ledger. Implementations must be
// safe for concurrent use: the processor reads and writes from its loop
// while the status command may read at the same time.
//
// ListPending is the only call whose failure is fatal to the
// orchestration loop. Status writes are best-effort; callers retry them
// and fall back to in-memory state.
type Adapter interface {
	// ListPending returns every work item currently in the pending state.
	ListPending(ctx context.Context) ([]task.WorkItem, error)

	// MarkInProgress records that the item was admitted for processing.
	MarkInProgress(ctx context.Context, itemID string) error

	// MarkPending returns an in-progress item to the pending state so a
	// later scan picks it up again, such as after a crashed run released
	// its admissions.
	MarkPending(ctx context.Context, itemID string) error

	// MarkCompleted records that every microtask of the item succeeded.
	// Notes are free text appended to the item's record.
	MarkCompleted(ctx context.Context, itemID string, notes string) error

	// MarkFailed records a permanent failure with the given reason.
	MarkFailed(ctx context.Context, itemID string, reason string) error
}
