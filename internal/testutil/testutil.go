// Package testutil provides testing utilities for hive tests.
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/hivelab/hive/internal/ledger"
	"github.com/hivelab/hive/internal/task"
)

// WorkItem builds a pending work item with sensible defaults for tests.
// The ID doubles as the title suffix so failures are easy to trace.
func WorkItem(id string, priority task.Priority, duration time.Duration) task.WorkItem {
	return task.WorkItem{
		ID:                "item-" + id,
		Title:             "test item " + id,
		Description:       "generated by testutil",
		Priority:          priority,
		EstimatedDuration: duration,
		Status:            task.ItemPending,
		CreatedAt:         time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// WorkItems builds n pending medium-priority items with distinct ages,
// oldest first.
func WorkItems(n int, duration time.Duration) []task.WorkItem {
	items := make([]task.WorkItem, n)
	for i := range items {
		items[i] = WorkItem(fmt.Sprintf("%02d", i+1), task.PriorityMedium, duration)
		items[i].CreatedAt = items[i].CreatedAt.Add(time.Duration(i) * time.Minute)
	}
	return items
}

// SeedLedger writes the items into a fresh YAML ledger file under a
// temp directory and returns the adapter over it.
func SeedLedger(t *testing.T, items []task.WorkItem) *ledger.FileAdapter {
	t.Helper()

	path := filepath.Join(t.TempDir(), "ledger.yaml")
	adapter := ledger.NewFileAdapter(path)
	for _, item := range items {
		if err := adapter.Add(context.Background(), item); err != nil {
			t.Fatalf("failed to seed ledger with %s: %v", item.ID, err)
		}
	}
	return adapter
}

// MicroTask builds a pending microtask for assignment tests.
func MicroTask(parentID string, index, minutes int, capabilities ...string) task.MicroTask {
	return task.MicroTask{
		ID:                   task.NewMicroTaskID(parentID, index),
		ParentID:             parentID,
		SequenceIndex:        index,
		Description:          fmt.Sprintf("Step %d", index+1),
		EstimatedMinutes:     minutes,
		Status:               task.MicroPending,
		RequiredCapabilities: capabilities,
	}
}
