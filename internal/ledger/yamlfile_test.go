package ledger

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hivelab/hive/internal/errors"
	"github.com/hivelab/hive/internal/task"
)

func testItem(id string, priority task.Priority, dur time.Duration) task.WorkItem {
	return task.WorkItem{
		ID:                id,
		Title:             "item " + id,
		Description:       "work for " + id,
		Priority:          priority,
		EstimatedDuration: dur,
		Status:            task.ItemPending,
		CreatedAt:         time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

func newTestAdapter(t *testing.T) *FileAdapter {
	t.Helper()
	return NewFileAdapter(filepath.Join(t.TempDir(), "ledger.yaml"))
}

func TestMissingFileIsEmptyLedger(t *testing.T) {
	a := newTestAdapter(t)

	items, err := a.ListPending(context.Background())
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected empty ledger, got %d items", len(items))
	}
}

func TestAddAndListRoundTrip(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	want := testItem("item-1", task.PriorityHigh, 45*time.Minute)
	want.RequiredCapabilities = []string{"api.rest"}
	if err := a.Add(ctx, want); err != nil {
		t.Fatalf("Add: %v", err)
	}

	items, err := a.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	got := items[0]
	if got.ID != want.ID || got.Title != want.Title {
		t.Errorf("identity fields lost: %+v", got)
	}
	if got.Priority != task.PriorityHigh {
		t.Errorf("priority = %v, want HIGH", got.Priority)
	}
	if got.EstimatedDuration != 45*time.Minute {
		t.Errorf("duration = %v, want 45m", got.EstimatedDuration)
	}
	if len(got.RequiredCapabilities) != 1 || got.RequiredCapabilities[0] != "api.rest" {
		t.Errorf("capabilities = %v", got.RequiredCapabilities)
	}
}

func TestStatusTransitionsLeaveListPending(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	for _, id := range []string{"item-1", "item-2", "item-3"} {
		if err := a.Add(ctx, testItem(id, task.PriorityMedium, 20*time.Minute)); err != nil {
			t.Fatalf("Add %s: %v", id, err)
		}
	}

	if err := a.MarkInProgress(ctx, "item-1"); err != nil {
		t.Fatalf("MarkInProgress: %v", err)
	}
	if err := a.MarkCompleted(ctx, "item-2", "3 microtasks completed"); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	if err := a.MarkFailed(ctx, "item-3", "failed steps 1 of 2"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	pending, err := a.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("expected no pending items, got %v", pending)
	}

	// MarkPending brings an in-progress item back into the scan.
	if err := a.MarkPending(ctx, "item-1"); err != nil {
		t.Fatalf("MarkPending: %v", err)
	}
	pending, err = a.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "item-1" {
		t.Errorf("expected item-1 pending again, got %v", pending)
	}
}

func TestUpdateUnknownItem(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	err := a.MarkCompleted(ctx, "item-missing", "done")
	if !errors.Is(err, errors.ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
	var ae *errors.AdapterError
	if !errors.As(err, &ae) || ae.Op != "mark completed" {
		t.Errorf("expected AdapterError for mark completed, got %v", err)
	}
}

func TestMalformedFileIsUnreadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.yaml")
	if err := os.WriteFile(path, []byte("items: [unterminated"), 0644); err != nil {
		t.Fatal(err)
	}

	a := NewFileAdapter(path)
	_, err := a.ListPending(context.Background())
	if !errors.Is(err, errors.ErrLedgerUnreadable) {
		t.Fatalf("expected ErrLedgerUnreadable, got %v", err)
	}
}

func TestListSkipsBadRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.yaml")
	content := `items:
  - id: item-1
    title: good
    estimated_duration: 30m
  - title: no id
  - id: item-2
    title: bad duration
    estimated_duration: soon
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	a := NewFileAdapter(path)
	items, err := a.ListPending(context.Background())
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(items) != 1 || items[0].ID != "item-1" {
		t.Errorf("expected only the well-formed record, got %+v", items)
	}
}

func TestNotesPersistedHumanReadable(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	if err := a.Add(ctx, testItem("item-1", task.PriorityCritical, 90*time.Minute)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := a.MarkFailed(ctx, "item-1", "failed steps 0, 2 of 4"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	data, err := os.ReadFile(a.Path())
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"CRITICAL", "1h30m0s", "failed steps 0, 2 of 4", "failed"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("ledger file missing %q:\n%s", want, data)
		}
	}
}

func TestContextCancellationShortCircuits(t *testing.T) {
	a := newTestAdapter(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := a.ListPending(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("ListPending: expected context.Canceled, got %v", err)
	}
	if err := a.MarkInProgress(ctx, "item-1"); !errors.Is(err, context.Canceled) {
		t.Errorf("MarkInProgress: expected context.Canceled, got %v", err)
	}
}
