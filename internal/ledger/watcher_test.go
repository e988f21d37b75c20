package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hivelab/hive/internal/task"
)

func TestWatcherSignalsOnLedgerChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.yaml")
	if err := os.WriteFile(path, []byte("items: []\n"), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(path, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()
	w.Start()

	// An atomic rename-over, the way the adapter writes.
	a := NewFileAdapter(path)
	if err := a.Add(context.Background(), testItem("item-1", task.PriorityLow, 10*time.Minute)); err != nil {
		t.Fatalf("Add: %v", err)
	}

	select {
	case <-w.Changes():
	case <-time.After(2 * time.Second):
		t.Fatal("no change signal after ledger write")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.yaml")
	if err := os.WriteFile(path, []byte("items: []\n"), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(path, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()
	w.Start()

	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("noise"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-w.Changes():
		t.Fatal("unrelated file should not signal")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.yaml")
	w, err := NewWatcher(path, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	w.Start()
	w.Stop()
	w.Stop()
}
