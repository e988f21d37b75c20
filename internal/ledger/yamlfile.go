package ledger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hivelab/hive/internal/errors"
	"github.com/hivelab/hive/internal/logging"
	"github.com/hivelab/hive/internal/task"
)

// FileOption configures a FileAdapter.
type FileOption func(*FileAdapter)

// WithAdapterLogger sets the logger. Defaults to a no-op logger.
func WithAdapterLogger(logger *logging.Logger) FileOption {
	return func(a *FileAdapter) { a.logger = logger }
}

// FileAdapter is the reference Adapter backed by a single YAML file.
// The file is the interchange format between the engine and whatever
// edits the ledger; records use human-editable priority names and
// duration strings rather than the engine's internal encodings.
//
// Writes are atomic: the full document is rendered to a temp file in
// the same directory and renamed over the original, so a concurrent
// reader never observes a partial document.
type FileAdapter struct {
	path   string
	mu     sync.Mutex
	logger *logging.Logger
}

// NewFileAdapter creates a FileAdapter over the YAML file at path.
// The file does not need to exist yet; a missing file is an empty ledger.
func NewFileAdapter(path string, opts ...FileOption) *FileAdapter {
	a := &FileAdapter{
		path:   path,
		logger: logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Path returns the ledger file path.
func (a *FileAdapter) Path() string {
	return a.path
}

// record is the on-disk shape of a work item. Priorities are names
// ("HIGH") and durations are strings ("45m") so the file stays
// hand-editable.
type record struct {
	ID                   string    `yaml:"id"`
	Title                string    `yaml:"title"`
	Description          string    `yaml:"description,omitempty"`
	Priority             string    `yaml:"priority,omitempty"`
	EstimatedDuration    string    `yaml:"estimated_duration,omitempty"`
	RequiredCapabilities []string  `yaml:"required_capabilities,omitempty"`
	Status               string    `yaml:"status,omitempty"`
	CreatedAt            time.Time `yaml:"created_at,omitempty"`
	Notes                string    `yaml:"notes,omitempty"`
}

type document struct {
	Items []record `yaml:"items"`
}

// ListPending returns every item whose status is pending. Records
// without an ID are skipped with a warning. A missing file is an empty
// ledger; an unparseable file is the one fatal adapter condition.
func (a *FileAdapter) ListPending(ctx context.Context) ([]task.WorkItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	doc, err := a.load()
	if err != nil {
		return nil, err
	}

	var items []task.WorkItem
	for _, r := range doc.Items {
		if r.ID == "" {
			a.logger.Warn("skipping ledger record without id", "title", r.Title)
			continue
		}
		item, err := r.toWorkItem()
		if err != nil {
			a.logger.Warn("skipping malformed ledger record", "record_id", r.ID, "error", err)
			continue
		}
		if item.Status != task.ItemPending {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// MarkInProgress records that the item was admitted.
func (a *FileAdapter) MarkInProgress(ctx context.Context, itemID string) error {
	return a.updateStatus(ctx, "mark in_progress", itemID, task.ItemInProgress, "")
}

// MarkPending returns the item to the pending state for readmission.
func (a *FileAdapter) MarkPending(ctx context.Context, itemID string) error {
	return a.updateStatus(ctx, "mark pending", itemID, task.ItemPending, "")
}

// MarkCompleted records success, appending notes to the item's record.
func (a *FileAdapter) MarkCompleted(ctx context.Context, itemID string, notes string) error {
	return a.updateStatus(ctx, "mark completed", itemID, task.ItemCompleted, notes)
}

// MarkFailed records a permanent failure with the given reason.
func (a *FileAdapter) MarkFailed(ctx context.Context, itemID string, reason string) error {
	return a.updateStatus(ctx, "mark failed", itemID, task.ItemFailed, reason)
}

// Add appends a work item to the ledger. Used by tests and by the
// simulated run mode to seed work.
func (a *FileAdapter) Add(ctx context.Context, item task.WorkItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	doc, err := a.load()
	if err != nil {
		return errors.NewAdapterError("add", err)
	}
	doc.Items = append(doc.Items, fromWorkItem(item))
	if err := a.store(doc); err != nil {
		return errors.NewAdapterError("add", err)
	}
	return nil
}

func (a *FileAdapter) updateStatus(ctx context.Context, op, itemID string, status task.ItemStatus, notes string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	doc, err := a.load()
	if err != nil {
		return errors.NewAdapterError(op, err)
	}

	found := false
	for i := range doc.Items {
		if doc.Items[i].ID != itemID {
			continue
		}
		doc.Items[i].Status = status.String()
		if notes != "" {
			doc.Items[i].Notes = notes
		}
		found = true
		break
	}
	if !found {
		return errors.NewAdapterError(op, errors.ErrItemNotFound)
	}

	if err := a.store(doc); err != nil {
		return errors.NewAdapterError(op, err)
	}

	a.logger.WithItem(itemID).Debug("ledger status written", "status", status.String())
	return nil
}

// load reads the document. Caller must hold a.mu.
func (a *FileAdapter) load() (*document, error) {
	data, err := os.ReadFile(a.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &document{}, nil
		}
		return nil, fmt.Errorf("%w: %v", errors.ErrLedgerUnreadable, err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrLedgerUnreadable, err)
	}
	return &doc, nil
}

// store renders the document to a temp file and renames it into place.
// Caller must hold a.mu.
func (a *FileAdapter) store(doc *document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrLedgerWrite, err)
	}

	dir := filepath.Dir(a.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrLedgerWrite, err)
	}

	tmp, err := os.CreateTemp(dir, ".ledger-*.yaml")
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrLedgerWrite, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", errors.ErrLedgerWrite, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", errors.ErrLedgerWrite, err)
	}
	if err := os.Rename(tmpPath, a.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", errors.ErrLedgerWrite, err)
	}
	return nil
}

func (r record) toWorkItem() (task.WorkItem, error) {
	item := task.WorkItem{
		ID:                   r.ID,
		Title:                r.Title,
		Description:          r.Description,
		Priority:             task.ParsePriority(r.Priority),
		RequiredCapabilities: r.RequiredCapabilities,
		Status:               task.ItemPending,
		CreatedAt:            r.CreatedAt,
		SourceLocator:        r.ID,
		Notes:                r.Notes,
	}
	if r.Status != "" {
		item.Status = task.ItemStatus(r.Status)
	}
	if r.EstimatedDuration != "" {
		d, err := time.ParseDuration(r.EstimatedDuration)
		if err != nil {
			return task.WorkItem{}, fmt.Errorf("bad estimated_duration %q: %w", r.EstimatedDuration, err)
		}
		item.EstimatedDuration = d
	}
	return item, nil
}

func fromWorkItem(item task.WorkItem) record {
	r := record{
		ID:                   item.ID,
		Title:                item.Title,
		Description:          item.Description,
		Priority:             item.Priority.String(),
		RequiredCapabilities: item.RequiredCapabilities,
		Status:               item.Status.String(),
		CreatedAt:            item.CreatedAt,
		Notes:                item.Notes,
	}
	if item.EstimatedDuration > 0 {
		r.EstimatedDuration = item.EstimatedDuration.String()
	}
	if r.Status == "" {
		r.Status = task.ItemPending.String()
	}
	return r
}
