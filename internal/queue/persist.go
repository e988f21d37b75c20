package queue

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hivelab/hive/internal/task"
)

const stateFileName = "queue-state.json"

// persistedState is the serializable representation of the manager.
type persistedState struct {
	Active       map[string]*task.WorkItem `json:"active"`
	MinThreshold int                       `json:"min_threshold"`
	MaxThreshold int                       `json:"max_threshold"`
	BatchCap     int                       `json:"batch_cap"`
	Completed    int                       `json:"completed"`
	Failed       int                       `json:"failed"`
}

// SaveState writes the manager state to a JSON file in the given directory.
// The write is atomic: data is written to a temporary file first, then
// renamed into place. A file lock is held during the operation for
// cross-process safety.
func (m *Manager) SaveState(dir string) error {
	fl := NewFileLock(dir)
	if err := fl.Lock(); err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	defer func() { _ = fl.Unlock() }()

	m.mu.Lock()
	data, err := json.MarshalIndent(persistedState{
		Active:       m.active,
		MinThreshold: m.minThreshold,
		MaxThreshold: m.maxThreshold,
		BatchCap:     m.batchCap,
		Completed:    m.completed,
		Failed:       m.failed,
	}, "", "  ")
	m.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marshal queue state: %w", err)
	}

	target := filepath.Join(dir, stateFileName)
	tmp := target + ".tmp"

	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp) // best-effort cleanup
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}

// LoadState restores a Manager from a previously saved state file in the
// given directory. A file lock is held during the read for cross-process
// safety. Options passed here override the persisted thresholds.
func LoadState(dir string, opts ...Option) (*Manager, error) {
	fl := NewFileLock(dir)
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	defer func() { _ = fl.Unlock() }()

	target := filepath.Join(dir, stateFileName)

	data, err := os.ReadFile(target)
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("unmarshal queue state: %w", err)
	}

	if state.Active == nil {
		state.Active = make(map[string]*task.WorkItem)
	}

	m := NewManager(
		WithMinThreshold(state.MinThreshold),
		WithMaxThreshold(state.MaxThreshold),
		WithBatchCap(state.BatchCap),
	)
	m.active = state.Active
	m.completed = state.Completed
	m.failed = state.Failed

	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// ReadStateFile reads a queue state snapshot without constructing a
// Manager. Used by the status command to inspect a running engine's
// state from another process.
func ReadStateFile(dir string) (*State, error) {
	fl := NewFileLock(dir)
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	defer func() { _ = fl.Unlock() }()

	data, err := os.ReadFile(filepath.Join(dir, stateFileName))
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("unmarshal queue state: %w", err)
	}

	return &State{
		MinThreshold: state.MinThreshold,
		MaxThreshold: state.MaxThreshold,
		ActiveCount:  len(state.Active),
		Completed:    state.Completed,
		Failed:       state.Failed,
	}, nil
}
