package ledger

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hivelab/hive/internal/logging"
)

// watchDebounce coalesces the burst of events most editors emit for a
// single save.
const watchDebounce = 100 * time.Millisecond

// Watcher signals when the ledger file changes so the processor can
// rescan immediately instead of waiting for the next tick.
type Watcher struct {
	watcher *fsnotify.Watcher
	path    string
	changes chan struct{}
	logger  *logging.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewWatcher creates a Watcher for the ledger file at path. The parent
// directory is watched rather than the file itself because atomic
// rename-over replaces the watched inode.
func NewWatcher(path string, logger *logging.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}

	if logger == nil {
		logger = logging.NopLogger()
	}

	return &Watcher{
		watcher: fw,
		path:    filepath.Clean(path),
		changes: make(chan struct{}, 1),
		logger:  logger,
		stopCh:  make(chan struct{}),
	}, nil
}

// Changes returns the channel that receives a signal after the ledger
// file changes. The channel has a buffer of one; bursts collapse into a
// single pending signal.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Start begins watching in a background goroutine.
func (w *Watcher) Start() {
	go w.watchLoop()
}

// Stop ends watching and releases the underlying watcher.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		_ = w.watcher.Close()
	})
}

func (w *Watcher) watchLoop() {
	debounce := time.NewTimer(0)
	<-debounce.C

	pending := false

	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = true
			debounce.Reset(watchDebounce)

		case <-debounce.C:
			if !pending {
				continue
			}
			pending = false
			select {
			case w.changes <- struct{}{}:
			default:
			}
			w.logger.Debug("ledger file changed", "path", w.path)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("ledger watch error", "error", err)
		}
	}
}
