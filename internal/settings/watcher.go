package settings

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// reloadDebounce collapses the burst of events an atomic replace (write to a
// temporary file followed by a rename) produces into a single reload.
const reloadDebounce = 150 * time.Millisecond

// Watcher watches the settings file and invokes a callback when it changes on
// disk, so edits made outside the management API are picked up without a
// restart.
type Watcher struct {
	path     string
	callback func()

	watcher *fsnotify.Watcher

	reloadMu    sync.Mutex
	reloadTimer *time.Timer
}

// NewWatcher creates a watcher for the given settings file. The callback runs
// on the watcher goroutine after each debounced change.
func NewWatcher(path string, callback func()) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{path: path, callback: callback, watcher: fsWatcher}, nil
}

// Start begins watching until ctx is cancelled. The parent directory is
// watched rather than the file itself because renames replace the inode.
func (w *Watcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return err
	}
	log.Debugf("Watching settings file %s", w.path)

	go func() {
		defer func() { _ = w.watcher.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				w.handleEvent(event)
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				log.Warnf("Settings watcher error: %v", err)
			}
		}
	}()
	return nil
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !strings.EqualFold(filepath.Clean(event.Name), filepath.Clean(w.path)) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}
	w.reloadMu.Lock()
	defer w.reloadMu.Unlock()
	if w.reloadTimer != nil {
		w.reloadTimer.Stop()
	}
	w.reloadTimer = time.AfterFunc(reloadDebounce, func() {
		log.Infof("Settings file changed on disk, reloading: %s", w.path)
		w.callback()
	})
}
