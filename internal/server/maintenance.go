package server

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// maintenanceFile is the marker watched for in the data directory. Creating
// it makes the server refuse new completion runs; in-flight runs finish.
const maintenanceFile = "maintenance"

// MaintenanceWatcher watches the data directory for the maintenance marker.
type MaintenanceWatcher struct {
	dir string

	mu     sync.RWMutex
	active bool

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewMaintenanceWatcher creates a watcher over dir. A missing fsnotify
// backend is not fatal; Active falls back to a stat on every call.
func NewMaintenanceWatcher(dir string) (*MaintenanceWatcher, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	mw := &MaintenanceWatcher{
		dir:  dir,
		done: make(chan struct{}),
	}
	mw.refresh()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return mw, nil
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return mw, nil
	}
	mw.watcher = watcher

	go mw.watch()

	return mw, nil
}

func (mw *MaintenanceWatcher) watch() {
	for {
		select {
		case <-mw.done:
			return
		case event, ok := <-mw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != maintenanceFile {
				continue
			}
			switch {
			case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
				mw.set(true)
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				mw.set(false)
			}
		case <-mw.watcher.Errors:
			// Ignore errors, keep watching
		}
	}
}

func (mw *MaintenanceWatcher) set(active bool) {
	mw.mu.Lock()
	mw.active = active
	mw.mu.Unlock()
}

// refresh re-reads the marker from disk.
func (mw *MaintenanceWatcher) refresh() {
	_, err := os.Stat(filepath.Join(mw.dir, maintenanceFile))
	mw.set(err == nil)
}

// Active reports whether maintenance mode is on. Without a live watcher it
// stats the marker directly so the signal still works.
func (mw *MaintenanceWatcher) Active() bool {
	if mw.watcher == nil {
		mw.refresh()
	}
	mw.mu.RLock()
	defer mw.mu.RUnlock()
	return mw.active
}

// Close shuts down the watcher.
func (mw *MaintenanceWatcher) Close() {
	close(mw.done)
	if mw.watcher != nil {
		mw.watcher.Close()
	}
}
