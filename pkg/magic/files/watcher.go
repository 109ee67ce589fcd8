package files

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounce is how long a file must be quiet before it runs.
const debounce = 100 * time.Millisecond

// Watcher re-executes startup files when they change.
type Watcher struct {
	watcher *fsnotify.Watcher
	folder  *Folder

	mu      sync.Mutex
	pending map[string]*time.Timer
	runs    uint64 // Incremented on each successful re-execution
}

// NewWatcher creates a watcher for the folder. Call Start to begin watching.
func (f *Folder) NewWatcher() (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher: fsWatcher,
		folder:  f,
		pending: make(map[string]*time.Timer),
	}, nil
}

// Watch runs the folder's files again whenever they change, until ctx is done.
func (f *Folder) Watch(ctx context.Context) error {
	w, err := f.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

// Start adds the folder's directories and begins processing events.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watchDirRecursive(w.folder.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.folder.dir, err)
	}
	w.logInfo("watching startup folder: %s", w.folder.dir)

	go w.eventLoop(ctx)
	return nil
}

// watchDirRecursive adds a directory and its subdirectories to the watch list
func (w *Watcher) watchDirRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if info.IsDir() {
			if strings.HasPrefix(info.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return w.watcher.Add(path)
		}
		return nil
	})
}

// eventLoop processes file system events
func (w *Watcher) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.watchDirRecursive(event.Name); err != nil {
						w.logError("failed to watch %s: %v", event.Name, err)
					}
					continue
				}
			}
			if !isHyperlambda(event.Name) {
				continue
			}

			w.schedule(ctx, event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logError("watcher error: %v", err)
		}
	}
}

// schedule runs path once it has been quiet for the debounce period.
// Editors often write a file several times in a row.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(debounce, func() {
		w.mu.Lock()
		if w.pending[path] == timer {
			delete(w.pending, path)
		}
		w.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		w.handleFileChange(ctx, path)
	})
	w.pending[path] = timer
}

// handleFileChange re-executes a changed file
func (w *Watcher) handleFileChange(ctx context.Context, path string) {
	w.logInfo("changed: %s", w.folder.rel(path))
	if _, err := ExecuteFile(ctx, w.folder.rt, path); err != nil {
		w.logError("%v", err)
		return
	}
	w.mu.Lock()
	w.runs++
	w.mu.Unlock()
}

// Runs returns how many times changed files have executed successfully.
func (w *Watcher) Runs() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.runs
}

// Close stops the watcher and drops pending runs
func (w *Watcher) Close() error {
	w.mu.Lock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()
	return w.watcher.Close()
}

func (w *Watcher) logInfo(format string, args ...any) {
	fmt.Fprintf(w.folder.stdout, "[WATCH] "+format+"\n", args...)
}

func (w *Watcher) logError(format string, args ...any) {
	fmt.Fprintf(w.folder.stderr, "[WATCH ERROR] "+format+"\n", args...)
}
