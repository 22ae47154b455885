package intent

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// RuleWatcher reloads a keyword file into a Classifier whenever it changes on disk.
type RuleWatcher struct {
	classifier *Classifier
	watcher    *fsnotify.Watcher
	path       string

	mu       sync.RWMutex
	loadedAt time.Time
	// settle is how long to wait after an event so the writer can finish.
	settle time.Duration
}

// NewRuleWatcher loads path into classifier and starts watching its directory.
func NewRuleWatcher(path string, classifier *Classifier) (*RuleWatcher, error) {
	rw := &RuleWatcher{
		classifier: classifier,
		path:       filepath.Clean(path),
		settle:     100 * time.Millisecond,
	}
	if err := rw.Reload(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create file watcher")
	}
	// Watch the directory: editors often replace the file instead of writing it.
	if err := watcher.Add(filepath.Dir(rw.path)); err != nil {
		watcher.Close()
		return nil, errors.Wrap(err, "failed to watch keywords directory")
	}
	rw.watcher = watcher

	slog.Info("keyword file watcher initialized", "path", rw.path)
	return rw, nil
}

// Reload reads the keyword file and swaps the classifier's rules. On error
// the current rules stay in place.
func (rw *RuleWatcher) Reload() error {
	rules, err := LoadRules(rw.path)
	if err != nil {
		return err
	}
	rw.classifier.SetRules(rules)

	rw.mu.Lock()
	rw.loadedAt = time.Now()
	rw.mu.Unlock()
	slog.Info("keyword rules loaded", "path", rw.path)
	return nil
}

func (rw *RuleWatcher) Path() string {
	return rw.path
}

func (rw *RuleWatcher) LoadedAt() time.Time {
	rw.mu.RLock()
	defer rw.mu.RUnlock()
	return rw.loadedAt
}

// Watch processes file events until ctx is done or the watcher is closed.
func (rw *RuleWatcher) Watch(ctx context.Context) {
	slog.Info("keyword file watcher started")

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-rw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || filepath.Clean(event.Name) != rw.path {
				continue
			}

			time.Sleep(rw.settle)
			slog.Info("keyword file changed, reloading", "path", event.Name)
			if err := rw.Reload(); err != nil {
				slog.Error("failed to reload keyword file", "path", rw.path, "error", err)
			}

		case err, ok := <-rw.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("keyword file watcher error", "error", err)
		}
	}
}

func (rw *RuleWatcher) Close() error {
	if rw.watcher != nil {
		return rw.watcher.Close()
	}
	return nil
}
