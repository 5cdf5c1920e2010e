package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
	"github.com/custodia-labs/groundwork/internal/logger"
)

// Ensure Watcher implements the interface.
var _ driven.SourceWatcher = (*Watcher)(nil)

// DefaultDebounce is how long the watcher waits for a burst of edits to
// settle before reporting it.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reports changed source paths under a Source's root.
type Watcher struct {
	source   *Source
	debounce time.Duration
}

// NewWatcher creates a watcher for source. A zero debounce uses
// DefaultDebounce.
func NewWatcher(source *Source, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{source: source, debounce: debounce}
}

// Watch blocks until ctx is cancelled, calling onChange with sorted,
// de-duplicated source paths once edits have been quiet for the debounce
// interval. Deleted and renamed-away paths are reported like any other.
// onChange runs on the watch goroutine; events arriving meanwhile are
// queued by fsnotify.
func (w *Watcher) Watch(ctx context.Context, onChange func(paths []string)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := w.addTree(fw, w.source.Root(), nil); err != nil {
		return err
	}
	logger.Info("Watching %s", w.source.Root())

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					// Files written before the watch was added produce no events.
					if err := w.addTree(fw, event.Name, pending); err != nil {
						logger.Warn("Watch %s: %v", event.Name, err)
					}
					timer.Reset(w.debounce)
					continue
				}
			}
			if rel, ok := w.handleFsEvent(event); ok {
				pending[rel] = struct{}{}
				timer.Reset(w.debounce)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			pending = make(map[string]struct{})
			logger.Debug("Detected %d changed files", len(paths))
			onChange(paths)
		}
	}
}

// handleFsEvent maps an event to a source path. Chmod-only events,
// directories, hidden and unsupported files are ignored.
func (w *Watcher) handleFsEvent(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return "", false
	}

	rel, err := RelativePath(w.source.Root(), event.Name)
	if err != nil || !w.source.Supports(rel) {
		return "", false
	}
	if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
		return "", false
	}
	return rel, true
}

// addTree watches dir and every non-hidden directory below it. When
// found is non-nil, supported files already present are added to it.
func (w *Watcher) addTree(fw *fsnotify.Watcher, dir string, found map[string]struct{}) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			if found != nil {
				if rel, err := RelativePath(w.source.Root(), p); err == nil && w.source.Supports(rel) {
					found[rel] = struct{}{}
				}
			}
			return nil
		}
		if p != w.source.Root() && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := fw.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		return nil
	})
}
