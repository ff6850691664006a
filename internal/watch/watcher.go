// Package watch detects changes to job files and script trees so that
// `zeromunge watch` can re-run the queue.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"

	"github.com/Iron-Ham/zeromunge/internal/logging"
)

// DefaultIgnore lists base-name patterns never treated as changes. They
// cover munge output, so a run does not trigger itself.
var DefaultIgnore = []string{
	"MUNGED",
	"_LVL_*",
	".git",
	".zeromunge.lock",
	"*.log",
	"*~",
	"*.tmp",
}

// Watcher reports batches of changed paths after a quiet period.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *logging.Logger

	mu     sync.Mutex
	files  map[string]bool // individually watched files
	trees  []string        // recursively watched roots
	ignore []glob.Glob

	stopOnce sync.Once
	stopCh   chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher) error

// WithIgnore replaces DefaultIgnore with patterns.
func WithIgnore(patterns []string) Option {
	return func(w *Watcher) error {
		w.ignore = nil
		for _, p := range patterns {
			g, err := glob.Compile(p)
			if err != nil {
				return fmt.Errorf("invalid ignore pattern %q: %w", p, err)
			}
			w.ignore = append(w.ignore, g)
		}
		return nil
	}
}

// WithLogger sets the logger used for watch errors.
func WithLogger(l *logging.Logger) Option {
	return func(w *Watcher) error {
		if l != nil {
			w.logger = l
		}
		return nil
	}
}

// New creates a Watcher that waits debounce after the last change before
// reporting a batch.
func New(debounce time.Duration, opts ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:  fw,
		debounce: debounce,
		logger:   logging.NopLogger(),
		files:    make(map[string]bool),
		stopCh:   make(chan struct{}),
	}
	opts = append([]Option{WithIgnore(DefaultIgnore)}, opts...)
	for _, opt := range opts {
		if err := opt(w); err != nil {
			_ = fw.Close()
			return nil, err
		}
	}
	return w, nil
}

// AddFile watches a single file. Its directory is watched so that editors
// that save by rename are still seen.
func (w *Watcher) AddFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(abs); err != nil {
		return fmt.Errorf("cannot watch %s: %w", path, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.files[abs] = true
	return w.watcher.Add(filepath.Dir(abs))
}

// AddTree watches root and every directory below it, skipping ignored
// names. Directories created later are picked up as they appear.
func (w *Watcher) AddTree(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("cannot watch %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("cannot watch %s: not a directory", root)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.trees = append(w.trees, abs)
	return w.watchDirRecursive(abs)
}

func (w *Watcher) watchDirRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors, continue walking
		}
		if path != root && w.ignored(path) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			if err := w.watcher.Add(path); err != nil {
				w.logger.Warn("cannot watch directory", "path", path, "error", err)
			}
		}
		return nil
	})
}

func (w *Watcher) ignored(path string) bool {
	base := filepath.Base(path)
	for _, g := range w.ignore {
		if g.Match(base) {
			return true
		}
	}
	return false
}

// relevant must be called with w.mu held.
func (w *Watcher) relevant(path string) bool {
	if w.files[path] {
		return true
	}
	for _, root := range w.trees {
		if path != root && !strings.HasPrefix(path, root+string(filepath.Separator)) {
			continue
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return false
		}
		for _, part := range strings.Split(rel, string(filepath.Separator)) {
			if part != "." && w.ignored(part) {
				return false
			}
		}
		return true
	}
	return false
}

// Run delivers batches of changed paths to onChange until ctx is done or
// Close is called. onChange runs on Run's goroutine.
func (w *Watcher) Run(ctx context.Context, onChange func(paths []string)) error {
	debounceTimer := time.NewTimer(0)
	<-debounceTimer.C // drain initial timer

	pending := make(map[string]bool)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-w.stopCh:
			return nil

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			w.mu.Lock()
			relevant := w.relevant(ev.Name)
			if relevant && ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = w.watchDirRecursive(ev.Name)
				}
			}
			w.mu.Unlock()

			if !relevant {
				continue
			}
			pending[ev.Name] = true
			debounceTimer.Reset(w.debounce)

		case <-debounceTimer.C:
			if len(pending) == 0 {
				continue
			}
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			pending = make(map[string]bool)
			onChange(paths)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watch error", "error", err)
		}
	}
}

// Close stops Run and releases the underlying watcher. It is safe to call
// more than once.
func (w *Watcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopCh)
		err = w.watcher.Close()
	})
	return err
}
