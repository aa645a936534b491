// Package fsnotify implements the ports.Watcher interface using github.com/fsnotify/fsnotify.
// It recursively watches a dump directory, drops editor and VCS noise, and
// debounces bursts of events per file (editors often write several times per save).
package fsnotify

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the per-file quiet period between callbacks.
const DefaultDebounce = 50 * time.Millisecond

// Directories never descended into.
var ignoreDirs = map[string]bool{
	".git":       true,
	".hg":        true,
	".svn":       true,
	".dropcache": true,
	".idea":      true,
	".vscode":    true,
}

// Suffixes of editor and download leftovers.
var ignoreSuffixes = []string{".DS_Store", ".swp", ".swx", ".tmp", ".part", ".crdownload", "~"}

// Options configures a Watcher.
type Options struct {
	// Accept filters paths before onChange. nil accepts every path that
	// survives the built-in ignore rules.
	Accept func(path string) bool

	// Debounce is the per-file quiet period. Default: 50ms
	Debounce time.Duration
}

// Watcher implements ports.Watcher using fsnotify.
type Watcher struct {
	fw       *fsnotify.Watcher
	accept   func(string) bool
	debounce time.Duration

	done    chan struct{}
	stopped bool
	mu      sync.Mutex

	// pending holds one trailing-edge timer per path.
	pending map[string]*time.Timer
}

// NewWatcher creates a new file system watcher.
func NewWatcher(opts Options) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	return &Watcher{
		fw:       fw,
		accept:   opts.Accept,
		debounce: opts.Debounce,
		done:     make(chan struct{}),
		pending:  make(map[string]*time.Timer),
	}, nil
}

// Watch starts monitoring dir recursively.
// onChange is called with the absolute path of each changed file.
func (w *Watcher) Watch(dir string, onChange func(filePath string)) error {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if _, err := os.Stat(absPath); err != nil {
		return err
	}

	err = filepath.Walk(absPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip inaccessible paths
		}
		if info.IsDir() {
			if ignoreDirs[info.Name()] && path != absPath {
				return filepath.SkipDir
			}
			return w.fw.Add(path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	go w.loop(onChange)
	return nil
}

func (w *Watcher) loop(onChange func(string)) {
	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			path := event.Name

			// New subdirectories join the watch list.
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(path); err == nil && info.IsDir() {
					if !ignoreDirs[info.Name()] {
						if err := w.fw.Add(path); err != nil {
							slog.Warn("watch directory", "path", path, "error", err)
						}
					}
					continue
				}
			}

			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if shouldIgnorePath(path) || (w.accept != nil && !w.accept(path)) {
				continue
			}

			w.schedule(path, onChange)

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			// fsnotify recovers on its own; overflow just means a missed event.
			slog.Debug("watcher error", "error", err)

		case <-w.done:
			return
		}
	}
}

// schedule (re)arms the timer for path. onChange fires once the path has
// been quiet for the debounce period, so it sees the file's final content.
func (w *Watcher) schedule(path string, onChange func(string)) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	if t, ok := w.pending[path]; ok {
		t.Reset(w.debounce)
		return
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		stopped := w.stopped
		w.mu.Unlock()
		if !stopped {
			onChange(path)
		}
	})
}

// Stop ends monitoring and releases all resources.
// Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	close(w.done)
	return w.fw.Close()
}

// shouldIgnorePath returns true if the path should not trigger onChange.
func shouldIgnorePath(path string) bool {
	base := filepath.Base(path)
	for _, suffix := range ignoreSuffixes {
		if strings.HasSuffix(base, suffix) {
			return true
		}
	}
	for _, part := range strings.Split(path, string(filepath.Separator)) {
		if ignoreDirs[part] {
			return true
		}
	}
	return false
}
