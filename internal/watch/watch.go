// Package watch monitors a directory for new or updated build logs and
// hands settled files to a classification callback.
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/patrickmn/go-cache"

	"github.com/newhook/buildlog/internal/logging"
)

// Handler is invoked with the path of a log that settled after a change.
type Handler func(path string)

// Options configure a Watcher.
type Options struct {
	// Patterns are shell globs tested against the base name.
	Patterns []string
	// Settle is how long a file must stay quiet before it is handled.
	// Writers flush logs in bursts; handling mid-burst wastes work.
	Settle time.Duration
	// DedupeTTL is how long a (path, size) pair suppresses re-handling.
	DedupeTTL time.Duration
}

// Watcher watches one directory for log changes.
type Watcher struct {
	dir     string
	opts    Options
	handler Handler
	watcher *fsnotify.Watcher
	seen    *cache.Cache
	done    chan struct{}
	wg      sync.WaitGroup

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// New creates a watcher over dir. Start must be called to begin delivery.
func New(dir string, opts Options, handler Handler) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsWatcher.Add(dir); err != nil {
		fsWatcher.Close()
		return nil, err
	}

	if len(opts.Patterns) == 0 {
		opts.Patterns = []string{"*.log"}
	}
	if opts.Settle <= 0 {
		opts.Settle = 500 * time.Millisecond
	}
	if opts.DedupeTTL <= 0 {
		opts.DedupeTTL = 30 * time.Second
	}

	return &Watcher{
		dir:     dir,
		opts:    opts,
		handler: handler,
		watcher: fsWatcher,
		seen:    cache.New(opts.DedupeTTL, opts.DedupeTTL),
		done:    make(chan struct{}),
		timers:  make(map[string]*time.Timer),
	}, nil
}

// Start begins watching in a goroutine.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop terminates the watcher and waits for in-flight handling.
func (w *Watcher) Stop() {
	close(w.done)
	w.watcher.Close()
	w.wg.Wait()

	w.mu.Lock()
	for _, timer := range w.timers {
		timer.Stop()
	}
	w.mu.Unlock()
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !w.matches(event.Name) {
				continue
			}
			logging.Debug("log change detected", "file", event.Name, "op", event.Op.String())
			w.resettle(event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

// matches tests the base name against the configured globs.
func (w *Watcher) matches(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range w.opts.Patterns {
		if ok, err := filepath.Match(pattern, base); err == nil && ok {
			return true
		}
	}
	return false
}

// resettle restarts the quiet-period timer for a path.
func (w *Watcher) resettle(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.timers[path]; ok {
		timer.Stop()
	}
	w.timers[path] = time.AfterFunc(w.opts.Settle, func() {
		select {
		case <-w.done:
			return
		default:
		}
		if w.dedupe(path) {
			w.handler(path)
		}
	})
}

// dedupe reports whether the file at path should be handled. A (path, size)
// pair already in the cache means the same content burst was just handled.
func (w *Watcher) dedupe(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		logging.Warn("stat failed for changed log", "file", path, "error", err)
		return false
	}
	key := fmt.Sprintf("%s|%d", path, info.Size())
	if err := w.seen.Add(key, struct{}{}, cache.DefaultExpiration); err != nil {
		logging.Debug("suppressing duplicate classification", "file", path, "size", info.Size())
		return false
	}
	return true
}
