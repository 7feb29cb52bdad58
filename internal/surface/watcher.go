package surface

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/DevGuyRash/zybooks-problem-solver/internal/logging"
)

// ProbeWatcher hot-reloads a probe file while a solve is running, so a
// selector broken by a zyBooks markup change can be patched without
// restarting the run. Reloads that fail to parse or validate are rejected
// and the previous set stays in force.
type ProbeWatcher struct {
	mu          sync.RWMutex
	watcher     *fsnotify.Watcher
	path        string
	apply       func(ProbeSet)
	debounceMap map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats ProbeWatcherStats
}

// ProbeWatcherStats tracks watcher activity for debugging.
type ProbeWatcherStats struct {
	Events          int
	ReloadsApplied  int
	ReloadsRejected int
	Errors          int
	LastEventTime   time.Time
	LastReloadTime  time.Time
}

// NewProbeWatcher creates a watcher for the probe file at path. apply is
// called with each successfully validated reload; it must be safe to call
// from the watcher goroutine.
func NewProbeWatcher(path string, apply func(ProbeSet)) (*ProbeWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &ProbeWatcher{
		watcher:     watcher,
		path:        path,
		apply:       apply,
		debounceMap: make(map[string]time.Time),
		debounceDur: 300 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; the watcher runs in its own
// goroutine until Stop or ctx cancellation. The parent directory is
// watched rather than the file itself because editors replace files by
// rename, which drops a direct file watch.
func (pw *ProbeWatcher) Start(ctx context.Context) error {
	pw.mu.Lock()
	if pw.running {
		pw.mu.Unlock()
		return nil
	}
	pw.running = true
	pw.mu.Unlock()

	dir := filepath.Dir(pw.path)
	if err := pw.watcher.Add(dir); err != nil {
		pw.mu.Lock()
		pw.running = false
		pw.mu.Unlock()
		return err
	}
	logging.Surface("probe watcher: watching %s", dir)

	go pw.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the goroutine to exit.
func (pw *ProbeWatcher) Stop() {
	pw.mu.Lock()
	if !pw.running {
		pw.mu.Unlock()
		return
	}
	pw.running = false
	pw.mu.Unlock()

	close(pw.stopCh)
	<-pw.doneCh

	if err := pw.watcher.Close(); err != nil {
		logging.Get(logging.CategorySurface).Error("probe watcher: close: %v", err)
	}
	logging.Surface("probe watcher: stopped")
}

// Stats returns a copy of the activity counters.
func (pw *ProbeWatcher) Stats() ProbeWatcherStats {
	pw.mu.RLock()
	defer pw.mu.RUnlock()
	return pw.stats
}

func (pw *ProbeWatcher) run(ctx context.Context) {
	defer close(pw.doneCh)

	debounceTicker := time.NewTicker(100 * time.Millisecond)
	defer debounceTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-pw.stopCh:
			return

		case event, ok := <-pw.watcher.Events:
			if !ok {
				return
			}
			pw.handleEvent(event)

		case err, ok := <-pw.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategorySurface).Error("probe watcher: %v", err)
			pw.mu.Lock()
			pw.stats.Errors++
			pw.mu.Unlock()

		case <-debounceTicker.C:
			pw.processDebounced()
		}
	}
}

func (pw *ProbeWatcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(pw.path) {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return
	}
	pw.mu.Lock()
	pw.stats.Events++
	pw.stats.LastEventTime = time.Now()
	pw.debounceMap[event.Name] = time.Now()
	pw.mu.Unlock()
}

func (pw *ProbeWatcher) processDebounced() {
	pw.mu.Lock()
	now := time.Now()
	settled := false
	for path, eventTime := range pw.debounceMap {
		if now.Sub(eventTime) >= pw.debounceDur {
			delete(pw.debounceMap, path)
			settled = true
		}
	}
	pw.mu.Unlock()

	if settled {
		pw.reload()
	}
}

func (pw *ProbeWatcher) reload() {
	ps, err := LoadProbes(pw.path)
	if err != nil {
		logging.Get(logging.CategorySurface).Warn("probe watcher: reload rejected, keeping previous set: %v", err)
		pw.mu.Lock()
		pw.stats.ReloadsRejected++
		pw.mu.Unlock()
		return
	}

	pw.apply(ps)
	logging.Surface("probe watcher: reloaded %s", pw.path)
	pw.mu.Lock()
	pw.stats.ReloadsApplied++
	pw.stats.LastReloadTime = time.Now()
	pw.mu.Unlock()
}
