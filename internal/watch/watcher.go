// Package watch implements the Directory Watcher (§4.3): it observes one or
// more source directories for RAR archive sets, applies a stabilization
// protocol so a set is only submitted once its volumes have stopped
// changing, and emits ready-to-process events to the processing queue.
package watch

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/rarshelf/rarshelf/internal/fsutil"
	"github.com/rarshelf/rarshelf/internal/logging"
	"github.com/rarshelf/rarshelf/internal/metrics"
)

// Watcher observes a single source directory.
type Watcher struct {
	cfg    SourceConfig
	events chan<- Event
	fsw    *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]*trackedSet

	stop chan struct{}
	done chan struct{}
}

// New creates a Watcher for one source. events is shared across all sources
// and must be drained by the caller (normally the processing queue's
// submission path).
func New(cfg SourceConfig, events chan<- Event) *Watcher {
	if cfg.StabilizationWindow <= 0 {
		cfg.StabilizationWindow = 10 * time.Second
	}
	if cfg.MaxFileAge <= 0 {
		cfg.MaxFileAge = time.Hour
	}
	return &Watcher{
		cfg:     cfg,
		events:  events,
		pending: make(map[string]*trackedSet),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start enumerates existing archive sets (submitted with reason "existing"),
// then begins watching the directory tree for changes. It blocks until the
// initial enumeration and watcher setup complete; event processing continues
// in the background until Stop is called.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: create fsnotify watcher: %w", w.cfg.Path, err)
	}
	w.fsw = fsw

	if err := w.addTree(w.cfg.Path); err != nil {
		fsw.Close()
		return fmt.Errorf("watch %s: %w", w.cfg.Path, err)
	}

	w.enumerateExisting()

	go w.run()
	return nil
}

// Stop halts watching and waits for the background loop to exit.
func (w *Watcher) Stop() {
	close(w.stop)
	<-w.done
	if w.fsw != nil {
		w.fsw.Close()
	}
}

func (w *Watcher) addTree(dir string) error {
	if err := w.fsw.Add(dir); err != nil {
		return err
	}
	if !w.cfg.Recursive {
		return nil
	}
	children, err := subdirs(dir)
	if err != nil {
		return err
	}
	for _, c := range children {
		if err := w.addTree(c); err != nil {
			logging.Warnf("watch: failed to add subdirectory %s: %v", c, err)
		}
	}
	return nil
}

// enumerateExisting implements §4.3 step 5: every archive set already
// present at startup is submitted once, unconditionally, as source=existing.
func (w *Watcher) enumerateExisting() {
	dirs := []string{w.cfg.Path}
	for len(dirs) > 0 {
		dir := dirs[len(dirs)-1]
		dirs = dirs[:len(dirs)-1]
		handles, err := groupVolumes(dir)
		if err != nil {
			logging.Errorf("watch: startup enumeration of %s failed: %v", dir, err)
			continue
		}
		for _, h := range handles {
			w.emit(h, ReasonExisting)
		}
		if w.cfg.Recursive {
			if children, err := subdirs(dir); err == nil {
				dirs = append(dirs, children...)
			}
		}
	}
}

func (w *Watcher) run() {
	defer close(w.done)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.Errorf("watch: fsnotify error on %s: %v", w.cfg.Path, err)

		case <-ticker.C:
			w.pollPending()

		case <-w.stop:
			return
		}
	}
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return
	}
	metrics.WatcherEventsTotal.WithLabelValues(w.cfg.Path, event.Op.String()).Inc()

	if event.Op&fsnotify.Create != 0 {
		if info, err := fsutil.StatWithRetry(event.Name, fsutil.DefaultRetryConfig()); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				logging.Warnf("watch: failed to add new directory %s: %v", event.Name, err)
			}
			return
		}
	}

	w.touchSet(event.Name)
}

// touchSet regroups the directory containing the touched path and marks the
// matching archive set dirty, resetting its stabilization progress.
func (w *Watcher) touchSet(path string) {
	dir := filepath.Dir(path)
	handles, err := groupVolumes(dir)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, h := range handles {
		if !containsPath(h.Volumes, path) {
			continue
		}
		ts, ok := w.pending[h.Key()]
		if !ok {
			ts = newTrackedSet(h)
			w.pending[h.Key()] = ts
		} else {
			ts.handle = h
			ts.consecutiveStable = 0
		}
	}
	metrics.WatcherPendingSets.WithLabelValues(w.cfg.Path).Set(float64(len(w.pending)))
}

func (w *Watcher) pollPending() {
	w.mu.Lock()
	due := make([]*trackedSet, 0, len(w.pending))
	for _, ts := range w.pending {
		due = append(due, ts)
	}
	w.mu.Unlock()

	for _, ts := range due {
		switch ts.poll(w.cfg.StabilizationWindow, w.cfg.MaxFileAge) {
		case pollStable:
			w.resolve(ts.handle.Key(), ts.handle, ReasonStable)
		case pollUnstableTimedOut:
			w.resolve(ts.handle.Key(), ts.handle, ReasonUnstable)
		case pollStillPending:
		}
	}
}

func (w *Watcher) resolve(key string, handle ArchiveSetHandle, reason SubmitReason) {
	w.mu.Lock()
	delete(w.pending, key)
	metrics.WatcherPendingSets.WithLabelValues(w.cfg.Path).Set(float64(len(w.pending)))
	w.mu.Unlock()

	w.emit(handle, reason)
}

func (w *Watcher) emit(handle ArchiveSetHandle, reason SubmitReason) {
	switch reason {
	case ReasonStable, ReasonExisting:
		metrics.WatcherStabilizedTotal.WithLabelValues(w.cfg.Path).Inc()
	case ReasonUnstable:
		metrics.WatcherUnstableSubmittedTotal.WithLabelValues(w.cfg.Path).Inc()
	}
	w.events <- Event{Handle: handle, Source: w.cfg, Reason: reason}
}

func containsPath(paths []string, target string) bool {
	for _, p := range paths {
		if p == target {
			return true
		}
	}
	return false
}
