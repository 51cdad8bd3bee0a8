package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads Config from an env file whenever it changes on disk,
// debouncing rapid successive writes the way editors/deploy tools tend to
// produce them. Grounded on the teacher pack's fsnotify-driven hot
// reloader (theRebelliousNerd-codenerd's MangleWatcher): a directory watch
// plus a debounce map, not a bare per-event callback.
type Watcher struct {
	mu          sync.Mutex
	fsw         *fsnotify.Watcher
	envFile     string
	debounce    time.Duration
	lastReload  time.Time
	onReload    func(Config, error)
	stopCh      chan struct{}
	doneCh      chan struct{}
}

// NewWatcher opens an fsnotify watch on envFile's containing directory
// (fsnotify watches directories more reliably than individual files across
// editors' save-via-rename behavior) and calls onReload with the freshly
// loaded Config every time envFile changes.
func NewWatcher(envFile string, onReload func(Config, error)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(envFile)); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return &Watcher{
		fsw:      fsw,
		envFile:  envFile,
		debounce: 500 * time.Millisecond,
		onReload: onReload,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Run blocks, dispatching reloads until ctx is cancelled or Stop is called.
// Callers typically invoke it in its own goroutine.
func (w *Watcher) Run(ctx context.Context) {
	defer close(w.doneCh)
	target := filepath.Clean(w.envFile)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.maybeReload()
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *Watcher) maybeReload() {
	w.mu.Lock()
	now := time.Now()
	if now.Sub(w.lastReload) < w.debounce {
		w.mu.Unlock()
		return
	}
	w.lastReload = now
	w.mu.Unlock()

	cfg, err := Load(w.envFile)
	if err == nil {
		err = cfg.Validate()
	}
	w.onReload(cfg, err)
}

// Stop closes the watcher and waits for Run to return.
func (w *Watcher) Stop() {
	close(w.stopCh)
	<-w.doneCh
	_ = w.fsw.Close()
}
