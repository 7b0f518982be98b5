package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Event is emitted by Watch when a named store changes on disk.
type Event struct {
	// Store is the file name that changed. Empty means "reload everything",
	// which is sent when the watcher cannot classify a change.
	Store string
}

// Watch streams change events for files in the store directory until ctx is
// cancelled. Callers should drain the returned channel. The channel is closed
// once ctx is done or the watcher fails.
func Watch(ctx context.Context, cfg Config) (<-chan Event, error) {
	if cfg == nil || cfg.BasePath() == "" {
		return nil, errors.New("store: base path unknown")
	}
	basePath := filepath.Clean(cfg.BasePath())
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("store: ensure base path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("store: create watcher: %w", err)
	}
	if err := watcher.Add(basePath); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("store: watch %s: %w", basePath, err)
	}

	events := make(chan Event, 16)

	go func() {
		defer close(events)
		defer watcher.Close()

		send := func(ev Event) {
			select {
			case events <- ev:
			default:
				// Consumer is behind; the next event triggers a reload anyway.
			}
		}

		throttle := newEventThrottle(100 * time.Millisecond)
		defer throttle.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
				throttle.Enqueue(Event{}, send)
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				name := storeForPath(basePath, evt.Name)
				if name == "" {
					continue
				}
				throttle.Enqueue(Event{Store: name}, send)
			}
		}
	}()

	return events, nil
}

// storeForPath maps a changed path to a store name, ignoring the temp dir
// diskv stages atomic writes in.
func storeForPath(basePath, path string) string {
	if filepath.Dir(filepath.Clean(path)) != basePath {
		return ""
	}
	name := filepath.Base(path)
	if name == tempDirName || name == "." {
		return ""
	}
	return name
}

// eventThrottle coalesces bursts of writes into one event per store. Sends
// happen under mu, so once Stop returns nothing is sent again.
type eventThrottle struct {
	mu      sync.Mutex
	timer   *time.Timer
	pending map[string]struct{}
	delay   time.Duration
	stopped bool
}

func newEventThrottle(delay time.Duration) *eventThrottle {
	return &eventThrottle{
		delay:   delay,
		pending: make(map[string]struct{}),
	}
}

func (t *eventThrottle) Enqueue(ev Event, send func(Event)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.pending[ev.Store] = struct{}{}
	if t.timer == nil {
		t.timer = time.AfterFunc(t.delay, func() {
			t.flush(send)
		})
	}
}

// flush sends the pending events. send must not block.
func (t *eventThrottle) flush(send func(Event)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timer = nil
	if t.stopped {
		return
	}
	pending := t.pending
	t.pending = make(map[string]struct{})

	if _, all := pending[""]; all {
		send(Event{})
		return
	}
	for name := range pending {
		send(Event{Store: name})
	}
}

// Stop drops pending events. A flush already running finishes before Stop
// returns.
func (t *eventThrottle) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.pending = make(map[string]struct{})
}
