package store

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch streams key-change events until ctx is cancelled. It reports writes
// made by other processes of the same user; the in-process notification path
// is the change bus, this channel is the cross-process analog. Callers should
// drain the returned channel to avoid losing events. The channel closes once
// ctx is done or the watcher hits an unrecoverable error.
func (s *Disk) Watch(ctx context.Context) (<-chan Event, error) {
	if s.basePath == "" {
		return nil, fmt.Errorf("store: base path unknown")
	}
	if err := os.MkdirAll(s.basePath, 0o755); err != nil {
		return nil, fmt.Errorf("store: ensure base path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("store: create watcher: %w", err)
	}
	var closeOnce sync.Once
	closeWatcher := func() {
		closeOnce.Do(func() {
			if err := watcher.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "store: watcher close: %v\n", err)
			}
		})
	}

	if err := watcher.Add(s.basePath); err != nil {
		closeWatcher()
		return nil, fmt.Errorf("store: watch %s: %w", s.basePath, err)
	}

	events := make(chan Event, 64)

	go func() {
		defer close(events)
		defer closeWatcher()

		send := func(ev Event) {
			select {
			case events <- ev:
			default:
				// Drop when the consumer lags; the periodic resync loop
				// re-reads the persisted collections and catches up.
			}
		}

		throttle := newKeyThrottle(100 * time.Millisecond)
		defer throttle.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				key := s.keyForPath(evt.Name)
				if key == "" {
					continue
				}
				throttle.Enqueue(key, send)
			}
		}
	}()

	return events, nil
}

// keyThrottle coalesces rapid change notifications so consumers reload each
// key once per burst of filesystem activity instead of on every write.
type keyThrottle struct {
	mu      sync.Mutex
	timer   *time.Timer
	pending map[string]struct{}
	delay   time.Duration
}

func newKeyThrottle(delay time.Duration) *keyThrottle {
	return &keyThrottle{
		delay:   delay,
		pending: make(map[string]struct{}),
	}
}

func (t *keyThrottle) Enqueue(key string, send func(Event)) {
	t.mu.Lock()
	t.pending[key] = struct{}{}
	if t.timer == nil {
		t.timer = time.AfterFunc(t.delay, func() {
			t.flush(send)
		})
	}
	t.mu.Unlock()
}

func (t *keyThrottle) flush(send func(Event)) {
	t.mu.Lock()
	pending := t.pending
	t.pending = make(map[string]struct{})
	t.timer = nil
	t.mu.Unlock()

	for key := range pending {
		send(Event{Key: key})
	}
}

func (t *keyThrottle) Stop() {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.mu.Unlock()
}
