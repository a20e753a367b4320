// Package bus is the change notification mechanism that keeps the journal,
// task, milestone, and companion surfaces consistent with each other. Writers
// publish the key they changed right after a successful store write; readers
// subscribe and reload the affected collection. It is push-based and
// at-least-once: redundant publishes cause redundant reloads, never corrupted
// state.
package bus

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/havenapp/haven/pkg/store"
)

// Change is the normalized notification shape. In-process publishes carry the
// freshly written value; changes observed from another process are re-read
// from the store before delivery, so handlers never need to know which
// transport fired.
type Change struct {
	Key   string
	Value string
}

// Handler receives a Change. Handlers run synchronously on the publisher's
// goroutine for in-process publishes and must be idempotent.
type Handler func(Change)

// Bus fans changes out to per-key subscribers.
type Bus struct {
	mu      sync.Mutex
	nextID  int
	subs    map[string]map[int]Handler
	allSubs map[int]Handler
	log     *zap.Logger
}

func New(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{
		subs:    make(map[string]map[int]Handler),
		allSubs: make(map[int]Handler),
		log:     log,
	}
}

// Publish notifies every subscriber of key. Call it immediately after a
// successful persisted write to that key.
func (b *Bus) Publish(key, value string) {
	b.mu.Lock()
	handlers := make([]Handler, 0, len(b.subs[key])+len(b.allSubs))
	for _, h := range b.subs[key] {
		handlers = append(handlers, h)
	}
	for _, h := range b.allSubs {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()

	b.log.Debug("bus publish", zap.String("key", key), zap.Int("subscribers", len(handlers)))
	for _, h := range handlers {
		h(Change{Key: key, Value: value})
	}
}

// Subscribe registers handler for key and returns its unsubscribe func.
// Unsubscribing twice is harmless; subscribers must unsubscribe when torn
// down so long-lived buses do not leak handlers.
func (b *Bus) Subscribe(key string, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[key] == nil {
		b.subs[key] = make(map[int]Handler)
	}
	id := b.nextID
	b.nextID++
	b.subs[key][id] = handler

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[key], id)
	}
}

// SubscribeAll registers handler for every key. Conversation histories are
// stored under per-companion keys, so observers that want the whole surface
// subscribe here instead of enumerating keys.
func (b *Bus) SubscribeAll(handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.allSubs[id] = handler

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.allSubs, id)
	}
}

// AttachWatcher bridges the store's cross-process change channel onto the
// bus. Watcher events carry only the key, so the current value is re-read
// before the change is republished in the normal shape.
func (b *Bus) AttachWatcher(ctx context.Context, events <-chan store.Event, kv store.KV) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				value, _ := kv.Read(evt.Key)
				b.Publish(evt.Key, value)
			}
		}
	}()
}
