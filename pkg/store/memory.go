package store

import (
	"fmt"
	"sort"
	"sync"
)

// InMemory is a map-backed KV used by tests. FailWrites forces every Write
// to report ErrWriteFailed so callers' degraded paths can be exercised.
type InMemory struct {
	mu         sync.Mutex
	values     map[string]string
	FailWrites bool
}

var _ KV = (*InMemory)(nil)

func NewInMemory() *InMemory {
	return &InMemory{values: make(map[string]string)}
}

func (m *InMemory) Read(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *InMemory) Write(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return fmt.Errorf("%w: %s: quota exceeded", ErrWriteFailed, key)
	}
	m.values[key] = value
	return nil
}

func (m *InMemory) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *InMemory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.values))
	for key := range m.values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
