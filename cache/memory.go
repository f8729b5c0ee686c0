// Package cache provides implementations of the resolver cache
// contract.
package cache

import (
	"context"
	"sync"

	"github.com/zclconf/go-cty/cty"
)

// Memory stores resolved values in memory.
//
// Values are not persisted anywhere; every process starts with an empty
// cache. Independent keys may be read and written concurrently.
type Memory struct {
	mu   sync.RWMutex
	data map[string]cty.Value
}

// Get returns the value stored under key. The second return value is
// false on a miss.
func (m *Memory) Get(ctx context.Context, key string) (cty.Value, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return cty.NilVal, false, nil
	}
	return v, true, nil
}

// Put stores a value under key.
func (m *Memory) Put(ctx context.Context, key string, value cty.Value) error {
	m.mu.Lock()
	if m.data == nil {
		m.data = make(map[string]cty.Value)
	}
	m.data[key] = value
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored values.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
