package mocks

import (
	"context"
	"errors"
	"sync"
)

// ErrStoreUnavailable is returned by MemoryStore when failures are switched on.
var ErrStoreUnavailable = errors.New("store unavailable")

// MemoryStore is an in-memory storage.Store used for testing without a database or Redis.
type MemoryStore struct {
	mu       sync.RWMutex
	data     map[string]string
	failSet  bool
	failGet  bool
	setCalls int
}

// NewMemoryStore creates an empty mock store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

// Get retrieves a value from the mock store
func (m *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.failGet {
		return "", false, ErrStoreUnavailable
	}
	val, ok := m.data[key]
	return val, ok, nil
}

// Set stores a value in the mock store
func (m *MemoryStore) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.setCalls++
	if m.failSet {
		return ErrStoreUnavailable
	}
	m.data[key] = value
	return nil
}

// Delete removes a key from the mock store
func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}

// FailWrites makes every subsequent Set return ErrStoreUnavailable.
func (m *MemoryStore) FailWrites(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failSet = fail
}

// FailReads makes every subsequent Get return ErrStoreUnavailable.
func (m *MemoryStore) FailReads(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failGet = fail
}

// Put seeds a raw value, bypassing failure switches.
func (m *MemoryStore) Put(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

// Raw returns the stored value, bypassing failure switches.
func (m *MemoryStore) Raw(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	val, ok := m.data[key]
	return val, ok
}

// SetCalls returns how many times Set was called.
func (m *MemoryStore) SetCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.setCalls
}

// Clear resets the mock store (useful for tests)
func (m *MemoryStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]string)
	m.setCalls = 0
}
