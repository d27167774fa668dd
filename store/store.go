// Package store provides key/value byte stores used to memoize computed
// distance-field geometry across runs.
//
// A [ByteStore] must tolerate concurrent reads and writes to distinct keys.
// Two implementations are provided: [Memory] for tests and short-lived
// processes, and [SQLite] for an on-disk cache. [Memo] wraps either with an
// in-process LRU and a one-shot asynchronous initialization.
package store

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("store: closed")

// ByteStore is a persistent key to bytes mapping.
type ByteStore interface {
	// Init prepares the store for use. It is called once before any Get or
	// Write.
	Init(ctx context.Context) error

	// Get returns the value stored under key. The bool is false when the key
	// is absent.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Write stores data under key, replacing any previous value.
	Write(ctx context.Context, key string, data []byte) error
}

// Memory is an in-memory ByteStore.
//
// Memory is safe for concurrent use.
type Memory struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Init implements ByteStore. It never fails.
func (m *Memory) Init(context.Context) error { return nil }

// Get implements ByteStore. The returned slice is a copy.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, false, ErrClosed
	}
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Write implements ByteStore. The data is copied.
func (m *Memory) Write(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.data[key] = append([]byte(nil), data...)
	return nil
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Close releases the stored values. Later calls fail with ErrClosed.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.data = nil
	return nil
}
