package store

import (
	"context"
	"sync"

	"github.com/serroba/speedbump/internal/ratelimit"
)

// MemoryStore is an in-memory implementation of ratelimit.Store.
//
// A single mutex guards the whole map. Entries never expire; they live until cleared.
type MemoryStore[S any] struct {
	mu     sync.Mutex
	states map[string]S
}

// NewMemoryStore creates a new in-memory state store.
func NewMemoryStore[S any]() *MemoryStore[S] {
	return &MemoryStore[S]{
		states: make(map[string]S),
	}
}

func (m *MemoryStore[S]) Get(_ context.Context, key string) (S, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.states[key]

	return state, ok, nil
}

func (m *MemoryStore[S]) Set(_ context.Context, key string, state S) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.states[key] = state

	return nil
}

func (m *MemoryStore[S]) Clear(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.states, key)

	return nil
}

// Len returns the number of keys currently stored.
func (m *MemoryStore[S]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.states)
}

// Compile-time check.
var _ ratelimit.Store[ratelimit.FixedWindowState] = (*MemoryStore[ratelimit.FixedWindowState])(nil)
