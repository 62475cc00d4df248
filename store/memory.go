package store

import (
	"context"
	"sync"
)

// MemoryStore keeps histories in process memory for the process lifetime.
type MemoryStore struct {
	mu    sync.Mutex
	convs map[string][]Turn
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{convs: make(map[string][]Turn)}
}

func (m *MemoryStore) Get(_ context.Context, key Key) ([]Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	turns := m.convs[key.String()]
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (m *MemoryStore) Set(_ context.Context, key Key, turns []Turn) error {
	cp := make([]Turn, len(turns))
	copy(cp, turns)

	m.mu.Lock()
	m.convs[key.String()] = cp
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored conversations.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.convs)
}
