package cache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// MemoryBackend is a bounded in-process Backend. When full, the least
// recently used entry is evicted.
type MemoryBackend struct {
	entries *lru.Cache[string, Entry]
}

// NewMemoryBackend creates an in-memory backend holding at most size entries.
func NewMemoryBackend(size int) (*MemoryBackend, error) {
	entries, err := lru.New[string, Entry](size)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &MemoryBackend{entries: entries}, nil
}

// Get returns the entry stored under key.
func (m *MemoryBackend) Get(_ context.Context, key string) (Entry, bool, error) {
	e, ok := m.entries.Get(key)
	return e, ok, nil
}

// Set stores entry under key.
func (m *MemoryBackend) Set(_ context.Context, key string, entry Entry) error {
	m.entries.Add(key, entry)
	return nil
}

// Len returns the number of stored entries, live or expired.
func (m *MemoryBackend) Len() int {
	return m.entries.Len()
}
