package index

import (
	"context"
	"sync"
)

// MemoryIndex stores entries in memory, keyed by unit ID. Used in local
// runs without Milvus and in tests.
type MemoryIndex struct {
	mu      sync.RWMutex
	entries map[string]Entry
	Err     error // when set, Upsert fails with this error
}

// NewMemoryIndex constructs an empty MemoryIndex.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{entries: make(map[string]Entry)}
}

// Upsert stores the entry, replacing any prior entry with the unit ID.
func (m *MemoryIndex) Upsert(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.UnitID] = e
	return nil
}

// Get returns the stored entry for a unit ID.
func (m *MemoryIndex) Get(unitID string) (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[unitID]
	return e, ok
}

// Len returns the number of stored entries.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
