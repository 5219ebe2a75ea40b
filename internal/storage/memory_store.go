// ABOUTME: MemoryStore is a non-durable EntryStore for tests and benchmarks
// ABOUTME: Holds entries in a map guarded by a mutex
package storage

import (
	"context"
	"sync"

	"github.com/harper/docqa/internal/models"
)

// MemoryStore keeps entries in process memory only
type MemoryStore struct {
	mu        sync.Mutex
	entries   map[string]models.IndexEntry
	dimension int
	closed    bool
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]models.IndexEntry)}
}

// Save stores a copy of entry
func (m *MemoryStore) Save(ctx context.Context, entry models.IndexEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	entry.Embedding = append([]float32(nil), entry.Embedding...)
	m.entries[entry.ID] = entry
	return nil
}

// Delete removes an entry; deleting a missing id is not an error
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	delete(m.entries, id)
	return nil
}

// Load returns every stored entry
func (m *MemoryStore) Load(ctx context.Context) ([]models.IndexEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrStoreClosed
	}
	out := make([]models.IndexEntry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	return out, nil
}

// Dimension returns the stored dimension
func (m *MemoryStore) Dimension(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dimension, nil
}

// SetDimension records the index dimension
func (m *MemoryStore) SetDimension(ctx context.Context, dim int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dimension = dim
	return nil
}

// Close marks the store closed
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
