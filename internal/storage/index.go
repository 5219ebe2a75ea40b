// ABOUTME: VectorIndex keeps chunk embeddings in an in-memory snapshot backed by a durable EntryStore
// ABOUTME: Upserts are serialized per id, queries rank by Euclidean distance with insertion-order ties
package storage

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/harper/docqa/internal/models"
)

// EntryStore persists index entries and the index dimension
type EntryStore interface {
	Save(ctx context.Context, entry models.IndexEntry) error
	Delete(ctx context.Context, id string) error
	Load(ctx context.Context) ([]models.IndexEntry, error)
	Dimension(ctx context.Context) (int, error)
	SetDimension(ctx context.Context, dim int) error
	Close() error
}

// VectorIndex is a brute-force nearest-neighbour index over chunk embeddings
type VectorIndex struct {
	store EntryStore

	mu        sync.RWMutex
	entries   map[string]models.IndexEntry
	dimension int
	nextSeq   int64

	locks *keyedMutex
}

// NewVectorIndex loads every entry from store into memory. A positive
// dimension pins the index dimensionality; zero lets the first upsert set it.
func NewVectorIndex(ctx context.Context, store EntryStore, dimension int) (*VectorIndex, error) {
	if dimension < 0 {
		return nil, models.InvalidConfig("vector dimension must not be negative, got %d", dimension)
	}

	stored, err := store.Dimension(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read index dimension: %w", err)
	}
	switch {
	case dimension > 0 && stored > 0 && stored != dimension:
		return nil, models.InvalidConfig("index was built with dimension %d, configured %d", stored, dimension)
	case dimension > 0 && stored == 0:
		if err := store.SetDimension(ctx, dimension); err != nil {
			return nil, fmt.Errorf("failed to persist index dimension: %w", err)
		}
	case stored > 0:
		dimension = stored
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load index entries: %w", err)
	}

	idx := &VectorIndex{
		store:     store,
		entries:   make(map[string]models.IndexEntry, len(loaded)),
		dimension: dimension,
		nextSeq:   1,
		locks:     newKeyedMutex(),
	}
	for _, e := range loaded {
		if idx.dimension == 0 {
			idx.dimension = len(e.Embedding)
		}
		if len(e.Embedding) != idx.dimension {
			return nil, &models.DimensionMismatchError{ID: e.ID, Want: idx.dimension, Got: len(e.Embedding)}
		}
		idx.entries[e.ID] = e
		if e.Seq >= idx.nextSeq {
			idx.nextSeq = e.Seq + 1
		}
	}

	return idx, nil
}

// Upsert inserts entry or replaces the entry with the same id. A replaced
// entry keeps its original insertion sequence.
func (idx *VectorIndex) Upsert(ctx context.Context, entry models.IndexEntry) error {
	if entry.ID == "" {
		return models.InvalidConfig("index entry id must not be empty")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	newDim, err := idx.checkDimension(entry.ID, len(entry.Embedding))
	if err != nil {
		return err
	}
	if newDim {
		if err := idx.store.SetDimension(ctx, len(entry.Embedding)); err != nil {
			return fmt.Errorf("failed to persist index dimension: %w", err)
		}
	}

	unlock := idx.locks.Lock(entry.ID)
	defer unlock()

	idx.mu.Lock()
	if existing, ok := idx.entries[entry.ID]; ok {
		entry.Seq = existing.Seq
	} else {
		entry.Seq = idx.nextSeq
		idx.nextSeq++
	}
	idx.mu.Unlock()

	entry.Embedding = append([]float32(nil), entry.Embedding...)
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = time.Now().UTC()
	}

	if err := idx.store.Save(ctx, entry); err != nil {
		return fmt.Errorf("failed to save entry %s: %w", entry.ID, err)
	}

	idx.mu.Lock()
	idx.entries[entry.ID] = entry
	idx.mu.Unlock()
	return nil
}

// checkDimension validates n against the index dimension, establishing it
// when the index has none yet. It reports whether the dimension was just set.
func (idx *VectorIndex) checkDimension(id string, n int) (bool, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if n == 0 {
		return false, &models.DimensionMismatchError{ID: id, Want: idx.dimension, Got: 0}
	}
	if idx.dimension == 0 {
		idx.dimension = n
		return true, nil
	}
	if n != idx.dimension {
		return false, &models.DimensionMismatchError{ID: id, Want: idx.dimension, Got: n}
	}
	return false, nil
}

// Query returns the k entries nearest to embedding, nearest first. Fewer
// than k results are returned when the index holds fewer entries.
func (idx *VectorIndex) Query(ctx context.Context, embedding []float32, k int) ([]models.QueryResult, error) {
	if k <= 0 {
		return nil, models.InvalidConfig("k must be positive, got %d", k)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type scored struct {
		entry    models.IndexEntry
		distance float64
	}

	idx.mu.RLock()
	if len(idx.entries) == 0 {
		idx.mu.RUnlock()
		return []models.QueryResult{}, nil
	}
	if len(embedding) != idx.dimension {
		want := idx.dimension
		idx.mu.RUnlock()
		return nil, &models.DimensionMismatchError{Want: want, Got: len(embedding)}
	}
	candidates := make([]scored, 0, len(idx.entries))
	for _, e := range idx.entries {
		candidates = append(candidates, scored{entry: e, distance: EuclideanDistance(embedding, e.Embedding)})
	}
	idx.mu.RUnlock()

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].distance != candidates[j].distance {
			return candidates[i].distance < candidates[j].distance
		}
		return candidates[i].entry.Seq < candidates[j].entry.Seq
	})

	if k > len(candidates) {
		k = len(candidates)
	}
	results := make([]models.QueryResult, k)
	for i := 0; i < k; i++ {
		e := candidates[i].entry
		results[i] = models.QueryResult{
			ChunkID:    e.ID,
			DocumentID: e.DocumentID,
			Text:       e.Text,
			Distance:   candidates[i].distance,
		}
	}
	return results, nil
}

// Remove deletes the entry with the given id
func (idx *VectorIndex) Remove(ctx context.Context, id string) error {
	unlock := idx.locks.Lock(id)
	defer unlock()

	idx.mu.RLock()
	_, ok := idx.entries[id]
	idx.mu.RUnlock()
	if !ok {
		return fmt.Errorf("entry %s: %w", id, models.ErrNotFound)
	}

	if err := idx.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete entry %s: %w", id, err)
	}

	idx.mu.Lock()
	delete(idx.entries, id)
	idx.mu.Unlock()
	return nil
}

// RemoveDocument deletes every entry belonging to documentID and returns how many were removed
func (idx *VectorIndex) RemoveDocument(ctx context.Context, documentID string) (int, error) {
	var ids []string
	for _, e := range idx.Entries() {
		if e.DocumentID == documentID {
			ids = append(ids, e.ID)
		}
	}

	removed := 0
	for _, id := range ids {
		if err := idx.Remove(ctx, id); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// Get returns a copy of the entry with the given id
func (idx *VectorIndex) Get(id string) (models.IndexEntry, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	e, ok := idx.entries[id]
	if !ok {
		return models.IndexEntry{}, fmt.Errorf("entry %s: %w", id, models.ErrNotFound)
	}
	e.Embedding = append([]float32(nil), e.Embedding...)
	return e, nil
}

// Count returns the number of entries
func (idx *VectorIndex) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// Dimension returns the established dimension, or zero if none is set yet
func (idx *VectorIndex) Dimension() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.dimension
}

// Entries returns every entry in insertion order
func (idx *VectorIndex) Entries() []models.IndexEntry {
	idx.mu.RLock()
	out := make([]models.IndexEntry, 0, len(idx.entries))
	for _, e := range idx.entries {
		out = append(out, e)
	}
	idx.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// Documents returns the distinct document ids in the index with their chunk counts
func (idx *VectorIndex) Documents() map[string]int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	docs := make(map[string]int)
	for _, e := range idx.entries {
		docs[e.DocumentID]++
	}
	return docs
}

// Close closes the underlying store
func (idx *VectorIndex) Close() error {
	return idx.store.Close()
}

// Syncer is implemented by stores that replicate to a remote (charm)
type Syncer interface {
	Sync() error
}

// Sync pushes and pulls the backing store when it supports replication
func (idx *VectorIndex) Sync() error {
	s, ok := idx.store.(Syncer)
	if !ok {
		return ErrSyncUnsupported
	}
	return s.Sync()
}

// EuclideanDistance returns the L2 distance between two equal-length vectors
func EuclideanDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// keyedMutex hands out one mutex per key, freeing it once no caller holds or waits on it
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyLock)}
}

// Lock acquires the mutex for key and returns its release func
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
