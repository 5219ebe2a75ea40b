// ABOUTME: Backend selection for the vector index
// ABOUTME: Opens a sqlite, charm, or in-memory EntryStore and loads it into a VectorIndex
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/harper/docqa/internal/logger"
	"github.com/harper/docqa/internal/models"
	"github.com/harper/docqa/internal/storage/charmkv"
	"github.com/harper/docqa/internal/storage/sqlite"
)

// Index backends
const (
	BackendSQLite = "sqlite"
	BackendCharm  = "charm"
	BackendMemory = "memory"
)

var (
	// ErrStoreClosed is returned by stores used after Close
	ErrStoreClosed = errors.New("store closed")
	// ErrSyncUnsupported is returned by Sync on backends without a remote
	ErrSyncUnsupported = errors.New("index backend does not support sync")
)

// Options selects and configures an index backend
type Options struct {
	Backend   string
	DBPath    string
	Dimension int
	Charm     charmkv.Config
}

// OpenStore opens the EntryStore named by opts.Backend
func OpenStore(opts Options) (EntryStore, error) {
	switch opts.Backend {
	case BackendSQLite, "":
		path := opts.DBPath
		if path == "" {
			path = sqlite.DefaultDBPath()
		}
		db, err := sqlite.Open(path)
		if err != nil {
			return nil, err
		}
		logger.Debug("opened sqlite index", "path", db.Path())
		return sqlite.NewEntryStore(db), nil
	case BackendCharm:
		return charmkv.Open(opts.Charm)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, models.InvalidConfig("unknown index backend %q", opts.Backend)
	}
}

// Open opens the configured backend and loads it into a VectorIndex
func Open(ctx context.Context, opts Options) (*VectorIndex, error) {
	store, err := OpenStore(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s index: %w", opts.Backend, err)
	}

	idx, err := NewVectorIndex(ctx, store, opts.Dimension)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return idx, nil
}
