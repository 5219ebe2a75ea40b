// ABOUTME: Charm KV backed EntryStore with optional cloud sync
// ABOUTME: Entries are JSON values under entry:<id>; the index dimension lives under meta:dimension
package charmkv

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/charm/client"
	"github.com/charmbracelet/charm/kv"
	"github.com/harper/docqa/internal/logger"
	"github.com/harper/docqa/internal/models"
)

// Key prefixes for stored values
const (
	EntryPrefix  = "entry:"
	MetaPrefix   = "meta:"
	DimensionKey = MetaPrefix + "dimension"
)

// Config holds charm store configuration
type Config struct {
	Host     string
	DBName   string
	AutoSync bool
}

// DefaultConfig returns default configuration for the charm store
func DefaultConfig() Config {
	host := os.Getenv("CHARM_HOST")
	if host == "" {
		host = "charm.2389.dev"
	}
	return Config{
		Host:     host,
		DBName:   "docqa",
		AutoSync: true,
	}
}

// kvBackend is the subset of *kv.KV the store uses
type kvBackend interface {
	Set(key, value []byte) error
	Get(key []byte) ([]byte, error)
	Delete(key []byte) error
	Keys() ([][]byte, error)
	Sync() error
	Reset() error
	Close() error
}

// Store persists index entries in a charm KV database
type Store struct {
	kv     kvBackend
	config Config
	mu     sync.Mutex
}

// Open opens the charm KV database named in cfg, pulling remote data first when AutoSync is set
func Open(cfg Config) (*Store, error) {
	if cfg.DBName == "" {
		return nil, models.InvalidConfig("charm database name must not be empty")
	}
	if cfg.Host != "" {
		// charm reads its server from the environment
		if err := os.Setenv("CHARM_HOST", cfg.Host); err != nil {
			return nil, fmt.Errorf("failed to set CHARM_HOST: %w", err)
		}
	}

	db, err := kv.OpenWithDefaults(cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("failed to open charm kv: %w", err)
	}

	s := newStore(db, cfg)
	s.syncIfEnabled()
	return s, nil
}

func newStore(backend kvBackend, cfg Config) *Store {
	return &Store{kv: backend, config: cfg}
}

// syncIfEnabled syncs with the charm cloud when AutoSync is set. A failed
// sync leaves the local write in place, so it is logged rather than returned.
func (s *Store) syncIfEnabled() {
	if !s.config.AutoSync {
		return
	}
	if err := s.kv.Sync(); err != nil {
		logger.Warn("charm sync failed", "db", s.config.DBName, "host", s.config.Host, "err", err)
	}
}

// Save stores entry as JSON under its entry key
func (s *Store) Save(ctx context.Context, entry models.IndexEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Set([]byte(EntryKey(entry.ID)), data); err != nil {
		return fmt.Errorf("failed to set key %s: %w", EntryKey(entry.ID), err)
	}
	s.syncIfEnabled()
	return nil
}

// Delete removes an entry
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Delete([]byte(EntryKey(id))); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", EntryKey(id), err)
	}
	s.syncIfEnabled()
	return nil
}

// Load decodes every stored entry
func (s *Store) Load(ctx context.Context) ([]models.IndexEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys, err := s.listKeys(EntryPrefix)
	if err != nil {
		return nil, err
	}

	entries := make([]models.IndexEntry, 0, len(keys))
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := s.kv.Get([]byte(key))
		if err != nil {
			return nil, fmt.Errorf("failed to get key %s: %w", key, err)
		}
		var e models.IndexEntry
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", key, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Dimension returns the stored dimension, or zero if unset
func (s *Store) Dimension(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys, err := s.listKeys(DimensionKey)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	data, err := s.kv.Get([]byte(DimensionKey))
	if err != nil {
		return 0, fmt.Errorf("failed to get key %s: %w", DimensionKey, err)
	}
	dim, err := strconv.Atoi(string(data))
	if err != nil {
		return 0, fmt.Errorf("invalid stored dimension %q: %w", data, err)
	}
	return dim, nil
}

// SetDimension stores the index dimension
func (s *Store) SetDimension(ctx context.Context, dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Set([]byte(DimensionKey), []byte(strconv.Itoa(dim))); err != nil {
		return fmt.Errorf("failed to set key %s: %w", DimensionKey, err)
	}
	s.syncIfEnabled()
	return nil
}

// listKeys returns all keys with the given prefix; callers hold s.mu
func (s *Store) listKeys(prefix string) ([]string, error) {
	keys, err := s.kv.Keys()
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}

	var result []string
	for _, key := range keys {
		if k := string(key); strings.HasPrefix(k, prefix) {
			result = append(result, k)
		}
	}
	return result, nil
}

// Sync manually triggers a sync with the cloud
func (s *Store) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.Sync()
}

// Reset wipes all local data
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.Reset()
}

// Close closes the KV database
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.kv == nil {
		return nil
	}
	err := s.kv.Close()
	s.kv = nil
	return err
}

// UserID returns the charm account id that owns the synced data
func UserID() (string, error) {
	cc, err := client.NewClientWithDefaults()
	if err != nil {
		return "", fmt.Errorf("failed to create charm client: %w", err)
	}
	return cc.ID()
}

// AuthorizedKeys returns the SSH keys linked to the charm account
func AuthorizedKeys() (string, error) {
	cc, err := client.NewClientWithDefaults()
	if err != nil {
		return "", fmt.Errorf("failed to create charm client: %w", err)
	}
	return cc.AuthorizedKeys()
}

// EntryKey generates the key for an index entry
func EntryKey(id string) string {
	return EntryPrefix + id
}
