// ABOUTME: EntryStore implementation persisting index entries in SQLite
// ABOUTME: Upserts keep the original insertion sequence so tie order survives restarts
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/harper/docqa/internal/models"
)

const dimensionKey = "dimension"

// EntryStore handles index entry persistence
type EntryStore struct {
	db *DB
}

// NewEntryStore creates a new EntryStore
func NewEntryStore(db *DB) *EntryStore {
	return &EntryStore{db: db}
}

// Save inserts or replaces an entry by id
func (s *EntryStore) Save(ctx context.Context, entry models.IndexEntry) error {
	updatedAt := entry.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chunks (id, document_id, text, vector, seq, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document_id = excluded.document_id,
			text = excluded.text,
			vector = excluded.vector,
			updated_at = excluded.updated_at
	`, entry.ID, entry.DocumentID, entry.Text, vectorToBlob(entry.Embedding), entry.Seq, updatedAt)
	return err
}

// Delete removes an entry by id
func (s *EntryStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM chunks WHERE id = ?", id)
	return err
}

// Load returns every entry ordered by insertion sequence
func (s *EntryStore) Load(ctx context.Context) ([]models.IndexEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, text, vector, seq, updated_at
		FROM chunks
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []models.IndexEntry
	for rows.Next() {
		var (
			e    models.IndexEntry
			blob []byte
		)
		if err := rows.Scan(&e.ID, &e.DocumentID, &e.Text, &blob, &e.Seq, &e.UpdatedAt); err != nil {
			return nil, err
		}
		e.Embedding, err = blobToVector(blob)
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Dimension returns the persisted index dimension, or zero if unset
func (s *EntryStore) Dimension(ctx context.Context) (int, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM index_meta WHERE key = ?", dimensionKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	dim, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid stored dimension %q: %w", value, err)
	}
	return dim, nil
}

// SetDimension persists the index dimension
func (s *EntryStore) SetDimension(ctx context.Context, dim int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO index_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, dimensionKey, strconv.Itoa(dim))
	return err
}

// Close closes the database
func (s *EntryStore) Close() error {
	return s.db.Close()
}
