// ABOUTME: Index entries and query results for vector storage and semantic search
// ABOUTME: Defines IndexEntry and QueryResult structures
package models

import "time"

// IndexEntry is a chunk as stored in the vector index
type IndexEntry struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Text       string    `json:"text"`
	Embedding  []float32 `json:"embedding"`
	// Seq is the insertion sequence, assigned on first insert and kept on replace
	Seq       int64     `json:"seq"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EntryFromChunk converts an embedded chunk into an index entry
func EntryFromChunk(c Chunk) IndexEntry {
	return IndexEntry{
		ID:         c.ID,
		DocumentID: c.DocumentID,
		Text:       c.Text,
		Embedding:  c.Embedding,
	}
}

// QueryResult is one nearest-neighbour hit, smaller Distance is nearer
type QueryResult struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Text       string  `json:"text"`
	Distance   float64 `json:"distance"`
}
