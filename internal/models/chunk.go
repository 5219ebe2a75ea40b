// ABOUTME: Chunk represents an overlapping window of a document's text
// ABOUTME: Chunk IDs are derived from the document ID and sequence index
package models

import "fmt"

// Chunk is one fixed-size window of a Document
type Chunk struct {
	ID            string    `json:"id"`
	DocumentID    string    `json:"document_id"`
	SequenceIndex int       `json:"sequence_index"`
	Text          string    `json:"text"`
	Embedding     []float32 `json:"embedding,omitempty"`
}

// ChunkID builds the stable id for the chunk at seq (zero-based) of docID.
// The suffix is one-based: "notes.txt_chunk1" is the first chunk.
func ChunkID(docID string, seq int) string {
	return fmt.Sprintf("%s_chunk%d", docID, seq+1)
}

// HasEmbedding reports whether an embedding has been attached
func (c Chunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}
