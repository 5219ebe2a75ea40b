// ABOUTME: Interfaces the core pipeline needs from embedding, completion, and index services
// ABOUTME: Implemented by llm.OpenAIClient and storage.VectorIndex; faked in tests
package core

import (
	"context"

	"github.com/harper/docqa/internal/models"
)

// Embedder turns texts into vectors, one per input in input order
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Completer sends a system and user message to a chat model
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// StructuredCompleter can also request schema-constrained JSON output.
// On a decode failure it returns the raw text with an error matching models.ErrParse.
type StructuredCompleter interface {
	Completer
	GenerateStructured(ctx context.Context, system, user, name string, out any) (string, error)
}

// Index stores embedded chunks and answers nearest-neighbour queries
type Index interface {
	Upsert(ctx context.Context, entry models.IndexEntry) error
	Query(ctx context.Context, embedding []float32, k int) ([]models.QueryResult, error)
	Remove(ctx context.Context, id string) error
	Entries() []models.IndexEntry
}
