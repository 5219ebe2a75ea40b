// ABOUTME: Retriever embeds a question and returns the nearest indexed chunks
// ABOUTME: Embedding calls go through the retry policy; failures carry the query text
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/harper/docqa/internal/logger"
	"github.com/harper/docqa/internal/models"
	"github.com/harper/docqa/internal/util"
)

// DefaultTopK is the number of chunks retrieved per question
const DefaultTopK = 2

// Retriever performs vector search for a natural-language question
type Retriever struct {
	embedder Embedder
	index    Index
	retry    util.RetryPolicy
}

// NewRetriever creates a Retriever
func NewRetriever(embedder Embedder, index Index, retry util.RetryPolicy) *Retriever {
	return &Retriever{
		embedder: embedder,
		index:    index,
		retry:    retry,
	}
}

// Retrieve returns up to k chunks nearest to question, nearest first
func (r *Retriever) Retrieve(ctx context.Context, question string, k int) ([]models.QueryResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, models.InvalidConfig("question must not be empty")
	}
	if k <= 0 {
		return nil, models.InvalidConfig("k must be positive, got %d", k)
	}

	var vector []float32
	err := r.retry.Do(ctx, func(ctx context.Context) error {
		vectors, err := r.embedder.Embed(ctx, []string{question})
		if err != nil {
			return err
		}
		if len(vectors) != 1 {
			return models.NewServiceError(models.ErrEmbeddingService, "embed",
				fmt.Errorf("expected 1 embedding, got %d", len(vectors)))
		}
		vector = vectors[0]
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query %q: %w", question, withSubject(err, question))
	}

	results, err := r.index.Query(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("failed to query index for %q: %w", question, err)
	}

	logger.Debug("retrieved chunks", "query", question, "k", k, "results", len(results))
	return results, nil
}

// withSubject records subject on the first ServiceError in err's chain
func withSubject(err error, subject string) error {
	var svc *models.ServiceError
	if errors.As(err, &svc) && svc.Subject == "" {
		svc.Subject = subject
	}
	return err
}
