// ABOUTME: Tests for Retriever and Answerer
// ABOUTME: Verifies nearest-chunk retrieval, query error context, budgets, and generation retry
package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/harper/docqa/internal/models"
	"github.com/harper/docqa/internal/util"
)

func seededIndex(t *testing.T) Index {
	t.Helper()
	idx := newMemoryIndex(t)
	ctx := context.Background()
	for _, e := range []models.IndexEntry{
		{ID: "x_chunk1", DocumentID: "x", Text: "X", Embedding: []float32{1, 0}},
		{ID: "y_chunk1", DocumentID: "y", Text: "Y", Embedding: []float32{0, 1}},
		{ID: "z_chunk1", DocumentID: "z", Text: "Z", Embedding: []float32{-1, -1}},
	} {
		if err := idx.Upsert(ctx, e); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}
	return idx
}

func fixedEmbedder(vec ...float32) *fakeEmbedder {
	return &fakeEmbedder{vector: func(string) []float32 { return vec }}
}

func TestRetriever_Retrieve(t *testing.T) {
	r := NewRetriever(fixedEmbedder(0.9, 0.1), seededIndex(t), testRetry())

	results, err := r.Retrieve(context.Background(), "what is x?", 2)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(results) != 2 || results[0].ChunkID != "x_chunk1" || results[1].ChunkID != "y_chunk1" {
		t.Errorf("Retrieve() = %+v, want x then y", results)
	}
}

func TestRetriever_InvalidInput(t *testing.T) {
	r := NewRetriever(fixedEmbedder(1, 0), seededIndex(t), testRetry())

	for _, tc := range []struct {
		question string
		k        int
	}{
		{"", 2},
		{"   ", 2},
		{"q", 0},
	} {
		_, err := r.Retrieve(context.Background(), tc.question, tc.k)
		if !errors.Is(err, models.ErrInvalidConfiguration) {
			t.Errorf("Retrieve(%q, %d) error = %v, want ErrInvalidConfiguration", tc.question, tc.k, err)
		}
	}
}

func TestRetriever_EmbeddingFailureCarriesQuery(t *testing.T) {
	emb := &fakeEmbedder{fail: func(int, []string) error { return timeoutErr() }}
	r := NewRetriever(emb, seededIndex(t), testRetry())

	_, err := r.Retrieve(context.Background(), "where is the bridge?", 2)
	if !errors.Is(err, models.ErrTimeout) || !errors.Is(err, models.ErrEmbeddingService) {
		t.Fatalf("Retrieve() error = %v, want embedding timeout", err)
	}
	var svc *models.ServiceError
	if !errors.As(err, &svc) || svc.Subject != "where is the bridge?" {
		t.Errorf("ServiceError subject = %+v", svc)
	}
	if emb.Calls() != 3 {
		t.Errorf("embed calls = %d, want 3 attempts", emb.Calls())
	}
}

func TestRetriever_DimensionMismatch(t *testing.T) {
	r := NewRetriever(fixedEmbedder(1, 0, 0), seededIndex(t), testRetry())

	_, err := r.Retrieve(context.Background(), "q", 1)
	if !errors.Is(err, models.ErrDimensionMismatch) {
		t.Errorf("Retrieve() error = %v, want ErrDimensionMismatch", err)
	}
}

func TestAnswerer_Ask(t *testing.T) {
	gen := &fakeCompleter{responses: []string{"X is the first letter."}}
	a := NewAnswerer(NewRetriever(fixedEmbedder(1, 0), seededIndex(t), testRetry()), gen, testRetry(), 0)

	answer, err := a.Ask(context.Background(), "What is X?", 2)
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if answer.Text != "X is the first letter." {
		t.Errorf("Text = %q", answer.Text)
	}
	if len(answer.Sources) != 2 {
		t.Errorf("Sources = %d, want 2", len(answer.Sources))
	}
	if !strings.Contains(gen.lastSystem, "Context:\nX\n\nY") {
		t.Errorf("system prompt missing assembled context:\n%s", gen.lastSystem)
	}
	if gen.lastUser != "What is X?" {
		t.Errorf("user message = %q", gen.lastUser)
	}
}

func TestAnswerer_Budget(t *testing.T) {
	gen := &fakeCompleter{responses: []string{"ok"}}
	a := NewAnswerer(NewRetriever(fixedEmbedder(1, 0), seededIndex(t), testRetry()), gen, testRetry(), 1)

	answer, err := a.Ask(context.Background(), "What is X?", 3)
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if answer.Dropped != 2 || len(answer.Sources) != 1 {
		t.Errorf("Dropped=%d Sources=%d, want 2/1", answer.Dropped, len(answer.Sources))
	}
}

func TestAnswerer_GenerationRetried(t *testing.T) {
	transient := models.NewServiceError(models.ErrGenerationService, "chat", errors.New("502"))
	gen := &fakeCompleter{errs: []error{transient}, responses: []string{"", "second try"}}
	a := NewAnswerer(NewRetriever(fixedEmbedder(1, 0), seededIndex(t), testRetry()), gen, testRetry(), 0)

	answer, err := a.Ask(context.Background(), "q", 1)
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if answer.Text != "second try" {
		t.Errorf("Text = %q", answer.Text)
	}
}

func TestAnswerer_GenerationFailure(t *testing.T) {
	permanent := &models.ServiceError{Kind: models.ErrGenerationService, Op: "chat", Permanent: true, Err: errors.New("401")}
	gen := &fakeCompleter{errs: []error{permanent}}
	a := NewAnswerer(NewRetriever(fixedEmbedder(1, 0), seededIndex(t), util.NoRetry()), gen, testRetry(), 0)

	_, err := a.Ask(context.Background(), "q", 1)
	if !errors.Is(err, models.ErrGenerationService) {
		t.Errorf("Ask() error = %v, want ErrGenerationService", err)
	}
	if gen.calls != 1 {
		t.Errorf("generation calls = %d, want 1", gen.calls)
	}
}

func TestGenerateAnswer(t *testing.T) {
	gen := &fakeCompleter{responses: []string{"answer"}}
	text, err := GenerateAnswer(context.Background(), gen, "Q?", "ctx text")
	if err != nil || text != "answer" {
		t.Fatalf("GenerateAnswer() = %q, %v", text, err)
	}
	if gen.lastSystem != BuildPrompt("Q?", "ctx text") {
		t.Error("system message should be the built prompt")
	}
}
