// ABOUTME: Tests for the ingestion orchestrator
// ABOUTME: Covers partial failure, retry, fallback, dimension mismatch, cancellation, and concurrency bounds
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/harper/docqa/internal/models"
	"github.com/harper/docqa/internal/util"
)

func testRetry() util.RetryPolicy {
	return util.RetryPolicy{MaxAttempts: 3, Retryable: models.IsRetryable}
}

func newTestIngestor(t *testing.T, size, overlap int, emb Embedder, idx Index, opts IngestOptions) *Ingestor {
	t.Helper()
	ce, err := NewChunkEngine(size, overlap)
	if err != nil {
		t.Fatalf("NewChunkEngine() error = %v", err)
	}
	in, err := NewIngestor(ce, emb, idx, opts)
	if err != nil {
		t.Fatalf("NewIngestor() error = %v", err)
	}
	return in
}

func TestNewIngestor_Validation(t *testing.T) {
	ce, _ := NewChunkEngine(10, 1)
	tests := []struct {
		name string
		opts IngestOptions
	}{
		{"zero workers", IngestOptions{Workers: 0, BatchSize: 1}},
		{"zero batch", IngestOptions{Workers: 1, BatchSize: 0}},
		{"negative rate", IngestOptions{Workers: 1, BatchSize: 1, RateLimit: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewIngestor(ce, &fakeEmbedder{}, newMemoryIndex(t), tt.opts)
			if !errors.Is(err, models.ErrInvalidConfiguration) {
				t.Errorf("NewIngestor() error = %v, want ErrInvalidConfiguration", err)
			}
		})
	}
}

func TestIngest_AllIndexed(t *testing.T) {
	idx := newMemoryIndex(t)
	in := newTestIngestor(t, 4, 1, &fakeEmbedder{}, idx, IngestOptions{Workers: 2, BatchSize: 2, Retry: testRetry()})

	docs := []models.Document{
		{ID: "letters.txt", Text: "abcdefghij"},
		{ID: "short.txt", Text: "hey"},
	}
	report, err := in.Ingest(context.Background(), docs)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	if report.RunID == "" {
		t.Error("RunID should be set")
	}
	if report.TotalChunks() != 5 || report.TotalIndexed() != 5 {
		t.Errorf("chunks=%d indexed=%d, want 5/5", report.TotalChunks(), report.TotalIndexed())
	}
	for _, d := range report.Documents {
		if d.State != models.StateIndexed {
			t.Errorf("%s state = %s, want INDEXED", d.DocumentID, d.State)
		}
	}
	if idx.Count() != 5 {
		t.Errorf("index Count() = %d, want 5", idx.Count())
	}
	if _, err := idx.Get("letters.txt_chunk4"); err != nil {
		t.Errorf("expected letters.txt_chunk4 in index: %v", err)
	}
}

func TestIngest_EmptyDocument(t *testing.T) {
	in := newTestIngestor(t, 4, 1, &fakeEmbedder{}, newMemoryIndex(t), IngestOptions{Workers: 1, BatchSize: 1})

	report, err := in.Ingest(context.Background(), []models.Document{{ID: "empty.txt", Text: ""}})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	d := report.Documents[0]
	if d.ChunkCount != 0 || d.State != models.StateIndexed {
		t.Errorf("empty document report = %+v", d)
	}
}

func TestIngest_OneChunkTimesOut(t *testing.T) {
	idx := newMemoryIndex(t)
	// "defg" always times out; batches that contain it fail, then per-chunk fallback isolates it
	emb := &fakeEmbedder{fail: func(call int, texts []string) error {
		for _, text := range texts {
			if text == "defg" {
				return timeoutErr()
			}
		}
		return nil
	}}
	in := newTestIngestor(t, 4, 1, emb, idx, IngestOptions{Workers: 2, BatchSize: 3, Retry: testRetry()})

	report, err := in.Ingest(context.Background(), []models.Document{{ID: "doc", Text: "abcdefghi"}})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	d := report.Documents[0]
	if d.ChunkCount != 3 || d.Indexed != 2 {
		t.Fatalf("ChunkCount=%d Indexed=%d, want 3/2", d.ChunkCount, d.Indexed)
	}
	if d.State != models.StateChunked {
		t.Errorf("State = %s, want CHUNKED", d.State)
	}
	if len(d.Failures) != 1 {
		t.Fatalf("Failures = %d, want 1", len(d.Failures))
	}
	f := d.Failures[0]
	if f.ChunkID != "doc_chunk2" {
		t.Errorf("failed chunk = %s, want doc_chunk2", f.ChunkID)
	}
	if !errors.Is(f.Err, models.ErrTimeout) {
		t.Errorf("failure error = %v, want ErrTimeout", f.Err)
	}
	var ce *models.ChunkError
	if !errors.As(f.Err, &ce) || ce.DocumentID != "doc" {
		t.Errorf("failure should carry document context, got %v", f.Err)
	}

	if idx.Count() != 2 {
		t.Errorf("index Count() = %d, want 2", idx.Count())
	}
}

func TestIngest_TransientFailureRetried(t *testing.T) {
	emb := &fakeEmbedder{fail: func(call int, texts []string) error {
		if call == 1 {
			return models.NewServiceError(models.ErrEmbeddingService, "embed", errors.New("503"))
		}
		return nil
	}}
	in := newTestIngestor(t, 100, 0, emb, newMemoryIndex(t), IngestOptions{Workers: 1, BatchSize: 8, Retry: testRetry()})

	report, err := in.Ingest(context.Background(), []models.Document{{ID: "doc", Text: "one chunk"}})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if report.TotalIndexed() != 1 {
		t.Errorf("TotalIndexed() = %d, want 1", report.TotalIndexed())
	}
	if emb.Calls() != 2 {
		t.Errorf("embed calls = %d, want 2", emb.Calls())
	}
}

func TestIngest_PermanentFailureNotRetried(t *testing.T) {
	emb := &fakeEmbedder{fail: func(call int, texts []string) error {
		return &models.ServiceError{Kind: models.ErrEmbeddingService, Op: "embed", Permanent: true, Err: errors.New("400")}
	}}
	in := newTestIngestor(t, 100, 0, emb, newMemoryIndex(t), IngestOptions{Workers: 1, BatchSize: 8, Retry: testRetry()})

	report, err := in.Ingest(context.Background(), []models.Document{{ID: "doc", Text: "one chunk"}})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if len(report.Failures()) != 1 {
		t.Errorf("Failures = %d, want 1", len(report.Failures()))
	}
	if emb.Calls() != 1 {
		t.Errorf("embed calls = %d, want 1", emb.Calls())
	}
}

func TestIngest_DimensionMismatchPerChunk(t *testing.T) {
	idx := newMemoryIndex(t)
	emb := &fakeEmbedder{vector: func(text string) []float32 {
		if text == "odd" {
			return []float32{1, 2}
		}
		return []float32{1, 2, 3}
	}}
	in := newTestIngestor(t, 3, 0, emb, idx, IngestOptions{Workers: 1, BatchSize: 1, Retry: testRetry()})

	report, err := in.Ingest(context.Background(), []models.Document{
		{ID: "a", Text: "abc"},
		{ID: "b", Text: "odd"},
		{ID: "c", Text: "xyz"},
	})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	failures := report.Failures()
	if len(failures) != 1 {
		t.Fatalf("Failures = %d, want 1", len(failures))
	}
	if !errors.Is(failures[0].Err, models.ErrDimensionMismatch) {
		t.Errorf("failure = %v, want ErrDimensionMismatch", failures[0].Err)
	}
	if failures[0].Stage != models.StateEmbedded {
		t.Errorf("Stage = %s, want EMBEDDED", failures[0].Stage)
	}
	if report.Documents[1].State != models.StateEmbedded {
		t.Errorf("document b state = %s, want EMBEDDED", report.Documents[1].State)
	}
	if emb.Calls() != 3 {
		t.Errorf("embed calls = %d, want 3 (mismatch is not retried)", emb.Calls())
	}
}

func TestIngest_BatchFallbackIsolatesChunk(t *testing.T) {
	idx := newMemoryIndex(t)
	emb := &fakeEmbedder{fail: func(call int, texts []string) error {
		for _, text := range texts {
			if strings.Contains(text, "X") {
				return models.NewServiceError(models.ErrEmbeddingService, "embed", errors.New("rejected input"))
			}
		}
		return nil
	}}
	in := newTestIngestor(t, 2, 0, emb, idx, IngestOptions{Workers: 1, BatchSize: 4, Retry: util.NoRetry()})

	report, err := in.Ingest(context.Background(), []models.Document{{ID: "doc", Text: "aabbXXcc"}})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if report.TotalIndexed() != 3 {
		t.Errorf("TotalIndexed() = %d, want 3", report.TotalIndexed())
	}
	failures := report.Failures()
	if len(failures) != 1 || failures[0].ChunkID != "doc_chunk3" {
		t.Errorf("Failures = %+v, want only doc_chunk3", failures)
	}
	// one batch call plus four single-chunk calls
	if emb.Calls() != 5 {
		t.Errorf("embed calls = %d, want 5", emb.Calls())
	}
}

func TestIngest_ConfigurationErrorIsFatal(t *testing.T) {
	emb := &fakeEmbedder{fail: func(call int, texts []string) error {
		return models.InvalidConfig("embedding model not configured")
	}}
	in := newTestIngestor(t, 2, 0, emb, newMemoryIndex(t), IngestOptions{Workers: 1, BatchSize: 1, Retry: testRetry()})

	report, err := in.Ingest(context.Background(), []models.Document{{ID: "doc", Text: "aabbccdd"}})
	if !errors.Is(err, models.ErrInvalidConfiguration) {
		t.Fatalf("Ingest() error = %v, want ErrInvalidConfiguration", err)
	}
	if report.TotalIndexed() != 0 {
		t.Errorf("TotalIndexed() = %d, want 0", report.TotalIndexed())
	}
	if emb.Calls() != 1 {
		t.Errorf("embed calls = %d, want 1 (run stops after a configuration error)", emb.Calls())
	}
}

func TestIngest_Cancellation(t *testing.T) {
	idx := newMemoryIndex(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	emb := &fakeEmbedder{}
	emb.fail = func(call int, texts []string) error {
		if call == 2 {
			cancel()
			return context.Canceled
		}
		return nil
	}
	in := newTestIngestor(t, 2, 0, emb, idx, IngestOptions{Workers: 1, BatchSize: 1, Retry: testRetry()})

	report, err := in.Ingest(ctx, []models.Document{{ID: "doc", Text: "aabbccddee"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Ingest() error = %v, want context.Canceled", err)
	}

	if emb.Calls() != 2 {
		t.Errorf("embed calls = %d, want 2 (no calls after cancellation)", emb.Calls())
	}
	if report.TotalIndexed() != 1 || idx.Count() != 1 {
		t.Errorf("indexed = %d, index Count = %d; want 1/1", report.TotalIndexed(), idx.Count())
	}
	failures := report.Failures()
	if len(failures) != 4 {
		t.Fatalf("Failures = %d, want 4", len(failures))
	}
	for _, f := range failures {
		if !errors.Is(f.Err, context.Canceled) {
			t.Errorf("%s failure = %v, want context.Canceled", f.ChunkID, f.Err)
		}
	}
}

func TestIngest_RespectsWorkerBound(t *testing.T) {
	emb := &fakeEmbedder{}
	in := newTestIngestor(t, 5, 0, emb, newMemoryIndex(t), IngestOptions{Workers: 3, BatchSize: 1, Retry: testRetry()})

	var docs []models.Document
	for i := 0; i < 10; i++ {
		docs = append(docs, models.Document{ID: fmt.Sprintf("d%d", i), Text: strings.Repeat("word ", 10)})
	}

	report, err := in.Ingest(context.Background(), docs)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if report.TotalIndexed() != 100 {
		t.Errorf("TotalIndexed() = %d, want 100", report.TotalIndexed())
	}
	if emb.maxSeen > 3 {
		t.Errorf("max concurrent embed calls = %d, want <= 3", emb.maxSeen)
	}
}

func TestIngest_RateLimited(t *testing.T) {
	in := newTestIngestor(t, 100, 0, &fakeEmbedder{}, newMemoryIndex(t), IngestOptions{Workers: 2, BatchSize: 1, RateLimit: 1000, Retry: testRetry()})

	report, err := in.Ingest(context.Background(), []models.Document{{ID: "a", Text: "x"}, {ID: "b", Text: "y"}})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if report.TotalIndexed() != 2 {
		t.Errorf("TotalIndexed() = %d, want 2", report.TotalIndexed())
	}
}

func TestIngest_ReingestIsIdempotent(t *testing.T) {
	idx := newMemoryIndex(t)
	in := newTestIngestor(t, 4, 1, &fakeEmbedder{}, idx, IngestOptions{Workers: 2, BatchSize: 2, Retry: testRetry()})
	docs := []models.Document{{ID: "letters.txt", Text: "abcdefghij"}}

	if _, err := in.Ingest(context.Background(), docs); err != nil {
		t.Fatalf("first Ingest() error = %v", err)
	}
	if _, err := in.Ingest(context.Background(), docs); err != nil {
		t.Fatalf("second Ingest() error = %v", err)
	}
	if idx.Count() != 4 {
		t.Errorf("Count() = %d after re-ingest, want 4", idx.Count())
	}
}

func TestIngest_ReingestShorterDocumentPrunesStaleChunks(t *testing.T) {
	idx := newMemoryIndex(t)
	in := newTestIngestor(t, 4, 0, &fakeEmbedder{}, idx, IngestOptions{Workers: 2, BatchSize: 2, Retry: testRetry()})

	first := []models.Document{
		{ID: "doc", Text: "aaaabbbbcccc"},
		{ID: "other", Text: "xxxxyyyy"},
	}
	if _, err := in.Ingest(context.Background(), first); err != nil {
		t.Fatalf("first Ingest() error = %v", err)
	}

	report, err := in.Ingest(context.Background(), []models.Document{{ID: "doc", Text: "zzzz"}})
	if err != nil {
		t.Fatalf("second Ingest() error = %v", err)
	}
	if got := report.Documents[0].Pruned; got != 2 {
		t.Errorf("Pruned = %d, want 2", got)
	}

	var docTexts []string
	for _, e := range idx.Entries() {
		if e.DocumentID == "doc" {
			docTexts = append(docTexts, e.ID+"="+e.Text)
		}
	}
	if want := "doc_chunk1=zzzz"; strings.Join(docTexts, ",") != want {
		t.Errorf("doc entries = %v, want [%s]", docTexts, want)
	}
	if idx.Count() != 3 {
		t.Errorf("Count() = %d, want 3 (other document untouched)", idx.Count())
	}
}

func TestIngest_PartialReingestKeepsStaleChunks(t *testing.T) {
	idx := newMemoryIndex(t)
	in := newTestIngestor(t, 4, 0, &fakeEmbedder{}, idx, IngestOptions{Workers: 1, BatchSize: 1, Retry: testRetry()})
	if _, err := in.Ingest(context.Background(), []models.Document{{ID: "doc", Text: "aaaabbbbcccc"}}); err != nil {
		t.Fatalf("first Ingest() error = %v", err)
	}

	emb := &fakeEmbedder{fail: func(call int, texts []string) error {
		if texts[0] == "wwww" {
			return &models.ServiceError{Kind: models.ErrEmbeddingService, Op: "embed", Permanent: true, Err: errors.New("400")}
		}
		return nil
	}}
	in = newTestIngestor(t, 4, 0, emb, idx, IngestOptions{Workers: 1, BatchSize: 1, Retry: testRetry()})
	report, err := in.Ingest(context.Background(), []models.Document{{ID: "doc", Text: "zzzzwwww"}})
	if err != nil {
		t.Fatalf("second Ingest() error = %v", err)
	}
	d := report.Documents[0]
	if d.State == models.StateIndexed || d.Pruned != 0 {
		t.Errorf("State=%s Pruned=%d, want not INDEXED and nothing pruned", d.State, d.Pruned)
	}
	if _, err := idx.Get("doc_chunk3"); err != nil {
		t.Errorf("doc_chunk3 should survive a partial re-ingest: %v", err)
	}
}
