// ABOUTME: Ingestor drives documents through chunking, embedding, and indexing
// ABOUTME: Embeds batches on a bounded worker pool with rate limiting, retry, and per-chunk fallback
package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/harper/docqa/internal/logger"
	"github.com/harper/docqa/internal/models"
	"github.com/harper/docqa/internal/util"
	"github.com/panjf2000/ants/v2"
	"golang.org/x/time/rate"
)

// Ingestion defaults
const (
	DefaultWorkers   = 4
	DefaultBatchSize = 16
)

// IngestOptions tunes the embedding fan-out
type IngestOptions struct {
	// Workers bounds concurrent embedding calls
	Workers int
	// BatchSize is the number of chunks sent per embedding call
	BatchSize int
	// RateLimit caps embedding calls per second; zero means unlimited
	RateLimit float64
	Retry     util.RetryPolicy
}

// DefaultIngestOptions returns the default fan-out with the given retry policy
func DefaultIngestOptions(retry util.RetryPolicy) IngestOptions {
	return IngestOptions{
		Workers:   DefaultWorkers,
		BatchSize: DefaultBatchSize,
		Retry:     retry,
	}
}

// Ingestor indexes documents
type Ingestor struct {
	chunker  *ChunkEngine
	embedder Embedder
	index    Index
	opts     IngestOptions
	limiter  *rate.Limiter
}

// NewIngestor creates an Ingestor, rejecting unusable options
func NewIngestor(chunker *ChunkEngine, embedder Embedder, index Index, opts IngestOptions) (*Ingestor, error) {
	if chunker == nil {
		return nil, models.InvalidConfig("chunker is required")
	}
	if opts.Workers <= 0 {
		return nil, models.InvalidConfig("workers must be positive, got %d", opts.Workers)
	}
	if opts.BatchSize <= 0 {
		return nil, models.InvalidConfig("embed batch size must be positive, got %d", opts.BatchSize)
	}
	if opts.RateLimit < 0 {
		return nil, models.InvalidConfig("embed rate limit must not be negative, got %v", opts.RateLimit)
	}

	in := &Ingestor{
		chunker:  chunker,
		embedder: embedder,
		index:    index,
		opts:     opts,
	}
	if opts.RateLimit > 0 {
		in.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	return in, nil
}

// chunkOutcome is the furthest stage a chunk reached and why it stopped
type chunkOutcome struct {
	stage models.IngestState
	err   error
}

// ingestRun holds the shared state of one Ingest call
type ingestRun struct {
	*Ingestor
	ctx    context.Context
	cancel context.CancelCauseFunc

	fatalOnce sync.Once
	fatal     error
}

// Ingest chunks, embeds, and indexes docs. A failed chunk never stops other
// chunks or documents; failures are listed in the report. Configuration
// errors abort the run. When ctx is done no further embedding calls are
// made, already indexed entries stay, and ctx.Err() is returned with the report.
func (in *Ingestor) Ingest(ctx context.Context, docs []models.Document) (*models.IngestReport, error) {
	report := &models.IngestReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Documents: make([]models.DocumentReport, 0, len(docs)),
	}
	logger.Info("ingest started", "run", report.RunID, "documents", len(docs))

	var (
		all   []models.Chunk
		spans [][2]int
	)
	for _, doc := range docs {
		chunks, err := in.chunker.ChunkDocument(doc)
		if err != nil {
			return report, fmt.Errorf("failed to chunk %s: %w", doc.ID, err)
		}
		spans = append(spans, [2]int{len(all), len(all) + len(chunks)})
		all = append(all, chunks...)
	}

	outcomes := make([]chunkOutcome, len(all))
	for i := range outcomes {
		outcomes[i].stage = models.StateChunked
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	run := &ingestRun{Ingestor: in, ctx: runCtx, cancel: cancel}

	pool, err := ants.NewPool(in.opts.Workers)
	if err != nil {
		return report, fmt.Errorf("failed to create worker pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for _, span := range spans {
		for start := span[0]; start < span[1]; start += in.opts.BatchSize {
			end := min(start+in.opts.BatchSize, span[1])
			chunks, slots := all[start:end], outcomes[start:end]

			if runCtx.Err() != nil {
				markFailed(slots, context.Cause(runCtx))
				continue
			}

			wg.Add(1)
			err := pool.Submit(func() {
				defer wg.Done()
				run.processBatch(chunks, slots)
			})
			if err != nil {
				wg.Done()
				markFailed(slots, fmt.Errorf("failed to schedule batch: %w", err))
			}
		}
	}
	wg.Wait()

	for i, doc := range docs {
		chunks := all[spans[i][0]:spans[i][1]]
		dr := buildDocumentReport(doc.ID, chunks, outcomes[spans[i][0]:spans[i][1]])
		if dr.State == models.StateIndexed {
			dr.Pruned = in.pruneStale(ctx, doc.ID, chunks)
		}
		report.Documents = append(report.Documents, dr)
	}
	report.FinishedAt = time.Now().UTC()

	for _, f := range report.Failures() {
		logger.Warn("chunk not indexed", "document", f.DocumentID, "chunk", f.ChunkID, "stage", f.Stage, "err", f.Message)
	}
	logger.Info("ingest finished", "run", report.RunID,
		"chunks", report.TotalChunks(), "indexed", report.TotalIndexed(),
		"failed", len(report.Failures()), "elapsed", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))

	if run.fatal != nil {
		return report, run.fatal
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// pruneStale removes entries of documentID left over from an earlier, longer
// version of the document. It only runs once every current chunk is indexed,
// so a partial re-ingest never drops the last good copy.
func (in *Ingestor) pruneStale(ctx context.Context, documentID string, chunks []models.Chunk) int {
	current := make(map[string]struct{}, len(chunks))
	for _, c := range chunks {
		current[c.ID] = struct{}{}
	}

	// the document is already fully indexed, so finish the cleanup even if ctx was cancelled
	ctx = context.WithoutCancel(ctx)
	pruned := 0
	for _, e := range in.index.Entries() {
		if e.DocumentID != documentID {
			continue
		}
		if _, ok := current[e.ID]; ok {
			continue
		}
		if err := in.index.Remove(ctx, e.ID); err != nil {
			if !errors.Is(err, models.ErrNotFound) {
				logger.Warn("failed to prune stale chunk", "document", documentID, "chunk", e.ID, "err", err)
			}
			continue
		}
		pruned++
	}
	if pruned > 0 {
		logger.Debug("pruned stale chunks", "document", documentID, "count", pruned)
	}
	return pruned
}

// processBatch embeds and indexes one batch, falling back to one call per
// chunk when the batch call fails so each failure is attributed to its chunk
func (r *ingestRun) processBatch(chunks []models.Chunk, slots []chunkOutcome) {
	vectors, err := r.embed(chunks)
	if err == nil {
		r.indexAll(chunks, vectors, slots)
		return
	}
	if r.abortOn(err) {
		markFailed(slots, r.stopCause(err))
		return
	}
	if len(chunks) == 1 {
		slots[0].err = err
		return
	}

	logger.Debug("batch embedding failed, retrying per chunk", "document", chunks[0].DocumentID, "size", len(chunks), "err", err)
	for i := range chunks {
		if r.ctx.Err() != nil {
			markFailed(slots[i:], context.Cause(r.ctx))
			return
		}
		vectors, err := r.embed(chunks[i : i+1])
		if err != nil {
			if r.abortOn(err) {
				markFailed(slots[i:], r.stopCause(err))
				return
			}
			slots[i].err = err
			continue
		}
		r.indexAll(chunks[i:i+1], vectors, slots[i:i+1])
	}
}

// embed makes one rate-limited embedding call per attempt under the retry policy
func (r *ingestRun) embed(chunks []models.Chunk) ([][]float32, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	var vectors [][]float32
	err := r.opts.Retry.Do(r.ctx, func(ctx context.Context) error {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		out, err := r.embedder.Embed(ctx, texts)
		if err != nil {
			return err
		}
		if len(out) != len(texts) {
			return models.NewServiceError(models.ErrEmbeddingService, "embed",
				fmt.Errorf("expected %d embeddings, got %d", len(texts), len(out)))
		}
		vectors = out
		return nil
	})
	return vectors, err
}

func (r *ingestRun) indexAll(chunks []models.Chunk, vectors [][]float32, slots []chunkOutcome) {
	for i, c := range chunks {
		c.Embedding = vectors[i]
		slots[i].stage = models.StateEmbedded

		err := r.index.Upsert(r.ctx, models.EntryFromChunk(c))
		if err == nil {
			slots[i].stage = models.StateIndexed
			continue
		}
		if errors.Is(err, models.ErrInvalidConfiguration) {
			r.fail(err)
		}
		slots[i].err = err
	}
}

// abortOn reports whether err stops the whole run rather than a single chunk
func (r *ingestRun) abortOn(err error) bool {
	if errors.Is(err, models.ErrInvalidConfiguration) {
		r.fail(err)
		return true
	}
	return r.ctx.Err() != nil
}

func (r *ingestRun) stopCause(err error) error {
	if cause := context.Cause(r.ctx); cause != nil {
		return cause
	}
	return err
}

// fail records the first fatal error and stops the run
func (r *ingestRun) fail(err error) {
	r.fatalOnce.Do(func() {
		r.fatal = err
		r.cancel(err)
	})
}

func markFailed(slots []chunkOutcome, err error) {
	for i := range slots {
		if slots[i].stage != models.StateIndexed && slots[i].err == nil {
			slots[i].err = err
		}
	}
}

func buildDocumentReport(documentID string, chunks []models.Chunk, outcomes []chunkOutcome) models.DocumentReport {
	dr := models.DocumentReport{
		DocumentID: documentID,
		State:      models.StateIndexed,
		ChunkCount: len(chunks),
	}

	for i, o := range outcomes {
		if o.stage == models.StateIndexed {
			dr.Indexed++
			continue
		}
		if o.stage.Before(dr.State) {
			dr.State = o.stage
		}
		err := o.err
		if err == nil {
			err = errors.New("not processed")
		}
		dr.Failures = append(dr.Failures, models.ChunkFailure{
			DocumentID: documentID,
			ChunkID:    chunks[i].ID,
			Stage:      o.stage,
			Err:        &models.ChunkError{DocumentID: documentID, ChunkID: chunks[i].ID, Err: err},
			Message:    err.Error(),
		})
	}
	return dr
}
