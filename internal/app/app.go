// ABOUTME: Wires configuration, the vector index, and the OpenAI client into the QA pipeline
// ABOUTME: Shared by the CLI, the MCP server, and the benchmark runner
package app

import (
	"context"
	"fmt"

	"github.com/harper/docqa/internal/config"
	"github.com/harper/docqa/internal/core"
	"github.com/harper/docqa/internal/llm"
	"github.com/harper/docqa/internal/logger"
	"github.com/harper/docqa/internal/models"
	"github.com/harper/docqa/internal/storage"
	"github.com/harper/docqa/internal/util"
)

// Pipeline holds the long-lived components of a docqa process
type Pipeline struct {
	Config  *config.Config
	Index   *storage.VectorIndex
	Chunker *core.ChunkEngine
	Retry   util.RetryPolicy

	// Embedder and Generator are nil when no API key is configured
	Embedder  core.Embedder
	Generator core.StructuredCompleter
}

// Open opens the configured index and, if an API key is set, the OpenAI client
func Open(ctx context.Context, cfg *config.Config) (*Pipeline, error) {
	idx, err := storage.Open(ctx, cfg.IndexOptions())
	if err != nil {
		return nil, err
	}

	var client *llm.OpenAIClient
	if cfg.RequireAPIKey() == nil {
		client, err = llm.NewOpenAIClientWithConfig(cfg.LLMConfig())
		if err != nil {
			_ = idx.Close()
			return nil, err
		}
	} else {
		logger.Debug("no API key configured, embedding and generation disabled")
	}

	p, err := New(cfg, idx, nil, nil)
	if err != nil {
		_ = idx.Close()
		return nil, err
	}
	if client != nil {
		p.Embedder = client
		p.Generator = client
	}
	return p, nil
}

// New assembles a pipeline from already-built services
func New(cfg *config.Config, idx *storage.VectorIndex, embedder core.Embedder, generator core.StructuredCompleter) (*Pipeline, error) {
	chunker, err := core.NewChunkEngine(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		Config:    cfg,
		Index:     idx,
		Chunker:   chunker,
		Retry:     cfg.RetryPolicy(),
		Embedder:  embedder,
		Generator: generator,
	}, nil
}

// Ingestor returns an ingestion orchestrator over the pipeline's index
func (p *Pipeline) Ingestor() (*core.Ingestor, error) {
	if err := p.requireEmbedder(); err != nil {
		return nil, err
	}
	opts := core.DefaultIngestOptions(p.Retry)
	opts.Workers = p.Config.Workers
	opts.BatchSize = p.Config.EmbedBatchSize
	opts.RateLimit = p.Config.EmbedRateLimit
	return core.NewIngestor(p.Chunker, p.Embedder, p.Index, opts)
}

// Retriever returns a question retriever over the pipeline's index
func (p *Pipeline) Retriever() (*core.Retriever, error) {
	if err := p.requireEmbedder(); err != nil {
		return nil, err
	}
	return core.NewRetriever(p.Embedder, p.Index, p.Retry), nil
}

// Answerer returns the full retrieve-assemble-generate pipeline
func (p *Pipeline) Answerer() (*core.Answerer, error) {
	retriever, err := p.Retriever()
	if err != nil {
		return nil, err
	}
	if err := p.requireGenerator(); err != nil {
		return nil, err
	}
	return core.NewAnswerer(retriever, p.Generator, p.Retry, p.Config.MaxContextChars), nil
}

// Matcher returns the opportunity matcher
func (p *Pipeline) Matcher() (*core.Matcher, error) {
	if err := p.requireGenerator(); err != nil {
		return nil, err
	}
	return core.NewMatcher(p.Generator, p.Retry), nil
}

// Close closes the index
func (p *Pipeline) Close() error {
	if p.Index == nil {
		return nil
	}
	if err := p.Index.Close(); err != nil {
		return fmt.Errorf("failed to close index: %w", err)
	}
	return nil
}

func (p *Pipeline) requireEmbedder() error {
	if p.Embedder == nil {
		return models.InvalidConfig("embedding service unavailable: OPENAI_API_KEY environment variable not set")
	}
	return nil
}

func (p *Pipeline) requireGenerator() error {
	if p.Generator == nil {
		return models.InvalidConfig("generation service unavailable: OPENAI_API_KEY environment variable not set")
	}
	return nil
}
