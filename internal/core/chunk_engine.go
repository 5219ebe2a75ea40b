// ABOUTME: ChunkEngine splits document text into overlapping fixed-size windows
// ABOUTME: Windows are measured in characters (runes) and advance by size minus overlap
package core

import (
	"github.com/harper/docqa/internal/models"
)

// Default chunking parameters
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 20
)

// ChunkEngine handles fixed-window text chunking
type ChunkEngine struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunkEngine creates a ChunkEngine, rejecting non-advancing parameters
func NewChunkEngine(chunkSize, chunkOverlap int) (*ChunkEngine, error) {
	if err := validateWindow(chunkSize, chunkOverlap); err != nil {
		return nil, err
	}
	return &ChunkEngine{chunkSize: chunkSize, chunkOverlap: chunkOverlap}, nil
}

// ChunkSize returns the window size in characters
func (ce *ChunkEngine) ChunkSize() int { return ce.chunkSize }

// ChunkOverlap returns the number of characters shared by adjacent windows
func (ce *ChunkEngine) ChunkOverlap() int { return ce.chunkOverlap }

// ChunkDocument splits a document into chunks with stable ids
func (ce *ChunkEngine) ChunkDocument(doc models.Document) ([]models.Chunk, error) {
	texts, err := Split(doc.Text, ce.chunkSize, ce.chunkOverlap)
	if err != nil {
		return nil, err
	}

	chunks := make([]models.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = models.Chunk{
			ID:            models.ChunkID(doc.ID, i),
			DocumentID:    doc.ID,
			SequenceIndex: i,
			Text:          text,
		}
	}
	return chunks, nil
}

// Split cuts text into windows of chunkSize characters, each starting
// chunkSize-chunkOverlap characters after the previous one. Text shorter
// than chunkSize yields a single chunk; empty text yields none.
func Split(text string, chunkSize, chunkOverlap int) ([]string, error) {
	if err := validateWindow(chunkSize, chunkOverlap); err != nil {
		return nil, err
	}

	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil, nil
	}

	step := chunkSize - chunkOverlap
	chunks := make([]string, 0, n/step+1)
	for start := 0; start < n; start += step {
		end := start + chunkSize
		if end > n {
			end = n
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks, nil
}

// Reassemble joins chunks produced by Split, dropping the overlapping
// prefix of every chunk after the first. It inverts Split.
func Reassemble(chunks []string, chunkOverlap int) string {
	var out []rune
	for i, c := range chunks {
		r := []rune(c)
		if i > 0 {
			skip := chunkOverlap
			if skip > len(r) {
				skip = len(r)
			}
			r = r[skip:]
		}
		out = append(out, r...)
	}
	return string(out)
}

func validateWindow(chunkSize, chunkOverlap int) error {
	if chunkSize <= 0 {
		return models.InvalidConfig("chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 {
		return models.InvalidConfig("chunk overlap must not be negative, got %d", chunkOverlap)
	}
	if chunkOverlap >= chunkSize {
		return models.InvalidConfig("chunk overlap %d must be smaller than chunk size %d", chunkOverlap, chunkSize)
	}
	return nil
}
