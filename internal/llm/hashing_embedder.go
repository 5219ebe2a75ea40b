// ABOUTME: Deterministic bag-of-words embedder using feature hashing
// ABOUTME: Offline stand-in for the embedding service in benchmarks and tests
package llm

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DefaultHashingDimension is the vector size used when none is given
const DefaultHashingDimension = 256

// HashingEmbedder maps each lower-cased word to a bucket and L2-normalizes the counts
type HashingEmbedder struct {
	Dimension int
}

// NewHashingEmbedder returns an embedder producing vectors of length dim
func NewHashingEmbedder(dim int) *HashingEmbedder {
	if dim <= 0 {
		dim = DefaultHashingDimension
	}
	return &HashingEmbedder{Dimension: dim}
}

// Embed returns one vector per text in input order
func (h *HashingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = h.vector(text)
	}
	return out, nil
}

func (h *HashingEmbedder) vector(text string) []float32 {
	vec := make([]float32, h.Dimension)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		f := fnv.New32a()
		_, _ = f.Write([]byte(w))
		vec[f.Sum32()%uint32(h.Dimension)]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}
