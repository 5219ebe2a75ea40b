// ABOUTME: Hand-written service doubles shared by core tests
// ABOUTME: Deterministic embedder, scripted completer, and a MemoryStore-backed index
package core

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/harper/docqa/internal/models"
	"github.com/harper/docqa/internal/storage"
)

// textVector maps text to a deterministic 3-dimensional vector
func textVector(text string) []float32 {
	var vowels, spaces float32
	for _, r := range text {
		switch r {
		case 'a', 'e', 'i', 'o', 'u':
			vowels++
		case ' ':
			spaces++
		}
	}
	return []float32{float32(len([]rune(text))), vowels, spaces}
}

// fakeEmbedder embeds with textVector unless fail returns an error for the batch
type fakeEmbedder struct {
	mu       sync.Mutex
	calls    int
	inFlight int32
	maxSeen  int32
	fail     func(call int, texts []string) error
	vector   func(text string) []float32
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		seen := atomic.LoadInt32(&f.maxSeen)
		if n <= seen || atomic.CompareAndSwapInt32(&f.maxSeen, seen, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()

	if f.fail != nil {
		if err := f.fail(call, texts); err != nil {
			return nil, err
		}
	}

	out := make([][]float32, len(texts))
	for i, t := range texts {
		if f.vector != nil {
			out[i] = f.vector(t)
		} else {
			out[i] = textVector(t)
		}
	}
	return out, nil
}

func (f *fakeEmbedder) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeCompleter returns scripted responses and records prompts
type fakeCompleter struct {
	mu         sync.Mutex
	responses  []string
	errs       []error
	calls      int
	lastSystem string
	lastUser   string
}

func (f *fakeCompleter) next() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if err != nil {
		return "", err
	}
	if len(f.responses) == 0 {
		return "", nil
	}
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return f.responses[i], nil
}

func (f *fakeCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	f.mu.Lock()
	f.lastSystem, f.lastUser = system, user
	f.mu.Unlock()
	return f.next()
}

func (f *fakeCompleter) GenerateStructured(ctx context.Context, system, user, name string, out any) (string, error) {
	raw, err := f.Complete(ctx, system, user)
	if err != nil {
		return "", err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return raw, models.ErrParse
	}
	return raw, nil
}

func newMemoryIndex(t *testing.T) *storage.VectorIndex {
	t.Helper()
	idx, err := storage.NewVectorIndex(context.Background(), storage.NewMemoryStore(), 0)
	if err != nil {
		t.Fatalf("NewVectorIndex() error = %v", err)
	}
	return idx
}

func timeoutErr() error {
	return models.NewServiceError(models.ErrEmbeddingService, "embed", context.DeadlineExceeded)
}
