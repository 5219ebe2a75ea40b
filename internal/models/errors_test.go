// ABOUTME: Tests for the error taxonomy
// ABOUTME: Checks errors.Is matching, timeout detection, and retry classification

package models

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestServiceError_Is(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewServiceError(ErrEmbeddingService, "embed", cause)

	if !errors.Is(err, ErrEmbeddingService) {
		t.Error("expected ErrEmbeddingService to match")
	}
	if !errors.Is(err, cause) {
		t.Error("expected underlying cause to match")
	}
	if errors.Is(err, ErrGenerationService) {
		t.Error("ErrGenerationService should not match an embedding error")
	}
	if errors.Is(err, ErrTimeout) {
		t.Error("non-deadline error should not match ErrTimeout")
	}
}

func TestServiceError_Timeout(t *testing.T) {
	err := NewServiceError(ErrGenerationService, "chat", fmt.Errorf("post: %w", context.DeadlineExceeded))
	if !err.Timeout {
		t.Fatal("expected Timeout to be set for deadline errors")
	}
	if !errors.Is(err, ErrTimeout) {
		t.Error("expected ErrTimeout to match")
	}
	if !errors.Is(err, ErrGenerationService) {
		t.Error("expected ErrGenerationService to match")
	}
}

func TestServiceError_Message(t *testing.T) {
	err := &ServiceError{Kind: ErrEmbeddingService, Op: "embed", Subject: "doc_chunk1", Err: errors.New("bad gateway")}
	want := "embedding service error: embed (doc_chunk1): bad gateway"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestDimensionMismatchError(t *testing.T) {
	var err error = &DimensionMismatchError{ID: "a", Want: 3, Got: 2}
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Error("expected ErrDimensionMismatch to match")
	}
	wrapped := fmt.Errorf("upsert: %w", err)
	var dm *DimensionMismatchError
	if !errors.As(wrapped, &dm) || dm.Want != 3 || dm.Got != 2 {
		t.Errorf("errors.As failed or lost fields: %+v", dm)
	}
}

func TestChunkError_Unwrap(t *testing.T) {
	err := &ChunkError{DocumentID: "d", ChunkID: "d_chunk1", Err: ErrDimensionMismatch}
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Error("ChunkError should unwrap to its cause")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"invalid configuration", InvalidConfig("overlap %d >= size %d", 5, 5), false},
		{"dimension mismatch", &DimensionMismatchError{Want: 2, Got: 3}, false},
		{"canceled", context.Canceled, false},
		{"embedding failure", NewServiceError(ErrEmbeddingService, "embed", errors.New("502")), true},
		{"generation timeout", NewServiceError(ErrGenerationService, "chat", context.DeadlineExceeded), true},
		{"permanent rejection", &ServiceError{Kind: ErrEmbeddingService, Op: "embed", Permanent: true}, false},
		{"wrapped sentinel", fmt.Errorf("batch: %w", ErrEmbeddingService), true},
		{"unrelated", errors.New("disk full"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
