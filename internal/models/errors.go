// ABOUTME: Error taxonomy for chunking, embedding, indexing, and generation
// ABOUTME: Sentinels are matched with errors.Is; typed errors carry the failing id or query
package models

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration marks parameters that can never succeed (fatal, not retried)
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrEmbeddingService marks a transport or response failure from the embedding service
	ErrEmbeddingService = errors.New("embedding service error")

	// ErrGenerationService marks a transport or model failure from the completion service
	ErrGenerationService = errors.New("generation service error")

	// ErrDimensionMismatch marks a vector whose length differs from the index dimension
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrTimeout marks a service call that ran past its deadline
	ErrTimeout = errors.New("service timeout")

	// ErrParse marks generation output with no recognizable fields
	ErrParse = errors.New("unparseable answer")

	// ErrNotFound indicates a requested index entry does not exist
	ErrNotFound = errors.New("not found")
)

// InvalidConfig wraps a message as an ErrInvalidConfiguration
func InvalidConfig(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}

// ServiceError is a failed call to an external embedding or completion service
type ServiceError struct {
	Kind      error  // ErrEmbeddingService or ErrGenerationService
	Op        string // e.g. "embed", "chat"
	Subject   string // query text or chunk id the call was made for, if known
	Timeout   bool
	Permanent bool // rejected in a way that will fail again (bad request, auth)
	Err       error
}

func (e *ServiceError) Error() string {
	msg := fmt.Sprintf("%v: %s", e.Kind, e.Op)
	if e.Subject != "" {
		msg += fmt.Sprintf(" (%s)", e.Subject)
	}
	if e.Timeout {
		msg += ": timed out"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the underlying cause
func (e *ServiceError) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Timeout {
		errs = append(errs, ErrTimeout)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// NewServiceError builds a ServiceError, flagging deadline failures as timeouts
func NewServiceError(kind error, op string, err error) *ServiceError {
	return &ServiceError{
		Kind:    kind,
		Op:      op,
		Timeout: errors.Is(err, context.DeadlineExceeded),
		Err:     err,
	}
}

// DimensionMismatchError reports a vector of the wrong length
type DimensionMismatchError struct {
	ID   string
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Want, e.Got)
	}
	return fmt.Sprintf("dimension mismatch for %s: expected %d, got %d", e.ID, e.Want, e.Got)
}

// Is lets errors.Is match ErrDimensionMismatch
func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}

// ChunkError attaches document and chunk context to a failure
type ChunkError struct {
	DocumentID string
	ChunkID    string
	Err        error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("document %s chunk %s: %v", e.DocumentID, e.ChunkID, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is transient and eligible for retry
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrInvalidConfiguration) || errors.Is(err, ErrDimensionMismatch) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var svc *ServiceError
	if errors.As(err, &svc) {
		return svc.Timeout || !svc.Permanent
	}
	return errors.Is(err, ErrEmbeddingService) || errors.Is(err, ErrGenerationService)
}
