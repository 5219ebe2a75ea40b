// ABOUTME: Retry utilities for API calls with exponential backoff
// ABOUTME: RetryPolicy wraps calls to external services; clients themselves never retry
package util

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// DefaultMaxBackoff caps a single backoff delay
const DefaultMaxBackoff = 30 * time.Second

// CalculateBackoff returns exponential backoff with jitter
// Base delay is doubled each attempt, with random jitter up to 25%
func CalculateBackoff(baseDelay time.Duration, attempt int) time.Duration {
	return Backoff(baseDelay, DefaultMaxBackoff, 0.25, attempt)
}

// Backoff returns baseDelay*2^attempt capped at maxDelay, with ±jitter applied
func Backoff(baseDelay, maxDelay time.Duration, jitter float64, attempt int) time.Duration {
	if attempt <= 0 || baseDelay <= 0 {
		return 0
	}
	// Cap attempt to avoid overflow in bit shift (max 30 for safety)
	if attempt > 30 {
		attempt = 30
	}
	backoff := baseDelay * time.Duration(1<<uint(attempt))
	if maxDelay > 0 && (backoff > maxDelay || backoff <= 0) {
		backoff = maxDelay
	}
	if jitter <= 0 {
		return backoff
	}
	if jitter > 1 {
		jitter = 1
	}
	spread := int64(float64(backoff) * jitter)
	if spread <= 0 {
		return backoff
	}
	// Uniform in [-spread, +spread) using auto-seeded math/rand/v2
	return backoff + time.Duration(rand.Int64N(2*spread)-spread)
}

// RetryPolicy is a bounded retry with exponential backoff and jitter
type RetryPolicy struct {
	// MaxAttempts counts the first call; values below 1 mean a single attempt
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      float64
	// Retryable classifies errors; nil retries everything except context errors
	Retryable func(error) bool
	// OnRetry is called before each wait, if set
	OnRetry func(attempt int, delay time.Duration, err error)

	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetryPolicy builds a policy from a retry count (attempts = maxRetries+1)
func NewRetryPolicy(maxRetries int, baseDelay time.Duration, retryable func(error) bool) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: maxRetries + 1,
		BaseDelay:   baseDelay,
		MaxDelay:    DefaultMaxBackoff,
		Jitter:      0.25,
		Retryable:   retryable,
	}
}

// NoRetry runs a call exactly once
func NoRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 1}
}

// Do calls fn until it succeeds, fails with a non-retryable error, the
// attempts run out, or ctx is done. No new attempt starts after ctx is done.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				return err
			}
			return fmt.Errorf("retry aborted after %d attempts: %w", attempt-1, errors.Join(err, lastErr))
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !p.retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}

		delay := Backoff(p.BaseDelay, p.MaxDelay, p.Jitter, attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, err)
		}
		if err := sleep(ctx, delay); err != nil {
			return fmt.Errorf("retry aborted after %d attempts: %w", attempt, errors.Join(err, lastErr))
		}
	}

	if attempts == 1 {
		return lastErr
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

func (p RetryPolicy) retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if p.Retryable != nil {
		return p.Retryable(err)
	}
	return !errors.Is(err, context.DeadlineExceeded)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
