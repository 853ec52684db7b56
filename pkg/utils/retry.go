package utils

import (
	"context"
	"time"
)

// Backoff retries an operation with exponential delay growth. The zero
// value is not usable; construct with NewBackoff.
type Backoff struct {
	attempts int
	delay    time.Duration
	cap      time.Duration
	factor   float64
}

// NewBackoff returns a Backoff with the quote-source defaults: three
// attempts starting at 100ms, doubling, capped at 10s.
func NewBackoff() Backoff {
	return Backoff{
		attempts: 3,
		delay:    100 * time.Millisecond,
		cap:      10 * time.Second,
		factor:   2.0,
	}
}

// WithAttempts returns a copy with a different attempt count.
func (b Backoff) WithAttempts(n int) Backoff {
	if n > 0 {
		b.attempts = n
	}
	return b
}

// Delay returns the sleep before retrying after the given failed attempt,
// counted from zero.
func (b Backoff) Delay(attempt int) time.Duration {
	d := b.delay
	for i := 0; i < attempt; i++ {
		d = time.Duration(float64(d) * b.factor)
		if d >= b.cap {
			return b.cap
		}
	}
	return d
}

// Do runs fn until it succeeds, attempts are exhausted, or the context is
// cancelled. The last error wins; cancellation surfaces the context error
// immediately without sleeping.
func (b Backoff) Do(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < b.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == b.attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.Delay(attempt)):
		}
	}
	return lastErr
}

// DoWithResult is Do for operations that return a value.
func DoWithResult[T any](ctx context.Context, b Backoff, fn func() (T, error)) (T, error) {
	var result T
	err := b.Do(ctx, func() error {
		var innerErr error
		result, innerErr = fn()
		return innerErr
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
