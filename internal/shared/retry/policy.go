// Package retry provides a bounded retry policy decoupled from the calls it wraps.
package retry

import (
	"context"
	"time"
)

// Policy describes how many attempts to make and which errors are worth retrying.
type Policy struct {
	// MaxAttempts includes the first attempt. Values below 1 mean a single attempt.
	MaxAttempts int
	// Backoff returns the wait before attempt n (n >= 1). Nil means no wait.
	Backoff func(attempt int) time.Duration
	// Retryable reports whether err may succeed on a later attempt. Nil retries nothing.
	Retryable func(err error) bool
	// OnRetry is called before each retry with the failed attempt's error.
	OnRetry func(attempt int, err error)
}

// Constant returns a backoff that always waits d.
func Constant(d time.Duration) func(int) time.Duration {
	return func(int) time.Duration { return d }
}

// Exponential returns a backoff of base*2^(attempt-1) capped at max.
func Exponential(base, max time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		d := base
		for i := 1; i < attempt; i++ {
			d *= 2
			if d >= max {
				return max
			}
		}
		return d
	}
}

// Do runs fn until it succeeds, returns a non-retryable error, the attempts
// are exhausted, or ctx ends. attempt is zero-based.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if p.OnRetry != nil {
				p.OnRetry(attempt, err)
			}
			if p.Backoff != nil {
				if wait := p.Backoff(attempt); wait > 0 {
					timer := time.NewTimer(wait)
					select {
					case <-ctx.Done():
						timer.Stop()
						return err
					case <-timer.C:
					}
				}
			}
		}
		err = fn(ctx, attempt)
		if err == nil {
			return nil
		}
		if p.Retryable == nil || !p.Retryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
	}
	return err
}
