// Package retry implements a small composable retry policy: bounded
// attempts, a pluggable backoff function, and an injectable sleeper so
// tests run against a fake clock.
package retry

import (
	"context"
	"errors"
	"time"
)

// Retryable marks errors that justify another attempt. Anything else
// fails immediately.
type Retryable interface {
	Retryable() bool
}

// IsRetryable reports whether err (or anything it wraps) opts into
// retrying.
func IsRetryable(err error) bool {
	var r Retryable
	return errors.As(err, &r) && r.Retryable()
}

// Policy bounds and paces retries. The zero value retries nothing.
type Policy struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int
	// Backoff returns the delay before retry n (1-based).
	Backoff func(attempt int) time.Duration
	// Sleep waits out a delay; nil means a real context-aware sleep.
	// Tests substitute a recorder.
	Sleep func(ctx context.Context, d time.Duration) error
}

// ExponentialBackoff doubles base per retry, capped at max.
func ExponentialBackoff(base, max time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		d := base << (attempt - 1)
		if d > max || d <= 0 {
			return max
		}
		return d
	}
}

// Do runs op, retrying retryable failures within the policy bounds.
// The returned error is the last attempt's error, unmodified.
func (p Policy) Do(ctx context.Context, op func() error) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	for attempt := 0; ; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		if attempt >= p.MaxRetries || !IsRetryable(err) {
			return err
		}
		if p.Backoff != nil {
			if serr := sleep(ctx, p.Backoff(attempt+1)); serr != nil {
				return serr
			}
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
