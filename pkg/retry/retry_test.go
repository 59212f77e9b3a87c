package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type tempErr struct{ msg string }

func (e *tempErr) Error() string   { return e.msg }
func (e *tempErr) Retryable() bool { return true }

func TestExponentialBackoff(t *testing.T) {
	backoff := ExponentialBackoff(time.Second, 10*time.Second)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 10 * time.Second}, // capped
		{10, 10 * time.Second},
	}
	for _, tt := range tests {
		if got := backoff(tt.attempt); got != tt.want {
			t.Errorf("backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestDoRetriesRetryableErrors(t *testing.T) {
	var slept []time.Duration
	p := Policy{
		MaxRetries: 3,
		Backoff:    ExponentialBackoff(time.Second, 10*time.Second),
		Sleep: func(_ context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		},
	}

	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return &tempErr{"rate limited"}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if len(slept) != 2 || slept[0] != time.Second || slept[1] != 2*time.Second {
		t.Errorf("slept = %v, want [1s 2s]", slept)
	}
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	p := Policy{MaxRetries: 3, Backoff: ExponentialBackoff(time.Second, 10*time.Second)}

	calls := 0
	permanent := fmt.Errorf("bad request")
	err := p.Do(context.Background(), func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("error = %v, want %v", err, permanent)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry on permanent errors)", calls)
	}
}

func TestDoExhaustsBudget(t *testing.T) {
	var slept []time.Duration
	p := Policy{
		MaxRetries: 3,
		Backoff:    ExponentialBackoff(time.Second, 10*time.Second),
		Sleep: func(_ context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		},
	}

	calls := 0
	last := &tempErr{"still limited"}
	err := p.Do(context.Background(), func() error {
		calls++
		return last
	})
	if !errors.Is(err, last) {
		t.Fatalf("error = %v, want last attempt error", err)
	}
	if calls != 4 {
		t.Errorf("calls = %d, want 4 (initial + 3 retries)", calls)
	}
	if len(slept) != 3 {
		t.Errorf("sleeps = %d, want 3", len(slept))
	}
}

func TestDoHonorsContextDuringSleep(t *testing.T) {
	p := Policy{
		MaxRetries: 3,
		Backoff:    ExponentialBackoff(time.Second, 10*time.Second),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.Do(ctx, func() error { return &tempErr{"limited"} })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}
