package fitbit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
)

func TestFetchDayPartialSuccess(t *testing.T) {
	get := func(_ context.Context, path string) (json.RawMessage, error) {
		if strings.Contains(path, "/sleep/") {
			return nil, &UpstreamError{Status: 502, Detail: "bad gateway"}
		}
		return json.RawMessage(`{"path": "` + path + `"}`), nil
	}

	day, err := FetchDay(context.Background(), get, "2025-06-01")
	if err != nil {
		t.Fatalf("partial failure must not be an error: %v", err)
	}
	if day.Profile == nil || day.Activity == nil || day.Heart == nil {
		t.Error("successful sub-payloads missing from result")
	}
	if day.Sleep != nil {
		t.Error("failed sub-payload should be absent")
	}
	if len(day.Missing) != 1 || day.Missing[0].Resource != ResourceSleep {
		t.Fatalf("Missing = %+v, want exactly the sleep failure", day.Missing)
	}
	if got := day.Payloads(); len(got) != 3 {
		t.Errorf("Payloads() has %d entries, want 3", len(got))
	}
}

func TestFetchDayAllFail(t *testing.T) {
	get := func(_ context.Context, _ string) (json.RawMessage, error) {
		return nil, &RateLimitError{}
	}

	_, err := FetchDay(context.Background(), get, "2025-06-01")
	if err == nil {
		t.Fatal("expected error when every sub-fetch fails")
	}
	var rle *RateLimitError
	if !errors.As(err, &rle) {
		t.Errorf("composite error should preserve the underlying cause, got %v", err)
	}
}

func TestFetchDayRunsSubFetchesConcurrently(t *testing.T) {
	var inFlight, peak atomic.Int32
	gate := make(chan struct{})

	get := func(_ context.Context, _ string) (json.RawMessage, error) {
		n := inFlight.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		if n == int32(len(DayResources)) {
			close(gate)
		}
		<-gate // only releases once all four are in flight
		inFlight.Add(-1)
		return json.RawMessage(`{}`), nil
	}

	if _, err := FetchDay(context.Background(), get, "2025-06-01"); err != nil {
		t.Fatal(err)
	}
	if peak.Load() != int32(len(DayResources)) {
		t.Errorf("peak concurrency = %d, want %d", peak.Load(), len(DayResources))
	}
}

func TestFetchDayAllSucceed(t *testing.T) {
	var calls atomic.Int32
	get := func(_ context.Context, _ string) (json.RawMessage, error) {
		calls.Add(1)
		return json.RawMessage(`{}`), nil
	}

	day, err := FetchDay(context.Background(), get, "2025-06-01")
	if err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 4 {
		t.Errorf("calls = %d, want 4", calls.Load())
	}
	if len(day.Missing) != 0 {
		t.Errorf("Missing = %+v, want empty", day.Missing)
	}
}
