package fitbit

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Getter fetches one resource path and returns its raw payload. The
// collector supplies a cache-wrapped getter; tests supply fakes.
type Getter func(ctx context.Context, path string) (json.RawMessage, error)

// SubFailure records one failed sub-fetch of a composite request.
type SubFailure struct {
	Resource Resource `json:"resource"`
	Reason   string   `json:"reason"`
}

// Day is the result of a composite fetch: every successfully retrieved
// sub-payload plus the list of sub-fetches that failed. A Day with a
// non-empty Missing list is a partial success, not an error.
type Day struct {
	Date     string
	Profile  json.RawMessage
	Activity json.RawMessage
	Sleep    json.RawMessage
	Heart    json.RawMessage
	Missing  []SubFailure
}

// Payloads returns the retrieved sub-payloads keyed by resource name,
// in the shape the metrics endpoint responds with.
func (d *Day) Payloads() map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, 4)
	if d.Profile != nil {
		out[string(ResourceProfile)] = d.Profile
	}
	if d.Activity != nil {
		out[string(ResourceActivity)] = d.Activity
	}
	if d.Sleep != nil {
		out[string(ResourceSleep)] = d.Sleep
	}
	if d.Heart != nil {
		out[string(ResourceHeart)] = d.Heart
	}
	return out
}

type subResult struct {
	resource Resource
	payload  json.RawMessage
	err      error
}

// FetchDay issues the four sub-fetches for one day concurrently and
// merges them. It tolerates individual failures: the fetch succeeds as
// long as at least one sub-resource came back, and fails only when all
// of them do.
func FetchDay(ctx context.Context, get Getter, date string) (*Day, error) {
	results := make([]subResult, len(DayResources))

	g, gctx := errgroup.WithContext(ctx)
	for i, res := range DayResources {
		g.Go(func() error {
			payload, err := get(gctx, res.Path(date))
			results[i] = subResult{resource: res, payload: payload, err: err}
			// Sub-fetch errors are captured, not returned: one failure
			// must not cancel the sibling fetches.
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	day := &Day{Date: date}
	var firstErr error
	ok := 0
	for _, r := range results {
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
			}
			day.Missing = append(day.Missing, SubFailure{Resource: r.resource, Reason: r.err.Error()})
			continue
		}
		ok++
		switch r.resource {
		case ResourceProfile:
			day.Profile = r.payload
		case ResourceActivity:
			day.Activity = r.payload
		case ResourceSleep:
			day.Sleep = r.payload
		case ResourceHeart:
			day.Heart = r.payload
		}
	}

	if ok == 0 {
		return nil, fmt.Errorf("all sub-fetches failed for %s: %w", date, firstErr)
	}
	return day, nil
}
