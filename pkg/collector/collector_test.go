package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloudevents/sdk-go/v2/event"
	"golang.org/x/text/language"

	"github.com/pulseboard/server/pkg/cache"
	"github.com/pulseboard/server/pkg/coordinator"
	"github.com/pulseboard/server/pkg/fitbit"
	"github.com/pulseboard/server/pkg/infrastructure/oauth"
	"github.com/pulseboard/server/pkg/metrics"
	"github.com/pulseboard/server/pkg/testing/mocks"
)

const activityBody = `{"summary":{"steps":8421,"caloriesOut":2210,"fairlyActiveMinutes":25,"veryActiveMinutes":18,"sedentaryMinutes":600,"distances":[{"activity":"total","distance":6.4}]}}`

func newUpstream(t *testing.T, calls *int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(calls, 1)
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/user/-/profile.json":
			fmt.Fprint(w, `{"user":{"displayName":"Test"}}`)
		case r.URL.Path == "/user/-/activities/date/2025-06-01.json":
			fmt.Fprint(w, activityBody)
		case r.URL.Path == "/user/-/sleep/date/2025-06-01.json":
			fmt.Fprint(w, `{"summary":{"totalMinutesAsleep":445,"totalTimeInBed":480},"sleep":[{"efficiency":93,"isMainSleep":true}]}`)
		default:
			fmt.Fprint(w, `{"activities-heart":[{"value":{"restingHeartRate":58}}]}`)
		}
	}))
}

func newTestCollector(baseURL string, db *mocks.MockDatabase) *Collector {
	client := fitbit.NewClient(language.AmericanEnglish, nil)
	client.BaseURL = baseURL
	c := New(client, cache.NewMemoryCache(time.Minute), db, nil)
	c.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return c
}

func TestCollectCompositeNormalizesAndUpserts(t *testing.T) {
	var calls int64
	srv := newUpstream(t, &calls)
	defer srv.Close()

	var upserted *metrics.DailyMetricRecord
	db := &mocks.MockDatabase{
		UpsertDailyMetricsFunc: func(_ context.Context, record *metrics.DailyMetricRecord) error {
			upserted = record
			return nil
		},
	}
	c := newTestCollector(srv.URL, db)

	res, err := c.Collect(context.Background(), Request{
		UserID:      "user-1",
		AccessToken: "token-abcdefgh",
		Type:        TypeAll,
		Date:        "2025-06-01",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(res.Payloads) != 4 {
		t.Errorf("expected 4 payloads, got %d", len(res.Payloads))
	}
	if res.Record == nil || upserted == nil {
		t.Fatal("expected a normalized record and an upsert")
	}
	if upserted.Date != "2025-06-01" || upserted.UserID != "user-1" {
		t.Errorf("upserted keys mismatch: %+v", upserted)
	}
	if upserted.Summary == nil || upserted.Summary.Steps != 8421 {
		t.Errorf("summary mismatch: %+v", upserted.Summary)
	}
	if upserted.Heart == nil || upserted.Heart.RestingHeartRate != 58 {
		t.Errorf("heart mismatch: %+v", upserted.Heart)
	}
	if res.PersistErr != nil {
		t.Errorf("unexpected persist error: %v", res.PersistErr)
	}
}

func TestCollectSingleResourceSkipsUpsert(t *testing.T) {
	var calls int64
	srv := newUpstream(t, &calls)
	defer srv.Close()

	db := &mocks.MockDatabase{
		UpsertDailyMetricsFunc: func(context.Context, *metrics.DailyMetricRecord) error {
			t.Error("single-resource fetch must not upsert")
			return nil
		},
	}
	c := newTestCollector(srv.URL, db)

	res, err := c.Collect(context.Background(), Request{
		UserID:      "user-1",
		AccessToken: "token-abcdefgh",
		Type:        "activity",
		Date:        "2025-06-01",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Record != nil {
		t.Error("single-resource fetch should not normalize")
	}
	if _, ok := res.Payloads["activity"]; !ok {
		t.Errorf("expected activity payload, got %v", res.Payloads)
	}
	if calls != 1 {
		t.Errorf("expected 1 upstream call, got %d", calls)
	}
}

func TestCollectServesSecondRoundFromCache(t *testing.T) {
	var calls int64
	srv := newUpstream(t, &calls)
	defer srv.Close()

	c := newTestCollector(srv.URL, &mocks.MockDatabase{})
	req := Request{UserID: "user-1", AccessToken: "token-abcdefgh", Type: "sleep", Date: "2025-06-01"}

	for i := 0; i < 2; i++ {
		if _, err := c.Collect(context.Background(), req); err != nil {
			t.Fatalf("round %d: %v", i, err)
		}
		// drop the coordinator state so round two is a fresh fetch
		// that must hit the cache, not a flight join
		c.flights = coordinator.New[*Result](coordinator.DefaultGrace)
	}

	if calls != 1 {
		t.Errorf("expected 1 upstream call, got %d", calls)
	}
}

func TestCollectDistinctCredentialsDoNotShareCache(t *testing.T) {
	var calls int64
	srv := newUpstream(t, &calls)
	defer srv.Close()

	c := newTestCollector(srv.URL, &mocks.MockDatabase{})

	for _, token := range []string{"token-aaaaaaaa", "token-bbbbbbbb"} {
		_, err := c.Collect(context.Background(), Request{
			UserID: "user-1", AccessToken: token, Type: "heart", Date: "2025-06-01",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if calls != 2 {
		t.Errorf("expected 2 upstream calls for distinct credentials, got %d", calls)
	}
}

func TestCollectConcurrentCallersShareOneRound(t *testing.T) {
	var calls int64
	srv := newUpstream(t, &calls)
	defer srv.Close()

	c := newTestCollector(srv.URL, &mocks.MockDatabase{})
	req := Request{UserID: "user-1", AccessToken: "token-abcdefgh", Type: TypeAll, Date: "2025-06-01"}

	var wg sync.WaitGroup
	results := make([]*Result, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := c.Collect(context.Background(), req)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			results[i] = res
		}()
	}
	wg.Wait()

	// one round = one call per sub-resource
	if calls != 4 {
		t.Errorf("expected 4 upstream calls, got %d", calls)
	}
	for i, res := range results {
		if res != results[0] {
			t.Errorf("caller %d saw a different result", i)
			break
		}
	}
}

func TestCollectUpsertFailureDoesNotFailFetch(t *testing.T) {
	var calls int64
	srv := newUpstream(t, &calls)
	defer srv.Close()

	db := &mocks.MockDatabase{
		UpsertDailyMetricsFunc: func(context.Context, *metrics.DailyMetricRecord) error {
			return fmt.Errorf("firestore unavailable")
		},
	}
	published := false
	c := newTestCollector(srv.URL, db)
	c.Pub = &mocks.MockPublisher{
		PublishCloudEventFunc: func(context.Context, string, event.Event) (string, error) {
			published = true
			return "", nil
		},
	}

	res, err := c.Collect(context.Background(), Request{
		UserID: "user-1", AccessToken: "token-abcdefgh", Type: TypeAll, Date: "2025-06-01",
	})
	if err != nil {
		t.Fatalf("fetch should survive a failed upsert: %v", err)
	}
	if res.PersistErr == nil {
		t.Error("expected PersistErr to carry the upsert failure")
	}
	if published {
		t.Error("synced event must not publish when the upsert failed")
	}
}

func TestCollectArchivesRawComposite(t *testing.T) {
	var calls int64
	srv := newUpstream(t, &calls)
	defer srv.Close()

	var gotBucket, gotObject string
	var gotBlob []byte
	c := newTestCollector(srv.URL, &mocks.MockDatabase{})
	c.Store = &mocks.MockBlobStore{
		WriteFunc: func(_ context.Context, bucket, object string, data []byte) error {
			gotBucket, gotObject, gotBlob = bucket, object, data
			return nil
		},
	}
	c.Bucket = "artifacts"

	_, err := c.Collect(context.Background(), Request{
		UserID: "user-1", AccessToken: "token-abcdefgh", Type: TypeAll, Date: "2025-06-01",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotBucket != "artifacts" || gotObject != "raw/user-1/2025-06-01.json" {
		t.Errorf("archive landed at %s/%s", gotBucket, gotObject)
	}
	var archived map[string]json.RawMessage
	if err := json.Unmarshal(gotBlob, &archived); err != nil {
		t.Fatalf("archive is not valid JSON: %v", err)
	}
	if len(archived) != 4 {
		t.Errorf("expected 4 archived payloads, got %d", len(archived))
	}
}

type fakeTokenSource struct {
	access     string
	tokenErr   error
	refreshed  int
	refreshErr error
}

func (f *fakeTokenSource) Token(context.Context) (*oauth.Token, error) {
	if f.tokenErr != nil {
		return nil, f.tokenErr
	}
	return &oauth.Token{AccessToken: f.access}, nil
}

func (f *fakeTokenSource) ForceRefresh(context.Context) (*oauth.Token, error) {
	f.refreshed++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return &oauth.Token{AccessToken: f.access + "-fresh"}, nil
}

func TestCollectAsForceRefreshesOnUpstream401(t *testing.T) {
	// the stored token still has a future recorded expiry, so the
	// source hands it out as-is and only the 401 reveals it is dead
	var auths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		auths = append(auths, auth)
		if auth == "Bearer token-stale" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	c := newTestCollector(srv.URL, &mocks.MockDatabase{})
	src := &fakeTokenSource{access: "token-stale"}

	res, err := c.CollectAs(context.Background(), src, Request{
		UserID: "user-1", Type: "profile", Date: "2025-06-01",
	})
	if err != nil {
		t.Fatalf("expected refresh-then-retry to succeed: %v", err)
	}
	if res == nil || res.Payloads["profile"] == nil {
		t.Fatalf("expected a profile payload, got %+v", res)
	}
	if src.refreshed != 1 {
		t.Errorf("expected 1 force refresh, got %d", src.refreshed)
	}
	if len(auths) != 2 || auths[1] != "Bearer token-stale-fresh" {
		t.Errorf("expected retry with refreshed credential, got %v", auths)
	}
}

func TestCollectAsReturnsFetchErrorWhenRefreshFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestCollector(srv.URL, &mocks.MockDatabase{})
	src := &fakeTokenSource{access: "token-stale", refreshErr: fmt.Errorf("refresh endpoint down")}

	_, err := c.CollectAs(context.Background(), src, Request{
		UserID: "user-1", Type: "profile", Date: "2025-06-01",
	})
	var upstream *fitbit.UpstreamError
	if !errors.As(err, &upstream) || upstream.Status != http.StatusUnauthorized {
		t.Fatalf("expected the original 401, got %v", err)
	}
	if src.refreshed != 1 {
		t.Errorf("expected a refresh attempt, got %d", src.refreshed)
	}
}

func TestCollectAsPropagatesTokenError(t *testing.T) {
	c := newTestCollector("http://example.invalid", &mocks.MockDatabase{})
	src := &fakeTokenSource{tokenErr: oauth.ErrNotLinked}

	_, err := c.CollectAs(context.Background(), src, Request{
		UserID: "user-1", Type: "profile", Date: "2025-06-01",
	})
	if !errors.Is(err, oauth.ErrNotLinked) {
		t.Fatalf("expected ErrNotLinked, got %v", err)
	}
}

func TestCollectAsTracksUsageOnSuccess(t *testing.T) {
	var calls int64
	srv := newUpstream(t, &calls)
	defer srv.Close()

	touched := make(chan map[string]interface{}, 1)
	db := &mocks.MockDatabase{
		UpdateUserIntegrationFunc: func(_ context.Context, id string, data map[string]interface{}) error {
			if id == "user-1" {
				touched <- data
			}
			return nil
		},
	}
	c := newTestCollector(srv.URL, db)

	_, err := c.CollectAs(context.Background(), &fakeTokenSource{access: "token-abcdefgh"}, Request{
		UserID: "user-1", Type: "activity", Date: "2025-06-01",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case data := <-touched:
		if _, ok := data["last_used_at"]; !ok {
			t.Errorf("expected last_used_at update, got %v", data)
		}
	case <-time.After(time.Second):
		t.Fatal("usage tracking update never arrived")
	}
}

func TestFetchKey(t *testing.T) {
	got := FetchKey(Request{AccessToken: "abcdefghijklmnop", Type: "all", Date: "2025-06-01"})
	if got != "all_2025-06-01_abcdefghij" {
		t.Errorf("got %q", got)
	}

	short := FetchKey(Request{AccessToken: "abc", Type: "sleep", Date: "2025-06-01"})
	if short != "sleep_2025-06-01_abc" {
		t.Errorf("got %q", short)
	}
}

func TestValidType(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want bool
	}{
		{"all", true},
		{"profile", true},
		{"activity", true},
		{"sleep", true},
		{"heart", true},
		{"", false},
		{"weight", false},
		{"ALL", false},
	} {
		if got := ValidType(tc.in); got != tc.want {
			t.Errorf("ValidType(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
