// Package collector orchestrates the metrics acquisition path: cache
// lookup, in-flight coordination, upstream fetch, normalization, and
// the durable upsert plus downstream notifications.
package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	shared "github.com/pulseboard/server/pkg"
	"github.com/pulseboard/server/pkg/cache"
	"github.com/pulseboard/server/pkg/coordinator"
	"github.com/pulseboard/server/pkg/fitbit"
	"github.com/pulseboard/server/pkg/infrastructure/oauth"
	"github.com/pulseboard/server/pkg/infrastructure/pubsub"
	infrastorage "github.com/pulseboard/server/pkg/infrastructure/storage"
	"github.com/pulseboard/server/pkg/infrastructure/sentry"
	"github.com/pulseboard/server/pkg/metrics"
)

// TypeAll requests the composite day fetch; the other accepted values
// are the fitbit.Resource names.
const TypeAll = "all"

// Request identifies one acquisition: whose data, which day, which
// slice of it, and the credential to fetch it with.
type Request struct {
	UserID      string
	AccessToken string
	Type        string // "profile", "activity", "sleep", "heart", or "all"
	Date        string // YYYY-MM-DD
}

// Result is what a fetch round produces. Payloads holds the raw
// upstream JSON per resource; Record is the normalized day, present
// only for composite fetches. PersistErr reports a failed upsert
// without failing the round: the caller already has the data.
type Result struct {
	Payloads   map[string]json.RawMessage
	Record     *metrics.DailyMetricRecord
	Missing    []fitbit.SubFailure
	PersistErr error
}

// Collector wires the acquisition path together. All fields must be
// set; Bucket and Pub may be left zero/nil to disable archiving and
// event publishing.
type Collector struct {
	Client *fitbit.Client
	Cache  cache.Cache
	DB     shared.Database
	Pub    shared.Publisher
	Store  shared.BlobStore
	Bucket string
	Logger *slog.Logger

	flights *coordinator.Coordinator[*Result]
	now     func() time.Time
}

func New(client *fitbit.Client, c cache.Cache, db shared.Database, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		Client:  client,
		Cache:   c,
		DB:      db,
		Logger:  logger,
		flights: coordinator.New[*Result](coordinator.DefaultGrace),
		now:     time.Now,
	}
}

// FetchKey identifies a fetch round for coordination. The credential
// prefix keeps one user's in-flight fetch from being joined by another
// user asking for the same day.
func FetchKey(req Request) string {
	return fmt.Sprintf("%s_%s_%s", req.Type, req.Date, credPrefix(req.AccessToken))
}

func credPrefix(token string) string {
	if len(token) > 10 {
		return token[:10]
	}
	return token
}

// ValidType reports whether t names a fetchable resource.
func ValidType(t string) bool {
	switch t {
	case TypeAll,
		string(fitbit.ResourceProfile),
		string(fitbit.ResourceActivity),
		string(fitbit.ResourceSleep),
		string(fitbit.ResourceHeart):
		return true
	}
	return false
}

// Collect runs one acquisition. Concurrent calls with the same key
// share a single upstream round; everyone observes the owner's result.
func (c *Collector) Collect(ctx context.Context, req Request) (*Result, error) {
	key := FetchKey(req)

	owner, flight := c.flights.AcquireOrJoin(key)
	if !owner {
		c.Logger.Debug("Joining in-flight fetch", "key", key)
		return flight.Wait(ctx)
	}

	// The owner's fetch must survive its initiating request: joiners
	// may still be waiting after the first caller gives up.
	res, err := c.fetch(context.WithoutCancel(ctx), req)
	c.flights.Complete(key, flight, res, err)
	return res, err
}

// CollectAs resolves a credential from src and runs one acquisition.
// When the upstream rejects the stored token before its recorded
// expiry, the token is force-refreshed and the fetch retried once; the
// refreshed credential changes the fetch key, so the retry never joins
// the failed flight lingering in its grace window.
func (c *Collector) CollectAs(ctx context.Context, src oauth.TokenSource, req Request) (*Result, error) {
	tok, err := src.Token(ctx)
	if err != nil {
		return nil, err
	}
	req.AccessToken = tok.AccessToken

	res, err := c.Collect(ctx, req)
	var upstream *fitbit.UpstreamError
	if err != nil && errors.As(err, &upstream) && upstream.Status == http.StatusUnauthorized {
		c.Logger.Warn("Upstream rejected stored token, forcing refresh", "user_id", req.UserID)
		tok, rerr := src.ForceRefresh(ctx)
		if rerr != nil {
			return nil, err
		}
		req.AccessToken = tok.AccessToken
		res, err = c.Collect(ctx, req)
	}
	if err == nil {
		c.touchLastUsed(req.UserID)
	}
	return res, err
}

// touchLastUsed stamps the integration's last_used_at off the request
// path so usage tracking never blocks a response.
func (c *Collector) touchLastUsed(userID string) {
	if c.DB == nil || userID == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.DB.UpdateUserIntegration(ctx, userID, map[string]interface{}{
			"last_used_at": time.Now(),
		}); err != nil {
			c.Logger.Warn("Failed to track usage", "user_id", userID, "error", err)
		}
	}()
}

func (c *Collector) fetch(ctx context.Context, req Request) (*Result, error) {
	if req.Type != TypeAll {
		payload, err := c.cachedGet(ctx, fitbit.Resource(req.Type).Path(req.Date), req.AccessToken)
		if err != nil {
			return nil, err
		}
		return &Result{
			Payloads: map[string]json.RawMessage{req.Type: payload},
		}, nil
	}

	day, err := fitbit.FetchDay(ctx, func(ctx context.Context, path string) (json.RawMessage, error) {
		return c.cachedGet(ctx, path, req.AccessToken)
	}, req.Date)
	if err != nil {
		return nil, err
	}

	record := metrics.Normalize(req.UserID, metrics.RawComposite{
		Date:     day.Date,
		Activity: day.Activity,
		Sleep:    day.Sleep,
		Heart:    day.Heart,
	}, c.now())

	res := &Result{
		Payloads: day.Payloads(),
		Record:   record,
		Missing:  day.Missing,
	}

	// Persistence and the downstream fan-out are best effort: the
	// caller's response never depends on them.
	if req.UserID != "" && c.DB != nil {
		if err := c.DB.UpsertDailyMetrics(ctx, record); err != nil {
			res.PersistErr = err
			c.Logger.Error("Daily metrics upsert failed", "user_id", req.UserID, "date", req.Date, "error", err)
			sentry.CaptureException(err, map[string]interface{}{
				"user_id": req.UserID,
				"date":    req.Date,
			}, c.Logger)
		} else {
			c.publishSynced(ctx, req, day)
		}
		c.archiveRaw(ctx, req, res.Payloads)
	}

	return res, nil
}

// cachedGet wraps a single upstream GET with the transient cache. The
// key joins the resource path with a credential prefix so responses
// are never shared across users.
func (c *Collector) cachedGet(ctx context.Context, path, accessToken string) (json.RawMessage, error) {
	key := path + "_" + credPrefix(accessToken)

	if payload, ok, err := c.Cache.Get(ctx, key); err != nil {
		c.Logger.Warn("Cache read failed, fetching upstream", "path", path, "error", err)
	} else if ok {
		return payload, nil
	}

	payload, err := c.Client.Get(ctx, path, accessToken)
	if err != nil {
		return nil, err
	}

	if err := c.Cache.Put(ctx, key, payload); err != nil {
		c.Logger.Warn("Cache write failed", "path", path, "error", err)
	}
	return payload, nil
}

func (c *Collector) publishSynced(ctx context.Context, req Request, day *fitbit.Day) {
	if c.Pub == nil {
		return
	}

	missing := make([]string, 0, len(day.Missing))
	for _, m := range day.Missing {
		missing = append(missing, string(m.Resource))
	}

	e, err := pubsub.NewCloudEvent(pubsub.SourceAPI, pubsub.EventTypeMetricsSynced, pubsub.MetricsSyncedEvent{
		UserID:   req.UserID,
		Date:     req.Date,
		Missing:  missing,
		SyncedAt: c.now(),
	})
	if err != nil {
		c.Logger.Error("Failed to build synced event", "error", err)
		return
	}
	if _, err := c.Pub.PublishCloudEvent(ctx, shared.TopicMetricsSynced, e); err != nil {
		c.Logger.Error("Failed to publish synced event", "user_id", req.UserID, "date", req.Date, "error", err)
	}
}

// archiveRaw writes the raw composite to the artifact bucket so the
// normalizer can be rerun against history after a mapping change.
func (c *Collector) archiveRaw(ctx context.Context, req Request, payloads map[string]json.RawMessage) {
	if c.Store == nil || c.Bucket == "" {
		return
	}

	blob, err := json.Marshal(payloads)
	if err != nil {
		c.Logger.Error("Failed to marshal raw archive", "error", err)
		return
	}
	object := infrastorage.RawPayloadObject(req.UserID, req.Date)
	if err := c.Store.Write(ctx, c.Bucket, object, blob); err != nil {
		c.Logger.Warn("Raw archive write failed", "object", object, "error", err)
	}
}
