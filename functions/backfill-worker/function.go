// Package backfillworker consumes per-day backfill jobs and runs the
// full acquisition path for each: fetch, normalize, upsert.
package backfillworker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/cloudevents/sdk-go/v2/event"

	"github.com/pulseboard/server/pkg/bootstrap"
	"github.com/pulseboard/server/pkg/collector"
	"github.com/pulseboard/server/pkg/fitbit"
	"github.com/pulseboard/server/pkg/framework"
	"github.com/pulseboard/server/pkg/infrastructure/oauth"
	"github.com/pulseboard/server/pkg/infrastructure/pubsub"
	"github.com/pulseboard/server/pkg/types"
)

var (
	svc     *bootstrap.Service
	svcOnce sync.Once
	svcErr  error
)

func init() {
	functions.CloudEvent("BackfillDay", BackfillDay)
}

func initService(ctx context.Context) (*bootstrap.Service, error) {
	if svc != nil {
		return svc, nil
	}
	svcOnce.Do(func() {
		baseSvc, err := bootstrap.NewService(ctx)
		if err != nil {
			slog.Error("Failed to initialize service", "error", err)
			svcErr = err
			return
		}
		svc = baseSvc
	})
	return svc, svcErr
}

// BackfillDay is the entry point
func BackfillDay(ctx context.Context, e event.Event) error {
	svc, err := initService(ctx)
	if err != nil {
		return fmt.Errorf("service init failed: %v", err)
	}
	return framework.WrapCloudEvent("backfill-worker", svc, backfillHandler(nil))(ctx, e)
}

// backfillHandler contains the business logic.
// col can be injected for testing; if nil, one is built from the service.
func backfillHandler(col *collector.Collector) framework.HandlerFunc {
	return func(ctx context.Context, e event.Event, fwCtx *framework.FrameworkContext) (interface{}, error) {
		var msg types.PubSubMessage
		if err := e.DataAs(&msg); err != nil {
			return nil, fmt.Errorf("event.DataAs: %v", err)
		}

		var job pubsub.BackfillJob
		if err := json.Unmarshal(msg.Message.Data, &job); err != nil {
			return nil, fmt.Errorf("unmarshal backfill job: %v", err)
		}
		if job.UserID == "" || job.Date == "" {
			return nil, fmt.Errorf("backfill job missing user_id or date")
		}

		fwCtx.Logger.Info("Backfilling day", "date", job.Date, "backfill_request_id", job.RequestID)

		if col == nil {
			col = newCollector(fwCtx)
		}

		creds := oauth.ClientCredentials{
			ClientID:     fwCtx.Service.Config.FitbitClientID,
			ClientSecret: fwCtx.Service.Config.FitbitClientSecret,
		}
		src := oauth.NewFirestoreTokenSource(fwCtx.Service.DB, creds, job.UserID)

		res, err := col.CollectAs(ctx, src, collector.Request{
			UserID: job.UserID,
			Type:   collector.TypeAll,
			Date:   job.Date,
		})
		if err != nil {
			return nil, fmt.Errorf("collect %s: %w", job.Date, err)
		}
		if res.PersistErr != nil {
			// Fail the invocation so Pub/Sub retries the day: a backfill
			// that fetched but never stored did nothing.
			return nil, fmt.Errorf("persist %s: %w", job.Date, res.PersistErr)
		}

		missing := make([]string, 0, len(res.Missing))
		for _, m := range res.Missing {
			missing = append(missing, string(m.Resource))
		}

		return map[string]interface{}{
			"date":    job.Date,
			"missing": missing,
		}, nil
	}
}

func newCollector(fwCtx *framework.FrameworkContext) *collector.Collector {
	cfg := fwCtx.Service.Config

	client := fitbit.NewClient(cfg.LocaleTag(), fwCtx.Logger)
	if cfg.FitbitBaseURL != "" {
		client.BaseURL = cfg.FitbitBaseURL
	}

	col := collector.New(client, fwCtx.Service.Cache, fwCtx.Service.DB, fwCtx.Logger)
	col.Pub = fwCtx.Service.Pub
	col.Store = fwCtx.Service.Store
	col.Bucket = cfg.ArtifactBucket
	return col
}
