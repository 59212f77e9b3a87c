package shared

import (
	"context"

	"github.com/cloudevents/sdk-go/v2/event"

	"github.com/pulseboard/server/pkg/insights"
	"github.com/pulseboard/server/pkg/metrics"
	"github.com/pulseboard/server/pkg/types"
)

// --- Persistence Interfaces ---

type Database interface {
	GetUser(ctx context.Context, id string) (*types.UserRecord, error)
	UpdateUserIntegration(ctx context.Context, id string, data map[string]interface{}) error

	// Daily metrics: one document per (user, calendar day), upsert replaces.
	UpsertDailyMetrics(ctx context.Context, record *metrics.DailyMetricRecord) error
	GetDailyMetrics(ctx context.Context, userID, date string) (*metrics.DailyMetricRecord, error)
	QueryMetricsRange(ctx context.Context, userID, startDate, endDate string, limit int) ([]*metrics.DailyMetricRecord, error)

	// Insights: one document per (user, day, input hash).
	GetInsight(ctx context.Context, userID, date, inputHash string) (*insights.Record, error)
	SetInsight(ctx context.Context, userID string, record *insights.Record) error
}

// --- Messaging Interfaces ---

type Publisher interface {
	PublishCloudEvent(ctx context.Context, topic string, e event.Event) (string, error)
}

// --- Storage Interfaces ---

type BlobStore interface {
	Write(ctx context.Context, bucket, object string, data []byte) error
	Read(ctx context.Context, bucket, object string) ([]byte, error)
}
