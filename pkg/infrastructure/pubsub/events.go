package pubsub

import (
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// CloudEvent types and sources used on the wire.
const (
	EventTypeBackfillDay   = "com.pulseboard.job.backfill-day"
	EventTypeMetricsSynced = "com.pulseboard.event.metrics-synced"

	SourceAPI            = "//pulseboard/api"
	SourceBackfillWorker = "//pulseboard/backfill-worker"
)

// BackfillJob asks the backfill worker to fetch and store one user-day.
type BackfillJob struct {
	UserID    string `json:"user_id"`
	Date      string `json:"date"` // YYYY-MM-DD
	RequestID string `json:"request_id"`
}

// MetricsSyncedEvent announces that a day's record was upserted.
type MetricsSyncedEvent struct {
	UserID   string    `json:"user_id"`
	Date     string    `json:"date"`
	Missing  []string  `json:"missing,omitempty"` // sub-resources that failed
	SyncedAt time.Time `json:"synced_at"`
}

// NewCloudEvent creates a standardized CloudEvent v1.0
func NewCloudEvent(source, eventType string, data interface{}) (cloudevents.Event, error) {
	e := cloudevents.NewEvent()
	e.SetSpecVersion("1.0")
	e.SetType(eventType)
	e.SetSource(source)

	if err := e.SetData(cloudevents.ApplicationJSON, data); err != nil {
		return e, err
	}

	return e, nil
}
