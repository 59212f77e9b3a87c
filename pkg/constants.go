package shared

const (
	ProjectID = "pulseboard-project" // Can be overridden by env var in main if needed

	TopicMetricBackfill = "topic-metric-backfill"
	TopicMetricsSynced  = "topic-metrics-synced"

	CollectionUsers        = "users"
	CollectionDailyMetrics = "daily_metrics"
	CollectionInsights     = "insights"
)
