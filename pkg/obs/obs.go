// Package obs holds the service's Prometheus instrumentation.
package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pulseboard_cache_hits_total",
		Help: "Transient cache lookups served without an upstream call.",
	})
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pulseboard_cache_misses_total",
		Help: "Transient cache lookups that missed or had expired.",
	})
	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulseboard_upstream_requests_total",
		Help: "HTTP attempts against the upstream fitness API by status class.",
	}, []string{"status"})
	UpstreamRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pulseboard_upstream_retries_total",
		Help: "Retries issued after upstream rate-limit responses.",
	})
	FlightJoins = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pulseboard_inflight_joins_total",
		Help: "Requests that joined an already in-flight fetch instead of owning one.",
	})
	GeneratorCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulseboard_insight_generations_total",
		Help: "Insight generations by producer (gemini or fallback).",
	}, []string{"producer"})
)
