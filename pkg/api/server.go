// Package api exposes the dashboard-facing HTTP surface: metrics
// fetch, history, backfill, and daily insights, all behind Firebase
// authentication.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	shared "github.com/pulseboard/server/pkg"
	"github.com/pulseboard/server/pkg/collector"
	"github.com/pulseboard/server/pkg/infrastructure/oauth"
	"github.com/pulseboard/server/pkg/insights"
)

// Server hosts the HTTP API.
type Server struct {
	Collector *collector.Collector
	Insights  *insights.Service
	DB        shared.Database
	Pub       shared.Publisher
	Verifier  TokenVerifier
	Logger    *slog.Logger

	// tokenSource builds a per-user upstream token source. Tests
	// substitute fakes here.
	tokenSource func(userID string) oauth.TokenSource

	now func() time.Time
}

func NewServer(col *collector.Collector, ins *insights.Service, db shared.Database, pub shared.Publisher, verifier TokenVerifier, creds oauth.ClientCredentials, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		Collector: col,
		Insights:  ins,
		DB:        db,
		Pub:       pub,
		Verifier:  verifier,
		Logger:    logger,
		tokenSource: func(userID string) oauth.TokenSource {
			return oauth.NewFirestoreTokenSource(db, creds, userID)
		},
		now: time.Now,
	}
}

// Router builds the chi router with the full route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(requestIDMiddleware)
	r.Use(s.logMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Get("/metrics", s.handleGetMetrics)
		r.Get("/metrics/history", s.handleGetHistory)
		r.Post("/metrics/backfill", s.handlePostBackfill)
		r.Post("/insights/daily", s.handlePostInsight)
	})

	return r
}
