package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pulseboard/server/pkg/api"
	"github.com/pulseboard/server/pkg/bootstrap"
	"github.com/pulseboard/server/pkg/collector"
	"github.com/pulseboard/server/pkg/fitbit"
	"github.com/pulseboard/server/pkg/infrastructure/oauth"
	"github.com/pulseboard/server/pkg/infrastructure/sentry"
	"github.com/pulseboard/server/pkg/insights"
)

func main() {
	ctx := context.Background()

	svc, err := bootstrap.NewService(ctx)
	if err != nil {
		slog.Error("Service init failed", "error", err)
		os.Exit(1)
	}
	cfg := svc.Config
	logger := bootstrap.NewLogger("api")

	if err := sentry.Init(sentry.Config{
		DSN:         cfg.SentryDSN,
		Environment: cfg.Environment,
		ServerName:  "api",
	}, logger); err != nil {
		logger.Error("Sentry init failed", "error", err)
		os.Exit(1)
	}
	defer sentry.Flush(2 * time.Second)

	client := fitbit.NewClient(cfg.LocaleTag(), logger)
	if cfg.FitbitBaseURL != "" {
		client.BaseURL = cfg.FitbitBaseURL
	}

	col := collector.New(client, svc.Cache, svc.DB, logger)
	col.Pub = svc.Pub
	col.Store = svc.Store
	col.Bucket = cfg.ArtifactBucket

	var gen insights.Generator
	if cfg.GeminiAPIKey != "" {
		gen = insights.NewGeminiGenerator(cfg.GeminiAPIKey, cfg.GeminiModel)
		logger.Info("Insight generator: Gemini", "model", cfg.GeminiModel)
	} else {
		logger.Warn("GEMINI_API_KEY not set, insights use the rule-based fallback only")
	}
	ins := insights.NewService(svc.DB, gen, logger)

	creds := oauth.ClientCredentials{
		ClientID:     cfg.FitbitClientID,
		ClientSecret: cfg.FitbitClientSecret,
	}
	server := api.NewServer(col, ins, svc.DB, svc.Pub, &api.FirebaseVerifier{Client: svc.Auth}, creds, logger)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("API listening", "addr", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown failed", "error", err)
	}
}
