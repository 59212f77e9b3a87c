// Package framework wraps CloudEvent handlers with the logging and
// error-reporting boilerplate every worker otherwise repeats.
package framework

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/cloudevents/sdk-go/v2/event"

	"github.com/pulseboard/server/pkg/bootstrap"
	"github.com/pulseboard/server/pkg/infrastructure/sentry"
	"github.com/pulseboard/server/pkg/types"
)

// FrameworkContext contains dependencies injected by the framework.
type FrameworkContext struct {
	Service *bootstrap.Service
	Logger  *slog.Logger
}

// HandlerFunc is the signature for a cloud function handler.
type HandlerFunc func(ctx context.Context, e event.Event, fwCtx *FrameworkContext) (interface{}, error)

// WrapCloudEvent wraps a handler with structured logging and Sentry
// capture. Handler errors propagate so Pub/Sub redelivers the event.
func WrapCloudEvent(serviceName string, svc *bootstrap.Service, handler HandlerFunc) func(context.Context, event.Event) error {
	return func(ctx context.Context, e event.Event) error {
		userID := extractUserID(e)

		logLevelStr := strings.ToLower(os.Getenv("LOG_LEVEL"))
		var logLevel slog.Level
		switch logLevelStr {
		case "debug":
			logLevel = slog.LevelDebug
		case "warn":
			logLevel = slog.LevelWarn
		case "error":
			logLevel = slog.LevelError
		default:
			logLevel = slog.LevelInfo
		}

		opts := bootstrap.GetSlogHandlerOptions(logLevel)
		logger := slog.New(slog.NewJSONHandler(os.Stdout, opts)).With("service", serviceName)
		if userID != "" {
			logger = logger.With("user_id", userID)
		}

		logger.Info("Function started", "event_type", e.Type(), "event_id", e.ID())
		start := time.Now()

		fwCtx := &FrameworkContext{
			Service: svc,
			Logger:  logger,
		}

		outputs, err := handler(ctx, e, fwCtx)
		if err != nil {
			logger.Error("Function failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
			sentry.CaptureException(err, map[string]interface{}{
				"service":  serviceName,
				"event_id": e.ID(),
				"user_id":  userID,
			}, logger)
			return err
		}

		logger.Info("Function completed successfully",
			"duration_ms", time.Since(start).Milliseconds(),
			"outputs", outputs,
		)
		return nil
	}
}

// extractUserID pulls the user_id out of a Pub/Sub-wrapped payload so
// every log line of the invocation carries it.
func extractUserID(e event.Event) string {
	var msg types.PubSubMessage
	if err := e.DataAs(&msg); err != nil {
		return ""
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(msg.Message.Data, &payload); err != nil {
		return ""
	}
	if uid, ok := payload["user_id"].(string); ok {
		return uid
	}
	return ""
}
