package insights

import (
	"context"
	"log/slog"
	"time"

	"github.com/pulseboard/server/pkg/obs"
)

// Store is the slice of the durable store the insight cache needs.
type Store interface {
	GetInsight(ctx context.Context, userID, date, inputHash string) (*Record, error)
	SetInsight(ctx context.Context, userID string, record *Record) error
}

// Service is the insight cache and generator gateway.
type Service struct {
	Store  Store
	Gen    Generator
	Logger *slog.Logger

	now func() time.Time
}

func NewService(store Store, gen Generator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{Store: store, Gen: gen, Logger: logger, now: time.Now}
}

// GetOrGenerate returns the insight for (userID, date, hash(metrics)).
// A stored record for the same input hash is returned as-is without a
// generator call. Otherwise the generator runs; on any generator or
// validation failure the deterministic fallback fills in, so the caller
// always receives a valid record. Persistence of a fresh record is
// best-effort: a store write failure is logged, not surfaced.
func (s *Service) GetOrGenerate(ctx context.Context, userID, date string, m Metrics) (*Record, error) {
	inputHash := Hash(m)

	if existing, err := s.Store.GetInsight(ctx, userID, date, inputHash); err == nil && existing != nil {
		s.Logger.Debug("Insight cache hit", "user_id", userID, "date", date)
		return existing, nil
	}

	ins, generatedBy := s.generate(ctx, m)

	record := &Record{
		UserID:      userID,
		Date:        date,
		InputHash:   inputHash,
		Insight:     *ins,
		GeneratedBy: generatedBy,
		CreatedAt:   s.now(),
	}

	if err := s.Store.SetInsight(ctx, userID, record); err != nil {
		s.Logger.Warn("Failed to persist insight", "user_id", userID, "date", date, "error", err)
	}

	return record, nil
}

func (s *Service) generate(ctx context.Context, m Metrics) (*Insight, string) {
	if s.Gen != nil {
		ins, err := s.Gen.Generate(ctx, m)
		if err == nil {
			if verr := Validate(ins); verr == nil {
				obs.GeneratorCalls.WithLabelValues("gemini").Inc()
				return ins, "gemini"
			} else {
				err = verr
			}
		}
		s.Logger.Warn("Insight generator failed, using rule-based fallback", "error", err)
	}
	obs.GeneratorCalls.WithLabelValues("fallback").Inc()
	return Fallback(m), "fallback"
}
