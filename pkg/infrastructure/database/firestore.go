// Package database adapts the typed Firestore storage layer to the
// shared.Database interface the rest of the service depends on.
package database

import (
	"context"
	"fmt"

	fs "cloud.google.com/go/firestore"

	"github.com/pulseboard/server/pkg/insights"
	"github.com/pulseboard/server/pkg/metrics"
	"github.com/pulseboard/server/pkg/storage/firestore"
	"github.com/pulseboard/server/pkg/types"
)

type FirestoreAdapter struct {
	Client *firestore.Client
}

func NewFirestoreAdapter(client *firestore.Client) *FirestoreAdapter {
	return &FirestoreAdapter{Client: client}
}

func (a *FirestoreAdapter) GetUser(ctx context.Context, id string) (*types.UserRecord, error) {
	user, err := a.Client.Users().Doc(id).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return user, nil
}

// UpdateUserIntegration merges fields under integrations.fitbit, e.g.
// {"access_token": ..., "refresh_token": ..., "expires_at": ...} after a
// token rotation. Other user fields are untouched.
func (a *FirestoreAdapter) UpdateUserIntegration(ctx context.Context, id string, data map[string]interface{}) error {
	err := a.Client.Users().Doc(id).Update(ctx, map[string]interface{}{
		"integrations": map[string]interface{}{
			"fitbit": data,
		},
	})
	if err != nil {
		return fmt.Errorf("update user integration %s: %w", id, err)
	}
	return nil
}

func (a *FirestoreAdapter) UpsertDailyMetrics(ctx context.Context, record *metrics.DailyMetricRecord) error {
	if record.UserID == "" || record.Date == "" {
		return fmt.Errorf("daily metrics record missing user or date")
	}
	err := a.Client.DailyMetrics(record.UserID).Doc(record.Date).Set(ctx, record)
	if err != nil {
		return fmt.Errorf("upsert daily metrics %s/%s: %w", record.UserID, record.Date, err)
	}
	return nil
}

func (a *FirestoreAdapter) GetDailyMetrics(ctx context.Context, userID, date string) (*metrics.DailyMetricRecord, error) {
	record, err := a.Client.DailyMetrics(userID).Doc(date).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("get daily metrics %s/%s: %w", userID, date, err)
	}
	return record, nil
}

// QueryMetricsRange returns records with startDate <= date <= endDate,
// newest first. Date-keyed documents make this a lexical range scan.
func (a *FirestoreAdapter) QueryMetricsRange(ctx context.Context, userID, startDate, endDate string, limit int) ([]*metrics.DailyMetricRecord, error) {
	coll := a.Client.DailyMetrics(userID)
	q := coll.Ref.
		Where("date", ">=", startDate).
		Where("date", "<=", endDate).
		OrderBy("date", fs.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}
	records, err := coll.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query metrics range %s: %w", userID, err)
	}
	return records, nil
}

func (a *FirestoreAdapter) GetInsight(ctx context.Context, userID, date, inputHash string) (*insights.Record, error) {
	record, err := a.Client.Insights(userID).Doc(firestore.InsightDocID(date, inputHash)).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("get insight %s/%s: %w", userID, date, err)
	}
	return record, nil
}

func (a *FirestoreAdapter) SetInsight(ctx context.Context, userID string, record *insights.Record) error {
	err := a.Client.Insights(userID).Doc(firestore.InsightDocID(record.Date, record.InputHash)).Set(ctx, record)
	if err != nil {
		return fmt.Errorf("set insight %s/%s: %w", userID, record.Date, err)
	}
	return nil
}
