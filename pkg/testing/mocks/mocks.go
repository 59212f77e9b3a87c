// Package mocks provides func-field test doubles for the shared
// interfaces. Unset funcs return benign defaults.
package mocks

import (
	"context"
	"fmt"

	"github.com/cloudevents/sdk-go/v2/event"

	"github.com/pulseboard/server/pkg/insights"
	"github.com/pulseboard/server/pkg/metrics"
	"github.com/pulseboard/server/pkg/types"
)

// --- Mock Database ---
type MockDatabase struct {
	GetUserFunc               func(ctx context.Context, id string) (*types.UserRecord, error)
	UpdateUserIntegrationFunc func(ctx context.Context, id string, data map[string]interface{}) error
	UpsertDailyMetricsFunc    func(ctx context.Context, record *metrics.DailyMetricRecord) error
	GetDailyMetricsFunc       func(ctx context.Context, userID, date string) (*metrics.DailyMetricRecord, error)
	QueryMetricsRangeFunc     func(ctx context.Context, userID, startDate, endDate string, limit int) ([]*metrics.DailyMetricRecord, error)
	GetInsightFunc            func(ctx context.Context, userID, date, inputHash string) (*insights.Record, error)
	SetInsightFunc            func(ctx context.Context, userID string, record *insights.Record) error
}

func (m *MockDatabase) GetUser(ctx context.Context, id string) (*types.UserRecord, error) {
	if m.GetUserFunc != nil {
		return m.GetUserFunc(ctx, id)
	}
	return nil, fmt.Errorf("user not found")
}

func (m *MockDatabase) UpdateUserIntegration(ctx context.Context, id string, data map[string]interface{}) error {
	if m.UpdateUserIntegrationFunc != nil {
		return m.UpdateUserIntegrationFunc(ctx, id, data)
	}
	return nil
}

func (m *MockDatabase) UpsertDailyMetrics(ctx context.Context, record *metrics.DailyMetricRecord) error {
	if m.UpsertDailyMetricsFunc != nil {
		return m.UpsertDailyMetricsFunc(ctx, record)
	}
	return nil
}

func (m *MockDatabase) GetDailyMetrics(ctx context.Context, userID, date string) (*metrics.DailyMetricRecord, error) {
	if m.GetDailyMetricsFunc != nil {
		return m.GetDailyMetricsFunc(ctx, userID, date)
	}
	return nil, nil
}

func (m *MockDatabase) QueryMetricsRange(ctx context.Context, userID, startDate, endDate string, limit int) ([]*metrics.DailyMetricRecord, error) {
	if m.QueryMetricsRangeFunc != nil {
		return m.QueryMetricsRangeFunc(ctx, userID, startDate, endDate, limit)
	}
	return nil, nil
}

func (m *MockDatabase) GetInsight(ctx context.Context, userID, date, inputHash string) (*insights.Record, error) {
	if m.GetInsightFunc != nil {
		return m.GetInsightFunc(ctx, userID, date, inputHash)
	}
	return nil, nil
}

func (m *MockDatabase) SetInsight(ctx context.Context, userID string, record *insights.Record) error {
	if m.SetInsightFunc != nil {
		return m.SetInsightFunc(ctx, userID, record)
	}
	return nil
}

// --- Mock Publisher ---
type MockPublisher struct {
	PublishCloudEventFunc func(ctx context.Context, topic string, e event.Event) (string, error)
}

func (m *MockPublisher) PublishCloudEvent(ctx context.Context, topic string, e event.Event) (string, error) {
	if m.PublishCloudEventFunc != nil {
		return m.PublishCloudEventFunc(ctx, topic, e)
	}
	return "msg-id", nil
}

// --- Mock Storage ---
type MockBlobStore struct {
	WriteFunc func(ctx context.Context, bucket, object string, data []byte) error
	ReadFunc  func(ctx context.Context, bucket, object string) ([]byte, error)
}

func (m *MockBlobStore) Write(ctx context.Context, bucket, object string, data []byte) error {
	if m.WriteFunc != nil {
		return m.WriteFunc(ctx, bucket, object, data)
	}
	return nil
}

func (m *MockBlobStore) Read(ctx context.Context, bucket, object string) ([]byte, error) {
	if m.ReadFunc != nil {
		return m.ReadFunc(ctx, bucket, object)
	}
	return nil, fmt.Errorf("object not found")
}
