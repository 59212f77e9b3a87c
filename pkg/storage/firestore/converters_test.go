package firestore

import (
	"testing"
	"time"

	"github.com/pulseboard/server/pkg/insights"
	"github.com/pulseboard/server/pkg/metrics"
	"github.com/pulseboard/server/pkg/types"
)

func TestUserConverterRoundTrip(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	in := &types.UserRecord{
		UserID:      "user-1",
		Email:       "user@example.com",
		DisplayName: "Test User",
		Locale:      "ko-KR",
		Integrations: &types.Integrations{
			Fitbit: &types.FitbitIntegration{
				Enabled:      true,
				AccessToken:  "access-token",
				RefreshToken: "refresh-token",
				ExpiresAt:    now.Add(time.Hour),
				Scope:        "activity sleep heartrate profile",
				LastUsedAt:   now,
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	out := userFromFirestore(userToFirestore(in))

	if out.UserID != in.UserID || out.Email != in.Email || out.Locale != in.Locale {
		t.Errorf("identity fields mismatch: got %+v", out)
	}
	if out.Integrations == nil || out.Integrations.Fitbit == nil {
		t.Fatalf("fitbit integration not preserved")
	}
	fb := out.Integrations.Fitbit
	if !fb.Enabled || fb.AccessToken != "access-token" || fb.RefreshToken != "refresh-token" {
		t.Errorf("fitbit tokens mismatch: got %+v", fb)
	}
	if !fb.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Errorf("expires_at mismatch: got %v", fb.ExpiresAt)
	}
}

func TestUserConverterWithoutIntegrations(t *testing.T) {
	out := userFromFirestore(userToFirestore(&types.UserRecord{UserID: "user-2"}))
	if out.Integrations != nil {
		t.Errorf("expected nil integrations, got %+v", out.Integrations)
	}
}

func TestDailyMetricsConverterRoundTrip(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	in := &metrics.DailyMetricRecord{
		UserID: "user-1",
		Date:   "2025-06-01",
		Summary: &metrics.ActivitySummary{
			Steps:               8421,
			CaloriesOut:         2210,
			FairlyActiveMinutes: 25,
			VeryActiveMinutes:   18,
			SedentaryMinutes:    600,
			DistanceKm:          6.4,
		},
		Heart: &metrics.HeartSummary{
			RestingHeartRate: 58,
			Zones: []metrics.HeartZone{
				{Name: "Fat Burn", Min: 98, Max: 137, Minutes: 42, CaloriesOut: 310.5},
			},
		},
		Sleep: &metrics.SleepSummary{
			TotalMinutesAsleep: 445,
			TotalTimeInBed:     480,
			Efficiency:         93,
			Stages:             &metrics.SleepStages{Deep: 80, Light: 240, Rem: 90, Wake: 35},
		},
		UpdatedAt: now,
	}

	out := dailyMetricsFromFirestore(dailyMetricsToFirestore(in))

	if out.Date != in.Date || out.UserID != in.UserID {
		t.Errorf("keys mismatch: got %+v", out)
	}
	if out.Summary == nil || out.Summary.Steps != 8421 || out.Summary.DistanceKm != 6.4 {
		t.Errorf("summary mismatch: got %+v", out.Summary)
	}
	if out.Heart == nil || out.Heart.RestingHeartRate != 58 || len(out.Heart.Zones) != 1 {
		t.Fatalf("heart mismatch: got %+v", out.Heart)
	}
	if out.Heart.Zones[0].Name != "Fat Burn" || out.Heart.Zones[0].Minutes != 42 {
		t.Errorf("zone mismatch: got %+v", out.Heart.Zones[0])
	}
	if out.Sleep == nil || out.Sleep.TotalMinutesAsleep != 445 || out.Sleep.Stages == nil {
		t.Fatalf("sleep mismatch: got %+v", out.Sleep)
	}
	if out.Sleep.Stages.Deep != 80 {
		t.Errorf("stages mismatch: got %+v", out.Sleep.Stages)
	}
}

func TestDailyMetricsConverterPartialDay(t *testing.T) {
	in := &metrics.DailyMetricRecord{
		UserID:  "user-1",
		Date:    "2025-06-02",
		Summary: &metrics.ActivitySummary{Steps: 100},
	}
	out := dailyMetricsFromFirestore(dailyMetricsToFirestore(in))
	if out.Heart != nil || out.Sleep != nil {
		t.Errorf("absent sub-documents should stay nil: got heart=%+v sleep=%+v", out.Heart, out.Sleep)
	}
}

func TestInsightConverterRoundTrip(t *testing.T) {
	in := &insights.Record{
		UserID:    "user-1",
		Date:      "2025-06-01",
		InputHash: "abc123",
		Insight: insights.Insight{
			Summary:         "A solid day overall.",
			Activity:        "You were active.",
			Sleep:           "You slept well.",
			CardioHealth:    "Resting heart rate looks good.",
			Recommendations: []string{"Keep it up", "Hydrate", "Stretch"},
		},
		GeneratedBy: "gemini",
		CreatedAt:   time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
	}

	out := insightFromFirestore(insightToFirestore(in))

	if out.InputHash != "abc123" || out.GeneratedBy != "gemini" {
		t.Errorf("record fields mismatch: got %+v", out)
	}
	if out.Insight.Summary != in.Insight.Summary || out.Insight.CardioHealth != in.Insight.CardioHealth {
		t.Errorf("insight text mismatch: got %+v", out.Insight)
	}
	if len(out.Insight.Recommendations) != 3 {
		t.Errorf("expected 3 recommendations, got %v", out.Insight.Recommendations)
	}
}

func TestGetIntHandlesFirestoreNumericTypes(t *testing.T) {
	data := map[string]interface{}{"a": int64(5), "b": float64(7), "c": "nope"}
	if got := getInt(data, "a"); got != 5 {
		t.Errorf("int64: got %d", got)
	}
	if got := getInt(data, "b"); got != 7 {
		t.Errorf("float64: got %d", got)
	}
	if got := getInt(data, "c"); got != 0 {
		t.Errorf("mistyped: got %d", got)
	}
}

func TestInsightDocID(t *testing.T) {
	if got := InsightDocID("2025-06-01", "deadbeef"); got != "2025-06-01_deadbeef" {
		t.Errorf("got %q", got)
	}
}
