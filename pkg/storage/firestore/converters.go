package firestore

import (
	"time"

	"github.com/pulseboard/server/pkg/insights"
	"github.com/pulseboard/server/pkg/metrics"
	"github.com/pulseboard/server/pkg/types"
)

// Converters translate between domain structs and the snake_case
// document shape stored in Firestore. Absent or mistyped fields decode
// to zero values rather than erroring; documents written by older
// revisions stay readable.

func userToFirestore(u *types.UserRecord) map[string]interface{} {
	doc := map[string]interface{}{
		"user_id":      u.UserID,
		"email":        u.Email,
		"display_name": u.DisplayName,
		"locale":       u.Locale,
		"created_at":   u.CreatedAt,
		"updated_at":   u.UpdatedAt,
	}
	if u.Integrations != nil && u.Integrations.Fitbit != nil {
		f := u.Integrations.Fitbit
		doc["integrations"] = map[string]interface{}{
			"fitbit": map[string]interface{}{
				"enabled":       f.Enabled,
				"access_token":  f.AccessToken,
				"refresh_token": f.RefreshToken,
				"expires_at":    f.ExpiresAt,
				"scope":         f.Scope,
				"last_used_at":  f.LastUsedAt,
			},
		}
	}
	return doc
}

func userFromFirestore(data map[string]interface{}) *types.UserRecord {
	u := &types.UserRecord{
		UserID:      getString(data, "user_id"),
		Email:       getString(data, "email"),
		DisplayName: getString(data, "display_name"),
		Locale:      getString(data, "locale"),
		CreatedAt:   getTime(data, "created_at"),
		UpdatedAt:   getTime(data, "updated_at"),
	}
	if integrations := getMap(data, "integrations"); integrations != nil {
		if fitbit := getMap(integrations, "fitbit"); fitbit != nil {
			u.Integrations = &types.Integrations{
				Fitbit: &types.FitbitIntegration{
					Enabled:      getBool(fitbit, "enabled"),
					AccessToken:  getString(fitbit, "access_token"),
					RefreshToken: getString(fitbit, "refresh_token"),
					ExpiresAt:    getTime(fitbit, "expires_at"),
					Scope:        getString(fitbit, "scope"),
					LastUsedAt:   getTime(fitbit, "last_used_at"),
				},
			}
		}
	}
	return u
}

func dailyMetricsToFirestore(r *metrics.DailyMetricRecord) map[string]interface{} {
	doc := map[string]interface{}{
		"user_id":    r.UserID,
		"date":       r.Date,
		"updated_at": r.UpdatedAt,
	}
	if r.Summary != nil {
		doc["summary"] = map[string]interface{}{
			"steps":                 r.Summary.Steps,
			"calories_out":          r.Summary.CaloriesOut,
			"fairly_active_minutes": r.Summary.FairlyActiveMinutes,
			"very_active_minutes":   r.Summary.VeryActiveMinutes,
			"sedentary_minutes":     r.Summary.SedentaryMinutes,
			"distance_km":           r.Summary.DistanceKm,
		}
	}
	if r.Heart != nil {
		zones := make([]interface{}, 0, len(r.Heart.Zones))
		for _, z := range r.Heart.Zones {
			zones = append(zones, map[string]interface{}{
				"name":         z.Name,
				"min":          z.Min,
				"max":          z.Max,
				"minutes":      z.Minutes,
				"calories_out": z.CaloriesOut,
			})
		}
		doc["heart"] = map[string]interface{}{
			"resting_heart_rate": r.Heart.RestingHeartRate,
			"zones":              zones,
		}
	}
	if r.Sleep != nil {
		sleep := map[string]interface{}{
			"total_minutes_asleep": r.Sleep.TotalMinutesAsleep,
			"total_time_in_bed":    r.Sleep.TotalTimeInBed,
			"efficiency":           r.Sleep.Efficiency,
		}
		if r.Sleep.Stages != nil {
			sleep["stages"] = map[string]interface{}{
				"deep":  r.Sleep.Stages.Deep,
				"light": r.Sleep.Stages.Light,
				"rem":   r.Sleep.Stages.Rem,
				"wake":  r.Sleep.Stages.Wake,
			}
		}
		doc["sleep"] = sleep
	}
	return doc
}

func dailyMetricsFromFirestore(data map[string]interface{}) *metrics.DailyMetricRecord {
	r := &metrics.DailyMetricRecord{
		UserID:    getString(data, "user_id"),
		Date:      getString(data, "date"),
		UpdatedAt: getTime(data, "updated_at"),
	}
	if summary := getMap(data, "summary"); summary != nil {
		r.Summary = &metrics.ActivitySummary{
			Steps:               getInt(summary, "steps"),
			CaloriesOut:         getInt(summary, "calories_out"),
			FairlyActiveMinutes: getInt(summary, "fairly_active_minutes"),
			VeryActiveMinutes:   getInt(summary, "very_active_minutes"),
			SedentaryMinutes:    getInt(summary, "sedentary_minutes"),
			DistanceKm:          getFloat(summary, "distance_km"),
		}
	}
	if heart := getMap(data, "heart"); heart != nil {
		h := &metrics.HeartSummary{
			RestingHeartRate: getInt(heart, "resting_heart_rate"),
		}
		if zones, ok := heart["zones"].([]interface{}); ok {
			for _, raw := range zones {
				zone, ok := raw.(map[string]interface{})
				if !ok {
					continue
				}
				h.Zones = append(h.Zones, metrics.HeartZone{
					Name:        getString(zone, "name"),
					Min:         getInt(zone, "min"),
					Max:         getInt(zone, "max"),
					Minutes:     getInt(zone, "minutes"),
					CaloriesOut: getFloat(zone, "calories_out"),
				})
			}
		}
		r.Heart = h
	}
	if sleep := getMap(data, "sleep"); sleep != nil {
		s := &metrics.SleepSummary{
			TotalMinutesAsleep: getInt(sleep, "total_minutes_asleep"),
			TotalTimeInBed:     getInt(sleep, "total_time_in_bed"),
			Efficiency:         getInt(sleep, "efficiency"),
		}
		if stages := getMap(sleep, "stages"); stages != nil {
			s.Stages = &metrics.SleepStages{
				Deep:  getInt(stages, "deep"),
				Light: getInt(stages, "light"),
				Rem:   getInt(stages, "rem"),
				Wake:  getInt(stages, "wake"),
			}
		}
		r.Sleep = s
	}
	return r
}

func insightToFirestore(rec *insights.Record) map[string]interface{} {
	recs := make([]interface{}, 0, len(rec.Insight.Recommendations))
	for _, r := range rec.Insight.Recommendations {
		recs = append(recs, r)
	}
	return map[string]interface{}{
		"user_id":    rec.UserID,
		"date":       rec.Date,
		"input_hash": rec.InputHash,
		"insight": map[string]interface{}{
			"summary":         rec.Insight.Summary,
			"activity":        rec.Insight.Activity,
			"sleep":           rec.Insight.Sleep,
			"cardio_health":   rec.Insight.CardioHealth,
			"recommendations": recs,
		},
		"generated_by": rec.GeneratedBy,
		"created_at":   rec.CreatedAt,
	}
}

func insightFromFirestore(data map[string]interface{}) *insights.Record {
	rec := &insights.Record{
		UserID:      getString(data, "user_id"),
		Date:        getString(data, "date"),
		InputHash:   getString(data, "input_hash"),
		GeneratedBy: getString(data, "generated_by"),
		CreatedAt:   getTime(data, "created_at"),
	}
	if ins := getMap(data, "insight"); ins != nil {
		rec.Insight = insights.Insight{
			Summary:      getString(ins, "summary"),
			Activity:     getString(ins, "activity"),
			Sleep:        getString(ins, "sleep"),
			CardioHealth: getString(ins, "cardio_health"),
		}
		if recs, ok := ins["recommendations"].([]interface{}); ok {
			for _, raw := range recs {
				if s, ok := raw.(string); ok {
					rec.Insight.Recommendations = append(rec.Insight.Recommendations, s)
				}
			}
		}
	}
	return rec
}

func getString(data map[string]interface{}, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}

func getBool(data map[string]interface{}, key string) bool {
	if v, ok := data[key].(bool); ok {
		return v
	}
	return false
}

func getInt(data map[string]interface{}, key string) int {
	switch v := data[key].(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func getFloat(data map[string]interface{}, key string) float64 {
	switch v := data[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

func getTime(data map[string]interface{}, key string) time.Time {
	if v, ok := data[key].(time.Time); ok {
		return v
	}
	return time.Time{}
}

func getMap(data map[string]interface{}, key string) map[string]interface{} {
	if v, ok := data[key].(map[string]interface{}); ok {
		return v
	}
	return nil
}
