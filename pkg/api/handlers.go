package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	shared "github.com/pulseboard/server/pkg"
	"github.com/pulseboard/server/pkg/collector"
	"github.com/pulseboard/server/pkg/infrastructure/pubsub"
	"github.com/pulseboard/server/pkg/insights"
	"github.com/pulseboard/server/pkg/metrics"
)

const dateLayout = "2006-01-02"

// backfillMonths are the windows the dashboard offers.
var backfillMonths = map[int]bool{1: true, 2: true, 6: true, 12: true}

// GET /v1/metrics?date=YYYY-MM-DD&type=all
func (s *Server) handleGetMetrics(w http.ResponseWriter, r *http.Request) {
	uid := UserID(r.Context())

	date := r.URL.Query().Get("date")
	if date == "" || date == "today" {
		date = s.now().Format(dateLayout)
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	fetchType := r.URL.Query().Get("type")
	if fetchType == "" {
		fetchType = collector.TypeAll
	}
	if !collector.ValidType(fetchType) {
		writeError(w, http.StatusBadRequest, "invalid type")
		return
	}

	res, err := s.Collector.CollectAs(r.Context(), s.tokenSource(uid), collector.Request{
		UserID: uid,
		Type:   fetchType,
		Date:   date,
	})
	if err != nil {
		s.Logger.Error("Metrics fetch failed", "user_id", uid, "date", date, "type", fetchType, "error", err)
		writeUpstreamError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"date":    date,
		"type":    fetchType,
		"data":    res.Payloads,
		"missing": res.Missing,
	})
}

// GET /v1/metrics/history?start=YYYY-MM-DD&end=YYYY-MM-DD&limit=30
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	uid := UserID(r.Context())
	q := r.URL.Query()

	end := q.Get("end")
	if end == "" {
		end = s.now().Format(dateLayout)
	}
	endDay, err := time.Parse(dateLayout, end)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end date")
		return
	}

	start := q.Get("start")
	if start == "" {
		start = endDay.AddDate(0, 0, -30).Format(dateLayout)
	}
	if _, err := time.Parse(dateLayout, start); err != nil {
		writeError(w, http.StatusBadRequest, "invalid start date")
		return
	}

	limit := 30
	if raw := q.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 366 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
	}

	records, err := s.DB.QueryMetricsRange(r.Context(), uid, start, end, limit)
	if err != nil {
		s.Logger.Error("History query failed", "user_id", uid, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	snapshots := make([]metrics.Snapshot, 0, len(records))
	for _, rec := range records {
		snapshots = append(snapshots, rec.ToSnapshot())
	}
	snapshots = metrics.FilterSnapshots(snapshots)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(snapshots),
		"data":    snapshots,
	})
}

type backfillRequest struct {
	Months int `json:"months"`
}

// POST /v1/metrics/backfill enqueues one job per day in the window;
// the worker does the fetching so the request returns immediately.
func (s *Server) handlePostBackfill(w http.ResponseWriter, r *http.Request) {
	uid := UserID(r.Context())

	var body backfillRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !backfillMonths[body.Months] {
		writeError(w, http.StatusBadRequest, "months must be one of 1, 2, 6, 12")
		return
	}

	requestID := uuid.New().String()
	today := s.now()
	startDay := today.AddDate(0, -body.Months, 0)

	days := 0
	for day := today.AddDate(0, 0, -1); !day.Before(startDay); day = day.AddDate(0, 0, -1) {
		job := pubsub.BackfillJob{
			UserID:    uid,
			Date:      day.Format(dateLayout),
			RequestID: requestID,
		}
		e, err := pubsub.NewCloudEvent(pubsub.SourceAPI, pubsub.EventTypeBackfillDay, job)
		if err != nil {
			s.Logger.Error("Failed to build backfill event", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to enqueue backfill")
			return
		}
		if _, err := s.Pub.PublishCloudEvent(r.Context(), shared.TopicMetricBackfill, e); err != nil {
			s.Logger.Error("Failed to publish backfill job", "user_id", uid, "date", job.Date, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to enqueue backfill")
			return
		}
		days++
	}

	s.Logger.Info("Backfill enqueued", "user_id", uid, "months", body.Months, "days", days, "backfill_request_id", requestID)

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"success":    true,
		"request_id": requestID,
		"days":       days,
	})
}

type insightRequest struct {
	Date    string            `json:"date"`
	Metrics *insights.Metrics `json:"metrics"`
}

// POST /v1/insights/daily returns the cached insight for the day's
// metrics, generating one if the inputs changed.
func (s *Server) handlePostInsight(w http.ResponseWriter, r *http.Request) {
	uid := UserID(r.Context())

	var body insightRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Date == "" {
		body.Date = s.now().Format(dateLayout)
	}
	if _, err := time.Parse(dateLayout, body.Date); err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	m := body.Metrics
	if m == nil {
		record, err := s.DB.GetDailyMetrics(r.Context(), uid, body.Date)
		if err != nil {
			s.Logger.Error("Metrics load failed", "user_id", uid, "date", body.Date, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to load metrics")
			return
		}
		if record == nil {
			writeError(w, http.StatusNotFound, "no metrics stored for this date")
			return
		}
		m = metricsFromRecord(record)
	}

	record, err := s.Insights.GetOrGenerate(r.Context(), uid, body.Date, *m)
	if err != nil {
		s.Logger.Error("Insight generation failed", "user_id", uid, "date", body.Date, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to generate insight")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"date":        record.Date,
		"generatedBy": record.GeneratedBy,
		"data":        record.Insight,
	})
}

// metricsFromRecord flattens a stored day into generator input. HRV is
// not captured by the acquisition path, so it stays zero here.
func metricsFromRecord(rec *metrics.DailyMetricRecord) *insights.Metrics {
	m := &insights.Metrics{}
	if rec.Summary != nil {
		m.Steps = rec.Summary.Steps
		m.Calories = rec.Summary.CaloriesOut
		m.ActiveMinutes = rec.Summary.ActiveMinutes()
	}
	if rec.Heart != nil {
		m.RestingHeartRate = rec.Heart.RestingHeartRate
	}
	if rec.Sleep != nil {
		m.SleepHours = metrics.PackSleepHours(rec.Sleep.TotalMinutesAsleep)
	}
	return m
}
