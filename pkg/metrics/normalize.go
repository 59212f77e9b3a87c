package metrics

import (
	"encoding/json"
	"time"
)

// RawComposite carries the undecoded upstream payloads for one day.
// Any sub-payload may be nil when the corresponding fetch failed or was
// not requested; Normalize treats those as absent rather than erroring.
type RawComposite struct {
	Date     string
	Activity json.RawMessage
	Sleep    json.RawMessage
	Heart    json.RawMessage
}

// Upstream response shapes. Only the fields the dashboard consumes are
// decoded; everything else is ignored.

type activityPayload struct {
	Summary struct {
		Steps               int     `json:"steps"`
		CaloriesOut         int     `json:"caloriesOut"`
		FairlyActiveMinutes int     `json:"fairlyActiveMinutes"`
		VeryActiveMinutes   int     `json:"veryActiveMinutes"`
		SedentaryMinutes    int     `json:"sedentaryMinutes"`
		Distances           []struct {
			Activity string  `json:"activity"`
			Distance float64 `json:"distance"`
		} `json:"distances"`
	} `json:"summary"`
}

type sleepPayload struct {
	Summary struct {
		TotalMinutesAsleep int `json:"totalMinutesAsleep"`
		TotalTimeInBed     int `json:"totalTimeInBed"`
		Efficiency         int `json:"efficiency"`
		Stages             *struct {
			Deep  int `json:"deep"`
			Light int `json:"light"`
			Rem   int `json:"rem"`
			Wake  int `json:"wake"`
		} `json:"stages"`
	} `json:"summary"`
	Sleep []struct {
		Efficiency int `json:"efficiency"`
	} `json:"sleep"`
}

type heartPayload struct {
	ActivitiesHeart []struct {
		Value struct {
			RestingHeartRate int `json:"restingHeartRate"`
			HeartRateZones   []struct {
				Name        string  `json:"name"`
				Min         int     `json:"min"`
				Max         int     `json:"max"`
				Minutes     int     `json:"minutes"`
				CaloriesOut float64 `json:"caloriesOut"`
			} `json:"heartRateZones"`
		} `json:"value"`
	} `json:"activities-heart"`
}

// Normalize reshapes the heterogeneous upstream payloads into a flat
// per-day record. Pure function: no I/O, no clock beyond the UpdatedAt
// stamp supplied by the caller via now.
func Normalize(userID string, raw RawComposite, now time.Time) *DailyMetricRecord {
	rec := &DailyMetricRecord{
		UserID:    userID,
		Date:      raw.Date,
		UpdatedAt: now,
	}

	if len(raw.Activity) > 0 {
		var p activityPayload
		if err := json.Unmarshal(raw.Activity, &p); err == nil {
			summary := &ActivitySummary{
				Steps:               p.Summary.Steps,
				CaloriesOut:         p.Summary.CaloriesOut,
				FairlyActiveMinutes: p.Summary.FairlyActiveMinutes,
				VeryActiveMinutes:   p.Summary.VeryActiveMinutes,
				SedentaryMinutes:    p.Summary.SedentaryMinutes,
			}
			for _, d := range p.Summary.Distances {
				if d.Activity == "total" {
					summary.DistanceKm = d.Distance
				}
			}
			rec.Summary = summary
		}
	}

	if len(raw.Sleep) > 0 {
		var p sleepPayload
		if err := json.Unmarshal(raw.Sleep, &p); err == nil {
			sleep := &SleepSummary{
				TotalMinutesAsleep: p.Summary.TotalMinutesAsleep,
				TotalTimeInBed:     p.Summary.TotalTimeInBed,
				Efficiency:         p.Summary.Efficiency,
			}
			// The summary block omits efficiency; fall back to the first log.
			if sleep.Efficiency == 0 && len(p.Sleep) > 0 {
				sleep.Efficiency = p.Sleep[0].Efficiency
			}
			if p.Summary.Stages != nil {
				sleep.Stages = &SleepStages{
					Deep:  p.Summary.Stages.Deep,
					Light: p.Summary.Stages.Light,
					Rem:   p.Summary.Stages.Rem,
					Wake:  p.Summary.Stages.Wake,
				}
			}
			rec.Sleep = sleep
		}
	}

	if len(raw.Heart) > 0 {
		var p heartPayload
		if err := json.Unmarshal(raw.Heart, &p); err == nil && len(p.ActivitiesHeart) > 0 {
			v := p.ActivitiesHeart[0].Value
			heart := &HeartSummary{RestingHeartRate: v.RestingHeartRate}
			for _, z := range v.HeartRateZones {
				heart.Zones = append(heart.Zones, HeartZone{
					Name:        z.Name,
					Min:         z.Min,
					Max:         z.Max,
					Minutes:     z.Minutes,
					CaloriesOut: z.CaloriesOut,
				})
			}
			rec.Heart = heart
		}
	}

	return rec
}
