package metrics

import "time"

// ActivitySummary is the normalized daily activity sub-document.
type ActivitySummary struct {
	Steps               int
	CaloriesOut         int
	FairlyActiveMinutes int
	VeryActiveMinutes   int
	SedentaryMinutes    int
	DistanceKm          float64
}

// ActiveMinutes is the display convention used across the dashboard:
// fairly-active plus very-active minutes.
func (a *ActivitySummary) ActiveMinutes() int {
	if a == nil {
		return 0
	}
	return a.FairlyActiveMinutes + a.VeryActiveMinutes
}

type HeartZone struct {
	Name        string
	Min         int
	Max         int
	Minutes     int
	CaloriesOut float64
}

type HeartSummary struct {
	RestingHeartRate int
	Zones            []HeartZone
}

type SleepStages struct {
	Deep  int
	Light int
	Rem   int
	Wake  int
}

type SleepSummary struct {
	TotalMinutesAsleep int
	TotalTimeInBed     int
	Efficiency         int
	Stages             *SleepStages
}

// DailyMetricRecord is the durable per-(user, day) document. Exactly one
// exists per (UserID, Date); writes replace the whole data sub-document.
type DailyMetricRecord struct {
	UserID    string
	Date      string // YYYY-MM-DD
	Summary   *ActivitySummary
	Heart     *HeartSummary
	Sleep     *SleepSummary
	UpdatedAt time.Time
}

// Snapshot is the flattened read-side view served by the history endpoint.
type Snapshot struct {
	Date             string  `json:"date"`
	Steps            int     `json:"steps"`
	Calories         int     `json:"calories"`
	ActiveMinutes    int     `json:"activeMinutes"`
	RestingHeartRate int     `json:"restingHeartRate,omitempty"`
	SleepHours       float64 `json:"sleepDuration,omitempty"`
	SleepEfficiency  int     `json:"sleepEfficiency,omitempty"`
}

// ToSnapshot flattens a record for history responses.
func (r *DailyMetricRecord) ToSnapshot() Snapshot {
	s := Snapshot{Date: r.Date}
	if r.Summary != nil {
		s.Steps = r.Summary.Steps
		s.Calories = r.Summary.CaloriesOut
		s.ActiveMinutes = r.Summary.ActiveMinutes()
	}
	if r.Heart != nil {
		s.RestingHeartRate = r.Heart.RestingHeartRate
	}
	if r.Sleep != nil && r.Sleep.TotalMinutesAsleep > 0 {
		s.SleepHours = PackSleepHours(r.Sleep.TotalMinutesAsleep)
		s.SleepEfficiency = r.Sleep.Efficiency
	}
	return s
}

// PackSleepHours converts minutes asleep into the decimal-packed hour
// format the dashboard renders, e.g. 7h25m -> 7.25. This is a display
// convention, not true fractional hours.
func PackSleepHours(minutesAsleep int) float64 {
	return float64(minutesAsleep/60) + float64(minutesAsleep%60)/100
}
