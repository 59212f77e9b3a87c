package insights

import "fmt"

// Fallback produces a deterministic rule-based insight from the same
// metrics the generator sees. It is the hard-required safety net: when
// the generator errors or returns something that fails validation, the
// caller still gets a structurally valid insight.
func Fallback(m Metrics) *Insight {
	ins := &Insight{
		Activity:     activityAnalysis(m),
		Sleep:        sleepAnalysis(m),
		CardioHealth: cardioAnalysis(m),
	}

	switch {
	case m.Steps >= 7500 && m.SleepHours >= 7 && m.SleepHours <= 9 && m.RestingHeartRate <= 70 && m.HRV >= 40:
		ins.Summary = "Overall health looks good. Balanced activity and sleep are keeping cardiovascular health well maintained."
	case m.Steps < 5000 || m.SleepHours < 6 || m.RestingHeartRate > 80 || m.HRV < 30:
		ins.Summary = "Some health indicators need attention. Work through the recommendations below to improve gradually."
	default:
		ins.Summary = "Health is at a moderate level. Improving a few indicators would move things toward a better overall state."
	}

	if m.Steps < 10000 {
		extra := 10000 - m.Steps
		if extra > 3000 {
			extra = 3000
		}
		ins.Recommendations = append(ins.Recommendations,
			fmt.Sprintf("Walk about %d more steps a day to increase activity.", extra))
	} else {
		ins.Recommendations = append(ins.Recommendations,
			"Keep up the current step count.")
	}

	if m.HRV < 45 {
		ins.Recommendations = append(ins.Recommendations,
			"Try 10 minutes of deep breathing or meditation before bed to improve HRV.")
	} else {
		ins.Recommendations = append(ins.Recommendations,
			"Maintain HRV with regular rest and stress management.")
	}

	if m.SleepHours < 7 {
		ins.Recommendations = append(ins.Recommendations,
			fmt.Sprintf("Extend sleep by at least %.1f hours to reach 7 or more.", 7-m.SleepHours))
	} else {
		ins.Recommendations = append(ins.Recommendations,
			"Keep a consistent sleep schedule to protect sleep quality.")
	}

	return ins
}

func activityAnalysis(m Metrics) string {
	switch {
	case m.Steps >= 10000:
		return fmt.Sprintf("Step count of %d meets the daily 10,000-step target. Consistent activity strongly supports cardiovascular health and overall wellbeing.", m.Steps)
	case m.Steps >= 7500:
		return fmt.Sprintf("Step count of %d is decent, but %d more steps would reach the daily 10,000-step target.", m.Steps, 10000-m.Steps)
	default:
		return fmt.Sprintf("Step count of %d is on the low side of the daily 10,000-step target. Consider building more walking into the day.", m.Steps)
	}
}

func sleepAnalysis(m Metrics) string {
	switch {
	case m.SleepHours >= 7 && m.SleepHours <= 9:
		return fmt.Sprintf("Sleep duration of %.1f hours is within the ideal adult range of 7-9 hours.", m.SleepHours)
	case m.SleepHours < 7:
		return fmt.Sprintf("Sleep duration of %.1f hours is below the recommended 7-9 hour range. Chronic short sleep can cause long-term health issues.", m.SleepHours)
	default:
		return fmt.Sprintf("Sleep duration of %.1f hours is above the recommended 7-9 hour range. Persistently long sleep can itself signal a health issue.", m.SleepHours)
	}
}

func cardioAnalysis(m Metrics) string {
	var s string
	switch {
	case m.RestingHeartRate <= 60:
		s = fmt.Sprintf("Resting heart rate of %d bpm is excellent and indicates strong cardiovascular health.", m.RestingHeartRate)
	case m.RestingHeartRate <= 70:
		s = fmt.Sprintf("Resting heart rate of %d bpm is within the healthy range.", m.RestingHeartRate)
	case m.RestingHeartRate <= 80:
		s = fmt.Sprintf("Resting heart rate of %d bpm is average. Regular cardio exercise can improve it.", m.RestingHeartRate)
	default:
		s = fmt.Sprintf("Resting heart rate of %d bpm is somewhat elevated. Regular aerobic exercise and stress management can help.", m.RestingHeartRate)
	}

	switch {
	case m.HRV >= 50:
		s += fmt.Sprintf(" HRV of %dms indicates excellent autonomic health and good stress resilience.", m.HRV)
	case m.HRV >= 40:
		s += fmt.Sprintf(" HRV of %dms is solid; meditation or breathing exercises can raise it further.", m.HRV)
	default:
		s += fmt.Sprintf(" HRV of %dms has room to improve through rest, better sleep and stress management.", m.HRV)
	}
	return s
}
