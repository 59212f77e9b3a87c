package metrics

// Historical records written before the storage cutover contain a known
// placeholder pattern: zero steps paired with a fixed calorie estimate
// the old importer stamped on empty days. They carry no signal and are
// excluded from read-side result sets. Once the one-time backfill
// cleanup has rewritten those rows this filter can be removed; keep the
// constants here so the cleanup job and the read path agree.
const (
	placeholderCalories = 1737
	placeholderCutover  = "2025-04-10"
)

// IsPlaceholder reports whether a snapshot matches the known bad-data
// signature from before the cutover date.
func IsPlaceholder(s Snapshot) bool {
	return s.Date < placeholderCutover && s.Steps == 0 && s.Calories == placeholderCalories
}

// HasSignal reports whether a snapshot contains any real measurement.
func HasSignal(s Snapshot) bool {
	return s.Steps > 0 || s.ActiveMinutes > 0 || s.RestingHeartRate > 0 || s.SleepHours > 0
}

// FilterSnapshots drops placeholder and empty rows from a history
// result set. Applied at read time only; stored rows are untouched.
func FilterSnapshots(in []Snapshot) []Snapshot {
	out := make([]Snapshot, 0, len(in))
	for _, s := range in {
		if IsPlaceholder(s) || !HasSignal(s) {
			continue
		}
		out = append(out, s)
	}
	return out
}
