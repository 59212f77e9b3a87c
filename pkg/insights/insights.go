// Package insights turns a day's normalized metrics into narrative
// health insights, caching generated output by a content hash of its
// input so identical metrics never re-invoke the generator.
package insights

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Metrics is the generator input: the flattened view of one day.
type Metrics struct {
	Steps            int     `json:"steps"`
	SleepHours       float64 `json:"sleep"`
	RestingHeartRate int     `json:"restingHeartRate"`
	HRV              int     `json:"hrvValue"`
	Calories         int     `json:"calories"`
	ActiveMinutes    int     `json:"activeMinutes"`
}

// Insight is the structured narrative. All string fields and at least
// one recommendation are required for an insight to be considered valid.
type Insight struct {
	Summary         string   `json:"summary"`
	Activity        string   `json:"activity"`
	Sleep           string   `json:"sleep"`
	CardioHealth    string   `json:"cardioHealth"`
	Recommendations []string `json:"recommendations"`
}

// Record is the durable insight document, keyed by (user, date, input hash).
type Record struct {
	UserID      string
	Date        string // YYYY-MM-DD
	InputHash   string
	Insight     Insight
	GeneratedBy string // "gemini" or "fallback"
	CreatedAt   time.Time
}

// Hash computes the content hash of the metrics used for cache lookups.
// Fields are marshalled in struct order, so equal inputs always produce
// equal hashes.
func Hash(m Metrics) string {
	b, _ := json.Marshal(m)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Validate enforces the required-fields contract on generator output.
func Validate(ins *Insight) error {
	if ins == nil {
		return fmt.Errorf("insight is nil")
	}
	if ins.Summary == "" {
		return fmt.Errorf("missing summary")
	}
	if ins.Activity == "" {
		return fmt.Errorf("missing activity")
	}
	if ins.Sleep == "" {
		return fmt.Errorf("missing sleep")
	}
	if ins.CardioHealth == "" {
		return fmt.Errorf("missing cardioHealth")
	}
	if len(ins.Recommendations) == 0 {
		return fmt.Errorf("missing recommendations")
	}
	return nil
}
