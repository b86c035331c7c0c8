package domain

import "time"

// IndicatorStatus classifies a single indicator score for display.
type IndicatorStatus string

const (
	StatusExcellent IndicatorStatus = "excellent"
	StatusGood      IndicatorStatus = "good"
	StatusModerate  IndicatorStatus = "moderate"
	StatusPoor      IndicatorStatus = "poor"
)

const (
	// Indicator status thresholds
	ExcellentThreshold = 90.0
	GoodThreshold      = 75.0
	ModerateThreshold  = 60.0
)

// IndicatorResult is one named sub-signal of an assessment.
type IndicatorResult struct {
	ID     string          `json:"id"`   // stable identifier, ex: "cert"
	Name   string          `json:"name"` // display label, ex: "Certificate Health"
	Score  float64         `json:"score"`
	Status IndicatorStatus `json:"status"`
}

// StatusForScore derives the display status for an indicator score.
func StatusForScore(score float64) IndicatorStatus {
	switch {
	case score >= ExcellentThreshold:
		return StatusExcellent
	case score >= GoodThreshold:
		return StatusGood
	case score >= ModerateThreshold:
		return StatusModerate
	default:
		return StatusPoor
	}
}

// Assessment is one scan outcome for a canonical domain.
// Indicators keep their evaluation order, which is also display order.
type Assessment struct {
	Domain      string            `json:"domain"`
	SafetyScore float64           `json:"safetyScore"`
	Indicators  []IndicatorResult `json:"indicators"`
	ComputedAt  time.Time         `json:"computedAt"`
}

// Valid reports whether the assessment is a well-formed success.
// Only valid assessments may be cached.
func (a *Assessment) Valid() bool {
	if a == nil || a.Domain == "" {
		return false
	}
	return a.SafetyScore >= 0 && a.SafetyScore <= 100
}

// RecentScan is one entry of the bounded most-recently-seen list.
type RecentScan struct {
	Domain    string    `json:"domain"`
	Score     float64   `json:"score"`
	Tier      IconTier  `json:"tier"`
	ScannedAt time.Time `json:"scannedAt"`
}
