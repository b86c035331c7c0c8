package domain

// IconTier is the three-state classification driving the extension icon,
// the in-page alert tier and the recent-scans list.
type IconTier string

const (
	TierSafe    IconTier = "safe"
	TierWarning IconTier = "warning"
	TierDanger  IconTier = "danger"
)

const (
	// SafeThreshold is the minimum score considered safe (no in-page alert).
	SafeThreshold = 75.0
	// WarningThreshold is the minimum score that avoids the danger tier
	// and native notification eligibility.
	WarningThreshold = 60.0
)

// TierForScore maps a safety score onto an icon tier.
// Boundary values land upward: 75 is safe, 60 is warning.
func TierForScore(score float64) IconTier {
	switch {
	case score >= SafeThreshold:
		return TierSafe
	case score >= WarningThreshold:
		return TierWarning
	default:
		return TierDanger
	}
}

// ShouldAlert reports whether the in-page overlay must be shown.
func ShouldAlert(score float64) bool {
	return score < SafeThreshold
}

// NotifyEligible reports whether the score alone qualifies for a native
// notification. The effective preference gate (soft toggle AND host
// permission) is applied by the notification gateway.
func NotifyEligible(score float64) bool {
	return score < WarningThreshold
}
