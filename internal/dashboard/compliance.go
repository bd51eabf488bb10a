package dashboard

import "math"

// ComplianceCounts are the static check results behind a compliance card.
type ComplianceCounts struct {
	Passed   int `json:"passed"`
	Warnings int `json:"warnings"`
	Failed   int `json:"failed"`
}

// ComplianceScore weighs passed checks fully and warnings at half, on a 0-100 scale.
func ComplianceScore(c ComplianceCounts) float64 {
	total := c.Passed + c.Warnings + c.Failed
	if total <= 0 {
		return 0
	}
	score := (float64(c.Passed) + 0.5*float64(c.Warnings)) / float64(total) * 100
	return math.Round(score*10) / 10
}

// ComplianceSeverity buckets a score for its badge.
func ComplianceSeverity(score float64) string {
	switch {
	case score >= 90:
		return "low"
	case score >= 75:
		return "medium"
	case score >= 50:
		return "high"
	default:
		return "critical"
	}
}
