package analyzers

import "math"

// stepScore buckets an issue percentage into a fixed score. The buckets are
// business constants shared by every deal and company check.
func stepScore(pct float64) int {
	switch {
	case pct == 0:
		return 100
	case pct <= 5:
		return 85
	case pct <= 15:
		return 60
	default:
		return 30
	}
}

// percentage returns count/total as a percentage rounded to one decimal.
func percentage(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(count)/float64(total)*1000) / 10
}

func clampScore(score int) int {
	if score < 40 {
		return 40
	}
	if score > 100 {
		return 100
	}
	return score
}
