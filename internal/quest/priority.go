package quest

import "math"

// CalculatePriority scores an adaptation in [1,100].
func CalculatePriority(intensity float64, changed bool, trend Trend, significance float64) int {
	score := 50 + unit(intensity)*30 + unit(significance)*20
	if changed {
		score += 20
	}
	if trend == TrendVolatile {
		score += 15
	}
	p := int(math.Round(score))
	if p < 1 {
		return 1
	}
	if p > 100 {
		return 100
	}
	return p
}

func unit(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
