package progress

import "sort"

// Slope fits an ordinary-least-squares line through the series with
// x = sequence index and y = score, and returns its slope:
//
//	slope = (n*Sxy - Sx*Sy) / (n*Sxx - Sx^2)
//
// Fewer than two points carry no direction, so the slope is 0. A degenerate
// denominator (all x equal, impossible for index x but kept as a guard)
// also yields 0.
func Slope(series []float64) float64 {
	n := len(series)
	if n < 2 {
		return 0
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range series {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := float64(n)*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (float64(n)*sumXY - sumX*sumY) / denom
}

// trendOrder returns the history's dimension keys in a stable order so trend
// output is deterministic.
func trendOrder(history map[string][]float64) []string {
	keys := make([]string, 0, len(history))
	for k := range history {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
