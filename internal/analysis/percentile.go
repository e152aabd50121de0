package analysis

import "math"

// PercentileSorted returns the p-th percentile (p in [0,1]) of an ascending
// slice using nearest-rank selection: the value at index round(p*(n-1)),
// rounding halves to even, clamped to the slice bounds. No interpolation.
// An empty slice yields 0.
func PercentileSorted(sorted []int64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(math.RoundToEven(p * float64(n-1)))
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	return float64(sorted[idx])
}
