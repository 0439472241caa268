package vector

import "math"

// Cosine returns the cosine similarity of a and b, accumulated in float64.
//
// It returns 0 when the lengths differ, when either vector is empty, or when
// either norm is zero. Callers must read that 0 as "no signal".
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	// Rounding can push the ratio one ulp past ±1.
	return math.Max(-1, math.Min(1, dot/denom))
}
