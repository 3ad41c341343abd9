package reembed

import "math"

// NormalizeVector returns v scaled to unit length. The input is not modified.
// A zero vector normalizes to a zero vector of the same length.
func NormalizeVector(v []float32) []float32 {
	out := make([]float32, len(v))
	magnitude := Magnitude(v)
	if magnitude == 0 {
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / magnitude)
	}
	return out
}

// Magnitude returns the Euclidean length of v, accumulated in float64.
func Magnitude(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
