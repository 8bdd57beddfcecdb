package rebuild

import "math"

// NormalizeVector returns a unit-length copy of v so inner-product scoring
// behaves as cosine similarity. A zero or empty vector has no direction to
// preserve and comes back as zeros.
func NormalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}

	out := make([]float32, len(v))
	if sumSquares == 0 {
		return out
	}

	inv := float32(1 / math.Sqrt(sumSquares))
	for i, x := range v {
		out[i] = x * inv
	}
	return out
}
