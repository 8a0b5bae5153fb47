package utils

import "math"

// NormalizeL2 scales the vector in place to unit L2 norm. A zero vector is
// left as is, since there is no direction to preserve.
func NormalizeL2(v []float32) {
	norm := L2Norm(v)
	if norm == 0 {
		return
	}
	inv := float32(1 / norm)
	for i := range v {
		v[i] *= inv
	}
}

// L2Norm returns the Euclidean length of v.
func L2Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
