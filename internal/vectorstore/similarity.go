package vectorstore

// Converter maps a backend-reported raw distance to a bounded similarity in
// (0, 1]. Backends report distance on different scales (squared Euclidean,
// cosine distance), so the conversion is a pluggable strategy configured
// alongside the backend rather than a hard-coded formula.
type Converter func(distance float64) float64

// Reciprocal converts distance d to 1/(1+d). Zero distance maps to 1 and
// similarity falls off monotonically as distance grows. Negative distances
// (some backends report them for certain metrics) are folded through their
// absolute value rather than producing a similarity above 1.
func Reciprocal(distance float64) float64 {
	if distance < 0 {
		distance = -distance
	}
	return 1 / (1 + distance)
}

// OneMinus converts a cosine distance d in [0, 2] to 1-d, clamped to stay
// inside (0, 1]. Suited to backends whose distance is already bounded.
func OneMinus(distance float64) float64 {
	s := 1 - distance
	if s <= 0 {
		return 1e-9
	}
	if s > 1 {
		return 1
	}
	return s
}

// SquaredEuclidean returns the squared L2 distance between two vectors of
// equal dimension. This is the raw distance scale of the built-in backends.
func SquaredEuclidean(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i] - b[i])
		sum += d * d
	}
	return sum
}
