package vector

import "math"

// InnerProduct returns a·b, or 0 when the lengths differ.
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// Norm returns the Euclidean length of x.
func Norm(x []float32) float64 {
	return math.Sqrt(InnerProduct(x, x))
}

// Normalize scales x in place to unit length. Zero vectors are left as is.
func Normalize(x []float32) {
	n := Norm(x)
	if n == 0 {
		return
	}
	for i := range x {
		x[i] = float32(float64(x[i]) / n)
	}
}

// Cosine returns the cosine similarity of a and b in [-1, 1]; 0 when either
// is a zero vector.
func Cosine(a, b []float32) float64 {
	na, nb := Norm(a), Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return math.Max(-1, math.Min(1, InnerProduct(a, b)/(na*nb)))
}
