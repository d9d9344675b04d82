package tensor

import "math"

// Equal reports whether a and b have the same shape and identical element values.
// Data types may differ; values are compared numerically.
func Equal(a, b *Tensor) bool {
	if !a.shape.Equal(b.shape) {
		return false
	}
	for i := 0; i < a.NumElements(); i++ {
		if a.at(i) != b.at(i) {
			return false
		}
	}
	return true
}

// AllClose reports whether a and b have the same shape and every pair of elements
// differs by at most tol.
func AllClose(a, b *Tensor, tol float64) bool {
	if !a.shape.Equal(b.shape) {
		return false
	}
	for i := 0; i < a.NumElements(); i++ {
		if math.Abs(a.at(i)-b.at(i)) > tol {
			return false
		}
	}
	return true
}
