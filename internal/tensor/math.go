package tensor

import "math"

// Log computes the element-wise natural logarithm.
// Non-positive inputs follow IEEE semantics (NaN or -Inf) rather than failing.
func Log(a *Tensor) *Tensor {
	return unary(a, func(x float32) float32 { return float32(math.Log(float64(x))) })
}

// Exp computes the element-wise exponential.
func Exp(a *Tensor) *Tensor {
	return unary(a, func(x float32) float32 { return float32(math.Exp(float64(x))) })
}

// Pow raises every element to the integer power p.
// Integer tensors with a non-negative exponent stay integer.
func Pow(a *Tensor, p int) *Tensor {
	if a.dtype == Int32 && p >= 0 {
		out := newUnchecked(Int32, a.shape)
		for i, v := range a.i32 {
			r := int32(1)
			for k := 0; k < p; k++ {
				r *= v
			}
			out.i32[i] = r
		}
		return out
	}
	return unary(a, func(x float32) float32 { return float32(math.Pow(float64(x), float64(p))) })
}

// PowTensor raises a to the element-wise power p, with p broadcast like Add.
func PowTensor(a, p *Tensor) (*Tensor, error) {
	return binary("pow", a, p,
		func(x, y float32) float32 { return float32(math.Pow(float64(x), float64(y))) },
		nil)
}

// Sqrt computes the element-wise square root.
func Sqrt(a *Tensor) *Tensor {
	return unary(a, func(x float32) float32 { return float32(math.Sqrt(float64(x))) })
}
