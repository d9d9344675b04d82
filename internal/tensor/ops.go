package tensor

import (
	"github.com/pkg/errors"
)

// broadcastPair resolves the result shape of an element-wise operation.
//
// Equal shapes combine element by element. Otherwise the smaller operand is
// repeated along the leading axes of the larger one (see Shape.BroadcastsTo):
// a bias vector of shape (n) or (1, n) against a (m, n) matrix, or a single
// element against anything.
func broadcastPair(op string, a, b Shape) (Shape, error) {
	switch {
	case a.Equal(b):
		return a, nil
	case b.BroadcastsTo(a):
		return a, nil
	case a.BroadcastsTo(b):
		return b, nil
	default:
		return nil, errors.Wrapf(ErrShape, "%s: incompatible shapes %s and %s", op, a, b)
	}
}

// binary applies an element-wise function with broadcasting.
// fi may be nil, in which case the operation is always computed in float32.
func binary(op string, a, b *Tensor, ff func(x, y float32) float32, fi func(x, y int32) int32) (*Tensor, error) {
	shape, err := broadcastPair(op, a.shape, b.shape)
	if err != nil {
		return nil, err
	}
	aN, bN := a.NumElements(), b.NumElements()

	dtype := promote(a.dtype, b.dtype)
	if fi == nil {
		dtype = Float32
	}
	out := newUnchecked(dtype, shape)

	if dtype == Int32 {
		for i := range out.i32 {
			out.i32[i] = fi(a.i32[i%aN], b.i32[i%bN])
		}
		return out, nil
	}

	af, bf := a.floats(), b.floats()
	for i := range out.f32 {
		out.f32[i] = ff(af[i%aN], bf[i%bN])
	}
	return out, nil
}

// unary applies an element-wise function, always producing float32.
func unary(a *Tensor, f func(x float32) float32) *Tensor {
	out := newUnchecked(Float32, a.shape)
	for i, v := range a.floats() {
		out.f32[i] = f(v)
	}
	return out
}

// Add performs element-wise addition.
//
// When b has lower rank (or leading unit axes) and matches the trailing
// dimensions of a, b is broadcast across the leading dimensions of a:
//
//	x: (m, n), bias: (n) -> (m, n)
//
// Any other shape mismatch fails with ErrShape naming both shapes.
func Add(a, b *Tensor) (*Tensor, error) {
	return binary("add", a, b,
		func(x, y float32) float32 { return x + y },
		func(x, y int32) int32 { return x + y })
}

// Sub performs element-wise subtraction with the same broadcasting as Add.
func Sub(a, b *Tensor) (*Tensor, error) {
	return binary("sub", a, b,
		func(x, y float32) float32 { return x - y },
		func(x, y int32) int32 { return x - y })
}

// Mul performs element-wise multiplication.
// A single-element operand acts as a scalar.
func Mul(a, b *Tensor) (*Tensor, error) {
	return binary("multiply", a, b,
		func(x, y float32) float32 { return x * y },
		func(x, y int32) int32 { return x * y })
}

// Div performs element-wise division; the result is always float32.
func Div(a, b *Tensor) (*Tensor, error) {
	return binary("divide", a, b,
		func(x, y float32) float32 { return x / y },
		nil)
}

// Scale multiplies every element by a bare scalar.
// Integer tensors stay integer when s is integral.
func Scale(a *Tensor, s float32) *Tensor {
	if a.dtype == Int32 && s == float32(int32(s)) {
		out := newUnchecked(Int32, a.shape)
		k := int32(s)
		for i, v := range a.i32 {
			out.i32[i] = v * k
		}
		return out
	}
	return unary(a, func(x float32) float32 { return x * s })
}

// Neg returns -a.
func Neg(a *Tensor) *Tensor {
	return Scale(a, -1)
}

// Maximum returns max(a, s) element-wise, e.g. Maximum(x, 0) for ReLU.
func Maximum(a *Tensor, s float32) *Tensor {
	return unary(a, func(x float32) float32 {
		if x > s {
			return x
		}
		return s
	})
}

// Where returns x where mask is non-zero and y elsewhere. All three shapes must match.
func Where(mask, x, y *Tensor) (*Tensor, error) {
	if !mask.shape.Equal(x.shape) || !x.shape.Equal(y.shape) {
		return nil, errors.Wrapf(ErrShape, "where: shapes %s, %s and %s must match", mask.shape, x.shape, y.shape)
	}
	m, xf, yf := mask.floats(), x.floats(), y.floats()
	out := newUnchecked(Float32, x.shape)
	for i := range out.f32 {
		if m[i] != 0 {
			out.f32[i] = xf[i]
		} else {
			out.f32[i] = yf[i]
		}
	}
	return out, nil
}
