package tensor

import "github.com/pkg/errors"

// Reshape returns a copy of t with a new shape.
// The element count must be preserved, otherwise it fails with ErrShape.
//
// Example:
//
//	t, _ := tensor.Zeros(12)
//	r, _ := t.Reshape(3, 4) // Shape: (3, 4)
func (t *Tensor) Reshape(shape ...int) (*Tensor, error) {
	s := Shape(shape)
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.NumElements() != t.NumElements() {
		return nil, errors.Wrapf(ErrShape, "reshape: cannot reshape %s (%d elements) into %s (%d elements)",
			t.shape, t.NumElements(), s, s.NumElements())
	}
	out := t.Clone()
	out.shape = s.Clone()
	out.stride = s.ComputeStrides()
	return out, nil
}

// Transpose swaps the two axes of a rank-2 tensor, producing a new tensor (not a view).
// Rank-1 tensors are returned as a copy. Other ranks fail with ErrShape.
func Transpose(t *Tensor) (*Tensor, error) {
	switch t.Rank() {
	case 1:
		return t.Clone(), nil
	case 2:
	default:
		return nil, errors.Wrapf(ErrShape, "transpose: expected rank 1 or 2, got shape %s", t.shape)
	}

	rows, cols := t.shape[0], t.shape[1]
	out := newUnchecked(t.dtype, Shape{cols, rows})
	if t.dtype == Int32 {
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				out.i32[j*rows+i] = t.i32[i*cols+j]
			}
		}
		return out, nil
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.f32[j*rows+i] = t.f32[i*cols+j]
		}
	}
	return out, nil
}

// T is shorthand for Transpose that panics on unsupported ranks.
func (t *Tensor) T() *Tensor {
	out, err := Transpose(t)
	if err != nil {
		panic(err)
	}
	return out
}
