package tensor

import "github.com/pkg/errors"

// Sum reduces t along axis, dropping that axis from the shape.
// Reducing a rank-1 tensor yields shape (1).
//
// Example:
//
//	t: (3, 4) -> Sum(t, 0): (4), Sum(t, 1): (3)
func Sum(t *Tensor, axis int) (*Tensor, error) {
	if axis < 0 || axis >= t.Rank() {
		return nil, errors.Wrapf(ErrShape, "sum: axis %d out of range for shape %s", axis, t.shape)
	}

	outShape := make(Shape, 0, t.Rank())
	outShape = append(outShape, t.shape[:axis]...)
	outShape = append(outShape, t.shape[axis+1:]...)
	if len(outShape) == 0 {
		outShape = Shape{1}
	}

	outer := Shape(t.shape[:axis]).NumElements()
	dim := t.shape[axis]
	inner := Shape(t.shape[axis+1:]).NumElements()

	out := newUnchecked(t.dtype, outShape)
	for o := 0; o < outer; o++ {
		for d := 0; d < dim; d++ {
			src := (o*dim + d) * inner
			dst := o * inner
			if t.dtype == Int32 {
				for i := 0; i < inner; i++ {
					out.i32[dst+i] += t.i32[src+i]
				}
			} else {
				for i := 0; i < inner; i++ {
					out.f32[dst+i] += t.f32[src+i]
				}
			}
		}
	}
	return out, nil
}

// SumAll sums every element into a tensor of shape (1).
func SumAll(t *Tensor) *Tensor {
	out := newUnchecked(t.dtype, Shape{1})
	for _, v := range t.i32 {
		out.i32[0] += v
	}
	for _, v := range t.f32 {
		out.f32[0] += v
	}
	return out
}

// SumTo reduces t to shape by summing over the axes a broadcast would have repeated.
// It is the adjoint of broadcasting: SumTo(grad, bias.Shape()) collapses a (m, n)
// gradient back onto a (n) bias.
func SumTo(t *Tensor, shape Shape) (*Tensor, error) {
	if t.shape.Equal(shape) {
		return t.Clone(), nil
	}
	if !shape.BroadcastsTo(t.shape) {
		return nil, errors.Wrapf(ErrShape, "sum_to: cannot reduce %s onto %s", t.shape, shape)
	}
	out := newUnchecked(t.dtype, shape)
	n := shape.NumElements()
	if n == 0 {
		return out, nil
	}
	if t.dtype == Int32 {
		for i, v := range t.i32 {
			out.i32[i%n] += v
		}
		return out, nil
	}
	for i, v := range t.f32 {
		out.f32[i%n] += v
	}
	return out, nil
}

// rows views t as (rows, cols) over its last axis. Rank-1 tensors form a single row.
func (t *Tensor) rows() (rows, cols int) {
	cols = t.shape[len(t.shape)-1]
	if cols == 0 {
		return 0, 0
	}
	return t.NumElements() / cols, cols
}

// Argmax returns the index of the maximum element per row (rank >= 2, over the
// last axis) or globally (rank 1, shape (1)). Ties resolve to the first occurrence.
// The result is int32.
func Argmax(t *Tensor) (*Tensor, error) {
	rows, cols := t.rows()
	if cols == 0 {
		return nil, errors.Wrapf(ErrShape, "argmax: empty rows in shape %s", t.shape)
	}

	outShape := Shape{1}
	if t.Rank() >= 2 {
		outShape = t.shape[:len(t.shape)-1].Clone()
	}
	out := newUnchecked(Int32, outShape)

	for r := 0; r < rows; r++ {
		best := 0
		bestVal := t.at(r * cols)
		for c := 1; c < cols; c++ {
			if v := t.at(r*cols + c); v > bestVal {
				best, bestVal = c, v
			}
		}
		out.i32[r] = int32(best)
	}
	return out, nil
}

// Max returns the maximum element of t.
func Max(t *Tensor) (float64, error) {
	if t.NumElements() == 0 {
		return 0, errors.Wrapf(ErrShape, "max: empty tensor of shape %s", t.shape)
	}
	best := t.at(0)
	for i := 1; i < t.NumElements(); i++ {
		if v := t.at(i); v > best {
			best = v
		}
	}
	return best, nil
}
