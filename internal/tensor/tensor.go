package tensor

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// Tensor is a dense, row-major, fixed-rank array of int32 or float32 elements.
//
// A Tensor is a value owned by whoever holds it: every operation in this package
// returns a freshly allocated result and never aliases its inputs.
//
// Example:
//
//	a, _ := tensor.FromNested([][]float64{{1, 2}, {3, 4}})
//	b, _ := tensor.MatMul(a, a)
//	v, _ := b.Get(1, 1) // 22
type Tensor struct {
	shape  Shape
	stride []int
	dtype  DataType
	f32    []float32 // storage when dtype == Float32
	i32    []int32   // storage when dtype == Int32
}

// newUnchecked allocates a zero-filled tensor without validating the shape.
func newUnchecked(dtype DataType, shape Shape) *Tensor {
	t := &Tensor{
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  dtype,
	}
	n := shape.NumElements()
	if dtype == Int32 {
		t.i32 = make([]int32, n)
	} else {
		t.f32 = make([]float32, n)
	}
	return t
}

// Shape returns a copy of the tensor's shape.
func (t *Tensor) Shape() Shape {
	return t.shape.Clone()
}

// Rank returns the number of axes.
func (t *Tensor) Rank() int {
	return len(t.shape)
}

// Dim returns the size of one axis.
func (t *Tensor) Dim(axis int) int {
	return t.shape[axis]
}

// DType returns the tensor's data type.
func (t *Tensor) DType() DataType {
	return t.dtype
}

// NumElements returns the total number of elements.
func (t *Tensor) NumElements() int {
	return t.shape.NumElements()
}

// Float32s returns the backing storage of a float32 tensor.
// The slice directly accesses the underlying memory (zero-copy).
// Panics if the tensor is not float32.
func (t *Tensor) Float32s() []float32 {
	if t.dtype != Float32 {
		panic(fmt.Sprintf("Float32s() called on %s tensor", t.dtype))
	}
	return t.f32
}

// Int32s returns the backing storage of an int32 tensor.
// Panics if the tensor is not int32.
func (t *Tensor) Int32s() []int32 {
	if t.dtype != Int32 {
		panic(fmt.Sprintf("Int32s() called on %s tensor", t.dtype))
	}
	return t.i32
}

// offset converts multi-dimensional indices into a flat offset.
func (t *Tensor) offset(indices []int) (int, error) {
	if len(indices) != len(t.shape) {
		return 0, errors.Wrapf(ErrIndex, "index %v is not compatible with tensor of shape %s", indices, t.shape)
	}
	off := 0
	for i, idx := range indices {
		if idx < 0 || idx >= t.shape[i] {
			return 0, errors.Wrapf(ErrIndex, "index %d out of bounds for axis %d of shape %s", idx, i, t.shape)
		}
		off += idx * t.stride[i]
	}
	return off, nil
}

// Get returns the element at the given indices.
// The number of indices must equal the rank.
func (t *Tensor) Get(indices ...int) (float64, error) {
	off, err := t.offset(indices)
	if err != nil {
		return 0, err
	}
	return t.at(off), nil
}

// Set stores value at the given indices, converting it to the tensor's data type.
func (t *Tensor) Set(value float64, indices ...int) error {
	off, err := t.offset(indices)
	if err != nil {
		return err
	}
	t.put(off, value)
	return nil
}

// Item returns the value of a single-element tensor.
func (t *Tensor) Item() (float64, error) {
	if t.NumElements() != 1 {
		return 0, errors.Wrapf(ErrShape, "Item() needs exactly one element, got shape %s", t.shape)
	}
	return t.at(0), nil
}

// at reads a flat element as float64.
func (t *Tensor) at(i int) float64 {
	if t.dtype == Int32 {
		return float64(t.i32[i])
	}
	return float64(t.f32[i])
}

// put writes a flat element from float64.
func (t *Tensor) put(i int, v float64) {
	if t.dtype == Int32 {
		t.i32[i] = int32(v)
		return
	}
	t.f32[i] = float32(v)
}

// Clone creates a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	c := newUnchecked(t.dtype, t.shape)
	copy(c.f32, t.f32)
	copy(c.i32, t.i32)
	return c
}

// AsType returns a copy converted to dtype.
func (t *Tensor) AsType(dtype DataType) *Tensor {
	if dtype == t.dtype {
		return t.Clone()
	}
	c := newUnchecked(dtype, t.shape)
	if dtype == Float32 {
		for i, v := range t.i32 {
			c.f32[i] = float32(v)
		}
		return c
	}
	for i, v := range t.f32 {
		c.i32[i] = int32(v)
	}
	return c
}

// floats returns the elements as float32, converting int32 storage into a new slice.
func (t *Tensor) floats() []float32 {
	if t.dtype == Float32 {
		return t.f32
	}
	out := make([]float32, len(t.i32))
	for i, v := range t.i32 {
		out[i] = float32(v)
	}
	return out
}

// Fill sets every element to value.
func (t *Tensor) Fill(value float64) {
	for i := range t.f32 {
		t.f32[i] = float32(value)
	}
	for i := range t.i32 {
		t.i32[i] = int32(value)
	}
}

// IsFinite reports whether no element is NaN or infinite.
func (t *Tensor) IsFinite() bool {
	for _, v := range t.f32 {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return false
		}
	}
	return true
}

// String returns a short human-readable description of the tensor.
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor[%s]%s", t.dtype, t.shape)
}
