package tensor

import (
	"reflect"

	"github.com/pkg/errors"
)

// New creates a zero-filled tensor with the given data type and shape.
//
// Example:
//
//	t, err := tensor.New(tensor.Float32, 3, 4)
func New(dtype DataType, shape ...int) (*Tensor, error) {
	if dtype != Float32 && dtype != Int32 {
		return nil, errors.Wrapf(ErrType, "unsupported data type %s", dtype)
	}
	if err := Shape(shape).Validate(); err != nil {
		return nil, err
	}
	return newUnchecked(dtype, shape), nil
}

// Zeros creates a float32 tensor filled with zeros.
func Zeros(shape ...int) (*Tensor, error) {
	return New(Float32, shape...)
}

// Ones creates a float32 tensor filled with ones.
func Ones(shape ...int) (*Tensor, error) {
	return Full(1, shape...)
}

// Full creates a float32 tensor filled with value.
func Full(value float32, shape ...int) (*Tensor, error) {
	t, err := New(Float32, shape...)
	if err != nil {
		return nil, err
	}
	for i := range t.f32 {
		t.f32[i] = value
	}
	return t, nil
}

// OnesLike creates a float32 tensor of ones with the shape of t.
// Used to seed gradients, which are always floating point.
func OnesLike(t *Tensor) *Tensor {
	o := newUnchecked(Float32, t.shape)
	for i := range o.f32 {
		o.f32[i] = 1
	}
	return o
}

// ZerosLike creates a zero tensor with the shape and data type of t.
func ZerosLike(t *Tensor) *Tensor {
	return newUnchecked(t.dtype, t.shape)
}

// Scalar wraps a single float32 value in a tensor of shape (1).
func Scalar(value float32) *Tensor {
	t := newUnchecked(Float32, Shape{1})
	t.f32[0] = value
	return t
}

// FromSlice creates a tensor from a flat Go slice and a shape.
// The slice is copied. Floating point inputs produce float32 tensors and
// integer inputs int32 tensors; 64-bit values are downcast.
//
// Example:
//
//	t, err := tensor.FromSlice([]float64{1, 2, 3, 4, 5, 6}, 2, 3)
func FromSlice[T Number](data []T, shape ...int) (*Tensor, error) {
	if len(shape) == 0 {
		shape = []int{len(data)}
	}
	if Shape(shape).NumElements() != len(data) {
		return nil, errors.Wrapf(ErrShape, "shape %s requires %d elements, but got %d",
			Shape(shape), Shape(shape).NumElements(), len(data))
	}
	t, err := New(dataTypeOf[T](), shape...)
	if err != nil {
		return nil, err
	}
	if t.dtype == Float32 {
		for i, v := range data {
			t.f32[i] = float32(v)
		}
	} else {
		for i, v := range data {
			t.i32[i] = int32(v)
		}
	}
	return t, nil
}

// FromNested creates a tensor from nested Go slices (or arrays) of numbers,
// inferring the shape from the nesting and the data type from the elements.
// A bare number produces a tensor of shape (1).
//
// Any floating point element makes the tensor float32; otherwise it is int32.
// Ragged input fails with ErrShape and non-numeric elements with ErrType.
//
// Example:
//
//	t, err := tensor.FromNested([][]int{{1, 2, 3}, {4, 5, 6}}) // int32, shape (2, 3)
func FromNested(data any) (*Tensor, error) {
	if data == nil {
		return nil, errors.Wrap(ErrType, "cannot build a tensor from nil")
	}
	v := reflect.ValueOf(data)
	if isNumberKind(v.Kind()) {
		return fromValues([]reflect.Value{v}, Shape{1})
	}
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, errors.Wrapf(ErrType, "type %T is not supported", data)
	}

	shape := inferShape(v)
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	values := make([]reflect.Value, 0, shape.NumElements())
	values, err := flatten(v, shape, 0, values)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		dtype, err := elementType(v.Type())
		if err != nil {
			return nil, err
		}
		return newUnchecked(dtype, shape), nil
	}
	return fromValues(values, shape)
}

// inferShape follows the first element at every nesting level.
func inferShape(v reflect.Value) Shape {
	var shape Shape
	for {
		v = unwrapInterface(v)
		if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
			return shape
		}
		shape = append(shape, v.Len())
		if v.Len() == 0 {
			return shape
		}
		v = v.Index(0)
	}
}

// flatten collects leaf values in row-major order, checking every level has the inferred length.
func flatten(v reflect.Value, shape Shape, depth int, out []reflect.Value) ([]reflect.Value, error) {
	v = unwrapInterface(v)
	if depth == len(shape) {
		if !isNumberKind(v.Kind()) {
			return nil, errors.Wrapf(ErrType, "element type %s is not supported", v.Kind())
		}
		return append(out, v), nil
	}
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, errors.Wrapf(ErrShape, "ragged nested data: expected a sequence at depth %d, got %s", depth, v.Kind())
	}
	if v.Len() != shape[depth] {
		return nil, errors.Wrapf(ErrShape, "ragged nested data: length %d at depth %d, expected %d", v.Len(), depth, shape[depth])
	}
	var err error
	for i := 0; i < v.Len(); i++ {
		out, err = flatten(v.Index(i), shape, depth+1, out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// fromValues builds a tensor from leaf values, choosing float32 if any leaf is floating point.
// Integers wrap into int32 the same way FromSlice converts them.
func fromValues(values []reflect.Value, shape Shape) (*Tensor, error) {
	dtype := Int32
	for _, v := range values {
		if v.Kind() == reflect.Float32 || v.Kind() == reflect.Float64 {
			dtype = Float32
			break
		}
	}
	t := newUnchecked(dtype, shape)
	for i, v := range values {
		switch {
		case dtype == Int32 && v.CanInt():
			t.i32[i] = int32(v.Int())
		case dtype == Int32 && v.CanUint():
			t.i32[i] = int32(v.Uint())
		default:
			t.put(i, numberOf(v))
		}
	}
	return t, nil
}

// elementType resolves the data type from a static slice type such as [][]float64.
func elementType(typ reflect.Type) (DataType, error) {
	for typ.Kind() == reflect.Slice || typ.Kind() == reflect.Array {
		typ = typ.Elem()
	}
	switch {
	case typ.Kind() == reflect.Float32 || typ.Kind() == reflect.Float64:
		return Float32, nil
	case isNumberKind(typ.Kind()):
		return Int32, nil
	case typ.Kind() == reflect.Interface:
		return Float32, nil
	default:
		return 0, errors.Wrapf(ErrType, "element type %s is not supported", typ)
	}
}

func unwrapInterface(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Interface && !v.IsNil() {
		v = v.Elem()
	}
	return v
}

func isNumberKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

func numberOf(v reflect.Value) float64 {
	switch {
	case v.CanInt():
		return float64(v.Int())
	case v.CanUint():
		return float64(v.Uint())
	default:
		return v.Float()
	}
}
