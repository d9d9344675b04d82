// Package tensor provides the dense tensor type and its arithmetic for the minigrad engine.
package tensor

import "golang.org/x/exp/constraints"

// DType is a constraint for the native element types of a tensor.
type DType interface {
	~float32 | ~int32
}

// Number is any Go numeric type accepted on construction.
// 64-bit and platform-sized values are downcast to the native 32-bit representation.
type Number interface {
	constraints.Integer | constraints.Float
}

// DataType represents runtime type information for tensors.
type DataType int

// Supported data types for tensors.
const (
	Float32 DataType = iota
	Int32
)

// Size returns the byte size of the data type.
func (dt DataType) Size() int {
	switch dt {
	case Float32, Int32:
		return 4
	default:
		panic("unknown data type")
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Int32:
		return "int32"
	default:
		return "unknown"
	}
}

// promote returns the data type two operands are computed in.
// Integer tensors stay integer only when both sides are integer.
func promote(a, b DataType) DataType {
	if a == Int32 && b == Int32 {
		return Int32
	}
	return Float32
}

// dataTypeOf maps a Go numeric type to the tensor data type it is stored as.
func dataTypeOf[T Number]() DataType {
	var zero T
	switch any(zero).(type) {
	case float32, float64:
		return Float32
	default:
		return Int32
	}
}
