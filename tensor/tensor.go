// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API of the minigrad tensor core.
//
// A Tensor is a dense, row-major array of int32 or float32 elements with rank 1 to 4.
// Every operation returns a freshly allocated tensor; failures wrap ErrShape, ErrType
// or ErrIndex and name the offending shapes.
//
// Example:
//
//	a, _ := tensor.FromNested([][]int{{1, 2, 3}})
//	_, err := tensor.MatMul(a, a)
//	// err: matmul: incompatible shapes (1, 3) and (1, 3): shape error
package tensor

import (
	"github.com/born-ml/minigrad/internal/tensor"
)

// Tensor is a dense numeric array.
type Tensor = tensor.Tensor

// Shape represents the dimensions of a tensor and prints as a tuple, e.g. "(2, 3)".
type Shape = tensor.Shape

// DataType represents the element type of a tensor.
type DataType = tensor.DataType

// Number is any Go numeric type accepted by FromSlice.
type Number = tensor.Number

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Int32   DataType = tensor.Int32
)

// MaxRank is the highest supported rank.
const MaxRank = tensor.MaxRank

// Errors returned by tensor operations.
var (
	ErrShape = tensor.ErrShape
	ErrType  = tensor.ErrType
	ErrIndex = tensor.ErrIndex
)

// Construction.
var (
	New        = tensor.New
	Zeros      = tensor.Zeros
	Ones       = tensor.Ones
	Full       = tensor.Full
	OnesLike   = tensor.OnesLike
	ZerosLike  = tensor.ZerosLike
	Scalar     = tensor.Scalar
	FromNested = tensor.FromNested
)

// FromSlice creates a tensor from a flat slice and a shape.
// 64-bit values are downcast to the 32-bit element types.
func FromSlice[T Number](data []T, shape ...int) (*Tensor, error) {
	return tensor.FromSlice(data, shape...)
}

// Arithmetic and reductions.
var (
	Add       = tensor.Add
	Sub       = tensor.Sub
	Mul       = tensor.Mul
	Div       = tensor.Div
	Scale     = tensor.Scale
	Neg       = tensor.Neg
	Maximum   = tensor.Maximum
	Where     = tensor.Where
	MatMul    = tensor.MatMul
	Transpose = tensor.Transpose
	Log       = tensor.Log
	Exp       = tensor.Exp
	Pow       = tensor.Pow
	PowTensor = tensor.PowTensor
	Sqrt      = tensor.Sqrt
	Sum       = tensor.Sum
	SumAll    = tensor.SumAll
	SumTo     = tensor.SumTo
	Max       = tensor.Max
	Argmax    = tensor.Argmax
	Equal     = tensor.Equal
	AllClose  = tensor.AllClose
)
