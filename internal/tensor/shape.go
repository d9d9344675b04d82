package tensor

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// MaxRank is the highest tensor rank supported by the engine.
// Rank 1 and 2 cover the arithmetic core; ranks 3 and 4 carry NCHW image batches.
const MaxRank = 4

// Shape represents the dimensions of a tensor.
type Shape []int

// NumElements returns the total number of elements in the tensor.
func (s Shape) NumElements() int {
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Rank returns the number of axes.
func (s Shape) Rank() int {
	return len(s)
}

// Validate checks the rank is supported and every dimension is non-negative.
func (s Shape) Validate() error {
	if len(s) < 1 || len(s) > MaxRank {
		return errors.Wrapf(ErrShape, "rank %d of shape %s is not supported (want 1..%d)", len(s), s, MaxRank)
	}
	for i, dim := range s {
		if dim < 0 {
			return errors.Wrapf(ErrShape, "invalid dimension at index %d of shape %s: %d", i, s, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// String formats the shape as a tuple, e.g. "(2, 3)".
func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, dim := range s {
		parts[i] = strconv.Itoa(dim)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// ComputeStrides calculates row-major strides for the shape.
// Strides define memory layout: stride[i] = product of all dimensions after i.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}

	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}

// trimLeadingOnes drops leading unit dimensions: (1, 1, 4) -> (4).
func (s Shape) trimLeadingOnes() Shape {
	i := 0
	for i < len(s) && s[i] == 1 {
		i++
	}
	return s[i:]
}

// BroadcastsTo reports whether a tensor of shape s can be combined with one of shape target
// by repeating it along the leading axes of target.
//
// Rules:
//   - equal shapes always match
//   - after dropping leading unit dimensions, s must equal the trailing dimensions of target
//
// Examples:
//
//	(3)    -> (2, 3)  ok, row broadcast of a bias vector
//	(1, 3) -> (2, 3)  ok
//	(1)    -> (2, 3)  ok, scalar
//	(2)    -> (2, 3)  not ok
func (s Shape) BroadcastsTo(target Shape) bool {
	if s.Equal(target) {
		return true
	}
	core := s.trimLeadingOnes()
	if len(core) > len(target) {
		return false
	}
	return Shape(target[len(target)-len(core):]).Equal(core)
}
