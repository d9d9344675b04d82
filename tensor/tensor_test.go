// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/minigrad/tensor"
)

// TestMatMulShapeError checks the public error names both operand shapes.
func TestMatMulShapeError(t *testing.T) {
	a, err := tensor.FromNested([][]int{{1, 2, 3}})
	require.NoError(t, err)

	_, err = tensor.MatMul(a, a)
	require.ErrorIs(t, err, tensor.ErrShape)
	assert.Contains(t, err.Error(), "(1, 3) and (1, 3)")
}

func TestFromSlice(t *testing.T) {
	x, err := tensor.FromSlice([]float64{1, 2, 3, 4}, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, tensor.Float32, x.DType())
	assert.Equal(t, tensor.Shape{2, 2}, x.Shape())

	s, err := tensor.Sum(x, 0)
	require.NoError(t, err)
	assert.Equal(t, []float32{4, 6}, s.Float32s())
}
