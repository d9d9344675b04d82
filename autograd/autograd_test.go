// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package autograd_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/minigrad/autograd"
)

// TestPublicAPI trains nothing; it checks the facade exposes a working graph.
func TestPublicAPI(t *testing.T) {
	g := autograd.NewGraph(autograd.WithSeed(1))
	x, err := g.FromNested([][]float64{{1, -1}, {-1, 1}})
	require.NoError(t, err)

	fc, err := g.NewLinear(autograd.LinearConfig{InFeatures: 2, OutFeatures: 3, Activation: autograd.ActivationReLU})
	require.NoError(t, err)
	h, err := fc.Forward(x)
	require.NoError(t, err)

	labels, err := g.FromNested([]int{0, 2})
	require.NoError(t, err)
	loss, err := g.CrossEntropyLoss(h, labels)
	require.NoError(t, err)
	require.NoError(t, loss.Backward())

	assert.Equal(t, autograd.KindLinear, fc.Kind())
	assert.Len(t, g.Parameters(), 2)
	assert.Equal(t, x.Shape(), x.Grad().Shape())

	_, err = fc.Forward(x, x)
	assert.ErrorIs(t, err, autograd.ErrArity)
}
