// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autograd provides reverse-mode automatic differentiation for minigrad.
//
// A Graph is an arena holding Variables (values with gradients), reusable Ops and the
// record of every forward application. Backward walks the recorded DAG from a root
// Variable and assigns gradients to everything the root depends on, including the
// parameters of Linear and Conv2D layers.
//
// Example:
//
//	g := autograd.NewGraph()
//	x, _ := g.FromNested([][]float64{{1, -1}, {-1, 1}})
//	fc, _ := g.NewLinear(autograd.LinearConfig{InFeatures: 2, OutFeatures: 3})
//	h, _ := fc.Forward(x)
//	labels, _ := g.FromNested([]int{0, 2})
//	loss, _ := g.CrossEntropyLoss(h, labels)
//	_ = loss.Backward()
//	for _, p := range g.Parameters() {
//	    fmt.Println(p.Name, p.Grad)
//	}
package autograd

import (
	"github.com/born-ml/minigrad/internal/autograd"
)

// Graph is the arena owning Variables, Ops and their applications.
type Graph = autograd.Graph

// Variable is a handle to a value and its gradient.
type Variable = autograd.Variable

// Op is a handle to a reusable operator instance.
type Op = autograd.Op

// Kind identifies an operator.
type Kind = autograd.Kind

// Parameter is a learnable tensor owned by a layer.
type Parameter = autograd.Parameter

// Checkpoint marks an arena size for Graph.Rewind.
type Checkpoint = autograd.Checkpoint

// Option configures a Graph.
type Option = autograd.Option

// Activation is a nonlinearity fused into a layer.
type Activation = autograd.Activation

// Layer configurations.
type (
	LinearConfig    = autograd.LinearConfig
	Conv2DConfig    = autograd.Conv2DConfig
	MaxPool2DConfig = autograd.MaxPool2DConfig
)

// Operator kinds.
const (
	KindAdd              = autograd.KindAdd
	KindSub              = autograd.KindSub
	KindMultiply         = autograd.KindMultiply
	KindMatMul           = autograd.KindMatMul
	KindPow              = autograd.KindPow
	KindPowVar           = autograd.KindPowVar
	KindLog              = autograd.KindLog
	KindExp              = autograd.KindExp
	KindReshape          = autograd.KindReshape
	KindReLU             = autograd.KindReLU
	KindCrossEntropyLoss = autograd.KindCrossEntropyLoss
	KindLinear           = autograd.KindLinear
	KindConv2D           = autograd.KindConv2D
	KindMaxPool2D        = autograd.KindMaxPool2D
)

// Fused activations.
const (
	ActivationNone    = autograd.ActivationNone
	ActivationReLU    = autograd.ActivationReLU
	ActivationSigmoid = autograd.ActivationSigmoid
	ActivationTanh    = autograd.ActivationTanh
)

// DefaultSeed seeds layer initialization unless WithSeed is given.
const DefaultSeed = autograd.DefaultSeed

// Errors.
var (
	ErrArity             = autograd.ErrArity
	ErrStale             = autograd.ErrStale
	ErrNotDifferentiable = autograd.ErrNotDifferentiable
)

// Graph construction and options.
var (
	NewGraph              = autograd.NewGraph
	WithLegacyLogGradient = autograd.WithLegacyLogGradient
	WithOverwriteFanIn    = autograd.WithOverwriteFanIn
	WithSeed              = autograd.WithSeed
)
