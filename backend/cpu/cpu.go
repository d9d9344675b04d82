// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu exposes the dense CPU kernels behind autograd's layers.
//
// The kernels work on float32 NCHW tensors and are usable without a graph:
// im2col convolutions, max pooling with argmax routing, row softmax, fused
// activations and cross-entropy. Each call allocates its results; the
// Backend itself holds no state.
//
// Example:
//
//	b := cpu.New()
//	x, _ := tensor.Zeros(1, 1, 28, 28)
//	k, _ := tensor.Zeros(8, 1, 3, 3)
//	y, _ := b.Conv2D(x, k, 1, 1) // (1, 8, 28, 28)
package cpu

import (
	internalcpu "github.com/born-ml/minigrad/internal/backend/cpu"
)

// Backend is the CPU kernel set.
type Backend = internalcpu.CPUBackend

// Activation is a nonlinearity fused into a kernel output.
type Activation = internalcpu.Activation

// Fused activations.
const (
	ActivationNone    = internalcpu.ActivationNone
	ActivationReLU    = internalcpu.ActivationReLU
	ActivationSigmoid = internalcpu.ActivationSigmoid
	ActivationTanh    = internalcpu.ActivationTanh
)

// New creates a CPU backend.
func New() *Backend {
	return internalcpu.New()
}

// ConvOutputSize returns the spatial output size of a convolution or pooling window:
// (in + 2*padding - kernel) / stride + 1.
func ConvOutputSize(in, kernel, stride, padding int) int {
	return internalcpu.ConvOutputSize(in, kernel, stride, padding)
}
