package ops

import (
	"github.com/born-ml/minigrad/internal/backend/cpu"
	"github.com/born-ml/minigrad/internal/tensor"
)

// Conv2DForward applies a 2D convolution with optional bias and fused activation:
//
//	y = act(conv2d(x, W, stride, padding) + b)
//
// x is [N, C_in, H, W], W is [C_out, C_in, K, K] and b is [C_out] (or nil).
func Conv2DForward(backend *cpu.CPUBackend, x, w, b *tensor.Tensor, stride, padding int, act cpu.Activation) (*tensor.Tensor, error) {
	z, err := backend.Conv2D(x, w, stride, padding)
	if err != nil {
		return nil, err
	}
	if b != nil {
		if err := backend.Conv2DAddBias(z, b); err != nil {
			return nil, err
		}
	}
	return backend.Activate(z, act), nil
}

// Conv2DBackward computes [dx, dW, db] for a fused convolution, given its activated output.
// db is nil when the layer has no bias.
func Conv2DBackward(backend *cpu.CPUBackend, x, w, b, out, grad *tensor.Tensor, stride, padding int, act cpu.Activation) ([]*tensor.Tensor, error) {
	dz, err := backend.ActivationBackward(out, grad, act)
	if err != nil {
		return nil, err
	}
	dx, dw, err := backend.Conv2DBackward(x, w, dz, stride, padding)
	if err != nil {
		return nil, err
	}
	var db *tensor.Tensor
	if b != nil {
		if db, err = backend.Conv2DBiasGrad(dz); err != nil {
			return nil, err
		}
	}
	return []*tensor.Tensor{dx, dw, db}, nil
}

// MaxPool2DForward pools x and returns the flat input index chosen for every output element.
func MaxPool2DForward(backend *cpu.CPUBackend, x *tensor.Tensor, kernelSize, stride int) (*tensor.Tensor, []int, error) {
	return backend.MaxPool2D(x, kernelSize, stride)
}

// MaxPool2DBackward routes each output gradient to the input element that won its window.
func MaxPool2DBackward(backend *cpu.CPUBackend, inputShape tensor.Shape, argmax []int, grad *tensor.Tensor) ([]*tensor.Tensor, error) {
	dx, err := backend.MaxPool2DBackward(inputShape, grad, argmax)
	if err != nil {
		return nil, err
	}
	return []*tensor.Tensor{dx}, nil
}
