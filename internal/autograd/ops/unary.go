package ops

import (
	"github.com/pkg/errors"

	"github.com/born-ml/minigrad/internal/tensor"
)

// LogBackward computes the gradient of the natural logarithm: grad / x.
//
// With legacy set it instead returns x * grad, the rule older versions of this
// engine applied. That rule is not the derivative of log and is kept only so
// results recorded with it can be reproduced.
func LogBackward(x, grad *tensor.Tensor, legacy bool) ([]*tensor.Tensor, error) {
	if err := sameShape("log", grad, x.Shape()); err != nil {
		return nil, err
	}
	if legacy {
		return []*tensor.Tensor{mul(x, grad)}, nil
	}
	g, err := tensor.Div(grad, x)
	if err != nil {
		return nil, err
	}
	return []*tensor.Tensor{g}, nil
}

// ExpBackward computes the gradient of the exponential from its output: grad * exp(x).
func ExpBackward(out, grad *tensor.Tensor) ([]*tensor.Tensor, error) {
	if err := sameShape("exp", grad, out.Shape()); err != nil {
		return nil, err
	}
	return []*tensor.Tensor{mul(out, grad)}, nil
}

// ReLU computes max(0, x) element-wise.
func ReLU(x *tensor.Tensor) *tensor.Tensor {
	return tensor.Maximum(x, 0)
}

// ReLUBackward masks the gradient by the forward activation pattern:
// grad where x > 0, zero elsewhere.
func ReLUBackward(x, grad *tensor.Tensor) ([]*tensor.Tensor, error) {
	if err := sameShape("relu", grad, x.Shape()); err != nil {
		return nil, err
	}
	zeros, err := tensor.Zeros(x.Shape()...)
	if err != nil {
		return nil, err
	}
	g, err := tensor.Where(positive(x), grad, zeros)
	if err != nil {
		return nil, err
	}
	return []*tensor.Tensor{g}, nil
}

// positive returns a 0/1 mask of x > 0.
func positive(x *tensor.Tensor) *tensor.Tensor {
	mask := tensor.Maximum(x, 0)
	data := mask.Float32s()
	for i, v := range data {
		if v > 0 {
			data[i] = 1
		}
	}
	return mask
}

// Reshape reinterprets x with a new shape holding the same number of elements.
func Reshape(x *tensor.Tensor, shape tensor.Shape) (*tensor.Tensor, error) {
	out, err := x.Reshape(shape...)
	if err != nil {
		return nil, errors.WithMessage(err, "reshape")
	}
	return out, nil
}

// ReshapeBackward reshapes the gradient back to the input's original shape.
// It is pure reindexing, so the values are exactly those of grad.
func ReshapeBackward(inputShape tensor.Shape, grad *tensor.Tensor) ([]*tensor.Tensor, error) {
	g, err := grad.Reshape(inputShape...)
	if err != nil {
		return nil, err
	}
	return []*tensor.Tensor{g}, nil
}
