// Package ops holds the forward computations and adjoint rules of the differentiable primitives.
//
// Every function here is pure: it takes tensors and returns fresh tensors, with no knowledge
// of the graph that records them. The autograd package dispatches to these by operator kind.
//
// Each backward function returns one gradient per differentiable input, in input order:
//   - Add: d(a+b)/da = 1, d(a+b)/db = 1 (summed over broadcast axes)
//   - Sub: d(a-b)/da = 1, d(a-b)/db = -1
//   - Multiply: d(a*b)/da = b, d(a*b)/db = a
//   - MatMul: d(A@B)/dA = grad@B^T, d(A@B)/dB = A^T@grad
//   - Pow: d(x^p)/dx = p*x^(p-1), d(x^p)/dp = x^p*log(x)
//   - Log: d(log x)/dx = 1/x
//   - Exp: d(exp x)/dx = exp x
//   - ReLU: d(ReLU(x))/dx = 1 if x > 0, else 0
//   - CrossEntropy: d/dlogits = (softmax(logits) - onehot(labels)) / N
//   - Linear, Conv2D, MaxPool2D: input gradient plus parameter gradients
package ops

import (
	"github.com/pkg/errors"

	"github.com/born-ml/minigrad/internal/tensor"
)

// reduceBroadcast reduces a gradient to the shape of the operand it flows into.
// This is necessary when broadcasting was used in the forward pass.
//
// Example:
//
//	Forward:  x[m,n] + b[n] -> y[m,n]   (b repeated over m rows)
//	Backward: grad_y[m,n] -> grad_b[n]  (sum over axis 0)
func reduceBroadcast(grad *tensor.Tensor, target tensor.Shape) (*tensor.Tensor, error) {
	if grad.Shape().Equal(target) {
		return grad.Clone(), nil
	}
	out, err := tensor.SumTo(grad, target)
	if err != nil {
		return nil, errors.Wrapf(err, "reduce gradient %s to %s", grad.Shape(), target)
	}
	return out, nil
}

// sameShape fails with ErrShape unless grad has the shape of the output it belongs to.
func sameShape(op string, grad *tensor.Tensor, want tensor.Shape) error {
	if !grad.Shape().Equal(want) {
		return errors.Wrapf(tensor.ErrShape, "%s backward: gradient shape %s, expected %s", op, grad.Shape(), want)
	}
	return nil
}

// mul multiplies element-wise, panicking on shapes already validated by the caller.
func mul(a, b *tensor.Tensor) *tensor.Tensor {
	out, err := tensor.Mul(a, b)
	if err != nil {
		panic(err)
	}
	return out
}
