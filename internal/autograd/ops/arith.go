package ops

import (
	"github.com/born-ml/minigrad/internal/tensor"
)

// broadcastShape returns the shape a binary element-wise op produced.
func broadcastShape(a, b *tensor.Tensor) tensor.Shape {
	if a.NumElements() >= b.NumElements() {
		return a.Shape()
	}
	return b.Shape()
}

// AddBackward computes input gradients for addition.
// The gradient flows unchanged to both inputs and is summed over any broadcast axes,
// so a bias vector b[n] added to x[m,n] receives Σ_rows grad.
func AddBackward(a, b, grad *tensor.Tensor) ([]*tensor.Tensor, error) {
	if err := sameShape("add", grad, broadcastShape(a, b)); err != nil {
		return nil, err
	}
	gradA, err := reduceBroadcast(grad, a.Shape())
	if err != nil {
		return nil, err
	}
	gradB, err := reduceBroadcast(grad, b.Shape())
	if err != nil {
		return nil, err
	}
	return []*tensor.Tensor{gradA, gradB}, nil
}

// SubBackward computes input gradients for subtraction: grad and -grad.
func SubBackward(a, b, grad *tensor.Tensor) ([]*tensor.Tensor, error) {
	if err := sameShape("sub", grad, broadcastShape(a, b)); err != nil {
		return nil, err
	}
	gradA, err := reduceBroadcast(grad, a.Shape())
	if err != nil {
		return nil, err
	}
	gradB, err := reduceBroadcast(tensor.Neg(grad), b.Shape())
	if err != nil {
		return nil, err
	}
	return []*tensor.Tensor{gradA, gradB}, nil
}

// MulBackward computes input gradients for element-wise (or scalar) multiplication:
// grad_a = b * grad, grad_b = a * grad.
func MulBackward(a, b, grad *tensor.Tensor) ([]*tensor.Tensor, error) {
	if err := sameShape("multiply", grad, broadcastShape(a, b)); err != nil {
		return nil, err
	}
	gradA, err := reduceBroadcast(mul(b, grad), a.Shape())
	if err != nil {
		return nil, err
	}
	gradB, err := reduceBroadcast(mul(a, grad), b.Shape())
	if err != nil {
		return nil, err
	}
	return []*tensor.Tensor{gradA, gradB}, nil
}

// MatMulBackward computes input gradients for matrix multiplication.
//
//	grad_a = grad @ b^T
//	grad_b = a^T @ grad
func MatMulBackward(a, b, grad *tensor.Tensor) ([]*tensor.Tensor, error) {
	bT, err := tensor.Transpose(b)
	if err != nil {
		return nil, err
	}
	gradA, err := tensor.MatMul(grad, bT)
	if err != nil {
		return nil, err
	}
	aT, err := tensor.Transpose(a)
	if err != nil {
		return nil, err
	}
	gradB, err := tensor.MatMul(aT, grad)
	if err != nil {
		return nil, err
	}
	return []*tensor.Tensor{gradA.AsType(tensor.Float32), gradB.AsType(tensor.Float32)}, nil
}
