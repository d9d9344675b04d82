package ops

import (
	"github.com/born-ml/minigrad/internal/tensor"
)

// PowBackward computes the input gradient of x^p for a fixed integer exponent:
//
//	grad_x = p * x^(p-1) * grad
//
// The exponent is a constant, so it receives no gradient.
func PowBackward(x *tensor.Tensor, p int, grad *tensor.Tensor) ([]*tensor.Tensor, error) {
	if err := sameShape("pow", grad, x.Shape()); err != nil {
		return nil, err
	}
	if p == 0 {
		zeros, err := tensor.Zeros(x.Shape()...)
		if err != nil {
			return nil, err
		}
		return []*tensor.Tensor{zeros}, nil
	}
	local := tensor.Scale(tensor.Pow(x, p-1), float32(p))
	return []*tensor.Tensor{mul(local, grad)}, nil
}

// PowVarBackward computes gradients of x^p when both base and exponent are variables:
//
//	grad_x = p * x^(p-1) * grad
//	grad_p = x^p * log(x) * grad
//
// out is the forward result x^p. A scalar exponent receives the sum of its
// per-element contributions.
func PowVarBackward(x, p, out, grad *tensor.Tensor) ([]*tensor.Tensor, error) {
	if err := sameShape("pow", grad, out.Shape()); err != nil {
		return nil, err
	}
	pm1, err := tensor.Sub(p, tensor.Scalar(1))
	if err != nil {
		return nil, err
	}
	xpm1, err := tensor.PowTensor(x, pm1)
	if err != nil {
		return nil, err
	}
	localX, err := tensor.Mul(p, xpm1)
	if err != nil {
		return nil, err
	}
	gradX, err := reduceBroadcast(mul(localX, grad), x.Shape())
	if err != nil {
		return nil, err
	}

	localP, err := tensor.Mul(out, tensor.Log(x))
	if err != nil {
		return nil, err
	}
	gradP, err := reduceBroadcast(mul(localP, grad), p.Shape())
	if err != nil {
		return nil, err
	}
	return []*tensor.Tensor{gradX, gradP}, nil
}
