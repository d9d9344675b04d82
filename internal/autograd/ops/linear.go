package ops

import (
	"github.com/pkg/errors"

	"github.com/born-ml/minigrad/internal/backend/cpu"
	"github.com/born-ml/minigrad/internal/tensor"
)

// asRows views a rank-1 sample [in] as a batch of one [1, in].
func asRows(x *tensor.Tensor) (*tensor.Tensor, error) {
	if x.Rank() == 1 {
		return x.Reshape(1, x.Dim(0))
	}
	return x, nil
}

// LinearForward applies a fully connected layer with a fused activation:
//
//	y = act(x @ W + b)
//
// x is [batch, in] or a single sample [in]; W is [in, out] and b is [out] (or nil).
// The output keeps the rank of x.
func LinearForward(backend *cpu.CPUBackend, x, w, b *tensor.Tensor, act cpu.Activation) (*tensor.Tensor, error) {
	x2, err := asRows(x)
	if err != nil {
		return nil, err
	}
	if x2.Rank() != 2 {
		return nil, errors.Wrapf(tensor.ErrShape, "linear: input must be [batch, in] or [in], got %s", x.Shape())
	}
	z, err := tensor.MatMul(x2, w)
	if err != nil {
		return nil, errors.WithMessage(err, "linear")
	}
	if b != nil {
		if z, err = tensor.Add(z, b); err != nil {
			return nil, errors.WithMessage(err, "linear")
		}
	}
	y := backend.Activate(z, act)
	if x.Rank() == 1 {
		return y.Reshape(w.Dim(1))
	}
	return y, nil
}

// LinearBackward computes gradients of a fused linear layer.
//
//	dz = act'(y) * grad
//	dx = dz @ W^T
//	dW = x^T @ dz
//	db = Σ_batch dz
//
// out is the activated forward result y. The result is [dx, dW, db], with db nil when b is nil.
func LinearBackward(backend *cpu.CPUBackend, x, w, b, out, grad *tensor.Tensor, act cpu.Activation) ([]*tensor.Tensor, error) {
	dz, err := backend.ActivationBackward(out, grad, act)
	if err != nil {
		return nil, errors.WithMessage(err, "linear backward")
	}
	x2, err := asRows(x)
	if err != nil {
		return nil, err
	}
	if dz, err = asRows(dz); err != nil {
		return nil, err
	}

	grads, err := MatMulBackward(x2, w, dz)
	if err != nil {
		return nil, errors.WithMessage(err, "linear backward")
	}
	dx, dw := grads[0], grads[1]
	if dx, err = dx.Reshape(x.Shape()...); err != nil {
		return nil, err
	}

	var db *tensor.Tensor
	if b != nil {
		if db, err = tensor.Sum(dz, 0); err != nil {
			return nil, err
		}
		if db, err = db.Reshape(b.Shape()...); err != nil {
			return nil, err
		}
	}
	return []*tensor.Tensor{dx, dw, db}, nil
}
