package autograd

import (
	"github.com/pkg/errors"

	"github.com/born-ml/minigrad/internal/autograd/ops"
	"github.com/born-ml/minigrad/internal/tensor"
)

// forwardResult is what one application computes and keeps for its adjoint.
type forwardResult struct {
	value  *tensor.Tensor
	saved  *tensor.Tensor
	argmax []int
}

// weights returns a layer's weight and bias (nil when the layer has none).
func (n *opNode) weights() (w, b *tensor.Tensor) {
	w = n.params[0].Value
	if len(n.params) > 1 {
		b = n.params[1].Value
	}
	return w, b
}

func (g *Graph) forward(n *opNode, in []*tensor.Tensor) (forwardResult, error) {
	var (
		r   forwardResult
		err error
	)
	switch n.kind {
	case KindAdd:
		r.value, err = tensor.Add(in[0], in[1])
	case KindSub:
		r.value, err = tensor.Sub(in[0], in[1])
	case KindMultiply:
		r.value, err = tensor.Mul(in[0], in[1])
	case KindMatMul:
		r.value, err = tensor.MatMul(in[0], in[1])
	case KindPow:
		r.value = tensor.Pow(in[0], n.exponent)
	case KindPowVar:
		r.value, err = tensor.PowTensor(in[0], in[1])
	case KindLog:
		r.value = tensor.Log(in[0])
	case KindExp:
		r.value = tensor.Exp(in[0])
	case KindReshape:
		r.value, err = ops.Reshape(in[0], n.shape)
	case KindReLU:
		r.value = ops.ReLU(in[0])
	case KindCrossEntropyLoss:
		r.value, r.saved, err = ops.CrossEntropyForward(g.backend, in[0], in[1])
	case KindLinear:
		w, b := n.weights()
		r.value, err = ops.LinearForward(g.backend, in[0], w, b, n.act)
	case KindConv2D:
		w, b := n.weights()
		r.value, err = ops.Conv2DForward(g.backend, in[0], w, b, n.stride, n.padding, n.act)
	case KindMaxPool2D:
		r.value, r.argmax, err = ops.MaxPool2DForward(g.backend, in[0], n.kernel, n.stride)
	default:
		err = errors.Errorf("autograd: no forward rule for %s", n.kind)
	}
	return r, err
}

// adjoint computes the gradients of one application given the gradient of its output.
// The first result has one entry per input (nil for non-differentiable inputs), the
// second one entry per parameter of the op.
func (g *Graph) adjoint(n *opNode, app *application, grad *tensor.Tensor) (inputs, params []*tensor.Tensor, err error) {
	out := g.vars[app.output].value
	if !grad.Shape().Equal(out.Shape()) {
		return nil, nil, errors.Wrapf(tensor.ErrShape, "gradient shape %s does not match output shape %s", grad.Shape(), out.Shape())
	}
	in := make([]*tensor.Tensor, len(app.inputs))
	for i, id := range app.inputs {
		in[i] = g.vars[id].value
	}

	switch n.kind {
	case KindAdd:
		inputs, err = ops.AddBackward(in[0], in[1], grad)
	case KindSub:
		inputs, err = ops.SubBackward(in[0], in[1], grad)
	case KindMultiply:
		inputs, err = ops.MulBackward(in[0], in[1], grad)
	case KindMatMul:
		inputs, err = ops.MatMulBackward(in[0], in[1], grad)
	case KindPow:
		inputs, err = ops.PowBackward(in[0], n.exponent, grad)
	case KindPowVar:
		inputs, err = ops.PowVarBackward(in[0], in[1], out, grad)
	case KindLog:
		inputs, err = ops.LogBackward(in[0], grad, g.cfg.legacyLog)
	case KindExp:
		inputs, err = ops.ExpBackward(out, grad)
	case KindReshape:
		inputs, err = ops.ReshapeBackward(in[0].Shape(), grad)
	case KindReLU:
		inputs, err = ops.ReLUBackward(in[0], grad)
	case KindCrossEntropyLoss:
		var logits []*tensor.Tensor
		logits, err = ops.CrossEntropyBackward(g.backend, app.saved, in[1], grad)
		if err == nil {
			inputs = []*tensor.Tensor{logits[0], nil}
		}
	case KindLinear:
		w, b := n.weights()
		var all []*tensor.Tensor
		all, err = ops.LinearBackward(g.backend, in[0], w, b, out, grad, n.act)
		if err == nil {
			inputs, params = all[:1], all[1:1+len(n.params)]
		}
	case KindConv2D:
		w, b := n.weights()
		var all []*tensor.Tensor
		all, err = ops.Conv2DBackward(g.backend, in[0], w, b, out, grad, n.stride, n.padding, n.act)
		if err == nil {
			inputs, params = all[:1], all[1:1+len(n.params)]
		}
	case KindMaxPool2D:
		inputs, err = ops.MaxPool2DBackward(g.backend, in[0].Shape(), app.argmax, grad)
	default:
		err = errors.Wrapf(ErrNotDifferentiable, "no adjoint for %s", n.kind)
	}
	if err != nil {
		return nil, nil, err
	}
	return inputs, params, nil
}
