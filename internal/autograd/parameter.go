package autograd

import (
	"github.com/born-ml/minigrad/internal/tensor"
)

// Parameter is a learnable tensor owned by a layer Op.
//
// Parameters live outside the Variable DAG: the layer reads Value during forward
// and writes Grad during backward. An optimizer updates Value in place using Grad.
//
// Example:
//
//	for _, p := range g.Parameters() {
//		step := tensor.Scale(p.Grad, -lr)
//		p.Value, _ = tensor.Add(p.Value, step)
//	}
type Parameter struct {
	Name  string         // e.g. "linear0.weight"
	Value *tensor.Tensor // the parameter tensor
	Grad  *tensor.Tensor // gradient from the last backward pass, same shape as Value
}

func newParameter(name string, value *tensor.Tensor) *Parameter {
	return &Parameter{
		Name:  name,
		Value: value,
		Grad:  tensor.ZerosLike(value),
	}
}

// ZeroGrad resets the gradient to zeros.
func (p *Parameter) ZeroGrad() {
	p.Grad = tensor.ZerosLike(p.Value)
}

// NumElements returns the number of scalar weights in the parameter.
func (p *Parameter) NumElements() int {
	return p.Value.NumElements()
}
