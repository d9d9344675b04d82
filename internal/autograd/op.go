package autograd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/born-ml/minigrad/internal/tensor"
)

// Op is a handle to a reusable operator instance in a Graph.
//
// Every Forward call records one application: it validates the number of inputs,
// binds them as the Op's input edges and returns a new Variable produced by this Op.
// Calling Forward again rebinds the same number of edges rather than adding more.
// Layer Ops (Linear, Conv2D) own their Parameters outside the Variable DAG.
type Op struct {
	g   *Graph
	id  int32
	gen uint32
}

func (o Op) node() *opNode {
	if o.g == nil {
		panic(errors.Wrap(ErrStale, "use of zero Op"))
	}
	n, err := o.g.op(o)
	if err != nil {
		panic(err)
	}
	return n
}

// Valid reports whether the handle still refers to a live Op.
func (o Op) Valid() bool {
	if o.g == nil {
		return false
	}
	_, err := o.g.op(o)
	return err == nil
}

// Kind returns the operator kind.
func (o Op) Kind() Kind {
	return o.node().kind
}

// Name returns the operator's name, e.g. "linear2". Parameter names are prefixed with it.
func (o Op) Name() string {
	return o.node().name
}

// Arity returns the number of inputs Forward expects.
func (o Op) Arity() int {
	return o.node().kind.Arity()
}

// Inputs returns the input Variables bound by the latest Forward call, or nil before the first one.
func (o Op) Inputs() []Variable {
	n := o.node()
	if n.last == noApp {
		return nil
	}
	app := &o.g.apps[n.last]
	inputs := make([]Variable, len(app.inputs))
	for i, id := range app.inputs {
		inputs[i] = Variable{g: o.g, id: id, gen: o.g.vars[id].gen}
	}
	return inputs
}

// Parameters returns the learnable parameters of a layer Op; nil for stateless kinds.
func (o Op) Parameters() []*Parameter {
	return o.node().params
}

// Forward applies the Op to inputs and returns the Variable holding the result.
//
// Each call rebinds the Op's input edges to inputs, so Inputs and Op.Backward follow the
// latest call rather than the first one.
//
// It fails with ErrArity when the number of inputs does not match the kind,
// with ErrStale for reclaimed inputs, and with tensor.ErrShape (naming the shapes)
// when the inputs cannot be combined.
func (o Op) Forward(inputs ...Variable) (Variable, error) {
	g := o.g
	node, err := g.op(o)
	if err != nil {
		return Variable{}, err
	}
	if want := node.kind.Arity(); len(inputs) != want {
		return Variable{}, errors.Wrapf(ErrArity, "%s forward: expected %d inputs, got %d", node.kind, want, len(inputs))
	}

	ids := make([]int32, len(inputs))
	values := make([]*tensor.Tensor, len(inputs))
	for i, in := range inputs {
		n, err := g.variable(in)
		if err != nil {
			return Variable{}, errors.WithMessagef(err, "%s forward: input %d", node.kind, i)
		}
		ids[i] = in.id
		values[i] = n.value
	}

	res, err := g.forward(node, values)
	if err != nil {
		return Variable{}, errors.WithMessagef(err, "%s forward", node.kind)
	}

	appID := int32(len(g.apps))
	out := g.newVariable(res.value, appID)
	g.apps = append(g.apps, application{
		op:     o.id,
		inputs: ids,
		output: out.id,
		saved:  res.saved,
		argmax: res.argmax,
	})
	node.last = appID
	if klog.V(3).Enabled() {
		klog.Infof("autograd: %s forward -> %s", node.name, out)
	}
	return out, nil
}

// Backward applies the Op's adjoint to the latest application and overwrites the
// gradients of its input Variables (and of its parameters, for layers).
//
// Exactly one gradient, shaped like the Op's output, must be given; otherwise it fails
// with ErrArity or tensor.ErrShape. Graph.Backward drives this for whole graphs.
func (o Op) Backward(grads ...*tensor.Tensor) error {
	g := o.g
	node, err := g.op(o)
	if err != nil {
		return err
	}
	if len(grads) != 1 {
		return errors.Wrapf(ErrArity, "%s backward: expected 1 gradient, got %d", node.kind, len(grads))
	}
	if node.last == noApp {
		return errors.Wrapf(ErrNotDifferentiable, "%s backward: op has not been applied", node.name)
	}
	app := &g.apps[node.last]
	inGrads, paramGrads, err := g.adjoint(node, app, grads[0])
	if err != nil {
		return errors.WithMessagef(err, "%s backward", node.kind)
	}
	for j, id := range app.inputs {
		if inGrads[j] != nil {
			g.vars[id].grad = inGrads[j]
		}
	}
	for k, p := range node.params {
		if paramGrads[k] != nil {
			p.Grad = paramGrads[k]
		}
	}
	return nil
}

// String describes the Op, e.g. "Linear linear0 (4 -> 3, relu, 15 weights)".
func (o Op) String() string {
	if !o.Valid() {
		return fmt.Sprintf("Op#%d(stale)", o.id)
	}
	n := o.node()
	switch n.kind {
	case KindLinear:
		w := n.params[0].Value
		return fmt.Sprintf("%s %s (%d -> %d, %s, %s weights)", n.kind, n.name, w.Dim(0), w.Dim(1), n.act, weightCount(n.params))
	case KindConv2D:
		w := n.params[0].Value
		return fmt.Sprintf("%s %s (%d -> %d, kernel %d, stride %d, padding %d, %s, %s weights)",
			n.kind, n.name, w.Dim(1), w.Dim(0), n.kernel, n.stride, n.padding, n.act, weightCount(n.params))
	case KindMaxPool2D:
		return fmt.Sprintf("%s %s (kernel %d, stride %d)", n.kind, n.name, n.kernel, n.stride)
	case KindPow:
		return fmt.Sprintf("%s %s (p=%d)", n.kind, n.name, n.exponent)
	case KindReshape:
		return fmt.Sprintf("%s %s %s", n.kind, n.name, n.shape)
	default:
		return fmt.Sprintf("%s %s", n.kind, n.name)
	}
}

func weightCount(params []*Parameter) string {
	total := 0
	for _, p := range params {
		total += p.NumElements()
	}
	return humanize.Comma(int64(total))
}
