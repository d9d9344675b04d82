package autograd

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/born-ml/minigrad/internal/tensor"
)

// Variable is a handle to a value node in a Graph: a tensor, its gradient and
// optionally the Op application that produced it.
//
// Handles are cheap to copy. The zero Variable is invalid, and a handle becomes
// stale once Graph.Rewind reclaims its slot. Accessors panic on invalid handles;
// operations taking Variables return ErrStale instead.
type Variable struct {
	g   *Graph
	id  int32
	gen uint32
}

func (v Variable) node() *varNode {
	if v.g == nil {
		panic(errors.Wrap(ErrStale, "use of zero Variable"))
	}
	n, err := v.g.variable(v)
	if err != nil {
		panic(err)
	}
	return n
}

// Valid reports whether the handle still refers to a live node.
func (v Variable) Valid() bool {
	if v.g == nil {
		return false
	}
	_, err := v.g.variable(v)
	return err == nil
}

// Graph returns the graph owning the Variable.
func (v Variable) Graph() *Graph {
	return v.g
}

// Value returns the Variable's tensor. Callers must not change its shape.
func (v Variable) Value() *tensor.Tensor {
	return v.node().value
}

// Grad returns the gradient assigned by the last backward pass.
// Before any pass it holds ones, the seed used when the Variable is a backward root.
func (v Variable) Grad() *tensor.Tensor {
	return v.node().grad
}

// Shape returns the shape of the Variable's value.
func (v Variable) Shape() tensor.Shape {
	return v.node().value.Shape()
}

// SetValue replaces the value, e.g. after an optimizer step. The shape must not change.
func (v Variable) SetValue(t *tensor.Tensor) error {
	n, err := v.g.variable(v)
	if err != nil {
		return err
	}
	if !t.Shape().Equal(n.value.Shape()) {
		return errors.Wrapf(tensor.ErrShape, "set value: shape %s, expected %s", t.Shape(), n.value.Shape())
	}
	n.value = t
	return nil
}

// SetGrad replaces the gradient, e.g. to seed a backward pass with something other than ones.
func (v Variable) SetGrad(t *tensor.Tensor) error {
	n, err := v.g.variable(v)
	if err != nil {
		return err
	}
	if !t.Shape().Equal(n.value.Shape()) {
		return errors.Wrapf(tensor.ErrShape, "set grad: shape %s, expected %s", t.Shape(), n.value.Shape())
	}
	n.grad = t.AsType(tensor.Float32)
	return nil
}

// Op returns the operator that produced the Variable; ok is false for leaves.
func (v Variable) Op() (op Op, ok bool) {
	n := v.node()
	if n.app == noApp {
		return Op{}, false
	}
	id := v.g.apps[n.app].op
	return Op{g: v.g, id: id, gen: v.g.ops[id].gen}, true
}

// IsLeaf reports whether the Variable was created from data rather than by an Op.
func (v Variable) IsLeaf() bool {
	return v.node().app == noApp
}

// Backward runs reverse-mode differentiation from v, seeded with v.Grad(). See Graph.Backward.
func (v Variable) Backward() error {
	if v.g == nil {
		return errors.Wrap(ErrStale, "backward from zero Variable")
	}
	return v.g.Backward(v)
}

// String returns a short description such as "Variable#3(2, 3)".
func (v Variable) String() string {
	if !v.Valid() {
		return fmt.Sprintf("Variable#%d(stale)", v.id)
	}
	return fmt.Sprintf("Variable#%d%s", v.id, v.Shape())
}
