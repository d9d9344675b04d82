package autograd

import (
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/born-ml/minigrad/internal/tensor"
)

// Backward computes gradients of root with respect to every Variable and parameter it depends on,
// seeding the pass with root.Grad() (ones unless set with SetGrad).
//
// The default traversal visits applications in reverse topological order and sums gradient
// contributions where a Variable feeds several Ops. Each pass overwrites the gradients of the
// Variables it reaches, so running it twice on an unchanged graph gives the same result.
// Parameter gradients of reached layers are reset at the start of the pass and summed over
// all applications of the layer within it.
//
// With WithOverwriteFanIn the pass is a depth-first, pre-order walk in which each Op overwrites
// its inputs' gradients, dropping all but the last contribution at fan-in points.
//
// Both traversals are iterative, so graph depth is not limited by the goroutine stack.
func (g *Graph) Backward(root Variable) error {
	if _, err := g.variable(root); err != nil {
		return errors.WithMessage(err, "backward")
	}
	if g.cfg.overwriteFan {
		return g.backwardOverwrite(root.id)
	}
	return g.backwardAccumulate(root.id)
}

// reachable returns the applications root depends on, latest first.
// Applications only consume Variables created before them, so descending
// index order is a reverse topological order.
func (g *Graph) reachable(root int32) []int32 {
	seenVar := make([]bool, len(g.vars))
	seenApp := make([]bool, len(g.apps))
	stack := []int32{root}
	seenVar[root] = true
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		app := g.vars[id].app
		if app == noApp || seenApp[app] {
			continue
		}
		seenApp[app] = true
		for _, in := range g.apps[app].inputs {
			if !seenVar[in] {
				seenVar[in] = true
				stack = append(stack, in)
			}
		}
	}

	var order []int32
	for i := len(g.apps) - 1; i >= 0; i-- {
		if seenApp[i] {
			order = append(order, int32(i))
		}
	}
	return order
}

func (g *Graph) backwardAccumulate(root int32) error {
	order := g.reachable(root)

	reset := make(map[int32]bool)
	for _, a := range order {
		op := g.apps[a].op
		if !reset[op] {
			reset[op] = true
			for _, p := range g.ops[op].params {
				p.ZeroGrad()
			}
		}
	}

	pending := map[int32]*tensor.Tensor{root: g.vars[root].grad}
	for _, a := range order {
		app := &g.apps[a]
		grad, ok := pending[app.output]
		if !ok {
			continue
		}
		node := &g.ops[app.op]
		inGrads, paramGrads, err := g.adjoint(node, app, grad)
		if err != nil {
			return errors.WithMessagef(err, "backward through %s", node.name)
		}
		for j, id := range app.inputs {
			if inGrads[j] == nil {
				continue
			}
			if prev, ok := pending[id]; ok {
				sum, err := tensor.Add(prev, inGrads[j])
				if err != nil {
					return errors.WithMessagef(err, "backward through %s: fan-in", node.name)
				}
				pending[id] = sum
			} else {
				pending[id] = inGrads[j]
			}
		}
		for k, p := range node.params {
			if paramGrads[k] == nil {
				continue
			}
			sum, err := tensor.Add(p.Grad, paramGrads[k])
			if err != nil {
				return errors.WithMessagef(err, "backward through %s: parameter %s", node.name, p.Name)
			}
			p.Grad = sum
		}
		if klog.V(3).Enabled() {
			klog.Infof("autograd: backward %s (application %d)", node.name, a)
		}
	}

	nonFinite := 0
	for id, grad := range pending {
		g.vars[id].grad = grad
		if !grad.IsFinite() {
			nonFinite++
		}
	}
	if nonFinite > 0 {
		klog.Warningf("autograd: backward from variable %d produced non-finite gradients for %d variables", root, nonFinite)
	}
	klog.V(2).Infof("autograd: backward from variable %d: %d applications, %d variables (accumulate)",
		root, len(order), len(pending))
	return nil
}

func (g *Graph) backwardOverwrite(root int32) error {
	visits := 0
	stack := []int32{root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		v := &g.vars[id]
		if v.app == noApp {
			continue
		}
		app := &g.apps[v.app]
		node := &g.ops[app.op]
		inGrads, paramGrads, err := g.adjoint(node, app, v.grad)
		if err != nil {
			return errors.WithMessagef(err, "backward through %s", node.name)
		}
		for j, in := range app.inputs {
			if inGrads[j] != nil {
				g.vars[in].grad = inGrads[j]
			}
		}
		for k, p := range node.params {
			if paramGrads[k] != nil {
				p.Grad = paramGrads[k]
			}
		}
		for j := len(app.inputs) - 1; j >= 0; j-- {
			stack = append(stack, app.inputs[j])
		}
		visits++
	}
	klog.V(2).Infof("autograd: backward from variable %d: %d applications visited (overwrite)", root, visits)
	return nil
}
