// Package autograd implements reverse-mode automatic differentiation over an arena-backed graph.
//
// A Graph owns every node: Variables (a value and its gradient), Ops (reusable
// operator instances, possibly holding learnable parameters) and applications
// (one per Forward call, linking an Op's inputs to the Variable it produced).
// Variable and Op are small handles into the arena, so diamonds and shared
// sub-Variables need no ownership cycles.
//
// Usage:
//
//	g := autograd.NewGraph()
//	x, _ := g.FromNested([][]float64{{1, 2}, {3, 4}})
//	w, _ := g.FromNested([][]float64{{0.5}, {-1}})
//	y, _ := g.MatMul(x, w)
//	_ = y.Backward()
//	fmt.Println(w.Grad()) // dy/dw = x^T @ 1
//
// Memory is reclaimed explicitly: Checkpoint before building a per-step graph,
// Rewind after the optimizer step.
package autograd

import (
	"fmt"
	"math/rand/v2"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/born-ml/minigrad/internal/backend/cpu"
	"github.com/born-ml/minigrad/internal/tensor"
)

// noApp marks a leaf Variable and an Op that has not been applied yet.
const noApp = -1

type varNode struct {
	gen   uint32
	value *tensor.Tensor
	grad  *tensor.Tensor
	app   int32 // producing application, noApp for leaves
}

type opNode struct {
	gen    uint32
	kind   Kind
	name   string
	last   int32 // latest application of this op, noApp before the first Forward
	params []*Parameter

	exponent int            // KindPow
	shape    tensor.Shape   // KindReshape target
	act      cpu.Activation // KindLinear, KindConv2D
	kernel   int            // KindConv2D, KindMaxPool2D
	stride   int
	padding  int
}

// application is one Forward call of an op.
type application struct {
	op     int32
	inputs []int32
	output int32
	saved  *tensor.Tensor // softmax probabilities of KindCrossEntropyLoss
	argmax []int          // window winners of KindMaxPool2D
}

// Graph is an arena of Variables, Ops and their applications.
// A Graph is not safe for concurrent use.
type Graph struct {
	cfg     config
	backend *cpu.CPUBackend
	rng     *rand.Rand
	gen     uint32

	vars []varNode
	ops  []opNode
	apps []application
}

// NewGraph creates an empty graph.
func NewGraph(opts ...Option) *Graph {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Graph{
		cfg:     cfg,
		backend: cpu.New(),
		rng:     tensor.NewRand(cfg.seed),
		gen:     1,
	}
}

// Backend returns the CPU backend the graph runs its layer kernels on.
func (g *Graph) Backend() *cpu.CPUBackend {
	return g.backend
}

// Variable wraps t as a leaf Variable. The tensor is owned by the graph from now on.
// Its gradient starts as ones.
func (g *Graph) Variable(t *tensor.Tensor) Variable {
	return g.newVariable(t, noApp)
}

// FromNested builds a leaf Variable from nested numeric slices, see tensor.FromNested.
func (g *Graph) FromNested(data any) (Variable, error) {
	t, err := tensor.FromNested(data)
	if err != nil {
		return Variable{}, err
	}
	return g.Variable(t), nil
}

func (g *Graph) newVariable(value *tensor.Tensor, app int32) Variable {
	id := int32(len(g.vars))
	g.vars = append(g.vars, varNode{
		gen:   g.gen,
		value: value,
		grad:  tensor.OnesLike(value),
		app:   app,
	})
	return Variable{g: g, id: id, gen: g.gen}
}

func (g *Graph) newOp(node opNode) Op {
	node.gen = g.gen
	node.last = noApp
	id := int32(len(g.ops))
	if node.name == "" {
		node.name = fmt.Sprintf("%s%d", lowerKind(node.kind), id)
	}
	g.ops = append(g.ops, node)
	return Op{g: g, id: id, gen: g.gen}
}

// NewOp creates a reusable operator instance of a kind that needs no settings:
// Add, Sub, Multiply, MatMul, PowVar, Log, Exp, ReLU or CrossEntropyLoss.
// Pow, Reshape and the layers have dedicated constructors.
func (g *Graph) NewOp(kind Kind) (Op, error) {
	if kind < 0 || int(kind) >= len(kindNames) {
		return Op{}, errors.Errorf("autograd: unknown operator kind %d", int(kind))
	}
	if kind.configured() {
		return Op{}, errors.Errorf("autograd: %s needs its own constructor", kind)
	}
	return g.newOp(opNode{kind: kind}), nil
}

// NewPow creates an operator computing x^p for a constant integer exponent.
func (g *Graph) NewPow(p int) Op {
	return g.newOp(opNode{kind: KindPow, exponent: p})
}

// NewReshape creates an operator reinterpreting its input with the given shape.
func (g *Graph) NewReshape(shape ...int) (Op, error) {
	s := tensor.Shape(shape)
	if err := s.Validate(); err != nil {
		return Op{}, err
	}
	return g.newOp(opNode{kind: KindReshape, shape: s.Clone()}), nil
}

// Checkpoint marks the current size of the arena.
type Checkpoint struct {
	vars, ops, apps int
	gen             uint32
}

// Checkpoint records the arena size so a later Rewind can drop everything created after it.
func (g *Graph) Checkpoint() Checkpoint {
	return Checkpoint{vars: len(g.vars), ops: len(g.ops), apps: len(g.apps), gen: g.gen}
}

// Rewind drops every Variable, Op and application created after cp.
//
// Handles to dropped nodes become stale: Valid reports false and using them fails with ErrStale.
// Nodes created before cp stay valid, including layers and their parameters. An Op whose
// latest application was dropped falls back to its latest surviving one.
func (g *Graph) Rewind(cp Checkpoint) error {
	if cp.gen == 0 || cp.vars > len(g.vars) || cp.ops > len(g.ops) || cp.apps > len(g.apps) {
		return errors.Wrap(ErrStale, "rewind: checkpoint is ahead of the graph")
	}
	if (cp.vars > 0 && g.vars[cp.vars-1].gen > cp.gen) || (cp.ops > 0 && g.ops[cp.ops-1].gen > cp.gen) {
		return errors.Wrap(ErrStale, "rewind: checkpoint was invalidated by an earlier rewind")
	}
	for i := cp.vars; i < len(g.vars); i++ {
		g.vars[i] = varNode{}
	}
	for i := cp.apps; i < len(g.apps); i++ {
		g.apps[i] = application{}
	}
	for i := cp.ops; i < len(g.ops); i++ {
		g.ops[i] = opNode{}
	}
	g.vars = g.vars[:cp.vars]
	g.ops = g.ops[:cp.ops]
	g.apps = g.apps[:cp.apps]
	g.gen++

	for i := range g.ops {
		g.ops[i].last = noApp
	}
	for i, app := range g.apps {
		g.ops[app.op].last = int32(i)
	}
	return nil
}

// Parameters returns the learnable parameters of every live layer, in creation order.
func (g *Graph) Parameters() []*Parameter {
	var params []*Parameter
	for i := range g.ops {
		params = append(params, g.ops[i].params...)
	}
	return params
}

// ZeroGrad resets every parameter gradient and every leaf Variable gradient to zeros.
// Gradients of Variables produced by Ops are left alone, so a loss Variable keeps its seed.
func (g *Graph) ZeroGrad() {
	for _, p := range g.Parameters() {
		p.ZeroGrad()
	}
	for i := range g.vars {
		if g.vars[i].app == noApp {
			g.vars[i].grad = tensor.ZerosLike(g.vars[i].value).AsType(tensor.Float32)
		}
	}
}

// Summary describes the size of the graph, e.g.
// "graph: 12 variables, 4 ops, 5 applications, 2 parameters (1,034 weights)".
func (g *Graph) Summary() string {
	params := g.Parameters()
	weights := 0
	for _, p := range params {
		weights += p.NumElements()
	}
	return fmt.Sprintf("graph: %s variables, %s ops, %s applications, %d parameters (%s weights)",
		humanize.Comma(int64(len(g.vars))), humanize.Comma(int64(len(g.ops))),
		humanize.Comma(int64(len(g.apps))), len(params), humanize.Comma(int64(weights)))
}

// Softmax returns the row-wise softmax of v's value. It is not recorded in the graph.
func (g *Graph) Softmax(v Variable) (*tensor.Tensor, error) {
	node, err := g.variable(v)
	if err != nil {
		return nil, err
	}
	return g.backend.Softmax(node.value)
}

// variable resolves a handle, failing with ErrStale for reclaimed slots.
func (g *Graph) variable(v Variable) (*varNode, error) {
	if g == nil || v.g == nil {
		return nil, errors.Wrap(ErrStale, "zero Variable")
	}
	if v.g != g {
		return nil, errors.Errorf("autograd: variable %d belongs to another graph", v.id)
	}
	if int(v.id) >= len(g.vars) || g.vars[v.id].gen != v.gen {
		return nil, errors.Wrapf(ErrStale, "variable %d", v.id)
	}
	return &g.vars[v.id], nil
}

func (g *Graph) op(o Op) (*opNode, error) {
	if g == nil || o.g == nil {
		return nil, errors.Wrap(ErrStale, "zero Op")
	}
	if o.g != g {
		return nil, errors.Errorf("autograd: op %d belongs to another graph", o.id)
	}
	if int(o.id) >= len(g.ops) || g.ops[o.id].gen != o.gen {
		return nil, errors.Wrapf(ErrStale, "op %d", o.id)
	}
	return &g.ops[o.id], nil
}
