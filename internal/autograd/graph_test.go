package autograd_test

import (
	"testing"

	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/minigrad/internal/autograd"
	"github.com/born-ml/minigrad/internal/tensor"
)

func variable(t *testing.T, g *autograd.Graph, data any) autograd.Variable {
	t.Helper()
	v, err := g.FromNested(data)
	require.NoError(t, err)
	return v
}

func TestVariable_GradStartsAsOnes(t *testing.T) {
	g := autograd.NewGraph()
	v := variable(t, g, [][]int{{1, 2}, {3, 4}})

	assert.True(t, v.IsLeaf())
	assert.Equal(t, tensor.Float32, v.Grad().DType())
	assert.Equal(t, []float32{1, 1, 1, 1}, v.Grad().Float32s())
	_, ok := v.Op()
	assert.False(t, ok)
}

func TestReLU_ForwardBackward(t *testing.T) {
	g := autograd.NewGraph()
	x := variable(t, g, [][]float64{{1, -1}, {-1, 1}})

	relu := must.M1(g.NewOp(autograd.KindReLU))
	y := must.M1(relu.Forward(x))
	assert.Equal(t, []float32{1, 0, 0, 1}, y.Value().Float32s())

	op, ok := y.Op()
	require.True(t, ok)
	assert.Equal(t, autograd.KindReLU, op.Kind())

	require.NoError(t, relu.Backward(must.M1(tensor.Full(2, 2, 2))))
	assert.Equal(t, []float32{2, 0, 0, 2}, x.Grad().Float32s())
}

func TestMatMul_ShapeMismatchNamesShapes(t *testing.T) {
	g := autograd.NewGraph()
	a := variable(t, g, [][]int{{1, 2, 3}})
	b := variable(t, g, [][]int{{1, 2, 3}})

	_, err := g.MatMul(a, b)
	require.ErrorIs(t, err, tensor.ErrShape)
	assert.Contains(t, err.Error(), "(1, 3) and (1, 3)")
}

func TestForward_Arity(t *testing.T) {
	g := autograd.NewGraph()
	x := variable(t, g, []float64{1, 2})

	add := must.M1(g.NewOp(autograd.KindAdd))
	_, err := add.Forward(x)
	require.ErrorIs(t, err, autograd.ErrArity)
	assert.Contains(t, err.Error(), "expected 2 inputs, got 1")

	_, err = add.Forward(x, x, x)
	require.ErrorIs(t, err, autograd.ErrArity)
	assert.Nil(t, add.Inputs(), "failed calls must not bind inputs")
}

func TestBackward_Arity(t *testing.T) {
	g := autograd.NewGraph()
	x := variable(t, g, []float64{1, 2})
	exp := must.M1(g.NewOp(autograd.KindExp))

	err := exp.Backward(must.M1(tensor.Ones(2)))
	require.ErrorIs(t, err, autograd.ErrNotDifferentiable)

	must.M1(exp.Forward(x))
	require.ErrorIs(t, exp.Backward(), autograd.ErrArity)
	g1, g2 := must.M1(tensor.Ones(2)), must.M1(tensor.Ones(2))
	require.ErrorIs(t, exp.Backward(g1, g2), autograd.ErrArity)
	require.ErrorIs(t, exp.Backward(must.M1(tensor.Ones(3))), tensor.ErrShape)
}

func TestNewOp_ConfiguredKindsNeedConstructors(t *testing.T) {
	g := autograd.NewGraph()
	for _, kind := range []autograd.Kind{autograd.KindPow, autograd.KindReshape, autograd.KindLinear,
		autograd.KindConv2D, autograd.KindMaxPool2D} {
		_, err := g.NewOp(kind)
		assert.Error(t, err, kind.String())
	}
	_, err := g.NewOp(autograd.Kind(99))
	assert.Error(t, err)
}

func TestOp_ReuseRebindsEdges(t *testing.T) {
	g := autograd.NewGraph()
	a := variable(t, g, []float64{1, 2})
	b := variable(t, g, []float64{3, 4})
	c := variable(t, g, []float64{5, 6})

	mul := must.M1(g.NewOp(autograd.KindMultiply))
	y1 := must.M1(mul.Forward(a, b))
	require.Len(t, mul.Inputs(), 2)

	y2 := must.M1(mul.Forward(a, c))
	inputs := mul.Inputs()
	require.Len(t, inputs, 2, "reuse must not duplicate edges")
	assert.Equal(t, c.Value(), inputs[1].Value())

	// Both outputs remember the op that produced them.
	op1, _ := y1.Op()
	op2, _ := y2.Op()
	assert.Equal(t, op1, op2)

	// Backward on each root follows its own application.
	require.NoError(t, y1.Backward())
	assert.Equal(t, []float32{3, 4}, a.Grad().Float32s())
	require.NoError(t, y2.Backward())
	assert.Equal(t, []float32{5, 6}, a.Grad().Float32s())
	assert.Equal(t, []float32{1, 2}, c.Grad().Float32s())
}

// TestBackward_Idempotent builds Variable -> MatMul -> Add -> MatMul and checks two
// independent passes assign identical gradients to both leaves.
func TestBackward_Idempotent(t *testing.T) {
	for _, opts := range [][]autograd.Option{nil, {autograd.WithOverwriteFanIn()}} {
		g := autograd.NewGraph(opts...)
		x := variable(t, g, [][]float64{{1, 2}, {3, 4}})
		w1 := variable(t, g, [][]float64{{0.5, -1, 2}, {1, 0.25, -0.5}})
		b := variable(t, g, []float64{0.1, 0.2, 0.3})
		w2 := variable(t, g, [][]float64{{1}, {-2}, {0.5}})

		h := must.M1(g.MatMul(x, w1))
		h = must.M1(g.Add(h, b))
		y := must.M1(g.MatMul(h, w2))

		require.NoError(t, y.Backward())
		first := []*tensor.Tensor{x.Grad().Clone(), w1.Grad().Clone(), b.Grad().Clone(), w2.Grad().Clone()}

		require.NoError(t, y.SetGrad(tensor.OnesLike(y.Value())))
		require.NoError(t, y.Backward())
		second := []*tensor.Tensor{x.Grad(), w1.Grad(), b.Grad(), w2.Grad()}

		for i := range first {
			assert.True(t, tensor.Equal(first[i], second[i]), "leaf %d differs between passes", i)
		}
		// dy/db = Σ_rows (1 @ w2^T) = 2 * w2^T
		assert.Equal(t, []float32{2, -4, 1}, b.Grad().Float32s())
		assert.Equal(t, tensor.Shape{3}, b.Grad().Shape())
	}
}

func TestAdd_BroadcastBiasGradient(t *testing.T) {
	g := autograd.NewGraph()
	x := variable(t, g, [][]float64{{1, 2, 3}, {4, 5, 6}})
	b := variable(t, g, [][]float64{{10, 20, 30}})

	y := must.M1(g.Add(x, b))
	assert.Equal(t, []float32{11, 22, 33, 14, 25, 36}, y.Value().Float32s())

	require.NoError(t, y.SetGrad(must.M1(tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, 2, 3))))
	require.NoError(t, y.Backward())
	assert.Equal(t, tensor.Shape{1, 3}, b.Grad().Shape())
	assert.Equal(t, []float32{5, 7, 9}, b.Grad().Float32s())
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, x.Grad().Float32s())

	c := variable(t, g, []float64{1, 2})
	_, err := g.Add(x, c)
	require.ErrorIs(t, err, tensor.ErrShape)
}

func TestReshape_RoundTripGradient(t *testing.T) {
	g := autograd.NewGraph()
	x := variable(t, g, [][]float64{{1, 2, 3}, {4, 5, 6}})

	r := must.M1(g.Reshape(x, 3, 2))
	back := must.M1(g.Reshape(r, 2, 3))
	assert.True(t, tensor.Equal(x.Value(), back.Value()))

	upstream := must.M1(tensor.FromSlice([]float32{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}, 2, 3))
	require.NoError(t, back.SetGrad(upstream))
	require.NoError(t, back.Backward())
	assert.Equal(t, upstream.Float32s(), x.Grad().Float32s())
	assert.Equal(t, tensor.Shape{3, 2}, r.Grad().Shape())

	_, err := g.Reshape(x, 4)
	require.ErrorIs(t, err, tensor.ErrShape)
}

func TestCrossEntropyLoss_GradientRows(t *testing.T) {
	g := autograd.NewGraph()
	logits := variable(t, g, [][]float64{{2, 1, 0.1}, {0.5, 2.5, 0.3}, {-1, 0, 4}})
	labels := variable(t, g, []int{0, 1, 0})

	loss := must.M1(g.CrossEntropyLoss(logits, labels))
	assert.Equal(t, tensor.Shape{1}, loss.Shape())
	assert.GreaterOrEqual(t, must.M1(loss.Value().Item()), 0.0)

	labelsGrad := labels.Grad().Clone()
	require.NoError(t, loss.Backward())
	grad := logits.Grad()
	require.Equal(t, tensor.Shape{3, 3}, grad.Shape())
	for r := 0; r < 3; r++ {
		var sum float64
		for c := 0; c < 3; c++ {
			sum += must.M1(grad.Get(r, c))
		}
		assert.InDelta(t, 0, sum, 1e-6, "row %d", r)
	}
	assert.True(t, tensor.Equal(labelsGrad, labels.Grad()), "labels receive no gradient")

	probs := must.M1(g.Softmax(logits))
	assert.InDelta(t, 3, must.M1(tensor.SumAll(probs).Item()), 1e-5, "each row sums to one")
}

func TestPow_Gradients(t *testing.T) {
	g := autograd.NewGraph()
	x := variable(t, g, []float64{1, 2, 3})

	y := must.M1(g.Pow(x, 3))
	assert.Equal(t, []float32{1, 8, 27}, y.Value().Float32s())
	require.NoError(t, y.Backward())
	assert.Equal(t, []float32{3, 12, 27}, x.Grad().Float32s())

	base := variable(t, g, []float64{2})
	p := variable(t, g, []float64{3})
	z := must.M1(g.PowVar(base, p))
	require.NoError(t, z.Backward())
	assert.InDelta(t, 12, base.Grad().Float32s()[0], 1e-5)
	assert.InDelta(t, 8*0.6931472, p.Grad().Float32s()[0], 1e-5)
}

func TestLog_GradientModes(t *testing.T) {
	for _, tc := range []struct {
		name string
		opts []autograd.Option
		want []float32
	}{
		{"default", nil, []float32{0.5, 0.25}},
		{"legacy", []autograd.Option{autograd.WithLegacyLogGradient()}, []float32{2, 4}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			g := autograd.NewGraph(tc.opts...)
			x := variable(t, g, []float64{2, 4})
			y := must.M1(g.Log(x))
			require.NoError(t, y.Backward())
			assert.Equal(t, tc.want, x.Grad().Float32s())
		})
	}
}

func TestExp_Gradient(t *testing.T) {
	g := autograd.NewGraph()
	x := variable(t, g, []float64{0, 1})
	y := must.M1(g.Exp(x))
	require.NoError(t, y.Backward())
	assert.True(t, tensor.AllClose(y.Value(), x.Grad(), 1e-6))
}

func TestSub_Gradient(t *testing.T) {
	g := autograd.NewGraph()
	a := variable(t, g, []float64{5, 7})
	b := variable(t, g, []float64{2, 10})
	y := must.M1(g.Sub(a, b))
	assert.Equal(t, []float32{3, -3}, y.Value().Float32s())
	require.NoError(t, y.Backward())
	assert.Equal(t, []float32{1, 1}, a.Grad().Float32s())
	assert.Equal(t, []float32{-1, -1}, b.Grad().Float32s())
}
