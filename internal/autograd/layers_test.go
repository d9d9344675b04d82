package autograd_test

import (
	"math/rand/v2"
	"testing"

	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/minigrad/internal/autograd"
	"github.com/born-ml/minigrad/internal/tensor"
)

func TestLinear_Forward(t *testing.T) {
	g := autograd.NewGraph()
	fc := must.M1(g.NewLinear(autograd.LinearConfig{InFeatures: 3, OutFeatures: 2, Activation: autograd.ActivationReLU, Name: "fc"}))
	params := fc.Parameters()
	params[0].Value = must.M1(tensor.FromSlice([]float32{1, 0, 0, 1, 1, 1}, 3, 2))
	params[1].Value = must.M1(tensor.FromSlice([]float32{0.5, -6}))

	batch := variable(t, g, [][]float64{{1, 2, 3}})
	y := must.M1(fc.Forward(batch))
	assert.Equal(t, tensor.Shape{1, 2}, y.Shape())
	assert.Equal(t, []float32{4.5, 0}, y.Value().Float32s())

	sample := variable(t, g, []float64{1, 2, 3})
	y = must.M1(fc.Forward(sample))
	assert.Equal(t, tensor.Shape{2}, y.Shape())
	require.NoError(t, y.Backward())
	assert.Equal(t, tensor.Shape{3}, sample.Grad().Shape())
	// Only the first unit is active: dx = W[:, 0].
	assert.Equal(t, []float32{1, 0, 1}, sample.Grad().Float32s())

	_, err := fc.Forward(variable(t, g, [][]float64{{1, 2}}))
	require.ErrorIs(t, err, tensor.ErrShape)

	assert.Equal(t, "Linear fc (3 -> 2, relu, 8 weights)", fc.String())
}

func TestLinear_SeededInit(t *testing.T) {
	newWeights := func(opts ...autograd.Option) *tensor.Tensor {
		g := autograd.NewGraph(opts...)
		fc := must.M1(g.NewLinear(autograd.LinearConfig{InFeatures: 16, OutFeatures: 4}))
		return fc.Parameters()[0].Value
	}
	a, b := newWeights(), newWeights(autograd.WithSeed(autograd.DefaultSeed))
	assert.True(t, tensor.Equal(a, b))
	assert.False(t, tensor.Equal(a, newWeights(autograd.WithSeed(7))))

	bound := must.M1(tensor.Max(a))
	assert.LessOrEqual(t, bound, 0.6124, "sqrt(6/16)")

	g := autograd.NewGraph()
	_, err := g.NewLinear(autograd.LinearConfig{InFeatures: 0, OutFeatures: 4})
	require.ErrorIs(t, err, tensor.ErrShape)
}

func TestConv2D_Config(t *testing.T) {
	g := autograd.NewGraph()
	conv := must.M1(g.NewConv2D(autograd.Conv2DConfig{
		InChannels: 1, OutChannels: 2, KernelSize: 3, Padding: 1,
		Activation: autograd.ActivationTanh, Name: "conv",
	}))
	assert.Equal(t, "Conv2D conv (1 -> 2, kernel 3, stride 1, padding 1, tanh, 20 weights)", conv.String())
	assert.Equal(t, tensor.Shape{2, 1, 3, 3}, conv.Parameters()[0].Value.Shape())

	in := g.Variable(must.M1(tensor.Zeros(2, 1, 5, 5)))
	y := must.M1(conv.Forward(in))
	assert.Equal(t, tensor.Shape{2, 2, 5, 5}, y.Shape())

	_, err := conv.Forward(g.Variable(must.M1(tensor.Zeros(2, 3, 5, 5))))
	require.ErrorIs(t, err, tensor.ErrShape)

	_, err = g.NewConv2D(autograd.Conv2DConfig{InChannels: 1, OutChannels: 1})
	require.ErrorIs(t, err, tensor.ErrShape)
}

func TestMaxPool2D_RoutesGradientToWinners(t *testing.T) {
	g := autograd.NewGraph()
	pool := must.M1(g.NewMaxPool2D(autograd.MaxPool2DConfig{KernelSize: 2}))
	assert.Nil(t, pool.Parameters())

	x := g.Variable(must.M1(tensor.FromSlice([]float32{1, 5, 2, 0, 3, 4, 8, 7}, 1, 1, 2, 4)))
	y := must.M1(pool.Forward(x))
	assert.Equal(t, tensor.Shape{1, 1, 1, 2}, y.Shape())
	assert.Equal(t, []float32{5, 8}, y.Value().Float32s())

	require.NoError(t, y.SetGrad(must.M1(tensor.FromSlice([]float32{2, 3}, 1, 1, 1, 2))))
	require.NoError(t, y.Backward())
	assert.Equal(t, []float32{0, 2, 0, 0, 0, 0, 3, 0}, x.Grad().Float32s())
}

// TestConvNet_GradientCheck compares the gradients of a Conv2D -> Reshape -> Linear ->
// CrossEntropyLoss pipeline with central differences of the loss.
func TestConvNet_GradientCheck(t *testing.T) {
	const eps, tol = 1e-2, 1e-2
	rng := rand.New(rand.NewPCG(3, 5))

	g := autograd.NewGraph(autograd.WithSeed(11))
	conv := must.M1(g.NewConv2D(autograd.Conv2DConfig{
		InChannels: 1, OutChannels: 2, KernelSize: 3, Stride: 2, Padding: 1, Activation: autograd.ActivationTanh,
	}))
	fc := must.M1(g.NewLinear(autograd.LinearConfig{InFeatures: 2 * 3 * 3, OutFeatures: 3}))
	x := g.Variable(must.M1(tensor.RandN(tensor.NewRand(rng.Uint64()), 1, 2, 1, 6, 6)))
	labels := variable(t, g, []int{2, 0})

	forward := func() autograd.Variable {
		h := must.M1(conv.Forward(x))
		h = must.M1(g.Reshape(h, 2, 2*3*3))
		logits := must.M1(fc.Forward(h))
		return must.M1(g.CrossEntropyLoss(logits, labels))
	}
	lossAt := func() float64 {
		cp := g.Checkpoint()
		defer func() { must.M(g.Rewind(cp)) }()
		return must.M1(forward().Value().Item())
	}

	cp := g.Checkpoint()
	require.NoError(t, forward().Backward())
	grads := map[string]*tensor.Tensor{"input": x.Grad().Clone()}
	targets := map[string]*tensor.Tensor{"input": x.Value()}
	for _, p := range g.Parameters() {
		grads[p.Name] = p.Grad.Clone()
		targets[p.Name] = p.Value
	}
	require.NoError(t, g.Rewind(cp))
	require.Len(t, grads, 5)

	for name, param := range targets {
		data := param.Float32s()
		analytic := grads[name].Float32s()
		require.Len(t, analytic, len(data), name)
		for i := range data {
			orig := data[i]
			data[i] = orig + eps
			plus := lossAt()
			data[i] = orig - eps
			minus := lossAt()
			data[i] = orig
			assert.InDelta(t, (plus-minus)/(2*eps), analytic[i], tol, "%s[%d]", name, i)
		}
	}
}

func TestTraining_LossDecreases(t *testing.T) {
	const lr = 0.1
	g := autograd.NewGraph()
	hidden := must.M1(g.NewLinear(autograd.LinearConfig{InFeatures: 2, OutFeatures: 8, Activation: autograd.ActivationReLU}))
	out := must.M1(g.NewLinear(autograd.LinearConfig{InFeatures: 8, OutFeatures: 2}))
	x := variable(t, g, [][]float64{
		{-1, -1}, {-1, -0.5}, {-0.5, -1}, {-0.8, -0.8},
		{1, 1}, {1, 0.5}, {0.5, 1}, {0.8, 0.8},
	})
	labels := variable(t, g, []int{0, 0, 0, 0, 1, 1, 1, 1})

	step := func() float64 {
		cp := g.Checkpoint()
		defer func() { must.M(g.Rewind(cp)) }()
		h := must.M1(hidden.Forward(x))
		logits := must.M1(out.Forward(h))
		loss := must.M1(g.CrossEntropyLoss(logits, labels))
		must.M(loss.Backward())
		for _, p := range g.Parameters() {
			p.Value = must.M1(tensor.Add(p.Value, tensor.Scale(p.Grad, -lr)))
		}
		return must.M1(loss.Value().Item())
	}

	first := step()
	last := first
	for i := 0; i < 200; i++ {
		last = step()
	}
	t.Logf("loss %.4f -> %.4f, %s", first, last, g.Summary())
	assert.Less(t, last, first/2)
}
