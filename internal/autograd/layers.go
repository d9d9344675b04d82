package autograd

import (
	"github.com/pkg/errors"

	"github.com/born-ml/minigrad/internal/backend/cpu"
	"github.com/born-ml/minigrad/internal/tensor"
)

// Activation is the nonlinearity fused into a Linear or Conv2D output.
type Activation = cpu.Activation

// Fused activations.
const (
	ActivationNone    = cpu.ActivationNone
	ActivationReLU    = cpu.ActivationReLU
	ActivationSigmoid = cpu.ActivationSigmoid
	ActivationTanh    = cpu.ActivationTanh
)

// LinearConfig configures a fully connected layer.
type LinearConfig struct {
	InFeatures  int
	OutFeatures int
	NoBias      bool
	Activation  Activation
	Name        string // defaults to "linear<N>"
}

// NewLinear creates a fully connected layer computing act(x @ W + b).
//
// W is [InFeatures, OutFeatures] drawn from a Kaiming uniform distribution, and b is
// [OutFeatures] drawn from U(-1/sqrt(in), 1/sqrt(in)), both from the graph's seeded source.
//
// Example:
//
//	fc, _ := g.NewLinear(LinearConfig{InFeatures: 784, OutFeatures: 128, Activation: ActivationReLU})
//	h, _ := fc.Forward(x) // x: (batch, 784) -> h: (batch, 128)
func (g *Graph) NewLinear(cfg LinearConfig) (Op, error) {
	if cfg.InFeatures <= 0 || cfg.OutFeatures <= 0 {
		return Op{}, errors.Wrapf(tensor.ErrShape, "linear: invalid features %d -> %d", cfg.InFeatures, cfg.OutFeatures)
	}
	w, err := tensor.KaimingUniform(g.rng, cfg.InFeatures, cfg.InFeatures, cfg.OutFeatures)
	if err != nil {
		return Op{}, err
	}
	var b *tensor.Tensor
	if !cfg.NoBias {
		if b, err = tensor.BiasInit(g.rng, cfg.InFeatures, cfg.OutFeatures); err != nil {
			return Op{}, err
		}
	}
	return g.newLayer(opNode{kind: KindLinear, name: cfg.Name, act: cfg.Activation}, w, b), nil
}

// Conv2DConfig configures a 2D convolution over NCHW inputs.
type Conv2DConfig struct {
	InChannels  int
	OutChannels int
	KernelSize  int
	Stride      int // defaults to 1
	Padding     int
	NoBias      bool
	Activation  Activation
	Name        string // defaults to "conv2d<N>"
}

// NewConv2D creates a convolution layer computing act(conv2d(x, W) + b).
//
// W is [OutChannels, InChannels, KernelSize, KernelSize] and b is [OutChannels]; both are
// initialized like Linear with fan-in InChannels*KernelSize*KernelSize.
func (g *Graph) NewConv2D(cfg Conv2DConfig) (Op, error) {
	if cfg.Stride == 0 {
		cfg.Stride = 1
	}
	if cfg.InChannels <= 0 || cfg.OutChannels <= 0 || cfg.KernelSize <= 0 || cfg.Stride < 0 || cfg.Padding < 0 {
		return Op{}, errors.Wrapf(tensor.ErrShape, "conv2d: invalid config %+v", cfg)
	}
	fanIn := cfg.InChannels * cfg.KernelSize * cfg.KernelSize
	w, err := tensor.KaimingUniform(g.rng, fanIn, cfg.OutChannels, cfg.InChannels, cfg.KernelSize, cfg.KernelSize)
	if err != nil {
		return Op{}, err
	}
	var b *tensor.Tensor
	if !cfg.NoBias {
		if b, err = tensor.BiasInit(g.rng, fanIn, cfg.OutChannels); err != nil {
			return Op{}, err
		}
	}
	node := opNode{
		kind:    KindConv2D,
		name:    cfg.Name,
		act:     cfg.Activation,
		kernel:  cfg.KernelSize,
		stride:  cfg.Stride,
		padding: cfg.Padding,
	}
	return g.newLayer(node, w, b), nil
}

// MaxPool2DConfig configures 2D max pooling.
type MaxPool2DConfig struct {
	KernelSize int
	Stride     int    // defaults to KernelSize
	Name       string // defaults to "maxpool2d<N>"
}

// NewMaxPool2D creates a max pooling operator. It has no parameters.
func (g *Graph) NewMaxPool2D(cfg MaxPool2DConfig) (Op, error) {
	if cfg.Stride == 0 {
		cfg.Stride = cfg.KernelSize
	}
	if cfg.KernelSize <= 0 || cfg.Stride < 0 {
		return Op{}, errors.Wrapf(tensor.ErrShape, "maxpool2d: invalid kernel size %d or stride %d", cfg.KernelSize, cfg.Stride)
	}
	return g.newOp(opNode{kind: KindMaxPool2D, name: cfg.Name, kernel: cfg.KernelSize, stride: cfg.Stride}), nil
}

// newLayer registers a layer op and names its parameters after it.
func (g *Graph) newLayer(node opNode, w, b *tensor.Tensor) Op {
	op := g.newOp(node)
	n := &g.ops[op.id]
	n.params = append(n.params, newParameter(n.name+".weight", w))
	if b != nil {
		n.params = append(n.params, newParameter(n.name+".bias", b))
	}
	return op
}
