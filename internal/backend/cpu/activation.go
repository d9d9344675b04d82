package cpu

import (
	"math"

	"github.com/pkg/errors"

	"github.com/born-ml/minigrad/internal/tensor"
)

// Activation selects the element-wise nonlinearity fused into a layer's output.
type Activation int

// Supported activations.
const (
	ActivationNone Activation = iota
	ActivationReLU
	ActivationSigmoid
	ActivationTanh
)

// String returns the activation name.
func (a Activation) String() string {
	switch a {
	case ActivationNone:
		return "none"
	case ActivationReLU:
		return "relu"
	case ActivationSigmoid:
		return "sigmoid"
	case ActivationTanh:
		return "tanh"
	default:
		return "unknown"
	}
}

// Activate applies act element-wise and returns a new float32 tensor.
func (cpu *CPUBackend) Activate(x *tensor.Tensor, act Activation) *tensor.Tensor {
	switch act {
	case ActivationReLU:
		return tensor.Maximum(x, 0)
	case ActivationSigmoid:
		return mapFloats(x, func(v float32) float32 {
			return float32(1 / (1 + math.Exp(-float64(v))))
		})
	case ActivationTanh:
		return mapFloats(x, func(v float32) float32 {
			return float32(math.Tanh(float64(v)))
		})
	default:
		return x.AsType(tensor.Float32)
	}
}

// ActivationBackward computes the input gradient of an activation from its output.
//
//	relu:    grad * (out > 0)
//	sigmoid: grad * out * (1 - out)
//	tanh:    grad * (1 - out²)
//
// Expressing every derivative through the output lets layers keep only the activated value.
func (cpu *CPUBackend) ActivationBackward(out, grad *tensor.Tensor, act Activation) (*tensor.Tensor, error) {
	if !out.Shape().Equal(grad.Shape()) {
		return nil, errors.Wrapf(tensor.ErrShape, "%s backward: output %s and gradient %s differ", act, out.Shape(), grad.Shape())
	}
	var d func(y float32) float32
	switch act {
	case ActivationReLU:
		d = func(y float32) float32 {
			if y > 0 {
				return 1
			}
			return 0
		}
	case ActivationSigmoid:
		d = func(y float32) float32 { return y * (1 - y) }
	case ActivationTanh:
		d = func(y float32) float32 { return 1 - y*y }
	default:
		return grad.AsType(tensor.Float32), nil
	}

	res := newFloat(grad.Shape()...)
	dst, y, g := res.Float32s(), floats(out), floats(grad)
	for i := range dst {
		dst[i] = g[i] * d(y[i])
	}
	return res, nil
}

// ReLU computes max(0, x) element-wise.
func (cpu *CPUBackend) ReLU(x *tensor.Tensor) *tensor.Tensor {
	return cpu.Activate(x, ActivationReLU)
}

// Softmax converts logits into a probability distribution per row.
//
// Rank-1 input is a single row; rank-2 input is normalized over its last axis.
// The per-row maximum is subtracted before exponentiation for numerical stability.
func (cpu *CPUBackend) Softmax(logits *tensor.Tensor) (*tensor.Tensor, error) {
	s := logits.Shape()
	if len(s) > 2 {
		return nil, errors.Wrapf(tensor.ErrShape, "softmax: expected rank 1 or 2, got %s", s)
	}
	out := newFloat(s...)
	cols := s[len(s)-1]
	if cols == 0 {
		return out, nil
	}
	src, dst := floats(logits), out.Float32s()
	for r := 0; r < len(src)/cols; r++ {
		softmaxRow(dst[r*cols:(r+1)*cols], src[r*cols:(r+1)*cols])
	}
	return out, nil
}

func softmaxRow(dst, src []float32) {
	maxVal := src[0]
	for _, v := range src[1:] {
		if v > maxVal {
			maxVal = v
		}
	}
	var sum float64
	for i, v := range src {
		e := math.Exp(float64(v - maxVal))
		dst[i] = float32(e)
		sum += e
	}
	for i := range dst {
		dst[i] = float32(float64(dst[i]) / sum)
	}
}

func mapFloats(x *tensor.Tensor, f func(float32) float32) *tensor.Tensor {
	out := newFloat(x.Shape()...)
	dst := out.Float32s()
	for i, v := range floats(x) {
		dst[i] = f(v)
	}
	return out
}
