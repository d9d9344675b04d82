// Package cpu implements the dense CPU kernels used by the autograd layers:
// im2col convolution, max pooling, row softmax, fused activations and cross-entropy.
package cpu

import (
	"github.com/pkg/errors"

	"github.com/born-ml/minigrad/internal/tensor"
)

// CPUBackend runs the layer kernels on the CPU.
// It is stateless; a Graph owns one and calls it synchronously.
type CPUBackend struct{}

// New creates a new CPU backend.
func New() *CPUBackend {
	return &CPUBackend{}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// floats returns the elements of t as float32, converting int32 tensors.
func floats(t *tensor.Tensor) []float32 {
	if t.DType() == tensor.Float32 {
		return t.Float32s()
	}
	return t.AsType(tensor.Float32).Float32s()
}

// newFloat allocates a float32 tensor for a shape already known to be valid.
func newFloat(shape ...int) *tensor.Tensor {
	t, err := tensor.New(tensor.Float32, shape...)
	if err != nil {
		panic(errors.Wrap(err, "cpu: internal shape"))
	}
	return t
}
