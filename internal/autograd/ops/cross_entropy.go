package ops

import (
	"github.com/pkg/errors"

	"github.com/born-ml/minigrad/internal/backend/cpu"
	"github.com/born-ml/minigrad/internal/tensor"
)

// CrossEntropyForward computes the mean cross-entropy of softmax(logits) against class labels.
// The loss is returned as a tensor of shape (1); probs are kept for the backward pass.
func CrossEntropyForward(backend *cpu.CPUBackend, logits, labels *tensor.Tensor) (loss, probs *tensor.Tensor, err error) {
	l, probs, err := backend.CrossEntropy(logits, labels)
	if err != nil {
		return nil, nil, err
	}
	return tensor.Scalar(l), probs, nil
}

// CrossEntropyBackward computes the logits gradient
//
//	(softmax(logits) - onehot(labels)) / N * grad
//
// where grad is the upstream gradient of the scalar loss (1 when the loss is the root).
// Labels are not differentiable and receive nothing.
func CrossEntropyBackward(backend *cpu.CPUBackend, probs, labels, grad *tensor.Tensor) ([]*tensor.Tensor, error) {
	scale, err := grad.Item()
	if err != nil {
		return nil, errors.WithMessage(err, "cross_entropy backward: loss gradient")
	}
	g, err := backend.CrossEntropyBackward(probs, labels)
	if err != nil {
		return nil, err
	}
	if scale != 1 {
		g = tensor.Scale(g, float32(scale))
	}
	return []*tensor.Tensor{g}, nil
}
