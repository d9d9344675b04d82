package cpu

import (
	"math"

	"github.com/pkg/errors"

	"github.com/born-ml/minigrad/internal/tensor"
)

// classRows views logits as [N, C]; a rank-1 tensor is a single sample.
func classRows(logits *tensor.Tensor) (n, c int, err error) {
	s := logits.Shape()
	switch len(s) {
	case 1:
		return 1, s[0], nil
	case 2:
		return s[0], s[1], nil
	default:
		return 0, 0, errors.Wrapf(tensor.ErrShape, "cross_entropy: logits must be [N, C] or [C], got %s", s)
	}
}

// labelIndices validates that labels hold one class index in [0, classes) per sample.
func labelIndices(labels *tensor.Tensor, n, classes int) ([]int, error) {
	if labels.NumElements() != n {
		return nil, errors.Wrapf(tensor.ErrShape, "cross_entropy: %d labels %s for a batch of %d", labels.NumElements(), labels.Shape(), n)
	}
	out := make([]int, n)
	for i, v := range floats(labels) {
		idx := int(v)
		if float32(idx) != v || idx < 0 || idx >= classes {
			return nil, errors.Wrapf(tensor.ErrIndex, "cross_entropy: label %v at position %d is not a class in [0, %d)", v, i, classes)
		}
		out[i] = idx
	}
	return out, nil
}

// OneHot encodes class indices [N] as a float32 matrix [N, classes].
func (cpu *CPUBackend) OneHot(labels *tensor.Tensor, classes int) (*tensor.Tensor, error) {
	idx, err := labelIndices(labels, labels.NumElements(), classes)
	if err != nil {
		return nil, err
	}
	out := newFloat(len(idx), classes)
	data := out.Float32s()
	for i, c := range idx {
		data[i*classes+c] = 1
	}
	return out, nil
}

// CrossEntropy computes the mean negative log-likelihood of the true classes under
// softmax(logits), together with the probabilities the backward pass reuses.
//
//	loss = -1/N * Σ_i log softmax(logits_i)[labels_i]
//
// The log-probabilities are computed with the log-sum-exp trick, so large logits do not overflow
// and confidently wrong predictions keep a finite, unclamped loss.
func (cpu *CPUBackend) CrossEntropy(logits, labels *tensor.Tensor) (loss float32, probs *tensor.Tensor, err error) {
	n, c, err := classRows(logits)
	if err != nil {
		return 0, nil, err
	}
	idx, err := labelIndices(labels, n, c)
	if err != nil {
		return 0, nil, err
	}
	if n == 0 {
		return 0, newFloat(logits.Shape()...), nil
	}

	probs, err = cpu.Softmax(logits)
	if err != nil {
		return 0, nil, err
	}
	x := floats(logits)
	var total float64
	for i := 0; i < n; i++ {
		row := x[i*c : (i+1)*c]
		maxVal := row[0]
		for _, v := range row[1:] {
			maxVal = max(maxVal, v)
		}
		var sum float64
		for _, v := range row {
			sum += math.Exp(float64(v - maxVal))
		}
		logP := float64(row[idx[i]]-maxVal) - math.Log(sum)
		total -= logP
	}
	return float32(total / float64(n)), probs, nil
}

// CrossEntropyBackward returns the gradient of the mean cross-entropy with respect to the logits:
//
//	(softmax(logits) - one_hot(labels)) / N
//
// Every row sums to zero up to rounding.
func (cpu *CPUBackend) CrossEntropyBackward(probs, labels *tensor.Tensor) (*tensor.Tensor, error) {
	n, c, err := classRows(probs)
	if err != nil {
		return nil, err
	}
	idx, err := labelIndices(labels, n, c)
	if err != nil {
		return nil, err
	}
	grad := probs.AsType(tensor.Float32)
	if n == 0 {
		return grad, nil
	}
	data := grad.Float32s()
	for i, label := range idx {
		data[i*c+label]--
	}
	inv := 1 / float32(n)
	for i := range data {
		data[i] *= inv
	}
	return grad, nil
}
