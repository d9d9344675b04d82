package cpu

import (
	"math"

	"github.com/pkg/errors"

	"github.com/born-ml/minigrad/internal/tensor"
)

// MaxPool2D performs 2D max pooling.
//
// Max pooling reduces spatial dimensions by taking the maximum value
// in each pooling window. It has no learnable parameters.
//
// Input shape:  [N, C, H, W]
// Output shape: [N, C, (H-kernelSize)/stride + 1, (W-kernelSize)/stride + 1]
//
// Besides the output, MaxPool2D returns the flat input index of the maximum of
// every window (first occurrence on ties). MaxPool2DBackward routes gradients through them.
//
// Example (2x2 pool, stride=2):
//
//	Input: [[1,2,3,4],    Output: [[6,8],
//	        [5,6,7,8],             [14,16]]
//	        [9,10,11,12],
//	        [13,14,15,16]]
func (cpu *CPUBackend) MaxPool2D(input *tensor.Tensor, kernelSize, stride int) (*tensor.Tensor, []int, error) {
	s := input.Shape()
	if len(s) != 4 {
		return nil, nil, errors.Wrapf(tensor.ErrShape, "maxpool2d: expected 4D input [N,C,H,W], got %s", s)
	}
	if kernelSize <= 0 || stride <= 0 {
		return nil, nil, errors.Wrapf(tensor.ErrShape, "maxpool2d: invalid kernel size %d or stride %d", kernelSize, stride)
	}
	n, c, h, w := s[0], s[1], s[2], s[3]
	if kernelSize > h || kernelSize > w {
		return nil, nil, errors.Wrapf(tensor.ErrShape, "maxpool2d: kernel size %d too large for input %s", kernelSize, s)
	}
	hOut := ConvOutputSize(h, kernelSize, stride, 0)
	wOut := ConvOutputSize(w, kernelSize, stride, 0)

	out := newFloat(n, c, hOut, wOut)
	argmax := make([]int, out.NumElements())
	in, dst := floats(input), out.Float32s()

	idx := 0
	for plane := 0; plane < n*c; plane++ {
		base := plane * h * w
		for oh := 0; oh < hOut; oh++ {
			for ow := 0; ow < wOut; ow++ {
				best := float32(math.Inf(-1))
				bestIdx := base + oh*stride*w + ow*stride
				for kh := 0; kh < kernelSize; kh++ {
					row := base + (oh*stride+kh)*w + ow*stride
					for kw := 0; kw < kernelSize; kw++ {
						if v := in[row+kw]; v > best {
							best, bestIdx = v, row+kw
						}
					}
				}
				dst[idx] = best
				argmax[idx] = bestIdx
				idx++
			}
		}
	}
	return out, argmax, nil
}

// MaxPool2DBackward scatters the output gradient back onto the input positions
// recorded by MaxPool2D. Inputs that were never a window maximum get zero;
// an input that won several overlapping windows sums their gradients.
func (cpu *CPUBackend) MaxPool2DBackward(inputShape tensor.Shape, grad *tensor.Tensor, argmax []int) (*tensor.Tensor, error) {
	if grad.NumElements() != len(argmax) {
		return nil, errors.Wrapf(tensor.ErrShape, "maxpool2d backward: gradient %s does not match %d pooled positions",
			grad.Shape(), len(argmax))
	}
	dInput, err := tensor.New(tensor.Float32, inputShape...)
	if err != nil {
		return nil, err
	}
	dst, g := dInput.Float32s(), floats(grad)
	for i, src := range argmax {
		if src < 0 || src >= len(dst) {
			return nil, errors.Wrapf(tensor.ErrIndex, "maxpool2d backward: index %d outside input %s", src, inputShape)
		}
		dst[src] += g[i]
	}
	return dInput, nil
}
