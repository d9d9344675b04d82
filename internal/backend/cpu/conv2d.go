package cpu

import (
	"github.com/pkg/errors"

	"github.com/born-ml/minigrad/internal/tensor"
)

// convGeometry holds the dimensions of one NCHW convolution.
type convGeometry struct {
	n, cIn, h, w    int
	cOut, kH, kW    int
	hOut, wOut      int
	stride, padding int
}

// colRows is the number of output positions, one im2col row each.
func (g convGeometry) colRows() int { return g.n * g.hOut * g.wOut }

// colCols is the length of one flattened receptive field.
func (g convGeometry) colCols() int { return g.cIn * g.kH * g.kW }

// ConvOutputSize returns the spatial output size of a convolution or pooling window.
func ConvOutputSize(in, kernel, stride, padding int) int {
	return (in+2*padding-kernel)/stride + 1
}

func newConvGeometry(input, kernel tensor.Shape, stride, padding int) (convGeometry, error) {
	if len(input) != 4 {
		return convGeometry{}, errors.Wrapf(tensor.ErrShape, "conv2d: input must be 4D [N,C,H,W], got %s", input)
	}
	if len(kernel) != 4 {
		return convGeometry{}, errors.Wrapf(tensor.ErrShape, "conv2d: kernel must be 4D [C_out,C_in,K_h,K_w], got %s", kernel)
	}
	if input[1] != kernel[1] {
		return convGeometry{}, errors.Wrapf(tensor.ErrShape, "conv2d: input channels of %s do not match kernel %s", input, kernel)
	}
	if stride <= 0 || padding < 0 {
		return convGeometry{}, errors.Wrapf(tensor.ErrShape, "conv2d: invalid stride %d or padding %d", stride, padding)
	}
	g := convGeometry{
		n: input[0], cIn: input[1], h: input[2], w: input[3],
		cOut: kernel[0], kH: kernel[2], kW: kernel[3],
		stride: stride, padding: padding,
	}
	g.hOut = ConvOutputSize(g.h, g.kH, stride, padding)
	g.wOut = ConvOutputSize(g.w, g.kW, stride, padding)
	if g.hOut <= 0 || g.wOut <= 0 {
		return convGeometry{}, errors.Wrapf(tensor.ErrShape,
			"conv2d: kernel %s does not fit input %s with stride %d and padding %d", kernel, input, stride, padding)
	}
	return g, nil
}

// Conv2D performs 2D convolution using the im2col algorithm.
//
// Input shape:  [N, C_in, H, W]
// Kernel shape: [C_out, C_in, K_h, K_w]
// Output shape: [N, C_out, H_out, W_out] with H_out = (H + 2*padding - K_h) / stride + 1
//
// Algorithm:
//  1. Im2col: unfold every receptive field into a row of a [N*H_out*W_out, C_in*K_h*K_w] matrix
//  2. MatMul the columns with the kernel viewed as [C_out, C_in*K_h*K_w], transposed
//  3. Rearrange [N*H_out*W_out, C_out] into NCHW
//
// Reference: "High Performance Convolutional Neural Networks for Document Processing"
// (Chellapilla et al., 2006).
func (cpu *CPUBackend) Conv2D(input, kernel *tensor.Tensor, stride, padding int) (*tensor.Tensor, error) {
	g, err := newConvGeometry(input.Shape(), kernel.Shape(), stride, padding)
	if err != nil {
		return nil, err
	}

	cols := newFloat(g.colRows(), g.colCols())
	im2col(cols.Float32s(), floats(input), g)

	k2d, err := kernel.AsType(tensor.Float32).Reshape(g.cOut, g.colCols())
	if err != nil {
		return nil, err
	}
	prod, err := tensor.MatMul(cols, k2d.T()) // [N*H_out*W_out, C_out]
	if err != nil {
		return nil, err
	}

	out := newFloat(g.n, g.cOut, g.hOut, g.wOut)
	rowsToNCHW(out.Float32s(), prod.Float32s(), g)
	return out, nil
}

// Conv2DBackward computes the gradients of a convolution with respect to its input and kernel.
//
//	dKernel = grad2dᵀ @ cols           [C_out, C_in*K_h*K_w]
//	dCols   = grad2d @ kernel2d        [N*H_out*W_out, C_in*K_h*K_w], folded back by col2im
//
// where grad2d is the upstream NCHW gradient laid out as [N*H_out*W_out, C_out].
func (cpu *CPUBackend) Conv2DBackward(input, kernel, grad *tensor.Tensor, stride, padding int) (dInput, dKernel *tensor.Tensor, err error) {
	g, err := newConvGeometry(input.Shape(), kernel.Shape(), stride, padding)
	if err != nil {
		return nil, nil, err
	}
	want := tensor.Shape{g.n, g.cOut, g.hOut, g.wOut}
	if !grad.Shape().Equal(want) {
		return nil, nil, errors.Wrapf(tensor.ErrShape, "conv2d backward: gradient shape %s, expected %s", grad.Shape(), want)
	}

	grad2d := newFloat(g.colRows(), g.cOut)
	nchwToRows(grad2d.Float32s(), floats(grad), g)

	cols := newFloat(g.colRows(), g.colCols())
	im2col(cols.Float32s(), floats(input), g)

	dk, err := tensor.MatMul(grad2d.T(), cols)
	if err != nil {
		return nil, nil, err
	}
	dKernel, err = dk.Reshape(kernel.Shape()...)
	if err != nil {
		return nil, nil, err
	}

	k2d, err := kernel.AsType(tensor.Float32).Reshape(g.cOut, g.colCols())
	if err != nil {
		return nil, nil, err
	}
	dCols, err := tensor.MatMul(grad2d, k2d)
	if err != nil {
		return nil, nil, err
	}

	dInput = newFloat(g.n, g.cIn, g.h, g.w)
	col2im(dInput.Float32s(), dCols.Float32s(), g)
	return dInput, dKernel, nil
}

// Conv2DAddBias adds a per-channel bias [C] to an NCHW tensor in place.
func (cpu *CPUBackend) Conv2DAddBias(out, bias *tensor.Tensor) error {
	s := out.Shape()
	if len(s) != 4 || bias.NumElements() != s[1] {
		return errors.Wrapf(tensor.ErrShape, "conv2d: bias %s does not match output channels of %s", bias.Shape(), s)
	}
	data, b := out.Float32s(), floats(bias)
	plane := s[2] * s[3]
	for n := 0; n < s[0]; n++ {
		for c := 0; c < s[1]; c++ {
			base := (n*s[1] + c) * plane
			for i := 0; i < plane; i++ {
				data[base+i] += b[c]
			}
		}
	}
	return nil
}

// Conv2DBiasGrad reduces an NCHW gradient to the per-channel bias gradient [C],
// summing over the batch and both spatial axes.
func (cpu *CPUBackend) Conv2DBiasGrad(grad *tensor.Tensor) (*tensor.Tensor, error) {
	s := grad.Shape()
	if len(s) != 4 {
		return nil, errors.Wrapf(tensor.ErrShape, "conv2d: bias gradient needs a 4D gradient, got %s", s)
	}
	out := newFloat(s[1])
	db, data := out.Float32s(), floats(grad)
	plane := s[2] * s[3]
	for n := 0; n < s[0]; n++ {
		for c := 0; c < s[1]; c++ {
			base := (n*s[1] + c) * plane
			for i := 0; i < plane; i++ {
				db[c] += data[base+i]
			}
		}
	}
	return out, nil
}

// im2col transforms an NCHW input into a column matrix.
//
// Each row of cols corresponds to one output position (n, out_h, out_w).
// Each column corresponds to one kernel weight (c, kh, kw). Positions that
// fall into the padding read as zero.
func im2col(cols, input []float32, g convGeometry) {
	width := g.colCols()
	row := 0
	for n := 0; n < g.n; n++ {
		for oh := 0; oh < g.hOut; oh++ {
			for ow := 0; ow < g.wOut; ow++ {
				hStart := oh*g.stride - g.padding
				wStart := ow*g.stride - g.padding
				idx := row * width
				for c := 0; c < g.cIn; c++ {
					for kh := 0; kh < g.kH; kh++ {
						for kw := 0; kw < g.kW; kw++ {
							h, w := hStart+kh, wStart+kw
							if h >= 0 && h < g.h && w >= 0 && w < g.w {
								cols[idx] = input[((n*g.cIn+c)*g.h+h)*g.w+w]
							} else {
								cols[idx] = 0
							}
							idx++
						}
					}
				}
				row++
			}
		}
	}
}

// col2im is the adjoint of im2col: every column entry is added back onto the
// input position it was read from. Overlapping windows accumulate.
func col2im(dst, cols []float32, g convGeometry) {
	width := g.colCols()
	row := 0
	for n := 0; n < g.n; n++ {
		for oh := 0; oh < g.hOut; oh++ {
			for ow := 0; ow < g.wOut; ow++ {
				hStart := oh*g.stride - g.padding
				wStart := ow*g.stride - g.padding
				idx := row * width
				for c := 0; c < g.cIn; c++ {
					for kh := 0; kh < g.kH; kh++ {
						for kw := 0; kw < g.kW; kw++ {
							h, w := hStart+kh, wStart+kw
							if h >= 0 && h < g.h && w >= 0 && w < g.w {
								dst[((n*g.cIn+c)*g.h+h)*g.w+w] += cols[idx]
							}
							idx++
						}
					}
				}
				row++
			}
		}
	}
}

// rowsToNCHW rearranges [N*H_out*W_out, C_out] into [N, C_out, H_out, W_out].
func rowsToNCHW(dst, src []float32, g convGeometry) {
	plane := g.hOut * g.wOut
	for n := 0; n < g.n; n++ {
		for p := 0; p < plane; p++ {
			row := (n*plane + p) * g.cOut
			for c := 0; c < g.cOut; c++ {
				dst[(n*g.cOut+c)*plane+p] = src[row+c]
			}
		}
	}
}

// nchwToRows is the inverse of rowsToNCHW.
func nchwToRows(dst, src []float32, g convGeometry) {
	plane := g.hOut * g.wOut
	for n := 0; n < g.n; n++ {
		for p := 0; p < plane; p++ {
			row := (n*plane + p) * g.cOut
			for c := 0; c < g.cOut; c++ {
				dst[row+c] = src[(n*g.cOut+c)*plane+p]
			}
		}
	}
}
