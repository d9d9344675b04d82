package cpu

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/born-ml/minigrad/internal/tensor"
)

func fromSlice(t *testing.T, data []float32, shape ...int) *tensor.Tensor {
	t.Helper()
	x, err := tensor.FromSlice(data, shape...)
	if err != nil {
		t.Fatalf("FromSlice(%v): %v", shape, err)
	}
	return x
}

func randomTensor(rng *rand.Rand, shape ...int) *tensor.Tensor {
	x := newFloat(shape...)
	for i := range x.Float32s() {
		x.Float32s()[i] = float32(rng.Float64()*2 - 1)
	}
	return x
}

// TestConv2D_BasicForward tests basic Conv2D forward pass.
func TestConv2D_BasicForward(t *testing.T) {
	backend := New()

	// 1 2 3
	// 4 5 6
	// 7 8 9
	input := fromSlice(t, []float32{1, 2, 3, 4, 5, 6, 7, 8, 9}, 1, 1, 3, 3)
	// 1 0
	// 0 1
	kernel := fromSlice(t, []float32{1, 0, 0, 1}, 1, 1, 2, 2)

	output, err := backend.Conv2D(input, kernel, 1, 0)
	if err != nil {
		t.Fatal(err)
	}

	expectedShape := tensor.Shape{1, 1, 2, 2}
	if !output.Shape().Equal(expectedShape) {
		t.Fatalf("Expected shape %v, got %v", expectedShape, output.Shape())
	}

	// Diagonal sums: 1+5, 2+6, 4+8, 5+9
	expected := []float32{6, 8, 12, 14}
	for i, exp := range expected {
		if got := output.Float32s()[i]; got != exp {
			t.Errorf("Output[%d]: expected %.1f, got %.1f", i, exp, got)
		}
	}
}

// TestConv2D_PaddingStride checks output geometry with padding and stride.
func TestConv2D_PaddingStride(t *testing.T) {
	backend := New()
	input := newFloat(2, 3, 5, 5)
	input.Fill(1)
	kernel := newFloat(4, 3, 3, 3)
	kernel.Fill(1)

	output, err := backend.Conv2D(input, kernel, 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !output.Shape().Equal(tensor.Shape{2, 4, 3, 3}) {
		t.Fatalf("Expected shape (2, 4, 3, 3), got %v", output.Shape())
	}

	// The top-left window covers a 2x2 valid region per channel: 3 * 4 = 12.
	// The centre window is fully inside: 3 * 9 = 27.
	v, _ := output.Get(0, 0, 0, 0)
	if v != 12 {
		t.Errorf("corner: expected 12, got %v", v)
	}
	v, _ = output.Get(1, 3, 1, 1)
	if v != 27 {
		t.Errorf("centre: expected 27, got %v", v)
	}
}

// TestConv2D_MultiChannelMatchesDirect compares im2col against a direct convolution.
func TestConv2D_MultiChannelMatchesDirect(t *testing.T) {
	backend := New()
	rng := rand.New(rand.NewPCG(1, 2))
	input := randomTensor(rng, 2, 2, 4, 5)
	kernel := randomTensor(rng, 3, 2, 2, 3)

	output, err := backend.Conv2D(input, kernel, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	s := output.Shape()
	for n := 0; n < s[0]; n++ {
		for co := 0; co < s[1]; co++ {
			for oh := 0; oh < s[2]; oh++ {
				for ow := 0; ow < s[3]; ow++ {
					var want float64
					for ci := 0; ci < 2; ci++ {
						for kh := 0; kh < 2; kh++ {
							for kw := 0; kw < 3; kw++ {
								h, w := oh-1+kh, ow-1+kw
								if h < 0 || h >= 4 || w < 0 || w >= 5 {
									continue
								}
								x, _ := input.Get(n, ci, h, w)
								k, _ := kernel.Get(co, ci, kh, kw)
								want += x * k
							}
						}
					}
					got, _ := output.Get(n, co, oh, ow)
					if math.Abs(got-want) > 1e-5 {
						t.Fatalf("output[%d,%d,%d,%d]: expected %v, got %v", n, co, oh, ow, want, got)
					}
				}
			}
		}
	}
}

func TestConv2D_InvalidShapes(t *testing.T) {
	backend := New()

	_, err := backend.Conv2D(newFloat(1, 2, 3), newFloat(1, 2, 2, 2), 1, 0)
	if !errors.Is(err, tensor.ErrShape) {
		t.Errorf("3D input: expected ErrShape, got %v", err)
	}
	_, err = backend.Conv2D(newFloat(1, 2, 3, 3), newFloat(1, 3, 2, 2), 1, 0)
	if !errors.Is(err, tensor.ErrShape) {
		t.Errorf("channel mismatch: expected ErrShape, got %v", err)
	}
	_, err = backend.Conv2D(newFloat(1, 1, 2, 2), newFloat(1, 1, 3, 3), 1, 0)
	if !errors.Is(err, tensor.ErrShape) {
		t.Errorf("kernel larger than input: expected ErrShape, got %v", err)
	}
}

// TestConv2DBackward_FiniteDifferences checks both adjoints against numerical gradients
// of L = Σ conv(x, k) * r for a fixed random r.
func TestConv2DBackward_FiniteDifferences(t *testing.T) {
	backend := New()
	rng := rand.New(rand.NewPCG(3, 4))
	const stride, padding = 2, 1
	input := randomTensor(rng, 2, 2, 5, 4)
	kernel := randomTensor(rng, 3, 2, 3, 3)

	out, err := backend.Conv2D(input, kernel, stride, padding)
	if err != nil {
		t.Fatal(err)
	}
	r := randomTensor(rng, out.Shape()...)

	loss := func() float64 {
		y, err := backend.Conv2D(input, kernel, stride, padding)
		if err != nil {
			t.Fatal(err)
		}
		var sum float64
		for i, v := range y.Float32s() {
			sum += float64(v) * float64(r.Float32s()[i])
		}
		return sum
	}

	dInput, dKernel, err := backend.Conv2DBackward(input, kernel, r, stride, padding)
	if err != nil {
		t.Fatal(err)
	}

	check := func(name string, param, analytic *tensor.Tensor) {
		data := param.Float32s()
		const eps = 1e-2
		for i := range data {
			orig := data[i]
			data[i] = orig + eps
			plus := loss()
			data[i] = orig - eps
			minus := loss()
			data[i] = orig
			numeric := (plus - minus) / (2 * eps)
			if got := float64(analytic.Float32s()[i]); math.Abs(got-numeric) > 1e-2 {
				t.Errorf("%s[%d]: analytic %v, numeric %v", name, i, got, numeric)
			}
		}
	}
	check("dInput", input, dInput)
	check("dKernel", kernel, dKernel)
}

func TestConv2DBias(t *testing.T) {
	backend := New()
	out := newFloat(2, 2, 1, 2)
	bias := fromSlice(t, []float32{1, -1}, 2)

	if err := backend.Conv2DAddBias(out, bias); err != nil {
		t.Fatal(err)
	}
	expected := []float32{1, 1, -1, -1, 1, 1, -1, -1}
	for i, exp := range expected {
		if out.Float32s()[i] != exp {
			t.Errorf("out[%d]: expected %v, got %v", i, exp, out.Float32s()[i])
		}
	}

	grad := newFloat(2, 2, 1, 2)
	grad.Fill(0.5)
	db, err := backend.Conv2DBiasGrad(grad)
	if err != nil {
		t.Fatal(err)
	}
	// Each channel collects N * H * W = 4 entries.
	if db.Float32s()[0] != 2 || db.Float32s()[1] != 2 {
		t.Errorf("bias grad: expected [2 2], got %v", db.Float32s())
	}

	if err := backend.Conv2DAddBias(out, fromSlice(t, []float32{1, 2, 3}, 3)); !errors.Is(err, tensor.ErrShape) {
		t.Errorf("expected ErrShape, got %v", err)
	}
}
