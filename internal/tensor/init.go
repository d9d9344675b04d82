package tensor

import (
	"math"
	"math/rand/v2"
)

// NewRand returns a deterministic random source for parameter initialization.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// KaimingUniform initializes a float32 tensor from U(-b, b) with b = sqrt(6 / fanIn),
// the He initialization for layers followed by ReLU.
func KaimingUniform(rng *rand.Rand, fanIn int, shape ...int) (*Tensor, error) {
	bound := math.Sqrt(6.0 / float64(max(fanIn, 1)))
	return uniform(rng, bound, shape)
}

// BiasInit initializes a float32 tensor from U(-1/sqrt(fanIn), 1/sqrt(fanIn)).
func BiasInit(rng *rand.Rand, fanIn int, shape ...int) (*Tensor, error) {
	bound := 1.0 / math.Sqrt(float64(max(fanIn, 1)))
	return uniform(rng, bound, shape)
}

// RandN fills a float32 tensor with scale * N(0, 1) samples.
func RandN(rng *rand.Rand, scale float32, shape ...int) (*Tensor, error) {
	t, err := New(Float32, shape...)
	if err != nil {
		return nil, err
	}
	for i := range t.f32 {
		t.f32[i] = scale * float32(rng.NormFloat64())
	}
	return t, nil
}

func uniform(rng *rand.Rand, bound float64, shape []int) (*Tensor, error) {
	t, err := New(Float32, shape...)
	if err != nil {
		return nil, err
	}
	for i := range t.f32 {
		t.f32[i] = float32((rng.Float64()*2 - 1) * bound)
	}
	return t, nil
}
