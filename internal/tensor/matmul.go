package tensor

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

// MatMul performs a 2D matrix product: (M, K) @ (K, N) -> (M, N).
//
// Float32 products run through gonum's SGEMM; int32 x int32 uses a plain
// triple loop and stays int32. Any other rank, or a.shape[1] != b.shape[0],
// fails with ErrShape naming both shapes.
func MatMul(a, b *Tensor) (*Tensor, error) {
	if a.Rank() != 2 || b.Rank() != 2 || a.shape[1] != b.shape[0] {
		return nil, errors.Wrapf(ErrShape, "matmul: incompatible shapes %s and %s", a.shape, b.shape)
	}
	m, k, n := a.shape[0], a.shape[1], b.shape[1]

	if a.dtype == Int32 && b.dtype == Int32 {
		out := newUnchecked(Int32, Shape{m, n})
		matmulInt32(out.i32, a.i32, b.i32, m, k, n)
		return out, nil
	}

	out := newUnchecked(Float32, Shape{m, n})
	if m == 0 || n == 0 || k == 0 {
		return out, nil
	}
	blas32.Gemm(blas.NoTrans, blas.NoTrans, 1,
		blas32.General{Rows: m, Cols: k, Stride: k, Data: a.floats()},
		blas32.General{Rows: k, Cols: n, Stride: n, Data: b.floats()},
		0,
		blas32.General{Rows: m, Cols: n, Stride: n, Data: out.f32})
	return out, nil
}

// matmulInt32 uses the i-k-j loop order so the inner loop walks both b and out contiguously.
func matmulInt32(out, a, b []int32, m, k, n int) {
	for i := 0; i < m; i++ {
		row := out[i*n : (i+1)*n]
		for p := 0; p < k; p++ {
			av := a[i*k+p]
			if av == 0 {
				continue
			}
			bRow := b[p*n : (p+1)*n]
			for j := range row {
				row[j] += av * bRow[j]
			}
		}
	}
}
