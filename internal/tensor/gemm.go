package tensor

import "fmt"

// Gemm computes C = beta*C + alpha*op(A)·op(B) for 2-D tensors, where
// op transposes its operand when the corresponding flag is set.
// All three tensors must be contiguous, share a floating dtype, and
// have compatible dimensions. beta = 0 overwrites C (the existing
// contents are never read), beta = 1 accumulates into it.
//
// Naive O(n³) reference implementation, as elsewhere in this package.
func Gemm(c, a, b *RawTensor, transA, transB bool, alpha, beta float64) error {
	cShape, aShape, bShape := c.Shape(), a.Shape(), b.Shape()
	if len(cShape) != 2 || len(aShape) != 2 || len(bShape) != 2 {
		return fmt.Errorf("gemm: only 2D tensors supported, got C=%v A=%v B=%v", cShape, aShape, bShape)
	}
	if !c.IsContiguous() || !a.IsContiguous() || !b.IsContiguous() {
		return fmt.Errorf("gemm: operands must be contiguous")
	}
	if a.DType() != c.DType() || b.DType() != c.DType() {
		return fmt.Errorf("gemm: mixed dtypes %s, %s, %s", c.DType(), a.DType(), b.DType())
	}

	m, k := aShape[0], aShape[1]
	if transA {
		m, k = k, m
	}
	kAlt, n := bShape[0], bShape[1]
	if transB {
		kAlt, n = n, kAlt
	}

	if k != kAlt {
		return fmt.Errorf("gemm: inner dimension mismatch %d vs %d (A=%v transA=%v, B=%v transB=%v)",
			k, kAlt, aShape, transA, bShape, transB)
	}
	if cShape[0] != m || cShape[1] != n {
		return fmt.Errorf("gemm: result shape %v, want [%d %d]", cShape, m, n)
	}

	switch c.DType() {
	case Float32:
		gemm(c.AsFloat32(), a.AsFloat32(), b.AsFloat32(), m, n, k, transA, transB, float32(alpha), float32(beta))
	case Float64:
		gemm(c.AsFloat64(), a.AsFloat64(), b.AsFloat64(), m, n, k, transA, transB, alpha, beta)
	default:
		return fmt.Errorf("gemm: unsupported dtype %s", c.DType())
	}
	return nil
}

// gemm is the typed kernel behind Gemm.
// C[i,j] = beta*C[i,j] + alpha * sum_p op(A)[i,p] * op(B)[p,j]
func gemm[T Float](c, a, b []T, m, n, k int, transA, transB bool, alpha, beta T) {
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			var sum T
			for p := 0; p < k; p++ {
				var av, bv T
				if transA {
					av = a[p*m+i]
				} else {
					av = a[i*k+p]
				}
				if transB {
					bv = b[j*k+p]
				} else {
					bv = b[p*n+j]
				}
				sum += av * bv
			}
			idx := i*n + j
			if beta == 0 {
				c[idx] = alpha * sum
			} else {
				c[idx] = beta*c[idx] + alpha*sum
			}
		}
	}
}
