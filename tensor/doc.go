// Copyright 2026 Voxel ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the dense tensor type consumed by the Voxel
// convolution kernels.
//
// # Overview
//
// Tensors are flat buffers interpreted through a shape, row-major
// strides and a runtime data type:
//   - Zero-copy typed views (AsFloat32, AsFloat64)
//   - Leading-index sub-views for per-sample kernel dispatch
//   - Contiguous reshape and in-place resize
//   - A BLAS-style Gemm with overwrite/accumulate semantics
//
// # Basic Usage
//
//	import "github.com/voxel-ml/voxel/tensor"
//
//	func main() {
//	    x := tensor.Zeros(tensor.Shape{2, 3}, tensor.Float32)
//	    y, _ := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{3, 2})
//	    z := tensor.Zeros(tensor.Shape{2, 2}, tensor.Float32)
//	    _ = tensor.Gemm(z, x, y, false, false, 1, 0)
//	}
package tensor
