// Copyright 2026 Voxel ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package conv3d exposes the reference (unfold-based) 3D convolution
// operator: forward inference, gradient w.r.t. input and gradient
// w.r.t. parameters, executed on CPU with batch-parallel dispatch.
//
// The operator decomposes the sliding-window convolution into a column
// unfold (im2col over three spatial dimensions) followed by a dense
// matrix multiply. Shapes follow the (batch, channels, depth, height,
// width) layout.
//
// # Basic Usage
//
//	import (
//	    "github.com/voxel-ml/voxel/conv3d"
//	    "github.com/voxel-ml/voxel/tensor"
//	)
//
//	func main() {
//	    input := tensor.Zeros(tensor.Shape{8, 3, 16, 16, 16}, tensor.Float32)
//	    weight := tensor.Zeros(tensor.Shape{4, 3, 3, 3, 3}, tensor.Float32)
//
//	    out, err := conv3d.Conv3d(input, weight, conv3d.Dims{3, 3, 3}, nil,
//	        conv3d.Dims{1, 1, 1}, conv3d.Dims{0, 0, 0})
//	    if err != nil {
//	        // a ShapeError describing the violated precondition
//	    }
//	    _ = out // [8, 4, 14, 14, 14]
//	}
package conv3d
