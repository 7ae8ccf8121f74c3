// Copyright 2026 Voxel ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package conv3d

import (
	internalconv3d "github.com/voxel-ml/voxel/internal/conv3d"
	"github.com/voxel-ml/voxel/tensor"
)

// Dims is a (depth, height, width) triple describing kernel size,
// stride or padding.
type Dims = internalconv3d.Dims

// Params bundles kernel size, stride and padding.
type Params = internalconv3d.Params

// ShapeError reports a violated shape precondition.
type ShapeError = internalconv3d.ShapeError

// LayoutError reports a non-contiguous buffer where a contiguous one is
// required.
type LayoutError = internalconv3d.LayoutError

// ForwardOut computes the convolution into caller-supplied output and
// scratch buffers, resizing them in place.
func ForwardOut(output, finput, fgradInput, input, weight *tensor.RawTensor, kernelSize Dims, bias *tensor.RawTensor, stride, padding Dims) error {
	return internalconv3d.ForwardOut(output, finput, fgradInput, input, weight, kernelSize, bias, stride, padding)
}

// Forward computes the convolution, returning the output along with
// the column buffer and backward scratch to pass to Backward.
func Forward(input, weight *tensor.RawTensor, kernelSize Dims, bias *tensor.RawTensor, stride, padding Dims) (output, finput, fgradInput *tensor.RawTensor, err error) {
	return internalconv3d.Forward(input, weight, kernelSize, bias, stride, padding)
}

// BackwardOut populates whichever of gradInput, gradWeight, gradBias
// are non-nil, resizing them in place.
func BackwardOut(gradInput, gradWeight, gradBias, gradOutput, input, weight *tensor.RawTensor, kernelSize, stride, padding Dims, finput, fgradInput *tensor.RawTensor) error {
	return internalconv3d.BackwardOut(gradInput, gradWeight, gradBias, gradOutput, input, weight, kernelSize, stride, padding, finput, fgradInput)
}

// Backward computes the gradients selected by outputMask, in the order
// (grad_input, grad_weight, grad_bias). Unselected slots are nil.
func Backward(gradOutput, input, weight *tensor.RawTensor, kernelSize, stride, padding Dims, finput, fgradInput *tensor.RawTensor, outputMask [3]bool) (gradInput, gradWeight, gradBias *tensor.RawTensor, err error) {
	return internalconv3d.Backward(gradOutput, input, weight, kernelSize, stride, padding, finput, fgradInput, outputMask)
}

// Conv3d is the convenience wrapper returning only the convolution
// output.
func Conv3d(input, weight *tensor.RawTensor, kernelSize Dims, bias *tensor.RawTensor, stride, padding Dims) (*tensor.RawTensor, error) {
	return internalconv3d.Conv3d(input, weight, kernelSize, bias, stride, padding)
}
