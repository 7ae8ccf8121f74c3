// Package conv3d implements the reference (unfold-based) 3D convolution
// operator: forward, gradient w.r.t. input, and gradient w.r.t.
// parameters, on CPU, parallelized over the batch dimension.
package conv3d

import "fmt"

// Batch elements per parallel chunk, at minimum. Small enough to keep
// CPUs busy on realistic batches, large enough to amortize dispatch.
const grainSize = 20

// Dims is a (depth, height, width) integer triple describing kernel
// size, stride or padding along the three spatial axes.
type Dims [3]int

// String returns the "D x H x W" rendering used in error messages.
func (d Dims) String() string {
	return fmt.Sprintf("%d x %d x %d", d[0], d[1], d[2])
}

// Params bundles the immutable convolution geometry: kernel size,
// stride and padding per spatial axis.
type Params struct {
	Kernel Dims
	Stride Dims
	Pad    Dims
}

// divRTN divides x by y rounding the quotient toward negative infinity,
// matching the output-extent formula of the reference operator.
func divRTN(x, y int) int {
	q := x / y
	if x%y != 0 && (x < 0) != (y < 0) {
		q--
	}
	return q
}

// OutputSize computes the output spatial extents for the given input
// extents: out = floor((in + 2*pad - kernel) / stride) + 1 per axis.
func (p Params) OutputSize(in Dims) Dims {
	var out Dims
	for i := 0; i < 3; i++ {
		out[i] = divRTN(in[i]+2*p.Pad[i]-p.Kernel[i], p.Stride[i]) + 1
	}
	return out
}

// ColumnRows returns the row count of the unfolded column buffer for
// the given input channel count: channels * kD * kH * kW.
func (p Params) ColumnRows(channels int) int {
	return channels * p.Kernel[0] * p.Kernel[1] * p.Kernel[2]
}

// Numel returns the product of the triple's components.
func (d Dims) Numel() int {
	return d[0] * d[1] * d[2]
}
