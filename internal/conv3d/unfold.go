package conv3d

import (
	"fmt"

	"github.com/voxel-ml/voxel/internal/tensor"
)

// unfold3dCopy gathers every convolution window of one input sample
// into the caller-supplied column buffer.
//
// sample:  (channels, inD, inH, inW), contiguous
// columns: (channels*kD*kH*kW, outD*outH*outW), contiguous
//
// Row r of columns enumerates a (channel, kd, kh, kw) tuple; column j
// decodes to an output coordinate (od, oh, ow). The gathered element is
// sample[c, od*strideD-padD+kd, oh*strideH-padH+kh, ow*strideW-padW+kw],
// or zero where that coordinate falls outside the input (implicit zero
// padding).
func unfold3dCopy(columns, sample *tensor.RawTensor, channels int, in, out Dims, p Params) {
	switch sample.DType() {
	case tensor.Float32:
		unfold3dCopyKernel(columns.AsFloat32(), sample.AsFloat32(), channels, in, out, p)
	case tensor.Float64:
		unfold3dCopyKernel(columns.AsFloat64(), sample.AsFloat64(), channels, in, out, p)
	default:
		panic(fmt.Sprintf("unfold3d: unsupported dtype %s", sample.DType()))
	}
}

// unfold3dAcc is the adjoint of unfold3dCopy: it scatter-adds each
// column element back to the input coordinate it was gathered from.
// Overlapping windows (stride < kernel) map several columns to the same
// coordinate, so contributions sum. The destination sample must be
// zeroed by the caller beforehand.
func unfold3dAcc(columns, sample *tensor.RawTensor, channels int, in, out Dims, p Params) {
	switch sample.DType() {
	case tensor.Float32:
		unfold3dAccKernel(columns.AsFloat32(), sample.AsFloat32(), channels, in, out, p)
	case tensor.Float64:
		unfold3dAccKernel(columns.AsFloat64(), sample.AsFloat64(), channels, in, out, p)
	default:
		panic(fmt.Sprintf("unfold3d: unsupported dtype %s", sample.DType()))
	}
}

func unfold3dCopyKernel[T tensor.Float](columns, sample []T, channels int, in, out Dims, p Params) {
	inD, inH, inW := in[0], in[1], in[2]
	outD, outH, outW := out[0], out[1], out[2]
	outN := outD * outH * outW

	row := 0
	for c := 0; c < channels; c++ {
		// Pre-slice the channel plane; one bounds check per plane.
		plane := sample[c*inD*inH*inW : (c+1)*inD*inH*inW]
		for kd := 0; kd < p.Kernel[0]; kd++ {
			for kh := 0; kh < p.Kernel[1]; kh++ {
				for kw := 0; kw < p.Kernel[2]; kw++ {
					rowBuf := columns[row*outN : (row+1)*outN]
					col := 0
					for od := 0; od < outD; od++ {
						d := od*p.Stride[0] - p.Pad[0] + kd
						for oh := 0; oh < outH; oh++ {
							h := oh*p.Stride[1] - p.Pad[1] + kh
							for ow := 0; ow < outW; ow++ {
								w := ow*p.Stride[2] - p.Pad[2] + kw
								var v T
								if d >= 0 && d < inD && h >= 0 && h < inH && w >= 0 && w < inW {
									v = plane[(d*inH+h)*inW+w]
								}
								rowBuf[col] = v
								col++
							}
						}
					}
					row++
				}
			}
		}
	}
}

func unfold3dAccKernel[T tensor.Float](columns, sample []T, channels int, in, out Dims, p Params) {
	inD, inH, inW := in[0], in[1], in[2]
	outD, outH, outW := out[0], out[1], out[2]
	outN := outD * outH * outW

	row := 0
	for c := 0; c < channels; c++ {
		plane := sample[c*inD*inH*inW : (c+1)*inD*inH*inW]
		for kd := 0; kd < p.Kernel[0]; kd++ {
			for kh := 0; kh < p.Kernel[1]; kh++ {
				for kw := 0; kw < p.Kernel[2]; kw++ {
					rowBuf := columns[row*outN : (row+1)*outN]
					col := 0
					for od := 0; od < outD; od++ {
						d := od*p.Stride[0] - p.Pad[0] + kd
						for oh := 0; oh < outH; oh++ {
							h := oh*p.Stride[1] - p.Pad[1] + kh
							for ow := 0; ow < outW; ow++ {
								w := ow*p.Stride[2] - p.Pad[2] + kw
								if d >= 0 && d < inD && h >= 0 && h < inH && w >= 0 && w < inW {
									plane[(d*inH+h)*inW+w] += rowBuf[col]
								}
								col++
							}
						}
					}
					row++
				}
			}
		}
	}
}
