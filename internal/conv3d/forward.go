package conv3d

import (
	"fmt"

	"github.com/voxel-ml/voxel/internal/parallel"
	"github.com/voxel-ml/voxel/internal/tensor"
)

// checkFloatDType rejects tensors outside the floating dispatch set.
func checkFloatDType(name string, t *tensor.RawTensor) error {
	if !t.DType().IsFloat() {
		return fmt.Errorf("conv3d: %s has unsupported dtype %s (want float32 or float64)", name, t.DType())
	}
	return nil
}

// ForwardOut computes the 3D convolution of input with weight into
// output, resizing output and the column buffer finput in place.
//
// input:  (batch, inC, inD, inH, inW)
// weight: (outC, inC, kD, kH, kW) or its flattened 2-D form
// bias:   (outC), or nil for no bias term
// output: resized to (batch, outC, outD, outH, outW)
// finput: resized to (batch, inC*kD*kH*kW, outD*outH*outW); holds the
// unfolded input samples and is consumed by the grad-parameter pass.
// fgradInput is untouched here; it is the scratch the backward pass
// fills, returned through so the two calls share one buffer pair.
func ForwardOut(output, finput, fgradInput, input, weight *tensor.RawTensor, kernelSize Dims, bias *tensor.RawTensor, stride, padding Dims) error {
	p := Params{Kernel: kernelSize, Stride: stride, Pad: padding}

	if err := shapeCheck(input, nil, weight, bias, p, false); err != nil {
		return err
	}
	if err := checkFloatDType("input", input); err != nil {
		return err
	}

	in := input.Contiguous()
	weight2d, err := viewWeight2d(weight)
	if err != nil {
		return err
	}

	shape := in.Shape()
	batch, channels := shape[dimBatch], shape[dimPlanes]
	inDims := Dims{shape[dimDepth], shape[dimHeight], shape[dimWidth]}
	outDims := p.OutputSize(inDims)
	nOutputPlane := weight2d.Shape()[0]

	if err := finput.Resize(tensor.Shape{batch, p.ColumnRows(channels), outDims.Numel()}); err != nil {
		return err
	}
	if err := output.Resize(tensor.Shape{batch, nOutputPlane, outDims[0], outDims[1], outDims[2]}); err != nil {
		return err
	}
	if !output.IsContiguous() {
		return layoutErrorf("output must be contiguous")
	}
	if !finput.IsContiguous() {
		return layoutErrorf("finput must be contiguous")
	}
	_ = fgradInput

	parallel.For(0, batch, grainSize, func(start, stop int) {
		for t := start; t < stop; t++ {
			updateOutputFrame(output.Index(t), in.Index(t), weight2d, bias, finput.Index(t),
				channels, inDims, outDims, nOutputPlane, p)
		}
	})

	return nil
}

// updateOutputFrame runs the per-sample forward pipeline:
// unfold -> (bias fill) -> matmul. With bias present the output plane
// is first filled with the per-channel bias scalar and the product is
// accumulated onto it; without bias the product overwrites. That
// ordering fixes the reduction order and must not be swapped.
func updateOutputFrame(outFrame, inFrame, weight2d, bias, finputFrame *tensor.RawTensor,
	channels int, in, out Dims, nOutputPlane int, p Params) {
	unfold3dCopy(finputFrame, inFrame, channels, in, out, p)

	output2d, err := outFrame.Reshape(tensor.Shape{nOutputPlane, out.Numel()})
	if err != nil {
		panic(err) // shape established by ForwardOut
	}

	if bias != nil {
		fillBiasPlanes(output2d, bias)
		err = tensor.Gemm(output2d, weight2d, finputFrame, false, false, 1, 1)
	} else {
		err = tensor.Gemm(output2d, weight2d, finputFrame, false, false, 1, 0)
	}
	if err != nil {
		panic(err)
	}
}

// fillBiasPlanes fills row i of the (outC, outN) output view with the
// scalar bias[i].
func fillBiasPlanes(output2d, bias *tensor.RawTensor) {
	switch output2d.DType() {
	case tensor.Float32:
		fillBiasKernel(output2d.AsFloat32(), bias.AsFloat32())
	case tensor.Float64:
		fillBiasKernel(output2d.AsFloat64(), bias.AsFloat64())
	default:
		panic(fmt.Sprintf("conv3d: unsupported dtype %s", output2d.DType()))
	}
}

func fillBiasKernel[T tensor.Float](out2d, bias []T) {
	if len(bias) == 0 {
		return
	}
	outN := len(out2d) / len(bias)
	for i, b := range bias {
		row := out2d[i*outN : (i+1)*outN]
		for j := range row {
			row[j] = b
		}
	}
}

// Forward is the value-returning variant of ForwardOut: it allocates
// output, finput and fgradInput with the input's dtype and returns
// them. The buffers are owned by the caller and are expected back on
// the matching Backward call.
func Forward(input, weight *tensor.RawTensor, kernelSize Dims, bias *tensor.RawTensor, stride, padding Dims) (output, finput, fgradInput *tensor.RawTensor, err error) {
	output = tensor.Empty(input.DType())
	finput = tensor.Empty(input.DType())
	fgradInput = tensor.Empty(input.DType())
	if err = ForwardOut(output, finput, fgradInput, input, weight, kernelSize, bias, stride, padding); err != nil {
		return nil, nil, nil, err
	}
	return output, finput, fgradInput, nil
}

// Conv3d is the convenience wrapper returning only the convolution
// output.
func Conv3d(input, weight *tensor.RawTensor, kernelSize Dims, bias *tensor.RawTensor, stride, padding Dims) (*tensor.RawTensor, error) {
	output, _, _, err := Forward(input, weight, kernelSize, bias, stride, padding)
	return output, err
}
