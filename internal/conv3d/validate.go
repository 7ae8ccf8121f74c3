package conv3d

import (
	"github.com/voxel-ml/voxel/internal/tensor"
)

// Input layout is (batch, channels, depth, height, width).
const (
	dimBatch  = 0
	dimPlanes = 1
	dimDepth  = 2
	dimHeight = 3
	dimWidth  = 4
	inputNdim = 5
)

// checkDimSize verifies that t has rank ndim and extent size along dim.
func checkDimSize(t *tensor.RawTensor, name string, ndim, dim, size int) error {
	shape := t.Shape()
	if len(shape) != ndim || shape[dim] != size {
		return shapeErrorf("expected %s of rank %d with size %d at dimension %d, but got shape %v",
			name, ndim, size, dim, shape)
	}
	return nil
}

// shapeCheck is the precondition gate shared by the forward, grad-input
// and grad-parameter passes. Optional tensors are nil when absent; the
// union of all checks is gated by argument presence. Pure: no buffer is
// read or written beyond shape introspection.
func shapeCheck(input, gradOutput, weight, bias *tensor.RawTensor, p Params, weightOptional bool) error {
	if p.Kernel[0] <= 0 || p.Kernel[1] <= 0 || p.Kernel[2] <= 0 {
		return shapeErrorf("kernel size should be greater than zero, but got: %s (DxHxW)", p.Kernel)
	}
	if p.Stride[0] <= 0 || p.Stride[1] <= 0 || p.Stride[2] <= 0 {
		return shapeErrorf("stride should be greater than zero, but got: %s (DxHxW)", p.Stride)
	}

	if weight != nil {
		wShape := weight.Shape()
		if weight.NumElements() == 0 || (len(wShape) != 2 && len(wShape) != 5) {
			return shapeErrorf("non-empty 2D or 5D weight tensor expected, but got: %v", wShape)
		}
		if bias != nil {
			if err := checkDimSize(bias, "bias", 1, 0, wShape[0]); err != nil {
				return err
			}
		}
	} else if !weightOptional {
		return shapeErrorf("weight tensor is undefined")
	}

	inShape := input.Shape()
	ndim := len(inShape)

	// Allow for empty batch size but not other dimensions.
	validEmpty := ndim == inputNdim && inShape[dimBatch] == 0 &&
		inShape[dimPlanes] != 0 && inShape[dimDepth] != 0 &&
		inShape[dimHeight] != 0 && inShape[dimWidth] != 0

	if (input.NumElements() == 0 && !validEmpty) || ndim != inputNdim {
		return shapeErrorf("non-empty 5D input tensor expected but got: %v", inShape)
	}

	in := Dims{inShape[dimDepth], inShape[dimHeight], inShape[dimWidth]}
	var padded Dims
	for i := 0; i < 3; i++ {
		padded[i] = in[i] + 2*p.Pad[i]
	}

	if padded[0] < p.Kernel[0] || padded[1] < p.Kernel[1] || padded[2] < p.Kernel[2] {
		return shapeErrorf("calculated padded input size per channel: (%s), kernel size: (%s); kernel size can't be greater than actual input size",
			padded, p.Kernel)
	}

	out := p.OutputSize(in)
	if out[0] < 1 || out[1] < 1 || out[2] < 1 {
		return shapeErrorf("given input size per channel: (%s), calculated output size per channel: (%s); output size is too small",
			in, out)
	}

	if weight != nil {
		wShape := weight.Shape()
		nInputPlane := wShape[1]
		if len(wShape) == 2 {
			// 2D weight stores in-features flattened; the inference
			// divides by kH*kW only, preserved from the reference.
			nInputPlane /= p.Kernel[1] * p.Kernel[2]
		}
		if err := checkDimSize(input, "input", ndim, dimPlanes, nInputPlane); err != nil {
			return err
		}
	}

	if gradOutput != nil {
		if weight != nil {
			if err := checkDimSize(gradOutput, "grad_output", ndim, dimPlanes, weight.Shape()[0]); err != nil {
				return err
			}
		} else if bias != nil {
			if bias.NumElements() == 0 {
				return shapeErrorf("non-empty bias tensor expected")
			}
			nOutputPlane := 1
			if len(bias.Shape()) > 0 {
				nOutputPlane = bias.Shape()[0]
			}
			if err := checkDimSize(gradOutput, "grad_output", ndim, dimPlanes, nOutputPlane); err != nil {
				return err
			}
		}
		if err := checkDimSize(gradOutput, "grad_output", ndim, dimDepth, out[0]); err != nil {
			return err
		}
		if err := checkDimSize(gradOutput, "grad_output", ndim, dimHeight, out[1]); err != nil {
			return err
		}
		if err := checkDimSize(gradOutput, "grad_output", ndim, dimWidth, out[2]); err != nil {
			return err
		}
	}

	return nil
}
