package conv3d

import (
	"fmt"

	"github.com/voxel-ml/voxel/internal/parallel"
	"github.com/voxel-ml/voxel/internal/tensor"
)

// BackwardOut populates whichever of gradInput, gradWeight, gradBias
// are non-nil, resizing them in place. finput is the column buffer the
// forward pass produced (required for gradWeight); fgradInput is the
// backward column scratch (required for gradInput). Nil gradient slots
// are not computed.
func BackwardOut(gradInput, gradWeight, gradBias, gradOutput, input, weight *tensor.RawTensor,
	kernelSize, stride, padding Dims, finput, fgradInput *tensor.RawTensor) error {
	p := Params{Kernel: kernelSize, Stride: stride, Pad: padding}

	if gradInput != nil {
		if fgradInput == nil {
			return fmt.Errorf("conv3d: fgrad_input buffer required to compute grad_input")
		}
		if err := backwardGradInput(gradInput, gradOutput, input, weight, p, fgradInput); err != nil {
			return err
		}
	}

	// Gradient accumulation targets only ever add; zero them once here,
	// before any per-sample work.
	if gradWeight != nil {
		if err := gradWeight.Resize(weight.Shape()); err != nil {
			return err
		}
		gradWeight.Zero()
	}
	if gradBias != nil {
		if err := gradBias.Resize(tensor.Shape{gradOutput.Shape()[dimPlanes]}); err != nil {
			return err
		}
		gradBias.Zero()
	}

	if gradWeight != nil || gradBias != nil {
		return backwardParams(gradWeight, gradBias, input, gradOutput, finput, p)
	}
	return nil
}

// backwardGradInput computes the gradient w.r.t. the input: per sample,
// fgrad = weight2dᵗ · gradOutput2d (overwrite), then the fold adjoint
// scatter-adds fgrad back into input space.
func backwardGradInput(gradInput, gradOutput, input, weight *tensor.RawTensor, p Params, fgradInput *tensor.RawTensor) error {
	if err := shapeCheck(input, gradOutput, weight, nil, p, false); err != nil {
		return err
	}
	if err := checkFloatDType("grad_output", gradOutput); err != nil {
		return err
	}

	weight2d, err := viewWeight2d(weight)
	if err != nil {
		return err
	}
	gradOut := gradOutput.Contiguous()

	shape := input.Shape()
	batch, channels := shape[dimBatch], shape[dimPlanes]
	inDims := Dims{shape[dimDepth], shape[dimHeight], shape[dimWidth]}
	outDims := p.OutputSize(inDims)
	outC := gradOut.Shape()[dimPlanes]

	if err := gradInput.Resize(shape); err != nil {
		return err
	}
	if !gradInput.IsContiguous() {
		return layoutErrorf("grad_input must be contiguous")
	}
	if err := fgradInput.Resize(tensor.Shape{batch, p.ColumnRows(channels), outDims.Numel()}); err != nil {
		return err
	}
	if !fgradInput.IsContiguous() {
		return layoutErrorf("fgrad_input must be contiguous")
	}
	fgradInput.Zero()

	parallel.For(0, batch, grainSize, func(start, stop int) {
		for t := start; t < stop; t++ {
			gradOutFrame2d, err := gradOut.Index(t).Reshape(tensor.Shape{outC, outDims.Numel()})
			if err != nil {
				panic(err) // shape established above
			}
			fgradFrame := fgradInput.Index(t)
			if err := tensor.Gemm(fgradFrame, weight2d, gradOutFrame2d, true, false, 1, 0); err != nil {
				panic(err)
			}
			gradInFrame := gradInput.Index(t)
			gradInFrame.Zero()
			unfold3dAcc(fgradFrame, gradInFrame, channels, inDims, outDims, p)
		}
	})

	return nil
}

// Backward is the value-returning variant of BackwardOut. The output
// mask selects which of (grad_input, grad_weight, grad_bias) to
// compute; unselected slots come back nil, never zero-filled.
func Backward(gradOutput, input, weight *tensor.RawTensor, kernelSize, stride, padding Dims,
	finput, fgradInput *tensor.RawTensor, outputMask [3]bool) (gradInput, gradWeight, gradBias *tensor.RawTensor, err error) {
	if outputMask[0] {
		gradInput = tensor.Empty(gradOutput.DType())
		if fgradInput == nil {
			fgradInput = tensor.Empty(gradOutput.DType())
		}
	}
	if outputMask[1] {
		gradWeight = tensor.Empty(gradOutput.DType())
	}
	if outputMask[2] {
		gradBias = tensor.Empty(gradOutput.DType())
	}

	if err := BackwardOut(gradInput, gradWeight, gradBias, gradOutput, input, weight,
		kernelSize, stride, padding, finput, fgradInput); err != nil {
		return nil, nil, nil, err
	}
	return gradInput, gradWeight, gradBias, nil
}
