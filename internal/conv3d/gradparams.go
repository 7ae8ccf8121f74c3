package conv3d

import (
	"fmt"

	"github.com/voxel-ml/voxel/internal/parallel"
	"github.com/voxel-ml/voxel/internal/tensor"
)

// backwardParams accumulates the parameter gradients over the batch:
// grad_weight2d += gradOutput2d · finputᵗ per sample, and grad_bias[i]
// += the row-major sum of gradOutput channel i. Each parallel chunk
// sums into its own partial accumulator; the partials are then reduced
// into the shared targets in ascending chunk order, so the floating
// summation order is fixed regardless of scheduling.
func backwardParams(gradWeight, gradBias, input, gradOutput, finput *tensor.RawTensor, p Params) error {
	if err := shapeCheck(input, gradOutput, gradWeight, gradBias, p, true); err != nil {
		return err
	}
	if err := checkFloatDType("grad_output", gradOutput); err != nil {
		return err
	}

	var gradWeight2d *tensor.RawTensor
	if gradWeight != nil {
		if !gradWeight.IsContiguous() {
			return layoutErrorf("grad_weight must be contiguous")
		}
		if finput == nil {
			return fmt.Errorf("conv3d: finput (forward columns) required to compute grad_weight")
		}
		var err error
		if gradWeight2d, err = viewWeight2d(gradWeight); err != nil {
			return err
		}
	}
	if gradBias != nil && !gradBias.IsContiguous() {
		return layoutErrorf("grad_bias must be contiguous")
	}

	gradOut := gradOutput.Contiguous()
	goShape := gradOut.Shape()
	batch := input.Shape()[dimBatch]
	outC := goShape[dimPlanes]
	outN := goShape[dimDepth] * goShape[dimHeight] * goShape[dimWidth]
	dtype := gradOut.DType()

	nChunks := len(parallel.Ranges(0, batch, grainSize))
	partWeight := make([]*tensor.RawTensor, nChunks)
	partBias := make([]*tensor.RawTensor, nChunks)

	parallel.ForChunk(0, batch, grainSize, func(chunk, start, stop int) {
		var pw, pb *tensor.RawTensor
		if gradWeight2d != nil {
			pw = tensor.Zeros(gradWeight2d.Shape(), dtype)
		}
		if gradBias != nil {
			pb = tensor.Zeros(gradBias.Shape(), dtype)
		}

		for t := start; t < stop; t++ {
			gradOutFrame2d, err := gradOut.Index(t).Reshape(tensor.Shape{outC, outN})
			if err != nil {
				panic(err) // shape established by the validator
			}
			if pw != nil {
				if err := tensor.Gemm(pw, gradOutFrame2d, finput.Index(t), false, true, 1, 1); err != nil {
					panic(err)
				}
			}
			if pb != nil {
				accumulateBiasGrad(pb, gradOutFrame2d)
			}
		}

		partWeight[chunk], partBias[chunk] = pw, pb
	})

	for chunk := 0; chunk < nChunks; chunk++ {
		if gradWeight2d != nil {
			addInto(gradWeight2d, partWeight[chunk])
		}
		if gradBias != nil {
			addInto(gradBias, partBias[chunk])
		}
	}
	return nil
}

// accumulateBiasGrad adds, per output channel, the sum of one sample's
// grad-output over its spatial positions (row-major order).
func accumulateBiasGrad(gradBias, gradOut2d *tensor.RawTensor) {
	switch gradOut2d.DType() {
	case tensor.Float32:
		accumulateBiasKernel(gradBias.AsFloat32(), gradOut2d.AsFloat32())
	case tensor.Float64:
		accumulateBiasKernel(gradBias.AsFloat64(), gradOut2d.AsFloat64())
	default:
		panic(fmt.Sprintf("conv3d: unsupported dtype %s", gradOut2d.DType()))
	}
}

func accumulateBiasKernel[T tensor.Float](gradBias, gradOut2d []T) {
	if len(gradBias) == 0 {
		return
	}
	outN := len(gradOut2d) / len(gradBias)
	for i := range gradBias {
		var sum T
		row := gradOut2d[i*outN : (i+1)*outN]
		for _, v := range row {
			sum += v
		}
		gradBias[i] += sum
	}
}

// addInto accumulates src into dst elementwise. Both must share shape
// and dtype; they do by construction.
func addInto(dst, src *tensor.RawTensor) {
	switch dst.DType() {
	case tensor.Float32:
		addKernel(dst.AsFloat32(), src.AsFloat32())
	case tensor.Float64:
		addKernel(dst.AsFloat64(), src.AsFloat64())
	default:
		panic(fmt.Sprintf("conv3d: unsupported dtype %s", dst.DType()))
	}
}

func addKernel[T tensor.Float](dst, src []T) {
	for i := range dst {
		dst[i] += src[i]
	}
}
