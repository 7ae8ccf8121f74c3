package conv3d

import (
	"github.com/voxel-ml/voxel/internal/tensor"
)

// viewWeight2d projects a weight tensor into its 2-D matmul form.
// A 5-D weight (outC, inC, kD, kH, kW) collapses its trailing four
// dimensions to (outC, inC*kD*kH*kW); a 2-D weight passes through.
// Either way the result is contiguous. Used identically for weight and
// grad-weight.
func viewWeight2d(weight *tensor.RawTensor) (*tensor.RawTensor, error) {
	w := weight.Contiguous()
	shape := w.Shape()
	if len(shape) == 5 {
		return w.Reshape(tensor.Shape{shape[0], shape[1] * shape[2] * shape[3] * shape[4]})
	}
	return w, nil
}
