package nn

import (
	"math"
	"math/rand"

	"github.com/voxel-ml/voxel/internal/tensor"
)

// Xavier initializes a tensor with values drawn from the Glorot uniform
// distribution U(-b, b) with b = sqrt(6/(fan_in + fan_out)), which
// keeps activation variance roughly constant across layers.
func Xavier(fanIn, fanOut int, shape tensor.Shape, dtype tensor.DataType) *tensor.RawTensor {
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))

	t := tensor.Zeros(shape, dtype)
	switch dtype {
	case tensor.Float32:
		data := t.AsFloat32()
		for i := range data {
			//nolint:gosec // math/rand is fine for weight initialization
			data[i] = float32((rand.Float64()*2.0 - 1.0) * bound)
		}
	case tensor.Float64:
		data := t.AsFloat64()
		for i := range data {
			//nolint:gosec // math/rand is fine for weight initialization
			data[i] = (rand.Float64()*2.0 - 1.0) * bound
		}
	default:
		panic("xavier: unsupported dtype " + dtype.String())
	}
	return t
}

// Zeros creates a zero-filled tensor; the usual bias initialization.
func Zeros(shape tensor.Shape, dtype tensor.DataType) *tensor.RawTensor {
	return tensor.Zeros(shape, dtype)
}
