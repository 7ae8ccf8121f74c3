package conv3d

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxel-ml/voxel/internal/tensor"
)

// lossForward runs the convolution and returns sum(output), the scalar
// loss the finite-difference checks differentiate.
func lossForward(t *testing.T, input, weight, bias *tensor.RawTensor, p Params) float64 {
	t.Helper()
	output, err := Conv3d(input, weight, p.Kernel, bias, p.Stride, p.Pad)
	require.NoError(t, err)
	var sum float64
	for _, v := range output.AsFloat64() {
		sum += v
	}
	return sum
}

// analyticGrads runs forward then backward with grad_output = ones, so
// the returned gradients are the derivatives of sum(output).
func analyticGrads(t *testing.T, input, weight, bias *tensor.RawTensor, p Params, mask [3]bool) (gi, gw, gb *tensor.RawTensor) {
	t.Helper()
	output, finput, fgradInput, err := Forward(input, weight, p.Kernel, bias, p.Stride, p.Pad)
	require.NoError(t, err)

	gradOutput := tensor.Zeros(output.Shape(), tensor.Float64)
	tensor.Fill(gradOutput, 1)

	gi, gw, gb, err = Backward(gradOutput, input, weight, p.Kernel, p.Stride, p.Pad, finput, fgradInput, mask)
	require.NoError(t, err)
	return gi, gw, gb
}

func fdCheck(t *testing.T, param *tensor.RawTensor, analytic []float64, eval func() float64) {
	t.Helper()
	const eps = 1e-5
	data := param.AsFloat64()
	require.Len(t, analytic, len(data))
	for i := range data {
		orig := data[i]
		data[i] = orig + eps
		plus := eval()
		data[i] = orig - eps
		minus := eval()
		data[i] = orig
		require.InDelta(t, (plus-minus)/(2*eps), analytic[i], 1e-6, "element %d", i)
	}
}

func TestBackward_GradInputFiniteDifference(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	p := Params{Kernel: Dims{2, 2, 2}, Stride: Dims{1, 1, 1}, Pad: Dims{1, 0, 1}}
	input := randomFloat64(t, tensor.Shape{2, 2, 3, 4, 3}, rng)
	weight := randomFloat64(t, tensor.Shape{2, 2, 2, 2, 2}, rng)
	bias := randomFloat64(t, tensor.Shape{2}, rng)

	gi, _, _ := analyticGrads(t, input, weight, bias, p, [3]bool{true, false, false})
	require.NotNil(t, gi)
	require.True(t, gi.Shape().Equal(input.Shape()))

	fdCheck(t, input, gi.AsFloat64(), func() float64 {
		return lossForward(t, input, weight, bias, p)
	})
}

func TestBackward_GradWeightFiniteDifference(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	p := Params{Kernel: Dims{2, 3, 2}, Stride: Dims{2, 1, 1}, Pad: Dims{0, 1, 0}}
	input := randomFloat64(t, tensor.Shape{2, 2, 4, 3, 4}, rng)
	weight := randomFloat64(t, tensor.Shape{3, 2, 2, 3, 2}, rng)

	_, gw, _ := analyticGrads(t, input, weight, nil, p, [3]bool{false, true, false})
	require.NotNil(t, gw)
	require.True(t, gw.Shape().Equal(weight.Shape()))

	fdCheck(t, weight, gw.AsFloat64(), func() float64 {
		return lossForward(t, input, weight, nil, p)
	})
}

func TestBackward_GradBiasFiniteDifference(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	p := Params{Kernel: Dims{2, 2, 2}, Stride: Dims{1, 1, 1}}
	input := randomFloat64(t, tensor.Shape{2, 1, 3, 3, 3}, rng)
	weight := randomFloat64(t, tensor.Shape{2, 1, 2, 2, 2}, rng)
	bias := randomFloat64(t, tensor.Shape{2}, rng)

	_, _, gb := analyticGrads(t, input, weight, bias, p, [3]bool{false, false, true})
	require.NotNil(t, gb)

	fdCheck(t, bias, gb.AsFloat64(), func() float64 {
		return lossForward(t, input, weight, bias, p)
	})
}

func TestBackward_GradBiasExactSum(t *testing.T) {
	// grad_bias is the per-channel sum of grad_output, accumulated
	// sample by sample in row-major spatial order. Replicating that
	// order must reproduce the result bit for bit.
	rng := rand.New(rand.NewSource(19))
	p := Params{Kernel: Dims{2, 2, 2}, Stride: Dims{1, 1, 1}}
	const batch, outC = 3, 4
	input := randomFloat64(t, tensor.Shape{batch, 2, 4, 4, 4}, rng)
	weight := randomFloat64(t, tensor.Shape{outC, 2, 2, 2, 2}, rng)

	output, finput, fgradInput, err := Forward(input, weight, p.Kernel, nil, p.Stride, p.Pad)
	require.NoError(t, err)
	gradOutput := randomFloat64(t, output.Shape(), rng)

	_, _, gb, err := Backward(gradOutput, input, weight, p.Kernel, p.Stride, p.Pad, finput, fgradInput, [3]bool{false, false, true})
	require.NoError(t, err)

	outN := output.NumElements() / (batch * outC)
	want := make([]float64, outC)
	goData := gradOutput.AsFloat64()
	for s := 0; s < batch; s++ {
		for c := 0; c < outC; c++ {
			var sum float64
			base := (s*outC + c) * outN
			for j := 0; j < outN; j++ {
				sum += goData[base+j]
			}
			want[c] += sum
		}
	}
	assert.Equal(t, want, gb.AsFloat64())
}

func TestBackward_OutputMask(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	p := Params{Kernel: Dims{2, 2, 2}, Stride: Dims{1, 1, 1}}
	input := randomFloat64(t, tensor.Shape{1, 1, 3, 3, 3}, rng)
	weight := randomFloat64(t, tensor.Shape{1, 1, 2, 2, 2}, rng)

	output, finput, fgradInput, err := Forward(input, weight, p.Kernel, nil, p.Stride, p.Pad)
	require.NoError(t, err)
	gradOutput := randomFloat64(t, output.Shape(), rng)

	gi, gw, gb, err := Backward(gradOutput, input, weight, p.Kernel, p.Stride, p.Pad, finput, fgradInput, [3]bool{false, true, false})
	require.NoError(t, err)
	assert.Nil(t, gi, "unmasked grad_input must stay nil")
	assert.NotNil(t, gw)
	assert.Nil(t, gb, "unmasked grad_bias must stay nil")
}

func TestBackward_Deterministic(t *testing.T) {
	// A batch large enough for several parallel chunks must still give
	// bit-identical parameter gradients on every run.
	rng := rand.New(rand.NewSource(29))
	p := Params{Kernel: Dims{2, 2, 2}, Stride: Dims{1, 1, 1}}
	const batch = 64
	input := randomFloat64(t, tensor.Shape{batch, 2, 4, 4, 4}, rng)
	weight := randomFloat64(t, tensor.Shape{3, 2, 2, 2, 2}, rng)

	output, finput, fgradInput, err := Forward(input, weight, p.Kernel, nil, p.Stride, p.Pad)
	require.NoError(t, err)
	gradOutput := randomFloat64(t, output.Shape(), rng)

	var firstW, firstB []float64
	for run := 0; run < 3; run++ {
		_, gw, gb, err := Backward(gradOutput, input, weight, p.Kernel, p.Stride, p.Pad, finput, fgradInput, [3]bool{false, true, true})
		require.NoError(t, err)
		if run == 0 {
			firstW = append([]float64(nil), gw.AsFloat64()...)
			firstB = append([]float64(nil), gb.AsFloat64()...)
			continue
		}
		require.Equal(t, firstW, gw.AsFloat64(), "grad_weight differs on run %d", run)
		require.Equal(t, firstB, gb.AsFloat64(), "grad_bias differs on run %d", run)
	}
}

func TestBackwardOut_MissingBuffers(t *testing.T) {
	rng := rand.New(rand.NewSource(31))
	p := Params{Kernel: Dims{2, 2, 2}, Stride: Dims{1, 1, 1}}
	input := randomFloat64(t, tensor.Shape{1, 1, 3, 3, 3}, rng)
	weight := randomFloat64(t, tensor.Shape{1, 1, 2, 2, 2}, rng)

	output, _, _, err := Forward(input, weight, p.Kernel, nil, p.Stride, p.Pad)
	require.NoError(t, err)
	gradOutput := randomFloat64(t, output.Shape(), rng)

	gradInput := tensor.Empty(tensor.Float64)
	err = BackwardOut(gradInput, nil, nil, gradOutput, input, weight, p.Kernel, p.Stride, p.Pad, nil, nil)
	assert.Error(t, err, "grad_input without an fgrad_input buffer")

	gradWeight := tensor.Empty(tensor.Float64)
	err = BackwardOut(nil, gradWeight, nil, gradOutput, input, weight, p.Kernel, p.Stride, p.Pad, nil, nil)
	assert.Error(t, err, "grad_weight without the forward columns")
}

func TestBackward_EmptyBatch(t *testing.T) {
	p := Params{Kernel: Dims{2, 2, 2}, Stride: Dims{1, 1, 1}}
	input := tensor.Zeros(tensor.Shape{0, 2, 4, 4, 4}, tensor.Float64)
	weight := tensor.Zeros(tensor.Shape{3, 2, 2, 2, 2}, tensor.Float64)

	output, finput, fgradInput, err := Forward(input, weight, p.Kernel, nil, p.Stride, p.Pad)
	require.NoError(t, err)
	gradOutput := tensor.Zeros(output.Shape(), tensor.Float64)

	gi, gw, gb, err := Backward(gradOutput, input, weight, p.Kernel, p.Stride, p.Pad, finput, fgradInput, [3]bool{true, true, true})
	require.NoError(t, err)
	require.True(t, gi.Shape().Equal(input.Shape()))
	require.True(t, gw.Shape().Equal(weight.Shape()))
	require.True(t, gb.Shape().Equal(tensor.Shape{3}))
	for _, v := range gw.AsFloat64() {
		assert.Zero(t, v)
	}
}
