package conv3d

import (
	"errors"
	"testing"

	"github.com/voxel-ml/voxel/internal/tensor"
)

var unitParams = Params{Kernel: Dims{2, 2, 2}, Stride: Dims{1, 1, 1}, Pad: Dims{0, 0, 0}}

func wantShapeError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected a ShapeError, got nil")
	}
	var se *ShapeError
	if !errors.As(err, &se) {
		t.Fatalf("expected a ShapeError, got %T: %v", err, err)
	}
}

func TestShapeCheck_Valid(t *testing.T) {
	input := tensor.Zeros(tensor.Shape{2, 3, 4, 4, 4}, tensor.Float32)
	weight := tensor.Zeros(tensor.Shape{5, 3, 2, 2, 2}, tensor.Float32)
	bias := tensor.Zeros(tensor.Shape{5}, tensor.Float32)

	if err := shapeCheck(input, nil, weight, bias, unitParams, false); err != nil {
		t.Errorf("valid shapes rejected: %v", err)
	}
}

func TestShapeCheck_KernelNotPositive(t *testing.T) {
	input := tensor.Zeros(tensor.Shape{1, 1, 4, 4, 4}, tensor.Float32)
	weight := tensor.Zeros(tensor.Shape{1, 1, 2, 2, 2}, tensor.Float32)

	p := unitParams
	p.Kernel = Dims{2, 0, 2}
	wantShapeError(t, shapeCheck(input, nil, weight, nil, p, false))

	p.Kernel = Dims{-1, 2, 2}
	wantShapeError(t, shapeCheck(input, nil, weight, nil, p, false))
}

func TestShapeCheck_StrideNotPositive(t *testing.T) {
	input := tensor.Zeros(tensor.Shape{1, 1, 4, 4, 4}, tensor.Float32)
	weight := tensor.Zeros(tensor.Shape{1, 1, 2, 2, 2}, tensor.Float32)

	p := unitParams
	p.Stride = Dims{1, 1, 0}
	wantShapeError(t, shapeCheck(input, nil, weight, nil, p, false))
}

func TestShapeCheck_WeightRank(t *testing.T) {
	input := tensor.Zeros(tensor.Shape{1, 1, 4, 4, 4}, tensor.Float32)

	weight3d := tensor.Zeros(tensor.Shape{1, 1, 8}, tensor.Float32)
	wantShapeError(t, shapeCheck(input, nil, weight3d, nil, unitParams, false))
}

func TestShapeCheck_WeightAbsence(t *testing.T) {
	input := tensor.Zeros(tensor.Shape{1, 1, 4, 4, 4}, tensor.Float32)

	// Absent weight is only legal when the caller allows it.
	wantShapeError(t, shapeCheck(input, nil, nil, nil, unitParams, false))
	if err := shapeCheck(input, nil, nil, nil, unitParams, true); err != nil {
		t.Errorf("weight_optional=true should permit absent weight: %v", err)
	}
}

func TestShapeCheck_BiasLengthMismatch(t *testing.T) {
	input := tensor.Zeros(tensor.Shape{1, 3, 4, 4, 4}, tensor.Float32)
	weight := tensor.Zeros(tensor.Shape{5, 3, 2, 2, 2}, tensor.Float32)
	bias := tensor.Zeros(tensor.Shape{4}, tensor.Float32)

	wantShapeError(t, shapeCheck(input, nil, weight, bias, unitParams, false))
}

func TestShapeCheck_InputRank(t *testing.T) {
	weight := tensor.Zeros(tensor.Shape{1, 1, 2, 2, 2}, tensor.Float32)

	input4d := tensor.Zeros(tensor.Shape{1, 4, 4, 4}, tensor.Float32)
	wantShapeError(t, shapeCheck(input4d, nil, weight, nil, unitParams, false))
}

func TestShapeCheck_EmptyBatchAllowed(t *testing.T) {
	weight := tensor.Zeros(tensor.Shape{2, 1, 2, 2, 2}, tensor.Float32)

	empty := tensor.Zeros(tensor.Shape{0, 1, 4, 4, 4}, tensor.Float32)
	if err := shapeCheck(empty, nil, weight, nil, unitParams, false); err != nil {
		t.Errorf("empty batch should be legal: %v", err)
	}
}

func TestShapeCheck_OtherZeroDimsRejected(t *testing.T) {
	weight := tensor.Zeros(tensor.Shape{2, 1, 2, 2, 2}, tensor.Float32)

	// Zero channels with a non-zero batch is not the empty-batch
	// carve-out and must fail.
	zeroChans := tensor.Zeros(tensor.Shape{1, 0, 4, 4, 4}, tensor.Float32)
	wantShapeError(t, shapeCheck(zeroChans, nil, weight, nil, unitParams, false))

	// Zero batch together with a zero spatial dim fails too.
	zeroBoth := tensor.Zeros(tensor.Shape{0, 1, 0, 4, 4}, tensor.Float32)
	wantShapeError(t, shapeCheck(zeroBoth, nil, weight, nil, unitParams, false))
}

func TestShapeCheck_PaddedSmallerThanKernel(t *testing.T) {
	input := tensor.Zeros(tensor.Shape{1, 1, 1, 4, 4}, tensor.Float32)
	weight := tensor.Zeros(tensor.Shape{1, 1, 2, 2, 2}, tensor.Float32)

	wantShapeError(t, shapeCheck(input, nil, weight, nil, unitParams, false))

	// Padding can make the same input legal.
	p := unitParams
	p.Pad = Dims{1, 0, 0}
	if err := shapeCheck(input, nil, weight, nil, p, false); err != nil {
		t.Errorf("padded input should be legal: %v", err)
	}
}

func TestShapeCheck_ChannelMismatch(t *testing.T) {
	input := tensor.Zeros(tensor.Shape{1, 4, 4, 4, 4}, tensor.Float32)
	weight := tensor.Zeros(tensor.Shape{2, 3, 2, 2, 2}, tensor.Float32)

	wantShapeError(t, shapeCheck(input, nil, weight, nil, unitParams, false))
}

func TestShapeCheck_Weight2DInference(t *testing.T) {
	// 2D weight infers in-channels by dividing the flattened in-feature
	// count by kH*kW. With kernel (1, 2, 2) a (out=2, 3*1*2*2) weight
	// pairs with 3 input channels.
	p := Params{Kernel: Dims{1, 2, 2}, Stride: Dims{1, 1, 1}}
	weight2d := tensor.Zeros(tensor.Shape{2, 12}, tensor.Float32)

	ok := tensor.Zeros(tensor.Shape{1, 3, 4, 4, 4}, tensor.Float32)
	if err := shapeCheck(ok, nil, weight2d, nil, p, false); err != nil {
		t.Errorf("2D weight with matching channels rejected: %v", err)
	}

	bad := tensor.Zeros(tensor.Shape{1, 4, 4, 4, 4}, tensor.Float32)
	wantShapeError(t, shapeCheck(bad, nil, weight2d, nil, p, false))
}

func TestShapeCheck_GradOutput(t *testing.T) {
	input := tensor.Zeros(tensor.Shape{1, 1, 4, 4, 4}, tensor.Float32)
	weight := tensor.Zeros(tensor.Shape{2, 1, 2, 2, 2}, tensor.Float32)

	good := tensor.Zeros(tensor.Shape{1, 2, 3, 3, 3}, tensor.Float32)
	if err := shapeCheck(input, good, weight, nil, unitParams, false); err != nil {
		t.Errorf("matching grad_output rejected: %v", err)
	}

	wrongChannels := tensor.Zeros(tensor.Shape{1, 3, 3, 3, 3}, tensor.Float32)
	wantShapeError(t, shapeCheck(input, wrongChannels, weight, nil, unitParams, false))

	wrongSpatial := tensor.Zeros(tensor.Shape{1, 2, 3, 3, 2}, tensor.Float32)
	wantShapeError(t, shapeCheck(input, wrongSpatial, weight, nil, unitParams, false))
}

func TestShapeCheck_GradOutputAgainstBias(t *testing.T) {
	// With weight absent, the output-channel count comes from the bias.
	input := tensor.Zeros(tensor.Shape{1, 1, 4, 4, 4}, tensor.Float32)
	bias := tensor.Zeros(tensor.Shape{2}, tensor.Float32)

	good := tensor.Zeros(tensor.Shape{1, 2, 3, 3, 3}, tensor.Float32)
	if err := shapeCheck(input, good, nil, bias, unitParams, true); err != nil {
		t.Errorf("grad_output matching bias rejected: %v", err)
	}

	bad := tensor.Zeros(tensor.Shape{1, 3, 3, 3, 3}, tensor.Float32)
	wantShapeError(t, shapeCheck(input, bad, nil, bias, unitParams, true))
}

func TestOutputSize_Formula(t *testing.T) {
	for _, tc := range []struct {
		in, kernel, stride, pad, want Dims
	}{
		{Dims{4, 4, 4}, Dims{2, 2, 2}, Dims{1, 1, 1}, Dims{0, 0, 0}, Dims{3, 3, 3}},
		{Dims{5, 6, 7}, Dims{3, 3, 3}, Dims{2, 2, 2}, Dims{1, 1, 1}, Dims{3, 3, 4}},
		{Dims{8, 8, 8}, Dims{3, 3, 3}, Dims{3, 3, 3}, Dims{0, 0, 0}, Dims{2, 2, 2}},
		{Dims{4, 4, 4}, Dims{4, 4, 4}, Dims{1, 1, 1}, Dims{0, 0, 0}, Dims{1, 1, 1}},
	} {
		p := Params{Kernel: tc.kernel, Stride: tc.stride, Pad: tc.pad}
		if got := p.OutputSize(tc.in); got != tc.want {
			t.Errorf("OutputSize(%v, k=%v s=%v p=%v) = %v, want %v",
				tc.in, tc.kernel, tc.stride, tc.pad, got, tc.want)
		}
	}
}

func TestDivRTN(t *testing.T) {
	for _, tc := range []struct{ x, y, want int }{
		{7, 2, 3},
		{-7, 2, -4},
		{6, 3, 2},
		{-6, 3, -2},
		{0, 5, 0},
	} {
		if got := divRTN(tc.x, tc.y); got != tc.want {
			t.Errorf("divRTN(%d, %d) = %d, want %d", tc.x, tc.y, got, tc.want)
		}
	}
}
