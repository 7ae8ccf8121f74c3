package nn

import (
	"fmt"

	"github.com/voxel-ml/voxel/internal/conv3d"
	"github.com/voxel-ml/voxel/internal/tensor"
)

// Conv3D is a 3D convolutional layer over volumetric inputs.
//
// Input shape:  [batch, in_channels, depth, height, width]
// Weight shape: [out_channels, in_channels, kD, kH, kW]
// Bias shape:   [out_channels]
// Output shape: [batch, out_channels, outD, outH, outW]
//
// Where, per spatial axis:
//
//	out = (in + 2*padding - kernel) / stride + 1
type Conv3D struct {
	inChannels  int
	outChannels int
	kernelSize  conv3d.Dims
	stride      conv3d.Dims
	padding     conv3d.Dims
	useBias     bool

	weight *Parameter
	bias   *Parameter // nil without bias

	// Buffers carried from Forward to Backward.
	input      *tensor.RawTensor
	finput     *tensor.RawTensor
	fgradInput *tensor.RawTensor
}

// NewConv3D creates a 3D convolutional layer with Xavier-initialized
// weights and zero bias.
func NewConv3D(inChannels, outChannels int, kernelSize, stride, padding conv3d.Dims, useBias bool, dtype tensor.DataType) *Conv3D {
	if inChannels <= 0 || outChannels <= 0 {
		panic(fmt.Sprintf("conv3d: invalid channels in=%d, out=%d", inChannels, outChannels))
	}
	for i := 0; i < 3; i++ {
		if kernelSize[i] <= 0 {
			panic(fmt.Sprintf("conv3d: invalid kernel size %s", kernelSize))
		}
		if stride[i] <= 0 {
			panic(fmt.Sprintf("conv3d: invalid stride %s", stride))
		}
		if padding[i] < 0 {
			panic(fmt.Sprintf("conv3d: invalid padding %s", padding))
		}
	}

	kNumel := kernelSize.Numel()
	fanIn := inChannels * kNumel
	fanOut := outChannels * kNumel
	weightShape := tensor.Shape{outChannels, inChannels, kernelSize[0], kernelSize[1], kernelSize[2]}
	weight := NewParameter("conv3d.weight", Xavier(fanIn, fanOut, weightShape, dtype))

	var bias *Parameter
	if useBias {
		bias = NewParameter("conv3d.bias", Zeros(tensor.Shape{outChannels}, dtype))
	}

	return &Conv3D{
		inChannels:  inChannels,
		outChannels: outChannels,
		kernelSize:  kernelSize,
		stride:      stride,
		padding:     padding,
		useBias:     useBias,
		weight:      weight,
		bias:        bias,
	}
}

// Forward runs the convolution and retains the input and column buffers
// for the matching Backward call.
func (c *Conv3D) Forward(input *tensor.RawTensor) (*tensor.RawTensor, error) {
	inputShape := input.Shape()
	if len(inputShape) != 5 {
		return nil, fmt.Errorf("conv3d: expected 5D input [N,C,D,H,W], got %dD", len(inputShape))
	}
	if inputShape[1] != c.inChannels {
		return nil, fmt.Errorf("conv3d: input channels %d != expected %d", inputShape[1], c.inChannels)
	}

	var biasRaw *tensor.RawTensor
	if c.useBias {
		biasRaw = c.bias.Value()
	}

	output, finput, fgradInput, err := conv3d.Forward(input, c.weight.Value(), c.kernelSize, biasRaw, c.stride, c.padding)
	if err != nil {
		return nil, err
	}

	c.input = input
	c.finput = finput
	c.fgradInput = fgradInput
	return output, nil
}

// Backward propagates gradOutput through the layer: it stores the
// weight (and bias) gradients on the parameters and returns the
// gradient w.r.t. the layer input. Forward must have been called first.
func (c *Conv3D) Backward(gradOutput *tensor.RawTensor) (*tensor.RawTensor, error) {
	if c.input == nil {
		return nil, fmt.Errorf("conv3d: Backward called before Forward")
	}

	mask := [3]bool{true, true, c.useBias}
	gradInput, gradWeight, gradBias, err := conv3d.Backward(
		gradOutput, c.input, c.weight.Value(),
		c.kernelSize, c.stride, c.padding,
		c.finput, c.fgradInput, mask)
	if err != nil {
		return nil, err
	}

	c.weight.SetGrad(gradWeight)
	if c.useBias {
		c.bias.SetGrad(gradBias)
	}
	return gradInput, nil
}

// Parameters returns all trainable parameters.
func (c *Conv3D) Parameters() []*Parameter {
	if c.useBias {
		return []*Parameter{c.weight, c.bias}
	}
	return []*Parameter{c.weight}
}

// ZeroGrad clears the parameter gradients.
func (c *Conv3D) ZeroGrad() {
	for _, p := range c.Parameters() {
		p.ZeroGrad()
	}
}

// OutputSize computes the output spatial extents for the given input
// extents.
func (c *Conv3D) OutputSize(in conv3d.Dims) conv3d.Dims {
	p := conv3d.Params{Kernel: c.kernelSize, Stride: c.stride, Pad: c.padding}
	return p.OutputSize(in)
}

// String returns a string representation of the layer.
func (c *Conv3D) String() string {
	return fmt.Sprintf("Conv3D(in_channels=%d, out_channels=%d, kernel_size=(%s), stride=(%s), padding=(%s), bias=%v)",
		c.inChannels, c.outChannels, c.kernelSize, c.stride, c.padding, c.useBias)
}
