package main

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/voxel-ml/voxel/conv3d"
	"github.com/voxel-ml/voxel/tensor"
)

type benchOptions struct {
	batch       int
	inChannels  int
	outChannels int
	size        []int
	kernel      []int
	stride      []int
	padding     []int
	dtype       string
	iters       int
	bias        bool
	backward    bool
}

func newBenchCmd() *cobra.Command {
	opts := benchOptions{}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark the conv3d forward/backward kernels on synthetic volumes",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runBench(opts)
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.batch, "batch", 8, "Batch size")
	f.IntVar(&opts.inChannels, "in-channels", 3, "Input channels")
	f.IntVar(&opts.outChannels, "out-channels", 8, "Output channels")
	f.IntSliceVar(&opts.size, "size", []int{16, 16, 16}, "Input volume size D,H,W")
	f.IntSliceVar(&opts.kernel, "kernel", []int{3, 3, 3}, "Kernel size D,H,W")
	f.IntSliceVar(&opts.stride, "stride", []int{1, 1, 1}, "Stride D,H,W")
	f.IntSliceVar(&opts.padding, "padding", []int{0, 0, 0}, "Padding D,H,W")
	f.StringVar(&opts.dtype, "dtype", "float32", "Element type (float32|float64)")
	f.IntVar(&opts.iters, "iters", 10, "Iterations to time")
	f.BoolVar(&opts.bias, "bias", true, "Include a bias term")
	f.BoolVar(&opts.backward, "backward", false, "Also run the backward pass")

	return cmd
}

func toDims(v []int, name string) (conv3d.Dims, error) {
	if len(v) != 3 {
		return conv3d.Dims{}, fmt.Errorf("%s wants 3 values D,H,W, got %v", name, v)
	}
	return conv3d.Dims{v[0], v[1], v[2]}, nil
}

func randomTensor(shape tensor.Shape, dtype tensor.DataType) *tensor.RawTensor {
	t := tensor.Zeros(shape, dtype)
	switch dtype {
	case tensor.Float32:
		data := t.AsFloat32()
		for i := range data {
			data[i] = rand.Float32()*2 - 1
		}
	case tensor.Float64:
		data := t.AsFloat64()
		for i := range data {
			data[i] = rand.Float64()*2 - 1
		}
	}
	return t
}

func runBench(opts benchOptions) error {
	var dtype tensor.DataType
	switch opts.dtype {
	case "float32":
		dtype = tensor.Float32
	case "float64":
		dtype = tensor.Float64
	default:
		return fmt.Errorf("unsupported dtype %q", opts.dtype)
	}

	size, err := toDims(opts.size, "--size")
	if err != nil {
		return err
	}
	kernel, err := toDims(opts.kernel, "--kernel")
	if err != nil {
		return err
	}
	stride, err := toDims(opts.stride, "--stride")
	if err != nil {
		return err
	}
	padding, err := toDims(opts.padding, "--padding")
	if err != nil {
		return err
	}

	input := randomTensor(tensor.Shape{opts.batch, opts.inChannels, size[0], size[1], size[2]}, dtype)
	weight := randomTensor(tensor.Shape{opts.outChannels, opts.inChannels, kernel[0], kernel[1], kernel[2]}, dtype)
	var bias *tensor.RawTensor
	if opts.bias {
		bias = randomTensor(tensor.Shape{opts.outChannels}, dtype)
	}

	slog.Info("bench start",
		"input", input.Shape().String(),
		"weight", weight.Shape().String(),
		"stride", stride.String(),
		"padding", padding.String(),
		"dtype", opts.dtype,
		"iters", opts.iters,
		"backward", opts.backward)

	var output, finput, fgradInput *tensor.RawTensor
	start := time.Now()
	for i := 0; i < opts.iters; i++ {
		output, finput, fgradInput, err = conv3d.Forward(input, weight, kernel, bias, stride, padding)
		if err != nil {
			return err
		}
	}
	forwardAvg := time.Since(start) / time.Duration(opts.iters)
	slog.Info("forward done", "output", output.Shape().String(), "avg", forwardAvg.String())

	if opts.backward {
		gradOutput := randomTensor(output.Shape(), dtype)
		mask := [3]bool{true, true, opts.bias}

		start = time.Now()
		for i := 0; i < opts.iters; i++ {
			if _, _, _, err = conv3d.Backward(gradOutput, input, weight, kernel, stride, padding, finput, fgradInput, mask); err != nil {
				return err
			}
		}
		backwardAvg := time.Since(start) / time.Duration(opts.iters)
		slog.Info("backward done", "avg", backwardAvg.String())
	}

	return nil
}
