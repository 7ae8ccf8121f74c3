// Package nn provides layer modules over the volumetric convolution
// kernels.
package nn

import (
	"github.com/voxel-ml/voxel/internal/tensor"
)

// Parameter represents a trainable parameter of a layer: a value tensor
// plus the gradient the most recent backward pass produced.
type Parameter struct {
	name  string
	value *tensor.RawTensor
	grad  *tensor.RawTensor
}

// NewParameter creates a new trainable parameter.
// The value tensor should be initialized before wrapping it.
func NewParameter(name string, value *tensor.RawTensor) *Parameter {
	return &Parameter{
		name:  name,
		value: value,
	}
}

// Name returns the parameter name.
func (p *Parameter) Name() string {
	return p.name
}

// Value returns the parameter tensor.
func (p *Parameter) Value() *tensor.RawTensor {
	return p.value
}

// Grad returns the gradient tensor, or nil before the first backward
// pass.
func (p *Parameter) Grad() *tensor.RawTensor {
	return p.grad
}

// SetGrad sets the gradient tensor.
func (p *Parameter) SetGrad(grad *tensor.RawTensor) {
	p.grad = grad
}

// ZeroGrad clears the gradient tensor. Call before each training
// iteration to avoid mixing gradients from previous iterations.
func (p *Parameter) ZeroGrad() {
	p.grad = nil
}
