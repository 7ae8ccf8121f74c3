// Copyright 2026 Voxel ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	internaltensor "github.com/voxel-ml/voxel/internal/tensor"
)

// Shape represents the dimensions of a tensor.
type Shape = internaltensor.Shape

// RawTensor is the dense tensor representation.
type RawTensor = internaltensor.RawTensor

// DataType represents runtime type information for tensors.
type DataType = internaltensor.DataType

// Float is the constraint over floating-point element kinds.
type Float = internaltensor.Float

// Supported data types.
const (
	Float32 = internaltensor.Float32
	Float64 = internaltensor.Float64
	Int64   = internaltensor.Int64
	Bool    = internaltensor.Bool
)

// NewRaw creates a new zero-initialized tensor.
func NewRaw(shape Shape, dtype DataType) (*RawTensor, error) {
	return internaltensor.NewRaw(shape, dtype)
}

// Zeros creates a zero-filled tensor with the given shape and type.
func Zeros(shape Shape, dtype DataType) *RawTensor {
	return internaltensor.Zeros(shape, dtype)
}

// Empty creates a 0-element placeholder tensor of the given type.
func Empty(dtype DataType) *RawTensor {
	return internaltensor.Empty(dtype)
}

// FromSlice creates a tensor from a Go slice, copying the data.
func FromSlice[T Float](data []T, shape Shape) (*RawTensor, error) {
	return internaltensor.FromSlice(data, shape)
}

// Fill sets every element of a floating-point tensor to v.
func Fill(t *RawTensor, v float64) {
	internaltensor.Fill(t, v)
}

// Gemm computes C = beta*C + alpha*op(A)·op(B) for 2-D tensors.
func Gemm(c, a, b *RawTensor, transA, transB bool, alpha, beta float64) error {
	return internaltensor.Gemm(c, a, b, transA, transB, alpha, beta)
}
