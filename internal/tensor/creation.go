package tensor

import "fmt"

// Zeros creates a zero-filled tensor with the given shape and type.
func Zeros(shape Shape, dtype DataType) *RawTensor {
	t, err := NewRaw(shape, dtype)
	if err != nil {
		panic(fmt.Sprintf("zeros: %v", err))
	}
	return t
}

// Empty creates a 0-element placeholder tensor of the given type.
// Operator "out" variants resize it to the result shape.
func Empty(dtype DataType) *RawTensor {
	t, err := NewRaw(Shape{0}, dtype)
	if err != nil {
		panic(fmt.Sprintf("empty: %v", err))
	}
	return t
}

// FromSlice creates a tensor from a Go slice.
// The slice is copied into the tensor's memory.
func FromSlice[T Float](data []T, shape Shape) (*RawTensor, error) {
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d",
			shape, shape.NumElements(), len(data))
	}

	var dummy T
	raw, err := NewRaw(shape, inferDataType(dummy))
	if err != nil {
		return nil, err
	}

	switch dst := any(data).(type) {
	case []float32:
		copy(raw.AsFloat32(), dst)
	case []float64:
		copy(raw.AsFloat64(), dst)
	}
	return raw, nil
}

// Fill sets every element of a floating-point tensor to v.
// Panics if the dtype is not a floating kind.
func Fill(t *RawTensor, v float64) {
	switch t.DType() {
	case Float32:
		data := t.AsFloat32()
		f := float32(v)
		for i := range data {
			data[i] = f
		}
	case Float64:
		data := t.AsFloat64()
		for i := range data {
			data[i] = v
		}
	default:
		panic(fmt.Sprintf("fill: unsupported dtype %s", t.DType()))
	}
}
