package tensor

import (
	"fmt"
	"unsafe"
)

// RawTensor is the low-level dense tensor representation: a flat byte
// buffer interpreted through a shape, row-major strides and a runtime
// data type. Views produced by Index share the buffer of their parent.
type RawTensor struct {
	data   []byte
	shape  Shape
	stride []int
	dtype  DataType
	offset int // byte offset into data for views
	view   bool
}

// NewRaw creates a new RawTensor with the given shape and type.
// Memory is allocated and zero-initialized.
func NewRaw(shape Shape, dtype DataType) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}

	byteSize := shape.NumElements() * dtype.Size()

	return &RawTensor{
		data:   make([]byte, byteSize),
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  dtype,
	}, nil
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// Strides returns the tensor's memory strides (in elements).
func (r *RawTensor) Strides() []int {
	return r.stride
}

// DType returns the tensor's data type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// ByteSize returns the total memory size in bytes.
func (r *RawTensor) ByteSize() int {
	return r.NumElements() * r.dtype.Size()
}

// IsContiguous reports whether the tensor's elements are laid out
// densely in row-major order.
func (r *RawTensor) IsContiguous() bool {
	want := r.shape.ComputeStrides()
	for i := range want {
		if r.shape[i] > 1 && r.stride[i] != want[i] {
			return false
		}
	}
	return true
}

// AsFloat32 interprets the data as []float32.
// Panics if the tensor's dtype is not Float32.
func (r *RawTensor) AsFloat32() []float32 {
	if r.dtype != Float32 {
		panic(fmt.Sprintf("tensor dtype is %s, not float32", r.dtype))
	}
	n := r.NumElements()
	if n == 0 {
		return nil
	}
	data := r.data[r.offset:]
	//nolint:gosec // zero-copy view; bounds established by NumElements()
	return unsafe.Slice((*float32)(unsafe.Pointer(&data[0])), n)
}

// AsFloat64 interprets the data as []float64.
// Panics if the tensor's dtype is not Float64.
func (r *RawTensor) AsFloat64() []float64 {
	if r.dtype != Float64 {
		panic(fmt.Sprintf("tensor dtype is %s, not float64", r.dtype))
	}
	n := r.NumElements()
	if n == 0 {
		return nil
	}
	data := r.data[r.offset:]
	//nolint:gosec // zero-copy view; bounds established by NumElements()
	return unsafe.Slice((*float64)(unsafe.Pointer(&data[0])), n)
}

// AsInt64 interprets the data as []int64.
// Panics if the tensor's dtype is not Int64.
func (r *RawTensor) AsInt64() []int64 {
	if r.dtype != Int64 {
		panic(fmt.Sprintf("tensor dtype is %s, not int64", r.dtype))
	}
	n := r.NumElements()
	if n == 0 {
		return nil
	}
	data := r.data[r.offset:]
	//nolint:gosec // zero-copy view; bounds established by NumElements()
	return unsafe.Slice((*int64)(unsafe.Pointer(&data[0])), n)
}

// Index returns a view of the i-th slice along the leading dimension.
// The view shares memory with the parent: shape [N, ...] yields a view
// of shape [...]. Panics if the tensor is 0-D or i is out of bounds.
func (r *RawTensor) Index(i int) *RawTensor {
	if len(r.shape) == 0 {
		panic("index: cannot index a 0-D tensor")
	}
	if i < 0 || i >= r.shape[0] {
		panic(fmt.Sprintf("index %d out of bounds for dimension 0 (size %d)", i, r.shape[0]))
	}
	return &RawTensor{
		data:   r.data,
		shape:  r.shape[1:].Clone(),
		stride: append([]int(nil), r.stride[1:]...),
		dtype:  r.dtype,
		offset: r.offset + i*r.stride[0]*r.dtype.Size(),
		view:   true,
	}
}

// Reshape returns a view with a new shape over the same memory.
// The tensor must be contiguous and the element count must match.
func (r *RawTensor) Reshape(shape Shape) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("reshape: %w", err)
	}
	if shape.NumElements() != r.NumElements() {
		return nil, fmt.Errorf("reshape: cannot view %v (%d elements) as %v (%d elements)",
			r.shape, r.NumElements(), shape, shape.NumElements())
	}
	if !r.IsContiguous() {
		return nil, fmt.Errorf("reshape: tensor %v is not contiguous", r.shape)
	}
	return &RawTensor{
		data:   r.data,
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  r.dtype,
		offset: r.offset,
		view:   true,
	}, nil
}

// Resize changes the tensor's shape in place, reallocating the buffer
// when the byte size changes. The contents after a reallocating resize
// are zero. Views cannot be resized.
func (r *RawTensor) Resize(shape Shape) error {
	if r.view {
		return fmt.Errorf("resize: cannot resize a tensor view")
	}
	if err := shape.Validate(); err != nil {
		return fmt.Errorf("resize: %w", err)
	}
	byteSize := shape.NumElements() * r.dtype.Size()
	if byteSize != len(r.data) {
		r.data = make([]byte, byteSize)
	}
	r.shape = shape.Clone()
	r.stride = shape.ComputeStrides()
	return nil
}

// Zero fills the tensor with zeros.
func (r *RawTensor) Zero() {
	clear(r.data[r.offset : r.offset+r.ByteSize()])
}

// Clone creates a deep copy of the tensor. The copy owns its buffer.
// The source must be contiguous; every tensor this package constructs is.
func (r *RawTensor) Clone() *RawTensor {
	out, err := NewRaw(r.shape, r.dtype)
	if err != nil {
		panic(err) // shape already validated
	}
	copy(out.data, r.data[r.offset:r.offset+r.ByteSize()])
	return out
}

// Contiguous returns the tensor itself when it is already contiguous,
// or a compact row-major copy otherwise.
func (r *RawTensor) Contiguous() *RawTensor {
	if r.IsContiguous() {
		return r
	}
	return r.Clone()
}

// String returns a human-readable representation of the tensor.
func (r *RawTensor) String() string {
	return fmt.Sprintf("RawTensor[%s]%v", r.dtype, r.shape)
}
