package conv3d

import "fmt"

// ShapeError reports a precondition violation detected by the shape
// validator: which check failed and the offending dimensions. It is the
// only error kind the validator produces, and it is raised before any
// buffer is mutated.
type ShapeError struct {
	Msg string
}

func (e *ShapeError) Error() string {
	return "conv3d: " + e.Msg
}

func shapeErrorf(format string, args ...any) *ShapeError {
	return &ShapeError{Msg: fmt.Sprintf(format, args...)}
}

// LayoutError reports a non-contiguous buffer where a contiguous one is
// required. It signals a caller contract violation, not a recoverable
// condition.
type LayoutError struct {
	Msg string
}

func (e *LayoutError) Error() string {
	return "conv3d: " + e.Msg
}

func layoutErrorf(format string, args ...any) *LayoutError {
	return &LayoutError{Msg: fmt.Sprintf(format, args...)}
}
