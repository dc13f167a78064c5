// Package tensor provides the strided view types the kernels operate on.
package tensor

import (
	"unsafe"

	"golang.org/x/exp/constraints"
)

// Float is the constraint for view element types.
type Float interface {
	constraints.Float
}

// DataType represents runtime type information for views.
type DataType int

// Supported data types.
const (
	Float32 DataType = iota
	Float64
)

// Size returns the byte size of the data type.
func (dt DataType) Size() int {
	switch dt {
	case Float32:
		return 4
	case Float64:
		return 8
	default:
		panic("unknown data type")
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	default:
		return "unknown"
	}
}

// DataTypeOf infers the DataType of T. Named float types report their underlying width.
func DataTypeOf[T Float]() DataType {
	var dummy T
	if unsafe.Sizeof(dummy) == 4 {
		return Float32
	}
	return Float64
}
