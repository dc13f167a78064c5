// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"math/rand"

	"github.com/born-ml/nnconv/internal/tensor"
)

// Type aliases for public API

// Float is the constraint for view element types: float32, float64 and types derived from them.
type Float = tensor.Float

// DataType identifies the element type of a view.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
)

// Shape represents the dimensions of a view.
type Shape = tensor.Shape

// View is a strided N-D array over a Storage.
type View[T Float] = tensor.View[T]

// Storage is the flat buffer a View addresses.
type Storage[T Float] = tensor.Storage[T]

// ShapeError reports a rank or dimension mismatch.
type ShapeError = tensor.ShapeError

// PreconditionError reports a violated caller contract.
type PreconditionError = tensor.PreconditionError

// DataTypeOf returns the DataType of T.
func DataTypeOf[T Float]() DataType {
	return tensor.DataTypeOf[T]()
}

// New allocates a zeroed, contiguous view of the given shape.
func New[T Float](shape ...int) View[T] {
	return tensor.New[T](shape...)
}

// FromSlice creates a contiguous view holding a copy of data.
func FromSlice[T Float](data []T, shape ...int) (View[T], error) {
	return tensor.FromSlice(data, shape...)
}

// Wrap creates a contiguous view over data without copying it.
func Wrap[T Float](data []T, shape ...int) (View[T], error) {
	return tensor.Wrap(data, shape...)
}

// NewStorage allocates a zeroed storage of n elements.
func NewStorage[T Float](n int) *Storage[T] {
	return tensor.NewStorage[T](n)
}

// NewView creates a view with explicit shape and strides over storage, starting at offset.
func NewView[T Float](storage *Storage[T], offset int, shape Shape, strides []int) (View[T], error) {
	return tensor.NewView(storage, offset, shape, strides)
}

// Zeros creates a contiguous view filled with zeros.
func Zeros[T Float](shape ...int) View[T] {
	return tensor.Zeros[T](shape...)
}

// Ones creates a contiguous view filled with ones.
func Ones[T Float](shape ...int) View[T] {
	return tensor.Ones[T](shape...)
}

// Full creates a contiguous view filled with value.
func Full[T Float](value T, shape ...int) View[T] {
	return tensor.Full(value, shape...)
}

// Arange creates a contiguous view holding 0, 1, 2, ... in row-major order.
func Arange[T Float](shape ...int) View[T] {
	return tensor.Arange[T](shape...)
}

// Uniform creates a contiguous view with values drawn from U(lo, hi).
func Uniform[T Float](rng *rand.Rand, lo, hi float64, shape ...int) View[T] {
	return tensor.Uniform[T](rng, lo, hi, shape...)
}

// Randn creates a contiguous view with values from N(0, 1).
func Randn[T Float](rng *rand.Rand, shape ...int) View[T] {
	return tensor.Randn[T](rng, shape...)
}

// IsShapeError reports whether err wraps a *ShapeError.
func IsShapeError(err error) bool {
	return tensor.IsShapeError(err)
}

// IsPreconditionError reports whether err wraps a *PreconditionError.
func IsPreconditionError(err error) bool {
	return tensor.IsPreconditionError(err)
}
