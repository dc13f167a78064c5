package tensor

import (
	"fmt"

	"github.com/born-ml/nnconv/internal/vec"
	"github.com/gomlx/exceptions"
)

// View describes an N-D array over a flat Storage by per-dimension sizes and strides plus a base offset.
//
// Views are values: Select, Unsqueeze0 and Reinterpret2D build new descriptors over the same storage,
// so non-contiguous sub-arrays are addressed without copying. The zero View has no storage.
//
// Example:
//
//	v := tensor.New[float64](2, 3, 4)
//	plane := v.Select(1)          // [3, 4], offset 12
//	x := plane.At(2, 1)           // same element as v.At(1, 2, 1)
type View[T Float] struct {
	storage *Storage[T]
	shape   Shape
	strides []int
	offset  int
}

// New allocates a zeroed, contiguous view of the given shape.
// It panics if a dimension is not positive.
func New[T Float](shape ...int) View[T] {
	s := Shape(shape).Clone()
	if err := s.Validate(); err != nil {
		exceptions.Panicf("tensor.New: %v", err)
	}
	return View[T]{
		storage: NewStorage[T](s.NumElements()),
		shape:   s,
		strides: s.ComputeStrides(),
	}
}

// FromSlice creates a contiguous view holding a copy of data.
func FromSlice[T Float](data []T, shape ...int) (View[T], error) {
	return Wrap(append([]T(nil), data...), shape...)
}

// Wrap creates a contiguous view over data without copying it. The caller keeps ownership of data.
func Wrap[T Float](data []T, shape ...int) (View[T], error) {
	s := Shape(shape).Clone()
	if err := s.Validate(); err != nil {
		return View[T]{}, PreconditionErrorf("tensor.Wrap", "%v", err)
	}
	if s.NumElements() != len(data) {
		return View[T]{}, PreconditionErrorf("tensor.Wrap", "shape %v requires %d elements, but got %d",
			s, s.NumElements(), len(data))
	}
	return View[T]{storage: StorageFrom(data), shape: s, strides: s.ComputeStrides()}, nil
}

// NewView creates a view with explicit shape and strides over storage, starting at offset.
//
// Every element reachable through the view must lie inside the storage.
func NewView[T Float](storage *Storage[T], offset int, shape Shape, strides []int) (View[T], error) {
	const op = "tensor.NewView"
	if storage == nil {
		return View[T]{}, PreconditionErrorf(op, "nil storage")
	}
	if len(shape) != len(strides) {
		return View[T]{}, PreconditionErrorf(op, "rank mismatch: %d sizes, %d strides", len(shape), len(strides))
	}
	if err := shape.Validate(); err != nil {
		return View[T]{}, PreconditionErrorf(op, "%v", err)
	}
	v := View[T]{storage: storage, shape: shape.Clone(), strides: append([]int(nil), strides...), offset: offset}
	lo, hi := v.span()
	if lo < 0 || hi >= storage.Len() {
		return View[T]{}, PreconditionErrorf(op, "view %v/%v at offset %d reaches [%d, %d], storage has %d elements",
			shape, strides, offset, lo, hi, storage.Len())
	}
	return v, nil
}

// span returns the lowest and highest storage offsets reachable through the view.
func (v View[T]) span() (lo, hi int) {
	lo, hi = v.offset, v.offset
	for d, size := range v.shape {
		ext := (size - 1) * v.strides[d]
		if ext > 0 {
			hi += ext
		} else {
			lo += ext
		}
	}
	return lo, hi
}

// IsNil reports whether the view has no storage.
func (v View[T]) IsNil() bool {
	return v.storage == nil
}

// Storage returns the storage the view addresses.
func (v View[T]) Storage() *Storage[T] {
	return v.storage
}

// Data returns the whole backing slice of the storage (not only the view's elements).
// Element index must be computed with OffsetOf.
func (v View[T]) Data() []T {
	return v.storage.data
}

// Shape returns the view's dimensions.
func (v View[T]) Shape() Shape {
	return v.shape
}

// Strides returns the view's per-dimension strides, in elements.
func (v View[T]) Strides() []int {
	return v.strides
}

// Offset returns the storage offset of the view's first element.
func (v View[T]) Offset() int {
	return v.offset
}

// Rank returns the number of dimensions.
func (v View[T]) Rank() int {
	return len(v.shape)
}

// Size returns the size of dimension d.
func (v View[T]) Size(d int) int {
	return v.shape[d]
}

// Stride returns the stride of dimension d.
func (v View[T]) Stride(d int) int {
	return v.strides[d]
}

// NumElements returns the total number of elements.
func (v View[T]) NumElements() int {
	return v.shape.NumElements()
}

// OffsetOf returns offset + sum(index[d] * strides[d]).
// No bounds checking is performed: out-of-range indices are a caller bug.
func (v View[T]) OffsetOf(index ...int) int {
	off := v.offset
	for d, i := range index {
		off += i * v.strides[d]
	}
	return off
}

func (v View[T]) checkIndex(op string, index []int) {
	if len(index) != len(v.shape) {
		exceptions.Panicf("%s: got %d indices for a rank-%d view", op, len(index), len(v.shape))
	}
	for d, i := range index {
		if i < 0 || i >= v.shape[d] {
			exceptions.Panicf("%s: index %v out of range for shape %v", op, index, v.shape)
		}
	}
}

// At returns the element at index. It panics if index is out of range.
func (v View[T]) At(index ...int) T {
	v.checkIndex("tensor.View.At", index)
	return v.storage.data[v.OffsetOf(index...)]
}

// Set stores value at index. It panics if index is out of range.
func (v View[T]) Set(value T, index ...int) {
	v.checkIndex("tensor.View.Set", index)
	v.storage.data[v.OffsetOf(index...)] = value
}

// Select drops dimension 0, fixing it at index.
func (v View[T]) Select(index int) View[T] {
	if len(v.shape) == 0 {
		exceptions.Panicf("tensor.View.Select: cannot select on a scalar view")
	}
	if index < 0 || index >= v.shape[0] {
		exceptions.Panicf("tensor.View.Select: index %d out of range for dimension of size %d", index, v.shape[0])
	}
	return View[T]{
		storage: v.storage,
		shape:   v.shape[1:].Clone(),
		strides: append([]int(nil), v.strides[1:]...),
		offset:  v.offset + index*v.strides[0],
	}
}

// Unsqueeze0 returns the view with a new leading dimension of size 1 (batch mode).
func (v View[T]) Unsqueeze0() View[T] {
	lead := 1
	if len(v.shape) > 0 {
		lead = v.shape[0] * v.strides[0]
	}
	return View[T]{
		storage: v.storage,
		shape:   append(Shape{1}, v.shape...),
		strides: append([]int{lead}, v.strides...),
		offset:  v.offset,
	}
}

// Reinterpret2D builds a rows x cols view with the given strides over the same storage and offset.
func (v View[T]) Reinterpret2D(rows, rowStride, cols, colStride int) (View[T], error) {
	return NewView(v.storage, v.offset, Shape{rows, cols}, []int{rowStride, colStride})
}

// Resize gives the view a contiguous layout of the given shape, keeping its storage and offset.
// The storage grows when it is too small; existing contents are not rearranged. A grown storage
// moves to a fresh slice, so a view made by Wrap stops aliasing the caller's data.
func (v *View[T]) Resize(shape ...int) {
	s := Shape(shape).Clone()
	if err := s.Validate(); err != nil {
		exceptions.Panicf("tensor.View.Resize: %v", err)
	}
	need := v.offset + s.NumElements()
	if v.storage == nil {
		v.storage = NewStorage[T](need)
	} else {
		v.storage.Grow(need)
	}
	v.shape = s
	v.strides = s.ComputeStrides()
}

// ResizeAs resizes the view to other's shape.
func (v *View[T]) ResizeAs(other View[T]) {
	v.Resize(other.shape...)
}

// SameShape reports whether both views have identical dimensions.
func (v View[T]) SameShape(other View[T]) bool {
	return v.shape.Equal(other.shape)
}

// IsContiguous reports whether the view has row-major strides.
func (v View[T]) IsContiguous() bool {
	expected := 1
	for d := len(v.shape) - 1; d >= 0; d-- {
		if v.shape[d] != 1 && v.strides[d] != expected {
			return false
		}
		expected *= v.shape[d]
	}
	return true
}

// forEachRow calls fn with the storage offset of every innermost row, together with the
// row length and stride. A scalar view is a single row of length 1.
func (v View[T]) forEachRow(fn func(off, n, inc int)) {
	rank := len(v.shape)
	if rank == 0 {
		fn(v.offset, 1, 1)
		return
	}
	n, inc := v.shape[rank-1], v.strides[rank-1]
	ForEachIndex(v.shape[:rank-1], func(index []int) {
		fn(v.OffsetOf(index...), n, inc)
	})
}

// Fill sets every element of the view to value.
func (v View[T]) Fill(value T) {
	data := v.storage.data
	v.forEachRow(func(off, n, inc int) {
		vec.Fill(n, vec.Strided(data, off, n, inc), inc, value)
	})
}

// Zero sets every element of the view to 0.
func (v View[T]) Zero() {
	v.Fill(0)
}

// ToSlice returns a row-major copy of the view's elements.
func (v View[T]) ToSlice() []T {
	data := v.storage.data
	out := make([]T, 0, v.NumElements())
	v.forEachRow(func(off, n, inc int) {
		for i := 0; i < n; i++ {
			out = append(out, data[off+i*inc])
		}
	})
	return out
}

// CopyFrom copies src into the view element by element. Shapes must match.
func (v View[T]) CopyFrom(src View[T]) error {
	if !v.SameShape(src) {
		return ShapeErrorf("tensor.View.CopyFrom", "destination %v, source %v", v.shape, src.shape)
	}
	values := src.ToSlice()
	data := v.storage.data
	k := 0
	v.forEachRow(func(off, n, inc int) {
		for i := 0; i < n; i++ {
			data[off+i*inc] = values[k]
			k++
		}
	})
	return nil
}

// String returns a short description of the view's layout.
func (v View[T]) String() string {
	return fmt.Sprintf("View[%s](shape=%v, strides=%v, offset=%d)", DataTypeOf[T](), v.shape, v.strides, v.offset)
}
