package tensor

// Storage is a flat element buffer shared by every View created over it.
// Views aliasing the same Storage observe each other's writes and resizes.
type Storage[T Float] struct {
	data []T
}

// NewStorage allocates a zeroed storage of the given length.
func NewStorage[T Float](size int) *Storage[T] {
	return &Storage[T]{data: make([]T, size)}
}

// StorageFrom wraps an externally owned slice without copying it.
// Only data[:len(data)] is ever addressed: growing the storage moves it to a new slice.
func StorageFrom[T Float](data []T) *Storage[T] {
	return &Storage[T]{data: data[:len(data):len(data)]}
}

// Data returns the backing slice.
// WARNING: Direct access to underlying memory. Use with caution.
func (s *Storage[T]) Data() []T {
	return s.data
}

// Len returns the number of elements in the storage.
func (s *Storage[T]) Len() int {
	return len(s.data)
}

// Grow makes sure the storage holds at least size elements, preserving its contents.
// New elements are zero. A storage that grows gets a fresh slice, so memory past the old
// length is never written.
func (s *Storage[T]) Grow(size int) {
	if size <= len(s.data) {
		return
	}
	grown := make([]T, size)
	copy(grown, s.data)
	s.data = grown
}
