package nn

import (
	"fmt"

	"github.com/born-ml/nnconv/internal/tensor"
)

// Parameter represents a trainable tensor together with its gradient accumulator.
//
// The gradient has the shape of the value and starts at zero. Kernels add into it; nothing
// resets it except ZeroGrad.
//
// Example:
//
//	weight := nn.NewParameter("weight", tensor.New[float32](4, 3, 3))
//	w := weight.Value()
//	g := weight.Grad() // accumulated by AccGradParameters
type Parameter[T tensor.Float] struct {
	name  string         // Parameter name (e.g., "weight", "bias")
	value tensor.View[T] // The parameter tensor
	grad  tensor.View[T] // Gradient accumulator, same shape as value
}

// NewParameter creates a parameter over value with a zeroed gradient.
func NewParameter[T tensor.Float](name string, value tensor.View[T]) *Parameter[T] {
	return &Parameter[T]{
		name:  name,
		value: value,
		grad:  tensor.New[T](value.Shape()...),
	}
}

// Name returns the parameter name.
func (p *Parameter[T]) Name() string {
	return p.name
}

// Value returns the parameter tensor.
func (p *Parameter[T]) Value() tensor.View[T] {
	return p.value
}

// Grad returns the gradient accumulator.
func (p *Parameter[T]) Grad() tensor.View[T] {
	return p.grad
}

// ZeroGrad sets the gradient to zero.
//
// This should be called before each training iteration to avoid
// accumulating gradients from previous iterations.
func (p *Parameter[T]) ZeroGrad() {
	p.grad.Zero()
}

// NumElements returns the number of scalars in the parameter.
func (p *Parameter[T]) NumElements() int {
	return p.value.NumElements()
}

func (p *Parameter[T]) String() string {
	return fmt.Sprintf("%s%v", p.name, p.value.Shape())
}
