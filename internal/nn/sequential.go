package nn

import (
	"fmt"
	"strings"

	"github.com/born-ml/nnconv/internal/tensor"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// Sequential is a container module that chains multiple modules together.
//
// Each module's output becomes the next module's input. The backward passes walk the chain in
// reverse, feeding each module the outputs and input gradients recorded by the last
// UpdateOutput and UpdateGradInput calls, so they must follow them with the same input.
//
// Example:
//
//	model := nn.NewSequential[float32](
//	    nn.NewSpatialUpSamplingPeriodic[float32](2, backend),
//	    nn.NewPlanarConvolution[float32](3, 3, 3, 3, backend, rng),
//	)
//	output, err := model.UpdateOutput(input)
//	gradInput, err := nn.Backward[float32](model, input, gradOutput, 1)
type Sequential[T tensor.Float] struct {
	modules    []Module[T]
	outputs    []tensor.View[T]
	gradInputs []tensor.View[T]
}

// NewSequential creates a new Sequential container.
func NewSequential[T tensor.Float](modules ...Module[T]) *Sequential[T] {
	return &Sequential[T]{modules: modules}
}

// Add appends a module to the sequence.
func (s *Sequential[T]) Add(module Module[T]) {
	s.modules = append(s.modules, module)
}

// Len returns the number of modules in the sequence.
func (s *Sequential[T]) Len() int {
	return len(s.modules)
}

// Module returns the module at the given index.
//
// Panics if index is out of bounds.
func (s *Sequential[T]) Module(index int) Module[T] {
	if index < 0 || index >= len(s.modules) {
		exceptions.Panicf("Sequential.Module: index %d out of bounds", index)
	}
	return s.modules[index]
}

// UpdateOutput applies all modules in sequence.
func (s *Sequential[T]) UpdateOutput(input tensor.View[T]) (tensor.View[T], error) {
	s.outputs = s.outputs[:0]
	s.gradInputs = s.gradInputs[:0]
	output := input
	for i, m := range s.modules {
		var err error
		output, err = m.UpdateOutput(output)
		if err != nil {
			return tensor.View[T]{}, errors.WithMessagef(err, "Sequential[%d]", i)
		}
		s.outputs = append(s.outputs, output)
	}
	return output, nil
}

// inputOf returns the input module i saw in the last forward pass.
func (s *Sequential[T]) inputOf(i int, input tensor.View[T]) tensor.View[T] {
	if i == 0 {
		return input
	}
	return s.outputs[i-1]
}

// UpdateGradInput propagates gradOutput back through every module.
func (s *Sequential[T]) UpdateGradInput(input, gradOutput tensor.View[T]) (tensor.View[T], error) {
	n := len(s.modules)
	if len(s.outputs) != n {
		return tensor.View[T]{}, tensor.PreconditionErrorf("Sequential.UpdateGradInput", "UpdateOutput has not run")
	}
	s.gradInputs = make([]tensor.View[T], n)
	grad := gradOutput
	for i := n - 1; i >= 0; i-- {
		var err error
		grad, err = s.modules[i].UpdateGradInput(s.inputOf(i, input), grad)
		if err != nil {
			return tensor.View[T]{}, errors.WithMessagef(err, "Sequential[%d]", i)
		}
		s.gradInputs[i] = grad
	}
	return grad, nil
}

// AccGradParameters accumulates the parameter gradients of every module.
func (s *Sequential[T]) AccGradParameters(input, gradOutput tensor.View[T], scale T) error {
	n := len(s.modules)
	if len(s.outputs) != n || len(s.gradInputs) != n {
		return tensor.PreconditionErrorf("Sequential.AccGradParameters", "UpdateOutput and UpdateGradInput have not run")
	}
	for i := n - 1; i >= 0; i-- {
		grad := gradOutput
		if i < n-1 {
			grad = s.gradInputs[i+1]
		}
		if err := s.modules[i].AccGradParameters(s.inputOf(i, input), grad, scale); err != nil {
			return errors.WithMessagef(err, "Sequential[%d]", i)
		}
	}
	return nil
}

// Parameters returns all trainable parameters from all modules, in module order.
func (s *Sequential[T]) Parameters() []*Parameter[T] {
	var params []*Parameter[T]
	for _, module := range s.modules {
		params = append(params, module.Parameters()...)
	}
	return params
}

func (s *Sequential[T]) String() string {
	var sb strings.Builder
	sb.WriteString("nn.Sequential {")
	for i, m := range s.modules {
		fmt.Fprintf(&sb, "\n  (%d): %s", i+1, m)
	}
	sb.WriteString("\n}")
	return sb.String()
}
