// Package nn implements the operator objects that own the parameter and result tensors of the
// CPU kernels and call them in the right order.
//
// This package provides:
//   - Module interface: forward, input-gradient and parameter-gradient passes
//   - Parameter: a trainable tensor with its accumulated gradient
//   - PlanarConvolution: depthwise 2D convolution with one kernel per plane
//   - SpatialSubSamplingPeriodic / SpatialUpSamplingPeriodic: periodic resampling
//   - Sequential: container chaining modules
//
// Modules keep their output and gradInput tensors between calls and resize them in place, so the
// views they return are overwritten by the next call to the same module.
package nn

import (
	"github.com/born-ml/nnconv/internal/tensor"
	"github.com/pkg/errors"
)

// Module is the base interface for all operator objects.
//
// A training step calls UpdateOutput, then UpdateGradInput and AccGradParameters with the same
// input and the gradient of the loss with respect to the output:
//
//	out, err := conv.UpdateOutput(x)
//	gradIn, err := nn.Backward(conv, x, gradOut, 1)
type Module[T tensor.Float] interface {
	// UpdateOutput computes the output for input. The returned view is owned by the module.
	UpdateOutput(input tensor.View[T]) (tensor.View[T], error)

	// UpdateGradInput computes the gradient with respect to input. The returned view is owned by the module.
	UpdateGradInput(input, gradOutput tensor.View[T]) (tensor.View[T], error)

	// AccGradParameters adds scale times the parameter gradients into each Parameter's Grad.
	// Modules without parameters return nil.
	AccGradParameters(input, gradOutput tensor.View[T], scale T) error

	// Parameters returns all trainable parameters of this module.
	Parameters() []*Parameter[T]

	String() string
}

// Backward runs UpdateGradInput followed by AccGradParameters and returns the input gradient.
func Backward[T tensor.Float](m Module[T], input, gradOutput tensor.View[T], scale T) (tensor.View[T], error) {
	gradInput, err := m.UpdateGradInput(input, gradOutput)
	if err != nil {
		return tensor.View[T]{}, errors.WithMessagef(err, "%s: backward", m)
	}
	if err := m.AccGradParameters(input, gradOutput, scale); err != nil {
		return tensor.View[T]{}, errors.WithMessagef(err, "%s: backward", m)
	}
	return gradInput, nil
}

// ZeroGradParameters clears the accumulated gradient of every parameter of m.
func ZeroGradParameters[T tensor.Float](m Module[T]) {
	for _, p := range m.Parameters() {
		p.ZeroGrad()
	}
}
