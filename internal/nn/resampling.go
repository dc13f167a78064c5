package nn

import (
	"fmt"

	"github.com/born-ml/nnconv/internal/backend/cpu"
	"github.com/born-ml/nnconv/internal/tensor"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// SpatialSubSamplingPeriodic keeps every dW-th column starting at iW and every dH-th row
// starting at iH of the two trailing dimensions. It has no learnable parameters.
//
// Input shape:  [..., height, width] with 3 to 5 dimensions
// Output shape: [..., ceil((height-iH)/dH), ceil((width-iW)/dW)]
//
// Example:
//
//	sub := nn.NewSpatialSubSamplingPeriodic[float32](2, 2, 0, 0, backend)
//	output, err := sub.UpdateOutput(input) // [8, 3, 14, 14] for a [8, 3, 28, 28] input
type SpatialSubSamplingPeriodic[T tensor.Float] struct {
	dW, dH int
	iW, iH int

	output    tensor.View[T]
	gradInput tensor.View[T]

	backend Backend[T]
}

// NewSpatialSubSamplingPeriodic creates a periodic subsampling layer.
//
// Panics if a stride is not positive or an offset is negative.
func NewSpatialSubSamplingPeriodic[T tensor.Float](dW, dH, iW, iH int, backend Backend[T]) *SpatialSubSamplingPeriodic[T] {
	if dW <= 0 || dH <= 0 {
		exceptions.Panicf("nn.SpatialSubSamplingPeriodic: invalid stride w=%d, h=%d", dW, dH)
	}
	if iW < 0 || iH < 0 {
		exceptions.Panicf("nn.SpatialSubSamplingPeriodic: invalid offset w=%d, h=%d", iW, iH)
	}
	return &SpatialSubSamplingPeriodic[T]{dW: dW, dH: dH, iW: iW, iH: iH, backend: backend}
}

func (s *SpatialSubSamplingPeriodic[T]) params() cpu.PeriodicParams {
	return cpu.PeriodicParams{DW: s.dW, DH: s.dH, IW: s.iW, IH: s.iH}
}

// ComputeOutputSize computes output spatial dimensions for given input size.
//
// Returns: [out_height, out_width].
func (s *SpatialSubSamplingPeriodic[T]) ComputeOutputSize(inputH, inputW int) [2]int {
	return [2]int{ceilDiv(inputH-s.iH, s.dH), ceilDiv(inputW-s.iW, s.dW)}
}

// UpdateOutput performs the forward pass.
func (s *SpatialSubSamplingPeriodic[T]) UpdateOutput(input tensor.View[T]) (tensor.View[T], error) {
	const op = "nn.SpatialSubSamplingPeriodic"
	if err := checkSpatialRank(op, input); err != nil {
		return tensor.View[T]{}, err
	}
	rank := input.Rank()
	size := s.ComputeOutputSize(input.Size(rank-2), input.Size(rank-1))
	if size[0] < 1 || size[1] < 1 {
		return tensor.View[T]{}, tensor.PreconditionErrorf(op, "input %v too small for offsets (%d, %d)",
			input.Shape(), s.iH, s.iW)
	}
	output := s.output
	output.Resize(spatialShape(input.Shape(), size)...)
	if err := s.backend.SubsamplePeriodic(output, input, s.params()); err != nil {
		return tensor.View[T]{}, errors.WithMessagef(err, "%s", s)
	}
	s.output = output
	return s.output, nil
}

// UpdateGradInput computes the gradient with respect to input.
// gradOutput must have the shape UpdateOutput produces for input.
func (s *SpatialSubSamplingPeriodic[T]) UpdateGradInput(input, gradOutput tensor.View[T]) (tensor.View[T], error) {
	const op = "nn.SpatialSubSamplingPeriodic.UpdateGradInput"
	if err := checkGradOutput(op, input, gradOutput, s.ComputeOutputSize); err != nil {
		return tensor.View[T]{}, err
	}
	gradInput := s.gradInput
	gradInput.ResizeAs(input)
	if err := s.backend.SubsamplePeriodicBackward(gradInput, gradOutput, s.params()); err != nil {
		return tensor.View[T]{}, errors.WithMessagef(err, "%s", s)
	}
	s.gradInput = gradInput
	return s.gradInput, nil
}

// AccGradParameters is a no-op: the layer has no parameters.
func (s *SpatialSubSamplingPeriodic[T]) AccGradParameters(input, gradOutput tensor.View[T], scale T) error {
	return nil
}

// Parameters returns an empty slice.
func (s *SpatialSubSamplingPeriodic[T]) Parameters() []*Parameter[T] {
	return nil
}

func (s *SpatialSubSamplingPeriodic[T]) String() string {
	return fmt.Sprintf("nn.SpatialSubSamplingPeriodic(%dx%d, offset %d,%d)", s.dW, s.dH, s.iW, s.iH)
}

// SpatialUpSamplingPeriodic scales the two trailing dimensions by an integer factor, copying each
// input element to the top-left corner of its scale x scale block and zero-filling the rest.
// It has no learnable parameters.
//
// Input shape:  [..., height, width] with 3 to 5 dimensions
// Output shape: [..., height*scale, width*scale]
type SpatialUpSamplingPeriodic[T tensor.Float] struct {
	scale int

	output    tensor.View[T]
	gradInput tensor.View[T]

	backend Backend[T]
}

// NewSpatialUpSamplingPeriodic creates a periodic upsampling layer.
//
// Panics if scale is not positive.
func NewSpatialUpSamplingPeriodic[T tensor.Float](scale int, backend Backend[T]) *SpatialUpSamplingPeriodic[T] {
	if scale <= 0 {
		exceptions.Panicf("nn.SpatialUpSamplingPeriodic: invalid scale factor %d", scale)
	}
	return &SpatialUpSamplingPeriodic[T]{scale: scale, backend: backend}
}

// ComputeOutputSize computes output spatial dimensions for given input size.
//
// Returns: [out_height, out_width].
func (u *SpatialUpSamplingPeriodic[T]) ComputeOutputSize(inputH, inputW int) [2]int {
	return [2]int{inputH * u.scale, inputW * u.scale}
}

// UpdateOutput performs the forward pass.
func (u *SpatialUpSamplingPeriodic[T]) UpdateOutput(input tensor.View[T]) (tensor.View[T], error) {
	if err := checkSpatialRank("nn.SpatialUpSamplingPeriodic", input); err != nil {
		return tensor.View[T]{}, err
	}
	rank := input.Rank()
	size := u.ComputeOutputSize(input.Size(rank-2), input.Size(rank-1))
	output := u.output
	output.Resize(spatialShape(input.Shape(), size)...)
	if err := u.backend.UpsamplePeriodic(output, input, u.scale); err != nil {
		return tensor.View[T]{}, errors.WithMessagef(err, "%s", u)
	}
	u.output = output
	return u.output, nil
}

// UpdateGradInput computes the gradient with respect to input.
// gradOutput must have the shape UpdateOutput produces for input.
func (u *SpatialUpSamplingPeriodic[T]) UpdateGradInput(input, gradOutput tensor.View[T]) (tensor.View[T], error) {
	const op = "nn.SpatialUpSamplingPeriodic.UpdateGradInput"
	if err := checkGradOutput(op, input, gradOutput, u.ComputeOutputSize); err != nil {
		return tensor.View[T]{}, err
	}
	gradInput := u.gradInput
	gradInput.ResizeAs(input)
	if err := u.backend.UpsamplePeriodicBackward(gradInput, gradOutput, u.scale); err != nil {
		return tensor.View[T]{}, errors.WithMessagef(err, "%s", u)
	}
	u.gradInput = gradInput
	return u.gradInput, nil
}

// AccGradParameters is a no-op: the layer has no parameters.
func (u *SpatialUpSamplingPeriodic[T]) AccGradParameters(input, gradOutput tensor.View[T], scale T) error {
	return nil
}

// Parameters returns an empty slice.
func (u *SpatialUpSamplingPeriodic[T]) Parameters() []*Parameter[T] {
	return nil
}

func (u *SpatialUpSamplingPeriodic[T]) String() string {
	return fmt.Sprintf("nn.SpatialUpSamplingPeriodic(%d)", u.scale)
}

func checkSpatialRank[T tensor.Float](op string, input tensor.View[T]) error {
	if r := input.Rank(); r < 3 || r > 5 {
		return tensor.ShapeErrorf(op, "3D, 4D or 5D tensor expected, got %dD", r)
	}
	return nil
}

// checkGradOutput validates the ranks of input and gradOutput and that gradOutput has the
// shape outputSize gives for input.
func checkGradOutput[T tensor.Float](op string, input, gradOutput tensor.View[T], outputSize func(h, w int) [2]int) error {
	if err := checkSpatialRank(op, input); err != nil {
		return err
	}
	rank := input.Rank()
	want := tensor.Shape(spatialShape(input.Shape(), outputSize(input.Size(rank-2), input.Size(rank-1))))
	if !gradOutput.Shape().Equal(want) {
		return tensor.ShapeErrorf(op, "gradOutput has shape %v, expected %v", gradOutput.Shape(), want)
	}
	return nil
}

// spatialShape replaces the two trailing dimensions of shape with size.
func spatialShape(shape tensor.Shape, size [2]int) []int {
	out := shape.Clone()
	out[len(out)-2], out[len(out)-1] = size[0], size[1]
	return out
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
