// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"math/rand"

	"github.com/born-ml/nnconv/internal/nn"
	"github.com/born-ml/nnconv/tensor"
)

// Module interface defines the common interface for all operator objects.
type Module[T tensor.Float] = nn.Module[T]

// Backend is the set of kernels the modules dispatch to; *cpu.Backend[T] implements it.
type Backend[T tensor.Float] = nn.Backend[T]

// Parameter represents a trainable tensor with its gradient accumulator.
type Parameter[T tensor.Float] = nn.Parameter[T]

// NewParameter creates a new parameter with the given name and value and a zeroed gradient.
func NewParameter[T tensor.Float](name string, value tensor.View[T]) *Parameter[T] {
	return nn.NewParameter(name, value)
}

// Backward runs UpdateGradInput followed by AccGradParameters and returns the input gradient.
func Backward[T tensor.Float](m Module[T], input, gradOutput tensor.View[T], scale T) (tensor.View[T], error) {
	return nn.Backward(m, input, gradOutput, scale)
}

// ZeroGradParameters clears the accumulated gradient of every parameter of m.
func ZeroGradParameters[T tensor.Float](m Module[T]) {
	nn.ZeroGradParameters(m)
}

// Layers

// PlanarConvolution represents a depthwise 2D convolution layer.
type PlanarConvolution[T tensor.Float] = nn.PlanarConvolution[T]

// NewPlanarConvolution creates a planar convolution layer with weight and bias drawn from
// U(-stdv, stdv), stdv = 1/sqrt(kW*kH*nInputPlane). A nil rng uses a time-seeded generator.
//
// Example:
//
//	backend := cpu.New[float32]()
//	conv := nn.NewPlanarConvolution[float32](3, 3, 5, 5, backend, rand.New(rand.NewSource(1)))
func NewPlanarConvolution[T tensor.Float](nInputPlane, nOutputPlane, kW, kH int, backend Backend[T],
	rng *rand.Rand) *PlanarConvolution[T] {
	return nn.NewPlanarConvolution(nInputPlane, nOutputPlane, kW, kH, backend, rng)
}

// SpatialSubSamplingPeriodic represents a periodic subsampling layer.
type SpatialSubSamplingPeriodic[T tensor.Float] = nn.SpatialSubSamplingPeriodic[T]

// NewSpatialSubSamplingPeriodic creates a layer keeping every dW-th column from iW and every dH-th row from iH.
func NewSpatialSubSamplingPeriodic[T tensor.Float](dW, dH, iW, iH int, backend Backend[T]) *SpatialSubSamplingPeriodic[T] {
	return nn.NewSpatialSubSamplingPeriodic(dW, dH, iW, iH, backend)
}

// SpatialUpSamplingPeriodic represents a periodic upsampling layer.
type SpatialUpSamplingPeriodic[T tensor.Float] = nn.SpatialUpSamplingPeriodic[T]

// NewSpatialUpSamplingPeriodic creates a zero-insertion upsampling layer.
func NewSpatialUpSamplingPeriodic[T tensor.Float](scale int, backend Backend[T]) *SpatialUpSamplingPeriodic[T] {
	return nn.NewSpatialUpSamplingPeriodic(scale, backend)
}

// Containers

// Sequential represents a container chaining modules.
type Sequential[T tensor.Float] = nn.Sequential[T]

// NewSequential creates a new Sequential container.
func NewSequential[T tensor.Float](modules ...Module[T]) *Sequential[T] {
	return nn.NewSequential(modules...)
}
