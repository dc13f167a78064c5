// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the operator objects built on the nnconv kernels.
//
// # Overview
//
// Every module owns its parameters and its output and gradInput tensors, and implements three passes:
//   - UpdateOutput: forward computation
//   - UpdateGradInput: gradient with respect to the input
//   - AccGradParameters: scaled accumulation of parameter gradients
//
// Available modules:
//   - PlanarConvolution: depthwise 2D convolution, one kernel per plane plus a bias per output plane
//   - SpatialSubSamplingPeriodic: keep every d-th row and column from an offset
//   - SpatialUpSamplingPeriodic: zero-insertion upsampling by an integer factor
//   - Sequential: container chaining modules
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/nnconv/backend/cpu"
//	    "github.com/born-ml/nnconv/nn"
//	    "github.com/born-ml/nnconv/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New[float32]()
//	    conv := nn.NewPlanarConvolution[float32](3, 3, 5, 5, backend, nil)
//
//	    output, err := conv.UpdateOutput(input)
//	    // ... compute gradOutput from output ...
//	    gradInput, err := nn.Backward[float32](conv, input, gradOutput, 1)
//	    nn.ZeroGradParameters[float32](conv)
//	}
package nn
