// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the pure Go CPU backend of the planar convolution and periodic resampling kernels.
//
// # Overview
//
// This package implements:
//   - Planar (depthwise) 2D convolution: forward, input gradient, parameter gradient accumulation
//   - Periodic subsampling and upsampling of the two trailing dimensions, forward and backward
//   - Float32 and Float64 support through gonum BLAS
//   - 3D inputs and 4D batches, over arbitrarily strided views
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/nnconv/backend/cpu"
//	    "github.com/born-ml/nnconv/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New[float32]()
//
//	    p := &cpu.PlanarConvParams[float32]{
//	        NInputPlane: 3, NOutputPlane: 3, KW: 5, KH: 5,
//	        Weight: tensor.Zeros[float32](3, 5, 5),
//	        Bias:   tensor.Zeros[float32](3),
//	    }
//	    var output tensor.View[float32]
//	    err := backend.PlanarConv2D(&output, input, p)
//	}
//
// # Performance
//
// The convolution forward and input-gradient passes run one goroutine per batch element, bounded
// by Config.Parallel.NumWorkers. Gradient accumulation is sequential unless
// Config.ParallelAccGrad is set.
//
// # Thread Safety
//
// A backend holds no tensor state and may be shared. Concurrent calls must not write the same views.
package cpu
