// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides strided N-D views over flat storage, the data type of every nnconv kernel.
//
// # Overview
//
// A View describes an array by per-dimension sizes and strides plus a base offset into a shared
// Storage. This package provides:
//   - Generic views over float32 and float64 (View[T])
//   - Zero-copy sub-views (Select, Unsqueeze0, Reinterpret2D, NewView)
//   - In-place resizing of result handles (Resize, ResizeAs)
//   - Typed errors (ShapeError, PreconditionError)
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/nnconv/tensor"
//	)
//
//	func main() {
//	    x := tensor.Arange[float32](2, 3, 4)
//	    plane := x.Select(1)            // [3, 4] view of the second plane
//	    col, err := tensor.NewView(x.Storage(), 1, tensor.Shape{6}, []int{4})
//	}
//
// # Strided Views
//
// Views never copy on their own. Two views may address the same storage; writes through one are
// visible through the other. Only New, FromSlice and the creation helpers allocate.
//
// # Errors
//
// Operations that receive inconsistent shapes return a *ShapeError; violated preconditions (out of
// bounds views, non-positive sizes) return a *PreconditionError. Both carry a stack trace and are
// matched with errors.As, or with IsShapeError / IsPreconditionError.
package tensor
