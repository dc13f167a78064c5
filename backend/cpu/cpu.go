// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	internalcpu "github.com/born-ml/nnconv/internal/backend/cpu"
	"github.com/born-ml/nnconv/internal/parallel"
	"github.com/born-ml/nnconv/tensor"
)

// Backend represents the CPU backend implementation.
type Backend[T tensor.Float] = internalcpu.CPUBackend[T]

// Config controls how the CPU backend schedules work.
type Config = internalcpu.Config

// ParallelConfig controls the fork-join over batch elements.
type ParallelConfig = parallel.Config

// PlanarConvParams holds the configuration and parameter tensors of a planar convolution.
type PlanarConvParams[T tensor.Float] = internalcpu.PlanarConvParams[T]

// PeriodicParams configures periodic subsampling.
type PeriodicParams = internalcpu.PeriodicParams

// New creates a new CPU backend with DefaultConfig.
//
// Example:
//
//	backend := cpu.New[float64]()
func New[T tensor.Float]() *Backend[T] {
	return internalcpu.New[T]()
}

// NewWithConfig creates a CPU backend with an explicit configuration.
func NewWithConfig[T tensor.Float](cfg Config) *Backend[T] {
	return internalcpu.NewWithConfig[T](cfg)
}

// DefaultConfig returns one goroutine per batch element (up to NumCPU) and sequential gradient accumulation.
func DefaultConfig() Config {
	return internalcpu.DefaultConfig()
}

// SequentialConfig returns a configuration that runs everything on the calling goroutine.
func SequentialConfig() Config {
	return Config{Parallel: parallel.Sequential()}
}
