// Package cpu implements the CPU kernels over strided views: planar convolution and periodic resampling.
package cpu

import (
	"github.com/born-ml/nnconv/internal/parallel"
	"github.com/born-ml/nnconv/internal/tensor"
)

// Config controls how the CPU backend schedules work.
type Config struct {
	// Parallel drives the fork-join over batch elements in the convolution forward and
	// input-gradient passes.
	Parallel parallel.Config

	// ParallelAccGrad lets PlanarConv2DAccGrad run batch elements in parallel into private
	// partial buffers, reduced afterwards in batch order. Off by default: the sequential pass
	// accumulates straight into the shared gradient tensors.
	ParallelAccGrad bool
}

// DefaultConfig returns one goroutine per batch element (up to NumCPU) and sequential gradient accumulation.
func DefaultConfig() Config {
	return Config{Parallel: parallel.BatchConfig()}
}

// CPUBackend runs the kernels on the calling goroutine plus, for batched passes, a bounded set of workers.
// It holds no tensor state: every call reads and writes only the views it is handed.
type CPUBackend[T tensor.Float] struct {
	cfg Config
}

// New creates a CPU backend with DefaultConfig.
func New[T tensor.Float]() *CPUBackend[T] {
	return NewWithConfig[T](DefaultConfig())
}

// NewWithConfig creates a CPU backend with an explicit configuration.
func NewWithConfig[T tensor.Float](cfg Config) *CPUBackend[T] {
	if cfg.Parallel.NumWorkers <= 0 {
		cfg.Parallel.NumWorkers = 1
	}
	return &CPUBackend[T]{cfg: cfg}
}

// Name returns the backend name.
func (cpu *CPUBackend[T]) Name() string {
	return "CPU"
}

// Config returns the backend configuration.
func (cpu *CPUBackend[T]) Config() Config {
	return cpu.cfg
}
