package nn

import (
	"github.com/born-ml/nnconv/internal/backend/cpu"
	"github.com/born-ml/nnconv/internal/tensor"
)

// Backend defines the kernels the modules dispatch to.
//
// Implementations:
//   - CPU: *cpu.CPUBackend[T]
type Backend[T tensor.Float] interface {
	Name() string

	// Planar convolution
	PlanarConv2D(output *tensor.View[T], input tensor.View[T], p *cpu.PlanarConvParams[T]) error
	PlanarConv2DInputBackward(gradInput *tensor.View[T], input, gradOutput tensor.View[T], p *cpu.PlanarConvParams[T]) error
	PlanarConv2DAccGrad(input, gradOutput tensor.View[T], scale T, p *cpu.PlanarConvParams[T]) error

	// Periodic resampling
	SubsamplePeriodic(output, input tensor.View[T], p cpu.PeriodicParams) error
	SubsamplePeriodicBackward(gradInput, gradOutput tensor.View[T], p cpu.PeriodicParams) error
	UpsamplePeriodic(output, input tensor.View[T], scale int) error
	UpsamplePeriodicBackward(gradInput, gradOutput tensor.View[T], scale int) error
}

var (
	_ Backend[float32] = (*cpu.CPUBackend[float32])(nil)
	_ Backend[float64] = (*cpu.CPUBackend[float64])(nil)
)
