package cpu

import (
	"github.com/born-ml/nnconv/internal/parallel"
	"github.com/born-ml/nnconv/internal/tensor"
	"github.com/born-ml/nnconv/internal/vec"
	"k8s.io/klog/v2"
)

// PlanarConvParams holds the configuration and parameter tensors of a planar convolution.
//
// Weight and GradWeight are [planes, KH, KW] views: plane i of the input is convolved with
// Weight[i] and written to output plane i (one kernel per plane, shared across output planes).
// Bias and GradBias are [NOutputPlane] views. Ones is scratch space for the bias gradient,
// resized lazily by PlanarConv2DAccGrad.
type PlanarConvParams[T tensor.Float] struct {
	NInputPlane  int
	NOutputPlane int
	KW, KH       int

	Weight     tensor.View[T]
	Bias       tensor.View[T]
	GradWeight tensor.View[T]
	GradBias   tensor.View[T]
	Ones       *tensor.View[T]
}

// convGeometry is the batch-mode geometry of one convolution call.
type convGeometry struct {
	batched          bool // input arrived as 4D
	batch            int
	planeDim         int // plane dimension in the caller's (unpromoted) views
	inputH, inputW   int
	outputH, outputW int
}

// geometry validates input against the parameters and derives output sizes.
func (p *PlanarConvParams[T]) geometry(op string, input tensor.View[T]) (convGeometry, error) {
	if p.NInputPlane <= 0 || p.NOutputPlane <= 0 || p.KW <= 0 || p.KH <= 0 {
		return convGeometry{}, tensor.PreconditionErrorf(op,
			"nInputPlane=%d, nOutputPlane=%d, kW=%d, kH=%d must all be positive",
			p.NInputPlane, p.NOutputPlane, p.KW, p.KH)
	}
	rank := input.Rank()
	if rank != 3 && rank != 4 {
		return convGeometry{}, tensor.ShapeErrorf(op, "3D or 4D (batch mode) tensor expected, got %dD", rank)
	}
	g := convGeometry{batched: rank == 4, batch: 1, planeDim: rank - 3}
	if g.batched {
		g.batch = input.Size(0)
	}
	if planes := input.Size(g.planeDim); planes != p.NInputPlane {
		return convGeometry{}, tensor.ShapeErrorf(op, "input has %d planes, nInputPlane is %d", planes, p.NInputPlane)
	}
	g.inputH, g.inputW = input.Size(rank-2), input.Size(rank-1)
	if p.KH > g.inputH || p.KW > g.inputW {
		return convGeometry{}, tensor.PreconditionErrorf(op, "kernel %dx%d larger than input %dx%d",
			p.KH, p.KW, g.inputH, g.inputW)
	}
	g.outputH = g.inputH - p.KH + 1
	g.outputW = g.inputW - p.KW + 1
	return g, nil
}

// checkGradOutput validates gradOutput against the geometry derived from input.
func (p *PlanarConvParams[T]) checkGradOutput(op string, g convGeometry, gradOutput tensor.View[T]) error {
	rank := 3
	if g.batched {
		rank = 4
	}
	if gradOutput.Rank() != rank {
		return tensor.ShapeErrorf(op, "gradOutput is %dD, input is %dD", gradOutput.Rank(), rank)
	}
	if planes := gradOutput.Size(g.planeDim); planes != p.NOutputPlane {
		return tensor.ShapeErrorf(op, "number of output features (%d) is not equal to nOutputPlane (%d)",
			planes, p.NOutputPlane)
	}
	if g.batched && gradOutput.Size(0) != g.batch {
		return tensor.ShapeErrorf(op, "gradOutput batch %d, input batch %d", gradOutput.Size(0), g.batch)
	}
	if h, w := gradOutput.Size(rank-2), gradOutput.Size(rank-1); h != g.outputH || w != g.outputW {
		return tensor.ShapeErrorf(op, "gradOutput is %dx%d, expected %dx%d", h, w, g.outputH, g.outputW)
	}
	return nil
}

// checkKernelTensor validates a [>=planes, kH, kW] weight-like view.
func checkKernelTensor[T tensor.Float](op, name string, w tensor.View[T], planes, kH, kW int) error {
	if w.Rank() != 3 {
		return tensor.PreconditionErrorf(op, "%s must be [planes, kH, kW], got shape %v", name, w.Shape())
	}
	if w.Size(0) < planes || w.Size(1) != kH || w.Size(2) != kW {
		return tensor.PreconditionErrorf(op, "%s has shape %v, need at least [%d, %d, %d]",
			name, w.Shape(), planes, kH, kW)
	}
	return nil
}

// checkVector validates a rank-1 view of at least n elements.
func checkVector[T tensor.Float](op, name string, v tensor.View[T], n int) error {
	if v.Rank() != 1 || v.Size(0) < n {
		return tensor.PreconditionErrorf(op, "%s must be a vector of at least %d elements, got shape %v",
			name, n, v.Shape())
	}
	return nil
}

// PlanarConv2D computes the forward pass of the planar convolution (valid, stride 1, no padding).
//
// Input:  [nInputPlane, H, W] or [batch, nInputPlane, H, W]
// Output: [nOutputPlane, H-kH+1, W-kW+1] or [batch, nOutputPlane, H-kH+1, W-kW+1]
//
// output is resized in place and keeps the input's rank. Every output plane starts at its bias;
// plane i then accumulates Weight[i][h][k] * input[i][j+h][k:k+outW] into row j. Batch elements
// run in parallel.
func (cpu *CPUBackend[T]) PlanarConv2D(output *tensor.View[T], input tensor.View[T], p *PlanarConvParams[T]) error {
	const op = "PlanarConv2D"
	g, err := p.geometry(op, input)
	if err != nil {
		return err
	}
	if p.NInputPlane > p.NOutputPlane {
		return tensor.PreconditionErrorf(op, "nInputPlane (%d) exceeds nOutputPlane (%d): plane i writes output plane i",
			p.NInputPlane, p.NOutputPlane)
	}
	if err := checkKernelTensor(op, "weight", p.Weight, p.NInputPlane, p.KH, p.KW); err != nil {
		return err
	}
	if err := checkVector(op, "bias", p.Bias, p.NOutputPlane); err != nil {
		return err
	}

	in := batchView(input)
	output.Resize(g.batch, p.NOutputPlane, g.outputH, g.outputW)
	klog.V(1).Infof("%s: batch=%d planes=%d->%d output=%dx%d parallel=%v",
		op, g.batch, p.NInputPlane, p.NOutputPlane, g.outputH, g.outputW, cpu.cfg.Parallel.IsParallel(g.batch))

	out := *output
	err = forBatch(op, g.batch, cpu.cfg, func(elt int) {
		planarConvForward(out.Select(elt), in.Select(elt), p, g)
	})
	unbatch(output, g.batched)
	return err
}

// planarConvForward processes one batch element: output and input are [planes, rows, cols].
func planarConvForward[T tensor.Float](output, input tensor.View[T], p *PlanarConvParams[T], g convGeometry) {
	outData, inData, wData, bData := output.Data(), input.Data(), p.Weight.Data(), p.Bias.Data()
	outCol, inCol := output.Stride(2), input.Stride(2)

	// Fill biases.
	for i := 0; i < p.NOutputPlane; i++ {
		output.Select(i).Fill(bData[p.Bias.OffsetOf(i)])
	}

	// 2D planar convolution.
	for i := 0; i < p.NInputPlane; i++ {
		for j := 0; j < g.outputH; j++ {
			dst := vec.Strided(outData, output.OffsetOf(i, j), g.outputW, outCol)
			for h := 0; h < p.KH; h++ {
				for k := 0; k < p.KW; k++ {
					w := wData[p.Weight.OffsetOf(i, h, k)]
					src := vec.Strided(inData, input.OffsetOf(i, j+h, k), g.outputW, inCol)
					vec.Axpy(g.outputW, w, src, inCol, dst, outCol)
				}
			}
		}
	}
}

// forBatch runs body once per batch element under the backend's parallel config.
// A panic in any element is reported as a PreconditionError once all elements have finished.
func forBatch(op string, batch int, cfg Config, body func(elt int)) error {
	return parallel.ForErr(batch, func(elt int) error {
		return guard(op, func() { body(elt) })
	}, cfg.Parallel)
}
