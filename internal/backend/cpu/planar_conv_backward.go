package cpu

import (
	"github.com/born-ml/nnconv/internal/tensor"
	"github.com/born-ml/nnconv/internal/vec"
	"github.com/gomlx/exceptions"
	"k8s.io/klog/v2"
)

// PlanarConv2DInputBackward computes the gradient of the planar convolution with respect to its input.
//
// gradInput is resized to input's shape and zeroed; then for every output plane i, output row j and
// kernel position (h, k): gradInput[i][j+h][k:k+outW] += Weight[i][h][k] * gradOutput[i][j][:].
// This is the adjoint of PlanarConv2D without the bias term.
func (cpu *CPUBackend[T]) PlanarConv2DInputBackward(gradInput *tensor.View[T], input, gradOutput tensor.View[T],
	p *PlanarConvParams[T]) error {
	const op = "PlanarConv2DInputBackward"
	g, err := p.geometry(op, input)
	if err != nil {
		return err
	}
	if err := p.checkGradOutput(op, g, gradOutput); err != nil {
		return err
	}
	if p.NOutputPlane > p.NInputPlane {
		return tensor.PreconditionErrorf(op, "nOutputPlane (%d) exceeds nInputPlane (%d): output plane i scatters into input plane i",
			p.NOutputPlane, p.NInputPlane)
	}
	if err := checkKernelTensor(op, "weight", p.Weight, p.NOutputPlane, p.KH, p.KW); err != nil {
		return err
	}

	gout := batchView(gradOutput)
	gradInput.Resize(g.batch, p.NInputPlane, g.inputH, g.inputW)
	gradInput.Zero()
	klog.V(1).Infof("%s: batch=%d planes=%d output=%dx%d parallel=%v",
		op, g.batch, p.NOutputPlane, g.outputH, g.outputW, cpu.cfg.Parallel.IsParallel(g.batch))

	gin := *gradInput
	err = forBatch(op, g.batch, cpu.cfg, func(elt int) {
		planarConvInputBackward(gin.Select(elt), gout.Select(elt), p, g)
	})
	unbatch(gradInput, g.batched)
	return err
}

// planarConvInputBackward processes one batch element.
func planarConvInputBackward[T tensor.Float](gradInput, gradOutput tensor.View[T], p *PlanarConvParams[T], g convGeometry) {
	ginData, goutData, wData := gradInput.Data(), gradOutput.Data(), p.Weight.Data()
	ginCol, goutCol := gradInput.Stride(2), gradOutput.Stride(2)

	for i := 0; i < p.NOutputPlane; i++ {
		for j := 0; j < g.outputH; j++ {
			src := vec.Strided(goutData, gradOutput.OffsetOf(i, j), g.outputW, goutCol)
			for h := 0; h < p.KH; h++ {
				for k := 0; k < p.KW; k++ {
					w := wData[p.Weight.OffsetOf(i, h, k)]
					dst := vec.Strided(ginData, gradInput.OffsetOf(i, j+h, k), g.outputW, ginCol)
					vec.Axpy(g.outputW, w, src, goutCol, dst, ginCol)
				}
			}
		}
	}
}

// PlanarConv2DAccGrad accumulates the parameter gradients of the planar convolution, scaled by scale,
// into GradWeight and GradBias. Nothing is overwritten.
//
//	GradWeight[i][h][k] += scale * sum_j dot(gradOutput[i][j][:], input[i][j+h][k:k+outW])
//	GradBias[i]         += scale * sum(gradOutput[i])
//
// The bias term is a matrix-vector product of gradOutput seen as [nOutputPlane, outH*outW] with
// Ones, which is resized and refilled only when it is shorter than outH*outW. Each batch element
// reduces its own gradOutput slice. THNN's kernel took the 2D view at gradOutput's storage offset
// for every element, summing element 0 batch-size times; that is not reproduced.
//
// Batch elements are accumulated one after the other unless Config.ParallelAccGrad is set, in which
// case each element fills a private partial buffer and the partials are added in batch order.
func (cpu *CPUBackend[T]) PlanarConv2DAccGrad(input, gradOutput tensor.View[T], scale T, p *PlanarConvParams[T]) error {
	const op = "PlanarConv2DAccGrad"
	g, err := p.geometry(op, input)
	if err != nil {
		return err
	}
	if err := p.checkGradOutput(op, g, gradOutput); err != nil {
		return err
	}
	if p.NOutputPlane > p.NInputPlane {
		return tensor.PreconditionErrorf(op, "nOutputPlane (%d) exceeds nInputPlane (%d): output plane i reads input plane i",
			p.NOutputPlane, p.NInputPlane)
	}
	if err := checkKernelTensor(op, "gradWeight", p.GradWeight, p.NOutputPlane, p.KH, p.KW); err != nil {
		return err
	}
	if err := checkVector(op, "gradBias", p.GradBias, p.NOutputPlane); err != nil {
		return err
	}

	in, gout := batchView(input), batchView(gradOutput)
	ones := p.ensureOnes(g.outputH * g.outputW)

	if cpu.cfg.ParallelAccGrad && cpu.cfg.Parallel.IsParallel(g.batch) {
		klog.V(1).Infof("%s: batch=%d planes=%d reduced over %d workers",
			op, g.batch, p.NOutputPlane, cpu.cfg.Parallel.NumWorkers)
		return cpu.accGradReduced(op, in, gout, scale, p, g, ones)
	}
	klog.V(1).Infof("%s: batch=%d planes=%d sequential", op, g.batch, p.NOutputPlane)
	return guard(op, func() {
		for elt := 0; elt < g.batch; elt++ {
			planarConvAccGrad(in.Select(elt), gout.Select(elt), scale, p.GradWeight, p.GradBias, ones, p, g)
		}
	})
}

// ensureOnes returns a rank-1 view of n ones, resizing p.Ones first when it is too short.
// A nil p.Ones gets a buffer private to this call.
func (p *PlanarConvParams[T]) ensureOnes(n int) tensor.View[T] {
	ones := p.Ones
	if ones == nil {
		ones = new(tensor.View[T])
	}
	if ones.IsNil() || ones.Rank() != 1 || ones.Size(0) < n {
		klog.V(2).Infof("planar convolution: resizing ones buffer to %d", n)
		ones.Resize(n)
		ones.Fill(1)
	}
	return *ones
}

// accGradReduced runs the batch elements in parallel, each into its own zeroed
// [nOutputPlane*kH*kW + nOutputPlane] partial buffer, then adds the partials in batch order.
func (cpu *CPUBackend[T]) accGradReduced(op string, in, gout tensor.View[T], scale T, p *PlanarConvParams[T],
	g convGeometry, ones tensor.View[T]) error {
	weightSize := p.NOutputPlane * p.KH * p.KW
	partialSize := weightSize + p.NOutputPlane
	partials := make([]T, g.batch*partialSize)

	err := forBatch(op, g.batch, cpu.cfg, func(elt int) {
		buf := partials[elt*partialSize : (elt+1)*partialSize]
		gw, err := tensor.Wrap(buf[:weightSize], p.NOutputPlane, p.KH, p.KW)
		if err != nil {
			exceptions.Panicf("%v", err)
		}
		gb, err := tensor.Wrap(buf[weightSize:], p.NOutputPlane)
		if err != nil {
			exceptions.Panicf("%v", err)
		}
		planarConvAccGrad(in.Select(elt), gout.Select(elt), scale, gw, gb, ones, p, g)
	})
	if err != nil {
		return err
	}

	return guard(op, func() {
		gwData, gbData := p.GradWeight.Data(), p.GradBias.Data()
		gwCol := p.GradWeight.Stride(2)
		for elt := 0; elt < g.batch; elt++ {
			buf := partials[elt*partialSize : (elt+1)*partialSize]
			for i := 0; i < p.NOutputPlane; i++ {
				for h := 0; h < p.KH; h++ {
					row := buf[(i*p.KH+h)*p.KW:]
					vec.Axpy(p.KW, 1, row, 1, vec.Strided(gwData, p.GradWeight.OffsetOf(i, h), p.KW, gwCol), gwCol)
				}
			}
			gbInc := p.GradBias.Stride(0)
			vec.Axpy(p.NOutputPlane, 1, buf[weightSize:], 1,
				vec.Strided(gbData, p.GradBias.Offset(), p.NOutputPlane, gbInc), gbInc)
		}
	})
}

// planarConvAccGrad accumulates the gradients of one batch element into gradWeight and gradBias.
func planarConvAccGrad[T tensor.Float](input, gradOutput tensor.View[T], scale T, gradWeight, gradBias, ones tensor.View[T],
	p *PlanarConvParams[T], g convGeometry) {
	inData, goutData, gwData := input.Data(), gradOutput.Data(), gradWeight.Data()
	inCol, goutCol := input.Stride(2), gradOutput.Stride(2)

	// Gradient to kernel.
	for i := 0; i < p.NOutputPlane; i++ {
		for h := 0; h < p.KH; h++ {
			for k := 0; k < p.KW; k++ {
				idx := gradWeight.OffsetOf(i, h, k)
				for j := 0; j < g.outputH; j++ {
					gwData[idx] += scale * vec.Dot(g.outputW,
						vec.Strided(goutData, gradOutput.OffsetOf(i, j), g.outputW, goutCol), goutCol,
						vec.Strided(inData, input.OffsetOf(i, j+h, k), g.outputW, inCol), inCol)
				}
			}
		}
	}

	// Gradient to bias.
	accBias(gradOutput, scale, gradBias, ones, p.NOutputPlane, g)
}

// accBias adds scale * gradOutput2D * ones to gradBias, where gradOutput2D is the
// [nOutputPlane, outH*outW] reinterpretation of one batch element of gradOutput.
func accBias[T tensor.Float](gradOutput tensor.View[T], scale T, gradBias, ones tensor.View[T], planes int, g convGeometry) {
	n := g.outputH * g.outputW
	gbData, gbOff, gbInc := gradBias.Data(), gradBias.Offset(), gradBias.Stride(0)
	onesInc := ones.Stride(0)

	if gradOutput.Stride(2) == 1 && gradOutput.Stride(1) == g.outputW && gradOutput.Stride(0) >= 0 {
		g2d, err := gradOutput.Reinterpret2D(planes, gradOutput.Stride(0), n, 1)
		if err != nil {
			exceptions.Panicf("%v", err)
		}
		vec.Gemv(planes, n, scale, g2d.Data()[g2d.Offset():], g2d.Stride(0),
			vec.Strided(ones.Data(), ones.Offset(), n, onesInc), onesInc,
			1, vec.Strided(gbData, gbOff, planes, gbInc), gbInc)
		return
	}

	// Rows of a plane are not adjacent: reduce row by row.
	goutData, goutCol := gradOutput.Data(), gradOutput.Stride(2)
	onesRow := vec.Strided(ones.Data(), ones.Offset(), g.outputW, onesInc)
	for i := 0; i < planes; i++ {
		var sum T
		for j := 0; j < g.outputH; j++ {
			sum += vec.Dot(g.outputW, vec.Strided(goutData, gradOutput.OffsetOf(i, j), g.outputW, goutCol), goutCol,
				onesRow, onesInc)
		}
		gbData[gbOff+i*gbInc] += scale * sum
	}
}
