package cpu

import (
	"github.com/born-ml/nnconv/internal/tensor"
	"k8s.io/klog/v2"
)

func (p PeriodicParams) validate(op string) error {
	if p.DW < 1 || p.DH < 1 {
		return tensor.PreconditionErrorf(op, "strides dW=%d, dH=%d must be positive", p.DW, p.DH)
	}
	if p.IW < 0 || p.IH < 0 {
		return tensor.PreconditionErrorf(op, "offsets iW=%d, iH=%d must not be negative", p.IW, p.IH)
	}
	return nil
}

// SubsamplePeriodic decimates the two trailing dimensions of input into the pre-sized output:
//
//	output[..., oy, ox] = input[..., oy*DH + IH, ox*DW + IW]
//
// Every other dimension is copied index for index. Views of rank 3, 4 and 5 are accepted.
func (cpu *CPUBackend[T]) SubsamplePeriodic(output, input tensor.View[T], p PeriodicParams) error {
	const op = "SubsamplePeriodic"
	if err := p.validate(op); err != nil {
		return err
	}
	g, err := checkResampleViews(op, output, input)
	if err != nil {
		return err
	}
	if y, x := (g.dstH-1)*p.DH+p.IH, (g.dstW-1)*p.DW+p.IW; y >= g.srcH || x >= g.srcW {
		return tensor.PreconditionErrorf(op, "output %dx%d reads input (%d, %d), input is %dx%d",
			g.dstH, g.dstW, y, x, g.srcH, g.srcW)
	}
	klog.V(1).Infof("%s: %v -> %v dW=%d dH=%d iW=%d iH=%d", op, input.Shape(), output.Shape(), p.DW, p.DH, p.IW, p.IH)

	outData, inData := output.Data(), input.Data()
	oy0, ox0 := spatialStrides(output)
	iy0, ix0 := spatialStrides(input)
	return guard(op, func() {
		forEachPlane(g, output, input, func(outOff, inOff int) {
			for oy := 0; oy < g.dstH; oy++ {
				iy := oy*p.DH + p.IH
				for ox := 0; ox < g.dstW; ox++ {
					ix := ox*p.DW + p.IW
					outData[outOff+oy*oy0+ox*ox0] = inData[inOff+iy*iy0+ix*ix0]
				}
			}
		})
	})
}

// SubsamplePeriodicBackward zeroes gradInput and scatters gradOutput back into it:
//
//	gradInput[..., DH*oy + IH, DW*ox - IW] += gradOutput[..., oy, ox]
//
// The x offset enters with a negative sign, so any IW > 0 maps ox = 0 before the start of the
// row and is rejected.
func (cpu *CPUBackend[T]) SubsamplePeriodicBackward(gradInput, gradOutput tensor.View[T], p PeriodicParams) error {
	const op = "SubsamplePeriodicBackward"
	if err := p.validate(op); err != nil {
		return err
	}
	g, err := checkResampleViews(op, gradInput, gradOutput)
	if err != nil {
		return err
	}
	if p.IW > 0 {
		return tensor.PreconditionErrorf(op, "iW=%d maps output column 0 to input column %d", p.IW, -p.IW)
	}
	if y, x := p.DH*(g.srcH-1)+p.IH, p.DW*(g.srcW-1)-p.IW; y >= g.dstH || x >= g.dstW {
		return tensor.PreconditionErrorf(op, "gradOutput %dx%d writes gradInput (%d, %d), gradInput is %dx%d",
			g.srcH, g.srcW, y, x, g.dstH, g.dstW)
	}
	klog.V(1).Infof("%s: %v -> %v dW=%d dH=%d iW=%d iH=%d", op, gradOutput.Shape(), gradInput.Shape(), p.DW, p.DH, p.IW, p.IH)

	ginData, goutData := gradInput.Data(), gradOutput.Data()
	gy0, gx0 := spatialStrides(gradInput)
	oy0, ox0 := spatialStrides(gradOutput)
	return guard(op, func() {
		gradInput.Zero()
		forEachPlane(g, gradInput, gradOutput, func(ginOff, goutOff int) {
			for oy := 0; oy < g.srcH; oy++ {
				y := p.DH*oy + p.IH
				for ox := 0; ox < g.srcW; ox++ {
					x := p.DW*ox - p.IW
					ginData[ginOff+y*gy0+x*gx0] += goutData[goutOff+oy*oy0+ox*ox0]
				}
			}
		})
	})
}
