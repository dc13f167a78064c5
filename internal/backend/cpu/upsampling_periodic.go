package cpu

import (
	"github.com/born-ml/nnconv/internal/tensor"
	"k8s.io/klog/v2"
)

func checkScale(op string, scale int) error {
	if scale < 1 {
		return tensor.PreconditionErrorf(op, "scale factor %d must be positive", scale)
	}
	return nil
}

// UpsamplePeriodic fills the pre-sized output from input by zero insertion on the two trailing dimensions:
//
//	output[..., oy, ox] = input[..., oy/scale, ox/scale]   if scale divides both oy and ox
//	output[..., oy, ox] = 0                                otherwise
func (cpu *CPUBackend[T]) UpsamplePeriodic(output, input tensor.View[T], scale int) error {
	const op = "UpsamplePeriodic"
	if err := checkScale(op, scale); err != nil {
		return err
	}
	g, err := checkResampleViews(op, output, input)
	if err != nil {
		return err
	}
	if y, x := (g.dstH-1)/scale, (g.dstW-1)/scale; y >= g.srcH || x >= g.srcW {
		return tensor.PreconditionErrorf(op, "output %dx%d reads input (%d, %d), input is %dx%d",
			g.dstH, g.dstW, y, x, g.srcH, g.srcW)
	}
	klog.V(1).Infof("%s: %v -> %v scale=%d", op, input.Shape(), output.Shape(), scale)

	outData, inData := output.Data(), input.Data()
	oy0, ox0 := spatialStrides(output)
	iy0, ix0 := spatialStrides(input)
	return guard(op, func() {
		forEachPlane(g, output, input, func(outOff, inOff int) {
			for oy := 0; oy < g.dstH; oy++ {
				for ox := 0; ox < g.dstW; ox++ {
					dst := outOff + oy*oy0 + ox*ox0
					if oy%scale != 0 || ox%scale != 0 {
						outData[dst] = 0
						continue
					}
					outData[dst] = inData[inOff+(oy/scale)*iy0+(ox/scale)*ix0]
				}
			}
		})
	})
}

// UpsamplePeriodicBackward zeroes gradInput and gathers the gradient of every input element from
// the single output position it was copied to:
//
//	gradInput[..., y, x] += gradOutput[..., y*scale, x*scale]
func (cpu *CPUBackend[T]) UpsamplePeriodicBackward(gradInput, gradOutput tensor.View[T], scale int) error {
	const op = "UpsamplePeriodicBackward"
	if err := checkScale(op, scale); err != nil {
		return err
	}
	g, err := checkResampleViews(op, gradInput, gradOutput)
	if err != nil {
		return err
	}
	if y, x := (g.dstH-1)*scale, (g.dstW-1)*scale; y >= g.srcH || x >= g.srcW {
		return tensor.PreconditionErrorf(op, "gradInput %dx%d reads gradOutput (%d, %d), gradOutput is %dx%d",
			g.dstH, g.dstW, y, x, g.srcH, g.srcW)
	}
	klog.V(1).Infof("%s: %v -> %v scale=%d", op, gradOutput.Shape(), gradInput.Shape(), scale)

	ginData, goutData := gradInput.Data(), gradOutput.Data()
	gy0, gx0 := spatialStrides(gradInput)
	oy0, ox0 := spatialStrides(gradOutput)
	return guard(op, func() {
		gradInput.Zero()
		forEachPlane(g, gradInput, gradOutput, func(ginOff, goutOff int) {
			for y := 0; y < g.dstH; y++ {
				for x := 0; x < g.dstW; x++ {
					ginData[ginOff+y*gy0+x*gx0] += goutData[goutOff+(y*scale)*oy0+(x*scale)*ox0]
				}
			}
		})
	})
}
