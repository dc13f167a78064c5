package nn

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/nnconv/internal/backend/cpu"
	"github.com/born-ml/nnconv/internal/tensor"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// PlanarConvolution is a depthwise 2D convolution: input plane i is convolved with its own
// kH x kW kernel and written to output plane i, plus a per-output-plane bias.
//
// Input shape:  [nInputPlane, height, width] or [batch, nInputPlane, height, width]
// Weight shape: [nOutputPlane, kH, kW]
// Bias shape:   [nOutputPlane]
// Output shape: [(batch,) nOutputPlane, height-kH+1, width-kW+1]
//
// Output planes beyond nInputPlane receive only their bias. The gradient passes pair output
// plane i with input plane i, so training needs nInputPlane == nOutputPlane.
//
// Example:
//
//	conv := nn.NewPlanarConvolution[float32](3, 3, 5, 5, cpu.New[float32](), rng)
//	output, err := conv.UpdateOutput(input) // [32, 3, 24, 24] for a [32, 3, 28, 28] input
type PlanarConvolution[T tensor.Float] struct {
	nInputPlane  int
	nOutputPlane int
	kW, kH       int

	weight *Parameter[T] // [nOutputPlane, kH, kW]
	bias   *Parameter[T] // [nOutputPlane]

	ones      tensor.View[T] // Scratch for the bias gradient, resized lazily.
	output    tensor.View[T]
	gradInput tensor.View[T]

	backend Backend[T]
}

// NewPlanarConvolution creates a planar convolution layer and initializes it with Reset(rng).
// A nil rng uses a time-seeded generator.
//
// Panics if a plane count or kernel size is not positive.
func NewPlanarConvolution[T tensor.Float](nInputPlane, nOutputPlane, kW, kH int, backend Backend[T],
	rng *rand.Rand) *PlanarConvolution[T] {
	if nInputPlane <= 0 || nOutputPlane <= 0 {
		exceptions.Panicf("nn.PlanarConvolution: invalid planes in=%d, out=%d", nInputPlane, nOutputPlane)
	}
	if kW <= 0 || kH <= 0 {
		exceptions.Panicf("nn.PlanarConvolution: invalid kernel size w=%d, h=%d", kW, kH)
	}
	c := &PlanarConvolution[T]{
		nInputPlane:  nInputPlane,
		nOutputPlane: nOutputPlane,
		kW:           kW,
		kH:           kH,
		weight:       NewParameter("weight", tensor.New[T](nOutputPlane, kH, kW)),
		bias:         NewParameter("bias", tensor.New[T](nOutputPlane)),
		backend:      backend,
	}
	c.Reset(rng)
	return c
}

// Reset draws weight and bias from U(-stdv, stdv) with stdv = 1/sqrt(kW*kH*nInputPlane).
func (c *PlanarConvolution[T]) Reset(rng *rand.Rand) {
	Uniform(defaultRand(rng), fanInStdv(c.kW*c.kH*c.nInputPlane), c.weight, c.bias)
}

func (c *PlanarConvolution[T]) params() *cpu.PlanarConvParams[T] {
	return &cpu.PlanarConvParams[T]{
		NInputPlane:  c.nInputPlane,
		NOutputPlane: c.nOutputPlane,
		KW:           c.kW,
		KH:           c.kH,
		Weight:       c.weight.value,
		Bias:         c.bias.value,
		GradWeight:   c.weight.grad,
		GradBias:     c.bias.grad,
		Ones:         &c.ones,
	}
}

// UpdateOutput performs the forward pass.
func (c *PlanarConvolution[T]) UpdateOutput(input tensor.View[T]) (tensor.View[T], error) {
	if err := c.backend.PlanarConv2D(&c.output, input, c.params()); err != nil {
		return tensor.View[T]{}, errors.WithMessagef(err, "%s", c)
	}
	return c.output, nil
}

// UpdateGradInput computes the gradient with respect to input.
func (c *PlanarConvolution[T]) UpdateGradInput(input, gradOutput tensor.View[T]) (tensor.View[T], error) {
	if err := c.backend.PlanarConv2DInputBackward(&c.gradInput, input, gradOutput, c.params()); err != nil {
		return tensor.View[T]{}, errors.WithMessagef(err, "%s", c)
	}
	return c.gradInput, nil
}

// AccGradParameters accumulates scale times the weight and bias gradients.
func (c *PlanarConvolution[T]) AccGradParameters(input, gradOutput tensor.View[T], scale T) error {
	return errors.WithMessagef(c.backend.PlanarConv2DAccGrad(input, gradOutput, scale, c.params()), "%s", c)
}

// Parameters returns the weight and bias.
func (c *PlanarConvolution[T]) Parameters() []*Parameter[T] {
	return []*Parameter[T]{c.weight, c.bias}
}

// Weight returns the weight parameter.
func (c *PlanarConvolution[T]) Weight() *Parameter[T] {
	return c.weight
}

// Bias returns the bias parameter.
func (c *PlanarConvolution[T]) Bias() *Parameter[T] {
	return c.bias
}

// ComputeOutputSize computes output spatial dimensions for given input size.
//
// Returns: [out_height, out_width].
func (c *PlanarConvolution[T]) ComputeOutputSize(inputH, inputW int) [2]int {
	return [2]int{inputH - c.kH + 1, inputW - c.kW + 1}
}

// String returns a string representation of the layer.
func (c *PlanarConvolution[T]) String() string {
	return fmt.Sprintf("nn.PlanarConvolution(%d -> %d, %dx%d)", c.nInputPlane, c.nOutputPlane, c.kW, c.kH)
}
