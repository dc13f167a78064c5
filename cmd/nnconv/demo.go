package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/born-ml/nnconv/backend/cpu"
	"github.com/born-ml/nnconv/nn"
	"github.com/born-ml/nnconv/tensor"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
)

// runDemo prints the reference examples: the all-ones convolution, a bias-only convolution, the
// zero-fill upsampling of a 2x2 input and its round trip through subsampling.
func runDemo(out io.Writer) error {
	backend := cpu.New[float32]()

	conv := nn.NewPlanarConvolution[float32](1, 1, 2, 2, backend, nil)
	conv.Weight().Value().Fill(1)
	conv.Bias().Value().Zero()
	output, err := conv.UpdateOutput(tensor.Ones[float32](1, 3, 3))
	if err != nil {
		return errors.Wrap(err, "demo: convolution")
	}
	printView(out, "3x3 ones * 2x2 ones kernel", output)

	biasOnly := nn.NewPlanarConvolution[float32](2, 2, 3, 3, backend, nil)
	biasOnly.Weight().Value().Zero()
	must.M(biasOnly.Bias().Value().CopyFrom(must.M1(tensor.FromSlice([]float32{0.5, -1}, 2))))
	output, err = biasOnly.UpdateOutput(tensor.Arange[float32](2, 4, 4))
	if err != nil {
		return errors.Wrap(err, "demo: bias-only convolution")
	}
	printView(out, "zero weights, bias [0.5 -1]", output)

	input := must.M1(tensor.FromSlice([]float32{1, 2, 3, 4}, 1, 1, 2, 2))
	up := nn.NewSpatialUpSamplingPeriodic[float32](2, backend)
	upsampled, err := up.UpdateOutput(input)
	if err != nil {
		return errors.Wrap(err, "demo: upsampling")
	}
	printView(out, "upsample [[1 2] [3 4]] by 2", upsampled)

	sub := nn.NewSpatialSubSamplingPeriodic[float32](2, 2, 0, 0, backend)
	back, err := sub.UpdateOutput(upsampled)
	if err != nil {
		return errors.Wrap(err, "demo: subsampling")
	}
	printView(out, "subsample the result by 2", back)
	return nil
}

// printView writes the trailing 2D planes of v as rows of numbers.
func printView(out io.Writer, title string, v tensor.View[float32]) {
	fmt.Fprintf(out, "%s: shape %v\n", title, v.Shape())
	cols := v.Size(v.Rank() - 1)
	values := v.ToSlice()
	for i := 0; i < len(values); i += cols {
		row := make([]string, cols)
		for j, x := range values[i : i+cols] {
			row[j] = fmt.Sprintf("%6.2f", x)
		}
		fmt.Fprintf(out, "  %s\n", strings.Join(row, " "))
	}
	fmt.Fprintln(out)
}
