package main

import (
	"flag"
	"fmt"
	"io"
	"math/rand"

	"github.com/born-ml/nnconv/backend/cpu"
	"github.com/born-ml/nnconv/internal/gradcheck"
	"github.com/born-ml/nnconv/nn"
	"github.com/born-ml/nnconv/tensor"
	"github.com/pkg/errors"
)

type gradcheckConfig struct {
	seed int64
	tol  float64
	step float64
}

func parseGradcheckFlags(args []string) (gradcheckConfig, error) {
	fs := flag.NewFlagSet("gradcheck", flag.ContinueOnError)
	var cfg gradcheckConfig
	fs.Int64Var(&cfg.seed, "seed", 1, "Random seed for inputs and weights.")
	fs.Float64Var(&cfg.tol, "tol", 1e-6, "Maximum absolute and relative error.")
	fs.Float64Var(&cfg.step, "step", 1e-6, "Central finite difference step.")
	if err := fs.Parse(args); err != nil {
		return cfg, errors.Wrap(err, "gradcheck")
	}
	return cfg, nil
}

// runGradcheck checks a planar convolution (2 planes, 2x2 kernel, 4x4 input) on its own and
// inside a chain with periodic resampling.
func runGradcheck(cfg gradcheckConfig, out io.Writer) error {
	rng := rand.New(rand.NewSource(cfg.seed))
	backend := cpu.New[float64]()
	opts := gradcheck.Options{Step: cfg.step}

	checks := []struct {
		name       string
		module     nn.Module[float64]
		input      tensor.View[float64]
		gradOutput tensor.View[float64]
	}{
		{
			name:       "planar convolution",
			module:     nn.NewPlanarConvolution[float64](2, 2, 2, 2, backend, rng),
			input:      tensor.Randn[float64](rng, 2, 2, 4, 4),
			gradOutput: tensor.Randn[float64](rng, 2, 2, 3, 3),
		},
		{
			name: "upsample -> convolution -> subsample",
			module: nn.NewSequential[float64](
				nn.NewSpatialUpSamplingPeriodic[float64](2, backend),
				nn.NewPlanarConvolution[float64](2, 2, 3, 3, backend, rng),
				nn.NewSpatialSubSamplingPeriodic[float64](2, 2, 0, 1, backend),
			),
			input:      tensor.Randn[float64](rng, 2, 4, 4),
			gradOutput: tensor.Randn[float64](rng, 2, 3, 3),
		},
	}

	failed := 0
	for _, c := range checks {
		in, err := gradcheck.CheckInput(c.module, c.input, c.gradOutput, opts)
		if err != nil {
			return errors.WithMessage(err, c.name)
		}
		params, err := gradcheck.CheckParameters(c.module, c.input, c.gradOutput, opts)
		if err != nil {
			return errors.WithMessage(err, c.name)
		}
		for _, r := range []struct {
			what   string
			result gradcheck.Result
		}{{"input", in}, {"parameters", params}} {
			status := "ok"
			if !r.result.OK(cfg.tol) {
				status = "FAILED"
				failed++
			}
			fmt.Fprintf(out, "%-40s %-10s %-6s %s\n", c.name, r.what, status, r.result)
		}
	}
	if failed > 0 {
		return errors.Errorf("gradcheck: %d checks above tolerance %g", failed, cfg.tol)
	}
	return nil
}
