package main

import (
	"flag"
	"fmt"
	"io"
	"math/rand"
	"runtime"
	"time"

	"github.com/born-ml/nnconv/backend/cpu"
	"github.com/born-ml/nnconv/tensor"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

type benchConfig struct {
	batch, planes, size, k int
	iters                  int
	seed                   int64
	backend                cpu.Config
}

func parseBenchFlags(args []string) (benchConfig, error) {
	fs := flag.NewFlagSet("bench", flag.ContinueOnError)
	var (
		cfg             benchConfig
		workers         int
		minBatch        int
		parallelAccGrad bool
	)
	fs.IntVar(&cfg.batch, "batch", 16, "Batch size.")
	fs.IntVar(&cfg.planes, "planes", 16, "Number of input (and output) planes.")
	fs.IntVar(&cfg.size, "size", 64, "Height and width of the input planes.")
	fs.IntVar(&cfg.k, "k", 5, "Kernel height and width.")
	fs.IntVar(&cfg.iters, "iters", 20, "Timed iterations per pass.")
	fs.Int64Var(&cfg.seed, "seed", 1, "Random seed for the input and weights.")
	fs.IntVar(&workers, "workers", runtime.NumCPU(), "Worker goroutines for batch parallelism; 1 disables it.")
	fs.IntVar(&minBatch, "min_batch", 1, "Minimum batch elements per worker.")
	fs.BoolVar(&parallelAccGrad, "parallel_accgrad", false, "Accumulate parameter gradients in parallel with a reduction.")
	if err := fs.Parse(args); err != nil {
		return cfg, errors.Wrap(err, "bench")
	}
	if cfg.batch < 1 || cfg.planes < 1 || cfg.k < 1 || cfg.size < cfg.k || cfg.iters < 1 {
		return cfg, errors.Errorf("bench: need batch, planes, k, iters >= 1 and size >= k")
	}
	cfg.backend = cpu.Config{
		Parallel:        cpu.ParallelConfig{Enabled: workers > 1, NumWorkers: workers, MinChunkSize: minBatch},
		ParallelAccGrad: parallelAccGrad,
	}
	return cfg, nil
}

// runBench times the three convolution passes on float32 data.
func runBench(cfg benchConfig, out io.Writer) error {
	rng := rand.New(rand.NewSource(cfg.seed))
	backend := cpu.NewWithConfig[float32](cfg.backend)
	outSize := cfg.size - cfg.k + 1

	p := &cpu.PlanarConvParams[float32]{
		NInputPlane:  cfg.planes,
		NOutputPlane: cfg.planes,
		KW:           cfg.k,
		KH:           cfg.k,
		Weight:       tensor.Uniform[float32](rng, -0.1, 0.1, cfg.planes, cfg.k, cfg.k),
		Bias:         tensor.Uniform[float32](rng, -0.1, 0.1, cfg.planes),
		GradWeight:   tensor.Zeros[float32](cfg.planes, cfg.k, cfg.k),
		GradBias:     tensor.Zeros[float32](cfg.planes),
		Ones:         new(tensor.View[float32]),
	}
	input := tensor.Randn[float32](rng, cfg.batch, cfg.planes, cfg.size, cfg.size)
	gradOutput := tensor.Randn[float32](rng, cfg.batch, cfg.planes, outSize, outSize)
	var output, gradInput tensor.View[float32]

	inputBytes := uint64(input.NumElements()) * uint64(tensor.DataTypeOf[float32]().Size())
	fmt.Fprintf(out, "input %v (%s), kernel %dx%d, %d workers, parallel accGrad %v\n",
		input.Shape(), humanize.Bytes(inputBytes), cfg.k, cfg.k, cfg.backend.Parallel.NumWorkers,
		cfg.backend.ParallelAccGrad)

	// Multiply-adds per pass: one per output element and kernel tap.
	flops := 2 * float64(cfg.batch*cfg.planes*outSize*outSize*cfg.k*cfg.k)
	passes := []struct {
		name string
		fn   func() error
	}{
		{"forward", func() error { return backend.PlanarConv2D(&output, input, p) }},
		{"input backward", func() error { return backend.PlanarConv2DInputBackward(&gradInput, input, gradOutput, p) }},
		{"accGrad", func() error { return backend.PlanarConv2DAccGrad(input, gradOutput, 1, p) }},
	}
	for _, pass := range passes {
		// Warm-up: allocates the result tensors and the ones buffer.
		if err := pass.fn(); err != nil {
			return errors.WithMessagef(err, "bench: %s", pass.name)
		}
		start := time.Now()
		for i := 0; i < cfg.iters; i++ {
			if err := pass.fn(); err != nil {
				return errors.WithMessagef(err, "bench: %s", pass.name)
			}
		}
		elapsed := time.Since(start)
		perIter := elapsed / time.Duration(cfg.iters)
		klog.V(1).Infof("%s: %d iterations in %s", pass.name, cfg.iters, elapsed)
		fmt.Fprintf(out, "  %-15s %12s/iter  %s\n", pass.name, perIter,
			humanize.SIWithDigits(flops/perIter.Seconds(), 2, "FLOP/s"))
	}
	fmt.Fprintf(out, "  %s multiply-adds per pass\n", humanize.Comma(int64(flops/2)))
	return nil
}
