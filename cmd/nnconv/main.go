// Package main provides the nnconv CLI: kernel demos, benchmarks and gradient checks.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/gomlx/exceptions"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

const version = "v0.1.0"

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "nnconv %s - planar convolution and periodic resampling kernels\n\n", version)
	fmt.Fprintln(out, "Usage: nnconv [klog flags] <command> [flags]")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  version    Show version")
	fmt.Fprintln(out, "  demo       Run the reference examples and print their results")
	fmt.Fprintln(out, "  bench      Time the convolution passes")
	fmt.Fprintln(out, "  gradcheck  Compare analytic gradients with finite differences")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Run 'nnconv <command> -h' for the flags of a command.")
}

func main() {
	klog.InitFlags(nil)
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	err := exceptions.TryCatch[error](func() {
		must.M(run(flag.Arg(0), flag.Args()[1:], os.Stdout))
	})
	if err != nil {
		klog.Fatalf("Failed with error: %+v", err)
	}
}

// run dispatches a command. Command flags are parsed from args.
func run(command string, args []string, out io.Writer) error {
	switch command {
	case "version":
		fmt.Fprintf(out, "nnconv %s\n", version)
		return nil
	case "demo":
		return runDemo(out)
	case "bench":
		cfg, err := parseBenchFlags(args)
		if err != nil {
			return err
		}
		return runBench(cfg, out)
	case "gradcheck":
		cfg, err := parseGradcheckFlags(args)
		if err != nil {
			return err
		}
		return runGradcheck(cfg, out)
	default:
		return errors.Errorf("unknown command %q, see 'nnconv -h'", command)
	}
}
