// Package gradcheck compares the analytic gradients of a module against central finite differences.
//
// Both checks differentiate the scalar L(x) = <gradOutput, UpdateOutput(x)>, whose gradient with
// respect to the input is UpdateGradInput(x, gradOutput) and with respect to each parameter is what
// AccGradParameters(x, gradOutput, 1) accumulates.
package gradcheck

import (
	"fmt"
	"math"

	"github.com/born-ml/nnconv/internal/nn"
	"github.com/born-ml/nnconv/internal/tensor"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
)

// Options configures the finite-difference approximation.
type Options struct {
	// Step is the central difference step. Zero means 1e-6.
	Step float64
}

func (o Options) settings() *fd.Settings {
	step := o.Step
	if step == 0 {
		step = 1e-6
	}
	return &fd.Settings{Formula: fd.Central, Step: step}
}

// Result summarizes the disagreement between analytic and numeric gradients.
type Result struct {
	MaxAbsErr float64
	MaxRelErr float64 // |analytic - numeric| / max(|analytic|, |numeric|, 1)
	Worst     string  // element with the largest absolute error, e.g. "weight[5]"
	Checked   int     // number of scalars compared
}

// OK reports whether both errors are within tol.
func (r Result) OK(tol float64) bool {
	return r.MaxAbsErr <= tol && r.MaxRelErr <= tol
}

func (r Result) String() string {
	return fmt.Sprintf("checked %d values: max abs err %.3g, max rel err %.3g (worst %s)",
		r.Checked, r.MaxAbsErr, r.MaxRelErr, r.Worst)
}

// merge folds the comparison of analytic against numeric for the named tensor into r.
func (r *Result) merge(name string, analytic, numeric []float64) {
	diff := make([]float64, len(analytic))
	floats.SubTo(diff, analytic, numeric)
	for i, d := range diff {
		abs := math.Abs(d)
		rel := abs / math.Max(1, math.Max(math.Abs(analytic[i]), math.Abs(numeric[i])))
		if abs > r.MaxAbsErr || r.Worst == "" {
			r.MaxAbsErr = abs
			r.Worst = fmt.Sprintf("%s[%d]", name, i)
		}
		r.MaxRelErr = math.Max(r.MaxRelErr, rel)
	}
	r.Checked += len(analytic)
}

// CheckInput compares UpdateGradInput against the numeric gradient of L with respect to input.
// input is not modified.
func CheckInput[T tensor.Float](m nn.Module[T], input, gradOutput tensor.View[T], opts Options) (Result, error) {
	if _, err := m.UpdateOutput(input); err != nil {
		return Result{}, errors.Wrap(err, "gradcheck: forward")
	}
	gradInput, err := m.UpdateGradInput(input, gradOutput)
	if err != nil {
		return Result{}, errors.Wrap(err, "gradcheck: backward")
	}
	analytic := toFloat64(gradInput.ToSlice())

	scratch := tensor.New[T](input.Shape()...)
	loss, lossErr := lossFunc(m, gradOutput, func(x []float64) tensor.View[T] {
		fromFloat64(scratch.Data(), x)
		return scratch
	})
	numeric := fd.Gradient(nil, loss, toFloat64(input.ToSlice()), opts.settings())
	if *lossErr != nil {
		return Result{}, *lossErr
	}

	var r Result
	r.merge("input", analytic, numeric)
	return r, nil
}

// CheckParameters compares the gradients accumulated by AccGradParameters against the numeric
// gradient of L with respect to every parameter. Parameter gradients are zeroed first and hold
// the analytic gradient afterwards; parameter values are restored.
func CheckParameters[T tensor.Float](m nn.Module[T], input, gradOutput tensor.View[T], opts Options) (Result, error) {
	nn.ZeroGradParameters(m)
	if _, err := m.UpdateOutput(input); err != nil {
		return Result{}, errors.Wrap(err, "gradcheck: forward")
	}
	// Containers need the input gradients of their children before accumulating.
	if _, err := nn.Backward(m, input, gradOutput, 1); err != nil {
		return Result{}, errors.Wrap(err, "gradcheck: backward")
	}

	var r Result
	for _, p := range m.Parameters() {
		analytic := toFloat64(p.Grad().ToSlice())
		value := p.Value()
		saved := value.ToSlice()
		scratch := tensor.New[T](value.Shape()...)

		loss, lossErr := lossFunc(m, gradOutput, func(w []float64) tensor.View[T] {
			fromFloat64(scratch.Data(), w)
			if err := value.CopyFrom(scratch); err != nil {
				panic(err)
			}
			return input
		})
		numeric := fd.Gradient(nil, loss, toFloat64(saved), opts.settings())

		restored, err := tensor.FromSlice(saved, value.Shape()...)
		if err == nil {
			err = value.CopyFrom(restored)
		}
		if err != nil {
			return Result{}, errors.Wrapf(err, "gradcheck: restoring %s", p.Name())
		}
		if *lossErr != nil {
			return Result{}, *lossErr
		}
		r.merge(p.Name(), analytic, numeric)
	}
	return r, nil
}

// lossFunc returns L as a function of a float64 vector, with setup mapping the vector to the
// module input. The first forward error is recorded and makes L return NaN from then on.
func lossFunc[T tensor.Float](m nn.Module[T], gradOutput tensor.View[T],
	setup func(x []float64) tensor.View[T]) (func([]float64) float64, *error) {
	weights := toFloat64(gradOutput.ToSlice())
	var firstErr error
	return func(x []float64) float64 {
		if firstErr != nil {
			return math.NaN()
		}
		out, err := m.UpdateOutput(setup(x))
		if err != nil {
			firstErr = errors.Wrap(err, "gradcheck: perturbed forward")
			return math.NaN()
		}
		return floats.Dot(weights, toFloat64(out.ToSlice()))
	}, &firstErr
}

func toFloat64[T tensor.Float](x []T) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = float64(v)
	}
	return out
}

func fromFloat64[T tensor.Float](dst []T, x []float64) {
	for i, v := range x {
		dst[i] = T(v)
	}
}
