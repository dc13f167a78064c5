package cpu

import (
	"math/rand"
	"testing"

	"github.com/born-ml/nnconv/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func arange(n int) []float64 {
	data := make([]float64, n)
	for i := range data {
		data[i] = float64(i)
	}
	return data
}

// TestUpsamplePeriodic_ZeroFill tests scale 2 on a 1x1x2x2 input.
func TestUpsamplePeriodic_ZeroFill(t *testing.T) {
	backend := New[float64]()
	input := fromSlice(t, []float64{1, 2, 3, 4}, 1, 1, 2, 2)
	output := filled(-1, 1, 1, 4, 4)

	require.NoError(t, backend.UpsamplePeriodic(output, input, 2))
	assert.Equal(t, []float64{
		1, 0, 2, 0,
		0, 0, 0, 0,
		3, 0, 4, 0,
		0, 0, 0, 0,
	}, output.ToSlice())
}

// TestUpsamplePeriodicBackward tests that each input gradient is read from its single output position.
func TestUpsamplePeriodicBackward(t *testing.T) {
	backend := New[float64]()
	gradOutput := fromSlice(t, arange(16), 1, 4, 4)
	gradInput := filled(9, 1, 2, 2)

	require.NoError(t, backend.UpsamplePeriodicBackward(gradInput, gradOutput, 2))
	assert.Equal(t, []float64{0, 2, 8, 10}, gradInput.ToSlice())
}

// TestUpsamplePeriodic_Adjoint tests <up(x), g> == <x, upBackward(g)> for ranks 3 to 5.
func TestUpsamplePeriodic_Adjoint(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	backend := New[float64]()
	for _, lead := range [][]int{{2}, {2, 3}, {2, 1, 3}} {
		in := append(append([]int(nil), lead...), 3, 4)
		out := append(append([]int(nil), lead...), 9, 12)
		x, g := randView(rng, in...), randView(rng, out...)

		up, gradInput := tensor.New[float64](out...), tensor.New[float64](in...)
		require.NoError(t, backend.UpsamplePeriodic(up, x, 3))
		require.NoError(t, backend.UpsamplePeriodicBackward(gradInput, g, 3))
		assert.InDelta(t, dot(up, g), dot(x, gradInput), 1e-10, "lead dims %v", lead)
	}
}

// TestResample_RoundTrip tests subsample(upsample(x, s), s, s, 0, 0) == x.
func TestResample_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(22))
	backend := New[float64]()
	for s := 1; s <= 3; s++ {
		for _, shape := range [][]int{{3, 4, 5}, {2, 3, 4, 5}, {2, 1, 2, 3, 2}} {
			rank := len(shape)
			x := randView(rng, shape...)
			upShape := append([]int(nil), shape...)
			upShape[rank-2] *= s
			upShape[rank-1] *= s

			up := tensor.New[float64](upShape...)
			back := tensor.New[float64](shape...)
			require.NoError(t, backend.UpsamplePeriodic(up, x, s))
			require.NoError(t, backend.SubsamplePeriodic(back, up, PeriodicParams{DW: s, DH: s}))
			assert.Equal(t, x.ToSlice(), back.ToSlice(), "scale %d shape %v", s, shape)
		}
	}
}

// TestSubsamplePeriodic_Offsets tests decimation with strides and offsets on both spatial dimensions.
func TestSubsamplePeriodic_Offsets(t *testing.T) {
	backend := New[float64]()
	input := fromSlice(t, arange(30), 1, 5, 6)
	output := tensor.New[float64](1, 2, 3)

	require.NoError(t, backend.SubsamplePeriodic(output, input, PeriodicParams{DW: 2, DH: 2, IW: 1, IH: 1}))
	assert.Equal(t, []float64{7, 9, 11, 19, 21, 23}, output.ToSlice())

	// x uses (dW, iW), y uses (dH, iH).
	output = tensor.New[float64](1, 4, 2)
	require.NoError(t, backend.SubsamplePeriodic(output, input, PeriodicParams{DW: 3, DH: 1, IW: 2, IH: 1}))
	assert.Equal(t, []float64{8, 11, 14, 17, 20, 23, 26, 29}, output.ToSlice())
}

// TestSubsamplePeriodicBackward tests the scatter with a positive y offset.
func TestSubsamplePeriodicBackward(t *testing.T) {
	backend := New[float64]()
	gradOutput := fromSlice(t, []float64{1, 2, 3, 4, 5, 6}, 1, 2, 3)
	gradInput := filled(9, 1, 5, 6)

	require.NoError(t, backend.SubsamplePeriodicBackward(gradInput, gradOutput, PeriodicParams{DW: 2, DH: 2, IH: 1}))
	assert.Equal(t, []float64{
		0, 0, 0, 0, 0, 0,
		1, 0, 2, 0, 3, 0,
		0, 0, 0, 0, 0, 0,
		4, 0, 5, 0, 6, 0,
		0, 0, 0, 0, 0, 0,
	}, gradInput.ToSlice())
}

// TestSubsamplePeriodicBackward_PositiveIW tests that a positive x offset, which maps column 0
// before the start of the row, is rejected without touching gradInput.
func TestSubsamplePeriodicBackward_PositiveIW(t *testing.T) {
	backend := New[float64]()
	gradInput := filled(9, 1, 4, 4)

	err := backend.SubsamplePeriodicBackward(gradInput, filled(1, 1, 2, 2), PeriodicParams{DW: 2, DH: 2, IW: 1, IH: 1})
	require.Error(t, err)
	assert.True(t, tensor.IsPreconditionError(err))
	assert.Equal(t, filled(9, 1, 4, 4).ToSlice(), gradInput.ToSlice())
}

// TestResample_StridedViews tests non-contiguous sources and destinations.
func TestResample_StridedViews(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	backend := New[float64]()
	x := randView(rng, 2, 3, 4)

	want := tensor.New[float64](2, 6, 8)
	require.NoError(t, backend.UpsamplePeriodic(want, x, 2))

	got := spreadColumns(t, tensor.New[float64](2, 6, 8))
	require.NoError(t, backend.UpsamplePeriodic(got, spreadColumns(t, x), 2))
	assert.Equal(t, want.ToSlice(), got.ToSlice())

	back := spreadColumns(t, tensor.New[float64](2, 3, 4))
	require.NoError(t, backend.SubsamplePeriodic(back, got, PeriodicParams{DW: 2, DH: 2}))
	assert.Equal(t, x.ToSlice(), back.ToSlice())

	// Backward passes: strided and flipped gradients against contiguous runs.
	p := PeriodicParams{DW: 2, DH: 3, IH: 2}
	gradOutput := randView(rng, 2, 3, 4)
	wantSub := tensor.New[float64](2, 9, 8)
	require.NoError(t, backend.SubsamplePeriodicBackward(wantSub, gradOutput, p))
	upGradOutput := randView(rng, 2, 6, 8)
	wantUp := tensor.New[float64](2, 3, 4)
	require.NoError(t, backend.UpsamplePeriodicBackward(wantUp, upGradOutput, 2))

	for _, layout := range []func(tensor.View[float64]) tensor.View[float64]{
		func(v tensor.View[float64]) tensor.View[float64] { return spreadColumns(t, v) },
		func(v tensor.View[float64]) tensor.View[float64] { return flipDims(t, v, 1, 2) },
	} {
		gotSub := layout(filled(5, 2, 9, 8))
		require.NoError(t, backend.SubsamplePeriodicBackward(gotSub, layout(gradOutput), p))
		assert.Equal(t, wantSub.ToSlice(), gotSub.ToSlice())

		gotUp := layout(filled(5, 2, 3, 4))
		require.NoError(t, backend.UpsamplePeriodicBackward(gotUp, layout(upGradOutput), 2))
		assert.Equal(t, wantUp.ToSlice(), gotUp.ToSlice())
	}
}

// TestResample_Errors tests shape and precondition failures of all four resampling operations.
func TestResample_Errors(t *testing.T) {
	backend := New[float64]()
	p := PeriodicParams{DW: 2, DH: 2}

	shapeErrors := []struct {
		name string
		call func() error
	}{
		{"rank 2", func() error {
			return backend.SubsamplePeriodic(tensor.New[float64](2, 2), tensor.New[float64](4, 4), p)
		}},
		{"rank 6", func() error {
			return backend.UpsamplePeriodic(tensor.New[float64](1, 1, 1, 1, 4, 4), tensor.New[float64](1, 1, 1, 1, 2, 2), 2)
		}},
		{"rank mismatch", func() error {
			return backend.UpsamplePeriodicBackward(tensor.New[float64](1, 2, 2), tensor.New[float64](1, 1, 4, 4), 2)
		}},
		{"plane mismatch", func() error {
			return backend.SubsamplePeriodicBackward(tensor.New[float64](2, 4, 4), tensor.New[float64](3, 2, 2), p)
		}},
	}
	for _, tt := range shapeErrors {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tensor.IsShapeError(tt.call()))
		})
	}

	preconditions := []struct {
		name string
		call func() error
	}{
		{"zero scale", func() error {
			return backend.UpsamplePeriodic(tensor.New[float64](1, 4, 4), tensor.New[float64](1, 2, 2), 0)
		}},
		{"zero stride", func() error {
			return backend.SubsamplePeriodic(tensor.New[float64](1, 2, 2), tensor.New[float64](1, 4, 4), PeriodicParams{DW: 0, DH: 2})
		}},
		{"negative offset", func() error {
			return backend.SubsamplePeriodic(tensor.New[float64](1, 2, 2), tensor.New[float64](1, 4, 4), PeriodicParams{DW: 2, DH: 2, IH: -1})
		}},
		{"subsample output too large", func() error {
			return backend.SubsamplePeriodic(tensor.New[float64](1, 3, 2), tensor.New[float64](1, 4, 4), p)
		}},
		{"subsample offset past input", func() error {
			return backend.SubsamplePeriodic(tensor.New[float64](1, 2, 2), tensor.New[float64](1, 4, 4), PeriodicParams{DW: 2, DH: 2, IW: 2})
		}},
		{"upsample output too large", func() error {
			return backend.UpsamplePeriodic(tensor.New[float64](1, 5, 4), tensor.New[float64](1, 2, 2), 2)
		}},
		{"upsample gradOutput too small", func() error {
			return backend.UpsamplePeriodicBackward(tensor.New[float64](1, 2, 2), tensor.New[float64](1, 2, 4), 2)
		}},
		{"subsample gradInput too small", func() error {
			return backend.SubsamplePeriodicBackward(tensor.New[float64](1, 3, 4), tensor.New[float64](1, 2, 2), PeriodicParams{DW: 2, DH: 2, IH: 1})
		}},
		{"nil output", func() error {
			return backend.UpsamplePeriodic(tensor.View[float64]{}, tensor.New[float64](1, 2, 2), 2)
		}},
	}
	for _, tt := range preconditions {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tensor.IsPreconditionError(tt.call()))
		})
	}
}
