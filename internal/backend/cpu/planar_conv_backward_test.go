package cpu

import (
	"math/rand"
	"testing"

	"github.com/born-ml/nnconv/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPlanarConv2DInputBackward_ConcreteExample tests the scatter of an all-ones gradient.
func TestPlanarConv2DInputBackward_ConcreteExample(t *testing.T) {
	backend := New[float64]()
	p := &PlanarConvParams[float64]{
		NInputPlane: 1, NOutputPlane: 1, KW: 2, KH: 2,
		Weight: filled(1, 1, 2, 2),
	}

	gradInput := filled(9, 1, 3, 3) // Stale contents are overwritten.
	require.NoError(t, backend.PlanarConv2DInputBackward(&gradInput, filled(1, 1, 3, 3), filled(1, 1, 2, 2), p))

	assert.Equal(t, tensor.Shape{1, 3, 3}, gradInput.Shape())
	assert.Equal(t, []float64{
		1, 2, 1,
		2, 4, 2,
		1, 2, 1,
	}, gradInput.ToSlice())
}

// TestPlanarConv2DInputBackward_Adjoint tests <gradInput, x> == <gradOutput, forward(x) - bias>.
func TestPlanarConv2DInputBackward_Adjoint(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	backend := New[float64]()

	for _, batched := range []bool{false, true} {
		p := convParams(rng, 2, 2, 2, 2)
		p.Bias.Zero()
		x := randView(rng, 3, 2, 4, 4)
		gradOutput := randView(rng, 3, 2, 3, 3)
		if !batched {
			x, gradOutput = x.Select(0), gradOutput.Select(0)
		}

		var output, gradInput tensor.View[float64]
		require.NoError(t, backend.PlanarConv2D(&output, x, p))
		require.NoError(t, backend.PlanarConv2DInputBackward(&gradInput, x, gradOutput, p))

		assert.Equal(t, x.Shape(), gradInput.Shape())
		assert.InDelta(t, dot(gradOutput, output), dot(gradInput, x), 1e-10)
	}
}

// TestPlanarConv2DInputBackward_StridedAndParallel tests strided gradients and the parallel path.
func TestPlanarConv2DInputBackward_StridedAndParallel(t *testing.T) {
	rng := rand.New(rand.NewSource(12))
	p := convParams(rng, 3, 3, 2, 3)
	input := randView(rng, 6, 3, 5, 6)
	gradOutput := randView(rng, 6, 3, 4, 4)

	var want, strided, par tensor.View[float64]
	require.NoError(t, sequentialBackend().PlanarConv2DInputBackward(&want, input, gradOutput, p))
	require.NoError(t, sequentialBackend().PlanarConv2DInputBackward(&strided, input, spreadColumns(t, gradOutput), p))
	require.NoError(t, parallelBackend(false).PlanarConv2DInputBackward(&par, input, gradOutput, p))

	assert.InDeltaSlice(t, want.ToSlice(), strided.ToSlice(), 1e-12)
	assert.Equal(t, want.ToSlice(), par.ToSlice())
}

// TestPlanarConv2DInputBackward_FlippedGradOutput tests a gradOutput with negative strides.
func TestPlanarConv2DInputBackward_FlippedGradOutput(t *testing.T) {
	rng := rand.New(rand.NewSource(14))
	p := convParams(rng, 2, 2, 3, 2)
	input := randView(rng, 3, 2, 5, 6)
	gradOutput := randView(rng, 3, 2, 3, 5)

	var want tensor.View[float64]
	require.NoError(t, sequentialBackend().PlanarConv2DInputBackward(&want, input, gradOutput, p))
	for _, dims := range [][]int{{3}, {1, 2, 3}} {
		var got tensor.View[float64]
		require.NoError(t, sequentialBackend().PlanarConv2DInputBackward(&got, input, flipDims(t, gradOutput, dims...), p))
		assert.InDeltaSlice(t, want.ToSlice(), got.ToSlice(), 1e-12, "flipped dims %v", dims)
	}
}

// TestPlanarConv2DInputBackward_ShapeErrors tests gradOutput validation.
func TestPlanarConv2DInputBackward_ShapeErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	backend := New[float64]()
	p := convParams(rng, 2, 2, 2, 2)
	input := randView(rng, 2, 2, 4, 4)

	tests := []struct {
		name       string
		gradOutput tensor.View[float64]
	}{
		{"plane mismatch", randView(rng, 2, 3, 3, 3)},
		{"rank mismatch", randView(rng, 2, 3, 3)},
		{"batch mismatch", randView(rng, 1, 2, 3, 3)},
		{"spatial mismatch", randView(rng, 2, 2, 3, 4)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gradInput := filled(5, 3)
			err := backend.PlanarConv2DInputBackward(&gradInput, input, tt.gradOutput, p)
			require.Error(t, err)
			assert.True(t, tensor.IsShapeError(err), "%+v", err)
			assert.Equal(t, []float64{5, 5, 5}, gradInput.ToSlice())
		})
	}

	// More output than input planes has no input plane to scatter into.
	wide := convParams(rng, 2, 3, 2, 2)
	var gradInput tensor.View[float64]
	err := backend.PlanarConv2DInputBackward(&gradInput, input, randView(rng, 2, 3, 3, 3), wide)
	assert.True(t, tensor.IsPreconditionError(err), "%+v", err)
	assert.True(t, gradInput.IsNil())
}

// TestPlanarConv2DAccGrad_ConcreteExample tests accumulation of kernel and bias gradients across calls.
func TestPlanarConv2DAccGrad_ConcreteExample(t *testing.T) {
	backend := New[float64]()
	p := &PlanarConvParams[float64]{
		NInputPlane: 1, NOutputPlane: 1, KW: 2, KH: 2,
		GradWeight: tensor.New[float64](1, 2, 2),
		GradBias:   tensor.New[float64](1),
		Ones:       new(tensor.View[float64]),
	}
	input := fromSlice(t, []float64{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	}, 1, 3, 3)
	gradOutput := filled(1, 1, 2, 2)

	require.NoError(t, backend.PlanarConv2DAccGrad(input, gradOutput, 1, p))
	assert.Equal(t, []float64{12, 16, 24, 28}, p.GradWeight.ToSlice())
	assert.Equal(t, []float64{4}, p.GradBias.ToSlice())
	assert.Equal(t, tensor.Shape{4}, p.Ones.Shape())
	ones := p.Ones.Storage()

	require.NoError(t, backend.PlanarConv2DAccGrad(input, gradOutput, 0.5, p))
	assert.Equal(t, []float64{18, 24, 36, 42}, p.GradWeight.ToSlice())
	assert.Equal(t, []float64{6}, p.GradBias.ToSlice())
	assert.Same(t, ones, p.Ones.Storage())
}

// TestPlanarConv2DAccGrad_BiasPerBatchElement tests that every batch element adds its own gradOutput sum.
func TestPlanarConv2DAccGrad_BiasPerBatchElement(t *testing.T) {
	rng := rand.New(rand.NewSource(16))
	p := convParams(rng, 2, 2, 2, 2)
	gradOutput := tensor.New[float64](2, 2, 3, 3)
	gradOutput.Select(0).Fill(1)
	gradOutput.Select(1).Fill(2)

	for _, backend := range []*CPUBackend[float64]{sequentialBackend(), parallelBackend(true)} {
		p.GradBias.Zero()
		require.NoError(t, backend.PlanarConv2DAccGrad(randView(rng, 2, 2, 4, 4), gradOutput, 1, p))
		assert.Equal(t, []float64{9 + 18, 9 + 18}, p.GradBias.ToSlice())
	}
}

// TestPlanarConv2DAccGrad_Ones tests that the ones buffer is only resized when too short.
func TestPlanarConv2DAccGrad_Ones(t *testing.T) {
	rng := rand.New(rand.NewSource(14))
	backend := New[float64]()
	input := randView(rng, 1, 4, 4)
	gradOutput := randView(rng, 1, 3, 3)

	t.Run("too short", func(t *testing.T) {
		p := convParams(rng, 1, 1, 2, 2)
		p.Ones.Resize(2)
		p.Ones.Fill(1)
		require.NoError(t, backend.PlanarConv2DAccGrad(input, gradOutput, 1, p))
		assert.Equal(t, tensor.Shape{9}, p.Ones.Shape())
		assert.Equal(t, filled(1, 9).ToSlice(), p.Ones.ToSlice())
		assert.InDelta(t, sum(gradOutput), p.GradBias.At(0), 1e-12)
	})

	t.Run("long enough", func(t *testing.T) {
		p := convParams(rng, 1, 1, 2, 2)
		*p.Ones = filled(1, 16)
		storage := p.Ones.Storage()
		require.NoError(t, backend.PlanarConv2DAccGrad(input, gradOutput, 1, p))
		assert.Equal(t, tensor.Shape{16}, p.Ones.Shape())
		assert.Same(t, storage, p.Ones.Storage())
		assert.InDelta(t, sum(gradOutput), p.GradBias.At(0), 1e-12)
	})

	t.Run("nil", func(t *testing.T) {
		p := convParams(rng, 1, 1, 2, 2)
		p.Ones = nil
		require.NoError(t, backend.PlanarConv2DAccGrad(input, gradOutput, 1, p))
		assert.InDelta(t, sum(gradOutput), p.GradBias.At(0), 1e-12)
	})
}

// TestPlanarConv2DAccGrad_Linearity tests <gradWeight, W> + <gradBias, b> == <gradOutput, forward(x)>,
// which holds because the forward pass is linear in (W, b) when every output plane has an input plane.
func TestPlanarConv2DAccGrad_Linearity(t *testing.T) {
	rng := rand.New(rand.NewSource(15))
	backend := New[float64]()
	p := convParams(rng, 3, 3, 2, 3)
	input := randView(rng, 4, 3, 5, 6)
	gradOutput := randView(rng, 4, 3, 4, 4)

	var output tensor.View[float64]
	require.NoError(t, backend.PlanarConv2D(&output, input, p))
	require.NoError(t, backend.PlanarConv2DAccGrad(input, gradOutput, 1, p))

	assert.InDelta(t, dot(gradOutput, output), dot(p.GradWeight, p.Weight)+dot(p.GradBias, p.Bias), 1e-10)
}

// TestPlanarConv2DAccGrad_ReducedMatchesSequential tests the parallel reduction variant.
func TestPlanarConv2DAccGrad_ReducedMatchesSequential(t *testing.T) {
	rng := rand.New(rand.NewSource(16))
	input := randView(rng, 7, 2, 6, 6)
	gradOutput := randView(rng, 7, 2, 4, 5)

	seq := convParams(rng, 2, 2, 3, 2)
	red := convParams(rng, 2, 2, 3, 2)
	// Both start from the same non-zero gradients: accumulation must add, not overwrite.
	seq.GradWeight.Fill(0.25)
	red.GradWeight.Fill(0.25)

	require.NoError(t, sequentialBackend().PlanarConv2DAccGrad(input, gradOutput, 0.1, seq))
	require.NoError(t, parallelBackend(true).PlanarConv2DAccGrad(input, gradOutput, 0.1, red))

	assert.InDeltaSlice(t, seq.GradWeight.ToSlice(), red.GradWeight.ToSlice(), 1e-12)
	assert.InDeltaSlice(t, seq.GradBias.ToSlice(), red.GradBias.ToSlice(), 1e-12)
}

// TestPlanarConv2DAccGrad_StridedViews tests non-contiguous input, gradOutput and gradient tensors.
func TestPlanarConv2DAccGrad_StridedViews(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	input := randView(rng, 2, 2, 5, 5)
	gradOutput := randView(rng, 2, 2, 4, 3)

	want := convParams(rng, 2, 2, 2, 3)
	require.NoError(t, sequentialBackend().PlanarConv2DAccGrad(input, gradOutput, 1, want))

	got := convParams(rng, 2, 2, 2, 3)
	got.GradWeight = spreadColumns(t, tensor.New[float64](2, 2, 3))
	got.GradBias = spreadColumns(t, tensor.New[float64](2))
	require.NoError(t, sequentialBackend().PlanarConv2DAccGrad(spreadColumns(t, input), spreadColumns(t, gradOutput), 1, got))

	assert.InDeltaSlice(t, want.GradWeight.ToSlice(), got.GradWeight.ToSlice(), 1e-12)
	assert.InDeltaSlice(t, want.GradBias.ToSlice(), got.GradBias.ToSlice(), 1e-12)
}

// TestPlanarConv2DAccGrad_FlippedViews tests negative strides on input, gradOutput and gradient tensors,
// on both the matrix-vector and the row-by-row bias paths.
func TestPlanarConv2DAccGrad_FlippedViews(t *testing.T) {
	rng := rand.New(rand.NewSource(19))
	input := randView(rng, 2, 2, 5, 5)
	gradOutput := randView(rng, 2, 2, 4, 3)

	want := convParams(rng, 2, 2, 2, 3)
	require.NoError(t, sequentialBackend().PlanarConv2DAccGrad(input, gradOutput, 0.5, want))

	for _, dims := range [][]int{{0}, {1}, {3}, {2, 3}} {
		got := convParams(rng, 2, 2, 2, 3)
		got.GradWeight = flipDims(t, tensor.New[float64](2, 2, 3), 0, 2)
		got.GradBias = flipDims(t, tensor.New[float64](2), 0)
		got.Ones = nil
		require.NoError(t, sequentialBackend().PlanarConv2DAccGrad(
			flipDims(t, input, dims...), flipDims(t, gradOutput, dims...), 0.5, got))

		assert.InDeltaSlice(t, want.GradWeight.ToSlice(), got.GradWeight.ToSlice(), 1e-12, "flipped dims %v", dims)
		assert.InDeltaSlice(t, want.GradBias.ToSlice(), got.GradBias.ToSlice(), 1e-12, "flipped dims %v", dims)
	}
}

// TestPlanarConv2DAccGrad_ShapeErrorLeavesGradients tests that a failed call accumulates nothing.
func TestPlanarConv2DAccGrad_ShapeErrorLeavesGradients(t *testing.T) {
	rng := rand.New(rand.NewSource(18))
	backend := New[float64]()
	p := convParams(rng, 2, 2, 2, 2)
	p.GradWeight.Fill(3)
	p.GradBias.Fill(3)

	err := backend.PlanarConv2DAccGrad(randView(rng, 2, 4, 4), randView(rng, 1, 3, 3), 1, p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "number of output features (1) is not equal to nOutputPlane (2)")
	assert.True(t, tensor.IsShapeError(err))
	assert.Equal(t, filled(3, 2, 2, 2).ToSlice(), p.GradWeight.ToSlice())
	assert.Equal(t, []float64{3, 3}, p.GradBias.ToSlice())
	assert.True(t, p.Ones.IsNil())
}

func sum(v tensor.View[float64]) float64 {
	var s float64
	for _, x := range v.ToSlice() {
		s += x
	}
	return s
}
