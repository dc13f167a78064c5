package cpu

import (
	"math/rand"
	"testing"

	"github.com/born-ml/nnconv/internal/parallel"
	"github.com/born-ml/nnconv/internal/tensor"
	"github.com/stretchr/testify/require"
)

// randView returns a contiguous view of uniform values in [-1, 1).
func randView(rng *rand.Rand, shape ...int) tensor.View[float64] {
	v := tensor.New[float64](shape...)
	data := v.Data()
	for i := range data {
		data[i] = 2*rng.Float64() - 1
	}
	return v
}

// filled returns a contiguous view with every element set to value.
func filled(value float64, shape ...int) tensor.View[float64] {
	v := tensor.New[float64](shape...)
	v.Fill(value)
	return v
}

func fromSlice(t *testing.T, data []float64, shape ...int) tensor.View[float64] {
	t.Helper()
	v, err := tensor.FromSlice(data, shape...)
	require.NoError(t, err)
	return v
}

// convParams builds parameters with weight [nOut, kH, kW], bias [nOut] and zeroed gradients.
func convParams(rng *rand.Rand, nIn, nOut, kH, kW int) *PlanarConvParams[float64] {
	return &PlanarConvParams[float64]{
		NInputPlane:  nIn,
		NOutputPlane: nOut,
		KW:           kW,
		KH:           kH,
		Weight:       randView(rng, nOut, kH, kW),
		Bias:         randView(rng, nOut),
		GradWeight:   tensor.New[float64](nOut, kH, kW),
		GradBias:     tensor.New[float64](nOut),
		Ones:         new(tensor.View[float64]),
	}
}

// spreadColumns copies v into a larger storage where its last dimension has stride 2 and every
// other stride is padded, so the result is a non-contiguous view with the same values.
func spreadColumns(t *testing.T, v tensor.View[float64]) tensor.View[float64] {
	t.Helper()
	shape := v.Shape()
	rank := len(shape)
	strides := make([]int, rank)
	stride := 2
	for d := rank - 1; d >= 0; d-- {
		strides[d] = stride
		stride = stride*shape[d] + 3
	}
	storage := tensor.NewStorage[float64](stride + 5)
	for i := range storage.Data() {
		storage.Data()[i] = 1e6 // Poison: must never be read.
	}
	out, err := tensor.NewView(storage, 5, shape, strides)
	require.NoError(t, err)
	require.NoError(t, out.CopyFrom(v))
	require.False(t, out.IsContiguous())
	return out
}

// flipDims copies v into a view whose listed dimensions run backwards through storage (negative
// strides), so the result holds the same values in mirrored memory order.
func flipDims(t *testing.T, v tensor.View[float64], dims ...int) tensor.View[float64] {
	t.Helper()
	shape := v.Shape()
	strides := shape.ComputeStrides()
	offset := 0
	for _, d := range dims {
		offset += (shape[d] - 1) * strides[d]
		strides[d] = -strides[d]
	}
	out, err := tensor.NewView(tensor.NewStorage[float64](shape.NumElements()), offset, shape, strides)
	require.NoError(t, err)
	require.NoError(t, out.CopyFrom(v))
	return out
}

func dot(a, b tensor.View[float64]) float64 {
	x, y := a.ToSlice(), b.ToSlice()
	var sum float64
	for i := range x {
		sum += x[i] * y[i]
	}
	return sum
}

func sequentialBackend() *CPUBackend[float64] {
	return NewWithConfig[float64](Config{Parallel: parallel.Sequential()})
}

func parallelBackend(accGrad bool) *CPUBackend[float64] {
	return NewWithConfig[float64](Config{
		Parallel:        parallel.Config{Enabled: true, NumWorkers: 4, MinChunkSize: 1},
		ParallelAccGrad: accGrad,
	})
}
