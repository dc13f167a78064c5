// Package vec implements the strided vector primitives shared by the CPU kernels.
//
// float32 and float64 slices go through gonum's BLAS (blas32/blas64). Named float types and
// non-positive increments take a plain loop, which also defines the reference semantics.
//
// Increments follow BLAS: with a negative increment the slice starts at the lowest-addressed
// element, which is visited last. Strided builds such a slice from a first-element offset.
package vec

import (
	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/blas/blas64"
)

// Float is the element constraint of all primitives.
type Float interface {
	constraints.Float
}

// Strided returns data from the lowest-addressed of the n elements that start at off and
// advance by inc. The result is what the primitives expect for that vector.
func Strided[T Float](data []T, off, n, inc int) []T {
	if inc < 0 && n > 0 {
		off += (n - 1) * inc
	}
	return data[off:]
}

// start returns the index of element 0 of an n-element vector with increment inc.
func start(n, inc int) int {
	if inc < 0 {
		return (1 - n) * inc
	}
	return 0
}

// Fill sets element i of the vector x with increment incX to alpha, for i in [0, n).
func Fill[T Float](n int, x []T, incX int, alpha T) {
	if n <= 0 {
		return
	}
	if incX == 1 {
		x = x[:n]
		for i := range x {
			x[i] = alpha
		}
		return
	}
	for i, ix := 0, start(n, incX); i < n; i, ix = i+1, ix+incX {
		x[ix] = alpha
	}
}

// Axpy accumulates y[i] += alpha * x[i] over the strided vectors x and y.
func Axpy[T Float](n int, alpha T, x []T, incX int, y []T, incY int) {
	if n <= 0 {
		return
	}
	if incX > 0 && incY > 0 {
		switch xs := any(x).(type) {
		case []float64:
			blas64.Axpy(float64(alpha),
				blas64.Vector{N: n, Data: xs, Inc: incX},
				blas64.Vector{N: n, Data: any(y).([]float64), Inc: incY})
			return
		case []float32:
			blas32.Axpy(float32(alpha),
				blas32.Vector{N: n, Data: xs, Inc: incX},
				blas32.Vector{N: n, Data: any(y).([]float32), Inc: incY})
			return
		}
	}
	for i, ix, iy := 0, start(n, incX), start(n, incY); i < n; i, ix, iy = i+1, ix+incX, iy+incY {
		y[iy] += alpha * x[ix]
	}
}

// Dot returns sum_i x[i] * y[i] over the strided vectors x and y.
func Dot[T Float](n int, x []T, incX int, y []T, incY int) T {
	if n <= 0 {
		return 0
	}
	if incX > 0 && incY > 0 {
		switch xs := any(x).(type) {
		case []float64:
			return T(blas64.Dot(
				blas64.Vector{N: n, Data: xs, Inc: incX},
				blas64.Vector{N: n, Data: any(y).([]float64), Inc: incY}))
		case []float32:
			return T(blas32.Dot(
				blas32.Vector{N: n, Data: xs, Inc: incX},
				blas32.Vector{N: n, Data: any(y).([]float32), Inc: incY}))
		}
	}
	var sum T
	for i, ix, iy := 0, start(n, incX), start(n, incY); i < n; i, ix, iy = i+1, ix+incX, iy+incY {
		sum += x[ix] * y[iy]
	}
	return sum
}

// Gemv computes y = alpha*A*x + beta*y for the row-major rows x cols matrix A with row stride lda.
//
// A must have unit column stride and lda >= 0. When lda < cols (overlapping rows, which BLAS
// rejects) each row is reduced with Dot instead.
func Gemv[T Float](rows, cols int, alpha T, a []T, lda int, x []T, incX int, beta T, y []T, incY int) {
	if rows <= 0 {
		return
	}
	if cols > 0 && lda >= cols && incX > 0 && incY > 0 {
		switch as := any(a).(type) {
		case []float64:
			blas64.Gemv(blas.NoTrans, float64(alpha),
				blas64.General{Rows: rows, Cols: cols, Data: as, Stride: lda},
				blas64.Vector{N: cols, Data: any(x).([]float64), Inc: incX},
				float64(beta),
				blas64.Vector{N: rows, Data: any(y).([]float64), Inc: incY})
			return
		case []float32:
			blas32.Gemv(blas.NoTrans, float32(alpha),
				blas32.General{Rows: rows, Cols: cols, Data: as, Stride: lda},
				blas32.Vector{N: cols, Data: any(x).([]float32), Inc: incX},
				float32(beta),
				blas32.Vector{N: rows, Data: any(y).([]float32), Inc: incY})
			return
		}
	}
	for r, iy := 0, start(rows, incY); r < rows; r, iy = r+1, iy+incY {
		y[iy] = alpha*Dot(cols, a[r*lda:], 1, x, incX) + beta*y[iy]
	}
}
