package tensor

import (
	"math"
	"math/rand"
)

// Zeros creates a contiguous view filled with zeros.
//
// Example:
//
//	v := tensor.Zeros[float32](3, 4)
func Zeros[T Float](shape ...int) View[T] {
	// Storage is already zero-initialized by make().
	return New[T](shape...)
}

// Ones creates a contiguous view filled with ones.
func Ones[T Float](shape ...int) View[T] {
	return Full[T](1, shape...)
}

// Full creates a contiguous view filled with value.
//
// Example:
//
//	v := tensor.Full[float64](0.5, 2, 3)
func Full[T Float](value T, shape ...int) View[T] {
	v := New[T](shape...)
	v.Fill(value)
	return v
}

// Arange creates a contiguous view holding 0, 1, 2, ... in row-major order.
//
// Example:
//
//	v := tensor.Arange[float32](2, 3) // [[0 1 2] [3 4 5]]
func Arange[T Float](shape ...int) View[T] {
	v := New[T](shape...)
	data := v.Data()
	for i := range data {
		data[i] = T(i)
	}
	return v
}

// Uniform creates a contiguous view with values drawn from U(lo, hi) using rng.
// Note: Uses math/rand (not crypto/rand) - appropriate for ML/statistical purposes.
func Uniform[T Float](rng *rand.Rand, lo, hi float64, shape ...int) View[T] {
	v := New[T](shape...)
	v.FillUniform(rng, lo, hi)
	return v
}

// FillUniform overwrites every element of the view with a draw from U(lo, hi), in row-major order.
func (v View[T]) FillUniform(rng *rand.Rand, lo, hi float64) {
	data := v.storage.data
	v.forEachRow(func(off, n, inc int) {
		for i := 0; i < n; i++ {
			data[off+i*inc] = T(lo + (hi-lo)*rng.Float64())
		}
	})
}

// Randn creates a contiguous view with values from a normal distribution (mean=0, std=1).
// Uses Box-Muller transform for generating normal distribution.
func Randn[T Float](rng *rand.Rand, shape ...int) View[T] {
	v := New[T](shape...)
	data := v.Data()
	for i := 0; i < len(data); i += 2 {
		u1 := 1 - rng.Float64() // (0, 1]: log stays finite.
		u2 := rng.Float64()
		r := math.Sqrt(-2.0 * math.Log(u1))
		data[i] = T(r * math.Cos(2.0*math.Pi*u2))
		if i+1 < len(data) {
			data[i+1] = T(r * math.Sin(2.0*math.Pi*u2))
		}
	}
	return v
}
