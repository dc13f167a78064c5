package nn

import (
	"math"
	"math/rand"
	"time"

	"github.com/born-ml/nnconv/internal/tensor"
)

// Uniform fills every parameter value with draws from U(-stdv, stdv), in order.
// Note: Uses math/rand (not crypto/rand) - appropriate for weight initialization.
func Uniform[T tensor.Float](rng *rand.Rand, stdv float64, params ...*Parameter[T]) {
	for _, p := range params {
		p.value.FillUniform(rng, -stdv, stdv)
	}
}

// fanInStdv returns 1/sqrt(fanIn), the bound of the default uniform initialization.
func fanInStdv(fanIn int) float64 {
	return 1 / math.Sqrt(float64(fanIn))
}

// defaultRand returns rng, or a time-seeded generator when rng is nil.
func defaultRand(rng *rand.Rand) *rand.Rand {
	if rng != nil {
		return rng
	}
	return rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // G404: weights, not secrets
}
