package cpu

import "github.com/born-ml/nnconv/internal/tensor"

// batchView promotes a 3D [plane, height, width] view to batch mode [1, plane, height, width].
// 4D views are returned unchanged. The caller's descriptor is never modified.
func batchView[T tensor.Float](v tensor.View[T]) tensor.View[T] {
	if v.Rank() == 3 {
		return v.Unsqueeze0()
	}
	return v
}

// unbatch demotes a batch-mode result back to 3D when the input arrived without a batch dimension.
func unbatch[T tensor.Float](v *tensor.View[T], batched bool) {
	if !batched && v.Rank() == 4 {
		*v = v.Select(0)
	}
}
