package cpu

import "github.com/born-ml/nnconv/internal/tensor"

// PeriodicParams configures periodic subsampling: the x (last) dimension is decimated by DW
// starting at IW, the y (second to last) dimension by DH starting at IH.
type PeriodicParams struct {
	DW, DH int
	IW, IH int
}

// resampleGeometry holds the spatial extents of a (destination, source) pair of views.
type resampleGeometry struct {
	lead       tensor.Shape // non-spatial dimensions shared by both views
	dstH, dstW int
	srcH, srcW int
}

// checkResampleViews validates a destination/source pair of rank 3 to 5 that agree on every
// dimension except the two trailing spatial ones.
func checkResampleViews[T tensor.Float](op string, dst, src tensor.View[T]) (resampleGeometry, error) {
	if dst.IsNil() || src.IsNil() {
		return resampleGeometry{}, tensor.PreconditionErrorf(op, "nil view")
	}
	rank := src.Rank()
	if rank < 3 || rank > 5 {
		return resampleGeometry{}, tensor.ShapeErrorf(op, "3D, 4D or 5D tensor expected, got %dD", rank)
	}
	if dst.Rank() != rank {
		return resampleGeometry{}, tensor.ShapeErrorf(op, "rank mismatch: %dD and %dD", dst.Rank(), rank)
	}
	lead := src.Shape()[:rank-2]
	if !lead.Equal(dst.Shape()[:rank-2]) {
		return resampleGeometry{}, tensor.ShapeErrorf(op, "non-spatial dimensions differ: %v and %v",
			dst.Shape(), src.Shape())
	}
	return resampleGeometry{
		lead: lead,
		dstH: dst.Size(rank - 2), dstW: dst.Size(rank - 1),
		srcH: src.Size(rank - 2), srcW: src.Size(rank - 1),
	}, nil
}

// forEachPlane calls fn with the storage offsets of every 2D spatial plane of dst and src.
func forEachPlane[T tensor.Float](g resampleGeometry, dst, src tensor.View[T], fn func(dstOff, srcOff int)) {
	tensor.ForEachIndex(g.lead, func(index []int) {
		fn(dst.OffsetOf(index...), src.OffsetOf(index...))
	})
}

// spatialStrides returns the y and x strides of a view.
func spatialStrides[T tensor.Float](v tensor.View[T]) (sy, sx int) {
	rank := v.Rank()
	return v.Stride(rank - 2), v.Stride(rank - 1)
}
