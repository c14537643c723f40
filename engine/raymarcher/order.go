package raymarcher

import (
	"cmp"
	"slices"

	"github.com/Carmen-Shannon/oxy-sdf/engine/culling"
)

// Order sorts visible layers for submission by their distance to the camera: near to far
// for opaque marching, far to near for cone tracing so premultiplied blending composes back
// to front. Equal distances keep layer order.
//
// Parameters:
//   - candidates: the visible layers in layer order, sorted in place
//   - conetracing: true for far-to-near order
func Order(candidates []culling.Candidate, conetracing bool) {
	slices.SortStableFunc(candidates, func(a, b culling.Candidate) int {
		if conetracing {
			return cmp.Compare(b.Distance, a.Distance)
		}
		return cmp.Compare(a.Distance, b.Distance)
	})
}
