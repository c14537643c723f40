// Package kernel is the CPU reference of the raymarch kernel: signed distance functions,
// smooth CSG folding, marching, depth reconstruction and shading.
//
// The WGSL kernel in assets/raymarch.wgsl mirrors these functions constant for constant.
package kernel

import (
	"github.com/Carmen-Shannon/oxy-sdf/engine/entity"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	// MaxDistance is the travel distance after which a ray is a miss.
	MaxDistance float32 = 1000
	// MinDistance is the step size under which a ray is a hit.
	MinDistance float32 = 0.05
	// MaxIterations bounds the march loop on degenerate fields.
	MaxIterations = 200
	// MinCoverage is the remaining transmittance at which cone tracing stops.
	MinCoverage float32 = 0.02
	// NormalOffset is the central difference step of the gradient estimate.
	NormalOffset float32 = 0.01
	// BoxRounding is the edge radius of box entities.
	BoxRounding float32 = 0.1
)

// SDF is a signed distance paired with the surface color at the closest point.
type SDF struct {
	Distance float32
	Color    mgl32.Vec3
}

// SdBox is the exact distance to an origin-centered box with half extents r.
func SdBox(p, r mgl32.Vec3) float32 {
	q := mgl32.Vec3{math32.Abs(p[0]) - r[0], math32.Abs(p[1]) - r[1], math32.Abs(p[2]) - r[2]}
	outside := mgl32.Vec3{math32.Max(q[0], 0), math32.Max(q[1], 0), math32.Max(q[2], 0)}.Len()
	inside := math32.Min(math32.Max(q[0], math32.Max(q[1], q[2])), 0)
	return outside + inside
}

// SdEllipsoid is the bound distance to an origin-centered ellipsoid with radii r.
func SdEllipsoid(p, r mgl32.Vec3) float32 {
	k0 := mgl32.Vec3{p[0] / r[0], p[1] / r[1], p[2] / r[2]}.Len()
	k1 := mgl32.Vec3{p[0] / (r[0] * r[0]), p[1] / (r[1] * r[1]), p[2] / (r[2] * r[2])}.Len()
	if k1 == 0 {
		return -math32.Min(r[0], math32.Min(r[1], r[2]))
	}
	return k0 * (k0 - 1) / k1
}

// SdCapsule is the distance to a Y-aligned capsule of the given radius whose total height,
// caps included, is height.
func SdCapsule(p mgl32.Vec3, radius, height float32) float32 {
	half := math32.Max(height*0.5-radius, 0)
	y := p[1] - mgl32.Clamp(p[1], -half, half)
	return mgl32.Vec3{p[0], y, p[2]}.Len() - radius
}

// EntityDistance evaluates one entity at a world-space point.
// Unknown shapes evaluate as boxes, matching the shader's default branch.
//
// Parameters:
//   - p: the world-space sample point
//   - e: the entity
//
// Returns:
//   - SDF: the signed distance and the entity color
func EntityDistance(p mgl32.Vec3, e entity.Entity) SDF {
	local := e.ToLocal(p)
	var d float32
	switch e.Shape {
	case entity.ShapeCapsule:
		d = SdCapsule(local, e.Scale[0]*0.5, e.Scale[1])
	case entity.ShapeSphere:
		d = SdEllipsoid(local, e.Scale.Mul(0.5))
	default:
		half := e.Scale.Mul(0.5)
		rounding := math32.Min(BoxRounding, math32.Min(half[0], math32.Min(half[1], half[2])))
		inner := half.Sub(mgl32.Vec3{rounding, rounding, rounding})
		d = SdBox(local, inner) - rounding
	}
	return SDF{Distance: d, Color: e.Color}
}

// SmoothUnion blends b into the accumulated field a with blend radius k.
// A non-positive k is a hard union.
func SmoothUnion(a, b SDF, k float32) SDF {
	if k <= 0 {
		if b.Distance < a.Distance {
			return b
		}
		return a
	}
	h := mgl32.Clamp(0.5+0.5*(b.Distance-a.Distance)/k, 0, 1)
	return SDF{
		Distance: mix(b.Distance, a.Distance, h) - k*h*(1-h),
		Color:    mixVec3(b.Color, a.Color, h),
	}
}

// SmoothSubtraction carves b out of the accumulated field a with blend radius k.
// A non-positive k is a hard subtraction.
func SmoothSubtraction(a, b SDF, k float32) SDF {
	if k <= 0 {
		if -b.Distance > a.Distance {
			return SDF{Distance: -b.Distance, Color: a.Color}
		}
		return a
	}
	h := mgl32.Clamp(0.5-0.5*(a.Distance+b.Distance)/k, 0, 1)
	return SDF{
		Distance: mix(a.Distance, -b.Distance, h) + k*h*(1-h),
		Color:    mixVec3(a.Color, b.Color, h),
	}
}

// Map folds the entities of a layer into one field, in list order.
// The first entity initializes the accumulator. An empty list is infinitely far away.
//
// Parameters:
//   - p: the world-space sample point
//   - entities: the layer's entities
//   - k: the smooth blend radius
//
// Returns:
//   - SDF: the combined distance and color
func Map(p mgl32.Vec3, entities entity.Layer, k float32) SDF {
	if len(entities) == 0 {
		return SDF{Distance: MaxDistance}
	}
	scene := EntityDistance(p, entities[0])
	for _, e := range entities[1:] {
		d := EntityDistance(p, e)
		if e.Operation == entity.OperationSubtraction {
			scene = SmoothSubtraction(scene, d, k)
		} else {
			scene = SmoothUnion(scene, d, k)
		}
	}
	return scene
}

// Normal estimates the field gradient at p by central differences.
func Normal(p mgl32.Vec3, entities entity.Layer, k float32) mgl32.Vec3 {
	o := NormalOffset
	n := mgl32.Vec3{
		Map(p.Add(mgl32.Vec3{o, 0, 0}), entities, k).Distance - Map(p.Sub(mgl32.Vec3{o, 0, 0}), entities, k).Distance,
		Map(p.Add(mgl32.Vec3{0, o, 0}), entities, k).Distance - Map(p.Sub(mgl32.Vec3{0, o, 0}), entities, k).Distance,
		Map(p.Add(mgl32.Vec3{0, 0, o}), entities, k).Distance - Map(p.Sub(mgl32.Vec3{0, 0, o}), entities, k).Distance,
	}
	if n.Len() == 0 {
		return mgl32.Vec3{0, 1, 0}
	}
	return n.Normalize()
}

func mix(a, b, t float32) float32 {
	return a + (b-a)*t
}

func mixVec3(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}
