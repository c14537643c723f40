package kernel

import (
	"github.com/Carmen-Shannon/oxy-sdf/common"
	"github.com/Carmen-Shannon/oxy-sdf/engine/entity"
	"github.com/Carmen-Shannon/oxy-sdf/engine/light"
	"github.com/go-gl/mathgl/mgl32"
)

// Params is everything one layer draw needs besides the ray.
type Params struct {
	CameraPosition mgl32.Vec3
	CameraForward  mgl32.Vec3
	Projection     CameraProjection
	Blending       float32
	Bounds         common.Sphere
	Lights         []light.GPULight
	Material       Material
	// Conetracing switches from opaque sphere tracing to coverage accumulation.
	Conetracing bool
	// ConeRadius is the pixel footprint per unit of distance, used only when Conetracing.
	ConeRadius float32
}

// Fragment is the output of evaluating one pixel of one layer.
type Fragment struct {
	// Color is sRGB encoded. In cone-tracing mode it is premultiplied by A.
	Color mgl32.Vec4
	// Depth is the window depth in [0, 1].
	Depth float32
	// Discard is true when nothing was hit and the target must be left untouched.
	Discard bool
}

// Evaluate runs the kernel for one ray against one layer.
//
// Parameters:
//   - r: the view ray
//   - entities: the layer's entities
//   - p: the per-draw parameters
//
// Returns:
//   - Fragment: the pixel result
func Evaluate(r Ray, entities entity.Layer, p Params) Fragment {
	if p.Conetracing {
		return evaluateCone(r, entities, p)
	}
	hit := March(r, entities, p.Blending, p.Bounds)
	if !hit.Hit {
		return Fragment{Discard: true}
	}
	n := Normal(hit.Position, entities, p.Blending)
	c := LinearToSRGB(Shade(hit.Color, hit.Position, n, r.Direction, p.CameraPosition, p.Lights, p.Material))
	return Fragment{
		Color: c.Vec4(1),
		Depth: Depth(hit.Distance, r.Direction, p.CameraForward, p.Projection),
	}
}

func evaluateCone(r Ray, entities entity.Layer, p Params) Fragment {
	var color mgl32.Vec3
	first := float32(-1)
	coverage := ConeTrace(r, entities, p.Blending, p.Bounds, p.ConeRadius, func(s Sample, coverage float32) {
		if first < 0 {
			first = s.Distance
		}
		n := Normal(s.Position, entities, p.Blending)
		shaded := Shade(s.Color, s.Position, n, r.Direction, p.CameraPosition, p.Lights, p.Material)
		color = color.Add(shaded.Mul(coverage * s.Alpha))
	})
	alpha := 1 - coverage
	if first < 0 || alpha <= 0 {
		return Fragment{Discard: true}
	}
	encoded := LinearToSRGB(color.Mul(1 / alpha)).Mul(alpha)
	return Fragment{
		Color: encoded.Vec4(alpha),
		Depth: Depth(first, r.Direction, p.CameraForward, p.Projection),
	}
}
