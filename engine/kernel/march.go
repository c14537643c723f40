package kernel

import (
	"github.com/Carmen-Shannon/oxy-sdf/common"
	"github.com/Carmen-Shannon/oxy-sdf/engine/entity"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Ray is a world-space half line with a unit direction.
type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float32) mgl32.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// Hit is the result of marching one ray.
type Hit struct {
	// Hit is false when the ray left the bounds, exceeded MaxDistance or ran out of iterations.
	Hit bool
	// Distance is the travel distance from the ray origin to the surface.
	Distance float32
	// Position is the surface point, pulled back by MinDistance along the ray.
	Position mgl32.Vec3
	// Color is the blended entity color at the surface.
	Color mgl32.Vec3
	// Iterations is the number of field evaluations spent.
	Iterations int
}

// Segment clips a ray against a bounding sphere.
//
// Parameters:
//   - r: the ray
//   - bounds: the layer bound, empty means unbounded
//
// Returns:
//   - near, far: the travel interval inside the bound, clamped to [0, MaxDistance]
//   - ok: false if the ray misses the bound
func Segment(r Ray, bounds common.Sphere) (near, far float32, ok bool) {
	if bounds.IsEmpty() {
		return 0, MaxDistance, true
	}
	oc := r.Origin.Sub(bounds.Center)
	b := oc.Dot(r.Direction)
	c := oc.Dot(oc) - bounds.Radius*bounds.Radius
	disc := b*b - c
	if disc < 0 {
		return 0, 0, false
	}
	s := math32.Sqrt(disc)
	near = math32.Max(-b-s, 0)
	far = math32.Min(-b+s, MaxDistance)
	if far < near {
		return 0, 0, false
	}
	return near, far, true
}

// March sphere-traces a ray through a layer's field.
// The march starts where the ray enters the layer bound and gives up once it leaves it.
//
// Parameters:
//   - r: the view ray
//   - entities: the layer's entities
//   - k: the smooth blend radius
//   - bounds: the layer's bounding sphere
//
// Returns:
//   - Hit: the surface hit, with Hit false on a miss
func March(r Ray, entities entity.Layer, k float32, bounds common.Sphere) Hit {
	near, far, ok := Segment(r, bounds)
	if !ok || len(entities) == 0 {
		return Hit{}
	}

	distance := near
	step := SDF{Distance: MaxDistance}
	iterations := 0
	for step.Distance > MinDistance && distance < far && iterations < MaxIterations {
		step = Map(r.At(distance), entities, k)
		distance += step.Distance
		iterations++
	}
	if step.Distance > MinDistance {
		return Hit{Iterations: iterations}
	}
	return Hit{
		Hit:        true,
		Distance:   distance,
		Position:   r.At(distance - MinDistance),
		Color:      step.Color,
		Iterations: iterations,
	}
}

// Sample is one cone-tracing contribution along a ray.
type Sample struct {
	Position mgl32.Vec3
	Distance float32
	Color    mgl32.Vec3
	// Alpha is the fraction of the pixel footprint the surface covers at this step.
	Alpha float32
}

// ConeTrace marches a cone of half-width coneRadius * distance through the field and
// reports every step whose surface overlaps the cone, front to back, until the
// remaining coverage drops under MinCoverage.
//
// Parameters:
//   - r: the view ray
//   - entities: the layer's entities
//   - k: the smooth blend radius
//   - bounds: the layer's bounding sphere
//   - coneRadius: the pixel footprint per unit of distance
//   - visit: receives each sample and the coverage left in front of it
//
// Returns:
//   - float32: the coverage left after the march, 1 means fully transparent
func ConeTrace(r Ray, entities entity.Layer, k float32, bounds common.Sphere, coneRadius float32, visit func(s Sample, coverage float32)) float32 {
	near, far, ok := Segment(r, bounds)
	coverage := float32(1)
	if !ok || len(entities) == 0 {
		return coverage
	}

	distance := near
	for iterations := 0; distance < far && iterations < MaxIterations; iterations++ {
		p := r.At(distance)
		step := Map(p, entities, k)
		cone := math32.Max(coneRadius*distance, MinDistance*0.5)
		if step.Distance < cone {
			alpha := smoothstep(cone, -cone, step.Distance)
			visit(Sample{Position: p, Distance: distance, Color: step.Color, Alpha: alpha}, coverage)
			coverage *= 1 - alpha
			if coverage <= MinCoverage {
				break
			}
		}
		distance += math32.Max(math32.Abs(step.Distance), MinDistance)
	}
	return coverage
}

// CameraProjection holds the three projection terms the depth reconstruction needs.
type CameraProjection struct {
	// Focal is 1 / tan(fov / 2).
	Focal float32
	// A is (far + near) / (far - near).
	A float32
	// B is 2 * far * near / (far - near).
	B float32
}

// NewCameraProjection derives the depth terms from perspective parameters.
//
// Parameters:
//   - fov: vertical field of view in radians
//   - near, far: the clip plane distances
//
// Returns:
//   - CameraProjection: the terms
func NewCameraProjection(fov, near, far float32) CameraProjection {
	return CameraProjection{
		Focal: 1 / math32.Tan(fov/2),
		A:     (far + near) / (far - near),
		B:     2 * far * near / (far - near),
	}
}

// Depth converts a travel distance into a window depth in [0, 1] that matches
// the OpenGL-style projection of the host camera.
//
// Parameters:
//   - distance: travel distance along the ray
//   - dir: the unit ray direction
//   - forward: the unit camera forward vector
//   - proj: the camera projection terms
//
// Returns:
//   - float32: the window-space depth
func Depth(distance float32, dir, forward mgl32.Vec3, proj CameraProjection) float32 {
	ndc := proj.A + proj.B/(-distance*forward.Dot(dir))
	return mgl32.Clamp((ndc+1)*0.5, 0, 1)
}

// CameraRay builds the world-space view ray through a point of the image plane.
//
// Parameters:
//   - world: the camera-to-world matrix
//   - proj: the camera projection terms
//   - aspect: image width / height
//   - ndcX, ndcY: the pixel center in normalized device coordinates, y up
//
// Returns:
//   - Ray: the view ray starting at the camera position
func CameraRay(world mgl32.Mat4, proj CameraProjection, aspect, ndcX, ndcY float32) Ray {
	local := mgl32.Vec4{ndcX * aspect, ndcY, -proj.Focal, 0}
	dir := world.Mul4x1(local).Vec3().Normalize()
	return Ray{Origin: world.Col(3).Vec3(), Direction: dir}
}

func smoothstep(edge0, edge1, x float32) float32 {
	t := mgl32.Clamp((x-edge0)/(edge1-edge0), 0, 1)
	return t * t * (3 - 2*t)
}
