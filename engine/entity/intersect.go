package entity

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// IntersectRay casts a world-space ray against the entity's bounding proxy.
// Only surfaces the ray enters are reported, so a ray starting inside the proxy misses.
//
// Parameters:
//   - origin: ray origin in world space
//   - dir: unit ray direction in world space
//
// Returns:
//   - float32: world-space distance along the ray to the hit
//   - bool: true if the ray hits the proxy
func (e Entity) IntersectRay(origin, dir mgl32.Vec3) (float32, bool) {
	c := ColliderFor(e.Shape)
	m := e.ColliderMatrix()
	if math32.Abs(m.Det()) < 1e-12 {
		return 0, false
	}
	inv := m.Inv()
	o := mgl32.TransformCoordinate(origin, inv)
	d := mgl32.TransformNormal(dir, inv)

	// The ray parameter survives the affine map unchanged, so t is a world distance.
	var t float32
	var ok bool
	switch c.Kind {
	case ProxyBox:
		t, ok = rayBox(o, d, c.HalfExtents)
	case ProxyCylinder:
		t, ok = rayCylinder(o, d, c.Radius, c.HalfHeight)
	case ProxySphere:
		t, ok = raySphere(o, d, c.Radius)
	}
	return t, ok
}

// rayBox is the slab test against an origin-centered box.
func rayBox(o, d, half mgl32.Vec3) (float32, bool) {
	tNear := math32.Inf(-1)
	tFar := math32.Inf(1)
	for i := range 3 {
		if math32.Abs(d[i]) < 1e-12 {
			if o[i] < -half[i] || o[i] > half[i] {
				return 0, false
			}
			continue
		}
		inv := 1 / d[i]
		t0 := (-half[i] - o[i]) * inv
		t1 := (half[i] - o[i]) * inv
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		tNear = math32.Max(tNear, t0)
		tFar = math32.Min(tFar, t1)
		if tNear > tFar {
			return 0, false
		}
	}
	if tNear < 0 {
		return 0, false
	}
	return tNear, true
}

// raySphere intersects an origin-centered sphere.
func raySphere(o, d mgl32.Vec3, r float32) (float32, bool) {
	a := d.Dot(d)
	b := o.Dot(d)
	c := o.Dot(o) - r*r
	disc := b*b - a*c
	if disc < 0 {
		return 0, false
	}
	t := (-b - math32.Sqrt(disc)) / a
	if t < 0 {
		return 0, false
	}
	return t, true
}

// rayCylinder intersects a Y-aligned capped cylinder centered on the origin.
func rayCylinder(o, d mgl32.Vec3, r, halfHeight float32) (float32, bool) {
	best := math32.Inf(1)

	a := d.X()*d.X() + d.Z()*d.Z()
	if a > 1e-12 {
		b := o.X()*d.X() + o.Z()*d.Z()
		c := o.X()*o.X() + o.Z()*o.Z() - r*r
		disc := b*b - a*c
		if disc >= 0 {
			t := (-b - math32.Sqrt(disc)) / a
			if y := o.Y() + t*d.Y(); t >= 0 && y >= -halfHeight && y <= halfHeight {
				best = t
			}
		}
	}

	if math32.Abs(d.Y()) > 1e-12 {
		for _, capY := range [2]float32{-halfHeight, halfHeight} {
			t := (capY - o.Y()) / d.Y()
			if t < 0 || t >= best {
				continue
			}
			x := o.X() + t*d.X()
			z := o.Z() + t*d.Z()
			if x*x+z*z > r*r {
				continue
			}
			// Only count a cap the ray enters from outside.
			if (capY > 0 && d.Y() < 0) || (capY < 0 && d.Y() > 0) {
				best = t
			}
		}
	}

	if math32.IsInf(best, 1) {
		return 0, false
	}
	return best, true
}
