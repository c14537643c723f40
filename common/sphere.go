package common

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Sphere is a bounding sphere. A negative radius marks the sphere as empty.
type Sphere struct {
	Center mgl32.Vec3
	Radius float32
}

// EmptySphere returns a sphere that contains nothing.
func EmptySphere() Sphere {
	return Sphere{Radius: -1}
}

// MakeEmpty resets the sphere to the empty state in place.
func (s *Sphere) MakeEmpty() {
	s.Center = mgl32.Vec3{}
	s.Radius = -1
}

// IsEmpty reports whether the sphere contains no points.
func (s Sphere) IsEmpty() bool {
	return s.Radius < 0
}

// ExpandByPoint grows the sphere the minimal amount needed to contain the point.
//
// Parameters:
//   - p: the point to include
func (s *Sphere) ExpandByPoint(p mgl32.Vec3) {
	if s.IsEmpty() {
		s.Center = p
		s.Radius = 0
		return
	}
	d := p.Sub(s.Center)
	lengthSq := d.Dot(d)
	if lengthSq > s.Radius*s.Radius {
		length := math32.Sqrt(lengthSq)
		delta := (length - s.Radius) * 0.5
		s.Center = s.Center.Add(d.Mul(delta / length))
		s.Radius += delta
	}
}

// Union grows the sphere to enclose other. The sphere never shrinks, an empty
// other is ignored, and an empty receiver becomes a copy of other.
// Folding more than two spheres through Union depends on their order; use
// EnclosingSphere for a set.
//
// Parameters:
//   - other: the sphere to enclose
func (s *Sphere) Union(other Sphere) {
	if other.IsEmpty() {
		return
	}
	if s.IsEmpty() {
		*s = other
		return
	}
	if s.Center.ApproxEqual(other.Center) {
		s.Radius = math32.Max(s.Radius, other.Radius)
		return
	}
	offset := other.Center.Sub(s.Center).Normalize().Mul(other.Radius)
	s.ExpandByPoint(other.Center.Add(offset))
	s.ExpandByPoint(other.Center.Sub(offset))
}

// EnclosingSphere returns a sphere containing every non-empty sphere in spheres.
// The center is the midpoint of the spheres' combined bounding box and the radius
// reaches the farthest surface, so the result is the same for any ordering.
// A single non-empty input is returned unchanged.
//
// Parameters:
//   - spheres: the spheres to enclose, empties are skipped
//
// Returns:
//   - Sphere: the enclosing sphere, empty when every input is empty
func EnclosingSphere(spheres []Sphere) Sphere {
	var lo, hi mgl32.Vec3
	var only Sphere
	n := 0
	for _, s := range spheres {
		if s.IsEmpty() {
			continue
		}
		r := mgl32.Vec3{s.Radius, s.Radius, s.Radius}
		sMin, sMax := s.Center.Sub(r), s.Center.Add(r)
		if n == 0 {
			lo, hi, only = sMin, sMax, s
		} else {
			for k := range 3 {
				lo[k] = math32.Min(lo[k], sMin[k])
				hi[k] = math32.Max(hi[k], sMax[k])
			}
		}
		n++
	}
	switch n {
	case 0:
		return EmptySphere()
	case 1:
		return only
	}

	b := Sphere{Center: lo.Add(hi).Mul(0.5)}
	for _, s := range spheres {
		if s.IsEmpty() {
			continue
		}
		b.Radius = math32.Max(b.Radius, s.Center.Sub(b.Center).Len()+s.Radius)
	}
	return b
}

// ApplyMatrix transforms the sphere by m. The radius is scaled by the largest
// axis scale of m so the result still encloses the transformed volume.
//
// Parameters:
//   - m: the affine transform to apply
//
// Returns:
//   - Sphere: the transformed sphere (empty stays empty)
func (s Sphere) ApplyMatrix(m mgl32.Mat4) Sphere {
	if s.IsEmpty() {
		return s
	}
	return Sphere{
		Center: mgl32.TransformCoordinate(s.Center, m),
		Radius: s.Radius * MaxScaleOnAxis(m),
	}
}

// ContainsPoint reports whether p lies inside or on the sphere.
func (s Sphere) ContainsPoint(p mgl32.Vec3) bool {
	if s.IsEmpty() {
		return false
	}
	d := p.Sub(s.Center)
	return d.Dot(d) <= s.Radius*s.Radius
}

// MaxScaleOnAxis returns the length of the longest basis column of m.
func MaxScaleOnAxis(m mgl32.Mat4) float32 {
	x := m.Col(0).Vec3().Len()
	y := m.Col(1).Vec3().Len()
	z := m.Col(2).Vec3().Len()
	return math32.Max(x, math32.Max(y, z))
}
