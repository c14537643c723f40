package entity

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-sdf/common"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// ProxyKind identifies the bounding proxy geometry of a shape.
type ProxyKind int

const (
	// ProxyBox is an axis-aligned unit cube centered at the origin.
	ProxyBox ProxyKind = iota
	// ProxyCylinder is a Y-aligned cylinder with radius 0.5 and height 1.
	ProxyCylinder
	// ProxySphere is a sphere of radius 0.5.
	ProxySphere
)

// Collider describes the bounding proxy used for culling and picking a shape.
// All dimensions are in proxy space before the entity transform is applied.
type Collider struct {
	Kind ProxyKind
	// Bounds is the object-space sphere enclosing the proxy.
	Bounds common.Sphere
	// HalfExtents is the half size of a box proxy.
	HalfExtents mgl32.Vec3
	// Radius is the radius of a cylinder or sphere proxy.
	Radius float32
	// HalfHeight is the half height of a cylinder proxy.
	HalfHeight float32
	// LockZToX copies the X scale into Z before the transform is built.
	LockZToX bool
}

var (
	boxCollider = Collider{
		Kind:        ProxyBox,
		Bounds:      common.Sphere{Radius: math32.Sqrt(3) / 2},
		HalfExtents: mgl32.Vec3{0.5, 0.5, 0.5},
	}
	capsuleCollider = Collider{
		Kind:       ProxyCylinder,
		Bounds:     common.Sphere{Radius: math32.Sqrt(0.5)},
		Radius:     0.5,
		HalfHeight: 0.5,
		LockZToX:   true,
	}
	sphereCollider = Collider{
		Kind:   ProxySphere,
		Bounds: common.Sphere{Radius: 0.5},
		Radius: 0.5,
	}
)

// ColliderFor returns the bounding proxy of a shape.
// An unknown shape is a programming error and panics; call Entity.Validate
// on untrusted input first.
//
// Parameters:
//   - shape: the entity shape
//
// Returns:
//   - Collider: the proxy descriptor
func ColliderFor(shape Shape) Collider {
	switch shape {
	case ShapeBox:
		return boxCollider
	case ShapeCapsule:
		return capsuleCollider
	case ShapeSphere:
		return sphereCollider
	}
	panic(fmt.Sprintf("entity: no collider for shape %d", uint32(shape)))
}

// ProxyScale applies the collider's scale rule to an entity scale.
// The capsule is round in XZ with its radius taken from X, so its Z scale follows X.
//
// Parameters:
//   - scale: the entity scale
//
// Returns:
//   - mgl32.Vec3: the scale used for the proxy transform
func (c Collider) ProxyScale(scale mgl32.Vec3) mgl32.Vec3 {
	if c.LockZToX {
		scale[2] = scale[0]
	}
	return scale
}
