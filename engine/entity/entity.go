package entity

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-sdf/common"
	"github.com/go-gl/mathgl/mgl32"
)

// Shape selects the distance function of an Entity. The numeric values are
// shared with the raymarch shader and must not be reordered.
type Shape uint32

const (
	ShapeBox     Shape = 0
	ShapeCapsule Shape = 1
	ShapeSphere  Shape = 2
)

// String returns the lowercase shape name.
func (s Shape) String() string {
	switch s {
	case ShapeBox:
		return "box"
	case ShapeCapsule:
		return "capsule"
	case ShapeSphere:
		return "sphere"
	default:
		return fmt.Sprintf("shape(%d)", uint32(s))
	}
}

// Operation selects how an Entity folds into the distance accumulated by the
// entities listed before it in the same layer.
type Operation uint32

const (
	OperationUnion       Operation = 0
	OperationSubtraction Operation = 1
)

// String returns the lowercase operation name.
func (o Operation) String() string {
	switch o {
	case OperationUnion:
		return "union"
	case OperationSubtraction:
		return "subtraction"
	default:
		return fmt.Sprintf("operation(%d)", uint32(o))
	}
}

var (
	// ErrUnknownShape is returned when an entity carries a shape with no distance function.
	ErrUnknownShape = errors.New("entity: unknown shape")

	// ErrUnknownOperation is returned when an entity carries an unsupported CSG operation.
	ErrUnknownOperation = errors.New("entity: unknown operation")
)

// ParseShape converts a lowercase shape name into a Shape.
//
// Parameters:
//   - name: "box", "capsule" or "sphere"
//
// Returns:
//   - Shape: the parsed shape
//   - error: ErrUnknownShape wrapped with the offending name
func ParseShape(name string) (Shape, error) {
	switch name {
	case "box":
		return ShapeBox, nil
	case "capsule":
		return ShapeCapsule, nil
	case "sphere":
		return ShapeSphere, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownShape, name)
}

// ParseOperation converts a lowercase operation name into an Operation.
// "substraction" is accepted as an alias of "subtraction".
//
// Parameters:
//   - name: "union" or "subtraction"
//
// Returns:
//   - Operation: the parsed operation
//   - error: ErrUnknownOperation wrapped with the offending name
func ParseOperation(name string) (Operation, error) {
	switch name {
	case "union", "":
		return OperationUnion, nil
	case "subtraction", "substraction":
		return OperationSubtraction, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownOperation, name)
}

// Entity is one implicit-surface primitive. It is a plain value: copying an
// Entity copies every field, and it owns no GPU state.
type Entity struct {
	Shape     Shape
	Operation Operation
	Position  mgl32.Vec3
	Rotation  mgl32.Quat
	Scale     mgl32.Vec3
	Color     mgl32.Vec3
}

// NewEntity creates an Entity with default values, then applies each option in order.
// Defaults are a white unit box at the origin with identity rotation, combined by union.
//
// Parameters:
//   - options: functional options to configure the entity
//
// Returns:
//   - Entity: the configured entity
func NewEntity(options ...EntityBuilderOption) Entity {
	e := Entity{
		Shape:     ShapeBox,
		Operation: OperationUnion,
		Rotation:  mgl32.QuatIdent(),
		Scale:     mgl32.Vec3{1, 1, 1},
		Color:     mgl32.Vec3{1, 1, 1},
	}
	for _, opt := range options {
		opt(&e)
	}
	return e
}

// Validate reports configuration errors that would make the entity impossible to evaluate.
//
// Returns:
//   - error: ErrUnknownShape or ErrUnknownOperation when the enum is out of range, nil otherwise
func (e Entity) Validate() error {
	if e.Shape > ShapeSphere {
		return fmt.Errorf("%w: %d", ErrUnknownShape, uint32(e.Shape))
	}
	if e.Operation > OperationSubtraction {
		return fmt.Errorf("%w: %d", ErrUnknownOperation, uint32(e.Operation))
	}
	return nil
}

// ToLocal maps a world-space point into the entity's unrotated local frame.
// Scale is not applied; the distance functions consume it directly.
func (e Entity) ToLocal(p mgl32.Vec3) mgl32.Vec3 {
	return e.Rotation.Normalize().Conjugate().Rotate(p.Sub(e.Position))
}

// ColliderMatrix returns the world transform of the entity's bounding proxy.
// It is T(position) * R(rotation) * S(scale) where the scale has passed through
// the shape's collider scale rule.
//
// Returns:
//   - mgl32.Mat4: the proxy's model matrix
func (e Entity) ColliderMatrix() mgl32.Mat4 {
	c := ColliderFor(e.Shape)
	s := c.ProxyScale(e.Scale)
	return mgl32.Translate3D(e.Position.X(), e.Position.Y(), e.Position.Z()).
		Mul4(e.Rotation.Normalize().Mat4()).
		Mul4(mgl32.Scale3D(s.X(), s.Y(), s.Z()))
}

// WorldBounds returns the entity's bounding proxy sphere in world space.
//
// Returns:
//   - common.Sphere: the transformed bounding sphere
func (e Entity) WorldBounds() common.Sphere {
	return ColliderFor(e.Shape).Bounds.ApplyMatrix(e.ColliderMatrix())
}
