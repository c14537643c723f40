package entity

import "github.com/go-gl/mathgl/mgl32"

// EntityBuilderOption is a functional option for configuring an Entity.
type EntityBuilderOption func(e *Entity)

// WithShape sets the entity's distance function.
//
// Parameters:
//   - shape: the shape to use
//
// Returns:
//   - EntityBuilderOption: option function to apply
func WithShape(shape Shape) EntityBuilderOption {
	return func(e *Entity) {
		e.Shape = shape
	}
}

// WithOperation sets how the entity combines with the entities before it.
//
// Parameters:
//   - op: the CSG operation
//
// Returns:
//   - EntityBuilderOption: option function to apply
func WithOperation(op Operation) EntityBuilderOption {
	return func(e *Entity) {
		e.Operation = op
	}
}

// WithPosition sets the entity's center.
//
// Parameters:
//   - x, y, z: the position components
//
// Returns:
//   - EntityBuilderOption: option function to apply
func WithPosition(x, y, z float32) EntityBuilderOption {
	return func(e *Entity) {
		e.Position = mgl32.Vec3{x, y, z}
	}
}

// WithRotation sets the entity's orientation.
//
// Parameters:
//   - q: the rotation quaternion, normalized on use
//
// Returns:
//   - EntityBuilderOption: option function to apply
func WithRotation(q mgl32.Quat) EntityBuilderOption {
	return func(e *Entity) {
		e.Rotation = q
	}
}

// WithScale sets the entity's full extents on each axis.
//
// Parameters:
//   - x, y, z: the size components
//
// Returns:
//   - EntityBuilderOption: option function to apply
func WithScale(x, y, z float32) EntityBuilderOption {
	return func(e *Entity) {
		e.Scale = mgl32.Vec3{x, y, z}
	}
}

// WithColor sets the entity's base reflectance in linear RGB.
//
// Parameters:
//   - r, g, b: the color components
//
// Returns:
//   - EntityBuilderOption: option function to apply
func WithColor(r, g, b float32) EntityBuilderOption {
	return func(e *Entity) {
		e.Color = mgl32.Vec3{r, g, b}
	}
}
