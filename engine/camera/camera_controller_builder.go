package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraControllerOption is a functional option for configuring an orbit controller.
type CameraControllerOption func(*cameraControllerImpl)

// WithRadius sets the initial orbit radius.
//
// Parameters:
//   - radius: distance from the target
//
// Returns:
//   - CameraControllerOption: option function to apply
func WithRadius(radius float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.radius = radius
	}
}

// WithAzimuth sets the initial horizontal angle in radians.
//
// Parameters:
//   - azimuth: angle around the Y axis
//
// Returns:
//   - CameraControllerOption: option function to apply
func WithAzimuth(azimuth float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.azimuth = azimuth
	}
}

// WithElevation sets the initial vertical angle in radians.
//
// Parameters:
//   - elevation: angle above the horizontal plane
//
// Returns:
//   - CameraControllerOption: option function to apply
func WithElevation(elevation float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.elevation = elevation
	}
}

// WithOrbitTarget sets the pivot point of the orbit.
//
// Parameters:
//   - x, y, z: world-space pivot
//
// Returns:
//   - CameraControllerOption: option function to apply
func WithOrbitTarget(x, y, z float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.target = mgl32.Vec3{x, y, z}
	}
}

// WithRadiusBounds sets the zoom limits.
//
// Parameters:
//   - min, max: the radius bounds
//
// Returns:
//   - CameraControllerOption: option function to apply
func WithRadiusBounds(min, max float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.minRadius = min
		cc.maxRadius = max
	}
}

// WithMouseSensitivity sets the radians of orbit per pixel of drag.
//
// Parameters:
//   - sensitivity: the drag scale
//
// Returns:
//   - CameraControllerOption: option function to apply
func WithMouseSensitivity(sensitivity float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.mouseSensitivity = sensitivity
	}
}

// WithZoomSpeed sets the radius change per unit of zoom delta.
//
// Parameters:
//   - speed: the zoom scale
//
// Returns:
//   - CameraControllerOption: option function to apply
func WithZoomSpeed(speed float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.zoomSpeed = speed
	}
}
