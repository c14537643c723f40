package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-sdf/common"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

type cameraImpl struct {
	mu *sync.Mutex

	position mgl32.Vec3
	target   mgl32.Vec3
	up       mgl32.Vec3

	fov    float32
	aspect float32
	near   float32
	far    float32

	layers   common.LayerMask
	viewport common.Viewport

	worldMatrix          mgl32.Mat4
	viewMatrix           mgl32.Mat4
	projectionMatrix     mgl32.Mat4
	viewProjectionMatrix mgl32.Mat4

	controller CameraController
}

// Camera defines the interface for a perspective camera.
//
// Matrices follow the OpenGL clip-space convention produced by mgl32.Perspective, so
// the depth reconstruction of the raymarch kernel composites against the same depth range.
// The camera reads position and target from an attached CameraController on Update;
// without a controller they are set directly.
type Camera interface {
	// Position returns the camera's world-space position.
	//
	// Returns:
	//   - mgl32.Vec3: the eye position
	Position() mgl32.Vec3

	// Target returns the world-space point the camera looks at.
	//
	// Returns:
	//   - mgl32.Vec3: the look-at point
	Target() mgl32.Vec3

	// Up returns the camera's up vector.
	//
	// Returns:
	//   - mgl32.Vec3: the up vector
	Up() mgl32.Vec3

	// WorldDirection returns the unit forward vector in world space.
	//
	// Returns:
	//   - mgl32.Vec3: normalize(target - position)
	WorldDirection() mgl32.Vec3

	// Fov returns the vertical field of view in radians.
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	Aspect() float32

	// Near returns the near clipping plane distance.
	Near() float32

	// Far returns the far clipping plane distance.
	Far() float32

	// Layers returns the camera's visibility mask.
	Layers() common.LayerMask

	// Viewport returns the custom viewport of the camera.
	//
	// Returns:
	//   - common.Viewport: the viewport rectangle
	//   - bool: false if the camera renders to the full target
	Viewport() (common.Viewport, bool)

	// WorldMatrix returns the camera-to-world transform.
	WorldMatrix() mgl32.Mat4

	// ViewMatrix returns the inverse world matrix.
	ViewMatrix() mgl32.Mat4

	// ProjectionMatrix returns the perspective projection matrix.
	ProjectionMatrix() mgl32.Mat4

	// ViewProjectionMatrix returns ProjectionMatrix * ViewMatrix.
	ViewProjectionMatrix() mgl32.Mat4

	// Frustum returns the culling frustum of the current view-projection matrix.
	Frustum() common.Frustum

	// ScreenRay returns the world-space ray through a pixel of a width x height image.
	// Pixel coordinates have their origin in the top-left corner.
	//
	// Parameters:
	//   - x, y: the pixel position
	//   - width, height: the image size in pixels
	//
	// Returns:
	//   - mgl32.Vec3: the ray origin on the near plane
	//   - mgl32.Vec3: the normalized ray direction
	ScreenRay(x, y float32, width, height int) (origin, dir mgl32.Vec3)

	// Project maps a world-space point to pixel coordinates of a width x height image.
	//
	// Parameters:
	//   - p: the world-space point
	//   - width, height: the image size in pixels
	//
	// Returns:
	//   - mgl32.Vec2: the pixel position, origin in the top-left corner
	//   - bool: false if the point is behind the camera
	Project(p mgl32.Vec3, width, height int) (mgl32.Vec2, bool)

	// Controller returns the attached CameraController, or nil.
	Controller() CameraController

	// Update reads position/target from the controller and recomputes matrices.
	// Should be called once per frame. Without a controller it does nothing.
	Update()

	// SetPosition sets the eye position and recomputes matrices.
	//
	// Parameters:
	//   - x, y, z: position components
	SetPosition(x, y, z float32)

	// SetTarget sets the look-at point and recomputes matrices.
	//
	// Parameters:
	//   - x, y, z: target components
	SetTarget(x, y, z float32)

	// SetUp sets the camera's up vector.
	//
	// Parameters:
	//   - x, y, z: up vector components
	SetUp(x, y, z float32)

	// SetFov sets the field of view in radians and recomputes matrices.
	//
	// Parameters:
	//   - fov: field of view in radians
	SetFov(fov float32)

	// SetAspect sets the aspect ratio (width / height) and recomputes matrices.
	//
	// Parameters:
	//   - aspect: the aspect ratio
	SetAspect(aspect float32)

	// SetNear sets the near clipping plane distance and recomputes matrices.
	//
	// Parameters:
	//   - near: near plane distance
	SetNear(near float32)

	// SetFar sets the far clipping plane distance and recomputes matrices.
	//
	// Parameters:
	//   - far: far plane distance
	SetFar(far float32)

	// SetLayers replaces the visibility mask.
	//
	// Parameters:
	//   - mask: the new mask
	SetLayers(mask common.LayerMask)

	// SetViewport sets a custom viewport. A zero viewport clears it.
	//
	// Parameters:
	//   - vp: the viewport rectangle
	SetViewport(vp common.Viewport)

	// SetController attaches a CameraController to the camera.
	//
	// Parameters:
	//   - ctrl: the controller to attach
	SetController(ctrl CameraController)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera with default perspective settings: a 45 degree
// vertical field of view, aspect 1, near 0.1, far 1000, at (0, 0, 5) looking at the origin.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:       &sync.Mutex{},
		position: mgl32.Vec3{0, 0, 5},
		up:       mgl32.Vec3{0, 1, 0},
		fov:      mgl32.DegToRad(45),
		aspect:   1.0,
		near:     0.1,
		far:      1000.0,
		layers:   common.DefaultLayerMask,
	}
	for _, option := range options {
		option(c)
	}
	c.pullController()
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Position() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *cameraImpl) Target() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

func (c *cameraImpl) Up() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.up
}

func (c *cameraImpl) WorldDirection() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	// The camera looks down its local -Z axis.
	return c.worldMatrix.Mul4x1(mgl32.Vec4{0, 0, -1, 0}).Vec3().Normalize()
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) Layers() common.LayerMask {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.layers
}

func (c *cameraImpl) Viewport() (common.Viewport, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewport, !c.viewport.IsZero()
}

func (c *cameraImpl) WorldMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.worldMatrix
}

func (c *cameraImpl) ViewMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) ViewProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProjectionMatrix
}

func (c *cameraImpl) Frustum() common.Frustum {
	c.mu.Lock()
	defer c.mu.Unlock()
	return common.ExtractFrustumFromMatrix(c.viewProjectionMatrix)
}

func (c *cameraImpl) ScreenRay(x, y float32, width, height int) (mgl32.Vec3, mgl32.Vec3) {
	c.mu.Lock()
	inv := c.viewProjectionMatrix.Inv()
	c.mu.Unlock()

	ndcX := 2*x/float32(max(width, 1)) - 1
	ndcY := 1 - 2*y/float32(max(height, 1))
	near := mgl32.TransformCoordinate(mgl32.Vec3{ndcX, ndcY, -1}, inv)
	far := mgl32.TransformCoordinate(mgl32.Vec3{ndcX, ndcY, 1}, inv)
	return near, far.Sub(near).Normalize()
}

func (c *cameraImpl) Project(p mgl32.Vec3, width, height int) (mgl32.Vec2, bool) {
	c.mu.Lock()
	clip := c.viewProjectionMatrix.Mul4x1(p.Vec4(1))
	c.mu.Unlock()

	if clip[3] <= 0 {
		return mgl32.Vec2{}, false
	}
	ndc := clip.Vec3().Mul(1 / clip[3])
	return mgl32.Vec2{
		(ndc[0] + 1) * 0.5 * float32(width),
		(1 - ndc[1]) * 0.5 * float32(height),
	}, true
}

func (c *cameraImpl) Controller() CameraController {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *cameraImpl) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.controller == nil {
		return
	}
	c.pullController()
	c.updateMatrices()
}

func (c *cameraImpl) SetPosition(x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = mgl32.Vec3{x, y, z}
	c.updateMatrices()
}

func (c *cameraImpl) SetTarget(x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = mgl32.Vec3{x, y, z}
	c.updateMatrices()
}

func (c *cameraImpl) SetUp(x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.up = mgl32.Vec3{x, y, z}
	c.updateMatrices()
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
	c.updateMatrices()
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.updateMatrices()
}

func (c *cameraImpl) SetNear(near float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.near = near
	c.updateMatrices()
}

func (c *cameraImpl) SetFar(far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.far = far
	c.updateMatrices()
}

func (c *cameraImpl) SetLayers(mask common.LayerMask) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.layers = mask
}

func (c *cameraImpl) SetViewport(vp common.Viewport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.viewport = vp
}

func (c *cameraImpl) SetController(ctrl CameraController) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controller = ctrl
}

// pullController copies position and target from the controller. Caller must hold the mutex.
func (c *cameraImpl) pullController() {
	if c.controller == nil {
		return
	}
	c.position = c.controller.Position()
	c.target = c.controller.Target()
}

// updateMatrices recalculates the world, view, projection and view-projection matrices.
// A degenerate look direction keeps the previous view. Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	if dir := c.target.Sub(c.position); dir.Len() > 1e-8 && math32.Abs(dir.Normalize().Dot(c.up.Normalize())) < 1-1e-6 {
		c.viewMatrix = mgl32.LookAtV(c.position, c.target, c.up)
		c.worldMatrix = c.viewMatrix.Inv()
	} else if c.worldMatrix == (mgl32.Mat4{}) {
		c.worldMatrix = mgl32.Translate3D(c.position.X(), c.position.Y(), c.position.Z())
		c.viewMatrix = c.worldMatrix.Inv()
	}
	c.projectionMatrix = mgl32.Perspective(c.fov, c.aspect, c.near, c.far)
	c.viewProjectionMatrix = c.projectionMatrix.Mul4(c.viewMatrix)
}
