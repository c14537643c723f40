package light

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-sdf/common"
	"github.com/go-gl/mathgl/mgl32"
)

// LightType identifies the kind of light source.
type LightType int

const (
	// LightTypeDirectional represents a light with no falloff that shines from its
	// position toward its target. It is the only type the raymarcher shades with.
	LightTypeDirectional LightType = iota

	// LightTypePoint represents a light that emits in all directions from a position.
	// Point lights live in the scene for other renderers and are skipped by the aggregator.
	LightTypePoint
)

// lightImpl is the implementation of the Light interface.
type lightImpl struct {
	mu *sync.Mutex

	lightType LightType
	position  mgl32.Vec3
	target    mgl32.Vec3
	color     mgl32.Vec3
	intensity float32
	layers    common.LayerMask
	visible   bool
}

// Light defines the interface for a light source in the host scene.
//
// The direction of a directional light is not stored; it is derived each frame
// from the world position of the light and of its target.
type Light interface {
	// Type returns the kind of light source.
	//
	// Returns:
	//   - LightType: the light type
	Type() LightType

	// Position returns the world-space position of the light.
	//
	// Returns:
	//   - mgl32.Vec3: the position
	Position() mgl32.Vec3

	// Target returns the world-space point the light shines toward.
	//
	// Returns:
	//   - mgl32.Vec3: the target position
	Target() mgl32.Vec3

	// Direction returns normalize(target - position).
	//
	// Returns:
	//   - mgl32.Vec3: the unit direction, or zero when target equals position
	Direction() mgl32.Vec3

	// Color returns the linear RGB color of the light.
	Color() mgl32.Vec3

	// Intensity returns the scalar intensity multiplier for the light.
	Intensity() float32

	// Layers returns the visibility mask of the light.
	Layers() common.LayerMask

	// Visible returns whether the light takes part in scene traversal.
	Visible() bool

	// SetPosition sets the world-space position of the light.
	//
	// Parameters:
	//   - x, y, z: position components
	SetPosition(x, y, z float32)

	// SetTarget sets the world-space point the light shines toward.
	//
	// Parameters:
	//   - x, y, z: target components
	SetTarget(x, y, z float32)

	// SetColor sets the RGB color of the light.
	//
	// Parameters:
	//   - r, g, b: color components
	SetColor(r, g, b float32)

	// SetIntensity sets the scalar intensity multiplier.
	//
	// Parameters:
	//   - intensity: the intensity value
	SetIntensity(intensity float32)

	// SetLayers replaces the visibility mask.
	//
	// Parameters:
	//   - mask: the new mask
	SetLayers(mask common.LayerMask)

	// SetVisible shows or hides the light.
	//
	// Parameters:
	//   - visible: true to include the light in traversal
	SetVisible(visible bool)
}

var _ Light = &lightImpl{}

// NewLight creates a new Light of the specified type with sensible defaults and
// any provided options applied. The default light sits at (0, 1, 0) aiming at the
// origin, white, intensity 1, on layer 0.
//
// Parameters:
//   - lightType: the kind of light to create
//   - opts: variadic list of LightBuilderOption functions to configure the light
//
// Returns:
//   - Light: a new Light instance
func NewLight(lightType LightType, opts ...LightBuilderOption) Light {
	l := &lightImpl{
		mu:        &sync.Mutex{},
		lightType: lightType,
		position:  mgl32.Vec3{0, 1, 0},
		color:     mgl32.Vec3{1, 1, 1},
		intensity: 1.0,
		layers:    common.DefaultLayerMask,
		visible:   true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *lightImpl) Type() LightType {
	return l.lightType
}

func (l *lightImpl) Position() mgl32.Vec3 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.position
}

func (l *lightImpl) Target() mgl32.Vec3 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.target
}

func (l *lightImpl) Direction() mgl32.Vec3 {
	l.mu.Lock()
	defer l.mu.Unlock()
	d := l.target.Sub(l.position)
	if d.Len() == 0 {
		return mgl32.Vec3{}
	}
	return d.Normalize()
}

func (l *lightImpl) Color() mgl32.Vec3 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.color
}

func (l *lightImpl) Intensity() float32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.intensity
}

func (l *lightImpl) Layers() common.LayerMask {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.layers
}

func (l *lightImpl) Visible() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.visible
}

func (l *lightImpl) SetPosition(x, y, z float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.position = mgl32.Vec3{x, y, z}
}

func (l *lightImpl) SetTarget(x, y, z float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.target = mgl32.Vec3{x, y, z}
}

func (l *lightImpl) SetColor(r, g, b float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.color = mgl32.Vec3{r, g, b}
}

func (l *lightImpl) SetIntensity(intensity float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.intensity = intensity
}

func (l *lightImpl) SetLayers(mask common.LayerMask) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.layers = mask
}

func (l *lightImpl) SetVisible(visible bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.visible = visible
}
