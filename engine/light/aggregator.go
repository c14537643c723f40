package light

import (
	"github.com/Carmen-Shannon/oxy-sdf/common"
)

// Traverser yields the visible objects of a host scene. Only lights matter to the aggregator.
type Traverser interface {
	// TraverseVisibleLights calls fn for each visible light in scene order.
	TraverseVisibleLights(fn func(Light))
}

// Aggregator gathers the directional lights a camera can see into GPU records.
// The backing slice is reused across frames.
type Aggregator struct {
	lights []GPULight
}

// Gather collects every visible directional light whose mask intersects cameraMask.
// Each record carries color * intensity and the unit direction from the light to its target.
//
// Parameters:
//   - scene: the host scene to traverse
//   - cameraMask: the visibility mask of the rendering camera
//
// Returns:
//   - []GPULight: the gathered lights in traversal order, valid until the next Gather
func (a *Aggregator) Gather(scene Traverser, cameraMask common.LayerMask) []GPULight {
	a.lights = a.lights[:0]
	if scene == nil {
		return a.lights
	}
	scene.TraverseVisibleLights(func(l Light) {
		if l.Type() != LightTypeDirectional || !l.Layers().Test(cameraMask) {
			return
		}
		a.lights = append(a.lights, GPULight{
			Color:     l.Color().Mul(l.Intensity()),
			Direction: l.Direction(),
		})
	})
	return a.lights
}

// Lights returns the result of the last Gather.
func (a *Aggregator) Lights() []GPULight {
	return a.lights
}
