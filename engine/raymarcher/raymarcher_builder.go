package raymarcher

import (
	"github.com/Carmen-Shannon/oxy-sdf/engine/entity"
	"github.com/Carmen-Shannon/oxy-sdf/engine/envmap"
	"github.com/Carmen-Shannon/oxy-sdf/engine/profiler"
)

// RaymarcherBuilderOption is a functional option applied to a raymarcher during construction via New.
type RaymarcherBuilderOption func(r *raymarcherImpl)

// WithLayers sets the layers to render. The slice is referenced, not copied; the caller owns it.
//
// Parameters:
//   - layers: the layers
//
// Returns:
//   - RaymarcherBuilderOption: a function that applies the layers option
func WithLayers(layers ...entity.Layer) RaymarcherBuilderOption {
	return func(r *raymarcherImpl) {
		r.layers = layers
	}
}

// WithResolution sets the off-screen target scale relative to the drawing buffer.
//
// Parameters:
//   - scale: the resolution scale, defaults to 1
//
// Returns:
//   - RaymarcherBuilderOption: a function that applies the resolution option
func WithResolution(scale float32) RaymarcherBuilderOption {
	return func(r *raymarcherImpl) {
		r.resolution = scale
	}
}

// WithBlending sets the smooth CSG blend radius.
//
// Parameters:
//   - k: the blend radius, defaults to 0.5
//
// Returns:
//   - RaymarcherBuilderOption: a function that applies the blending option
func WithBlending(k float32) RaymarcherBuilderOption {
	return func(r *raymarcherImpl) {
		r.blending = k
	}
}

// WithEnvMap sets the reflection probe. A nil map disables reflections.
//
// Parameters:
//   - m: the environment map
//
// Returns:
//   - RaymarcherBuilderOption: a function that applies the env map option
func WithEnvMap(m *envmap.Map) RaymarcherBuilderOption {
	return func(r *raymarcherImpl) {
		r.envMap = m
	}
}

// WithEnvMapIntensity scales the reflection probe.
//
// Parameters:
//   - intensity: the scale, defaults to 1
//
// Returns:
//   - RaymarcherBuilderOption: a function that applies the intensity option
func WithEnvMapIntensity(intensity float32) RaymarcherBuilderOption {
	return func(r *raymarcherImpl) {
		r.envMapIntensity = intensity
	}
}

// WithConetracing switches to coverage accumulation with far-to-near premultiplied blending.
//
// Parameters:
//   - enabled: true for cone tracing
//
// Returns:
//   - RaymarcherBuilderOption: a function that applies the cone tracing option
func WithConetracing(enabled bool) RaymarcherBuilderOption {
	return func(r *raymarcherImpl) {
		r.conetracing = enabled
	}
}

// WithMetalness sets the material metalness.
//
// Parameters:
//   - m: metalness in [0, 1], defaults to 0
//
// Returns:
//   - RaymarcherBuilderOption: a function that applies the metalness option
func WithMetalness(m float32) RaymarcherBuilderOption {
	return func(r *raymarcherImpl) {
		r.metalness = m
	}
}

// WithRoughness sets the material roughness.
//
// Parameters:
//   - rough: roughness in [0, 1], defaults to 1
//
// Returns:
//   - RaymarcherBuilderOption: a function that applies the roughness option
func WithRoughness(rough float32) RaymarcherBuilderOption {
	return func(r *raymarcherImpl) {
		r.roughness = rough
	}
}

// WithBoundsWorkers computes layer bounds on n goroutines when there are enough layers.
//
// Parameters:
//   - n: the worker count, 1 disables the pool
//
// Returns:
//   - RaymarcherBuilderOption: a function that applies the workers option
func WithBoundsWorkers(n int) RaymarcherBuilderOption {
	return func(r *raymarcherImpl) {
		r.boundsWorkers = max(n, 1)
	}
}

// WithStats records every frame's statistics into p.
//
// Parameters:
//   - p: the profiler
//
// Returns:
//   - RaymarcherBuilderOption: a function that applies the stats option
func WithStats(p *profiler.Profiler) RaymarcherBuilderOption {
	return func(r *raymarcherImpl) {
		r.profiler = p
	}
}
