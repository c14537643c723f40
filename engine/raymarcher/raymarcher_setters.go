package raymarcher

import (
	"github.com/Carmen-Shannon/oxy-sdf/engine/entity"
	"github.com/Carmen-Shannon/oxy-sdf/engine/envmap"
)

func (r *raymarcherImpl) Layers() []entity.Layer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.layers
}

func (r *raymarcherImpl) SetLayers(layers []entity.Layer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.layers = layers
}

func (r *raymarcherImpl) Resolution() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolution
}

func (r *raymarcherImpl) SetResolution(scale float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolution = scale
}

func (r *raymarcherImpl) Blending() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.blending
}

func (r *raymarcherImpl) SetBlending(k float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blending = k
}

func (r *raymarcherImpl) EnvMap() *envmap.Map {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.envMap
}

func (r *raymarcherImpl) SetEnvMap(m *envmap.Map) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if (r.envMap != nil) != (m != nil) {
		r.dirty = true
	}
	r.envMap = m
}

func (r *raymarcherImpl) EnvMapIntensity() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.envMapIntensity
}

func (r *raymarcherImpl) SetEnvMapIntensity(intensity float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envMapIntensity = intensity
}

func (r *raymarcherImpl) Conetracing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conetracing
}

func (r *raymarcherImpl) SetConetracing(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conetracing != enabled {
		r.conetracing = enabled
		r.dirty = true
	}
}

func (r *raymarcherImpl) Metalness() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.metalness
}

func (r *raymarcherImpl) SetMetalness(m float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metalness = m
}

func (r *raymarcherImpl) Roughness() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.roughness
}

func (r *raymarcherImpl) SetRoughness(rough float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roughness = rough
}
