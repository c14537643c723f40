package kernel

import (
	_ "embed"
	"encoding/binary"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-sdf/common"
)

// GPURaymarchUniformSource is the canonical WGSL definition of the RaymarchUniforms struct.
// Matches GPURaymarchUniform layout exactly (48 bytes).
//
//go:embed assets/raymarch_uniforms.wgsl
var GPURaymarchUniformSource string

// GPURaymarchSource is the annotated WGSL raymarch program. It is the GPU twin of Evaluate
// and expects the MAX_ENTITIES, NUM_LIGHTS, CONETRACING and ENVMAP defines.
//
//go:embed assets/raymarch.wgsl
var GPURaymarchSource string

// GPURaymarchUniform is the per-draw uniform block of the raymarch program.
// Size: 48 bytes.
type GPURaymarchUniform struct {
	BoundsCenter    [3]float32 // offset  0: layer bound center (vec3<f32>)
	BoundsRadius    float32    // offset 12: layer bound radius, negative when unbounded (f32)
	Resolution      [2]float32 // offset 16: target size in pixels (vec2<f32>)
	NumEntities     uint32     // offset 24: active entity slots (u32)
	NumLights       uint32     // offset 28: active light slots (u32)
	Blending        float32    // offset 32: smooth CSG radius (f32)
	EnvMapIntensity float32    // offset 36: reflection probe scale (f32)
	Metalness       float32    // offset 40: (f32)
	Roughness       float32    // offset 44: (f32)
}

// NewGPURaymarchUniform packs the per-draw parameters of one layer.
//
// Parameters:
//   - bounds: the layer bound, empty means unbounded
//   - width, height: the target size in pixels
//   - numEntities, numLights: the active counts
//   - blending: the smooth CSG radius
//   - mat: the node material, Env is ignored
//
// Returns:
//   - GPURaymarchUniform: the uniform block
func NewGPURaymarchUniform(bounds common.Sphere, width, height, numEntities, numLights int, blending float32, mat Material) GPURaymarchUniform {
	return GPURaymarchUniform{
		BoundsCenter:    bounds.Center,
		BoundsRadius:    bounds.Radius,
		Resolution:      [2]float32{float32(width), float32(height)},
		NumEntities:     uint32(numEntities),
		NumLights:       uint32(numLights),
		Blending:        blending,
		EnvMapIntensity: mat.EnvMapIntensity,
		Metalness:       mat.Metalness,
		Roughness:       mat.Roughness,
	}
}

// Size returns the size of the GPURaymarchUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (48)
func (g *GPURaymarchUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPURaymarchUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPURaymarchUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	off := common.PutFloat32s(buf, 0, g.BoundsCenter[:]...)
	off = common.PutFloat32s(buf, off, g.BoundsRadius)
	off = common.PutFloat32s(buf, off, g.Resolution[:]...)
	binary.LittleEndian.PutUint32(buf[off:], g.NumEntities)
	binary.LittleEndian.PutUint32(buf[off+4:], g.NumLights)
	common.PutFloat32s(buf, off+8, g.Blending, g.EnvMapIntensity, g.Metalness, g.Roughness)
	return buf
}
