package light

import (
	_ "embed"
	"encoding/binary"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-sdf/common"
)

// GPULightSource is the canonical WGSL definition of the Light struct.
// Matches GPULight layout exactly (32 bytes, std430 aligned).
//
//go:embed assets/light.wgsl
var GPULightSource string

// GPULight is the GPU-aligned representation of a single directional light.
// Matches the WGSL Light struct layout exactly (see GPULightSource).
// Size: 32 bytes (std430 / WGSL aligned).
type GPULight struct {
	Color     [3]float32 // offset  0: color premultiplied by intensity (vec3<f32>)
	_pad0     float32    // offset 12: padding
	Direction [3]float32 // offset 16: unit direction the light travels (vec3<f32>)
	_pad1     float32    // offset 28: padding to 32 bytes
}

// Size returns the size of the GPULight struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (32)
func (g *GPULight) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPULight struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload
func (g *GPULight) Marshal() []byte {
	buf := make([]byte, g.Size())
	g.MarshalInto(buf)
	return buf
}

// MarshalInto serializes the struct into buf, which must hold at least Size bytes.
func (g *GPULight) MarshalInto(buf []byte) {
	common.PutFloat32s(buf, 0, g.Color[:]...)
	binary.LittleEndian.PutUint32(buf[12:], 0)
	common.PutFloat32s(buf, 16, g.Direction[:]...)
	binary.LittleEndian.PutUint32(buf[28:], 0)
}

// MarshalLights packs lights into a storage buffer image of capacity slots, at least one.
//
// Parameters:
//   - lights: the lights to pack
//   - capacity: the declared array capacity
//
// Returns:
//   - []byte: the packed array
func MarshalLights(lights []GPULight, capacity int) []byte {
	var g GPULight
	stride := g.Size()
	capacity = max(capacity, len(lights), 1)
	buf := make([]byte, capacity*stride)
	for i := range lights {
		lights[i].MarshalInto(buf[i*stride:])
	}
	return buf
}
