package entity

import (
	_ "embed"
	"encoding/binary"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-sdf/common"
)

// GPUEntitySource is the canonical WGSL definition of the Entity struct.
// Matches GPUEntity layout exactly (64 bytes, std430 aligned).
//
//go:embed assets/entity.wgsl
var GPUEntitySource string

// GPUEntity is the GPU-aligned representation of one entity in the entity storage array.
// Matches the WGSL Entity struct layout exactly (see GPUEntitySource).
// Size: 64 bytes (std430 / WGSL aligned).
type GPUEntity struct {
	Color     [3]float32 // offset  0: linear base color (vec3<f32>)
	Operation uint32     // offset 12: 0 = union, 1 = subtraction (u32)
	Position  [3]float32 // offset 16: world-space center (vec3<f32>)
	Shape     uint32     // offset 28: 0 = box, 1 = capsule, 2 = sphere (u32)
	Rotation  [4]float32 // offset 32: unit quaternion x, y, z, w (vec4<f32>)
	Scale     [3]float32 // offset 48: full extents (vec3<f32>)
	_pad      float32    // offset 60: padding to 64 bytes
}

// NewGPUEntity converts an Entity into its GPU record. The rotation is normalized.
//
// Parameters:
//   - e: the entity to convert
//
// Returns:
//   - GPUEntity: the GPU-aligned record
func NewGPUEntity(e Entity) GPUEntity {
	q := e.Rotation.Normalize()
	return GPUEntity{
		Color:     e.Color,
		Operation: uint32(e.Operation),
		Position:  e.Position,
		Shape:     uint32(e.Shape),
		Rotation:  [4]float32{q.V[0], q.V[1], q.V[2], q.W},
		Scale:     e.Scale,
	}
}

// Size returns the size of the GPUEntity struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (64)
func (g *GPUEntity) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUEntity struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUEntity) Marshal() []byte {
	buf := make([]byte, g.Size())
	g.MarshalInto(buf)
	return buf
}

// MarshalInto serializes the struct into buf, which must hold at least Size bytes.
func (g *GPUEntity) MarshalInto(buf []byte) {
	common.PutFloat32s(buf, 0, g.Color[:]...)
	binary.LittleEndian.PutUint32(buf[12:], g.Operation)
	common.PutFloat32s(buf, 16, g.Position[:]...)
	binary.LittleEndian.PutUint32(buf[28:], g.Shape)
	common.PutFloat32s(buf, 32, g.Rotation[:]...)
	common.PutFloat32s(buf, 48, g.Scale[:]...)
	binary.LittleEndian.PutUint32(buf[60:], 0) // _pad
}

// MarshalLayer packs a layer into a storage buffer image of exactly capacity slots.
// Slots past len(layer) are zero filled. At least one slot is always written.
//
// Parameters:
//   - layer: the entities to pack
//   - capacity: the declared array capacity
//
// Returns:
//   - []byte: the packed array
func MarshalLayer(layer Layer, capacity int) []byte {
	var g GPUEntity
	stride := g.Size()
	capacity = max(capacity, len(layer), 1)
	buf := make([]byte, capacity*stride)
	for i, e := range layer {
		g = NewGPUEntity(e)
		g.MarshalInto(buf[i*stride:])
	}
	return buf
}
