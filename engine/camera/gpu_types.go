package camera

import (
	_ "embed"
	"encoding/binary"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-sdf/common"
)

// GPUCameraUniformSource is the canonical WGSL definition of the CameraUniform struct.
// Matches GPUCameraUniform layout exactly (112 bytes, std140 aligned).
//
//go:embed assets/camera_uniform.wgsl
var GPUCameraUniformSource string

// GPUCameraUniform is the GPU-aligned representation of the camera uniform buffer.
// The raymarch vertex stage rebuilds view rays from World, Fov and Aspect.
// Size: 112 bytes.
type GPUCameraUniform struct {
	World     [16]float32 // offset   0: camera-to-world matrix (mat4x4<f32>)
	Position  [3]float32  // offset  64: world-space eye position (vec3<f32>)
	Fov       float32     // offset  76: vertical field of view in radians (f32)
	Direction [3]float32  // offset  80: unit forward vector (vec3<f32>)
	Aspect    float32     // offset  92: width / height (f32)
	Near      float32     // offset  96: near plane distance (f32)
	Far       float32     // offset 100: far plane distance (f32)
	_pad      [2]float32  // offset 104: padding to 112 bytes
}

// NewGPUCameraUniform snapshots a camera into its GPU record.
//
// Parameters:
//   - c: the camera to read
//   - aspect: the aspect ratio of the target being rendered, which may differ from the camera's
//
// Returns:
//   - GPUCameraUniform: the uniform block
func NewGPUCameraUniform(c Camera, aspect float32) GPUCameraUniform {
	return GPUCameraUniform{
		World:     c.WorldMatrix(),
		Position:  c.Position(),
		Fov:       c.Fov(),
		Direction: c.WorldDirection(),
		Aspect:    aspect,
		Near:      c.Near(),
		Far:       c.Far(),
	}
}

// Size returns the size of the GPUCameraUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (112)
func (g *GPUCameraUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUCameraUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUCameraUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	off := common.PutFloat32s(buf, 0, g.World[:]...)
	off = common.PutFloat32s(buf, off, g.Position[:]...)
	off = common.PutFloat32s(buf, off, g.Fov)
	off = common.PutFloat32s(buf, off, g.Direction[:]...)
	common.PutFloat32s(buf, off, g.Aspect, g.Near, g.Far)
	binary.LittleEndian.PutUint64(buf[104:], 0) // _pad
	return buf
}
