package kernel

import (
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-sdf/common"
	"github.com/go-gl/mathgl/mgl32"
)

func TestGPURaymarchUniformMarshal(t *testing.T) {
	bounds := common.Sphere{Center: mgl32.Vec3{1, 2, 3}, Radius: 4}
	u := NewGPURaymarchUniform(bounds, 640, 480, 5, 2, 0.25, Material{Metalness: 0.5, Roughness: 0.75, EnvMapIntensity: 2})

	buf := u.Marshal()
	if len(buf) != 48 || u.Size() != 48 {
		t.Fatalf("Marshal() len = %d, Size() = %d, want 48", len(buf), u.Size())
	}

	f32 := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])) }
	u32 := func(off int) uint32 { return binary.LittleEndian.Uint32(buf[off:]) }

	tests := []struct {
		name string
		got  float32
		want float32
	}{
		{"center.z", f32(8), 3},
		{"radius", f32(12), 4},
		{"resolution.x", f32(16), 640},
		{"resolution.y", f32(20), 480},
		{"blending", f32(32), 0.25},
		{"env intensity", f32(36), 2},
		{"metalness", f32(40), 0.5},
		{"roughness", f32(44), 0.75},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
	if u32(24) != 5 || u32(28) != 2 {
		t.Errorf("counts = %d, %d, want 5, 2", u32(24), u32(28))
	}
}

func TestGPURaymarchUniformUnbounded(t *testing.T) {
	u := NewGPURaymarchUniform(common.EmptySphere(), 1, 1, 0, 0, 0, Material{})
	if u.BoundsRadius >= 0 {
		t.Errorf("BoundsRadius = %v, want negative for an empty bound", u.BoundsRadius)
	}
}

func TestGPURaymarchSourceDeclaresDefines(t *testing.T) {
	for _, name := range []string{"MAX_ENTITIES", "NUM_LIGHTS", "CONETRACING", "ENVMAP"} {
		if !strings.Contains(GPURaymarchSource, "//@oxy:define "+name) {
			t.Errorf("GPURaymarchSource does not declare %s", name)
		}
	}
}
