package shader

import (
	"errors"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-sdf/engine/kernel"
	"github.com/cogentcore/webgpu/wgpu"
)

func TestNewShaderRaymarchLayouts(t *testing.T) {
	s, err := NewShader("raymarch", ShaderTypeRender, kernel.GPURaymarchSource, kernelDefines(4, 2, false, false))
	if err != nil {
		t.Fatalf("NewShader() error = %v", err)
	}
	if s.VertexEntryPoint() != "vs_main" || s.FragmentEntryPoint() != "fs_main" {
		t.Errorf("entry points = %q, %q, want vs_main, fs_main", s.VertexEntryPoint(), s.FragmentEntryPoint())
	}

	group := s.BindGroupLayoutDescriptor(0)
	if len(group.Entries) != 4 {
		t.Fatalf("len(group 0 entries) = %d, want 4", len(group.Entries))
	}
	tests := []struct {
		binding uint32
		typ     wgpu.BufferBindingType
		size    uint64
	}{
		{0, wgpu.BufferBindingTypeUniform, 112},
		{1, wgpu.BufferBindingTypeUniform, 48},
		{2, wgpu.BufferBindingTypeReadOnlyStorage, 4 * 64},
		{3, wgpu.BufferBindingTypeReadOnlyStorage, 2 * 32},
	}
	for i, tt := range tests {
		e := group.Entries[i]
		if e.Binding != tt.binding || e.Buffer.Type != tt.typ || e.Buffer.MinBindingSize != tt.size {
			t.Errorf("entry %d = (binding %d, type %v, size %d), want (%d, %v, %d)",
				i, e.Binding, e.Buffer.Type, e.Buffer.MinBindingSize, tt.binding, tt.typ, tt.size)
		}
		if e.Visibility != wgpu.ShaderStageVertex|wgpu.ShaderStageFragment {
			t.Errorf("entry %d visibility = %v, want vertex|fragment", i, e.Visibility)
		}
	}

	if _, ok := s.BindGroupLayoutDescriptors()[1]; ok {
		t.Errorf("group 1 declared without ENVMAP")
	}
	if b, ok := s.BindGroupFromVarName(0, "entities"); !ok || b != 2 {
		t.Errorf("BindGroupFromVarName(entities) = %d, %v, want 2, true", b, ok)
	}
	if got := s.BindGroupVarName(0, 3); got != "lights" {
		t.Errorf("BindGroupVarName(0, 3) = %q, want lights", got)
	}
	if s.Defines().Int("MAX_ENTITIES") != 4 {
		t.Errorf("Defines() lost MAX_ENTITIES")
	}
	if s.Module() == nil || s.Module().WGSLDescriptor.Code != s.Source() {
		t.Errorf("Module() does not carry the expanded source")
	}
}

func TestNewShaderEnvMapGroup(t *testing.T) {
	s, err := NewShader("raymarch", ShaderTypeRender, kernel.GPURaymarchSource, kernelDefines(1, 1, true, true))
	if err != nil {
		t.Fatalf("NewShader() error = %v", err)
	}
	group := s.BindGroupLayoutDescriptor(1)
	if len(group.Entries) != 2 {
		t.Fatalf("len(group 1 entries) = %d, want 2", len(group.Entries))
	}
	if group.Entries[0].Texture.SampleType != wgpu.TextureSampleTypeFloat ||
		group.Entries[0].Texture.ViewDimension != wgpu.TextureViewDimension2D {
		t.Errorf("env texture entry = %+v, want float 2D texture", group.Entries[0].Texture)
	}
	if group.Entries[1].Sampler.Type != wgpu.SamplerBindingTypeFiltering {
		t.Errorf("env sampler type = %v, want filtering", group.Entries[1].Sampler.Type)
	}

	var envDecls int
	for _, d := range s.Declarations() {
		if d.Type == AnnotationTypeProvider && d.Args[0] == AnnotationArgEnvMap {
			envDecls++
		}
	}
	if envDecls != 2 {
		t.Errorf("envmap provider declarations = %d, want 2", envDecls)
	}
	if strings.Contains(s.Source(), "@oxy:") {
		t.Errorf("Source() still contains annotations")
	}
}

func TestNewShaderErrors(t *testing.T) {
	if _, err := NewShader("raymarch", ShaderTypeRender, kernel.GPURaymarchSource, Defines{}); !errors.Is(err, ErrMissingDefine) {
		t.Errorf("NewShader() error = %v, want ErrMissingDefine", err)
	}

	fragmentOnly := "@fragment\nfn fs_main() -> @location(0) vec4<f32> { return vec4<f32>(1.0); }"
	if _, err := NewShader("frag", ShaderTypeRender, fragmentOnly, Defines{}); err == nil {
		t.Errorf("NewShader(render) without @vertex should fail")
	}
	if _, err := NewShader("frag", ShaderTypeFragment, fragmentOnly, Defines{}); err != nil {
		t.Errorf("NewShader(fragment) error = %v", err)
	}
}

func TestResolveTypeLayout(t *testing.T) {
	known := map[string]wgslTypeLayout{"Entity": {64, 16}}
	consts := map[string]uint64{"N": 3}

	tests := []struct {
		typ    string
		want   uint64
		wantOK bool
	}{
		{"f32", 4, true},
		{"vec3<f32>", 12, true},
		{"Entity", 64, true},
		{"array<Entity, 2>", 128, true},
		{"array<Entity, 2u>", 128, true},
		{"array<Entity, N>", 192, true},
		{"array<vec3<f32>, N>", 48, true},
		{"array<Entity>", 64, true},
		{"array<Entity, MISSING>", 0, false},
		{"Unknown", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			got, ok := resolveTypeLayout(tt.typ, known, consts)
			if ok != tt.wantOK || got.size != tt.want {
				t.Errorf("resolveTypeLayout(%q) = %d, %v, want %d, %v", tt.typ, got.size, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestComputeStructSizesNested(t *testing.T) {
	src := `
struct Outer {
    inner: Inner,
    count: u32,
}
struct Inner {
    a: vec3<f32>,
    b: f32,
}`
	sizes := computeStructSizes(parseStructBlocks(stripComments(src)), nil)
	if sizes["Inner"].size != 16 {
		t.Errorf("Inner size = %d, want 16", sizes["Inner"].size)
	}
	if sizes["Outer"].size != 32 {
		t.Errorf("Outer size = %d, want 32", sizes["Outer"].size)
	}
}

func TestStripComments(t *testing.T) {
	got := stripComments("a /* b /* c */ d */ e // f\ng")
	if want := "a  e \ng\n"; got != want {
		t.Errorf("stripComments() = %q, want %q", got, want)
	}
}

func TestValidate(t *testing.T) {
	err := Validate("fn broken( {")
	if !errors.Is(err, ErrInvalidWGSL) {
		t.Errorf("Validate(broken) error = %v, want ErrInvalidWGSL", err)
	}

	valid := `@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 0.0, 0.0, 1.0);
}`
	if err := Validate(valid); err != nil {
		msg := err.Error()
		if strings.Contains(msg, "not yet implemented") || strings.Contains(msg, "not supported") || strings.Contains(msg, "lowering error") {
			t.Skipf("Skipping: naga limitation: %v", err)
		}
		t.Errorf("Validate(valid) error = %v", err)
	}
}
