package shader

import (
	"errors"
	"strings"
	"testing"
)

func kernelDefines(entities, lights int, cone, env bool) Defines {
	var d Defines
	d.SetInt("MAX_ENTITIES", entities)
	d.SetInt("NUM_LIGHTS", lights)
	d.SetBool("CONETRACING", cone)
	d.SetBool("ENVMAP", env)
	return d
}

func TestProcessDefines(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		value string
		want  string
	}{
		{"u32", "//@oxy:define N u32", "4", "const N: u32 = 4u;"},
		{"i32", "//@oxy:define N i32", "-3", "const N: i32 = -3i;"},
		{"f32 integral", "//@oxy:define N f32", "2", "const N: f32 = 2.0;"},
		{"f32 fraction", "//@oxy:define N f32", "0.5", "const N: f32 = 0.5;"},
		{"bool", "//@oxy:define N bool", "true", "const N: bool = true;"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Defines
			d.Set("N", tt.value)
			got, err := NewPreProcessor().Process(tt.line, d)
			if err != nil {
				t.Fatalf("Process() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Process() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProcessDefineErrors(t *testing.T) {
	var d Defines
	d.Set("N", "abc")

	if _, err := NewPreProcessor().Process("//@oxy:define MISSING u32", d); !errors.Is(err, ErrMissingDefine) {
		t.Errorf("Process() error = %v, want ErrMissingDefine", err)
	}
	if _, err := NewPreProcessor().Process("//@oxy:define N u32", d); err == nil {
		t.Errorf("Process() with non-numeric u32 should fail")
	}
	if _, err := NewPreProcessor().Process("//@oxy:define N vec3", d); err == nil {
		t.Errorf("Process() with unsupported define type should fail")
	}
}

func TestProcessConditionalBlocks(t *testing.T) {
	source := strings.Join([]string{
		"a",
		"//@oxy:if FLAG",
		"b",
		"//@oxy:endif",
		"//@oxy:if !FLAG",
		"c",
		"//@oxy:endif",
		"d",
	}, "\n")

	tests := []struct {
		flag bool
		want string
	}{
		{true, "a\nb\nd"},
		{false, "a\nc\nd"},
	}
	for _, tt := range tests {
		var d Defines
		d.SetBool("FLAG", tt.flag)
		got, err := NewPreProcessor().Process(source, d)
		if err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		if got != tt.want {
			t.Errorf("Process(FLAG=%v) = %q, want %q", tt.flag, got, tt.want)
		}
	}
}

func TestProcessConditionalErrors(t *testing.T) {
	var d Defines
	d.SetBool("A", true)
	d.SetInt("N", 3)

	tests := []struct {
		name   string
		source string
	}{
		{"nested", "//@oxy:if A\n//@oxy:if A\n//@oxy:endif\n//@oxy:endif"},
		{"unclosed", "//@oxy:if A\nx"},
		{"stray endif", "x\n//@oxy:endif"},
		{"not a bool", "//@oxy:if N\n//@oxy:endif"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewPreProcessor().Process(tt.source, d); err == nil {
				t.Errorf("Process() error = nil, want error")
			}
		})
	}

	if _, err := NewPreProcessor().Process("//@oxy:if MISSING\n//@oxy:endif", d); !errors.Is(err, ErrMissingDefine) {
		t.Errorf("Process() error = %v, want ErrMissingDefine", err)
	}
}

func TestProcessGroupsAndDeclarations(t *testing.T) {
	source := strings.Join([]string{
		"//@oxy:provider 0 0 raymarch",
		"//@oxy:group 0 0 storage_uniform camera camera",
		"//@oxy:group 0 2 storage_read entities array<entity,MAX_ENTITIES>",
		"//@oxy:if ENVMAP",
		"//@oxy:provider 1 0 envmap env_texture",
		"//@oxy:endif",
	}, "\n")

	pp := NewPreProcessor()
	got, err := pp.Process(source, kernelDefines(4, 1, false, false))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	want := "@group(0) @binding(0) var<uniform> camera: CameraUniform;\n" +
		"@group(0) @binding(2) var<storage, read> entities: array<Entity, MAX_ENTITIES>;"
	if got != want {
		t.Errorf("Process() = %q, want %q", got, want)
	}

	decls := pp.Declarations()
	if len(decls) != 3 {
		t.Fatalf("len(Declarations()) = %d, want 3", len(decls))
	}
	if decls[0].Type != AnnotationTypeProvider || decls[0].Args[0] != AnnotationArgRaymarch {
		t.Errorf("Declarations()[0] = %+v, want raymarch provider", decls[0])
	}
	if *decls[2].Group != 0 || *decls[2].Binding != 2 {
		t.Errorf("Declarations()[2] slot = (%d, %d), want (0, 2)", *decls[2].Group, *decls[2].Binding)
	}
}

func TestProcessInclude(t *testing.T) {
	got, err := NewPreProcessor().Process("//@oxy:include entity", Defines{})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if !strings.Contains(got, "struct Entity") {
		t.Errorf("Process() = %q, want the Entity struct", got)
	}
}

func TestParseAnnotationErrors(t *testing.T) {
	tests := []string{
		"//@oxy:",
		"//@oxy:include nothing",
		"//@oxy:group 0 0 storage_uniform camera",
		"//@oxy:group x 0 storage_uniform camera camera",
		"//@oxy:group 0 0 private camera camera",
		"//@oxy:provider 0 0 unknown",
		"//@oxy:provider 1 0 envmap nope",
		"//@oxy:define 1BAD u32",
		"//@oxy:endif extra",
		"//@oxy:bogus",
	}
	for _, line := range tests {
		if _, err := parseAnnotation(line, 1); err == nil {
			t.Errorf("parseAnnotation(%q) error = nil, want error", line)
		}
	}

	a, err := parseAnnotation("let x = 1; // not an annotation", 1)
	if err != nil || a != nil {
		t.Errorf("parseAnnotation() = %v, %v, want nil, nil", a, err)
	}
}
