package loader

import (
	"errors"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-sdf/engine/entity"
	"github.com/Carmen-Shannon/oxy-sdf/engine/envmap"
	"github.com/Carmen-Shannon/oxy-sdf/engine/light"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/mrjoshuak/go-openexr/exr"
)

const demoScene = `{
	"name": "demo",
	"camera": {"position": [0, 2, 8], "target": [0, 0, 0], "fov": 60, "near": 0.5, "far": 200},
	"lights": [
		{"type": "directional", "position": [1, 4, 2], "intensity": 2},
		{"type": "point", "visible": false}
	],
	"nodes": [
		{
			"blending": 0.25,
			"conetracing": true,
			"roughness": 0.4,
			"layers": [
				[
					{"shape": "box", "scale": [2, 1, 1], "color": [1, 0, 0]},
					{"shape": "sphere", "operation": "subtraction", "position": [0.5, 0, 0]}
				],
				[{"shape": "capsule", "rotation": [0, 0, 90]}]
			]
		},
		{"resolution": 0.5}
	]
}`

func writeScene(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoadReader(t *testing.T) {
	l := NewLoader(BackendTypeJSON)
	s, err := l.LoadReader("demo", strings.NewReader(demoScene), "")
	if err != nil {
		t.Fatalf("LoadReader() error = %v", err)
	}

	if s.Name() != "demo" || !s.Active() || s.Count() != 2 {
		t.Fatalf("scene = %q active %v with %d nodes, want active \"demo\" with 2", s.Name(), s.Active(), s.Count())
	}
	cam := s.Camera()
	if cam.Position() != (mgl32.Vec3{0, 2, 8}) || mgl32.Abs(cam.Fov()-mgl32.DegToRad(60)) > 1e-6 || cam.Near() != 0.5 || cam.Far() != 200 {
		t.Errorf("camera = pos %v fov %v near %v far %v", cam.Position(), cam.Fov(), cam.Near(), cam.Far())
	}

	lights := s.Lights()
	if len(lights) != 2 {
		t.Fatalf("lights = %d, want 2", len(lights))
	}
	if lights[0].Type() != light.LightTypeDirectional || lights[0].Intensity() != 2 || lights[0].Position() != (mgl32.Vec3{1, 4, 2}) {
		t.Errorf("light 0 = type %v intensity %v position %v", lights[0].Type(), lights[0].Intensity(), lights[0].Position())
	}
	if lights[1].Type() != light.LightTypePoint || lights[1].Visible() {
		t.Errorf("light 1 = type %v visible %v, want a hidden point light", lights[1].Type(), lights[1].Visible())
	}

	n := s.Get(1)
	if n.Blending() != 0.25 || !n.Conetracing() || n.Roughness() != 0.4 || n.Resolution() != 1 {
		t.Errorf("node 1 = blending %v cone %v roughness %v resolution %v", n.Blending(), n.Conetracing(), n.Roughness(), n.Resolution())
	}
	layers := n.Layers()
	if len(layers) != 2 || len(layers[0]) != 2 || len(layers[1]) != 1 {
		t.Fatalf("node 1 layers = %v", layers)
	}
	box, sphere, capsule := layers[0][0], layers[0][1], layers[1][0]
	if box.Shape != entity.ShapeBox || box.Scale != (mgl32.Vec3{2, 1, 1}) || box.Color != (mgl32.Vec3{1, 0, 0}) {
		t.Errorf("box = %+v", box)
	}
	if sphere.Shape != entity.ShapeSphere || sphere.Operation != entity.OperationSubtraction || sphere.Color != (mgl32.Vec3{1, 1, 1}) {
		t.Errorf("sphere = %+v", sphere)
	}
	up := capsule.Rotation.Rotate(mgl32.Vec3{0, 1, 0})
	if d := up.Sub(mgl32.Vec3{-1, 0, 0}); d.Dot(d) > 1e-8 {
		t.Errorf("capsule axis = %v, want (-1, 0, 0) after 90 degrees about Z", up)
	}

	if got := s.Get(2).Resolution(); got != 0.5 {
		t.Errorf("node 2 resolution = %v, want 0.5", got)
	}
}

func TestLoadCachesDescription(t *testing.T) {
	path := writeScene(t, t.TempDir(), "demo.json", demoScene)
	l := NewLoader(BackendTypeJSON)

	first, err := l.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	second, err := l.Load(path)
	if err != nil {
		t.Fatalf("Load() from cache error = %v", err)
	}

	if l.Get(path) == nil || len(l.Scenes()) != 1 {
		t.Errorf("cache = %v, want one entry for %s", l.Scenes(), path)
	}
	if first.Get(1) == second.Get(1) {
		t.Error("Load() returned a shared node, want a fresh scene per call")
	}
	if second.Count() != 2 {
		t.Errorf("cached scene nodes = %d, want 2", second.Count())
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	l := NewLoader(BackendTypeJSON)
	if _, err := l.Load("scene.yaml"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Load(.yaml) error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		strict bool
		want   error
	}{
		{"malformed", `{"name": `, false, ErrInvalidScene},
		{"unknown shape", `{"nodes": [{"layers": [[{"shape": "torus"}]]}]}`, false, entity.ErrUnknownShape},
		{"unknown operation", `{"nodes": [{"layers": [[{"operation": "xor"}]]}]}`, false, entity.ErrUnknownOperation},
		{"short vector", `{"nodes": [{"layers": [[{"position": [1, 2]}]]}]}`, false, ErrInvalidScene},
		{"light type", `{"lights": [{"type": "spot"}]}`, false, ErrInvalidScene},
		{"near far", `{"camera": {"near": 10, "far": 1}}`, false, ErrInvalidScene},
		{"viewport", `{"camera": {"viewport": [0, 0, 10]}}`, false, ErrInvalidScene},
		{"resolution", `{"nodes": [{"resolution": 0}]}`, false, ErrInvalidScene},
		{"strict unknown field", `{"nodes": [], "fog": true}`, true, ErrInvalidScene},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLoader(BackendTypeJSON, WithStrict(tt.strict))
			if _, err := l.LoadReader(tt.name, strings.NewReader(tt.body), ""); !errors.Is(err, tt.want) {
				t.Errorf("LoadReader() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoadLenientIgnoresUnknownFields(t *testing.T) {
	l := NewLoader(BackendTypeJSON)
	s, err := l.LoadReader("fog", strings.NewReader(`{"name": "fog", "fog": true}`), "")
	if err != nil {
		t.Fatalf("LoadReader() error = %v", err)
	}
	if s.Name() != "fog" || s.Count() != 0 {
		t.Errorf("scene = %q with %d nodes, want \"fog\" with 0", s.Name(), s.Count())
	}
}

func TestLoadEnvMap(t *testing.T) {
	dir := t.TempDir()
	img := exr.NewRGBAImage(image.Rect(0, 0, 8, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			img.SetRGBA(x, y, 1, 1, 1, 1)
		}
	}
	if err := exr.EncodeFile(filepath.Join(dir, "sky.exr"), img); err != nil {
		t.Fatalf("EncodeFile() error = %v", err)
	}
	path := writeScene(t, dir, "sky.json", `{"nodes": [{"envMap": "sky.exr", "envMapIntensity": 0.5}, {"envMap": "sky.exr"}]}`)

	s, err := NewLoader(BackendTypeJSON, WithEnvMapLevels(2)).Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	a, b := s.Get(1), s.Get(2)
	if a.EnvMap() == nil || a.EnvMap() != b.EnvMap() {
		t.Errorf("env maps = %p and %p, want one shared decoded map", a.EnvMap(), b.EnvMap())
	}
	if got := a.EnvMap().Levels(); got != 2 {
		t.Errorf("Levels() = %d, want 2", got)
	}
	if a.EnvMapIntensity() != 0.5 || b.EnvMapIntensity() != 1 {
		t.Errorf("intensities = %v, %v; want 0.5, 1", a.EnvMapIntensity(), b.EnvMapIntensity())
	}
}

func TestLoadPrecachedEnvMap(t *testing.T) {
	img := exr.NewRGBAImage(image.Rect(0, 0, 4, 2))
	m, err := envmap.FromRGBA(img)
	if err != nil {
		t.Fatalf("FromRGBA() error = %v", err)
	}
	l := NewLoader(BackendTypeJSON, WithEnvMap(filepath.Join("maps", "sky.exr"), m))
	s, err := l.LoadReader("pre", strings.NewReader(`{"nodes": [{"envMap": "sky.exr"}]}`), "maps")
	if err != nil {
		t.Fatalf("LoadReader() error = %v", err)
	}
	if got := s.Get(1).EnvMap(); got != m {
		t.Errorf("EnvMap() = %p, want the precached map %p", got, m)
	}
}

func TestLoadMissingEnvMap(t *testing.T) {
	l := NewLoader(BackendTypeJSON)
	_, err := l.LoadReader("missing", strings.NewReader(`{"nodes": [{"envMap": "nowhere.exr"}]}`), t.TempDir())
	if err == nil {
		t.Error("LoadReader() with a missing env map succeeded, want an error")
	}
}
