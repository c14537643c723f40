package renderer

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-sdf/common"
	"github.com/Carmen-Shannon/oxy-sdf/engine/camera"
	"github.com/Carmen-Shannon/oxy-sdf/engine/entity"
	"github.com/Carmen-Shannon/oxy-sdf/engine/kernel"
	"github.com/Carmen-Shannon/oxy-sdf/engine/light"
	"github.com/Carmen-Shannon/oxy-sdf/engine/renderer/shader"
	"github.com/go-gl/mathgl/mgl32"
)

const testSize = 16

func raymarchDefines(entities, lights int) Defines {
	d := shader.NewDefines()
	d.SetInt("MAX_ENTITIES", entities)
	d.SetInt("NUM_LIGHTS", lights)
	d.SetBool("CONETRACING", false)
	d.SetBool("ENVMAP", false)
	return d
}

type sphereScene struct {
	host   SoftwareHost
	target Target
	prog   Program
	params DrawParams
}

func newSphereScene(t *testing.T, transparent bool, options ...HostBuilderOption) *sphereScene {
	t.Helper()
	h := NewSoftwareHost(testSize, testSize, options...)
	target, err := h.CreateTarget(testSize, testSize)
	if err != nil {
		t.Fatalf("CreateTarget() error = %v", err)
	}
	prog, err := h.CompileProgram(ProgramSource{Key: "raymarch", Source: kernel.GPURaymarchSource, Transparent: transparent}, raymarchDefines(1, 1))
	if err != nil {
		t.Fatalf("CompileProgram() error = %v", err)
	}
	e := entity.NewEntity(entity.WithShape(entity.ShapeSphere), entity.WithScale(2, 2, 2), entity.WithColor(1, 0, 0))
	layer := entity.Layer{e}
	lights := []light.GPULight{{Color: [3]float32{1, 1, 1}, Direction: [3]float32{0, 0, -1}}}
	return &sphereScene{
		host:   h,
		target: target,
		prog:   prog,
		params: DrawParams{
			Camera:   camera.NewCamera(camera.WithPosition(0, 0, 5), camera.WithTarget(0, 0, 0)),
			Entities: layer,
			Lights:   lights,
			Uniforms: kernel.NewGPURaymarchUniform(e.WorldBounds(), testSize, testSize, 1, 1, 0.5, kernel.Material{Roughness: 1}),
		},
	}
}

func (s *sphereScene) draw(t *testing.T) {
	t.Helper()
	s.host.SetRenderTarget(s.target)
	if err := s.host.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if err := s.host.Draw(s.prog, s.params); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
}

func TestSoftwareHostDrawSphere(t *testing.T) {
	s := newSphereScene(t, false, WithWorkers(4))
	s.draw(t)

	st := s.target.(SoftwareTarget)
	c, d := st.At(testSize/2, testSize/2)
	if c[3] != 1 {
		t.Errorf("center alpha = %v, want 1", c[3])
	}
	if c[0] <= c[1] {
		t.Errorf("center color = %v, want red dominant", c)
	}
	if d <= 0 || d >= 1 {
		t.Errorf("center depth = %v, want in (0, 1)", d)
	}
	c, d = st.At(0, 0)
	if c != (mgl32.Vec4{}) || d != 1 {
		t.Errorf("corner = %v, %v; want untouched", c, d)
	}
}

func TestSoftwareHostSingleWorkerMatchesPool(t *testing.T) {
	a := newSphereScene(t, false, WithWorkers(1))
	b := newSphereScene(t, false, WithWorkers(3))
	a.draw(t)
	b.draw(t)
	da := a.target.(SoftwareTarget).DepthBuffer()
	db := b.target.(SoftwareTarget).DepthBuffer()
	for i := range da {
		if da[i] != db[i] {
			t.Fatalf("depth[%d] = %v with one worker, %v with three", i, da[i], db[i])
		}
	}
}

func TestSoftwareHostDepthMask(t *testing.T) {
	s := newSphereScene(t, false)
	s.host.SetDepthMask(false)
	s.draw(t)

	c, d := s.target.(SoftwareTarget).At(testSize/2, testSize/2)
	if c[3] != 1 {
		t.Errorf("center alpha = %v, want 1", c[3])
	}
	if d != 1 {
		t.Errorf("center depth = %v, want 1 with the depth mask off", d)
	}
}

func TestSoftwareHostViewport(t *testing.T) {
	s := newSphereScene(t, false)
	s.host.SetViewport(common.Viewport{X: 0, Y: 0, Width: testSize / 2, Height: testSize})
	s.draw(t)

	st := s.target.(SoftwareTarget)
	for y := range testSize {
		for x := testSize / 2; x < testSize; x++ {
			if c, _ := st.At(x, y); c[3] != 0 {
				t.Fatalf("At(%d, %d) alpha = %v outside the viewport", x, y, c[3])
			}
		}
	}
	if c, _ := st.At(testSize/4, testSize/2); c[3] != 1 {
		t.Errorf("viewport center alpha = %v, want 1", c[3])
	}
}

func TestSoftwareHostDrawCapacityExceeded(t *testing.T) {
	s := newSphereScene(t, false)
	s.params.Entities = append(s.params.Entities, entity.NewEntity())
	s.host.SetRenderTarget(s.target)
	if err := s.host.Draw(s.prog, s.params); !errors.Is(err, ErrCapacityExceeded) {
		t.Errorf("Draw() error = %v, want ErrCapacityExceeded", err)
	}
}

func TestSoftwareHostDisposed(t *testing.T) {
	s := newSphereScene(t, false)
	s.host.SetRenderTarget(s.target)

	s.prog.Release()
	s.prog.Release()
	if err := s.host.Draw(s.prog, s.params); !errors.Is(err, ErrDisposed) {
		t.Errorf("Draw(released program) error = %v, want ErrDisposed", err)
	}

	s.target.Release()
	s.target.Release()
	if err := s.host.Clear(); !errors.Is(err, ErrDisposed) {
		t.Errorf("Clear(released target) error = %v, want ErrDisposed", err)
	}
	if err := s.target.SetSize(4, 4); !errors.Is(err, ErrDisposed) {
		t.Errorf("SetSize(released) error = %v, want ErrDisposed", err)
	}
}

func TestSoftwareHostCompileProgramMissingDefine(t *testing.T) {
	h := NewSoftwareHost(4, 4)
	d := shader.NewDefines()
	d.SetInt("MAX_ENTITIES", 1)
	_, err := h.CompileProgram(ProgramSource{Key: "raymarch", Source: kernel.GPURaymarchSource}, d)
	if !errors.Is(err, shader.ErrMissingDefine) {
		t.Errorf("CompileProgram() error = %v, want ErrMissingDefine", err)
	}
}

func TestSoftwareHostComposite(t *testing.T) {
	s := newSphereScene(t, false, WithClearColor(0, 0, 1, 1))
	s.draw(t)

	s.host.SetRenderTarget(nil)
	if err := s.host.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if err := s.host.Composite(s.target); err != nil {
		t.Fatalf("Composite() error = %v", err)
	}

	screen := s.host.Screen()
	want, wantDepth := s.target.(SoftwareTarget).At(testSize/2, testSize/2)
	if got, d := screen.At(testSize/2, testSize/2); got != want || d != wantDepth {
		t.Errorf("screen center = %v, %v; want %v, %v", got, d, want, wantDepth)
	}
	if got, _ := screen.At(0, 0); got != (mgl32.Vec4{0, 0, 1, 1}) {
		t.Errorf("screen corner = %v, want the clear color", got)
	}
	img := screen.Image()
	if px := img.RGBAAt(0, 0); px.B != 255 || px.A != 255 {
		t.Errorf("Image() corner = %v, want opaque blue", px)
	}
}

func TestSoftwareHostCompositeDepthTested(t *testing.T) {
	s := newSphereScene(t, false)
	s.draw(t)

	// A nearer sphere already on screen keeps its pixel.
	near := newSphereScene(t, false)
	near.params.Camera = camera.NewCamera(camera.WithPosition(0, 0, 2.5), camera.WithTarget(0, 0, 0))
	near.host = s.host
	near.target = s.host.Screen()
	near.draw(t)
	before, beforeDepth := s.host.Screen().At(testSize/2, testSize/2)

	s.host.SetRenderTarget(nil)
	if err := s.host.Composite(s.target); err != nil {
		t.Fatalf("Composite() error = %v", err)
	}
	if got, d := s.host.Screen().At(testSize/2, testSize/2); got != before || d != beforeDepth {
		t.Errorf("screen center = %v, %v; want the nearer %v, %v", got, d, before, beforeDepth)
	}
}

func TestSoftwareTargetSetSize(t *testing.T) {
	s := newSphereScene(t, false)
	s.draw(t)
	st := s.target.(SoftwareTarget)
	before, _ := st.At(testSize/2, testSize/2)

	if err := st.SetSize(testSize, testSize); err != nil {
		t.Fatalf("SetSize() error = %v", err)
	}
	if got, _ := st.At(testSize/2, testSize/2); got != before {
		t.Errorf("SetSize(same) changed the pixel to %v, want %v", got, before)
	}
	if err := st.SetSize(8, 0); err != nil {
		t.Fatalf("SetSize() error = %v", err)
	}
	if w, h := st.Size(); w != 8 || h != 1 {
		t.Errorf("Size() = %d, %d; want 8, 1", w, h)
	}
}

func TestSoftwareHostTransparentBlend(t *testing.T) {
	s := newSphereScene(t, true)
	s.host.SetRenderTarget(s.target)
	if err := s.host.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if err := s.host.Draw(s.prog, s.params); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	// Opaque fragments have alpha 1, so blending over transparent black leaves them intact.
	c, _ := s.target.(SoftwareTarget).At(testSize/2, testSize/2)
	if c[3] != 1 {
		t.Errorf("center alpha = %v, want 1", c[3])
	}
}

func TestSoftwareHostFrames(t *testing.T) {
	h := NewSoftwareHost(4, 4)
	defer h.Release()

	if err := h.BeginFrame(); err != nil {
		t.Fatalf("BeginFrame() error = %v", err)
	}
	if err := h.BeginFrame(); !errors.Is(err, errFrameInProgress) {
		t.Errorf("second BeginFrame() error = %v, want errFrameInProgress", err)
	}
	h.EndFrame()
	h.EndFrame()
	if got := h.Frames(); got != 1 {
		t.Errorf("Frames() = %d, want 1", got)
	}
}

func TestSoftwareHostResizeAfterRelease(t *testing.T) {
	var buf bytes.Buffer
	common.SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})))
	defer common.SetLogger(nil)

	h := NewSoftwareHost(testSize, testSize)
	h.Release()
	h.Resize(2*testSize, testSize)

	if w, _ := h.Screen().Size(); w != testSize {
		t.Errorf("Screen().Size() width = %d, want %d", w, testSize)
	}
	if got := buf.String(); !strings.Contains(got, "resize failed") || !strings.Contains(got, ErrDisposed.Error()) {
		t.Errorf("log = %q, want a resize warning carrying ErrDisposed", got)
	}
}
