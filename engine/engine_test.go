package engine

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-sdf/engine/camera"
	"github.com/Carmen-Shannon/oxy-sdf/engine/entity"
	"github.com/Carmen-Shannon/oxy-sdf/engine/raymarcher"
	"github.com/Carmen-Shannon/oxy-sdf/engine/renderer"
	"github.com/Carmen-Shannon/oxy-sdf/engine/scene"
)

func sphereScene(name string, active bool, withSphere bool) scene.Scene {
	cam := camera.NewCamera(camera.WithPosition(0, 0, 5), camera.WithTarget(0, 0, 0))
	s := scene.NewScene(name, cam, scene.WithActive(active))
	if withSphere {
		e := entity.NewEntity(entity.WithShape(entity.ShapeSphere), entity.WithScale(2, 2, 2))
		s.Add(raymarcher.New(raymarcher.WithLayers(entity.Layer{e})))
	}
	return s
}

func TestNewEngineNilHostPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewEngine(nil) did not panic")
		}
	}()
	NewEngine(nil)
}

func TestEngineScenes(t *testing.T) {
	h := renderer.NewSoftwareHost(8, 8)
	defer h.Release()
	a, b := sphereScene("a", true, false), sphereScene("b", true, false)
	e := NewEngine(h, WithScene(1, a))
	e.AddScene(0, b)

	if got := e.Scene(1); got != a {
		t.Errorf("Scene(1) = %v, want a", got)
	}
	scenes := e.Scenes()
	delete(scenes, 0)
	if e.Scene(0) != b {
		t.Error("Scenes() returned the live map, want a copy")
	}
	e.RemoveScene(1)
	if e.Scene(1) != nil || len(e.Scenes()) != 1 {
		t.Errorf("after RemoveScene(1): Scenes() = %v", e.Scenes())
	}
}

func TestEngineRenderFrame(t *testing.T) {
	h := renderer.NewSoftwareHost(16, 16)
	defer h.Release()
	// The empty scene renders after the sphere and must not clear it.
	e := NewEngine(h,
		WithScene(0, sphereScene("sphere", true, true)),
		WithScene(1, sphereScene("empty", true, false)),
		WithScene(-1, sphereScene("inactive", false, true)),
	)

	if err := e.RenderFrame(); err != nil {
		t.Fatalf("RenderFrame() error = %v", err)
	}
	if c, _ := h.Screen().At(8, 8); c[3] != 1 {
		t.Errorf("center alpha = %v, want 1", c[3])
	}
	if h.Frames() != 1 {
		t.Errorf("Frames() = %d, want 1", h.Frames())
	}
	if !h.AutoClear() {
		t.Error("AutoClear() = false after RenderFrame, want the host setting restored")
	}
	if got := e.Scene(-1).Get(1).Stats().Draws; got != 0 {
		t.Errorf("inactive scene draws = %d, want 0", got)
	}
}

func TestEngineRenderFrameInProgress(t *testing.T) {
	h := renderer.NewSoftwareHost(8, 8)
	defer h.Release()
	e := NewEngine(h)

	if err := h.BeginFrame(); err != nil {
		t.Fatalf("BeginFrame() error = %v", err)
	}
	if err := e.RenderFrame(); err == nil {
		t.Error("RenderFrame() with an open frame succeeded, want an error")
	}
	h.EndFrame()
	if err := e.RenderFrame(); err != nil {
		t.Errorf("RenderFrame() error = %v", err)
	}
	if h.Frames() != 2 {
		t.Errorf("Frames() = %d, want 2", h.Frames())
	}
}

func TestEngineRunHeadless(t *testing.T) {
	h := renderer.NewSoftwareHost(8, 8)
	defer h.Release()
	e := NewEngine(h, WithTickRate(500), WithRenderFrameLimit(1000), WithScene(0, sphereScene("s", true, true)))

	var ticks, frames atomic.Int32
	e.SetTickCallback(func(float32) { ticks.Add(1) })
	e.SetRenderCallback(func(float32) {
		if frames.Add(1) == 5 {
			e.Quit()
		}
	})

	done := make(chan struct{})
	go func() {
		e.Run()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		e.Quit()
		t.Fatal("Run() did not return after Quit")
	}

	if frames.Load() < 5 || h.Frames() < 5 {
		t.Errorf("render callbacks = %d, host frames = %d, want at least 5", frames.Load(), h.Frames())
	}
	e.Quit()
}

func TestEngineSetTickRateWhileRunning(t *testing.T) {
	h := renderer.NewSoftwareHost(4, 4)
	defer h.Release()
	e := NewEngine(h, WithRenderFrameLimit(200))

	done := make(chan struct{})
	go func() {
		e.Run()
		close(done)
	}()
	for _, fps := range []float64{30, 120, 0, 240} {
		e.SetTickRate(fps)
	}
	e.Quit()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Run() did not return after Quit")
	}
}

func TestFrameLimit(t *testing.T) {
	tests := []struct {
		fps  float64
		want time.Duration
	}{
		{0, 0},
		{-5, 0},
		{100, 10 * time.Millisecond},
		{144, time.Duration(float64(time.Second) / 144)},
	}
	for _, tt := range tests {
		if got := frameLimit(tt.fps); got != tt.want {
			t.Errorf("frameLimit(%v) = %v, want %v", tt.fps, got, tt.want)
		}
	}
}
