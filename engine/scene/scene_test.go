package scene

import (
	"context"
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-sdf/engine/camera"
	"github.com/Carmen-Shannon/oxy-sdf/engine/entity"
	"github.com/Carmen-Shannon/oxy-sdf/engine/light"
	"github.com/Carmen-Shannon/oxy-sdf/engine/raymarcher"
	"github.com/Carmen-Shannon/oxy-sdf/engine/renderer"
	"github.com/go-gl/mathgl/mgl32"
)

func sphereNode(x, y, z float32) raymarcher.Raymarcher {
	e := entity.NewEntity(entity.WithShape(entity.ShapeSphere), entity.WithPosition(x, y, z), entity.WithScale(2, 2, 2))
	return raymarcher.New(raymarcher.WithLayers(entity.Layer{e}))
}

func testCamera() camera.Camera {
	return camera.NewCamera(camera.WithPosition(0, 0, 5), camera.WithTarget(0, 0, 0))
}

func TestNewSceneNilCameraPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewScene(nil camera) did not panic")
		}
	}()
	NewScene("empty", nil)
}

func TestSceneNodes(t *testing.T) {
	a, b := sphereNode(0, 0, 0), sphereNode(1, 0, 0)
	s := NewScene("nodes", testCamera(), WithNodes(a), WithActive(true))
	id := s.Add(b)

	if id != 2 {
		t.Errorf("Add() = %d, want 2", id)
	}
	if got := s.Get(1); got != a {
		t.Errorf("Get(1) = %v, want the first node", got)
	}
	if !s.Active() {
		t.Error("Active() = false, want true")
	}
	if ids := s.NodeIDs(); len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Errorf("NodeIDs() = %v, want [1 2]", ids)
	}
	s.Remove(1)
	if s.Count() != 1 || s.Get(1) != nil || s.Get(2) != b {
		t.Errorf("after Remove(1): Count() = %d, Get(1) = %v, Get(2) = %v", s.Count(), s.Get(1), s.Get(2))
	}
	s.Clear()
	if s.Count() != 0 {
		t.Errorf("Count() after Clear = %d, want 0", s.Count())
	}
}

func TestSceneTraverseVisibleLights(t *testing.T) {
	sun := light.NewLight(light.LightTypeDirectional)
	hidden := light.NewLight(light.LightTypeDirectional, light.WithVisible(false))
	lamp := light.NewLight(light.LightTypePoint)
	s := NewScene("lights", testCamera(), WithLights(sun, hidden))
	s.AddLight(lamp)

	var got []light.Light
	s.TraverseVisibleLights(func(l light.Light) { got = append(got, l) })
	if len(got) != 2 || got[0] != sun || got[1] != lamp {
		t.Errorf("TraverseVisibleLights() = %v, want [sun lamp]", got)
	}

	s.RemoveLight(sun)
	if lights := s.Lights(); len(lights) != 2 || lights[0] != hidden {
		t.Errorf("Lights() after RemoveLight = %v, want [hidden lamp]", lights)
	}
}

func TestSceneRender(t *testing.T) {
	h := renderer.NewSoftwareHost(16, 16)
	defer h.Release()
	sun := light.NewLight(light.LightTypeDirectional, light.WithPosition(0, 0, 5), light.WithTarget(0, 0, 0))
	s := NewScene("render", testCamera(), WithNodes(sphereNode(0, 0, 0), sphereNode(0, 0, -50)), WithLights(sun))
	defer s.Dispose()

	for frame := range 2 {
		if err := s.Render(context.Background(), h); err != nil {
			t.Fatalf("frame %d: Render() error = %v", frame, err)
		}
		c, d := h.Screen().At(8, 8)
		if c[3] != 1 || d <= 0 || d >= 1 {
			t.Errorf("frame %d: center = %v depth %v, want an opaque hit with depth in (0, 1)", frame, c, d)
		}
		if c, _ := h.Screen().At(0, 0); c[3] != 0 {
			t.Errorf("frame %d: corner alpha = %v, want 0", frame, c[3])
		}
	}
	if got := s.Get(1).Stats().Draws; got != 1 {
		t.Errorf("node 1 draws = %d, want 1", got)
	}
}

func TestSceneRenderDisposedNode(t *testing.T) {
	h := renderer.NewSoftwareHost(8, 8)
	defer h.Release()
	n := sphereNode(0, 0, 0)
	n.Dispose()
	s := NewScene("disposed", testCamera(), WithNodes(n))

	if err := s.Render(context.Background(), h); !errors.Is(err, renderer.ErrDisposed) {
		t.Errorf("Render() error = %v, want ErrDisposed", err)
	}
}

func TestSceneIntersect(t *testing.T) {
	s := NewScene("pick", testCamera(), WithNodes(sphereNode(0, 0, -5), sphereNode(0, 0, 0)))

	hits := s.Intersect(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{0, 0, -1})
	if len(hits) != 2 {
		t.Fatalf("Intersect() = %d hits, want 2", len(hits))
	}
	if hits[0].NodeID != 2 || hits[1].NodeID != 1 {
		t.Errorf("Intersect() node order = [%d %d], want [2 1]", hits[0].NodeID, hits[1].NodeID)
	}
	if d := hits[0].Distance; mgl32.Abs(d-4) > 1e-4 {
		t.Errorf("nearest distance = %v, want 4", d)
	}
}

func TestSceneDispose(t *testing.T) {
	n := sphereNode(0, 0, 0)
	s := NewScene("dispose", testCamera(), WithNodes(n))
	s.Dispose()

	if s.Count() != 0 {
		t.Errorf("Count() after Dispose = %d, want 0", s.Count())
	}
	h := renderer.NewSoftwareHost(8, 8)
	defer h.Release()
	if err := n.Render(context.Background(), h, nil, testCamera()); !errors.Is(err, renderer.ErrDisposed) {
		t.Errorf("node Render() after Dispose error = %v, want ErrDisposed", err)
	}
}
