package main

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-sdf/engine/culling"
	"github.com/Carmen-Shannon/oxy-sdf/engine/scene"
	"github.com/gogpu/gg"
)

// boundsColors cycles per node so overlapping nodes stay distinguishable.
var boundsColors = []gg.RGBA{
	gg.RGB(1, 0.8, 0),
	gg.RGB(0.2, 0.9, 1),
	gg.RGB(1, 0.3, 0.6),
	gg.RGB(0.5, 1, 0.3),
}

// drawBounds strokes the screen-space outline of every non-empty layer bound in s.
//
// Parameters:
//   - dc: the context holding the rendered frame
//   - s: the rendered scene
//
// Returns:
//   - int: the number of outlines drawn
//   - error: the first stroke failure
func drawBounds(dc *gg.Context, s scene.Scene) (int, error) {
	cam := s.Camera()
	w, h := dc.Width(), dc.Height()
	right := cam.WorldDirection().Cross(cam.Up()).Normalize()

	dc.SetLineWidth(1.5)
	drawn := 0
	for i, id := range s.NodeIDs() {
		node := s.Get(id)
		if node == nil {
			continue
		}
		c := boundsColors[i%len(boundsColors)]
		dc.SetRGBA(c.R, c.G, c.B, c.A)
		for _, layer := range node.Layers() {
			b := culling.LayerBounds(layer)
			if b.IsEmpty() {
				continue
			}
			center, ok := cam.Project(b.Center, w, h)
			if !ok {
				continue
			}
			edge, ok := cam.Project(b.Center.Add(right.Mul(b.Radius)), w, h)
			if !ok {
				continue
			}
			r := edge.Sub(center).Len()
			if r < 1 {
				continue
			}
			dc.DrawCircle(float64(center[0]), float64(center[1]), float64(r))
			if err := dc.Stroke(); err != nil {
				return drawn, fmt.Errorf("stroke node %d bounds: %w", id, err)
			}
			drawn++
		}
	}
	return drawn, nil
}
