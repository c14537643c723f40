// Package culling computes per-layer bounding spheres and rejects layers outside the camera frustum.
package culling

import (
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-sdf/common"
	"github.com/Carmen-Shannon/oxy-sdf/engine/entity"
	"github.com/go-gl/mathgl/mgl32"
)

// Candidate is a layer that survived frustum culling.
type Candidate struct {
	LayerID  int
	Bounds   common.Sphere
	Distance float32
}

// Arena owns the scratch bounds of one compositor instance, indexed by layer id.
// The backing slice only grows, so steady-state frames do not allocate.
type Arena interface {
	// Compute recomputes the bounds of every layer from its entities' proxies.
	//
	// Parameters:
	//   - layers: the layers to bound
	Compute(layers []entity.Layer)

	// Bounds returns the last computed bound of a layer.
	//
	// Parameters:
	//   - layerID: the layer index
	//
	// Returns:
	//   - common.Sphere: the bound, empty if the layer has no entities or was never computed
	Bounds(layerID int) common.Sphere

	// Cull returns the visible layers with their distance from the camera position,
	// in layer order. Empty layers are never visible.
	//
	// Parameters:
	//   - frustum: the camera frustum for this frame
	//   - cameraPosition: the camera world position
	//   - dst: a slice to append into, reused between frames
	//
	// Returns:
	//   - []Candidate: dst with the visible layers appended
	Cull(frustum common.Frustum, cameraPosition mgl32.Vec3, dst []Candidate) []Candidate

	// Len returns the number of layers bounded by the last Compute.
	Len() int
}

type arenaImpl struct {
	bounds []common.Sphere
	n      int

	workers     int
	minParallel int
	pool        worker.DynamicWorkerPool
}

var _ Arena = &arenaImpl{}

// NewArena creates an empty bounds arena.
//
// Parameters:
//   - options: functional options to configure the arena
//
// Returns:
//   - Arena: the new arena
func NewArena(options ...ArenaBuilderOption) Arena {
	a := &arenaImpl{
		workers:     1,
		minParallel: 64,
	}
	for _, opt := range options {
		opt(a)
	}
	if a.workers > 1 {
		a.pool = worker.NewDynamicWorkerPool(a.workers, 256, 1*time.Second)
	}
	return a
}

func (a *arenaImpl) Compute(layers []entity.Layer) {
	if cap(a.bounds) < len(layers) {
		grown := make([]common.Sphere, len(layers))
		copy(grown, a.bounds)
		a.bounds = grown
	}
	a.bounds = a.bounds[:len(layers)]
	a.n = len(layers)

	if a.pool == nil || len(layers) < a.minParallel {
		for i, l := range layers {
			a.bounds[i] = LayerBounds(l)
		}
		return
	}

	// Each task writes a disjoint chunk; the WaitGroup is the frame barrier.
	chunk := (len(layers) + a.workers - 1) / a.workers
	var wg sync.WaitGroup
	for id, start := 0, 0; start < len(layers); id, start = id+1, start+chunk {
		end := min(start+chunk, len(layers))
		wg.Add(1)
		s, e := start, end
		a.pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				for i := s; i < e; i++ {
					a.bounds[i] = LayerBounds(layers[i])
				}
				return nil, nil
			},
		})
	}
	wg.Wait()
}

func (a *arenaImpl) Bounds(layerID int) common.Sphere {
	if layerID < 0 || layerID >= a.n {
		return common.EmptySphere()
	}
	return a.bounds[layerID]
}

func (a *arenaImpl) Cull(frustum common.Frustum, cameraPosition mgl32.Vec3, dst []Candidate) []Candidate {
	for i := 0; i < a.n; i++ {
		b := a.bounds[i]
		if !frustum.IntersectsSphere(b) {
			continue
		}
		dst = append(dst, Candidate{
			LayerID:  i,
			Bounds:   b,
			Distance: b.Center.Sub(cameraPosition).Len(),
		})
	}
	return dst
}

func (a *arenaImpl) Len() int {
	return a.n
}

// LayerBounds encloses the world-space proxy spheres of a layer's entities.
// Entity order does not change the result.
//
// Parameters:
//   - layer: the layer to bound
//
// Returns:
//   - common.Sphere: the bound, empty for a layer without entities
func LayerBounds(layer entity.Layer) common.Sphere {
	var buf [16]common.Sphere
	spheres := buf[:0]
	for _, e := range layer {
		spheres = append(spheres, e.WorldBounds())
	}
	return common.EnclosingSphere(spheres)
}
