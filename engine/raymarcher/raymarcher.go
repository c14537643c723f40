// Package raymarcher is the volumetric compositor node. Each frame it culls and orders the
// layers of its entity store, renders them with the raymarch program into a private
// off-screen target and leaves that target for the host to composite.
package raymarcher

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-sdf/common"
	"github.com/Carmen-Shannon/oxy-sdf/engine/camera"
	"github.com/Carmen-Shannon/oxy-sdf/engine/capacity"
	"github.com/Carmen-Shannon/oxy-sdf/engine/culling"
	"github.com/Carmen-Shannon/oxy-sdf/engine/entity"
	"github.com/Carmen-Shannon/oxy-sdf/engine/envmap"
	"github.com/Carmen-Shannon/oxy-sdf/engine/kernel"
	"github.com/Carmen-Shannon/oxy-sdf/engine/light"
	"github.com/Carmen-Shannon/oxy-sdf/engine/profiler"
	"github.com/Carmen-Shannon/oxy-sdf/engine/renderer"
	"github.com/Carmen-Shannon/oxy-sdf/engine/renderer/shader"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// ProgramKey names the raymarch program.
const ProgramKey = "raymarch"

// Intersection is one proxy collider hit reported by Intersect.
type Intersection struct {
	LayerID  int
	EntityID int
	Distance float32
	Point    mgl32.Vec3
}

type raymarcherImpl struct {
	mu *sync.Mutex

	layers          []entity.Layer
	resolution      float32
	blending        float32
	envMap          *envmap.Map
	envMapIntensity float32
	conetracing     bool
	metalness       float32
	roughness       float32

	boundsWorkers int
	arena         culling.Arena
	candidates    []culling.Candidate
	capacity      capacity.Manager
	lights        light.Aggregator

	target        renderer.Target
	targetHost    renderer.Host
	resolutionVec [2]float32

	program     renderer.Program
	programHost renderer.Host
	dirty       bool
	// failedDefines is the define key of the last compile failure, retried only when the defines change.
	failedDefines string
	failedErr     error

	profiler *profiler.Profiler
	stats    profiler.FrameStats
	disposed bool
}

// Raymarcher renders layers of signed distance entities as one node of a host scene.
type Raymarcher interface {
	// Render runs one frame: reconcile capacities, gather lights, cull and order layers, then
	// draw every visible layer into the off-screen target. The host's target, viewport and
	// flags are restored before Render returns, on every path.
	//
	// Parameters:
	//   - ctx: checked before each draw; a cancelled frame returns ctx.Err()
	//   - host: the renderer to draw through
	//   - scene: the light source traversal, nil for no lights
	//   - cam: the rendering camera
	//
	// Returns:
	//   - error: renderer.ErrDisposed after Dispose, a compile error, or a host failure
	Render(ctx context.Context, host renderer.Host, scene light.Traverser, cam camera.Camera) error

	// Target returns the off-screen target of the last frame, nil before the first Render.
	Target() renderer.Target

	// Dispose releases the target and program. Later calls return immediately.
	Dispose()

	// Intersect casts a ray against the proxy colliders of every entity.
	//
	// Parameters:
	//   - origin: the ray origin in world space
	//   - dir: the ray direction, normalized internally
	//
	// Returns:
	//   - []Intersection: the hits sorted by distance
	Intersect(origin, dir mgl32.Vec3) []Intersection

	// CloneInto copies configuration and layers into dst. GPU state is never shared.
	//
	// Parameters:
	//   - dst: a Raymarcher created by New
	CloneInto(dst Raymarcher)

	// Stats returns the statistics of the last frame.
	Stats() profiler.FrameStats

	// Capacity returns the declared entity and light array capacities.
	Capacity() (entities, lights int)

	Layers() []entity.Layer
	SetLayers(layers []entity.Layer)
	Resolution() float32
	// SetResolution changes the target scale. The target is resized on the next Render.
	SetResolution(scale float32)
	Blending() float32
	SetBlending(k float32)
	EnvMap() *envmap.Map
	// SetEnvMap replaces the reflection probe. The program is rebuilt only when the map's presence changes.
	SetEnvMap(m *envmap.Map)
	EnvMapIntensity() float32
	SetEnvMapIntensity(intensity float32)
	Conetracing() bool
	// SetConetracing switches the marching mode and blending. The program is rebuilt only on change.
	SetConetracing(enabled bool)
	Metalness() float32
	SetMetalness(m float32)
	Roughness() float32
	SetRoughness(rough float32)
}

var _ Raymarcher = &raymarcherImpl{}

// New creates a raymarcher node.
//
// Parameters:
//   - options: functional options to configure the node
//
// Returns:
//   - Raymarcher: the node
func New(options ...RaymarcherBuilderOption) Raymarcher {
	r := &raymarcherImpl{
		mu:              &sync.Mutex{},
		resolution:      1,
		blending:        0.5,
		envMapIntensity: 1,
		roughness:       1,
		boundsWorkers:   1,
		dirty:           true,
	}
	for _, opt := range options {
		opt(r)
	}
	r.arena = culling.NewArena(culling.WithWorkers(r.boundsWorkers))
	return r
}

func (r *raymarcherImpl) Render(ctx context.Context, host renderer.Host, scene light.Traverser, cam camera.Camera) error {
	if host == nil || cam == nil {
		panic("raymarcher: Render with a nil host or camera")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.disposed {
		return renderer.ErrDisposed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	stats := profiler.FrameStats{Layers: len(r.layers)}
	defer func() {
		stats.EntityCapacity, stats.LightCapacity = r.capacity.Entities.Capacity(), r.capacity.Lights.Capacity()
		stats.Duration = time.Since(start)
		r.stats = stats
		if r.profiler != nil {
			r.profiler.Record(stats)
		}
	}()

	maxEntities := 0
	for _, l := range r.layers {
		maxEntities = max(maxEntities, len(l))
	}
	lights := r.lights.Gather(scene, cam.Layers())
	if r.capacity.Reconcile(maxEntities, len(lights)) {
		common.Logger().Debug("raymarcher: capacity grew",
			"entities", r.capacity.Entities.Capacity(), "lights", r.capacity.Lights.Capacity())
		r.dirty = true
	}

	r.arena.Compute(r.layers)
	r.candidates = r.arena.Cull(cam.Frustum(), cam.Position(), r.candidates[:0])
	Order(r.candidates, r.conetracing)
	stats.Visible = len(r.candidates)

	resized, err := r.ensureTarget(host)
	if err != nil {
		return err
	}
	if resized {
		stats.Resizes++
	}
	rebuilt, err := r.ensureProgram(host)
	if err != nil {
		return err
	}
	if rebuilt {
		stats.Rebuilds++
	}

	prevTarget := host.RenderTarget()
	prevAutoClear := host.AutoClear()
	prevXR := host.XREnabled()
	prevShadow := host.ShadowAutoUpdate()
	prevDepthMask := host.DepthMask()
	prevViewport := host.Viewport()
	defer func() {
		host.SetAutoClear(prevAutoClear)
		host.SetXREnabled(prevXR)
		host.SetShadowAutoUpdate(prevShadow)
		host.SetDepthMask(prevDepthMask)
		host.SetRenderTarget(prevTarget)
		if vp, ok := cam.Viewport(); ok {
			host.SetViewport(vp)
		} else {
			host.SetViewport(prevViewport)
		}
	}()
	host.SetAutoClear(false)
	host.SetXREnabled(false)
	host.SetShadowAutoUpdate(false)
	host.SetRenderTarget(r.target)
	host.SetDepthMask(true)
	host.SetViewport(common.Viewport{})

	if err := host.Clear(); err != nil {
		return fmt.Errorf("raymarcher: clear target: %w", err)
	}

	mat := kernel.Material{Metalness: r.metalness, Roughness: r.roughness, EnvMapIntensity: r.envMapIntensity}
	width, height := int(r.resolutionVec[0]), int(r.resolutionVec[1])
	for _, c := range r.candidates {
		if err := ctx.Err(); err != nil {
			return err
		}
		layer := r.layers[c.LayerID]
		err := host.Draw(r.program, renderer.DrawParams{
			Camera:   cam,
			Entities: layer,
			Lights:   lights,
			Uniforms: kernel.NewGPURaymarchUniform(c.Bounds, width, height, len(layer), len(lights), r.blending, mat),
			EnvMap:   r.envMap,
		})
		if err != nil {
			return fmt.Errorf("raymarcher: draw layer %d: %w", c.LayerID, err)
		}
		stats.Draws++
	}
	return nil
}

// ensureTarget allocates the target on first use and resizes it only when the scaled drawing
// buffer size changed.
func (r *raymarcherImpl) ensureTarget(host renderer.Host) (bool, error) {
	bw, bh := host.DrawingBufferSize()
	w := max(int(math32.Floor(float32(bw)*r.resolution)), 1)
	h := max(int(math32.Floor(float32(bh)*r.resolution)), 1)

	if r.target == nil || r.targetHost != host {
		if r.target != nil {
			r.target.Release()
		}
		t, err := host.CreateTarget(w, h)
		if err != nil {
			return false, fmt.Errorf("raymarcher: create target: %w", err)
		}
		r.target, r.targetHost = t, host
		r.resolutionVec = [2]float32{float32(w), float32(h)}
		return true, nil
	}

	if cw, ch := r.target.Size(); cw == w && ch == h {
		return false, nil
	}
	if err := r.target.SetSize(w, h); err != nil {
		return false, fmt.Errorf("raymarcher: resize target: %w", err)
	}
	r.resolutionVec = [2]float32{float32(w), float32(h)}
	common.Logger().Debug("raymarcher: target resized", "width", w, "height", h)
	return true, nil
}

func (r *raymarcherImpl) defines() shader.Defines {
	d := shader.NewDefines()
	d.SetInt("MAX_ENTITIES", r.capacity.Entities.Slots())
	d.SetInt("NUM_LIGHTS", r.capacity.Lights.Slots())
	d.SetBool("CONETRACING", r.conetracing)
	d.SetBool("ENVMAP", r.envMap != nil)
	return d
}

// ensureProgram recompiles the program when it is dirty or was compiled by another host.
func (r *raymarcherImpl) ensureProgram(host renderer.Host) (bool, error) {
	if !r.dirty && r.program != nil && r.programHost == host {
		return false, nil
	}
	defines := r.defines()
	key := defines.Key()
	if r.failedErr != nil && r.failedDefines == key {
		return false, r.failedErr
	}

	p, err := host.CompileProgram(renderer.ProgramSource{
		Key:         ProgramKey,
		Source:      kernel.GPURaymarchSource,
		Transparent: r.conetracing,
	}, defines)
	if err != nil {
		r.failedDefines = key
		r.failedErr = fmt.Errorf("raymarcher: compile program: %w", err)
		return false, r.failedErr
	}
	if r.program != nil {
		r.program.Release()
	}
	r.program, r.programHost = p, host
	r.dirty = false
	r.failedDefines, r.failedErr = "", nil
	return true, nil
}

func (r *raymarcherImpl) Target() renderer.Target {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.target
}

func (r *raymarcherImpl) Dispose() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.disposed {
		return
	}
	r.disposed = true
	if r.target != nil {
		r.target.Release()
		r.target = nil
	}
	if r.program != nil {
		r.program.Release()
		r.program = nil
	}
	r.targetHost, r.programHost = nil, nil
}

func (r *raymarcherImpl) Intersect(origin, dir mgl32.Vec3) []Intersection {
	r.mu.Lock()
	defer r.mu.Unlock()

	if dir.Len() == 0 {
		return nil
	}
	dir = dir.Normalize()
	var hits []Intersection
	for layerID, layer := range r.layers {
		for entityID, e := range layer {
			d, ok := e.IntersectRay(origin, dir)
			if !ok {
				continue
			}
			hits = append(hits, Intersection{
				LayerID:  layerID,
				EntityID: entityID,
				Distance: d,
				Point:    origin.Add(dir.Mul(d)),
			})
		}
	}
	slices.SortStableFunc(hits, func(a, b Intersection) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		default:
			return 0
		}
	})
	return hits
}

func (r *raymarcherImpl) CloneInto(dst Raymarcher) {
	d, ok := dst.(*raymarcherImpl)
	if !ok {
		panic(fmt.Sprintf("raymarcher: CloneInto target of type %T", dst))
	}
	if d == r {
		return
	}
	r.mu.Lock()
	layers := entity.CloneLayers(r.layers)
	resolution, blending := r.resolution, r.blending
	envMap, intensity := r.envMap, r.envMapIntensity
	conetracing, metalness, roughness := r.conetracing, r.metalness, r.roughness
	r.mu.Unlock()

	d.SetLayers(layers)
	d.SetResolution(resolution)
	d.SetBlending(blending)
	d.SetEnvMap(envMap)
	d.SetEnvMapIntensity(intensity)
	d.SetConetracing(conetracing)
	d.SetMetalness(metalness)
	d.SetRoughness(roughness)
}

func (r *raymarcherImpl) Stats() profiler.FrameStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *raymarcherImpl) Capacity() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.capacity.Entities.Capacity(), r.capacity.Lights.Capacity()
}
