package scene

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-sdf/common"
	"github.com/Carmen-Shannon/oxy-sdf/engine/camera"
	"github.com/Carmen-Shannon/oxy-sdf/engine/light"
	"github.com/Carmen-Shannon/oxy-sdf/engine/raymarcher"
	"github.com/Carmen-Shannon/oxy-sdf/engine/renderer"
	"github.com/go-gl/mathgl/mgl32"
)

// Hit is one raymarcher intersection tagged with the node that produced it.
type Hit struct {
	NodeID uint64
	raymarcher.Intersection
}

// Scene is the host scene graph: a camera, the lights it traverses and the raymarcher
// nodes it renders. Nodes are rendered in insertion order and each node's target is
// composited into the host's current target once every node has rendered.
// Scenes can be hot-swapped via the Active flag to switch between different views or levels.
// Thread-safe for concurrent access.
type Scene interface {
	light.Traverser

	// Name returns the scene's identifier.
	Name() string

	// SetName sets the scene's identifier.
	SetName(name string)

	// Active returns whether this scene is currently active for rendering.
	Active() bool

	// SetActive sets whether this scene is active for rendering.
	SetActive(active bool)

	// Camera returns the scene's camera.
	Camera() camera.Camera

	// SetCamera replaces the scene's camera.
	//
	// Parameters:
	//   - cam: the new camera, must not be nil
	SetCamera(cam camera.Camera)

	// Add registers a raymarcher node.
	//
	// Parameters:
	//   - node: the node to render each frame
	//
	// Returns:
	//   - uint64: the assigned node ID
	Add(node raymarcher.Raymarcher) uint64

	// Get retrieves a node by its ID. Returns nil if not found.
	//
	// Parameters:
	//   - id: the node's ID
	//
	// Returns:
	//   - raymarcher.Raymarcher: the node or nil
	Get(id uint64) raymarcher.Raymarcher

	// Remove unregisters a node by ID. The node is not disposed.
	//
	// Parameters:
	//   - id: the node's ID
	Remove(id uint64)

	// Count returns the number of registered nodes.
	Count() int

	// NodeIDs returns the IDs of all registered nodes in render order.
	NodeIDs() []uint64

	// AddLight adds a light source to the scene.
	//
	// Parameters:
	//   - l: the Light to add
	AddLight(l light.Light)

	// RemoveLight removes a light source from the scene by reference.
	//
	// Parameters:
	//   - l: the Light to remove
	RemoveLight(l light.Light)

	// Lights returns all lights currently registered in the scene.
	//
	// Returns:
	//   - []light.Light: a copy of the scene's light list
	Lights() []light.Light

	// Render draws one frame through host. When the host auto-clears, its current target is
	// cleared first. Every node then renders into its own target and the targets are
	// composited over the host target in node order.
	//
	// Parameters:
	//   - ctx: passed to every node render
	//   - host: the renderer to draw through
	//
	// Returns:
	//   - error: the first node or composite failure
	Render(ctx context.Context, host renderer.Host) error

	// Intersect casts a ray against every node.
	//
	// Parameters:
	//   - origin: the ray origin in world space
	//   - dir: the ray direction
	//
	// Returns:
	//   - []Hit: every node's hits merged and sorted by distance
	Intersect(origin, dir mgl32.Vec3) []Hit

	// Clear removes all nodes and lights from the scene.
	// Does not release GPU resources.
	Clear()

	// Dispose disposes every registered node and clears the scene.
	Dispose()
}

type node struct {
	id uint64
	rm raymarcher.Raymarcher
}

type scene struct {
	mu *sync.RWMutex

	name   string
	active bool
	cam    camera.Camera

	nodes  []node
	nextID uint64
	lights []light.Light
}

// Ensure scene implements Scene interface.
var _ Scene = &scene{}

// lightList is a frame snapshot of the scene lights handed to the nodes, so a node render
// never re-enters the scene lock.
type lightList []light.Light

func (l lightList) TraverseVisibleLights(fn func(light.Light)) {
	for _, li := range l {
		if li.Visible() {
			fn(li)
		}
	}
}

// NewScene creates a new Scene with the given camera. The camera is required and
// NewScene panics if it is nil.
//
// Parameters:
//   - name: the name of the scene
//   - cam: the camera to attach (must not be nil)
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, cam camera.Camera, options ...SceneBuilderOption) Scene {
	if cam == nil {
		panic("scene: NewScene requires a non-nil Camera")
	}
	s := &scene{
		mu:     &sync.RWMutex{},
		name:   name,
		cam:    cam,
		nextID: 1,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *scene) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) Camera() camera.Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cam
}

func (s *scene) SetCamera(cam camera.Camera) {
	if cam == nil {
		panic("scene: SetCamera requires a non-nil Camera")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cam = cam
}

func (s *scene) Add(rm raymarcher.Raymarcher) uint64 {
	if rm == nil {
		panic("scene: Add requires a non-nil Raymarcher")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(rm)
}

// addLocked registers a node. Caller must hold s.mu write lock.
func (s *scene) addLocked(rm raymarcher.Raymarcher) uint64 {
	id := s.nextID
	s.nextID++
	s.nodes = append(s.nodes, node{id: id, rm: rm})
	return id
}

func (s *scene) Get(id uint64) raymarcher.Raymarcher {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, n := range s.nodes {
		if n.id == id {
			return n.rm
		}
	}
	return nil
}

func (s *scene) Remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes = slices.DeleteFunc(s.nodes, func(n node) bool { return n.id == id })
}

func (s *scene) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

func (s *scene) NodeIDs() []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]uint64, len(s.nodes))
	for i, n := range s.nodes {
		ids[i] = n.id
	}
	return ids
}

func (s *scene) AddLight(l light.Light) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lights = append(s.lights, l)
}

func (s *scene) RemoveLight(l light.Light) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.lights {
		if existing == l {
			s.lights = append(s.lights[:i], s.lights[i+1:]...)
			return
		}
	}
}

func (s *scene) Lights() []light.Light {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]light.Light, len(s.lights))
	copy(out, s.lights)
	return out
}

func (s *scene) TraverseVisibleLights(fn func(light.Light)) {
	s.mu.RLock()
	lights := lightList(slices.Clone(s.lights))
	s.mu.RUnlock()
	lights.TraverseVisibleLights(fn)
}

// snapshot copies the per-frame state so rendering runs without holding the lock.
func (s *scene) snapshot() (camera.Camera, []node, lightList) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cam, slices.Clone(s.nodes), lightList(slices.Clone(s.lights))
}

func (s *scene) Render(ctx context.Context, host renderer.Host) error {
	if host == nil {
		panic("scene: Render requires a non-nil Host")
	}
	cam, nodes, lights := s.snapshot()
	cam.Update()

	if host.AutoClear() {
		if err := host.Clear(); err != nil {
			return fmt.Errorf("scene: clear: %w", err)
		}
	}
	for _, n := range nodes {
		if err := n.rm.Render(ctx, host, lights, cam); err != nil {
			return fmt.Errorf("scene: render node %d: %w", n.id, err)
		}
	}
	for _, n := range nodes {
		t := n.rm.Target()
		if t == nil {
			continue
		}
		if err := host.Composite(t); err != nil {
			return fmt.Errorf("scene: composite node %d: %w", n.id, err)
		}
	}
	common.Logger().Debug("scene: frame rendered", "scene", s.Name(), "nodes", len(nodes), "lights", len(lights))
	return nil
}

func (s *scene) Intersect(origin, dir mgl32.Vec3) []Hit {
	_, nodes, _ := s.snapshot()
	var hits []Hit
	for _, n := range nodes {
		for _, in := range n.rm.Intersect(origin, dir) {
			hits = append(hits, Hit{NodeID: n.id, Intersection: in})
		}
	}
	slices.SortStableFunc(hits, func(a, b Hit) int {
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

func (s *scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes = nil
	s.lights = nil
}

func (s *scene) Dispose() {
	s.mu.Lock()
	nodes := s.nodes
	s.nodes = nil
	s.lights = nil
	s.mu.Unlock()

	for _, n := range nodes {
		n.rm.Dispose()
	}
}
