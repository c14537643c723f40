package loader

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-sdf/common"
	"github.com/Carmen-Shannon/oxy-sdf/engine/camera"
	"github.com/Carmen-Shannon/oxy-sdf/engine/entity"
	"github.com/Carmen-Shannon/oxy-sdf/engine/envmap"
	"github.com/Carmen-Shannon/oxy-sdf/engine/light"
	"github.com/Carmen-Shannon/oxy-sdf/engine/profiler"
	"github.com/Carmen-Shannon/oxy-sdf/engine/raymarcher"
	"github.com/Carmen-Shannon/oxy-sdf/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
)

// LoaderBackendType identifies the scene file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeJSON selects the JSON scene description backend.
	BackendTypeJSON LoaderBackendType = iota
)

var (
	// ErrUnsupportedFormat is returned when a path's extension has no backend.
	ErrUnsupportedFormat = errors.New("loader: unsupported scene format")

	// ErrInvalidScene is returned when a description cannot be decoded or names invalid values.
	ErrInvalidScene = errors.New("loader: invalid scene")
)

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	sceneCache  map[string]*SceneFile
	envMapCache map[string]*envmap.Map

	backend      loaderBackend
	strict       bool
	envMapLevels int
	workers      int
	stats        *profiler.Profiler
}

// Loader defines the public-facing interface for loading scene descriptions.
// It abstracts the file format behind a generic backend and caches decoded descriptions
// and decoded environment maps by path. Every Load builds a fresh scene.Scene, so the
// GPU state of one loaded scene is never shared with another.
type Loader interface {
	// Load decodes a scene file, cached by path, and builds a scene from it.
	// The backend is selected based on the file extension (.json → JSON backend).
	//
	// Parameters:
	//   - path: the file path to the scene file
	//
	// Returns:
	//   - scene.Scene: the built scene
	//   - error: ErrUnsupportedFormat, ErrInvalidScene, or a file or env map decode error
	Load(path string) (scene.Scene, error)

	// LoadReader decodes a scene description from a reader stream, caches it by name
	// and builds a scene from it.
	//
	// Parameters:
	//   - name: the cache key for the description
	//   - r: the reader providing scene data
	//   - baseDir: the directory env map paths are resolved against
	//
	// Returns:
	//   - scene.Scene: the built scene
	//   - error: ErrInvalidScene or an env map decode error
	LoadReader(name string, r io.Reader, baseDir string) (scene.Scene, error)

	// Get retrieves a cached description by name. Returns nil if not found.
	//
	// Parameters:
	//   - name: the cache key to look up
	//
	// Returns:
	//   - *SceneFile: the cached description or nil
	Get(name string) *SceneFile

	// Scenes returns the full description cache.
	//
	// Returns:
	//   - map[string]*SceneFile: all cached descriptions keyed by name
	Scenes() map[string]*SceneFile

	// Build turns a description into a scene without touching the description cache.
	//
	// Parameters:
	//   - sf: the description
	//   - baseDir: the directory env map paths are resolved against
	//
	// Returns:
	//   - scene.Scene: the built scene
	//   - error: ErrInvalidScene or an env map decode error
	Build(sf *SceneFile, baseDir string) (scene.Scene, error)
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance with the specified backend type and options applied.
//
// Parameters:
//   - backendType: the type of loader backend to use (e.g., BackendTypeJSON)
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided backend and options
func NewLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:          sync.RWMutex{},
		sceneCache:  make(map[string]*SceneFile),
		envMapCache: make(map[string]*envmap.Map),
		workers:     1,
	}
	for _, option := range options {
		option(l)
	}

	switch backendType {
	case BackendTypeJSON:
		l.backend = newJSONLoaderBackend(l.strict)
	default:
		panic(fmt.Sprintf("loader: unknown backend type %d", backendType))
	}
	return l
}

func (l *loader) Load(path string) (scene.Scene, error) {
	l.mu.RLock()
	cached, ok := l.sceneCache[path]
	l.mu.RUnlock()
	if ok {
		return l.Build(cached, filepath.Dir(path))
	}

	backend, err := l.resolveBackend(path)
	if err != nil {
		return nil, err
	}
	sf, err := backend.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loader: failed to load %s: %w", path, err)
	}

	l.mu.Lock()
	l.sceneCache[path] = sf
	l.mu.Unlock()
	common.Logger().Info("loader: scene decoded", "path", path, "nodes", len(sf.Nodes), "lights", len(sf.Lights))

	return l.Build(sf, filepath.Dir(path))
}

func (l *loader) LoadReader(name string, r io.Reader, baseDir string) (scene.Scene, error) {
	l.mu.RLock()
	cached, ok := l.sceneCache[name]
	l.mu.RUnlock()
	if ok {
		return l.Build(cached, baseDir)
	}

	sf, err := l.backend.LoadReader(r)
	if err != nil {
		return nil, fmt.Errorf("loader: failed to load from reader %q: %w", name, err)
	}

	l.mu.Lock()
	l.sceneCache[name] = sf
	l.mu.Unlock()

	return l.Build(sf, baseDir)
}

func (l *loader) Get(name string) *SceneFile {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sceneCache[name]
}

func (l *loader) Scenes() map[string]*SceneFile {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]*SceneFile, len(l.sceneCache))
	for k, v := range l.sceneCache {
		result[k] = v
	}
	return result
}

// resolveBackend selects an appropriate loader backend based on the file extension.
// Currently only JSON is supported.
func (l *loader) resolveBackend(path string) (loaderBackend, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		return l.backend, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

func (l *loader) Build(sf *SceneFile, baseDir string) (scene.Scene, error) {
	if sf == nil {
		panic("loader: Build requires a non-nil SceneFile")
	}
	cam, err := buildCamera(sf.Camera)
	if err != nil {
		return nil, err
	}

	lights := make([]light.Light, 0, len(sf.Lights))
	for i, lf := range sf.Lights {
		li, err := buildLight(lf)
		if err != nil {
			return nil, fmt.Errorf("light %d: %w", i, err)
		}
		lights = append(lights, li)
	}

	nodes := make([]raymarcher.Raymarcher, 0, len(sf.Nodes))
	for i, nf := range sf.Nodes {
		n, err := l.buildNode(nf, baseDir)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		nodes = append(nodes, n)
	}

	return scene.NewScene(sf.Name, cam, scene.WithNodes(nodes...), scene.WithLights(lights...), scene.WithActive(true)), nil
}

func (l *loader) buildNode(nf NodeFile, baseDir string) (raymarcher.Raymarcher, error) {
	layers := make([]entity.Layer, len(nf.Layers))
	for i, lf := range nf.Layers {
		layer := make(entity.Layer, len(lf))
		for j, ef := range lf {
			e, err := buildEntity(ef)
			if err != nil {
				return nil, fmt.Errorf("layer %d entity %d: %w", i, j, err)
			}
			layer[j] = e
		}
		layers[i] = layer
	}

	opts := []raymarcher.RaymarcherBuilderOption{
		raymarcher.WithLayers(layers...),
		raymarcher.WithConetracing(nf.Conetracing),
		raymarcher.WithBoundsWorkers(l.workers),
	}
	if nf.Resolution != nil {
		if *nf.Resolution <= 0 {
			return nil, fmt.Errorf("%w: resolution %v must be positive", ErrInvalidScene, *nf.Resolution)
		}
		opts = append(opts, raymarcher.WithResolution(*nf.Resolution))
	}
	if nf.Blending != nil {
		opts = append(opts, raymarcher.WithBlending(*nf.Blending))
	}
	if nf.Metalness != nil {
		opts = append(opts, raymarcher.WithMetalness(*nf.Metalness))
	}
	if nf.Roughness != nil {
		opts = append(opts, raymarcher.WithRoughness(*nf.Roughness))
	}
	if nf.EnvMapIntensity != nil {
		opts = append(opts, raymarcher.WithEnvMapIntensity(*nf.EnvMapIntensity))
	}
	if nf.EnvMap != "" {
		m, err := l.envMap(resolvePath(baseDir, nf.EnvMap))
		if err != nil {
			return nil, err
		}
		opts = append(opts, raymarcher.WithEnvMap(m))
	}
	if l.stats != nil {
		opts = append(opts, raymarcher.WithStats(l.stats))
	}
	return raymarcher.New(opts...), nil
}

// envMap decodes an environment map once per path. Maps are immutable and shared by every node.
func (l *loader) envMap(path string) (*envmap.Map, error) {
	l.mu.RLock()
	m, ok := l.envMapCache[path]
	l.mu.RUnlock()
	if ok {
		return m, nil
	}

	var opts []envmap.MapBuilderOption
	if l.envMapLevels > 0 {
		opts = append(opts, envmap.WithMaxLevels(l.envMapLevels))
	}
	m, err := envmap.Load(path, opts...)
	if err != nil {
		return nil, fmt.Errorf("loader: env map %s: %w", path, err)
	}

	l.mu.Lock()
	l.envMapCache[path] = m
	l.mu.Unlock()
	return m, nil
}

func resolvePath(baseDir, path string) string {
	if filepath.IsAbs(path) || baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}

func buildEntity(ef EntityFile) (entity.Entity, error) {
	shape, err := entity.ParseShape(common.Coalesce(ef.Shape, "box"))
	if err != nil {
		return entity.Entity{}, err
	}
	op, err := entity.ParseOperation(ef.Operation)
	if err != nil {
		return entity.Entity{}, err
	}
	pos, err := vec3("position", ef.Position, mgl32.Vec3{})
	if err != nil {
		return entity.Entity{}, err
	}
	rot, err := vec3("rotation", ef.Rotation, mgl32.Vec3{})
	if err != nil {
		return entity.Entity{}, err
	}
	scale, err := vec3("scale", ef.Scale, mgl32.Vec3{1, 1, 1})
	if err != nil {
		return entity.Entity{}, err
	}
	color, err := vec3("color", ef.Color, mgl32.Vec3{1, 1, 1})
	if err != nil {
		return entity.Entity{}, err
	}

	q := mgl32.AnglesToQuat(mgl32.DegToRad(rot[0]), mgl32.DegToRad(rot[1]), mgl32.DegToRad(rot[2]), mgl32.XYZ)
	return entity.NewEntity(
		entity.WithShape(shape),
		entity.WithOperation(op),
		entity.WithPosition(pos[0], pos[1], pos[2]),
		entity.WithRotation(q.Normalize()),
		entity.WithScale(scale[0], scale[1], scale[2]),
		entity.WithColor(color[0], color[1], color[2]),
	), nil
}

func buildLight(lf LightFile) (light.Light, error) {
	var lt light.LightType
	switch lf.Type {
	case "directional", "":
		lt = light.LightTypeDirectional
	case "point":
		lt = light.LightTypePoint
	default:
		return nil, fmt.Errorf("%w: light type %q", ErrInvalidScene, lf.Type)
	}
	pos, err := vec3("position", lf.Position, mgl32.Vec3{0, 1, 0})
	if err != nil {
		return nil, err
	}
	target, err := vec3("target", lf.Target, mgl32.Vec3{})
	if err != nil {
		return nil, err
	}
	color, err := vec3("color", lf.Color, mgl32.Vec3{1, 1, 1})
	if err != nil {
		return nil, err
	}

	opts := []light.LightBuilderOption{
		light.WithPosition(pos[0], pos[1], pos[2]),
		light.WithTarget(target[0], target[1], target[2]),
		light.WithColor(color[0], color[1], color[2]),
	}
	if lf.Intensity != nil {
		opts = append(opts, light.WithIntensity(*lf.Intensity))
	}
	if lf.Layers != nil {
		opts = append(opts, light.WithLayers(common.LayerMask(*lf.Layers)))
	}
	if lf.Visible != nil {
		opts = append(opts, light.WithVisible(*lf.Visible))
	}
	return light.NewLight(lt, opts...), nil
}

func buildCamera(cf CameraFile) (camera.Camera, error) {
	pos, err := vec3("camera position", cf.Position, mgl32.Vec3{0, 0, 5})
	if err != nil {
		return nil, err
	}
	target, err := vec3("camera target", cf.Target, mgl32.Vec3{})
	if err != nil {
		return nil, err
	}
	up, err := vec3("camera up", cf.Up, mgl32.Vec3{0, 1, 0})
	if err != nil {
		return nil, err
	}

	opts := []camera.CameraBuilderOption{
		camera.WithPosition(pos[0], pos[1], pos[2]),
		camera.WithTarget(target[0], target[1], target[2]),
		camera.WithUp(up[0], up[1], up[2]),
	}
	if cf.Fov != 0 {
		opts = append(opts, camera.WithFov(mgl32.DegToRad(cf.Fov)))
	}
	if cf.Aspect != 0 {
		opts = append(opts, camera.WithAspect(cf.Aspect))
	}
	if cf.Near != 0 {
		opts = append(opts, camera.WithNear(cf.Near))
	}
	if cf.Far != 0 {
		opts = append(opts, camera.WithFar(cf.Far))
	}
	if cf.Near != 0 && cf.Far != 0 && cf.Far <= cf.Near {
		return nil, fmt.Errorf("%w: camera far %v must exceed near %v", ErrInvalidScene, cf.Far, cf.Near)
	}
	if cf.Layers != nil {
		opts = append(opts, camera.WithLayers(common.LayerMask(*cf.Layers)))
	}
	switch len(cf.Viewport) {
	case 0:
	case 4:
		vp := common.Viewport{X: cf.Viewport[0], Y: cf.Viewport[1], Width: cf.Viewport[2], Height: cf.Viewport[3]}
		opts = append(opts, camera.WithViewport(vp))
	default:
		return nil, fmt.Errorf("%w: camera viewport needs 4 values, got %d", ErrInvalidScene, len(cf.Viewport))
	}
	return camera.NewCamera(opts...), nil
}

// vec3 reads an optional three-component field.
func vec3(field string, v []float32, def mgl32.Vec3) (mgl32.Vec3, error) {
	switch len(v) {
	case 0:
		return def, nil
	case 3:
		return mgl32.Vec3{v[0], v[1], v[2]}, nil
	}
	return mgl32.Vec3{}, fmt.Errorf("%w: %s needs 3 values, got %d", ErrInvalidScene, field, len(v))
}
