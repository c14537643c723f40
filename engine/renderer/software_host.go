package renderer

import (
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-sdf/common"
	"github.com/Carmen-Shannon/oxy-sdf/engine/kernel"
	"github.com/Carmen-Shannon/oxy-sdf/engine/renderer/shader"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// SoftwareTarget is a Target held in memory. Color is stored premultiplied and sRGB encoded.
type SoftwareTarget interface {
	Target

	// At returns the color and depth of one pixel. Out of range pixels return transparent
	// black at depth 1.
	At(x, y int) (mgl32.Vec4, float32)

	// Image converts the color attachment into an 8-bit image.
	Image() *image.RGBA

	// DepthBuffer returns a copy of the depth attachment in row-major order.
	DepthBuffer() []float32
}

// SoftwareHost is a Host that evaluates the CPU kernel per pixel. It presents nothing, so
// BeginFrame and EndFrame only count frames and Resize reallocates the default framebuffer.
type SoftwareHost interface {
	FrameHost

	// Screen returns the default framebuffer.
	Screen() SoftwareTarget

	// Frames returns the number of completed BeginFrame and EndFrame pairs.
	Frames() int
}

type softwareTarget struct {
	width, height int
	color         []mgl32.Vec4
	depth         []float32
	released      bool
}

var _ SoftwareTarget = &softwareTarget{}

func newSoftwareTarget(width, height int) *softwareTarget {
	t := &softwareTarget{}
	t.allocate(max(width, 1), max(height, 1))
	return t
}

func (t *softwareTarget) allocate(width, height int) {
	t.width, t.height = width, height
	t.color = make([]mgl32.Vec4, width*height)
	t.depth = make([]float32, width*height)
	t.clear(mgl32.Vec4{})
}

func (t *softwareTarget) clear(c mgl32.Vec4) {
	for i := range t.color {
		t.color[i] = c
		t.depth[i] = 1
	}
}

func (t *softwareTarget) Size() (int, int) {
	return t.width, t.height
}

func (t *softwareTarget) SetSize(width, height int) error {
	if t.released {
		return ErrDisposed
	}
	width, height = max(width, 1), max(height, 1)
	if width == t.width && height == t.height {
		return nil
	}
	t.allocate(width, height)
	return nil
}

func (t *softwareTarget) Release() {
	if t.released {
		return
	}
	t.released = true
	t.color = nil
	t.depth = nil
}

func (t *softwareTarget) At(x, y int) (mgl32.Vec4, float32) {
	if t.released || x < 0 || y < 0 || x >= t.width || y >= t.height {
		return mgl32.Vec4{}, 1
	}
	i := y*t.width + x
	return t.color[i], t.depth[i]
}

func (t *softwareTarget) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, t.width, t.height))
	if t.released {
		return img
	}
	for i, c := range t.color {
		o := i * 4
		img.Pix[o+0] = toByte(c[0])
		img.Pix[o+1] = toByte(c[1])
		img.Pix[o+2] = toByte(c[2])
		img.Pix[o+3] = toByte(c[3])
	}
	return img
}

func (t *softwareTarget) DepthBuffer() []float32 {
	return append([]float32(nil), t.depth...)
}

func toByte(v float32) uint8 {
	return uint8(mgl32.Clamp(v, 0, 1)*255 + 0.5)
}

type softwareProgram struct {
	key         string
	defines     Defines
	transparent bool
	maxEntities int
	numLights   int
	conetracing bool
	envMap      bool
	released    bool
}

var _ Program = &softwareProgram{}

func (p *softwareProgram) Key() string       { return p.key }
func (p *softwareProgram) Defines() Defines  { return p.defines.Clone() }
func (p *softwareProgram) Transparent() bool { return p.transparent }
func (p *softwareProgram) Release()          { p.released = true }

type softwareHost struct {
	hostState
	mu     *sync.Mutex
	cfg    hostConfig
	screen *softwareTarget
	pool   worker.DynamicWorkerPool

	inFrame bool
	frames  int
}

var _ SoftwareHost = &softwareHost{}

// NewSoftwareHost creates a Host that renders on the CPU into an in-memory framebuffer.
//
// Parameters:
//   - width, height: the default framebuffer size in pixels
//   - options: functional options, WithWorkers and WithValidation apply
//
// Returns:
//   - SoftwareHost: the host
func NewSoftwareHost(width, height int, options ...HostBuilderOption) SoftwareHost {
	cfg := defaultHostConfig()
	for _, opt := range options {
		opt(&cfg)
	}
	h := &softwareHost{
		hostState: newHostState(),
		mu:        &sync.Mutex{},
		cfg:       cfg,
		screen:    newSoftwareTarget(width, height),
	}
	h.screen.clear(cfg.clearColor)
	if cfg.workers > 1 {
		h.pool = worker.NewDynamicWorkerPool(cfg.workers, 256, 1*time.Second)
	}
	common.Logger().Info("renderer: software host ready", "width", width, "height", height, "workers", cfg.workers)
	return h
}

func (h *softwareHost) Screen() SoftwareTarget {
	return h.screen
}

func (h *softwareHost) Resize(width, height int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.screen.SetSize(width, height); err != nil {
		common.Logger().Warn("renderer: software host resize failed", "width", width, "height", height, "err", err)
	}
}

func (h *softwareHost) BeginFrame() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.inFrame {
		return errFrameInProgress
	}
	h.inFrame = true
	return nil
}

func (h *softwareHost) EndFrame() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.inFrame {
		h.inFrame = false
		h.frames++
	}
}

func (h *softwareHost) Frames() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frames
}

func (h *softwareHost) DrawingBufferSize() (int, int) {
	return h.screen.Size()
}

// active resolves the render target, nil meaning the default framebuffer.
func (h *softwareHost) active() (*softwareTarget, error) {
	if h.target == nil {
		return h.screen, nil
	}
	t, ok := h.target.(*softwareTarget)
	if !ok {
		return nil, fmt.Errorf("renderer: target %T was not created by the software host", h.target)
	}
	if t.released {
		return nil, ErrDisposed
	}
	return t, nil
}

func (h *softwareHost) Clear() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	t, err := h.active()
	if err != nil {
		return err
	}
	if t == h.screen {
		t.clear(h.cfg.clearColor)
	} else {
		t.clear(mgl32.Vec4{})
	}
	return nil
}

func (h *softwareHost) CreateTarget(width, height int) (Target, error) {
	return newSoftwareTarget(width, height), nil
}

func (h *softwareHost) CompileProgram(src ProgramSource, defines Defines) (Program, error) {
	s, err := shader.NewShader(src.Key, shader.ShaderTypeRender, src.Source, defines)
	if err != nil {
		return nil, err
	}
	if h.cfg.validate {
		if err := shader.Validate(s.Source()); err != nil {
			return nil, fmt.Errorf("renderer: program %q: %w", src.Key, err)
		}
	}
	p := &softwareProgram{
		key:         src.Key,
		defines:     defines.Clone(),
		transparent: src.Transparent,
		maxEntities: defines.Int("MAX_ENTITIES"),
		numLights:   defines.Int("NUM_LIGHTS"),
		conetracing: defines.Bool("CONETRACING"),
		envMap:      defines.Bool("ENVMAP"),
	}
	common.Logger().Debug("renderer: program compiled", "key", src.Key, "defines", defines.Key())
	return p, nil
}

func (h *softwareHost) Draw(p Program, params DrawParams) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	prog, ok := p.(*softwareProgram)
	if !ok {
		return fmt.Errorf("renderer: program %T was not compiled by the software host", p)
	}
	if prog.released {
		return ErrDisposed
	}
	if len(params.Entities) > prog.maxEntities || len(params.Lights) > prog.numLights {
		return fmt.Errorf("%w: %d entities, %d lights for %d, %d slots", ErrCapacityExceeded,
			len(params.Entities), len(params.Lights), prog.maxEntities, prog.numLights)
	}
	if params.Camera == nil {
		panic("renderer: draw without a camera")
	}
	t, err := h.active()
	if err != nil {
		return err
	}
	vp := resolveViewport(h.viewport, t.width, t.height)
	if vp.Width == 0 || vp.Height == 0 {
		return nil
	}

	u := params.Uniforms
	cam := params.Camera
	numEntities := min(int(u.NumEntities), len(params.Entities))
	numLights := min(int(u.NumLights), len(params.Lights))
	kp := kernel.Params{
		CameraPosition: cam.Position(),
		CameraForward:  cam.WorldDirection(),
		Projection:     kernel.NewCameraProjection(cam.Fov(), cam.Near(), cam.Far()),
		Blending:       u.Blending,
		Bounds:         common.Sphere{Center: u.BoundsCenter, Radius: u.BoundsRadius},
		Lights:         params.Lights[:numLights],
		Material: kernel.Material{
			Metalness:       u.Metalness,
			Roughness:       u.Roughness,
			EnvMapIntensity: u.EnvMapIntensity,
		},
		Conetracing: prog.conetracing,
		ConeRadius:  2 * math32.Tan(cam.Fov()/2) / float32(vp.Height),
	}
	if prog.envMap && params.EnvMap != nil {
		kp.Material.Env = params.EnvMap
	}
	entities := params.Entities[:numEntities]
	world := cam.WorldMatrix()
	aspect := cam.Aspect()
	depthMask := h.depthMask

	h.forRows(vp, func(y int) {
		ndcY := 1 - 2*(float32(y-vp.Y)+0.5)/float32(vp.Height)
		for x := vp.X; x < vp.X+vp.Width; x++ {
			ndcX := 2*(float32(x-vp.X)+0.5)/float32(vp.Width) - 1
			frag := kernel.Evaluate(kernel.CameraRay(world, kp.Projection, aspect, ndcX, ndcY), entities, kp)
			if frag.Discard {
				continue
			}
			i := y*t.width + x
			if frag.Depth > t.depth[i] {
				continue
			}
			if prog.transparent {
				t.color[i] = over(frag.Color, t.color[i])
			} else {
				t.color[i] = frag.Color
			}
			if depthMask {
				t.depth[i] = frag.Depth
			}
		}
	})
	return nil
}

func (h *softwareHost) Composite(src Target) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := src.(*softwareTarget)
	if !ok {
		return fmt.Errorf("renderer: target %T was not created by the software host", src)
	}
	if s.released {
		return ErrDisposed
	}
	dst, err := h.active()
	if err != nil {
		return err
	}
	if dst == s {
		return fmt.Errorf("renderer: cannot composite a target onto itself")
	}
	vp := resolveViewport(h.viewport, dst.width, dst.height)
	if vp.Width == 0 || vp.Height == 0 {
		return nil
	}
	depthMask := h.depthMask

	h.forRows(vp, func(y int) {
		sy := (y - vp.Y) * s.height / vp.Height
		for x := vp.X; x < vp.X+vp.Width; x++ {
			sx := (x - vp.X) * s.width / vp.Width
			si := sy*s.width + sx
			c := s.color[si]
			if c[3] <= 0 {
				continue
			}
			i := y*dst.width + x
			if s.depth[si] > dst.depth[i] {
				continue
			}
			dst.color[i] = over(c, dst.color[i])
			if depthMask {
				dst.depth[i] = s.depth[si]
			}
		}
	})
	return nil
}

// forRows runs fn for every row of vp, spreading contiguous row chunks over the worker pool.
func (h *softwareHost) forRows(vp common.Viewport, fn func(y int)) {
	if h.pool == nil || vp.Height < 2 {
		for y := vp.Y; y < vp.Y+vp.Height; y++ {
			fn(y)
		}
		return
	}

	// Rows are disjoint per task, so pixel writes never race.
	chunk := (vp.Height + h.cfg.workers - 1) / h.cfg.workers
	var wg sync.WaitGroup
	for id, start := 0, vp.Y; start < vp.Y+vp.Height; id, start = id+1, start+chunk {
		end := min(start+chunk, vp.Y+vp.Height)
		wg.Add(1)
		s, e := start, end
		h.pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				for y := s; y < e; y++ {
					fn(y)
				}
				return nil, nil
			},
		})
	}
	wg.Wait()
}

func (h *softwareHost) Release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.screen.Release()
}

// over blends premultiplied src over premultiplied dst.
func over(src, dst mgl32.Vec4) mgl32.Vec4 {
	return src.Add(dst.Mul(1 - src[3]))
}
