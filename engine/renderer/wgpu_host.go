package renderer

import (
	_ "embed"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-sdf/common"
	"github.com/Carmen-Shannon/oxy-sdf/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-sdf/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

//go:embed assets/screen.wgsl
var screenSource string

// targetDepthFormat is the depth attachment format of every target, on- and off-screen.
const targetDepthFormat = wgpu.TextureFormatDepth32Float

// targetColorFormat is the color attachment format of off-screen targets.
const targetColorFormat = wgpu.TextureFormatRGBA8Unorm

var (
	errNoFrame         = errors.New("renderer: default framebuffer used outside BeginFrame/EndFrame")
	errFrameInProgress = errors.New("renderer: previous frame not yet ended")
)

// SurfaceSource is what the WebGPU host needs from a window.
type SurfaceSource interface {
	SurfaceDescriptor() *wgpu.SurfaceDescriptor
	Width() int
	Height() int
}

type wgpuHost struct {
	hostState
	mu  *sync.Mutex
	cfg hostConfig

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface

	surfaceFormat wgpu.TextureFormat
	width, height int
	depthTexture  *wgpu.Texture
	depthView     *wgpu.TextureView

	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView

	blitShader         shader.Shader
	blitModule         *wgpu.ShaderModule
	blitLayout         *wgpu.BindGroupLayout
	blitPipelineLayout *wgpu.PipelineLayout
	blitSampler        *wgpu.Sampler
	blitPipelines      map[string]pipeline.Pipeline

	targets  map[*wgpuTarget]struct{}
	programs map[*wgpuProgram]struct{}
	released bool
}

var _ FrameHost = &wgpuHost{}

// NewWGPUHost creates a Host that renders through WebGPU into the surface of a window.
// The calling goroutine is locked to its OS thread, as the windowing system requires.
//
// Parameters:
//   - src: the window providing the surface descriptor and initial size
//   - options: functional options, WithPresentMode, WithForceSoftwareRenderer, WithValidation and WithClearColor apply
//
// Returns:
//   - FrameHost: the host
//   - error: an error if no adapter or device could be acquired
func NewWGPUHost(src SurfaceSource, options ...HostBuilderOption) (FrameHost, error) {
	if src == nil {
		panic("renderer: nil surface source")
	}
	cfg := defaultHostConfig()
	for _, opt := range options {
		opt(&cfg)
	}

	runtime.LockOSThread()
	h := &wgpuHost{
		hostState:     newHostState(),
		mu:            &sync.Mutex{},
		cfg:           cfg,
		instance:      wgpu.CreateInstance(nil),
		blitPipelines: make(map[string]pipeline.Pipeline),
		targets:       make(map[*wgpuTarget]struct{}),
		programs:      make(map[*wgpuProgram]struct{}),
	}
	h.surface = h.instance.CreateSurface(src.SurfaceDescriptor())

	a, err := h.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: cfg.forceFallbackAdapter,
		CompatibleSurface:    h.surface,
	})
	if err != nil {
		return nil, fmt.Errorf("renderer: request adapter: %w", err)
	}
	h.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Raymarch Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("renderer: request device: %w", err)
	}
	h.device = d
	h.queue = d.GetQueue()

	h.configureSurface(src.Width(), src.Height())
	if err := h.initBlit(); err != nil {
		return nil, err
	}
	common.Logger().Info("renderer: wgpu host ready", "format", h.surfaceFormat, "fallback", cfg.forceFallbackAdapter)
	return h, nil
}

func (h *wgpuHost) Resize(width, height int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if width == h.width && height == h.height {
		return
	}
	h.configureSurface(width, height)
}

// configureSurface reconfigures the swapchain and reallocates the default depth attachment.
func (h *wgpuHost) configureSurface(width, height int) {
	width, height = max(width, 1), max(height, 1)
	capabilities := h.surface.GetCapabilities(h.adapter)
	h.surfaceFormat = capabilities.Formats[0]

	h.surface.Configure(h.adapter, h.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      h.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: h.cfg.presentMode.wgpu(),
		AlphaMode:   capabilities.AlphaModes[0],
	})
	h.width, h.height = width, height

	if h.depthView != nil {
		h.depthView.Release()
		h.depthTexture.Release()
	}
	tex, view, err := h.createAttachment("Screen Depth", width, height, targetDepthFormat, wgpu.TextureUsageRenderAttachment)
	if err != nil {
		panic(err)
	}
	h.depthTexture, h.depthView = tex, view
}

func (h *wgpuHost) createAttachment(label string, width, height int, format wgpu.TextureFormat, usage wgpu.TextureUsage) (*wgpu.Texture, *wgpu.TextureView, error) {
	tex, err := h.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("renderer: create %s texture: %w", label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, nil, fmt.Errorf("renderer: create %s view: %w", label, err)
	}
	return tex, view, nil
}

func (h *wgpuHost) initBlit() error {
	s, err := shader.NewShader("screen", shader.ShaderTypeRender, screenSource, shader.NewDefines())
	if err != nil {
		return err
	}
	h.blitShader = s
	h.blitModule, err = h.device.CreateShaderModule(s.Module())
	if err != nil {
		return fmt.Errorf("renderer: create screen module: %w", err)
	}
	desc := s.BindGroupLayoutDescriptor(0)
	h.blitLayout, err = h.device.CreateBindGroupLayout(&desc)
	if err != nil {
		return fmt.Errorf("renderer: create screen layout: %w", err)
	}
	h.blitPipelineLayout, err = h.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "screen",
		BindGroupLayouts: []*wgpu.BindGroupLayout{h.blitLayout},
	})
	if err != nil {
		return fmt.Errorf("renderer: create screen pipeline layout: %w", err)
	}
	h.blitSampler, err = h.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "screen sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMaxClamp:   1,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return fmt.Errorf("renderer: create screen sampler: %w", err)
	}
	return nil
}

func (h *wgpuHost) DrawingBufferSize() (int, int) {
	return h.width, h.height
}

func (h *wgpuHost) BeginFrame() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.frameSurface != nil {
		return errFrameInProgress
	}
	surfaceTexture, err := h.surface.GetCurrentTexture()
	if err != nil {
		return err
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}
	h.frameSurface = surfaceTexture
	h.frameView = view
	return nil
}

func (h *wgpuHost) EndFrame() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.frameSurface == nil {
		return
	}
	h.surface.Present()
	h.frameView.Release()
	h.frameSurface.Release()
	h.frameView = nil
	h.frameSurface = nil
}

// attachments resolves the active target into its views and color format.
func (h *wgpuHost) attachments() (color, depth *wgpu.TextureView, format wgpu.TextureFormat, width, height int, err error) {
	if h.target == nil {
		if h.frameView == nil {
			return nil, nil, 0, 0, 0, errNoFrame
		}
		return h.frameView, h.depthView, h.surfaceFormat, h.width, h.height, nil
	}
	t, ok := h.target.(*wgpuTarget)
	if !ok {
		return nil, nil, 0, 0, 0, fmt.Errorf("renderer: target %T was not created by the wgpu host", h.target)
	}
	if t.released {
		return nil, nil, 0, 0, 0, ErrDisposed
	}
	return t.colorView, t.depthView, targetColorFormat, t.width, t.height, nil
}

// pass records one render pass on the active target and submits it immediately, so queue
// writes issued before the call are visible to it and writes issued after are not.
func (h *wgpuHost) pass(clear *wgpu.Color, record func(pass *wgpu.RenderPassEncoder)) error {
	color, depth, _, width, height, err := h.attachments()
	if err != nil {
		return err
	}

	colorAttachment := wgpu.RenderPassColorAttachment{
		View:    color,
		LoadOp:  wgpu.LoadOpLoad,
		StoreOp: wgpu.StoreOpStore,
	}
	depthAttachment := &wgpu.RenderPassDepthStencilAttachment{
		View:            depth,
		DepthLoadOp:     wgpu.LoadOpLoad,
		DepthStoreOp:    wgpu.StoreOpStore,
		DepthClearValue: 1.0,
	}
	if clear != nil {
		colorAttachment.LoadOp = wgpu.LoadOpClear
		colorAttachment.ClearValue = *clear
		depthAttachment.DepthLoadOp = wgpu.LoadOpClear
	}

	encoder, err := h.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	defer encoder.Release()

	rp := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments:       []wgpu.RenderPassColorAttachment{colorAttachment},
		DepthStencilAttachment: depthAttachment,
	})
	if record != nil {
		vp := resolveViewport(h.viewport, width, height)
		if vp.Width == 0 || vp.Height == 0 {
			rp.End()
			return nil
		}
		rp.SetViewport(float32(vp.X), float32(vp.Y), float32(vp.Width), float32(vp.Height), 0, 1)
		record(rp)
	}
	rp.End()

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return err
	}
	defer commandBuffer.Release()
	h.queue.Submit(commandBuffer)
	return nil
}

func (h *wgpuHost) Clear() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	c := wgpu.Color{}
	if h.target == nil {
		cc := h.cfg.clearColor
		c = wgpu.Color{R: float64(cc[0]), G: float64(cc[1]), B: float64(cc[2]), A: float64(cc[3])}
	}
	return h.pass(&c, nil)
}

func (h *wgpuHost) Composite(src Target) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	t, ok := src.(*wgpuTarget)
	if !ok {
		return fmt.Errorf("renderer: target %T was not created by the wgpu host", src)
	}
	if t.released {
		return ErrDisposed
	}
	if h.target == src {
		return fmt.Errorf("renderer: cannot composite a target onto itself")
	}
	_, _, format, _, _, err := h.attachments()
	if err != nil {
		return err
	}
	p, err := h.blitPipeline(format, h.depthMask)
	if err != nil {
		return err
	}
	bg, err := t.compositeBindGroup()
	if err != nil {
		return err
	}
	return h.pass(nil, func(rp *wgpu.RenderPassEncoder) {
		rp.SetPipeline(p.Pipeline())
		rp.SetBindGroup(0, bg, nil)
		rp.Draw(3, 1, 0, 0)
	})
}

func (h *wgpuHost) blitPipeline(format wgpu.TextureFormat, depthWrite bool) (pipeline.Pipeline, error) {
	key := pipelineVariantKey("screen", format, depthWrite)
	if p, ok := h.blitPipelines[key]; ok {
		return p, nil
	}
	p := pipeline.NewPipeline(key,
		pipeline.WithShader(h.blitShader),
		pipeline.WithColorFormat(format),
		pipeline.WithDepthFormat(targetDepthFormat),
		pipeline.WithDepthWriteEnabled(depthWrite),
		pipeline.WithBlendEnabled(true),
	)
	rp, err := h.device.CreateRenderPipeline(p.Descriptor(h.blitModule, h.blitPipelineLayout))
	if err != nil {
		return nil, fmt.Errorf("renderer: create %s pipeline: %w", key, err)
	}
	p.SetRenderPipeline(rp)
	h.blitPipelines[key] = p
	return p, nil
}

func pipelineVariantKey(base string, format wgpu.TextureFormat, depthWrite bool) string {
	return fmt.Sprintf("%s/%d/%t", base, format, depthWrite)
}

func (h *wgpuHost) Release() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.released {
		return
	}
	h.released = true
	for p := range h.programs {
		p.release()
	}
	for t := range h.targets {
		t.release()
	}
	for _, p := range h.blitPipelines {
		p.Release()
	}
	clear(h.blitPipelines)
	if h.blitSampler != nil {
		h.blitSampler.Release()
	}
	if h.blitPipelineLayout != nil {
		h.blitPipelineLayout.Release()
	}
	if h.blitLayout != nil {
		h.blitLayout.Release()
	}
	if h.blitModule != nil {
		h.blitModule.Release()
	}
	if h.depthView != nil {
		h.depthView.Release()
		h.depthTexture.Release()
	}
	h.queue.Release()
	h.device.Release()
	h.adapter.Release()
	h.surface.Release()
	h.instance.Release()
}
