package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-sdf/common"
	"github.com/Carmen-Shannon/oxy-sdf/engine/camera"
	"github.com/Carmen-Shannon/oxy-sdf/engine/entity"
	"github.com/Carmen-Shannon/oxy-sdf/engine/envmap"
	"github.com/Carmen-Shannon/oxy-sdf/engine/light"
	"github.com/Carmen-Shannon/oxy-sdf/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-sdf/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-sdf/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

type wgpuTarget struct {
	host          *wgpuHost
	width, height int

	colorTexture *wgpu.Texture
	colorView    *wgpu.TextureView
	depthTexture *wgpu.Texture
	depthView    *wgpu.TextureView

	// composite samples the attachments in the screen pass and is rebuilt after a resize.
	composite bind_group_provider.BindGroupProvider
	released  bool
}

var _ Target = &wgpuTarget{}

func (h *wgpuHost) CreateTarget(width, height int) (Target, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	t := &wgpuTarget{
		host:      h,
		composite: bind_group_provider.NewBindGroupProvider("composite", bind_group_provider.WithGroup(0)),
	}
	if err := t.allocate(max(width, 1), max(height, 1)); err != nil {
		return nil, err
	}
	h.targets[t] = struct{}{}
	return t, nil
}

func (t *wgpuTarget) allocate(width, height int) error {
	usage := wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding
	colorTex, colorView, err := t.host.createAttachment("Target Color", width, height, targetColorFormat, usage)
	if err != nil {
		return err
	}
	depthTex, depthView, err := t.host.createAttachment("Target Depth", width, height, targetDepthFormat, usage)
	if err != nil {
		colorView.Release()
		colorTex.Release()
		return err
	}
	t.releaseAttachments()
	t.colorTexture, t.colorView = colorTex, colorView
	t.depthTexture, t.depthView = depthTex, depthView
	t.width, t.height = width, height
	return nil
}

func (t *wgpuTarget) releaseAttachments() {
	t.composite.ReleaseBindGroup()
	if t.colorView != nil {
		t.colorView.Release()
		t.colorTexture.Release()
		t.colorView, t.colorTexture = nil, nil
	}
	if t.depthView != nil {
		t.depthView.Release()
		t.depthTexture.Release()
		t.depthView, t.depthTexture = nil, nil
	}
}

func (t *wgpuTarget) Size() (int, int) {
	return t.width, t.height
}

func (t *wgpuTarget) SetSize(width, height int) error {
	if t.released {
		return ErrDisposed
	}
	width, height = max(width, 1), max(height, 1)
	if width == t.width && height == t.height {
		return nil
	}
	return t.allocate(width, height)
}

func (t *wgpuTarget) Release() {
	if t.released {
		return
	}
	delete(t.host.targets, t)
	t.release()
}

func (t *wgpuTarget) release() {
	t.released = true
	t.releaseAttachments()
	t.composite.Release()
}

// compositeBindGroup returns the screen pass bind group for the current attachments.
func (t *wgpuTarget) compositeBindGroup() (*wgpu.BindGroup, error) {
	if bg := t.composite.BindGroup(); bg != nil {
		return bg, nil
	}
	h := t.host
	color, _ := h.blitShader.BindGroupFromVarName(0, "colorTexture")
	depth, _ := h.blitShader.BindGroupFromVarName(0, "depthTexture")
	samp, _ := h.blitShader.BindGroupFromVarName(0, "colorSampler")
	bg, err := h.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "composite Bind Group",
		Layout: h.blitLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: uint32(color), TextureView: t.colorView},
			{Binding: uint32(depth), TextureView: t.depthView},
			{Binding: uint32(samp), Sampler: h.blitSampler},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("renderer: create composite bind group: %w", err)
	}
	t.composite.SetBindGroup(bg)
	return bg, nil
}

type wgpuProgram struct {
	host        *wgpuHost
	key         string
	defines     Defines
	transparent bool
	maxEntities int
	numLights   int
	envMap      bool

	shader         shader.Shader
	module         *wgpu.ShaderModule
	pipelineLayout *wgpu.PipelineLayout
	pipelines      map[string]pipeline.Pipeline

	raymarch bind_group_provider.BindGroupProvider
	env      bind_group_provider.BindGroupProvider
	// boundEnv is the map the env bind group was built from, nil for the placeholder.
	boundEnv *envmap.Map
	envReady bool
	released bool
}

var _ Program = &wgpuProgram{}

func (p *wgpuProgram) Key() string       { return p.key }
func (p *wgpuProgram) Defines() Defines  { return p.defines.Clone() }
func (p *wgpuProgram) Transparent() bool { return p.transparent }

func (p *wgpuProgram) Release() {
	if p.released {
		return
	}
	delete(p.host.programs, p)
	p.release()
}

func (p *wgpuProgram) release() {
	p.released = true
	for _, pl := range p.pipelines {
		pl.Release()
	}
	clear(p.pipelines)
	p.raymarch.Release()
	if p.env != nil {
		p.env.Release()
	}
	if p.pipelineLayout != nil {
		p.pipelineLayout.Release()
	}
	if p.module != nil {
		p.module.Release()
	}
}

func (h *wgpuHost) CompileProgram(src ProgramSource, defines Defines) (Program, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, err := shader.NewShader(src.Key, shader.ShaderTypeRender, src.Source, defines)
	if err != nil {
		return nil, err
	}
	if h.cfg.validate {
		if err := shader.Validate(s.Source()); err != nil {
			return nil, fmt.Errorf("renderer: program %q: %w", src.Key, err)
		}
	}

	p := &wgpuProgram{
		host:        h,
		key:         src.Key,
		defines:     defines.Clone(),
		transparent: src.Transparent,
		maxEntities: defines.Int("MAX_ENTITIES"),
		numLights:   defines.Int("NUM_LIGHTS"),
		envMap:      defines.Bool("ENVMAP"),
		shader:      s,
		pipelines:   make(map[string]pipeline.Pipeline),
		raymarch:    bind_group_provider.NewBindGroupProvider(src.Key+" raymarch", bind_group_provider.WithGroup(0)),
	}
	if err := h.initProgram(p); err != nil {
		p.release()
		return nil, err
	}
	h.programs[p] = struct{}{}
	common.Logger().Info("renderer: program compiled", "key", src.Key, "defines", defines.Key())
	return p, nil
}

func (h *wgpuHost) initProgram(p *wgpuProgram) error {
	var err error
	p.module, err = h.device.CreateShaderModule(p.shader.Module())
	if err != nil {
		return fmt.Errorf("renderer: create %s module: %w", p.key, err)
	}

	descriptors := p.shader.BindGroupLayoutDescriptors()
	layouts := make([]*wgpu.BindGroupLayout, 0, len(descriptors))
	for g := 0; g < len(descriptors); g++ {
		desc, ok := descriptors[g]
		if !ok {
			return fmt.Errorf("renderer: %s declares bind group %d without group %d", p.key, len(descriptors)-1, g)
		}
		layout, err := h.device.CreateBindGroupLayout(&desc)
		if err != nil {
			return fmt.Errorf("renderer: create bind group layout %d: %w", g, err)
		}
		switch g {
		case 0:
			p.raymarch.SetBindGroupLayout(layout)
			if err := h.initBuffers(p.raymarch, desc); err != nil {
				return err
			}
		case 1:
			p.env = bind_group_provider.NewBindGroupProvider(p.key+" envmap",
				bind_group_provider.WithGroup(1), bind_group_provider.WithBindGroupLayout(layout))
		default:
			layout.Release()
			return fmt.Errorf("renderer: %s declares unsupported bind group %d", p.key, g)
		}
		layouts = append(layouts, layout)
	}

	p.pipelineLayout, err = h.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.key,
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return fmt.Errorf("renderer: create %s pipeline layout: %w", p.key, err)
	}
	return nil
}

// initBuffers allocates one buffer per buffer entry of desc, sized from the layout's minimum
// binding size, and builds the bind group over them.
func (h *wgpuHost) initBuffers(provider bind_group_provider.BindGroupProvider, desc wgpu.BindGroupLayoutDescriptor) error {
	for _, entry := range desc.Entries {
		var usage wgpu.BufferUsage
		switch entry.Buffer.Type {
		case wgpu.BufferBindingTypeUniform:
			usage = wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
		case wgpu.BufferBindingTypeStorage, wgpu.BufferBindingTypeReadOnlyStorage:
			usage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst
		default:
			return fmt.Errorf("renderer: %s binding %d is not a buffer", provider.Label(), entry.Binding)
		}
		buf, err := h.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: provider.Label() + " Buffer",
			Size:  entry.Buffer.MinBindingSize,
			Usage: usage,
		})
		if err != nil {
			return fmt.Errorf("renderer: create %s buffer %d: %w", provider.Label(), entry.Binding, err)
		}
		provider.SetBuffer(int(entry.Binding), buf, entry.Buffer.MinBindingSize)
	}

	bg, err := h.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   provider.Label() + " Bind Group",
		Layout:  provider.BindGroupLayout(),
		Entries: provider.BindGroupEntries(),
	})
	if err != nil {
		return fmt.Errorf("renderer: create %s bind group: %w", provider.Label(), err)
	}
	provider.SetBindGroup(bg)
	return nil
}

// bindEnv rebuilds the env bind group when the draw carries a different map. A nil map binds
// a 1x1 black texture so the layout stays satisfied.
func (h *wgpuHost) bindEnv(p *wgpuProgram, m *envmap.Map) error {
	if p.envReady && p.boundEnv == m {
		return nil
	}
	staging := common.TextureStagingData{
		Pixels: make([]byte, 8),
		Width:  1,
		Height: 1,
		Format: wgpu.TextureFormatRGBA16Float,
	}
	if m != nil {
		staging = m.Staging()
	}

	texBinding, _ := p.shader.BindGroupFromVarName(1, "envTexture")
	sampBinding, _ := p.shader.BindGroupFromVarName(1, "envSampler")
	if err := h.uploadTexture(p.env, texBinding, staging); err != nil {
		return err
	}
	if p.env.Sampler(sampBinding) == nil {
		samp, err := h.device.CreateSampler(&wgpu.SamplerDescriptor{
			Label:         p.env.Label() + " Sampler",
			AddressModeU:  wgpu.AddressModeRepeat,
			AddressModeV:  wgpu.AddressModeClampToEdge,
			AddressModeW:  wgpu.AddressModeClampToEdge,
			MagFilter:     wgpu.FilterModeLinear,
			MinFilter:     wgpu.FilterModeLinear,
			MipmapFilter:  wgpu.MipmapFilterModeLinear,
			LodMaxClamp:   32,
			MaxAnisotropy: 1,
		})
		if err != nil {
			return fmt.Errorf("renderer: create env sampler: %w", err)
		}
		p.env.SetSampler(sampBinding, samp)
	}

	p.env.ReleaseBindGroup()
	bg, err := h.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   p.env.Label() + " Bind Group",
		Layout:  p.env.BindGroupLayout(),
		Entries: p.env.BindGroupEntries(),
	})
	if err != nil {
		return fmt.Errorf("renderer: create env bind group: %w", err)
	}
	p.env.SetBindGroup(bg)
	p.boundEnv = m
	p.envReady = true
	return nil
}

// uploadTexture creates a sampled texture with every staged mip level and stores its view on
// provider. The previous view at binding is released.
func (h *wgpuHost) uploadTexture(provider bind_group_provider.BindGroupProvider, binding int, staging common.TextureStagingData) error {
	format := common.Coalesce(staging.Format, wgpu.TextureFormatRGBA8UnormSrgb)
	levels := uint32(1 + len(staging.MipLevels))
	tex, err := h.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     provider.Label() + " Texture",
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              staging.Width,
			Height:             staging.Height,
			DepthOrArrayLayers: 1,
		},
		Format:        format,
		MipLevelCount: levels,
		SampleCount:   1,
	})
	if err != nil {
		return fmt.Errorf("renderer: create %s texture: %w", provider.Label(), err)
	}

	bpp := staging.BytesPerPixel()
	for level := range levels {
		pixels := staging.Pixels
		if level > 0 {
			pixels = staging.MipLevels[level-1]
		}
		w, hgt := max(staging.Width>>level, 1), max(staging.Height>>level, 1)
		h.queue.WriteTexture(
			&wgpu.ImageCopyTexture{
				Texture:  tex,
				MipLevel: level,
				Origin:   wgpu.Origin3D{},
				Aspect:   wgpu.TextureAspectAll,
			},
			pixels,
			&wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  w * bpp,
				RowsPerImage: hgt,
			},
			&wgpu.Extent3D{
				Width:              w,
				Height:             hgt,
				DepthOrArrayLayers: 1,
			},
		)
	}

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return err
	}
	if old := provider.TextureView(binding); old != nil {
		old.Release()
	}
	provider.SetTextureView(binding, view)
	// The view keeps the texture alive.
	tex.Release()
	return nil
}

func (h *wgpuHost) programPipeline(p *wgpuProgram, format wgpu.TextureFormat, depthWrite bool) (pipeline.Pipeline, error) {
	key := pipelineVariantKey(p.key, format, depthWrite)
	if pl, ok := p.pipelines[key]; ok {
		return pl, nil
	}
	pl := pipeline.NewPipeline(key,
		pipeline.WithShader(p.shader),
		pipeline.WithColorFormat(format),
		pipeline.WithDepthFormat(targetDepthFormat),
		pipeline.WithDepthWriteEnabled(depthWrite),
		pipeline.WithBlendEnabled(p.transparent),
	)
	rp, err := h.device.CreateRenderPipeline(pl.Descriptor(p.module, p.pipelineLayout))
	if err != nil {
		return nil, fmt.Errorf("renderer: create %s pipeline: %w", key, err)
	}
	pl.SetRenderPipeline(rp)
	p.pipelines[key] = pl
	return pl, nil
}

func (h *wgpuHost) Draw(prog Program, params DrawParams) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	p, ok := prog.(*wgpuProgram)
	if !ok {
		return fmt.Errorf("renderer: program %T was not compiled by the wgpu host", prog)
	}
	if p.released {
		return ErrDisposed
	}
	if len(params.Entities) > p.maxEntities || len(params.Lights) > p.numLights {
		return fmt.Errorf("%w: %d entities, %d lights for %d, %d slots", ErrCapacityExceeded,
			len(params.Entities), len(params.Lights), p.maxEntities, p.numLights)
	}
	if params.Camera == nil {
		panic("renderer: draw without a camera")
	}
	_, _, format, _, _, err := h.attachments()
	if err != nil {
		return err
	}
	pl, err := h.programPipeline(p, format, h.depthMask)
	if err != nil {
		return err
	}
	if p.envMap {
		if err := h.bindEnv(p, params.EnvMap); err != nil {
			return err
		}
	}

	cam := camera.NewGPUCameraUniform(params.Camera, params.Camera.Aspect())
	uniforms := params.Uniforms
	writes := make([]bind_group_provider.BufferWrite, 0, 4)
	for name, data := range map[string][]byte{
		"camera":   cam.Marshal(),
		"params":   uniforms.Marshal(),
		"entities": entity.MarshalLayer(params.Entities, p.maxEntities),
		"lights":   light.MarshalLights(params.Lights, p.numLights),
	} {
		binding, ok := p.shader.BindGroupFromVarName(0, name)
		if !ok {
			return fmt.Errorf("renderer: %s has no %q binding", p.key, name)
		}
		w := bind_group_provider.BufferWrite{Provider: p.raymarch, Binding: binding, Data: bind_group_provider.PadToAlignment(data)}
		if !w.Fits() {
			return fmt.Errorf("%w: %q needs %d bytes", ErrCapacityExceeded, name, len(w.Data))
		}
		writes = append(writes, w)
	}
	h.writeBuffers(writes)

	return h.pass(nil, func(rp *wgpu.RenderPassEncoder) {
		rp.SetPipeline(pl.Pipeline())
		rp.SetBindGroup(0, p.raymarch.BindGroup(), nil)
		if p.envMap {
			rp.SetBindGroup(1, p.env.BindGroup(), nil)
		}
		rp.Draw(3, 1, 0, 0)
	})
}

func (h *wgpuHost) writeBuffers(writes []bind_group_provider.BufferWrite) {
	for _, w := range writes {
		buf := w.Provider.Buffer(w.Binding)
		if buf == nil {
			continue
		}
		h.queue.WriteBuffer(buf, w.Offset, w.Data)
	}
}
