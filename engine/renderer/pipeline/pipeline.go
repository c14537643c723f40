package pipeline

import (
	"github.com/Carmen-Shannon/oxy-sdf/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PremultipliedBlend composites premultiplied color over the target. Cone-traced programs
// output premultiplied color and draw with it.
var PremultipliedBlend = wgpu.BlendState{
	Color: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
	Alpha: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
}

// pipeline is the implementation of the Pipeline interface.
// It pairs a render shader with the fixed-function state used to create its wgpu.RenderPipeline.
type pipeline struct {
	// pipelineKey is the unique identifier for this pipeline, used for caching and lookups
	pipelineKey string

	shader shader.Shader

	renderPipeline *wgpu.RenderPipeline

	colorFormat       wgpu.TextureFormat
	depthFormat       wgpu.TextureFormat
	depthTestEnabled  bool
	depthWriteEnabled bool
	depthCompare      wgpu.CompareFunction
	blendEnabled      bool
	blendState        *wgpu.BlendState
	cullMode          wgpu.CullMode
	topology          wgpu.PrimitiveTopology
	frontFace         wgpu.FrontFace
	writeMask         wgpu.ColorWriteMask
}

// Pipeline defines the interface for a GPU render pipeline: a render shader providing the vertex
// and fragment entry points plus the depth, blend, cull and topology state it is created with.
type Pipeline interface {
	// PipelineKey returns the unique key associated with this pipeline, used for caching and lookups.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// Shader returns the render shader of this pipeline.
	//
	// Returns:
	//   - shader.Shader: the shader, nil if not set
	Shader() shader.Shader

	// Pipeline returns the created render pipeline, nil until SetRenderPipeline is called.
	Pipeline() *wgpu.RenderPipeline

	// ColorFormat returns the format of the single color target.
	ColorFormat() wgpu.TextureFormat

	// DepthFormat returns the depth attachment format, TextureFormatUndefined for none.
	DepthFormat() wgpu.TextureFormat

	// DepthTestEnabled returns whether fragments are depth tested.
	DepthTestEnabled() bool

	// DepthWriteEnabled returns whether fragments write depth.
	DepthWriteEnabled() bool

	// BlendEnabled returns whether BlendState is applied to the color target.
	BlendEnabled() bool

	// BlendState returns the blend state of the color target.
	BlendState() *wgpu.BlendState

	// Descriptor builds the creation descriptor for this pipeline.
	//
	// Parameters:
	//   - module: the compiled shader module of Shader
	//   - layout: the pipeline layout derived from the shader bind groups
	//
	// Returns:
	//   - *wgpu.RenderPipelineDescriptor: the descriptor to pass to Device.CreateRenderPipeline
	Descriptor(module *wgpu.ShaderModule, layout *wgpu.PipelineLayout) *wgpu.RenderPipelineDescriptor

	// SetRenderPipeline stores the created render pipeline.
	//
	// Parameters:
	//   - p: the WebGPU render pipeline to set
	SetRenderPipeline(p *wgpu.RenderPipeline)

	// Release frees the render pipeline. It is safe to call more than once.
	Release()
}

var _ Pipeline = &pipeline{}

// NewPipeline is the entry point to create a new Pipeline interface.
// Defaults to an RGBA8 color target, a Depth32Float attachment with LessEqual testing and writes,
// blending disabled, no culling, and triangle lists.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: a new Pipeline instance with the specified configuration
func NewPipeline(pipelineKey string, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey:       pipelineKey,
		colorFormat:       wgpu.TextureFormatRGBA8Unorm,
		depthFormat:       wgpu.TextureFormatDepth32Float,
		depthTestEnabled:  true,
		depthWriteEnabled: true,
		depthCompare:      wgpu.CompareFunctionLessEqual,
		cullMode:          wgpu.CullModeNone,
		topology:          wgpu.PrimitiveTopologyTriangleList,
		frontFace:         wgpu.FrontFaceCCW,
		writeMask:         wgpu.ColorWriteMaskAll,
	}
	blend := PremultipliedBlend
	p.blendState = &blend
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Shader() shader.Shader {
	return p.shader
}

func (p *pipeline) Pipeline() *wgpu.RenderPipeline {
	return p.renderPipeline
}

func (p *pipeline) ColorFormat() wgpu.TextureFormat {
	return p.colorFormat
}

func (p *pipeline) DepthFormat() wgpu.TextureFormat {
	return p.depthFormat
}

func (p *pipeline) DepthTestEnabled() bool {
	return p.depthTestEnabled
}

func (p *pipeline) DepthWriteEnabled() bool {
	return p.depthWriteEnabled
}

func (p *pipeline) BlendEnabled() bool {
	return p.blendEnabled
}

func (p *pipeline) BlendState() *wgpu.BlendState {
	return p.blendState
}

func (p *pipeline) Descriptor(module *wgpu.ShaderModule, layout *wgpu.PipelineLayout) *wgpu.RenderPipelineDescriptor {
	target := wgpu.ColorTargetState{
		Format:    p.colorFormat,
		WriteMask: p.writeMask,
	}
	if p.blendEnabled {
		target.Blend = p.blendState
	}

	var vertexEntry, fragmentEntry string
	if p.shader != nil {
		vertexEntry, fragmentEntry = p.shader.VertexEntryPoint(), p.shader.FragmentEntryPoint()
	}

	desc := &wgpu.RenderPipelineDescriptor{
		Label:  p.pipelineKey + " Render Pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: vertexEntry,
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: fragmentEntry,
			Targets:    []wgpu.ColorTargetState{target},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  p.topology,
			FrontFace: p.frontFace,
			CullMode:  p.cullMode,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	}
	if p.depthFormat != wgpu.TextureFormatUndefined {
		compare := p.depthCompare
		if !p.depthTestEnabled {
			compare = wgpu.CompareFunctionAlways
		}
		desc.DepthStencil = &wgpu.DepthStencilState{
			Format:            p.depthFormat,
			DepthWriteEnabled: p.depthWriteEnabled,
			DepthCompare:      compare,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		}
	}
	return desc
}

func (p *pipeline) SetRenderPipeline(rp *wgpu.RenderPipeline) {
	p.renderPipeline = rp
}

func (p *pipeline) Release() {
	if p.renderPipeline != nil {
		p.renderPipeline.Release()
		p.renderPipeline = nil
	}
}
