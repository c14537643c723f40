package bind_group_provider

import (
	"sort"

	"github.com/cogentcore/webgpu/wgpu"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label added for convenience.
	label string
	// group is the @group index this provider binds to.
	group int

	// The following fields are GPU allocated resources and must be released when no longer needed.
	// They are populated by the host during program compilation, not by user-creation.

	bindGroup       *wgpu.BindGroup
	bindGroupLayout *wgpu.BindGroupLayout
	// buffers holds the GPU buffers created for this provider, keyed by binding index.
	buffers map[int]*wgpu.Buffer
	// bufferSizes holds the allocated byte size of each buffer, keyed by binding index.
	bufferSizes map[int]uint64
	// textureViews holds the GPU texture views bound by this provider, keyed by binding index.
	// Views are borrowed from their owner and are not released here.
	textureViews map[int]*wgpu.TextureView
	// samplers holds the GPU samplers created for this provider, keyed by binding index.
	samplers map[int]*wgpu.Sampler
}

// BindGroupProvider defines the interface for the GPU resources behind one bind group of a
// compiled program. The host creates the buffers from the shader's layout descriptor, writes them
// every draw and binds BindGroup before issuing the draw.
//
// Usage pattern:
//  1. Host creates a BindGroupProvider per declared group when compiling a program
//  2. Host allocates buffers sized from the layout and stores them with SetBuffer
//  3. Host builds the bind group and stores it with SetBindGroup
//  4. Host issues BufferWrite operations per draw against Buffer(binding)
//  5. Release frees the GPU resources when the program is disposed
type BindGroupProvider interface {
	// Release releases the GPU resources owned by this provider. It is safe to call more than once.
	Release()

	// ReleaseBindGroup releases only the bind group, so it can be rebuilt after a buffer is
	// reallocated.
	ReleaseBindGroup()

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// Group returns the @group index this provider binds to.
	//
	// Returns:
	//   - int: the group index
	Group() int

	// BindGroup returns the created bind group, or nil if not initialized.
	BindGroup() *wgpu.BindGroup

	// BindGroupLayout returns the created bind group layout, or nil if not initialized.
	BindGroupLayout() *wgpu.BindGroupLayout

	// Buffer returns the buffer at a binding.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer or nil
	Buffer(binding int) *wgpu.Buffer

	// BufferSize returns the allocated byte size of the buffer at a binding, 0 when absent.
	BufferSize(binding int) uint64

	// Buffers returns all buffers of this provider, keyed by binding index.
	Buffers() map[int]*wgpu.Buffer

	// TextureView returns the texture view at a binding, or nil if not set.
	TextureView(binding int) *wgpu.TextureView

	// Sampler returns the sampler at a binding, or nil if not set.
	Sampler(binding int) *wgpu.Sampler

	// SetBindGroup sets the bind group after GPU initialization.
	//
	// Parameters:
	//   - bg: the created bind group
	SetBindGroup(bg *wgpu.BindGroup)

	// SetBindGroupLayout sets the bind group layout after GPU initialization.
	//
	// Parameters:
	//   - bgl: the created bind group layout
	SetBindGroupLayout(bgl *wgpu.BindGroupLayout)

	// SetBuffer stores a buffer and its allocated size, releasing the buffer it replaces.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the created buffer
	//   - size: the allocated size in bytes
	SetBuffer(binding int, buf *wgpu.Buffer, size uint64)

	// SetTextureView stores a borrowed texture view for a binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - tv: the texture view to store
	SetTextureView(binding int, tv *wgpu.TextureView)

	// SetSampler stores a sampler for a binding, releasing the sampler it replaces.
	//
	// Parameters:
	//   - binding: the binding index
	//   - s: the sampler to store
	SetSampler(binding int, s *wgpu.Sampler)

	// BindGroupEntries lists the resources of this provider as bind group entries sorted by binding.
	//
	// Returns:
	//   - []wgpu.BindGroupEntry: the entries
	BindGroupEntries() []wgpu.BindGroupEntry
}

// Compile-time check that bindGroupProvider implements BindGroupProvider
var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a new BindGroupProvider with the provided options.
//
// Parameters:
//   - label: the debug label
//   - options: a variadic list of options to configure the provider
//
// Returns:
//   - BindGroupProvider: a new instance of BindGroupProvider configured with the provided options
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:        label,
		buffers:      make(map[int]*wgpu.Buffer),
		bufferSizes:  make(map[int]uint64),
		textureViews: make(map[int]*wgpu.TextureView),
		samplers:     make(map[int]*wgpu.Sampler),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) Group() int {
	return p.group
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) BindGroupLayout() *wgpu.BindGroupLayout {
	return p.bindGroupLayout
}

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer {
	return p.buffers[binding]
}

func (p *bindGroupProvider) BufferSize(binding int) uint64 {
	return p.bufferSizes[binding]
}

func (p *bindGroupProvider) Buffers() map[int]*wgpu.Buffer {
	return p.buffers
}

func (p *bindGroupProvider) TextureView(binding int) *wgpu.TextureView {
	return p.textureViews[binding]
}

func (p *bindGroupProvider) Sampler(binding int) *wgpu.Sampler {
	return p.samplers[binding]
}

func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup) {
	p.bindGroup = bg
}

func (p *bindGroupProvider) SetBindGroupLayout(bgl *wgpu.BindGroupLayout) {
	p.bindGroupLayout = bgl
}

func (p *bindGroupProvider) SetBuffer(binding int, buf *wgpu.Buffer, size uint64) {
	if old := p.buffers[binding]; old != nil && old != buf {
		old.Release()
	}
	p.buffers[binding] = buf
	p.bufferSizes[binding] = size
}

func (p *bindGroupProvider) SetTextureView(binding int, tv *wgpu.TextureView) {
	p.textureViews[binding] = tv
}

func (p *bindGroupProvider) SetSampler(binding int, s *wgpu.Sampler) {
	if old := p.samplers[binding]; old != nil && old != s {
		old.Release()
	}
	p.samplers[binding] = s
}

func (p *bindGroupProvider) BindGroupEntries() []wgpu.BindGroupEntry {
	entries := make([]wgpu.BindGroupEntry, 0, len(p.buffers)+len(p.textureViews)+len(p.samplers))
	for b, buf := range p.buffers {
		entries = append(entries, wgpu.BindGroupEntry{Binding: uint32(b), Buffer: buf, Size: p.bufferSizes[b]})
	}
	for b, tv := range p.textureViews {
		entries = append(entries, wgpu.BindGroupEntry{Binding: uint32(b), TextureView: tv})
	}
	for b, s := range p.samplers {
		entries = append(entries, wgpu.BindGroupEntry{Binding: uint32(b), Sampler: s})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Binding < entries[j].Binding
	})
	return entries
}

func (p *bindGroupProvider) ReleaseBindGroup() {
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
}

func (p *bindGroupProvider) Release() {
	p.ReleaseBindGroup()
	for i, s := range p.samplers {
		if s != nil {
			s.Release()
		}
		delete(p.samplers, i)
	}
	for i, buf := range p.buffers {
		if buf != nil {
			buf.Release()
		}
		delete(p.buffers, i)
		delete(p.bufferSizes, i)
	}
	clear(p.textureViews)
	if p.bindGroupLayout != nil {
		p.bindGroupLayout.Release()
		p.bindGroupLayout = nil
	}
}
