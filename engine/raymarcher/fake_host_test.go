package raymarcher

import (
	"github.com/Carmen-Shannon/oxy-sdf/common"
	"github.com/Carmen-Shannon/oxy-sdf/engine/renderer"
)

type fakeTarget struct {
	width, height int
	setSizes      int
	releases      int
}

func (t *fakeTarget) Size() (int, int) { return t.width, t.height }

func (t *fakeTarget) SetSize(width, height int) error {
	if width == t.width && height == t.height {
		return nil
	}
	t.width, t.height = width, height
	t.setSizes++
	return nil
}

func (t *fakeTarget) Release() { t.releases++ }

type fakeProgram struct {
	src      renderer.ProgramSource
	defines  renderer.Defines
	releases int
}

func (p *fakeProgram) Key() string               { return p.src.Key }
func (p *fakeProgram) Defines() renderer.Defines { return p.defines }
func (p *fakeProgram) Transparent() bool         { return p.src.Transparent }
func (p *fakeProgram) Release()                  { p.releases++ }

// drawRecord captures a draw and the host state it ran under.
type drawRecord struct {
	params    renderer.DrawParams
	program   *fakeProgram
	target    renderer.Target
	autoClear bool
	xr        bool
	shadow    bool
	depthMask bool
	viewport  common.Viewport
}

// fakeHost records every call the raymarcher makes.
type fakeHost struct {
	target           renderer.Target
	autoClear        bool
	xr               bool
	shadowAutoUpdate bool
	depthMask        bool
	viewport         common.Viewport
	width, height    int

	targets  []*fakeTarget
	programs []*fakeProgram
	draws    []drawRecord
	clears   []renderer.Target

	compileErr error
	drawErr    error
}

var _ renderer.Host = &fakeHost{}

func newFakeHost(width, height int) *fakeHost {
	return &fakeHost{autoClear: true, shadowAutoUpdate: true, depthMask: true, width: width, height: height}
}

func (h *fakeHost) RenderTarget() renderer.Target     { return h.target }
func (h *fakeHost) SetRenderTarget(t renderer.Target) { h.target = t }
func (h *fakeHost) DrawingBufferSize() (int, int)     { return h.width, h.height }
func (h *fakeHost) AutoClear() bool                   { return h.autoClear }
func (h *fakeHost) SetAutoClear(v bool)               { h.autoClear = v }
func (h *fakeHost) XREnabled() bool                   { return h.xr }
func (h *fakeHost) SetXREnabled(v bool)               { h.xr = v }
func (h *fakeHost) ShadowAutoUpdate() bool            { return h.shadowAutoUpdate }
func (h *fakeHost) SetShadowAutoUpdate(v bool)        { h.shadowAutoUpdate = v }
func (h *fakeHost) DepthMask() bool                   { return h.depthMask }
func (h *fakeHost) SetDepthMask(v bool)               { h.depthMask = v }
func (h *fakeHost) Viewport() common.Viewport         { return h.viewport }
func (h *fakeHost) SetViewport(vp common.Viewport)    { h.viewport = vp }
func (h *fakeHost) Composite(renderer.Target) error   { return nil }
func (h *fakeHost) Release()                          {}

func (h *fakeHost) Clear() error {
	h.clears = append(h.clears, h.target)
	return nil
}

func (h *fakeHost) CreateTarget(width, height int) (renderer.Target, error) {
	t := &fakeTarget{width: width, height: height}
	h.targets = append(h.targets, t)
	return t, nil
}

func (h *fakeHost) CompileProgram(src renderer.ProgramSource, defines renderer.Defines) (renderer.Program, error) {
	if h.compileErr != nil {
		return nil, h.compileErr
	}
	p := &fakeProgram{src: src, defines: defines.Clone()}
	h.programs = append(h.programs, p)
	return p, nil
}

func (h *fakeHost) Draw(p renderer.Program, params renderer.DrawParams) error {
	if h.drawErr != nil {
		return h.drawErr
	}
	h.draws = append(h.draws, drawRecord{
		params:    params,
		program:   p.(*fakeProgram),
		target:    h.target,
		autoClear: h.autoClear,
		xr:        h.xr,
		shadow:    h.shadowAutoUpdate,
		depthMask: h.depthMask,
		viewport:  h.viewport,
	})
	return nil
}
