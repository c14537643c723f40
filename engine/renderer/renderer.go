// Package renderer defines the host primitives the raymarch compositor draws through and
// provides two hosts: a WebGPU host that renders into a window surface, and a software host
// that evaluates the CPU kernel per pixel.
package renderer

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-sdf/common"
	"github.com/Carmen-Shannon/oxy-sdf/engine/camera"
	"github.com/Carmen-Shannon/oxy-sdf/engine/entity"
	"github.com/Carmen-Shannon/oxy-sdf/engine/envmap"
	"github.com/Carmen-Shannon/oxy-sdf/engine/kernel"
	"github.com/Carmen-Shannon/oxy-sdf/engine/light"
	"github.com/Carmen-Shannon/oxy-sdf/engine/renderer/shader"
)

// ErrDisposed is returned when a released target or program is used.
var ErrDisposed = errors.New("renderer: resource disposed")

// ErrCapacityExceeded is returned when a draw carries more entities or lights than the
// program was compiled for.
var ErrCapacityExceeded = errors.New("renderer: draw exceeds program capacity")

// Defines is the set of compile-time constants a program is built with.
type Defines = shader.Defines

// ProgramSource identifies an annotated WGSL program and its fixed-function state.
type ProgramSource struct {
	// Key names the program in logs and pipeline labels.
	Key string
	// Source is the annotated WGSL.
	Source string
	// Transparent draws with premultiplied over blending instead of overwriting.
	Transparent bool
}

// DrawParams is everything one raymarch draw uploads.
type DrawParams struct {
	Camera   camera.Camera
	Entities entity.Layer
	Lights   []light.GPULight
	Uniforms kernel.GPURaymarchUniform
	// EnvMap is bound when the program was compiled with ENVMAP.
	EnvMap *envmap.Map
}

// Target is an off-screen color + depth surface.
type Target interface {
	// Size returns the allocated size in pixels.
	Size() (width, height int)

	// SetSize reallocates the attachments. A call with the current size does nothing.
	//
	// Parameters:
	//   - width, height: the new size, clamped to at least 1
	//
	// Returns:
	//   - error: ErrDisposed after Release, or an allocation failure
	SetSize(width, height int) error

	// Release frees the attachments. It is safe to call more than once.
	Release()
}

// Program is a compiled raymarch program.
type Program interface {
	// Key returns the ProgramSource key.
	Key() string

	// Defines returns the constants the program was compiled with.
	Defines() Defines

	// Transparent reports whether the program blends over the target.
	Transparent() bool

	// Release frees the program. It is safe to call more than once.
	Release()
}

// Host is the renderer a compositor draws through. It owns the active render target, a small
// set of global flags the compositor saves and restores around its pass, and the resource
// primitives used to allocate targets and compile programs.
//
// Hosts are driven from the frame's single control thread and are not safe for concurrent use.
type Host interface {
	// RenderTarget returns the active target, nil for the default framebuffer.
	RenderTarget() Target

	// SetRenderTarget makes t the target of subsequent Clear and Draw calls. Nil selects the
	// default framebuffer.
	SetRenderTarget(t Target)

	// DrawingBufferSize returns the size of the default framebuffer in pixels.
	DrawingBufferSize() (width, height int)

	// Clear clears the color and depth of the active target.
	//
	// Returns:
	//   - error: a submission failure
	Clear() error

	AutoClear() bool
	SetAutoClear(v bool)
	XREnabled() bool
	SetXREnabled(v bool)
	ShadowAutoUpdate() bool
	SetShadowAutoUpdate(v bool)
	DepthMask() bool
	SetDepthMask(v bool)

	// Viewport returns the active viewport. The zero value covers the whole target.
	Viewport() common.Viewport

	// SetViewport restricts subsequent draws to a rectangle of the active target.
	SetViewport(vp common.Viewport)

	// CreateTarget allocates an off-screen target.
	//
	// Parameters:
	//   - width, height: the size in pixels
	//
	// Returns:
	//   - Target: the target
	//   - error: an allocation failure
	CreateTarget(width, height int) (Target, error)

	// CompileProgram expands and compiles a program against defines.
	//
	// Parameters:
	//   - src: the program source
	//   - defines: the compile-time constants
	//
	// Returns:
	//   - Program: the compiled program
	//   - error: a pre-processing, validation or pipeline creation failure
	CompileProgram(src ProgramSource, defines Defines) (Program, error)

	// Draw runs program p over the active target with a full-screen pass.
	//
	// Parameters:
	//   - p: a program compiled by this host
	//   - params: the per-draw data
	//
	// Returns:
	//   - error: ErrDisposed, ErrCapacityExceeded, or a submission failure
	Draw(p Program, params DrawParams) error

	// Composite blends the color of t over the active target, depth tested against the
	// depth stored in t.
	//
	// Parameters:
	//   - t: an off-screen target created by this host
	//
	// Returns:
	//   - error: ErrDisposed or a submission failure
	Composite(t Target) error

	// Release frees every resource held by the host.
	Release()
}

// hostState holds the flags and active target every host shares.
type hostState struct {
	target           Target
	autoClear        bool
	xrEnabled        bool
	shadowAutoUpdate bool
	depthMask        bool
	viewport         common.Viewport
}

func newHostState() hostState {
	return hostState{autoClear: true, shadowAutoUpdate: true, depthMask: true}
}

func (s *hostState) RenderTarget() Target           { return s.target }
func (s *hostState) SetRenderTarget(t Target)       { s.target = t }
func (s *hostState) AutoClear() bool                { return s.autoClear }
func (s *hostState) SetAutoClear(v bool)            { s.autoClear = v }
func (s *hostState) XREnabled() bool                { return s.xrEnabled }
func (s *hostState) SetXREnabled(v bool)            { s.xrEnabled = v }
func (s *hostState) ShadowAutoUpdate() bool         { return s.shadowAutoUpdate }
func (s *hostState) SetShadowAutoUpdate(v bool)     { s.shadowAutoUpdate = v }
func (s *hostState) DepthMask() bool                { return s.depthMask }
func (s *hostState) SetDepthMask(v bool)            { s.depthMask = v }
func (s *hostState) Viewport() common.Viewport      { return s.viewport }
func (s *hostState) SetViewport(vp common.Viewport) { s.viewport = vp }

// resolveViewport clips vp to a target of the given size. The zero viewport covers everything.
func resolveViewport(vp common.Viewport, width, height int) common.Viewport {
	if vp.IsZero() {
		return common.Viewport{Width: width, Height: height}
	}
	x0, y0 := max(vp.X, 0), max(vp.Y, 0)
	x1, y1 := min(vp.X+vp.Width, width), min(vp.Y+vp.Height, height)
	if x1 <= x0 || y1 <= y0 {
		return common.Viewport{}
	}
	return common.Viewport{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}
