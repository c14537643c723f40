package renderer

import "github.com/cogentcore/webgpu/wgpu"

// RendererBackendType identifies the Host implementation.
type RendererBackendType int

const (
	// BackendTypeWGPU renders through WebGPU into a window surface.
	BackendTypeWGPU RendererBackendType = iota

	// BackendTypeSoftware evaluates the CPU kernel per pixel into an in-memory image.
	BackendTypeSoftware
)

// String returns the backend name used in logs.
func (t RendererBackendType) String() string {
	switch t {
	case BackendTypeWGPU:
		return "wgpu"
	case BackendTypeSoftware:
		return "software"
	default:
		return "unknown"
	}
}

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

func (m PresentMode) wgpu() wgpu.PresentMode {
	if m == PresentModeVSync {
		return wgpu.PresentModeFifo
	}
	return wgpu.PresentModeImmediate
}

// FrameHost is a Host that presents to a display. BeginFrame and EndFrame bracket every
// frame's draws.
type FrameHost interface {
	Host

	// Resize reconfigures the surface after the window changed size.
	Resize(width, height int)

	// BeginFrame acquires the next surface image.
	//
	// Returns:
	//   - error: an error if the previous image was not yet presented or acquisition failed
	BeginFrame() error

	// EndFrame presents the acquired surface image.
	EndFrame()
}
