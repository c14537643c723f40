package renderer

import (
	"runtime"

	"github.com/go-gl/mathgl/mgl32"
)

// hostConfig collects the options shared by every Host implementation.
type hostConfig struct {
	presentMode          PresentMode
	forceFallbackAdapter bool
	workers              int
	validate             bool
	clearColor           mgl32.Vec4
}

func defaultHostConfig() hostConfig {
	return hostConfig{
		presentMode: PresentModeVSync,
		workers:     runtime.NumCPU(),
		clearColor:  mgl32.Vec4{0, 0, 0, 0},
	}
}

// HostBuilderOption is a functional option applied to a Host during construction.
type HostBuilderOption func(*hostConfig)

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
// Only the WebGPU host presents, the software host ignores it.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - HostBuilderOption: a function that applies the present mode option
func WithPresentMode(mode PresentMode) HostBuilderOption {
	return func(c *hostConfig) {
		c.presentMode = mode
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - HostBuilderOption: a function that applies the fallback adapter option
func WithForceSoftwareRenderer(force bool) HostBuilderOption {
	return func(c *hostConfig) {
		c.forceFallbackAdapter = force
	}
}

// WithWorkers sets how many goroutines the software host spreads rows across.
// Values below 1 are clamped to 1.
//
// Parameters:
//   - n: the worker count, defaults to runtime.NumCPU()
//
// Returns:
//   - HostBuilderOption: a function that applies the worker option
func WithWorkers(n int) HostBuilderOption {
	return func(c *hostConfig) {
		c.workers = max(n, 1)
	}
}

// WithValidation runs every expanded program through the naga WGSL front end before it is
// accepted by CompileProgram.
//
// Parameters:
//   - enabled: true to validate
//
// Returns:
//   - HostBuilderOption: a function that applies the validation option
func WithValidation(enabled bool) HostBuilderOption {
	return func(c *hostConfig) {
		c.validate = enabled
	}
}

// WithClearColor sets the color Clear writes to the default framebuffer. Off-screen targets
// always clear to transparent black.
//
// Parameters:
//   - r, g, b, a: the clear color
//
// Returns:
//   - HostBuilderOption: a function that applies the clear color option
func WithClearColor(r, g, b, a float32) HostBuilderOption {
	return func(c *hostConfig) {
		c.clearColor = mgl32.Vec4{r, g, b, a}
	}
}
