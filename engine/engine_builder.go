package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-sdf/engine/profiler"
	"github.com/Carmen-Shannon/oxy-sdf/engine/scene"
	"github.com/Carmen-Shannon/oxy-sdf/engine/window"
)

// EngineBuilderOption configures an engine during NewEngine.
type EngineBuilderOption func(*engine)

// WithProfiling turns the profiler's periodic frame log on or off.
//
// Parameters:
//   - enabled: whether the render loop ticks the profiler
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithProfiler swaps in a profiler built with a custom logger or update interval.
// A nil profiler keeps the default.
//
// Parameters:
//   - p: the profiler to tick once per rendered frame
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		if p != nil {
			e.profiler = p
		}
	}
}

// WithTickRate sets how often the tick callback fires, in ticks per second.
// Non-positive rates fall back to 60.
//
// Parameters:
//   - fps: ticks per second
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60
		}
		e.engineTickRate = time.Duration(float64(time.Second) / fps)
	}
}

// WithWindow attaches a window. Run pumps its message loop, and framebuffer resizes are
// forwarded to the host and to every scene camera. Without a window the engine is headless.
//
// Parameters:
//   - w: the window presenting the host's surface
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithScene registers s under key, the same as calling AddScene after construction.
//
// Parameters:
//   - key: z-index; lower keys render first
//   - s: the scene to draw
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithScene(key int, s scene.Scene) EngineBuilderOption {
	return func(e *engine) {
		e.scenes[key] = s
	}
}

// WithRenderFrameLimit caps the render loop. Zero, the default, renders as fast as the host presents.
//
// Parameters:
//   - fps: maximum frames per second
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.renderFrameLimit = frameLimit(fps)
	}
}
