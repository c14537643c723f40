package window

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
)

// Window provides platform windowing and the pointer and key events an orbit viewer needs.
// It satisfies renderer.SurfaceSource so a WebGPU host can present into it.
type Window interface {
	// SetUpdateCallback sets the function called each message loop iteration.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function called when the framebuffer is resized.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetScrollCallback sets the callback for mouse scroll wheel events.
	//
	// Parameters:
	//   - callback: function receiving scroll delta (positive = up/zoom in, negative = down/zoom out)
	SetScrollCallback(callback func(delta float32))

	// SetKeyCallback sets the callback for key presses, repeats and releases.
	//
	// Parameters:
	//   - callback: function receiving the GLFW key code and whether the key is down
	SetKeyCallback(callback func(keyCode uint32, pressed bool))

	// SetDragCallback sets the callback for cursor motion while the drag button is held.
	//
	// Parameters:
	//   - callback: function receiving the cursor delta in pixels since the last event
	SetDragCallback(callback func(dx, dy float32))

	// SetClickCallback sets the callback for a press and release of the drag button
	// without cursor motion in between.
	//
	// Parameters:
	//   - callback: function receiving the cursor position in framebuffer pixels
	SetClickCallback(callback func(x, y float32))

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating a WebGPU surface.
	// The descriptor is created by the wgpuglfw bridge from the underlying GLFW window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor, or nil if window is not initialized
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning returns true if the window is still active.
	IsRunning() bool

	// Close closes the window and releases platform resources.
	//
	// Returns:
	//   - error: error if the window was never initialized
	Close() error

	// ProcessMessages runs the window message loop on the calling thread.
	// Blocks until the window is closed. Calls the update callback each iteration.
	ProcessMessages()

	// Width returns the current framebuffer width in pixels.
	Width() int

	// Height returns the current framebuffer height in pixels.
	Height() int
}

// engineWindow is the implementation of the Window interface.
type engineWindow struct {
	title string

	// Size limits in screen coordinates, applied through glfw.SetSizeLimits.
	minWidth, minHeight int
	maxWidth, maxHeight int

	// width and height track the framebuffer, which differs from the window size on high-DPI displays.
	width, height int

	// internalWindow holds the platform-specific window data (glfwWindow).
	internalWindow any

	onUpdate func()
	onResize func(width, height int)
	onScroll func(delta float32)
	onKey    func(keyCode uint32, pressed bool)
	onDrag   func(dx, dy float32)
	onClick  func(x, y float32)
}

var _ Window = &engineWindow{}

// NewWindow creates and spawns a Window with the specified options.
// Applies default values first, then each option in order. Must be called from the main goroutine.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the spawned window
func NewWindow(options ...WindowBuilderOption) Window {
	w := &engineWindow{
		title:     "oxy-sdf",
		minWidth:  320,
		minHeight: 240,
		maxWidth:  3840,
		maxHeight: 2160,
		width:     1280,
		height:    720,
	}
	for _, opt := range options {
		opt(w)
	}
	if err := newPlatformWindow(w); err != nil {
		panic(fmt.Sprintf("window: failed to create platform window: %v", err))
	}
	return w
}

func (w *engineWindow) SetUpdateCallback(callback func())                          { w.onUpdate = callback }
func (w *engineWindow) SetResizeCallback(callback func(width, height int))         { w.onResize = callback }
func (w *engineWindow) SetScrollCallback(callback func(delta float32))             { w.onScroll = callback }
func (w *engineWindow) SetKeyCallback(callback func(keyCode uint32, pressed bool)) { w.onKey = callback }
func (w *engineWindow) SetDragCallback(callback func(dx, dy float32))              { w.onDrag = callback }
func (w *engineWindow) SetClickCallback(callback func(x, y float32))               { w.onClick = callback }

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() {
		if ok := platformProcessMessages(w); !ok {
			break
		}
		if w.onUpdate != nil {
			w.onUpdate()
		}
		runtime.Gosched()
	}
}

func (w *engineWindow) Width() int  { return w.width }
func (w *engineWindow) Height() int { return w.height }
