package engine

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-sdf/common"
	"github.com/Carmen-Shannon/oxy-sdf/engine/profiler"
	"github.com/Carmen-Shannon/oxy-sdf/engine/renderer"
	"github.com/Carmen-Shannon/oxy-sdf/engine/scene"
	"github.com/Carmen-Shannon/oxy-sdf/engine/window"
)

// engine implements the Engine interface.
// Coordinates the tick, render, and window threads.
type engine struct {
	mu *sync.RWMutex

	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running bool
	wg      sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	window window.Window
	host   renderer.FrameHost

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	scenes map[int]scene.Scene

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine is the main entry point for an interactive viewer.
// It runs a fixed-rate tick loop and a render loop that draws every active scene
// through one FrameHost, and pumps the window's message loop on the calling goroutine.
type Engine interface {
	// Window returns the underlying window, nil for a headless engine.
	Window() window.Window

	// Host returns the presenting host.
	Host() renderer.FrameHost

	// Profiler returns the engine profiler. Pass it to raymarcher.WithStats so node stats
	// appear in the profiler's periodic log line.
	Profiler() *profiler.Profiler

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in frames per second.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	// Use this for input processing and camera or entity animation.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each render frame.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// AddScene registers a scene at the given z-index key.
	// Scenes are rendered in ascending key order, each compositing over the last.
	//
	// Parameters:
	//   - key: the z-index determining render order (lower renders first)
	//   - s: the Scene to register
	AddScene(key int, s scene.Scene)

	// RemoveScene removes the scene at the given z-index key.
	//
	// Parameters:
	//   - key: the z-index of the scene to remove
	RemoveScene(key int)

	// Scene retrieves the scene registered at the given z-index key, or nil.
	//
	// Parameters:
	//   - key: the z-index of the scene to retrieve
	//
	// Returns:
	//   - scene.Scene: the scene at the key, or nil if not found
	Scene(key int) scene.Scene

	// Scenes returns a copy of all registered scenes keyed by z-index.
	Scenes() map[int]scene.Scene

	// RenderFrame draws one frame of every active scene. The render loop calls it
	// continuously; headless callers can drive it directly.
	//
	// Returns:
	//   - error: the first frame acquisition or scene failure
	RenderFrame() error

	// Run starts the tick and render loops and blocks until the window closes or Quit is called.
	Run()

	// Quit signals all engine goroutines to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
// A FrameHost is required and NewEngine panics without one.
//
// Parameters:
//   - host: the presenting host
//   - options: functional options for engine configuration (profiling, tick rate, window, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(host renderer.FrameHost, options ...EngineBuilderOption) Engine {
	if host == nil {
		panic("engine: NewEngine requires a non-nil FrameHost")
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &engine{
		mu:              &sync.RWMutex{},
		tickRateChannel: make(chan time.Duration, 1),
		ctx:             ctx,
		cancel:          cancel,
		host:            host,
		scenes:          make(map[int]scene.Scene),
		profiler:        profiler.NewProfiler(),
		engineTickRate:  time.Second / 60,
	}
	for _, opt := range options {
		opt(e)
	}

	if e.window != nil {
		e.window.SetResizeCallback(func(width, height int) {
			if width == 0 || height == 0 {
				return
			}
			e.host.Resize(width, height)
			for _, s := range e.Scenes() {
				s.Camera().SetAspect(float32(width) / float32(height))
			}
		})
	}
	return e
}

func (e *engine) Window() window.Window        { return e.window }
func (e *engine) Host() renderer.FrameHost     { return e.host }
func (e *engine) Profiler() *profiler.Profiler { return e.profiler }

func (e *engine) Run() {
	e.mu.Lock()
	e.running = true
	e.mu.Unlock()

	e.wg.Add(2)
	go e.handleEngine()
	go e.handleRender()

	if e.window != nil {
		e.window.ProcessMessages()
		e.Quit()
	} else {
		<-e.ctx.Done()
	}
	e.wg.Wait()
}

func (e *engine) Quit() {
	e.mu.Lock()
	e.running = false
	e.mu.Unlock()
	e.cancel()
}

// handleEngine runs the fixed-rate engine tick loop in its own goroutine.
// Fires the tick callback at the configured tick rate and listens for dynamic rate changes
// via tickRateChannel. Exits when the engine context is cancelled.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.tickRate())
	defer ticker.Stop()

	lastTick := time.Now()
	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if cb := e.tick(); cb != nil {
				cb(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop in its own goroutine.
// Recovers from panics to avoid crashing the process and quits on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			common.Logger().Error("engine: render goroutine recovered from panic", "panic", r)
			e.Quit()
		}
	}()

	lastRender := time.Now()
	for {
		select {
		case <-e.ctx.Done():
			return
		default:
		}
		frameStart := time.Now()
		dt := float32(frameStart.Sub(lastRender).Seconds())
		lastRender = frameStart

		if err := e.RenderFrame(); err != nil && !errors.Is(err, context.Canceled) {
			common.Logger().Warn("engine: frame failed", "err", err)
		}

		e.mu.RLock()
		renderCallback, profiling, limit := e.renderCallback, e.profilingEnabled, e.renderFrameLimit
		e.mu.RUnlock()

		if renderCallback != nil {
			renderCallback(dt)
		}
		if profiling {
			e.profiler.Tick()
		}
		if limit > 0 {
			if remaining := limit - time.Since(frameStart); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

func (e *engine) RenderFrame() error {
	active := e.activeScenes()
	if err := e.host.BeginFrame(); err != nil {
		return err
	}
	defer e.host.EndFrame()

	// The first scene clears the frame; later scenes composite over it.
	autoClear := e.host.AutoClear()
	defer e.host.SetAutoClear(autoClear)
	if len(active) == 0 {
		return e.host.Clear()
	}
	for i, s := range active {
		e.host.SetAutoClear(i == 0 && autoClear)
		if err := s.Render(e.ctx, e.host); err != nil {
			return err
		}
	}
	return nil
}

// activeScenes returns the active scenes in ascending z-index order.
func (e *engine) activeScenes() []scene.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()

	keys := make([]int, 0, len(e.scenes))
	for k := range e.scenes {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	active := make([]scene.Scene, 0, len(keys))
	for _, k := range keys {
		if s := e.scenes[k]; s.Active() {
			active = append(active, s)
		}
	}
	return active
}

func (e *engine) tickRate() time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.engineTickRate
}

func (e *engine) tick() func(float32) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tickCallback
}

func (e *engine) EnableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = true
}

func (e *engine) DisableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = false
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	e.mu.Lock()
	e.engineTickRate = newRate
	running := e.running
	e.mu.Unlock()
	if !running {
		return
	}
	// Replace any pending update so the loop always sees the latest rate.
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.renderCallback = callback
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.renderFrameLimit = frameLimit(fps)
}

func frameLimit(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}

func (e *engine) AddScene(key int, s scene.Scene) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scenes[key] = s
}

func (e *engine) RemoveScene(key int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.scenes, key)
}

func (e *engine) Scene(key int) scene.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.scenes[key]
}

func (e *engine) Scenes() map[int]scene.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()
	cp := make(map[int]scene.Scene, len(e.scenes))
	for k, v := range e.scenes {
		cp[k] = v
	}
	return cp
}
