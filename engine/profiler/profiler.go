// Package profiler aggregates per-frame compositor statistics and periodically logs them
// together with frame rate and memory usage.
package profiler

import (
	"log/slog"
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-sdf/common"
)

// FrameStats describes one compositor frame.
type FrameStats struct {
	// Layers is the number of layers in the store.
	Layers int
	// Visible is the number of layers that passed frustum culling.
	Visible int
	// Draws is the number of raymarch draws issued.
	Draws int
	// Rebuilds counts program recompiles, at most one per frame.
	Rebuilds int
	// Resizes counts off-screen target reallocations, at most one per frame.
	Resizes int
	// EntityCapacity and LightCapacity are the declared array capacities after the frame.
	EntityCapacity int
	LightCapacity  int
	// Duration is the host-side time spent in the frame.
	Duration time.Duration
}

// Add accumulates o into s. Counters are summed, capacities keep the latest value.
func (s *FrameStats) Add(o FrameStats) {
	s.Layers += o.Layers
	s.Visible += o.Visible
	s.Draws += o.Draws
	s.Rebuilds += o.Rebuilds
	s.Resizes += o.Resizes
	s.EntityCapacity = o.EntityCapacity
	s.LightCapacity = o.LightCapacity
	s.Duration += o.Duration
}

// Profiler tracks frame rate, memory and compositor statistics.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	frames FrameStats
	now    func() time.Time
	logger *slog.Logger
}

// NewProfiler creates a new Profiler. Update interval defaults to 1 second and output goes
// to common.Logger() under the "profiler" group.
//
// Parameters:
//   - options: functional options to configure the profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		now:            time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	if p.logger == nil {
		p.logger = common.Logger()
	}
	p.logger = p.logger.WithGroup("profiler")
	p.lastTime = p.now()
	return p
}

// Record adds the statistics of one compositor frame to the current interval.
//
// Parameters:
//   - s: the frame statistics
func (p *Profiler) Record(s FrameStats) {
	p.frames.Add(s)
}

// Interval returns the compositor statistics accumulated since the last log line.
func (p *Profiler) Interval() FrameStats {
	return p.frames
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: FPS, heap usage, allocation rate, GC count/pause times, total memory
// and the compositor counters recorded since the previous line.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval || elapsed <= 0 {
		return false
	}

	fps := float64(p.frameCount) / elapsed.Seconds()

	runtime.ReadMemStats(&p.memStats)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024

	// TotalAlloc only grows, so its delta is the churn over the interval.
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	// PauseNs is a circular buffer of the last 256 GC pauses.
	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			maxPauseUs = max(maxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	f := p.frames
	p.logger.Info("frame stats",
		slog.Float64("fps", fps),
		slog.Float64("heap_mb", allocMB),
		slog.Float64("alloc_rate_mb_s", allocRateMB),
		slog.Uint64("gc", uint64(gcCount)),
		slog.Uint64("gc_last_us", lastPauseUs),
		slog.Uint64("gc_max_us", maxPauseUs),
		slog.Float64("sys_mb", sysMB),
		slog.Group("raymarch",
			slog.Int("visible", f.Visible),
			slog.Int("draws", f.Draws),
			slog.Int("rebuilds", f.Rebuilds),
			slog.Int("resizes", f.Resizes),
			slog.Int("entity_capacity", f.EntityCapacity),
			slog.Int("light_capacity", f.LightCapacity),
			slog.Duration("host_time", f.Duration),
		),
	)

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	p.frames = FrameStats{}
	return true
}
