package profiler

import (
	"log/slog"
	"time"
)

// ProfilerBuilderOption is a functional option applied to a Profiler during construction.
type ProfilerBuilderOption func(p *Profiler)

// WithUpdateInterval sets how often Tick logs a line.
//
// Parameters:
//   - d: the interval, defaults to one second
//
// Returns:
//   - ProfilerBuilderOption: a function that applies the interval option
func WithUpdateInterval(d time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.updateInterval = d
	}
}

// WithLogger sets the logger Tick writes to instead of common.Logger().
//
// Parameters:
//   - l: the logger
//
// Returns:
//   - ProfilerBuilderOption: a function that applies the logger option
func WithLogger(l *slog.Logger) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.logger = l
	}
}

// WithClock replaces time.Now, for tests.
//
// Parameters:
//   - now: the clock
//
// Returns:
//   - ProfilerBuilderOption: a function that applies the clock option
func WithClock(now func() time.Time) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.now = now
	}
}
