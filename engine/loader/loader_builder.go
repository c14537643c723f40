package loader

import (
	"github.com/Carmen-Shannon/oxy-sdf/engine/envmap"
	"github.com/Carmen-Shannon/oxy-sdf/engine/profiler"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithStrict is an option builder that makes the backend reject fields the scene types do not declare.
//
// Parameters:
//   - strict: true to reject unknown fields
//
// Returns:
//   - LoaderBuilderOption: a function that applies the strict option to a loader
func WithStrict(strict bool) LoaderBuilderOption {
	return func(l *loader) {
		l.strict = strict
	}
}

// WithEnvMapLevels is an option builder that caps the mip chain of every decoded env map.
//
// Parameters:
//   - n: the maximum number of levels, 0 for the full chain
//
// Returns:
//   - LoaderBuilderOption: a function that applies the levels option to a loader
func WithEnvMapLevels(n int) LoaderBuilderOption {
	return func(l *loader) {
		l.envMapLevels = max(n, 0)
	}
}

// WithBoundsWorkers is an option builder that sets the bounds worker count of every built node.
//
// Parameters:
//   - n: the number of workers (minimum 1)
//
// Returns:
//   - LoaderBuilderOption: a function that applies the workers option to a loader
func WithBoundsWorkers(n int) LoaderBuilderOption {
	return func(l *loader) {
		l.workers = max(n, 1)
	}
}

// WithStats is an option builder that attaches a profiler to every built node.
//
// Parameters:
//   - p: the profiler receiving frame stats
//
// Returns:
//   - LoaderBuilderOption: a function that applies the stats option to a loader
func WithStats(p *profiler.Profiler) LoaderBuilderOption {
	return func(l *loader) {
		l.stats = p
	}
}

// WithEnvMap is an option builder that pre-populates the env map cache.
//
// Parameters:
//   - path: the resolved path the map is cached under
//   - m: the map to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the env map option to a loader
func WithEnvMap(path string, m *envmap.Map) LoaderBuilderOption {
	return func(l *loader) {
		l.envMapCache[path] = m
	}
}
