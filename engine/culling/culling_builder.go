package culling

// ArenaBuilderOption is a functional option for configuring an Arena.
type ArenaBuilderOption func(a *arenaImpl)

// WithWorkers sets how many pool workers compute layer bounds in parallel.
// Values below 2 keep the computation on the calling goroutine.
//
// Parameters:
//   - n: the worker count
//
// Returns:
//   - ArenaBuilderOption: option function to apply
func WithWorkers(n int) ArenaBuilderOption {
	return func(a *arenaImpl) {
		a.workers = max(n, 1)
	}
}

// WithParallelThreshold sets the minimum layer count before work is fanned out to the pool.
//
// Parameters:
//   - n: the layer count threshold
//
// Returns:
//   - ArenaBuilderOption: option function to apply
func WithParallelThreshold(n int) ArenaBuilderOption {
	return func(a *arenaImpl) {
		a.minParallel = max(n, 1)
	}
}
