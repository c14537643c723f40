package envmap

// mapConfig holds the build settings of a Map.
type mapConfig struct {
	// maxLevels caps the mip chain length, 0 builds down to 1x1.
	maxLevels int
}

// MapBuilderOption is a functional option to configure an environment map build.
type MapBuilderOption func(*mapConfig)

// WithMaxLevels caps the number of mip levels.
//
// Parameters:
//   - n: the maximum level count, values below 1 build the full chain
//
// Returns:
//   - MapBuilderOption: a function that applies the level cap
func WithMaxLevels(n int) MapBuilderOption {
	return func(c *mapConfig) {
		c.maxLevels = n
	}
}
