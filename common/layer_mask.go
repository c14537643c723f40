package common

// LayerMask is a visibility bitmask. Two objects see each other when their
// masks share at least one bit. The zero layer is enabled by default.
type LayerMask uint32

// DefaultLayerMask enables only layer 0.
const DefaultLayerMask LayerMask = 1

// Test reports whether the masks share any enabled layer.
func (m LayerMask) Test(other LayerMask) bool {
	return m&other != 0
}

// Enable returns the mask with the given layer turned on.
func (m LayerMask) Enable(layer uint) LayerMask {
	return m | 1<<layer
}

// Disable returns the mask with the given layer turned off.
func (m LayerMask) Disable(layer uint) LayerMask {
	return m &^ (1 << layer)
}

// IsEnabled reports whether the given layer is on.
func (m LayerMask) IsEnabled(layer uint) bool {
	return m&(1<<layer) != 0
}
