package entity

// Layer is an ordered run of entities rendered and culled as a single CSG group.
// Entities fold into the layer's distance in slice order.
type Layer []Entity

// Clone returns a copy of the layer that shares no backing array with l.
func (l Layer) Clone() Layer {
	if l == nil {
		return nil
	}
	out := make(Layer, len(l))
	copy(out, l)
	return out
}

// CloneLayers deep-copies a layer list. Mutating the result never affects the input.
//
// Parameters:
//   - layers: the layers to copy
//
// Returns:
//   - []Layer: the copied layers
func CloneLayers(layers []Layer) []Layer {
	if layers == nil {
		return nil
	}
	out := make([]Layer, len(layers))
	for i, l := range layers {
		out[i] = l.Clone()
	}
	return out
}

// MaxLen returns the entity count of the largest layer.
func MaxLen(layers []Layer) int {
	n := 0
	for _, l := range layers {
		n = max(n, len(l))
	}
	return n
}

// Validate checks every entity of every layer.
//
// Returns:
//   - error: the first entity error, or nil
func Validate(layers []Layer) error {
	for _, l := range layers {
		for _, e := range l {
			if err := e.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}
