package bind_group_provider

import "slices"

// BufferWrite describes a single GPU buffer write operation targeting a specific binding
// on a BindGroupProvider at a given byte offset.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}

// Fits reports whether the write lands inside the buffer allocated for its binding.
//
// Returns:
//   - bool: false if the provider has no buffer at Binding or the data overruns it
func (w BufferWrite) Fits() bool {
	if w.Provider == nil || w.Provider.Buffer(w.Binding) == nil {
		return false
	}
	return w.Offset+uint64(len(w.Data)) <= w.Provider.BufferSize(w.Binding)
}

// PadToAlignment pads data with zero bytes to a multiple of 4, the write alignment of
// Queue.WriteBuffer.
func PadToAlignment(data []byte) []byte {
	if rem := len(data) % 4; rem != 0 {
		return slices.Concat(data, make([]byte, 4-rem))
	}
	return data
}
