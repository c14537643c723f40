// Package capacity tracks the compile-time sizes of GPU-resident arrays.
//
// A declared capacity only grows. Growing it invalidates the shader program, while
// the per-frame active count is uploaded as a uniform and never triggers a rebuild.
package capacity

// Array is the capacity state of one GPU-resident array.
type Array struct {
	capacity int
	active   int
}

// Reserve records the count observed this frame and grows the capacity if needed.
//
// Parameters:
//   - observed: the element count required this frame
//
// Returns:
//   - bool: true if the capacity grew, meaning the program must be rebuilt
func (a *Array) Reserve(observed int) bool {
	a.active = max(observed, 0)
	if a.active <= a.capacity {
		return false
	}
	a.capacity = a.active
	return true
}

// Capacity returns the declared capacity. It never decreases.
func (a *Array) Capacity() int {
	return a.capacity
}

// Active returns the element count observed by the last Reserve.
func (a *Array) Active() int {
	return a.active
}

// Slots returns the number of array slots to declare on the GPU.
// WGSL has no zero-length fixed arrays, so this is at least one.
func (a *Array) Slots() int {
	return max(a.capacity, 1)
}

// Manager reconciles the entity and light arrays of one compositor.
type Manager struct {
	Entities Array
	Lights   Array

	rebuilds int
}

// Reconcile grows both arrays to cover this frame's demand.
//
// Parameters:
//   - maxEntities: the largest entity count of any layer this frame
//   - lights: the number of lights gathered this frame
//
// Returns:
//   - bool: true if either capacity grew
func (m *Manager) Reconcile(maxEntities, lights int) bool {
	grewEntities := m.Entities.Reserve(maxEntities)
	grewLights := m.Lights.Reserve(lights)
	if grewEntities || grewLights {
		m.rebuilds++
		return true
	}
	return false
}

// Rebuilds returns how many Reconcile calls caused growth.
func (m *Manager) Rebuilds() int {
	return m.rebuilds
}

// Reset discards all capacity state, as after the owning program is disposed.
func (m *Manager) Reset() {
	*m = Manager{}
}
