package common

import "testing"

func TestLayerMask(t *testing.T) {
	m := DefaultLayerMask.Enable(3)
	if !m.IsEnabled(0) || !m.IsEnabled(3) || m.IsEnabled(2) {
		t.Errorf("Enable(3) = %b, want bits 0 and 3", m)
	}
	if !m.Test(LayerMask(0).Enable(3)) {
		t.Error("Test(layer 3) = false, want true")
	}
	if m.Disable(3).Disable(0).Test(m) {
		t.Error("Test after disabling all = true, want false")
	}
}
