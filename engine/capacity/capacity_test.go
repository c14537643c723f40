package capacity

import "testing"

func TestReserveGrowsOnlyAboveCapacity(t *testing.T) {
	var a Array
	frames := []struct {
		observed     int
		wantGrew     bool
		wantCapacity int
	}{
		{3, true, 3},
		{3, false, 3},
		{1, false, 3},
		{0, false, 3},
		{4, true, 4},
		{2, false, 4},
		{9, true, 9},
	}
	for i, f := range frames {
		grew := a.Reserve(f.observed)
		if grew != f.wantGrew {
			t.Errorf("frame %d: Reserve(%d) = %v, want %v", i, f.observed, grew, f.wantGrew)
		}
		if a.Capacity() != f.wantCapacity {
			t.Errorf("frame %d: Capacity() = %d, want %d", i, a.Capacity(), f.wantCapacity)
		}
		if a.Capacity() < f.observed {
			t.Errorf("frame %d: Capacity() = %d below observed %d", i, a.Capacity(), f.observed)
		}
		if a.Active() != f.observed {
			t.Errorf("frame %d: Active() = %d, want %d", i, a.Active(), f.observed)
		}
	}
}

func TestCapacityMonotonic(t *testing.T) {
	var a Array
	prev := 0
	for _, n := range []int{5, 1, 7, 7, 2, 12, 0, 3, 12, 13} {
		a.Reserve(n)
		if a.Capacity() < prev {
			t.Fatalf("Capacity() decreased from %d to %d", prev, a.Capacity())
		}
		prev = a.Capacity()
	}
}

func TestSlotsNeverZero(t *testing.T) {
	var a Array
	if a.Slots() != 1 {
		t.Errorf("Slots() = %d, want 1", a.Slots())
	}
	a.Reserve(6)
	if a.Slots() != 6 {
		t.Errorf("Slots() = %d, want 6", a.Slots())
	}
}

func TestManagerReconcile(t *testing.T) {
	var m Manager
	if !m.Reconcile(2, 1) {
		t.Error("first Reconcile(2, 1) = false, want true")
	}
	if m.Reconcile(2, 1) {
		t.Error("repeat Reconcile(2, 1) = true, want false")
	}
	if !m.Reconcile(1, 2) {
		t.Error("Reconcile with more lights = false, want true")
	}
	if m.Reconcile(1, 0) {
		t.Error("Reconcile with fewer = true, want false")
	}
	if m.Rebuilds() != 2 {
		t.Errorf("Rebuilds() = %d, want 2", m.Rebuilds())
	}
	m.Reset()
	if m.Entities.Capacity() != 0 || m.Rebuilds() != 0 {
		t.Error("Reset() did not clear state")
	}
}
