package bind_group_provider

import "testing"

func TestNewBindGroupProvider(t *testing.T) {
	p := NewBindGroupProvider("raymarch", WithGroup(1))
	if p.Label() != "raymarch" {
		t.Errorf("Label() = %q, want raymarch", p.Label())
	}
	if p.Group() != 1 {
		t.Errorf("Group() = %d, want 1", p.Group())
	}
	if p.BindGroup() != nil || p.Buffer(0) != nil || p.BufferSize(0) != 0 {
		t.Errorf("new provider should hold no resources")
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	p := NewBindGroupProvider("empty")
	p.SetTextureView(0, nil)
	p.Release()
	p.Release()
	if len(p.BindGroupEntries()) != 0 {
		t.Errorf("BindGroupEntries() after Release = %d entries, want 0", len(p.BindGroupEntries()))
	}
}

func TestBufferWriteFitsWithoutBuffer(t *testing.T) {
	w := BufferWrite{Provider: NewBindGroupProvider("p"), Binding: 0, Data: []byte{1, 2, 3, 4}}
	if w.Fits() {
		t.Errorf("Fits() = true, want false without a buffer")
	}
	if (BufferWrite{}).Fits() {
		t.Errorf("Fits() = true, want false without a provider")
	}
}

func TestPadToAlignment(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{0, 0},
		{3, 4},
		{4, 4},
		{9, 12},
	}
	for _, tt := range tests {
		if got := len(PadToAlignment(make([]byte, tt.in))); got != tt.want {
			t.Errorf("len(PadToAlignment(%d)) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
