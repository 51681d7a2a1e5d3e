package math

import "testing"

func TestAlignUp(t *testing.T) {
	tests := []struct {
		value, alignment, expected uint64
	}{
		{0, 256, 0},
		{1, 256, 256},
		{256, 256, 256},
		{257, 256, 512},
		{300, 4, 300},
		{301, 4, 304},
		{10, 0, 10},
		{10, 1, 10},
		{10, 3, 12},
		{12, 3, 12},
		{7, 6, 12},
	}
	for _, tt := range tests {
		got := AlignUp(tt.value, tt.alignment)
		if got != tt.expected {
			t.Errorf("AlignUp(%d, %d): expected %d, got %d", tt.value, tt.alignment, tt.expected, got)
		}
	}
}

func TestAlignUpProperties(t *testing.T) {
	for _, align := range []uint32{2, 3, 4, 7, 16, 256} {
		for v := uint32(0); v < 600; v++ {
			got := AlignUp(v, align)
			if got < v || got%align != 0 || got-v >= align {
				t.Errorf("AlignUp(%d, %d) = %d violates rounding", v, align, got)
			}
		}
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(95.0, -89.0, 89.0); got != 89.0 {
		t.Errorf("clamp high: expected 89, got %v", got)
	}
	if got := Clamp(-120, -89, 89); got != -89 {
		t.Errorf("clamp low: expected -89, got %v", got)
	}
	if got := Clamp(uint32(5), 1, 9); got != 5 {
		t.Errorf("clamp inside: expected 5, got %v", got)
	}
}
