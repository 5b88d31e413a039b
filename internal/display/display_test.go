package display

import (
	"testing"

	"gocv.io/x/gocv"
)

func TestIsQuit(t *testing.T) {
	tests := []struct {
		key  int
		want bool
	}{
		{'q', true},
		{'q' | 0x100000, true}, // modifier bits set by some backends
		{'Q', false},
		{'x', false},
		{NoKey, false},
	}

	for _, tt := range tests {
		if got := IsQuit(tt.key); got != tt.want {
			t.Errorf("IsQuit(%#x) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestHeadless(t *testing.T) {
	var _ Display = (*Headless)(nil)
	var _ Display = (*Window)(nil)

	h := NewHeadless('a', 'q')

	img := gocv.NewMat()
	defer img.Close()
	h.Show(img)
	h.Show(img)
	h.ShowIn("Annotated Image", img)

	if h.Shown(WindowTitle) != 2 {
		t.Errorf("Shown(%q) = %d, want 2", WindowTitle, h.Shown(WindowTitle))
	}
	if h.Shown("Annotated Image") != 1 {
		t.Errorf("Shown(Annotated Image) = %d, want 1", h.Shown("Annotated Image"))
	}

	if k := h.PollKey(); k != 'a' {
		t.Errorf("first key = %d, want 'a'", k)
	}
	if k := h.WaitKey(); k != 'q' {
		t.Errorf("second key = %d, want 'q'", k)
	}
	if k := h.PollKey(); k != NoKey {
		t.Errorf("empty queue = %d, want NoKey", k)
	}

	h.Close()
	if !h.Closed() {
		t.Error("Closed() should be true")
	}
}
