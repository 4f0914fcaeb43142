package capture

import (
	"bytes"
	"testing"
)

func TestCompactRowsNoPadding(t *testing.T) {
	// 2x2 BGRA, already tightly packed.
	src := []byte{
		1, 2, 3, 4, 5, 6, 7, 8,
		9, 10, 11, 12, 13, 14, 15, 16,
	}
	dst := make([]byte, len(src))

	got := compactRows(src, dst, 2, 2)
	if !bytes.Equal(got, src) {
		t.Errorf("Expected packed input unchanged, got %v", got)
	}
}

func TestCompactRowsStripsStride(t *testing.T) {
	// 2x2 BGRA with 4 padding bytes per row (stride 12).
	src := []byte{
		1, 2, 3, 4, 5, 6, 7, 8, 0, 0, 0, 0,
		9, 10, 11, 12, 13, 14, 15, 16, 0, 0, 0, 0,
	}
	want := []byte{
		1, 2, 3, 4, 5, 6, 7, 8,
		9, 10, 11, 12, 13, 14, 15, 16,
	}
	dst := make([]byte, 16)

	got := compactRows(src, dst, 2, 2)
	if !bytes.Equal(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
	if len(got) != 16 {
		t.Errorf("Expected 16 bytes, got %d", len(got))
	}
}

func TestCompactRowsZeroHeight(t *testing.T) {
	got := compactRows(nil, make([]byte, 0), 2, 0)
	if len(got) != 0 {
		t.Errorf("Expected empty result, got %d bytes", len(got))
	}
}
