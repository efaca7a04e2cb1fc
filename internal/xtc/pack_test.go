package xtc

import (
	"bytes"
	"image"
	"image/color"
	"testing"
)

// quantGray builds a w x h image cycling through the given levels so
// every row and column boundary is exercised.
func quantGray(w, h int, levels []uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: levels[(y*w+x)%len(levels)]})
		}
	}
	return img
}

func sameGray(a, b *image.Gray) bool {
	if a.Bounds() != b.Bounds() {
		return false
	}
	return bytes.Equal(a.Pix, b.Pix)
}

func TestPack1RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		w, h int
	}{
		{"single pixel", 1, 1},
		{"byte aligned", 8, 8},
		{"odd width", 13, 5},
		{"narrow tall", 3, 17},
		{"wide short", 31, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := quantGray(tt.w, tt.h, []uint8{0, 255, 255, 0, 255})
			packed := Pack1(src)
			wantLen := ((tt.w + 7) / 8) * tt.h
			if len(packed) != wantLen {
				t.Fatalf("packed length = %d, want %d", len(packed), wantLen)
			}
			got, err := Unpack1(packed, tt.w, tt.h)
			if err != nil {
				t.Fatalf("Unpack1: %v", err)
			}
			if !sameGray(src, got) {
				t.Errorf("round trip mismatch for %dx%d", tt.w, tt.h)
			}
		})
	}
}

func TestPack1BitOrder(t *testing.T) {
	// 3x2: white black white / black white black. MSB is the leftmost
	// pixel and bit 1 is white.
	img := image.NewGray(image.Rect(0, 0, 3, 2))
	for _, p := range []struct{ x, y int; v uint8 }{
		{0, 0, 255}, {1, 0, 0}, {2, 0, 255},
		{0, 1, 0}, {1, 1, 255}, {2, 1, 0},
	} {
		img.SetGray(p.x, p.y, color.Gray{Y: p.v})
	}
	got := Pack1(img)
	want := []byte{0xA0, 0x40}
	if !bytes.Equal(got, want) {
		t.Errorf("Pack1 = %#v, want %#v", got, want)
	}
}

func TestPack2RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		w, h int
	}{
		{"byte aligned", 16, 8},
		{"odd height", 7, 11},
		{"odd both", 5, 9},
		{"single column", 1, 12},
		{"single row", 9, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := quantGray(tt.w, tt.h, []uint8{255, 170, 85, 0, 85, 255})
			packed := Pack2(src)
			wantLen := 2 * ((tt.h + 7) / 8) * tt.w
			if len(packed) != wantLen {
				t.Fatalf("packed length = %d, want %d", len(packed), wantLen)
			}
			got, err := Unpack2(packed, tt.w, tt.h)
			if err != nil {
				t.Fatalf("Unpack2: %v", err)
			}
			if !sameGray(src, got) {
				t.Errorf("round trip mismatch for %dx%d", tt.w, tt.h)
			}
		})
	}
}

func TestPack2PlaneLayout(t *testing.T) {
	// Left column black (code 3), right column white (code 0), 9 rows.
	// Columns pack right to left, so the white column fills the first
	// bytesPerCol bytes of each plane with zeros and the black column
	// sets every pixel bit in both planes.
	img := image.NewGray(image.Rect(0, 0, 2, 9))
	for y := 0; y < 9; y++ {
		img.SetGray(0, y, color.Gray{Y: 0})
		img.SetGray(1, y, color.Gray{Y: 255})
	}
	got := Pack2(img)
	want := []byte{
		0x00, 0x00, 0xFF, 0x80, // plane 1: white col, then black col
		0x00, 0x00, 0xFF, 0x80, // plane 2
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Pack2 = %#v, want %#v", got, want)
	}
}

func TestCodeForLevels(t *testing.T) {
	tests := []struct {
		lum  uint8
		code uint8
	}{
		{255, 0},
		{170, 1},
		{85, 2},
		{0, 3},
		{250, 0},
		{100, 2},
		{40, 3},
	}
	for _, tt := range tests {
		if got := codeFor(tt.lum); got != tt.code {
			t.Errorf("codeFor(%d) = %d, want %d", tt.lum, got, tt.code)
		}
	}
}

func TestUnpackShortPayload(t *testing.T) {
	if _, err := Unpack1([]byte{0x00}, 16, 4); err == nil {
		t.Error("Unpack1 accepted a short payload")
	}
	if _, err := Unpack2([]byte{0x00, 0x01}, 4, 9); err == nil {
		t.Error("Unpack2 accepted a short payload")
	}
}
