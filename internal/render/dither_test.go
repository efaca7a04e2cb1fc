package render

import (
	"testing"

	"github.com/jackzampolin/inkpress/internal/testutil"
)

func TestThreshold1Boundary(t *testing.T) {
	img := testutil.NewGray(4, 1, 0)
	copy(img.Pix, []uint8{130, 131, 0, 255})

	Threshold1(img, 130)

	want := []uint8{0, 255, 0, 255}
	for i, p := range img.Pix {
		if p != want[i] {
			t.Errorf("pixel %d = %d, want %d", i, p, want[i])
		}
	}
}

func TestShiftQuantize2(t *testing.T) {
	// Threshold 130 shifts luminance by -2 before bucketing.
	cases := []struct {
		in   uint8
		want uint8
	}{
		{0, 0},
		{65, 0},   // 63 after shift
		{66, 85},  // 64 lands in the second bucket
		{129, 85}, // 127
		{130, 170},
		{193, 170}, // 191
		{194, 255}, // 192
		{255, 255},
	}
	for _, c := range cases {
		img := testutil.NewGray(1, 1, c.in)
		ShiftQuantize2(img, 130)
		if img.Pix[0] != c.want {
			t.Errorf("quantize(%d) = %d, want %d", c.in, img.Pix[0], c.want)
		}
	}
}

func TestPosterize2(t *testing.T) {
	img := testutil.NewGray(8, 1, 0)
	copy(img.Pix, []uint8{0, 63, 64, 127, 128, 191, 192, 255})

	Posterize2(img)

	want := []uint8{0, 0, 85, 85, 170, 170, 255, 255}
	for i, p := range img.Pix {
		if p != want[i] {
			t.Errorf("pixel %d = %d, want %d", i, p, want[i])
		}
	}
}

func TestPosterize2Idempotent(t *testing.T) {
	img := testutil.NewGray(4, 1, 0)
	copy(img.Pix, []uint8{0, 85, 170, 255})

	Posterize2(img)

	want := []uint8{0, 85, 170, 255}
	for i, p := range img.Pix {
		if p != want[i] {
			t.Errorf("palette value %d moved to %d", want[i], p)
		}
	}
}

func TestDitherFS1MidGray(t *testing.T) {
	img := testutil.NewGray(16, 16, 128)

	DitherFS1(img)

	black, white := 0, 0
	for _, p := range img.Pix {
		switch p {
		case 0:
			black++
		case 255:
			white++
		default:
			t.Fatalf("pixel value %d is not binary", p)
		}
	}
	if black == 0 || white == 0 {
		t.Fatalf("mid gray dithered to a solid field: %d black, %d white", black, white)
	}
	// Error diffusion preserves the overall tone.
	mean := float64(white*255) / 256
	if mean < 116 || mean > 140 {
		t.Errorf("mean after dithering = %.1f, want near 128", mean)
	}
}

func TestDitherFS2PaletteFixedPoint(t *testing.T) {
	img := testutil.NewGray(8, 8, 85)

	DitherFS2(img)

	for i, p := range img.Pix {
		if p != 85 {
			t.Fatalf("pixel %d = %d, want 85: palette values must be fixed points", i, p)
		}
	}
}

func TestDitherFS2StaysOnPalette(t *testing.T) {
	img := testutil.Ramp(64, 8)

	DitherFS2(img)

	for i, p := range img.Pix {
		switch p {
		case 0, 85, 170, 255:
		default:
			t.Fatalf("pixel %d = %d is off the 2-bit palette", i, p)
		}
	}
}
