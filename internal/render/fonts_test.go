package render

import (
	"testing"

	"golang.org/x/image/font/basicfont"

	"github.com/jackzampolin/inkpress/internal/testutil"
)

func TestTextWidthFixedAdvance(t *testing.T) {
	// Face7x13 advances 7px per glyph.
	if got := textWidth(basicfont.Face7x13, "abcd"); got != 28 {
		t.Errorf("textWidth = %d, want 28", got)
	}
	if got := textWidth(basicfont.Face7x13, ""); got != 0 {
		t.Errorf("empty textWidth = %d, want 0", got)
	}
}

func TestFaceMetricsBasic(t *testing.T) {
	a, d := faceMetrics(basicfont.Face7x13)
	if a != 11 || d != 2 {
		t.Errorf("metrics = %d, %d, want 11, 2", a, d)
	}
}

func TestTruncateToFit(t *testing.T) {
	f := basicfont.Face7x13
	cases := []struct {
		name string
		s    string
		maxW int
		want string
	}{
		{"fits exactly", "hello", 35, "hello"},
		{"one short", "hello", 34, "h..."},
		{"generous", "hi", 100, "hi"},
		{"ellipsis only", "hello", 20, "..."},
		{"zero width", "hello", 0, ""},
		{"negative width", "hello", -3, ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := truncateToFit(f, c.s, c.maxW); got != c.want {
				t.Errorf("truncateToFit(%q, %d) = %q, want %q", c.s, c.maxW, got, c.want)
			}
		})
	}
}

func TestNewFaceSourceMissingFont(t *testing.T) {
	s, err := NewFaceSource("/nonexistent/font.ttf")
	if err == nil {
		t.Error("expected an advisory error for a missing font")
	}
	if s == nil {
		t.Fatal("source must be usable regardless of the load error")
	}
	if w := textWidth(s.Face(16), "x"); w <= 0 {
		t.Errorf("substitute face measured %d", w)
	}
}

func TestNewFaceSourceEmptyPath(t *testing.T) {
	s, err := NewFaceSource("")
	if err != nil {
		t.Fatalf("empty path should use the built-in face: %v", err)
	}
	if w := textWidth(s.Face(14), "m"); w <= 0 {
		t.Errorf("built-in face measured %d", w)
	}
}

func TestDrawTextInks(t *testing.T) {
	img := testutil.NewGray(40, 20, 255)
	drawText(img, basicfont.Face7x13, 2, 3, "X")

	ink := 0
	for _, p := range img.Pix {
		if p != 255 {
			ink++
		}
	}
	if ink == 0 {
		t.Fatal("drawText left the canvas blank")
	}
	// Top-left anchoring: nothing above the requested y.
	for y := 0; y < 3; y++ {
		for x := 0; x < 40; x++ {
			if img.GrayAt(x, y).Y != 255 {
				t.Fatalf("ink at (%d, %d), above the text top", x, y)
			}
		}
	}
}
