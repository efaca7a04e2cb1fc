package mupdf

import (
	"image"
	"image/color"
	"reflect"
	"strings"
	"testing"

	"github.com/jackzampolin/inkpress/internal/layout"
)

func TestBuildDocument(t *testing.T) {
	doc := buildDocument("<p>Hello</p>", "p { margin: 0; }")
	for _, want := range []string{
		"<!DOCTYPE html>",
		"<meta charset=\"utf-8\">",
		"<style>\np { margin: 0; }\n</style>",
		"<body>\n<p>Hello</p>\n</body>",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("document missing %q:\n%s", want, doc)
		}
	}
}

func TestCommandArgs(t *testing.T) {
	tests := []struct {
		name string
		got  []string
		want []string
	}{
		{
			name: "convert",
			got:  convertArgs("/tmp/ch.html", "/tmp/ch.pdf"),
			want: []string{"convert", "-o", "/tmp/ch.pdf", "/tmp/ch.html"},
		},
		{
			name: "draw",
			got:  drawArgs("/tmp/ch.pdf", "/tmp/p.png", 144, 3),
			want: []string{"draw", "-q", "-F", "png", "-c", "gray", "-r", "144", "-o", "/tmp/p.png", "/tmp/ch.pdf", "3"},
		},
		{
			name: "stext",
			got:  stextArgs("/tmp/ch.pdf", "/tmp/p.xml", 1),
			want: []string{"draw", "-q", "-F", "stext", "-O", "preserve-images", "-o", "/tmp/p.xml", "/tmp/ch.pdf", "1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !reflect.DeepEqual(tt.got, tt.want) {
				t.Errorf("args = %v, want %v", tt.got, tt.want)
			}
		})
	}
}

const sampleStext = `<?xml version="1.0"?>
<document name="ch.pdf">
<page id="page1" width="300" height="400">
<block bbox="10 10 200 30">
<line bbox="10 10 200 30" wmode="0" dir="1 0">
<font name="Serif" size="12">
<char quad="10 10 18 10 10 26 18 26" x="10" y="24" c="O"/>
<char quad="18 10 26 10 18 26 26 26" x="18" y="24" c="n"/>
<char quad="26 10 34 10 26 26 34 26" x="26" y="24" c=" "/>
<char quad="34 10 42 10 34 26 42 26" x="34" y="24" c="i"/>
</font>
<font name="Serif-Italic" size="12">
<char quad="42 10 50 10 42 26 50 26" x="42" y="24" c="t"/>
</font>
</line>
</block>
<image bbox="50 100 250 300"/>
</page>
</document>
`

func TestParseStextWords(t *testing.T) {
	page, err := parseStext([]byte(sampleStext))
	if err != nil {
		t.Fatalf("parseStext: %v", err)
	}
	words := page.words()
	if len(words) != 2 {
		t.Fatalf("got %d words, want 2: %+v", len(words), words)
	}
	if words[0].Text != "On" || words[1].Text != "it" {
		t.Errorf("words = %q, %q; want On, it", words[0].Text, words[1].Text)
	}
	// "it" spans two font runs and both quads.
	it := words[1].Box
	if it.X0 != 34 || it.X1 != 50 || it.Y0 != 10 || it.Y1 != 26 {
		t.Errorf("box for it = %+v", it)
	}
}

func TestParseStextImages(t *testing.T) {
	page, err := parseStext([]byte(sampleStext))
	if err != nil {
		t.Fatalf("parseStext: %v", err)
	}
	boxes := page.imageBoxes()
	want := []layout.Box{{X0: 50, Y0: 100, X1: 250, Y1: 300}}
	if !reflect.DeepEqual(boxes, want) {
		t.Errorf("image boxes = %+v, want %+v", boxes, want)
	}
}

func TestParseStextEmpty(t *testing.T) {
	page, err := parseStext([]byte(`<?xml version="1.0"?><document name="x"></document>`))
	if err != nil {
		t.Fatalf("parseStext: %v", err)
	}
	if got := page.words(); len(got) != 0 {
		t.Errorf("words on empty doc = %+v", got)
	}
}

func TestQuadBox(t *testing.T) {
	// Rotated glyph quad: the box must still be axis-aligned.
	b, err := quadBox("5 1 9 3 3 7 7 9")
	if err != nil {
		t.Fatalf("quadBox: %v", err)
	}
	if b.X0 != 3 || b.Y0 != 1 || b.X1 != 9 || b.Y1 != 9 {
		t.Errorf("box = %+v", b)
	}
	if _, err := quadBox("1 2 3"); err == nil {
		t.Error("expected error for short quad")
	}
}

func TestToGrayResample(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 40, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 40; x++ {
			if x < 20 {
				src.SetGray(x, y, color.Gray{Y: 0})
			} else {
				src.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	out := toGray(src, 20, 20)
	if out.Bounds().Dx() != 20 || out.Bounds().Dy() != 20 {
		t.Fatalf("bounds = %v", out.Bounds())
	}
	if l, r := out.GrayAt(2, 10).Y, out.GrayAt(17, 10).Y; l > 64 || r < 192 {
		t.Errorf("resample lost the halves: left=%d right=%d", l, r)
	}

	// Identity case keeps the same pixels.
	same := toGray(src, 40, 20)
	if same != src {
		t.Error("matching gray image should pass through")
	}
}

func TestDPIRounding(t *testing.T) {
	for _, tt := range []struct {
		sy   float64
		want int
	}{
		{1, 72},
		{2, 144},
		{1.5, 108},
		{0.1, 18}, // floor
	} {
		dpi := int(72*tt.sy + 0.5)
		if dpi < 18 {
			dpi = 18
		}
		if dpi != tt.want {
			t.Errorf("sy=%v: dpi=%d want %d", tt.sy, dpi, tt.want)
		}
	}
}
