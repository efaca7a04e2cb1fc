package render

import (
	"strings"
	"testing"
)

func TestBuildCSS(t *testing.T) {
	css := BuildCSS(CSSConfig{
		Width:         480,
		ContentHeight: 753,
		FontSize:      28,
		FontWeight:    400,
		LineHeight:    1.4,
		Align:         "justify",
		Margin:        15,
		WordSpacingEm: 0.2,
		BodyFamily:    `"CustomFontBody"`,
		HeaderFamily:  `"CustomFontHeader"`,
		Faces: []FontFace{
			{Family: "CustomFontBody", Path: `C:\fonts\body.ttf`},
			{Family: "CustomFontSpaced", Path: "/tmp/spaced.ttf", Italic: true},
			{Family: "CustomFontSpaced", Path: "/tmp/spaced.ttf", Bold: true},
		},
	})

	for _, want := range []string{
		"@page { size: 480pt 753pt; margin: 0; }",
		"font-size: 28pt !important",
		"font-weight: 400 !important",
		"line-height: 1.4 !important",
		"text-align: justify !important",
		"padding: 15px !important",
		"word-spacing: 0.2em !important",
		`font-family: "CustomFontBody" !important`,
		`font-family: "CustomFontHeader" !important`,
		`@font-face { font-family: "CustomFontBody"; src: url("C:/fonts/body.ttf"); font-weight: normal; font-style: normal; }`,
		`src: url("/tmp/spaced.ttf"); font-weight: normal; font-style: italic;`,
		`src: url("/tmp/spaced.ttf"); font-weight: bold; font-style: normal;`,
		".custom-spaced, .custom-spaced *",
	} {
		if !strings.Contains(css, want) {
			t.Errorf("generated css missing %q", want)
		}
	}
}

func TestBuildCSSWholeLineHeight(t *testing.T) {
	css := BuildCSS(CSSConfig{
		Width: 100, ContentHeight: 100, FontSize: 12, FontWeight: 400,
		LineHeight: 2.0, Align: "left", Margin: 5,
		BodyFamily: "serif", HeaderFamily: "serif",
	})
	if !strings.Contains(css, "line-height: 2 !important") {
		t.Errorf("whole line height formatted wrong:\n%s", css)
	}
	if !strings.Contains(css, "word-spacing: 0em !important") {
		t.Errorf("zero word spacing formatted wrong:\n%s", css)
	}
}

func TestCoverCSS(t *testing.T) {
	css := CoverCSS()
	for _, want := range []string{
		"object-fit: contain",
		"padding: 0 !important",
		"overflow: hidden",
	} {
		if !strings.Contains(css, want) {
			t.Errorf("cover css missing %q", want)
		}
	}
}
