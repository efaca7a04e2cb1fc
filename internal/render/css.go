package render

import (
	"fmt"
	"strconv"
	"strings"
)

// FontFace is one @font-face registration handed to the layout engine.
type FontFace struct {
	Family string
	Path   string
	Bold   bool
	Italic bool
}

// CSSConfig carries everything the generated stylesheet depends on.
// Widths and heights are in points; the engine page is sized to the
// content band only, so vertical padding never reaches the engine.
type CSSConfig struct {
	Width         int
	ContentHeight int
	FontSize      int
	FontWeight    int
	LineHeight    float64
	Align         string
	Margin        int
	// WordSpacingEm is the word-spacing the stylesheet asks for. When
	// spacing is baked into a derived font this must be zero or the
	// effect doubles.
	WordSpacingEm float64
	BodyFamily    string
	HeaderFamily  string
	Faces         []FontFace
}

func cssNum(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func faceRule(f FontFace) string {
	weight, style := "normal", "normal"
	if f.Bold {
		weight = "bold"
	}
	if f.Italic {
		style = "italic"
	}
	path := strings.ReplaceAll(f.Path, "\\", "/")
	return fmt.Sprintf(`@font-face { font-family: "%s"; src: url("%s"); font-weight: %s; font-style: %s; }`,
		f.Family, path, weight, style)
}

// BuildCSS generates the stylesheet that pins the book to the device:
// the page box, a hard reset, forced body typography, and tag
// overrides that beat whatever the book's own styles request.
func BuildCSS(c CSSConfig) string {
	var faces []string
	for _, f := range c.Faces {
		faces = append(faces, faceRule(f))
	}

	var b strings.Builder
	b.WriteString(strings.Join(faces, "\n"))
	fmt.Fprintf(&b, `
@page { size: %dpt %dpt; margin: 0; }

html, body {
    height: 100%%;
    width: 100%%;
    margin: 0 !important;
    padding: 0 !important;
}

body {
    font-family: %s !important;
    font-size: %dpt !important;
    font-weight: %d !important;
    line-height: %s !important;
    text-align: %s !important;
    color: black !important;
    background-color: white !important;
    padding: %dpx !important;
    box-sizing: border-box !important;
}

p, div, li, dd, dt, span, blockquote {
    font-family: inherit !important;
    line-height: inherit !important;
    word-spacing: %sem !important;
    hyphens: manual !important;
    color: inherit !important;
    padding-left: 0;
    padding-right: 0;
    margin-top: 0.5em;
    margin-bottom: 0.5em;
    text-indent: 1.5em;
    max-width: 100%% !important;
}

blockquote {
    margin-left: 1.5em !important;
    margin-right: 1.5em !important;
    font-style: italic;
}

.center-text {
    text-align: center !important;
    text-indent: 0 !important;
}

h1 { font-size: 1.35em !important; margin-top: 0.8em; margin-bottom: 0.4em; }
h2 { font-size: 1.25em !important; margin-top: 0.7em; margin-bottom: 0.3em; }
h3 { font-size: 1.15em !important; margin-top: 0.6em; margin-bottom: 0.2em; }

h4, h5, h6 {
    font-size: 1.0em !important;
    font-style: italic;
    text-transform: uppercase;
    letter-spacing: 0.05em;
    margin-top: 0.5em;
}

h1, h2, h3, h4, h5, h6 {
    font-family: %s !important;
    text-indent: 0 !important;
    font-weight: bold !important;
    line-height: 1.1 !important;
    page-break-after: avoid;
}

.svg-wrapper-replaced, img {
    max-width: 100%% !important;
    height: auto !important;
}

.custom-spaced, .custom-spaced * {
    font-family: 'CustomFontSpaced' !important;
    hyphens: manual !important;
    word-break: normal !important;
}
`,
		c.Width, c.ContentHeight,
		c.BodyFamily, c.FontSize, c.FontWeight, cssNum(c.LineHeight), c.Align, c.Margin,
		cssNum(c.WordSpacingEm),
		c.HeaderFamily,
	)
	return b.String()
}

// CoverCSS collapses body padding so a promoted cover image fills its
// single page exactly.
func CoverCSS() string {
	return `
body {
    padding: 0 !important;
    margin: 0 !important;
    height: 100% !important;
    overflow: hidden !important;
}
img {
    width: 100% !important;
    height: 100% !important;
    object-fit: contain !important;
    margin: 0 !important;
    display: block !important;
}
`
}
