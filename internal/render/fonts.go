package render

import (
	"fmt"
	"image"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// FaceSource hands out sized faces of one font for overlay and TOC
// drawing. The fallback chain never fails: a missing or unparseable
// font degrades to the bundled Go Regular, and as a last resort to a
// fixed bitmap face. Not safe for concurrent use.
type FaceSource struct {
	fnt   *opentype.Font
	cache map[float64]font.Face
}

// NewFaceSource loads the font at path. The returned source is always
// usable; a non-nil error only reports why the requested font was
// substituted.
func NewFaceSource(path string) (*FaceSource, error) {
	var loadErr error
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if f, err := opentype.Parse(data); err == nil {
				return &FaceSource{fnt: f}, nil
			} else {
				loadErr = fmt.Errorf("parse font %s: %w", path, err)
			}
		} else {
			loadErr = fmt.Errorf("read font: %w", err)
		}
	}
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return &FaceSource{}, loadErr
	}
	return &FaceSource{fnt: f}, loadErr
}

// Face returns a face at the given pixel size.
func (s *FaceSource) Face(size float64) font.Face {
	if s.fnt == nil {
		return basicfont.Face7x13
	}
	if f, ok := s.cache[size]; ok {
		return f
	}
	f, err := opentype.NewFace(s.fnt, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return basicfont.Face7x13
	}
	if s.cache == nil {
		s.cache = make(map[float64]font.Face)
	}
	s.cache[size] = f
	return f
}

// textWidth returns the advance width of s in whole pixels.
func textWidth(f font.Face, s string) int {
	return font.MeasureString(f, s).Ceil()
}

func faceMetrics(f font.Face) (ascent, descent int) {
	m := f.Metrics()
	return m.Ascent.Ceil(), m.Descent.Ceil()
}

// drawText draws s in black with its top-left corner at (x, y).
func drawText(dst *image.Gray, f font.Face, x, y int, s string) {
	ascent, _ := faceMetrics(f)
	d := font.Drawer{
		Dst:  dst,
		Src:  image.Black,
		Face: f,
		Dot:  fixed.P(x, y+ascent),
	}
	d.DrawString(s)
}

// truncateToFit shortens s rune by rune until it fits maxW with a
// trailing ellipsis. Strings that already fit come back unchanged.
func truncateToFit(f font.Face, s string, maxW int) string {
	if maxW <= 0 {
		return ""
	}
	if textWidth(f, s) <= maxW {
		return s
	}
	const ellipsis = "..."
	r := []rune(s)
	for len(r) > 0 && textWidth(f, string(r)+ellipsis) > maxW {
		r = r[:len(r)-1]
	}
	return string(r) + ellipsis
}
