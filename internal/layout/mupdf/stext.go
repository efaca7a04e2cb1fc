package mupdf

import (
	"encoding/xml"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/jackzampolin/inkpress/internal/layout"
)

// Structured-text XML as written by mutool draw -F stext. Only the
// attributes needed for word and image geometry are mapped.
type stextDocument struct {
	Pages []stextPage `xml:"page"`
}

type stextPage struct {
	Blocks []stextBlock `xml:"block"`
	Images []stextImage `xml:"image"`
}

type stextBlock struct {
	Lines []stextLine `xml:"line"`
}

type stextLine struct {
	Fonts []stextFont `xml:"font"`
}

type stextFont struct {
	Chars []stextChar `xml:"char"`
}

type stextChar struct {
	Quad string `xml:"quad,attr"`
	C    string `xml:"c,attr"`
}

type stextImage struct {
	BBox string `xml:"bbox,attr"`
}

func parseStext(data []byte) (*stextPage, error) {
	var doc stextDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse structured text: %w", err)
	}
	if len(doc.Pages) == 0 {
		return &stextPage{}, nil
	}
	// One page was requested, so one page comes back.
	return &doc.Pages[0], nil
}

// words flattens the char stream into words, splitting on whitespace
// characters. Each word's box is the union of its char quads.
func (p *stextPage) words() []layout.Word {
	var out []layout.Word
	for _, blk := range p.Blocks {
		for _, ln := range blk.Lines {
			var (
				text strings.Builder
				box  layout.Box
				open bool
			)
			flush := func() {
				if open && text.Len() > 0 {
					out = append(out, layout.Word{Box: box, Text: text.String()})
				}
				text.Reset()
				open = false
			}
			for _, ft := range ln.Fonts {
				for _, ch := range ft.Chars {
					if isSpaceChar(ch.C) {
						flush()
						continue
					}
					qb, err := quadBox(ch.Quad)
					if err != nil {
						continue
					}
					if !open {
						box = qb
						open = true
					} else {
						box = union(box, qb)
					}
					text.WriteString(ch.C)
				}
			}
			flush()
		}
	}
	return out
}

func (p *stextPage) imageBoxes() []layout.Box {
	var out []layout.Box
	for _, img := range p.Images {
		b, err := bboxBox(img.BBox)
		if err != nil {
			continue
		}
		out = append(out, b)
	}
	return out
}

func isSpaceChar(c string) bool {
	if c == "" {
		return true
	}
	for _, r := range c {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// quadBox reduces a char quad ("ulx uly urx ury llx lly lrx lry") to
// its axis-aligned bounding box.
func quadBox(quad string) (layout.Box, error) {
	vals, err := splitFloats(quad, 8)
	if err != nil {
		return layout.Box{}, err
	}
	b := layout.Box{
		X0: math.Inf(1), Y0: math.Inf(1),
		X1: math.Inf(-1), Y1: math.Inf(-1),
	}
	for i := 0; i < 8; i += 2 {
		b.X0 = math.Min(b.X0, vals[i])
		b.X1 = math.Max(b.X1, vals[i])
		b.Y0 = math.Min(b.Y0, vals[i+1])
		b.Y1 = math.Max(b.Y1, vals[i+1])
	}
	return b, nil
}

// bboxBox parses an "x0 y0 x1 y1" attribute.
func bboxBox(bbox string) (layout.Box, error) {
	vals, err := splitFloats(bbox, 4)
	if err != nil {
		return layout.Box{}, err
	}
	return layout.Box{X0: vals[0], Y0: vals[1], X1: vals[2], Y1: vals[3]}, nil
}

func splitFloats(s string, n int) ([]float64, error) {
	fields := strings.Fields(s)
	if len(fields) != n {
		return nil, fmt.Errorf("expected %d values, got %d", n, len(fields))
	}
	out := make([]float64, n)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("bad coordinate %q: %w", f, err)
		}
		out[i] = v
	}
	return out, nil
}

func union(a, b layout.Box) layout.Box {
	return layout.Box{
		X0: math.Min(a.X0, b.X0),
		Y0: math.Min(a.Y0, b.Y0),
		X1: math.Max(a.X1, b.X1),
		Y1: math.Max(a.Y1, b.Y1),
	}
}
