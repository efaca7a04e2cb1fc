// Package layouttest provides a deterministic in-memory layout engine
// for exercising the pipeline without an external tool.
package layouttest

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/jackzampolin/inkpress/internal/layout"
)

// Call records the inputs of one Layout invocation.
type Call struct {
	Markup string
	CSS    string
	Rect   layout.Rect
}

// Engine fabricates documents with preset page counts. The zero value
// lays out every chapter as a single 96x160 page.
type Engine struct {
	// PageCounts yields the page count per successive Layout call;
	// calls beyond the slice get one page.
	PageCounts []int
	// FailOn fails any Layout whose markup contains the substring.
	FailOn string
	// PageW and PageH are the engine-unit page size (default 96x160).
	PageW, PageH float64
	// Words, keyed by {doc, page}, are returned from Page.Words.
	Words map[[2]int][]layout.Word
	// Images, keyed by {doc, page}, are returned from ImageBoxes.
	Images map[[2]int][]layout.Box

	// Calls records every Layout invocation, in order.
	Calls []Call
	// OpenDocs counts documents not yet closed.
	OpenDocs int
}

// Layout fabricates the next document.
func (e *Engine) Layout(ctx context.Context, markup, css string, page layout.Rect) (layout.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.FailOn != "" && strings.Contains(markup, e.FailOn) {
		return nil, fmt.Errorf("layouttest: refusing markup containing %q", e.FailOn)
	}
	doc := len(e.Calls)
	e.Calls = append(e.Calls, Call{Markup: markup, CSS: css, Rect: page})

	count := 1
	if doc < len(e.PageCounts) {
		count = e.PageCounts[doc]
	}
	w, h := e.PageW, e.PageH
	if w <= 0 {
		w = 96
	}
	if h <= 0 {
		h = 160
	}
	e.OpenDocs++
	return &document{engine: e, doc: doc, count: count, w: w, h: h}, nil
}

type document struct {
	engine *Engine
	doc    int
	count  int
	w, h   float64
	closed bool
}

func (d *document) PageCount() int { return d.count }

func (d *document) Page(i int) (layout.Page, error) {
	if d.closed {
		return nil, fmt.Errorf("layouttest: document %d is closed", d.doc)
	}
	if i < 0 || i >= d.count {
		return nil, fmt.Errorf("layouttest: page %d of %d", i, d.count)
	}
	return &fakePage{doc: d, idx: i}, nil
}

func (d *document) Close() error {
	if !d.closed {
		d.closed = true
		d.engine.OpenDocs--
	}
	return nil
}

type fakePage struct {
	doc *document
	idx int
}

func (p *fakePage) Size() (float64, float64) { return p.doc.w, p.doc.h }

// Rasterize paints a page the compositor can chew on: white ground, a
// black frame, and a half-black half-gray bar whose row identifies the
// page, so thresholding and dithering produce distinct results.
func (p *fakePage) Rasterize(sx, sy float64) (*image.Gray, error) {
	if p.doc.closed {
		return nil, fmt.Errorf("layouttest: document %d is closed", p.doc.doc)
	}
	w := int(p.doc.w*sx + 0.5)
	h := int(p.doc.h*sy + 0.5)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	for x := 0; x < w; x++ {
		img.SetGray(x, 0, color.Gray{})
		img.SetGray(x, h-1, color.Gray{})
	}
	for y := 0; y < h; y++ {
		img.SetGray(0, y, color.Gray{})
		img.SetGray(w-1, y, color.Gray{})
	}
	row := (p.idx + 1) * h / (p.doc.count + 1)
	for y := row; y < row+3 && y < h; y++ {
		for x := 0; x < w/2; x++ {
			img.SetGray(x, y, color.Gray{})
		}
		for x := w / 2; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: 128})
		}
	}
	return img, nil
}

func (p *fakePage) Words() ([]layout.Word, error) {
	return p.doc.engine.Words[[2]int{p.doc.doc, p.idx}], nil
}

// ImageBoxes implements layout.ImageLister.
func (p *fakePage) ImageBoxes() ([]layout.Box, error) {
	return p.doc.engine.Images[[2]int{p.doc.doc, p.idx}], nil
}
