// Package layout defines the contract with the document layout engine
// and the page bookkeeping built on top of it: the flat global page
// order, chapter ranges, and table-of-contents sizing.
package layout

import (
	"context"
	"image"
)

// Rect is the page geometry a chapter is laid out against, in points.
type Rect struct {
	Width  float64
	Height float64
}

// Engine paginates styled markup. Any engine satisfying this interface
// is substitutable; the pipeline never assumes a particular backend.
type Engine interface {
	Layout(ctx context.Context, markup, css string, page Rect) (Document, error)
}

// Document is one laid-out chapter. Close releases engine resources;
// pages must not be used afterwards.
type Document interface {
	PageCount() int
	Page(i int) (Page, error)
	Close() error
}

// Box is an axis-aligned region in engine units.
type Box struct {
	X0, Y0, X1, Y1 float64
}

// Word is a text item with its engine-unit bounding box.
type Word struct {
	Box  Box
	Text string
}

// Page is one laid-out page.
type Page interface {
	// Size reports the page extent in engine units.
	Size() (w, h float64)
	// Rasterize renders the page to grayscale, scaled by sx and sy.
	// Anisotropic scales are fine; pixels are re-quantized downstream.
	Rasterize(sx, sy float64) (*image.Gray, error)
	// Words lists the page's text items in reading order.
	Words() ([]Word, error)
}

// ImageLister is an optional Page capability reporting embedded image
// regions, so the compositor can shield them from global binarization.
type ImageLister interface {
	ImageBoxes() ([]Box, error)
}

// Scale returns the factors mapping an engine page onto a device canvas.
func Scale(pageW, pageH float64, canvasW, canvasH int) (sx, sy float64) {
	if pageW <= 0 || pageH <= 0 {
		return 1, 1
	}
	return float64(canvasW) / pageW, float64(canvasH) / pageH
}

// ScaleBox maps an engine-unit box to canvas pixels. All four
// coordinates truncate toward zero; callers reject boxes whose extent
// collapses under truncation.
func ScaleBox(b Box, sx, sy float64) image.Rectangle {
	return image.Rectangle{
		Min: image.Point{X: int(b.X0 * sx), Y: int(b.Y0 * sy)},
		Max: image.Point{X: int(b.X1 * sx), Y: int(b.Y1 * sy)},
	}
}
