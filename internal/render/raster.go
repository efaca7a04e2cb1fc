package render

import (
	"image"
	"image/draw"
)

// newWhite returns a w by h canvas filled with white.
func newWhite(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	return img
}

func cloneGray(src *image.Gray) *image.Gray {
	out := image.NewGray(src.Bounds())
	copy(out.Pix, src.Pix)
	return out
}

// paste copies src onto dst with its top-left corner at (x, y).
func paste(dst *image.Gray, src *image.Gray, x, y int) {
	r := src.Bounds().Add(image.Pt(x, y)).Sub(src.Bounds().Min)
	draw.Draw(dst, r, src, src.Bounds().Min, draw.Src)
}

// cropCopy returns a copy of the region r of src, clipped to src.
func cropCopy(src *image.Gray, r image.Rectangle) *image.Gray {
	r = r.Intersect(src.Bounds())
	out := image.NewGray(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := 0; y < r.Dy(); y++ {
		srcRow := src.Pix[(r.Min.Y+y-src.Rect.Min.Y)*src.Stride+(r.Min.X-src.Rect.Min.X):]
		copy(out.Pix[y*out.Stride:y*out.Stride+r.Dx()], srcRow[:r.Dx()])
	}
	return out
}

// fillRect fills the inclusive rectangle [x0,y0]..[x1,y1], clipped to
// the canvas. Inclusive bounds match the drawing model the overlay
// geometry was derived under.
func fillRect(img *image.Gray, x0, y0, x1, y1 int, v uint8) {
	b := img.Bounds()
	if x0 < b.Min.X {
		x0 = b.Min.X
	}
	if y0 < b.Min.Y {
		y0 = b.Min.Y
	}
	if x1 >= b.Max.X {
		x1 = b.Max.X - 1
	}
	if y1 >= b.Max.Y {
		y1 = b.Max.Y - 1
	}
	for y := y0; y <= y1; y++ {
		row := img.Pix[(y-b.Min.Y)*img.Stride:]
		for x := x0; x <= x1; x++ {
			row[x-b.Min.X] = v
		}
	}
}

// strokeRect draws the 1px border of the inclusive rectangle.
func strokeRect(img *image.Gray, x0, y0, x1, y1 int, v uint8) {
	hline(img, y0, x0, x1, v)
	hline(img, y1, x0, x1, v)
	vline(img, x0, y0, y1, v)
	vline(img, x1, y0, y1, v)
}

func hline(img *image.Gray, y, x0, x1 int, v uint8) {
	fillRect(img, x0, y, x1, y, v)
}

func vline(img *image.Gray, x, y0, y1 int, v uint8) {
	fillRect(img, x, y0, x, y1, v)
}

// fillEllipse draws a filled circle of radius r centered at (cx, cy)
// with a 1px outline ring.
func fillEllipse(img *image.Gray, cx, cy, r int, fill, outline uint8) {
	if r < 0 {
		return
	}
	rr := r * r
	inner := (r - 1) * (r - 1)
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			d := dx*dx + dy*dy
			if d > rr {
				continue
			}
			v := fill
			if r > 0 && d >= inner {
				v = outline
			}
			setPix(img, cx+dx, cy+dy, v)
		}
	}
}

func setPix(img *image.Gray, x, y int, v uint8) {
	b := img.Bounds()
	if x < b.Min.X || x >= b.Max.X || y < b.Min.Y || y >= b.Max.Y {
		return
	}
	img.Pix[(y-b.Min.Y)*img.Stride+(x-b.Min.X)] = v
}

// rotate90 rotates the canvas a quarter turn counter-clockwise.
func rotate90(src *image.Gray) *image.Gray {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	out := image.NewGray(image.Rect(0, 0, h, w))
	for y := 0; y < w; y++ {
		for x := 0; x < h; x++ {
			out.Pix[y*out.Stride+x] = src.Pix[x*src.Stride+(w-1-y)]
		}
	}
	return out
}

// rotate270 rotates the canvas a quarter turn clockwise.
func rotate270(src *image.Gray) *image.Gray {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	out := image.NewGray(image.Rect(0, 0, h, w))
	for y := 0; y < w; y++ {
		for x := 0; x < h; x++ {
			out.Pix[y*out.Stride+x] = src.Pix[(h-1-x)*src.Stride+y]
		}
	}
	return out
}
