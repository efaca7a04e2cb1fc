package render

import (
	"fmt"
	"image"

	"github.com/jackzampolin/inkpress/internal/config"
	"github.com/jackzampolin/inkpress/internal/layout"
)

// Page composites one global page into its finished device bitmap.
// Content pages run the full pipeline: paste the rasterized chapter
// page, global enhancement, embedded-image capture, the mid-stage
// quantize, crop re-paste, padding-band clear, overlay and annotation
// drawing. TOC pages skip straight from paste to the final conversion.
// Every page ends with the depth conversion and orientation rotation.
func (r *Result) Page(idx int) (*image.Gray, error) {
	if r.closed {
		return nil, fmt.Errorf("render: result is closed")
	}
	loc, err := r.seq.At(idx)
	if err != nil {
		return nil, err
	}

	set := r.settings
	topPad := max(0, set.Text.TopPadding)
	botPad := max(0, set.Text.BottomPadding)

	canvas := newWhite(r.width, r.height)

	if loc.Kind == layout.KindTOC {
		toc := r.tocImages[loc.TOC]
		paste(canvas, toc, (r.width-toc.Bounds().Dx())/2, 0)
		r.finalize(canvas)
		return r.orient(canvas), nil
	}

	contentH := max(1, r.height-topPad-botPad)

	doc := r.docs[loc.Ref.Doc]
	page, err := doc.Page(loc.Ref.Page)
	if err != nil {
		return nil, fmt.Errorf("open page %d of chapter %d: %w", loc.Ref.Page, loc.Ref.Doc, err)
	}
	pw, ph := page.Size()
	sx, sy := layout.Scale(pw, ph, r.width, contentH)
	content, err := page.Rasterize(sx, sy)
	if err != nil {
		return nil, fmt.Errorf("rasterize page %d of chapter %d: %w", loc.Ref.Page, loc.Ref.Doc, err)
	}

	pasteX := (r.width - content.Bounds().Dx()) / 2
	pasteY := topPad
	paste(canvas, content, pasteX, pasteY)

	if set.Output.Contrast != 1.0 {
		Contrast(canvas, set.Output.Contrast)
	}
	if set.Output.WhiteClip < 255 {
		WhiteClip(canvas, set.Output.WhiteClip)
	}

	// Image regions leave the canvas before the global quantize and
	// return after it, so photographs keep their dithered detail while
	// the text around them goes high-contrast.
	crops := r.captureImages(canvas, page, sx, sy, pasteX, pasteY)

	if set.Output.Mode == config.ModeThreshold {
		if set.Output.Sharpen > 0 {
			Sharpen(canvas, 1+set.Output.Sharpen*0.5)
		}
		if set.Output.Depth == 2 {
			ShiftQuantize2(canvas, set.Output.Threshold)
		} else {
			Threshold1(canvas, set.Output.Threshold)
		}
	}
	// Dither mode stays grayscale here; the error diffusion runs in the
	// final conversion so overlay text is diffused with the body.

	for _, c := range crops {
		paste(canvas, c.img, c.pos.X, c.pos.Y)
	}

	if topPad > 0 {
		fillRect(canvas, 0, 0, r.width, topPad, 255)
	}
	if botPad > 0 {
		fillRect(canvas, 0, r.height-botPad, r.width, r.height, 255)
	}

	r.overlay.Draw(canvas, idx)

	if set.Annotations.Enabled {
		if table := r.annotations[loc.Ref]; len(table) > 0 {
			words, err := page.Words()
			if err != nil {
				return nil, fmt.Errorf("read words of page %d of chapter %d: %w", loc.Ref.Page, loc.Ref.Doc, err)
			}
			drawAnnotations(canvas, words, table, r.faces, set.Text.FontSize, sx, sy, pasteX, pasteY, topPad)
		}
	}

	r.finalize(canvas)
	return r.orient(canvas), nil
}

type capturedImage struct {
	img *image.Gray
	pos image.Point
}

// captureImages crops each embedded image region while the canvas is
// still grayscale, brightens it slightly for e-ink and dithers it
// independently of the page-wide conversion.
func (r *Result) captureImages(canvas *image.Gray, page layout.Page, sx, sy float64, pasteX, pasteY int) []capturedImage {
	lister, ok := page.(layout.ImageLister)
	if !ok {
		return nil
	}
	boxes, err := lister.ImageBoxes()
	if err != nil {
		r.logger.Warn("listing embedded images failed", "error", err)
		return nil
	}
	var crops []capturedImage
	for _, b := range boxes {
		scaled := layout.ScaleBox(b, sx, sy)
		if scaled.Max.X <= scaled.Min.X || scaled.Max.Y <= scaled.Min.Y {
			continue
		}
		region := scaled.Add(image.Pt(pasteX, pasteY)).Intersect(canvas.Bounds())
		if region.Empty() {
			continue
		}
		crop := cropCopy(canvas, region)
		Brighten(crop, 1.1)
		DitherFS1(crop)
		crops = append(crops, capturedImage{img: crop, pos: region.Min})
	}
	return crops
}

// finalize applies the depth conversion every page receives on its way
// to the device, overlay text included.
func (r *Result) finalize(canvas *image.Gray) {
	out := r.settings.Output
	switch {
	case out.Depth == 2 && out.Mode == config.ModeDither:
		DitherFS2(canvas)
	case out.Depth == 2:
		Posterize2(canvas)
	case out.Mode == config.ModeDither:
		DitherFS1(canvas)
	default:
		Threshold1(canvas, out.Threshold)
	}
}

// orient rotates the composed canvas into the device's native portrait
// frame for landscape orientations.
func (r *Result) orient(canvas *image.Gray) *image.Gray {
	switch r.settings.Device.Orientation {
	case config.OrientLandscape:
		return rotate90(canvas)
	case config.OrientLandscape270:
		return rotate270(canvas)
	}
	return canvas
}
