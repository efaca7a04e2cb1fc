package render

import (
	"fmt"
	"image"
	"io"
	"math"

	"golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
)

// Cover geometry modes.
const (
	// CoverStretch resizes to the exact target, ignoring aspect ratio.
	CoverStretch = "stretch"
	// CoverFit scales the whole image inside the target and pads the
	// rest with white.
	CoverFit = "fit"
	// CoverCrop fills the target, trimming whatever overflows. The
	// default.
	CoverCrop = "crop"
)

// RenderCover converts a cover image into a device-sized 1-bit bitmap:
// geometry per mode, then grayscale with a strong contrast boost and
// error-diffusion dithering.
func RenderCover(src image.Image, w, h int, mode string) (*image.Gray, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("cover size %dx%d is not positive", w, h)
	}
	sb := src.Bounds()
	if sb.Dx() == 0 || sb.Dy() == 0 {
		return nil, fmt.Errorf("cover image is empty")
	}

	out := newWhite(w, h)
	switch mode {
	case CoverStretch:
		xdraw.CatmullRom.Scale(out, out.Bounds(), src, sb, xdraw.Src, nil)
	case CoverFit:
		dw, dh := containSize(sb.Dx(), sb.Dy(), w, h)
		x0, y0 := (w-dw)/2, (h-dh)/2
		xdraw.CatmullRom.Scale(out, image.Rect(x0, y0, x0+dw, y0+dh), src, sb, xdraw.Src, nil)
	case CoverCrop, "":
		xdraw.CatmullRom.Scale(out, out.Bounds(), src, cropToAspect(sb, w, h), xdraw.Src, nil)
	default:
		return nil, fmt.Errorf("unknown cover mode %q", mode)
	}

	Contrast(out, 1.6)
	DitherFS1(out)
	return out, nil
}

// WriteCoverBMP encodes the cover bitmap as an uncompressed BMP.
func WriteCoverBMP(w io.Writer, img *image.Gray) error {
	return bmp.Encode(w, img)
}

// containSize returns the largest size with the source aspect ratio
// that fits inside the target.
func containSize(sw, sh, tw, th int) (int, int) {
	ratio := math.Min(float64(tw)/float64(sw), float64(th)/float64(sh))
	dw := int(math.Round(float64(sw) * ratio))
	dh := int(math.Round(float64(sh) * ratio))
	return max(1, dw), max(1, dh)
}

// cropToAspect returns the centered sub-rectangle of sb with the
// target aspect ratio.
func cropToAspect(sb image.Rectangle, tw, th int) image.Rectangle {
	sw, sh := sb.Dx(), sb.Dy()
	if sw*th > tw*sh {
		// Wider than the target: trim the sides.
		cw := max(1, tw*sh/th)
		x0 := sb.Min.X + (sw-cw)/2
		return image.Rect(x0, sb.Min.Y, x0+cw, sb.Max.Y)
	}
	// Taller than the target: trim top and bottom.
	ch := max(1, th*sw/tw)
	y0 := sb.Min.Y + (sh-ch)/2
	return image.Rect(sb.Min.X, y0, sb.Max.X, y0+ch)
}
