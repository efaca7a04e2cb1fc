package render

import "image"

// Grayscale adjustments applied before binarization. All operate in
// place on zero-origin canvases.

func clamp8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

// meanGray returns the rounded mean luminance.
func meanGray(img *image.Gray) float64 {
	if len(img.Pix) == 0 {
		return 0
	}
	var sum uint64
	for _, p := range img.Pix {
		sum += uint64(p)
	}
	return float64(int(float64(sum)/float64(len(img.Pix)) + 0.5))
}

// Contrast scales pixel distance from the image mean by factor. A
// factor of 1 leaves the canvas untouched; above 1 spreads, below 1
// flattens toward the mean.
func Contrast(img *image.Gray, factor float64) {
	if factor == 1.0 {
		return
	}
	mean := meanGray(img)
	var lut [256]uint8
	for v := range lut {
		lut[v] = clamp8(mean + factor*(float64(v)-mean))
	}
	for i, p := range img.Pix {
		img.Pix[i] = lut[p]
	}
}

// WhiteClip forces every pixel brighter than clip to pure white,
// cleaning page-background tint before thresholding. A clip of 255 or
// more is a no-op.
func WhiteClip(img *image.Gray, clip int) {
	if clip >= 255 {
		return
	}
	c := uint8(clip)
	for i, p := range img.Pix {
		if p > c {
			img.Pix[i] = 255
		}
	}
}

// Brighten multiplies luminance by factor, clamped.
func Brighten(img *image.Gray, factor float64) {
	var lut [256]uint8
	for v := range lut {
		lut[v] = clamp8(float64(v) * factor)
	}
	for i, p := range img.Pix {
		img.Pix[i] = lut[p]
	}
}

// smoothKernel is the 3x3 blur the sharpen pass blends against.
var smoothKernel = [3][3]float64{
	{1, 1, 1},
	{1, 5, 1},
	{1, 1, 1},
}

// Sharpen exaggerates the difference between the canvas and a smoothed
// copy: out = smooth + factor*(orig-smooth). The 1px border is left
// unfiltered, so it passes through unchanged.
func Sharpen(img *image.Gray, factor float64) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 3 || h < 3 {
		return
	}
	smooth := cloneGray(img)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			var sum float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					sum += smoothKernel[ky+1][kx+1] * float64(img.Pix[(y+ky)*img.Stride+(x+kx)])
				}
			}
			smooth.Pix[y*smooth.Stride+x] = clamp8(sum / 13)
		}
	}
	for i := range img.Pix {
		s := float64(smooth.Pix[i])
		img.Pix[i] = clamp8(s + factor*(float64(img.Pix[i])-s))
	}
}
