package render

import "image"

// Binarization and 4-level quantization. Error diffusion uses the
// Floyd-Steinberg weights (7,3,5,1)/16 in raster order.

// Threshold1 maps every pixel strictly above thresh to white and the
// rest to black.
func Threshold1(img *image.Gray, thresh int) {
	t := uint8(clampInt(thresh, 0, 255))
	for i, p := range img.Pix {
		if p > t {
			img.Pix[i] = 255
		} else {
			img.Pix[i] = 0
		}
	}
}

// ShiftQuantize2 is the 2-bit content transform: luminance is shifted
// so the configured threshold lands on the middle bucket boundary,
// then bucketed to the four-level palette 0/85/170/255.
func ShiftQuantize2(img *image.Gray, thresh int) {
	shift := 128 - thresh
	var lut [256]uint8
	for v := range lut {
		s := clampInt(v+shift, 0, 255)
		lut[v] = uint8((s / 64) * 85)
	}
	for i, p := range img.Pix {
		img.Pix[i] = lut[p]
	}
}

// Posterize2 buckets luminance to the four-level palette with no
// shift. Pages already on the palette pass through unchanged.
func Posterize2(img *image.Gray) {
	for i, p := range img.Pix {
		img.Pix[i] = uint8((int(p) / 64) * 85)
	}
}

// DitherFS1 error-diffuses the canvas to pure black and white.
func DitherFS1(img *image.Gray) {
	ditherFS(img, func(v float64) uint8 {
		if v >= 128 {
			return 255
		}
		return 0
	})
}

// DitherFS2 error-diffuses the canvas to the four-level palette.
func DitherFS2(img *image.Gray) {
	ditherFS(img, func(v float64) uint8 {
		level := int(v/85 + 0.5)
		if level < 0 {
			level = 0
		}
		if level > 3 {
			level = 3
		}
		return uint8(level * 85)
	})
}

func ditherFS(img *image.Gray, nearest func(float64) uint8) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return
	}
	cur := make([]float64, w)
	next := make([]float64, w)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w]
		for x := 0; x < w; x++ {
			v := float64(row[x]) + cur[x]
			out := nearest(v)
			row[x] = out
			err := v - float64(out)
			if x+1 < w {
				cur[x+1] += err * 7 / 16
			}
			if x > 0 {
				next[x-1] += err * 3 / 16
			}
			next[x] += err * 5 / 16
			if x+1 < w {
				next[x+1] += err * 1 / 16
			}
		}
		cur, next = next, cur
		for i := range next {
			next[i] = 0
		}
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
