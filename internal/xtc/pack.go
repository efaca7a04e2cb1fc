package xtc

import (
	"fmt"
	"image"
	"image/color"
)

// Gray levels of the four 2-bit codes. Code 0 is white, code 3 black;
// device luminance is 85*(3-code).
var levels2 = [4]uint8{255, 170, 85, 0}

// codeFor maps a luminance to its 2-bit device code by nearest level.
// Composited pages arrive already quantized to the exact levels, so
// rounding only matters for foreign inputs.
func codeFor(v uint8) uint8 {
	c := (int(v) + 42) / 85
	if c > 3 {
		c = 3
	}
	return uint8(3 - c)
}

// Pack1 packs a two-level grayscale image into row-major 1-bit rows,
// eight pixels per byte, most significant bit first. Bit 1 is white.
func Pack1(img *image.Gray) []byte {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	stride := (w + 7) / 8
	out := make([]byte, stride*h)
	for y := 0; y < h; y++ {
		row := out[y*stride:]
		for x := 0; x < w; x++ {
			if img.GrayAt(b.Min.X+x, b.Min.Y+y).Y >= 128 {
				row[x/8] |= 0x80 >> uint(x%8)
			}
		}
	}
	return out
}

// Unpack1 reverses Pack1.
func Unpack1(data []byte, w, h int) (*image.Gray, error) {
	stride := (w + 7) / 8
	if len(data) < stride*h {
		return nil, fmt.Errorf("%w: 1-bit payload %d bytes, need %d", ErrCorrupt, len(data), stride*h)
	}
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := data[y*stride:]
		for x := 0; x < w; x++ {
			if row[x/8]&(0x80>>uint(x%8)) != 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img, nil
}

// Pack2 packs a four-level grayscale image into the device's vertical
// bit-plane order. Columns are scanned right to left; within a column,
// rows pack top to bottom eight per byte with the top row in the MSB.
// The high bit of each 2-bit code lands in the first plane, the low bit
// in the second, and the payload is plane one followed by plane two.
func Pack2(img *image.Gray) []byte {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	bytesPerCol := (h + 7) / 8
	planeSize := bytesPerCol * w
	out := make([]byte, 2*planeSize)
	for xi := 0; xi < w; xi++ {
		x := w - 1 - xi
		col := xi * bytesPerCol
		for y := 0; y < h; y++ {
			code := codeFor(img.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			bit := byte(0x80) >> uint(y%8)
			idx := col + y/8
			if code&0x02 != 0 {
				out[idx] |= bit
			}
			if code&0x01 != 0 {
				out[planeSize+idx] |= bit
			}
		}
	}
	return out
}

// Unpack2 reverses Pack2, recombining the bit-planes and undoing the
// column reversal.
func Unpack2(data []byte, w, h int) (*image.Gray, error) {
	bytesPerCol := (h + 7) / 8
	planeSize := bytesPerCol * w
	if len(data) < 2*planeSize {
		return nil, fmt.Errorf("%w: 2-bit payload %d bytes, need %d", ErrCorrupt, len(data), 2*planeSize)
	}
	img := image.NewGray(image.Rect(0, 0, w, h))
	for xi := 0; xi < w; xi++ {
		x := w - 1 - xi
		col := xi * bytesPerCol
		for y := 0; y < h; y++ {
			bit := byte(0x80) >> uint(y%8)
			idx := col + y/8
			var code uint8
			if data[idx]&bit != 0 {
				code |= 0x02
			}
			if data[planeSize+idx]&bit != 0 {
				code |= 0x01
			}
			img.SetGray(x, y, color.Gray{Y: levels2[code]})
		}
	}
	return img, nil
}

// PackPage packs one composited page into a full blob record: the
// 22-byte page header followed by the payload for the given depth.
func PackPage(img *image.Gray, depth Depth) []byte {
	b := img.Bounds()
	var payload []byte
	if depth == Depth2 {
		payload = Pack2(img)
	} else {
		payload = Pack1(img)
	}
	rec := encodePageHeader(depth.pageMagic(), b.Dx(), b.Dy(), len(payload))
	return append(rec, payload...)
}
