package render

import (
	"image"

	"github.com/jackzampolin/inkpress/internal/annotate"
	"github.com/jackzampolin/inkpress/internal/layout"
)

// drawAnnotations writes each assigned gloss in small type just above
// its source word, centered on the word and clamped to the screen
// edges and the top padding band.
func drawAnnotations(img *image.Gray, words []layout.Word, table annotate.PageTable, faces *FaceSource, bodyFontSize int, sx, sy float64, pasteX, pasteY, topPad int) {
	if len(table) == 0 {
		return
	}
	size := max(9, int(float64(bodyFontSize)*0.65))
	f := faces.Face(float64(size))
	width := img.Bounds().Dx()

	for _, w := range words {
		def, ok := table[annotate.Key(w.Box.X0, w.Box.Y0)]
		if !ok {
			continue
		}
		pxX := w.Box.X0 * sx
		pxY := w.Box.Y0 * sy
		pxW := (w.Box.X1 - w.Box.X0) * sx
		textLen := textWidth(f, def)

		drawX := float64(pasteX) + pxX + (pxW-float64(textLen))/2
		if limit := float64(width - textLen - 2); drawX > limit {
			drawX = limit
		}
		if drawX < 2 {
			drawX = 2
		}
		drawY := float64(pasteY) + pxY - float64(size) + 2
		if drawY < float64(topPad) {
			drawY = float64(topPad)
		}
		drawText(img, f, int(drawX), int(drawY), def)
	}
}
