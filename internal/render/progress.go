package render

import "image"

// drawBarDefault draws the progress bar across the full band width.
func (o *Overlay) drawBarDefault(img *image.Gray, y, h, idx int) {
	o.drawBar(img, 10, y, o.Width-20, h, idx)
}

// drawBar draws the progress bar at an explicit position: white track
// with a black outline, one tick per chapter start, the read portion
// filled solid, and a position marker riding the fill edge.
func (o *Overlay) drawBar(img *image.Gray, x, y, w, h, idx int) {
	total := o.Seq.Total()
	if total <= 0 {
		return
	}
	p := o.Settings.Progress

	fillRect(img, x, y, x+w, y+h, 255)
	strokeRect(img, x, y, x+w, y+h, 0)

	if p.ShowTicks {
		top := int(float64(y) + float64(h)/2 - float64(p.TickHeight)/2)
		bot := int(float64(y) + float64(h)/2 + float64(p.TickHeight)/2)
		for _, e := range o.Entries {
			tx := int(float64(e.Page-1)/float64(total)*float64(w)) + x
			vline(img, tx, top, bot, 0)
		}
	}

	fillW := int(float64(idx+1) / float64(total) * float64(w))
	fillRect(img, x, y, x+fillW, y+h, 0)

	if p.ShowMarker {
		cx := x + fillW
		cy := int(float64(y) + float64(h)/2)
		var markFill uint8
		if p.MarkerColor == "white" {
			markFill = 255
		}
		fillEllipse(img, cx, cy, p.MarkerRadius, markFill, 0)
	}
}
