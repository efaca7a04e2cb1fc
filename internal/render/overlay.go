package render

import (
	"fmt"
	"image"
	"sort"
	"strings"

	"golang.org/x/image/font"

	"github.com/jackzampolin/inkpress/internal/config"
	"github.com/jackzampolin/inkpress/internal/layout"
)

// Overlay draws the header and footer bands: text slots laid out with
// reserved widths so positions never jitter as page numbers change
// digit counts, plus the progress bar in its configured position.
type Overlay struct {
	Settings config.Settings
	// Width and Height are the composition canvas in pixels.
	Width  int
	Height int
	Faces  *FaceSource
	Seq    layout.Sequence
	// Entries carry the displayed start page per chapter, for titles
	// and progress ticks.
	Entries []layout.Entry
	// DocPages is the page count per chapter document.
	DocPages []int
}

// PageText is the formatted slot content for one page.
type PageText struct {
	PageNum  string
	Title    string
	ChapPage string
	Percent  string
}

const (
	slotTitle    = "title"
	slotPageNum  = "pagenum"
	slotChapPage = "chap_page"
	slotPercent  = "percent"
	slotProgress = "progress"
)

// PageText formats the slot content for a global page index.
func (o *Overlay) PageText(idx int) PageText {
	total := o.Seq.Total()
	disp := idx + 1
	txt := PageText{
		PageNum: fmt.Sprintf("%d/%d", disp, total),
		Percent: fmt.Sprintf("%d%%", int(float64(disp)/float64(total)*100)),
	}
	loc, err := o.Seq.At(idx)
	if err != nil {
		txt.ChapPage = "1/1"
		return txt
	}
	if loc.Kind == layout.KindTOC {
		txt.Title = "Table of Contents"
		txt.ChapPage = fmt.Sprintf("%d/%d", loc.TOC+1, o.Seq.TOCPages())
		return txt
	}
	for i := len(o.Entries) - 1; i >= 0; i-- {
		if disp >= o.Entries[i].Page {
			txt.Title = o.Entries[i].Title
			break
		}
	}
	if loc.Ref.Doc < len(o.DocPages) {
		txt.ChapPage = fmt.Sprintf("%d/%d", loc.Ref.Page+1, o.DocPages[loc.Ref.Doc])
	} else {
		txt.ChapPage = "1/1"
	}
	return txt
}

// element is one laid-out slot: its measured width and the width its
// position actually reserves.
type element struct {
	key      string
	text     string
	width    int
	reserved int
}

// activeElements returns the slots assigned to one band, in configured
// order. Slots with empty content drop out; the inline progress bar
// joins as a pseudo-slot.
func (o *Overlay) activeElements(role string, txt PageText) []element {
	s := o.Settings
	type cand struct {
		order int
		el    element
	}
	slots := []struct {
		key  string
		slot config.Slot
		text string
	}{
		{slotTitle, s.Slots.Title, txt.Title},
		{slotPageNum, s.Slots.PageNumber, txt.PageNum},
		{slotChapPage, s.Slots.ChapterPage, txt.ChapPage},
		{slotPercent, s.Slots.Percent, txt.Percent},
	}
	var active []cand
	for _, sl := range slots {
		if sl.slot.Position != role || sl.text == "" {
			continue
		}
		active = append(active, cand{sl.slot.Order, element{key: sl.key, text: sl.text}})
	}
	inline := config.ProgressHeaderInline
	if role == config.SlotFooter {
		inline = config.ProgressFooterInline
	}
	if s.Progress.Position == inline {
		active = append(active, cand{s.Progress.Order, element{key: slotProgress}})
	}
	sort.SliceStable(active, func(i, j int) bool { return active[i].order < active[j].order })
	out := make([]element, len(active))
	for i, c := range active {
		out[i] = c.el
	}
	return out
}

// Draw renders both bands onto the canvas.
func (o *Overlay) Draw(img *image.Gray, idx int) {
	txt := o.PageText(idx)
	o.drawHeader(img, idx, txt)
	o.drawFooter(img, idx, txt)
}

func (o *Overlay) drawHeader(img *image.Gray, idx int, txt PageText) {
	s := o.Settings
	elems := o.activeElements(config.SlotHeader, txt)
	hasBar, barAbove := false, true
	switch s.Progress.Position {
	case config.ProgressHeaderAbove:
		hasBar = true
	case config.ProgressHeaderBelow:
		hasBar, barAbove = true, false
	}
	if len(elems) == 0 && !hasBar {
		return
	}
	const gap = 6
	face := o.Faces.Face(float64(s.Header.FontSize))
	y := s.Header.Margin
	if hasBar && barAbove {
		o.drawBarDefault(img, y, s.Progress.Height, idx)
		y += s.Progress.Height + gap
	}
	if len(elems) > 0 {
		o.drawLine(img, y, face, elems, s.Header.Align, idx)
		y += s.Header.FontSize + gap
	}
	if hasBar && !barAbove {
		o.drawBarDefault(img, y, s.Progress.Height, idx)
	}
}

func (o *Overlay) drawFooter(img *image.Gray, idx int, txt PageText) {
	s := o.Settings
	elems := o.activeElements(config.SlotFooter, txt)
	hasBar, barAbove := false, true
	switch s.Progress.Position {
	case config.ProgressFooterAbove:
		hasBar = true
	case config.ProgressFooterBelow:
		hasBar, barAbove = true, false
	}
	hasText := len(elems) > 0
	if !hasText && !hasBar {
		return
	}
	const gap = 6
	face := o.Faces.Face(float64(s.Footer.FontSize))
	anchor := o.Height - s.Footer.Margin
	var textY, barY int
	switch {
	case hasBar && hasText && barAbove:
		textY = anchor - s.Footer.FontSize
		barY = textY - gap - s.Progress.Height
	case hasBar && hasText:
		barY = anchor - s.Progress.Height
		textY = barY - gap - s.Footer.FontSize
	case hasText:
		textY = anchor - s.Footer.FontSize
	default:
		barY = anchor - s.Progress.Height
	}
	if hasBar {
		o.drawBarDefault(img, barY, s.Progress.Height, idx)
	}
	if hasText {
		o.drawLine(img, textY, face, elems, s.Footer.Align, idx)
	}
}

// reservedWidth gives a slot the widest content its class can show, so
// a digit rolling over never shifts its neighbors.
func reservedWidth(f font.Face, key, text string, total int) int {
	real := textWidth(f, text)
	switch key {
	case slotPageNum:
		digits := len(fmt.Sprint(total))
		widest := strings.Repeat("8", digits) + "/" + strings.Repeat("8", digits)
		if w := textWidth(f, widest); w > real {
			return w
		}
	case slotPercent:
		if w := textWidth(f, "100%"); w > real {
			return w
		}
	case slotChapPage:
		if _, totalPart, ok := strings.Cut(text, "/"); ok {
			widest := strings.Repeat("8", len(totalPart)) + "/" + strings.Repeat("8", len(totalPart))
			if w := textWidth(f, widest); w > real {
				return w
			}
		}
	}
	return real
}

// drawLine lays the band's elements along one text row. With an inline
// progress bar the bar absorbs leftover width under Justify; otherwise
// the block is pinned edge-to-edge (Justify) or placed as one run.
func (o *Overlay) drawLine(img *image.Gray, y int, f font.Face, elems []element, align string, idx int) {
	if len(elems) == 0 {
		return
	}
	s := o.Settings
	sep := s.UI.Separator
	margin := s.UI.SideMargin
	barH := s.Progress.Height
	total := o.Seq.Total()

	items := make([]element, len(elems))
	hasProg := false
	for i, el := range elems {
		if el.key == slotProgress {
			items[i] = el
			hasProg = true
			continue
		}
		el.width = textWidth(f, el.text)
		el.reserved = reservedWidth(f, el.key, el.text, total)
		items[i] = el
	}
	sepW := textWidth(f, sep)

	if hasProg {
		o.drawInlineLine(img, y, f, items, align, idx, sep, sepW, margin, barH)
		return
	}

	nonTitle := 0
	for _, el := range items {
		if el.key != slotTitle {
			nonTitle += el.reserved
		}
	}
	totalSep := 0
	if len(items) > 1 {
		totalSep = sepW * (len(items) - 1)
	}
	contentMax := o.Width - 2*margin

	if align == config.AlignJustify && len(items) > 1 {
		o.drawJustifiedLine(img, y, f, items, sep, sepW, margin, contentMax)
		return
	}

	avail := contentMax - nonTitle - totalSep
	for i := range items {
		if items[i].key == slotTitle {
			items[i].text = truncateToFit(f, items[i].text, avail)
			items[i].width = textWidth(f, items[i].text)
			items[i].reserved = items[i].width
		}
	}
	blockW := totalSep
	for _, el := range items {
		blockW += el.reserved
	}
	x := margin
	switch align {
	case config.AlignCenter:
		x = (o.Width - blockW) / 2
	case config.AlignRight:
		x = o.Width - margin - blockW
	}
	if x < margin {
		x = margin
	}
	for i, el := range items {
		drawText(img, f, x+(el.reserved-el.width)/2, y, el.text)
		x += el.reserved
		if i < len(items)-1 {
			drawText(img, f, x, y, sep)
			x += sepW
		}
	}
}

// drawJustifiedLine pins the first element at the left margin, the
// last flush right, and centers the middle run between them.
func (o *Overlay) drawJustifiedLine(img *image.Gray, y int, f font.Face, items []element, sep string, sepW, margin, contentMax int) {
	left := &items[0]
	right := &items[len(items)-1]
	var mids []*element
	for i := 1; i < len(items)-1; i++ {
		mids = append(mids, &items[i])
	}

	const gap = 20
	wLeft, wRight := 0, 0
	if left.key != slotTitle {
		wLeft = left.reserved
	}
	if right.key != slotTitle {
		wRight = right.reserved
	}
	midStatic, midSep := 0, 0
	for _, m := range mids {
		if m.key != slotTitle {
			midStatic += m.reserved
		}
	}
	if len(mids) > 1 {
		midSep = sepW * (len(mids) - 1)
	}

	fit := func(el *element, avail int) {
		el.text = truncateToFit(f, el.text, avail)
		el.width = textWidth(f, el.text)
		el.reserved = el.width
	}
	switch {
	case left.key == slotTitle:
		avail := contentMax - wRight - gap
		if len(mids) > 0 {
			avail -= midStatic + midSep + gap
		}
		fit(left, avail)
	case right.key == slotTitle:
		avail := contentMax - wLeft - gap
		if len(mids) > 0 {
			avail -= midStatic + midSep + gap
		}
		fit(right, avail)
	default:
		for _, m := range mids {
			if m.key == slotTitle {
				fit(m, contentMax-wLeft-wRight-2*gap-midStatic-midSep)
			}
		}
	}

	drawText(img, f, margin, y, left.text)

	slotR := o.Width - margin - right.reserved
	drawText(img, f, slotR+(right.reserved-right.width), y, right.text)

	if len(mids) == 0 {
		return
	}
	blockW := midSep
	for _, m := range mids {
		blockW += m.reserved
	}
	x := (o.Width - blockW) / 2
	minX := margin + left.reserved + gap
	maxX := o.Width - margin - right.reserved - gap - blockW
	if x < minX {
		x = minX
	}
	if x > maxX {
		x = maxX
	}
	if maxX < minX {
		return
	}
	for i, m := range mids {
		drawText(img, f, x+(m.reserved-m.width)/2, y, m.text)
		x += m.reserved
		if i < len(mids)-1 {
			drawText(img, f, x, y, sep)
			x += sepW
		}
	}
}

// drawInlineLine lays out a band that embeds the progress bar between
// text slots. Under Justify the bar stretches to absorb whatever the
// text leaves over; otherwise it gets a fixed share of the width.
func (o *Overlay) drawInlineLine(img *image.Gray, y int, f font.Face, items []element, align string, idx int, sep string, sepW, margin, barH int) {
	nonTitle := 0
	for _, el := range items {
		if el.key != slotProgress && el.key != slotTitle {
			nonTitle += el.reserved
		}
	}
	totalSep := sepW * (len(items) - 1)

	// Justify reserves a quarter of the screen for the bar while the
	// title is measured; other alignments give the bar a fixed 30%.
	var availTitle int
	if align == config.AlignJustify {
		availTitle = o.Width - 2*margin - nonTitle - totalSep - int(0.25*float64(o.Width))
	} else {
		availTitle = o.Width - 2*margin - nonTitle - totalSep - int(0.3*float64(o.Width))
	}
	for i := range items {
		if items[i].key == slotTitle {
			items[i].text = truncateToFit(f, items[i].text, availTitle)
			items[i].width = textWidth(f, items[i].text)
			items[i].reserved = items[i].width
		}
	}

	textW := 0
	for _, el := range items {
		if el.key != slotProgress {
			textW += el.reserved
		}
	}
	var barW int
	if align == config.AlignJustify {
		barW = o.Width - 2*margin - textW - totalSep
		if barW < 10 {
			barW = 10
		}
	} else {
		barW = int(0.3 * float64(o.Width))
		if avail := o.Width - 2*margin - textW - totalSep; barW > avail {
			barW = avail
			if barW < 10 {
				barW = 10
			}
		}
	}

	contentW := textW + barW + totalSep
	x := margin
	switch align {
	case config.AlignCenter:
		x = (o.Width - contentW) / 2
	case config.AlignRight:
		x = o.Width - margin - contentW
	}
	if x < margin {
		x = margin
	}

	ascent, descent := faceMetrics(f)
	barY := y + (ascent+descent-barH)/2

	for i, el := range items {
		if el.key == slotProgress {
			o.drawBar(img, x, barY, barW, barH, idx)
			x += barW
		} else {
			drawText(img, f, x+(el.reserved-el.width)/2, y, el.text)
			x += el.reserved
		}
		if i < len(items)-1 {
			if strings.TrimSpace(sep) != "" {
				drawText(img, f, x, y, sep)
			}
			x += sepW
		}
	}
}
