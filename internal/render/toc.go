package render

import (
	"image"
	"strconv"
	"strings"

	"github.com/jackzampolin/inkpress/internal/layout"
)

// RenderTOCPages draws the table of contents as full bitmap pages:
// a centered heading over a divider, then one dot-leader row per
// chapter with the display page number flush right. Pages come back
// already binarized since no later enhancement runs on them.
func RenderTOCPages(entries []layout.Entry, g layout.TOCGeometry, width, height int, faces *FaceSource) []*image.Gray {
	if len(entries) == 0 {
		return nil
	}
	const headerText = "TABLE OF CONTENTS"
	fontMain := faces.Face(g.FontSize)

	// Shrink the heading until it clears the side margins.
	headerSize := float64(int(g.FontSize * 1.2))
	fontHeader := faces.Face(headerSize)
	safeWidth := width - 30
	for headerSize > 12 {
		if textWidth(fontHeader, headerText) <= safeWidth {
			break
		}
		headerSize -= 2
		fontHeader = faces.Face(headerSize)
	}

	const (
		leftMargin  = 40
		rightMargin = 40
		columnGap   = 20
	)
	limit := g.ItemsPerPage()
	row := g.RowHeight()
	dotW := textWidth(fontMain, ".")

	var pages []*image.Gray
	for i := 0; i < len(entries); i += limit {
		chunk := entries[i:min(i+limit, len(entries))]
		img := newWhite(width, height)

		headerW := textWidth(fontHeader, headerText)
		headerY := 40 + g.TopPadding
		drawText(img, fontHeader, (width-headerW)/2, headerY, headerText)

		lineY := headerY + int(headerSize*1.5)
		hline(img, lineY, leftMargin, width-rightMargin, 0)

		y := lineY + int(g.FontSize*1.2)
		for _, e := range chunk {
			pg := strconv.Itoa(e.Page)
			pgW := textWidth(fontMain, pg)
			maxTitleW := width - leftMargin - rightMargin - pgW - columnGap
			title := e.Title
			if textWidth(fontMain, title) > maxTitleW {
				r := []rune(title)
				for len(r) > 0 && textWidth(fontMain, string(r)+"...") > maxTitleW {
					r = r[:len(r)-1]
				}
				title = string(r) + "..."
			}
			drawText(img, fontMain, leftMargin, y, title)

			titleEnd := leftMargin + textWidth(fontMain, title) + 5
			dotsEnd := width - rightMargin - pgW - 10
			if dotsEnd > titleEnd && dotW > 0 {
				drawText(img, fontMain, titleEnd, y, strings.Repeat(".", (dotsEnd-titleEnd)/dotW))
			}
			drawText(img, fontMain, width-rightMargin-pgW, y, pg)
			y += row
		}
		Threshold1(img, 127)
		pages = append(pages, img)
	}
	return pages
}
