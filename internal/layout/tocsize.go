package layout

// Header space above the first TOC row: a fixed band for the heading
// and divider, plus the page's top padding.
const tocHeaderSpace = 100

// TOCGeometry sizes the table of contents. The result depends only on
// the entry count and configured type metrics — never on final page
// numbers — so it is computed once, before numbers are adjusted.
type TOCGeometry struct {
	// FontSize is the row text size in pixels.
	FontSize float64
	// LineHeight is the configured line-height multiplier.
	LineHeight float64
	// PageHeight is the content canvas height in pixels.
	PageHeight int
	// TopPadding is the page's top padding in pixels.
	TopPadding int
	// BottomPadding is the page's bottom padding in pixels.
	BottomPadding int
}

// RowHeight returns the vertical space one entry consumes, in whole
// pixels. Capacity and drawing both use this truncated value so a
// page never overflows what the count promised.
func (g TOCGeometry) RowHeight() int {
	return int(g.FontSize * g.LineHeight * 1.2)
}

// ItemsPerPage returns how many entries fit on one TOC page, never
// less than one.
func (g TOCGeometry) ItemsPerPage() int {
	avail := g.PageHeight - tocHeaderSpace - g.TopPadding - g.BottomPadding
	row := g.RowHeight()
	if row <= 0 || avail < row {
		return 1
	}
	return avail / row
}

// Pages returns the TOC page count for the given entry count.
func (g TOCGeometry) Pages(entries int) int {
	if entries <= 0 {
		return 0
	}
	per := g.ItemsPerPage()
	return (entries + per - 1) / per
}
