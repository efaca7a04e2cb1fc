package layout

import "fmt"

// PageRef locates a content page: the chapter document index and the
// page index within that chapter.
type PageRef struct {
	Doc  int
	Page int
}

// Kind distinguishes the two page sources in the final order.
type Kind int

const (
	// KindContent is a laid-out chapter page.
	KindContent Kind = iota
	// KindTOC is a generated table-of-contents page.
	KindTOC
)

// Located is the resolution of one global page index.
type Located struct {
	Kind Kind
	// Ref identifies the content page when Kind is KindContent.
	Ref PageRef
	// TOC is the zero-based TOC page ordinal when Kind is KindTOC.
	TOC int
}

// Sequence is the final page order: the flat list of content pages with
// the TOC block spliced in at a fixed index. A page's position here is
// its global index — the single cross-reference key shared by the
// chapter table, progress bar, packer, and annotation lookup. Built
// once per render and immutable thereafter.
type Sequence struct {
	refs     []PageRef
	counts   []int
	starts   []int // raw start index per chapter, before TOC insertion
	tocStart int
	tocCount int
}

// BuildSequence flattens per-chapter page counts into the global order.
// insertPage is the 1-based page the TOC should appear at; it is
// clamped so the TOC block always lands inside [0, contentPages].
func BuildSequence(counts []int, insertPage, tocCount int) Sequence {
	s := Sequence{
		counts:   append([]int(nil), counts...),
		starts:   make([]int, len(counts)),
		tocCount: tocCount,
	}
	total := 0
	for i, n := range counts {
		s.starts[i] = total
		for p := 0; p < n; p++ {
			s.refs = append(s.refs, PageRef{Doc: i, Page: p})
		}
		total += n
	}
	idx := insertPage - 1
	if idx < 0 {
		idx = 0
	}
	if idx > total {
		idx = total
	}
	if tocCount <= 0 {
		s.tocCount = 0
	}
	s.tocStart = idx
	return s
}

// ContentPages returns the number of chapter pages.
func (s Sequence) ContentPages() int { return len(s.refs) }

// TOCPages returns the number of generated TOC pages.
func (s Sequence) TOCPages() int { return s.tocCount }

// TOCStart returns the global index of the first TOC page. Meaningless
// when TOCPages is zero.
func (s Sequence) TOCStart() int { return s.tocStart }

// Total returns the global page count: content plus TOC.
func (s Sequence) Total() int { return len(s.refs) + s.tocCount }

// At resolves a global page index to its source.
func (s Sequence) At(i int) (Located, error) {
	if i < 0 || i >= s.Total() {
		return Located{}, fmt.Errorf("page index %d out of range [0,%d)", i, s.Total())
	}
	if s.tocCount > 0 && i >= s.tocStart && i < s.tocStart+s.tocCount {
		return Located{Kind: KindTOC, TOC: i - s.tocStart}, nil
	}
	ci := i
	if s.tocCount > 0 && i >= s.tocStart {
		ci = i - s.tocCount
	}
	return Located{Kind: KindContent, Ref: s.refs[ci]}, nil
}

// RawStarts returns each chapter's start index in the flat content
// list, before the TOC block shifts anything. These feed TOC sizing,
// which must not depend on final page numbers.
func (s Sequence) RawStarts() []int {
	return append([]int(nil), s.starts...)
}

// ChapterStart returns chapter c's global start index in the final
// order: its raw start, shifted by the TOC block when that precedes it.
func (s Sequence) ChapterStart(c int) int {
	start := s.starts[c]
	if s.tocCount > 0 && start >= s.tocStart {
		start += s.tocCount
	}
	return start
}

// ChapterRanges returns 0-based inclusive [start, end] global ranges
// per chapter: each end is the next chapter's start minus one, and the
// last chapter ends on the final page.
func (s Sequence) ChapterRanges() [][2]int {
	out := make([][2]int, len(s.counts))
	for c := range s.counts {
		out[c][0] = s.ChapterStart(c)
		if c+1 < len(s.counts) {
			out[c][1] = s.ChapterStart(c+1) - 1
		} else {
			out[c][1] = s.Total() - 1
		}
	}
	return out
}

// ChapterOf returns the chapter owning global page i and the 1-based
// page ordinal within it, for the "page in chapter" overlay slot. TOC
// pages report the chapter whose range absorbed them.
func (s Sequence) ChapterOf(i int) (chapter, ordinal, count int) {
	ranges := s.ChapterRanges()
	for c, r := range ranges {
		if i >= r[0] && i <= r[1] {
			return c, i - r[0] + 1, r[1] - r[0] + 1
		}
	}
	if len(ranges) == 0 {
		return 0, i + 1, s.Total()
	}
	// Pages before the first chapter (a leading TOC block) count
	// against that chapter.
	return 0, 1, ranges[0][1] - ranges[0][0] + 1
}

// Entry is one table-of-contents row.
type Entry struct {
	Title string
	// Page is the 1-based page number shown to the reader.
	Page int
}

// Entries computes the displayed page number per chapter in one final
// pass: raw start plus one, shifted by the TOC's own page count when
// the chapter starts at or after the insertion index.
func Entries(titles []string, s Sequence) []Entry {
	out := make([]Entry, len(titles))
	for c, title := range titles {
		page := s.starts[c] + 1
		if s.tocCount > 0 && s.starts[c] >= s.tocStart {
			page += s.tocCount
		}
		out[c] = Entry{Title: title, Page: page}
	}
	return out
}
