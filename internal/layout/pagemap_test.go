package layout

import (
	"testing"
)

// The worked example: three chapters of 5, 3 and 4 pages, TOC inserted
// at page 1 with 2 TOC pages.
func workedExample() Sequence {
	return BuildSequence([]int{5, 3, 4}, 1, 2)
}

func TestSequenceWorkedExample(t *testing.T) {
	s := workedExample()

	if s.Total() != 14 {
		t.Errorf("Total = %d, want 14", s.Total())
	}
	if s.ContentPages() != 12 {
		t.Errorf("ContentPages = %d, want 12", s.ContentPages())
	}

	ranges := s.ChapterRanges()
	want := [][2]int{{2, 6}, {7, 9}, {10, 13}}
	for c := range want {
		if ranges[c] != want[c] {
			t.Errorf("chapter %d range = %v, want %v", c, ranges[c], want[c])
		}
	}

	entries := Entries([]string{"Ch1", "Ch2", "Ch3"}, s)
	wantPages := []int{3, 8, 11}
	for c, e := range entries {
		if e.Page != wantPages[c] {
			t.Errorf("entry %d display page = %d, want %d", c, e.Page, wantPages[c])
		}
	}
}

func TestSequenceRangesContiguous(t *testing.T) {
	tests := []struct {
		name       string
		counts     []int
		insertPage int
		tocCount   int
	}{
		{"toc at front", []int{5, 3, 4}, 1, 2},
		{"toc mid book", []int{5, 3, 4}, 7, 1},
		{"toc at end", []int{5, 3, 4}, 999, 3},
		{"no toc", []int{2, 2}, 1, 0},
		{"single chapter", []int{9}, 4, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := BuildSequence(tt.counts, tt.insertPage, tt.tocCount)
			ranges := s.ChapterRanges()
			for c := 1; c < len(ranges); c++ {
				if ranges[c][0] != ranges[c-1][1]+1 {
					t.Errorf("gap between chapter %d and %d: %v", c-1, c, ranges)
				}
			}
			if last := ranges[len(ranges)-1][1]; last != s.Total()-1 {
				t.Errorf("last chapter ends at %d, want %d", last, s.Total()-1)
			}
			content := 0
			for _, n := range tt.counts {
				content += n
			}
			if s.Total() != content+s.TOCPages() {
				t.Errorf("Total = %d, want content %d + toc %d", s.Total(), content, s.TOCPages())
			}
		})
	}
}

func TestSequenceAt(t *testing.T) {
	s := workedExample()

	tests := []struct {
		global  int
		kind    Kind
		ref     PageRef
		tocPage int
	}{
		{0, KindTOC, PageRef{}, 0},
		{1, KindTOC, PageRef{}, 1},
		{2, KindContent, PageRef{Doc: 0, Page: 0}, 0},
		{6, KindContent, PageRef{Doc: 0, Page: 4}, 0},
		{7, KindContent, PageRef{Doc: 1, Page: 0}, 0},
		{13, KindContent, PageRef{Doc: 2, Page: 3}, 0},
	}
	for _, tt := range tests {
		loc, err := s.At(tt.global)
		if err != nil {
			t.Fatalf("At(%d): %v", tt.global, err)
		}
		if loc.Kind != tt.kind {
			t.Errorf("At(%d).Kind = %v, want %v", tt.global, loc.Kind, tt.kind)
		}
		if loc.Kind == KindContent && loc.Ref != tt.ref {
			t.Errorf("At(%d).Ref = %+v, want %+v", tt.global, loc.Ref, tt.ref)
		}
		if loc.Kind == KindTOC && loc.TOC != tt.tocPage {
			t.Errorf("At(%d).TOC = %d, want %d", tt.global, loc.TOC, tt.tocPage)
		}
	}

	if _, err := s.At(-1); err == nil {
		t.Error("At(-1) succeeded")
	}
	if _, err := s.At(s.Total()); err == nil {
		t.Error("At(Total) succeeded")
	}
}

func TestSequenceMidBookInsertion(t *testing.T) {
	// TOC inserted at page 7 (index 6): chapter 1 keeps its raw pages,
	// chapters starting at or after the split shift by the TOC size.
	s := BuildSequence([]int{5, 3, 4}, 7, 1)

	if s.ChapterStart(0) != 0 {
		t.Errorf("chapter 0 start = %d, want 0", s.ChapterStart(0))
	}
	// Chapter 1 starts at raw 5, before index 6: unshifted.
	if s.ChapterStart(1) != 5 {
		t.Errorf("chapter 1 start = %d, want 5", s.ChapterStart(1))
	}
	// Chapter 2 starts at raw 8, after the split: shifted by 1.
	if s.ChapterStart(2) != 9 {
		t.Errorf("chapter 2 start = %d, want 9", s.ChapterStart(2))
	}

	loc, err := s.At(6)
	if err != nil || loc.Kind != KindTOC {
		t.Errorf("At(6) = %+v, %v, want the TOC page", loc, err)
	}

	entries := Entries([]string{"a", "b", "c"}, s)
	wantPages := []int{1, 6, 10}
	for c, e := range entries {
		if e.Page != wantPages[c] {
			t.Errorf("entry %d page = %d, want %d", c, e.Page, wantPages[c])
		}
	}
}

func TestSequenceInsertClamping(t *testing.T) {
	// Insertion page far past the book clamps to just after the last
	// content page; no chapter shifts.
	s := BuildSequence([]int{2, 2}, 999, 2)
	if s.TOCStart() != 4 {
		t.Errorf("TOCStart = %d, want 4", s.TOCStart())
	}
	for c := 0; c < 2; c++ {
		if s.ChapterStart(c) != c*2 {
			t.Errorf("chapter %d start = %d, want %d", c, s.ChapterStart(c), c*2)
		}
	}
	// Zero and negative insertion pages clamp to the front.
	s = BuildSequence([]int{2, 2}, 0, 1)
	if s.TOCStart() != 0 {
		t.Errorf("TOCStart = %d, want 0", s.TOCStart())
	}
}

func TestChapterOf(t *testing.T) {
	s := workedExample()
	tests := []struct {
		global, chapter, ordinal, count int
	}{
		{2, 0, 1, 5},
		{6, 0, 5, 5},
		{7, 1, 1, 3},
		{13, 2, 4, 4},
		// Leading TOC pages sit before every range and count against
		// the first chapter.
		{0, 0, 1, 5},
	}
	for _, tt := range tests {
		c, ord, n := s.ChapterOf(tt.global)
		if c != tt.chapter || ord != tt.ordinal || n != tt.count {
			t.Errorf("ChapterOf(%d) = (%d,%d,%d), want (%d,%d,%d)",
				tt.global, c, ord, n, tt.chapter, tt.ordinal, tt.count)
		}
	}
}

func TestTOCGeometry(t *testing.T) {
	g := TOCGeometry{FontSize: 20, LineHeight: 1.5, PageHeight: 760, TopPadding: 30, BottomPadding: 24}

	if got := g.RowHeight(); got != 36 {
		t.Errorf("RowHeight = %d, want 36", got)
	}
	// (760 - 100 - 30 - 24) / 36 = 16.8 -> 16 rows.
	if got := g.ItemsPerPage(); got != 16 {
		t.Errorf("ItemsPerPage = %d, want 16", got)
	}
	tests := []struct{ entries, pages int }{
		{0, 0}, {1, 1}, {16, 1}, {17, 2}, {32, 2}, {33, 3},
	}
	for _, tt := range tests {
		if got := g.Pages(tt.entries); got != tt.pages {
			t.Errorf("Pages(%d) = %d, want %d", tt.entries, got, tt.pages)
		}
	}

	// A pathologically small page still fits one row per page.
	tiny := TOCGeometry{FontSize: 40, LineHeight: 2, PageHeight: 120, TopPadding: 0}
	if got := tiny.ItemsPerPage(); got != 1 {
		t.Errorf("tiny ItemsPerPage = %d, want 1", got)
	}
}
