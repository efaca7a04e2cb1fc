package xtc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"strings"
	"testing"
	"time"
)

// fakeSource serializes a fixed set of pre-quantized pages.
type fakeSource struct {
	meta     Metadata
	chapters []Chapter
	pages    []*image.Gray
	depth    Depth
	failAt   int // page index that errors, -1 for none
	rendered []int
}

func (s *fakeSource) Metadata() Metadata   { return s.meta }
func (s *fakeSource) Chapters() []Chapter  { return s.chapters }
func (s *fakeSource) PageCount() int       { return len(s.pages) }
func (s *fakeSource) Depth() Depth         { return s.depth }
func (s *fakeSource) Page(i int) (*image.Gray, error) {
	if i == s.failAt {
		return nil, fmt.Errorf("page %d exploded", i)
	}
	s.rendered = append(s.rendered, i)
	return s.pages[i], nil
}

func newFakeSource(depth Depth, sizes ...image.Point) *fakeSource {
	levels := []uint8{0, 255}
	if depth == Depth2 {
		levels = []uint8{255, 170, 85, 0}
	}
	s := &fakeSource{
		meta: Metadata{
			Title:    "A Test Book",
			Author:   "N. Body",
			Language: "en",
			Created:  time.Unix(1700000000, 0),
		},
		depth:  depth,
		failAt: -1,
	}
	for _, sz := range sizes {
		s.pages = append(s.pages, quantGray(sz.X, sz.Y, levels))
	}
	return s
}

func TestWriteOffsetChain(t *testing.T) {
	src := newFakeSource(Depth1,
		image.Pt(24, 40), image.Pt(24, 40), image.Pt(24, 40),
		image.Pt(24, 40), image.Pt(24, 40))
	src.chapters = []Chapter{
		{Name: "One", Start: 0, End: 2},
		{Name: "Two", Start: 3, End: 4},
	}

	var buf bytes.Buffer
	if err := Write(&buf, src, WriteOptions{}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	f, err := Decode(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	h := f.Header
	if h.MetadataOffset != HeaderSize {
		t.Errorf("metadata offset = %d, want %d", h.MetadataOffset, HeaderSize)
	}
	if h.ChapterOffset != h.MetadataOffset+MetadataSize {
		t.Errorf("chapter offset = %d, want %d", h.ChapterOffset, h.MetadataOffset+MetadataSize)
	}
	if want := h.ChapterOffset + 2*ChapterRecordSize; h.IndexOffset != want {
		t.Errorf("index offset = %d, want %d", h.IndexOffset, want)
	}
	if want := h.IndexOffset + 5*IndexEntrySize; h.DataOffset != want {
		t.Errorf("blob offset = %d, want %d", h.DataOffset, want)
	}

	// Every index entry's offset is the blob offset plus the cumulative
	// size of the records before it.
	cum := h.DataOffset
	for i, e := range f.Index {
		if e.Offset != cum {
			t.Errorf("page %d offset = %d, want %d", i, e.Offset, cum)
		}
		if e.Width != 24 || e.Height != 40 {
			t.Errorf("page %d dims = %dx%d, want 24x40", i, e.Width, e.Height)
		}
		cum += uint64(e.Length)
	}
	if int64(cum) != int64(buf.Len()) {
		t.Errorf("blob ends at %d, file is %d bytes", cum, buf.Len())
	}

	if f.Metadata.Title != "A Test Book" || f.Metadata.Author != "N. Body" {
		t.Errorf("metadata round trip = %+v", f.Metadata)
	}
	if f.Metadata.Created.Unix() != 1700000000 {
		t.Errorf("created = %v, want unix 1700000000", f.Metadata.Created)
	}
	if len(f.Chapters) != 2 || f.Chapters[0].End+1 != f.Chapters[1].Start {
		t.Errorf("chapter table not contiguous: %+v", f.Chapters)
	}
	if f.Chapters[len(f.Chapters)-1].End != uint16(f.PageCount()-1) {
		t.Errorf("last chapter ends at %d, want %d", f.Chapters[1].End, f.PageCount()-1)
	}
}

func TestWriteMetadataTruncation(t *testing.T) {
	src := newFakeSource(Depth1, image.Pt(8, 8))
	src.meta.Title = strings.Repeat("T", 200)
	src.meta.Author = strings.Repeat("a", 70)
	src.meta.Language = "en-US-x-private-long"
	src.chapters = []Chapter{{Name: strings.Repeat("c", 120), Start: 0, End: 0}}

	var buf bytes.Buffer
	if err := Write(&buf, src, WriteOptions{}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	f, err := Decode(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(f.Metadata.Title) != 127 {
		t.Errorf("title length = %d, want 127", len(f.Metadata.Title))
	}
	if len(f.Metadata.Author) != 63 {
		t.Errorf("author length = %d, want 63", len(f.Metadata.Author))
	}
	if len(f.Metadata.Language) != 15 {
		t.Errorf("language length = %d, want 15", len(f.Metadata.Language))
	}
	if len(f.Chapters[0].Name) != 79 {
		t.Errorf("chapter name length = %d, want 79", len(f.Chapters[0].Name))
	}
}

func TestWritePageRoundTrip(t *testing.T) {
	for _, depth := range []Depth{Depth1, Depth2} {
		t.Run(fmt.Sprintf("depth%d", depth), func(t *testing.T) {
			src := newFakeSource(depth, image.Pt(13, 21), image.Pt(13, 21))
			src.chapters = []Chapter{{Name: "Only", Start: 0, End: 1}}
			var buf bytes.Buffer
			if err := Write(&buf, src, WriteOptions{}); err != nil {
				t.Fatalf("Write: %v", err)
			}
			f, err := Decode(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			for i := range src.pages {
				d, err := f.PageDepth(i)
				if err != nil {
					t.Fatalf("PageDepth(%d): %v", i, err)
				}
				if d != depth {
					t.Errorf("page %d depth = %d, want %d", i, d, depth)
				}
				got, err := f.DecodePage(i)
				if err != nil {
					t.Fatalf("DecodePage(%d): %v", i, err)
				}
				if !sameGray(src.pages[i], got) {
					t.Errorf("page %d round trip mismatch", i)
				}
			}
		})
	}
}

func TestWriteProgress(t *testing.T) {
	src := newFakeSource(Depth1,
		image.Pt(8, 8), image.Pt(8, 8), image.Pt(8, 8), image.Pt(8, 8))
	src.chapters = []Chapter{{Name: "c", Start: 0, End: 3}}

	var calls []int
	var buf bytes.Buffer
	err := Write(&buf, src, WriteOptions{Progress: func(done, total int) {
		if total != 4 {
			t.Errorf("progress total = %d, want 4", total)
		}
		calls = append(calls, done)
	}})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	for i := 1; i < len(calls); i++ {
		if calls[i] <= calls[i-1] {
			t.Fatalf("progress not monotonic: %v", calls)
		}
	}
	if len(calls) == 0 || calls[len(calls)-1] != 4 {
		t.Errorf("progress calls = %v, want final 4", calls)
	}
}

func TestWritePageFailureAborts(t *testing.T) {
	src := newFakeSource(Depth1, image.Pt(8, 8), image.Pt(8, 8), image.Pt(8, 8))
	src.chapters = []Chapter{{Name: "c", Start: 0, End: 2}}
	src.failAt = 1

	var buf bytes.Buffer
	err := Write(&buf, src, WriteOptions{})
	if err == nil {
		t.Fatal("Write succeeded despite page failure")
	}
	if !strings.Contains(err.Error(), "page 1") {
		t.Errorf("error %q does not name the failing page", err)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrTruncated},
		{"bad magic", append([]byte("NOPE"), make([]byte, HeaderSize)...), ErrNotXTC},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(bytes.NewReader(tt.data), int64(len(tt.data)))
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecodeRejectsTruncatedBlob(t *testing.T) {
	src := newFakeSource(Depth1, image.Pt(16, 16))
	src.chapters = []Chapter{{Name: "c", Start: 0, End: 0}}
	var buf bytes.Buffer
	if err := Write(&buf, src, WriteOptions{}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	cut := buf.Bytes()[:buf.Len()-10]
	if _, err := Decode(bytes.NewReader(cut), int64(len(cut))); !errors.Is(err, ErrCorrupt) {
		t.Errorf("Decode of truncated blob = %v, want %v", err, ErrCorrupt)
	}
}
