package xtc

import (
	"fmt"
	"image"
	"io"
	"os"
)

// File is a decoded container. Page payloads are read lazily; the
// header, metadata, chapter table, and page index are validated up
// front, including the offset chain.
type File struct {
	Header   Header
	Metadata Metadata
	Chapters []Chapter
	Index    []IndexEntry

	r io.ReaderAt
}

// Open reads and validates the container at path. The returned File
// keeps the underlying file open for page decoding; Close it.
func Open(path string) (*File, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open container: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat container: %w", err)
	}
	xf, err := Decode(f, st.Size())
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return xf, f, nil
}

// Decode parses a container from r, which must cover size bytes.
func Decode(r io.ReaderAt, size int64) (*File, error) {
	buf := make([]byte, HeaderSize)
	if _, err := r.ReadAt(buf, 0); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	hdr, err := decodeHeader(buf)
	if err != nil {
		return nil, err
	}
	if err := checkOffsets(hdr, size); err != nil {
		return nil, err
	}

	f := &File{Header: hdr, r: r}

	buf = make([]byte, MetadataSize)
	if _, err := r.ReadAt(buf, int64(hdr.MetadataOffset)); err != nil {
		return nil, fmt.Errorf("metadata: %w", ErrTruncated)
	}
	meta, chapterCount, err := decodeMetadata(buf)
	if err != nil {
		return nil, err
	}
	f.Metadata = meta

	f.Chapters = make([]Chapter, chapterCount)
	buf = make([]byte, ChapterRecordSize)
	for i := range f.Chapters {
		off := int64(hdr.ChapterOffset) + int64(i)*ChapterRecordSize
		if _, err := r.ReadAt(buf, off); err != nil {
			return nil, fmt.Errorf("chapter %d: %w", i, ErrTruncated)
		}
		if f.Chapters[i], err = decodeChapter(buf); err != nil {
			return nil, err
		}
	}

	f.Index = make([]IndexEntry, hdr.TotalPages)
	buf = make([]byte, IndexEntrySize)
	for i := range f.Index {
		off := int64(hdr.IndexOffset) + int64(i)*IndexEntrySize
		if _, err := r.ReadAt(buf, off); err != nil {
			return nil, fmt.Errorf("index entry %d: %w", i, ErrTruncated)
		}
		if f.Index[i], err = decodeIndexEntry(buf); err != nil {
			return nil, err
		}
		if int64(f.Index[i].Offset)+int64(f.Index[i].Length) > size {
			return nil, fmt.Errorf("%w: page %d record ends past file", ErrCorrupt, i)
		}
	}
	return f, nil
}

// checkOffsets verifies each region offset equals the cumulative size
// of the regions before it.
func checkOffsets(h Header, size int64) error {
	if h.MetadataOffset != HeaderSize {
		return fmt.Errorf("%w: metadata offset %d", ErrCorrupt, h.MetadataOffset)
	}
	if h.ChapterOffset != h.MetadataOffset+MetadataSize {
		return fmt.Errorf("%w: chapter offset %d", ErrCorrupt, h.ChapterOffset)
	}
	if h.IndexOffset < h.ChapterOffset || (h.IndexOffset-h.ChapterOffset)%ChapterRecordSize != 0 {
		return fmt.Errorf("%w: index offset %d", ErrCorrupt, h.IndexOffset)
	}
	if h.DataOffset != h.IndexOffset+uint64(h.TotalPages)*IndexEntrySize {
		return fmt.Errorf("%w: blob offset %d", ErrCorrupt, h.DataOffset)
	}
	if int64(h.DataOffset) > size {
		return fmt.Errorf("blob: %w", ErrTruncated)
	}
	return nil
}

// PageCount returns the number of pages in the container.
func (f *File) PageCount() int {
	return len(f.Index)
}

// PageDepth reports the bit depth of page i from its record magic.
func (f *File) PageDepth(i int) (Depth, error) {
	ph, err := f.pageHeader(i)
	if err != nil {
		return 0, err
	}
	if ph.magic == PageMagic2 {
		return Depth2, nil
	}
	return Depth1, nil
}

// DecodePage unpacks page i back into a grayscale image.
func (f *File) DecodePage(i int) (*image.Gray, error) {
	ph, err := f.pageHeader(i)
	if err != nil {
		return nil, err
	}
	e := f.Index[i]
	if uint32(PageHeaderSize+ph.payload) > e.Length {
		return nil, fmt.Errorf("%w: page %d payload exceeds record", ErrCorrupt, i)
	}
	payload := make([]byte, ph.payload)
	if _, err := f.r.ReadAt(payload, int64(e.Offset)+PageHeaderSize); err != nil {
		return nil, fmt.Errorf("page %d payload: %w", i, ErrTruncated)
	}
	if ph.magic == PageMagic2 {
		return Unpack2(payload, ph.width, ph.height)
	}
	return Unpack1(payload, ph.width, ph.height)
}

func (f *File) pageHeader(i int) (pageHeader, error) {
	if i < 0 || i >= len(f.Index) {
		return pageHeader{}, fmt.Errorf("%w: %d of %d", ErrPageRange, i, len(f.Index))
	}
	buf := make([]byte, PageHeaderSize)
	if _, err := f.r.ReadAt(buf, int64(f.Index[i].Offset)); err != nil {
		return pageHeader{}, fmt.Errorf("page %d header: %w", i, ErrTruncated)
	}
	return decodePageHeader(buf)
}
