// Package xtc encodes and decodes the XTC container: a paginated,
// pre-rendered bitmap book for e-ink readers. A container is five
// regions in fixed order — 56-byte header, 256-byte metadata block,
// 96-byte chapter records, 16-byte page-index entries, and the page
// blob. All integers are little-endian; every offset in the header is
// the cumulative size of the regions before it.
package xtc

import (
	"encoding/binary"
	"fmt"
	"time"
)

const (
	// Magic identifies an XTC container ("XTC\0" little-endian).
	Magic = 0x00435458
	// Version is the container revision this package writes.
	Version = 0x0100

	// PageMagic1 prefixes a 1-bit page record ("XTG\0").
	PageMagic1 = 0x00475458
	// PageMagic2 prefixes a 2-bit page record ("XTH\0").
	PageMagic2 = 0x00485458

	// HeaderSize is the fixed container header length.
	HeaderSize = 56
	// MetadataSize is the fixed metadata block length.
	MetadataSize = 256
	// ChapterRecordSize is the per-chapter record length.
	ChapterRecordSize = 96
	// IndexEntrySize is the per-page index entry length.
	IndexEntrySize = 16
	// PageHeaderSize is the fixed header prefixing every blob record.
	PageHeaderSize = 22
)

// Field widths inside the metadata block and chapter records. Strings
// are NUL-padded and always keep at least one terminating NUL, so the
// usable capacity is one byte less than the field.
const (
	titleField     = 128
	authorField    = 64
	publisherField = 32
	languageField  = 16
	chapterField   = 80
)

// Depth selects the per-pixel bit depth of page payloads.
type Depth uint8

const (
	// Depth1 packs two-level pages, eight pixels per byte.
	Depth1 Depth = 1
	// Depth2 packs four-level pages as two column-reversed bit-planes.
	Depth2 Depth = 2
)

func (d Depth) pageMagic() uint32 {
	if d == Depth2 {
		return PageMagic2
	}
	return PageMagic1
}

// Valid reports whether d is a depth this package can pack.
func (d Depth) Valid() bool {
	return d == Depth1 || d == Depth2
}

// Metadata is the 256-byte book description block.
type Metadata struct {
	Title     string
	Author    string
	Publisher string
	Language  string
	Created   time.Time
	// CoverPage is the global index of the page shown as the book cover,
	// or zero when the book has none.
	CoverPage uint16
}

// Chapter is one 96-byte chapter-table record. Start and End are
// 0-based global page indices, inclusive on both ends.
type Chapter struct {
	Name  string
	Start uint16
	End   uint16
}

// IndexEntry locates one page record inside the file.
type IndexEntry struct {
	// Offset is the absolute file position of the page record.
	Offset uint64
	// Length is the full record size: PageHeaderSize plus the payload.
	Length uint32
	Width  uint16
	Height uint16
}

// Header is the decoded 56-byte container header.
type Header struct {
	TotalPages     uint16
	MetadataOffset uint64
	ChapterOffset  uint64
	IndexOffset    uint64
	DataOffset     uint64
}

// Offsets computes the region offsets for a container holding the given
// chapter and page counts. Offsets depend only on counts, so they are
// final before any page is rendered.
func Offsets(chapters, pages int) Header {
	h := Header{
		TotalPages:     uint16(pages),
		MetadataOffset: HeaderSize,
	}
	h.ChapterOffset = h.MetadataOffset + MetadataSize
	h.IndexOffset = h.ChapterOffset + uint64(chapters)*ChapterRecordSize
	h.DataOffset = h.IndexOffset + uint64(pages)*IndexEntrySize
	return h
}

func (h Header) encode() []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:], Magic)
	binary.LittleEndian.PutUint16(buf[4:], Version)
	binary.LittleEndian.PutUint16(buf[6:], h.TotalPages)
	buf[8] = 0
	buf[9] = 1
	buf[10] = 0
	buf[11] = 1
	binary.LittleEndian.PutUint32(buf[12:], 1)
	binary.LittleEndian.PutUint64(buf[16:], h.MetadataOffset)
	binary.LittleEndian.PutUint64(buf[24:], h.IndexOffset)
	binary.LittleEndian.PutUint64(buf[32:], h.DataOffset)
	binary.LittleEndian.PutUint64(buf[40:], 0)
	binary.LittleEndian.PutUint64(buf[48:], h.ChapterOffset)
	return buf
}

func decodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, fmt.Errorf("header: %w", ErrTruncated)
	}
	if binary.LittleEndian.Uint32(buf[0:]) != Magic {
		return Header{}, ErrNotXTC
	}
	if v := binary.LittleEndian.Uint16(buf[4:]); v != Version {
		return Header{}, fmt.Errorf("%w: 0x%04x", ErrVersion, v)
	}
	return Header{
		TotalPages:     binary.LittleEndian.Uint16(buf[6:]),
		MetadataOffset: binary.LittleEndian.Uint64(buf[16:]),
		IndexOffset:    binary.LittleEndian.Uint64(buf[24:]),
		DataOffset:     binary.LittleEndian.Uint64(buf[32:]),
		ChapterOffset:  binary.LittleEndian.Uint64(buf[48:]),
	}, nil
}

// putString copies s into a fixed NUL-padded field, truncating to the
// field size minus the terminating NUL.
func putString(dst []byte, s string) {
	b := []byte(s)
	if len(b) > len(dst)-1 {
		b = b[:len(dst)-1]
	}
	copy(dst, b)
	for i := len(b); i < len(dst); i++ {
		dst[i] = 0
	}
}

func getString(src []byte) string {
	for i, c := range src {
		if c == 0 {
			return string(src[:i])
		}
	}
	return string(src)
}

func (m Metadata) encode(chapterCount uint16) []byte {
	buf := make([]byte, MetadataSize)
	putString(buf[0:titleField], m.Title)
	putString(buf[titleField:titleField+authorField], m.Author)
	putString(buf[192:192+publisherField], m.Publisher)
	putString(buf[224:224+languageField], m.Language)
	created := m.Created
	if created.IsZero() {
		created = time.Now()
	}
	binary.LittleEndian.PutUint32(buf[240:], uint32(created.Unix()))
	binary.LittleEndian.PutUint16(buf[244:], m.CoverPage)
	binary.LittleEndian.PutUint16(buf[246:], chapterCount)
	return buf
}

func decodeMetadata(buf []byte) (Metadata, uint16, error) {
	if len(buf) < MetadataSize {
		return Metadata{}, 0, fmt.Errorf("metadata: %w", ErrTruncated)
	}
	m := Metadata{
		Title:     getString(buf[0:titleField]),
		Author:    getString(buf[titleField : titleField+authorField]),
		Publisher: getString(buf[192 : 192+publisherField]),
		Language:  getString(buf[224 : 224+languageField]),
		Created:   time.Unix(int64(binary.LittleEndian.Uint32(buf[240:])), 0).UTC(),
		CoverPage: binary.LittleEndian.Uint16(buf[244:]),
	}
	return m, binary.LittleEndian.Uint16(buf[246:]), nil
}

func (c Chapter) encode() []byte {
	buf := make([]byte, ChapterRecordSize)
	putString(buf[0:chapterField], c.Name)
	binary.LittleEndian.PutUint16(buf[chapterField:], c.Start)
	binary.LittleEndian.PutUint16(buf[chapterField+2:], c.End)
	return buf
}

func decodeChapter(buf []byte) (Chapter, error) {
	if len(buf) < ChapterRecordSize {
		return Chapter{}, fmt.Errorf("chapter record: %w", ErrTruncated)
	}
	return Chapter{
		Name:  getString(buf[0:chapterField]),
		Start: binary.LittleEndian.Uint16(buf[chapterField:]),
		End:   binary.LittleEndian.Uint16(buf[chapterField+2:]),
	}, nil
}

func (e IndexEntry) encode() []byte {
	buf := make([]byte, IndexEntrySize)
	binary.LittleEndian.PutUint64(buf[0:], e.Offset)
	binary.LittleEndian.PutUint32(buf[8:], e.Length)
	binary.LittleEndian.PutUint16(buf[12:], e.Width)
	binary.LittleEndian.PutUint16(buf[14:], e.Height)
	return buf
}

func decodeIndexEntry(buf []byte) (IndexEntry, error) {
	if len(buf) < IndexEntrySize {
		return IndexEntry{}, fmt.Errorf("index entry: %w", ErrTruncated)
	}
	return IndexEntry{
		Offset: binary.LittleEndian.Uint64(buf[0:]),
		Length: binary.LittleEndian.Uint32(buf[8:]),
		Width:  binary.LittleEndian.Uint16(buf[12:]),
		Height: binary.LittleEndian.Uint16(buf[14:]),
	}, nil
}

func encodePageHeader(magic uint32, w, h int, payload int) []byte {
	buf := make([]byte, PageHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:], magic)
	binary.LittleEndian.PutUint16(buf[4:], uint16(w))
	binary.LittleEndian.PutUint16(buf[6:], uint16(h))
	binary.LittleEndian.PutUint32(buf[10:], uint32(payload))
	return buf
}

type pageHeader struct {
	magic   uint32
	width   int
	height  int
	payload int
}

func decodePageHeader(buf []byte) (pageHeader, error) {
	if len(buf) < PageHeaderSize {
		return pageHeader{}, fmt.Errorf("page header: %w", ErrTruncated)
	}
	ph := pageHeader{
		magic:   binary.LittleEndian.Uint32(buf[0:]),
		width:   int(binary.LittleEndian.Uint16(buf[4:])),
		height:  int(binary.LittleEndian.Uint16(buf[6:])),
		payload: int(binary.LittleEndian.Uint32(buf[10:])),
	}
	if ph.magic != PageMagic1 && ph.magic != PageMagic2 {
		return pageHeader{}, fmt.Errorf("%w: page magic 0x%08x", ErrCorrupt, ph.magic)
	}
	return ph, nil
}
