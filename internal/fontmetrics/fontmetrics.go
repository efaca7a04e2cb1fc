// Package fontmetrics derives spacing variants of TrueType fonts by
// rewriting advance widths in the hmtx table. Layout engines apply the
// widened advances as if the font were designed that way, which gives
// letter tracking and word spacing without any engine support.
package fontmetrics

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Mode selects which advances a derived font widens.
type Mode int

const (
	// Tracking widens every glyph's advance (letter-spacing).
	Tracking Mode = iota
	// WordSpacing widens only the space glyph's advance.
	WordSpacing
)

var (
	// ErrNotSFNT means the file is not a parseable SFNT font.
	ErrNotSFNT = errors.New("fontmetrics: not an sfnt font")
	// ErrNoSpaceGlyph means the font has no patchable advance for U+0020.
	ErrNoSpaceGlyph = errors.New("fontmetrics: no patchable space glyph")
)

// Derive writes a copy of the font at src whose advances are widened by
// em (fractions of the em square, negative to tighten) into outDir,
// under a unique name, and returns the new path. The caller owns the
// file. On any failure — or when em is zero — it returns src unchanged
// together with the cause, so the effect is dropped rather than fatal.
func Derive(src string, em float64, mode Mode, outDir string) (string, error) {
	if em == 0 {
		return src, nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return src, fmt.Errorf("read font: %w", err)
	}
	patched, err := patch(data, em, mode)
	if err != nil {
		return src, err
	}
	out := filepath.Join(outDir, fmt.Sprintf("inkpress-%s.ttf", uuid.NewString()))
	if err := os.WriteFile(out, patched, 0o644); err != nil {
		return src, fmt.Errorf("write derived font: %w", err)
	}
	return out, nil
}

type table struct {
	off, len uint32
	// recOff is the position of this table's directory record, needed
	// to restamp its checksum after patching.
	recOff int
}

type sfnt struct {
	data   []byte
	tables map[string]table
}

func parse(data []byte) (*sfnt, error) {
	if len(data) < 12 {
		return nil, ErrNotSFNT
	}
	switch binary.BigEndian.Uint32(data) {
	case 0x00010000, 0x74727565, 0x4F54544F: // TrueType, 'true', 'OTTO'
	default:
		return nil, ErrNotSFNT
	}
	numTables := int(binary.BigEndian.Uint16(data[4:]))
	if len(data) < 12+16*numTables {
		return nil, fmt.Errorf("%w: truncated table directory", ErrNotSFNT)
	}
	f := &sfnt{data: data, tables: make(map[string]table, numTables)}
	for i := 0; i < numTables; i++ {
		rec := 12 + 16*i
		tag := string(data[rec : rec+4])
		off := binary.BigEndian.Uint32(data[rec+8:])
		length := binary.BigEndian.Uint32(data[rec+12:])
		if uint64(off)+uint64(length) > uint64(len(data)) {
			return nil, fmt.Errorf("%w: table %q out of bounds", ErrNotSFNT, tag)
		}
		f.tables[tag] = table{off: off, len: length, recOff: rec}
	}
	return f, nil
}

func (f *sfnt) table(tag string, minLen uint32) ([]byte, table, error) {
	t, ok := f.tables[tag]
	if !ok || t.len < minLen {
		return nil, table{}, fmt.Errorf("%w: missing %q table", ErrNotSFNT, tag)
	}
	return f.data[t.off : t.off+t.len], t, nil
}

func patch(data []byte, em float64, mode Mode) ([]byte, error) {
	out := make([]byte, len(data))
	copy(out, data)
	f, err := parse(out)
	if err != nil {
		return nil, err
	}

	head, _, err := f.table("head", 20)
	if err != nil {
		return nil, err
	}
	upm := binary.BigEndian.Uint16(head[18:])
	if upm == 0 {
		return nil, fmt.Errorf("%w: unitsPerEm is zero", ErrNotSFNT)
	}
	hhea, _, err := f.table("hhea", 36)
	if err != nil {
		return nil, err
	}
	numHMetrics := int(binary.BigEndian.Uint16(hhea[34:]))
	hmtx, hmtxTab, err := f.table("hmtx", uint32(numHMetrics)*4)
	if err != nil {
		return nil, err
	}

	delta := int(math.Round(em * float64(upm)))
	widen := func(i int) {
		adv := int(binary.BigEndian.Uint16(hmtx[i*4:])) + delta
		if adv < 0 {
			adv = 0
		}
		if adv > 0xFFFF {
			adv = 0xFFFF
		}
		binary.BigEndian.PutUint16(hmtx[i*4:], uint16(adv))
	}

	switch mode {
	case WordSpacing:
		gid, err := f.glyphIndex(' ')
		if err != nil {
			return nil, err
		}
		if gid >= numHMetrics {
			// The space advance lives in the shared tail of a
			// monospaced hmtx; widening it would widen every glyph.
			return nil, ErrNoSpaceGlyph
		}
		widen(gid)
	default:
		for i := 0; i < numHMetrics; i++ {
			widen(i)
		}
	}

	restamp(out, hmtxTab)
	if headTab, ok := f.tables["head"]; ok {
		adjustChecksum(out, headTab)
	}
	return out, nil
}

// restamp recomputes one table's directory checksum after its bytes
// changed.
func restamp(font []byte, t table) {
	sum := checksum(font[t.off : t.off+t.len])
	binary.BigEndian.PutUint32(font[t.recOff+4:], sum)
}

// adjustChecksum rewrites head.checkSumAdjustment so the whole font
// sums to the SFNT constant.
func adjustChecksum(font []byte, head table) {
	adj := head.off + 8
	binary.BigEndian.PutUint32(font[adj:], 0)
	restamp(font, head)
	total := checksum(font)
	binary.BigEndian.PutUint32(font[adj:], 0xB1B0AFBA-total)
}

// checksum sums big-endian uint32 words, zero-padding the tail.
func checksum(b []byte) uint32 {
	var sum uint32
	for len(b) >= 4 {
		sum += binary.BigEndian.Uint32(b)
		b = b[4:]
	}
	if len(b) > 0 {
		var tail [4]byte
		copy(tail[:], b)
		sum += binary.BigEndian.Uint32(tail[:])
	}
	return sum
}

// glyphIndex resolves a rune through the cmap table, preferring a
// Windows Unicode BMP subtable and falling back to any Unicode one.
func (f *sfnt) glyphIndex(r rune) (int, error) {
	cmap, _, err := f.table("cmap", 4)
	if err != nil {
		return 0, err
	}
	n := int(binary.BigEndian.Uint16(cmap[2:]))
	if len(cmap) < 4+8*n {
		return 0, fmt.Errorf("%w: truncated cmap", ErrNotSFNT)
	}
	best := -1
	for i := 0; i < n; i++ {
		rec := 4 + 8*i
		plat := binary.BigEndian.Uint16(cmap[rec:])
		enc := binary.BigEndian.Uint16(cmap[rec+2:])
		off := int(binary.BigEndian.Uint32(cmap[rec+4:]))
		unicode := plat == 0 || (plat == 3 && (enc == 1 || enc == 10))
		if !unicode || off >= len(cmap) {
			continue
		}
		if best < 0 || (plat == 3 && enc == 1) {
			best = off
		}
	}
	if best < 0 {
		return 0, fmt.Errorf("%w: no unicode cmap subtable", ErrNotSFNT)
	}
	sub := cmap[best:]
	switch binary.BigEndian.Uint16(sub) {
	case 4:
		return lookupFormat4(sub, r)
	case 12:
		return lookupFormat12(sub, r)
	}
	return 0, fmt.Errorf("%w: unsupported cmap format %d", ErrNotSFNT, binary.BigEndian.Uint16(sub))
}

func lookupFormat4(sub []byte, r rune) (int, error) {
	if r > 0xFFFF || len(sub) < 16 {
		return 0, ErrNoSpaceGlyph
	}
	segX2 := int(binary.BigEndian.Uint16(sub[6:]))
	segs := segX2 / 2
	endBase := 14
	startBase := endBase + segX2 + 2
	deltaBase := startBase + segX2
	rangeBase := deltaBase + segX2
	if len(sub) < rangeBase+segX2 {
		return 0, fmt.Errorf("%w: truncated cmap format 4", ErrNotSFNT)
	}
	c := uint16(r)
	for i := 0; i < segs; i++ {
		end := binary.BigEndian.Uint16(sub[endBase+2*i:])
		if c > end {
			continue
		}
		start := binary.BigEndian.Uint16(sub[startBase+2*i:])
		if c < start {
			break
		}
		delta := binary.BigEndian.Uint16(sub[deltaBase+2*i:])
		ro := binary.BigEndian.Uint16(sub[rangeBase+2*i:])
		if ro == 0 {
			return int(c + delta), nil
		}
		pos := rangeBase + 2*i + int(ro) + 2*int(c-start)
		if pos+2 > len(sub) {
			return 0, fmt.Errorf("%w: cmap glyph id out of bounds", ErrNotSFNT)
		}
		gid := binary.BigEndian.Uint16(sub[pos:])
		if gid == 0 {
			return 0, ErrNoSpaceGlyph
		}
		return int(gid + delta), nil
	}
	return 0, ErrNoSpaceGlyph
}

func lookupFormat12(sub []byte, r rune) (int, error) {
	if len(sub) < 16 {
		return 0, fmt.Errorf("%w: truncated cmap format 12", ErrNotSFNT)
	}
	groups := int(binary.BigEndian.Uint32(sub[12:]))
	if len(sub) < 16+12*groups {
		return 0, fmt.Errorf("%w: truncated cmap format 12", ErrNotSFNT)
	}
	c := uint32(r)
	for i := 0; i < groups; i++ {
		g := 16 + 12*i
		start := binary.BigEndian.Uint32(sub[g:])
		end := binary.BigEndian.Uint32(sub[g+4:])
		if c < start || c > end {
			continue
		}
		return int(binary.BigEndian.Uint32(sub[g+8:]) + (c - start)), nil
	}
	return 0, ErrNoSpaceGlyph
}
