package xtc

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
)

// Source supplies everything the serializer needs. Page is invoked once
// per global index, in final order; implementations re-composite rather
// than serve cached preview bitmaps.
type Source interface {
	Metadata() Metadata
	Chapters() []Chapter
	PageCount() int
	Depth() Depth
	Page(i int) (*image.Gray, error)
}

// WriteOptions tunes a serialization pass.
type WriteOptions struct {
	Logger *slog.Logger
	// Progress, when set, is called once per packed page with
	// (done, total), done strictly increasing.
	Progress func(done, total int)
}

// WriteFile serializes src to path. A failure mid-write leaves a
// partial file behind; the caller is expected to delete and retry.
func WriteFile(path string, src Source, opts WriteOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create container: %w", err)
	}
	if err := Write(f, src, opts); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close container: %w", err)
	}
	return nil
}

// Write serializes src to w in one sequential pass: header, metadata,
// chapter table, page index, blob. Section offsets are computed from
// the chapter and page counts alone, so the header is final before the
// first page is rendered.
func Write(w io.Writer, src Source, opts WriteOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	depth := src.Depth()
	if !depth.Valid() {
		return fmt.Errorf("xtc: invalid bit depth %d", depth)
	}
	chapters := src.Chapters()
	total := src.PageCount()
	if total == 0 {
		return fmt.Errorf("xtc: nothing to serialize, page count is zero")
	}
	if total > 0xFFFF {
		return fmt.Errorf("xtc: %d pages exceeds container limit", total)
	}

	hdr := Offsets(len(chapters), total)
	logger.Debug("serializing container",
		"pages", total, "chapters", len(chapters), "depth", int(depth),
		"blob_offset", hdr.DataOffset)

	bw := bufio.NewWriterSize(w, 1<<16)
	if _, err := bw.Write(hdr.encode()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := bw.Write(src.Metadata().encode(uint16(len(chapters)))); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	for i, ch := range chapters {
		if _, err := bw.Write(ch.encode()); err != nil {
			return fmt.Errorf("write chapter %d: %w", i, err)
		}
	}

	// Pages are packed before the index reaches the writer because each
	// entry records its record's exact file position and length.
	var blob bytes.Buffer
	index := make([]IndexEntry, 0, total)
	for i := 0; i < total; i++ {
		img, err := src.Page(i)
		if err != nil {
			return fmt.Errorf("render page %d: %w", i, err)
		}
		rec := PackPage(img, depth)
		b := img.Bounds()
		index = append(index, IndexEntry{
			Offset: hdr.DataOffset + uint64(blob.Len()),
			Length: uint32(len(rec)),
			Width:  uint16(b.Dx()),
			Height: uint16(b.Dy()),
		})
		blob.Write(rec)
		if opts.Progress != nil {
			opts.Progress(i+1, total)
		}
	}

	for i, e := range index {
		if _, err := bw.Write(e.encode()); err != nil {
			return fmt.Errorf("write index entry %d: %w", i, err)
		}
	}
	size := hdr.DataOffset + uint64(blob.Len())
	if _, err := io.Copy(bw, &blob); err != nil {
		return fmt.Errorf("write page blob: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush container: %w", err)
	}
	logger.Debug("container serialized", "bytes", size)
	return nil
}
