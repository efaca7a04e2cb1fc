package render

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/jackzampolin/inkpress/internal/annotate"
	"github.com/jackzampolin/inkpress/internal/config"
	"github.com/jackzampolin/inkpress/internal/layout"
	"github.com/jackzampolin/inkpress/internal/xtc"
)

// Result is one finished render: open chapter documents, the global
// page sequence, TOC bitmaps and overlay state, able to composite any
// page on demand. It implements xtc.Source, and pages are composited
// fresh on every call rather than cached.
//
// A Result owns layout-engine documents until Close. It is not safe
// for concurrent use.
type Result struct {
	logger   *slog.Logger
	settings config.Settings

	// width and height are the composition canvas in pixels, already
	// swapped for landscape orientations.
	width  int
	height int

	meta     xtc.Metadata
	chapters []xtc.Chapter

	seq      layout.Sequence
	entries  []layout.Entry
	docs     []layout.Document
	docPages []int

	tocImages   []*image.Gray
	annotations map[layout.PageRef]annotate.PageTable

	overlay *Overlay
	faces   *FaceSource

	closed bool
}

// Metadata returns the container metadata block content.
func (r *Result) Metadata() xtc.Metadata { return r.meta }

// Chapters returns the container chapter table.
func (r *Result) Chapters() []xtc.Chapter { return r.chapters }

// PageCount returns the total page count, TOC pages included.
func (r *Result) PageCount() int { return r.seq.Total() }

// ContentPages returns the page count excluding TOC pages.
func (r *Result) ContentPages() int { return r.seq.ContentPages() }

// Entries returns the chapter list with 1-based display page numbers.
func (r *Result) Entries() []layout.Entry { return r.entries }

// Depth returns the configured packing depth.
func (r *Result) Depth() xtc.Depth {
	if r.settings.Output.Depth == 2 {
		return xtc.Depth2
	}
	return xtc.Depth1
}

// Close releases the layout documents. Pages cannot be composited
// afterwards. Close is idempotent.
func (r *Result) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	var firstErr error
	for i, doc := range r.docs {
		if err := doc.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close chapter %d: %w", i, err)
		}
	}
	return firstErr
}
