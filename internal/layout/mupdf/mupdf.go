// Package mupdf drives the mutool binary as the document layout
// engine. Chapter markup goes through an intermediate PDF whose page
// geometry is pinned by @page CSS; pages are rasterized with mutool
// draw and word/image boxes come from the structured-text dump.
package mupdf

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	xdraw "golang.org/x/image/draw"

	"github.com/jackzampolin/inkpress/internal/layout"
)

// Config configures the engine.
type Config struct {
	// Binary is the mutool executable (default "mutool").
	Binary string
	// ScratchDir holds intermediate chapter documents (default: the
	// system temp directory). Files are uniquely named and removed when
	// their document closes; a crashed render may leave strays behind.
	ScratchDir string
	Logger     *slog.Logger
}

// Engine implements layout.Engine on top of mutool.
type Engine struct {
	binary  string
	scratch string
	logger  *slog.Logger
}

// New verifies the mutool binary is reachable and returns an engine.
func New(cfg Config) (*Engine, error) {
	bin := cfg.Binary
	if bin == "" {
		bin = "mutool"
	}
	resolved, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("mutool not found: %w", err)
	}
	scratch := cfg.ScratchDir
	if scratch == "" {
		scratch = os.TempDir()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{binary: resolved, scratch: scratch, logger: logger}, nil
}

// buildDocument wraps sanitized body content in a complete HTML
// document with the stylesheet inlined, the shape mutool convert
// expects.
func buildDocument(markup, css string) string {
	return "<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><style>\n" +
		css + "\n</style></head><body>\n" + markup + "\n</body></html>\n"
}

// Layout converts one chapter to a PDF and opens it for paging.
func (e *Engine) Layout(ctx context.Context, markup, css string, page layout.Rect) (layout.Document, error) {
	id := uuid.NewString()
	htmlPath := filepath.Join(e.scratch, "inkpress-chapter-"+id+".html")
	pdfPath := filepath.Join(e.scratch, "inkpress-chapter-"+id+".pdf")

	if err := os.WriteFile(htmlPath, []byte(buildDocument(markup, css)), 0o644); err != nil {
		return nil, fmt.Errorf("write chapter markup: %w", err)
	}

	cmd := exec.CommandContext(ctx, e.binary, convertArgs(htmlPath, pdfPath)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		os.Remove(htmlPath)
		return nil, fmt.Errorf("mutool convert failed: %w (output: %s)", err, out)
	}

	f, err := os.Open(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("open intermediate pdf: %w", err)
	}
	count, err := api.PageCount(f, nil)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("count pdf pages: %w", err)
	}
	if count == 0 {
		return nil, fmt.Errorf("chapter produced no pages")
	}

	e.logger.Debug("chapter laid out", "pages", count, "pdf", filepath.Base(pdfPath))
	return &document{
		engine:   e,
		htmlPath: htmlPath,
		pdfPath:  pdfPath,
		count:    count,
		w:        page.Width,
		h:        page.Height,
	}, nil
}

func convertArgs(htmlPath, pdfPath string) []string {
	// -o: output file; format inferred from the extension.
	return []string{"convert", "-o", pdfPath, htmlPath}
}

func drawArgs(pdfPath, outPath string, dpi int, pageNo int) []string {
	// -q: quiet
	// -F png: raster output
	// -c gray: grayscale colorspace
	// -r N: resolution in DPI (72 is 1:1 with PDF points)
	return []string{
		"draw", "-q",
		"-F", "png",
		"-c", "gray",
		"-r", strconv.Itoa(dpi),
		"-o", outPath,
		pdfPath,
		strconv.Itoa(pageNo),
	}
}

func stextArgs(pdfPath, outPath string, pageNo int) []string {
	// -F stext: structured text XML
	// -O preserve-images: keep image blocks so their boxes survive
	return []string{
		"draw", "-q",
		"-F", "stext",
		"-O", "preserve-images",
		"-o", outPath,
		pdfPath,
		strconv.Itoa(pageNo),
	}
}

type document struct {
	engine   *Engine
	htmlPath string
	pdfPath  string
	count    int
	w, h     float64
	closed   bool
}

func (d *document) PageCount() int { return d.count }

func (d *document) Page(i int) (layout.Page, error) {
	if d.closed {
		return nil, fmt.Errorf("mupdf: document is closed")
	}
	if i < 0 || i >= d.count {
		return nil, fmt.Errorf("mupdf: page %d of %d", i, d.count)
	}
	return &pdfPage{doc: d, idx: i}, nil
}

// Close removes the intermediate files. Pages become unusable.
func (d *document) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	os.Remove(d.htmlPath)
	if err := os.Remove(d.pdfPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove intermediate pdf: %w", err)
	}
	return nil
}

type pdfPage struct {
	doc   *document
	idx   int
	stext *stextPage // lazily parsed, shared by Words and ImageBoxes
}

func (p *pdfPage) Size() (float64, float64) { return p.doc.w, p.doc.h }

// Rasterize renders the page at the vertical scale and corrects the
// horizontal axis afterwards: mutool only scales isotropically, and
// the device axes may stretch independently.
func (p *pdfPage) Rasterize(sx, sy float64) (*image.Gray, error) {
	if p.doc.closed {
		return nil, fmt.Errorf("mupdf: document is closed")
	}
	tmp := filepath.Join(p.doc.engine.scratch, "inkpress-page-"+uuid.NewString()+".png")
	defer os.Remove(tmp)

	dpi := int(72*sy + 0.5)
	if dpi < 18 {
		dpi = 18
	}
	cmd := exec.Command(p.doc.engine.binary, drawArgs(p.doc.pdfPath, tmp, dpi, p.idx+1)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("mutool draw failed: %w (output: %s)", err, out)
	}

	f, err := os.Open(tmp)
	if err != nil {
		return nil, fmt.Errorf("read rendered page: %w", err)
	}
	src, err := png.Decode(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("decode rendered page: %w", err)
	}

	wantW := int(p.doc.w*sx + 0.5)
	wantH := int(p.doc.h*sy + 0.5)
	return toGray(src, wantW, wantH), nil
}

// toGray converts to grayscale, resampling when the rendered size
// differs from the requested one.
func toGray(src image.Image, w, h int) *image.Gray {
	b := src.Bounds()
	if g, ok := src.(*image.Gray); ok && b.Dx() == w && b.Dy() == h {
		return g
	}
	out := image.NewGray(image.Rect(0, 0, w, h))
	if b.Dx() == w && b.Dy() == h {
		draw.Draw(out, out.Bounds(), src, b.Min, draw.Src)
		return out
	}
	xdraw.ApproxBiLinear.Scale(out, out.Bounds(), src, b, draw.Src, nil)
	return out
}

func (p *pdfPage) Words() ([]layout.Word, error) {
	st, err := p.loadStext()
	if err != nil {
		return nil, err
	}
	return st.words(), nil
}

// ImageBoxes implements layout.ImageLister.
func (p *pdfPage) ImageBoxes() ([]layout.Box, error) {
	st, err := p.loadStext()
	if err != nil {
		return nil, err
	}
	return st.imageBoxes(), nil
}

func (p *pdfPage) loadStext() (*stextPage, error) {
	if p.stext != nil {
		return p.stext, nil
	}
	if p.doc.closed {
		return nil, fmt.Errorf("mupdf: document is closed")
	}
	tmp := filepath.Join(p.doc.engine.scratch, "inkpress-stext-"+uuid.NewString()+".xml")
	defer os.Remove(tmp)

	cmd := exec.Command(p.doc.engine.binary, stextArgs(p.doc.pdfPath, tmp, p.idx+1)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("mutool stext failed: %w (output: %s)", err, out)
	}
	data, err := os.ReadFile(tmp)
	if err != nil {
		return nil, fmt.Errorf("read structured text: %w", err)
	}
	st, err := parseStext(data)
	if err != nil {
		return nil, err
	}
	p.stext = st
	return st, nil
}
