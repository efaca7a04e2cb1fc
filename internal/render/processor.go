package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"image"
	"log/slog"
	"mime"
	"os"
	"path"
	"strings"
	"time"

	"github.com/speedata/hyphenation"

	"github.com/jackzampolin/inkpress/internal/annotate"
	"github.com/jackzampolin/inkpress/internal/book"
	"github.com/jackzampolin/inkpress/internal/config"
	"github.com/jackzampolin/inkpress/internal/fontmetrics"
	"github.com/jackzampolin/inkpress/internal/home"
	"github.com/jackzampolin/inkpress/internal/layout"
	"github.com/jackzampolin/inkpress/internal/sanitize"
	"github.com/jackzampolin/inkpress/internal/xtc"
)

// Family names the generated stylesheet registers. The spaced family
// carries letter spacing baked into its glyph advances.
const (
	bodyFamily   = "CustomFontBody"
	headerFamily = "CustomFontHeader"
	spacedFamily = "CustomFontSpaced"
)

// Processor turns loaded books into composable page sets. Engine is
// required; Home supplies fonts, hyphenation dictionaries and scratch
// space when present.
type Processor struct {
	Engine layout.Engine
	Home   *home.Dir
	Logger *slog.Logger
	// Progress, when non-nil, is called after each chapter lays out.
	Progress func(done, total int)
}

// Render lays out every chapter of bk under set. The returned Result
// holds open engine documents and composites pages on demand; the
// caller must Close it. A chapter that fails to lay out fails the
// whole render — a book with silently missing chapters is worse than
// no book.
func (p *Processor) Render(ctx context.Context, bk *book.Book, set config.Settings) (*Result, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if err := set.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	if len(bk.Chapters) == 0 {
		return nil, fmt.Errorf("book has no chapters")
	}

	// Glossed words need room between lines. Forcing the minimum here
	// keeps the annotation band from colliding with the next line.
	var cache annotate.Cache
	if set.Annotations.Enabled {
		set.Text.LineHeight = max(set.Text.LineHeight, 2.2)
		loaded, err := annotate.LoadCache(set.Annotations.CachePath)
		if err != nil {
			logger.Warn("annotation cache unavailable, rendering unannotated", "path", set.Annotations.CachePath, "err", err)
		} else {
			cache = loaded
		}
	}

	width, height := set.Device.Oriented()
	topPad, botPad := set.Text.TopPadding, set.Text.BottomPadding
	contentH := max(1, height-topPad-botPad)

	scratch := os.TempDir()
	if p.Home != nil {
		scratch = p.Home.ScratchPath()
	}
	typo := p.buildTypography(logger, set, scratch)

	cleanedCSS, spacedClasses := sanitize.Stylesheet(bk.Stylesheet)
	sizes := imageSizes(logger, bk.Images)

	var hyph sanitize.Hyphenator
	if set.Text.Hyphenate {
		hyph = p.loadHyphenator(logger, bk.BaseLanguage())
	}

	baseCSS := BuildCSS(CSSConfig{
		Width:         width,
		ContentHeight: contentH,
		FontSize:      set.Text.FontSize,
		FontWeight:    set.Text.FontWeight,
		LineHeight:    set.Text.LineHeight,
		Align:         set.Text.Align,
		Margin:        set.Text.Margin,
		WordSpacingEm: typo.cssSpacing,
		BodyFamily:    typo.bodyVal,
		HeaderFamily:  typo.headerVal,
		Faces:         typo.faces,
	})
	if cleaned := strings.TrimSpace(cleanedCSS); cleaned != "" {
		baseCSS = cleaned + "\n" + baseCSS
	}

	var (
		docs      []layout.Document
		docPages  []int
		titles    []string
		annTables = make(map[layout.PageRef]annotate.PageTable)
	)
	closeAll := func() {
		for _, d := range docs {
			d.Close()
		}
	}

	for ci, ch := range bk.Chapters {
		if err := ctx.Err(); err != nil {
			closeAll()
			return nil, err
		}

		// Queues come from the raw markup: sanitization rewrites text
		// (soft hyphens) and would break sentence hashes.
		var queues annotate.Queues
		if len(cache) > 0 {
			queues = annotate.BuildQueues(annotate.ExtractText(ch.Markup), cache)
		}

		res, err := sanitize.Chapter(ch.Markup, sanitize.Options{
			FontFamily: spacedFamily,
			Sizes:      sizes,
			Spaced:     spacedClasses,
			Hyphenator: hyph,
		})
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("sanitize chapter %q: %w", ch.Title, err)
		}
		for _, s := range res.Skips {
			logger.Warn("chapter item skipped", "chapter", ch.Title, "stage", s.Stage, "item", s.Item, "reason", s.Reason)
		}

		markup := inlineImages(res.HTML, res.Images, bk.Images)
		css := baseCSS
		if res.Cover != "" {
			css += CoverCSS()
		}

		doc, err := p.Engine.Layout(ctx, markup, css, layout.Rect{Width: float64(width), Height: float64(contentH)})
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("lay out chapter %q: %w", ch.Title, err)
		}
		docs = append(docs, doc)
		docPages = append(docPages, doc.PageCount())
		titles = append(titles, ch.Title)

		// Words are consumed from the queues in page order, so the
		// same word annotates once per chapter, on its first page.
		if len(queues) > 0 {
			for pi := 0; pi < doc.PageCount(); pi++ {
				pg, err := doc.Page(pi)
				if err != nil {
					logger.Warn("annotation pass skipped a page", "chapter", ch.Title, "page", pi, "err", err)
					continue
				}
				words, err := pg.Words()
				if err != nil {
					logger.Warn("word extraction failed", "chapter", ch.Title, "page", pi, "err", err)
					continue
				}
				if table := queues.Assign(words); len(table) > 0 {
					annTables[layout.PageRef{Doc: ci, Page: pi}] = table
				}
			}
		}

		logger.Debug("chapter laid out", "chapter", ch.Title, "pages", doc.PageCount())
		if p.Progress != nil {
			p.Progress(ci+1, len(bk.Chapters))
		}
	}

	g := layout.TOCGeometry{
		FontSize:      float64(set.Text.FontSize),
		LineHeight:    set.Text.LineHeight,
		PageHeight:    height,
		TopPadding:    topPad,
		BottomPadding: botPad,
	}
	tocCount := 0
	if set.TOC.Enabled {
		tocCount = g.Pages(len(titles))
	}
	seq := layout.BuildSequence(docPages, set.TOC.InsertPage, tocCount)
	entries := layout.Entries(titles, seq)

	// Overlay and TOC text draw with the unmodified body font; the
	// derived variants exist only for the layout engine.
	faces, err := NewFaceSource(typo.overlayFont)
	if err != nil {
		logger.Warn("overlay font unavailable, using built-in face", "err", err)
	}

	var tocImages []*image.Gray
	if tocCount > 0 {
		tocImages = RenderTOCPages(entries, g, width, height, faces)
	}

	ranges := seq.ChapterRanges()
	chapters := make([]xtc.Chapter, len(ranges))
	for i, r := range ranges {
		chapters[i] = xtc.Chapter{Name: titles[i], Start: uint16(r[0]), End: uint16(r[1])}
	}

	publisher := bk.Publisher
	if publisher == "" {
		publisher = "inkpress"
	}
	meta := xtc.Metadata{
		Title:     bk.Title,
		Author:    bk.Author,
		Publisher: publisher,
		Language:  bk.Language,
		Created:   time.Now(),
	}

	overlay := &Overlay{
		Settings: set,
		Width:    width,
		Height:   height,
		Faces:    faces,
		Seq:      seq,
		Entries:  entries,
		DocPages: docPages,
	}

	logger.Info("book laid out",
		"chapters", len(docs), "content_pages", seq.ContentPages(),
		"toc_pages", tocCount, "size", fmt.Sprintf("%dx%d", width, height))

	return &Result{
		logger:      logger,
		settings:    set,
		width:       width,
		height:      height,
		meta:        meta,
		chapters:    chapters,
		seq:         seq,
		entries:     entries,
		docs:        docs,
		docPages:    docPages,
		tocImages:   tocImages,
		annotations: annTables,
		overlay:     overlay,
		faces:       faces,
	}, nil
}

// typography is the font setup for one render: the faces the
// stylesheet registers, the CSS family values, the effective
// stylesheet word-spacing, and the untouched body font path kept for
// overlay drawing.
type typography struct {
	faces       []FontFace
	bodyVal     string
	headerVal   string
	cssSpacing  float64
	overlayFont string
}

// buildTypography derives the spacing variants of the configured body
// font. Word-spacing above the slider's dead zone is baked into a
// derived font so the stylesheet can ask for zero; the spaced family
// always gets 0.15em tracking. Either derivation failing falls back
// without failing the render.
func (p *Processor) buildTypography(logger *slog.Logger, set config.Settings, scratch string) typography {
	bodyFont := p.resolveFont(set.Fonts.Body)
	headerFont := p.resolveFont(set.Fonts.Header)
	if headerFont == "" {
		headerFont = bodyFont
	}

	t := typography{
		bodyVal:     "serif",
		headerVal:   "serif",
		cssSpacing:  set.Text.WordSpacing,
		overlayFont: bodyFont,
	}
	if bodyFont == "" {
		return t
	}

	layoutBody := bodyFont
	if t.cssSpacing > 0.05 {
		derived, err := fontmetrics.Derive(bodyFont, t.cssSpacing, fontmetrics.WordSpacing, scratch)
		if err != nil {
			logger.Warn("word-spacing font derivation failed, using stylesheet spacing", "err", err)
		} else {
			layoutBody = derived
			t.cssSpacing = 0
		}
	}

	spaced, err := fontmetrics.Derive(bodyFont, 0.15, fontmetrics.Tracking, scratch)
	if err != nil {
		logger.Warn("letter-spacing font derivation failed, spaced classes render unspaced", "err", err)
	} else {
		// No variant discovery here: italic and bold get the regular
		// spaced face rather than no face at all.
		t.faces = append(t.faces,
			FontFace{Family: spacedFamily, Path: spaced},
			FontFace{Family: spacedFamily, Path: spaced, Italic: true},
			FontFace{Family: spacedFamily, Path: spaced, Bold: true},
		)
	}

	t.faces = append(t.faces,
		FontFace{Family: bodyFamily, Path: layoutBody},
		FontFace{Family: headerFamily, Path: headerFont},
	)
	t.bodyVal = `"` + bodyFamily + `"`
	t.headerVal = `"` + headerFamily + `"`
	return t
}

func (p *Processor) resolveFont(fontPath string) string {
	if fontPath == "" || p.Home == nil {
		return fontPath
	}
	return p.Home.ResolveFont(fontPath)
}

// loadHyphenator opens the pattern dictionary for the book's base
// language. Any failure just disables hyphenation.
func (p *Processor) loadHyphenator(logger *slog.Logger, lang string) sanitize.Hyphenator {
	if p.Home == nil {
		return nil
	}
	dictPath := p.Home.DictPath(lang)
	f, err := os.Open(dictPath)
	if err != nil {
		logger.Warn("hyphenation dictionary unavailable", "lang", lang, "err", err)
		return nil
	}
	defer f.Close()
	h, err := hyphenation.New(f)
	if err != nil {
		logger.Warn("hyphenation dictionary unreadable", "path", dictPath, "err", err)
		return nil
	}
	return h
}

// imageSizes decodes just the headers of the bundle images. Images
// that fail to decode are left out of the map, which downgrades every
// reference to them into a sanitizer skip.
func imageSizes(logger *slog.Logger, images map[string][]byte) map[string]image.Point {
	sizes := make(map[string]image.Point, len(images))
	for name, data := range images {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			logger.Warn("undecodable image skipped", "image", name, "err", err)
			continue
		}
		sizes[name] = image.Point{X: cfg.Width, Y: cfg.Height}
	}
	return sizes
}

// inlineImages swaps image sources for data URIs so chapter documents
// are self-contained. Names are matched in their attribute-escaped
// form, the way the sanitizer serialized them.
func inlineImages(markup string, names []string, data map[string][]byte) string {
	for _, name := range names {
		raw, ok := data[name]
		if !ok {
			continue
		}
		mt := mime.TypeByExtension(strings.ToLower(path.Ext(name)))
		if mt == "" {
			mt = "application/octet-stream"
		}
		needle := `src="` + html.EscapeString(name) + `"`
		uri := `src="data:` + mt + `;base64,` + base64.StdEncoding.EncodeToString(raw) + `"`
		markup = strings.ReplaceAll(markup, needle, uri)
	}
	return markup
}
