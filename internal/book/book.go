// Package book loads a book bundle — the directory the markup
// extractor hands off: a manifest, one markup file per chapter, the
// stylesheet, and the images they reference.
package book

import (
	"bytes"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v2"

	// Register decoders for every image format bundles carry.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ManifestName is the bundle manifest file.
const ManifestName = "book.yaml"

// Manifest mirrors book.yaml.
type Manifest struct {
	Title      string       `yaml:"title"`
	Author     string       `yaml:"author"`
	Publisher  string       `yaml:"publisher"`
	Language   string       `yaml:"language"`
	Cover      string       `yaml:"cover"`      // image name shown as the cover
	Stylesheet string       `yaml:"stylesheet"` // defaults to styles.css
	Chapters   []ChapterRef `yaml:"chapters"`
}

// ChapterRef names one chapter file in reading order.
type ChapterRef struct {
	File  string `yaml:"file"`
	Title string `yaml:"title"`
}

// Chapter is one loaded chapter. Read-only to the rendering core.
type Chapter struct {
	Title    string
	Markup   string
	Filename string
	HasImage bool
}

// Book is a fully loaded bundle.
type Book struct {
	Title      string
	Author     string
	Publisher  string
	Language   string // BCP 47, normalized
	Cover      string
	Stylesheet string
	Chapters   []Chapter
	Images     map[string][]byte

	// Skipped lists bundle items dropped during load.
	Skipped []string
}

// Load reads a bundle directory. Broken chapters and images are
// skipped with a warning; an unreadable manifest or a bundle with no
// loadable chapters is an error.
func Load(dir string, logger *slog.Logger) (*Book, error) {
	if logger == nil {
		logger = slog.Default()
	}

	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return nil, fmt.Errorf("read bundle manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse bundle manifest: %w", err)
	}
	if len(m.Chapters) == 0 {
		return nil, fmt.Errorf("bundle manifest lists no chapters")
	}

	b := &Book{
		Title:     strings.TrimSpace(m.Title),
		Author:    strings.TrimSpace(m.Author),
		Publisher: strings.TrimSpace(m.Publisher),
		Language:  normalizeLanguage(m.Language),
		Cover:     m.Cover,
		Images:    make(map[string][]byte),
	}
	if b.Title == "" {
		b.Title = "Unknown Title"
	}
	if b.Author == "" {
		b.Author = "Unknown Author"
	}

	styleName := m.Stylesheet
	if styleName == "" {
		styleName = "styles.css"
	}
	if css, err := os.ReadFile(filepath.Join(dir, styleName)); err == nil {
		b.Stylesheet = string(css)
	} else if m.Stylesheet != "" {
		// Only named stylesheets warn; the default is optional.
		logger.Warn("bundle stylesheet unreadable", "file", styleName, "error", err)
		b.Skipped = append(b.Skipped, styleName)
	}

	for i, ref := range m.Chapters {
		markup, err := os.ReadFile(filepath.Join(dir, ref.File))
		if err != nil {
			logger.Warn("skipping unreadable chapter", "file", ref.File, "error", err)
			b.Skipped = append(b.Skipped, ref.File)
			continue
		}
		text := string(markup)
		title := strings.TrimSpace(ref.Title)
		if title == "" {
			title = headingTitle(text)
		}
		if title == "" {
			title = fmt.Sprintf("Section %d", i+1)
		}
		b.Chapters = append(b.Chapters, Chapter{
			Title:    title,
			Markup:   text,
			Filename: filepath.Base(ref.File),
			HasImage: hasImage(text),
		})
	}
	if len(b.Chapters) == 0 {
		return nil, fmt.Errorf("no loadable chapters in bundle")
	}

	if err := b.loadImages(dir, logger); err != nil {
		return nil, err
	}
	return b, nil
}

// loadImages reads images/, dropping files no registered decoder
// accepts.
func (b *Book) loadImages(dir string, logger *slog.Logger) error {
	imgDir := filepath.Join(dir, "images")
	entries, err := os.ReadDir(imgDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read bundle images: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		data, err := os.ReadFile(filepath.Join(imgDir, name))
		if err != nil {
			logger.Warn("skipping unreadable image", "file", name, "error", err)
			b.Skipped = append(b.Skipped, name)
			continue
		}
		if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
			logger.Warn("skipping undecodable image", "file", name, "error", err)
			b.Skipped = append(b.Skipped, name)
			continue
		}
		b.Images[name] = data
	}
	return nil
}

// normalizeLanguage parses a BCP 47 tag, falling back to en.
func normalizeLanguage(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return "en"
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return "en"
	}
	return tag.String()
}

// BaseLanguage returns the primary subtag ("en" from "en-GB"), the
// code hyphenation dictionaries are keyed by.
func (b *Book) BaseLanguage() string {
	tag, err := language.Parse(b.Language)
	if err != nil {
		return "en"
	}
	base, _ := tag.Base()
	return base.String()
}

// headingTitle pulls a chapter title from the first short h1-h3.
func headingTitle(markup string) string {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return ""
	}
	var title string
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "h1", "h2", "h3":
				t := strings.TrimSpace(nodeText(n))
				if t != "" && len(t) < 150 {
					title = t
					return true
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(doc)
	return title
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// hasImage reports whether the markup contains an img element.
func hasImage(markup string) bool {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return false
	}
	var found bool
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found {
			return
		}
		if n.Type == html.ElementNode && n.Data == "img" {
			found = true
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return found
}
