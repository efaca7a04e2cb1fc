// Package sanitize prepares chapter markup for the layout engine. Book
// styling that would fight the device geometry is stripped, embedded
// fonts are neutralized in favor of the configured family, cover pages
// and images get device-friendly styling, and text is optionally
// hyphenated. Per-item problems are recorded as skips, never errors.
package sanitize

import (
	"image"
	"net/url"
	"path"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Hyphenator inserts discretionary break opportunities. Hyphenate
// returns the rune positions inside word where a break may occur.
type Hyphenator interface {
	Hyphenate(word string) []int
}

// Options configures a chapter pass.
type Options struct {
	// FontFamily is the family name forced onto the chapter.
	FontFamily string
	// Sizes maps image basenames to their decoded pixel sizes. Images
	// absent from the map are treated as unresolved and dropped.
	Sizes map[string]image.Point
	// Spaced maps CSS class names to their letter-spacing values, as
	// detected by Stylesheet.
	Spaced map[string]string
	// Hyphenator enables soft hyphenation when non-nil.
	Hyphenator Hyphenator
}

// Skip records one item dropped or neutralized during sanitization.
type Skip struct {
	Stage  string
	Item   string
	Reason string
}

// Result is the outcome of one chapter pass.
type Result struct {
	// HTML is the sanitized body content, ready to wrap in a layout
	// document.
	HTML string
	// Cover is the image basename promoted to a full-bleed cover page,
	// or empty. When set, HTML contains only the cover image.
	Cover string
	// Images lists the basenames of images kept, in document order.
	Images []string
	Skips  []Skip
}

// Images larger than this on either axis lay out as centered blocks;
// smaller ones flow inline with the text baseline.
const inlineMax = 150

var (
	fontFaceRe   = regexp.MustCompile(`(?s)@font-face\s*\{[^}]*\}`)
	fontFamilyRe = regexp.MustCompile(`(?i)font-family\s*:[^;}]+;?`)
	cssRuleRe    = regexp.MustCompile(`(?s)([^{}]+)\{([^}]*)\}`)
	spacingRe    = regexp.MustCompile(`(?i)letter-spacing\s*:\s*([^;}]+)`)
	classRe      = regexp.MustCompile(`\.([A-Za-z0-9_-]+)`)
)

// Stylesheet cleans the book stylesheet: @font-face rules and
// font-family declarations are removed so the configured family wins,
// and classes that set a non-default letter-spacing are returned with
// their values for per-chapter propagation.
func Stylesheet(css string) (string, map[string]string) {
	spaced := make(map[string]string)
	for _, m := range cssRuleRe.FindAllStringSubmatch(css, -1) {
		sm := spacingRe.FindStringSubmatch(m[2])
		if sm == nil {
			continue
		}
		val := strings.TrimSpace(sm[1])
		if val == "" || strings.EqualFold(val, "normal") || isZeroLength(val) {
			continue
		}
		for _, cm := range classRe.FindAllStringSubmatch(m[1], -1) {
			spaced[strings.ToLower(cm[1])] = val
		}
	}
	cleaned := fontFaceRe.ReplaceAllString(css, "")
	cleaned = fontFamilyRe.ReplaceAllString(cleaned, "")
	return cleaned, spaced
}

func isZeroLength(v string) bool {
	n := strings.TrimRight(strings.TrimSpace(v), "emptxrch%in ")
	return n == "0" || n == "0.0" || n == ".0"
}

// Chapter sanitizes one chapter's markup.
func Chapter(markup string, opts Options) (Result, error) {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return Result{}, err
	}
	var res Result
	body := findElement(doc, atom.Body)
	if body == nil {
		// html.Parse synthesizes a body for any input; nothing to do
		// if it still came back empty.
		return res, nil
	}

	if name := replaceCover(body, opts, &res); name != "" {
		res.Cover = name
		res.HTML = renderChildren(body)
		return res, nil
	}

	walk(body, func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			cleanStyle(n)
			propagateSpacing(n, opts)
			if n.DataAtom == atom.Img {
				classifyImage(n, opts, &res)
			}
		case html.TextNode:
			if opts.Hyphenator != nil && hyphenatable(n) {
				n.Data = hyphenate(n.Data, opts.Hyphenator)
			}
		}
	})

	res.HTML = renderChildren(body)
	return res, nil
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

// Inline style properties that lock layout against the device geometry.
var lockedProps = map[string]bool{
	"width":            true,
	"height":           true,
	"line-height":      true,
	"background":       true,
	"background-color": true,
}

// cleanStyle strips destructive properties from an inline style while
// keeping alignment and indent signals intact.
func cleanStyle(n *html.Node) {
	for i, a := range n.Attr {
		if a.Key != "style" {
			continue
		}
		var kept []string
		for _, decl := range strings.Split(a.Val, ";") {
			prop, val, ok := strings.Cut(decl, ":")
			if !ok {
				continue
			}
			prop = strings.ToLower(strings.TrimSpace(prop))
			if lockedProps[prop] {
				continue
			}
			if prop == "font-size" && isAbsoluteSize(val) {
				continue
			}
			kept = append(kept, strings.TrimSpace(decl))
		}
		n.Attr[i].Val = strings.Join(kept, "; ")
		return
	}
}

// isAbsoluteSize reports whether a font-size value pins the text to a
// fixed physical size. Relative units scale with the configured size
// and survive.
func isAbsoluteSize(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, rel := range []string{"%", "em", "rem", "smaller", "larger"} {
		if strings.HasSuffix(v, rel) {
			return false
		}
	}
	return v != ""
}

// MarkerClass tags every element governed by a letter-spaced class so
// the stylesheet can force the spaced family onto the whole subtree.
const MarkerClass = "custom-spaced"

// Tags that can carry visible text. Spacing protection applies to
// these and their descendants only.
var spacedTags = map[atom.Atom]bool{
	atom.P: true, atom.Div: true,
	atom.H1: true, atom.H2: true, atom.H3: true,
	atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Span: true, atom.Blockquote: true, atom.Li: true,
	atom.I: true, atom.Em: true, atom.B: true, atom.Strong: true,
	atom.A: true, atom.Font: true, atom.Small: true, atom.Big: true,
}

// propagateSpacing marks elements under a letter-spaced class with the
// marker class and forces the spaced family inline. The inline
// !important defeats nested resets that would otherwise pull the text
// back to an unspaced face.
func propagateSpacing(n *html.Node, opts Options) {
	if len(opts.Spaced) == 0 || !spacedTags[n.DataAtom] {
		return
	}
	if !underSpacedRoot(n, opts.Spaced) {
		return
	}
	addClass(n, MarkerClass)
	if opts.FontFamily != "" {
		prependStyle(n, "font-family: '"+opts.FontFamily+"' !important")
	}
}

// underSpacedRoot reports whether n or a text-carrying ancestor is
// flagged for letter spacing, either by class or by an explicit
// data-letter-spacing attribute.
func underSpacedRoot(n *html.Node, spaced map[string]string) bool {
	for anc := n; anc != nil; anc = anc.Parent {
		if anc.Type != html.ElementNode || !spacedTags[anc.DataAtom] {
			continue
		}
		if attr(anc, "data-letter-spacing") == "true" {
			return true
		}
		for _, cls := range strings.Fields(attr(anc, "class")) {
			if _, ok := spaced[strings.ToLower(cls)]; ok {
				return true
			}
		}
	}
	return false
}

func addClass(n *html.Node, cls string) {
	for i, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == cls {
				return
			}
		}
		n.Attr[i].Val = strings.TrimSpace(a.Val + " " + cls)
		return
	}
	n.Attr = append(n.Attr, html.Attribute{Key: "class", Val: cls})
}

func prependStyle(n *html.Node, decl string) {
	for i, a := range n.Attr {
		if a.Key == "style" {
			sep := "; "
			if strings.TrimSpace(a.Val) == "" {
				sep = ""
			}
			n.Attr[i].Val = decl + sep + a.Val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: "style", Val: decl})
}

func appendStyle(n *html.Node, decl string) {
	for i, a := range n.Attr {
		if a.Key == "style" {
			sep := "; "
			if strings.TrimSpace(a.Val) == "" {
				sep = ""
			}
			n.Attr[i].Val = a.Val + sep + decl
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: "style", Val: decl})
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// replaceCover looks for an SVG-wrapped cover image. When one resolves,
// the whole chapter body is replaced by a single full-bleed img so the
// cover occupies exactly one page, and the image basename is returned.
func replaceCover(body *html.Node, opts Options, res *Result) string {
	var svg, imageRef *html.Node
	walk(body, func(n *html.Node) {
		if svg != nil || n.Type != html.ElementNode || n.Data != "svg" {
			return
		}
		walk(n, func(c *html.Node) {
			if imageRef == nil && c.Type == html.ElementNode && (c.Data == "image" || c.DataAtom == atom.Image) {
				imageRef = c
			}
		})
		if imageRef != nil {
			svg = n
		}
	})
	if svg == nil {
		return ""
	}
	href := attr(imageRef, "href")
	for _, a := range imageRef.Attr {
		if strings.HasSuffix(a.Key, ":href") || (a.Namespace == "xlink" && a.Key == "href") {
			href = a.Val
		}
	}
	name := imageName(href)
	if href == "" {
		res.Skips = append(res.Skips, Skip{Stage: "cover", Reason: "svg image without href"})
		remove(svg)
		return ""
	}
	if _, ok := opts.Sizes[name]; !ok {
		res.Skips = append(res.Skips, Skip{Stage: "cover", Item: name, Reason: "unresolved image"})
		remove(svg)
		return ""
	}

	for body.FirstChild != nil {
		body.RemoveChild(body.FirstChild)
	}
	img := &html.Node{
		Type:     html.ElementNode,
		Data:     "img",
		DataAtom: atom.Img,
		Attr: []html.Attribute{
			{Key: "src", Val: name},
			{Key: "style", Val: "width: 100%; height: 100%;"},
		},
	}
	body.AppendChild(img)
	res.Images = append(res.Images, name)
	return name
}

func remove(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// classifyImage styles an img by its decoded pixel size: large images
// become centered blocks, small ones flow inline. Unresolved sources
// are hidden rather than left to break the layout.
func classifyImage(n *html.Node, opts Options, res *Result) {
	src := attr(n, "src")
	if src == "" {
		res.Skips = append(res.Skips, Skip{Stage: "image", Reason: "img without src"})
		appendStyle(n, "display: none")
		return
	}
	name := imageName(src)
	size, ok := opts.Sizes[name]
	if !ok {
		res.Skips = append(res.Skips, Skip{Stage: "image", Item: name, Reason: "unresolved image"})
		appendStyle(n, "display: none")
		return
	}
	setAttr(n, "src", name)
	if size.X > inlineMax || size.Y > inlineMax {
		appendStyle(n, "display: block; margin: 0.5em auto; max-width: 100%; max-height: 95%")
	} else {
		appendStyle(n, "display: inline; vertical-align: baseline; max-height: 1em")
	}
	res.Images = append(res.Images, name)
}

// imageName extracts the bundle key for an image reference: the path
// basename, percent-decoded the way archive members are named.
func imageName(ref string) string {
	base := path.Base(ref)
	if un, err := url.PathUnescape(base); err == nil {
		return un
	}
	return base
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// hyphenatable reports whether a text node sits in flowing prose.
// Script, style, head-ish and ruby annotation branches keep their
// text verbatim.
func hyphenatable(n *html.Node) bool {
	for anc := n.Parent; anc != nil; anc = anc.Parent {
		if anc.Type != html.ElementNode {
			continue
		}
		switch anc.DataAtom {
		case atom.Script, atom.Style, atom.Head, atom.Title, atom.Meta, atom.Rt:
			return false
		}
	}
	return true
}

// hyphenate inserts soft hyphens into words of four letters or more.
// Words the dictionary cannot break pass through unchanged.
func hyphenate(text string, h Hyphenator) string {
	var out strings.Builder
	out.Grow(len(text))
	var word []rune
	flush := func() {
		if len(word) >= 4 && allLetters(word) {
			out.WriteString(breakWord(word, h))
		} else {
			out.WriteString(string(word))
		}
		word = word[:0]
	}
	for _, r := range text {
		if isWordRune(r) {
			word = append(word, r)
			continue
		}
		flush()
		out.WriteRune(r)
	}
	flush()
	return out.String()
}

func isWordRune(r rune) bool {
	return r == '\'' || r == '’' || unicode.IsLetter(r)
}

func allLetters(word []rune) bool {
	for _, r := range word {
		if !unicode.IsLetter(r) && r != '\'' && r != '’' {
			return false
		}
	}
	return true
}

func breakWord(word []rune, h Hyphenator) string {
	points := h.Hyphenate(strings.ToLower(string(word)))
	if len(points) == 0 {
		return string(word)
	}
	var out strings.Builder
	prev := 0
	for _, p := range points {
		if p <= prev || p >= len(word) {
			continue
		}
		out.WriteString(string(word[prev:p]))
		out.WriteRune('­')
		prev = p
	}
	out.WriteString(string(word[prev:]))
	return out.String()
}

// renderChildren serializes a node's children back to markup.
func renderChildren(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&sb, c); err != nil {
			// Render only fails on writer errors; strings.Builder has none.
			continue
		}
	}
	return sb.String()
}
