package config

import (
	"fmt"
	"sort"
)

// Config holds inkpress configuration.
// Stored at: ~/.inkpress/config.yaml
type Config struct {
	Settings Settings          `mapstructure:"settings" yaml:"settings"`
	Presets  map[string]Preset `mapstructure:"presets" yaml:"presets"`
}

// Settings is the full render configuration. A render call captures one
// value of this struct and never mutates it.
type Settings struct {
	Device      Device      `mapstructure:"device" yaml:"device"`
	Fonts       Fonts       `mapstructure:"fonts" yaml:"fonts"`
	Text        Text        `mapstructure:"text" yaml:"text"`
	Output      Output      `mapstructure:"output" yaml:"output"`
	Header      Bar         `mapstructure:"header" yaml:"header"`
	Footer      Bar         `mapstructure:"footer" yaml:"footer"`
	Slots       Slots       `mapstructure:"slots" yaml:"slots"`
	Progress    Progress    `mapstructure:"progress" yaml:"progress"`
	UI          UI          `mapstructure:"ui" yaml:"ui"`
	TOC         TOC         `mapstructure:"toc" yaml:"toc"`
	Annotations Annotations `mapstructure:"annotations" yaml:"annotations"`
}

// Device describes the target screen.
type Device struct {
	Width  int `mapstructure:"width" yaml:"width"`   // native portrait px
	Height int `mapstructure:"height" yaml:"height"` // native portrait px
	// Orientation: "portrait", "landscape" (rotate 90) or
	// "landscape-270" (rotate 270).
	Orientation string `mapstructure:"orientation" yaml:"orientation"`
}

// Oriented returns the page size with landscape axes swapped. All
// composition happens in this frame; rotation is the final step.
func (d Device) Oriented() (w, h int) {
	if d.Landscape() {
		return d.Height, d.Width
	}
	return d.Width, d.Height
}

// Landscape reports whether the output rotates.
func (d Device) Landscape() bool {
	return d.Orientation == OrientLandscape || d.Orientation == OrientLandscape270
}

// Fonts selects font files. Empty paths fall back to the built-in face.
type Fonts struct {
	Body   string `mapstructure:"body" yaml:"body"`     // body text TTF path
	Header string `mapstructure:"header" yaml:"header"` // h1-h6 TTF path; empty = body
}

// Text controls body typography and content geometry.
type Text struct {
	FontSize      int     `mapstructure:"font_size" yaml:"font_size"` // pt
	LineHeight    float64 `mapstructure:"line_height" yaml:"line_height"`
	FontWeight    int     `mapstructure:"font_weight" yaml:"font_weight"`
	Margin        int     `mapstructure:"margin" yaml:"margin"` // body padding px
	Align         string  `mapstructure:"align" yaml:"align"`
	WordSpacing   float64 `mapstructure:"word_spacing" yaml:"word_spacing"` // em
	Hyphenate     bool    `mapstructure:"hyphenate" yaml:"hyphenate"`
	TopPadding    int     `mapstructure:"top_padding" yaml:"top_padding"`
	BottomPadding int     `mapstructure:"bottom_padding" yaml:"bottom_padding"`
}

// Output controls the page-wide bitmap transform and packing depth.
type Output struct {
	Depth     int     `mapstructure:"depth" yaml:"depth"` // 1 or 2 bits per pixel
	Mode      string  `mapstructure:"mode" yaml:"mode"`   // "threshold" or "dither"
	Threshold int     `mapstructure:"threshold" yaml:"threshold"`
	Contrast  float64 `mapstructure:"contrast" yaml:"contrast"`
	WhiteClip int     `mapstructure:"white_clip" yaml:"white_clip"`
	Sharpen   float64 `mapstructure:"sharpen" yaml:"sharpen"` // threshold-mode definition boost
}

// Bar styles one overlay strip (header or footer).
type Bar struct {
	FontSize int    `mapstructure:"font_size" yaml:"font_size"`
	Margin   int    `mapstructure:"margin" yaml:"margin"`
	Align    string `mapstructure:"align" yaml:"align"`
}

// Slot places one overlay text element.
type Slot struct {
	Position string `mapstructure:"position" yaml:"position"` // hidden | header | footer
	Order    int    `mapstructure:"order" yaml:"order"`
}

// Slots collects the four overlay text elements.
type Slots struct {
	Title       Slot `mapstructure:"title" yaml:"title"`
	PageNumber  Slot `mapstructure:"page_number" yaml:"page_number"`
	ChapterPage Slot `mapstructure:"chapter_page" yaml:"chapter_page"`
	Percent     Slot `mapstructure:"percent" yaml:"percent"`
}

// Progress styles the progress bar and places it relative to the
// overlay text strips.
type Progress struct {
	// Position: hidden, header-above, header-below, header-inline,
	// footer-above, footer-below, footer-inline.
	Position     string `mapstructure:"position" yaml:"position"`
	Order        int    `mapstructure:"order" yaml:"order"` // inline placement order
	Height       int    `mapstructure:"height" yaml:"height"`
	ShowTicks    bool   `mapstructure:"show_ticks" yaml:"show_ticks"`
	TickHeight   int    `mapstructure:"tick_height" yaml:"tick_height"`
	ShowMarker   bool   `mapstructure:"show_marker" yaml:"show_marker"`
	MarkerRadius int    `mapstructure:"marker_radius" yaml:"marker_radius"`
	MarkerColor  string `mapstructure:"marker_color" yaml:"marker_color"` // black | white
}

// UI styles overlay text shared by header and footer.
type UI struct {
	Separator  string `mapstructure:"separator" yaml:"separator"`
	SideMargin int    `mapstructure:"side_margin" yaml:"side_margin"`
}

// TOC controls the generated table of contents.
type TOC struct {
	Enabled    bool `mapstructure:"enabled" yaml:"enabled"`
	InsertPage int  `mapstructure:"insert_page" yaml:"insert_page"` // 1-based
}

// Annotations controls gloss drawing from the external cache.
type Annotations struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	CachePath string `mapstructure:"cache_path" yaml:"cache_path"`
}

// Preset is a named device geometry shipped with the tool or added in
// the config file.
type Preset struct {
	Description string `mapstructure:"description" yaml:"description"`
	Width       int    `mapstructure:"width" yaml:"width"`
	Height      int    `mapstructure:"height" yaml:"height"`
	Depth       int    `mapstructure:"depth" yaml:"depth"`
}

// Allowed enum values.
const (
	OrientPortrait     = "portrait"
	OrientLandscape    = "landscape"
	OrientLandscape270 = "landscape-270"

	ModeThreshold = "threshold"
	ModeDither    = "dither"

	AlignLeft    = "left"
	AlignCenter  = "center"
	AlignRight   = "right"
	AlignJustify = "justify"

	SlotHidden = "hidden"
	SlotHeader = "header"
	SlotFooter = "footer"

	ProgressHidden       = "hidden"
	ProgressHeaderAbove  = "header-above"
	ProgressHeaderBelow  = "header-below"
	ProgressHeaderInline = "header-inline"
	ProgressFooterAbove  = "footer-above"
	ProgressFooterBelow  = "footer-below"
	ProgressFooterInline = "footer-inline"
)

// DefaultSettings returns the factory settings for a 480x800 1-bit
// portrait device.
func DefaultSettings() Settings {
	return Settings{
		Device: Device{Width: 480, Height: 800, Orientation: OrientPortrait},
		Text: Text{
			FontSize:      28,
			LineHeight:    1.4,
			FontWeight:    400,
			Margin:        20,
			Align:         "justify",
			WordSpacing:   0,
			Hyphenate:     true,
			TopPadding:    15,
			BottomPadding: 32,
		},
		Output: Output{
			Depth:     1,
			Mode:      ModeThreshold,
			Threshold: 130,
			Contrast:  1.2,
			WhiteClip: 220,
			Sharpen:   1.0,
		},
		Header: Bar{FontSize: 16, Margin: 10, Align: "center"},
		Footer: Bar{FontSize: 16, Margin: 10, Align: "center"},
		Slots: Slots{
			Title:       Slot{Position: SlotFooter, Order: 2},
			PageNumber:  Slot{Position: SlotFooter, Order: 1},
			ChapterPage: Slot{Position: SlotHidden, Order: 3},
			Percent:     Slot{Position: SlotHidden, Order: 4},
		},
		Progress: Progress{
			Position:     ProgressFooterBelow,
			Order:        5,
			Height:       4,
			ShowTicks:    true,
			TickHeight:   6,
			ShowMarker:   true,
			MarkerRadius: 5,
			MarkerColor:  "black",
		},
		UI:          UI{Separator: "   |   ", SideMargin: 15},
		TOC:         TOC{Enabled: true, InsertPage: 1},
		Annotations: Annotations{Enabled: false},
	}
}

// BuiltinPresets returns the device presets shipped with the tool.
func BuiltinPresets() map[string]Preset {
	return map[string]Preset{
		"pocket": {
			Description: "5\" pocket reader, black and white",
			Width:       480, Height: 800, Depth: 1,
		},
		"pocket-gray": {
			Description: "5\" pocket reader, 4-level grayscale",
			Width:       480, Height: 800, Depth: 2,
		},
		"six-inch": {
			Description: "6\" reader, black and white",
			Width:       758, Height: 1024, Depth: 1,
		},
		"six-inch-gray": {
			Description: "6\" reader, 4-level grayscale",
			Width:       758, Height: 1024, Depth: 2,
		},
	}
}

// DefaultConfig returns configuration with factory settings and the
// built-in presets.
func DefaultConfig() *Config {
	return &Config{
		Settings: DefaultSettings(),
		Presets:  BuiltinPresets(),
	}
}

// PresetNames returns the configured preset names, sorted.
func (c *Config) PresetNames() []string {
	names := make([]string, 0, len(c.Presets))
	for name := range c.Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyPreset overwrites geometry and depth from a named preset.
func (c *Config) ApplyPreset(s *Settings, name string) error {
	p, ok := c.Presets[name]
	if !ok {
		return fmt.Errorf("unknown preset %q (have: %v)", name, c.PresetNames())
	}
	if p.Width > 0 {
		s.Device.Width = p.Width
	}
	if p.Height > 0 {
		s.Device.Height = p.Height
	}
	if p.Depth > 0 {
		s.Output.Depth = p.Depth
	}
	return nil
}

func oneOf(value string, allowed ...string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

// Validate checks settings for values the pipeline cannot render.
func (s *Settings) Validate() error {
	if s.Device.Width <= 0 || s.Device.Height <= 0 {
		return fmt.Errorf("device size %dx%d is not positive", s.Device.Width, s.Device.Height)
	}
	if s.Device.Width > 0xFFFF || s.Device.Height > 0xFFFF {
		return fmt.Errorf("device size %dx%d exceeds the container's 16-bit page geometry", s.Device.Width, s.Device.Height)
	}
	if !oneOf(s.Device.Orientation, OrientPortrait, OrientLandscape, OrientLandscape270) {
		return fmt.Errorf("unknown orientation %q", s.Device.Orientation)
	}
	if s.Text.FontSize <= 0 {
		return fmt.Errorf("font size %d is not positive", s.Text.FontSize)
	}
	if s.Text.LineHeight <= 0 {
		return fmt.Errorf("line height %v is not positive", s.Text.LineHeight)
	}
	if !oneOf(s.Text.Align, AlignJustify, AlignLeft, AlignRight, AlignCenter) {
		return fmt.Errorf("unknown text alignment %q", s.Text.Align)
	}
	_, oh := s.Device.Oriented()
	if s.Text.TopPadding+s.Text.BottomPadding >= oh {
		return fmt.Errorf("padding %d+%d leaves no content space on a %dpx-tall page",
			s.Text.TopPadding, s.Text.BottomPadding, oh)
	}
	if s.Output.Depth != 1 && s.Output.Depth != 2 {
		return fmt.Errorf("bit depth %d is not 1 or 2", s.Output.Depth)
	}
	if !oneOf(s.Output.Mode, ModeThreshold, ModeDither) {
		return fmt.Errorf("unknown render mode %q", s.Output.Mode)
	}
	if s.Output.Threshold < 0 || s.Output.Threshold > 255 {
		return fmt.Errorf("threshold %d outside 0..255", s.Output.Threshold)
	}
	if s.Output.WhiteClip < 0 || s.Output.WhiteClip > 255 {
		return fmt.Errorf("white clip %d outside 0..255", s.Output.WhiteClip)
	}
	if s.Output.Contrast < 0 {
		return fmt.Errorf("contrast %v is negative", s.Output.Contrast)
	}
	for _, bar := range []struct {
		name string
		bar  Bar
	}{{"header", s.Header}, {"footer", s.Footer}} {
		if bar.bar.FontSize <= 0 {
			return fmt.Errorf("%s font size %d is not positive", bar.name, bar.bar.FontSize)
		}
		if !oneOf(bar.bar.Align, AlignLeft, AlignCenter, AlignRight, AlignJustify) {
			return fmt.Errorf("unknown %s alignment %q", bar.name, bar.bar.Align)
		}
	}
	for _, slot := range []struct {
		name string
		slot Slot
	}{
		{"title", s.Slots.Title},
		{"page_number", s.Slots.PageNumber},
		{"chapter_page", s.Slots.ChapterPage},
		{"percent", s.Slots.Percent},
	} {
		if !oneOf(slot.slot.Position, SlotHidden, SlotHeader, SlotFooter) {
			return fmt.Errorf("unknown %s slot position %q", slot.name, slot.slot.Position)
		}
	}
	if !oneOf(s.Progress.Position,
		ProgressHidden,
		ProgressHeaderAbove, ProgressHeaderBelow, ProgressHeaderInline,
		ProgressFooterAbove, ProgressFooterBelow, ProgressFooterInline) {
		return fmt.Errorf("unknown progress position %q", s.Progress.Position)
	}
	if !oneOf(s.Progress.MarkerColor, "black", "white") {
		return fmt.Errorf("unknown marker color %q", s.Progress.MarkerColor)
	}
	if s.TOC.InsertPage < 1 {
		return fmt.Errorf("toc insert page %d is not 1-based", s.TOC.InsertPage)
	}
	return nil
}
