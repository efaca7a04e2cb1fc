// Package testutil holds fixtures shared by rendering and command
// tests: canned book bundles, grayscale canvases, and a quiet logger.
package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

// Logger returns a logger that drops everything. Tests that need the
// output can pass slog.Default() instead.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewGray returns a w by h canvas filled with value v.
func NewGray(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

// Ramp returns a w by h canvas whose columns run 0..255 left to right.
func Ramp(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		v := uint8(x * 255 / (w - 1))
		for y := 0; y < h; y++ {
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

// PNGBytes encodes img as PNG.
func PNGBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

// WriteFile writes content under dir, creating parent directories.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create dir for %s: %v", name, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// WriteBundle writes a small two-chapter book bundle into a fresh
// temp directory and returns its path. The second chapter references
// an embedded image so image paths are exercised too.
func WriteBundle(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	WriteFile(t, dir, "book.yaml", `title: The Voyage of the Bee
author: A. Navigator
publisher: Harbor House
language: en
cover: cover.png
chapters:
  - file: ch1.xhtml
    title: Setting Out
  - file: ch2.xhtml
    title: The Storm
`)
	WriteFile(t, dir, "styles.css", "blockquote { font-style: italic; }")
	WriteFile(t, dir, "ch1.xhtml",
		"<h1>Setting Out</h1><p>We left the harbor at first light and did not look back.</p>")
	WriteFile(t, dir, "ch2.xhtml",
		"<h2>The Storm</h2><p>Waves rose higher than the mast.</p><p><img src=\"images/wave.png\"/></p>")

	if err := os.MkdirAll(filepath.Join(dir, "images"), 0o755); err != nil {
		t.Fatalf("failed to create images dir: %v", err)
	}
	wave := PNGBytes(t, Ramp(8, 8))
	for _, name := range []string{"wave.png", "cover.png"} {
		if err := os.WriteFile(filepath.Join(dir, "images", name), wave, 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	return dir
}
