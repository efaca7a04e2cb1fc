package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestDefaultSettingsValidate(t *testing.T) {
	s := DefaultSettings()
	if err := s.Validate(); err != nil {
		t.Fatalf("factory settings fail validation: %v", err)
	}
	if s.Device.Width != 480 || s.Device.Height != 800 {
		t.Errorf("factory geometry = %dx%d", s.Device.Width, s.Device.Height)
	}
	if s.Output.Depth != 1 || s.Output.Mode != ModeThreshold {
		t.Errorf("factory output = %+v", s.Output)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
		want   string
	}{
		{"zero width", func(s *Settings) { s.Device.Width = 0 }, "not positive"},
		{"huge height", func(s *Settings) { s.Device.Height = 70000 }, "16-bit"},
		{"bad orientation", func(s *Settings) { s.Device.Orientation = "upside-down" }, "orientation"},
		{"bad align", func(s *Settings) { s.Text.Align = "middle" }, "alignment"},
		{"bad depth", func(s *Settings) { s.Output.Depth = 4 }, "bit depth"},
		{"bad mode", func(s *Settings) { s.Output.Mode = "halftone" }, "render mode"},
		{"threshold range", func(s *Settings) { s.Output.Threshold = 300 }, "threshold"},
		{"padding eats page", func(s *Settings) { s.Text.TopPadding = 500; s.Text.BottomPadding = 400 }, "content space"},
		{"bad slot", func(s *Settings) { s.Slots.Percent.Position = "margin" }, "slot position"},
		{"bad progress", func(s *Settings) { s.Progress.Position = "sideways" }, "progress position"},
		{"bad marker", func(s *Settings) { s.Progress.MarkerColor = "red" }, "marker color"},
		{"toc page zero", func(s *Settings) { s.TOC.InsertPage = 0 }, "1-based"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)
			err := s.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestDeviceOriented(t *testing.T) {
	d := Device{Width: 480, Height: 800, Orientation: OrientPortrait}
	if w, h := d.Oriented(); w != 480 || h != 800 {
		t.Errorf("portrait oriented = %dx%d", w, h)
	}
	d.Orientation = OrientLandscape
	if w, h := d.Oriented(); w != 800 || h != 480 {
		t.Errorf("landscape oriented = %dx%d", w, h)
	}
	d.Orientation = OrientLandscape270
	if !d.Landscape() {
		t.Error("landscape-270 should report landscape")
	}
}

func TestApplyPreset(t *testing.T) {
	cfg := DefaultConfig()
	s := DefaultSettings()

	if err := cfg.ApplyPreset(&s, "six-inch-gray"); err != nil {
		t.Fatalf("ApplyPreset: %v", err)
	}
	if s.Device.Width != 758 || s.Device.Height != 1024 || s.Output.Depth != 2 {
		t.Errorf("preset applied %dx%d depth %d", s.Device.Width, s.Device.Height, s.Output.Depth)
	}
	// Non-geometry settings survive.
	if s.Text.FontSize != 28 {
		t.Errorf("preset clobbered font size: %d", s.Text.FontSize)
	}

	err := cfg.ApplyPreset(&s, "nonexistent")
	if err == nil {
		t.Fatal("expected error for unknown preset")
	}
	if !strings.Contains(err.Error(), "pocket") {
		t.Errorf("error should list available presets: %v", err)
	}
}

func TestNewManager(t *testing.T) {
	t.Run("loads from config file with defaults for the rest", func(t *testing.T) {
		tmpDir := t.TempDir()
		configFile := filepath.Join(tmpDir, "config.yaml")

		configContent := `
settings:
  text:
    font_size: 32
presets:
  custom:
    description: "bench device"
    width: 300
    height: 500
    depth: 2
`
		if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}

		mgr, err := NewManager(configFile)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		cfg := mgr.Get()
		if cfg.Settings.Text.FontSize != 32 {
			t.Errorf("file override lost: font_size = %d", cfg.Settings.Text.FontSize)
		}
		// Defaults fill the keys the file does not set.
		if cfg.Settings.Device.Width != 480 {
			t.Errorf("default width lost: %d", cfg.Settings.Device.Width)
		}
		if cfg.Settings.Text.LineHeight != 1.4 {
			t.Errorf("default line height lost: %v", cfg.Settings.Text.LineHeight)
		}
		if _, ok := cfg.Presets["custom"]; !ok {
			t.Error("file preset missing")
		}
		if _, ok := cfg.Presets["pocket"]; !ok {
			t.Error("built-in preset missing after file merge")
		}
	})
}

func TestManager_WatchConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	configContent := `
settings:
  text:
    font_size: 24
`
	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	if got := mgr.Get().Settings.Text.FontSize; got != 24 {
		t.Errorf("initial font size = %d", got)
	}

	var callbackCount atomic.Int32
	var lastSize atomic.Int32

	mgr.OnChange(func(cfg *Config) {
		callbackCount.Add(1)
		lastSize.Store(int32(cfg.Settings.Text.FontSize))
	})

	mgr.WatchConfig()

	// Give fsnotify time to set up the watcher
	time.Sleep(100 * time.Millisecond)

	newContent := `
settings:
  text:
    font_size: 30
`
	if err := os.WriteFile(configFile, []byte(newContent), 0644); err != nil {
		t.Fatalf("failed to write updated config file: %v", err)
	}

	// Wait for the watcher to detect the change (fsnotify is async)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if callbackCount.Load() > 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if callbackCount.Load() == 0 {
		t.Fatal("callback was not invoked after config file change")
	}
	if lastSize.Load() != 30 {
		t.Errorf("callback saw font size %d, want 30", lastSize.Load())
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read written config: %v", err)
	}
	text := string(data)
	if !strings.HasPrefix(text, "# inkpress configuration") {
		t.Error("missing comment header")
	}
	for _, want := range []string{"settings:", "device:", "font_size: 28", "presets:", "pocket-gray:"} {
		if !strings.Contains(text, want) {
			t.Errorf("written config missing %q", want)
		}
	}
}
