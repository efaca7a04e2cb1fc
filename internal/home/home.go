package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the inkpress home directory.
	DefaultDirName = ".inkpress"

	// ScratchDirName is the subdirectory for derived fonts and
	// per-chapter intermediate documents.
	ScratchDirName = "scratch"

	// FontsDirName is the subdirectory for user-supplied fonts.
	FontsDirName = "fonts"

	// DictsDirName is the subdirectory for hyphenation dictionaries.
	DictsDirName = "dicts"

	// ExportsDirName is the subdirectory for rendered containers and
	// cover exports.
	ExportsDirName = "exports"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"
)

// Dir represents the inkpress home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.inkpress).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// ScratchPath returns the scratch directory for intermediate files.
func (d *Dir) ScratchPath() string {
	return filepath.Join(d.path, ScratchDirName)
}

// FontsPath returns the directory searched for font files given by
// bare name instead of full path.
func (d *Dir) FontsPath() string {
	return filepath.Join(d.path, FontsDirName)
}

// DictsPath returns the directory searched for hyphenation pattern
// files, one per language code (e.g. en.pat).
func (d *Dir) DictsPath() string {
	return filepath.Join(d.path, DictsDirName)
}

// ExportsPath returns the directory render output defaults to.
func (d *Dir) ExportsPath() string {
	return filepath.Join(d.path, ExportsDirName)
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// DictPath returns the hyphenation pattern file for a language code.
func (d *Dir) DictPath(lang string) string {
	return filepath.Join(d.DictsPath(), lang+".pat")
}

// ResolveFont returns path unchanged when it points at a file,
// otherwise tries the fonts directory.
func (d *Dir) ResolveFont(path string) string {
	if path == "" {
		return ""
	}
	if _, err := os.Stat(path); err == nil {
		return path
	}
	inHome := filepath.Join(d.FontsPath(), path)
	if _, err := os.Stat(inHome); err == nil {
		return inHome
	}
	return path
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	for _, sub := range []string{
		d.ScratchPath(),
		d.FontsPath(),
		d.DictsPath(),
		d.ExportsPath(),
	} {
		if err := os.MkdirAll(sub, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", sub, err)
		}
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}
