package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/avast/retry-go/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/inkpress/internal/book"
	"github.com/jackzampolin/inkpress/internal/config"
	"github.com/jackzampolin/inkpress/internal/home"
	"github.com/jackzampolin/inkpress/internal/layout/mupdf"
	"github.com/jackzampolin/inkpress/internal/render"
	"github.com/jackzampolin/inkpress/internal/xtc"
)

var (
	renderBook   string
	renderOut    string
	renderPreset string
	renderWatch  bool
)

// settleDelay batches the burst of file events an editor save produces
// into one re-render.
const settleDelay = 400 * time.Millisecond

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a book bundle into an XTC container",
	Long: `Render lays out every chapter of a book bundle at device geometry,
composites the pages, and writes a single XTC container.

Geometry, fonts, and overlay settings come from the config file; a
preset overrides screen size and bit depth. With --watch the bundle
directory is watched and the container is rewritten on every change,
which keeps a device emulator or preview loop current while editing.

Examples:
  inkpress render --book ./voyage --out voyage.xtc
  inkpress render --book ./voyage --preset six-inch-gray
  inkpress render --book ./voyage --out voyage.xtc --watch`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := newLogger()

		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		eng, err := mupdf.New(mupdf.Config{
			ScratchDir: h.ScratchPath(),
			Logger:     logger,
		})
		if err != nil {
			return err
		}

		proc := &render.Processor{
			Engine: eng,
			Home:   h,
			Logger: logger,
			Progress: func(done, total int) {
				logger.Info("layout progress", "chapters", done, "total", total)
			},
		}

		if renderWatch {
			return watchBundle(ctx, logger, proc, h)
		}
		return renderBundle(ctx, logger, proc, h)
	},
}

// renderBundle runs one full bundle-to-container pass.
func renderBundle(ctx context.Context, logger *slog.Logger, proc *render.Processor, h *home.Dir) error {
	bk, err := loadBundle(ctx, renderBook, logger)
	if err != nil {
		return err
	}

	cfg := cfgManager.Get()
	set := cfg.Settings
	if renderPreset != "" {
		if err := cfg.ApplyPreset(&set, renderPreset); err != nil {
			return err
		}
	}

	res, err := proc.Render(ctx, bk, set)
	if err != nil {
		return err
	}
	defer res.Close()

	outPath := renderOut
	if outPath == "" {
		outPath = filepath.Join(h.ExportsPath(), exportName(bk.Title))
	}
	opts := xtc.WriteOptions{
		Logger: logger,
		Progress: func(done, total int) {
			if done%32 == 0 || done == total {
				logger.Info("pack progress", "pages", done, "total", total)
			}
		},
	}
	if err := xtc.WriteFile(outPath, res, opts); err != nil {
		os.Remove(outPath)
		return err
	}

	logger.Info("container written",
		"path", outPath,
		"pages", res.PageCount(),
		"chapters", len(res.Chapters()),
		"depth", int(res.Depth()),
	)
	return nil
}

// loadBundle reads the bundle with a few retries. Editors write
// manifests and chapters non-atomically, so a load triggered by a file
// event can catch a half-written bundle.
func loadBundle(ctx context.Context, dir string, logger *slog.Logger) (*book.Book, error) {
	var bk *book.Book
	err := retry.Do(
		func() error {
			var err error
			bk, err = book.Load(dir, logger)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(200*time.Millisecond),
	)
	if err != nil {
		return nil, err
	}
	return bk, nil
}

// watchBundle re-renders on every bundle or config change until the
// context is cancelled.
func watchBundle(ctx context.Context, logger *slog.Logger, proc *render.Processor, h *home.Dir) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(renderBook); err != nil {
		return fmt.Errorf("watch %s: %w", renderBook, err)
	}
	imgDir := filepath.Join(renderBook, "images")
	if fi, err := os.Stat(imgDir); err == nil && fi.IsDir() {
		if err := watcher.Add(imgDir); err != nil {
			return fmt.Errorf("watch %s: %w", imgDir, err)
		}
	}

	// Config edits also trigger a pass: the next render picks up the
	// reloaded settings from the manager.
	rerender := make(chan struct{}, 1)
	cfgManager.OnChange(func(_ *config.Config) {
		select {
		case rerender <- struct{}{}:
		default:
		}
	})
	cfgManager.WatchConfig()

	pass := func() {
		if err := renderBundle(ctx, logger, proc, h); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("render failed, watching for changes", "err", err)
		}
	}

	logger.Info("watching bundle", "dir", renderBook)
	pass()

	debounce := time.NewTimer(settleDelay)
	debounce.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			logger.Debug("bundle changed", "file", filepath.Base(ev.Name), "op", ev.Op.String())
			debounce.Reset(settleDelay)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "err", err)
		case <-rerender:
			debounce.Reset(settleDelay)
		case <-debounce.C:
			pass()
		}
	}
}

// exportName derives a container filename from a book title.
func exportName(title string) string {
	fields := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(fields) == 0 {
		return "book.xtc"
	}
	return strings.Join(fields, "-") + ".xtc"
}

func init() {
	renderCmd.Flags().StringVar(&renderBook, "book", "", "book bundle directory (required)")
	renderCmd.Flags().StringVar(&renderOut, "out", "", "output container path (default: <home>/exports/<title>.xtc)")
	renderCmd.Flags().StringVar(&renderPreset, "preset", "", "device preset overriding screen size and bit depth")
	renderCmd.Flags().BoolVar(&renderWatch, "watch", false, "re-render whenever the bundle or config changes")
	_ = renderCmd.MarkFlagRequired("book")

	rootCmd.AddCommand(renderCmd)
}
