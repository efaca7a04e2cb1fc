package main

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/inkpress/internal/render"
)

var (
	coverMode   string
	coverPreset string
)

var coverCmd = &cobra.Command{
	Use:   "cover INPUT OUTPUT",
	Short: "Convert a cover image to a device BMP",
	Long: `Cover scales an image to the configured screen geometry, boosts
contrast, dithers to black and white, and writes an uncompressed BMP
next to the container for readers that load covers as sidecar files.

Modes:
  stretch  resize to the exact screen size, ignoring aspect ratio
  fit      scale inside the screen and pad the rest with white
  crop     fill the screen, trimming whatever overflows (default)

Examples:
  inkpress cover art/front.png cover.bmp
  inkpress cover art/front.jpg cover.bmp --mode fit
  inkpress cover art/front.jpg cover.bmp --preset six-inch`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()

		cfg := cfgManager.Get()
		set := cfg.Settings
		if coverPreset != "" {
			if err := cfg.ApplyPreset(&set, coverPreset); err != nil {
				return err
			}
		}

		in, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open cover image: %w", err)
		}
		src, format, err := image.Decode(in)
		in.Close()
		if err != nil {
			return fmt.Errorf("decode cover image: %w", err)
		}

		img, err := render.RenderCover(src, set.Device.Width, set.Device.Height, coverMode)
		if err != nil {
			return err
		}

		out, err := os.Create(args[1])
		if err != nil {
			return fmt.Errorf("create cover: %w", err)
		}
		if err := render.WriteCoverBMP(out, img); err != nil {
			out.Close()
			return fmt.Errorf("encode cover: %w", err)
		}
		if err := out.Close(); err != nil {
			return fmt.Errorf("close cover: %w", err)
		}

		logger.Info("cover written",
			"path", args[1],
			"source", format,
			"size", fmt.Sprintf("%dx%d", set.Device.Width, set.Device.Height),
		)
		return nil
	},
}

func init() {
	coverCmd.Flags().StringVar(&coverMode, "mode", render.CoverCrop, "geometry mode: stretch, fit, or crop")
	coverCmd.Flags().StringVar(&coverPreset, "preset", "", "device preset overriding screen size")

	rootCmd.AddCommand(coverCmd)
}
