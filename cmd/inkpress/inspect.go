package main

import (
	"fmt"
	"image/png"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/inkpress/internal/cliout"
	"github.com/jackzampolin/inkpress/internal/xtc"
)

var (
	inspectPage int
	inspectPNG  string
)

type inspectMetadata struct {
	Title     string `yaml:"title" json:"title"`
	Author    string `yaml:"author" json:"author"`
	Publisher string `yaml:"publisher" json:"publisher"`
	Language  string `yaml:"language" json:"language"`
	Created   string `yaml:"created" json:"created"`
}

type inspectChapter struct {
	Name  string `yaml:"name" json:"name"`
	Start int    `yaml:"start" json:"start"`
	End   int    `yaml:"end" json:"end"`
	Pages int    `yaml:"pages" json:"pages"`
}

type inspectReport struct {
	Path     string           `yaml:"path" json:"path"`
	Pages    int              `yaml:"pages" json:"pages"`
	Width    int              `yaml:"width" json:"width"`
	Height   int              `yaml:"height" json:"height"`
	Depth    int              `yaml:"depth" json:"depth"`
	Metadata inspectMetadata  `yaml:"metadata" json:"metadata"`
	Chapters []inspectChapter `yaml:"chapters" json:"chapters"`
}

var inspectCmd = &cobra.Command{
	Use:   "inspect FILE",
	Short: "Describe an XTC container",
	Long: `Inspect decodes an XTC container and prints its page geometry,
metadata, and chapter table.

With --page and --png, one page is additionally decoded to a grayscale
PNG for desktop preview.

Examples:
  inkpress inspect voyage.xtc
  inkpress inspect voyage.xtc -o json
  inkpress inspect voyage.xtc --page 12 --png page12.png`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, closer, err := xtc.Open(args[0])
		if err != nil {
			return err
		}
		defer closer.Close()

		report := inspectReport{
			Path:  args[0],
			Pages: f.PageCount(),
		}
		if len(f.Index) > 0 {
			report.Width = int(f.Index[0].Width)
			report.Height = int(f.Index[0].Height)
		}
		if f.PageCount() > 0 {
			d, err := f.PageDepth(0)
			if err != nil {
				return err
			}
			report.Depth = int(d)
		}
		report.Metadata = inspectMetadata{
			Title:     f.Metadata.Title,
			Author:    f.Metadata.Author,
			Publisher: f.Metadata.Publisher,
			Language:  f.Metadata.Language,
			Created:   f.Metadata.Created.Format("2006-01-02"),
		}
		for _, ch := range f.Chapters {
			report.Chapters = append(report.Chapters, inspectChapter{
				Name:  ch.Name,
				Start: int(ch.Start),
				End:   int(ch.End),
				Pages: int(ch.End) - int(ch.Start) + 1,
			})
		}

		if inspectPNG != "" {
			if err := exportPage(f, inspectPage, inspectPNG); err != nil {
				return err
			}
		}

		return cliout.Print(report)
	},
}

// exportPage decodes one page and writes it as a grayscale PNG.
func exportPage(f *xtc.File, pageNo int, path string) error {
	img, err := f.DecodePage(pageNo)
	if err != nil {
		return fmt.Errorf("decode page %d: %w", pageNo, err)
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(out, img); err != nil {
		out.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return out.Close()
}

func init() {
	inspectCmd.Flags().IntVar(&inspectPage, "page", 0, "page index to export (0-based)")
	inspectCmd.Flags().StringVar(&inspectPNG, "png", "", "write the selected page as a PNG to this path")

	rootCmd.AddCommand(inspectCmd)
}
