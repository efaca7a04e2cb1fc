package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/inkpress/internal/cliout"
	"github.com/jackzampolin/inkpress/internal/config"
	"github.com/jackzampolin/inkpress/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	debug        bool

	cfgManager *config.Manager
)

var rootCmd = &cobra.Command{
	Use:   "inkpress",
	Short: "Render book bundles into paginated XTC containers",
	Long: `Inkpress renders parsed book bundles into fixed-geometry page
bitmaps and packs them into the XTC container format e-ink readers load.

The pipeline includes:
  - Chapter layout through mutool at exact device geometry
  - Page composition: contrast, dithering, header/footer overlays
  - Table of contents page generation
  - Single-pass XTC container serialization`,
	Version: version.GitRelease,
}

// newLogger builds the logger commands share. --debug widens the level.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.inkpress/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "inkpress home directory (default: ~/.inkpress)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)
	rootCmd.PersistentFlags().BoolVar(
		&debug, "debug", false, "enable debug logging",
	)

	// Set output format and load config before any command runs
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cliout.SetFormat(outputFormat)
		m, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		cfgManager = m
		return nil
	}

	rootCmd.AddCommand(versionCmd)
}
