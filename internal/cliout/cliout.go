// Package cliout renders command results to stdout in the format
// selected by the root --output flag.
package cliout

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Format selects the serialization used for command output.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// current is set once by the root command before any subcommand runs.
var current = FormatYAML

// SetFormat sets the process-wide output format. Unknown names fall
// back to YAML.
func SetFormat(format string) {
	switch format {
	case "json":
		current = FormatJSON
	default:
		current = FormatYAML
	}
}

// CurrentFormat returns the active output format.
func CurrentFormat() Format {
	return current
}

// Print writes data to stdout in the active format.
func Print(data any) error {
	return Fprint(os.Stdout, current, data)
}

// Fprint writes data to w in the given format.
func Fprint(w io.Writer, format Format, data any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(data)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}
