package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/inkpress/internal/cliout"
	"github.com/jackzampolin/inkpress/version"
)

type versionInfo struct {
	Version string `yaml:"version" json:"version"`
	Go      string `yaml:"go" json:"go"`
	Commit  string `yaml:"commit" json:"commit"`
	Date    string `yaml:"date" json:"date"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cliout.Print(versionInfo{
			Version: version.GitRelease,
			Go:      version.GoInfo,
			Commit:  version.GitCommit,
			Date:    version.GitCommitDate,
		})
	},
}
