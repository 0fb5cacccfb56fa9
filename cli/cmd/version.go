package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// Version is the library version reported by the CLI.
const Version = "0.2.0"

// VersionCommand reports the binary version and build commit.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print version information",
		Action: func(*cli.Context) error {
			if commit == "" {
				commit = "unknown"
			}
			fmt.Printf("tcspcbench %s (commit: %s)\n", Version, commit)
			return nil
		},
	}
}
