// Package main provides the tcspcbench CLI entrypoint: a benchmark and
// inspection harness over the pipeline library.
//
// Usage:
//
//	tcspcbench <command> [options]
package main

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/tcspc-go/tcspc/cli/cmd"
)

// commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	app := &cli.App{
		Name:    "tcspcbench",
		Usage:   "Benchmark and inspect TCSPC processing pipelines",
		Version: cmd.Version,
		Commands: []*cli.Command{
			cmd.BenchCommand(),
			cmd.InspectCommand(),
			cmd.VersionCommand(commit),
		},
	}

	if err := app.Run(os.Args); err != nil {
		os.Exit(1)
	}
}
