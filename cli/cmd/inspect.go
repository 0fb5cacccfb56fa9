package cmd

import (
	"context"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/tcspc-go/tcspc/bucket"
	"github.com/tcspc-go/tcspc/cli/render"
	"github.com/tcspc-go/tcspc/cli/tui"
	"github.com/tcspc-go/tcspc/config"
	"github.com/tcspc-go/tcspc/event"
	"github.com/tcspc-go/tcspc/hist"
	"github.com/tcspc-go/tcspc/proc"
	"github.com/tcspc-go/tcspc/procs"
	"github.com/tcspc-go/tcspc/variant"
)

// InspectView is the rendered shape of a composed pipeline.
type InspectView struct {
	Pipeline string   `json:"pipeline" yaml:"pipeline"`
	Nodes    []string `json:"nodes" yaml:"nodes"`
}

// InspectCommand composes the configured pipeline and renders its
// processor graph, optionally in an interactive TUI.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "Show the processor graph of the configured pipeline",
		Flags: []cli.Flag{ConfigFlag, FormatFlag, TUIFlag},
		Action: func(c *cli.Context) error {
			cfg := &config.Config{}
			if path := c.String("config"); path != "" {
				loaded, err := config.Load(path)
				if err != nil {
					return cli.Exit(err.Error(), 1)
				}
				cfg = loaded
			}

			view, err := composeForInspection(c.Context, cfg)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}

			if c.Bool("tui") {
				return tui.RunInspect(tui.InspectData{
					Pipeline: view.Pipeline,
					Nodes:    view.Nodes,
				})
			}

			format, err := render.ParseFormat(c.String("format"))
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			if format == "" {
				format = render.DefaultFormat(os.Stdout)
			}
			return render.Render(os.Stdout, format, view)
		},
	}
}

// composeForInspection builds the configured pipeline far enough to walk
// its graph, without driving any data through it.
func composeForInspection(ctx context.Context, cfg *config.Config) (*InspectView, error) {
	policy, err := cfg.Histogram.Policy()
	if err != nil {
		return nil, err
	}
	numElements, numBins := cfg.Histogram.NumElements, cfg.Histogram.NumBins
	if numElements == 0 {
		numElements = 256
	}
	if numBins == 0 {
		numBins = 256
	}

	scan := hist.NewScanHistograms[event.BinValue](
		bucket.NewFreshSource[event.BinValue](),
		numElements, numBins, event.BinValue(0xFFFF), policy, nil,
		procs.NewNullSink())

	var entry proc.Introspectable = scan
	if cfg.Buffer.Capacity > 0 {
		// The buffer spawns its consumer immediately; shut it down again
		// once the graph has been walked.
		buffer := variant.NewBuffer(ctx, cfg.Buffer.Capacity, scan)
		defer func() { _ = buffer.Flush(ctx) }()
		entry = buffer
	}

	graph := entry.IntrospectGraph()
	view := &InspectView{Pipeline: cfg.Run.Pipeline}
	for _, node := range graph.Nodes {
		view.Nodes = append(view.Nodes, node.Name)
	}
	return view, nil
}
