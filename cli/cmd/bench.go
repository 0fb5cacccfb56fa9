package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/tcspc-go/tcspc/bucket"
	"github.com/tcspc-go/tcspc/cli/render"
	"github.com/tcspc-go/tcspc/config"
	"github.com/tcspc-go/tcspc/event"
	"github.com/tcspc-go/tcspc/hist"
	"github.com/tcspc-go/tcspc/log"
	"github.com/tcspc-go/tcspc/metrics"
	"github.com/tcspc-go/tcspc/proc"
	"github.com/tcspc-go/tcspc/procs"
	"github.com/tcspc-go/tcspc/variant"
)

// BenchReport summarizes one benchmark run.
type BenchReport struct {
	RunID          string  `json:"run_id" yaml:"run_id"`
	Pipeline       string  `json:"pipeline" yaml:"pipeline"`
	Clusters       int64   `json:"clusters" yaml:"clusters"`
	Increments     int64   `json:"increments" yaml:"increments"`
	DurationMs     int64   `json:"duration_ms" yaml:"duration_ms"`
	ClustersPerSec float64 `json:"clusters_per_sec" yaml:"clusters_per_sec"`
}

// BenchCommand builds and drives a representative histogramming
// pipeline with synthetic clusters and reports throughput.
func BenchCommand() *cli.Command {
	return &cli.Command{
		Name:  "bench",
		Usage: "Drive a synthetic cluster stream through scan_histograms and report throughput",
		Flags: []cli.Flag{
			ConfigFlag,
			FormatFlag,
			&cli.Int64Flag{Name: "clusters", Value: 1_000_000, Usage: "Number of synthetic clusters to feed"},
			&cli.IntFlag{Name: "elements", Value: 256, Usage: "Histogram array elements (overrides config)"},
			&cli.IntFlag{Name: "bins", Value: 256, Usage: "Bins per element (overrides config)"},
			&cli.IntFlag{Name: "buffer", Usage: "Insert a cross-goroutine buffer of this capacity"},
		},
		Action: runBench,
	}
}

func runBench(c *cli.Context) error {
	cfg := &config.Config{}
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		cfg = loaded
	}

	format, err := render.ParseFormat(c.String("format"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if format == "" {
		format = render.DefaultFormat(os.Stdout)
	}

	numElements := c.Int("elements")
	numBins := c.Int("bins")
	if cfg.Histogram.NumElements > 0 && !c.IsSet("elements") {
		numElements = cfg.Histogram.NumElements
	}
	if cfg.Histogram.NumBins > 0 && !c.IsSet("bins") {
		numBins = cfg.Histogram.NumBins
	}
	policy, err := cfg.Histogram.Policy()
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	// The synthetic stream is open-ended, so default to a policy that
	// cannot fail the run mid-benchmark.
	if cfg.Histogram.Overflow == "" {
		policy.Overflow = hist.SaturateOnOverflow
	}
	maxPerBin := event.BinValue(0xFFFF)
	if cfg.Histogram.MaxPerBin > 0 {
		maxPerBin = event.BinValue(cfg.Histogram.MaxPerBin)
	}

	runID := uuid.NewString()
	logger := log.NewLogger(log.RunInfo{RunID: runID, Pipeline: cfg.Run.Pipeline})
	collector := metrics.NewCollector(runID)
	registry := prometheus.NewRegistry()
	if err := collector.Register(registry); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if cfg.Metrics.Listen != "" {
		go serveMetrics(cfg.Metrics.Listen, registry, logger)
	}

	scan := hist.NewScanHistograms[event.BinValue](
		bucket.NewRecyclingSource[event.BinValue](bucket.RecyclingSourceOptions{MaxOutstanding: 2}),
		numElements, numBins, maxPerBin, policy, nil, procs.NewNullSink())
	scan.SetObserver(collector)

	var head proc.Processor = scan
	var buffer *variant.Buffer
	capacity := c.Int("buffer")
	if capacity == 0 {
		capacity = cfg.Buffer.Capacity
	}
	if capacity > 0 {
		buffer = variant.NewBuffer(c.Context, capacity, scan)
		head = buffer
	}

	clusters := c.Int64("clusters")
	logger.Info("benchmark starting", map[string]any{
		"clusters": clusters,
		"elements": numElements,
		"bins":     numBins,
	})

	report, err := driveBench(c.Context, head, buffer == nil, clusters, numBins)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	report.RunID = runID
	report.Pipeline = cfg.Run.Pipeline

	logger.Info("benchmark finished", map[string]any{
		"clusters_per_sec": report.ClustersPerSec,
	})
	return render.Render(os.Stdout, format, report)
}

// driveBench feeds synthetic clusters and flushes, timing the whole
// stream. With singleThreaded set, the cluster buffer is reused between
// events; a buffered pipeline consumes events on another goroutine, so
// each cluster gets its own backing array there.
func driveBench(ctx context.Context, head proc.Processor, singleThreaded bool, clusters int64, numBins int) (*BenchReport, error) {
	// Deterministic linear congruential sequence over bin indices, with
	// a fixed fan-out of 8 increments per cluster.
	const fanOut = 8
	state := uint32(0x2545F491)
	scratch := make([]event.BinIndex, fanOut)

	start := time.Now()
	for i := int64(0); i < clusters; i++ {
		bins := scratch
		if !singleThreaded {
			bins = make([]event.BinIndex, fanOut)
		}
		for k := range bins {
			state = state*1664525 + 1013904223
			bins[k] = event.BinIndex(state % uint32(numBins))
		}
		if err := head.Handle(ctx, event.BinIncrementCluster{Bins: bins}); err != nil {
			if proc.IsEndOfProcessing(err) {
				break
			}
			return nil, err
		}
	}
	if err := head.Flush(ctx); err != nil && !proc.IsEndOfProcessing(err) {
		return nil, err
	}
	elapsed := time.Since(start)

	report := &BenchReport{
		Clusters:   clusters,
		Increments: clusters * fanOut,
		DurationMs: elapsed.Milliseconds(),
	}
	if elapsed > 0 {
		report.ClustersPerSec = float64(clusters) / elapsed.Seconds()
	}
	return report, nil
}

func serveMetrics(listen string, registry *prometheus.Registry, logger *log.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(listen, mux); err != nil {
		logger.Error("metrics endpoint failed", map[string]any{"error": fmt.Sprint(err)})
	}
}
