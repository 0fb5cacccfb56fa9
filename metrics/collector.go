// Package metrics exposes per-run pipeline counters as Prometheus
// metrics. The Collector is a leaf with no pipeline dependencies; the
// histogram engine reports into it through the hist.Observer interface.
// The remaining counters change only through direct IncWarning and
// BucketAcquired calls, which the acquisition and CLI packages do not make.
// All methods are nil-receiver safe, so instrumentation can be left
// unwired in pipelines that do not export metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector accumulates pipeline counters for one run.
type Collector struct {
	incrementsTotal prometheus.Counter
	overflowsTotal  *prometheus.CounterVec
	scansTotal      prometheus.Counter
	warningsTotal   prometheus.Counter
	bucketsTotal    prometheus.Counter
	bytesTotal      prometheus.Counter
}

// NewCollector creates a Collector whose metrics carry the run id as a
// constant label.
func NewCollector(runID string) *Collector {
	constLabels := prometheus.Labels{"run_id": runID}
	return &Collector{
		incrementsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "tcspc_histogram_increments_total",
			Help:        "Bin increments applied to histograms.",
			ConstLabels: constLabels,
		}),
		overflowsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "tcspc_histogram_overflows_total",
			Help:        "Bin-overflow occurrences, by the policy that handled them.",
			ConstLabels: constLabels,
		}, []string{"policy"}),
		scansTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "tcspc_histogram_scans_total",
			Help:        "Completed scans over histogram arrays.",
			ConstLabels: constLabels,
		}),
		warningsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "tcspc_warnings_total",
			Help:        "Warning events observed in the pipeline.",
			ConstLabels: constLabels,
		}),
		bucketsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "tcspc_acquired_buckets_total",
			Help:        "Buckets emitted by acquisition.",
			ConstLabels: constLabels,
		}),
		bytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "tcspc_acquired_bytes_total",
			Help:        "Payload bytes emitted by acquisition.",
			ConstLabels: constLabels,
		}),
	}
}

// Register registers all metrics with reg.
func (c *Collector) Register(reg prometheus.Registerer) error {
	if c == nil {
		return nil
	}
	for _, col := range []prometheus.Collector{
		c.incrementsTotal, c.overflowsTotal, c.scansTotal,
		c.warningsTotal, c.bucketsTotal, c.bytesTotal,
	} {
		if err := reg.Register(col); err != nil {
			return err
		}
	}
	return nil
}

// IncrementsApplied records n applied bin increments.
func (c *Collector) IncrementsApplied(n int) {
	if c == nil {
		return
	}
	c.incrementsTotal.Add(float64(n))
}

// OverflowHandled records one bin overflow handled by the named policy
// behavior.
func (c *Collector) OverflowHandled(behavior string) {
	if c == nil {
		return
	}
	c.overflowsTotal.WithLabelValues(behavior).Inc()
}

// ScanCompleted records one completed scan.
func (c *Collector) ScanCompleted() {
	if c == nil {
		return
	}
	c.scansTotal.Inc()
}

// IncWarning records one warning event.
func (c *Collector) IncWarning() {
	if c == nil {
		return
	}
	c.warningsTotal.Inc()
}

// BucketAcquired records one acquired bucket of the given payload size.
func (c *Collector) BucketAcquired(sizeBytes int) {
	if c == nil {
		return
	}
	c.bucketsTotal.Inc()
	c.bytesTotal.Add(float64(sizeBytes))
}
