// Package config loads pipeline configuration from a tcspc.yaml file.
// All values are optional and act as defaults for CLI flags; flags
// always override config values.
package config

import (
	"fmt"
	"time"

	"github.com/tcspc-go/tcspc/event"
	"github.com/tcspc-go/tcspc/hist"
)

// Config represents a tcspc.yaml configuration file.
type Config struct {
	Run       RunConfig             `yaml:"run"`
	DataTypes event.CustomDataTypes `yaml:"data_types"`
	Acquire   AcquireConfig         `yaml:"acquire"`
	Buffer    BufferConfig          `yaml:"buffer"`
	Histogram HistogramConfig       `yaml:"histogram"`
	Export    ExportConfig          `yaml:"export"`
	Notify    NotifyConfig          `yaml:"notify"`
	Metrics   MetricsConfig         `yaml:"metrics"`
}

// RunConfig identifies a pipeline run.
type RunConfig struct {
	// Pipeline is a human-readable pipeline name used in logs and
	// exported rows.
	Pipeline string `yaml:"pipeline"`
}

// AcquireConfig holds acquisition defaults.
type AcquireConfig struct {
	BatchSize int `yaml:"batch_size"`
}

// BufferConfig holds the capacity of the cross-goroutine event buffer.
// Zero disables buffering (single-threaded composition).
type BufferConfig struct {
	Capacity int `yaml:"capacity"`
}

// HistogramConfig holds histogramming defaults from the config file.
type HistogramConfig struct {
	NumElements      int    `yaml:"num_elements"`
	NumBins          int    `yaml:"num_bins"`
	MaxPerBin        uint64 `yaml:"max_per_bin"`
	Overflow         string `yaml:"overflow"` // error, stop, saturate, reset
	EmitConcluding   bool   `yaml:"emit_concluding"`
	ResetAfterScan   bool   `yaml:"reset_after_scan"`
	ClearEveryScan   bool   `yaml:"clear_every_scan"`
	NoClearNewBucket bool   `yaml:"no_clear_new_bucket"`
}

// Policy translates the config fields into a hist.Policy.
func (c HistogramConfig) Policy() (hist.Policy, error) {
	p := hist.Policy{
		EmitConcluding:   c.EmitConcluding,
		ResetAfterScan:   c.ResetAfterScan,
		ClearEveryScan:   c.ClearEveryScan,
		NoClearNewBucket: c.NoClearNewBucket,
	}
	switch c.Overflow {
	case "", "error":
		p.Overflow = hist.ErrorOnOverflow
	case "stop":
		p.Overflow = hist.StopOnOverflow
	case "saturate":
		p.Overflow = hist.SaturateOnOverflow
	case "reset":
		p.Overflow = hist.ResetOnOverflow
	default:
		return hist.Policy{}, fmt.Errorf("invalid overflow policy: %q (must be error, stop, saturate, or reset)", c.Overflow)
	}
	if p.EmitConcluding && p.Overflow == hist.SaturateOnOverflow {
		return hist.Policy{}, fmt.Errorf("emit_concluding cannot be combined with the saturate overflow policy")
	}
	return p, nil
}

// ExportConfig holds histogram export defaults.
type ExportConfig struct {
	// ParquetPath, when set, writes one parquet row per emitted
	// histogram array to this file.
	ParquetPath string `yaml:"parquet_path"`
	// S3 uploads the binary output stream to object storage.
	S3 S3ExportConfig `yaml:"s3"`
}

// S3ExportConfig mirrors iostream.S3Config for the config file.
type S3ExportConfig struct {
	Bucket      string `yaml:"bucket"`
	Key         string `yaml:"key"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// NotifyConfig holds warning-notification defaults.
type NotifyConfig struct {
	// RedisURL enables publishing warning events to Redis pub/sub.
	// Format: redis://[:password@]host:port[/db]
	RedisURL string   `yaml:"redis_url"`
	Channel  string   `yaml:"channel,omitempty"`
	Timeout  Duration `yaml:"timeout,omitempty"`
	Retries  *int     `yaml:"retries,omitempty"`
}

// MetricsConfig holds metrics-export defaults.
type MetricsConfig struct {
	// Listen is the address to serve the metrics endpoint on (e.g.
	// ":9090"). Empty disables the endpoint.
	Listen string `yaml:"listen"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML renders the duration back to its string form.
func (d Duration) MarshalYAML() (any, error) {
	return d.Duration.String(), nil
}
