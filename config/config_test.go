package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tcspc-go/tcspc/config"
	"github.com/tcspc-go/tcspc/hist"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tcspc.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
run:
  pipeline: flim-scan
acquire:
  batch_size: 65536
buffer:
  capacity: 1024
histogram:
  num_elements: 256
  num_bins: 4096
  max_per_bin: 65535
  overflow: saturate
notify:
  redis_url: redis://localhost:6379
  timeout: 5s
metrics:
  listen: ":9090"
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Run.Pipeline != "flim-scan" {
		t.Fatalf("pipeline = %q", cfg.Run.Pipeline)
	}
	if cfg.Acquire.BatchSize != 65536 || cfg.Buffer.Capacity != 1024 {
		t.Fatalf("acquire/buffer = %+v %+v", cfg.Acquire, cfg.Buffer)
	}
	if cfg.Histogram.NumElements != 256 || cfg.Histogram.NumBins != 4096 {
		t.Fatalf("histogram = %+v", cfg.Histogram)
	}
	if cfg.Notify.Timeout.Duration != 5*time.Second {
		t.Fatalf("timeout = %v", cfg.Notify.Timeout)
	}

	p, err := cfg.Histogram.Policy()
	if err != nil {
		t.Fatal(err)
	}
	if p.Overflow != hist.SaturateOnOverflow {
		t.Fatalf("policy overflow = %v", p.Overflow)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "histogram:\n  num_bina: 12\n")
	if _, err := config.Load(path); err == nil {
		t.Fatal("unknown key accepted")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("missing file accepted")
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("TCSPC_TEST_URL", "redis://example:6379")
	path := writeConfig(t, "notify:\n  redis_url: ${TCSPC_TEST_URL}\n  channel: ${TCSPC_TEST_CHANNEL:-tcspc:warnings}\n")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Notify.RedisURL != "redis://example:6379" {
		t.Fatalf("redis_url = %q", cfg.Notify.RedisURL)
	}
	if cfg.Notify.Channel != "tcspc:warnings" {
		t.Fatalf("channel = %q, want fallback value", cfg.Notify.Channel)
	}
}

func TestPolicyValidation(t *testing.T) {
	bad := config.HistogramConfig{Overflow: "explode"}
	if _, err := bad.Policy(); err == nil {
		t.Fatal("invalid overflow accepted")
	}
	incompatible := config.HistogramConfig{Overflow: "saturate", EmitConcluding: true}
	if _, err := incompatible.Policy(); err == nil {
		t.Fatal("saturate + emit_concluding accepted")
	}
}
