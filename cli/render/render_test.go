package render_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/tcspc-go/tcspc/cli/render"
)

type sample struct {
	RunID    string  `json:"run_id" yaml:"run_id"`
	Clusters int64   `json:"clusters" yaml:"clusters"`
	Rate     float64 `json:"rate" yaml:"rate"`
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]render.Format{
		"json":  render.FormatJSON,
		"TABLE": render.FormatTable,
		"yaml":  render.FormatYAML,
		"":      "",
	} {
		got, err := render.ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = (%q, %v), want %q", in, got, err, want)
		}
	}
	if _, err := render.ParseFormat("xml"); err == nil {
		t.Fatal("invalid format accepted")
	}
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	err := render.Render(&buf, render.FormatJSON, sample{RunID: "r", Clusters: 5, Rate: 1.5})
	if err != nil {
		t.Fatal(err)
	}
	var got sample
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.RunID != "r" || got.Clusters != 5 {
		t.Fatalf("round trip = %+v", got)
	}
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	err := render.Render(&buf, render.FormatTable, sample{RunID: "r", Clusters: 5})
	if err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "RUN_ID") {
		t.Fatalf("table missing field label: %q", out)
	}
	if !strings.Contains(out, "CLUSTERS") {
		t.Fatalf("table missing CLUSTERS: %q", out)
	}
}
