package hist_test

import (
	"context"
	"testing"

	"github.com/tcspc-go/tcspc/binning"
	"github.com/tcspc-go/tcspc/bucket"
	"github.com/tcspc-go/tcspc/decode"
	"github.com/tcspc-go/tcspc/event"
	"github.com/tcspc-go/tcspc/hist"
)

// Glue from MapToDatapoints' typed sink onto MapToBins' uniform Handle.
type datapointsToBins struct {
	bins *binning.MapToBins[event.DiffTime, event.BinIndex]
}

func (g datapointsToBins) HandleDatapoint(ctx context.Context, d event.DiffTime) error {
	return g.bins.Handle(ctx, d)
}

func (g datapointsToBins) PassThrough(ctx context.Context, evt any) error {
	return g.bins.Handle(ctx, evt)
}

func (g datapointsToBins) Flush(ctx context.Context) error { return g.bins.Flush(ctx) }

// Glue from BatchBinIncrements' cluster sink onto ScanHistograms.
type clustersToScan struct {
	scan *hist.ScanHistograms[event.BinValue]
}

func (g clustersToScan) HandleCluster(ctx context.Context, bins []event.BinIndex) error {
	return g.scan.Handle(ctx, event.BinIncrementCluster{Bins: bins})
}

func (g clustersToScan) PassThrough(ctx context.Context, evt any) error {
	return g.scan.Handle(ctx, evt)
}

func (g clustersToScan) Flush(ctx context.Context) error { return g.scan.Flush(ctx) }

// Device records in, histogram arrays out: the decoder, the binning
// stages, and the scan accumulator composed the way a real pipeline
// wires them.
func TestDecodeToHistogramPipeline(t *testing.T) {
	down := &recorder{}
	scan := hist.NewScanHistograms[event.BinValue](
		bucket.NewFreshSource[event.BinValue](), 1, 4, 0xFFFF,
		hist.Policy{}, nil, down)

	isStart := func(evt any) bool {
		m, ok := evt.(event.Marker)
		return ok && m.Channel == 0
	}
	isStop := func(evt any) bool {
		m, ok := evt.(event.Marker)
		return ok && m.Channel == 1
	}
	brackets := binning.NewBatchBinIncrements[event.BinIndex](isStart, isStop, clustersToScan{scan})

	// The 2 most significant of the 12 ADC bits select one of 4 bins.
	mapper := binning.NewPowerOf2BinMapper[event.DiffTime, event.BinIndex](12, 2, false)
	toBins := binning.NewMapToBins[event.DiffTime, event.BinIndex](mapper, brackets)
	toDatapoints := binning.NewMapToDatapoints(
		binning.DifftimeDataMapper(), datapointsToBins{toBins})
	dec := decode.NewDecodeBHSPC(toDatapoints)
	ctx := t.Context()

	records := []decode.BHSPCRecord{
		decode.MakeBHSPCMarker(10, 1, false), // start bracket
		decode.MakeBHSPCPhoton(11, 0, 0, false),
		decode.MakeBHSPCPhoton(12, 1024, 0, false),
		decode.MakeBHSPCPhoton(13, 4095, 0, false),
		decode.MakeBHSPCPhoton(14, 1100, 0, false),
		decode.MakeBHSPCMarker(15, 2, false), // stop bracket
	}
	for _, r := range records {
		if err := dec.Handle(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	if err := dec.Flush(ctx); err != nil {
		t.Fatal(err)
	}

	var arrays []hist.HistogramArray[event.BinValue]
	for _, evt := range down.events {
		if a, ok := evt.(hist.HistogramArray[event.BinValue]); ok {
			arrays = append(arrays, a)
		}
	}
	if len(arrays) != 1 {
		t.Fatalf("got %d scan arrays, want 1", len(arrays))
	}
	wantArray(t, arrays[0].Array, []event.BinValue{1, 2, 0, 1})
}
