package hist_test

import (
	"context"
	"testing"

	"github.com/tcspc-go/tcspc/bucket"
	"github.com/tcspc-go/tcspc/event"
	"github.com/tcspc-go/tcspc/hist"
	"github.com/tcspc-go/tcspc/proc"
)

// recorder captures downstream events, deep-copying bucket-carrying ones
// so later mutations of the live array do not disturb the record.
type recorder struct {
	events  []any
	flushes int
}

func (r *recorder) Handle(_ context.Context, evt any) error {
	switch e := evt.(type) {
	case hist.HistogramArrayProgress[event.BinValue]:
		r.events = append(r.events, hist.HistogramArrayProgress[event.BinValue]{
			FilledCount: e.FilledCount,
			Array:       e.Array.Clone(),
		})
	case hist.HistogramArray[event.BinValue]:
		r.events = append(r.events, hist.HistogramArray[event.BinValue]{Array: e.Array.Clone()})
	case hist.ConcludingHistogramArray[event.BinValue]:
		r.events = append(r.events, hist.ConcludingHistogramArray[event.BinValue]{Array: e.Array.Clone()})
	default:
		r.events = append(r.events, evt)
	}
	return nil
}

func (r *recorder) Flush(context.Context) error {
	r.flushes++
	return nil
}

func cluster(bins ...event.BinIndex) event.BinIncrementCluster {
	return event.BinIncrementCluster{Bins: bins}
}

func wantArray(t *testing.T, got bucket.Bucket[event.BinValue], want []event.BinValue) {
	t.Helper()
	if !bucket.Equal(got, bucket.Of(want)) {
		t.Fatalf("array = %v, want %v", got.Data(), want)
	}
}

func newScan(t *testing.T, policy hist.Policy, down proc.Processor) *hist.ScanHistograms[event.BinValue] {
	t.Helper()
	return hist.NewScanHistograms[event.BinValue](
		bucket.NewFreshSource[event.BinValue](), 2, 2, 3, policy, nil, down)
}

func TestScanAccumulatesAcrossScans(t *testing.T) {
	down := &recorder{}
	s := newScan(t, hist.Policy{}, down)
	ctx := t.Context()

	for _, c := range []event.BinIncrementCluster{
		cluster(0, 1), cluster(1), // scan 0
		cluster(0), cluster(1, 1), // scan 1
	} {
		if err := s.Handle(ctx, c); err != nil {
			t.Fatal(err)
		}
	}

	if len(down.events) != 6 {
		t.Fatalf("got %d events, want 6 (4 progress + 2 scan arrays)", len(down.events))
	}
	scan0 := down.events[2].(hist.HistogramArray[event.BinValue])
	wantArray(t, scan0.Array, []event.BinValue{1, 1, 0, 1})
	scan1 := down.events[5].(hist.HistogramArray[event.BinValue])
	wantArray(t, scan1.Array, []event.BinValue{2, 1, 0, 3})
}

func TestScanProgressFilledCount(t *testing.T) {
	down := &recorder{}
	s := newScan(t, hist.Policy{}, down)
	ctx := t.Context()

	if err := s.Handle(ctx, cluster(0)); err != nil {
		t.Fatal(err)
	}
	p := down.events[0].(hist.HistogramArrayProgress[event.BinValue])
	if p.FilledCount != 2 {
		t.Fatalf("first progress filled = %d, want 2", p.FilledCount)
	}
	if err := s.Handle(ctx, cluster(1)); err != nil {
		t.Fatal(err)
	}
	p = down.events[1].(hist.HistogramArrayProgress[event.BinValue])
	if p.FilledCount != 4 {
		t.Fatalf("second progress filled = %d, want 4", p.FilledCount)
	}
}

func TestScanSaturateWarnsOncePerRound(t *testing.T) {
	down := &recorder{}
	s := newScan(t, hist.Policy{Overflow: hist.SaturateOnOverflow}, down)
	ctx := t.Context()

	if err := s.Handle(ctx, cluster(0, 0, 0, 0, 0, 1, 1, 1, 1)); err != nil {
		t.Fatal(err)
	}
	if len(down.events) != 2 {
		t.Fatalf("got %d events, want warning + progress", len(down.events))
	}
	if _, ok := down.events[0].(event.Warning); !ok {
		t.Fatalf("first event = %T, want Warning", down.events[0])
	}
	p := down.events[1].(hist.HistogramArrayProgress[event.BinValue])
	if p.FilledCount != 2 {
		t.Fatalf("progress filled = %d, want 2", p.FilledCount)
	}
	wantArray(t, p.Array, []event.BinValue{3, 3, 0, 0})

	// Saturating again in the same round must not emit another warning.
	if err := s.Handle(ctx, cluster(0, 0, 1, 1, 1, 1)); err != nil {
		t.Fatal(err)
	}
	p = down.events[2].(hist.HistogramArrayProgress[event.BinValue])
	if p.FilledCount != 4 {
		t.Fatalf("progress filled = %d, want 4", p.FilledCount)
	}
	wantArray(t, p.Array, []event.BinValue{3, 3, 2, 3})
	arr := down.events[3].(hist.HistogramArray[event.BinValue])
	wantArray(t, arr.Array, []event.BinValue{3, 3, 2, 3})
	for _, evt := range down.events[2:] {
		if _, ok := evt.(event.Warning); ok {
			t.Fatal("second saturation emitted a second warning")
		}
	}
}

func TestScanResetOnOverflowEmitsConcluding(t *testing.T) {
	down := &recorder{}
	s := newScan(t, hist.Policy{
		Overflow:       hist.ResetOnOverflow,
		EmitConcluding: true,
	}, down)
	ctx := t.Context()

	// Complete scan 0 with [3 0 3 0].
	if err := s.Handle(ctx, cluster(0, 0, 0)); err != nil {
		t.Fatal(err)
	}
	if err := s.Handle(ctx, cluster(0, 0, 0)); err != nil {
		t.Fatal(err)
	}
	down.events = nil

	// Overflows element 0 in scan 1: round concludes, cluster reapplies
	// onto a fresh array.
	if err := s.Handle(ctx, cluster(0, 0, 0, 1, 1)); err != nil {
		t.Fatal(err)
	}
	if len(down.events) != 2 {
		t.Fatalf("got %d events, want concluding + progress", len(down.events))
	}
	concluding := down.events[0].(hist.ConcludingHistogramArray[event.BinValue])
	wantArray(t, concluding.Array, []event.BinValue{3, 0, 3, 0})
	p := down.events[1].(hist.HistogramArrayProgress[event.BinValue])
	if p.FilledCount != 2 {
		t.Fatalf("progress filled = %d, want 2", p.FilledCount)
	}
	wantArray(t, p.Array, []event.BinValue{3, 2, 0, 0})
}

func TestScanResetOnOverflowFirstScanIsFatal(t *testing.T) {
	down := &recorder{}
	s := newScan(t, hist.Policy{
		Overflow:       hist.ResetOnOverflow,
		EmitConcluding: true,
	}, down)

	err := s.Handle(t.Context(), cluster(0, 0, 0, 0))
	if !proc.IsOverflow(err) {
		t.Fatalf("got %v, want overflow error", err)
	}
}

func TestScanStopOnOverflowConcludesFlushesEnds(t *testing.T) {
	down := &recorder{}
	s := newScan(t, hist.Policy{
		Overflow:       hist.StopOnOverflow,
		EmitConcluding: true,
	}, down)

	err := s.Handle(t.Context(), cluster(0, 0, 0, 0, 0))
	if !proc.IsEndOfProcessing(err) {
		t.Fatalf("got %v, want end of processing", err)
	}
	if len(down.events) != 1 {
		t.Fatalf("got %d events, want one concluding array", len(down.events))
	}
	concluding := down.events[0].(hist.ConcludingHistogramArray[event.BinValue])
	wantArray(t, concluding.Array, []event.BinValue{0, 0, 0, 0})
	if down.flushes != 1 {
		t.Fatalf("downstream flushed %d times, want 1", down.flushes)
	}
}

func TestScanResetEventRollsBackPartialScan(t *testing.T) {
	down := &recorder{}
	type resetEvent struct{}
	s := hist.NewScanHistograms[event.BinValue](
		bucket.NewFreshSource[event.BinValue](), 2, 2, 3,
		hist.Policy{EmitConcluding: true},
		func(evt any) bool { _, ok := evt.(resetEvent); return ok },
		down)
	ctx := t.Context()

	// Scan 0 complete, scan 1 partial.
	for _, c := range []event.BinIncrementCluster{
		cluster(0), cluster(1), cluster(0, 1),
	} {
		if err := s.Handle(ctx, c); err != nil {
			t.Fatal(err)
		}
	}
	down.events = nil

	if err := s.Handle(ctx, resetEvent{}); err != nil {
		t.Fatal(err)
	}
	if len(down.events) != 1 {
		t.Fatalf("got %d events, want one concluding array", len(down.events))
	}
	concluding := down.events[0].(hist.ConcludingHistogramArray[event.BinValue])
	// The partial scan's cluster(0, 1) on element 0 is rolled back;
	// every element reflects exactly one completed scan.
	wantArray(t, concluding.Array, []event.BinValue{1, 0, 0, 1})
}

func TestScanResetAfterScanStartsFreshRounds(t *testing.T) {
	down := &recorder{}
	s := newScan(t, hist.Policy{
		ResetAfterScan: true,
		EmitConcluding: true,
	}, down)
	ctx := t.Context()

	for _, c := range []event.BinIncrementCluster{
		cluster(0), cluster(1), cluster(0, 0), cluster(1, 1),
	} {
		if err := s.Handle(ctx, c); err != nil {
			t.Fatal(err)
		}
	}

	var concluded [][]event.BinValue
	for _, evt := range down.events {
		if c, ok := evt.(hist.ConcludingHistogramArray[event.BinValue]); ok {
			concluded = append(concluded, c.Array.Data())
		}
	}
	if len(concluded) != 2 {
		t.Fatalf("got %d concluding arrays, want 2", len(concluded))
	}
	wantArray(t, bucket.Of(concluded[0]), []event.BinValue{1, 0, 0, 1})
	wantArray(t, bucket.Of(concluded[1]), []event.BinValue{2, 0, 0, 2})
}

func TestScanClearEveryScan(t *testing.T) {
	down := &recorder{}
	s := newScan(t, hist.Policy{ClearEveryScan: true}, down)
	ctx := t.Context()

	for _, c := range []event.BinIncrementCluster{
		cluster(0, 0), cluster(1), // scan 0
		cluster(0), cluster(1, 1), // scan 1
	} {
		if err := s.Handle(ctx, c); err != nil {
			t.Fatal(err)
		}
	}

	scan1 := down.events[5].(hist.HistogramArray[event.BinValue])
	// Each scan's array reflects only that scan's clusters.
	wantArray(t, scan1.Array, []event.BinValue{1, 0, 0, 2})
}

func TestScanFlushEmitsConcludingThenFlushes(t *testing.T) {
	down := &recorder{}
	s := newScan(t, hist.Policy{EmitConcluding: true}, down)
	ctx := t.Context()

	if err := s.Handle(ctx, cluster(0)); err != nil {
		t.Fatal(err)
	}
	if err := s.Handle(ctx, cluster(1)); err != nil {
		t.Fatal(err)
	}
	down.events = nil

	if err := s.Flush(ctx); err != nil {
		t.Fatal(err)
	}
	if len(down.events) != 1 {
		t.Fatalf("got %d events, want one concluding array", len(down.events))
	}
	concluding := down.events[0].(hist.ConcludingHistogramArray[event.BinValue])
	wantArray(t, concluding.Array, []event.BinValue{1, 0, 0, 1})
	if down.flushes != 1 {
		t.Fatalf("downstream flushed %d times, want 1", down.flushes)
	}
}

func TestScanPassesThroughUnrelatedEvents(t *testing.T) {
	down := &recorder{}
	s := newScan(t, hist.Policy{}, down)

	evt := event.TimeReached{AbsTime: 7}
	if err := s.Handle(t.Context(), evt); err != nil {
		t.Fatal(err)
	}
	if len(down.events) != 1 || down.events[0] != any(evt) {
		t.Fatalf("pass-through events = %v", down.events)
	}
}
