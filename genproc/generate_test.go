package genproc_test

import (
	"context"
	"testing"

	"github.com/tcspc-go/tcspc/event"
	"github.com/tcspc-go/tcspc/genproc"
)

type sink struct {
	events  []any
	flushes int
}

func (s *sink) Handle(_ context.Context, evt any) error {
	s.events = append(s.events, evt)
	return nil
}

func (s *sink) Flush(context.Context) error {
	s.flushes++
	return nil
}

func timeOf(evt any) (event.AbsTime, bool) {
	switch e := evt.(type) {
	case event.Marker:
		return e.AbsTime, true
	case event.TimeReached:
		return e.AbsTime, true
	}
	return 0, false
}

func isMarker(evt any) bool { _, ok := evt.(event.Marker); return ok }

func tick(abstime event.AbsTime) any { return event.TimeReached{AbsTime: abstime} }

func newOneShot(down *sink, delay event.AbsTime) *genproc.Generate {
	return genproc.NewGenerate(isMarker, timeOf,
		&genproc.OneShotTimingGenerator{Delay: delay}, tick, down)
}

func TestGenerateOneShotEmitsAfterDelay(t *testing.T) {
	down := &sink{}
	g := newOneShot(down, 10)
	ctx := t.Context()

	if err := g.Handle(ctx, event.Marker{AbsTime: 42}); err != nil {
		t.Fatal(err)
	}
	// An event just before the scheduled time does not release it.
	if err := g.Handle(ctx, event.TimeReached{AbsTime: 51}); err != nil {
		t.Fatal(err)
	}
	// An event at the scheduled time does, and the generated event comes
	// first.
	if err := g.Handle(ctx, event.TimeReached{AbsTime: 52}); err != nil {
		t.Fatal(err)
	}

	want := []any{
		event.Marker{AbsTime: 42},
		event.TimeReached{AbsTime: 51},
		event.TimeReached{AbsTime: 52}, // generated
		event.TimeReached{AbsTime: 52}, // input
	}
	if len(down.events) != len(want) {
		t.Fatalf("events = %v, want %v", down.events, want)
	}
	for i := range want {
		if down.events[i] != want[i] {
			t.Fatalf("events = %v, want %v", down.events, want)
		}
	}
}

func TestGenerateRetriggerSupersedesPending(t *testing.T) {
	down := &sink{}
	g := newOneShot(down, 10)
	ctx := t.Context()

	if err := g.Handle(ctx, event.Marker{AbsTime: 42}); err != nil {
		t.Fatal(err)
	}
	// A trigger at exactly the scheduled time supersedes the pending
	// output.
	if err := g.Handle(ctx, event.Marker{AbsTime: 52}); err != nil {
		t.Fatal(err)
	}
	if err := g.Handle(ctx, event.TimeReached{AbsTime: 62}); err != nil {
		t.Fatal(err)
	}

	want := []any{
		event.Marker{AbsTime: 42},
		event.Marker{AbsTime: 52},
		event.TimeReached{AbsTime: 62}, // generated from the retrigger
		event.TimeReached{AbsTime: 62}, // input
	}
	if len(down.events) != len(want) {
		t.Fatalf("events = %v, want %v", down.events, want)
	}
	for i := range want {
		if down.events[i] != want[i] {
			t.Fatalf("events = %v, want %v", down.events, want)
		}
	}
}

func TestGenerateLinearEmitsCountOutputs(t *testing.T) {
	down := &sink{}
	g := genproc.NewGenerate(isMarker, timeOf,
		&genproc.LinearTimingGenerator{Delay: 5, Interval: 3, Count: 2},
		tick, down)
	ctx := t.Context()

	if err := g.Handle(ctx, event.Marker{AbsTime: 100}); err != nil {
		t.Fatal(err)
	}
	if err := g.Handle(ctx, event.TimeReached{AbsTime: 200}); err != nil {
		t.Fatal(err)
	}

	want := []any{
		event.Marker{AbsTime: 100},
		event.TimeReached{AbsTime: 105},
		event.TimeReached{AbsTime: 108},
		event.TimeReached{AbsTime: 200},
	}
	if len(down.events) != len(want) {
		t.Fatalf("events = %v, want %v", down.events, want)
	}
	for i := range want {
		if down.events[i] != want[i] {
			t.Fatalf("events = %v, want %v", down.events, want)
		}
	}
}

func TestGenerateDropsPendingOnFlush(t *testing.T) {
	down := &sink{}
	g := newOneShot(down, 10)

	if err := g.Handle(t.Context(), event.Marker{AbsTime: 42}); err != nil {
		t.Fatal(err)
	}
	if err := g.Flush(t.Context()); err != nil {
		t.Fatal(err)
	}
	if len(down.events) != 1 {
		t.Fatalf("events = %v, want only the trigger", down.events)
	}
	if down.flushes != 1 {
		t.Fatalf("flushes = %d, want 1", down.flushes)
	}
}
