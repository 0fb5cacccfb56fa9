// Package genproc schedules synthetic timed events in response to
// trigger events: each trigger arms a timing pattern (one-shot or
// linear), and the scheduled events are interleaved into the stream as
// the abstime of subsequent input events passes their scheduled times.
package genproc

import (
	"context"

	"github.com/tcspc-go/tcspc/event"
	"github.com/tcspc-go/tcspc/proc"
)

// TimingGenerator produces the schedule of output times following a
// trigger. Peek returns the next scheduled time; Pop consumes it.
type TimingGenerator interface {
	Trigger(abstime event.AbsTime)
	Peek() (event.AbsTime, bool)
	Pop()
}

// OneShotTimingGenerator schedules a single output Delay after each
// trigger. Retriggering before the output was emitted reschedules it.
type OneShotTimingGenerator struct {
	Delay event.AbsTime

	next    event.AbsTime
	pending bool
}

func (g *OneShotTimingGenerator) Trigger(abstime event.AbsTime) {
	g.next = abstime + g.Delay
	g.pending = true
}

func (g *OneShotTimingGenerator) Peek() (event.AbsTime, bool) { return g.next, g.pending }

func (g *OneShotTimingGenerator) Pop() { g.pending = false }

// LinearTimingGenerator schedules Count outputs at Delay, Delay+Interval,
// Delay+2*Interval, ... after each trigger.
type LinearTimingGenerator struct {
	Delay    event.AbsTime
	Interval event.AbsTime
	Count    int

	next      event.AbsTime
	remaining int
}

func (g *LinearTimingGenerator) Trigger(abstime event.AbsTime) {
	g.next = abstime + g.Delay
	g.remaining = g.Count
}

func (g *LinearTimingGenerator) Peek() (event.AbsTime, bool) {
	return g.next, g.remaining > 0
}

func (g *LinearTimingGenerator) Pop() {
	g.remaining--
	g.next += g.Interval
}

// Generate interleaves generated events into the stream. isTrigger
// recognizes trigger events; timeOf extracts the abstime of any timed
// event (returning false for untimed ones, which pass through without
// advancing the schedule); makeEvent builds the output event for a
// scheduled time.
//
// Scheduled events whose time has been reached are emitted before the
// input event that reached it. A new trigger cancels anything still
// scheduled at or after its own abstime. Pending events that no input
// abstime ever reaches are dropped at flush: without a later timestamp
// there is no proof their time was reached.
type Generate struct {
	isTrigger  func(evt any) bool
	timeOf     func(evt any) (event.AbsTime, bool)
	makeEvent  func(abstime event.AbsTime) any
	gen        TimingGenerator
	downstream proc.Processor
}

func NewGenerate(isTrigger func(evt any) bool, timeOf func(evt any) (event.AbsTime, bool), gen TimingGenerator, makeEvent func(abstime event.AbsTime) any, downstream proc.Processor) *Generate {
	return &Generate{
		isTrigger:  isTrigger,
		timeOf:     timeOf,
		makeEvent:  makeEvent,
		gen:        gen,
		downstream: downstream,
	}
}

// emitDue emits scheduled events up to limit. A trigger at exactly a
// scheduled time supersedes it, so triggers use strict comparison.
func (g *Generate) emitDue(ctx context.Context, limit event.AbsTime, strict bool) error {
	for {
		next, ok := g.gen.Peek()
		if !ok || next > limit || (strict && next == limit) {
			return nil
		}
		g.gen.Pop()
		if err := g.downstream.Handle(ctx, g.makeEvent(next)); err != nil {
			return err
		}
	}
}

func (g *Generate) Handle(ctx context.Context, evt any) error {
	if t, timed := g.timeOf(evt); timed {
		if err := g.emitDue(ctx, t, g.isTrigger(evt)); err != nil {
			return err
		}
		if g.isTrigger(evt) {
			g.gen.Trigger(t)
		}
	}
	return g.downstream.Handle(ctx, evt)
}

func (g *Generate) Flush(ctx context.Context) error { return g.downstream.Flush(ctx) }
