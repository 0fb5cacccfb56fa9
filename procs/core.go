// Package procs implements the core, event-type-agnostic processors:
// sinks and sources, routing (gate/select/stop), stream surgery
// (prepend/append/split), and bucket batching/unbatching.
package procs

import (
	"context"
	"fmt"

	"github.com/tcspc-go/tcspc/log"
	"github.com/tcspc-go/tcspc/proc"
	"github.com/tcspc-go/tcspc/typelist"
)

// NullSink discards every event it receives and does nothing on flush.
type NullSink struct{}

// NewNullSink returns a processor that discards everything.
func NewNullSink() *NullSink { return &NullSink{} }

func (*NullSink) Handle(context.Context, any) error { return nil }
func (*NullSink) Flush(context.Context) error       { return nil }

func (*NullSink) IntrospectNode() proc.NodeInfo { return proc.NodeInfo{Name: "null_sink"} }
func (s *NullSink) IntrospectGraph() proc.GraphInfo {
	return proc.GraphInfo{}.PushEntryPoint(s.IntrospectNode())
}

// NullSource passes flush through to its downstream exactly once; it
// models a source that emits no events of its own, and forwards unchanged
// any event handed to it.
// Flushing it a second time is a caller bug and panics.
type NullSource struct {
	downstream proc.Processor
	flushed    bool
}

// NewNullSource returns a processor representing an empty event source.
func NewNullSource(downstream proc.Processor) *NullSource {
	return &NullSource{downstream: downstream}
}

func (s *NullSource) Handle(ctx context.Context, event any) error {
	return s.downstream.Handle(ctx, event)
}

func (s *NullSource) Flush(ctx context.Context) error {
	if s.flushed {
		panic("procs: NullSource flushed a second time")
	}
	s.flushed = true
	return s.downstream.Flush(ctx)
}

// DiscardAny discards every event and swallows the end-of-stream signal.
// Unlike NullSink it is meant to sit at a branch that should be silently
// dropped (e.g. one arm of a Split whose output nobody wants).
type DiscardAny struct{}

func NewDiscardAny() *DiscardAny { return &DiscardAny{} }

func (*DiscardAny) Handle(context.Context, any) error { return nil }
func (*DiscardAny) Flush(context.Context) error       { return nil }

// Prepend emits a fixed event before the first event it receives, then
// passes every event through unchanged.
type Prepend struct {
	downstream proc.Processor
	event      any
	emitted    bool
}

func NewPrepend(event any, downstream proc.Processor) *Prepend {
	return &Prepend{event: event, downstream: downstream}
}

func (p *Prepend) Handle(ctx context.Context, event any) error {
	if !p.emitted {
		p.emitted = true
		if err := p.downstream.Handle(ctx, p.event); err != nil {
			return err
		}
	}
	return p.downstream.Handle(ctx, event)
}

func (p *Prepend) Flush(ctx context.Context) error { return p.downstream.Flush(ctx) }

// Append passes every event through unchanged, then emits a fixed event
// immediately before propagating flush. If the stream ends via an
// EndOfProcessing raised downstream rather than via Flush, the appended
// event is never emitted.
type Append struct {
	downstream proc.Processor
	event      any
}

func NewAppend(event any, downstream proc.Processor) *Append {
	return &Append{event: event, downstream: downstream}
}

func (a *Append) Handle(ctx context.Context, event any) error {
	return a.downstream.Handle(ctx, event)
}

func (a *Append) Flush(ctx context.Context) error {
	if err := a.downstream.Handle(ctx, a.event); err != nil {
		return err
	}
	return a.downstream.Flush(ctx)
}

// Predicate classifies an event for Select/Gate/Split routing.
type Predicate func(event any) bool

// Split routes events matching Predicate to the matched downstream, and
// all others to the unmatched one. Flush propagates to both.
type Split struct {
	predicate Predicate
	unmatched proc.Processor
	matched   proc.Processor
}

func NewSplit(predicate Predicate, unmatched, matched proc.Processor) *Split {
	return &Split{predicate: predicate, unmatched: unmatched, matched: matched}
}

func (s *Split) Handle(ctx context.Context, event any) error {
	if s.predicate(event) {
		return s.matched.Handle(ctx, event)
	}
	return s.unmatched.Handle(ctx, event)
}

func (s *Split) Flush(ctx context.Context) error {
	if err := s.unmatched.Flush(ctx); err != nil {
		return err
	}
	return s.matched.Flush(ctx)
}

// Select passes through only events whose type is in its list, silently
// dropping all others. With invert set (NewSelectNot) the filter flips:
// listed types are dropped and everything else passes.
type Select struct {
	downstream proc.Processor
	list       typelist.List
	invert     bool
}

// NewSelect returns a processor passing only the listed event types.
func NewSelect(list typelist.List, downstream proc.Processor) *Select {
	return &Select{downstream: downstream, list: list}
}

// NewSelectNot returns a processor dropping the listed event types and
// passing everything else.
func NewSelectNot(list typelist.List, downstream proc.Processor) *Select {
	return &Select{downstream: downstream, list: list, invert: true}
}

func (s *Select) Handle(ctx context.Context, event any) error {
	if s.list.ContainsValue(event) != s.invert {
		return s.downstream.Handle(ctx, event)
	}
	return nil
}

func (s *Select) Flush(ctx context.Context) error { return s.downstream.Flush(ctx) }

// Gate passes events through only while open. When closed, events matched
// by Predicate are dropped; all others still pass. Gate never closes
// itself: it is opened and closed externally through the GateControl
// access object.
type Gate struct {
	proc.AccessTracker
	downstream proc.Processor
	gated      Predicate
	open       bool
	logger     *log.Logger
}

// NewGate returns a Gate processor, initially open, optionally registering
// an access point in ctx (pass nil ctx/name to skip registration).
func NewGate(gated Predicate, downstream proc.Processor, ctx *proc.Context, name string) *Gate {
	g := &Gate{downstream: downstream, gated: gated, open: true}
	if ctx != nil {
		g.Init(ctx, name, func() any { return GateControl{g: g} })
	}
	return g
}

// SetLogger enables debug logging of dropped events.
func (g *Gate) SetLogger(logger *log.Logger) {
	g.logger = logger.WithProcessor("gate")
}

func (g *Gate) Handle(ctx context.Context, event any) error {
	if !g.open && g.gated(event) {
		if g.logger != nil {
			g.logger.Debug("dropped gated event", map[string]any{"event": fmt.Sprintf("%T", event)})
		}
		return nil
	}
	return g.downstream.Handle(ctx, event)
}

func (g *Gate) Flush(ctx context.Context) error { return g.downstream.Flush(ctx) }

// GateControl is the access object returned for a Gate registered with a
// Context, letting external code open/close it after it's buried inside a
// composed pipeline.
type GateControl struct{ g *Gate }

func (c GateControl) SetOpen(open bool) { c.g.open = open }
func (c GateControl) IsOpen() bool      { return c.g.open }

// Stop flushes downstream and ends the stream (as EndOfProcessing, or as
// a caller-supplied error to surface the trigger as a failure) the first
// time it sees an event matched by Predicate.
type Stop struct {
	downstream proc.Processor
	trigger    Predicate
	message    string
	asError    error // if non-nil, returned instead of EndOfProcessing
}

// NewStop returns a Stop processor that ends the stream cleanly (as
// EndOfProcessing) when trigger matches.
func NewStop(trigger Predicate, message string, downstream proc.Processor) *Stop {
	return &Stop{downstream: downstream, trigger: trigger, message: message}
}

// NewStopWithError returns a Stop processor that ends the stream by
// returning err (unmodified) when trigger matches, rather than
// EndOfProcessing; use when the triggering event indicates failure.
func NewStopWithError(trigger Predicate, err error, downstream proc.Processor) *Stop {
	return &Stop{downstream: downstream, trigger: trigger, asError: err}
}

func (s *Stop) Handle(ctx context.Context, event any) error {
	if s.trigger(event) {
		if err := s.downstream.Flush(ctx); err != nil {
			return err
		}
		if s.asError != nil {
			return s.asError
		}
		return proc.NewEndOfProcessing(s.message)
	}
	return s.downstream.Handle(ctx, event)
}

func (s *Stop) Flush(ctx context.Context) error { return s.downstream.Flush(ctx) }
