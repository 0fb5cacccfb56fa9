// Package typeerased provides a reassignable processor wrapper and
// adapters that erase the typed sink interfaces (event, bucket, cluster
// sinks) behind the uniform proc.Processor interface. Use it at module
// boundaries where the concrete processor type is impractical to name,
// or where a slot must be filled before the concrete processor exists.
package typeerased

import (
	"context"

	"github.com/tcspc-go/tcspc/bucket"
	"github.com/tcspc-go/tcspc/event"
	"github.com/tcspc-go/tcspc/proc"
	"github.com/tcspc-go/tcspc/procs"
	"github.com/tcspc-go/tcspc/typelist"
)

// Processor forwards to a concrete proc.Processor chosen (and
// re-chooseable) at runtime. The zero value, and a Processor whose slot
// is unassigned, discards everything.
type Processor struct {
	inner   proc.Processor
	accepts typelist.List
}

// New wraps p. The accepts list documents which event types the slot is
// for; Assign does not check the assigned processor against it.
func New(p proc.Processor, accepts typelist.List) *Processor {
	return &Processor{inner: p, accepts: accepts}
}

// Assign replaces the wrapped processor.
func (p *Processor) Assign(q proc.Processor) { p.inner = q }

// Accepts returns the slot's declared event types.
func (p *Processor) Accepts() typelist.List { return p.accepts }

func (p *Processor) Handle(ctx context.Context, evt any) error {
	if p.inner == nil {
		return nil
	}
	return p.inner.Handle(ctx, evt)
}

func (p *Processor) Flush(ctx context.Context) error {
	if p.inner == nil {
		return nil
	}
	return p.inner.Flush(ctx)
}

func (p *Processor) IntrospectNode() proc.NodeInfo {
	return proc.NodeInfo{Name: "type_erased", Addr: p}
}

func (p *Processor) IntrospectGraph() proc.GraphInfo {
	if in, ok := p.inner.(proc.Introspectable); ok {
		return in.IntrospectGraph().PushEntryPoint(p.IntrospectNode())
	}
	return proc.GraphInfo{}.PushEntryPoint(p.IntrospectNode())
}

// eventSinkProc erases an EventSink[T] to a proc.Processor: events of
// type T go to HandleEvent, everything else is an error in composition
// and is dropped.
type eventSinkProc[T any] struct {
	sink procs.EventSink[T]
}

// FromEventSink erases sink behind the uniform processor interface.
func FromEventSink[T any](sink procs.EventSink[T]) proc.Processor {
	return &eventSinkProc[T]{sink: sink}
}

func (p *eventSinkProc[T]) Handle(ctx context.Context, evt any) error {
	if e, ok := evt.(T); ok {
		return p.sink.HandleEvent(ctx, e)
	}
	return nil
}

func (p *eventSinkProc[T]) Flush(ctx context.Context) error { return p.sink.Flush(ctx) }

// bucketSinkProc erases a BatchSink[T]: bucket.Bucket[T] events go to
// HandleBucket, everything else is dropped.
type bucketSinkProc[T any] struct {
	sink procs.BatchSink[T]
}

// FromBatchSink erases sink behind the uniform processor interface.
func FromBatchSink[T any](sink procs.BatchSink[T]) proc.Processor {
	return &bucketSinkProc[T]{sink: sink}
}

func (p *bucketSinkProc[T]) Handle(ctx context.Context, evt any) error {
	if b, ok := evt.(bucket.Bucket[T]); ok {
		return p.sink.HandleBucket(ctx, b)
	}
	return nil
}

func (p *bucketSinkProc[T]) Flush(ctx context.Context) error { return p.sink.Flush(ctx) }

// clusterSinkProc erases a ClusterSink: event.BinIncrementCluster events
// go to HandleCluster, everything else is dropped.
type clusterSinkProc struct {
	sink procs.ClusterSink
}

// FromClusterSink erases sink behind the uniform processor interface.
func FromClusterSink(sink procs.ClusterSink) proc.Processor {
	return &clusterSinkProc{sink: sink}
}

func (p *clusterSinkProc) Handle(ctx context.Context, evt any) error {
	if c, ok := evt.(event.BinIncrementCluster); ok {
		return p.sink.HandleCluster(ctx, c.Bins)
	}
	return nil
}

func (p *clusterSinkProc) Flush(ctx context.Context) error { return p.sink.Flush(ctx) }
