package binning

import (
	"context"

	"github.com/tcspc-go/tcspc/event"
)

// DataMapper extracts a datapoint from an upstream event. Events not
// convertible are passed through unchanged by MapToDatapoints.
type DataMapper[E any, D event.Integer] func(evt E) D

// DifftimeDataMapper extracts the DiffTime field of a
// event.TimeCorrelatedDetection as its datapoint, the most common use:
// histogramming arrival-time differences.
func DifftimeDataMapper() DataMapper[event.TimeCorrelatedDetection, event.DiffTime] {
	return func(evt event.TimeCorrelatedDetection) event.DiffTime { return evt.DiffTime }
}

// DatapointSink receives mapped datapoints and passes through anything
// else handed to it via PassThrough.
type DatapointSink[D event.Integer] interface {
	HandleDatapoint(ctx context.Context, d D) error
	PassThrough(ctx context.Context, evt any) error
	Flush(ctx context.Context) error
}

// MapToDatapoints converts every event of type E it receives into a
// datapoint via Mapper, forwarding the datapoint to downstream's
// HandleDatapoint; every other event is forwarded via PassThrough.
type MapToDatapoints[E any, D event.Integer] struct {
	mapper     DataMapper[E, D]
	downstream DatapointSink[D]
}

func NewMapToDatapoints[E any, D event.Integer](mapper DataMapper[E, D], downstream DatapointSink[D]) *MapToDatapoints[E, D] {
	return &MapToDatapoints[E, D]{mapper: mapper, downstream: downstream}
}

func (m *MapToDatapoints[E, D]) Handle(ctx context.Context, evt any) error {
	if e, ok := evt.(E); ok {
		return m.downstream.HandleDatapoint(ctx, m.mapper(e))
	}
	return m.downstream.PassThrough(ctx, evt)
}

func (m *MapToDatapoints[E, D]) Flush(ctx context.Context) error { return m.downstream.Flush(ctx) }

// BinSink receives bin increments resulting from MapToBins, and anything
// passed through.
type BinSink[B event.Integer] interface {
	HandleBinIncrement(ctx context.Context, bin B) error
	PassThrough(ctx context.Context, evt any) error
	Flush(ctx context.Context) error
}

// MapToBins applies a BinMapper to every datapoint it receives, emitting
// a bin increment for in-range datapoints and silently dropping
// out-of-range ones. All events other than D-typed datapoints are passed
// through.
type MapToBins[D, B event.Integer] struct {
	mapper     BinMapper[D, B]
	downstream BinSink[B]
}

func NewMapToBins[D, B event.Integer](mapper BinMapper[D, B], downstream BinSink[B]) *MapToBins[D, B] {
	return &MapToBins[D, B]{mapper: mapper, downstream: downstream}
}

func (m *MapToBins[D, B]) Handle(ctx context.Context, evt any) error {
	if d, ok := evt.(D); ok {
		if bin, ok := m.mapper.Map(d); ok {
			return m.downstream.HandleBinIncrement(ctx, bin)
		}
		return nil
	}
	return m.downstream.PassThrough(ctx, evt)
}

func (m *MapToBins[D, B]) Flush(ctx context.Context) error { return m.downstream.Flush(ctx) }

// ClusterSink receives a completed cluster of bin increments (the full set
// of increments that resulted from one upstream "trigger" event, e.g. one
// sync pulse) and anything passed through.
type ClusterSink[B event.Integer] interface {
	HandleCluster(ctx context.Context, bins []B) error
	PassThrough(ctx context.Context, evt any) error
	Flush(ctx context.Context) error
}

// BatchBinIncrements brackets bin increments into clusters between a
// start event and a stop event (typically a pair of sync or line
// markers): accumulation begins when isStart matches, and the
// accumulated cluster is emitted when isStop matches. Increments arriving
// before the first start are discarded, as is an accumulation whose start
// never saw a matching stop. Per-trigger attribution of increments is
// what lets a scan-level consumer journal a scan: rollback on overflow
// must know which increments belong to which upstream trigger.
type BatchBinIncrements[B event.Integer] struct {
	isStart    func(evt any) bool
	isStop     func(evt any) bool
	downstream ClusterSink[B]

	inCluster bool
	cur       []B
}

func NewBatchBinIncrements[B event.Integer](isStart, isStop func(evt any) bool, downstream ClusterSink[B]) *BatchBinIncrements[B] {
	return &BatchBinIncrements[B]{isStart: isStart, isStop: isStop, downstream: downstream}
}

// HandleBinIncrement accumulates one increment into the current cluster,
// or discards it when no cluster is open.
func (b *BatchBinIncrements[B]) HandleBinIncrement(_ context.Context, bin B) error {
	if b.inCluster {
		b.cur = append(b.cur, bin)
	}
	return nil
}

// PassThrough opens/closes the cluster bracket on start/stop events and
// forwards every event (including the brackets) unchanged.
func (b *BatchBinIncrements[B]) PassThrough(ctx context.Context, evt any) error {
	switch {
	case b.isStart(evt):
		b.inCluster = true
		b.cur = b.cur[:0]
	case b.isStop(evt) && b.inCluster:
		b.inCluster = false
		cur := b.cur
		b.cur = nil
		if err := b.downstream.HandleCluster(ctx, cur); err != nil {
			return err
		}
	}
	return b.downstream.PassThrough(ctx, evt)
}

// Flush discards any unmatched open cluster and propagates flush.
func (b *BatchBinIncrements[B]) Flush(ctx context.Context) error {
	b.inCluster = false
	b.cur = nil
	return b.downstream.Flush(ctx)
}
