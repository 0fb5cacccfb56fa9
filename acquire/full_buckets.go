package acquire

import (
	"context"
	"errors"
	"io"

	"github.com/tcspc-go/tcspc/bucket"
	"github.com/tcspc-go/tcspc/proc"
	"github.com/tcspc-go/tcspc/procs"
)

// AcquireFullBuckets reads from a Reader into a bucket that it keeps
// filling across reads, emitting the bucket to the batch downstream only
// when full. The live downstream sees a view of each incremental read as
// soon as it lands, so a monitor can observe data with read-latency
// granularity while bulk consumers receive whole batches.
//
// If the live downstream ends the stream via EndOfProcessing mid-bucket,
// the partially filled bucket is still emitted to the batch downstream
// and the batch downstream flushed, so the batch stream covers all
// acquired data (the tail of which the live stream has then seen twice).
// On normal end of stream the live downstream is flushed first, then the
// batch downstream.
type AcquireFullBuckets[T any] struct {
	proc.AccessTracker
	reader    Reader[T]
	source    bucket.Source[T]
	batchSize int
	live      proc.Processor
	batch     procs.BatchSink[T]
	halt      *halter

	cur    bucket.Bucket[T]
	filled int
}

// NewAcquireFullBuckets returns an AcquireFullBuckets processor. Panics
// if batchSize is not positive or source is nil. When pctx is non-nil the
// processor registers an Access handle under name.
func NewAcquireFullBuckets[T any](reader Reader[T], source bucket.Source[T], batchSize int, pctx *proc.Context, name string, live proc.Processor, batch procs.BatchSink[T]) *AcquireFullBuckets[T] {
	if source == nil {
		panic("acquire: a bucket source is required")
	}
	if batchSize <= 0 {
		panic("acquire: batch size must be positive")
	}
	a := &AcquireFullBuckets[T]{
		reader:    reader,
		source:    source,
		batchSize: batchSize,
		live:      live,
		batch:     batch,
		halt:      newHalter(),
	}
	if pctx != nil {
		a.Init(pctx, name, func() any { return Access{h: a.halt} })
	}
	return a
}

// Handle rejects all events: an acquisition processor is a source.
func (a *AcquireFullBuckets[T]) Handle(context.Context, any) error {
	panic("acquire: acquisition processors accept no input events")
}

// Flush runs the acquisition loop. See AcquireFullBuckets for the
// termination contract.
func (a *AcquireFullBuckets[T]) Flush(ctx context.Context) error {
	for {
		if a.halt.isHalted() {
			return proc.ErrAcquisitionHalted
		}
		if a.filled == 0 {
			b, err := a.source.BucketOfSize(a.batchSize)
			if err != nil {
				return err
			}
			a.cur = b
		}
		n, rerr := a.reader(a.cur.Data()[a.filled:])
		if errors.Is(rerr, io.EOF) {
			return a.conclude(ctx)
		}
		if rerr != nil {
			return rerr
		}
		if n > 0 {
			view := a.cur.Sub(a.filled, n)
			a.filled += n
			if err := a.live.Handle(ctx, view); err != nil {
				if proc.IsEndOfProcessing(err) {
					return a.concludeBatchOnly(ctx)
				}
				return err
			}
			if a.filled == a.batchSize {
				full := a.cur
				a.cur, a.filled = bucket.Bucket[T]{}, 0
				if err := a.batch.HandleBucket(ctx, full); err != nil {
					if proc.IsEndOfProcessing(err) {
						return a.flushLiveOnly(ctx)
					}
					return err
				}
			}
		}
		if a.filled != 0 || n == 0 {
			if err := a.halt.wait(ctx); err != nil {
				return err
			}
		}
	}
}

// conclude ends the stream normally: live flushed first, then the
// remainder emitted to the batch downstream, then batch flushed.
func (a *AcquireFullBuckets[T]) conclude(ctx context.Context) error {
	if err := a.live.Flush(ctx); err != nil && !proc.IsEndOfProcessing(err) {
		return err
	}
	return a.concludeBatchOnly(ctx)
}

// concludeBatchOnly emits any partial bucket to the batch downstream and
// flushes it.
func (a *AcquireFullBuckets[T]) concludeBatchOnly(ctx context.Context) error {
	if a.filled > 0 {
		partial := a.cur
		partial.Shrink(0, a.filled)
		a.cur, a.filled = bucket.Bucket[T]{}, 0
		if err := a.batch.HandleBucket(ctx, partial); err != nil && !proc.IsEndOfProcessing(err) {
			return err
		}
	}
	if err := a.batch.Flush(ctx); err != nil && !proc.IsEndOfProcessing(err) {
		return err
	}
	return nil
}

func (a *AcquireFullBuckets[T]) flushLiveOnly(ctx context.Context) error {
	if err := a.live.Flush(ctx); err != nil && !proc.IsEndOfProcessing(err) {
		return err
	}
	return nil
}

func (a *AcquireFullBuckets[T]) IntrospectNode() proc.NodeInfo {
	return proc.NodeInfo{Name: "acquire_full_buckets", Addr: a}
}

// IntrospectGraph reports the union of both downstream subgraphs with
// this node as the entry point for each.
func (a *AcquireFullBuckets[T]) IntrospectGraph() proc.GraphInfo {
	var g proc.GraphInfo
	if in, ok := a.live.(proc.Introspectable); ok {
		g.Nodes = append(g.Nodes, in.IntrospectGraph().Nodes...)
	}
	if in, ok := a.batch.(proc.Introspectable); ok {
		g.Nodes = append(g.Nodes, in.IntrospectGraph().Nodes...)
	}
	return g.PushEntryPoint(a.IntrospectNode())
}
