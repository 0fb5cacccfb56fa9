package procs

import (
	"context"

	"github.com/tcspc-go/tcspc/bucket"
)

// BatchSink receives a filled or flushed-partial bucket of T. It is a
// narrower interface than proc.Processor so Batch[T] can be used ahead of
// a downstream that only ever sees bucket.Bucket[T], without forcing a
// type assertion inside Handle.
type BatchSink[T any] interface {
	HandleBucket(ctx context.Context, b bucket.Bucket[T]) error
	Flush(ctx context.Context) error
}

// Batch collects every BatchSize events of type T into a bucket.Bucket[T]
// obtained from Source, emitting the bucket once full. On Flush, any
// partially filled bucket is shrunk to its actual size and emitted before
// propagating flush.
type Batch[T any] struct {
	source     bucket.Source[T]
	batchSize  int
	downstream BatchSink[T]

	cur    bucket.Bucket[T]
	filled int
}

// NewBatch returns a Batch processor. Panics if batchSize is not positive.
func NewBatch[T any](source bucket.Source[T], batchSize int, downstream BatchSink[T]) *Batch[T] {
	if batchSize <= 0 {
		panic("procs: batch processor batch_size must be positive")
	}
	return &Batch[T]{source: source, batchSize: batchSize, downstream: downstream}
}

// HandleEvent adds one event of type T to the current batch, emitting it
// once BatchSize events have accumulated.
func (b *Batch[T]) HandleEvent(ctx context.Context, event T) error {
	if b.cur.Len() == 0 {
		bk, err := b.source.BucketOfSize(b.batchSize)
		if err != nil {
			return err
		}
		b.cur = bk
	}
	b.cur.Data()[b.filled] = event
	b.filled++
	if b.filled == b.batchSize {
		full := b.cur
		b.cur, b.filled = bucket.Bucket[T]{}, 0
		return b.downstream.HandleBucket(ctx, full)
	}
	return nil
}

func (b *Batch[T]) Flush(ctx context.Context) error {
	if b.filled > 0 {
		partial := b.cur
		partial.Shrink(0, b.filled)
		b.cur, b.filled = bucket.Bucket[T]{}, 0
		if err := b.downstream.HandleBucket(ctx, partial); err != nil {
			return err
		}
	}
	return b.downstream.Flush(ctx)
}

// Unbatch expands each bucket.Bucket[T] it receives into individual calls
// to its downstream's HandleEvent, in order.
type Unbatch[T any] struct {
	downstream EventSink[T]
}

// EventSink receives individual events of type T, e.g. the per-event side
// of a processor that only deals with unbatched data.
type EventSink[T any] interface {
	HandleEvent(ctx context.Context, event T) error
	Flush(ctx context.Context) error
}

func NewUnbatch[T any](downstream EventSink[T]) *Unbatch[T] {
	return &Unbatch[T]{downstream: downstream}
}

func (u *Unbatch[T]) HandleBucket(ctx context.Context, b bucket.Bucket[T]) error {
	for _, event := range b.Data() {
		if err := u.downstream.HandleEvent(ctx, event); err != nil {
			return err
		}
	}
	// The bucket was handed to us; returning its storage here is what lets
	// a recycling source upstream reuse it for the next batch.
	b.Release()
	return nil
}

func (u *Unbatch[T]) Flush(ctx context.Context) error { return u.downstream.Flush(ctx) }

// ProcessInBatches buffers up to batchSize events of type T and emits
// them to downstream in a tight loop: batch composed with unbatch over a
// single-slot recycling bucket source. It is a single-threaded
// alternative to variant.Buffer, useful when decoupling the upstream and
// downstream loop bodies is desirable without an actual handoff between
// goroutines.
func ProcessInBatches[T any](batchSize int, downstream EventSink[T]) *Batch[T] {
	source := bucket.NewRecyclingSource[T](bucket.RecyclingSourceOptions{MaxOutstanding: 1, Blocking: true})
	return NewBatch[T](source, batchSize, NewUnbatch[T](downstream))
}
