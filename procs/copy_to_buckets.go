package procs

import (
	"context"

	"github.com/tcspc-go/tcspc/bucket"
	"github.com/tcspc-go/tcspc/proc"
)

// CopyToBuckets copies incoming []T slices into bucket.Bucket[T]
// instances obtained from Source and emits them downstream. It adapts a
// push-style device driver API (one that calls back with acquired data in
// caller-owned memory) into the bucket-based pipeline: the caller's
// memory cannot be handed downstream, so it is copied into storage the
// bucket source controls.
type CopyToBuckets[T any] struct {
	source     bucket.Source[T]
	downstream BatchSink[T]
}

func NewCopyToBuckets[T any](source bucket.Source[T], downstream BatchSink[T]) *CopyToBuckets[T] {
	return &CopyToBuckets[T]{source: source, downstream: downstream}
}

func (c *CopyToBuckets[T]) HandleSlice(ctx context.Context, data []T) error {
	b, err := c.source.BucketOfSize(len(data))
	if err != nil {
		return err
	}
	copy(b.Data(), data)
	return c.downstream.HandleBucket(ctx, b)
}

func (c *CopyToBuckets[T]) Flush(ctx context.Context) error { return c.downstream.Flush(ctx) }

// CopyToFullBuckets copies incoming []T slices into fixed-size
// bucket.Bucket[T]s, batching across calls. It has two downstreams: the
// live downstream receives a view of each appended portion as soon as it
// is copied (and every non-slice event, passed through), while the batch
// downstream receives each bucket only once it reaches BatchSize elements
// (plus whatever remains on Flush, shrunk).
//
// If the live downstream ends the stream via EndOfProcessing mid-bucket,
// the partial bucket is still emitted to the batch downstream and the
// batch downstream flushed before the signal propagates, so the batch
// stream always covers all copied data (the tail of which the live
// stream has then seen twice).
type CopyToFullBuckets[T any] struct {
	source    bucket.Source[T]
	batchSize int
	live      proc.Processor
	batch     BatchSink[T]

	cur    bucket.Bucket[T]
	filled int
}

func NewCopyToFullBuckets[T any](source bucket.Source[T], batchSize int, live proc.Processor, batch BatchSink[T]) *CopyToFullBuckets[T] {
	if batchSize <= 0 {
		panic("procs: copy_to_full_buckets batch size must be positive")
	}
	return &CopyToFullBuckets[T]{source: source, batchSize: batchSize, live: live, batch: batch}
}

// Handle passes any non-slice event to the live downstream only.
func (c *CopyToFullBuckets[T]) Handle(ctx context.Context, event any) error {
	if data, ok := event.([]T); ok {
		return c.HandleSlice(ctx, data)
	}
	if err := c.live.Handle(ctx, event); err != nil {
		return c.concludeOnLiveEnd(ctx, err)
	}
	return nil
}

func (c *CopyToFullBuckets[T]) HandleSlice(ctx context.Context, data []T) error {
	for len(data) > 0 {
		if c.filled == 0 {
			b, err := c.source.BucketOfSize(c.batchSize)
			if err != nil {
				return err
			}
			c.cur = b
		}
		n := copy(c.cur.Data()[c.filled:], data)
		view := c.cur.Sub(c.filled, n)
		c.filled += n
		data = data[n:]
		if err := c.live.Handle(ctx, view); err != nil {
			return c.concludeOnLiveEnd(ctx, err)
		}
		if c.filled == c.batchSize {
			full := c.cur
			c.cur, c.filled = bucket.Bucket[T]{}, 0
			if err := c.batch.HandleBucket(ctx, full); err != nil {
				return err
			}
		}
	}
	return nil
}

// concludeOnLiveEnd handles the live downstream ending the stream: the
// batch downstream still gets the partial bucket and a flush before the
// signal propagates. Errors other than EndOfProcessing propagate as-is.
func (c *CopyToFullBuckets[T]) concludeOnLiveEnd(ctx context.Context, liveErr error) error {
	if !proc.IsEndOfProcessing(liveErr) {
		return liveErr
	}
	if err := c.emitPartial(ctx); err != nil {
		return err
	}
	if err := c.batch.Flush(ctx); err != nil {
		return err
	}
	return liveErr
}

func (c *CopyToFullBuckets[T]) emitPartial(ctx context.Context) error {
	if c.filled == 0 {
		return nil
	}
	partial := c.cur
	partial.Shrink(0, c.filled)
	c.cur, c.filled = bucket.Bucket[T]{}, 0
	return c.batch.HandleBucket(ctx, partial)
}

// Flush flushes the live downstream first, then emits any partial bucket
// to the batch downstream and flushes it.
func (c *CopyToFullBuckets[T]) Flush(ctx context.Context) error {
	if err := c.live.Flush(ctx); err != nil && !proc.IsEndOfProcessing(err) {
		return err
	}
	if err := c.emitPartial(ctx); err != nil {
		return err
	}
	return c.batch.Flush(ctx)
}
