// Package acquire drives pull-mode device readers, turning repeated reads
// into a stream of bucket events with external halt control.
//
// An acquisition processor is a data source: only Flush is meaningful on
// its input side, and calling it runs the read loop to completion. While
// the device is idle (partial reads) the reader is polled at most every
// pollInterval; a full batch is followed up immediately. A halt requested
// through the Access handle wakes any wait promptly and ends the loop
// with an acquisition-halted error, without flushing downstream.
package acquire

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/tcspc-go/tcspc/bucket"
	"github.com/tcspc-go/tcspc/proc"
	"github.com/tcspc-go/tcspc/procs"
)

// pollInterval is how long the read loop waits after a partial read
// before polling the reader again, bounding the idle poll rate at 100 Hz.
const pollInterval = 10 * time.Millisecond

// Reader fills dst with up to len(dst) elements from the device and
// returns how many it wrote. io.EOF (with n == 0) signals end of stream;
// any other error fails the acquisition.
type Reader[T any] func(dst []T) (int, error)

// halter is the shared halt flag between an acquisition processor and its
// Access handle.
type halter struct {
	mu     sync.Mutex
	halted bool
	wake   chan struct{}
}

func newHalter() *halter {
	return &halter{wake: make(chan struct{})}
}

func (h *halter) halt() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.halted {
		h.halted = true
		close(h.wake)
	}
}

func (h *halter) isHalted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.halted
}

// wait sleeps for pollInterval, or returns early on halt or context
// cancellation.
func (h *halter) wait(ctx context.Context) error {
	select {
	case <-h.wake:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(pollInterval):
		return nil
	}
}

// Access lets a controller goroutine halt a running acquisition. Obtain
// it via proc.Context.Access under the name the processor was registered
// with.
type Access struct {
	h *halter
}

// Halt requests the acquisition stop. Safe to call from any goroutine,
// any number of times.
func (a Access) Halt() { a.h.halt() }

// Acquire reads batches of T from a Reader into buckets and emits each
// bucket downstream as soon as it holds data: a full batch immediately, a
// partial read right away (shrunk to its actual size) followed by an idle
// wait.
type Acquire[T any] struct {
	proc.AccessTracker
	reader     Reader[T]
	source     bucket.Source[T]
	batchSize  int
	downstream procs.BatchSink[T]
	halt       *halter
}

// NewAcquire returns an Acquire processor. Panics if batchSize is not
// positive or source is nil. When pctx is non-nil the processor registers
// an Access handle under name.
func NewAcquire[T any](reader Reader[T], source bucket.Source[T], batchSize int, pctx *proc.Context, name string, downstream procs.BatchSink[T]) *Acquire[T] {
	if source == nil {
		panic("acquire: a bucket source is required")
	}
	if batchSize <= 0 {
		panic("acquire: batch size must be positive")
	}
	a := &Acquire[T]{
		reader:     reader,
		source:     source,
		batchSize:  batchSize,
		downstream: downstream,
		halt:       newHalter(),
	}
	if pctx != nil {
		a.Init(pctx, name, func() any { return Access{h: a.halt} })
	}
	return a
}

// Handle rejects all events: an acquisition processor is a source.
func (a *Acquire[T]) Handle(context.Context, any) error {
	panic("acquire: acquisition processors accept no input events")
}

// Flush runs the acquisition loop until the reader reports end of stream
// (success: downstream is flushed), a halt is requested (returns an
// acquisition-halted error without flushing), or an error occurs.
func (a *Acquire[T]) Flush(ctx context.Context) error {
	for {
		if a.halt.isHalted() {
			return proc.ErrAcquisitionHalted
		}
		bkt, err := a.source.BucketOfSize(a.batchSize)
		if err != nil {
			return err
		}
		n, rerr := a.reader(bkt.Data())
		if errors.Is(rerr, io.EOF) {
			bkt.Release()
			err := a.downstream.Flush(ctx)
			if err != nil && !proc.IsEndOfProcessing(err) {
				return err
			}
			return nil
		}
		if rerr != nil {
			return rerr
		}
		if n > 0 {
			bkt.Shrink(0, n)
			if err := a.downstream.HandleBucket(ctx, bkt); err != nil {
				if proc.IsEndOfProcessing(err) {
					return nil
				}
				return err
			}
		} else {
			bkt.Release()
		}
		if n < a.batchSize {
			if err := a.halt.wait(ctx); err != nil {
				return err
			}
		}
	}
}

func (a *Acquire[T]) IntrospectNode() proc.NodeInfo {
	return proc.NodeInfo{Name: "acquire", Addr: a}
}

func (a *Acquire[T]) IntrospectGraph() proc.GraphInfo {
	if in, ok := a.downstream.(proc.Introspectable); ok {
		return in.IntrospectGraph().PushEntryPoint(a.IntrospectNode())
	}
	return proc.GraphInfo{}.PushEntryPoint(a.IntrospectNode())
}
