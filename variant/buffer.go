package variant

import (
	"context"
	"sync"

	"github.com/tcspc-go/tcspc/proc"
)

// Buffer decouples its upstream from its downstream with a bounded FIFO
// of variant events: Handle enqueues on the caller's goroutine (blocking
// while the queue is full, which is the backpressure), and a consumer
// goroutine spawned at construction drains the queue into the
// downstream. Flush signals end of stream, waits for the consumer to
// drain and flush the downstream, and reports any error the consumer
// hit.
//
// FIFO order is preserved end to end. A single producer goroutine is
// assumed; Handle and Flush must not race with each other.
type Buffer struct {
	downstream proc.Processor
	queue      chan Event
	wg         sync.WaitGroup

	mu     sync.Mutex
	err    error
	closed bool
}

// NewBuffer returns a running Buffer with the given queue capacity. The
// consumer goroutine delivers events to downstream with ctx. Panics if
// capacity is not positive.
func NewBuffer(ctx context.Context, capacity int, downstream proc.Processor) *Buffer {
	if capacity <= 0 {
		panic("variant: buffer capacity must be positive")
	}
	b := &Buffer{
		downstream: downstream,
		queue:      make(chan Event, capacity),
	}
	b.wg.Add(1)
	go b.consume(ctx)
	return b
}

func (b *Buffer) consume(ctx context.Context) {
	defer b.wg.Done()
	for evt := range b.queue {
		if b.getErr() != nil {
			continue // drain so the producer never blocks forever
		}
		if err := b.downstream.Handle(ctx, evt.Value()); err != nil {
			b.setErr(err)
		}
	}
	if b.getErr() == nil {
		if err := b.downstream.Flush(ctx); err != nil {
			b.setErr(err)
		}
	}
}

func (b *Buffer) setErr(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err == nil {
		b.err = err
	}
}

func (b *Buffer) getErr() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Handle enqueues one event, blocking while the queue is full. If the
// consumer has already failed (or ended the stream), the error is
// returned here and the event is not enqueued.
func (b *Buffer) Handle(_ context.Context, evt any) error {
	if err := b.getErr(); err != nil {
		return err
	}
	b.queue <- NewEvent(evt)
	return nil
}

// Flush closes the queue, waits for the consumer to drain it and flush
// the downstream, and returns the consumer's error, if any.
func (b *Buffer) Flush(context.Context) error {
	b.mu.Lock()
	alreadyClosed := b.closed
	b.closed = true
	b.mu.Unlock()
	if alreadyClosed {
		panic("variant: Buffer flushed a second time")
	}
	close(b.queue)
	b.wg.Wait()
	return b.getErr()
}

func (b *Buffer) IntrospectNode() proc.NodeInfo {
	return proc.NodeInfo{Name: "buffer", Addr: b}
}

func (b *Buffer) IntrospectGraph() proc.GraphInfo {
	if in, ok := b.downstream.(proc.Introspectable); ok {
		return in.IntrospectGraph().PushEntryPoint(b.IntrospectNode())
	}
	return proc.GraphInfo{}.PushEntryPoint(b.IntrospectNode())
}
