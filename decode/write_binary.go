package decode

import (
	"context"

	"github.com/tcspc-go/tcspc/bucket"
	"github.com/tcspc-go/tcspc/iostream"
)

// WriteBinaryStream writes the raw bytes of incoming bucket events
// sequentially to an output stream. With a granularity above 1, every
// write after the first is a multiple of granularity bytes (the first
// write is sized to bring the stream position onto a granularity
// boundary, when the position is known); a partial tail is buffered
// until enough data accumulates or Flush is called.
type WriteBinaryStream[T any] struct {
	out         iostream.OutputStream
	granularity int
	tail        []byte
	aligned     bool
}

// NewWriteBinaryStream returns a WriteBinaryStream processor. Panics if
// granularity is not positive or out is nil.
func NewWriteBinaryStream[T any](out iostream.OutputStream, granularity int) *WriteBinaryStream[T] {
	if out == nil {
		panic("decode: write_binary_stream requires an output stream")
	}
	if granularity <= 0 {
		panic("decode: write_binary_stream granularity must be positive")
	}
	return &WriteBinaryStream[T]{out: out, granularity: granularity}
}

// HandleBucket appends the bucket's raw bytes to the stream.
func (w *WriteBinaryStream[T]) HandleBucket(_ context.Context, b bucket.Bucket[T]) error {
	data := bucket.AsBytes(b)
	defer b.Release()

	if !w.aligned {
		w.aligned = true
		if pos, ok := w.out.Tell(); ok {
			if offset := int(pos) % w.granularity; offset != 0 {
				head := min(w.granularity-offset, len(data))
				if _, err := w.out.Write(data[:head]); err != nil {
					return err
				}
				data = data[head:]
			}
		}
	}

	w.tail = append(w.tail, data...)
	writable := len(w.tail) / w.granularity * w.granularity
	if writable == 0 {
		return nil
	}
	if _, err := w.out.Write(w.tail[:writable]); err != nil {
		return err
	}
	w.tail = w.tail[:copy(w.tail, w.tail[writable:])]
	return nil
}

// Flush writes any buffered partial tail.
func (w *WriteBinaryStream[T]) Flush(context.Context) error {
	if len(w.tail) == 0 {
		return nil
	}
	tail := w.tail
	w.tail = nil
	_, err := w.out.Write(tail)
	return err
}
