package bucket

import (
	"errors"
	"sync"
)

// ErrSourceExhausted is returned by a non-blocking recycling Source when
// the maximum outstanding bucket count has been reached.
var ErrSourceExhausted = errors.New("bucket: recycling source exhausted")

// Source allocates Buckets of a requested size. Implementations must be
// safe for concurrent use; buckets may be created on one goroutine and
// released on another.
type Source[T any] interface {
	BucketOfSize(size int) (Bucket[T], error)
}

// freshSource allocates a new Go slice for every bucket, relying entirely
// on the garbage collector for cleanup.
type freshSource[T any] struct{}

// NewFreshSource returns a Source that allocates fresh storage for every
// bucket and does no recycling. The backing storage of its buckets is the
// []T itself and is extractable via ExtractStorage[[]T].
func NewFreshSource[T any]() Source[T] { return freshSource[T]{} }

func (freshSource[T]) BucketOfSize(size int) (Bucket[T], error) {
	data := make([]T, size)
	return Bucket[T]{data: data, raw: data}, nil
}

// RecyclingSource reuses the backing arrays of released Buckets for
// subsequent allocations instead of letting the garbage collector reclaim
// them, reducing allocation churn in steady-state pipelines that
// repeatedly emit same-shaped buckets (e.g. one histogram array per
// round). Its buckets' storage is private: StorageAs/ExtractStorage on
// them report ErrBadStorageCast, since handing the array out would defeat
// recycling.
type RecyclingSource[T any] struct {
	mu       sync.Mutex
	released *sync.Cond

	maxBuckets  int
	outstanding int
	free        [][]T
	blocking    bool
	clearOnFree bool
}

// RecyclingSourceOptions configures a RecyclingSource.
type RecyclingSourceOptions struct {
	// MaxOutstanding caps the number of buckets that may be live at once.
	// Zero means unbounded.
	MaxOutstanding int
	// Blocking, if true, makes BucketOfSize block until a bucket is
	// released rather than returning ErrSourceExhausted when the cap is
	// reached.
	Blocking bool
	// ClearOnRecycle zero-fills a recycled backing array before it is
	// handed out again.
	ClearOnRecycle bool
}

// NewRecyclingSource constructs a RecyclingSource per opts.
func NewRecyclingSource[T any](opts RecyclingSourceOptions) *RecyclingSource[T] {
	rs := &RecyclingSource[T]{
		maxBuckets:  opts.MaxOutstanding,
		blocking:    opts.Blocking,
		clearOnFree: opts.ClearOnRecycle,
	}
	rs.released = sync.NewCond(&rs.mu)
	return rs
}

type recycledStorage[T any] struct {
	source *RecyclingSource[T]
	buf    []T
	once   sync.Once
}

func (s *recycledStorage[T]) release() {
	s.once.Do(func() { s.source.reclaim(s.buf) })
}

func (rs *RecyclingSource[T]) reclaim(buf []T) {
	rs.mu.Lock()
	rs.free = append(rs.free, buf)
	rs.outstanding--
	rs.mu.Unlock()
	rs.released.Signal()
}

// BucketOfSize returns a Bucket of the requested size, reusing a released
// backing array if one of sufficient capacity is available. When the
// outstanding-bucket cap has been reached: blocks (if Blocking) until a
// release happens, or returns ErrSourceExhausted.
func (rs *RecyclingSource[T]) BucketOfSize(size int) (Bucket[T], error) {
	rs.mu.Lock()
	var buf []T
	for {
		if len(rs.free) > 0 {
			buf = rs.free[len(rs.free)-1]
			rs.free = rs.free[:len(rs.free)-1]
			rs.outstanding++
			break
		}
		if rs.maxBuckets == 0 || rs.outstanding < rs.maxBuckets {
			rs.outstanding++
			break
		}
		if !rs.blocking {
			rs.mu.Unlock()
			return Bucket[T]{}, ErrSourceExhausted
		}
		rs.released.Wait()
	}
	rs.mu.Unlock()

	if cap(buf) < size {
		buf = make([]T, size)
	} else {
		buf = buf[:size]
		if rs.clearOnFree {
			var zero T
			for i := range buf {
				buf[i] = zero
			}
		}
	}
	st := &recycledStorage[T]{source: rs, buf: buf}
	return Bucket[T]{data: buf, back: st}, nil
}
