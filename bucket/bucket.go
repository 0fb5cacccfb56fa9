// Package bucket implements value-semantic, pluggable-storage containers
// for bulk payload data (histogram arrays, batched detections, decoded
// device records). A Bucket[T] behaves like a regular Go value: Clone
// copies the data into freshly allocated storage, while handing a Bucket
// to another owner (plain assignment) transfers the backing storage
// without copying.
//
// A Bucket's backing storage comes from a Source. Sources are safe for
// concurrent use; an individual Bucket is not.
package bucket

import (
	"errors"
	"unsafe"
)

// ErrBadStorageCast is returned when a caller requests a bucket's backing
// storage as a type other than what its Source actually used, or from a
// bucket that has no extractable storage (views, recycled buckets).
var ErrBadStorageCast = errors.New("bucket: bad storage cast")

// storage is the interface a Source-specific backing object satisfies so a
// Bucket can release it without knowing its concrete type.
type storage interface {
	release()
}

// Bucket is a value-semantic, slice-like view over data of type T, paired
// with an opaque handle to whatever storage backs it. The zero value is an
// empty bucket with no storage.
type Bucket[T any] struct {
	data []T
	back storage
	raw  any // the Source-specific storage object, for StorageAs/ExtractStorage
	view bool
}

// Of constructs a Bucket directly over data with no managed storage; the
// caller retains ownership of data's backing array. Useful for wrapping
// externally-owned memory (e.g. a memory-mapped input file).
func Of[T any](data []T) Bucket[T] {
	return Bucket[T]{data: data}
}

// Len returns the number of elements in the bucket.
func (b Bucket[T]) Len() int { return len(b.data) }

// Data returns the bucket's elements as a slice. Mutating the returned
// slice mutates the bucket.
func (b Bucket[T]) Data() []T { return b.data }

// IsView reports whether this bucket is a view into another bucket's
// memory (created by Sub). Views have no extractable storage and must not
// be used after the parent's storage is released.
func (b Bucket[T]) IsView() bool { return b.view }

// Sub returns a view over b's elements [start, start+count). The view
// shares memory with b: writes through either are visible through both.
// The view carries no storage of its own and must not outlive b's
// storage.
func (b Bucket[T]) Sub(start, count int) Bucket[T] {
	return Bucket[T]{data: b.data[start : start+count : start+count], view: true}
}

// Shrink contracts the bucket's data span in place to [start, start+count).
// Elements outside the new span become inaccessible through this bucket
// but remain visible through previously taken views.
func (b *Bucket[T]) Shrink(start, count int) {
	b.data = b.data[start : start+count]
}

// Clone returns a Bucket holding a fresh copy of the data, with no
// managed storage; the clone never shares memory with b.
func (b Bucket[T]) Clone() Bucket[T] {
	cp := make([]T, len(b.data))
	copy(cp, b.data)
	return Bucket[T]{data: cp}
}

// Release returns the bucket's backing storage to its Source, if any. A
// Bucket without managed storage (constructed via Of, a view, or already
// released) is unaffected.
func (b Bucket[T]) Release() {
	if b.back != nil {
		b.back.release()
	}
}

// Equal reports element-wise equality of two buckets' data, regardless of
// their storage.
func Equal[T comparable](a, b Bucket[T]) bool {
	if len(a.data) != len(b.data) {
		return false
	}
	for i := range a.data {
		if a.data[i] != b.data[i] {
			return false
		}
	}
	return true
}

// AsBytes returns b's data reinterpreted as raw bytes, sharing memory
// with b. The result is a view in the same sense as Sub: it must not
// outlive b's storage. T must not contain pointers.
func AsBytes[T any](b Bucket[T]) []byte {
	if len(b.data) == 0 {
		return nil
	}
	var t T
	size := int(unsafe.Sizeof(t))
	return unsafe.Slice((*byte)(unsafe.Pointer(&b.data[0])), len(b.data)*size)
}

// StorageAs returns the Source-specific storage object backing b as type
// S, without disturbing the bucket. Returns ErrBadStorageCast if b is a
// view, has no extractable storage, or the storage is not of type S.
func StorageAs[S any, T any](b Bucket[T]) (S, error) {
	var zero S
	if b.view || b.raw == nil {
		return zero, ErrBadStorageCast
	}
	s, ok := b.raw.(S)
	if !ok {
		return zero, ErrBadStorageCast
	}
	return s, nil
}

// ExtractStorage removes and returns b's backing storage as type S,
// leaving b empty. It succeeds at most once per bucket; afterwards b has
// no data and no storage. Returns ErrBadStorageCast under the same
// conditions as StorageAs.
func ExtractStorage[S any, T any](b *Bucket[T]) (S, error) {
	s, err := StorageAs[S](*b)
	if err != nil {
		return s, err
	}
	*b = Bucket[T]{}
	return s, nil
}
