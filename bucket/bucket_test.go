package bucket_test

import (
	"errors"
	"testing"
	"time"

	"github.com/tcspc-go/tcspc/bucket"
)

func TestZeroValueIsEmpty(t *testing.T) {
	var b bucket.Bucket[int]
	if b.Len() != 0 {
		t.Fatalf("zero bucket has len %d, want 0", b.Len())
	}
	if _, err := bucket.StorageAs[[]int](b); !errors.Is(err, bucket.ErrBadStorageCast) {
		t.Fatalf("zero bucket storage cast: got %v, want ErrBadStorageCast", err)
	}
}

func TestCloneIsDeepCopy(t *testing.T) {
	src := bucket.NewFreshSource[int]()
	b, err := src.BucketOfSize(3)
	if err != nil {
		t.Fatal(err)
	}
	copy(b.Data(), []int{1, 2, 3})

	c := b.Clone()
	if !bucket.Equal(b, c) {
		t.Fatalf("clone differs: %v vs %v", b.Data(), c.Data())
	}
	c.Data()[0] = 99
	if b.Data()[0] != 1 {
		t.Fatal("clone shares storage with original")
	}
}

func TestSubViewSharesMemory(t *testing.T) {
	b := bucket.Of([]int{10, 20, 30, 40})
	v := b.Sub(1, 2)
	if v.Len() != 2 || v.Data()[0] != 20 {
		t.Fatalf("sub view = %v, want [20 30]", v.Data())
	}
	if !v.IsView() {
		t.Fatal("Sub did not mark the bucket as a view")
	}
	v.Data()[0] = 21
	if b.Data()[1] != 21 {
		t.Fatal("view does not share memory with parent")
	}
	if _, err := bucket.StorageAs[[]int](v); !errors.Is(err, bucket.ErrBadStorageCast) {
		t.Fatalf("view storage cast: got %v, want ErrBadStorageCast", err)
	}
}

func TestShrinkKeepsViewsIntact(t *testing.T) {
	b := bucket.Of([]int{1, 2, 3, 4, 5})
	v := b.Sub(0, 5)
	b.Shrink(1, 3)
	if got := b.Data(); len(got) != 3 || got[0] != 2 {
		t.Fatalf("after shrink: %v, want [2 3 4]", got)
	}
	if v.Len() != 5 {
		t.Fatalf("prior view shrank too: len %d", v.Len())
	}
}

func TestExtractStorageSucceedsOnce(t *testing.T) {
	src := bucket.NewFreshSource[byte]()
	b, err := src.BucketOfSize(4)
	if err != nil {
		t.Fatal(err)
	}
	copy(b.Data(), []byte("abcd"))

	s, err := bucket.ExtractStorage[[]byte](&b)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if string(s) != "abcd" {
		t.Fatalf("extracted storage = %q", s)
	}
	if b.Len() != 0 {
		t.Fatal("bucket not empty after extraction")
	}
	if _, err := bucket.ExtractStorage[[]byte](&b); !errors.Is(err, bucket.ErrBadStorageCast) {
		t.Fatalf("second extract: got %v, want ErrBadStorageCast", err)
	}
}

func TestRecyclingStorageIsPrivate(t *testing.T) {
	rs := bucket.NewRecyclingSource[int](bucket.RecyclingSourceOptions{})
	b, err := rs.BucketOfSize(2)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := bucket.ExtractStorage[[]int](&b); !errors.Is(err, bucket.ErrBadStorageCast) {
		t.Fatalf("recycled extract: got %v, want ErrBadStorageCast", err)
	}
}

func TestRecyclingSourceReusesReleasedArrays(t *testing.T) {
	rs := bucket.NewRecyclingSource[int](bucket.RecyclingSourceOptions{MaxOutstanding: 1})
	b, err := rs.BucketOfSize(3)
	if err != nil {
		t.Fatal(err)
	}
	b.Data()[0] = 7
	b.Release()

	b2, err := rs.BucketOfSize(3)
	if err != nil {
		t.Fatal(err)
	}
	if b2.Data()[0] != 7 {
		t.Fatal("recycled bucket was not reused (or was cleared without ClearOnRecycle)")
	}
}

func TestRecyclingSourceClearOnRecycle(t *testing.T) {
	rs := bucket.NewRecyclingSource[int](bucket.RecyclingSourceOptions{ClearOnRecycle: true})
	b, err := rs.BucketOfSize(3)
	if err != nil {
		t.Fatal(err)
	}
	b.Data()[0] = 7
	b.Release()

	b2, err := rs.BucketOfSize(3)
	if err != nil {
		t.Fatal(err)
	}
	if b2.Data()[0] != 0 {
		t.Fatalf("recycled bucket not cleared: %v", b2.Data())
	}
}

func TestRecyclingSourceExhaustion(t *testing.T) {
	rs := bucket.NewRecyclingSource[int](bucket.RecyclingSourceOptions{MaxOutstanding: 2})
	b1, err := rs.BucketOfSize(1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := rs.BucketOfSize(1); err != nil {
		t.Fatal(err)
	}
	if _, err := rs.BucketOfSize(1); !errors.Is(err, bucket.ErrSourceExhausted) {
		t.Fatalf("third bucket: got %v, want ErrSourceExhausted", err)
	}
	b1.Release()
	if _, err := rs.BucketOfSize(1); err != nil {
		t.Fatalf("after release: %v", err)
	}
}

func TestRecyclingSourceBlockingWaitsForRelease(t *testing.T) {
	rs := bucket.NewRecyclingSource[int](bucket.RecyclingSourceOptions{
		MaxOutstanding: 1,
		Blocking:       true,
	})
	b1, err := rs.BucketOfSize(1)
	if err != nil {
		t.Fatal(err)
	}

	got := make(chan error, 1)
	go func() {
		_, err := rs.BucketOfSize(1)
		got <- err
	}()

	select {
	case <-got:
		t.Fatal("blocking request returned before a bucket was released")
	case <-time.After(50 * time.Millisecond):
	}

	b1.Release()
	select {
	case err := <-got:
		if err != nil {
			t.Fatalf("unblocked request: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("blocking request did not return after release")
	}
}

func TestAsBytesSharesMemory(t *testing.T) {
	b := bucket.Of([]uint16{0x0201, 0x0403})
	raw := bucket.AsBytes(b)
	if len(raw) != 4 {
		t.Fatalf("byte view length = %d, want 4", len(raw))
	}
	raw[0] = 0xFF
	if b.Data()[0] != 0x02FF {
		t.Fatalf("byte view does not share memory: %#x", b.Data()[0])
	}
}
