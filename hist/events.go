package hist

import "github.com/tcspc-go/tcspc/bucket"

// HistogramArrayProgress carries a view of the whole histogram array in
// progress, plus how many bins' worth of elements have been completely
// filled in the current scan so far. Emitted after every applied cluster.
type HistogramArrayProgress[B any] struct {
	FilledCount int
	Array       bucket.Bucket[B]
}

// HistogramArray carries a view of the histogram array as it stood at the
// completion of one full scan.
type HistogramArray[B any] struct {
	Array bucket.Bucket[B]
}

// ConcludingHistogramArray carries the histogram array at a round
// boundary (reset), with any partial scan rolled back, so every element
// reflects the same number of completed scans. Unlike HistogramArray, the
// bucket here is the actual backing bucket, not a view: the round is over
// and the receiver may extract its storage.
type ConcludingHistogramArray[B any] struct {
	Array bucket.Bucket[B]
}

// SingleHistogramEvent carries a view of a single accumulating histogram,
// emitted after every applied cluster.
type SingleHistogramEvent[B any] struct {
	Histogram bucket.Bucket[B]
}

// ConcludingSingleHistogramEvent carries a single histogram's final state
// at a reset, with extractable storage.
type ConcludingSingleHistogramEvent[B any] struct {
	Histogram bucket.Bucket[B]
}
