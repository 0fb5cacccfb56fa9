package hist

import (
	"github.com/tcspc-go/tcspc/event"
	"github.com/tcspc-go/tcspc/proc"
)

// SingleHistogram applies and undoes bin increments on a fixed span of
// bins, saturating each bin at MaxPerBin. It is pure state: the
// processors in this package own the policy decisions and drive it.
type SingleHistogram[B event.Integer] struct {
	Bins      []B
	MaxPerBin B
}

// Apply increments bin idx, reporting false (without modifying anything)
// if the bin is already at MaxPerBin.
func (h SingleHistogram[B]) Apply(idx event.BinIndex) bool {
	if h.Bins[idx] >= h.MaxPerBin {
		return false
	}
	h.Bins[idx]++
	return true
}

// Undo reverts one prior Apply of bin idx.
func (h SingleHistogram[B]) Undo(idx event.BinIndex) {
	h.Bins[idx]--
}

// ApplyCluster applies the increments of bins in order, stopping at the
// first one that would overflow. It returns the number applied and
// whether the whole cluster fit.
func (h SingleHistogram[B]) ApplyCluster(bins []event.BinIndex) (int, bool) {
	for i, idx := range bins {
		if !h.Apply(idx) {
			return i, false
		}
	}
	return len(bins), true
}

// UndoCluster reverts the first n increments of a cluster previously
// applied via ApplyCluster.
func (h SingleHistogram[B]) UndoCluster(bins []event.BinIndex, n int) {
	for i := n - 1; i >= 0; i-- {
		h.Undo(bins[i])
	}
}

// Clear zero-fills all bins.
func (h SingleHistogram[B]) Clear() {
	for i := range h.Bins {
		h.Bins[i] = 0
	}
}

// MultiHistogram advances through NumElements equally sized bin spans
// within one backing array, one element per cluster.
type MultiHistogram[B event.Integer] struct {
	bins        []B
	maxPerBin   B
	numBins     int
	numElements int
	next        int
	clearFirst  bool
}

// NewMultiHistogram wraps bins (of length numElements*numBins) for
// element-wise accumulation. When clearFirst is set, Next zero-fills each
// element span every time it reaches it (so once per scan), instead of the
// counts accumulating across scans.
func NewMultiHistogram[B event.Integer](bins []B, maxPerBin B, numBins, numElements int, clearFirst bool) *MultiHistogram[B] {
	return &MultiHistogram[B]{
		bins:        bins,
		maxPerBin:   maxPerBin,
		numBins:     numBins,
		numElements: numElements,
		clearFirst:  clearFirst,
	}
}

// NextElementIndex returns the index of the element the next cluster will
// be applied to.
func (m *MultiHistogram[B]) NextElementIndex() int { return m.next }

// NumElements returns the number of element histograms.
func (m *MultiHistogram[B]) NumElements() int { return m.numElements }

// IsScanComplete reports whether every element has received its cluster.
func (m *MultiHistogram[B]) IsScanComplete() bool { return m.next == m.numElements }

// IsScanStarted reports whether any cluster has been applied this scan.
func (m *MultiHistogram[B]) IsScanStarted() bool { return m.next > 0 }

// Element returns the SingleHistogram over element j's bin span.
func (m *MultiHistogram[B]) Element(j int) SingleHistogram[B] {
	return SingleHistogram[B]{
		Bins:      m.bins[j*m.numBins : (j+1)*m.numBins],
		MaxPerBin: m.maxPerBin,
	}
}

// Next returns the SingleHistogram for the next element, lazily clearing
// it when the histogram was constructed with clearFirst.
func (m *MultiHistogram[B]) Next() SingleHistogram[B] {
	e := m.Element(m.next)
	if m.clearFirst {
		e.Clear()
	}
	return e
}

// Advance marks the next element as filled.
func (m *MultiHistogram[B]) Advance() { m.next++ }

// Restart rewinds to element 0 without touching the accumulated counts.
func (m *MultiHistogram[B]) Restart() { m.next = 0 }

// MultiHistogramAccumulation wraps a MultiHistogram with a scan index, so
// repeated scans over the same element array accumulate.
type MultiHistogramAccumulation[B event.Integer] struct {
	*MultiHistogram[B]
	scan int
}

// NewMultiHistogramAccumulation starts accumulation at scan 0.
func NewMultiHistogramAccumulation[B event.Integer](m *MultiHistogram[B]) *MultiHistogramAccumulation[B] {
	return &MultiHistogramAccumulation[B]{MultiHistogram: m}
}

// ScanIndex returns the zero-based index of the scan in progress.
func (a *MultiHistogramAccumulation[B]) ScanIndex() int { return a.scan }

// IsFirstScan reports whether the scan in progress is the round's first.
func (a *MultiHistogramAccumulation[B]) IsFirstScan() bool { return a.scan == 0 }

// NewScan rewinds to element 0 for the next scan, retaining accumulated
// counts. Returns an IncompleteArrayCycleError if called before the
// current scan covered every element.
func (a *MultiHistogramAccumulation[B]) NewScan() error {
	if !a.IsScanComplete() {
		return &proc.IncompleteArrayCycleError{
			Expected: a.NumElements(),
			Got:      a.NextElementIndex(),
		}
	}
	a.Restart()
	a.scan++
	return nil
}
