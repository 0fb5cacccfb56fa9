package hist

import (
	"context"

	"github.com/tcspc-go/tcspc/bucket"
	"github.com/tcspc-go/tcspc/event"
	"github.com/tcspc-go/tcspc/proc"
)

// ScanHistograms accumulates bin-increment clusters into an array of
// NumElements histograms, one cluster per element, cycling through the
// elements once per scan and accumulating scans until a reset.
//
// After every applied cluster it emits a HistogramArrayProgress view; at
// the end of each scan it emits a HistogramArray view. A reset (reset
// event, ResetAfterScan, or the reset/stop overflow behaviors) ends the
// round: with EmitConcluding set, the partial scan is rolled back via the
// journal and the round's array emitted as a ConcludingHistogramArray
// carrying the backing bucket itself.
type ScanHistograms[B event.Integer] struct {
	source      bucket.Source[B]
	numElements int
	numBins     int
	maxPerBin   B
	policy      Policy
	isReset     func(evt any) bool
	downstream  proc.Processor
	obs         Observer

	journal   Journal
	cur       bucket.Bucket[B]
	acc       *MultiHistogramAccumulation[B]
	saturated bool
}

// NewScanHistograms returns a ScanHistograms processor. Panics if
// numElements or numBins is not positive, if source is nil, or if the
// policy combines EmitConcluding with SaturateOnOverflow (a saturated
// partial scan cannot be rolled back).
func NewScanHistograms[B event.Integer](source bucket.Source[B], numElements, numBins int, maxPerBin B, policy Policy, isReset func(evt any) bool, downstream proc.Processor) *ScanHistograms[B] {
	if source == nil {
		panic("hist: scan_histograms requires a bucket source")
	}
	if numElements <= 0 || numBins <= 0 {
		panic("hist: scan_histograms num_elements and num_bins must be positive")
	}
	if policy.EmitConcluding && policy.Overflow == SaturateOnOverflow {
		panic("hist: EmitConcluding is not supported with SaturateOnOverflow")
	}
	if isReset == nil {
		isReset = func(any) bool { return false }
	}
	var journal Journal = NullJournal{}
	if policy.EmitConcluding || policy.Overflow == ResetOnOverflow {
		journal = NewClusterJournal()
	}
	return &ScanHistograms[B]{
		source:      source,
		numElements: numElements,
		numBins:     numBins,
		maxPerBin:   maxPerBin,
		policy:      policy,
		isReset:     isReset,
		downstream:  downstream,
		journal:     journal,
	}
}

// SetObserver attaches an Observer for statistics. Call before feeding
// events.
func (s *ScanHistograms[B]) SetObserver(obs Observer) { s.obs = obs }

func (s *ScanHistograms[B]) ensureBucket() error {
	if s.cur.Len() != 0 {
		return nil
	}
	b, err := s.source.BucketOfSize(s.numElements * s.numBins)
	if err != nil {
		return err
	}
	s.cur = b
	if !s.policy.NoClearNewBucket {
		data := s.cur.Data()
		for i := range data {
			data[i] = 0
		}
	}
	s.acc = NewMultiHistogramAccumulation(NewMultiHistogram(
		s.cur.Data(), s.maxPerBin, s.numBins, s.numElements,
		s.policy.ClearEveryScan))
	return nil
}

func (s *ScanHistograms[B]) view() bucket.Bucket[B] {
	return s.cur.Sub(0, s.cur.Len())
}

// Handle accumulates event.BinIncrementCluster events, resets on reset
// events, and passes everything else through.
func (s *ScanHistograms[B]) Handle(ctx context.Context, evt any) error {
	switch e := evt.(type) {
	case event.BinIncrementCluster:
		return s.applyCluster(ctx, e.Bins)
	default:
		if s.isReset(evt) {
			return s.reset(ctx)
		}
		return s.downstream.Handle(ctx, evt)
	}
}

func (s *ScanHistograms[B]) applyCluster(ctx context.Context, bins []event.BinIndex) error {
	if err := s.ensureBucket(); err != nil {
		return err
	}
	j := s.acc.NextElementIndex()
	elem := s.acc.Next()

	if s.policy.Overflow == SaturateOnOverflow {
		dropped := 0
		for _, idx := range bins {
			if !elem.Apply(idx) {
				dropped++
			}
		}
		observeIncrements(s.obs, len(bins)-dropped)
		if dropped > 0 {
			observeOverflow(s.obs, SaturateOnOverflow)
			if !s.saturated {
				s.saturated = true
				if err := s.downstream.Handle(ctx, event.Warning{Message: "histogram bin saturated"}); err != nil {
					return err
				}
			}
		}
	} else {
		n, ok := elem.ApplyCluster(bins)
		if !ok {
			elem.UndoCluster(bins, n)
			observeOverflow(s.obs, s.policy.Overflow)
			return s.handleOverflow(ctx, bins)
		}
		observeIncrements(s.obs, n)
	}

	s.journal.Record(bins)
	s.acc.Advance()

	err := s.downstream.Handle(ctx, HistogramArrayProgress[B]{
		FilledCount: (j + 1) * s.numBins,
		Array:       s.view(),
	})
	if err != nil {
		return err
	}

	if !s.acc.IsScanComplete() {
		return nil
	}
	observeScan(s.obs)
	if err := s.downstream.Handle(ctx, HistogramArray[B]{Array: s.view()}); err != nil {
		return err
	}
	s.journal.Clear()
	if err := s.acc.NewScan(); err != nil {
		return err
	}
	if s.policy.ResetAfterScan {
		return s.reset(ctx)
	}
	return nil
}

// handleOverflow acts on an about-to-overflow cluster after its partial
// application has been undone.
func (s *ScanHistograms[B]) handleOverflow(ctx context.Context, bins []event.BinIndex) error {
	switch s.policy.Overflow {
	case StopOnOverflow:
		if s.policy.EmitConcluding {
			s.rollBackScan()
			cur := s.cur
			s.cur = bucket.Bucket[B]{}
			s.acc = nil
			s.journal.Clear()
			if err := s.downstream.Handle(ctx, ConcludingHistogramArray[B]{Array: cur}); err != nil {
				return err
			}
		}
		if err := s.downstream.Flush(ctx); err != nil {
			return err
		}
		return proc.NewEndOfProcessing("histogram bin overflowed")

	case ResetOnOverflow:
		if s.acc.IsFirstScan() {
			// A reset cannot help: the same scan would overflow again.
			return &proc.OverflowError{Op: "increment"}
		}
		s.rollBackScan()
		cur := s.cur
		s.cur = bucket.Bucket[B]{}
		s.acc = nil
		if s.policy.EmitConcluding {
			if err := s.downstream.Handle(ctx, ConcludingHistogramArray[B]{Array: cur}); err != nil {
				return err
			}
		} else {
			cur.Release()
		}
		if err := s.ensureBucket(); err != nil {
			return err
		}
		if err := s.replayJournal(); err != nil {
			return err
		}
		// The journal retains the replayed clusters: they are now the
		// new round's first scan. Reapply the cluster that overflowed.
		return s.applyCluster(ctx, bins)

	default:
		return &proc.OverflowError{Op: "increment"}
	}
}

// rollBackScan undoes every journaled cluster of the partial scan in
// progress and rewinds to element 0, restoring the array to its state at
// the start of the scan.
func (s *ScanHistograms[B]) rollBackScan() {
	s.journal.ForEach(func(slot int, bins []event.BinIndex) {
		elem := s.acc.Element(slot)
		for _, idx := range bins {
			elem.Undo(idx)
		}
	})
	s.acc.Restart()
}

// replayJournal reapplies the journaled clusters onto a fresh array,
// element by element.
func (s *ScanHistograms[B]) replayJournal() error {
	var replayErr error
	s.journal.ForEach(func(_ int, bins []event.BinIndex) {
		if replayErr != nil {
			return
		}
		elem := s.acc.Next()
		n, ok := elem.ApplyCluster(bins)
		if !ok {
			replayErr = &proc.OverflowError{Bin: uint64(bins[n]), Op: "replay"}
			return
		}
		observeIncrements(s.obs, n)
		s.acc.Advance()
	})
	return replayErr
}

// reset ends the current round. With EmitConcluding, the partial scan is
// rolled back and the backing bucket handed downstream; either way the
// next cluster starts a fresh round.
func (s *ScanHistograms[B]) reset(ctx context.Context) error {
	cur := s.cur
	emit := s.policy.EmitConcluding && cur.Len() > 0
	if emit {
		s.rollBackScan()
	}
	s.cur = bucket.Bucket[B]{}
	s.acc = nil
	s.saturated = false
	s.journal.Clear()
	if emit {
		return s.downstream.Handle(ctx, ConcludingHistogramArray[B]{Array: cur})
	}
	cur.Release()
	return nil
}

// Flush performs a final reset, then flushes downstream.
func (s *ScanHistograms[B]) Flush(ctx context.Context) error {
	if err := s.reset(ctx); err != nil {
		return err
	}
	return s.downstream.Flush(ctx)
}

func (s *ScanHistograms[B]) IntrospectNode() proc.NodeInfo {
	return proc.NodeInfo{Name: "scan_histograms", Addr: s}
}

func (s *ScanHistograms[B]) IntrospectGraph() proc.GraphInfo {
	if in, ok := s.downstream.(proc.Introspectable); ok {
		return in.IntrospectGraph().PushEntryPoint(s.IntrospectNode())
	}
	return proc.GraphInfo{}.PushEntryPoint(s.IntrospectNode())
}
