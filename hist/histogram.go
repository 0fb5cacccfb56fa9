package hist

import (
	"context"

	"github.com/tcspc-go/tcspc/bucket"
	"github.com/tcspc-go/tcspc/event"
	"github.com/tcspc-go/tcspc/proc"
)

// Observer receives histogramming statistics as they happen. It is
// implemented by metrics.Collector; a nil Observer is valid and ignored.
type Observer interface {
	IncrementsApplied(n int)
	OverflowHandled(behavior string)
	ScanCompleted()
}

func observeIncrements(o Observer, n int) {
	if o != nil {
		o.IncrementsApplied(n)
	}
}

func observeOverflow(o Observer, behavior OverflowBehavior) {
	if o == nil {
		return
	}
	switch behavior {
	case ErrorOnOverflow:
		o.OverflowHandled("error")
	case StopOnOverflow:
		o.OverflowHandled("stop")
	case SaturateOnOverflow:
		o.OverflowHandled("saturate")
	case ResetOnOverflow:
		o.OverflowHandled("reset")
	}
}

func observeScan(o Observer) {
	if o != nil {
		o.ScanCompleted()
	}
}

// Histogram accumulates bin-increment clusters into a single bin array,
// emitting a SingleHistogramEvent view after every applied cluster. A
// reset event (per isReset) ends the round: with EmitConcluding set, the
// round's array is emitted as a ConcludingSingleHistogramEvent carrying
// the backing bucket itself, and the next cluster starts a fresh one.
// Flush behaves like a reset, then flushes downstream.
type Histogram[B event.Integer] struct {
	source     bucket.Source[B]
	numBins    int
	maxPerBin  B
	policy     Policy
	isReset    func(evt any) bool
	downstream proc.Processor
	obs        Observer

	cur       bucket.Bucket[B]
	saturated bool
}

// NewHistogram returns a Histogram processor. Panics if numBins is not
// positive or source is nil.
func NewHistogram[B event.Integer](source bucket.Source[B], numBins int, maxPerBin B, policy Policy, isReset func(evt any) bool, downstream proc.Processor) *Histogram[B] {
	if source == nil {
		panic("hist: histogram requires a bucket source")
	}
	if numBins <= 0 {
		panic("hist: histogram num_bins must be positive")
	}
	if isReset == nil {
		isReset = func(any) bool { return false }
	}
	return &Histogram[B]{
		source:     source,
		numBins:    numBins,
		maxPerBin:  maxPerBin,
		policy:     policy,
		isReset:    isReset,
		downstream: downstream,
	}
}

// SetObserver attaches an Observer for statistics. Call before feeding
// events.
func (h *Histogram[B]) SetObserver(obs Observer) { h.obs = obs }

func (h *Histogram[B]) state() SingleHistogram[B] {
	return SingleHistogram[B]{Bins: h.cur.Data(), MaxPerBin: h.maxPerBin}
}

func (h *Histogram[B]) ensureBucket() error {
	if h.cur.Len() != 0 {
		return nil
	}
	b, err := h.source.BucketOfSize(h.numBins)
	if err != nil {
		return err
	}
	h.cur = b
	h.state().Clear()
	return nil
}

// Handle accumulates event.BinIncrementCluster events, resets on reset
// events, and passes everything else through.
func (h *Histogram[B]) Handle(ctx context.Context, evt any) error {
	switch e := evt.(type) {
	case event.BinIncrementCluster:
		return h.applyCluster(ctx, e.Bins)
	default:
		if h.isReset(evt) {
			return h.reset(ctx)
		}
		return h.downstream.Handle(ctx, evt)
	}
}

func (h *Histogram[B]) applyCluster(ctx context.Context, bins []event.BinIndex) error {
	if err := h.ensureBucket(); err != nil {
		return err
	}
	st := h.state()
	switch h.policy.Overflow {
	case SaturateOnOverflow:
		dropped := 0
		for _, idx := range bins {
			if !st.Apply(idx) {
				dropped++
			}
		}
		observeIncrements(h.obs, len(bins)-dropped)
		if dropped > 0 {
			observeOverflow(h.obs, SaturateOnOverflow)
			if !h.saturated {
				h.saturated = true
				if err := h.downstream.Handle(ctx, event.Warning{Message: "histogram bin saturated"}); err != nil {
					return err
				}
			}
		}
	default:
		n, ok := st.ApplyCluster(bins)
		if !ok {
			st.UndoCluster(bins, n)
			observeOverflow(h.obs, h.policy.Overflow)
			return h.handleOverflow(ctx, bins)
		}
		observeIncrements(h.obs, n)
	}
	return h.downstream.Handle(ctx, SingleHistogramEvent[B]{Histogram: h.cur.Sub(0, h.cur.Len())})
}

// handleOverflow acts on an about-to-overflow cluster after its partial
// application has been undone.
func (h *Histogram[B]) handleOverflow(ctx context.Context, bins []event.BinIndex) error {
	switch h.policy.Overflow {
	case StopOnOverflow:
		if err := h.reset(ctx); err != nil {
			return err
		}
		if err := h.downstream.Flush(ctx); err != nil {
			return err
		}
		return proc.NewEndOfProcessing("histogram bin overflowed")
	case ResetOnOverflow:
		if err := h.reset(ctx); err != nil {
			return err
		}
		if err := h.ensureBucket(); err != nil {
			return err
		}
		st := h.state()
		n, ok := st.ApplyCluster(bins)
		if !ok {
			// A single cluster exceeding max_per_bin on a fresh array
			// cannot be resolved by further resets.
			return &proc.OverflowError{Bin: uint64(bins[n]), Op: "increment"}
		}
		observeIncrements(h.obs, n)
		return h.downstream.Handle(ctx, SingleHistogramEvent[B]{Histogram: h.cur.Sub(0, h.cur.Len())})
	default:
		return &proc.OverflowError{Op: "increment"}
	}
}

// reset ends the current round: with EmitConcluding, the backing bucket
// is handed downstream; either way the next cluster starts fresh.
func (h *Histogram[B]) reset(ctx context.Context) error {
	cur := h.cur
	h.cur = bucket.Bucket[B]{}
	h.saturated = false
	if h.policy.EmitConcluding && cur.Len() > 0 {
		return h.downstream.Handle(ctx, ConcludingSingleHistogramEvent[B]{Histogram: cur})
	}
	cur.Release()
	return nil
}

// Flush performs a final reset, then flushes downstream.
func (h *Histogram[B]) Flush(ctx context.Context) error {
	if err := h.reset(ctx); err != nil {
		return err
	}
	return h.downstream.Flush(ctx)
}

func (h *Histogram[B]) IntrospectNode() proc.NodeInfo {
	return proc.NodeInfo{Name: "histogram", Addr: h}
}

func (h *Histogram[B]) IntrospectGraph() proc.GraphInfo {
	if in, ok := h.downstream.(proc.Introspectable); ok {
		return in.IntrospectGraph().PushEntryPoint(h.IntrospectNode())
	}
	return proc.GraphInfo{}.PushEntryPoint(h.IntrospectNode())
}
