// Package hist implements the histogramming engine: a single accumulating
// histogram (Histogram) and a scanned array of histograms
// (ScanHistograms) with four overflow policies, journal-based
// rollback/replay for policies that need it, and the three array-level
// events (progress, per-scan, concluding).
package hist

// OverflowBehavior selects what happens when an increment would overflow
// a bin.
type OverflowBehavior int

const (
	// ErrorOnOverflow fails the pipeline with an overflow error on the
	// offending increment. The default behavior.
	ErrorOnOverflow OverflowBehavior = iota
	// StopOnOverflow rolls back the current scan (if EmitConcluding is
	// set), flushes downstream, and ends the stream with EndOfProcessing.
	StopOnOverflow
	// SaturateOnOverflow drops the offending increment (saturating
	// instead of wrapping or erroring), emitting one Warning per round on
	// the first such drop.
	SaturateOnOverflow
	// ResetOnOverflow rolls back the current scan, starts a fresh round,
	// replays the rolled-back scan, and reapplies the increment that
	// overflowed, erroring only if the overflow recurs immediately (which
	// can only happen on a round's first scan).
	ResetOnOverflow
)

// Policy bundles an OverflowBehavior with the scan-level behavior flags
// used by ScanHistograms (Histogram only consults Overflow and
// EmitConcluding).
type Policy struct {
	Overflow OverflowBehavior

	// EmitConcluding requests a ConcludingHistogramArray (or
	// ConcludingSingleHistogramEvent) event on every reset, with any partial
	// scan rolled back first. Incompatible with SaturateOnOverflow for
	// ScanHistograms (there's no way to roll back a partial scan once
	// increments have been dropped rather than recorded).
	EmitConcluding bool

	// ResetAfterScan performs a reset immediately after every scan
	// completes, disabling multi-scan accumulation. ScanHistograms only.
	ResetAfterScan bool

	// ClearEveryScan overwrites each element histogram with the current
	// scan's counts instead of adding to prior scans. ScanHistograms only.
	ClearEveryScan bool

	// NoClearNewBucket skips zero-filling a freshly allocated histogram
	// array bucket, trading a well-defined HistogramArrayProgress during
	// the first scan for avoiding a fill pass. ScanHistograms only.
	NoClearNewBucket bool
}

// DefaultPolicy is the zero-value policy: error on overflow, no concluding
// events, accumulate across scans.
var DefaultPolicy = Policy{Overflow: ErrorOnOverflow}
