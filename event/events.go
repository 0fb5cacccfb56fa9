package event

// TimeReached marks that no further events will be reported with an
// abstime earlier than this one. Emitted by acquisition and by
// time-regulating processors.
type TimeReached struct {
	AbsTime AbsTime
}

// Detection is a single photon detection event.
type Detection struct {
	AbsTime AbsTime
	Channel Channel
}

// TimeCorrelatedDetection is a photon detection carrying a difference time
// relative to a reference (e.g. a sync pulse), as produced by TCSPC
// hardware in time-tagging mode.
type TimeCorrelatedDetection struct {
	AbsTime  AbsTime
	Channel  Channel
	DiffTime DiffTime
}

// Marker is an external marker/gate signal (e.g. a frame or line marker
// from a scanning microscope).
type Marker struct {
	AbsTime AbsTime
	Channel Channel
}

// DataLost indicates detection data was lost (e.g. FIFO overflow on the
// acquisition device) but the approximate time range is known.
type DataLost struct {
	AbsTime AbsTime
}

// BeginLostInterval marks the start of an interval during which events may
// have been lost; pairs with EndLostInterval.
type BeginLostInterval struct {
	AbsTime AbsTime
}

// EndLostInterval marks the end of a lost-data interval begun by a prior
// BeginLostInterval.
type EndLostInterval struct {
	AbsTime AbsTime
}

// LostCounts reports the number of detections lost during a lost interval,
// when the device is able to report a count even though the individual
// events are unrecoverable.
type LostCounts struct {
	AbsTime AbsTime
	Channel Channel
	Count   Count
}

// Warning carries a human-readable recoverable-error message. Processors
// that emit a Warning should also pass it through, so multiple
// warning-emitting processors can be chained ahead of one handler.
type Warning struct {
	Message string
}

// BulkCounts reports an aggregate count of detections on a channel over an
// abstime range, used by devices that report binned rates rather than
// individual photon arrivals.
type BulkCounts struct {
	AbsTime AbsTime
	Channel Channel
	Count   Count
}

// BinIncrement requests that a single bin be incremented by one count.
type BinIncrement struct {
	Bin BinIndex
}

// BinIncrementBatch carries zero or more BinIncrement requests bucketed
// together, typically the expansion of one TimeCorrelatedDetection into its
// target bin.
type BinIncrementBatch struct {
	Bins []BinIndex
}

// BinIncrementCluster carries the bin increments that resulted from a
// single upstream event (e.g. all channels lit by one sync pulse), so a
// scan-level consumer can attribute increments back to their originating
// event without re-deriving it.
type BinIncrementCluster struct {
	Bins []BinIndex
}

// Never is an event type whose instances are never constructed; it is used
// to parameterize processors that have an unused event-type slot.
type Never struct {
	_ [0]func() // makes Never non-comparable; it carries no data
}
