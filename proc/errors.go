package proc

import (
	"errors"
	"fmt"
)

// EndOfProcessing is returned by a processor's Handle/Flush to signal a
// non-error end of the stream: the processor has already flushed its
// downstream and no further events or flushes must be sent to it. It is a
// normal control-flow signal, not a failure; check for it with
// IsEndOfProcessing rather than logging it as an error.
type EndOfProcessing struct {
	Reason string
}

func (e *EndOfProcessing) Error() string {
	if e.Reason == "" {
		return "end of processing"
	}
	return "end of processing: " + e.Reason
}

// NewEndOfProcessing returns an *EndOfProcessing carrying reason.
func NewEndOfProcessing(reason string) error {
	return &EndOfProcessing{Reason: reason}
}

// IsEndOfProcessing reports whether err is (or wraps) an *EndOfProcessing.
func IsEndOfProcessing(err error) bool {
	var e *EndOfProcessing
	return errors.As(err, &e)
}

// AcquisitionHalted is returned by an acquisition driver (see package
// acquire) when a caller-requested halt interrupted the read loop before
// the underlying reader reached end-of-stream or an error. Distinct from
// EndOfProcessing: a halt does not flush downstream, since the caller may
// want to resume or may be shutting down abnormally.
type AcquisitionHalted struct{}

func (e *AcquisitionHalted) Error() string { return "acquisition halted" }

// ErrAcquisitionHalted is the canonical AcquisitionHalted instance.
var ErrAcquisitionHalted error = &AcquisitionHalted{}

// IsAcquisitionHalted reports whether err is (or wraps) ErrAcquisitionHalted.
func IsAcquisitionHalted(err error) bool {
	var e *AcquisitionHalted
	return errors.As(err, &e)
}

// OverflowError is raised by the histogram engine when the error-on-overflow
// policy is in effect and a bin would overflow, or when reset-on-overflow
// is requested but a reset provably cannot avoid re-overflowing.
type OverflowError struct {
	Bin uint64
	Op  string // the operation attempted, e.g. "increment"
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("histogram overflow at bin %d during %s", e.Bin, e.Op)
}

// IsOverflow reports whether err is (or wraps) an *OverflowError.
func IsOverflow(err error) bool {
	var e *OverflowError
	return errors.As(err, &e)
}

// IncompleteArrayCycleError is raised when a new-cycle signal arrives
// before the current histogram-array cycle received its expected number
// of batches.
type IncompleteArrayCycleError struct {
	Expected, Got int
}

func (e *IncompleteArrayCycleError) Error() string {
	return fmt.Sprintf("incomplete histogram array cycle: expected %d batches, got %d", e.Expected, e.Got)
}

// IsIncompleteArrayCycle reports whether err is (or wraps) an
// *IncompleteArrayCycleError.
func IsIncompleteArrayCycle(err error) bool {
	var e *IncompleteArrayCycleError
	return errors.As(err, &e)
}

// InvalidArgument wraps a precondition violation detected at processor
// construction time (e.g. a non-positive batch size).
type InvalidArgument struct {
	Msg string
}

func (e *InvalidArgument) Error() string { return e.Msg }

// NewInvalidArgument returns an *InvalidArgument with the given message.
func NewInvalidArgument(msg string) error { return &InvalidArgument{Msg: msg} }
