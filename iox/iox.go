// Package iox provides cleanup helpers for the stream and sink handles
// used throughout the pipeline (file streams, Redis clients, pub/sub
// subscriptions).
package iox

import "io"

// DiscardClose closes c and discards the error, for defer sites where a
// close failure is unactionable:
//
//	defer iox.DiscardClose(out)
func DiscardClose(c io.Closer) { _ = c.Close() }

// CloseFunc returns a function that closes c, shaped for t.Cleanup and
// b.Cleanup registration:
//
//	t.Cleanup(iox.CloseFunc(in))
func CloseFunc(c io.Closer) func() {
	return func() { _ = c.Close() }
}

// DiscardErr calls fn and discards the returned error, for non-Close
// cleanup (e.g. a final Flush) whose failure is unactionable:
//
//	defer iox.DiscardErr(enc.Close)
func DiscardErr(fn func() error) { _ = fn() }
