// Package notify publishes pipeline warning events to out-of-process
// monitors. The pipeline-facing piece is WarningPublisher, a
// pass-through processor that forwards every event unchanged and
// additionally hands each event.Warning to a WarningSink.
package notify

import (
	"context"
	"time"

	"github.com/tcspc-go/tcspc/event"
	"github.com/tcspc-go/tcspc/proc"
)

// WarningNotification is the payload published for each warning event.
type WarningNotification struct {
	RunID     string `json:"run_id"`
	Pipeline  string `json:"pipeline,omitempty"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"` // ISO 8601
}

// WarningSink delivers warning notifications to a downstream system.
type WarningSink interface {
	// Publish sends one notification. Must respect context cancellation
	// and deadlines.
	Publish(ctx context.Context, n *WarningNotification) error

	// Close releases sink resources.
	Close() error
}

// WarningPublisher intercepts event.Warning events, publishes them to a
// WarningSink, and passes everything (warnings included) through. A
// failed publish degrades to a pass-through rather than failing the
// pipeline: monitoring must never take down an acquisition.
type WarningPublisher struct {
	sink       WarningSink
	runID      string
	pipeline   string
	downstream proc.Processor
}

func NewWarningPublisher(sink WarningSink, runID, pipeline string, downstream proc.Processor) *WarningPublisher {
	return &WarningPublisher{
		sink:       sink,
		runID:      runID,
		pipeline:   pipeline,
		downstream: downstream,
	}
}

func (p *WarningPublisher) Handle(ctx context.Context, evt any) error {
	if w, ok := evt.(event.Warning); ok {
		n := &WarningNotification{
			RunID:     p.runID,
			Pipeline:  p.pipeline,
			Message:   w.Message,
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		}
		// Best effort: the warning still flows downstream on failure.
		_ = p.sink.Publish(ctx, n)
	}
	return p.downstream.Handle(ctx, evt)
}

func (p *WarningPublisher) Flush(ctx context.Context) error { return p.downstream.Flush(ctx) }
