// Package export writes emitted histogram arrays to columnar storage
// for offline analysis. ParquetSink is a pass-through processor: every
// event continues downstream unchanged, and each completed-scan or
// concluding histogram array additionally becomes one parquet row.
package export

import (
	"context"
	"io"

	"github.com/parquet-go/parquet-go"

	"github.com/tcspc-go/tcspc/event"
	"github.com/tcspc-go/tcspc/hist"
	"github.com/tcspc-go/tcspc/proc"
)

// HistogramRow is the parquet schema for one emitted histogram array.
type HistogramRow struct {
	RunID    string   `parquet:"run_id"`
	Pipeline string   `parquet:"pipeline,optional"`
	Kind     string   `parquet:"kind"` // "scan" or "concluding"
	Sequence int64    `parquet:"sequence"`
	Bins     []uint64 `parquet:"bins"`
}

// ParquetSink records hist.HistogramArray and
// hist.ConcludingHistogramArray events as parquet rows while passing all
// events through. Flush closes the parquet writer (making the file
// well-formed) before propagating flush downstream.
type ParquetSink struct {
	writer     *parquet.GenericWriter[HistogramRow]
	runID      string
	pipeline   string
	downstream proc.Processor
	sequence   int64
}

// NewParquetSink writes rows to w. The caller owns w and closes it after
// the pipeline has been flushed.
func NewParquetSink(w io.Writer, runID, pipeline string, downstream proc.Processor) *ParquetSink {
	return &ParquetSink{
		writer:     parquet.NewGenericWriter[HistogramRow](w),
		runID:      runID,
		pipeline:   pipeline,
		downstream: downstream,
	}
}

func (s *ParquetSink) Handle(ctx context.Context, evt any) error {
	switch e := evt.(type) {
	case hist.HistogramArray[event.BinValue]:
		if err := s.writeRow("scan", e.Array.Data()); err != nil {
			return err
		}
	case hist.ConcludingHistogramArray[event.BinValue]:
		if err := s.writeRow("concluding", e.Array.Data()); err != nil {
			return err
		}
	}
	return s.downstream.Handle(ctx, evt)
}

func (s *ParquetSink) writeRow(kind string, bins []event.BinValue) error {
	row := HistogramRow{
		RunID:    s.runID,
		Pipeline: s.pipeline,
		Kind:     kind,
		Sequence: s.sequence,
		Bins:     make([]uint64, len(bins)),
	}
	for i, b := range bins {
		row.Bins[i] = uint64(b)
	}
	s.sequence++
	_, err := s.writer.Write([]HistogramRow{row})
	return err
}

// Flush finalizes the parquet output, then flushes downstream.
func (s *ParquetSink) Flush(ctx context.Context) error {
	if err := s.writer.Close(); err != nil {
		return err
	}
	return s.downstream.Flush(ctx)
}
