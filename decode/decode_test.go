package decode_test

import (
	"context"
	"testing"

	"github.com/tcspc-go/tcspc/bucket"
	"github.com/tcspc-go/tcspc/decode"
	"github.com/tcspc-go/tcspc/event"
)

type sink struct {
	events  []any
	flushes int
}

func (s *sink) Handle(_ context.Context, evt any) error {
	s.events = append(s.events, evt)
	return nil
}

func (s *sink) Flush(context.Context) error {
	s.flushes++
	return nil
}

func checkEvents(t *testing.T, got []any, want []any) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDecodeBHSPCMultiOverflowThenPhoton(t *testing.T) {
	down := &sink{}
	d := decode.NewDecodeBHSPC(down)
	ctx := t.Context()

	if err := d.Handle(ctx, decode.MakeBHSPCMultipleOverflow(3)); err != nil {
		t.Fatal(err)
	}
	if err := d.Handle(ctx, decode.MakeBHSPCPhoton(42, 123, 5, true)); err != nil {
		t.Fatal(err)
	}

	checkEvents(t, down.events, []any{
		event.TimeReached{AbsTime: 4096 * 3},
		event.TimeCorrelatedDetection{AbsTime: 4096*4 + 42, Channel: 5, DiffTime: 123},
	})
}

func TestDecodeBHSPCPhotonWithoutOverflow(t *testing.T) {
	down := &sink{}
	d := decode.NewDecodeBHSPC(down)

	if err := d.Handle(t.Context(), decode.MakeBHSPCPhoton(42, 123, 5, false)); err != nil {
		t.Fatal(err)
	}
	checkEvents(t, down.events, []any{
		event.TimeCorrelatedDetection{AbsTime: 42, Channel: 5, DiffTime: 123},
	})
}

func TestDecodeBHSPCMarkerFansOutPerBit(t *testing.T) {
	down := &sink{}
	d := decode.NewDecodeBHSPC(down)

	// Marker bits 0b0101 fire channels 0 and 2, in ascending order.
	if err := d.Handle(t.Context(), decode.MakeBHSPCMarker(42, 5, false)); err != nil {
		t.Fatal(err)
	}
	checkEvents(t, down.events, []any{
		event.Marker{AbsTime: 42, Channel: 0},
		event.Marker{AbsTime: 42, Channel: 2},
	})
}

func TestDecodeBHSPCGapEmitsDataLostFirst(t *testing.T) {
	down := &sink{}
	d := decode.NewDecodeBHSPC(down)

	if err := d.Handle(t.Context(), decode.MakeBHSPCPhoton(42, 123, 5, true).WithGap()); err != nil {
		t.Fatal(err)
	}
	checkEvents(t, down.events, []any{
		event.DataLost{AbsTime: 4096 + 42},
		event.TimeCorrelatedDetection{AbsTime: 4096 + 42, Channel: 5, DiffTime: 123},
	})
}

func TestDecodeBHSPCInvalidPhotonIsTimeReached(t *testing.T) {
	down := &sink{}
	d := decode.NewDecodeBHSPC(down)

	invalid := decode.BHSPCRecord(1<<31) | decode.MakeBHSPCPhoton(42, 123, 0, false)
	if err := d.Handle(t.Context(), invalid); err != nil {
		t.Fatal(err)
	}
	checkEvents(t, down.events, []any{event.TimeReached{AbsTime: 42}})
}

func TestDecodeBHSPCPassesThroughOtherEvents(t *testing.T) {
	down := &sink{}
	d := decode.NewDecodeBHSPC(down)

	warn := event.Warning{Message: "upstream"}
	if err := d.Handle(t.Context(), warn); err != nil {
		t.Fatal(err)
	}
	if err := d.Flush(t.Context()); err != nil {
		t.Fatal(err)
	}
	checkEvents(t, down.events, []any{warn})
	if down.flushes != 1 {
		t.Fatalf("flushes = %d, want 1", down.flushes)
	}
}

func TestDecodePQT3PicoHarp300(t *testing.T) {
	down := &sink{}
	d := decode.NewDecodePQT3PicoHarp300(down)
	ctx := t.Context()

	if err := d.Handle(ctx, decode.MakePQT3PicoHarp300Photon(42, 5, 123)); err != nil {
		t.Fatal(err)
	}
	if err := d.Handle(ctx, decode.MakePQT3PicoHarp300Overflow()); err != nil {
		t.Fatal(err)
	}
	if err := d.Handle(ctx, decode.MakePQT3PicoHarp300Photon(42, 5, 123)); err != nil {
		t.Fatal(err)
	}
	if err := d.Handle(ctx, decode.MakePQT3PicoHarp300Marker(10, 5)); err != nil {
		t.Fatal(err)
	}

	checkEvents(t, down.events, []any{
		event.TimeCorrelatedDetection{AbsTime: 42, Channel: 5, DiffTime: 123},
		event.TimeReached{AbsTime: 65536},
		event.TimeCorrelatedDetection{AbsTime: 65536 + 42, Channel: 5, DiffTime: 123},
		event.Marker{AbsTime: 65536 + 10, Channel: 0},
		event.Marker{AbsTime: 65536 + 10, Channel: 2},
	})
}

func TestDecodePQT3HydraHarpV1OverflowIsOnePeriod(t *testing.T) {
	down := &sink{}
	d := decode.NewDecodePQT3HydraHarpV1(down)
	ctx := t.Context()

	if err := d.Handle(ctx, decode.MakePQT3HydraHarpV1Overflow()); err != nil {
		t.Fatal(err)
	}
	if err := d.Handle(ctx, decode.MakePQT3HydraHarpV1Photon(42, 5, 123)); err != nil {
		t.Fatal(err)
	}

	checkEvents(t, down.events, []any{
		event.TimeReached{AbsTime: 1024},
		event.TimeCorrelatedDetection{AbsTime: 1024 + 42, Channel: 5, DiffTime: 123},
	})
}

func TestDecodePQT3GenericOverflowCarriesCount(t *testing.T) {
	down := &sink{}
	d := decode.NewDecodePQT3Generic(down)
	ctx := t.Context()

	if err := d.Handle(ctx, decode.MakePQT3GenericOverflow(3)); err != nil {
		t.Fatal(err)
	}
	if err := d.Handle(ctx, decode.MakePQT3GenericMarker(7, 5)); err != nil {
		t.Fatal(err)
	}

	checkEvents(t, down.events, []any{
		event.TimeReached{AbsTime: 1024 * 3},
		event.Marker{AbsTime: 1024*3 + 7, Channel: 0},
		event.Marker{AbsTime: 1024*3 + 7, Channel: 2},
	})
}

func TestDecodeSwabianTags(t *testing.T) {
	down := &sink{}
	d := decode.NewDecodeSwabianTags(down)
	ctx := t.Context()

	records := []decode.SwabianTagRecord{
		decode.MakeSwabianTag(decode.SwabianTimeTag, 0, 3, 1000),
		decode.MakeSwabianTag(decode.SwabianOverflowBegin, 0, 0, 1100),
		decode.MakeSwabianTag(decode.SwabianMissedEvents, 17, 3, 1200),
		decode.MakeSwabianTag(decode.SwabianOverflowEnd, 0, 0, 1300),
		decode.MakeSwabianTag(decode.SwabianError, 0, 0, 0),
	}
	for _, r := range records {
		if err := d.Handle(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	checkEvents(t, down.events, []any{
		event.Detection{AbsTime: 1000, Channel: 3},
		event.BeginLostInterval{AbsTime: 1100},
		event.LostCounts{AbsTime: 1200, Channel: 3, Count: 17},
		event.EndLostInterval{AbsTime: 1300},
		event.Warning{Message: "time tagger error tag"},
	})
}

// memoryStream is an OutputStream recording each write separately.
type memoryStream struct {
	writes [][]byte
	pos    uint64
}

func (m *memoryStream) Write(p []byte) (int, error) {
	cp := make([]byte, len(p))
	copy(cp, p)
	m.writes = append(m.writes, cp)
	m.pos += uint64(len(p))
	return len(p), nil
}

func (m *memoryStream) Tell() (uint64, bool) { return m.pos, true }
func (m *memoryStream) Close() error         { return nil }

func TestWriteBinaryStreamGranularity(t *testing.T) {
	out := &memoryStream{}
	w := decode.NewWriteBinaryStream[byte](out, 4)
	ctx := t.Context()

	feed := func(data []byte) {
		t.Helper()
		if err := w.HandleBucket(ctx, bucket.Of(data)); err != nil {
			t.Fatal(err)
		}
	}

	feed([]byte{1, 2, 3})    // under one granule: buffered
	feed([]byte{4, 5, 6, 7}) // now 7 bytes: one granule written, 3 kept
	feed([]byte{8})          // 4 bytes: second granule written
	if err := w.Flush(ctx); err != nil {
		t.Fatal(err)
	}

	var all []byte
	for i, wr := range out.writes[:len(out.writes)-1] {
		if len(wr)%4 != 0 {
			t.Fatalf("write %d has %d bytes, want a multiple of 4", i, len(wr))
		}
		all = append(all, wr...)
	}
	all = append(all, out.writes[len(out.writes)-1]...)
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if len(all) != len(want) {
		t.Fatalf("stream = %v, want %v", all, want)
	}
	for i := range want {
		if all[i] != want[i] {
			t.Fatalf("stream = %v, want %v", all, want)
		}
	}
}

func TestWriteBinaryStreamAlignsFirstWrite(t *testing.T) {
	out := &memoryStream{pos: 2} // stream starts mid-granule
	w := decode.NewWriteBinaryStream[byte](out, 4)
	ctx := t.Context()

	if err := w.HandleBucket(ctx, bucket.Of([]byte{1, 2, 3, 4, 5, 6})); err != nil {
		t.Fatal(err)
	}
	if err := w.Flush(ctx); err != nil {
		t.Fatal(err)
	}

	// First write brings position from 2 to the granule boundary.
	if len(out.writes[0]) != 2 {
		t.Fatalf("first write has %d bytes, want 2", len(out.writes[0]))
	}
	if len(out.writes[1]) != 4 {
		t.Fatalf("second write has %d bytes, want 4", len(out.writes[1]))
	}
}
