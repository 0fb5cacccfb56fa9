// Package decode turns raw device records (Becker-Hickl SPC, PicoQuant
// T3, Swabian time tagger) into the common event vocabulary, and writes
// bucket payloads back out as raw binary.
//
// Each decoder is a processor that accepts its record type and emits
// TimeReached / TimeCorrelatedDetection / Marker / DataLost (and related)
// events; all other input events pass through unchanged.
package decode

import (
	"context"
	"math/bits"

	"github.com/tcspc-go/tcspc/event"
	"github.com/tcspc-go/tcspc/proc"
)

// BHSPCRecord is a 4-byte SPC-130/150-family record, interpreted as a
// little-endian 32-bit word:
//
//	bits  0-11  macrotime
//	bits 12-15  routing signals
//	bits 16-27  ADC value
//	bit  28     marker flag
//	bit  29     gap flag
//	bit  30     macrotime overflow flag
//	bit  31     invalid flag
//
// A record with both invalid and macrotime-overflow set (and no marker)
// is a multiple-overflow record whose bits 0-27 hold the overflow count.
type BHSPCRecord uint32

// bhSPCOverflowPeriod is the macrotime range of one overflow (12 bits).
const bhSPCOverflowPeriod = 1 << 12

func (r BHSPCRecord) Macrotime() uint32     { return uint32(r) & 0xFFF }
func (r BHSPCRecord) RoutingSignals() uint8 { return uint8(r >> 12 & 0xF) }
func (r BHSPCRecord) ADCValue() uint16      { return uint16(r >> 16 & 0xFFF) }
func (r BHSPCRecord) MarkerFlag() bool      { return r>>28&1 != 0 }
func (r BHSPCRecord) GapFlag() bool         { return r>>29&1 != 0 }
func (r BHSPCRecord) OverflowFlag() bool    { return r>>30&1 != 0 }
func (r BHSPCRecord) InvalidFlag() bool     { return r>>31&1 != 0 }

// IsMultipleOverflow reports whether this record carries a multiple
// macrotime-overflow count instead of a photon.
func (r BHSPCRecord) IsMultipleOverflow() bool {
	return r.InvalidFlag() && r.OverflowFlag() && !r.MarkerFlag()
}

// MultipleOverflowCount returns the 28-bit overflow count of a multiple-
// overflow record.
func (r BHSPCRecord) MultipleOverflowCount() uint32 { return uint32(r) & 0x0FFF_FFFF }

// MakeBHSPCPhoton assembles a photon record for tests and simulators.
func MakeBHSPCPhoton(macrotime uint16, adc uint16, route uint8, overflow bool) BHSPCRecord {
	r := BHSPCRecord(macrotime&0xFFF) |
		BHSPCRecord(route&0xF)<<12 |
		BHSPCRecord(adc&0xFFF)<<16
	if overflow {
		r |= 1 << 30
	}
	return r
}

// MakeBHSPCMarker assembles a marker record; markerBits selects which of
// the four marker channels fired.
func MakeBHSPCMarker(macrotime uint16, markerBits uint8, overflow bool) BHSPCRecord {
	r := BHSPCRecord(macrotime&0xFFF) |
		BHSPCRecord(markerBits&0xF)<<12 |
		1<<31 | 1<<28
	if overflow {
		r |= 1 << 30
	}
	return r
}

// MakeBHSPCMultipleOverflow assembles a multiple macrotime-overflow
// record.
func MakeBHSPCMultipleOverflow(count uint32) BHSPCRecord {
	return BHSPCRecord(count&0x0FFF_FFFF) | 1<<31 | 1<<30
}

// WithGap returns the record with its gap flag set.
func (r BHSPCRecord) WithGap() BHSPCRecord { return r | 1<<29 }

// DecodeBHSPC decodes BHSPCRecord events.
type DecodeBHSPC struct {
	downstream proc.Processor
	base       event.AbsTime // abstime of macrotime 0, advanced by overflows
}

func NewDecodeBHSPC(downstream proc.Processor) *DecodeBHSPC {
	return &DecodeBHSPC{downstream: downstream}
}

func (d *DecodeBHSPC) Handle(ctx context.Context, evt any) error {
	r, ok := evt.(BHSPCRecord)
	if !ok {
		return d.downstream.Handle(ctx, evt)
	}

	if r.IsMultipleOverflow() {
		d.base += event.AbsTime(r.MultipleOverflowCount()) * bhSPCOverflowPeriod
		if r.GapFlag() {
			if err := d.downstream.Handle(ctx, event.DataLost{AbsTime: d.base}); err != nil {
				return err
			}
		}
		return d.downstream.Handle(ctx, event.TimeReached{AbsTime: d.base})
	}

	if r.OverflowFlag() {
		d.base += bhSPCOverflowPeriod
	}
	abstime := d.base + event.AbsTime(r.Macrotime())
	if r.GapFlag() {
		if err := d.downstream.Handle(ctx, event.DataLost{AbsTime: abstime}); err != nil {
			return err
		}
	}

	switch {
	case r.InvalidFlag() && r.MarkerFlag():
		return emitMarkers(ctx, d.downstream, abstime, uint32(r.RoutingSignals()))
	case r.InvalidFlag():
		return d.downstream.Handle(ctx, event.TimeReached{AbsTime: abstime})
	default:
		return d.downstream.Handle(ctx, event.TimeCorrelatedDetection{
			AbsTime:  abstime,
			Channel:  event.Channel(r.RoutingSignals()),
			DiffTime: event.DiffTime(r.ADCValue()),
		})
	}
}

func (d *DecodeBHSPC) Flush(ctx context.Context) error { return d.downstream.Flush(ctx) }

// emitMarkers fans a marker bitfield out to one Marker event per set
// bit, in ascending channel order.
func emitMarkers(ctx context.Context, downstream proc.Processor, abstime event.AbsTime, markerBits uint32) error {
	for markerBits != 0 {
		ch := bits.TrailingZeros32(markerBits)
		markerBits &^= 1 << ch
		err := downstream.Handle(ctx, event.Marker{AbsTime: abstime, Channel: event.Channel(ch)})
		if err != nil {
			return err
		}
	}
	return nil
}

// BHSPC600_256Record is a 4-byte SPC-600/256-channel record:
//
//	bits  0-7   ADC value
//	bits  8-24  macrotime
//	bits 25-27  routing signals
//	bit  29     gap flag
//	bit  30     macrotime overflow flag
//	bit  31     invalid flag
//
// This format has no marker records.
type BHSPC600_256Record uint32

const bhSPC600_256OverflowPeriod = 1 << 17

func (r BHSPC600_256Record) ADCValue() uint16      { return uint16(r & 0xFF) }
func (r BHSPC600_256Record) Macrotime() uint32     { return uint32(r >> 8 & 0x1FFFF) }
func (r BHSPC600_256Record) RoutingSignals() uint8 { return uint8(r >> 25 & 0x7) }
func (r BHSPC600_256Record) GapFlag() bool         { return r>>29&1 != 0 }
func (r BHSPC600_256Record) OverflowFlag() bool    { return r>>30&1 != 0 }
func (r BHSPC600_256Record) InvalidFlag() bool     { return r>>31&1 != 0 }

func (r BHSPC600_256Record) IsMultipleOverflow() bool {
	return r.InvalidFlag() && r.OverflowFlag()
}

func (r BHSPC600_256Record) MultipleOverflowCount() uint32 { return uint32(r) & 0x0FFF_FFFF }

// DecodeBHSPC600_256 decodes BHSPC600_256Record events.
type DecodeBHSPC600_256 struct {
	downstream proc.Processor
	base       event.AbsTime
}

func NewDecodeBHSPC600_256(downstream proc.Processor) *DecodeBHSPC600_256 {
	return &DecodeBHSPC600_256{downstream: downstream}
}

func (d *DecodeBHSPC600_256) Handle(ctx context.Context, evt any) error {
	r, ok := evt.(BHSPC600_256Record)
	if !ok {
		return d.downstream.Handle(ctx, evt)
	}

	if r.IsMultipleOverflow() {
		d.base += event.AbsTime(r.MultipleOverflowCount()) * bhSPC600_256OverflowPeriod
		if r.GapFlag() {
			if err := d.downstream.Handle(ctx, event.DataLost{AbsTime: d.base}); err != nil {
				return err
			}
		}
		return d.downstream.Handle(ctx, event.TimeReached{AbsTime: d.base})
	}

	if r.OverflowFlag() {
		d.base += bhSPC600_256OverflowPeriod
	}
	abstime := d.base + event.AbsTime(r.Macrotime())
	if r.GapFlag() {
		if err := d.downstream.Handle(ctx, event.DataLost{AbsTime: abstime}); err != nil {
			return err
		}
	}
	if r.InvalidFlag() {
		return d.downstream.Handle(ctx, event.TimeReached{AbsTime: abstime})
	}
	return d.downstream.Handle(ctx, event.TimeCorrelatedDetection{
		AbsTime:  abstime,
		Channel:  event.Channel(r.RoutingSignals()),
		DiffTime: event.DiffTime(r.ADCValue()),
	})
}

func (d *DecodeBHSPC600_256) Flush(ctx context.Context) error { return d.downstream.Flush(ctx) }

// BHSPC600_4096Record is a 6-byte SPC-600/4096-channel record,
// interpreted as a little-endian 48-bit word:
//
//	bits  0-11  ADC value
//	bit  12     invalid flag
//	bit  13     macrotime overflow flag
//	bit  14     gap flag
//	bits 16-23  macrotime bits 16-23
//	bits 24-31  routing signals
//	bits 32-47  macrotime bits 0-15
//
// This format has no marker records and no multiple-overflow records.
type BHSPC600_4096Record uint64

const bhSPC600_4096OverflowPeriod = 1 << 24

func (r BHSPC600_4096Record) ADCValue() uint16      { return uint16(r & 0xFFF) }
func (r BHSPC600_4096Record) InvalidFlag() bool     { return r>>12&1 != 0 }
func (r BHSPC600_4096Record) OverflowFlag() bool    { return r>>13&1 != 0 }
func (r BHSPC600_4096Record) GapFlag() bool         { return r>>14&1 != 0 }
func (r BHSPC600_4096Record) RoutingSignals() uint8 { return uint8(r >> 24 & 0xFF) }

func (r BHSPC600_4096Record) Macrotime() uint32 {
	return uint32(r>>32&0xFFFF) | uint32(r>>16&0xFF)<<16
}

// DecodeBHSPC600_4096 decodes BHSPC600_4096Record events.
type DecodeBHSPC600_4096 struct {
	downstream proc.Processor
	base       event.AbsTime
}

func NewDecodeBHSPC600_4096(downstream proc.Processor) *DecodeBHSPC600_4096 {
	return &DecodeBHSPC600_4096{downstream: downstream}
}

func (d *DecodeBHSPC600_4096) Handle(ctx context.Context, evt any) error {
	r, ok := evt.(BHSPC600_4096Record)
	if !ok {
		return d.downstream.Handle(ctx, evt)
	}

	if r.OverflowFlag() {
		d.base += bhSPC600_4096OverflowPeriod
	}
	abstime := d.base + event.AbsTime(r.Macrotime())
	if r.GapFlag() {
		if err := d.downstream.Handle(ctx, event.DataLost{AbsTime: abstime}); err != nil {
			return err
		}
	}
	if r.InvalidFlag() {
		return d.downstream.Handle(ctx, event.TimeReached{AbsTime: abstime})
	}
	return d.downstream.Handle(ctx, event.TimeCorrelatedDetection{
		AbsTime:  abstime,
		Channel:  event.Channel(r.RoutingSignals()),
		DiffTime: event.DiffTime(r.ADCValue()),
	})
}

func (d *DecodeBHSPC600_4096) Flush(ctx context.Context) error { return d.downstream.Flush(ctx) }
