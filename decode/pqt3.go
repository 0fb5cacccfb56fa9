package decode

import (
	"context"

	"github.com/tcspc-go/tcspc/event"
	"github.com/tcspc-go/tcspc/proc"
)

// PQT3PicoHarp300Record is a 4-byte PicoHarp 300 T3 record, interpreted
// as a little-endian 32-bit word:
//
//	bits  0-15  nsync (sync-period count)
//	bits 16-27  dtime
//	bits 28-31  channel
//
// Channel 15 marks a special record: dtime 0 is an nsync overflow
// (implicitly one period), any other dtime carries external marker bits
// in its low four bits.
type PQT3PicoHarp300Record uint32

const pqPicoHarp300SyncPeriod = 1 << 16

func (r PQT3PicoHarp300Record) NSync() uint16   { return uint16(r & 0xFFFF) }
func (r PQT3PicoHarp300Record) DTime() uint16   { return uint16(r >> 16 & 0xFFF) }
func (r PQT3PicoHarp300Record) Channel() uint8  { return uint8(r >> 28 & 0xF) }
func (r PQT3PicoHarp300Record) IsSpecial() bool { return r.Channel() == 15 }

// IsNSyncOverflow reports whether this is an overflow record.
func (r PQT3PicoHarp300Record) IsNSyncOverflow() bool {
	return r.IsSpecial() && r.DTime() == 0
}

// IsExternalMarker reports whether this record carries marker bits.
func (r PQT3PicoHarp300Record) IsExternalMarker() bool {
	return r.IsSpecial() && r.DTime() != 0
}

// MakePQT3PicoHarp300Photon assembles a photon record.
func MakePQT3PicoHarp300Photon(nsync uint16, channel uint8, dtime uint16) PQT3PicoHarp300Record {
	return PQT3PicoHarp300Record(nsync) |
		PQT3PicoHarp300Record(dtime&0xFFF)<<16 |
		PQT3PicoHarp300Record(channel&0xF)<<28
}

// MakePQT3PicoHarp300Marker assembles an external-marker record.
func MakePQT3PicoHarp300Marker(nsync uint16, markerBits uint8) PQT3PicoHarp300Record {
	return PQT3PicoHarp300Record(nsync) |
		PQT3PicoHarp300Record(markerBits&0xF)<<16 |
		15<<28
}

// MakePQT3PicoHarp300Overflow assembles an nsync-overflow record.
func MakePQT3PicoHarp300Overflow() PQT3PicoHarp300Record {
	return 15 << 28
}

// DecodePQT3PicoHarp300 decodes PQT3PicoHarp300Record events.
type DecodePQT3PicoHarp300 struct {
	downstream proc.Processor
	base       event.AbsTime
}

func NewDecodePQT3PicoHarp300(downstream proc.Processor) *DecodePQT3PicoHarp300 {
	return &DecodePQT3PicoHarp300{downstream: downstream}
}

func (d *DecodePQT3PicoHarp300) Handle(ctx context.Context, evt any) error {
	r, ok := evt.(PQT3PicoHarp300Record)
	if !ok {
		return d.downstream.Handle(ctx, evt)
	}

	switch {
	case r.IsNSyncOverflow():
		d.base += pqPicoHarp300SyncPeriod
		return d.downstream.Handle(ctx, event.TimeReached{AbsTime: d.base})
	case r.IsExternalMarker():
		abstime := d.base + event.AbsTime(r.NSync())
		return emitMarkers(ctx, d.downstream, abstime, uint32(r.DTime()&0xF))
	default:
		return d.downstream.Handle(ctx, event.TimeCorrelatedDetection{
			AbsTime:  d.base + event.AbsTime(r.NSync()),
			Channel:  event.Channel(r.Channel()),
			DiffTime: event.DiffTime(r.DTime()),
		})
	}
}

func (d *DecodePQT3PicoHarp300) Flush(ctx context.Context) error { return d.downstream.Flush(ctx) }

// pqT3HydraHarpRecord is the shared layout of HydraHarp-family T3
// records, interpreted as a little-endian 32-bit word:
//
//	bits  0-9   nsync (sync-period count)
//	bits 10-24  dtime
//	bits 25-30  channel
//	bit  31     special flag
//
// Special channel 63 is an nsync overflow; special channels 1-15 carry
// external marker bits in the channel field.
type pqT3HydraHarpRecord uint32

const pqHydraHarpSyncPeriod = 1 << 10

func (r pqT3HydraHarpRecord) NSync() uint16   { return uint16(r & 0x3FF) }
func (r pqT3HydraHarpRecord) DTime() uint16   { return uint16(r >> 10 & 0x7FFF) }
func (r pqT3HydraHarpRecord) Channel() uint8  { return uint8(r >> 25 & 0x3F) }
func (r pqT3HydraHarpRecord) IsSpecial() bool { return r>>31&1 != 0 }

func (r pqT3HydraHarpRecord) isNSyncOverflow() bool {
	return r.IsSpecial() && r.Channel() == 63
}

func (r pqT3HydraHarpRecord) isExternalMarker() bool {
	return r.IsSpecial() && r.Channel() >= 1 && r.Channel() <= 15
}

func makePQT3HydraHarp(nsync uint16, channel uint8, dtime uint16, special bool) pqT3HydraHarpRecord {
	r := pqT3HydraHarpRecord(nsync&0x3FF) |
		pqT3HydraHarpRecord(dtime&0x7FFF)<<10 |
		pqT3HydraHarpRecord(channel&0x3F)<<25
	if special {
		r |= 1 << 31
	}
	return r
}

// PQT3HydraHarpV1Record is the HydraHarp V1 T3 record: an overflow
// record always advances exactly one sync period.
type PQT3HydraHarpV1Record struct{ pqT3HydraHarpRecord }

// PQT3GenericRecord is the HydraHarp V2 and later (TimeHarp260,
// MultiHarp) T3 record: an overflow record's nsync field carries the
// overflow count.
type PQT3GenericRecord struct{ pqT3HydraHarpRecord }

// MakePQT3HydraHarpV1Photon assembles a V1 photon record.
func MakePQT3HydraHarpV1Photon(nsync uint16, channel uint8, dtime uint16) PQT3HydraHarpV1Record {
	return PQT3HydraHarpV1Record{makePQT3HydraHarp(nsync, channel, dtime, false)}
}

// MakePQT3HydraHarpV1Marker assembles a V1 external-marker record.
func MakePQT3HydraHarpV1Marker(nsync uint16, markerBits uint8) PQT3HydraHarpV1Record {
	return PQT3HydraHarpV1Record{makePQT3HydraHarp(nsync, markerBits&0xF, 0, true)}
}

// MakePQT3HydraHarpV1Overflow assembles a V1 nsync-overflow record.
func MakePQT3HydraHarpV1Overflow() PQT3HydraHarpV1Record {
	return PQT3HydraHarpV1Record{makePQT3HydraHarp(0, 63, 0, true)}
}

// MakePQT3GenericPhoton assembles a generic photon record.
func MakePQT3GenericPhoton(nsync uint16, channel uint8, dtime uint16) PQT3GenericRecord {
	return PQT3GenericRecord{makePQT3HydraHarp(nsync, channel, dtime, false)}
}

// MakePQT3GenericMarker assembles a generic external-marker record.
func MakePQT3GenericMarker(nsync uint16, markerBits uint8) PQT3GenericRecord {
	return PQT3GenericRecord{makePQT3HydraHarp(nsync, markerBits&0xF, 0, true)}
}

// MakePQT3GenericOverflow assembles an nsync-overflow record advancing
// count sync periods.
func MakePQT3GenericOverflow(count uint16) PQT3GenericRecord {
	return PQT3GenericRecord{makePQT3HydraHarp(count, 63, 0, true)}
}

// DecodePQT3HydraHarpV1 decodes PQT3HydraHarpV1Record events.
type DecodePQT3HydraHarpV1 struct {
	downstream proc.Processor
	base       event.AbsTime
}

func NewDecodePQT3HydraHarpV1(downstream proc.Processor) *DecodePQT3HydraHarpV1 {
	return &DecodePQT3HydraHarpV1{downstream: downstream}
}

func (d *DecodePQT3HydraHarpV1) Handle(ctx context.Context, evt any) error {
	r, ok := evt.(PQT3HydraHarpV1Record)
	if !ok {
		return d.downstream.Handle(ctx, evt)
	}
	return decodeHydraHarp(ctx, d.downstream, &d.base, r.pqT3HydraHarpRecord, 1)
}

func (d *DecodePQT3HydraHarpV1) Flush(ctx context.Context) error { return d.downstream.Flush(ctx) }

// DecodePQT3Generic decodes PQT3GenericRecord events.
type DecodePQT3Generic struct {
	downstream proc.Processor
	base       event.AbsTime
}

func NewDecodePQT3Generic(downstream proc.Processor) *DecodePQT3Generic {
	return &DecodePQT3Generic{downstream: downstream}
}

func (d *DecodePQT3Generic) Handle(ctx context.Context, evt any) error {
	r, ok := evt.(PQT3GenericRecord)
	if !ok {
		return d.downstream.Handle(ctx, evt)
	}
	count := event.AbsTime(r.NSync())
	if count == 0 {
		count = 1
	}
	return decodeHydraHarp(ctx, d.downstream, &d.base, r.pqT3HydraHarpRecord, count)
}

func (d *DecodePQT3Generic) Flush(ctx context.Context) error { return d.downstream.Flush(ctx) }

// decodeHydraHarp decodes one HydraHarp-family record, advancing *base
// by overflowCount sync periods on overflow records.
func decodeHydraHarp(ctx context.Context, downstream proc.Processor, base *event.AbsTime, r pqT3HydraHarpRecord, overflowCount event.AbsTime) error {
	switch {
	case r.isNSyncOverflow():
		*base += overflowCount * pqHydraHarpSyncPeriod
		return downstream.Handle(ctx, event.TimeReached{AbsTime: *base})
	case r.isExternalMarker():
		abstime := *base + event.AbsTime(r.NSync())
		return emitMarkers(ctx, downstream, abstime, uint32(r.Channel()&0xF))
	case r.IsSpecial():
		// Unassigned special channels are skipped.
		return nil
	default:
		return downstream.Handle(ctx, event.TimeCorrelatedDetection{
			AbsTime:  *base + event.AbsTime(r.NSync()),
			Channel:  event.Channel(r.Channel()),
			DiffTime: event.DiffTime(r.DTime()),
		})
	}
}
