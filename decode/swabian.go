package decode

import (
	"context"
	"encoding/binary"

	"github.com/tcspc-go/tcspc/event"
	"github.com/tcspc-go/tcspc/proc"
)

// SwabianTagType discriminates the 16-byte Swabian time tagger records.
type SwabianTagType uint8

const (
	SwabianTimeTag SwabianTagType = iota
	SwabianError
	SwabianOverflowBegin
	SwabianOverflowEnd
	SwabianMissedEvents
)

// SwabianTagRecord is a 16-byte Swabian time tagger record:
//
//	byte   0     tag type
//	bytes  2-3   missed-event count (little endian, missed-events tags)
//	bytes  4-7   channel (little endian, signed)
//	bytes  8-15  time (little endian, signed)
type SwabianTagRecord [16]byte

func (r SwabianTagRecord) Type() SwabianTagType { return SwabianTagType(r[0]) }

func (r SwabianTagRecord) MissedEventCount() uint16 {
	return binary.LittleEndian.Uint16(r[2:4])
}

func (r SwabianTagRecord) Channel() int32 {
	return int32(binary.LittleEndian.Uint32(r[4:8]))
}

func (r SwabianTagRecord) Time() int64 {
	return int64(binary.LittleEndian.Uint64(r[8:16]))
}

// MakeSwabianTag assembles a record for tests and simulators.
func MakeSwabianTag(tagType SwabianTagType, missed uint16, channel int32, time int64) SwabianTagRecord {
	var r SwabianTagRecord
	r[0] = byte(tagType)
	binary.LittleEndian.PutUint16(r[2:4], missed)
	binary.LittleEndian.PutUint32(r[4:8], uint32(channel))
	binary.LittleEndian.PutUint64(r[8:16], uint64(time))
	return r
}

// DecodeSwabianTags decodes SwabianTagRecord events: time tags become
// detections, overflow begin/end become lost-interval brackets, missed-
// events tags become lost counts, and error tags become warnings.
type DecodeSwabianTags struct {
	downstream proc.Processor
}

func NewDecodeSwabianTags(downstream proc.Processor) *DecodeSwabianTags {
	return &DecodeSwabianTags{downstream: downstream}
}

func (d *DecodeSwabianTags) Handle(ctx context.Context, evt any) error {
	r, ok := evt.(SwabianTagRecord)
	if !ok {
		return d.downstream.Handle(ctx, evt)
	}

	switch r.Type() {
	case SwabianTimeTag:
		return d.downstream.Handle(ctx, event.Detection{
			AbsTime: event.AbsTime(r.Time()),
			Channel: event.Channel(r.Channel()),
		})
	case SwabianError:
		return d.downstream.Handle(ctx, event.Warning{Message: "time tagger error tag"})
	case SwabianOverflowBegin:
		return d.downstream.Handle(ctx, event.BeginLostInterval{AbsTime: event.AbsTime(r.Time())})
	case SwabianOverflowEnd:
		return d.downstream.Handle(ctx, event.EndLostInterval{AbsTime: event.AbsTime(r.Time())})
	case SwabianMissedEvents:
		return d.downstream.Handle(ctx, event.LostCounts{
			AbsTime: event.AbsTime(r.Time()),
			Channel: event.Channel(r.Channel()),
			Count:   event.Count(r.MissedEventCount()),
		})
	default:
		return d.downstream.Handle(ctx, event.Warning{Message: "unknown time tagger tag type"})
	}
}

func (d *DecodeSwabianTags) Flush(ctx context.Context) error { return d.downstream.Flush(ctx) }
