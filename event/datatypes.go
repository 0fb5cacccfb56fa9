// Package event defines the TCSPC event vocabulary and the integer widths
// ("data type set") that parameterize it.
package event

// Integer is satisfied by any of the signed or unsigned integer kinds that
// may be used for abstime, difftime, channel, count, datapoint, bin index,
// or bin value fields.
type Integer interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~int |
		~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uint
}

// Default widths. The concrete event structs in this package commit to
// these; processors that care about a single field (bin index, bin value,
// datapoint) are generic over event.Integer instead, so a pipeline
// needing non-default widths in its histograms can choose them there.
type (
	AbsTime   = int64
	Channel   = int32
	DiffTime  = int32
	Count     = uint32
	Datapoint = int32
	BinIndex  = uint16
	BinValue  = uint16
)

// CustomDataTypes describes an alternative data-type-set assignment that a
// pipeline may request via YAML configuration. It exists so the config
// layer has something concrete to validate and report; a project needing
// non-default widths substitutes them where processors are generic.
type CustomDataTypes struct {
	AbsTimeBits   int `yaml:"abstime_bits"`
	ChannelBits   int `yaml:"channel_bits"`
	DiffTimeBits  int `yaml:"difftime_bits"`
	CountBits     int `yaml:"count_bits"`
	DatapointBits int `yaml:"datapoint_bits"`
	BinIndexBits  int `yaml:"bin_index_bits"`
	BinValueBits  int `yaml:"bin_value_bits"`
}

// DefaultDataTypes lists the default width of every field.
var DefaultDataTypes = CustomDataTypes{
	AbsTimeBits:   64,
	ChannelBits:   32,
	DiffTimeBits:  32,
	CountBits:     32,
	DatapointBits: 32,
	BinIndexBits:  16,
	BinValueBits:  16,
}
