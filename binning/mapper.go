// Package binning maps datapoints to histogram bin indices and wires that
// mapping into the pipeline as processors.
package binning

import (
	"github.com/tcspc-go/tcspc/event"
)

// BinMapper maps a datapoint to a bin index. The bool return is false
// when the datapoint falls outside the mapper's domain.
type BinMapper[D, B event.Integer] interface {
	NBins() int
	Map(datapoint D) (bin B, ok bool)
}

// PowerOf2BinMapper maps an NDataBits-wide unsigned datapoint into
// 2^NBinBits bins by taking its NBinBits most significant bits (after
// discarding bits above NDataBits). When Flip is true, the bin order is
// reversed (bin := n_bins-1-bin), useful for devices that report
// difference time counting down rather than up.
type PowerOf2BinMapper[D, B event.Integer] struct {
	NDataBits int
	NBinBits  int
	Flip      bool
}

func NewPowerOf2BinMapper[D, B event.Integer](nDataBits, nBinBits int, flip bool) PowerOf2BinMapper[D, B] {
	if nBinBits > nDataBits {
		panic("binning: power_of_2_bin_mapper requires NBinBits <= NDataBits")
	}
	return PowerOf2BinMapper[D, B]{NDataBits: nDataBits, NBinBits: nBinBits, Flip: flip}
}

func (m PowerOf2BinMapper[D, B]) NBins() int { return 1 << m.NBinBits }

func (m PowerOf2BinMapper[D, B]) Map(datapoint D) (B, bool) {
	d := uint64(datapoint)
	if m.NDataBits < 64 && d>>uint(m.NDataBits) != 0 {
		return 0, false
	}
	shift := m.NDataBits - m.NBinBits
	bin := d >> uint(shift)
	if m.Flip {
		bin = uint64(m.NBins()-1) - bin
	}
	return B(bin), true
}

// LinearBinMapper maps a datapoint to bin = floor((d - Offset) / BinWidth),
// clamped to [0, MaxBinIndex] if Clamp is set, otherwise datapoints
// mapping outside that range are rejected. BinWidth may be negative,
// which reverses the mapping direction (as used by devices whose
// difference time counts down).
type LinearBinMapper[D event.Integer, B event.Integer] struct {
	Offset      int64
	BinWidth    int64
	MaxBinIndex B
	Clamp       bool
}

func (m LinearBinMapper[D, B]) NBins() int { return int(m.MaxBinIndex) + 1 }

func (m LinearBinMapper[D, B]) Map(datapoint D) (B, bool) {
	diff := int64(datapoint) - m.Offset
	var bin int64
	if m.BinWidth >= 0 {
		bin = floorDiv(diff, m.BinWidth)
	} else {
		bin = floorDiv(-diff, -m.BinWidth)
	}
	if bin < 0 {
		if m.Clamp {
			return 0, true
		}
		return 0, false
	}
	max := int64(m.MaxBinIndex)
	if bin > max {
		if m.Clamp {
			return m.MaxBinIndex, true
		}
		return 0, false
	}
	return B(bin), true
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// UniqueBinMapper assigns a distinct, stably increasing bin index to each
// distinct datapoint value it has seen, up to MaxBins; useful for
// histogramming over a sparse or a-priori-unknown value domain (e.g.
// distinct channel numbers) without pre-allocating one bin per possible
// raw value.
type UniqueBinMapper[D comparable, B event.Integer] struct {
	maxBins int
	index   map[D]B
	next    B
}

func NewUniqueBinMapper[D comparable, B event.Integer](maxBins int) *UniqueBinMapper[D, B] {
	return &UniqueBinMapper[D, B]{maxBins: maxBins, index: make(map[D]B)}
}

func (m *UniqueBinMapper[D, B]) NBins() int { return m.maxBins }

func (m *UniqueBinMapper[D, B]) Map(datapoint D) (B, bool) {
	if b, ok := m.index[datapoint]; ok {
		return b, true
	}
	if int(m.next) >= m.maxBins {
		return 0, false
	}
	b := m.next
	m.index[datapoint] = b
	m.next++
	return b, true
}
