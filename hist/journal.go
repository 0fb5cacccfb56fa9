package hist

import "github.com/tcspc-go/tcspc/event"

// Journal records the sequence of bin-increment clusters applied during
// the current scan, so rollback (StopOnOverflow, ResetOnOverflow, or
// concluding-event emission) and replay (ResetOnOverflow) can undo or
// reapply them without re-deriving them from the original event stream.
type Journal interface {
	// Record appends one applied cluster (possibly empty).
	Record(bins []event.BinIndex)
	// Clear discards all recorded clusters, e.g. at the start of a new
	// scan.
	Clear()
	// NumClusters returns the number of recorded clusters, empty ones
	// included.
	NumClusters() int
	// ForEach calls fn once per recorded cluster in application order.
	// slot is the cluster's ordinal (and hence its element index within
	// the scan); it advances by exactly one per cluster. The bins slice
	// aliases the journal's internal buffer and must not be retained.
	ForEach(fn func(slot int, bins []event.BinIndex))
}

// NullJournal discards everything recorded in it; used by policies that
// never need rollback or replay.
type NullJournal struct{}

func (NullJournal) Record([]event.BinIndex)             {}
func (NullJournal) Clear()                              {}
func (NullJournal) NumClusters() int                    { return 0 }
func (NullJournal) ForEach(func(int, []event.BinIndex)) {}

// ClusterJournal records clusters in a compact flat encoding: a cluster
// of length L is stored as a length-prefixed run (header word L, or a
// long-run escape followed by a 32-bit length, for L too large for one
// word), and runs of consecutive empty clusters collapse into a single
// two-word skip entry. All-empty or uniform streams therefore cost O(1)
// words per cluster.
type ClusterJournal struct {
	words    []event.BinIndex
	clusters int
	lastSkip int // index of trailing skip entry's count word, or -1
}

const (
	journalSkipHeader = 0x0000
	journalLongHeader = 0xFFFF
	journalMaxShort   = 0xFFFE
	journalMaxSkip    = 0xFFFF
)

// NewClusterJournal returns an empty ClusterJournal.
func NewClusterJournal() *ClusterJournal {
	return &ClusterJournal{lastSkip: -1}
}

func (j *ClusterJournal) Record(bins []event.BinIndex) {
	j.clusters++
	if len(bins) == 0 {
		if j.lastSkip >= 0 && j.words[j.lastSkip] < journalMaxSkip {
			j.words[j.lastSkip]++
			return
		}
		j.words = append(j.words, journalSkipHeader, 1)
		j.lastSkip = len(j.words) - 1
		return
	}
	j.lastSkip = -1
	if len(bins) <= journalMaxShort {
		j.words = append(j.words, event.BinIndex(len(bins)))
	} else {
		j.words = append(j.words, journalLongHeader,
			event.BinIndex(len(bins)>>16), event.BinIndex(len(bins)&0xFFFF))
	}
	j.words = append(j.words, bins...)
}

func (j *ClusterJournal) Clear() {
	j.words = j.words[:0]
	j.clusters = 0
	j.lastSkip = -1
}

func (j *ClusterJournal) NumClusters() int { return j.clusters }

func (j *ClusterJournal) ForEach(fn func(slot int, bins []event.BinIndex)) {
	slot := 0
	words := j.words
	for len(words) > 0 {
		switch header := words[0]; header {
		case journalSkipHeader:
			for range int(words[1]) {
				fn(slot, nil)
				slot++
			}
			words = words[2:]
		case journalLongHeader:
			length := int(words[1])<<16 | int(words[2])
			fn(slot, words[3:3+length])
			slot++
			words = words[3+length:]
		default:
			fn(slot, words[1:1+int(header)])
			slot++
			words = words[1+int(header):]
		}
	}
}
