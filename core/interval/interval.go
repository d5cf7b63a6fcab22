// Package interval derives the sequence of half-open time windows (epochs)
// that CredRank partitions activity into. The sequence always covers the
// whole timeline: a sentinel epoch open to -inf, zero or more finite epochs
// of fixed width, and a sentinel epoch open to +inf.
package interval

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/sourcecred/credrank/core/graph"
)

// Unbounded interval ends for the sentinel epochs.
const (
	NegInf graph.Timestamp = math.MinInt64
	PosInf graph.Timestamp = math.MaxInt64
)

// ErrInvalidWidth indicates a non-positive epoch width.
var ErrInvalidWidth = errors.New("interval: epoch width must be positive")

// Interval is a half-open time window [Start, End).
type Interval struct {
	Start graph.Timestamp `json:"start"`
	End   graph.Timestamp `json:"end"`
}

// Contains reports whether t falls inside the interval. Membership is
// start-inclusive, end-exclusive.
func (iv Interval) Contains(t graph.Timestamp) bool {
	return iv.Start <= t && t < iv.End
}

// Finite reports whether both ends of the interval are bounded.
func (iv Interval) Finite() bool {
	return iv.Start != NegInf && iv.End != PosInf
}

// Sequence is a contiguous partition of the timeline into epochs. A valid
// sequence has at least the two sentinel epochs.
type Sequence []Interval

// Partition derives the epoch sequence covering the given timestamps with
// finite epochs of the given width. With no timestamps the result is
// exactly the two sentinels (-inf, 0) and (0, +inf).
func Partition(ts []graph.Timestamp, width int64) (Sequence, error) {
	if width <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWidth, width)
	}
	if len(ts) == 0 {
		return Sequence{
			{Start: NegInf, End: 0},
			{Start: 0, End: PosInf},
		}, nil
	}

	tMin := slices.Min(ts)
	tMax := slices.Max(ts)

	numFinite := (int64(tMax) - int64(tMin) + width) / width // ceil((max-min+1)/width)
	seq := make(Sequence, 0, numFinite+2)
	seq = append(seq, Interval{Start: NegInf, End: tMin})
	start := tMin
	for i := int64(0); i < numFinite; i++ {
		end := start + graph.Timestamp(width)
		seq = append(seq, Interval{Start: start, End: end})
		start = end
	}
	seq = append(seq, Interval{Start: start, End: PosInf})
	return seq, nil
}

// Find returns the index of the epoch containing t. The sequence covers the
// whole timeline, so a lookup on a valid sequence always succeeds.
func (s Sequence) Find(t graph.Timestamp) (int, bool) {
	lo, hi := 0, len(s)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		switch {
		case t < s[mid].Start:
			hi = mid - 1
		case t >= s[mid].End:
			lo = mid + 1
		default:
			return mid, true
		}
	}
	return 0, false
}
