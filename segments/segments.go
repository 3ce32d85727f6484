package segments

import (
	"iter"
	"math"

	"github.com/anacrolix/missinggo/v2/panicif"
)

type Int = int64

type Length = Int

// A run of bytes in a file, addressed from the start of the file.
type Extent struct {
	Start, Length Int
}

func (e Extent) End() Int {
	return e.Start + e.Length
}

// Non-negative start and length, and the end doesn't overflow.
func (e Extent) Valid() bool {
	return e.Start >= 0 && e.Length >= 0 && e.Start <= math.MaxInt64-e.Length
}

// Reports whether e is valid and ends at or before size. An empty extent at size is within.
func (e Extent) Within(size Int) bool {
	return e.Valid() && e.End() <= size
}

// Moves the extent by delta. Used to get the destination of a shifted chunk.
func (e Extent) Offset(delta Int) Extent {
	e.Start += delta
	return e
}

// Yields consecutive sub-extents of e no longer than max, lowest first. Moving bytes toward the
// start of a file must be done in this order.
func (e Extent) Chunks(max Length) iter.Seq[Extent] {
	panicif.LessThanOrEqual(max, 0)
	return func(yield func(Extent) bool) {
		for e.Length > 0 {
			c := Extent{e.Start, min(e.Length, max)}
			if !yield(c) {
				return
			}
			e.Start += c.Length
			e.Length -= c.Length
		}
	}
}

// Yields consecutive sub-extents of e no longer than max, highest first. Moving bytes toward the
// end of a file must be done in this order.
func (e Extent) ChunksReverse(max Length) iter.Seq[Extent] {
	panicif.LessThanOrEqual(max, 0)
	return func(yield func(Extent) bool) {
		for e.Length > 0 {
			l := min(e.Length, max)
			c := Extent{e.End() - l, l}
			if !yield(c) {
				return
			}
			e.Length -= l
		}
	}
}
