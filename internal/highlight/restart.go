package highlight

import (
	"slices"
	"sort"
)

// RestartIndex is the ordered set of offsets at which the tokenizer was last
// seen in its initial state. Offset 0 is always an implicit member.
//
// Offsets are kept logically anchored: the colorer replays every edit through
// Shift and InvalidateRange in the same order the edits happened.
type RestartIndex struct {
	offsets []int
}

func NewRestartIndex() *RestartIndex {
	return &RestartIndex{}
}

func (x *RestartIndex) Len() int {
	return len(x.offsets)
}

// Offsets returns a copy of the indexed offsets in ascending order.
func (x *RestartIndex) Offsets() []int {
	return slices.Clone(x.offsets)
}

func (x *RestartIndex) Contains(off int) bool {
	_, found := slices.BinarySearch(x.offsets, off)
	return found
}

// LowerBound returns the greatest indexed offset <= off, or 0.
func (x *RestartIndex) LowerBound(off int) int {
	i := sort.SearchInts(x.offsets, off+1)
	if i == 0 {
		return 0
	}
	return x.offsets[i-1]
}

// Ceiling returns the least indexed offset >= off.
func (x *RestartIndex) Ceiling(off int) (int, bool) {
	i := sort.SearchInts(x.offsets, off)
	if i == len(x.offsets) {
		return 0, false
	}
	return x.offsets[i], true
}

// Higher returns the least indexed offset > off.
func (x *RestartIndex) Higher(off int) (int, bool) {
	return x.Ceiling(off + 1)
}

// InvalidateRange removes every offset in [lo, hi).
func (x *RestartIndex) InvalidateRange(lo, hi int) {
	if hi <= lo {
		return
	}
	i := sort.SearchInts(x.offsets, lo)
	j := sort.SearchInts(x.offsets, hi)
	x.offsets = slices.Delete(x.offsets, i, j)
}

// ReplaceRange swaps the offsets in [lo, hi) for entries. Entries may repeat
// or be unsorted; entries already present elsewhere are not duplicated.
func (x *RestartIndex) ReplaceRange(lo, hi int, entries []int) {
	x.InvalidateRange(lo, hi)
	if len(entries) == 0 {
		return
	}
	merged := make([]int, 0, len(x.offsets)+len(entries))
	merged = append(merged, x.offsets...)
	for _, e := range entries {
		if e >= 0 {
			merged = append(merged, e)
		}
	}
	slices.Sort(merged)
	x.offsets = slices.Compact(merged)
}

// Shift moves every offset >= from by delta. Offsets that would become
// negative, or collide with an earlier one, are dropped.
func (x *RestartIndex) Shift(from, delta int) {
	if delta == 0 {
		return
	}
	i := sort.SearchInts(x.offsets, from)
	out := x.offsets[:i]
	last := -1
	if i > 0 {
		last = x.offsets[i-1]
	}
	for _, off := range x.offsets[i:] {
		moved := off + delta
		if moved < 0 || moved <= last {
			continue
		}
		out = append(out, moved)
		last = moved
	}
	x.offsets = out
}

// Add inserts off.
func (x *RestartIndex) Add(off int) {
	i, found := slices.BinarySearch(x.offsets, off)
	if !found && off >= 0 {
		x.offsets = slices.Insert(x.offsets, i, off)
	}
}

// Apply moves the index across an edit of delta runes at offset. Offsets
// inside a deleted range are dropped; text inserted at an offset lands
// before it, so the offset keeps naming the same character.
func (x *RestartIndex) Apply(offset, delta int) {
	switch {
	case delta > 0:
		x.Shift(offset, delta)
	case delta < 0:
		x.InvalidateRange(offset, offset-delta)
		x.Shift(offset-delta, delta)
	}
}

// Clear drops every offset.
func (x *RestartIndex) Clear() {
	x.offsets = x.offsets[:0]
}

// TrimToLength drops offsets at or beyond n. Offset 0 is kept so an empty
// buffer still has its implicit restart point.
func (x *RestartIndex) TrimToLength(n int) {
	i := sort.SearchInts(x.offsets, n)
	if n == 0 && i < len(x.offsets) && x.offsets[i] == 0 {
		i++
	}
	x.offsets = x.offsets[:i]
}
