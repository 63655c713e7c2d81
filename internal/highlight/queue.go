package highlight

// RecolorEvent describes one buffer mutation. A positive Delta is an
// insertion of Delta runes at Offset, a negative Delta a deletion of -Delta
// runes starting at Offset.
type RecolorEvent struct {
	Offset int
	Delta  int
}

// EditQueue is a FIFO of RecolorEvents that merges a new event into the tail
// when both describe one contiguous edit in the same direction.
// It is not safe for concurrent use; the Colorer guards it.
type EditQueue struct {
	events []RecolorEvent
}

// Push appends an event, coalescing it with the tail where possible.
// It reports whether the event was merged.
func (q *EditQueue) Push(offset, delta int) bool {
	if n := len(q.events); n > 0 {
		tail := &q.events[n-1]
		switch {
		case delta < 0 && tail.Delta < 0:
			if offset == tail.Offset {
				tail.Delta += delta
				return true
			}
		case delta >= 0 && tail.Delta >= 0:
			if offset == tail.Offset+tail.Delta {
				tail.Delta += delta
				return true
			}
			if tail.Offset == offset+delta {
				tail.Offset = offset
				tail.Delta += delta
				return true
			}
		}
	}
	q.events = append(q.events, RecolorEvent{Offset: offset, Delta: delta})
	return false
}

// Transform moves the pending events past an edit of delta runes at offset
// so they keep describing the same text. An insertion event covers the range
// [Offset, Offset+Delta); text inserted right before that range pushes it
// along, text inserted inside or at its end does not. A deletion event marks
// a single point.
func (q *EditQueue) Transform(offset, delta int) {
	if delta == 0 {
		return
	}
	for i := range q.events {
		ev := &q.events[i]
		if ev.Delta <= 0 {
			ev.Offset = movePoint(ev.Offset, offset, delta, false)
			continue
		}
		start := movePoint(ev.Offset, offset, delta, true)
		end := movePoint(ev.Offset+ev.Delta, offset, delta, false)
		ev.Offset, ev.Delta = start, max(end-start, 0)
	}
}

// movePoint maps x across an edit. With sticky set, text inserted exactly at
// x lands before it; otherwise after it. A point inside a deleted range
// collapses to the start of the range.
func movePoint(x, offset, delta int, sticky bool) int {
	if delta >= 0 {
		if x > offset || (sticky && x == offset) {
			return x + delta
		}
		return x
	}
	end := offset - delta
	switch {
	case x >= end:
		return x + delta
	case x > offset:
		return offset
	}
	return x
}

// Pop removes and returns the oldest event.
func (q *EditQueue) Pop() (RecolorEvent, bool) {
	if len(q.events) == 0 {
		return RecolorEvent{}, false
	}
	ev := q.events[0]
	q.events[0] = RecolorEvent{}
	q.events = q.events[1:]
	if len(q.events) == 0 {
		q.events = nil
	}
	return ev, true
}

func (q *EditQueue) Len() int {
	return len(q.events)
}

// Events returns a copy of the pending events, oldest first.
func (q *EditQueue) Events() []RecolorEvent {
	out := make([]RecolorEvent, len(q.events))
	copy(out, q.events)
	return out
}
