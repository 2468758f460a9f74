package clock

// Queue holds at most one pending cycle per EventKind. The enumeration is
// small and fixed (12 kinds) so the "secondary ordered multimap" the data
// model calls for is realized as a plain linear scan over the kind->cycle
// array rather than a real tree/heap; at this size it is both simpler and
// faster than maintaining a separate sorted structure in step with it.
type Queue struct {
	cycle [eventKindCount]int64
}

// NewQueue creates a queue with every kind unscheduled.
func NewQueue() *Queue {
	q := &Queue{}
	for i := range q.cycle {
		q.cycle[i] = Undefined
	}
	return q
}

// Schedule inserts kind at current+deltaCycles, replacing any existing entry
// for that kind.
func (q *Queue) Schedule(kind EventKind, current, deltaCycles int64) {
	q.cycle[kind] = current + deltaCycles
}

// ScheduleAbsolute inserts kind at an already-computed absolute cycle.
func (q *Queue) ScheduleAbsolute(kind EventKind, atCycle int64) {
	q.cycle[kind] = atCycle
}

// Remove clears the entry for kind, if any.
func (q *Queue) Remove(kind EventKind) {
	q.cycle[kind] = Undefined
}

// IsScheduled reports whether kind currently holds a live cycle.
func (q *Queue) IsScheduled(kind EventKind) bool {
	return q.cycle[kind] != Undefined
}

// CycleOf returns the scheduled cycle for kind, or Undefined.
func (q *Queue) CycleOf(kind EventKind) int64 {
	return q.cycle[kind]
}

// Poll returns the earliest entry whose cycle is <= current, removing it.
// Ties between kinds due on the same cycle resolve by EventKind enumerator
// order (ascending).
func (q *Queue) Poll(current int64) (kind EventKind, cycle int64, ok bool) {
	found := false
	var bestKind EventKind
	var bestCycle int64
	for k := EventKind(0); k < eventKindCount; k++ {
		c := q.cycle[k]
		if c == Undefined || c > current {
			continue
		}
		if !found || c < bestCycle {
			found = true
			bestKind = k
			bestCycle = c
		}
	}
	if !found {
		return 0, 0, false
	}
	q.cycle[bestKind] = Undefined
	return bestKind, bestCycle, true
}

// SetBackClock subtracts delta from every non-sentinel entry.
func (q *Queue) SetBackClock(delta int64) {
	for k := range q.cycle {
		if q.cycle[k] != Undefined {
			q.cycle[k] -= delta
		}
	}
}
