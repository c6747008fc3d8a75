package journal

import "sync/atomic"

// Clock hands out the strictly increasing seq numbers journal rows are
// stamped with. Ordering by seq is what makes a journal deterministic to
// re-read: there is no wall-clock anywhere in the event model, so the
// interleaving of applications, calls, and executions is exactly the
// order the clock observed. Safe for concurrent use.
type Clock struct {
	seq atomic.Int64
}

// NewClock returns a clock at zero; the first Next is 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt returns a clock resumed at start, for appending to a journal
// that already holds rows up to that seq (see MaxSeq).
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next increments the clock and returns the new seq. Each call returns a
// unique, increasing value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the latest handed-out seq without advancing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
