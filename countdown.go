package lockfree

import "iter"

// Countdown issues every value in [0, count) exactly once, counting down.
// Claim may be called concurrently from many goroutines.
type Countdown struct {
	count     uint64
	remaining cursor // values not yet issued; only ever decremented

	// onAdvance observes every successful cursor move. Tests only.
	onAdvance func(from, to uint64)
}

// NewCountdown creates a Countdown seeded with count values.
// A zero count yields an already exhausted Countdown.
func NewCountdown(count uint64) *Countdown {
	c := &Countdown{count: count}
	c.remaining.pos.Store(count)
	return c
}

// Claim takes the next value.
// Returns (0, false) once all values have been issued; every later call
// returns (0, false) as well.
// Safe to call concurrently from many goroutines.
func (c *Countdown) Claim() (uint64, bool) {
	var s spinner
	for {
		cur := c.remaining.pos.Load()
		if cur == 0 {
			return 0, false
		}

		if c.remaining.pos.CompareAndSwap(cur, cur-1) {
			if c.onAdvance != nil {
				c.onAdvance(cur, cur-1)
			}
			return cur - 1, true
		}

		// Another claimer moved the cursor first, retry from a fresh load.
		s.spin()
	}
}

// All returns a sequence that claims values until the Countdown is exhausted.
// Goroutines ranging over All concurrently share one traversal, so each value
// is yielded to exactly one of them. The sequence cannot be restarted.
func (c *Countdown) All() iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		for {
			v, ok := c.Claim()
			if !ok || !yield(v) {
				return
			}
		}
	}
}

// Count returns the number of values the Countdown was seeded with.
func (c *Countdown) Count() uint64 {
	return c.count
}

// Remaining returns how many values have not been issued yet.
// The result is a snapshot and may be stale by the time it is used.
func (c *Countdown) Remaining() uint64 {
	return c.remaining.pos.Load()
}
