// Package lockfree provides primitives that let independently running
// goroutines claim non-overlapping units of work from one shared resource
// without locks.
//
// Countdown hands out every integer in [0, N) exactly once. Chunks splits a
// caller-owned slice into fixed-stride chunks and hands each chunk to exactly
// one caller. Both keep a single atomic cursor per instance and advance it with
// a compare-and-swap retry loop; a caller never blocks on another, it only
// retries when a concurrent claim won the round.
package lockfree

import (
	"runtime"
	"sync/atomic"
)

const goschedEvery = 64 // reduce runtime.Gosched() frequency in hot loops

// cursor is the only mutable state shared between claimers of a primitive.
// Padding keeps it on its own cache line.
type cursor struct {
	_   [64]byte
	pos atomic.Uint64
	_   [56]byte
}

// spinner counts lost CAS rounds and yields the processor now and then so a
// preempted winner can finish.
type spinner uint32

func (s *spinner) spin() {
	*s++
	if *s%goschedEvery == 0 {
		runtime.Gosched()
	}
}
