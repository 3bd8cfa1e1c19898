package lockfree

import (
	"sync"
	"sync/atomic"
	"testing"
)

// Basic sanity: a single caller drains values in descending order.
func TestCountdownSequential(t *testing.T) {
	const N = 1000

	c := NewCountdown(N)
	if c.Count() != N {
		t.Fatalf("expected count %d, got %d", N, c.Count())
	}

	for i := N - 1; i >= 0; i-- {
		v, ok := c.Claim()
		if !ok {
			t.Fatalf("claim failed at %d (unexpectedly exhausted)", i)
		}
		if v != uint64(i) {
			t.Fatalf("expected %d, got %d", i, v)
		}
		if c.Remaining() != uint64(i) {
			t.Fatalf("expected remaining %d, got %d", i, c.Remaining())
		}
	}

	if v, ok := c.Claim(); ok {
		t.Fatalf("expected exhaustion, got value=%d", v)
	}
}

func TestCountdownZero(t *testing.T) {
	c := NewCountdown(0)
	if v, ok := c.Claim(); ok {
		t.Fatalf("expected exhaustion, got value=%d", v)
	}
	for range c.All() {
		t.Fatalf("expected empty sequence")
	}
}

// Concurrent test: many workers drain one Countdown.
// Checks that all values [0..N) appear exactly once, repeated to shake out
// rare interleavings.
func TestCountdownConcurrent(t *testing.T) {
	const (
		N       = 10_000
		workers = 100
		rounds  = 100
	)

	for r := 0; r < rounds; r++ {
		c := NewCountdown(N)
		seen := make([]int32, N)

		var wg sync.WaitGroup
		wg.Add(workers)
		for w := 0; w < workers; w++ {
			go func() {
				defer wg.Done()
				for v := range c.All() {
					if v >= N {
						t.Errorf("out-of-range value %d", v)
						continue
					}
					atomic.AddInt32(&seen[v], 1)
				}
			}()
		}
		wg.Wait()

		for i := 0; i < N; i++ {
			if seen[i] != 1 {
				t.Fatalf("[%d] value %d seen %d times (expected 1)", r, i, seen[i])
			}
		}
	}
}

// Once exhausted, every caller keeps observing exhaustion.
func TestCountdownExhaustionIsFinal(t *testing.T) {
	const (
		N       = 64
		workers = 16
		calls   = 1000
	)

	c := NewCountdown(N)
	for range c.All() {
	}

	var resurrected atomic.Int32
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < calls; i++ {
				if _, ok := c.Claim(); ok {
					resurrected.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	if n := resurrected.Load(); n != 0 {
		t.Fatalf("claim succeeded %d times after exhaustion", n)
	}
	if c.Remaining() != 0 {
		t.Fatalf("expected remaining 0, got %d", c.Remaining())
	}
}

// Every successful advance moves the cursor down by exactly one, and the
// advances chain from N down to 0 without gaps or repeats.
func TestCountdownCursorMonotonic(t *testing.T) {
	const (
		N       = 50_000
		workers = 32
	)

	c := NewCountdown(N)
	hits := make([]int32, N+1)
	to := make([]uint64, N+1)
	c.onAdvance = func(from, next uint64) {
		if from == 0 || from > N {
			t.Errorf("advance from out-of-range position %d", from)
			return
		}
		atomic.AddInt32(&hits[from], 1)
		atomic.StoreUint64(&to[from], next)
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for range c.All() {
			}
		}()
	}
	wg.Wait()

	if hits[0] != 0 {
		t.Fatalf("cursor advanced from 0 %d times", hits[0])
	}
	for pos := uint64(N); pos > 0; pos-- {
		if hits[pos] != 1 {
			t.Fatalf("position %d advanced %d times (expected 1)", pos, hits[pos])
		}
		if to[pos] != pos-1 {
			t.Fatalf("position %d advanced to %d (expected %d)", pos, to[pos], pos-1)
		}
	}
}

// Breaking out of All leaves the rest of the values to other callers.
func TestCountdownAllStopsEarly(t *testing.T) {
	c := NewCountdown(10)

	var got []uint64
	for v := range c.All() {
		got = append(got, v)
		if len(got) == 3 {
			break
		}
	}

	if len(got) != 3 {
		t.Fatalf("expected 3 values, got %d", len(got))
	}
	if c.Remaining() != 7 {
		t.Fatalf("expected remaining 7, got %d", c.Remaining())
	}
}

// Benchmark: all Ps hammer one Countdown.
func BenchmarkCountdownClaim(b *testing.B) {
	c := NewCountdown(uint64(b.N))

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, ok := c.Claim(); !ok {
				b.Errorf("countdown exhausted before b.N claims")
				return
			}
		}
	})
	b.StopTimer()
}

// Baseline: an unconditional fetch-add on a shared counter, the cheapest
// possible claim without an exhaustion check.
func BenchmarkFetchAddCounter(b *testing.B) {
	var n atomic.Uint64

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			n.Add(1)
		}
	})
	b.StopTimer()

	if n.Load() != uint64(b.N) {
		b.Fatalf("expected %d increments, got %d", b.N, n.Load())
	}
}
