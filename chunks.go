package lockfree

import (
	"fmt"
	"iter"
)

// Chunk is a claimed part of the buffer handed to NewChunks.
type Chunk[T any] struct {
	Index  int // 0-based chunk number, Offset / stride
	Offset int // position of Data[0] in the buffer
	Data   []T // exclusive view, len(Data) == cap(Data)
}

// End returns the buffer position right after the last element of the chunk.
func (c Chunk[T]) End() int {
	return c.Offset + len(c.Data)
}

// Chunks partitions a buffer into consecutive chunks of stride elements (the
// last one may be shorter) and hands each chunk to exactly one caller.
//
// Views returned by Claim never overlap. Their capacity is clipped to their
// length, so appending to a view reallocates instead of spilling into the
// next chunk. Chunks never hands out the whole buffer again; the caller must
// not touch the buffer it passed to NewChunks until every goroutine holding a
// chunk is done with it.
type Chunks[T any] struct {
	buf    []T
	stride int
	next   cursor // start of the first unclaimed chunk; only ever increased

	// onAdvance observes every successful cursor move. Tests only.
	onAdvance func(from, to uint64)
}

// NewChunks creates a partitioner over buf.
// Returns ErrInvalidStride if stride is not positive. An empty buf yields an
// already exhausted partitioner.
func NewChunks[T any](buf []T, stride int) (*Chunks[T], error) {
	if stride <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidStride, stride)
	}

	return &Chunks[T]{
		buf:    buf,
		stride: stride,
	}, nil
}

// Claim takes the next unclaimed chunk.
// Returns (Chunk{}, false) once the whole buffer has been handed out; every
// later call returns (Chunk{}, false) as well.
// Safe to call concurrently from many goroutines.
func (p *Chunks[T]) Claim() (Chunk[T], bool) {
	size := uint64(len(p.buf))
	stride := uint64(p.stride)

	var s spinner
	for {
		offset := p.next.pos.Load()
		if offset >= size {
			return Chunk[T]{}, false
		}

		// offset+stride may overflow for huge strides, compare the remainder instead.
		end := size
		if size-offset > stride {
			end = offset + stride
		}

		if p.next.pos.CompareAndSwap(offset, end) {
			if p.onAdvance != nil {
				p.onAdvance(offset, end)
			}
			return Chunk[T]{
				Index:  int(offset / stride),
				Offset: int(offset),
				Data:   p.buf[offset:end:end],
			}, true
		}

		// Another claimer took this chunk, retry from a fresh load.
		s.spin()
	}
}

// All returns a sequence of (index, view) pairs that claims chunks until the
// buffer is exhausted. Goroutines ranging over All concurrently share one
// traversal and jointly exhaust it. The sequence cannot be restarted.
func (p *Chunks[T]) All() iter.Seq2[int, []T] {
	return func(yield func(int, []T) bool) {
		for {
			c, ok := p.Claim()
			if !ok || !yield(c.Index, c.Data) {
				return
			}
		}
	}
}

// Len returns the total number of chunks, claimed or not.
func (p *Chunks[T]) Len() int {
	n := len(p.buf) / p.stride
	if len(p.buf)%p.stride != 0 {
		n++
	}
	return n
}

// Remaining returns how many chunks have not been claimed yet.
// The result is a snapshot and may be stale by the time it is used.
func (p *Chunks[T]) Remaining() int {
	offset := p.next.pos.Load()
	if offset >= uint64(len(p.buf)) {
		return 0
	}
	return p.Len() - int(offset/uint64(p.stride))
}

// Stride returns the configured chunk size.
func (p *Chunks[T]) Stride() int {
	return p.stride
}

// Size returns the length of the partitioned buffer.
func (p *Chunks[T]) Size() int {
	return len(p.buf)
}
