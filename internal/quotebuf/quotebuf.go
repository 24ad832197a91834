// Package quotebuf is the hand-off between the quote producer and the live
// loop: a bounded single-producer single-consumer ring of model.Quote.
//
// The poller is the sole producer and the loop the sole consumer, so two
// atomic cursors on separate cache lines serialize access without locks.
// Bounding the ring is the explicit growth policy for this hand-off: a push
// against a full ring is dropped and counted instead of blocking the
// producer, and both Pop and PopAll are non-blocking — an empty ring means
// "no data this tick", never a wait.
package quotebuf

import (
	"sync/atomic"

	"tradesim/internal/model"
)

const cacheLine = 64

// Ring is the SPSC quote ring. Capacity is always a power of two so the
// cursor wrap reduces to a bitmask.
type Ring struct {
	buf  []model.Quote
	mask uint64

	_pad0 [cacheLine]byte
	head  atomic.Uint64 // producer cursor
	_pad1 [cacheLine]byte
	tail  atomic.Uint64 // consumer cursor
	_pad2 [cacheLine]byte

	dropped atomic.Uint64
}

// New creates a ring holding at least capacity quotes (rounded up to a
// power of two, minimum 2).
func New(capacity int) *Ring {
	n := 2
	for n < capacity {
		n <<= 1
	}
	return &Ring{
		buf:  make([]model.Quote, n),
		mask: uint64(n - 1),
	}
}

// Push appends a quote. A full ring drops the quote, bumps the overflow
// counter, and returns false. Producer-side only.
func (r *Ring) Push(q model.Quote) bool {
	head := r.head.Load()
	if head-r.tail.Load() >= uint64(len(r.buf)) {
		r.dropped.Add(1)
		return false
	}
	r.buf[head&r.mask] = q
	r.head.Store(head + 1)
	return true
}

// Pop removes and returns the oldest quote, or false when the ring is
// empty. Consumer-side only.
func (r *Ring) Pop() (model.Quote, bool) {
	tail := r.tail.Load()
	if tail >= r.head.Load() {
		return model.Quote{}, false
	}
	q := r.buf[tail&r.mask]
	r.tail.Store(tail + 1)
	return q, true
}

// PopAll drains every quote currently buffered, oldest first. Returns nil
// when empty. Consumer-side only.
func (r *Ring) PopAll() []model.Quote {
	n := r.Len()
	if n == 0 {
		return nil
	}
	out := make([]model.Quote, 0, n)
	for i := 0; i < n; i++ {
		q, ok := r.Pop()
		if !ok {
			break
		}
		out = append(out, q)
	}
	return out
}

// Len returns the number of quotes currently buffered.
func (r *Ring) Len() int {
	return int(r.head.Load() - r.tail.Load())
}

// Cap returns the ring capacity.
func (r *Ring) Cap() int {
	return len(r.buf)
}

// Dropped returns how many pushes were rejected against a full ring.
func (r *Ring) Dropped() uint64 {
	return r.dropped.Load()
}
