package waitfreequeue

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// SPSC is a bounded wait-free single-producer, single-consumer queue
// with an O(1) size query.
//
// Exactly one goroutine may call Push and exactly one goroutine may call
// Pop; Size is safe from either. An SPSC must be created with NewSPSC and
// must not be copied after first use.
//
// Ordering is strict FIFO. Like MPSC, the queue never blocks and never
// allocates after construction, and Push on a full queue is a caller
// bug: asserted under the wfqdebug build tag, undefined otherwise.
type SPSC[T any] struct {
	// size is the only state both sides write. It is the sole source of
	// truth for emptiness: the increment after a push is the publication
	// point, the consumer's load of it the matching acquire.
	size atomic.Uint64

	_ cpu.CacheLinePad

	// head is owned by the consumer, tail by the producer. Both are
	// monotonic and reduced with capMask at use; uint64 wraparound is
	// harmless because only the masked low bits are ever read.
	head uint64

	_ cpu.CacheLinePad

	tail uint64

	_ cpu.CacheLinePad

	capacity uint64
	capMask  uint64
	buffer   []T
}

// NewSPSC returns a new SPSC queue with the given capacity. The capacity
// must be a power of two and at least 2; anything else panics.
func NewSPSC[T any](capacity uint64) *SPSC[T] {
	checkCapacity(capacity)

	return &SPSC[T]{
		capacity: capacity,
		capMask:  capacity - 1,
		buffer:   make([]T, capacity),
	}
}

// Push appends item to the queue. Must only be called from the single
// producer goroutine and must not be called when the queue is full.
func (q *SPSC[T]) Push(item T) {
	q.buffer[q.tail&q.capMask] = item
	q.tail++

	old := q.size.Add(1) - 1
	if debugChecks && old >= q.capacity {
		panic("waitfreequeue: SPSC push on full queue")
	}
}

// Pop removes the element at the head of the queue. The second return
// value is false if the queue was observed empty. Must only be called
// from the single consumer goroutine.
func (q *SPSC[T]) Pop() (T, bool) {
	var zero T

	if q.size.Load() == 0 {
		return zero, false
	}

	i := q.head & q.capMask
	item := q.buffer[i]
	q.buffer[i] = zero
	q.head++

	q.size.Add(^uint64(0))

	return item, true
}

// Size returns the number of elements currently in the queue. Safe to
// call concurrently with Push and Pop from their owner goroutines. During
// an in-flight Push the count may briefly under-report; the element will
// be seen by the next query.
func (q *SPSC[T]) Size() uint64 {
	return q.size.Load()
}

// Cap returns the fixed capacity of the queue.
func (q *SPSC[T]) Cap() uint64 {
	return q.capacity
}
