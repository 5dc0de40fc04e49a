package waitfreequeue

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// MPSC is a bounded wait-free multi-producer, single-consumer queue.
//
// Any number of goroutines may call Push concurrently. Pop and Empty must
// only be called from a single consumer goroutine; Empty counts as a
// consumer-side operation. An MPSC must be created with NewMPSC and must
// not be copied after first use.
//
// The queue never blocks and never allocates after construction. In
// exchange, Push on a full queue is a caller bug: the queue must be sized
// so that the number of unconsumed elements can never exceed the capacity.
// Builds with the wfqdebug tag panic when this is violated; release
// builds leave the behavior undefined.
//
// Elements pushed by the same goroutine are popped in push order. Across
// producers no total order is guaranteed: two racing producers may
// publish their slots in the opposite order to their reservations, and
// Pop simply reports false until the slot it is waiting on is published.
type MPSC[T any] struct {
	head atomic.Uint64

	_ cpu.CacheLinePad

	tail atomic.Uint64

	_ cpu.CacheLinePad

	capMask uint64
	slots   []slot[T]
}

// NewMPSC returns a new MPSC queue with the given capacity. The capacity
// must be a power of two and at least 2; anything else panics.
func NewMPSC[T any](capacity uint64) *MPSC[T] {
	checkCapacity(capacity)

	return &MPSC[T]{
		capMask: capacity - 1,
		slots:   make([]slot[T], capacity),
	}
}

// Push appends item to the queue and makes it visible to the consumer.
// Safe to call from any number of goroutines. Must not be called when
// the queue is full.
func (q *MPSC[T]) Push(item T) {
	// The fetch-add hands each producer a distinct slot; producers never
	// need to see each other's data, only to not collide.
	tail := q.tail.Add(1) - 1
	s := &q.slots[tail&q.capMask]

	s.value = item

	if debugChecks && s.used.Load() != 0 {
		// A set flag here means the ring wrapped onto an unconsumed
		// element: the queue was run full.
		panic("waitfreequeue: MPSC push on full queue")
	}

	// Publication point. The consumer's load of used synchronizes with
	// this store and makes the value write above visible.
	s.used.Store(1)
}

// Pop removes the element at the head of the queue. The second return
// value is false if the queue was observed empty. Must only be called
// from the single consumer goroutine.
func (q *MPSC[T]) Pop() (T, bool) {
	head := q.head.Add(1) - 1
	s := &q.slots[head&q.capMask]

	if s.used.Load() == 0 {
		// Either the queue is empty or a producer reserved this slot and
		// has not published yet. Undo the reservation so the next Pop
		// retries the same logical position instead of skipping it.
		q.head.Add(^uint64(0))

		var zero T
		return zero, false
	}

	item := s.value

	// Drop the queue's reference so the element can be collected once the
	// caller is done with it.
	var zero T
	s.value = zero

	s.used.Store(0)

	return item, true
}

// Empty reports whether Pop would currently fail. It reads consumer-side
// state and therefore must not be called concurrently with Pop from a
// different goroutine.
func (q *MPSC[T]) Empty() bool {
	head := q.head.Load()
	return q.slots[head&q.capMask].used.Load() == 0
}

// Cap returns the fixed capacity of the queue.
func (q *MPSC[T]) Cap() uint64 {
	return q.capMask + 1
}
