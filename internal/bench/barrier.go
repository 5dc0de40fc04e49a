// Package bench contains the measurement harness used by the benchmark
// binary and the concurrent tests: a goroutine rendezvous barrier and
// scoped timing helpers. None of this is part of the queue hot path; the
// harness is allowed to spin and yield where the queues are not.
package bench

import (
	"runtime"
	"sync/atomic"
)

// Barrier synchronizes n worker goroutines with one coordinator so that
// all workers start a measured section at the same instant. Each worker
// calls Arrive with its id and blocks until the coordinator calls
// Release. A Barrier is reusable: workers may Arrive again for the next
// round as soon as they are released.
type Barrier struct {
	arrived  []atomic.Bool
	released []atomic.Bool
}

// NewBarrier returns a barrier for n workers, identified by ids 0..n-1.
func NewBarrier(n int) *Barrier {
	return &Barrier{
		arrived:  make([]atomic.Bool, n),
		released: make([]atomic.Bool, n),
	}
}

// Arrive marks worker id as ready and blocks until the coordinator
// releases the round.
func (b *Barrier) Arrive(id int) {
	b.arrived[id].Store(true)

	// Consume the release token so the barrier can be reused.
	for !b.released[id].CompareAndSwap(true, false) {
		runtime.Gosched()
	}
}

// Release waits until every worker has arrived, then lets all of them
// go. Must only be called by the single coordinator goroutine.
func (b *Barrier) Release() {
	for i := range b.arrived {
		for !b.arrived[i].CompareAndSwap(true, false) {
			runtime.Gosched()
		}
	}

	for i := range b.released {
		b.released[i].Store(true)
	}
}
