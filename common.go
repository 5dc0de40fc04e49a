// Package waitfreequeue provides bounded, wait-free, single-allocation
// queues for hot-path handoff between goroutines, e.g. delivering network
// packets from I/O workers to a single processing goroutine.
//
// Both queues are fixed-capacity rings allocated once at construction.
// Every operation completes in a bounded number of steps regardless of
// what other goroutines are doing: nothing here spins, yields, sleeps or
// blocks. The price is the usage contract: the caller sizes the queue so
// it never overfills, and pop stays on its single consumer goroutine.
package waitfreequeue

import (
	"fmt"
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// slot is one element cell of the MPSC ring.
//
// used is the publication flag: 0 means empty, 1 means the cell holds a
// live value. The producer's store of 1 is what makes the written value
// visible to the consumer. The trailing pad keeps neighbouring slots on
// separate cache lines, so a producer publishing into slot i does not
// invalidate the line the consumer is reading slot i-1 from.
type slot[T any] struct {
	value T
	used  atomic.Uint32

	_ cpu.CacheLinePad
}

// checkCapacity rejects capacities that break the mask arithmetic.
// Capacity 1 is also rejected, so every queue has at least two slots.
func checkCapacity(capacity uint64) {
	if capacity < 2 || capacity&(capacity-1) != 0 {
		panic(fmt.Sprintf("waitfreequeue: capacity %d is not a power of two >= 2", capacity))
	}
}
