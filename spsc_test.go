package waitfreequeue

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/marcusspangenberg/waitfreequeue/internal/bench"
)

func TestSPSC_SizeAccounting(t *testing.T) {
	assert := assert.New(t)

	numElements := numTestElements()
	queue := NewSPSC[uint64](numElements * 2)

	assert.Zero(queue.Size())

	for i := uint64(0); i < numElements; i++ {
		queue.Push(makeValue(0, 0, i))
	}
	assert.Equal(numElements, queue.Size())

	for i := uint64(0); i < numElements; i++ {
		value, ok := queue.Pop()
		assert.True(ok)
		assert.Equal(makeValue(0, 0, i), value)
	}
	assert.Zero(queue.Size())

	queue.Push(makeValue(0, 1, 0))
	assert.Equal(uint64(1), queue.Size())

	value, ok := queue.Pop()
	assert.True(ok)
	assert.Equal(makeValue(0, 1, 0), value)
	assert.Zero(queue.Size())
}

func TestSPSC_FIFO(t *testing.T) {
	assert := assert.New(t)

	queue := NewSPSC[uint64](1024)

	// Several fill/drain rounds so the ring wraps.
	for round := uint64(0); round < 5; round++ {
		for i := uint64(0); i < 1000; i++ {
			queue.Push(round*1000 + i)
		}
		for i := uint64(0); i < 1000; i++ {
			value, ok := queue.Pop()
			assert.True(ok)
			assert.Equal(round*1000+i, value)
		}
	}
	assert.Zero(queue.Size())
}

// Producer and consumer run concurrently; the pop sequence must equal
// the push sequence exactly.
func TestSPSC_Concurrent(t *testing.T) {
	assert := assert.New(t)

	numElements := numTestElements() * testIterations
	queue := NewSPSC[uint64](numElements * 2)

	syncPoint := bench.NewBarrier(1)

	go func() {
		syncPoint.Arrive(0)
		for i := uint64(0); i < numElements; i++ {
			queue.Push(i)
		}
	}()

	syncPoint.Release()

	for i := uint64(0); i < numElements; i++ {
		for {
			value, ok := queue.Pop()
			if !ok {
				runtime.Gosched()
				continue
			}
			assert.Equal(i, value)
			break
		}
	}

	assert.Zero(queue.Size())
}

func TestSPSC_PopOnEmpty(t *testing.T) {
	assert := assert.New(t)

	queue := NewSPSC[uint64](16)

	for range 100 {
		_, ok := queue.Pop()
		assert.False(ok)
		assert.Zero(queue.Size())
	}

	queue.Push(7)
	value, ok := queue.Pop()
	assert.True(ok)
	assert.Equal(uint64(7), value)
	assert.Zero(queue.Size())
}

func TestSPSC_FillToCapacityMinusOne(t *testing.T) {
	assert := assert.New(t)

	const capacity = 1024
	queue := NewSPSC[uint64](capacity)

	for i := uint64(0); i < capacity-1; i++ {
		queue.Push(i)
	}
	assert.Equal(uint64(capacity-1), queue.Size())

	for i := uint64(0); i < capacity-1; i++ {
		value, ok := queue.Pop()
		assert.True(ok)
		assert.Equal(i, value)
	}
	assert.Zero(queue.Size())
}

func TestSPSC_ReleasesElements(t *testing.T) {
	assert := assert.New(t)

	queue := NewSPSC[*uint64](16)

	for i := uint64(0); i < 8; i++ {
		value := i
		queue.Push(&value)
	}
	for range 8 {
		value, ok := queue.Pop()
		assert.True(ok)
		assert.NotNil(value)
	}

	for i := range queue.buffer {
		assert.Nil(queue.buffer[i])
	}
}
