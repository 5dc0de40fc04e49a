package bench

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Barrier(t *testing.T) {
	assert := assert.New(t)

	const workers = 4
	const rounds = 3

	barrier := NewBarrier(workers)

	var passed atomic.Int64

	wg := sync.WaitGroup{}
	wg.Add(workers)
	for id := range workers {
		go func(id int) {
			defer wg.Done()
			for range rounds {
				barrier.Arrive(id)
				passed.Add(1)
			}
		}(id)
	}

	for round := range rounds {
		barrier.Release()
		// Workers of earlier rounds have all passed; workers of this
		// round are released but may not have incremented yet. No worker
		// of a later round can pass before the next Release.
		for passed.Load() < int64((round+1)*workers) {
			runtime.Gosched()
		}
		assert.Equal(int64((round+1)*workers), passed.Load())
	}

	wg.Wait()
	assert.Equal(int64(rounds*workers), passed.Load())
}

func Test_StatsAverage(t *testing.T) {
	assert := assert.New(t)

	stats := NewStatsAverage(4)
	assert.Zero(stats.Average())
	assert.Zero(stats.Count())

	stats.Push(1)
	stats.Push(2)
	stats.Push(3)
	assert.Equal(3, stats.Count())
	assert.InDelta(2.0, stats.Average(), 1e-9)

	stats.Push(4)
	assert.Equal(4, stats.Count())
	assert.InDelta(2.5, stats.Average(), 1e-9)

	// The window is full: new samples displace the oldest ones.
	stats.Push(5)
	assert.Equal(4, stats.Count())
	assert.InDelta(3.5, stats.Average(), 1e-9)
}

func Test_Timer(t *testing.T) {
	timer := StartTimer()
	assert.GreaterOrEqual(t, timer.Ms(), 0.0)
}
