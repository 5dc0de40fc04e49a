package main

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/marcusspangenberg/waitfreequeue"
	"github.com/marcusspangenberg/waitfreequeue/internal/bench"
)

// result is the aggregated outcome of one scenario.
type result struct {
	scenario    string
	avgMs       float64
	itemsPerSec float64
}

// runSPSC measures a concurrent single-producer/single-consumer
// exchange. The main goroutine consumes.
func runSPSC(ctx context.Context, cfg *Config, tel *telemetry) result {
	queue := waitfreequeue.NewSPSC[uint64](cfg.Capacity)
	stats := bench.NewStatsAverage(cfg.Rounds)

	for range cfg.Rounds {
		syncPoint := bench.NewBarrier(1)

		go func() {
			syncPoint.Arrive(0)
			for i := range cfg.Items {
				queue.Push(uint64(i))
			}
		}()

		syncPoint.Release()
		timer := bench.StartTimer()

		consumed := 0
		for consumed < cfg.Items {
			if _, ok := queue.Pop(); !ok {
				runtime.Gosched()
				continue
			}
			consumed++
		}

		elapsed := timer.Ms()
		stats.Push(elapsed)
		tel.recordRound(ctx, "spsc", elapsed, itemsPerSec(cfg.Items, elapsed))
	}

	return newResult("spsc", cfg.Items, stats)
}

// runMPSC measures fan-in from cfg.Producers goroutines into a single
// consumer on the main goroutine.
func runMPSC(ctx context.Context, cfg *Config, tel *telemetry) result {
	queue := waitfreequeue.NewMPSC[uint64](cfg.Capacity)
	stats := bench.NewStatsAverage(cfg.Rounds)

	itemsPerProducer := cfg.Items / cfg.Producers
	totalItems := itemsPerProducer * cfg.Producers

	for range cfg.Rounds {
		syncPoint := bench.NewBarrier(cfg.Producers)

		wg := sync.WaitGroup{}
		wg.Add(cfg.Producers)
		for idx := range cfg.Producers {
			go func(idx int) {
				defer wg.Done()
				syncPoint.Arrive(idx)

				base := uint64(idx) * uint64(itemsPerProducer)
				for i := range itemsPerProducer {
					queue.Push(base + uint64(i))
				}
			}(idx)
		}

		syncPoint.Release()
		timer := bench.StartTimer()

		consumed := 0
		for consumed < totalItems {
			if _, ok := queue.Pop(); !ok {
				runtime.Gosched()
				continue
			}
			consumed++
		}

		elapsed := timer.Ms()
		wg.Wait()

		stats.Push(elapsed)
		tel.recordRound(ctx, "mpsc", elapsed, itemsPerSec(totalItems, elapsed))
	}

	return newResult("mpsc", totalItems, stats)
}

// runCycle measures single-goroutine fill/drain cycles on both queues,
// the uncontended baseline.
func runCycle(ctx context.Context, cfg *Config, tel *telemetry) result {
	mpsc := waitfreequeue.NewMPSC[uint64](cfg.Capacity)
	spsc := waitfreequeue.NewSPSC[uint64](cfg.Capacity)
	stats := bench.NewStatsAverage(cfg.Rounds)

	for range cfg.Rounds {
		timer := bench.StartTimer()

		for i := range cfg.Items {
			mpsc.Push(uint64(i))
		}
		for range cfg.Items {
			mpsc.Pop()
		}

		for i := range cfg.Items {
			spsc.Push(uint64(i))
		}
		for range cfg.Items {
			spsc.Pop()
		}

		elapsed := timer.Ms()
		stats.Push(elapsed)
		tel.recordRound(ctx, "cycle", elapsed, itemsPerSec(cfg.Items*2, elapsed))
	}

	return newResult("cycle", cfg.Items*2, stats)
}

func itemsPerSec(items int, elapsedMs float64) float64 {
	if elapsedMs <= 0 {
		return 0
	}
	return float64(items) / (elapsedMs / 1000)
}

func newResult(scenario string, items int, stats *bench.StatsAverage) result {
	avg := stats.Average()
	return result{
		scenario:    scenario,
		avgMs:       avg,
		itemsPerSec: itemsPerSec(items, avg),
	}
}

func (r result) log(log *slog.Logger) {
	log.Info("scenario finished",
		"scenario", r.scenario,
		"avg_ms", r.avgMs,
		"items_per_sec", uint64(r.itemsPerSec),
	)
}
