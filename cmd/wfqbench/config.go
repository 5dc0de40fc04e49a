package main

import (
	"flag"
	"log/slog"
	"runtime"
)

// Default values for the benchmark configuration.
const (
	DefaultScenario     = "all"
	DefaultProducers    = 4
	DefaultItems        = 1 << 20
	DefaultCapacity     = 1 << 21
	DefaultRounds       = 8
	DefaultOTLPEndpoint = "localhost:4317"
)

// Config contains the benchmark run configuration.
type Config struct {
	// Scenario selects what to run: spsc, mpsc, cycle or all.
	Scenario string

	// Producers is the number of producer goroutines in the mpsc
	// scenario.
	Producers int

	// Items is the number of elements pushed per round.
	Items int

	// Capacity is the queue capacity. Rounded up to a power of two. The
	// queues are never allowed to fill, so it is raised to at least twice
	// Items (rounded up to a power of two).
	Capacity uint64

	// Rounds is the number of measured rounds per scenario.
	Rounds int

	// OTLPEndpoint is the OTLP gRPC collector endpoint for metric
	// export. Export is skipped when the collector is not reachable.
	OTLPEndpoint string

	// Telemetry enables OTLP metric export.
	Telemetry bool

	// Verbose enables debug logging.
	Verbose bool
}

func parseConfig() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.Scenario, "scenario", DefaultScenario, "scenario to run: spsc, mpsc, cycle or all")
	flag.IntVar(&cfg.Producers, "producers", DefaultProducers, "producer goroutines in the mpsc scenario")
	flag.IntVar(&cfg.Items, "items", DefaultItems, "elements pushed per round")
	flag.Uint64Var(&cfg.Capacity, "capacity", DefaultCapacity, "queue capacity, rounded up to a power of two")
	flag.IntVar(&cfg.Rounds, "rounds", DefaultRounds, "measured rounds per scenario")
	flag.StringVar(&cfg.OTLPEndpoint, "otlp-endpoint", DefaultOTLPEndpoint, "OTLP gRPC endpoint for metric export")
	flag.BoolVar(&cfg.Telemetry, "telemetry", false, "export metrics over OTLP")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "enable debug logging")
	flag.Parse()

	return cfg
}

// Validate checks the configuration and falls back to safe values,
// logging every adjustment.
func (c *Config) Validate(log *slog.Logger) {
	switch c.Scenario {
	case "spsc", "mpsc", "cycle", "all":
	default:
		log.Warn("unknown scenario, falling back",
			"field", "Scenario", "actual", c.Scenario, "fallback", DefaultScenario)
		c.Scenario = DefaultScenario
	}

	if c.Producers < 1 {
		log.Warn("producer count cannot be lower than 1, falling back",
			"field", "Producers", "actual", c.Producers, "fallback", 1)
		c.Producers = 1
	}
	if maxProducers := runtime.NumCPU() * 4; c.Producers > maxProducers {
		log.Warn("producer count too high, falling back",
			"field", "Producers", "actual", c.Producers, "fallback", maxProducers)
		c.Producers = maxProducers
	}

	if c.Items < 1 {
		log.Warn("item count cannot be lower than 1, falling back",
			"field", "Items", "actual", c.Items, "fallback", DefaultItems)
		c.Items = DefaultItems
	}

	if c.Rounds < 1 {
		log.Warn("round count cannot be lower than 1, falling back",
			"field", "Rounds", "actual", c.Rounds, "fallback", DefaultRounds)
		c.Rounds = DefaultRounds
	}

	if parsed := roundToPowerOf2(c.Capacity); parsed != c.Capacity {
		log.Warn("capacity is not a power of two, rounding up",
			"field", "Capacity", "actual", c.Capacity, "fallback", parsed)
		c.Capacity = parsed
	}

	// The wait-free contract requires the queue to never fill: the
	// concurrent scenarios have no way to throttle producers mid-round.
	if minCapacity := roundToPowerOf2(uint64(c.Items) * 2); c.Capacity < minCapacity {
		log.Warn("capacity must be at least twice the per-round item count, falling back",
			"field", "Capacity", "actual", c.Capacity, "fallback", minCapacity)
		c.Capacity = minCapacity
	}
}

func roundToPowerOf2(value uint64) uint64 {
	if value < 2 {
		return 2
	}

	value--
	value |= value >> 1
	value |= value >> 2
	value |= value >> 4
	value |= value >> 8
	value |= value >> 16
	value |= value >> 32

	return value + 1
}
