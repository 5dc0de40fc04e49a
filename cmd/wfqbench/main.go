// Command wfqbench runs microbenchmarks for the waitfreequeue MPSC and
// SPSC queues and reports per-scenario throughput, optionally exporting
// the figures over OTLP.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

func main() {
	ctx, cancelCtx := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancelCtx()

	cfg := parseConfig()

	log := newLogger(cfg.Verbose)
	cfg.Validate(log)

	log.Debug("configuration",
		"scenario", cfg.Scenario,
		"producers", cfg.Producers,
		"items", cfg.Items,
		"capacity", cfg.Capacity,
		"rounds", cfg.Rounds,
	)

	tel := initTelemetry(ctx, cfg, log)
	defer tel.shutdown(context.Background(), log)

	if cfg.Scenario == "spsc" || cfg.Scenario == "all" {
		runSPSC(ctx, cfg, tel).log(log)
	}
	if cfg.Scenario == "mpsc" || cfg.Scenario == "all" {
		runMPSC(ctx, cfg, tel).log(log)
	}
	if cfg.Scenario == "cycle" || cfg.Scenario == "all" {
		runCycle(ctx, cfg, tel).log(log)
	}
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	stderr := os.Stderr
	handler := tint.NewHandler(colorable.NewColorable(stderr), &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    !isatty.IsTerminal(stderr.Fd()),
	})

	return slog.New(handler)
}
