package main

import (
	"context"
	"log/slog"
	"net"
	"time"

	otelruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const serviceName = "wfqbench"

// telemetry exports per-scenario throughput figures to an OTLP
// collector. When the collector is not reachable the recorder degrades
// to a no-op so benchmark runs never depend on one.
type telemetry struct {
	meterProvider *sdkmetric.MeterProvider
	throughput    metric.Float64Gauge
	elapsed       metric.Float64Histogram
}

// isCollectorReachable checks if the OTLP collector port is reachable.
func isCollectorReachable(endpoint string) bool {
	conn, err := net.DialTimeout("tcp", endpoint, 2*time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// initTelemetry initializes the OTLP metric pipeline. It returns a
// no-op recorder if export is disabled or the collector is unreachable.
func initTelemetry(ctx context.Context, cfg *Config, log *slog.Logger) *telemetry {
	if !cfg.Telemetry {
		return &telemetry{}
	}

	if !isCollectorReachable(cfg.OTLPEndpoint) {
		log.Warn("OTLP collector is not reachable, skipping metric export",
			"endpoint", cfg.OTLPEndpoint)
		return &telemetry{}
	}

	grpcTransport := grpc.WithTransportCredentials(insecure.NewCredentials())
	grpcConn, err := grpc.NewClient(cfg.OTLPEndpoint, grpcTransport)
	if err != nil {
		log.Error("failed to create gRPC client", "error", err)
		return &telemetry{}
	}

	exporter, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithGRPCConn(grpcConn))
	if err != nil {
		log.Error("failed to create OTLP metric exporter", "error", err)
		return &telemetry{}
	}

	res, err := resource.Merge(resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		log.Error("failed to create resource", "error", err)
		return &telemetry{}
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(time.Second),
		)),
	)
	otel.SetMeterProvider(meterProvider)

	if err := otelruntime.Start(otelruntime.WithMinimumReadMemStatsInterval(time.Second)); err != nil {
		log.Error("failed to start runtime instrumentation", "error", err)
	}

	meter := meterProvider.Meter(serviceName)

	throughput, err := meter.Float64Gauge("wfqbench.throughput",
		metric.WithDescription("Measured queue throughput"),
		metric.WithUnit("{element}/s"),
	)
	if err != nil {
		log.Error("failed to create throughput gauge", "error", err)
		return &telemetry{}
	}

	elapsed, err := meter.Float64Histogram("wfqbench.round.duration",
		metric.WithDescription("Wall-clock duration of one measured round"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		log.Error("failed to create duration histogram", "error", err)
		return &telemetry{}
	}

	return &telemetry{
		meterProvider: meterProvider,
		throughput:    throughput,
		elapsed:       elapsed,
	}
}

// recordRound records the outcome of one measured round.
func (t *telemetry) recordRound(ctx context.Context, scenario string, elapsedMs, itemsPerSec float64) {
	if t.throughput == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("scenario", scenario))
	t.throughput.Record(ctx, itemsPerSec, attrs)
	t.elapsed.Record(ctx, elapsedMs, attrs)
}

// shutdown flushes pending metrics.
func (t *telemetry) shutdown(ctx context.Context, log *slog.Logger) {
	if t.meterProvider == nil {
		return
	}

	if err := t.meterProvider.Shutdown(ctx); err != nil {
		log.Error("failed to shut down meter provider", "error", err)
	}
}
