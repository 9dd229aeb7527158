package otelx

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"

	"github.com/bakkerme/subsync/internal/config"
)

const (
	protocolGRPC = "grpc"
	protocolHTTP = "http/protobuf"

	defaultServiceName = "subsync"
)

// Shutdown flushes pending spans. It is never nil.
type Shutdown func(context.Context) error

func noop(context.Context) error { return nil }

// Init installs a global tracer provider exporting over OTLP. When tracing is
// disabled the global no-op provider is left in place and the returned
// Shutdown does nothing.
func Init(ctx context.Context, logger *slog.Logger, cfg config.OTelEnvConfig) (Shutdown, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.Enabled {
		return noop, nil
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = defaultServiceName
	}

	exp, err := newTraceExporter(ctx, cfg)
	if err != nil {
		return noop, err
	}

	res, err := resource.New(
		ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithProcess(),
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return noop, fmt.Errorf("build otel resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exp, sdktrace.WithBatchTimeout(2*time.Second)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("Tracing enabled",
		slog.String("service_name", serviceName),
		slog.String("otlp_endpoint", endpoint(cfg)),
		slog.String("otlp_protocol", protocol(cfg)),
		slog.Float64("sample_ratio", cfg.SampleRatio))

	return tp.Shutdown, nil
}

func newTraceExporter(ctx context.Context, cfg config.OTelEnvConfig) (*otlptrace.Exporter, error) {
	switch p := protocol(cfg); p {
	case protocolHTTP:
		return otlptracehttp.New(ctx, httpOptions(cfg)...)
	case protocolGRPC:
		opts, err := grpcOptions(cfg)
		if err != nil {
			return nil, err
		}
		return otlptracegrpc.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported OTEL_EXPORTER_OTLP_PROTOCOL %q (expected grpc or http/protobuf)", p)
	}
}

func httpOptions(cfg config.OTelEnvConfig) []otlptracehttp.Option {
	ep := endpoint(cfg)
	opts := []otlptracehttp.Option{}
	if strings.Contains(ep, "://") {
		opts = append(opts, otlptracehttp.WithEndpointURL(ep))
	} else {
		opts = append(opts, otlptracehttp.WithEndpoint(ep))
	}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
	}
	return opts
}

func grpcOptions(cfg config.OTelEnvConfig) ([]otlptracegrpc.Option, error) {
	host, err := grpcHost(endpoint(cfg))
	if err != nil {
		return nil, err
	}
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(host)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(cfg.Headers))
	}
	return opts, nil
}

// grpcHost strips a scheme; the gRPC exporter only takes host:port.
func grpcHost(ep string) (string, error) {
	if !strings.Contains(ep, "://") {
		return ep, nil
	}
	u, err := url.Parse(ep)
	if err != nil {
		return "", fmt.Errorf("parse OTEL_EXPORTER_OTLP_ENDPOINT: %w", err)
	}
	return u.Host, nil
}

func endpoint(cfg config.OTelEnvConfig) string {
	if v := strings.TrimSpace(cfg.Endpoint); v != "" {
		return v
	}
	if protocol(cfg) == protocolHTTP {
		return "localhost:4318"
	}
	return "localhost:4317"
}

func protocol(cfg config.OTelEnvConfig) string {
	v := strings.ToLower(strings.TrimSpace(cfg.Protocol))
	switch v {
	case "":
		return protocolGRPC
	case "http":
		return protocolHTTP
	default:
		return v
	}
}
