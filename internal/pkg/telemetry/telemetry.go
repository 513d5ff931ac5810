// Package telemetry installs the process-wide OpenTelemetry tracer provider.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Enabled turns on export to CollectorEndpoint. Spans are still sampled
	// and recorded locally when it is off.
	Enabled           bool
	CollectorEndpoint string
	// SampleRatio applies to root spans. Children follow their parent.
	SampleRatio float64
}

type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider
}

func (c Config) resource() *sdkresource.Resource {
	return sdkresource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(c.ServiceName),
		semconv.ServiceVersion(c.ServiceVersion),
		semconv.DeploymentEnvironment(c.Environment),
		semconv.TelemetrySDKLanguageGo,
	)
}

// Setup builds a tracer provider from cfg, installs it and the W3C propagators
// globally, and returns it for shutdown. Extra options are appended after the
// defaults.
func Setup(ctx context.Context, cfg Config, opts ...sdktrace.TracerProviderOption) (*Telemetry, error) {
	if cfg.SampleRatio < 0 || cfg.SampleRatio > 1 {
		return nil, fmt.Errorf("telemetry: sample ratio %v outside [0, 1]", cfg.SampleRatio)
	}

	providerOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(cfg.resource()),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	}

	if cfg.Enabled {
		if cfg.CollectorEndpoint == "" {
			return nil, fmt.Errorf("telemetry: collector endpoint is required when export is enabled")
		}
		exporter, err := otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(cfg.CollectorEndpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("can't initialize tracer exporter: %w", err)
		}
		providerOpts = append(providerOpts, sdktrace.WithBatcher(exporter))
		slog.InfoContext(ctx, "trace export enabled", "endpoint", cfg.CollectorEndpoint, "sample_ratio", cfg.SampleRatio)
	} else {
		slog.InfoContext(ctx, "trace export disabled")
	}

	tp := sdktrace.NewTracerProvider(append(providerOpts, opts...)...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return &Telemetry{TracerProvider: tp}, nil
}

// Shutdown flushes pending spans and stops the exporter.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if err := t.TracerProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("can't shutdown tracer provider: %w", err)
	}
	return nil
}
