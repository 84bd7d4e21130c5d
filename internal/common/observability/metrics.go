package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	passCounter    otelmetric.Int64Counter
	resultCounter  otelmetric.Int64Counter
	passDuration   otelmetric.Float64Histogram
}

// New registers an OpenTelemetry meter provider backed by the Prometheus
// exporter, so meter instruments show up on the default /metrics registry.
// It also installs a tracer provider; span IDs end up in dispatch logs.
func New(serviceName string) (*Observability, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
	otel.SetTracerProvider(tp)

	o := newWithProvider(provider, serviceName)
	o.tracerProvider = tp
	return o, nil
}

func newWithProvider(provider *metric.MeterProvider, serviceName string) *Observability {
	meter := provider.Meter(serviceName)

	passCounter, _ := meter.Int64Counter(
		"dispatch.passes",
		otelmetric.WithDescription("Number of dispatch passes"),
	)
	resultCounter, _ := meter.Int64Counter(
		"dispatch.notifications",
		otelmetric.WithDescription("Number of notifications processed"),
	)
	passDuration, _ := meter.Float64Histogram(
		"dispatch.pass.duration",
		otelmetric.WithDescription("Dispatch pass duration"),
		otelmetric.WithUnit("ms"),
	)

	return &Observability{
		meterProvider: provider,
		passCounter:   passCounter,
		resultCounter: resultCounter,
		passDuration:  passDuration,
	}
}

func (o *Observability) RecordNotification(ctx context.Context, status string) {
	if o == nil || o.resultCounter == nil {
		return
	}
	o.resultCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("status", status),
	))
}

func (o *Observability) RecordPass(ctx context.Context, duration time.Duration, status string) {
	if o == nil {
		return
	}
	attrs := otelmetric.WithAttributes(attribute.String("status", status))
	if o.passCounter != nil {
		o.passCounter.Add(ctx, 1, attrs)
	}
	if o.passDuration != nil {
		o.passDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

// Tracer returns a named tracer from the installed provider, or the global
// one when o is nil.
func (o *Observability) Tracer(name string) trace.Tracer {
	if o == nil || o.tracerProvider == nil {
		return otel.Tracer(name)
	}
	return o.tracerProvider.Tracer(name)
}

func (o *Observability) Shutdown(ctx context.Context) error {
	if o == nil {
		return nil
	}
	var errs []error
	if o.meterProvider != nil {
		errs = append(errs, o.meterProvider.Shutdown(ctx))
	}
	if o.tracerProvider != nil {
		errs = append(errs, o.tracerProvider.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
