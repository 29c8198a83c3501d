package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

type Observability struct {
	meterProvider          *metric.MeterProvider
	meter                  otelmetric.Meter
	classificationCounter  otelmetric.Int64Counter
	classificationDuration otelmetric.Float64Histogram
}

func New(serviceName string) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	classificationCounter, _ := meter.Int64Counter(
		"classifications.processed",
		otelmetric.WithDescription("Number of classifications processed"),
	)

	classificationDuration, _ := meter.Float64Histogram(
		"classifications.duration",
		otelmetric.WithDescription("Classification processing duration"),
		otelmetric.WithUnit("ms"),
	)

	return &Observability{
		meterProvider:          provider,
		meter:                  meter,
		classificationCounter:  classificationCounter,
		classificationDuration: classificationDuration,
	}
}

func (o *Observability) RecordClassification(ctx context.Context, status string) {
	if o == nil {
		return
	}
	if o.classificationCounter != nil {
		o.classificationCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordClassificationDuration(ctx context.Context, duration time.Duration, status string) {
	if o == nil {
		return
	}
	if o.classificationDuration != nil {
		o.classificationDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("status", status),
		))
	}
}

func (o *Observability) Shutdown() {
	if o == nil {
		return
	}
	if o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		o.meterProvider.Shutdown(ctx)
	}
}
