package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Instruments are the metrics recorded by a report run.
type Instruments struct {
	runDuration   metric.Float64Histogram
	providerCalls metric.Int64Counter
}

// NewInstruments registers the report instruments on meter.
func NewInstruments(meter metric.Meter) (*Instruments, error) {
	runDuration, err := meter.Float64Histogram("skyreport.run.duration",
		metric.WithDescription("Wall time of a full report run"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	providerCalls, err := meter.Int64Counter("skyreport.provider.calls",
		metric.WithDescription("Upstream provider calls by outcome"),
	)
	if err != nil {
		return nil, err
	}

	return &Instruments{runDuration: runDuration, providerCalls: providerCalls}, nil
}

// RecordRun records the duration of a run.
func (i *Instruments) RecordRun(ctx context.Context, elapsed time.Duration, outcome string) {
	if i == nil {
		return
	}
	i.runDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordProviderCall counts one call to an upstream provider.
func (i *Instruments) RecordProviderCall(ctx context.Context, provider, outcome string) {
	if i == nil {
		return
	}
	i.providerCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("outcome", outcome),
	))
}
