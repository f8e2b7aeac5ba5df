package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/breatheroute/skyreport/internal/telemetry"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestInstruments_Record(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	instruments, err := telemetry.NewInstruments(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	instruments.RecordRun(ctx, 1500*time.Millisecond, telemetry.OutcomeSuccess)
	instruments.RecordProviderCall(ctx, "waqi", telemetry.OutcomeSuccess)
	instruments.RecordProviderCall(ctx, "waqi", telemetry.OutcomeSuccess)
	instruments.RecordProviderCall(ctx, "openuv", telemetry.OutcomeFailure)

	metrics := collect(t, reader)

	calls, ok := metrics["skyreport.provider.calls"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	counts := map[string]int64{}
	for _, dp := range calls.DataPoints {
		name, _ := dp.Attributes.Value(attribute.Key("provider"))
		counts[name.AsString()] += dp.Value
	}
	assert.Equal(t, int64(2), counts["waqi"])
	assert.Equal(t, int64(1), counts["openuv"])

	runs, ok := metrics["skyreport.run.duration"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, runs.DataPoints, 1)
	assert.Equal(t, uint64(1), runs.DataPoints[0].Count)
	assert.Equal(t, 1.5, runs.DataPoints[0].Sum)
}

func TestInstruments_NilIsNoop(t *testing.T) {
	var instruments *telemetry.Instruments
	assert.NotPanics(t, func() {
		instruments.RecordRun(context.Background(), time.Second, telemetry.OutcomeFailure)
		instruments.RecordProviderCall(context.Background(), "waqi", telemetry.OutcomeFailure)
	})
}
