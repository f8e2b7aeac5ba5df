package report_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/skyreport/internal/airquality"
	"github.com/breatheroute/skyreport/internal/location"
	"github.com/breatheroute/skyreport/internal/report"
	"github.com/breatheroute/skyreport/internal/uv"
)

func testLocation() *location.Location {
	zone, _ := time.LoadLocation("Europe/Amsterdam")
	utc := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	return &location.Location{
		IP:           "203.0.113.7",
		City:         "Amsterdam",
		Region:       "North Holland",
		Latitude:     52.37,
		Longitude:    4.89,
		TimezoneName: "Europe/Amsterdam",
		Timezone:     zone,
		UTCTime:      utc,
		LocalTime:    utc.In(zone),
	}
}

func testSample(aqi int) *airquality.Sample {
	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	return &airquality.Sample{
		AQI:               aqi,
		DominantPollutant: "pm25",
		Forecast: map[string][]airquality.DailyStat{
			"pm25": {{Day: day, Average: 40, Min: 30, Max: 50}, {Day: day.AddDate(0, 0, 1), Average: 35, Min: 20, Max: 45}},
			"o3":   {{Day: day, Average: 10, Min: 5, Max: 15}},
		},
	}
}

func testUV(values ...float64) []uv.Sample {
	start := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	out := make([]uv.Sample, len(values))
	for i, v := range values {
		out[i] = uv.Sample{CapturedAt: start.Add(time.Duration(i) * time.Hour), Index: v}
	}
	return out
}

func TestAssemble(t *testing.T) {
	loc := testLocation()
	samples := testUV(1.2, 2.8, 4.1, 6.0)

	rpt, err := report.Assemble(loc, testSample(42), samples, report.DefaultThresholds())
	require.NoError(t, err)

	assert.NotEqual(t, [16]byte{}, [16]byte(rpt.ID))
	assert.Equal(t, loc.LocalTime, rpt.GeneratedAt)
	assert.Equal(t, "Amsterdam", rpt.City())
	assert.Equal(t, airquality.LevelGood, rpt.AirQualityRating.Level)
	assert.Equal(t, "Air Quality: 42 (Good)", rpt.Annotation)

	assert.Equal(t, samples, rpt.UVSamples)
	assert.Equal(t, samples[:2], rpt.SafeSamples)
	assert.Equal(t, samples[2:], rpt.ExtendedCutoff)
	assert.Equal(t, samples[3:], rpt.StrictCutoff)
	require.Len(t, rpt.SafeTimes, 1)
	assert.Equal(t, samples[:2], rpt.SafeTimes[0].Samples)
	assert.Equal(t, []uv.Exposure{uv.ExposureSafe, uv.ExposureSafe, uv.ExposureCaution, uv.ExposureDanger}, rpt.Exposures)

	require.Len(t, rpt.Forecast, 3)
	assert.Equal(t, "o3", rpt.Forecast[0].Pollutant)
}

func TestAssemble_UnhealthyAnnotation(t *testing.T) {
	rpt, err := report.Assemble(testLocation(), testSample(175), nil, report.DefaultThresholds())
	require.NoError(t, err)
	assert.Equal(t, "Air Quality: 175 (Unhealthy)", rpt.Annotation)
	assert.Equal(t, "rgb(255,42,0)", rpt.AirQualityRating.Color.String())
	assert.Empty(t, rpt.SafeTimes)
}

func TestAssemble_PropagatesClassifierError(t *testing.T) {
	_, err := report.Assemble(testLocation(), testSample(1000), testUV(1), report.DefaultThresholds())
	assert.ErrorIs(t, err, airquality.ErrUnclassifiableAQI)
}

func TestAssemble_IncompleteInput(t *testing.T) {
	_, err := report.Assemble(nil, testSample(42), nil, report.DefaultThresholds())
	assert.ErrorIs(t, err, report.ErrIncompleteInput)

	_, err = report.Assemble(testLocation(), nil, nil, report.DefaultThresholds())
	assert.ErrorIs(t, err, report.ErrIncompleteInput)
}

func TestAssemble_CustomThresholds(t *testing.T) {
	samples := testUV(1, 2, 3, 4, 5, 6)
	rpt, err := report.Assemble(testLocation(), testSample(42), samples, report.Thresholds{SafeMax: 2, Extended: 4, Strict: 5})
	require.NoError(t, err)

	assert.Equal(t, samples[:1], rpt.SafeSamples)
	assert.Equal(t, samples[4:], rpt.ExtendedCutoff)
	assert.Equal(t, samples[5:], rpt.StrictCutoff)
}

func TestThresholds_Validate(t *testing.T) {
	assert.NoError(t, report.DefaultThresholds().Validate())

	invalid := []report.Thresholds{
		{SafeMax: -1, Extended: 3, Strict: 5},
		{SafeMax: math.NaN(), Extended: 3, Strict: 5},
		{SafeMax: 3.5, Extended: math.Inf(1), Strict: 5},
		{SafeMax: 3.5, Extended: 6, Strict: 5},
	}
	for _, th := range invalid {
		assert.ErrorIs(t, th.Validate(), report.ErrInvalidThresholds, "%+v", th)
	}

	_, err := report.Assemble(testLocation(), testSample(42), nil, invalid[0])
	assert.ErrorIs(t, err, report.ErrInvalidThresholds)
}
