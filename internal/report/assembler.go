package report

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/breatheroute/skyreport/internal/airquality"
	"github.com/breatheroute/skyreport/internal/location"
	"github.com/breatheroute/skyreport/internal/uv"
)

// Assemble derives the report from already-fetched inputs. It performs no I/O.
// samples must be in the location's zone and ascending.
func Assemble(loc *location.Location, aq *airquality.Sample, samples []uv.Sample, thresholds Thresholds) (*Report, error) {
	if loc == nil {
		return nil, fmt.Errorf("%w: missing location", ErrIncompleteInput)
	}
	if aq == nil {
		return nil, fmt.Errorf("%w: missing air quality sample", ErrIncompleteInput)
	}
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}

	rating, err := airquality.Classify(aq.AQI)
	if err != nil {
		return nil, fmt.Errorf("rate air quality: %w", err)
	}

	generatedAt := loc.LocalTime
	if generatedAt.IsZero() {
		generatedAt = time.Now()
	}

	return &Report{
		ID:               uuid.New(),
		GeneratedAt:      generatedAt,
		Location:         loc,
		AirQuality:       aq,
		AirQualityRating: rating,
		Forecast:         airquality.Flatten(aq.Forecast),
		UVSamples:        samples,
		SafeSamples:      uv.SafeTimes(samples, thresholds.SafeMax),
		SafeTimes:        uv.SafetyWindows(samples, thresholds.SafeMax),
		ExtendedCutoff:   uv.CutoffAbove(samples, thresholds.Extended),
		StrictCutoff:     uv.CutoffAbove(samples, thresholds.Strict),
		Exposures:        uv.Exposures(samples, thresholds.SafeMax, thresholds.Strict),
		Annotation:       Annotation(aq.AQI, rating),
		Thresholds:       thresholds,
	}, nil
}
