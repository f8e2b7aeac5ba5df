// Package report merges location, air quality and UV data into a single run report.
package report

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/breatheroute/skyreport/internal/airquality"
	"github.com/breatheroute/skyreport/internal/location"
	"github.com/breatheroute/skyreport/internal/uv"
)

// Report errors.
var (
	ErrIncompleteInput   = errors.New("incomplete report input")
	ErrInvalidThresholds = errors.New("invalid uv thresholds")
)

// Thresholds are the UV index limits used to derive safe times and cutoffs.
type Thresholds struct {
	// SafeMax: samples strictly below it are safe.
	SafeMax float64 `yaml:"safe_max" json:"safe_max"`

	// Extended and Strict: samples strictly above them form the two cutoff series.
	Extended float64 `yaml:"extended" json:"extended"`
	Strict   float64 `yaml:"strict" json:"strict"`
}

// DefaultThresholds returns the stock limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SafeMax:  uv.DefaultSafeMax,
		Extended: 3,
		Strict:   5,
	}
}

// Validate checks the thresholds are usable.
func (t Thresholds) Validate() error {
	for name, v := range map[string]float64{"safe_max": t.SafeMax, "extended": t.Extended, "strict": t.Strict} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: %s = %v", ErrInvalidThresholds, name, v)
		}
	}
	if t.Extended > t.Strict {
		return fmt.Errorf("%w: extended %v above strict %v", ErrInvalidThresholds, t.Extended, t.Strict)
	}
	return nil
}

// Report is the presentation payload of one run. Built once and not persisted.
type Report struct {
	ID          uuid.UUID `json:"id"`
	GeneratedAt time.Time `json:"generated_at"`

	Location         *location.Location         `json:"location"`
	AirQuality       *airquality.Sample         `json:"air_quality"`
	AirQualityRating airquality.Rating          `json:"air_quality_rating"`
	Forecast         []airquality.ForecastPoint `json:"forecast"`

	// CurrentUV is the realtime index, set by the runner when it was fetched.
	CurrentUV *float64 `json:"current_uv,omitempty"`

	UVSamples      []uv.Sample   `json:"uv_samples"`
	SafeSamples    []uv.Sample   `json:"safe_samples"`
	SafeTimes      []uv.Window   `json:"safe_times"`
	ExtendedCutoff []uv.Sample   `json:"extended_cutoff"`
	StrictCutoff   []uv.Sample   `json:"strict_cutoff"`
	Exposures      []uv.Exposure `json:"exposures"`

	// Annotation is the chart caption, e.g. "Air Quality: 42 (Good)".
	Annotation string `json:"annotation"`

	Thresholds Thresholds `json:"thresholds"`
}

// City returns the report's city, or "" if no location is attached.
func (r *Report) City() string {
	if r.Location == nil {
		return ""
	}
	return r.Location.City
}

// Annotation renders the air quality caption.
func Annotation(aqi int, rating airquality.Rating) string {
	return fmt.Sprintf("Air Quality: %d (%s)", aqi, rating.Level)
}
