// Package uv fetches UV index data and derives safe times from it.
package uv

import (
	"fmt"
	"time"
)

// DefaultSafeMax is the UV index below which time outdoors is considered safe.
const DefaultSafeMax = 3.5

// LabelLayout formats a sample time for chart axes (e.g. "1:30 PM").
const LabelLayout = "3:04 PM"

// Coordinates locate a UV reading. Altitude is in meters.
type Coordinates struct {
	Latitude  float64
	Longitude float64
	Altitude  float64
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%.4f,%.4f@%.0fm", c.Latitude, c.Longitude, c.Altitude)
}

// Sample is one forecast time bucket.
type Sample struct {
	// CapturedAt is the bucket time in the location's zone.
	CapturedAt time.Time `json:"captured_at"`

	// Index is the UV index, never negative.
	Index float64 `json:"uv"`

	SunAzimuth   float64 `json:"sun_azimuth"`
	SunElevation float64 `json:"sun_elevation"`
}

// Label renders the local capture time for display.
func (s Sample) Label() string {
	return s.CapturedAt.Format(LabelLayout)
}

// Window is a contiguous run of samples that stay below a threshold.
type Window struct {
	Samples []Sample `json:"samples"`
}

// Start is the time of the first sample in the window.
func (w Window) Start() time.Time {
	if len(w.Samples) == 0 {
		return time.Time{}
	}
	return w.Samples[0].CapturedAt
}

// End is the time of the last sample in the window.
func (w Window) End() time.Time {
	if len(w.Samples) == 0 {
		return time.Time{}
	}
	return w.Samples[len(w.Samples)-1].CapturedAt
}

func (w Window) String() string {
	return fmt.Sprintf("%s - %s", w.Start().Format(LabelLayout), w.End().Format(LabelLayout))
}

// Exposure rates a single sample against the configured thresholds.
type Exposure string

const (
	ExposureSafe    Exposure = "safe"
	ExposureCaution Exposure = "caution"
	ExposureDanger  Exposure = "danger"
)
