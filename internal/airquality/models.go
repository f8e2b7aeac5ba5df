// Package airquality fetches, rates and reshapes air quality index data.
package airquality

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Air quality errors.
var (
	ErrUnclassifiableAQI = errors.New("aqi outside every rating band")
	ErrStationNotFound   = errors.New("station not found")
	ErrDuplicateDay      = errors.New("duplicate forecast day")
)

// Level is the named health risk band of an AQI value.
type Level string

const (
	LevelGood                  Level = "Good"
	LevelModerate              Level = "Moderate"
	LevelUnhealthyForSensitive Level = "Unhealthy for Sensitive Groups"
	LevelUnhealthy             Level = "Unhealthy"
	LevelVeryUnhealthy         Level = "Very Unhealthy"
	LevelHazardous             Level = "Hazardous"
)

// RGB is a display color.
type RGB struct {
	R, G, B uint8
}

// String renders the color as a CSS rgb() value.
func (c RGB) String() string {
	return fmt.Sprintf("rgb(%d,%d,%d)", c.R, c.G, c.B)
}

// MarshalText renders the color as its CSS value in JSON and YAML.
func (c RGB) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Rating is the classified form of an AQI value.
type Rating struct {
	Level Level `json:"level"`
	Color RGB   `json:"color"`
}

// DailyStat is one day of a pollutant forecast.
type DailyStat struct {
	Day     time.Time `json:"day"`
	Average float64   `json:"avg"`
	Min     float64   `json:"min"`
	Max     float64   `json:"max"`
}

// Sample is a validated air quality reading with its daily forecast.
type Sample struct {
	// AQI is the current air quality index, never negative.
	AQI int `json:"aqi"`

	// DominantPollutant is the pollutant driving the index (e.g. "pm25").
	DominantPollutant string `json:"dominant_pollutant"`

	// Station is the reporting station's name, if provided.
	Station string `json:"station,omitempty"`

	// ObservedAt is the station's measurement time, zero if unknown.
	ObservedAt time.Time `json:"observed_at"`

	// Forecast maps pollutant name to its daily series, sorted by day with no duplicates.
	Forecast map[string][]DailyStat `json:"forecast"`

	// FetchedAt is when the sample was retrieved.
	FetchedAt time.Time `json:"fetched_at"`

	// Provider identifies the data source.
	Provider string `json:"provider"`
}

// Pollutants returns the forecast pollutant names in sorted order.
func (s *Sample) Pollutants() []string {
	names := make([]string, 0, len(s.Forecast))
	for name := range s.Forecast {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ForecastPoint is one long-form forecast row: a pollutant's stats for a day.
type ForecastPoint struct {
	Pollutant string    `json:"pollutant"`
	Day       time.Time `json:"day"`
	Average   float64   `json:"avg"`
	Min       float64   `json:"min"`
	Max       float64   `json:"max"`
}
