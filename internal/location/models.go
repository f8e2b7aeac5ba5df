// Package location resolves the caller's public IP into a geographic location.
package location

import (
	"time"
)

// Location is where the current run takes place. Created once per run and not mutated.
type Location struct {
	IP           string  `json:"ip"`
	City         string  `json:"city"`
	Region       string  `json:"region"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	TimezoneName string  `json:"timezone"`

	// Timezone is the loaded IANA zone for TimezoneName.
	Timezone *time.Location `json:"-"`

	// LocalTime and UTCTime are the same instant, captured at resolution.
	LocalTime time.Time `json:"local_time"`
	UTCTime   time.Time `json:"utc_time"`
}

// Name is the place name used for city-keyed lookups.
func (l *Location) Name() string {
	return l.City
}

// Geolocation is a validated geolocation-by-IP record.
type Geolocation struct {
	IP           string
	City         string
	Region       string
	Latitude     float64
	Longitude    float64
	TimezoneName string
	Timezone     *time.Location
}
