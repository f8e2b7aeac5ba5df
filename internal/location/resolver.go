package location

import (
	"context"
	"fmt"
	"time"
	_ "time/tzdata" // zone lookups must not depend on the host's zoneinfo

	"github.com/rs/zerolog"

	"github.com/breatheroute/skyreport/internal/provider"
)

// IPLookup returns the caller's public IP address.
type IPLookup interface {
	LookupIP(ctx context.Context) (string, error)
}

// Geolocator maps an IP address to a validated geolocation record.
// A record without a Timezone is rejected by the Resolver as malformed.
type Geolocator interface {
	Geolocate(ctx context.Context, ip string) (*Geolocation, error)
}

// ResolverConfig holds configuration for the resolver.
type ResolverConfig struct {
	IPLookup   IPLookup
	Geolocator Geolocator
	Logger     zerolog.Logger

	// Now overrides the clock (tests).
	Now func() time.Time
}

// Resolver turns the caller's public IP into a Location.
// It performs no retries of its own.
type Resolver struct {
	ipLookup   IPLookup
	geolocator Geolocator
	logger     zerolog.Logger
	now        func() time.Time
}

// NewResolver creates a new location resolver.
func NewResolver(cfg ResolverConfig) *Resolver {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Resolver{
		ipLookup:   cfg.IPLookup,
		geolocator: cfg.Geolocator,
		logger:     cfg.Logger,
		now:        now,
	}
}

// Resolve looks up the public IP and geolocates it.
func (r *Resolver) Resolve(ctx context.Context) (*Location, error) {
	ip, err := r.ipLookup.LookupIP(ctx)
	if err != nil {
		return nil, fmt.Errorf("lookup public ip: %w", err)
	}

	geo, err := r.geolocator.Geolocate(ctx, ip)
	if err != nil {
		return nil, fmt.Errorf("geolocate %s: %w", ip, err)
	}
	if geo == nil || geo.Timezone == nil {
		return nil, provider.Malformedf("geolocation", "no timezone for %s", ip)
	}

	utc := r.now().UTC()
	loc := &Location{
		IP:           geo.IP,
		City:         geo.City,
		Region:       geo.Region,
		Latitude:     geo.Latitude,
		Longitude:    geo.Longitude,
		TimezoneName: geo.TimezoneName,
		Timezone:     geo.Timezone,
		UTCTime:      utc,
		LocalTime:    utc.In(geo.Timezone),
	}
	if loc.IP == "" {
		loc.IP = ip
	}

	r.logger.Info().
		Str("ip", loc.IP).
		Str("city", loc.City).
		Str("region", loc.Region).
		Float64("lat", loc.Latitude).
		Float64("lon", loc.Longitude).
		Str("timezone", loc.TimezoneName).
		Msg("location resolved")

	return loc, nil
}
