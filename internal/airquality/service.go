package airquality

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Provider defines the interface for air quality feed providers.
type Provider interface {
	// FetchFeed fetches the current reading and forecast for a named location.
	FetchFeed(ctx context.Context, locationName string) (*Sample, error)

	// Name returns the provider name for logging.
	Name() string
}

// ServiceConfig holds configuration for the air quality service.
type ServiceConfig struct {
	// Provider is the air quality data provider.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service is the air quality pipeline for a single run.
type Service struct {
	provider Provider
	logger   zerolog.Logger
}

// NewService creates a new air quality service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		provider: cfg.Provider,
		logger:   cfg.Logger,
	}
}

// ProviderName names the upstream behind the service.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

// Fetch retrieves the current sample for locationName. Errors from the provider are
// returned as-is so their kind (quota, auth, network, malformed) is preserved.
func (s *Service) Fetch(ctx context.Context, locationName string) (*Sample, error) {
	s.logger.Debug().
		Str("provider", s.provider.Name()).
		Str("location", locationName).
		Msg("fetching air quality feed")

	sample, err := s.provider.FetchFeed(ctx, locationName)
	if err != nil {
		s.logger.Error().Err(err).Str("location", locationName).Msg("failed to fetch air quality feed")
		return nil, fmt.Errorf("fetch air quality for %q: %w", locationName, err)
	}

	s.logger.Info().
		Str("location", locationName).
		Int("aqi", sample.AQI).
		Str("dominant_pollutant", sample.DominantPollutant).
		Int("pollutants", len(sample.Forecast)).
		Msg("air quality fetched")

	return sample, nil
}

// Rating classifies the sample's AQI.
func (s *Service) Rating(sample *Sample) (Rating, error) {
	return Classify(sample.AQI)
}

// ForecastSeries returns the sample's forecast as long-form rows for faceted charts.
func (s *Service) ForecastSeries(sample *Sample) []ForecastPoint {
	return Flatten(sample.Forecast)
}
