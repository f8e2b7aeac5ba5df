package uv

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/breatheroute/skyreport/internal/credentials"
)

// ErrEmptyToken is returned when rotating to a blank token.
var ErrEmptyToken = errors.New("uv token must not be empty")

// Provider defines the interface for UV data providers.
type Provider interface {
	// Realtime returns the current UV index at coords.
	Realtime(ctx context.Context, coords Coordinates) (float64, error)

	// Forecast returns today's forecast buckets at coords with UTC capture times.
	Forecast(ctx context.Context, coords Coordinates) ([]Sample, error)

	// SetToken replaces the credential used by subsequent requests.
	SetToken(token string)

	// Name returns the provider name for logging.
	Name() string
}

// ServiceConfig holds configuration for the UV service.
type ServiceConfig struct {
	// Provider is the UV data provider.
	Provider Provider

	// Credentials persists rotated tokens. Optional.
	Credentials credentials.Store

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service is the UV pipeline for a single run.
type Service struct {
	provider    Provider
	credentials credentials.Store
	logger      zerolog.Logger
}

// NewService creates a new UV service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		provider:    cfg.Provider,
		credentials: cfg.Credentials,
		logger:      cfg.Logger,
	}
}

// ProviderName names the upstream behind the service.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

// Realtime returns the current UV index.
func (s *Service) Realtime(ctx context.Context, coords Coordinates) (float64, error) {
	index, err := s.provider.Realtime(ctx, coords)
	if err != nil {
		s.logger.Error().Err(err).Str("coords", coords.String()).Msg("failed to fetch realtime uv")
		return 0, fmt.Errorf("fetch realtime uv at %s: %w", coords, err)
	}

	s.logger.Info().Str("coords", coords.String()).Float64("uv", index).Msg("realtime uv fetched")
	return index, nil
}

// Forecast returns today's forecast with capture times converted to zone, ascending.
func (s *Service) Forecast(ctx context.Context, coords Coordinates, zone *time.Location) ([]Sample, error) {
	if zone == nil {
		zone = time.UTC
	}

	samples, err := s.provider.Forecast(ctx, coords)
	if err != nil {
		s.logger.Error().Err(err).Str("coords", coords.String()).Msg("failed to fetch uv forecast")
		return nil, fmt.Errorf("fetch uv forecast at %s: %w", coords, err)
	}

	return ToLocal(samples, zone), nil
}

// ToLocal sorts samples by instant and converts their capture times to zone.
// The conversion keeps the instant, so the order holds in local time too.
func ToLocal(samples []Sample, zone *time.Location) []Sample {
	out := make([]Sample, len(samples))
	copy(out, samples)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CapturedAt.Before(out[j].CapturedAt)
	})
	for i := range out {
		out[i].CapturedAt = out[i].CapturedAt.In(zone)
	}
	return out
}

// SetToken rotates the UV credential. The new token is persisted first, then used for
// subsequent requests; requests already in flight keep the token they were built with.
func (s *Service) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}

	if s.credentials != nil {
		if err := s.credentials.Set(ctx, credentials.UVIndexKey, token); err != nil {
			return fmt.Errorf("persist uv token: %w", err)
		}
	}

	s.provider.SetToken(token)
	s.logger.Info().Str("provider", s.provider.Name()).Msg("uv token rotated")
	return nil
}
