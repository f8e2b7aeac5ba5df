package credentials

import (
	"context"
	"fmt"
	"os"
)

// EnvStore maps keys onto environment variables.
// Set updates the variable for the rest of the process, nothing is written to disk.
type EnvStore struct {
	vars map[Key]string
}

// DefaultEnvVars maps the well-known keys to their environment variables.
func DefaultEnvVars() map[Key]string {
	return map[Key]string{
		AirQualityKey: "WAQI_TOKEN",
		UVIndexKey:    "OPENUV_TOKEN",
	}
}

// NewEnvStore creates an env-backed store. A nil map uses DefaultEnvVars.
func NewEnvStore(vars map[Key]string) *EnvStore {
	if vars == nil {
		vars = DefaultEnvVars()
	}
	return &EnvStore{vars: vars}
}

// Get returns the value of the variable mapped to key.
func (s *EnvStore) Get(_ context.Context, key Key) (string, error) {
	name, ok := s.vars[key]
	if !ok {
		return "", ErrNotFound
	}
	value, ok := os.LookupEnv(name)
	if !ok || value == "" {
		return "", ErrNotFound
	}
	return value, nil
}

// Set updates the variable mapped to key. Unmapped keys are rejected.
func (s *EnvStore) Set(_ context.Context, key Key, secret string) error {
	name, ok := s.vars[key]
	if !ok {
		return fmt.Errorf("%w: no variable mapped for %s", ErrReadOnly, key)
	}
	return os.Setenv(name, secret)
}
