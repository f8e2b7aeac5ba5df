package credentials

import (
	"context"
	"sync"
)

// MemoryStore keeps secrets in process memory. Intended for tests and one-off runs.
type MemoryStore struct {
	mu      sync.RWMutex
	secrets map[Key]string
}

// NewMemoryStore creates a store seeded with the given secrets.
func NewMemoryStore(seed map[Key]string) *MemoryStore {
	secrets := make(map[Key]string, len(seed))
	for k, v := range seed {
		secrets[k] = v
	}
	return &MemoryStore{secrets: secrets}
}

// Get returns the secret for key.
func (s *MemoryStore) Get(_ context.Context, key Key) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	secret, ok := s.secrets[key]
	if !ok {
		return "", ErrNotFound
	}
	return secret, nil
}

// Set stores the secret for key.
func (s *MemoryStore) Set(_ context.Context, key Key, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[key] = secret
	return nil
}
