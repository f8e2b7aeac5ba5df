// Package credentials stores upstream API tokens behind a small get/set capability.
package credentials

import (
	"context"
	"errors"
)

// Credential errors.
var (
	ErrNotFound = errors.New("credential not found")
	ErrReadOnly = errors.New("credential store is read-only")
)

// Key names a secret by service and account, the way OS keyrings do.
type Key struct {
	Service string
	Account string
}

func (k Key) String() string {
	return k.Service + "/" + k.Account
}

// Well-known keys for the upstream data services.
var (
	AirQualityKey = Key{Service: "Air Quality API", Account: "https://api.waqi.info/feed/"}
	UVIndexKey    = Key{Service: "UV Index API", Account: "https://api.openuv.io/api/v1/"}
)

// Store is the credential capability handed to the pipelines.
type Store interface {
	// Get returns the secret for key, or ErrNotFound.
	Get(ctx context.Context, key Key) (string, error)

	// Set stores or replaces the secret for key.
	Set(ctx context.Context, key Key, secret string) error
}

// Lookup returns the secret for key, treating ErrNotFound as an empty secret.
// Pipelines report an empty secret as an authentication failure when they use it.
func Lookup(ctx context.Context, store Store, key Key) (string, error) {
	secret, err := store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return secret, err
}
