// Package provider holds the error taxonomy shared by every upstream data client.
package provider

import (
	"errors"
	"fmt"
)

// Upstream failure kinds.
var (
	// ErrNetwork covers transport failures, timeouts, DNS errors and unexpected HTTP statuses.
	ErrNetwork = errors.New("network error")

	// ErrMalformedResponse means the payload did not have the expected shape.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrAuthentication means the credential was missing, invalid or expired.
	ErrAuthentication = errors.New("authentication failed")

	// ErrQuotaExceeded means the upstream reported rate-limit exhaustion.
	// Unlike ErrNetwork it is actionable: rotate or renew the credential.
	ErrQuotaExceeded = errors.New("quota exceeded")
)

// Error is an upstream failure tagged with the provider that produced it.
type Error struct {
	// Provider names the upstream (e.g. "waqi", "openuv").
	Provider string

	// Kind is one of the sentinel errors above.
	Kind error

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Provider, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Provider, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NetworkError wraps err as an ErrNetwork failure of the named provider.
func NetworkError(name string, err error) error {
	return &Error{Provider: name, Kind: ErrNetwork, Err: err}
}

// MalformedError wraps err as an ErrMalformedResponse failure of the named provider.
func MalformedError(name string, err error) error {
	return &Error{Provider: name, Kind: ErrMalformedResponse, Err: err}
}

// AuthError wraps err as an ErrAuthentication failure of the named provider.
func AuthError(name string, err error) error {
	return &Error{Provider: name, Kind: ErrAuthentication, Err: err}
}

// QuotaError wraps err as an ErrQuotaExceeded failure of the named provider.
func QuotaError(name string, err error) error {
	return &Error{Provider: name, Kind: ErrQuotaExceeded, Err: err}
}

// Malformedf formats a cause and wraps it as ErrMalformedResponse.
func Malformedf(name, format string, args ...any) error {
	return MalformedError(name, fmt.Errorf(format, args...))
}

// ProviderOf returns the provider name carried by err, or "" when none is attached.
func ProviderOf(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Provider
	}
	return ""
}

// KindOf returns the sentinel kind carried by err, or nil.
func KindOf(err error) error {
	for _, kind := range []error{ErrQuotaExceeded, ErrAuthentication, ErrMalformedResponse, ErrNetwork} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
