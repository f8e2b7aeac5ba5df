package ifconfig_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/skyreport/internal/location/ifconfig"
	"github.com/breatheroute/skyreport/internal/provider"
)

func TestClient_LookupIP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/plain", r.Header.Get("Accept"))
		_, _ = w.Write([]byte("203.0.113.7\n"))
	}))
	defer server.Close()

	client := ifconfig.NewClient(ifconfig.ClientConfig{URL: server.URL, HTTPClient: http.DefaultClient})

	ip, err := client.LookupIP(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.7", ip)
}

func TestClient_LookupIP_IPv6(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("2001:db8::1"))
	}))
	defer server.Close()

	client := ifconfig.NewClient(ifconfig.ClientConfig{URL: server.URL, HTTPClient: http.DefaultClient})

	ip, err := client.LookupIP(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2001:db8::1", ip)
}

func TestClient_LookupIP_NotAnIP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>captive portal</html>"))
	}))
	defer server.Close()

	client := ifconfig.NewClient(ifconfig.ClientConfig{URL: server.URL, HTTPClient: http.DefaultClient})

	_, err := client.LookupIP(context.Background())
	assert.ErrorIs(t, err, provider.ErrMalformedResponse)
}

func TestClient_LookupIP_Status(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := ifconfig.NewClient(ifconfig.ClientConfig{URL: server.URL, HTTPClient: http.DefaultClient})

	_, err := client.LookupIP(context.Background())
	assert.ErrorIs(t, err, provider.ErrNetwork)
}

func TestClient_LookupIP_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	url := server.URL
	server.Close()

	client := ifconfig.NewClient(ifconfig.ClientConfig{URL: url, HTTPClient: http.DefaultClient})

	_, err := client.LookupIP(context.Background())
	assert.ErrorIs(t, err, provider.ErrNetwork)
}
