// Package ifconfig provides a client for plain-text public IP lookup services.
package ifconfig

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/breatheroute/skyreport/internal/provider"
	"github.com/breatheroute/skyreport/internal/provider/resilience"
)

const (
	// DefaultURL returns the caller's address as plain text.
	DefaultURL = "https://ifconfig.me/ip"

	// ProviderName identifies this provider.
	ProviderName = "ifconfig"

	maxBodyBytes = 256
)

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the IP lookup client.
type ClientConfig struct {
	// URL is the lookup endpoint (defaults to DefaultURL).
	URL string

	// HTTPClient is the HTTP client to use.
	// If nil, a default resilient client is created.
	HTTPClient HTTPDoer

	// Timeout for the request when the default client is used (default: 5s).
	Timeout time.Duration
}

// Client looks up the caller's public IP.
type Client struct {
	url        string
	httpClient HTTPDoer
}

// NewClient creates a new IP lookup client.
func NewClient(cfg ClientConfig) *Client {
	url := cfg.URL
	if url == "" {
		url = DefaultURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 5 * time.Second
		}
		rc := resilience.DefaultClientConfig(ProviderName)
		rc.Timeout = timeout
		httpClient = resilience.NewClient(rc)
	}

	return &Client{
		url:        url,
		httpClient: httpClient,
	}
}

// LookupIP returns the public IP address as reported by the service.
func (c *Client) LookupIP(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, http.NoBody)
	if err != nil {
		return "", provider.NetworkError(ProviderName, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", provider.NetworkError(ProviderName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", provider.NetworkError(ProviderName, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", provider.NetworkError(ProviderName, fmt.Errorf("read body: %w", err))
	}

	ip := strings.TrimSpace(string(body))
	if net.ParseIP(ip) == nil {
		return "", provider.Malformedf(ProviderName, "response is not an ip address: %q", ip)
	}

	return ip, nil
}
