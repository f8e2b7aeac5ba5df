// Package openuv provides a client for the OpenUV realtime and forecast API.
package openuv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/breatheroute/skyreport/internal/provider"
	"github.com/breatheroute/skyreport/internal/provider/resilience"
	"github.com/breatheroute/skyreport/internal/uv"
)

const (
	// DefaultBaseURL is the base URL for the OpenUV API.
	DefaultBaseURL = "https://api.openuv.io/api/v1"

	// ProviderName identifies this provider.
	ProviderName = "openuv"

	// tokenHeader carries the API token.
	tokenHeader = "x-access-token"

	// Responses are small JSON documents.
	maxBodyBytes = 1 << 20
)

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the OpenUV client.
type ClientConfig struct {
	// Token is the OpenUV API token. May be rotated later with SetToken.
	Token string

	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use.
	// If nil, a rate-limited resilient client without retries is created.
	HTTPClient HTTPDoer

	// Timeout for individual API requests (default: 10s).
	Timeout time.Duration

	// RequestsPerSecond caps the default client's request rate (default: 1).
	RequestsPerSecond float64
}

// Client is an OpenUV API client.
type Client struct {
	baseURL    string
	httpClient HTTPDoer

	mu    sync.RWMutex
	token string
}

// NewClient creates a new OpenUV client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		rps := cfg.RequestsPerSecond
		if rps == 0 {
			rps = 1
		}
		// Every call counts against the daily quota, so never retry.
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:              ProviderName,
			Timeout:           timeout,
			NoRetry:           true,
			RequestsPerSecond: rps,
			Burst:             2,
		})
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		token:      cfg.Token,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// SetToken replaces the token used for requests built after this call.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// API response types (from OpenUV /uv and /forecast).

// envelope is shared by both endpoints. A populated Error means the quota is exhausted.
type envelope struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

type realtimeResult struct {
	UV *float64 `json:"uv"`
}

type forecastEntry struct {
	UV          *float64 `json:"uv"`
	UVTime      string   `json:"uv_time"`
	SunPosition struct {
		Azimuth   float64  `json:"azimuth"`
		Elevation *float64 `json:"elevation"`
		Altitude  *float64 `json:"altitude"`
	} `json:"sun_position"`
}

// Realtime fetches the current UV index at coords.
func (c *Client) Realtime(ctx context.Context, coords uv.Coordinates) (float64, error) {
	raw, err := c.get(ctx, "/uv", coords)
	if err != nil {
		return 0, err
	}

	var result realtimeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return 0, provider.Malformedf(ProviderName, "decode realtime result: %w", err)
	}
	if result.UV == nil {
		return 0, provider.Malformedf(ProviderName, "missing result.uv")
	}
	if *result.UV < 0 {
		return 0, provider.Malformedf(ProviderName, "negative uv index %v", *result.UV)
	}
	return *result.UV, nil
}

// Forecast fetches today's forecast buckets at coords. Capture times are UTC.
func (c *Client) Forecast(ctx context.Context, coords uv.Coordinates) ([]uv.Sample, error) {
	raw, err := c.get(ctx, "/forecast", coords)
	if err != nil {
		return nil, err
	}

	var entries []forecastEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, provider.Malformedf(ProviderName, "decode forecast result: %w", err)
	}

	samples := make([]uv.Sample, 0, len(entries))
	for i, e := range entries {
		if e.UV == nil {
			return nil, provider.Malformedf(ProviderName, "result[%d]: missing uv", i)
		}
		if *e.UV < 0 {
			return nil, provider.Malformedf(ProviderName, "result[%d]: negative uv index %v", i, *e.UV)
		}
		at, err := time.Parse(time.RFC3339, e.UVTime)
		if err != nil {
			return nil, provider.Malformedf(ProviderName, "result[%d]: bad uv_time %q", i, e.UVTime)
		}

		elevation := 0.0
		switch {
		case e.SunPosition.Elevation != nil:
			elevation = *e.SunPosition.Elevation
		case e.SunPosition.Altitude != nil:
			elevation = *e.SunPosition.Altitude
		}

		samples = append(samples, uv.Sample{
			CapturedAt:   at.UTC(),
			Index:        *e.UV,
			SunAzimuth:   e.SunPosition.Azimuth,
			SunElevation: elevation,
		})
	}
	return samples, nil
}

// get performs a GET against path and returns the envelope's result.
func (c *Client) get(ctx context.Context, path string, coords uv.Coordinates) (json.RawMessage, error) {
	token := c.currentToken()
	if token == "" {
		return nil, provider.AuthError(ProviderName, errors.New("no api token configured"))
	}

	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(coords.Latitude, 'f', -1, 64))
	params.Set("lng", strconv.FormatFloat(coords.Longitude, 'f', -1, 64))
	params.Set("alt", strconv.FormatFloat(coords.Altitude, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, provider.NetworkError(ProviderName, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set(tokenHeader, token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, provider.NetworkError(ProviderName, fmt.Errorf("fetch %s: %w", path, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, provider.NetworkError(ProviderName, fmt.Errorf("read %s body: %w", path, err))
	}

	// The error field wins over any status: OpenUV reports quota exhaustion in the body.
	var env envelope
	decodeErr := json.Unmarshal(body, &env)
	if decodeErr == nil && env.Error != "" {
		return nil, provider.QuotaError(ProviderName, errors.New(env.Error))
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, provider.AuthError(ProviderName, fmt.Errorf("status %d", resp.StatusCode))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, provider.NetworkError(ProviderName, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path))
	}
	if decodeErr != nil {
		return nil, provider.Malformedf(ProviderName, "decode %s response: %w", path, decodeErr)
	}
	if len(env.Result) == 0 || string(env.Result) == "null" {
		return nil, provider.Malformedf(ProviderName, "missing result")
	}
	return env.Result, nil
}
