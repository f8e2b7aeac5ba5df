// Package freegeoip provides a client for the freegeoip geolocation-by-IP API.
package freegeoip

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/breatheroute/skyreport/internal/location"
	"github.com/breatheroute/skyreport/internal/provider"
	"github.com/breatheroute/skyreport/internal/provider/resilience"
)

const (
	// DefaultBaseURL is the freegeoip API base URL.
	DefaultBaseURL = "https://freegeoip.app"

	// ProviderName identifies this provider.
	ProviderName = "freegeoip"
)

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the freegeoip client.
type ClientConfig struct {
	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use.
	// If nil, a default resilient client is created.
	HTTPClient HTTPDoer

	// Timeout for the request when the default client is used (default: 10s).
	Timeout time.Duration
}

// Client is a freegeoip API client.
type Client struct {
	baseURL    string
	httpClient HTTPDoer
}

// NewClient creates a new freegeoip client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		rc := resilience.DefaultClientConfig(ProviderName)
		if cfg.Timeout > 0 {
			rc.Timeout = cfg.Timeout
		}
		httpClient = resilience.NewClient(rc)
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// geoResponse uses pointers so a missing key can be told apart from a zero value.
type geoResponse struct {
	IP         string   `json:"ip"`
	City       *string  `json:"city"`
	RegionName *string  `json:"region_name"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
	TimeZone   *string  `json:"time_zone"`
}

// Geolocate fetches and validates the geolocation record for ip.
func (c *Client) Geolocate(ctx context.Context, ip string) (*location.Geolocation, error) {
	endpoint := fmt.Sprintf("%s/json/%s", c.baseURL, url.PathEscape(ip))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, provider.NetworkError(ProviderName, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, provider.NetworkError(ProviderName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, provider.NetworkError(ProviderName, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var result geoResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, provider.Malformedf(ProviderName, "decode response: %w", err)
	}

	return toGeolocation(&result, ip)
}

// toGeolocation validates the wire record and converts it to the domain type.
func toGeolocation(r *geoResponse, requestedIP string) (*location.Geolocation, error) {
	switch {
	case r.City == nil:
		return nil, missingField("city")
	case r.RegionName == nil:
		return nil, missingField("region_name")
	case r.Latitude == nil:
		return nil, missingField("latitude")
	case r.Longitude == nil:
		return nil, missingField("longitude")
	case r.TimeZone == nil || *r.TimeZone == "":
		return nil, missingField("time_zone")
	}

	if *r.Latitude < -90 || *r.Latitude > 90 || *r.Longitude < -180 || *r.Longitude > 180 {
		return nil, provider.Malformedf(ProviderName, "coordinates out of range: %f,%f", *r.Latitude, *r.Longitude)
	}

	tz, err := time.LoadLocation(*r.TimeZone)
	if err != nil {
		return nil, provider.Malformedf(ProviderName, "unknown time zone %q: %w", *r.TimeZone, err)
	}

	ip := r.IP
	if ip == "" {
		ip = requestedIP
	}

	return &location.Geolocation{
		IP:           ip,
		City:         *r.City,
		Region:       *r.RegionName,
		Latitude:     *r.Latitude,
		Longitude:    *r.Longitude,
		TimezoneName: *r.TimeZone,
		Timezone:     tz,
	}, nil
}

func missingField(name string) error {
	return provider.Malformedf(ProviderName, "missing field %q", name)
}
