// Package waqi provides a client for the World Air Quality Index (WAQI) feed API.
package waqi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/breatheroute/skyreport/internal/airquality"
	"github.com/breatheroute/skyreport/internal/provider"
	"github.com/breatheroute/skyreport/internal/provider/resilience"
)

const (
	// DefaultBaseURL is the base URL for the WAQI API.
	DefaultBaseURL = "https://api.waqi.info"

	// ProviderName identifies this provider.
	ProviderName = "waqi"

	dayLayout = "2006-01-02"

	// maxAQI bounds data.aqi well above any real reading so int conversion cannot overflow.
	maxAQI = math.MaxInt32
)

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the WAQI client.
type ClientConfig struct {
	// Token is the WAQI API token.
	Token string

	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use.
	// If nil, a default resilient client will be created.
	HTTPClient HTTPDoer

	// Timeout for individual API requests (default: 10s).
	Timeout time.Duration

	// Now overrides the clock (tests).
	Now func() time.Time
}

// Client is a WAQI API client.
type Client struct {
	token      string
	baseURL    string
	httpClient HTTPDoer
	now        func() time.Time
}

// NewClient creates a new WAQI client.
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
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:            ProviderName,
			Timeout:         timeout,
			MaxRetries:      2,
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     2 * time.Second,
		})
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Client{
		token:      cfg.Token,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		now:        now,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// API response types (from the WAQI feed API).

// feedResponse carries data as raw JSON: an object on success, a message string on error.
type feedResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

type feedData struct {
	AQI         json.RawMessage `json:"aqi"`
	DominentPol string          `json:"dominentpol"`
	City        struct {
		Name string `json:"name"`
	} `json:"city"`
	Time struct {
		ISO string `json:"iso"`
	} `json:"time"`
	Forecast *struct {
		Daily map[string][]dailyData `json:"daily"`
	} `json:"forecast"`
}

type dailyData struct {
	Day string   `json:"day"`
	Avg *float64 `json:"avg"`
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
}

// FetchFeed retrieves the feed for a named location (usually a city).
func (c *Client) FetchFeed(ctx context.Context, locationName string) (*airquality.Sample, error) {
	if c.token == "" {
		return nil, provider.AuthError(ProviderName, errors.New("no api token configured"))
	}

	endpoint := fmt.Sprintf("%s/feed/%s/?token=%s", c.baseURL, url.PathEscape(locationName), url.QueryEscape(c.token))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, provider.NetworkError(ProviderName, fmt.Errorf("create request: %w", err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, provider.NetworkError(ProviderName, fmt.Errorf("fetch feed: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, provider.AuthError(ProviderName, fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, provider.QuotaError(ProviderName, fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, provider.NetworkError(ProviderName, fmt.Errorf("unexpected status %d from feed endpoint", resp.StatusCode))
	}

	var result feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, provider.Malformedf(ProviderName, "decode feed response: %w", err)
	}

	if result.Status != "ok" {
		return nil, statusError(result)
	}

	var data feedData
	if len(result.Data) == 0 || json.Unmarshal(result.Data, &data) != nil {
		return nil, provider.Malformedf(ProviderName, "missing data object")
	}

	return c.toSample(&data)
}

// statusError maps a status=error envelope to the error taxonomy.
func statusError(result feedResponse) error {
	var message string
	_ = json.Unmarshal(result.Data, &message)
	cause := fmt.Errorf("status %q: %s", result.Status, message)

	switch strings.ToLower(strings.TrimSpace(message)) {
	case "invalid key":
		return provider.AuthError(ProviderName, cause)
	case "over quota":
		return provider.QuotaError(ProviderName, cause)
	case "unknown station":
		return provider.MalformedError(ProviderName, fmt.Errorf("%w: %w", airquality.ErrStationNotFound, cause))
	default:
		return provider.MalformedError(ProviderName, cause)
	}
}

// toSample validates the feed data and converts it to the domain Sample.
func (c *Client) toSample(d *feedData) (*airquality.Sample, error) {
	aqi, err := parseAQI(d.AQI)
	if err != nil {
		return nil, err
	}

	if d.Forecast == nil || d.Forecast.Daily == nil {
		return nil, provider.Malformedf(ProviderName, "missing data.forecast.daily")
	}

	forecast := make(map[string][]airquality.DailyStat, len(d.Forecast.Daily))
	for pollutant, days := range d.Forecast.Daily {
		series, err := toSeries(pollutant, days)
		if err != nil {
			return nil, err
		}
		forecast[pollutant] = series
	}

	// The station time is informational; an unparsable one is left zero (unknown).
	var observedAt time.Time
	if t, err := time.Parse(time.RFC3339, d.Time.ISO); err == nil {
		observedAt = t
	}

	return &airquality.Sample{
		AQI:               aqi,
		DominantPollutant: d.DominentPol,
		Station:           d.City.Name,
		ObservedAt:        observedAt,
		Forecast:          forecast,
		FetchedAt:         c.now(),
		Provider:          ProviderName,
	}, nil
}

// parseAQI accepts a non-negative integral JSON number. WAQI sends "-" when a station has no reading.
func parseAQI(raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, provider.Malformedf(ProviderName, "missing data.aqi")
	}

	var value float64
	if err := json.Unmarshal(raw, &value); err != nil {
		return 0, provider.Malformedf(ProviderName, "data.aqi is not a number: %s", raw)
	}
	if value < 0 || value != math.Trunc(value) {
		return 0, provider.Malformedf(ProviderName, "data.aqi is not a non-negative integer: %s", raw)
	}
	if value > maxAQI {
		return 0, provider.Malformedf(ProviderName, "data.aqi out of range: %s", raw)
	}
	return int(value), nil
}

func toSeries(pollutant string, days []dailyData) ([]airquality.DailyStat, error) {
	series := make([]airquality.DailyStat, 0, len(days))
	for _, d := range days {
		day, err := time.Parse(dayLayout, d.Day)
		if err != nil {
			return nil, provider.Malformedf(ProviderName, "%s: bad day %q", pollutant, d.Day)
		}
		if d.Avg == nil || d.Min == nil || d.Max == nil {
			return nil, provider.Malformedf(ProviderName, "%s %s: missing avg/min/max", pollutant, d.Day)
		}
		series = append(series, airquality.DailyStat{
			Day:     day,
			Average: *d.Avg,
			Min:     *d.Min,
			Max:     *d.Max,
		})
	}

	normalized, err := airquality.NormalizeSeries(series)
	if err != nil {
		return nil, provider.MalformedError(ProviderName, fmt.Errorf("%s: %w", pollutant, err))
	}
	return normalized, nil
}
