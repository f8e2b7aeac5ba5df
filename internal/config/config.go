// Package config loads the run configuration from the environment, an optional .env file
// and an optional YAML thresholds file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/breatheroute/skyreport/internal/report"
)

// Credential backends.
const (
	CredentialsEnv      = "env"
	CredentialsPostgres = "postgres"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the configuration of one run.
type Config struct {
	Env      string
	LogLevel string

	// OutputDir receives the exported artifacts.
	OutputDir string

	// Altitude in meters sent with UV requests.
	Altitude float64

	Thresholds report.Thresholds

	// CredentialBackend selects where API tokens are read from: "env" or "postgres".
	CredentialBackend string

	// Upstream endpoints. Empty means the client default.
	IPLookupURL      string
	GeolocationURL   string
	AirQualityURL    string
	UVURL            string
	HTTPTimeout      time.Duration
	UVRequestsPerSec float64

	// Notification over Pub/Sub. Only used when Notify is set.
	Notify          bool
	AssumeYes       bool
	PubSubProjectID string
	PubSubTopic     string

	OTelEnabled  bool
	OTLPEndpoint string

	// DotEnvLoaded reports whether a .env file was found.
	DotEnvLoaded bool
}

// thresholdsFile is the YAML layout of THRESHOLDS_FILE.
type thresholdsFile struct {
	UV report.Thresholds `yaml:"uv"`
}

// Load reads .env (if present), the environment and THRESHOLDS_FILE, then validates.
func Load() (*Config, error) {
	loaded := godotenv.Load() == nil

	cfg := &Config{
		Env:               getEnvOrDefault("APP_ENV", "production"),
		LogLevel:          getEnvOrDefault("LOG_LEVEL", "info"),
		OutputDir:         getEnvOrDefault("SKYREPORT_OUT_DIR", "."),
		Thresholds:        report.DefaultThresholds(),
		CredentialBackend: getEnvOrDefault("CREDENTIAL_STORE", CredentialsEnv),
		IPLookupURL:       os.Getenv("IPLOOKUP_URL"),
		GeolocationURL:    os.Getenv("GEOLOCATION_BASE_URL"),
		AirQualityURL:     os.Getenv("WAQI_BASE_URL"),
		UVURL:             os.Getenv("OPENUV_BASE_URL"),
		PubSubProjectID:   os.Getenv("PUBSUB_PROJECT_ID"),
		PubSubTopic:       os.Getenv("NOTIFY_TOPIC"),
		Notify:            getEnvBool("NOTIFY_ENABLED"),
		OTelEnabled:       getEnvBool("OTEL_ENABLED"),
		OTLPEndpoint:      getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		DotEnvLoaded:      loaded,
	}

	var err error
	if cfg.Altitude, err = getEnvFloat("UV_ALTITUDE", 0); err != nil {
		return nil, err
	}
	if cfg.UVRequestsPerSec, err = getEnvFloat("OPENUV_RPS", 1); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = time.ParseDuration(getEnvOrDefault("HTTP_TIMEOUT", "10s")); err != nil {
		return nil, fmt.Errorf("%w: HTTP_TIMEOUT: %w", ErrInvalidConfig, err)
	}

	if path := os.Getenv("THRESHOLDS_FILE"); path != "" {
		if cfg.Thresholds, err = LoadThresholds(path, cfg.Thresholds); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadThresholds overlays the thresholds in the YAML file at path onto base.
// Keys missing from the file keep their base value.
func LoadThresholds(path string, base report.Thresholds) (report.Thresholds, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read thresholds file: %w", err)
	}

	file := thresholdsFile{UV: base}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return base, fmt.Errorf("parse thresholds file: %w", err)
	}
	return file.UV, nil
}

// Validate checks the configuration is usable. Call it again after applying flag overrides.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Thresholds.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.OutputDir == "" {
		errs = append(errs, errors.New("output directory is empty"))
	}
	switch c.CredentialBackend {
	case CredentialsEnv, CredentialsPostgres:
	default:
		errs = append(errs, fmt.Errorf("unknown credential store %q", c.CredentialBackend))
	}
	if c.Altitude < 0 {
		errs = append(errs, fmt.Errorf("negative altitude %v", c.Altitude))
	}
	if c.UVRequestsPerSec <= 0 {
		errs = append(errs, fmt.Errorf("OPENUV_RPS must be positive, got %v", c.UVRequestsPerSec))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("HTTP_TIMEOUT must be positive, got %v", c.HTTPTimeout))
	}
	if c.Notify && (c.PubSubProjectID == "" || c.PubSubTopic == "") {
		errs = append(errs, errors.New("notification needs PUBSUB_PROJECT_ID and NOTIFY_TOPIC"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// IsDevelopment reports whether the run is a local development run.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string) bool {
	v := os.Getenv(key)
	return v == "1" || strings.EqualFold(v, "true")
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err)
	}
	return f, nil
}
