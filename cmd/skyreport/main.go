// Package main provides the skyreport command: a one-shot UV and air quality report
// for the caller's current location.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/breatheroute/skyreport/internal/airquality"
	"github.com/breatheroute/skyreport/internal/airquality/waqi"
	"github.com/breatheroute/skyreport/internal/config"
	"github.com/breatheroute/skyreport/internal/credentials"
	"github.com/breatheroute/skyreport/internal/database"
	"github.com/breatheroute/skyreport/internal/export"
	"github.com/breatheroute/skyreport/internal/location"
	"github.com/breatheroute/skyreport/internal/location/freegeoip"
	"github.com/breatheroute/skyreport/internal/location/ifconfig"
	"github.com/breatheroute/skyreport/internal/notify"
	"github.com/breatheroute/skyreport/internal/provider"
	"github.com/breatheroute/skyreport/internal/provider/resilience"
	"github.com/breatheroute/skyreport/internal/report"
	"github.com/breatheroute/skyreport/internal/telemetry"
	"github.com/breatheroute/skyreport/internal/uv"
	"github.com/breatheroute/skyreport/internal/uv/openuv"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		outDir      = flag.String("out", "", "directory for exported artifacts (overrides SKYREPORT_OUT_DIR)")
		assumeYes   = flag.Bool("yes", false, "send the report without asking")
		notifyFlag  = flag.Bool("notify", false, "offer to send the report to a device over Pub/Sub")
		rotateToken = flag.String("rotate-uv-token", "", "store a new OpenUV token before running")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "skyreport: %v\n", err)
		return 1
	}
	if *outDir != "" {
		cfg.OutputDir = *outDir
	}
	if *notifyFlag {
		cfg.Notify = true
	}
	cfg.AssumeYes = *assumeYes
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "skyreport: %v\n", err)
		return 1
	}

	log := newLogger(cfg)
	log.Debug().Str("build_time", BuildTime).Bool("dotenv", cfg.DotEnvLoaded).Msg("starting skyreport")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    telemetry.DefaultServiceName,
		ServiceVersion: Version,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.OTelEnabled,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize telemetry")
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	store, closeStore, err := openCredentialStore(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to open credential store")
		return 1
	}
	defer closeStore()

	waqiToken, err := credentials.Lookup(ctx, store, credentials.AirQualityKey)
	if err != nil {
		log.Error().Err(err).Msg("failed to read air quality token")
		return 1
	}
	uvToken, err := credentials.Lookup(ctx, store, credentials.UVIndexKey)
	if err != nil {
		log.Error().Err(err).Msg("failed to read uv token")
		return 1
	}

	registry := resilience.NewRegistry()
	httpClient := func(name string, cc resilience.ClientConfig) *resilience.Client {
		cb := resilience.DefaultCircuitBreakerConfig(name)
		cb.OnStateChange = resilience.LogStateChanges(log)
		cc.Name = name
		cc.Timeout = cfg.HTTPTimeout
		cc.CircuitBreaker = &cb
		client := resilience.NewClient(cc)
		registry.Register(client)
		return client
	}

	resolver := location.NewResolver(location.ResolverConfig{
		IPLookup: ifconfig.NewClient(ifconfig.ClientConfig{
			URL:        cfg.IPLookupURL,
			HTTPClient: httpClient(ifconfig.ProviderName, resilience.ClientConfig{MaxRetries: 2}),
		}),
		Geolocator: freegeoip.NewClient(freegeoip.ClientConfig{
			BaseURL:    cfg.GeolocationURL,
			HTTPClient: httpClient(freegeoip.ProviderName, resilience.ClientConfig{MaxRetries: 2}),
		}),
		Logger: log,
	})

	aqService := airquality.NewService(airquality.ServiceConfig{
		Provider: waqi.NewClient(waqi.ClientConfig{
			Token:      waqiToken,
			BaseURL:    cfg.AirQualityURL,
			HTTPClient: httpClient(waqi.ProviderName, resilience.ClientConfig{MaxRetries: 2}),
		}),
		Logger: log,
	})

	uvService := uv.NewService(uv.ServiceConfig{
		Provider: openuv.NewClient(openuv.ClientConfig{
			Token:   uvToken,
			BaseURL: cfg.UVURL,
			HTTPClient: httpClient(openuv.ProviderName, resilience.ClientConfig{
				NoRetry:           true,
				RequestsPerSecond: cfg.UVRequestsPerSec,
				Burst:             2,
			}),
		}),
		Credentials: store,
		Logger:      log,
	})

	if *rotateToken != "" {
		if err := uvService.SetToken(ctx, *rotateToken); err != nil {
			log.Error().Err(err).Msg("failed to rotate uv token")
			return 1
		}
	}

	runnerCfg := report.RunnerConfig{
		Resolver:    resolver,
		AirQuality:  aqService,
		UV:          uvService,
		Thresholds:  cfg.Thresholds,
		Altitude:    cfg.Altitude,
		Exporter:    export.NewChartExporter(export.Config{Dir: cfg.OutputDir, Logger: log}),
		Registry:    registry,
		Tracer:      tp.Tracer,
		Instruments: tp.Instruments,
		Logger:      log,
	}

	if cfg.Notify {
		notifier, err := notify.NewPubSubNotifier(ctx, notify.PubSubConfig{
			ProjectID: cfg.PubSubProjectID,
			Topic:     cfg.PubSubTopic,
			Logger:    log,
		})
		if err != nil {
			log.Error().Err(err).Msg("failed to initialize notifier")
			return 1
		}
		defer notifier.Close()

		runnerCfg.Notifier = notifier
		runnerCfg.Confirmer = notify.NewPromptConfirmer(os.Stdin, os.Stderr)
		if cfg.AssumeYes {
			runnerCfg.Confirmer = notify.StaticConfirmer(true)
		}
	}

	result, err := report.NewRunner(runnerCfg).Run(ctx)
	if err != nil {
		logProviderHealth(log, registry)
		fmt.Fprintf(os.Stderr, "skyreport: %s\n", describe(err))
		return 1
	}

	rpt := result.Report
	fmt.Printf("%s, %s\n", rpt.City(), rpt.GeneratedAt.Format("Mon 02 Jan 2006 15:04 MST"))
	fmt.Println(rpt.Annotation)
	if rpt.CurrentUV != nil {
		fmt.Printf("UV now: %.1f\n", *rpt.CurrentUV)
	}
	for _, w := range rpt.SafeTimes {
		fmt.Printf("Safe (UV < %.1f): %s\n", rpt.Thresholds.SafeMax, w)
	}
	for _, path := range result.Artifacts {
		fmt.Println("Wrote", path)
	}
	return 0
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	logger := zerolog.New(os.Stderr)
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	return logger.Level(level).
		With().
		Timestamp().
		Str("service", telemetry.DefaultServiceName).
		Str("version", Version).
		Logger()
}

// openCredentialStore returns the configured store and a cleanup func.
func openCredentialStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (credentials.Store, func(), error) {
	if cfg.CredentialBackend != config.CredentialsPostgres {
		return credentials.NewEnvStore(nil), func() {}, nil
	}

	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		return nil, nil, err
	}
	log.Debug().
		Str("host", dbConfig.Host).
		Int("port", dbConfig.Port).
		Str("database", dbConfig.Database).
		Msg("database connected")

	store := credentials.NewPostgresStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return store, pool.Close, nil
}

// describe turns a run error into a one-line message naming the failing collaborator.
func describe(err error) string {
	msg := err.Error()
	switch {
	case errors.Is(err, provider.ErrQuotaExceeded) && provider.ProviderOf(err) == openuv.ProviderName:
		return msg + " (quota exhausted: rotate the token with -rotate-uv-token or wait for the daily reset)"
	case errors.Is(err, provider.ErrQuotaExceeded):
		return msg + " (quota exhausted: renew the token)"
	case errors.Is(err, provider.ErrAuthentication):
		return msg + " (check the API token in the credential store)"
	case errors.Is(err, airquality.ErrStationNotFound):
		return msg + " (no air quality station for this city)"
	default:
		return msg
	}
}

func logProviderHealth(log zerolog.Logger, registry *resilience.Registry) {
	for _, h := range registry.AllHealth() {
		if h.IsHealthy() {
			continue
		}
		log.Warn().
			Str("provider", h.Name).
			Str("circuit", h.CircuitState.String()).
			Str("last_error", h.LastError).
			Msg("provider unhealthy")
	}
}
