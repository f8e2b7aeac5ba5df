package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/breatheroute/skyreport/internal/airquality"
	"github.com/breatheroute/skyreport/internal/location"
	"github.com/breatheroute/skyreport/internal/provider"
	"github.com/breatheroute/skyreport/internal/provider/resilience"
	"github.com/breatheroute/skyreport/internal/telemetry"
	"github.com/breatheroute/skyreport/internal/uv"
)

// Run stages, used in errors, logs and span names.
const (
	StageLocation   = "location"
	StageAirQuality = "air quality"
	StageUVRealtime = "uv realtime"
	StageUVForecast = "uv forecast"
	StageAssemble   = "assemble"
	StageExport     = "export"
	StageNotify     = "notify"
)

// NotifyPrompt is the question asked before sending an artifact.
const NotifyPrompt = "Send report to device?"

// StageError is a run failure tagged with the stage that produced it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	if name := provider.ProviderOf(e.Err); name != "" {
		return fmt.Sprintf("%s (%s): %v", e.Stage, name, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// StageOf returns the stage a run error came from, or "".
func StageOf(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

// Resolver produces the run's location.
type Resolver interface {
	Resolve(ctx context.Context) (*location.Location, error)
}

// AirQualitySource fetches the air quality sample for a place name.
type AirQualitySource interface {
	Fetch(ctx context.Context, locationName string) (*airquality.Sample, error)
	ProviderName() string
}

// UVSource fetches realtime and forecast UV data.
type UVSource interface {
	Realtime(ctx context.Context, coords uv.Coordinates) (float64, error)
	Forecast(ctx context.Context, coords uv.Coordinates, zone *time.Location) ([]uv.Sample, error)
	ProviderName() string
}

// Exporter writes report artifacts and returns their paths, primary artifact first.
type Exporter interface {
	Export(ctx context.Context, r *Report) ([]string, error)
}

// Notifier delivers an exported artifact to another device.
type Notifier interface {
	Notify(ctx context.Context, r *Report, artifact string) error
}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// RunnerConfig holds the collaborators of a run.
type RunnerConfig struct {
	Resolver   Resolver
	AirQuality AirQualitySource
	UV         UVSource
	Thresholds Thresholds

	// Altitude in meters passed to the UV source.
	Altitude float64

	// Exporter is optional; without it the run stops after assembly.
	Exporter Exporter

	// Notifier and Confirmer are optional. Nothing is sent unless both are set
	// and the confirmer answers yes.
	Notifier  Notifier
	Confirmer Confirmer

	// Registry records provider health. Optional.
	Registry *resilience.Registry

	// Tracer and Instruments default to no-ops.
	Tracer      trace.Tracer
	Instruments *telemetry.Instruments

	Logger zerolog.Logger
}

// Result is the outcome of a successful run.
type Result struct {
	Report    *Report
	Artifacts []string
	Notified  bool
}

// Runner drives one report run end to end.
type Runner struct {
	cfg RunnerConfig
}

// NewRunner creates a new runner.
func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.Tracer == nil {
		cfg.Tracer = noop.NewTracerProvider().Tracer("")
	}
	return &Runner{cfg: cfg}
}

// Run resolves the location, fetches air quality and UV data concurrently, assembles the
// report, exports it and optionally sends the primary artifact. Any fetch failure aborts
// the run before anything is exported. A notification failure is returned together with
// the result, since the artifacts already exist.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	ctx, span := r.cfg.Tracer.Start(ctx, "skyreport.run")
	defer span.End()

	result, err := r.run(ctx)

	outcome := telemetry.OutcomeSuccess
	if err != nil && result == nil {
		outcome = telemetry.OutcomeFailure
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	r.cfg.Instruments.RecordRun(ctx, time.Since(start), outcome)

	return result, err
}

func (r *Runner) run(ctx context.Context) (*Result, error) {
	loc, err := stage(ctx, r, StageLocation, "", func(ctx context.Context) (*location.Location, error) {
		return r.cfg.Resolver.Resolve(ctx)
	})
	if err != nil {
		return nil, err
	}

	logger := r.cfg.Logger.With().Str("city", loc.City).Logger()
	coords := uv.Coordinates{Latitude: loc.Latitude, Longitude: loc.Longitude, Altitude: r.cfg.Altitude}

	var (
		aq       *airquality.Sample
		current  float64
		forecast []uv.Sample
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		aq, err = stage(gctx, r, StageAirQuality, r.cfg.AirQuality.ProviderName(), func(ctx context.Context) (*airquality.Sample, error) {
			return r.cfg.AirQuality.Fetch(ctx, loc.Name())
		})
		return err
	})
	g.Go(func() error {
		var err error
		current, err = stage(gctx, r, StageUVRealtime, r.cfg.UV.ProviderName(), func(ctx context.Context) (float64, error) {
			return r.cfg.UV.Realtime(ctx, coords)
		})
		return err
	})
	g.Go(func() error {
		var err error
		forecast, err = stage(gctx, r, StageUVForecast, r.cfg.UV.ProviderName(), func(ctx context.Context) ([]uv.Sample, error) {
			return r.cfg.UV.Forecast(ctx, coords, loc.Timezone)
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rpt, err := Assemble(loc, aq, forecast, r.cfg.Thresholds)
	if err != nil {
		return nil, &StageError{Stage: StageAssemble, Err: err}
	}
	rpt.CurrentUV = &current

	logger.Info().
		Str("run_id", rpt.ID.String()).
		Int("aqi", aq.AQI).
		Str("rating", string(rpt.AirQualityRating.Level)).
		Float64("uv", current).
		Int("samples", len(rpt.UVSamples)).
		Int("safe_windows", len(rpt.SafeTimes)).
		Msg("report assembled")

	result := &Result{Report: rpt}
	if r.cfg.Exporter == nil {
		return result, nil
	}

	result.Artifacts, err = stage(ctx, r, StageExport, "", func(ctx context.Context) ([]string, error) {
		return r.cfg.Exporter.Export(ctx, rpt)
	})
	if err != nil {
		return nil, err
	}
	logger.Info().Strs("artifacts", result.Artifacts).Msg("report exported")

	if r.cfg.Notifier == nil || r.cfg.Confirmer == nil || len(result.Artifacts) == 0 {
		return result, nil
	}

	ok, err := r.cfg.Confirmer.Confirm(ctx, NotifyPrompt)
	if err != nil {
		return result, &StageError{Stage: StageNotify, Err: fmt.Errorf("confirm: %w", err)}
	}
	if !ok {
		logger.Debug().Msg("notification declined")
		return result, nil
	}

	_, err = stage(ctx, r, StageNotify, "", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.cfg.Notifier.Notify(ctx, rpt, result.Artifacts[0])
	})
	if err != nil {
		return result, err
	}
	result.Notified = true
	logger.Info().Str("artifact", result.Artifacts[0]).Msg("report sent")

	return result, nil
}

// stage runs fn in its own span, records provider health and metrics and tags any
// error with the stage name. providerName may be empty for non-upstream stages.
func stage[T any](ctx context.Context, r *Runner, name, providerName string, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := r.cfg.Tracer.Start(ctx, "skyreport."+name)
	defer span.End()
	if providerName != "" {
		span.SetAttributes(attribute.String("provider", providerName))
	}

	value, err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		var zero T

		// A sibling fetch failed first and cancelled this one.
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return zero, &StageError{Stage: name, Err: err}
		}

		failed := provider.ProviderOf(err)
		if failed == "" {
			failed = providerName
		}
		if failed != "" {
			r.recordFailure(ctx, failed, err)
		}

		r.cfg.Logger.Error().Err(err).Str("stage", name).Str("provider", failed).Msg("run stage failed")
		return zero, &StageError{Stage: name, Err: err}
	}

	if providerName != "" {
		r.recordSuccess(ctx, providerName)
	}
	return value, nil
}

func (r *Runner) recordSuccess(ctx context.Context, name string) {
	if r.cfg.Registry != nil {
		r.cfg.Registry.RecordSuccess(name)
	}
	r.cfg.Instruments.RecordProviderCall(ctx, name, telemetry.OutcomeSuccess)
}

func (r *Runner) recordFailure(ctx context.Context, name string, err error) {
	if r.cfg.Registry != nil {
		r.cfg.Registry.RecordFailure(name, err)
	}
	r.cfg.Instruments.RecordProviderCall(ctx, name, telemetry.OutcomeFailure)
}
