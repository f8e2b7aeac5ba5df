// Package export renders report charts and writes them to the local filesystem.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/rs/zerolog"

	"github.com/breatheroute/skyreport/internal/report"
)

// Artifact file names, written into the output directory.
const (
	UVChartFile       = "today_uv.html"
	ForecastChartFile = "today_pollutants_forecast.html"
	ReportFile        = "today_uv.json"
)

// Chart styling.
const (
	allSamplesColor  = "darkred"
	safeSamplesColor = "rgb(51,85,255)"
	uvAxisMax        = 11
	titleDateLayout  = "02 Jan 2006"
	dayLayout        = "2006-01-02"
)

// ErrNoDirectory is returned when the exporter has no output directory.
var ErrNoDirectory = errors.New("export directory not set")

// Config holds configuration for the chart exporter.
type Config struct {
	// Dir is the output directory. It is created if missing.
	Dir string

	// Logger for export operations.
	Logger zerolog.Logger
}

// ChartExporter writes the UV chart, the pollutant forecast chart and the report JSON.
type ChartExporter struct {
	dir    string
	logger zerolog.Logger
}

// NewChartExporter creates a new exporter.
func NewChartExporter(cfg Config) *ChartExporter {
	return &ChartExporter{dir: cfg.Dir, logger: cfg.Logger}
}

// Export renders every artifact and returns their paths, the UV chart first.
func (e *ChartExporter) Export(ctx context.Context, r *report.Report) ([]string, error) {
	if e.dir == "" {
		return nil, ErrNoDirectory
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}

	artifacts := []struct {
		name   string
		render func(io.Writer, *report.Report) error
	}{
		{UVChartFile, RenderUVChart},
		{ForecastChartFile, RenderForecastChart},
		{ReportFile, writeJSON},
	}

	paths := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := filepath.Join(e.dir, a.name)
		if err := writeFile(path, r, a.render); err != nil {
			return nil, fmt.Errorf("write %s: %w", a.name, err)
		}
		e.logger.Debug().Str("path", path).Msg("artifact written")
		paths = append(paths, path)
	}
	return paths, nil
}

// writeFile renders into a temp file and renames it, so a failed render leaves no partial artifact.
func writeFile(path string, r *report.Report, render func(io.Writer, *report.Report) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := render(tmp, r); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func writeJSON(w io.Writer, r *report.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// UVTitle is the three-line UV chart heading.
func UVTitle(r *report.Report) string {
	return fmt.Sprintf("UV over Time\nCity: %s\n%s", r.City(), r.GeneratedAt.Format(titleDateLayout))
}

// RenderUVChart draws every UV sample in dark red with the safe samples overlaid,
// on a background colored by the air quality rating.
func RenderUVChart(w io.Writer, r *report.Report) error {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle:       "UV over Time",
			BackgroundColor: r.AirQualityRating.Color.String(),
			Width:           "1000px",
			Height:          "600px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    UVTitle(r),
			Subtitle: r.Annotation,
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Time"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "UV Index", Min: 0, Max: uvAxisMax}),
	)

	labels := make([]string, len(r.UVSamples))
	for i, s := range r.UVSamples {
		labels[i] = s.Label()
	}

	all := make([]opts.ScatterData, len(r.UVSamples))
	for i, s := range r.UVSamples {
		all[i] = opts.ScatterData{Value: []interface{}{s.Label(), s.Index}, SymbolSize: 10}
	}
	safe := make([]opts.ScatterData, len(r.SafeSamples))
	for i, s := range r.SafeSamples {
		safe[i] = opts.ScatterData{Value: []interface{}{s.Label(), s.Index}, SymbolSize: 12}
	}

	scatter.SetXAxis(labels).
		AddSeries("UV Index", all,
			charts.WithItemStyleOpts(opts.ItemStyle{Color: allSamplesColor}),
			charts.WithMarkLineNameYAxisItemOpts(
				opts.MarkLineNameYAxisItem{Name: "safe", YAxis: r.Thresholds.SafeMax},
				opts.MarkLineNameYAxisItem{Name: "strict", YAxis: r.Thresholds.Strict},
			),
		).
		AddSeries("Safe", safe, charts.WithItemStyleOpts(opts.ItemStyle{Color: safeSamplesColor}))

	return scatter.Render(w)
}

// RenderForecastChart draws avg, min and max lines per pollutant over the forecast days.
func RenderForecastChart(w io.Writer, r *report.Report) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Pollutant Forecast",
			Width:     "1000px",
			Height:    "600px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Pollutant Forecast\nCity: %s", r.City()),
			Subtitle: r.Annotation,
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Day"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Index"}),
	)

	days, lines := ForecastSeries(r)
	labels := make([]string, len(days))
	for i, d := range days {
		labels[i] = d.Format(dayLayout)
	}
	line.SetXAxis(labels)

	for _, series := range lines {
		line.AddSeries(series.Name, series.Data)
	}
	return line.Render(w)
}

// Series is one named line of the forecast chart, aligned to the chart's day axis.
type Series struct {
	Name string
	Data []opts.LineData
}

// ForecastSeries returns the sorted day axis and the avg, min and max lines of every
// pollutant, in report row order. Days a pollutant has no row for are left as gaps.
func ForecastSeries(r *report.Report) ([]time.Time, []Series) {
	days := forecastDays(r)
	index := make(map[time.Time]int, len(days))
	for i, d := range days {
		index[d] = i
	}

	var (
		out   []Series
		byKey = map[string]int{}
	)
	for _, p := range r.Forecast {
		if _, ok := byKey[p.Pollutant]; !ok {
			byKey[p.Pollutant] = len(out)
			for _, stat := range []string{"avg", "min", "max"} {
				data := make([]opts.LineData, len(days))
				for i := range data {
					data[i] = opts.LineData{Value: "-"}
				}
				out = append(out, Series{Name: p.Pollutant + " " + stat, Data: data})
			}
		}
		base := byKey[p.Pollutant]
		i := index[p.Day]
		out[base].Data[i] = opts.LineData{Value: p.Average}
		out[base+1].Data[i] = opts.LineData{Value: p.Min}
		out[base+2].Data[i] = opts.LineData{Value: p.Max}
	}
	return days, out
}

func forecastDays(r *report.Report) []time.Time {
	seen := map[time.Time]bool{}
	var days []time.Time
	for _, p := range r.Forecast {
		if !seen[p.Day] {
			seen[p.Day] = true
			days = append(days, p.Day)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}
