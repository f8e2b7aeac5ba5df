package airquality

import (
	"fmt"
	"sort"
)

// Flatten reshapes a per-pollutant forecast into long-form rows, one per pollutant and day.
// Rows are ordered by pollutant name, then by day.
func Flatten(forecast map[string][]DailyStat) []ForecastPoint {
	names := make([]string, 0, len(forecast))
	total := 0
	for name, series := range forecast {
		names = append(names, name)
		total += len(series)
	}
	sort.Strings(names)

	points := make([]ForecastPoint, 0, total)
	for _, name := range names {
		for _, stat := range forecast[name] {
			points = append(points, ForecastPoint{
				Pollutant: name,
				Day:       stat.Day,
				Average:   stat.Average,
				Min:       stat.Min,
				Max:       stat.Max,
			})
		}
	}
	return points
}

// Group is the inverse of Flatten. Each series keeps the order its rows appeared in.
func Group(points []ForecastPoint) map[string][]DailyStat {
	forecast := make(map[string][]DailyStat)
	for _, p := range points {
		forecast[p.Pollutant] = append(forecast[p.Pollutant], DailyStat{
			Day:     p.Day,
			Average: p.Average,
			Min:     p.Min,
			Max:     p.Max,
		})
	}
	return forecast
}

// NormalizeSeries sorts a series by day and rejects repeated days.
func NormalizeSeries(series []DailyStat) ([]DailyStat, error) {
	sorted := make([]DailyStat, len(series))
	copy(sorted, series)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Day.Before(sorted[j].Day)
	})

	for i := 1; i < len(sorted); i++ {
		if sorted[i].Day.Equal(sorted[i-1].Day) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateDay, sorted[i].Day.Format("2006-01-02"))
		}
	}
	return sorted, nil
}
