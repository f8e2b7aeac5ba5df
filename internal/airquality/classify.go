package airquality

import "fmt"

// band is a half-open [lower, upper) AQI range.
type band struct {
	lower, upper int
	rating       Rating
}

// bands are contiguous, ordered and cover [0, 1000).
var bands = []band{
	{0, 51, Rating{LevelGood, RGB{68, 204, 0}}},
	{51, 101, Rating{LevelModerate, RGB{230, 230, 0}}},
	{101, 151, Rating{LevelUnhealthyForSensitive, RGB{255, 128, 0}}},
	{151, 201, Rating{LevelUnhealthy, RGB{255, 42, 0}}},
	{201, 301, Rating{LevelVeryUnhealthy, RGB{153, 0, 153}}},
	{301, 1000, Rating{LevelHazardous, RGB{0, 0, 0}}},
}

// Classify maps an AQI value to its rating band.
func Classify(aqi int) (Rating, error) {
	for _, b := range bands {
		if aqi >= b.lower && aqi < b.upper {
			return b.rating, nil
		}
	}
	return Rating{}, fmt.Errorf("%w: %d", ErrUnclassifiableAQI, aqi)
}
