package utils

import (
	"math"
)

// HaversineMiles calculates the great-circle distance between two points
// on Earth using the Haversine formula. Returns miles rounded to 2 decimals.
func HaversineMiles(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadius = 3958.8 // Earth's radius in miles

	// Convert degrees to radians
	lat1Rad := lat1 * math.Pi / 180
	lng1Rad := lng1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	lng2Rad := lng2 * math.Pi / 180

	// Haversine formula
	dlat := lat2Rad - lat1Rad
	dlng := lng2Rad - lng1Rad

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dlng/2)*math.Sin(dlng/2)

	c := 2 * math.Asin(math.Sqrt(a))

	return math.Round(earthRadius*c*100) / 100
}

// IsValidCoordinate checks that a latitude/longitude pair is on the globe
func IsValidCoordinate(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// CalculateETA estimates the time to arrival based on distance and average speed.
// distance in miles, averageSpeed in mph.
func CalculateETA(distanceMiles, averageSpeedMph float64) int {
	if averageSpeedMph <= 0 {
		averageSpeedMph = 20 // Default average speed in city traffic
	}

	etaHours := distanceMiles / averageSpeedMph
	etaMinutes := int(etaHours * 60)

	// Minimum 1 minute
	if etaMinutes < 1 {
		etaMinutes = 1
	}

	return etaMinutes
}
