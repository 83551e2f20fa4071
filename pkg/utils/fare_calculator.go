package utils

import (
	"math"
)

const (
	// BaseRatePerMile is the suggested fare rate in USD per mile
	BaseRatePerMile = 0.50
	// MinimumFare is the floor applied to any suggested fare
	MinimumFare = 3.00
)

// SuggestedPrice computes the suggested fare for a trip of the given
// distance: a linear per-mile rate with a floor minimum, rounded to cents.
func SuggestedPrice(distanceMiles float64) float64 {
	price := distanceMiles * BaseRatePerMile
	if price < MinimumFare {
		price = MinimumFare
	}
	return math.Round(price*100) / 100
}
