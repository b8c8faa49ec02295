package utils

import "math"

// UnitPrecision is the number of decimal places registrars report mutual fund
// units with. Running balances and remaining-unit counters are rounded to this
// precision after every update.
const UnitPrecision uint = 4

// MinFloat returns the smaller of two floats.
func MinFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// RoundFloat rounds a float64 to a specified number of decimal places.
func RoundFloat(val float64, precision uint) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}

// RoundUnits rounds a unit quantity to the registrar's precision.
func RoundUnits(val float64) float64 {
	return RoundFloat(val, UnitPrecision)
}
