package weather

import (
	"math"
	"strconv"
)

// CelsiusToFahrenheit converts °C to °F.
func CelsiusToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}

// FahrenheitToCelsius converts °F to °C.
func FahrenheitToCelsius(f float64) float64 {
	return (f - 32) * 5 / 9
}

// ConvertTemperature returns tempC unchanged when celsius is set, else in °F.
func ConvertTemperature(tempC float64, celsius bool) float64 {
	if celsius {
		return tempC
	}
	return CelsiusToFahrenheit(tempC)
}

// FormatTemperature renders temp rounded to whole degrees, e.g. "21°C".
// Halves round up (-2.5 becomes -2).
func FormatTemperature(temp float64, celsius bool) string {
	unit := "°F"
	if celsius {
		unit = "°C"
	}
	n := int(math.Floor(temp + 0.5))
	return strconv.Itoa(n) + unit
}
