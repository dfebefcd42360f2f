package weather

import "strings"

// Theme is the background mood chosen for a weather reading.
type Theme string

// Themes.
const (
	ThemeHot    Theme = "hot"
	ThemeCold   Theme = "cold"
	ThemeSunny  Theme = "sunny"
	ThemeClear  Theme = "clear"
	ThemeCloudy Theme = "cloudy"
	ThemeRainy  Theme = "rainy"
	ThemeStormy Theme = "stormy"
	ThemeSnowy  Theme = "snowy"
	ThemeFoggy  Theme = "foggy"
)

const (
	hotAbove  = 30.0
	coldBelow = 10.0
)

// ThemeFor picks a theme from the provider's condition group ("Clouds",
// "Rain", ...) and the temperature in °C. Specific conditions win; clear
// skies and unknown conditions fall back to temperature.
func ThemeFor(tempC float64, condition string) Theme {
	switch strings.ToLower(condition) {
	case "clouds":
		return ThemeCloudy
	case "rain", "drizzle":
		return ThemeRainy
	case "thunderstorm":
		return ThemeStormy
	case "snow":
		return ThemeSnowy
	case "mist", "fog", "haze", "smoke", "dust", "sand":
		return ThemeFoggy
	case "clear":
		return byTemperature(tempC, ThemeSunny)
	}
	return byTemperature(tempC, ThemeClear)
}

func byTemperature(tempC float64, mild Theme) Theme {
	switch {
	case tempC > hotAbove:
		return ThemeHot
	case tempC < coldBelow:
		return ThemeCold
	default:
		return mild
	}
}
