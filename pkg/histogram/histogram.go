// Package histogram renders forecast temperatures as a coloured terminal chart.
package histogram

import (
	"fmt"
	"math"
	"strings"

	"github.com/fatih/color"

	"github.com/codeGROOVE-dev/clima/pkg/weather"
)

// maxBar is the bar length of the warmest step.
const maxBar = 30

// ThemeColor returns the terminal colour for a weather theme.
func ThemeColor(theme weather.Theme) *color.Color {
	switch theme {
	case weather.ThemeHot:
		return color.New(color.FgRed)
	case weather.ThemeCold:
		return color.New(color.FgBlue, color.Bold)
	case weather.ThemeSunny:
		return color.New(color.FgYellow)
	case weather.ThemeClear:
		return color.New(color.FgCyan)
	case weather.ThemeRainy:
		return color.New(color.FgBlue)
	case weather.ThemeStormy:
		return color.New(color.FgMagenta)
	case weather.ThemeSnowy:
		return color.New(color.FgHiWhite)
	default:
		// cloudy, foggy
		return color.New(color.FgHiBlack)
	}
}

// Forecast draws one line per forecast step: local day and time, rounded
// temperature and a bar scaled between the coldest and warmest step.
// offsetSeconds is the location's UTC offset; temperatures come in °C.
func Forecast(points []weather.ForecastPoint, offsetSeconds int, celsius bool) string {
	var output strings.Builder

	output.WriteString("🌡  Forecast (3-hour steps)\n")
	output.WriteString(strings.Repeat("─", 50) + "\n")

	if len(points) == 0 {
		return output.String() + "No forecast data available\n"
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range points {
		lo = min(lo, points[i].Main.Temp)
		hi = max(hi, points[i].Main.Temp)
	}

	lastDay := ""
	for i := range points {
		p := &points[i]
		day := weather.FormatDay(p.DateTime, offsetSeconds)
		label := strings.Repeat(" ", len([]rune(day)))
		if day != lastDay {
			label = day
			lastDay = day
		}

		cond := p.Primary()
		c := ThemeColor(weather.ThemeFor(p.Main.Temp, cond.Main))
		temp := weather.FormatTemperature(weather.ConvertTemperature(p.Main.Temp, celsius), celsius)

		fmt.Fprintf(&output, "%s %s %6s %s %s\n",
			label,
			weather.FormatClock(p.DateTime, offsetSeconds),
			temp,
			c.Sprint(strings.Repeat("█", barLength(p.Main.Temp, lo, hi))),
			cond.Description)
	}

	return output.String()
}

// barLength maps t in [lo, hi] onto [1, maxBar].
func barLength(t, lo, hi float64) int {
	if hi-lo < 1e-9 {
		return maxBar
	}
	return 1 + int(math.Round((t-lo)/(hi-lo)*(maxBar-1)))
}
