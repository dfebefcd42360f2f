package weather

import (
	"fmt"
	"time"

	"github.com/codeGROOVE-dev/clima/pkg/tzconvert"
)

var (
	weekdaysES = [...]string{"dom", "lun", "mar", "mié", "jue", "vie", "sáb"}
	monthsES   = [...]string{"ene", "feb", "mar", "abr", "may", "jun", "jul", "ago", "sept", "oct", "nov", "dic"}
)

// FormatClock renders a provider timestamp as "HH:MM" at offsetSeconds.
func FormatClock(unix int64, offsetSeconds int) string {
	return tzconvert.Shift(time.Unix(unix, 0), offsetSeconds).Format("15:04")
}

// FormatDay renders a provider timestamp as a short Spanish date at
// offsetSeconds, e.g. "sáb, 18 oct".
func FormatDay(unix int64, offsetSeconds int) string {
	t := tzconvert.Shift(time.Unix(unix, 0), offsetSeconds)
	return fmt.Sprintf("%s, %d %s", weekdaysES[t.Weekday()], t.Day(), monthsES[t.Month()-1])
}

// IconURL returns the provider's 2x PNG for an icon code such as "04d".
func IconURL(icon string) string {
	return "https://openweathermap.org/img/wn/" + icon + "@2x.png"
}
