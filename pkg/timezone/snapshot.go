package timezone

import "time"

// Status mirrors the "status" field of a timezone lookup response.
type Status string

// Lookup outcomes.
const (
	StatusOK    Status = "OK"
	StatusError Status = "ERROR"
)

// Snapshot is the timezone of a location at the moment it was looked up.
// Clients capture it once per location selection and extrapolate the local
// clock from GMTOffset instead of asking again every second.
type Snapshot struct {
	CapturedAt time.Time `json:"-"`
	Status     Status    `json:"status"`
	Message    string    `json:"message,omitempty"`
	ZoneName   string    `json:"zoneName"`
	Formatted  string    `json:"formatted"`
	GMTOffset  int       `json:"gmtOffset"` // seconds east of UTC
	Timestamp  int64     `json:"timestamp"` // local wall clock as Unix seconds
}

// OK reports whether the snapshot carries a usable offset.
func (s Snapshot) OK() bool {
	return s.Status == StatusOK
}

// failed builds the ERROR snapshot served for an unresolvable location.
func failed(err error, now time.Time) Snapshot {
	return Snapshot{
		Status:     StatusError,
		Message:    err.Error(),
		CapturedAt: now,
	}
}
