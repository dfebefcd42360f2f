// Package timezone resolves coordinates to their IANA zone and current UTC
// offset without calling out to a third-party API.
package timezone

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"
	_ "time/tzdata" // zone rules must not depend on the host's zoneinfo

	geohash "github.com/TomiHiltunen/geohash-golang"
	"github.com/bradfitz/latlong"
	"github.com/jonboulle/clockwork"
	"github.com/maypok86/otter/v2"

	"github.com/codeGROOVE-dev/clima/pkg/tzconvert"
)

// Lookup errors.
var (
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	ErrUnknownZone       = errors.New("no timezone for coordinate")
)

// FormattedLayout matches the "formatted" field of common timezone APIs.
const FormattedLayout = "2006-01-02 15:04:05"

// cellPrecision is the geohash length used as zone cache key (~150m cells).
// Zone borders are far coarser than latlong's own tables at this size.
const cellPrecision = 7

// Resolver turns coordinates into timezone snapshots.
type Resolver struct {
	clock  clockwork.Clock
	zones  *otter.Cache[string, string]
	lookup func(lat, lon float64) string
	logger *slog.Logger
}

// NewResolver creates a Resolver reading time from clock (nil means the real clock).
func NewResolver(clock clockwork.Clock, logger *slog.Logger) *Resolver {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		clock: clock,
		zones: otter.Must(&otter.Options[string, string]{
			MaximumSize:     50_000,
			InitialCapacity: 1_000,
		}),
		lookup: latlong.LookupZoneName,
		logger: logger,
	}
}

// Lookup resolves the zone at lat/lon and its offset at the current instant.
func (r *Resolver) Lookup(lat, lon float64) (Snapshot, error) {
	now := r.clock.Now()

	if err := validate(lat, lon); err != nil {
		return failed(err, now), err
	}

	zone, err := r.zoneName(lat, lon)
	if err != nil {
		return failed(err, now), err
	}

	loc, err := time.LoadLocation(zone)
	if err != nil {
		err = fmt.Errorf("loading zone %s: %w", zone, err)
		return failed(err, now), err
	}

	_, offset := now.In(loc).Zone()
	return Snapshot{
		Status:     StatusOK,
		ZoneName:   zone,
		GMTOffset:  offset,
		Formatted:  tzconvert.Shift(now, offset).Format(FormattedLayout),
		Timestamp:  now.Unix() + int64(offset),
		CapturedAt: now,
	}, nil
}

func (r *Resolver) zoneName(lat, lon float64) (string, error) {
	cell := geohash.Encode(lat, lon)
	if len(cell) > cellPrecision {
		cell = cell[:cellPrecision]
	}

	zone, found := r.zones.GetIfPresent(cell)
	if !found {
		zone = r.lookup(lat, lon)
		r.zones.Set(cell, zone)
		r.logger.Debug("zone resolved", "lat", lat, "lon", lon, "cell", cell, "zone", zone)
	}

	if zone == "" {
		return "", fmt.Errorf("%w: %.4f,%.4f", ErrUnknownZone, lat, lon)
	}
	return zone, nil
}

func validate(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return fmt.Errorf("%w: NaN", ErrInvalidCoordinate)
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidCoordinate, lat)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidCoordinate, lon)
	}
	return nil
}
