// Package tzconvert provides UTC offset arithmetic for displaying local times.
// ALL instants in the codebase are kept in UTC.
// These functions convert to a location's wall clock for display only.
package tzconvert

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Offsets outside this range do not exist anywhere on Earth (UTC-12 .. UTC+14).
const (
	MinOffset = -12 * 3600
	MaxOffset = 14 * 3600
)

// ErrInvalidOffset is returned by ParseOffset for unparseable or out of range input.
var ErrInvalidOffset = errors.New("invalid UTC offset")

// Shift returns the wall clock of a location that is offsetSeconds ahead of UTC.
// Example: Shift(15:30 UTC, -18000) is 10:30 in a zone named "UTC-05:00".
//
// The returned time is the same instant as t; only its location changes, so
// Format renders the local wall clock while Unix() stays untouched.
func Shift(t time.Time, offsetSeconds int) time.Time {
	return t.UTC().In(time.FixedZone(FormatOffset(offsetSeconds), offsetSeconds))
}

// FormatOffset renders an offset in seconds as "UTC+HH:MM".
// Examples: -18000 -> "UTC-05:00", 19800 -> "UTC+05:30", 0 -> "UTC+00:00".
func FormatOffset(offsetSeconds int) string {
	sign := '+'
	if offsetSeconds < 0 {
		sign = '-'
		offsetSeconds = -offsetSeconds
	}
	return fmt.Sprintf("UTC%c%02d:%02d", sign, offsetSeconds/3600, (offsetSeconds%3600)/60)
}

// ParseOffset extracts an offset in seconds from user input.
// Accepted forms:
//   - "-18000" (raw seconds, as returned by timezone lookups)
//   - "UTC-5", "UTC+8", "UTC" (whole hours)
//   - "UTC+05:30", "UTC-03:30" (hours and minutes)
func ParseOffset(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidOffset)
	}

	if !strings.HasPrefix(strings.ToUpper(s), "UTC") {
		secs, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidOffset, s)
		}
		return checkRange(secs, s)
	}

	rest := s[3:]
	if rest == "" {
		return 0, nil
	}

	sign := 1
	switch rest[0] {
	case '-':
		sign = -1
		rest = rest[1:]
	case '+':
		rest = rest[1:]
	default:
		return 0, fmt.Errorf("%w: missing sign in %q", ErrInvalidOffset, s)
	}

	hourPart, minutePart, hasMinutes := strings.Cut(rest, ":")
	hours, err := strconv.Atoi(hourPart)
	if err != nil || hours < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidOffset, s)
	}
	minutes := 0
	if hasMinutes {
		minutes, err = strconv.Atoi(minutePart)
		if err != nil || minutes < 0 || minutes >= 60 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidOffset, s)
		}
	}

	return checkRange(sign*(hours*3600+minutes*60), s)
}

func checkRange(secs int, raw string) (int, error) {
	if secs < MinOffset || secs > MaxOffset {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidOffset, raw)
	}
	return secs, nil
}
