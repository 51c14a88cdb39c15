// Package timeutil converts between "HH:MM" wall-clock strings and
// minutes-since-midnight integers. All schedule math downstream works in
// minutes; the string form only exists at API and storage boundaries.
package timeutil

import (
	"errors"
	"fmt"
)

const (
	MinutesPerHour = 60
	MinutesPerDay  = 24 * MinutesPerHour

	// Granularity is the minimum booking increment in minutes. Booking
	// start times must land on a multiple of it.
	Granularity = 10
)

var ErrFormat = errors.New("invalid time format")

// ToMinutes parses a zero-padded "HH:MM" string into minutes since midnight.
func ToMinutes(clock string) (int, error) {
	if len(clock) != 5 || clock[2] != ':' {
		return 0, fmt.Errorf("%w: %q", ErrFormat, clock)
	}

	h, err := parseTwoDigits(clock[0:2])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrFormat, clock)
	}
	m, err := parseTwoDigits(clock[3:5])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrFormat, clock)
	}

	if h > 23 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrFormat, clock)
	}

	return h*MinutesPerHour + m, nil
}

// ToClock renders minutes since midnight as a zero-padded "HH:MM" string.
// Values outside the day are clamped to its bounds.
func ToClock(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	if minutes > MinutesPerDay-1 {
		minutes = MinutesPerDay - 1
	}
	return fmt.Sprintf("%02d:%02d", minutes/MinutesPerHour, minutes%MinutesPerHour)
}

// AddMinutes shifts a clock string by delta minutes. There is no
// day-boundary rollover: results are clamped to 00:00..23:59, matching the
// single-day windows businesses operate in.
func AddMinutes(clock string, delta int) (string, error) {
	m, err := ToMinutes(clock)
	if err != nil {
		return "", err
	}
	return ToClock(m + delta), nil
}

// FormatRange renders "HH:MM - HH:MM" for a start clock and duration.
func FormatRange(startClock string, durationMinutes int) (string, error) {
	start, err := ToMinutes(startClock)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s - %s", ToClock(start), ToClock(start+durationMinutes)), nil
}

// Aligned reports whether a minute value sits on the booking granularity.
func Aligned(minutes int) bool {
	return minutes%Granularity == 0
}

func parseTwoDigits(s string) (int, error) {
	if s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' {
		return 0, ErrFormat
	}
	return int(s[0]-'0')*10 + int(s[1]-'0'), nil
}
