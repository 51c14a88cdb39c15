// Package schedule holds the pure scheduling math: interval overlap,
// slot-grid layout, availability resolution, conflict validation and
// calendar week windowing. Nothing in here touches a store or the network.
package schedule

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/salon-scheduler/internal/timeutil"
)

// DayLayout is the canonical calendar-day form used for comparisons and keys.
const DayLayout = "2006-01-02"

// Interval is a span of a staff member's day: a booked appointment or a
// blocked stretch. Start and Duration are minutes; Duration must be positive
// for the interval to occupy anything.
type Interval struct {
	StaffID  uuid.UUID
	Day      time.Time
	Start    int
	Duration int
}

// End returns the exclusive end minute of the interval.
func (iv Interval) End() int {
	return iv.Start + iv.Duration
}

// Overlaps reports whether two intervals collide. Intervals on different
// staff or different calendar days never overlap. Boundaries are half-open:
// one interval ending at 10:00 does not collide with one starting at 10:00.
// Zero or negative durations occupy nothing and never overlap.
func (iv Interval) Overlaps(other Interval) bool {
	if iv.Duration <= 0 || other.Duration <= 0 {
		return false
	}
	if iv.StaffID != other.StaffID {
		return false
	}
	if !SameDay(iv.Day, other.Day) {
		return false
	}
	return iv.Start < other.End() && other.Start < iv.End()
}

// Range renders the interval as "HH:MM - HH:MM" for display labels.
func (iv Interval) Range() string {
	return fmt.Sprintf("%s - %s", timeutil.ToClock(iv.Start), timeutil.ToClock(iv.End()))
}

// SameDay compares two instants by calendar day, ignoring the time of day.
func SameDay(a, b time.Time) bool {
	return a.Format(DayLayout) == b.Format(DayLayout)
}

// Day normalizes an instant to midnight of its calendar day.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
