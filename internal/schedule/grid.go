package schedule

import (
	"time"

	"github.com/hackgods/salon-scheduler/internal/timeutil"
)

// Grid lays out a single day column of the calendar. It converts intervals
// into vertical positions against a fixed per-hour scale so a renderer only
// has to draw boxes. The grid itself is stateless and side-effect free; the
// caller filters the interval list down to one staff member and day first.
type Grid struct {
	StartHour    int     // first visible hour, e.g. 8
	EndHour      int     // hour the grid ends at, e.g. 20
	UnitsPerHour float64 // vertical units one hour occupies
}

// Position is a vertical placement in grid units.
type Position struct {
	Offset float64
	Length float64
}

func (g Grid) startMinute() int { return g.StartHour * timeutil.MinutesPerHour }
func (g Grid) endMinute() int   { return g.EndHour * timeutil.MinutesPerHour }

// Height returns the total vertical extent of the grid in units.
func (g Grid) Height() float64 {
	return float64(g.EndHour-g.StartHour) * g.UnitsPerHour
}

// PositionOf places an interval on the grid. Intervals entirely outside the
// visible window are dropped (ok=false); partially visible ones are clamped
// at the grid edges so nothing renders off-grid.
func (g Grid) PositionOf(iv Interval) (Position, bool) {
	if iv.Duration <= 0 {
		return Position{}, false
	}

	start, end := iv.Start, iv.End()
	if end <= g.startMinute() || start >= g.endMinute() {
		return Position{}, false
	}
	if start < g.startMinute() {
		start = g.startMinute()
	}
	if end > g.endMinute() {
		end = g.endMinute()
	}

	scale := g.UnitsPerHour / timeutil.MinutesPerHour
	return Position{
		Offset: float64(start-g.startMinute()) * scale,
		Length: float64(end-start) * scale,
	}, true
}

// CurrentTimeOffset returns the vertical offset of the now-indicator line.
// ok is false when now falls outside the visible hours; whether the grid's
// day is actually today is the caller's concern.
func (g Grid) CurrentTimeOffset(now time.Time) (float64, bool) {
	minute := now.Hour()*timeutil.MinutesPerHour + now.Minute()
	if minute < g.startMinute() || minute >= g.endMinute() {
		return 0, false
	}
	scale := g.UnitsPerHour / timeutil.MinutesPerHour
	return float64(minute-g.startMinute()) * scale, true
}

// SlotCount returns how many granularity-sized slots the grid spans.
func (g Grid) SlotCount() int {
	return (g.endMinute() - g.startMinute()) / timeutil.Granularity
}

// Occupancy marks which discrete slots are covered by at least one interval.
// Index i corresponds to the slot starting at StartHour + i*granularity.
func (g Grid) Occupancy(ivs []Interval) []bool {
	occupied := make([]bool, g.SlotCount())
	for _, iv := range ivs {
		if iv.Duration <= 0 {
			continue
		}
		for i := range occupied {
			slotStart := g.startMinute() + i*timeutil.Granularity
			slotEnd := slotStart + timeutil.Granularity
			if iv.Start < slotEnd && slotStart < iv.End() {
				occupied[i] = true
			}
		}
	}
	return occupied
}
