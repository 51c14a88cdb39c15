package schedule

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/salon-scheduler/internal/timeutil"
)

// WorkingHours bounds a staff member's bookable day. Open/Close and the
// lunch window are minutes since midnight; a lunch window with
// LunchEnd <= LunchStart means no lunch break. When Available is false the
// whole day is off.
type WorkingHours struct {
	StaffID    uuid.UUID
	Weekday    time.Weekday
	Open       int
	Close      int
	LunchStart int
	LunchEnd   int
	Available  bool
}

// HasLunch reports whether the profile carries a lunch window.
func (h WorkingHours) HasLunch() bool {
	return h.LunchEnd > h.LunchStart
}

// Slots groups bookable start times into presentation bands by hour.
type Slots struct {
	Morning   []string `json:"morning"`   // before 12:00
	Afternoon []string `json:"afternoon"` // 12:00 - 16:59
	Evening   []string `json:"evening"`   // 17:00 onward
}

// Empty reports whether no band holds any start time.
func (s Slots) Empty() bool {
	return len(s.Morning) == 0 && len(s.Afternoon) == 0 && len(s.Evening) == 0
}

// AvailableStarts enumerates the bookable start times for a service of the
// given duration on one staff member's day. Candidates step through the
// working window at booking granularity; any candidate whose span would
// touch the lunch window or one of the busy intervals is excluded. An
// unavailable day yields nothing.
func AvailableStarts(staffID uuid.UUID, day time.Time, hours WorkingHours, durationMinutes int, busy []Interval) []string {
	if !hours.Available || durationMinutes <= 0 {
		return nil
	}

	var lunch Interval
	if hours.HasLunch() {
		lunch = Interval{
			StaffID:  staffID,
			Day:      day,
			Start:    hours.LunchStart,
			Duration: hours.LunchEnd - hours.LunchStart,
		}
	}

	var starts []string
	for start := hours.Open; start+durationMinutes <= hours.Close; start += timeutil.Granularity {
		candidate := Interval{
			StaffID:  staffID,
			Day:      day,
			Start:    start,
			Duration: durationMinutes,
		}
		if hours.HasLunch() && candidate.Overlaps(lunch) {
			continue
		}
		if overlapsAny(candidate, busy) {
			continue
		}
		starts = append(starts, timeutil.ToClock(start))
	}
	return starts
}

// Band partitions ordered start times into morning/afternoon/evening groups.
func Band(starts []string) Slots {
	var s Slots
	for _, clock := range starts {
		m, err := timeutil.ToMinutes(clock)
		if err != nil {
			continue
		}
		switch hour := m / timeutil.MinutesPerHour; {
		case hour < 12:
			s.Morning = append(s.Morning, clock)
		case hour < 17:
			s.Afternoon = append(s.Afternoon, clock)
		default:
			s.Evening = append(s.Evening, clock)
		}
	}
	return s
}

func overlapsAny(candidate Interval, busy []Interval) bool {
	for _, b := range busy {
		if candidate.Overlaps(b) {
			return true
		}
	}
	return false
}
