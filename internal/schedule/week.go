package schedule

import (
	"fmt"
	"time"
)

// WeekDay is one column of the 7-day calendar window.
type WeekDay struct {
	Date    time.Time
	Label   string // e.g. "Mon 15"
	IsToday bool
}

// Week is a Monday-start 7-day window derived from an anchor date. It is
// recomputed on every navigation, never stored.
type Week struct {
	Days [7]WeekDay
}

// WeekOf builds the Monday-start week containing anchor. A Sunday anchor
// still belongs to the week that began the Monday six days before it.
// today drives the IsToday markers; pass time.Now() outside tests.
func WeekOf(anchor, today time.Time) Week {
	wd := int(anchor.Weekday())
	if wd == 0 {
		wd = 7
	}
	monday := Day(anchor).AddDate(0, 0, 1-wd)

	var w Week
	for i := 0; i < 7; i++ {
		d := monday.AddDate(0, 0, i)
		w.Days[i] = WeekDay{
			Date:    d,
			Label:   fmt.Sprintf("%s %d", d.Format("Mon"), d.Day()),
			IsToday: SameDay(d, today),
		}
	}
	return w
}

// Monday returns the first day of the window.
func (w Week) Monday() time.Time { return w.Days[0].Date }

// Sunday returns the last day of the window.
func (w Week) Sunday() time.Time { return w.Days[6].Date }

// Label renders the window range for a header, e.g. "Jan 15 - Jan 21".
func (w Week) Label() string {
	return fmt.Sprintf("%s - %s", w.Monday().Format("Jan 2"), w.Sunday().Format("Jan 2"))
}

// Next shifts the window forward by exactly seven days.
func (w Week) Next(today time.Time) Week {
	return WeekOf(w.Monday().AddDate(0, 0, 7), today)
}

// Prev shifts the window back by exactly seven days.
func (w Week) Prev(today time.Time) Week {
	return WeekOf(w.Monday().AddDate(0, 0, -7), today)
}
