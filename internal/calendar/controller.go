// Package calendar binds the booking lifecycle and week windowing into the
// data a multi-column calendar view consumes: per-staff or per-day columns,
// positioned appointment and block boxes, the current-time indicator and
// the selection state behind the create/detail modals. It renders nothing
// itself.
package calendar

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/salon-scheduler/internal/booking"
	"github.com/hackgods/salon-scheduler/internal/schedule"
)

// ViewMode selects how columns are built.
type ViewMode int

const (
	// ModeStaffColumns shows one day with a column per staff member.
	ModeStaffColumns ViewMode = iota
	// ModeDayColumns shows one staff member with a column per weekday.
	ModeDayColumns
)

// Box is a positioned item in a column.
type Box struct {
	AppointmentID uuid.UUID
	BlockID       uuid.UUID
	Label         string
	Status        booking.Status
	Blocked       bool
	Position      schedule.Position
}

// Column is one vertical lane of the calendar.
type Column struct {
	StaffID uuid.UUID
	Day     time.Time
	IsToday bool
	Boxes   []Box
}

// SlotSelection captures a tapped empty slot, feeding the create modal.
type SlotSelection struct {
	StaffID    uuid.UUID
	Day        time.Time
	StartClock string
}

// Controller owns the visible window state for one screen or session. It
// is not safe for concurrent use; each client session holds its own.
type Controller struct {
	svc        *booking.Service
	grid       schedule.Grid
	log        *zap.Logger
	businessID uuid.UUID
	now        func() time.Time

	mode     ViewMode
	staffIDs []uuid.UUID
	focusDay time.Time
	week     schedule.Week
	blocks   []booking.BlockedTime

	slotSelection *SlotSelection
	selectedAppt  *uuid.UUID
}

func NewController(svc *booking.Service, grid schedule.Grid, businessID uuid.UUID, staffIDs []uuid.UUID, log *zap.Logger) *Controller {
	return &Controller{
		svc:        svc,
		grid:       grid,
		log:        log,
		businessID: businessID,
		staffIDs:   staffIDs,
		mode:       ModeStaffColumns,
		now:        time.Now,
	}
}

// SetMode switches between staff-column and day-column layouts.
func (c *Controller) SetMode(mode ViewMode) {
	c.mode = mode
}

// Week returns the currently loaded window.
func (c *Controller) Week() schedule.Week {
	return c.week
}

// LoadWeek fetches the whole visible week in one ranged query per source
// and rebuilds the window state around the anchor date.
func (c *Controller) LoadWeek(ctx context.Context, anchor time.Time) error {
	now := c.now()
	c.week = schedule.WeekOf(anchor, now)
	c.focusDay = schedule.Day(anchor)

	if err := c.svc.Refresh(ctx, c.businessID, c.week.Monday(), c.week.Sunday()); err != nil {
		return err
	}

	c.blocks = c.blocks[:0]
	for _, staffID := range c.staffIDs {
		blocks, err := c.svc.BlockedTimes(ctx, staffID, c.week.Monday(), c.week.Sunday())
		if err != nil {
			return err
		}
		c.blocks = append(c.blocks, blocks...)
	}

	c.log.Debug("week loaded",
		zap.String("window", c.week.Label()),
		zap.Int("appointments", len(c.svc.Cache().Snapshot())),
		zap.Int("blocks", len(c.blocks)),
	)
	return nil
}

// NextWeek shifts the window forward seven days and reloads.
func (c *Controller) NextWeek(ctx context.Context) error {
	return c.LoadWeek(ctx, c.week.Monday().AddDate(0, 0, 7))
}

// PrevWeek shifts the window back seven days and reloads.
func (c *Controller) PrevWeek(ctx context.Context) error {
	return c.LoadWeek(ctx, c.week.Monday().AddDate(0, 0, -7))
}

// Columns buckets the loaded window into lanes for the active mode:
// one column per staff member on the focused day, or one column per
// weekday for the first staff member.
func (c *Controller) Columns() []Column {
	switch c.mode {
	case ModeDayColumns:
		if len(c.staffIDs) == 0 {
			return nil
		}
		staffID := c.staffIDs[0]
		cols := make([]Column, 0, 7)
		for _, wd := range c.week.Days {
			cols = append(cols, c.buildColumn(staffID, wd.Date, wd.IsToday))
		}
		return cols
	default:
		cols := make([]Column, 0, len(c.staffIDs))
		isToday := schedule.SameDay(c.focusDay, c.now())
		for _, staffID := range c.staffIDs {
			cols = append(cols, c.buildColumn(staffID, c.focusDay, isToday))
		}
		return cols
	}
}

func (c *Controller) buildColumn(staffID uuid.UUID, day time.Time, isToday bool) Column {
	col := Column{StaffID: staffID, Day: day, IsToday: isToday}

	for _, a := range c.svc.Cache().ForStaffDay(staffID, day) {
		if !a.Status.HoldsSlot() {
			continue
		}
		pos, ok := c.grid.PositionOf(a.Interval())
		if !ok {
			continue
		}
		col.Boxes = append(col.Boxes, Box{
			AppointmentID: a.ID,
			Label:         a.Interval().Range(),
			Status:        a.Status,
			Position:      pos,
		})
	}

	for _, b := range c.blocks {
		if b.StaffID != staffID || !schedule.SameDay(b.Day, day) {
			continue
		}
		pos, ok := c.grid.PositionOf(b.Interval())
		if !ok {
			continue
		}
		col.Boxes = append(col.Boxes, Box{
			BlockID:  b.ID,
			Label:    b.Interval().Range(),
			Blocked:  true,
			Position: pos,
		})
	}

	return col
}

// CurrentTimeOffset returns the indicator position when today is inside
// the loaded window and the clock is within visible hours.
func (c *Controller) CurrentTimeOffset() (float64, bool) {
	now := c.now()
	todayVisible := false
	for _, d := range c.week.Days {
		if schedule.SameDay(d.Date, now) {
			todayVisible = true
			break
		}
	}
	if !todayVisible {
		return 0, false
	}
	return c.grid.CurrentTimeOffset(now)
}

// SelectSlot records a tapped empty slot for the create modal.
func (c *Controller) SelectSlot(staffID uuid.UUID, day time.Time, startClock string) {
	c.slotSelection = &SlotSelection{StaffID: staffID, Day: schedule.Day(day), StartClock: startClock}
	c.selectedAppt = nil
}

// SelectAppointment records a tapped appointment for the detail modal.
func (c *Controller) SelectAppointment(id uuid.UUID) {
	c.selectedAppt = &id
	c.slotSelection = nil
}

// Selection returns the active modal state, if any.
func (c *Controller) Selection() (*SlotSelection, *uuid.UUID) {
	return c.slotSelection, c.selectedAppt
}

// ClearSelection dismisses any open modal state.
func (c *Controller) ClearSelection() {
	c.slotSelection = nil
	c.selectedAppt = nil
}

// CreateFromSelection commits a booking for the selected slot, then
// reloads the window so the view converges on store state rather than the
// optimistic patch alone.
func (c *Controller) CreateFromSelection(ctx context.Context, req booking.CreateRequest) (*booking.Appointment, error) {
	if c.slotSelection != nil {
		req.StaffID = c.slotSelection.StaffID
		req.Day = c.slotSelection.Day
		req.StartClock = c.slotSelection.StartClock
	}

	appt, err := c.svc.Create(ctx, req)
	if err != nil {
		return nil, err
	}

	c.ClearSelection()
	if err := c.reload(ctx); err != nil {
		return appt, err
	}
	return appt, nil
}

// CancelSelected cancels the selected appointment and reloads the window.
func (c *Controller) CancelSelected(ctx context.Context, reason string) error {
	if c.selectedAppt == nil {
		return booking.ErrAppointmentNotFound
	}
	if err := c.svc.Cancel(ctx, *c.selectedAppt, reason); err != nil {
		return err
	}
	c.ClearSelection()
	return c.reload(ctx)
}

// RemoveBlock deletes a blocked time to reopen its slot, then reloads.
func (c *Controller) RemoveBlock(ctx context.Context, id uuid.UUID) error {
	if err := c.svc.DeleteBlock(ctx, id); err != nil {
		return err
	}
	return c.reload(ctx)
}

func (c *Controller) reload(ctx context.Context) error {
	if c.week.Monday().IsZero() {
		return nil
	}
	return c.LoadWeek(ctx, c.focusDay)
}
