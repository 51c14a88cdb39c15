package booking

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/salon-scheduler/internal/schedule"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// Terminal reports whether no further transition is defined out of s.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// HoldsSlot reports whether an appointment in this status occupies its
// interval for conflict purposes.
func (s Status) HoldsSlot() bool {
	return s == StatusPending || s == StatusConfirmed
}

type BlockKind string

const (
	BlockBreak  BlockKind = "break"
	BlockManual BlockKind = "manual-block"
)

type Business struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Staff struct {
	ID         uuid.UUID
	BusinessID uuid.UUID
	Name       string
	Role       *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type ServiceOffering struct {
	ID              uuid.UUID
	BusinessID      uuid.UUID
	Name            string
	DurationMinutes int
	PriceCents      int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Customer struct {
	ID        uuid.UUID
	Name      string
	Phone     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Appointment is the core booked entity. Start and Duration are minutes
// since midnight of Day. CustomerID is nil for walk-ins entered by staff.
type Appointment struct {
	ID           uuid.UUID
	BusinessID   uuid.UUID
	StaffID      uuid.UUID
	CustomerID   *uuid.UUID
	ServiceID    uuid.UUID
	Day          time.Time
	Start        int
	Duration     int
	PriceCents   int64
	Status       Status
	Notes        string
	CancelReason string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// End returns the exclusive end minute of the appointment.
func (a *Appointment) End() int {
	return a.Start + a.Duration
}

// Interval views the appointment as an overlap-testable span.
func (a *Appointment) Interval() schedule.Interval {
	return schedule.Interval{
		StaffID:  a.StaffID,
		Day:      a.Day,
		Start:    a.Start,
		Duration: a.Duration,
	}
}

// BlockedTime is a staff-authored stretch with no customer: a break or a
// manual closure. It occupies the grid exactly like a confirmed appointment
// but may be hard-deleted to reopen the slot.
type BlockedTime struct {
	ID        uuid.UUID
	StaffID   uuid.UUID
	Day       time.Time
	Start     int
	Duration  int
	Kind      BlockKind
	Note      string
	CreatedAt time.Time
}

// Interval views the blocked time as an overlap-testable span.
func (b *BlockedTime) Interval() schedule.Interval {
	return schedule.Interval{
		StaffID:  b.StaffID,
		Day:      b.Day,
		Start:    b.Start,
		Duration: b.Duration,
	}
}
