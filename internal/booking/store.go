package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/salon-scheduler/internal/schedule"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrBlockedTimeNotFound = errors.New("blocked time not found")
	ErrProfileNotFound     = errors.New("working hours profile not found")

	// ErrStore wraps backend failures on mutating calls. Safe to retry;
	// any optimistic local state is rolled back before it surfaces.
	ErrStore = errors.New("booking store failure")
)

// AppointmentPatch carries the fields an update may change. Nil means
// leave the column untouched.
type AppointmentPatch struct {
	StaffID    *uuid.UUID
	ServiceID  *uuid.UUID
	Day        *time.Time
	Start      *int
	Duration   *int
	PriceCents *int64
	Notes      *string
}

// TouchesSchedule reports whether applying the patch can move the
// appointment on the grid, which forces conflict revalidation.
func (p AppointmentPatch) TouchesSchedule() bool {
	return p.StaffID != nil || p.Day != nil || p.Start != nil || p.Duration != nil
}

// Store is the booking record backend. Ranged listings span whole calendar
// days, from and to inclusive.
type Store interface {
	ListByStaffAndDateRange(ctx context.Context, staffID uuid.UUID, from, to time.Time) ([]Appointment, error)
	ListByBusinessAndDateRange(ctx context.Context, businessID uuid.UUID, from, to time.Time) ([]Appointment, error)
	GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// CreateAppointment persists a new record; the store assigns the id.
	CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error)
	UpdateAppointment(ctx context.Context, id uuid.UUID, patch AppointmentPatch) (*Appointment, error)

	// UpdateStatus is a compare-and-set: it only applies when the stored
	// status still equals from, returning ErrAppointmentNotFound otherwise.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, reason string) (*Appointment, error)

	ListBlockedTimes(ctx context.Context, staffID uuid.UUID, from, to time.Time) ([]BlockedTime, error)
	CreateBlockedTime(ctx context.Context, b BlockedTime) (*BlockedTime, error)
	DeleteBlockedTime(ctx context.Context, id uuid.UUID) error

	// FindElapsedConfirmed returns confirmed appointments whose end time
	// has passed, for the completion worker.
	FindElapsedConfirmed(ctx context.Context, now time.Time) ([]Appointment, error)
}

// HoursStore resolves a staff member's working-hour profile per weekday.
type HoursStore interface {
	GetProfile(ctx context.Context, staffID uuid.UUID, weekday time.Weekday) (*schedule.WorkingHours, error)
}
