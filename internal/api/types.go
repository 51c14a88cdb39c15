package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/salon-scheduler/internal/booking"
	"github.com/hackgods/salon-scheduler/internal/schedule"
	"github.com/hackgods/salon-scheduler/internal/timeutil"
)

type CreateAppointmentRequest struct {
	BusinessID string `json:"business_id"`
	StaffID    string `json:"staff_id"`
	CustomerID string `json:"customer_id,omitempty"`
	ServiceID  string `json:"service_id"`
	Date       string `json:"date"`  // "YYYY-MM-DD"
	Start      string `json:"start"` // "HH:MM"
	Duration   int    `json:"duration_minutes,omitempty"`
	End        string `json:"end,omitempty"` // explicit end, overrides duration
	PriceCents int64  `json:"price_cents,omitempty"`
	Notes      string `json:"notes,omitempty"`
	ByStaff    bool   `json:"by_staff,omitempty"`
}

type UpdateAppointmentRequest struct {
	StaffID    *string `json:"staff_id,omitempty"`
	ServiceID  *string `json:"service_id,omitempty"`
	Date       *string `json:"date,omitempty"`
	Start      *string `json:"start,omitempty"`
	Duration   *int    `json:"duration_minutes,omitempty"`
	PriceCents *int64  `json:"price_cents,omitempty"`
	Notes      *string `json:"notes,omitempty"`
}

type CancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

type ChangeStatusRequest struct {
	Status string `json:"status"`
}

type CreateBlockRequest struct {
	StaffID  string `json:"staff_id"`
	Date     string `json:"date"`
	Start    string `json:"start"`
	Duration int    `json:"duration_minutes"`
	Kind     string `json:"kind"`
	Note     string `json:"note,omitempty"`
}

type AppointmentResponse struct {
	ID           uuid.UUID  `json:"id"`
	BusinessID   uuid.UUID  `json:"business_id"`
	StaffID      uuid.UUID  `json:"staff_id"`
	CustomerID   *uuid.UUID `json:"customer_id,omitempty"`
	ServiceID    uuid.UUID  `json:"service_id"`
	Date         string     `json:"date"`
	Start        string     `json:"start"`
	End          string     `json:"end"`
	Duration     int        `json:"duration_minutes"`
	PriceCents   int64      `json:"price_cents"`
	Status       string     `json:"status"`
	Notes        string     `json:"notes,omitempty"`
	CancelReason string     `json:"cancel_reason,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func toAppointmentResponse(a *booking.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:           a.ID,
		BusinessID:   a.BusinessID,
		StaffID:      a.StaffID,
		CustomerID:   a.CustomerID,
		ServiceID:    a.ServiceID,
		Date:         a.Day.Format(schedule.DayLayout),
		Start:        timeutil.ToClock(a.Start),
		End:          timeutil.ToClock(a.End()),
		Duration:     a.Duration,
		PriceCents:   a.PriceCents,
		Status:       string(a.Status),
		Notes:        a.Notes,
		CancelReason: a.CancelReason,
		CreatedAt:    a.CreatedAt,
	}
}

type BlockResponse struct {
	ID       uuid.UUID `json:"id"`
	StaffID  uuid.UUID `json:"staff_id"`
	Date     string    `json:"date"`
	Start    string    `json:"start"`
	End      string    `json:"end"`
	Duration int       `json:"duration_minutes"`
	Kind     string    `json:"kind"`
	Note     string    `json:"note,omitempty"`
}

func toBlockResponse(b *booking.BlockedTime) BlockResponse {
	return BlockResponse{
		ID:       b.ID,
		StaffID:  b.StaffID,
		Date:     b.Day.Format(schedule.DayLayout),
		Start:    timeutil.ToClock(b.Start),
		End:      timeutil.ToClock(b.Start + b.Duration),
		Duration: b.Duration,
		Kind:     string(b.Kind),
		Note:     b.Note,
	}
}

type AvailabilityResponse struct {
	StaffID uuid.UUID      `json:"staff_id"`
	Date    string         `json:"date"`
	Slots   schedule.Slots `json:"slots"`
}

type CalendarDayResponse struct {
	Date    string `json:"date"`
	Label   string `json:"label"`
	IsToday bool   `json:"is_today"`
}

type CalendarColumnResponse struct {
	StaffID uuid.UUID         `json:"staff_id"`
	Date    string            `json:"date"`
	IsToday bool              `json:"is_today"`
	Boxes   []CalendarBoxItem `json:"boxes"`
}

type CalendarBoxItem struct {
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
	BlockID       *uuid.UUID `json:"block_id,omitempty"`
	Label         string     `json:"label"`
	Status        string     `json:"status,omitempty"`
	Blocked       bool       `json:"blocked,omitempty"`
	Offset        float64    `json:"offset"`
	Length        float64    `json:"length"`
}

type CalendarWeekResponse struct {
	Label             string                   `json:"label"`
	Days              []CalendarDayResponse    `json:"days"`
	Columns           []CalendarColumnResponse `json:"columns"`
	CurrentTimeOffset *float64                 `json:"current_time_offset,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
