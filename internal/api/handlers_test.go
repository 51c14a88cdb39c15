package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hackgods/salon-scheduler/internal/booking"
	"github.com/hackgods/salon-scheduler/internal/schedule"
)

// memStore is a minimal in-memory booking.Store for handler tests.
type memStore struct {
	appointments map[uuid.UUID]booking.Appointment
	blocks       map[uuid.UUID]booking.BlockedTime
}

func newMemStore() *memStore {
	return &memStore{
		appointments: make(map[uuid.UUID]booking.Appointment),
		blocks:       make(map[uuid.UUID]booking.BlockedTime),
	}
}

func (m *memStore) ListByStaffAndDateRange(ctx context.Context, staffID uuid.UUID, from, to time.Time) ([]booking.Appointment, error) {
	var out []booking.Appointment
	for _, a := range m.appointments {
		if a.StaffID == staffID && !a.Day.Before(from) && !a.Day.After(to) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) ListByBusinessAndDateRange(ctx context.Context, businessID uuid.UUID, from, to time.Time) ([]booking.Appointment, error) {
	var out []booking.Appointment
	for _, a := range m.appointments {
		if a.BusinessID == businessID && !a.Day.Before(from) && !a.Day.After(to) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) GetAppointment(ctx context.Context, id uuid.UUID) (*booking.Appointment, error) {
	a, ok := m.appointments[id]
	if !ok {
		return nil, booking.ErrAppointmentNotFound
	}
	return &a, nil
}

func (m *memStore) CreateAppointment(ctx context.Context, a booking.Appointment) (*booking.Appointment, error) {
	a.ID = uuid.New()
	m.appointments[a.ID] = a
	return &a, nil
}

func (m *memStore) UpdateAppointment(ctx context.Context, id uuid.UUID, patch booking.AppointmentPatch) (*booking.Appointment, error) {
	a, ok := m.appointments[id]
	if !ok {
		return nil, booking.ErrAppointmentNotFound
	}
	if patch.Start != nil {
		a.Start = *patch.Start
	}
	if patch.Duration != nil {
		a.Duration = *patch.Duration
	}
	if patch.Notes != nil {
		a.Notes = *patch.Notes
	}
	m.appointments[id] = a
	return &a, nil
}

func (m *memStore) UpdateStatus(ctx context.Context, id uuid.UUID, from, to booking.Status, reason string) (*booking.Appointment, error) {
	a, ok := m.appointments[id]
	if !ok || a.Status != from {
		return nil, booking.ErrAppointmentNotFound
	}
	a.Status = to
	if reason != "" {
		a.CancelReason = reason
	}
	m.appointments[id] = a
	return &a, nil
}

func (m *memStore) ListBlockedTimes(ctx context.Context, staffID uuid.UUID, from, to time.Time) ([]booking.BlockedTime, error) {
	var out []booking.BlockedTime
	for _, b := range m.blocks {
		if b.StaffID == staffID && !b.Day.Before(from) && !b.Day.After(to) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memStore) CreateBlockedTime(ctx context.Context, b booking.BlockedTime) (*booking.BlockedTime, error) {
	b.ID = uuid.New()
	m.blocks[b.ID] = b
	return &b, nil
}

func (m *memStore) DeleteBlockedTime(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.blocks[id]; !ok {
		return booking.ErrBlockedTimeNotFound
	}
	delete(m.blocks, id)
	return nil
}

func (m *memStore) FindElapsedConfirmed(ctx context.Context, now time.Time) ([]booking.Appointment, error) {
	return nil, nil
}

type memHours struct{}

func (memHours) GetProfile(ctx context.Context, staffID uuid.UUID, weekday time.Weekday) (*schedule.WorkingHours, error) {
	return &schedule.WorkingHours{
		StaffID:   staffID,
		Weekday:   weekday,
		Open:      9 * 60,
		Close:     18 * 60,
		Available: true,
	}, nil
}

type inlineLocker struct{}

func (inlineLocker) WithScheduleLock(ctx context.Context, staffID uuid.UUID, day time.Time, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestRouter(t *testing.T) (http.Handler, *memStore) {
	t.Helper()
	store := newMemStore()
	svc := booking.NewService(store, memHours{}, inlineLocker{}, time.Second, zap.NewNop())
	router := NewRouter(RouterConfig{
		Service: svc,
		Grid:    schedule.Grid{StartHour: 8, EndHour: 20, UnitsPerHour: 60},
		Logger:  zap.NewNop(),
		Metrics: NewMetrics(),
		Env:     "test",
		Version: "test",
	})
	return router, store
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func createBody(businessID, staffID uuid.UUID, date, start string, duration int) CreateAppointmentRequest {
	return CreateAppointmentRequest{
		BusinessID: businessID.String(),
		StaffID:    staffID.String(),
		ServiceID:  uuid.NewString(),
		Date:       date,
		Start:      start,
		Duration:   duration,
	}
}

func TestCreateAppointment(t *testing.T) {
	router, _ := newTestRouter(t)
	bizID, staffID := uuid.New(), uuid.New()

	rec := doJSON(t, router, http.MethodPost, "/appointments", createBody(bizID, staffID, "2024-01-17", "10:00", 30))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "10:00", resp.Start)
	assert.Equal(t, "10:30", resp.End)
	assert.Equal(t, "pending", resp.Status)
	assert.NotEqual(t, uuid.Nil, resp.ID)
}

func TestCreateAppointmentRejectsBadStart(t *testing.T) {
	router, _ := newTestRouter(t)
	bizID, staffID := uuid.New(), uuid.New()

	rec := doJSON(t, router, http.MethodPost, "/appointments", createBody(bizID, staffID, "2024-01-17", "9am", 30))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_time", resp.Error)
}

func TestCreateAppointmentRejectsOffGrid(t *testing.T) {
	router, _ := newTestRouter(t)
	bizID, staffID := uuid.New(), uuid.New()

	rec := doJSON(t, router, http.MethodPost, "/appointments", createBody(bizID, staffID, "2024-01-17", "09:05", 30))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "off_granularity", resp.Error)
}

func TestCreateAppointmentConflict(t *testing.T) {
	router, _ := newTestRouter(t)
	bizID, staffID := uuid.New(), uuid.New()

	rec := doJSON(t, router, http.MethodPost, "/appointments", createBody(bizID, staffID, "2024-01-17", "10:00", 30))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/appointments", createBody(bizID, staffID, "2024-01-17", "10:15", 30))
	assert.Equal(t, http.StatusConflict, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "schedule_conflict", resp.Error)

	// Back to back with the existing booking is fine
	rec = doJSON(t, router, http.MethodPost, "/appointments", createBody(bizID, staffID, "2024-01-17", "10:30", 30))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCancelAppointment(t *testing.T) {
	router, _ := newTestRouter(t)
	bizID, staffID := uuid.New(), uuid.New()

	rec := doJSON(t, router, http.MethodPost, "/appointments", createBody(bizID, staffID, "2024-01-17", "10:00", 30))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/appointments/%s/cancel", created.ID), CancelRequest{Reason: "customer no-show"})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// Cancelling frees the slot
	rec = doJSON(t, router, http.MethodPost, "/appointments", createBody(bizID, staffID, "2024-01-17", "10:00", 30))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCancelUnknownAppointment(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, fmt.Sprintf("/appointments/%s/cancel", uuid.New()), CancelRequest{})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChangeStatus(t *testing.T) {
	router, _ := newTestRouter(t)
	bizID, staffID := uuid.New(), uuid.New()

	rec := doJSON(t, router, http.MethodPost, "/appointments", createBody(bizID, staffID, "2024-01-17", "10:00", 30))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/appointments/%s/status", created.ID), ChangeStatusRequest{Status: "confirmed"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "confirmed", resp.Status)

	// confirmed -> pending is not a legal transition
	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/appointments/%s/status", created.ID), ChangeStatusRequest{Status: "pending"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateAppointmentMoves(t *testing.T) {
	router, _ := newTestRouter(t)
	bizID, staffID := uuid.New(), uuid.New()

	rec := doJSON(t, router, http.MethodPost, "/appointments", createBody(bizID, staffID, "2024-01-17", "10:00", 30))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	start := "11:00"
	rec = doJSON(t, router, http.MethodPatch, fmt.Sprintf("/appointments/%s", created.ID), UpdateAppointmentRequest{Start: &start})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "11:00", resp.Start)
}

func TestAvailability(t *testing.T) {
	router, _ := newTestRouter(t)
	bizID, staffID := uuid.New(), uuid.New()

	rec := doJSON(t, router, http.MethodPost, "/appointments", createBody(bizID, staffID, "2024-01-17", "10:00", 30))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodGet, fmt.Sprintf("/availability?staff_id=%s&date=2024-01-17&duration_minutes=30", staffID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AvailabilityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Slots.Morning, "09:00")
	assert.NotContains(t, resp.Slots.Morning, "10:00")
	assert.NotContains(t, resp.Slots.Morning, "09:45")
}

func TestBlockedTimeLifecycle(t *testing.T) {
	router, _ := newTestRouter(t)
	bizID, staffID := uuid.New(), uuid.New()

	rec := doJSON(t, router, http.MethodPost, "/blocked-times", CreateBlockRequest{
		StaffID:  staffID.String(),
		Date:     "2024-01-17",
		Start:    "12:00",
		Duration: 60,
		Kind:     "break",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var block BlockResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &block))
	assert.Equal(t, "13:00", block.End)

	// Blocked span rejects bookings
	rec = doJSON(t, router, http.MethodPost, "/appointments", createBody(bizID, staffID, "2024-01-17", "12:30", 30))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/blocked-times/%s", block.ID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/appointments", createBody(bizID, staffID, "2024-01-17", "12:30", 30))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCalendarWeek(t *testing.T) {
	router, _ := newTestRouter(t)
	bizID, staffID := uuid.New(), uuid.New()

	rec := doJSON(t, router, http.MethodPost, "/appointments", createBody(bizID, staffID, "2024-01-17", "10:00", 30))
	require.Equal(t, http.StatusCreated, rec.Code)

	url := fmt.Sprintf("/calendar/week?business_id=%s&staff_id=%s&anchor=2024-01-17", bizID, staffID)
	rec = doJSON(t, router, http.MethodGet, url, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp CalendarWeekResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Days, 7)
	assert.Equal(t, "2024-01-15", resp.Days[0].Date)
	assert.Equal(t, "2024-01-21", resp.Days[6].Date)

	require.Len(t, resp.Columns, 1)
	require.Len(t, resp.Columns[0].Boxes, 1)
	assert.NotNil(t, resp.Columns[0].Boxes[0].AppointmentID)
}

func TestCalendarWeekRequiresStaff(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, fmt.Sprintf("/calendar/week?business_id=%s", uuid.New()), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequestIDHeader(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, fmt.Sprintf("/availability?staff_id=%s&date=2024-01-17&duration_minutes=30", uuid.New()), nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/availability?staff_id=%s&date=2024-01-17&duration_minutes=30", uuid.New()), nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}
