package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	redisclient "github.com/hackgods/salon-scheduler/internal/redis"
	"github.com/hackgods/salon-scheduler/internal/schedule"
	"github.com/hackgods/salon-scheduler/internal/timeutil"
)

// stubStore is an in-memory Store with injectable failures.
type stubStore struct {
	appointments map[uuid.UUID]Appointment
	blocks       map[uuid.UUID]BlockedTime
	createCalls  int
	failCreate   error
	failUpdate   error
	failStatus   error
	failList     error
}

func newStubStore() *stubStore {
	return &stubStore{
		appointments: make(map[uuid.UUID]Appointment),
		blocks:       make(map[uuid.UUID]BlockedTime),
	}
}

func (s *stubStore) ListByStaffAndDateRange(ctx context.Context, staffID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	if s.failList != nil {
		return nil, s.failList
	}
	var out []Appointment
	for _, a := range s.appointments {
		if a.StaffID == staffID && !a.Day.Before(from) && !a.Day.After(to) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *stubStore) ListByBusinessAndDateRange(ctx context.Context, businessID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	if s.failList != nil {
		return nil, s.failList
	}
	var out []Appointment
	for _, a := range s.appointments {
		if a.BusinessID == businessID && !a.Day.Before(from) && !a.Day.After(to) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *stubStore) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := s.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (s *stubStore) CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	s.createCalls++
	if s.failCreate != nil {
		return nil, s.failCreate
	}
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	s.appointments[a.ID] = a
	return &a, nil
}

func (s *stubStore) UpdateAppointment(ctx context.Context, id uuid.UUID, patch AppointmentPatch) (*Appointment, error) {
	if s.failUpdate != nil {
		return nil, s.failUpdate
	}
	a, ok := s.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	applyPatch(&a, patch)
	a.UpdatedAt = time.Now()
	s.appointments[id] = a
	return &a, nil
}

func (s *stubStore) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, reason string) (*Appointment, error) {
	if s.failStatus != nil {
		return nil, s.failStatus
	}
	a, ok := s.appointments[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	if reason != "" {
		a.CancelReason = reason
	}
	a.UpdatedAt = time.Now()
	s.appointments[id] = a
	return &a, nil
}

func (s *stubStore) ListBlockedTimes(ctx context.Context, staffID uuid.UUID, from, to time.Time) ([]BlockedTime, error) {
	var out []BlockedTime
	for _, b := range s.blocks {
		if b.StaffID == staffID && !b.Day.Before(from) && !b.Day.After(to) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *stubStore) CreateBlockedTime(ctx context.Context, b BlockedTime) (*BlockedTime, error) {
	b.ID = uuid.New()
	b.CreatedAt = time.Now()
	s.blocks[b.ID] = b
	return &b, nil
}

func (s *stubStore) DeleteBlockedTime(ctx context.Context, id uuid.UUID) error {
	if _, ok := s.blocks[id]; !ok {
		return ErrBlockedTimeNotFound
	}
	delete(s.blocks, id)
	return nil
}

func (s *stubStore) FindElapsedConfirmed(ctx context.Context, now time.Time) ([]Appointment, error) {
	minute := now.Hour()*60 + now.Minute()
	var out []Appointment
	for _, a := range s.appointments {
		if a.Status != StatusConfirmed {
			continue
		}
		if a.Day.Before(schedule.Day(now)) || (schedule.SameDay(a.Day, now) && a.End() <= minute) {
			out = append(out, a)
		}
	}
	return out, nil
}

// stubHours hands out one profile for every weekday.
type stubHours struct {
	profile schedule.WorkingHours
	missing bool
}

func (s *stubHours) GetProfile(ctx context.Context, staffID uuid.UUID, weekday time.Weekday) (*schedule.WorkingHours, error) {
	if s.missing {
		return nil, ErrProfileNotFound
	}
	p := s.profile
	p.StaffID = staffID
	p.Weekday = weekday
	return &p, nil
}

// stubLocker runs fn inline, or refuses when held.
type stubLocker struct {
	held  bool
	calls int
}

func (l *stubLocker) WithScheduleLock(ctx context.Context, staffID uuid.UUID, day time.Time, fn func(ctx context.Context) error) error {
	l.calls++
	if l.held {
		return redisclient.ErrLockNotAcquired
	}
	return fn(ctx)
}

type fixture struct {
	svc    *Service
	store  *stubStore
	hours  *stubHours
	locker *stubLocker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newStubStore()
	hours := &stubHours{profile: schedule.WorkingHours{
		Open:       9 * 60,
		Close:      18 * 60,
		LunchStart: 13 * 60,
		LunchEnd:   14 * 60,
		Available:  true,
	}}
	locker := &stubLocker{}
	svc := NewService(store, hours, locker, 5*time.Second, zap.NewNop())
	return &fixture{svc: svc, store: store, hours: hours, locker: locker}
}

var (
	bizID   = uuid.New()
	staffID = uuid.New()
	svcID   = uuid.New()
	day     = time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC)
)

func createReq(clock string, duration int) CreateRequest {
	return CreateRequest{
		BusinessID: bizID,
		StaffID:    staffID,
		ServiceID:  svcID,
		Day:        day,
		StartClock: clock,
		Duration:   duration,
	}
}

func TestCreatePendingByDefault(t *testing.T) {
	f := newFixture(t)

	appt, err := f.svc.Create(context.Background(), createReq("10:00", 30))
	require.NoError(t, err)
	assert.Equal(t, StatusPending, appt.Status)
	assert.Equal(t, 600, appt.Start)
	assert.Equal(t, 30, appt.Duration)
	assert.NotEqual(t, uuid.Nil, appt.ID)

	// Phase 1: the window cache is patched optimistically.
	cached, ok := f.svc.Cache().Get(appt.ID)
	require.True(t, ok)
	assert.Equal(t, appt.ID, cached.ID)
}

func TestCreateByStaffStartsConfirmed(t *testing.T) {
	f := newFixture(t)

	req := createReq("10:00", 30)
	req.ByStaff = true
	appt, err := f.svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, appt.Status)
}

func TestCreateRejectsBadClockBeforeStore(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), createReq("9:00", 30))
	require.ErrorIs(t, err, timeutil.ErrFormat)
	assert.Zero(t, f.store.createCalls, "store must not be contacted on local validation failure")
}

func TestCreateRejectsOffGranularityStart(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), createReq("09:05", 30))
	require.ErrorIs(t, err, schedule.ErrGranularity)
	assert.Zero(t, f.store.createCalls)

	_, err = f.svc.Create(context.Background(), createReq("09:10", 30))
	require.NoError(t, err)
}

func TestCreateExplicitEndGranularity(t *testing.T) {
	f := newFixture(t)

	req := createReq("10:00", 0)
	req.EndClock = "10:25"
	_, err := f.svc.Create(context.Background(), req)
	require.ErrorIs(t, err, schedule.ErrGranularity)

	req.EndClock = "10:30"
	appt, err := f.svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 30, appt.Duration)
}

func TestCreateDoubleBooking(t *testing.T) {
	f := newFixture(t)

	// Staff has a confirmed appointment 10:00 - 10:30.
	first := createReq("10:00", 30)
	first.ByStaff = true
	_, err := f.svc.Create(context.Background(), first)
	require.NoError(t, err)

	// 10:15 for 30m collides.
	_, err = f.svc.Create(context.Background(), createReq("10:15", 30))
	require.ErrorIs(t, err, schedule.ErrConflict)

	// 10:30 for 30m is adjacent and accepted.
	_, err = f.svc.Create(context.Background(), createReq("10:30", 30))
	require.NoError(t, err)
}

func TestCreateConflictsWithBlockedTime(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateBlock(context.Background(), BlockRequest{
		StaffID:    staffID,
		Day:        day,
		StartClock: "12:00",
		Duration:   60,
		Kind:       BlockBreak,
	})
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), createReq("12:30", 30))
	require.ErrorIs(t, err, schedule.ErrConflict)
}

func TestCreateCancelledDoesNotBlock(t *testing.T) {
	f := newFixture(t)

	appt, err := f.svc.Create(context.Background(), createReq("10:00", 30))
	require.NoError(t, err)
	require.NoError(t, f.svc.Cancel(context.Background(), appt.ID, ""))

	// The cancelled slot is free again.
	_, err = f.svc.Create(context.Background(), createReq("10:00", 30))
	require.NoError(t, err)
}

func TestCreateStaffUnavailable(t *testing.T) {
	f := newFixture(t)
	f.hours.profile.Available = false

	_, err := f.svc.Create(context.Background(), createReq("10:00", 30))
	require.ErrorIs(t, err, ErrStaffUnavailable)
}

func TestCreateScheduleBusy(t *testing.T) {
	f := newFixture(t)
	f.locker.held = true

	_, err := f.svc.Create(context.Background(), createReq("10:00", 30))
	require.ErrorIs(t, err, ErrScheduleBusy)
}

func TestCreateStoreFailure(t *testing.T) {
	f := newFixture(t)
	f.store.failCreate = errors.New("connection reset")

	_, err := f.svc.Create(context.Background(), createReq("10:00", 30))
	require.ErrorIs(t, err, ErrStore)
	assert.Empty(t, f.svc.Cache().Snapshot(), "no optimistic state may linger after a store failure")
}

func TestUpdateRevalidatesExcludingSelf(t *testing.T) {
	f := newFixture(t)

	appt, err := f.svc.Create(context.Background(), createReq("10:00", 30))
	require.NoError(t, err)

	// Shifting the booking by 10 minutes overlaps its own old interval,
	// which must not count as a conflict.
	newStart := 610
	updated, err := f.svc.Update(context.Background(), appt.ID, AppointmentPatch{Start: &newStart})
	require.NoError(t, err)
	assert.Equal(t, 610, updated.Start)
}

func TestUpdateConflictsWithOtherBooking(t *testing.T) {
	f := newFixture(t)

	appt, err := f.svc.Create(context.Background(), createReq("10:00", 30))
	require.NoError(t, err)
	_, err = f.svc.Create(context.Background(), createReq("11:00", 30))
	require.NoError(t, err)

	// Moving the first onto the second collides.
	newStart := 11 * 60
	_, err = f.svc.Update(context.Background(), appt.ID, AppointmentPatch{Start: &newStart})
	require.ErrorIs(t, err, schedule.ErrConflict)
}

func TestUpdateRollsBackOptimisticPatchOnStoreError(t *testing.T) {
	f := newFixture(t)

	appt, err := f.svc.Create(context.Background(), createReq("10:00", 30))
	require.NoError(t, err)

	f.store.failUpdate = errors.New("timeout")
	newNotes := "vip"
	_, err = f.svc.Update(context.Background(), appt.ID, AppointmentPatch{Notes: &newNotes})
	require.ErrorIs(t, err, ErrStore)

	cached, ok := f.svc.Cache().Get(appt.ID)
	require.True(t, ok)
	assert.Empty(t, cached.Notes, "optimistic notes patch must be rolled back")
}

func TestCancelIdempotent(t *testing.T) {
	f := newFixture(t)

	appt, err := f.svc.Create(context.Background(), createReq("10:00", 30))
	require.NoError(t, err)

	require.NoError(t, f.svc.Cancel(context.Background(), appt.ID, "no-show"))
	// Second cancel is a no-op success.
	require.NoError(t, f.svc.Cancel(context.Background(), appt.ID, "again"))

	stored, err := f.store.GetAppointment(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, stored.Status)
	assert.Equal(t, "no-show", stored.CancelReason)
}

func TestCancelCompletedRejected(t *testing.T) {
	f := newFixture(t)

	req := createReq("10:00", 30)
	req.ByStaff = true
	appt, err := f.svc.Create(context.Background(), req)
	require.NoError(t, err)
	_, err = f.svc.ChangeStatus(context.Background(), appt.ID, StatusCompleted)
	require.NoError(t, err)

	err = f.svc.Cancel(context.Background(), appt.ID, "")
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestChangeStatusTerminalRejected(t *testing.T) {
	f := newFixture(t)

	appt, err := f.svc.Create(context.Background(), createReq("10:00", 30))
	require.NoError(t, err)
	require.NoError(t, f.svc.Cancel(context.Background(), appt.ID, ""))

	_, err = f.svc.ChangeStatus(context.Background(), appt.ID, StatusConfirmed)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestChangeStatusConfirm(t *testing.T) {
	f := newFixture(t)

	appt, err := f.svc.Create(context.Background(), createReq("10:00", 30))
	require.NoError(t, err)

	updated, err := f.svc.ChangeStatus(context.Background(), appt.ID, StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, updated.Status)
}

func TestRefreshReplacesCacheWholesale(t *testing.T) {
	f := newFixture(t)

	appt, err := f.svc.Create(context.Background(), createReq("10:00", 30))
	require.NoError(t, err)

	// Plant a stale optimistic entry that the store does not know about.
	ghost := *appt
	ghost.ID = uuid.New()
	f.svc.Cache().Upsert(ghost)
	require.Len(t, f.svc.Cache().Snapshot(), 2)

	require.NoError(t, f.svc.Refresh(context.Background(), bizID, day, day.AddDate(0, 0, 6)))

	snap := f.svc.Cache().Snapshot()
	require.Len(t, snap, 1, "refresh must fully replace, not merge")
	assert.Equal(t, appt.ID, snap[0].ID)
}

func TestAvailabilityReflectsBookings(t *testing.T) {
	f := newFixture(t)

	req := createReq("10:00", 30)
	req.ByStaff = true
	_, err := f.svc.Create(context.Background(), req)
	require.NoError(t, err)

	slots, err := f.svc.Availability(context.Background(), staffID, day, 30)
	require.NoError(t, err)
	assert.NotContains(t, slots.Morning, "10:00")
	assert.NotContains(t, slots.Morning, "09:40")
	assert.Contains(t, slots.Morning, "10:30")
}

func TestAvailabilityMissingProfile(t *testing.T) {
	f := newFixture(t)
	f.hours.missing = true

	slots, err := f.svc.Availability(context.Background(), staffID, day, 30)
	require.NoError(t, err)
	assert.True(t, slots.Empty())
}

func TestDeleteBlockReopensSlot(t *testing.T) {
	f := newFixture(t)

	block, err := f.svc.CreateBlock(context.Background(), BlockRequest{
		StaffID:    staffID,
		Day:        day,
		StartClock: "15:00",
		Duration:   60,
		Kind:       BlockManual,
	})
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), createReq("15:00", 30))
	require.ErrorIs(t, err, schedule.ErrConflict)

	require.NoError(t, f.svc.DeleteBlock(context.Background(), block.ID))

	_, err = f.svc.Create(context.Background(), createReq("15:00", 30))
	require.NoError(t, err)
}

func TestDeleteBlockNotFound(t *testing.T) {
	f := newFixture(t)
	err := f.svc.DeleteBlock(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrBlockedTimeNotFound)
}

func TestCreateBlockOffGranularity(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateBlock(context.Background(), BlockRequest{
		StaffID:    staffID,
		Day:        day,
		StartClock: "15:05",
		Duration:   30,
		Kind:       BlockBreak,
	})
	require.ErrorIs(t, err, schedule.ErrGranularity)
}

func TestCompleteElapsed(t *testing.T) {
	f := newFixture(t)

	req := createReq("10:00", 30)
	req.ByStaff = true
	appt, err := f.svc.Create(context.Background(), req)
	require.NoError(t, err)

	pendingReq := createReq("11:00", 30)
	pending, err := f.svc.Create(context.Background(), pendingReq)
	require.NoError(t, err)

	f.svc.now = func() time.Time {
		return time.Date(2024, 1, 17, 12, 0, 0, 0, time.UTC)
	}

	n, err := f.svc.CompleteElapsed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err := f.store.GetAppointment(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, stored.Status)

	// Pending appointments are untouched by the completion sweep.
	stored, err = f.store.GetAppointment(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, stored.Status)
}
