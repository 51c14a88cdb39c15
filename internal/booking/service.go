package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	redisclient "github.com/hackgods/salon-scheduler/internal/redis"
	"github.com/hackgods/salon-scheduler/internal/schedule"
	"github.com/hackgods/salon-scheduler/internal/timeutil"
)

var (
	ErrScheduleBusy     = errors.New("schedule is being modified, please retry")
	ErrStaffUnavailable = errors.New("staff member is not available on that day")
)

// Service is the booking lifecycle manager. All mutations validate locally
// first (format, granularity, conflicts; no store round-trip on failure),
// commit to the store under a per staff/day lock, patch the window cache
// optimistically, and rely on the caller to run Refresh for the
// authoritative reconciliation pass.
//
// The lock serializes writers that share this service's Redis. Two clients
// on independent deployments can still both pass validation and insert
// overlapping rows; closing that race needs a store-side exclusion
// constraint, which is outside this service.
type Service struct {
	store        Store
	hours        HoursStore
	locker       redisclient.Locker
	cache        *WindowCache
	log          *zap.Logger
	storeTimeout time.Duration
	now          func() time.Time
}

func NewService(store Store, hours HoursStore, locker redisclient.Locker, storeTimeout time.Duration, log *zap.Logger) *Service {
	if storeTimeout <= 0 {
		storeTimeout = 10 * time.Second
	}
	return &Service{
		store:        store,
		hours:        hours,
		locker:       locker,
		cache:        NewWindowCache(),
		log:          log,
		storeTimeout: storeTimeout,
		now:          time.Now,
	}
}

// Cache exposes the service's window cache to its owning view.
func (s *Service) Cache() *WindowCache {
	return s.cache
}

// CreateRequest describes a proposed booking. StartClock is "HH:MM".
// Duration normally comes from the chosen service; when EndClock is set
// the duration is derived from it instead and must sit on the booking
// granularity. ByStaff marks walk-ins and manual entries, which start out
// confirmed rather than pending.
type CreateRequest struct {
	BusinessID uuid.UUID
	StaffID    uuid.UUID
	CustomerID *uuid.UUID
	ServiceID  uuid.UUID
	Day        time.Time
	StartClock string
	Duration   int
	EndClock   string
	PriceCents int64
	Notes      string
	ByStaff    bool
}

// Create validates and persists a new appointment. Validation failures
// (ErrFormat, ErrGranularity, ErrConflict) surface before any store call.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Appointment, error) {
	start, err := timeutil.ToMinutes(req.StartClock)
	if err != nil {
		return nil, err
	}

	duration := req.Duration
	explicitEnd := req.EndClock != ""
	if explicitEnd {
		end, err := timeutil.ToMinutes(req.EndClock)
		if err != nil {
			return nil, err
		}
		duration = end - start
	}

	day := schedule.Day(req.Day)

	profile, err := s.hours.GetProfile(ctx, req.StaffID, day.Weekday())
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return nil, ErrStaffUnavailable
		}
		return nil, fmt.Errorf("load working hours: %w", err)
	}
	if !profile.Available {
		return nil, ErrStaffUnavailable
	}

	status := StatusPending
	if req.ByStaff {
		status = StatusConfirmed
	}

	proposed := schedule.Interval{
		StaffID:  req.StaffID,
		Day:      day,
		Start:    start,
		Duration: duration,
	}

	var created *Appointment

	err = s.locker.WithScheduleLock(ctx, req.StaffID, day, func(lockCtx context.Context) error {
		busy, err := s.busyFor(lockCtx, req.StaffID, day)
		if err != nil {
			return err
		}
		if err := schedule.Validate(proposed, explicitEnd, uuid.Nil, busy); err != nil {
			return err
		}

		storeCtx, cancel := context.WithTimeout(lockCtx, s.storeTimeout)
		defer cancel()

		appt, err := s.store.CreateAppointment(storeCtx, Appointment{
			BusinessID: req.BusinessID,
			StaffID:    req.StaffID,
			CustomerID: req.CustomerID,
			ServiceID:  req.ServiceID,
			Day:        day,
			Start:      start,
			Duration:   duration,
			PriceCents: req.PriceCents,
			Status:     status,
			Notes:      req.Notes,
		})
		if err != nil {
			return fmt.Errorf("%w: create appointment: %v", ErrStore, err)
		}

		created = appt
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrScheduleBusy
		}
		return nil, err
	}

	s.cache.Upsert(*created)
	s.log.Info("appointment created",
		zap.String("appointment_id", created.ID.String()),
		zap.String("staff_id", created.StaffID.String()),
		zap.String("day", created.Day.Format(schedule.DayLayout)),
		zap.String("range", created.Interval().Range()),
		zap.String("status", string(created.Status)),
	)
	return created, nil
}

// Update applies a partial edit. Any change that moves the appointment on
// the grid re-runs conflict validation, excluding the record's own id. The
// cache is patched optimistically before the store call and rolled back if
// the store fails.
func (s *Service) Update(ctx context.Context, id uuid.UUID, patch AppointmentPatch) (*Appointment, error) {
	current, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}

	next := *current
	applyPatch(&next, patch)
	day := schedule.Day(next.Day)

	mutate := func(lockCtx context.Context) error {
		if patch.TouchesSchedule() {
			busy, err := s.busyFor(lockCtx, next.StaffID, day)
			if err != nil {
				return err
			}
			if err := schedule.Validate(next.Interval(), patch.Duration != nil, id, busy); err != nil {
				return err
			}
		}

		// Optimistic patch; rolled back below on store failure.
		prior, hadPrior := s.cache.Get(id)
		s.cache.Upsert(next)

		storeCtx, cancel := context.WithTimeout(lockCtx, s.storeTimeout)
		defer cancel()

		updated, err := s.store.UpdateAppointment(storeCtx, id, patch)
		if err != nil {
			if hadPrior {
				s.cache.Upsert(prior)
			} else {
				s.cache.Remove(id)
			}
			if errors.Is(err, ErrAppointmentNotFound) {
				return err
			}
			return fmt.Errorf("%w: update appointment: %v", ErrStore, err)
		}

		s.cache.Upsert(*updated)
		next = *updated
		return nil
	}

	if patch.TouchesSchedule() {
		err = s.locker.WithScheduleLock(ctx, next.StaffID, day, mutate)
	} else {
		err = mutate(ctx)
	}
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrScheduleBusy
		}
		return nil, err
	}

	s.log.Info("appointment updated", zap.String("appointment_id", id.String()))
	return &next, nil
}

// Cancel moves an appointment to cancelled, recording an optional reason.
// Cancelling an already-cancelled appointment is a no-op. There is no
// cutoff window: cancellation is permitted up to the start time.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string) error {
	current, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return err
	}
	if current.Status == StatusCancelled {
		return nil
	}

	next := *current
	if err := next.MarkCancelled(reason); err != nil {
		return err
	}

	prior, hadPrior := s.cache.Get(id)
	s.cache.Upsert(next)

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	updated, err := s.store.UpdateStatus(storeCtx, id, current.Status, StatusCancelled, reason)
	if err != nil {
		if hadPrior {
			s.cache.Upsert(prior)
		} else {
			s.cache.Remove(id)
		}
		if errors.Is(err, ErrAppointmentNotFound) {
			return err
		}
		return fmt.Errorf("%w: cancel appointment: %v", ErrStore, err)
	}

	s.cache.Upsert(*updated)
	s.log.Info("appointment cancelled",
		zap.String("appointment_id", id.String()),
		zap.String("reason", reason),
	)
	return nil
}

// ChangeStatus applies a bare status transition. The interval does not
// change, so conflicts are not re-checked; the transition table is the
// only gate.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, to Status) (*Appointment, error) {
	current, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if to == StatusCancelled && current.Status == StatusCancelled {
		return current, nil
	}
	if !CanTransition(current.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, to)
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	updated, err := s.store.UpdateStatus(storeCtx, id, current.Status, to, "")
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: change status: %v", ErrStore, err)
	}

	s.cache.Upsert(*updated)
	s.log.Info("appointment status changed",
		zap.String("appointment_id", id.String()),
		zap.String("from", string(current.Status)),
		zap.String("to", string(to)),
	)
	return updated, nil
}

// BlockRequest describes a staff-authored blocked stretch.
type BlockRequest struct {
	StaffID    uuid.UUID
	Day        time.Time
	StartClock string
	Duration   int
	Kind       BlockKind
	Note       string
}

// CreateBlock reserves a break or manual closure on the grid. Block starts
// follow the same granularity rule as bookings; blocks are allowed to
// cover existing appointments (closing over a booked stretch is a staff
// decision, not a conflict).
func (s *Service) CreateBlock(ctx context.Context, req BlockRequest) (*BlockedTime, error) {
	start, err := timeutil.ToMinutes(req.StartClock)
	if err != nil {
		return nil, err
	}
	if !timeutil.Aligned(start) || req.Duration <= 0 {
		return nil, fmt.Errorf("%w: block start %s", schedule.ErrGranularity, req.StartClock)
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	block, err := s.store.CreateBlockedTime(storeCtx, BlockedTime{
		StaffID:  req.StaffID,
		Day:      schedule.Day(req.Day),
		Start:    start,
		Duration: req.Duration,
		Kind:     req.Kind,
		Note:     req.Note,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create blocked time: %v", ErrStore, err)
	}

	s.log.Info("blocked time created",
		zap.String("block_id", block.ID.String()),
		zap.String("staff_id", block.StaffID.String()),
		zap.String("range", block.Interval().Range()),
	)
	return block, nil
}

// DeleteBlock hard-deletes a blocked time, reopening its slot. This is the
// only hard delete in the system: appointments are never deleted, only
// cancelled, and no appointment delete exists on this service.
func (s *Service) DeleteBlock(ctx context.Context, id uuid.UUID) error {
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.store.DeleteBlockedTime(storeCtx, id); err != nil {
		if errors.Is(err, ErrBlockedTimeNotFound) {
			return err
		}
		return fmt.Errorf("%w: delete blocked time: %v", ErrStore, err)
	}

	s.log.Info("blocked time deleted", zap.String("block_id", id.String()))
	return nil
}

// Availability resolves the bookable start times for a staff member, day
// and service duration, banded for presentation. A missing or unavailable
// profile yields empty bands.
func (s *Service) Availability(ctx context.Context, staffID uuid.UUID, day time.Time, durationMinutes int) (schedule.Slots, error) {
	day = schedule.Day(day)

	profile, err := s.hours.GetProfile(ctx, staffID, day.Weekday())
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return schedule.Slots{}, nil
		}
		return schedule.Slots{}, fmt.Errorf("load working hours: %w", err)
	}

	busy, err := s.busyFor(ctx, staffID, day)
	if err != nil {
		return schedule.Slots{}, err
	}

	intervals := make([]schedule.Interval, 0, len(busy))
	for _, b := range busy {
		if b.Blocking {
			intervals = append(intervals, b.Interval)
		}
	}

	starts := schedule.AvailableStarts(staffID, day, *profile, durationMinutes, intervals)
	return schedule.Band(starts), nil
}

// Refresh is the authoritative phase of the two-phase mutation contract:
// it re-fetches the business's appointments for a window in one ranged
// query and fully replaces the cache contents.
func (s *Service) Refresh(ctx context.Context, businessID uuid.UUID, from, to time.Time) error {
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	appts, err := s.store.ListByBusinessAndDateRange(storeCtx, businessID, schedule.Day(from), schedule.Day(to))
	if err != nil {
		return fmt.Errorf("%w: refresh window: %v", ErrStore, err)
	}

	s.cache.Replace(schedule.Day(from), schedule.Day(to), appts)
	return nil
}

// BlockedTimes lists a staff member's blocks for a window.
func (s *Service) BlockedTimes(ctx context.Context, staffID uuid.UUID, from, to time.Time) ([]BlockedTime, error) {
	return s.store.ListBlockedTimes(ctx, staffID, schedule.Day(from), schedule.Day(to))
}

// StaffAppointments lists one staff member's appointments for a window
// straight from the store.
func (s *Service) StaffAppointments(ctx context.Context, staffID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	return s.store.ListByStaffAndDateRange(ctx, staffID, schedule.Day(from), schedule.Day(to))
}

// CompleteElapsed moves confirmed appointments whose end time has passed
// to completed. Run periodically by the completion worker.
func (s *Service) CompleteElapsed(ctx context.Context) (int, error) {
	elapsed, err := s.store.FindElapsedConfirmed(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("find elapsed confirmed: %w", err)
	}

	completed := 0
	for _, a := range elapsed {
		if _, err := s.store.UpdateStatus(ctx, a.ID, StatusConfirmed, StatusCompleted, ""); err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				continue
			}
			s.log.Warn("failed to complete appointment",
				zap.String("appointment_id", a.ID.String()),
				zap.Error(err),
			)
			continue
		}
		completed++
	}
	return completed, nil
}

// busyFor gathers everything occupying one staff member's day: slot-holding
// appointments and all blocked times.
func (s *Service) busyFor(ctx context.Context, staffID uuid.UUID, day time.Time) ([]schedule.Busy, error) {
	appts, err := s.store.ListByStaffAndDateRange(ctx, staffID, day, day)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	blocks, err := s.store.ListBlockedTimes(ctx, staffID, day, day)
	if err != nil {
		return nil, fmt.Errorf("list blocked times: %w", err)
	}

	busy := make([]schedule.Busy, 0, len(appts)+len(blocks))
	for _, a := range appts {
		busy = append(busy, schedule.Busy{
			ID:       a.ID,
			Interval: a.Interval(),
			Blocking: a.Status.HoldsSlot(),
		})
	}
	for _, b := range blocks {
		busy = append(busy, schedule.Busy{
			ID:       b.ID,
			Interval: b.Interval(),
			Blocking: true,
		})
	}
	return busy, nil
}

func applyPatch(a *Appointment, p AppointmentPatch) {
	if p.StaffID != nil {
		a.StaffID = *p.StaffID
	}
	if p.ServiceID != nil {
		a.ServiceID = *p.ServiceID
	}
	if p.Day != nil {
		a.Day = schedule.Day(*p.Day)
	}
	if p.Start != nil {
		a.Start = *p.Start
	}
	if p.Duration != nil {
		a.Duration = *p.Duration
	}
	if p.PriceCents != nil {
		a.PriceCents = *p.PriceCents
	}
	if p.Notes != nil {
		a.Notes = *p.Notes
	}
}
