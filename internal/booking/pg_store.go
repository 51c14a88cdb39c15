package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hackgods/salon-scheduler/internal/schedule"
)

// DB is the slice of pgxpool.Pool the store needs. pgxmock satisfies it
// too, which keeps the store testable without a database.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgStore struct {
	db DB
}

func NewPgStore(db DB) *PgStore {
	return &PgStore{db: db}
}

// Helpers

const appointmentColumns = `
	id, business_id, staff_id, customer_id, service_id,
	day, start_minutes, duration_minutes, price_cents,
	status, notes, cancel_reason, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var customerID *uuid.UUID

	err := row.Scan(
		&a.ID,
		&a.BusinessID,
		&a.StaffID,
		&customerID,
		&a.ServiceID,
		&a.Day,
		&a.Start,
		&a.Duration,
		&a.PriceCents,
		&a.Status,
		&a.Notes,
		&a.CancelReason,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.CustomerID = customerID
	return &a, nil
}

func scanBlockedTime(row pgx.Row) (*BlockedTime, error) {
	var b BlockedTime

	err := row.Scan(
		&b.ID,
		&b.StaffID,
		&b.Day,
		&b.Start,
		&b.Duration,
		&b.Kind,
		&b.Note,
		&b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBlockedTimeNotFound
		}
		return nil, err
	}

	return &b, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// Interface methods

func (s *PgStore) ListByStaffAndDateRange(ctx context.Context, staffID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE staff_id = $1 AND day BETWEEN $2 AND $3
		ORDER BY day, start_minutes
	`, staffID, from, to)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (s *PgStore) ListByBusinessAndDateRange(ctx context.Context, businessID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE business_id = $1 AND day BETWEEN $2 AND $3
		ORDER BY day, start_minutes
	`, businessID, from, to)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (s *PgStore) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := s.db.QueryRow(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (s *PgStore) CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO appointments (
			id, business_id, staff_id, customer_id, service_id,
			day, start_minutes, duration_minutes, price_cents,
			status, notes, cancel_reason, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, '', now(), now())
		RETURNING`+appointmentColumns+`
	`, uuid.New(), a.BusinessID, a.StaffID, a.CustomerID, a.ServiceID,
		a.Day, a.Start, a.Duration, a.PriceCents, a.Status, a.Notes)
	return scanAppointment(row)
}

func (s *PgStore) UpdateAppointment(ctx context.Context, id uuid.UUID, patch AppointmentPatch) (*Appointment, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE appointments SET
			staff_id         = COALESCE($2, staff_id),
			service_id       = COALESCE($3, service_id),
			day              = COALESCE($4, day),
			start_minutes    = COALESCE($5, start_minutes),
			duration_minutes = COALESCE($6, duration_minutes),
			price_cents      = COALESCE($7, price_cents),
			notes            = COALESCE($8, notes),
			updated_at       = now()
		WHERE id = $1
		RETURNING`+appointmentColumns+`
	`, id, patch.StaffID, patch.ServiceID, patch.Day, patch.Start,
		patch.Duration, patch.PriceCents, patch.Notes)
	return scanAppointment(row)
}

func (s *PgStore) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, reason string) (*Appointment, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE appointments SET
			status        = $3,
			cancel_reason = CASE WHEN $4 <> '' THEN $4 ELSE cancel_reason END,
			updated_at    = now()
		WHERE id = $1 AND status = $2
		RETURNING`+appointmentColumns+`
	`, id, from, to, reason)
	return scanAppointment(row)
}

func (s *PgStore) ListBlockedTimes(ctx context.Context, staffID uuid.UUID, from, to time.Time) ([]BlockedTime, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, staff_id, day, start_minutes, duration_minutes, kind, note, created_at
		FROM blocked_times
		WHERE staff_id = $1 AND day BETWEEN $2 AND $3
		ORDER BY day, start_minutes
	`, staffID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BlockedTime
	for rows.Next() {
		b, err := scanBlockedTime(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (s *PgStore) CreateBlockedTime(ctx context.Context, b BlockedTime) (*BlockedTime, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO blocked_times (id, staff_id, day, start_minutes, duration_minutes, kind, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		RETURNING id, staff_id, day, start_minutes, duration_minutes, kind, note, created_at
	`, uuid.New(), b.StaffID, b.Day, b.Start, b.Duration, b.Kind, b.Note)
	return scanBlockedTime(row)
}

func (s *PgStore) DeleteBlockedTime(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM blocked_times WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBlockedTimeNotFound
	}
	return nil
}

func (s *PgStore) FindElapsedConfirmed(ctx context.Context, now time.Time) ([]Appointment, error) {
	day := schedule.Day(now)
	minute := now.Hour()*60 + now.Minute()

	rows, err := s.db.Query(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE status = 'confirmed'
		  AND (day < $1 OR (day = $1 AND start_minutes + duration_minutes <= $2))
		ORDER BY day, start_minutes
	`, day, minute)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

// PgHoursStore reads working-hour profiles.
type PgHoursStore struct {
	db DB
}

func NewPgHoursStore(db DB) *PgHoursStore {
	return &PgHoursStore{db: db}
}

func (s *PgHoursStore) GetProfile(ctx context.Context, staffID uuid.UUID, weekday time.Weekday) (*schedule.WorkingHours, error) {
	var h schedule.WorkingHours
	var wd int

	err := s.db.QueryRow(ctx, `
		SELECT staff_id, weekday, open_minutes, close_minutes, lunch_start, lunch_end, available
		FROM working_hours
		WHERE staff_id = $1 AND weekday = $2
	`, staffID, int(weekday)).Scan(
		&h.StaffID,
		&wd,
		&h.Open,
		&h.Close,
		&h.LunchStart,
		&h.LunchEnd,
		&h.Available,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	h.Weekday = time.Weekday(wd)
	return &h, nil
}
