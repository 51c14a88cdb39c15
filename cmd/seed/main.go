package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/salon-scheduler/internal/db"
	"github.com/hackgods/salon-scheduler/internal/timeutil"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	if err := createSchema(context.Background(), pool); err != nil {
		log.Fatalf("create schema: %v", err)
	}

	businessIDs, err := seedBusinesses(context.Background(), pool, 5)
	if err != nil {
		log.Fatalf("seed businesses: %v", err)
	}
	staffIDs, err := seedStaff(context.Background(), pool, businessIDs, 6)
	if err != nil {
		log.Fatalf("seed staff: %v", err)
	}
	serviceIDs, err := seedServices(context.Background(), pool, businessIDs)
	if err != nil {
		log.Fatalf("seed services: %v", err)
	}
	if err := seedWorkingHours(context.Background(), pool, staffIDs); err != nil {
		log.Fatalf("seed working hours: %v", err)
	}
	if err := seedAppointments(context.Background(), pool, businessIDs, staffIDs, serviceIDs, 2000); err != nil {
		log.Fatalf("seed appointments: %v", err)
	}

	log.Println("seed complete")
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS businesses (
		id         uuid PRIMARY KEY,
		name       text NOT NULL,
		timezone   text NOT NULL DEFAULT 'UTC',
		created_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS staff (
		id          uuid PRIMARY KEY,
		business_id uuid NOT NULL REFERENCES businesses(id),
		name        text NOT NULL,
		role        text NOT NULL DEFAULT '',
		created_at  timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS services (
		id               uuid PRIMARY KEY,
		business_id      uuid NOT NULL REFERENCES businesses(id),
		name             text NOT NULL,
		duration_minutes int  NOT NULL,
		price_cents      bigint NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS customers (
		id          uuid PRIMARY KEY,
		business_id uuid NOT NULL REFERENCES businesses(id),
		name        text NOT NULL,
		phone       text NOT NULL DEFAULT '',
		email       text NOT NULL DEFAULT '',
		created_at  timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS working_hours (
		staff_id      uuid NOT NULL REFERENCES staff(id),
		weekday       int  NOT NULL,
		open_minutes  int  NOT NULL,
		close_minutes int  NOT NULL,
		lunch_start   int  NOT NULL DEFAULT 0,
		lunch_end     int  NOT NULL DEFAULT 0,
		available     bool NOT NULL DEFAULT true,
		PRIMARY KEY (staff_id, weekday)
	)`,
	`CREATE TABLE IF NOT EXISTS appointments (
		id               uuid PRIMARY KEY,
		business_id      uuid NOT NULL REFERENCES businesses(id),
		staff_id         uuid NOT NULL REFERENCES staff(id),
		customer_id      uuid REFERENCES customers(id),
		service_id       uuid NOT NULL REFERENCES services(id),
		day              date NOT NULL,
		start_minutes    int  NOT NULL,
		duration_minutes int  NOT NULL,
		price_cents      bigint NOT NULL DEFAULT 0,
		status           text NOT NULL,
		notes            text NOT NULL DEFAULT '',
		cancel_reason    text NOT NULL DEFAULT '',
		created_at       timestamptz NOT NULL DEFAULT now(),
		updated_at       timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_appointments_staff_day ON appointments (staff_id, day)`,
	`CREATE INDEX IF NOT EXISTS idx_appointments_business_day ON appointments (business_id, day)`,
	`CREATE TABLE IF NOT EXISTS blocked_times (
		id               uuid PRIMARY KEY,
		staff_id         uuid NOT NULL REFERENCES staff(id),
		day              date NOT NULL,
		start_minutes    int  NOT NULL,
		duration_minutes int  NOT NULL,
		kind             text NOT NULL,
		note             text NOT NULL DEFAULT '',
		created_at       timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_blocked_times_staff_day ON blocked_times (staff_id, day)`,
}

func createSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	log.Println("schema ready")
	return nil
}

func seedBusinesses(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d businesses", count)

	ids := make([]uuid.UUID, 0, count)
	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Company() + " Salon"

		_, err := tx.Exec(ctx, `
			INSERT INTO businesses (id, name, timezone)
			VALUES ($1, $2, 'UTC')
		`, id, name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("businesses seeded")
	return ids, nil
}

func seedStaff(ctx context.Context, pool *pgxpool.Pool, businessIDs []uuid.UUID, perBusiness int) ([]uuid.UUID, error) {
	log.Printf("seeding %d staff per business", perBusiness)

	roles := []string{"barber", "stylist", "colorist", "nail tech"}

	var ids []uuid.UUID
	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	for _, bizID := range businessIDs {
		for i := 0; i < perBusiness; i++ {
			id := uuid.New()
			name := gofakeit.Name()
			role := roles[gofakeit.Number(0, len(roles)-1)]

			_, err := tx.Exec(ctx, `
				INSERT INTO staff (id, business_id, name, role)
				VALUES ($1, $2, $3, $4)
			`, id, bizID, name, role)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("staff seeded")
	return ids, nil
}

func seedServices(ctx context.Context, pool *pgxpool.Pool, businessIDs []uuid.UUID) ([]uuid.UUID, error) {
	type svc struct {
		name     string
		duration int
		price    int64
	}
	catalog := []svc{
		{"Haircut", 30, 3500},
		{"Beard Trim", 20, 2000},
		{"Color", 90, 12000},
		{"Blowout", 40, 4500},
		{"Shave", 30, 3000},
		{"Kids Cut", 20, 2500},
	}

	var ids []uuid.UUID
	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	for _, bizID := range businessIDs {
		for _, s := range catalog {
			id := uuid.New()
			_, err := tx.Exec(ctx, `
				INSERT INTO services (id, business_id, name, duration_minutes, price_cents)
				VALUES ($1, $2, $3, $4, $5)
			`, id, bizID, s.name, s.duration, s.price)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("services seeded")
	return ids, nil
}

func seedWorkingHours(ctx context.Context, pool *pgxpool.Pool, staffIDs []uuid.UUID) error {
	log.Printf("seeding working hours for %d staff", len(staffIDs))

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, staffID := range staffIDs {
		for weekday := 0; weekday < 7; weekday++ {
			// Closed Sundays, everyone off
			available := weekday != 0
			open := 9 * timeutil.MinutesPerHour
			close := 18 * timeutil.MinutesPerHour
			lunchStart := 12 * timeutil.MinutesPerHour
			lunchEnd := 13 * timeutil.MinutesPerHour

			_, err := tx.Exec(ctx, `
				INSERT INTO working_hours (staff_id, weekday, open_minutes, close_minutes, lunch_start, lunch_end, available)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, staffID, weekday, open, close, lunchStart, lunchEnd, available)
			if err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("working hours seeded")
	return nil
}

func seedAppointments(ctx context.Context, pool *pgxpool.Pool, businessIDs, staffIDs, serviceIDs []uuid.UUID, count int) error {
	log.Printf("seeding %d appointments", count)

	const batchSize = 500

	durations := []int{20, 30, 40, 60, 90}
	statuses := []string{"pending", "confirmed", "confirmed", "completed", "cancelled"}

	// Reserve occupied cells so generated bookings never overlap
	taken := make(map[string]bool)
	reserve := func(staffID uuid.UUID, day string, start, duration int) bool {
		for m := start; m < start+duration; m += timeutil.Granularity {
			if taken[day+staffID.String()+strconv.Itoa(m)] {
				return false
			}
		}
		for m := start; m < start+duration; m += timeutil.Granularity {
			taken[day+staffID.String()+strconv.Itoa(m)] = true
		}
		return true
	}

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			bizID := businessIDs[gofakeit.Number(0, len(businessIDs)-1)]
			staffID := staffIDs[gofakeit.Number(0, len(staffIDs)-1)]
			serviceID := serviceIDs[gofakeit.Number(0, len(serviceIDs)-1)]
			day := time.Now().AddDate(0, 0, gofakeit.Number(-14, 14))
			duration := durations[gofakeit.Number(0, len(durations)-1)]

			// Aligned starts between 09:00 and 17:00
			start := 9*timeutil.MinutesPerHour + timeutil.Granularity*gofakeit.Number(0, 48)
			status := statuses[gofakeit.Number(0, len(statuses)-1)]

			if status != "cancelled" && !reserve(staffID, day.Format("2006-01-02"), start, duration) {
				continue
			}

			_, err := tx.Exec(ctx, `
				INSERT INTO appointments (
					id, business_id, staff_id, customer_id, service_id,
					day, start_minutes, duration_minutes, price_cents, status
				)
				VALUES ($1, $2, $3, NULL, $4, $5, $6, $7, $8, $9)
			`, id, bizID, staffID, serviceID, day, start, duration, int64(duration)*100, status)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("appointments seeded: %d/%d", end, count)
	}

	log.Println("appointments seeded")
	return nil
}
