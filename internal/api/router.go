package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hackgods/salon-scheduler/internal/booking"
	"github.com/hackgods/salon-scheduler/internal/schedule"
)

type RouterConfig struct {
	Service *booking.Service
	Grid    schedule.Grid
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Logger  *zap.Logger
	Metrics *Metrics
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Appointment endpoints
	r.Post("/appointments", createAppointmentHandler(cfg.Service, cfg.Metrics))
	r.Get("/appointments", listAppointmentsHandler(cfg.Service))
	r.Patch("/appointments/{id}", updateAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Service, cfg.Metrics))
	r.Post("/appointments/{id}/status", changeStatusHandler(cfg.Service))

	// Blocked time endpoints
	r.Post("/blocked-times", createBlockHandler(cfg.Service))
	r.Delete("/blocked-times/{id}", deleteBlockHandler(cfg.Service))

	// Availability and calendar
	r.Get("/availability", availabilityHandler(cfg.Service))
	r.Get("/calendar/week", calendarWeekHandler(cfg))

	return r
}
