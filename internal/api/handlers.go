package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/salon-scheduler/internal/booking"
	"github.com/hackgods/salon-scheduler/internal/calendar"
	redisclient "github.com/hackgods/salon-scheduler/internal/redis"
	"github.com/hackgods/salon-scheduler/internal/schedule"
	"github.com/hackgods/salon-scheduler/internal/timeutil"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

func parseID(r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	return id, err == nil
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(schedule.DayLayout, s)
}

func createAppointmentHandler(svc *booking.Service, metrics *Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		businessID, err := uuid.Parse(req.BusinessID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_business_id", "business_id must be a valid UUID")
			return
		}
		staffID, err := uuid.Parse(req.StaffID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_staff_id", "staff_id must be a valid UUID")
			return
		}
		serviceID, err := uuid.Parse(req.ServiceID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_service_id", "service_id must be a valid UUID")
			return
		}
		var customerID *uuid.UUID
		if req.CustomerID != "" {
			id, err := uuid.Parse(req.CustomerID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_customer_id", "customer_id must be a valid UUID")
				return
			}
			customerID = &id
		}
		day, err := parseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		appt, err := svc.Create(r.Context(), booking.CreateRequest{
			BusinessID: businessID,
			StaffID:    staffID,
			CustomerID: customerID,
			ServiceID:  serviceID,
			Day:        day,
			StartClock: req.Start,
			Duration:   req.Duration,
			EndClock:   req.End,
			PriceCents: req.PriceCents,
			Notes:      req.Notes,
			ByStaff:    req.ByStaff,
		})
		if err != nil {
			metrics.ObserveBooking(bookingOutcome(err))
			handleBookingError(w, err)
			return
		}

		metrics.ObserveBooking("created")
		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func listAppointmentsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		staffID, err := uuid.Parse(r.URL.Query().Get("staff_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_staff_id", "staff_id must be a valid UUID")
			return
		}
		from, err := parseDate(r.URL.Query().Get("from"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_from", "from must be YYYY-MM-DD")
			return
		}
		to, err := parseDate(r.URL.Query().Get("to"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_to", "to must be YYYY-MM-DD")
			return
		}

		appts, err := svc.StaffAppointments(r.Context(), staffID, from, to)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		resp := make([]AppointmentResponse, 0, len(appts))
		for i := range appts {
			resp = append(resp, toAppointmentResponse(&appts[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func updateAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req UpdateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patch, err := buildPatch(req)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patch", err.Error())
			return
		}

		appt, err := svc.Update(r.Context(), id, patch)
		if err != nil {
			handleBookingError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func buildPatch(req UpdateAppointmentRequest) (booking.AppointmentPatch, error) {
	var patch booking.AppointmentPatch
	if req.StaffID != nil {
		id, err := uuid.Parse(*req.StaffID)
		if err != nil {
			return patch, errors.New("staff_id must be a valid UUID")
		}
		patch.StaffID = &id
	}
	if req.ServiceID != nil {
		id, err := uuid.Parse(*req.ServiceID)
		if err != nil {
			return patch, errors.New("service_id must be a valid UUID")
		}
		patch.ServiceID = &id
	}
	if req.Date != nil {
		day, err := parseDate(*req.Date)
		if err != nil {
			return patch, errors.New("date must be YYYY-MM-DD")
		}
		patch.Day = &day
	}
	if req.Start != nil {
		start, err := timeutil.ToMinutes(*req.Start)
		if err != nil {
			return patch, errors.New("start must be HH:MM")
		}
		patch.Start = &start
	}
	patch.Duration = req.Duration
	patch.PriceCents = req.PriceCents
	patch.Notes = req.Notes
	return patch, nil
}

func cancelAppointmentHandler(svc *booking.Service, metrics *Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req CancelRequest
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&req)
		}

		if err := svc.Cancel(r.Context(), id, req.Reason); err != nil {
			handleBookingError(w, err)
			return
		}
		metrics.ObserveBooking("cancelled")
		w.WriteHeader(http.StatusNoContent)
	}
}

func changeStatusHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req ChangeStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		status := booking.Status(req.Status)
		switch status {
		case booking.StatusPending, booking.StatusConfirmed, booking.StatusCancelled, booking.StatusCompleted:
		default:
			writeError(w, http.StatusBadRequest, "invalid_status", "unknown status value")
			return
		}

		appt, err := svc.ChangeStatus(r.Context(), id, status)
		if err != nil {
			handleBookingError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func availabilityHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		staffID, err := uuid.Parse(r.URL.Query().Get("staff_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_staff_id", "staff_id must be a valid UUID")
			return
		}
		day, err := parseDate(r.URL.Query().Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}
		duration, err := parsePositiveInt(r.URL.Query().Get("duration_minutes"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_duration", "duration_minutes must be a positive integer")
			return
		}

		slots, err := svc.Availability(r.Context(), staffID, day, duration)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, AvailabilityResponse{
			StaffID: staffID,
			Date:    day.Format(schedule.DayLayout),
			Slots:   slots,
		})
	}
}

func createBlockHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateBlockRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		staffID, err := uuid.Parse(req.StaffID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_staff_id", "staff_id must be a valid UUID")
			return
		}
		day, err := parseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}
		kind := booking.BlockKind(req.Kind)
		if kind != booking.BlockBreak && kind != booking.BlockManual {
			writeError(w, http.StatusBadRequest, "invalid_kind", "kind must be break or manual-block")
			return
		}

		block, err := svc.CreateBlock(r.Context(), booking.BlockRequest{
			StaffID:    staffID,
			Day:        day,
			StartClock: req.Start,
			Duration:   req.Duration,
			Kind:       kind,
			Note:       req.Note,
		})
		if err != nil {
			handleBookingError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toBlockResponse(block))
	}
}

func deleteBlockHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_block_id", "id must be a valid UUID")
			return
		}
		if err := svc.DeleteBlock(r.Context(), id); err != nil {
			handleBookingError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// calendarWeekHandler materializes the week view for one business. The
// controller is per-request here; stateful selection only matters for
// long-lived client sessions.
func calendarWeekHandler(cfg RouterConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		businessID, err := uuid.Parse(r.URL.Query().Get("business_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_business_id", "business_id must be a valid UUID")
			return
		}

		anchor := time.Now()
		if raw := r.URL.Query().Get("anchor"); raw != "" {
			anchor, err = parseDate(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_anchor", "anchor must be YYYY-MM-DD")
				return
			}
		}

		var staffIDs []uuid.UUID
		for _, raw := range r.URL.Query()["staff_id"] {
			id, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_staff_id", "staff_id must be a valid UUID")
				return
			}
			staffIDs = append(staffIDs, id)
		}
		if len(staffIDs) == 0 {
			writeError(w, http.StatusBadRequest, "missing_staff_id", "at least one staff_id is required")
			return
		}

		ctrl := calendar.NewController(cfg.Service, cfg.Grid, businessID, staffIDs, cfg.Logger)
		if r.URL.Query().Get("mode") == "day" {
			ctrl.SetMode(calendar.ModeDayColumns)
		}
		if err := ctrl.LoadWeek(r.Context(), anchor); err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, buildWeekResponse(ctrl))
	}
}

func buildWeekResponse(ctrl *calendar.Controller) CalendarWeekResponse {
	week := ctrl.Week()

	resp := CalendarWeekResponse{Label: week.Label()}
	for _, d := range week.Days {
		resp.Days = append(resp.Days, CalendarDayResponse{
			Date:    d.Date.Format(schedule.DayLayout),
			Label:   d.Label,
			IsToday: d.IsToday,
		})
	}

	for _, col := range ctrl.Columns() {
		item := CalendarColumnResponse{
			StaffID: col.StaffID,
			Date:    col.Day.Format(schedule.DayLayout),
			IsToday: col.IsToday,
			Boxes:   make([]CalendarBoxItem, 0, len(col.Boxes)),
		}
		for _, box := range col.Boxes {
			out := CalendarBoxItem{
				Label:   box.Label,
				Status:  string(box.Status),
				Blocked: box.Blocked,
				Offset:  box.Position.Offset,
				Length:  box.Position.Length,
			}
			if box.AppointmentID != uuid.Nil {
				id := box.AppointmentID
				out.AppointmentID = &id
			}
			if box.BlockID != uuid.Nil {
				id := box.BlockID
				out.BlockID = &id
			}
			item.Boxes = append(item.Boxes, out)
		}
		resp.Columns = append(resp.Columns, item)
	}

	if offset, ok := ctrl.CurrentTimeOffset(); ok {
		resp.CurrentTimeOffset = &offset
	}
	return resp
}

func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, errors.New("must be positive")
	}
	return n, nil
}

func bookingOutcome(err error) string {
	switch {
	case errors.Is(err, schedule.ErrConflict):
		return "conflict"
	case errors.Is(err, booking.ErrScheduleBusy):
		return "busy"
	case errors.Is(err, booking.ErrStaffUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

func handleBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, timeutil.ErrFormat):
		writeError(w, http.StatusBadRequest, "invalid_time", err.Error())
	case errors.Is(err, schedule.ErrGranularity):
		writeError(w, http.StatusUnprocessableEntity, "off_granularity", err.Error())
	case errors.Is(err, schedule.ErrConflict):
		writeError(w, http.StatusConflict, "schedule_conflict", err.Error())
	case errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, booking.ErrBlockedTimeNotFound):
		writeError(w, http.StatusNotFound, "blocked_time_not_found", err.Error())
	case errors.Is(err, booking.ErrStaffUnavailable):
		writeError(w, http.StatusUnprocessableEntity, "staff_unavailable", err.Error())
	case errors.Is(err, booking.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, booking.ErrScheduleBusy),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "schedule_busy", "the schedule is being modified, please retry shortly")
	case errors.Is(err, booking.ErrStore):
		writeError(w, http.StatusBadGateway, "storage_error", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
