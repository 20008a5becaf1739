package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/carebook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/carebook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/carebook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/carebook/services/booking-service/internal/storage"
)

// Availability answers slot and bookability queries.
type Availability interface {
	AvailableSlots(ctx context.Context, providerID string, date availability.Date, durationMinutes int) ([]availability.Slot, error)
	IsBookable(ctx context.Context, providerID string, candidate availability.Interval) (bool, error)
	Week(ctx context.Context, providerID string) (availability.Week, error)
}

type AppointmentStore interface {
	Book(ctx context.Context, appt model.Appointment, guard storage.Guard, after storage.AfterFunc) (model.Appointment, error)
	UpdateStatus(ctx context.Context, providerID, appointmentID string, status availability.Status, after storage.AfterFunc) (model.Appointment, error)
	ListByDay(ctx context.Context, providerID string, date availability.Date) ([]model.Appointment, error)
}

// EventWriter appends domain events inside a write transaction.
type EventWriter interface {
	Insert(ctx context.Context, tx pgx.Tx, evt outbox.Event) error
}

type Observer interface {
	ObserveSlots(n int)
	ObserveBooking(outcome string)
}

type BookingHandler struct {
	avail        Availability
	repo         AppointmentStore
	events       EventWriter
	logger       *slog.Logger
	obs          Observer
	slotMinutes  int
	maxSlotRange int
}

type BookingConfig struct {
	// DefaultSlotMinutes applies when a slots request omits duration_minutes.
	DefaultSlotMinutes int
	MaxSlotMinutes     int
}

func NewBookingHandler(avail Availability, repo AppointmentStore, events EventWriter, logger *slog.Logger, obs Observer, cfg BookingConfig) *BookingHandler {
	if cfg.DefaultSlotMinutes <= 0 {
		cfg.DefaultSlotMinutes = 30
	}
	if cfg.MaxSlotMinutes <= 0 {
		cfg.MaxSlotMinutes = 8 * 60
	}
	return &BookingHandler{
		avail:        avail,
		repo:         repo,
		events:       events,
		logger:       logger,
		obs:          obs,
		slotMinutes:  cfg.DefaultSlotMinutes,
		maxSlotRange: cfg.MaxSlotMinutes,
	}
}

type createAppointmentRequest struct {
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	PatientName  string `json:"patient_name"`
	PatientEmail string `json:"patient_email"`
	Notes        string `json:"notes"`
}

type createAppointmentResponse struct {
	AppointmentID string `json:"appointment_id"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type appointmentItem struct {
	AppointmentID string `json:"appointment_id"`
	PatientName   string `json:"patient_name"`
	PatientEmail  string `json:"patient_email,omitempty"`
	Notes         string `json:"notes,omitempty"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Status        string `json:"status"`
	CancelledAt   string `json:"cancelled_at,omitempty"`
	CreatedAt     string `json:"created_at"`
}

const slotUnavailableMessage = "time slot is no longer available; refresh availability and choose another time"

type slotItem struct {
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	DurationMinutes int    `json:"duration_minutes"`
	FormattedTime   string `json:"formatted_time"`
}

type bookableResponse struct {
	Bookable bool `json:"bookable"`
}

func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")
	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	if dateStr == "" {
		http.Error(w, "date is required", http.StatusBadRequest)
		return
	}
	date, err := availability.ParseDate(dateStr)
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}

	duration := h.slotMinutes
	if v := strings.TrimSpace(r.URL.Query().Get("duration_minutes")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > h.maxSlotRange {
			http.Error(w, "invalid duration_minutes", http.StatusBadRequest)
			return
		}
		duration = n
	}

	slots, err := h.avail.AvailableSlots(r.Context(), providerID, date, duration)
	if err != nil {
		h.logger.Error("slot lookup failed", "err", err, "provider_id", providerID, "date", dateStr)
		http.Error(w, "failed to compute slots", http.StatusInternalServerError)
		return
	}
	if h.obs != nil {
		h.obs.ObserveSlots(len(slots))
	}

	resp := make([]slotItem, 0, len(slots))
	for _, s := range slots {
		resp = append(resp, slotItem{
			StartTime:       s.Start.Clock.String(),
			EndTime:         s.End.Clock.String(),
			DurationMinutes: s.DurationMinutes,
			FormattedTime:   s.Start.Clock.Kitchen() + " - " + s.End.Clock.Kitchen(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *BookingHandler) Bookable(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")
	candidate, err := availability.ParseInterval(r.URL.Query().Get("start_time"), r.URL.Query().Get("end_time"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ok, err := h.avail.IsBookable(r.Context(), providerID, candidate)
	if err != nil {
		h.logger.Error("bookable check failed", "err", err, "provider_id", providerID)
		http.Error(w, "failed to check availability", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, bookableResponse{Bookable: ok})
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")

	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.PatientName = strings.TrimSpace(req.PatientName)
	if req.PatientName == "" {
		http.Error(w, "patient_name required", http.StatusBadRequest)
		return
	}

	candidate, err := availability.ParseInterval(req.StartTime, req.EndTime)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	// The guard runs under the provider lock with hours and bookings read in the same
	// transaction, so the decision and the insert are atomic.
	guard := func(hours []availability.HoursRecord, records []availability.BookingRecord) error {
		week, err := availability.ParseWeek(hours)
		if err != nil {
			return err
		}
		booked, err := availability.ParseBooked(records)
		if err != nil {
			return err
		}
		if !availability.Bookable(week, booked, candidate) {
			return availability.ErrSlotUnavailable
		}
		return nil
	}
	after := func(ctx context.Context, tx pgx.Tx, appt model.Appointment) error {
		evt, err := outbox.AppointmentBooked(appt)
		if err != nil {
			return err
		}
		return h.events.Insert(ctx, tx, evt)
	}

	appt, err := h.repo.Book(ctx, model.Appointment{
		ProviderID:   providerID,
		PatientName:  req.PatientName,
		PatientEmail: strings.TrimSpace(req.PatientEmail),
		Notes:        strings.TrimSpace(req.Notes),
		StartTime:    candidate.Start.Time(),
		EndTime:      candidate.End.Time(),
	}, guard, after)
	if err != nil {
		if errors.Is(err, availability.ErrSlotUnavailable) {
			h.observeBooking("conflict")
			http.Error(w, slotUnavailableMessage, http.StatusConflict)
			return
		}
		h.logger.Error("create appointment failed", "err", err, "provider_id", providerID)
		h.observeBooking("error")
		http.Error(w, "failed to create appointment", http.StatusInternalServerError)
		return
	}

	h.observeBooking("booked")
	h.logger.Info("appointment booked", "appointment_id", appt.ID, "provider_id", providerID, "start_time", availability.FormatISO(appt.StartTime))
	writeJSON(w, http.StatusCreated, createAppointmentResponse{AppointmentID: appt.ID})
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")
	date, err := availability.ParseDate(strings.TrimSpace(r.URL.Query().Get("date")))
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}

	appts, err := h.repo.ListByDay(r.Context(), providerID, date)
	if err != nil {
		h.logger.Error("list appointments failed", "err", err, "provider_id", providerID)
		http.Error(w, "failed to list appointments", http.StatusInternalServerError)
		return
	}

	items := make([]appointmentItem, 0, len(appts))
	for _, appt := range appts {
		items = append(items, toItem(appt))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")
	appointmentID := chi.URLParam(r, "appointmentID")

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	status, err := availability.ParseStatus(strings.TrimSpace(req.Status))
	if err != nil {
		http.Error(w, "unknown status", http.StatusBadRequest)
		return
	}

	after := func(ctx context.Context, tx pgx.Tx, appt model.Appointment) error {
		if status != availability.StatusCancelled {
			return nil
		}
		evt, err := outbox.AppointmentCancelled(appt)
		if err != nil {
			return err
		}
		return h.events.Insert(ctx, tx, evt)
	}

	appt, err := h.repo.UpdateStatus(r.Context(), providerID, appointmentID, status, after)
	if err != nil {
		switch {
		case storage.IsNotFound(err):
			http.Error(w, "appointment not found", http.StatusNotFound)
		case errors.Is(err, storage.ErrInvalidTransition):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			h.logger.Error("update status failed", "err", err, "appointment_id", appointmentID)
			http.Error(w, "failed to update appointment", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, toItem(appt))
}

func (h *BookingHandler) observeBooking(outcome string) {
	if h.obs != nil {
		h.obs.ObserveBooking(outcome)
	}
}

func toItem(appt model.Appointment) appointmentItem {
	item := appointmentItem{
		AppointmentID: appt.ID,
		PatientName:   appt.PatientName,
		PatientEmail:  appt.PatientEmail,
		Notes:         appt.Notes,
		StartTime:     availability.FormatISO(appt.StartTime),
		EndTime:       availability.FormatISO(appt.EndTime),
		Status:        appt.Status,
		CreatedAt:     appt.CreatedAt.UTC().Format(time.RFC3339),
	}
	if appt.CancelledAt != nil {
		item.CancelledAt = appt.CancelledAt.UTC().Format(time.RFC3339)
	}
	return item
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
