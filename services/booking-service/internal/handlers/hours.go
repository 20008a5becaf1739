package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/carebook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/carebook/services/booking-service/internal/outbox"
)

type HoursStore interface {
	ReplaceWeek(ctx context.Context, providerID string, records []availability.HoursRecord, after func(ctx context.Context, tx pgx.Tx) error) error
}

type CacheInvalidator interface {
	Invalidate(ctx context.Context, providerID string) error
}

type HoursHandler struct {
	avail  Availability
	store  HoursStore
	events EventWriter
	cache  CacheInvalidator
	logger *slog.Logger
	source string
}

// NewHoursHandler serves a provider's weekly hours. source tags emitted events so the
// service's own consumer can recognise them.
func NewHoursHandler(avail Availability, store HoursStore, events EventWriter, cache CacheInvalidator, logger *slog.Logger, source string) *HoursHandler {
	return &HoursHandler{avail: avail, store: store, events: events, cache: cache, logger: logger, source: source}
}

func (h *HoursHandler) Get(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")
	week, err := h.avail.Week(r.Context(), providerID)
	if err != nil {
		h.logger.Error("operating hours lookup failed", "err", err, "provider_id", providerID)
		http.Error(w, "failed to load operating hours", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, week.Records())
}

func (h *HoursHandler) Put(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")

	var records []availability.HoursRecord
	if err := json.NewDecoder(r.Body).Decode(&records); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	week, err := availability.ParseWeek(records)
	if err == nil {
		err = availability.ValidateWeek(week)
	}
	if err != nil {
		var ve *availability.ValidationError
		var pe *availability.TimeParseError
		if errors.As(err, &ve) || errors.As(err, &pe) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		http.Error(w, "invalid operating hours", http.StatusBadRequest)
		return
	}

	normalized := week.Records()
	ctx := r.Context()
	err = h.store.ReplaceWeek(ctx, providerID, normalized, func(ctx context.Context, tx pgx.Tx) error {
		evt, err := outbox.HoursUpdated(providerID, h.source, normalized)
		if err != nil {
			return err
		}
		return h.events.Insert(ctx, tx, evt)
	})
	if err != nil {
		h.logger.Error("replace operating hours failed", "err", err, "provider_id", providerID)
		http.Error(w, "failed to save operating hours", http.StatusInternalServerError)
		return
	}
	if err := h.cache.Invalidate(ctx, providerID); err != nil {
		h.logger.Warn("hours cache invalidation failed", "err", err, "provider_id", providerID)
	}

	h.logger.Info("operating hours replaced", "provider_id", providerID, "open_days", week.OpenDays())
	writeJSON(w, http.StatusOK, normalized)
}
