package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes mounts the provider API. slotLimit guards the read-heavy slot endpoints.
func Routes(r chi.Router, bookings *BookingHandler, hours *HoursHandler, slotLimit func(http.Handler) http.Handler) {
	r.Route("/api/v1/providers/{providerID}", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if slotLimit != nil {
				r.Use(slotLimit)
			}
			r.Get("/slots", bookings.Slots)
			r.Get("/bookable", bookings.Bookable)
		})
		r.Get("/appointments", bookings.List)
		r.Post("/appointments", bookings.Create)
		r.Post("/appointments/{appointmentID}/status", bookings.UpdateStatus)
		r.Get("/hours", hours.Get)
		r.Put("/hours", hours.Put)
	})
}
