package outbox

import (
	"encoding/json"
	"time"

	"github.com/md-rashed-zaman/carebook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/carebook/services/booking-service/internal/model"
)

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

const (
	TypeAppointmentBooked    = "booking.appointment.booked.v1"
	TypeAppointmentCancelled = "booking.appointment.cancelled.v1"
	TypeHoursUpdated         = "provider.hours.updated.v1"
)

// AppointmentPayload is the body of appointment events. Times are zone-less wall clock.
type AppointmentPayload struct {
	AppointmentID string `json:"appointment_id"`
	ProviderID    string `json:"provider_id"`
	PatientName   string `json:"patient_name,omitempty"`
	PatientEmail  string `json:"patient_email,omitempty"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Status        string `json:"status"`
	CancelledAt   string `json:"cancelled_at,omitempty"`
}

// HoursPayload is the body of provider.hours.updated.v1. Source names the producer so
// a service can skip its own events.
type HoursPayload struct {
	ProviderID string                     `json:"provider_id"`
	Hours      []availability.HoursRecord `json:"hours"`
	Source     string                     `json:"source,omitempty"`
}

func AppointmentBooked(appt model.Appointment) (Event, error) {
	return appointmentEvent(TypeAppointmentBooked, appt)
}

func AppointmentCancelled(appt model.Appointment) (Event, error) {
	return appointmentEvent(TypeAppointmentCancelled, appt)
}

func appointmentEvent(eventType string, appt model.Appointment) (Event, error) {
	p := AppointmentPayload{
		AppointmentID: appt.ID,
		ProviderID:    appt.ProviderID,
		PatientName:   appt.PatientName,
		PatientEmail:  appt.PatientEmail,
		StartTime:     availability.FormatISO(appt.StartTime),
		EndTime:       availability.FormatISO(appt.EndTime),
		Status:        appt.Status,
	}
	if appt.CancelledAt != nil {
		p.CancelledAt = appt.CancelledAt.UTC().Format(time.RFC3339)
	}
	body, err := json.Marshal(p)
	if err != nil {
		return Event{}, err
	}
	return Event{AggregateType: "appointment", AggregateID: appt.ID, EventType: eventType, Payload: body}, nil
}

func HoursUpdated(providerID, source string, hours []availability.HoursRecord) (Event, error) {
	body, err := json.Marshal(HoursPayload{ProviderID: providerID, Hours: hours, Source: source})
	if err != nil {
		return Event{}, err
	}
	return Event{AggregateType: "provider", AggregateID: providerID, EventType: TypeHoursUpdated, Payload: body}, nil
}
