package model

import "time"

// Appointment is a patient's booking with a provider. StartTime and EndTime hold
// wall-clock values; their location is always UTC and carries no meaning.
type Appointment struct {
	ID           string
	ProviderID   string
	PatientName  string
	PatientEmail string
	Notes        string
	StartTime    time.Time
	EndTime      time.Time
	Status       string
	CancelledAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
