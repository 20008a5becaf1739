package availability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("carebook.booking.availability")

// HoursSource loads a provider's operating-hours records. An empty result means the
// provider has not configured any hours.
type HoursSource interface {
	OperatingHours(ctx context.Context, providerID string) ([]HoursRecord, error)
}

// BookingSource loads a provider's appointments that overlap window.
type BookingSource interface {
	Bookings(ctx context.Context, providerID string, window Interval) ([]BookingRecord, error)
}

// Service answers availability queries against external hours and booking stores.
// It holds no mutable state and is safe for concurrent use.
type Service struct {
	hours    HoursSource
	bookings BookingSource
}

func NewService(hours HoursSource, bookings BookingSource) *Service {
	return &Service{hours: hours, bookings: bookings}
}

// AvailableSlots returns the free slots of durationMinutes for providerID on date.
func (s *Service) AvailableSlots(ctx context.Context, providerID string, date Date, durationMinutes int) ([]Slot, error) {
	ctx, span := tracer.Start(ctx, "availability.slots", trace.WithAttributes(
		attribute.String("provider.id", providerID),
		attribute.String("date", date.String()),
		attribute.Int("slot.duration_minutes", durationMinutes),
	))
	defer span.End()

	if durationMinutes <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidDuration, durationMinutes)
	}
	week, err := s.loadWeek(ctx, providerID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if week.For(date.Weekday()).Closed {
		return []Slot{}, nil
	}
	booked, err := s.loadBooked(ctx, providerID, DayWindow(date))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	slots, err := Available(week, booked, date, durationMinutes)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("slot.count", len(slots)))
	return slots, nil
}

// IsBookable reports whether candidate lies inside an open period and overlaps no
// occupying appointment. The answer is advisory unless taken under the booking lock.
func (s *Service) IsBookable(ctx context.Context, providerID string, candidate Interval) (bool, error) {
	ctx, span := tracer.Start(ctx, "availability.bookable", trace.WithAttributes(
		attribute.String("provider.id", providerID),
		attribute.String("candidate", candidate.String()),
	))
	defer span.End()

	if !candidate.SingleDay() {
		return false, nil
	}
	week, err := s.loadWeek(ctx, providerID)
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	if _, open := week.For(candidate.Start.Date.Weekday()).Window(candidate.Start.Date); !open {
		return false, nil
	}
	booked, err := s.loadBooked(ctx, providerID, DayWindow(candidate.Start.Date))
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	ok := Bookable(week, booked, candidate)
	span.SetAttributes(attribute.Bool("bookable", ok))
	return ok, nil
}

// Week loads and parses the provider's hours.
func (s *Service) Week(ctx context.Context, providerID string) (Week, error) {
	return s.loadWeek(ctx, providerID)
}

func (s *Service) loadWeek(ctx context.Context, providerID string) (Week, error) {
	records, err := s.hours.OperatingHours(ctx, providerID)
	if err != nil {
		return Week{}, fmt.Errorf("load operating hours: %w", err)
	}
	return ParseWeek(records)
}

func (s *Service) loadBooked(ctx context.Context, providerID string, window Interval) ([]BookedInterval, error) {
	records, err := s.bookings.Bookings(ctx, providerID, window)
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}
	return ParseBooked(records)
}

// Available is the pure form of AvailableSlots.
func Available(week Week, booked []BookedInterval, date Date, durationMinutes int) ([]Slot, error) {
	seq, err := GenerateSlots(week, date, durationMinutes)
	if err != nil {
		return nil, err
	}
	return FilterAvailable(CollectSlots(seq), booked), nil
}

// Bookable is the pure form of IsBookable. Callers creating a booking must evaluate it
// while holding the provider's booking lock.
func Bookable(week Week, booked []BookedInterval, candidate Interval) bool {
	if !candidate.SingleDay() {
		return false
	}
	window, open := week.For(candidate.Start.Date.Weekday()).Window(candidate.Start.Date)
	if !open || !window.Contains(candidate) {
		return false
	}
	return !HasConflict(candidate, booked)
}

// DayWindow is the whole of date, [00:00, next day 00:00).
func DayWindow(date Date) Interval {
	midnight := Clock{}
	return Interval{Start: At(date, midnight), End: At(date.AddDays(1), midnight)}
}
