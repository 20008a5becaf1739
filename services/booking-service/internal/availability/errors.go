package availability

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTimeValue = errors.New("availability: invalid time value")
	ErrInvalidInterval  = errors.New("availability: invalid interval")
	ErrInvalidDuration  = errors.New("availability: slot duration must be positive")
	ErrUnknownStatus    = errors.New("availability: unknown appointment status")

	// ErrSlotUnavailable is returned at booking commit when the requested interval is
	// outside operating hours or overlaps an occupying appointment.
	ErrSlotUnavailable = errors.New("availability: slot unavailable")
)

// TimeParseError reports a malformed upstream time string.
type TimeParseError struct {
	Field string
	Value string
	Err   error
}

func (e *TimeParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("availability: parse %s %q: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("availability: parse %s %q", e.Field, e.Value)
}

func (e *TimeParseError) Unwrap() error { return e.Err }

// ValidationError reports an operating-hours configuration that breaks a business rule.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "availability: " + e.Reason
	}
	return fmt.Sprintf("availability: %s: %s", e.Field, e.Reason)
}
