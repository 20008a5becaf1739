package availability

import (
	"fmt"
	"time"
)

// HoursRecord is the operating-hours shape served by the provider profile store.
type HoursRecord struct {
	DayOfWeek int     `json:"day_of_week"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
	IsClosed  bool    `json:"is_closed"`
}

// BookingRecord is the appointment shape served by the booking store.
type BookingRecord struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Status    string `json:"status"`
}

// ParseWeek builds a Week from up to seven records. Days without a record are closed.
// Each record is validated; the week-level rule is left to ValidateWeek so that a
// provider with no configuration reads as closed rather than failing.
func ParseWeek(records []HoursRecord) (Week, error) {
	w := ClosedWeek()
	var seen [7]bool
	for _, rec := range records {
		if rec.DayOfWeek < 0 || rec.DayOfWeek > 6 {
			return Week{}, &ValidationError{Field: "day_of_week", Reason: fmt.Sprintf("%d is not in 0-6", rec.DayOfWeek)}
		}
		if seen[rec.DayOfWeek] {
			return Week{}, &ValidationError{Field: "day_of_week", Reason: fmt.Sprintf("duplicate entry for %s", time.Weekday(rec.DayOfWeek))}
		}
		seen[rec.DayOfWeek] = true

		h, err := parseHoursRecord(rec)
		if err != nil {
			return Week{}, err
		}
		if err := Validate(h); err != nil {
			return Week{}, err
		}
		w[h.Weekday] = h
	}
	return w, nil
}

func parseHoursRecord(rec HoursRecord) (OperatingHours, error) {
	h := OperatingHours{Weekday: time.Weekday(rec.DayOfWeek), Closed: rec.IsClosed}
	if rec.StartTime != nil {
		c, err := ParseClock(*rec.StartTime)
		if err != nil {
			return OperatingHours{}, withField(err, "start_time")
		}
		h.Start = &c
	}
	if rec.EndTime != nil {
		c, err := ParseClock(*rec.EndTime)
		if err != nil {
			return OperatingHours{}, withField(err, "end_time")
		}
		h.End = &c
	}
	return h, nil
}

func withField(err error, field string) error {
	if pe, ok := err.(*TimeParseError); ok {
		return &TimeParseError{Field: field, Value: pe.Value, Err: pe.Err}
	}
	return err
}

// Records renders a week back into its seven external records, Sunday first.
func (w Week) Records() []HoursRecord {
	out := make([]HoursRecord, 0, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		h := w.For(d)
		rec := HoursRecord{DayOfWeek: int(d), IsClosed: h.Closed}
		if !h.Closed {
			start, end := h.Start.String(), h.End.String()
			rec.StartTime, rec.EndTime = &start, &end
		}
		out = append(out, rec)
	}
	return out
}

// Status is an appointment lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

// Occupies reports whether an appointment in this state still reserves its time.
func (s Status) Occupies() bool {
	return s == StatusPending || s == StatusConfirmed || s == StatusCompleted
}

// OccupyingStatuses lists the states that reserve time, for store-side filtering.
func OccupyingStatuses() []string {
	return []string{string(StatusPending), string(StatusConfirmed), string(StatusCompleted)}
}

// ParseBooked converts booking records into occupying BookedIntervals. Records whose
// status frees the time are dropped.
func ParseBooked(records []BookingRecord) ([]BookedInterval, error) {
	out := make([]BookedInterval, 0, len(records))
	for _, rec := range records {
		status, err := ParseStatus(rec.Status)
		if err != nil {
			return nil, err
		}
		if !status.Occupies() {
			continue
		}
		iv, err := ParseInterval(rec.StartTime, rec.EndTime)
		if err != nil {
			return nil, err
		}
		out = append(out, BookedInterval{Interval: iv, Status: status})
	}
	return out, nil
}

// ParseInterval parses two ISO datetimes into an Interval read as wall-clock time.
// A partial trailing minute on the end rounds up so the interval never shrinks.
func ParseInterval(start, end string) (Interval, error) {
	st, err := ParseISO(start)
	if err != nil {
		return Interval{}, withField(err, "start_time")
	}
	et, err := ParseISO(end)
	if err != nil {
		return Interval{}, withField(err, "end_time")
	}
	endInstant := InstantOf(et)
	if et.Second() != 0 || et.Nanosecond() != 0 {
		endInstant = InstantOf(et.Truncate(time.Minute).Add(time.Minute))
	}
	return NewInterval(InstantOf(st), endInstant)
}

// FormatISO renders t as a zone-less ISO datetime, keeping its wall-clock fields.
func FormatISO(t time.Time) string {
	return t.Format("2006-01-02T15:04:05")
}

// CanTransition reports whether an appointment may move from one status to another.
// Cancelled, no-show and completed are terminal.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusConfirmed || to == StatusCancelled || to == StatusNoShow || to == StatusCompleted
	case StatusConfirmed:
		return to == StatusCompleted || to == StatusCancelled || to == StatusNoShow
	default:
		return false
	}
}
