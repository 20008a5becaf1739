package availability

import (
	"fmt"
	"strings"
	"time"
)

// OperatingHours is a provider's open period for one weekday. A closed day carries no
// times; an open day carries both, with End after Start.
type OperatingHours struct {
	Weekday time.Weekday
	Closed  bool
	Start   *Clock
	End     *Clock
}

// ClosedDay returns the closed entry for weekday.
func ClosedDay(weekday time.Weekday) OperatingHours {
	return OperatingHours{Weekday: weekday, Closed: true}
}

// OpenDay returns an open entry for weekday. The result is not validated.
func OpenDay(weekday time.Weekday, start, end Clock) OperatingHours {
	return OperatingHours{Weekday: weekday, Start: &start, End: &end}
}

// Window returns the open period on date. ok is false when the entry is closed or invalid.
func (h OperatingHours) Window(date Date) (Interval, bool) {
	if h.Closed || h.Start == nil || h.End == nil || !h.End.After(*h.Start) {
		return Interval{}, false
	}
	return Interval{Start: At(date, *h.Start), End: At(date, *h.End)}, true
}

// Validate enforces the closed/open invariant for a single entry.
func Validate(h OperatingHours) error {
	field := strings.ToLower(h.Weekday.String())
	if h.Weekday < time.Sunday || h.Weekday > time.Saturday {
		return &ValidationError{Field: "day_of_week", Reason: fmt.Sprintf("%d is not in 0-6", int(h.Weekday))}
	}
	if h.Closed {
		if h.Start != nil || h.End != nil {
			return &ValidationError{Field: field, Reason: "closed day must not have start or end time"}
		}
		return nil
	}
	if h.Start == nil || h.End == nil {
		return &ValidationError{Field: field, Reason: "open day requires start and end time"}
	}
	if !h.End.After(*h.Start) {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("end %s must be after start %s", h.End, h.Start)}
	}
	return nil
}

// Week holds one OperatingHours entry per weekday, indexed by time.Weekday.
type Week [7]OperatingHours

// ClosedWeek returns a week where every day is closed.
func ClosedWeek() Week {
	var w Week
	for d := time.Sunday; d <= time.Saturday; d++ {
		w[d] = ClosedDay(d)
	}
	return w
}

// For returns the entry for weekday, or a closed entry when none was configured.
func (w Week) For(weekday time.Weekday) OperatingHours {
	if weekday < time.Sunday || weekday > time.Saturday {
		return ClosedDay(weekday)
	}
	h := w[weekday]
	// A zero entry means the day was never configured.
	if h.Weekday != weekday || (!h.Closed && h.Start == nil && h.End == nil) {
		return ClosedDay(weekday)
	}
	return h
}

// OpenDays counts entries that are open.
func (w Week) OpenDays() int {
	n := 0
	for d := time.Sunday; d <= time.Saturday; d++ {
		if !w.For(d).Closed {
			n++
		}
	}
	return n
}

// ValidateWeek validates every entry and requires at least one open day.
func ValidateWeek(w Week) error {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if err := Validate(w.For(d)); err != nil {
			return err
		}
	}
	if w.OpenDays() == 0 {
		return &ValidationError{Reason: "provider must be open at least one day a week"}
	}
	return nil
}
