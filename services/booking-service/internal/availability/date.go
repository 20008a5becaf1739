package availability

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar date without a time component.
type Date struct {
	year  int
	month time.Month
	day   int
}

func NewDate(year int, month time.Month, day int) (Date, error) {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return Date{}, fmt.Errorf("%w: %04d-%02d-%02d", ErrInvalidTimeValue, year, int(month), day)
	}
	return Date{year: year, month: month, day: day}, nil
}

// MustDate is NewDate for literals known to be valid.
func MustDate(year int, month time.Month, day int) Date {
	d, err := NewDate(year, month, day)
	if err != nil {
		panic(err)
	}
	return d
}

// ParseDate parses "YYYY-MM-DD".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, &TimeParseError{Field: "date", Value: s, Err: err}
	}
	return DateOf(t), nil
}

// DateOf takes the wall-clock date of t as written, without converting zones.
func DateOf(t time.Time) Date {
	return Date{year: t.Year(), month: t.Month(), day: t.Day()}
}

func (d Date) Year() int         { return d.year }
func (d Date) Month() time.Month { return d.month }
func (d Date) Day() int          { return d.day }

func (d Date) Weekday() time.Weekday { return d.midnight().Weekday() }

func (d Date) AddDays(n int) Date { return DateOf(d.midnight().AddDate(0, 0, n)) }

func (d Date) Compare(other Date) int { return d.midnight().Compare(other.midnight()) }

func (d Date) String() string { return d.midnight().Format(dateLayout) }

func (d Date) midnight() time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC)
}

// Instant is a concrete wall-clock moment: a Date combined with a Clock.
type Instant struct {
	Date  Date
	Clock Clock
}

// At combines a date and a time of day.
func At(d Date, c Clock) Instant { return Instant{Date: d, Clock: c} }

// Compare orders by date, then by clock.
func (i Instant) Compare(other Instant) int {
	if c := i.Date.Compare(other.Date); c != 0 {
		return c
	}
	return i.Clock.Compare(other.Clock)
}

func (i Instant) Before(other Instant) bool { return i.Compare(other) < 0 }
func (i Instant) After(other Instant) bool  { return i.Compare(other) > 0 }
func (i Instant) Equal(other Instant) bool  { return i.Compare(other) == 0 }

// Time renders the instant as a time.Time in UTC with the same wall-clock fields.
func (i Instant) Time() time.Time {
	return time.Date(i.Date.year, i.Date.month, i.Date.day, i.Clock.hour, i.Clock.minute, 0, 0, time.UTC)
}

func (i Instant) String() string { return i.Date.String() + "T" + i.Clock.String() }

// InstantOf takes the wall-clock fields of t as written. Seconds are truncated.
func InstantOf(t time.Time) Instant {
	return Instant{Date: DateOf(t), Clock: Clock{hour: t.Hour(), minute: t.Minute()}}
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

// ParseISO parses an ISO-8601 datetime and returns its wall-clock reading. A zone suffix
// is accepted but not applied: "10:00+02:00" reads as 10:00.
func ParseISO(s string) (time.Time, error) {
	raw := strings.TrimSpace(s)
	var lastErr error
	for _, layout := range isoLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, &TimeParseError{Field: "datetime", Value: s, Err: lastErr}
}
