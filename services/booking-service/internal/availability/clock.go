package availability

import (
	"fmt"
	"strconv"
	"strings"
)

const minutesPerDay = 24 * 60

// Clock is a wall-clock time of day with minute precision. It carries no date and no zone.
type Clock struct {
	hour   int
	minute int
}

func NewClock(hour, minute int) (Clock, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return Clock{}, fmt.Errorf("%w: %02d:%02d", ErrInvalidTimeValue, hour, minute)
	}
	return Clock{hour: hour, minute: minute}, nil
}

// MustClock is NewClock for literals known to be valid.
func MustClock(hour, minute int) Clock {
	c, err := NewClock(hour, minute)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseClock parses a 24-hour "HH:mm" string. Single-digit hours are accepted ("9:05").
func ParseClock(s string) (Clock, error) {
	raw := strings.TrimSpace(s)
	h, m, ok := strings.Cut(raw, ":")
	if !ok || len(m) != 2 || len(h) == 0 || len(h) > 2 {
		return Clock{}, &TimeParseError{Field: "time", Value: s}
	}
	hour, err := strconv.Atoi(h)
	if err != nil {
		return Clock{}, &TimeParseError{Field: "time", Value: s, Err: err}
	}
	minute, err := strconv.Atoi(m)
	if err != nil {
		return Clock{}, &TimeParseError{Field: "time", Value: s, Err: err}
	}
	c, err := NewClock(hour, minute)
	if err != nil {
		return Clock{}, &TimeParseError{Field: "time", Value: s, Err: err}
	}
	return c, nil
}

func (c Clock) Hour() int   { return c.hour }
func (c Clock) Minute() int { return c.minute }

// Minutes returns minutes since midnight.
func (c Clock) Minutes() int { return c.hour*60 + c.minute }

// Compare returns -1, 0 or +1 ordering by (hour, minute).
func (c Clock) Compare(other Clock) int {
	switch a, b := c.Minutes(), other.Minutes(); {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (c Clock) Before(other Clock) bool { return c.Compare(other) < 0 }
func (c Clock) After(other Clock) bool  { return c.Compare(other) > 0 }

// AddMinutes returns the clock d minutes later. ok is false when the result leaves the day.
func (c Clock) AddMinutes(d int) (Clock, bool) {
	total := c.Minutes() + d
	if total < 0 || total >= minutesPerDay {
		return Clock{}, false
	}
	return Clock{hour: total / 60, minute: total % 60}, true
}

// String formats as "HH:mm".
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.hour, c.minute)
}

// Kitchen formats as "3:04 PM".
func (c Clock) Kitchen() string {
	h := c.hour % 12
	if h == 0 {
		h = 12
	}
	suffix := "AM"
	if c.hour >= 12 {
		suffix = "PM"
	}
	return fmt.Sprintf("%d:%02d %s", h, c.minute, suffix)
}
