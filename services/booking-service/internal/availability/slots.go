package availability

import (
	"fmt"
	"iter"
)

// Slot is one candidate bookable unit.
type Slot struct {
	Interval
	DurationMinutes int
}

// GenerateSlots returns the candidate slots for date under week's hours, stepping from
// the opening time in durationMinutes increments. Only slots that fit entirely before
// closing are produced; a trailing partial slot is dropped. The sequence is lazy and
// may be ranged over any number of times.
func GenerateSlots(week Week, date Date, durationMinutes int) (iter.Seq[Slot], error) {
	if durationMinutes <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidDuration, durationMinutes)
	}
	window, open := week.For(date.Weekday()).Window(date)
	return func(yield func(Slot) bool) {
		if !open {
			return
		}
		for start := window.Start.Clock; ; {
			end, ok := start.AddMinutes(durationMinutes)
			if !ok {
				return
			}
			slot := Slot{
				Interval:        Interval{Start: At(date, start), End: At(date, end)},
				DurationMinutes: durationMinutes,
			}
			if !window.Contains(slot.Interval) {
				return
			}
			if !yield(slot) {
				return
			}
			start = end
		}
	}, nil
}

// CollectSlots drains a slot sequence into a slice.
func CollectSlots(seq iter.Seq[Slot]) []Slot {
	var out []Slot
	for s := range seq {
		out = append(out, s)
	}
	return out
}
