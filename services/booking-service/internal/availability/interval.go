package availability

import "fmt"

// Interval is the half-open range [Start, End).
type Interval struct {
	Start Instant
	End   Instant
}

func NewInterval(start, end Instant) (Interval, error) {
	if !end.After(start) {
		return Interval{}, fmt.Errorf("%w: %s is not after %s", ErrInvalidInterval, end, start)
	}
	return Interval{Start: start, End: end}, nil
}

// Overlaps reports whether the intervals share any instant. Intervals that only touch
// at a boundary do not overlap.
func (iv Interval) Overlaps(other Interval) bool {
	// Half-open intervals: [a,b) overlaps [c,d) iff a < d && c < b.
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Contains reports whether inner lies entirely within iv.
func (iv Interval) Contains(inner Interval) bool {
	return !inner.Start.Before(iv.Start) && !inner.End.After(iv.End)
}

// SingleDay reports whether start and end fall on the same calendar date.
func (iv Interval) SingleDay() bool {
	return iv.Start.Date == iv.End.Date
}

func (iv Interval) String() string {
	return "[" + iv.Start.String() + ", " + iv.End.String() + ")"
}
