package availability

// BookedInterval is an existing appointment's occupied time.
type BookedInterval struct {
	Interval
	Status Status
}

// FilterAvailable keeps the slots that overlap no occupying booking, in input order.
func FilterAvailable(slots []Slot, booked []BookedInterval) []Slot {
	out := make([]Slot, 0, len(slots))
	for _, s := range slots {
		if !HasConflict(s.Interval, booked) {
			out = append(out, s)
		}
	}
	return out
}

// HasConflict reports whether any occupying booking overlaps candidate. Cancelled and
// no-show appointments never conflict.
func HasConflict(candidate Interval, booked []BookedInterval) bool {
	for _, b := range booked {
		if b.Status.Occupies() && candidate.Overlaps(b.Interval) {
			return true
		}
	}
	return false
}
