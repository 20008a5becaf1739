package availability

import (
	"errors"
	"testing"
	"time"
)

var monday = MustDate(2026, time.January, 5)

func span(d Date, sh, sm, eh, em int) Interval {
	return Interval{Start: At(d, MustClock(sh, sm)), End: At(d, MustClock(eh, em))}
}

func TestNewInterval_RejectsEmptyAndInverted(t *testing.T) {
	at10 := At(monday, MustClock(10, 0))
	if _, err := NewInterval(at10, at10); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval for empty interval, got %v", err)
	}
	if _, err := NewInterval(at10, At(monday, MustClock(9, 0))); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval for inverted interval, got %v", err)
	}
	if _, err := NewInterval(At(monday, MustClock(23, 0)), At(monday.AddDays(1), MustClock(0, 30))); err != nil {
		t.Fatalf("interval crossing midnight should construct: %v", err)
	}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"adjacent at boundary", span(monday, 9, 0, 10, 0), span(monday, 10, 0, 11, 0), false},
		{"partial overlap", span(monday, 9, 0, 10, 0), span(monday, 9, 30, 10, 30), true},
		{"contained", span(monday, 9, 0, 12, 0), span(monday, 10, 0, 11, 0), true},
		{"identical", span(monday, 9, 0, 10, 0), span(monday, 9, 0, 10, 0), true},
		{"disjoint", span(monday, 7, 0, 8, 0), span(monday, 9, 0, 10, 0), false},
		{"same clock different day", span(monday, 9, 0, 10, 0), span(monday.AddDays(1), 9, 0, 10, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.want {
				t.Fatalf("a.Overlaps(b): expected %v, got %v", tt.want, got)
			}
			if got := tt.b.Overlaps(tt.a); got != tt.want {
				t.Fatalf("b.Overlaps(a): expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestContains(t *testing.T) {
	outer := span(monday, 7, 0, 17, 0)
	if !outer.Contains(span(monday, 7, 0, 17, 0)) {
		t.Fatalf("interval should contain itself")
	}
	if !outer.Contains(span(monday, 16, 0, 17, 0)) {
		t.Fatalf("slot ending at close should be contained")
	}
	if outer.Contains(span(monday, 16, 30, 17, 30)) {
		t.Fatalf("slot spanning close should not be contained")
	}
	if outer.Contains(span(monday, 6, 30, 7, 30)) {
		t.Fatalf("slot spanning open should not be contained")
	}
}
