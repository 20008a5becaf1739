package availability

import (
	"errors"
	"testing"
	"time"
)

func strptr(s string) *string { return &s }

func TestValidate(t *testing.T) {
	nine, five := MustClock(9, 0), MustClock(17, 0)
	tests := []struct {
		name    string
		hours   OperatingHours
		wantErr bool
	}{
		{"closed", ClosedDay(time.Sunday), false},
		{"open", OpenDay(time.Monday, nine, five), false},
		{"closed with start", OperatingHours{Weekday: time.Sunday, Closed: true, Start: &nine}, true},
		{"open missing end", OperatingHours{Weekday: time.Monday, Start: &nine}, true},
		{"end equals start", OpenDay(time.Monday, nine, nine), true},
		{"end before start", OpenDay(time.Monday, five, nine), true},
		{"weekday out of range", OpenDay(time.Weekday(7), nine, five), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.hours)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestValidateWeek_RequiresOpenDay(t *testing.T) {
	var ve *ValidationError
	if err := ValidateWeek(ClosedWeek()); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for all-closed week, got %v", err)
	}
	if err := ValidateWeek(weekdayClinic()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWeekFor_UnconfiguredDayIsClosed(t *testing.T) {
	var w Week
	if !w.For(time.Wednesday).Closed {
		t.Fatalf("expected zero-value entry to read as closed")
	}
	if !w.For(time.Weekday(9)).Closed {
		t.Fatalf("expected out-of-range weekday to read as closed")
	}
	if w.OpenDays() != 0 {
		t.Fatalf("expected no open days, got %d", w.OpenDays())
	}
}

func TestParseWeek(t *testing.T) {
	records := []HoursRecord{
		{DayOfWeek: 1, StartTime: strptr("07:00"), EndTime: strptr("17:00")},
		{DayOfWeek: 2, StartTime: strptr("9:30"), EndTime: strptr("12:00")},
		{DayOfWeek: 0, IsClosed: true},
	}
	w, err := ParseWeek(records)
	if err != nil {
		t.Fatalf("ParseWeek: %v", err)
	}
	if w.OpenDays() != 2 {
		t.Fatalf("expected 2 open days, got %d", w.OpenDays())
	}
	tue := w.For(time.Tuesday)
	if tue.Closed || *tue.Start != MustClock(9, 30) || *tue.End != MustClock(12, 0) {
		t.Fatalf("unexpected Tuesday hours: %+v", tue)
	}
	if !w.For(time.Saturday).Closed {
		t.Fatalf("expected day without record to be closed")
	}

	back := w.Records()
	if len(back) != 7 || back[2].StartTime == nil || *back[2].StartTime != "09:30" {
		t.Fatalf("unexpected records: %+v", back)
	}
	if !back[6].IsClosed || back[6].StartTime != nil {
		t.Fatalf("expected Saturday record closed without times")
	}
}

func TestParseWeek_Empty(t *testing.T) {
	w, err := ParseWeek(nil)
	if err != nil {
		t.Fatalf("ParseWeek: %v", err)
	}
	if w.OpenDays() != 0 {
		t.Fatalf("expected every day closed")
	}
}

func TestParseWeek_Errors(t *testing.T) {
	t.Run("bad time", func(t *testing.T) {
		_, err := ParseWeek([]HoursRecord{{DayOfWeek: 1, StartTime: strptr("7am"), EndTime: strptr("17:00")}})
		var pe *TimeParseError
		if !errors.As(err, &pe) {
			t.Fatalf("expected TimeParseError, got %v", err)
		}
		if pe.Field != "start_time" || pe.Value != "7am" {
			t.Fatalf("unexpected error detail: %+v", pe)
		}
	})
	t.Run("day out of range", func(t *testing.T) {
		var ve *ValidationError
		if _, err := ParseWeek([]HoursRecord{{DayOfWeek: 7, IsClosed: true}}); !errors.As(err, &ve) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})
	t.Run("duplicate day", func(t *testing.T) {
		var ve *ValidationError
		_, err := ParseWeek([]HoursRecord{{DayOfWeek: 3, IsClosed: true}, {DayOfWeek: 3, IsClosed: true}})
		if !errors.As(err, &ve) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})
	t.Run("inverted hours", func(t *testing.T) {
		var ve *ValidationError
		_, err := ParseWeek([]HoursRecord{{DayOfWeek: 1, StartTime: strptr("17:00"), EndTime: strptr("07:00")}})
		if !errors.As(err, &ve) || ve.Field != "monday" {
			t.Fatalf("expected ValidationError on monday, got %v", err)
		}
	})
}
