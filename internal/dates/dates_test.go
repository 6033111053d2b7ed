package dates

import (
	"testing"
	"time"
)

func TestStartOfWeek(t *testing.T) {
	// Wednesday
	base := time.Date(2025, 8, 27, 15, 30, 0, 0, time.Local)

	for first := time.Sunday; first <= time.Saturday; first++ {
		t.Run(first.String(), func(t *testing.T) {
			got := StartOfWeek(base, first)
			if got.Weekday() != first {
				t.Errorf("StartOfWeek weekday = %v, want %v", got.Weekday(), first)
			}
			diff := DaysBetween(got, base)
			if diff < 0 || diff > 6 {
				t.Errorf("StartOfWeek is %d days before input, want 0..6", diff)
			}
			if got.Hour() != 0 || got.Minute() != 0 {
				t.Errorf("StartOfWeek not at midnight: %v", got)
			}
		})
	}
}

func TestStartOfWeekEveryDay(t *testing.T) {
	day := time.Date(2024, 12, 25, 0, 0, 0, 0, time.Local)
	for i := 0; i < 21; i++ {
		for first := time.Sunday; first <= time.Saturday; first++ {
			got := StartOfWeek(day, first)
			if got.Weekday() != first {
				t.Fatalf("%v first=%v: weekday %v", day, first, got.Weekday())
			}
			if d := DaysBetween(got, day); d < 0 || d > 6 {
				t.Fatalf("%v first=%v: distance %d", day, first, d)
			}
		}
		day = day.AddDate(0, 0, 1)
	}
}

func TestEndOfWeekAndMonth(t *testing.T) {
	base := time.Date(2025, 2, 12, 9, 0, 0, 0, time.Local)

	end := EndOfWeek(base, time.Monday)
	if end.Weekday() != time.Sunday || end.Hour() != 23 {
		t.Errorf("EndOfWeek = %v", end)
	}

	if got := StartOfMonth(base); got.Day() != 1 || got.Month() != time.February {
		t.Errorf("StartOfMonth = %v", got)
	}
	if got := EndOfMonth(base); got.Day() != 28 || got.Month() != time.February {
		t.Errorf("EndOfMonth = %v", got)
	}
	leap := time.Date(2024, 2, 3, 0, 0, 0, 0, time.Local)
	if got := EndOfMonth(leap); got.Day() != 29 {
		t.Errorf("EndOfMonth leap = %v", got)
	}
}

func TestIsSameDay(t *testing.T) {
	a := time.Date(2025, 8, 25, 0, 0, 0, 0, time.Local)
	tests := []struct {
		name string
		b    time.Time
		want bool
	}{
		{"same instant", a, true},
		{"late evening", time.Date(2025, 8, 25, 23, 59, 59, 0, time.Local), true},
		{"next day", time.Date(2025, 8, 26, 0, 0, 0, 0, time.Local), false},
		{"same day next year", time.Date(2026, 8, 25, 0, 0, 0, 0, time.Local), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSameDay(a, tt.b); got != tt.want {
				t.Errorf("IsSameDay = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDaysBetweenAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	a := time.Date(2025, 3, 8, 0, 0, 0, 0, loc)
	b := time.Date(2025, 3, 10, 0, 0, 0, 0, loc)
	if got := DaysBetween(a, b); got != 2 {
		t.Errorf("DaysBetween across DST = %d, want 2", got)
	}
}

func TestMinutesFromMidnight(t *testing.T) {
	ts := time.Date(2025, 8, 25, 10, 30, 30, 0, time.Local)
	if got := MinutesFromMidnight(ts); got != 630.5 {
		t.Errorf("MinutesFromMidnight = %v, want 630.5", got)
	}
	if got := AtMinutes(ts, 615); got.Hour() != 10 || got.Minute() != 15 {
		t.Errorf("AtMinutes = %v", got)
	}
}

func TestViewRange(t *testing.T) {
	anchor := time.Date(2025, 8, 27, 14, 0, 0, 0, time.Local) // Wednesday

	tests := []struct {
		mode     ViewMode
		days     int
		firstDay time.Weekday
		firstDOW time.Weekday
	}{
		{ViewDay, 1, time.Monday, time.Wednesday},
		{ViewThreeDay, 3, time.Monday, time.Wednesday},
		{ViewWeek, 7, time.Monday, time.Monday},
		{ViewWeek, 7, time.Sunday, time.Sunday},
		{ViewWorkWeek, 5, time.Sunday, time.Monday},
		{ViewMonth, 42, time.Monday, time.Monday},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String()+"/"+tt.firstDay.String(), func(t *testing.T) {
			r := ViewRange(tt.mode, anchor, tt.firstDay)
			if len(r.Days) != tt.days {
				t.Fatalf("got %d days, want %d", len(r.Days), tt.days)
			}
			if r.First().Weekday() != tt.firstDOW {
				t.Errorf("first weekday %v, want %v", r.First().Weekday(), tt.firstDOW)
			}
			if tt.mode != ViewMonth && r.Index(anchor) < 0 && tt.mode != ViewWorkWeek {
				t.Errorf("anchor not inside range")
			}
		})
	}
}

func TestStepMonthClampsDay(t *testing.T) {
	jan31 := time.Date(2025, 1, 31, 9, 0, 0, 0, time.Local)
	got := Step(ViewMonth, jan31, 1)
	if got.Month() != time.February || got.Day() != 28 {
		t.Errorf("Step month = %v, want Feb 28", got)
	}
}

func TestParseViewMode(t *testing.T) {
	for mode, name := range viewNames {
		got, err := ParseViewMode(name)
		if err != nil || got != mode {
			t.Errorf("ParseViewMode(%q) = %v, %v", name, got, err)
		}
	}
	if _, err := ParseViewMode("fortnight"); err == nil {
		t.Error("expected error for unknown view")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := map[time.Duration]string{
		90 * time.Minute:  "1h 30m",
		2 * time.Hour:     "2h",
		45 * time.Minute:  "45m",
		0:                 "0m",
	}
	for d, want := range tests {
		if got := FormatDuration(d); got != want {
			t.Errorf("FormatDuration(%v) = %q, want %q", d, got, want)
		}
	}
}
