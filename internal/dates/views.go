package dates

import (
	"fmt"
	"strings"
	"time"
)

type ViewMode int

const (
	ViewDay ViewMode = iota
	ViewThreeDay
	ViewWeek
	ViewWorkWeek
	ViewMonth
)

var viewNames = map[ViewMode]string{
	ViewDay:      "day",
	ViewThreeDay: "3day",
	ViewWeek:     "week",
	ViewWorkWeek: "workweek",
	ViewMonth:    "month",
}

func (v ViewMode) String() string {
	if name, ok := viewNames[v]; ok {
		return name
	}
	return fmt.Sprintf("ViewMode(%d)", int(v))
}

// ParseViewMode accepts the names printed by String plus a few aliases.
func ParseViewMode(s string) (ViewMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "day", "1day":
		return ViewDay, nil
	case "3day", "3-day", "three-day", "threeday":
		return ViewThreeDay, nil
	case "week", "7day":
		return ViewWeek, nil
	case "workweek", "work-week", "work_week":
		return ViewWorkWeek, nil
	case "month":
		return ViewMonth, nil
	}
	return ViewDay, fmt.Errorf("unknown view: %s", s)
}

// Range is an inclusive run of calendar days.
type Range struct {
	Days []time.Time
}

// First returns midnight of the first visible day.
func (r Range) First() time.Time {
	if len(r.Days) == 0 {
		return time.Time{}
	}
	return r.Days[0]
}

// Last returns midnight of the last visible day.
func (r Range) Last() time.Time {
	if len(r.Days) == 0 {
		return time.Time{}
	}
	return r.Days[len(r.Days)-1]
}

// End returns the first instant after the range.
func (r Range) End() time.Time {
	if len(r.Days) == 0 {
		return time.Time{}
	}
	return r.Last().AddDate(0, 0, 1)
}

// Index returns the position of t's day in the range, or -1.
func (r Range) Index(t time.Time) int {
	for i, d := range r.Days {
		if IsSameDay(d, t) {
			return i
		}
	}
	return -1
}

// ViewRange returns the days shown by a view anchored on anchor.
// The work week is Monday to Friday of anchor's week regardless of firstDay;
// the month view covers the 6x7 grid returned by MonthGrid.
func ViewRange(mode ViewMode, anchor time.Time, firstDay time.Weekday) Range {
	switch mode {
	case ViewThreeDay:
		return consecutive(StartOfDay(anchor), 3)
	case ViewWeek:
		return consecutive(StartOfWeek(anchor, firstDay), 7)
	case ViewWorkWeek:
		return consecutive(StartOfWeek(anchor, time.Monday), 5)
	case ViewMonth:
		grid := MonthGrid(anchor, firstDay)
		days := make([]time.Time, 0, 42)
		for _, week := range grid {
			days = append(days, week[:]...)
		}
		return Range{Days: days}
	default:
		return consecutive(StartOfDay(anchor), 1)
	}
}

// Step returns the anchor of the next (n > 0) or previous (n < 0) page.
func Step(mode ViewMode, anchor time.Time, n int) time.Time {
	switch mode {
	case ViewThreeDay:
		return anchor.AddDate(0, 0, 3*n)
	case ViewWeek, ViewWorkWeek:
		return anchor.AddDate(0, 0, 7*n)
	case ViewMonth:
		first := StartOfMonth(anchor).AddDate(0, n, 0)
		day := anchor.Day()
		if max := DaysInMonth(first); day > max {
			day = max
		}
		return time.Date(first.Year(), first.Month(), day, anchor.Hour(), anchor.Minute(), 0, 0, anchor.Location())
	default:
		return anchor.AddDate(0, 0, n)
	}
}

// MonthGrid returns six weeks starting with the week that contains the
// first of anchor's month.
func MonthGrid(anchor time.Time, firstDay time.Weekday) [6][7]time.Time {
	var grid [6][7]time.Time
	day := StartOfWeek(StartOfMonth(anchor), firstDay)
	for w := 0; w < 6; w++ {
		for d := 0; d < 7; d++ {
			grid[w][d] = day
			day = day.AddDate(0, 0, 1)
		}
	}
	return grid
}

func consecutive(first time.Time, n int) Range {
	days := make([]time.Time, n)
	for i := range days {
		days[i] = first.AddDate(0, 0, i)
	}
	return Range{Days: days}
}

// FormatDayHeader renders a column header such as "Mon 25".
func FormatDayHeader(t time.Time) string {
	return t.Format("Mon 02")
}

// FormatClock renders minutes from midnight as HH:MM.
func FormatClock(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// FormatDuration renders a duration as "1h 30m", "2h" or "45m".
func FormatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	switch {
	case hours > 0 && minutes > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}
