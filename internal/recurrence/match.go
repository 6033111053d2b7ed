package recurrence

import (
	"fmt"
	"slices"
	"time"

	"github.com/cwarden/timegrid/internal/calendar"
	"github.com/cwarden/timegrid/internal/dates"
)

// Matches reports whether day is an occurrence of rule for a series that
// starts at start. Until and exceptions are handled here as well as in
// Instances; Count is not, since it depends on the preceding occurrences.
func Matches(rule calendar.RecurrenceRule, start, day time.Time) bool {
	if dates.DaysBetween(start, day) < 0 {
		return false
	}
	if rule.HasUntil() && dates.DaysBetween(rule.Until, day) > 0 {
		return false
	}
	if excluded(rule, day) {
		return false
	}

	interval := rule.EffectiveInterval()
	switch rule.Frequency {
	case calendar.FrequencyDaily:
		return dates.DaysBetween(start, day)%interval == 0

	case calendar.FrequencyWeekly:
		weeks := dates.DaysBetween(start, day) / 7
		if weeks%interval != 0 {
			return false
		}
		if len(rule.ByDay) > 0 {
			return slices.Contains(rule.ByDay, calendar.WeekdayOf(day.Weekday()))
		}
		return day.Weekday() == start.Weekday()

	case calendar.FrequencyMonthly:
		if dates.MonthsBetween(start, day)%interval != 0 {
			return false
		}
		return matchesMonthDay(rule.ByMonthDay, start, day)

	case calendar.FrequencyYearly:
		if dates.YearsBetween(start, day)%interval != 0 {
			return false
		}
		if len(rule.ByMonth) > 0 {
			if !slices.Contains(rule.ByMonth, day.Month()) {
				return false
			}
		} else if day.Month() != start.Month() {
			return false
		}
		return matchesMonthDay(rule.ByMonthDay, start, day)
	}
	return false
}

// matchesMonthDay accepts negative month days counted from the month end,
// so -1 is the last day.
func matchesMonthDay(byMonthDay []int, start, day time.Time) bool {
	if len(byMonthDay) == 0 {
		return day.Day() == start.Day()
	}
	last := dates.DaysInMonth(day)
	for _, md := range byMonthDay {
		if md == day.Day() || (md < 0 && last+md+1 == day.Day()) {
			return true
		}
	}
	return false
}

// Check lists the parts of rule the expander will ignore.
func Check(rule calendar.RecurrenceRule) []string {
	var notes []string
	if rule.Interval < 0 {
		notes = append(notes, fmt.Sprintf("interval %d treated as 1", rule.Interval))
	}
	if len(rule.ByDay) > 0 && rule.Frequency != calendar.FrequencyWeekly {
		notes = append(notes, fmt.Sprintf("byDay ignored for %s rules", rule.Frequency))
	}
	if len(rule.ByMonthDay) > 0 && rule.Frequency != calendar.FrequencyMonthly && rule.Frequency != calendar.FrequencyYearly {
		notes = append(notes, fmt.Sprintf("byMonthDay ignored for %s rules", rule.Frequency))
	}
	if len(rule.ByMonth) > 0 && rule.Frequency != calendar.FrequencyYearly {
		notes = append(notes, fmt.Sprintf("byMonth ignored for %s rules", rule.Frequency))
	}
	for _, d := range rule.ByDay {
		if _, ok := d.TimeWeekday(); !ok {
			notes = append(notes, fmt.Sprintf("unknown weekday %q", d))
		}
	}
	switch rule.Frequency {
	case calendar.FrequencyDaily, calendar.FrequencyWeekly, calendar.FrequencyMonthly, calendar.FrequencyYearly:
	default:
		notes = append(notes, fmt.Sprintf("frequency %q never matches", rule.Frequency))
	}
	return notes
}
