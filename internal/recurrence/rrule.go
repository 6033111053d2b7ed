package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/cwarden/timegrid/internal/calendar"
)

var ErrUnsupportedFrequency = errors.New("recurrence: unsupported frequency")

var rruleWeekdays = [7]calendar.Weekday{
	calendar.Monday, calendar.Tuesday, calendar.Wednesday, calendar.Thursday,
	calendar.Friday, calendar.Saturday, calendar.Sunday,
}

// ParseRRule converts an iCalendar RRULE value, with or without the
// "RRULE:" prefix, into the rule subset the expander supports. Positional
// weekdays such as 2MO lose their position.
func ParseRRule(value string) (*calendar.RecurrenceRule, error) {
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(value, "RRULE:")
	if value == "" {
		return nil, errors.New("recurrence: empty RRULE")
	}

	opt, err := rrule.StrToROption(value)
	if err != nil {
		return nil, fmt.Errorf("recurrence: parse RRULE %q: %w", value, err)
	}

	rule := &calendar.RecurrenceRule{
		Interval:   opt.Interval,
		Count:      opt.Count,
		Until:      opt.Until,
		ByMonthDay: opt.Bymonthday,
	}
	switch opt.Freq {
	case rrule.DAILY:
		rule.Frequency = calendar.FrequencyDaily
	case rrule.WEEKLY:
		rule.Frequency = calendar.FrequencyWeekly
	case rrule.MONTHLY:
		rule.Frequency = calendar.FrequencyMonthly
	case rrule.YEARLY:
		rule.Frequency = calendar.FrequencyYearly
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFrequency, value)
	}
	if rule.Interval < 1 {
		rule.Interval = 1
	}

	for i := range opt.Byweekday {
		day := opt.Byweekday[i].Day()
		if day >= 0 && day < len(rruleWeekdays) {
			rule.ByDay = append(rule.ByDay, rruleWeekdays[day])
		}
	}
	for _, m := range opt.Bymonth {
		if m >= 1 && m <= 12 {
			rule.ByMonth = append(rule.ByMonth, time.Month(m))
		}
	}
	return rule, nil
}

// FormatRRule renders rule back into RRULE syntax for export.
func FormatRRule(rule calendar.RecurrenceRule) (string, error) {
	var opt rrule.ROption
	switch rule.Frequency {
	case calendar.FrequencyDaily:
		opt.Freq = rrule.DAILY
	case calendar.FrequencyWeekly:
		opt.Freq = rrule.WEEKLY
	case calendar.FrequencyMonthly:
		opt.Freq = rrule.MONTHLY
	case calendar.FrequencyYearly:
		opt.Freq = rrule.YEARLY
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFrequency, rule.Frequency)
	}
	opt.Interval = rule.EffectiveInterval()
	opt.Count = rule.Count
	opt.Until = rule.Until
	opt.Bymonthday = rule.ByMonthDay
	for _, d := range rule.ByDay {
		if w, ok := d.TimeWeekday(); ok {
			opt.Byweekday = append(opt.Byweekday, toRRuleWeekday(w))
		}
	}
	for _, m := range rule.ByMonth {
		opt.Bymonth = append(opt.Bymonth, int(m))
	}
	return opt.RRuleString(), nil
}

func toRRuleWeekday(d time.Weekday) rrule.Weekday {
	switch d {
	case time.Monday:
		return rrule.MO
	case time.Tuesday:
		return rrule.TU
	case time.Wednesday:
		return rrule.WE
	case time.Thursday:
		return rrule.TH
	case time.Friday:
		return rrule.FR
	case time.Saturday:
		return rrule.SA
	default:
		return rrule.SU
	}
}
