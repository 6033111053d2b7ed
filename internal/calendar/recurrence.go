package calendar

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Frequency is how often a rule repeats.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// ParseFrequency accepts the lower-case names and the iCalendar FREQ values.
func ParseFrequency(s string) (Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily":
		return FrequencyDaily, nil
	case "weekly":
		return FrequencyWeekly, nil
	case "monthly":
		return FrequencyMonthly, nil
	case "yearly":
		return FrequencyYearly, nil
	}
	return "", fmt.Errorf("calendar: unsupported frequency %q", s)
}

// Weekday is a two-letter iCalendar day code.
type Weekday string

const (
	Monday    Weekday = "MO"
	Tuesday   Weekday = "TU"
	Wednesday Weekday = "WE"
	Thursday  Weekday = "TH"
	Friday    Weekday = "FR"
	Saturday  Weekday = "SA"
	Sunday    Weekday = "SU"
)

var weekdayCodes = [7]Weekday{Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

// WeekdayOf returns the code for a time.Weekday.
func WeekdayOf(d time.Weekday) Weekday {
	return weekdayCodes[((int(d)%7)+7)%7]
}

// TimeWeekday converts the code back; ok is false for unknown codes.
func (w Weekday) TimeWeekday() (time.Weekday, bool) {
	for i, code := range weekdayCodes {
		if strings.EqualFold(string(w), string(code)) {
			return time.Weekday(i), true
		}
	}
	return time.Sunday, false
}

// RecurrenceRule is the minimal rule subset the expander understands.
type RecurrenceRule struct {
	Frequency  Frequency    `json:"frequency" yaml:"frequency"`
	Interval   int          `json:"interval,omitempty" yaml:"interval,omitempty"`
	Count      int          `json:"count,omitempty" yaml:"count,omitempty"`
	Until      time.Time    `json:"until,omitempty" yaml:"until,omitempty"`
	ByDay      []Weekday    `json:"by_day,omitempty" yaml:"by_day,omitempty"`
	ByMonthDay []int        `json:"by_month_day,omitempty" yaml:"by_month_day,omitempty"`
	ByMonth    []time.Month `json:"by_month,omitempty" yaml:"by_month,omitempty"`
	Exceptions []time.Time  `json:"exceptions,omitempty" yaml:"exceptions,omitempty"`
}

// EffectiveInterval treats anything below one as one.
func (r RecurrenceRule) EffectiveInterval() int {
	if r.Interval < 1 {
		return 1
	}
	return r.Interval
}

func (r RecurrenceRule) HasUntil() bool {
	return !r.Until.IsZero()
}

func (r RecurrenceRule) Clone() RecurrenceRule {
	r.ByDay = slices.Clone(r.ByDay)
	r.ByMonthDay = slices.Clone(r.ByMonthDay)
	r.ByMonth = slices.Clone(r.ByMonth)
	r.Exceptions = slices.Clone(r.Exceptions)
	return r
}
