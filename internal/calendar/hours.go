package calendar

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/cwarden/timegrid/internal/dates"
)

var ErrInvalidTimeRange = errors.New("calendar: invalid time range")

// TimeRange is the visible band of the day in whole hours, 0 to 24.
type TimeRange struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// FullDay is the default visible range.
var FullDay = TimeRange{Start: 0, End: 24}

func (r TimeRange) Validate() error {
	if r.Start < 0 || r.End > 24 || r.Start >= r.End {
		return fmt.Errorf("%w: %d-%d", ErrInvalidTimeRange, r.Start, r.End)
	}
	return nil
}

func (r TimeRange) Hours() int {
	return r.End - r.Start
}

// StartMinutes and EndMinutes are the bounds in minutes from midnight.
func (r TimeRange) StartMinutes() int { return r.Start * 60 }
func (r TimeRange) EndMinutes() int   { return r.End * 60 }

// ContainsMinute reports whether minute falls in [start, end).
func (r TimeRange) ContainsMinute(minute float64) bool {
	return minute >= float64(r.StartMinutes()) && minute < float64(r.EndMinutes())
}

// HourRange is a span of decimal hours, e.g. 9.5 to 17.
type HourRange struct {
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end" yaml:"end"`
}

func (h HourRange) contains(hour float64) bool {
	return hour >= h.Start && hour < h.End
}

// UnavailableHours marks day and time ranges events may not be dragged into.
// An empty Days list applies the ranges to every weekday.
type UnavailableHours struct {
	Days   []time.Weekday `json:"days,omitempty" yaml:"days,omitempty"`
	Ranges []HourRange    `json:"ranges,omitempty" yaml:"ranges,omitempty"`
}

func (u UnavailableHours) IsZero() bool {
	return len(u.Ranges) == 0
}

func (u UnavailableHours) appliesTo(d time.Weekday) bool {
	return len(u.Days) == 0 || slices.Contains(u.Days, d)
}

// Contains reports whether t lands inside an unavailable range on one of
// the configured days. Ranges are half-open: 17:00 is outside 9-17.
func (u UnavailableHours) Contains(t time.Time) bool {
	if !u.appliesTo(t.Weekday()) {
		return false
	}
	hour := dates.MinutesFromMidnight(t) / 60
	for _, r := range u.Ranges {
		if r.contains(hour) {
			return true
		}
	}
	return false
}

// SlotAvailable is the isSlotAvailable callback derived from u.
func (u UnavailableHours) SlotAvailable(t time.Time) bool {
	return !u.Contains(t)
}

func (u UnavailableHours) Validate() error {
	for _, r := range u.Ranges {
		if r.Start < 0 || r.End > 24 || r.Start >= r.End {
			return fmt.Errorf("calendar: invalid unavailable range %v-%v", r.Start, r.End)
		}
	}
	for _, d := range u.Days {
		if d < time.Sunday || d > time.Saturday {
			return fmt.Errorf("calendar: invalid weekday %d", d)
		}
	}
	return nil
}

func (u UnavailableHours) Clone() UnavailableHours {
	return UnavailableHours{Days: slices.Clone(u.Days), Ranges: slices.Clone(u.Ranges)}
}
