// Package recurrence expands recurring events into the concrete instances
// that fall inside a visible window.
//
// Only daily, weekly, monthly and yearly rules are understood, with the
// byDay, byMonthDay and byMonth constraints that make sense for each
// frequency. Fields that do not apply to a rule's frequency are ignored;
// Check lists them for callers that want to warn.
package recurrence

import (
	"iter"
	"slices"
	"time"

	"github.com/cwarden/timegrid/internal/calendar"
	"github.com/cwarden/timegrid/internal/dates"
)

// Instances yields one synthesized event per matching day whose occurrence
// touches the closed window of days [from, to], so an overnight instance
// that starts the day before the window is included. The base event's own
// day is never yielded; it is laid out from the base event itself. The
// sequence is restartable and yields identical instances on every run.
//
// Excluded days still count towards Count, as in RFC 5545.
func Instances(ev calendar.Event, from, to time.Time) iter.Seq[calendar.Event] {
	return func(yield func(calendar.Event) bool) {
		if ev.Recurrence == nil || ev.Start.IsZero() {
			return
		}
		rule := *ev.Recurrence
		base, err := ev.Normalize(calendar.MinimumDuration)
		if err != nil {
			return
		}

		origin := dates.StartOfDay(base.Start)
		windowStart := dates.StartOfDay(from)
		windowEnd := dates.StartOfDay(to)
		if windowEnd.Before(windowStart) {
			return
		}

		last := windowEnd
		if rule.HasUntil() {
			if until := dates.StartOfDay(rule.Until); until.Before(last) {
				last = until
			}
		}

		// Instances that start up to span days before the window reach
		// into it.
		span := dates.DaysBetween(origin, dates.StartOfDay(base.End.Add(-time.Nanosecond)))
		scanStart := windowStart.AddDate(0, 0, -span)

		// With a count bound every occurrence since the origin has to be
		// counted, so the scan cannot start at the window.
		day := origin.AddDate(0, 0, 1)
		if rule.Count <= 0 && scanStart.After(day) {
			day = scanStart
		}

		occurrence := 1 // the base event
		for !day.After(last) {
			if Matches(rule, base.Start, day) {
				occurrence++
				if rule.Count > 0 && occurrence > rule.Count {
					return
				}
				if !excluded(rule, day) && !day.Before(scanStart) {
					inst := instance(base, day)
					if inst.End.After(windowStart) {
						if !yield(inst) {
							return
						}
					}
				}
			}
			day = day.AddDate(0, 0, 1)
		}
	}
}

// Expand collects Instances into a slice.
func Expand(ev calendar.Event, from, to time.Time) []calendar.Event {
	return slices.Collect(Instances(ev, from, to))
}

// ExpandAll returns every non-recurring event that touches the window,
// every recurring base event that touches it, and all instances.
func ExpandAll(events []calendar.Event, from, to time.Time) []calendar.Event {
	windowStart := dates.StartOfDay(from)
	windowEnd := dates.StartOfDay(to).AddDate(0, 0, 1)

	out := make([]calendar.Event, 0, len(events))
	for _, ev := range events {
		if ev.Start.Before(windowEnd) && !ev.End.Before(windowStart) {
			out = append(out, ev)
		}
		if ev.IsRecurring() {
			out = slices.AppendSeq(out, Instances(ev, from, to))
		}
	}
	return out
}

// InstanceID is the deterministic id of the instance of originalID on day.
func InstanceID(originalID string, day time.Time) string {
	return originalID + "@" + day.Format("20060102")
}

func instance(base calendar.Event, day time.Time) calendar.Event {
	s := base.Start
	start := time.Date(day.Year(), day.Month(), day.Day(), s.Hour(), s.Minute(), s.Second(), s.Nanosecond(), s.Location())

	inst := base.Clone()
	inst.ID = InstanceID(base.ID, day)
	inst.Start = start
	inst.End = start.Add(base.Duration())
	inst.Recurrence = nil
	inst.IsRecurrence = true
	inst.OriginalID = base.ID
	return inst
}

func excluded(rule calendar.RecurrenceRule, day time.Time) bool {
	for _, ex := range rule.Exceptions {
		if dates.IsSameDay(ex, day) {
			return true
		}
	}
	return false
}
