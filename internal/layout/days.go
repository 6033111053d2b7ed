package layout

import (
	"slices"
	"time"

	"github.com/cwarden/timegrid/internal/calendar"
	"github.com/cwarden/timegrid/internal/dates"
	"github.com/cwarden/timegrid/internal/recurrence"
)

// DayLayout is one column of a multi-day view.
type DayLayout struct {
	Date   time.Time
	Events []PositionedEvent
	AllDay []calendar.Event
}

// AllDay returns the all-day events that cover date, ordered by start.
func AllDay(events []calendar.Event, date time.Time) []calendar.Event {
	var out []calendar.Event
	for _, ev := range events {
		if ev.AllDay && ev.OccursOn(date) {
			out = append(out, ev)
		}
	}
	calendar.SortByStart(out)
	return out
}

// Bucket splits events into one slice per day. An event that spans
// midnight lands in every day it touches.
func Bucket(events []calendar.Event, days []time.Time) [][]calendar.Event {
	buckets := make([][]calendar.Event, len(days))
	for i, d := range days {
		for _, ev := range events {
			if ev.OccursOn(d) {
				buckets[i] = append(buckets[i], ev)
			}
		}
	}
	return buckets
}

// LayoutDays expands recurring events over days and lays out each day.
func LayoutDays(events []calendar.Event, days []time.Time, opts Options) []DayLayout {
	if len(days) == 0 {
		return nil
	}
	expanded := recurrence.ExpandAll(events, days[0], days[len(days)-1])
	buckets := Bucket(expanded, days)

	out := make([]DayLayout, len(days))
	for i, d := range days {
		out[i] = DayLayout{
			Date:   dates.StartOfDay(d),
			Events: LayoutDay(buckets[i], d, opts),
			AllDay: AllDay(buckets[i], d),
		}
	}
	return out
}

// MonthCell lists the events of one day in a month grid. Events holds at
// most the requested limit; More counts the rest.
type MonthCell struct {
	Date   time.Time
	Events []calendar.Event
	More   int
}

// MonthCells fills grid with the events of each day, all-day events first.
// A limit of zero or less keeps every event.
func MonthCells(events []calendar.Event, grid [6][7]time.Time, limit int) [6][7]MonthCell {
	var cells [6][7]MonthCell
	expanded := recurrence.ExpandAll(events, grid[0][0], grid[5][6])
	for w := range grid {
		for d, day := range grid[w] {
			var list []calendar.Event
			for _, ev := range expanded {
				if ev.OccursOn(day) {
					list = append(list, ev)
				}
			}
			slices.SortStableFunc(list, func(a, b calendar.Event) int {
				if a.AllDay != b.AllDay {
					if a.AllDay {
						return -1
					}
					return 1
				}
				return a.Start.Compare(b.Start)
			})

			cell := MonthCell{Date: day, Events: list}
			if limit > 0 && len(list) > limit {
				cell.Events = list[:limit]
				cell.More = len(list) - limit
			}
			cells[w][d] = cell
		}
	}
	return cells
}
