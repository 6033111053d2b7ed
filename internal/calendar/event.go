package calendar

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/cwarden/timegrid/internal/dates"
)

var (
	ErrMissingID    = errors.New("calendar: event has no id")
	ErrMissingTime  = errors.New("calendar: event has no start or end")
	ErrInvalidRange = errors.New("calendar: event must end after it starts")
)

// MinimumDuration is the length given to events whose end does not follow
// their start when they are coerced rather than rejected.
const MinimumDuration = time.Minute

// Event is a calendar entry. Instances synthesized from a recurrence rule
// carry IsRecurrence and the id of the event they were expanded from; they
// are regenerated for every visible window and never stored.
type Event struct {
	ID         string
	Title      string
	Start      time.Time
	End        time.Time
	AllDay     bool
	Color      string
	Recurrence *RecurrenceRule

	// Capability flags. NewEvent sets all three; a zero Event is locked.
	Draggable bool
	Resizable bool
	Editable  bool

	IsRecurrence bool
	OriginalID   string

	// Source identifies where the host loaded the event from.
	Source string
}

// NewEvent returns an editable, draggable, resizable event.
func NewEvent(id, title string, start, end time.Time) Event {
	return Event{
		ID:        id,
		Title:     title,
		Start:     start,
		End:       end,
		Draggable: true,
		Resizable: true,
		Editable:  true,
	}
}

// Validate reports the first structural problem with the event.
func (e Event) Validate() error {
	if e.ID == "" {
		return ErrMissingID
	}
	if e.Start.IsZero() || e.End.IsZero() {
		return ErrMissingTime
	}
	if !e.End.After(e.Start) {
		return fmt.Errorf("%w: %s", ErrInvalidRange, e.ID)
	}
	return nil
}

// Normalize returns a copy whose end is at least min after its start.
// Events without id or start are still rejected.
func (e Event) Normalize(min time.Duration) (Event, error) {
	if e.ID == "" {
		return e, ErrMissingID
	}
	if e.Start.IsZero() {
		return e, ErrMissingTime
	}
	if min <= 0 {
		min = MinimumDuration
	}
	if e.End.IsZero() || !e.End.After(e.Start) {
		e.End = e.Start.Add(min)
	}
	return e, nil
}

func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

func (e Event) IsRecurring() bool {
	return e.Recurrence != nil
}

// Overlaps is the strict half-open interval test.
func (e Event) Overlaps(other Event) bool {
	return e.Start.Before(other.End) && e.End.After(other.Start)
}

// OccursOn reports whether any part of the event falls on day.
func (e Event) OccursOn(day time.Time) bool {
	start := dates.StartOfDay(day)
	end := start.AddDate(0, 0, 1)
	if e.End.Equal(e.Start) {
		return !e.Start.Before(start) && e.Start.Before(end)
	}
	return e.Start.Before(end) && e.End.After(start)
}

// WithTimes returns a copy moved to start and end.
func (e Event) WithTimes(start, end time.Time) Event {
	c := e.Clone()
	c.Start = start
	c.End = end
	return c
}

// Clone copies the event, including its recurrence rule.
func (e Event) Clone() Event {
	if e.Recurrence != nil {
		r := e.Recurrence.Clone()
		e.Recurrence = &r
	}
	return e
}

// SortByStart orders events by start, longer first on ties, then by id.
func SortByStart(events []Event) {
	slices.SortStableFunc(events, func(a, b Event) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		if da, db := a.Duration(), b.Duration(); da != db {
			if da > db {
				return -1
			}
			return 1
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
}
