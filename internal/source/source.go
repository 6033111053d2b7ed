// Package source loads events from outside the store: iCalendar files,
// combinations of sources, and notifications when the files change.
package source

import (
	"context"
	"errors"
	"time"

	"github.com/cwarden/timegrid/internal/calendar"
)

var ErrNoSource = errors.New("source: no sources configured")

// Source provides the events, recurring masters included, that may appear
// between from and to.
type Source interface {
	Name() string
	Events(ctx context.Context, from, to time.Time) ([]calendar.Event, error)
}

// Change describes a modified source file.
type Change struct {
	Path string
	Time time.Time
}

// inWindow keeps events touching [from, to) and recurring masters that
// start before to.
func inWindow(ev calendar.Event, from, to time.Time) bool {
	if ev.Start.IsZero() || !ev.Start.Before(to) {
		return false
	}
	if ev.IsRecurring() {
		return true
	}
	return ev.End.After(from) || (ev.End.Equal(ev.Start) && !ev.Start.Before(from))
}
