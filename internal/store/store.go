// Package store persists the events the user creates or edits. Recurrence
// instances are never stored; edits to a series go to its master.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cwarden/timegrid/internal/calendar"
)

var (
	ErrNotFound  = errors.New("store: event not found")
	ErrEphemeral = errors.New("store: recurrence instances cannot be stored")
)

type Store interface {
	Name() string
	// Events returns stored events touching [from, to) and every recurring
	// master that starts before to.
	Events(ctx context.Context, from, to time.Time) ([]calendar.Event, error)
	Get(ctx context.Context, id string) (calendar.Event, error)
	// Put inserts or replaces the event with the same id.
	Put(ctx context.Context, ev calendar.Event) error
	Delete(ctx context.Context, id string) error
	Close() error
}

func checkPut(ev calendar.Event) error {
	if ev.IsRecurrence {
		return fmt.Errorf("%w: %s", ErrEphemeral, ev.ID)
	}
	return ev.Validate()
}

func inWindow(ev calendar.Event, from, to time.Time) bool {
	if !ev.Start.Before(to) {
		return false
	}
	return ev.IsRecurring() || ev.End.After(from)
}
