package store

import (
	"context"
	"sync"
	"time"

	"github.com/cwarden/timegrid/internal/calendar"
)

// Memory keeps events in a map. Values are cloned on the way in and out.
type Memory struct {
	mu     sync.RWMutex
	events map[string]calendar.Event
}

func NewMemory(events ...calendar.Event) *Memory {
	m := &Memory{events: make(map[string]calendar.Event, len(events))}
	for _, ev := range events {
		m.events[ev.ID] = ev.Clone()
	}
	return m
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Events(ctx context.Context, from, to time.Time) ([]calendar.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]calendar.Event, 0, len(m.events))
	for _, ev := range m.events {
		if inWindow(ev, from, to) {
			out = append(out, ev.Clone())
		}
	}
	calendar.SortByStart(out)
	return out, nil
}

func (m *Memory) Get(_ context.Context, id string) (calendar.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ev, ok := m.events[id]
	if !ok {
		return calendar.Event{}, ErrNotFound
	}
	return ev.Clone(), nil
}

func (m *Memory) Put(_ context.Context, ev calendar.Event) error {
	if err := checkPut(ev); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[ev.ID] = ev.Clone()
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[id]; !ok {
		return ErrNotFound
	}
	delete(m.events, id)
	return nil
}

func (m *Memory) Close() error { return nil }
