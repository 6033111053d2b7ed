package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cwarden/timegrid/internal/calendar"
	"github.com/cwarden/timegrid/internal/logging"
)

// Composite merges several sources. When two sources return the same id,
// the earlier source wins, so a store placed first overrides file events.
type Composite struct {
	mu      sync.RWMutex
	sources []Source
	Logger  *slog.Logger
}

func NewComposite(sources ...Source) *Composite {
	return &Composite{sources: sources}
}

func (c *Composite) Add(s Source) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources = append(c.sources, s)
}

func (c *Composite) Name() string {
	return "composite"
}

func (c *Composite) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sources)
}

// Events returns the merged events sorted by start. A failing source is
// logged and skipped; its error is still returned alongside the events
// from the others.
func (c *Composite) Events(ctx context.Context, from, to time.Time) ([]calendar.Event, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.sources) == 0 {
		return nil, ErrNoSource
	}
	logger := logging.Or(ctx, c.Logger)

	var (
		all  []calendar.Event
		errs []error
		seen = make(map[string]bool)
	)
	for _, src := range c.sources {
		events, err := src.Events(ctx, from, to)
		if err != nil {
			logger.Warn("source failed", "source", src.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}
		for _, ev := range events {
			if seen[ev.ID] {
				continue
			}
			seen[ev.ID] = true
			all = append(all, ev)
		}
	}
	calendar.SortByStart(all)
	return all, errors.Join(errs...)
}
