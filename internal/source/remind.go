package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/cwarden/timegrid/internal/calendar"
	"github.com/cwarden/timegrid/internal/dates"
	"github.com/cwarden/timegrid/internal/logging"
)

// remindMonth is one element of the JSON array printed by remind -ppp.
type remindMonth struct {
	MonthName string        `json:"monthname"`
	Year      int           `json:"year"`
	Entries   []remindEntry `json:"entries"`
}

type remindEntry struct {
	Date     string `json:"date"`
	Filename string `json:"filename"`
	LineNo   int    `json:"lineno"`
	Duration *int   `json:"duration,omitempty"`
	Time     *int   `json:"time,omitempty"`
	Priority int    `json:"priority"`
	Body     string `json:"body"`
}

// Remind reads a remind(1) file through the remind command. Its events
// are read-only.
type Remind struct {
	Path    string
	Command string
	Logger  *slog.Logger

	// run executes the command; tests replace it.
	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

func NewRemind(path string, logger *slog.Logger) *Remind {
	return &Remind{Path: path, Command: "remind", Logger: logger, run: runCommand}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

func (r *Remind) Name() string { return filepath.Base(r.Path) }

func (r *Remind) Events(ctx context.Context, from, to time.Time) ([]calendar.Event, error) {
	first := dates.StartOfMonth(from)
	months := max(1, dates.MonthsBetween(first, to.Add(-time.Nanosecond))+1)
	args := []string{
		fmt.Sprintf("-ppp%d", months),
		"-q",
		"-g",
		r.Path,
		first.Format("02 Jan 2006"),
	}
	out, err := r.run(ctx, r.Command, args...)
	if err != nil {
		return nil, fmt.Errorf("remind %s: %w", r.Path, err)
	}
	events, err := ParseRemindJSON(out, r.Name(), time.Local)
	if err != nil {
		return nil, err
	}

	var kept []calendar.Event
	for _, ev := range events {
		if inWindow(ev, from, to) {
			kept = append(kept, ev)
		}
	}
	logging.Or(ctx, r.Logger).Debug("remind events", "source", r.Name(), "months", months, "events", len(kept))
	return kept, nil
}

// remindDuration is used for timed reminders without a DURATION.
const remindDuration = time.Hour

// ParseRemindJSON converts remind -ppp output. Entries without a time are
// all-day events; ids are derived from the file and line so they are stable
// across reloads.
func ParseRemindJSON(data []byte, name string, loc *time.Location) ([]calendar.Event, error) {
	var months []remindMonth
	if err := json.Unmarshal(data, &months); err != nil {
		return nil, fmt.Errorf("failed to parse remind JSON: %w", err)
	}

	var events []calendar.Event
	for _, month := range months {
		for _, entry := range month.Entries {
			day, err := time.ParseInLocation("2006-01-02", entry.Date, loc)
			if err != nil {
				continue
			}
			file := strings.TrimSuffix(filepath.Base(entry.Filename), filepath.Ext(entry.Filename))
			ev := calendar.Event{
				ID:     fmt.Sprintf("rem-%s-%d-%s", file, entry.LineNo, day.Format("20060102")),
				Title:  strings.TrimSpace(entry.Body),
				Source: name,
			}
			if entry.Time != nil {
				ev.Start = dates.AtMinutes(day, *entry.Time)
				ev.End = ev.Start.Add(remindDuration)
				if entry.Duration != nil && *entry.Duration > 0 {
					ev.End = ev.Start.Add(time.Duration(*entry.Duration) * time.Minute)
				}
			} else {
				ev.AllDay = true
				ev.Start = day
				ev.End = dates.AddDays(day, 1)
			}
			events = append(events, ev)
		}
	}
	return events, nil
}

// ForPath picks the source for a configured file by its extension: .rem
// and .remind files go through remind, everything else is read as ICS.
func ForPath(path string, logger *slog.Logger) Source {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".rem", ".remind":
		return NewRemind(path, logger)
	}
	return NewICSFile(path, logger)
}
